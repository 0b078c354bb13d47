package domain

import "fmt"

type EdgeStatus string

const (
	EdgeProposed EdgeStatus = "proposed"
	EdgeAccepted EdgeStatus = "accepted"
	EdgeDeferred EdgeStatus = "deferred"
	EdgeRejected EdgeStatus = "rejected"
)

func ValidEdgeStatus(s string) bool {
	switch EdgeStatus(s) {
	case EdgeProposed, EdgeAccepted, EdgeDeferred, EdgeRejected:
		return true
	}
	return false
}

// CausalEdge is a directed cause->effect pair with its fused confidence and
// the oracle's mechanism description. Edges are unique per ordered
// (source, target) pair.
type CausalEdge struct {
	Source       Variable   `json:"source"`
	Target       Variable   `json:"target"`
	Confidence   float64    `json:"confidence"`
	Mechanism    string     `json:"mechanism"`
	Status       EdgeStatus `json:"status"`
	Alternatives []string   `json:"alternatives,omitempty"`

	// KnowledgeConfidence is the self-consistency score from the knowledge
	// oracle alone, kept so the resolver can re-run the decision policy
	// without re-sampling.
	KnowledgeConfidence float64 `json:"knowledge_confidence"`

	// Evidence is the profile computed when the edge was evaluated, nil
	// when no observational data was available.
	Evidence *EvidenceProfile `json:"evidence,omitempty"`

	Notes string `json:"notes,omitempty"`
}

func (e *CausalEdge) Key() string {
	return EdgeKey(e.Source.Name, e.Target.Name)
}

func (e *CausalEdge) String() string {
	return fmt.Sprintf("%s -> %s (conf=%.2f)", e.Source.Name, e.Target.Name, e.Confidence)
}

func EdgeKey(source, target string) string {
	return source + "\x00" + target
}

// LedgerEntry records a deferred or rejected edge together with the reason,
// retained for explainability and conflict resolution.
type LedgerEntry struct {
	Edge   *CausalEdge `json:"edge"`
	Reason string      `json:"reason"`
}

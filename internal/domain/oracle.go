package domain

import "context"

// RootProposal is one oracle sample's claim that a variable is a root cause.
type RootProposal struct {
	Variable   string  `json:"variable"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// EffectProposal is one oracle sample's claim that the expanded node
// directly causes Target.
type EffectProposal struct {
	Target     string  `json:"target"`
	Confidence float64 `json:"confidence"`
	Mechanism  string  `json:"mechanism"`
}

// ExpansionContext carries the state an oracle needs to propose direct
// effects for a node without re-proposing what the graph already holds.
type ExpansionContext struct {
	Remaining    []Variable `json:"remaining"`
	GraphSummary string     `json:"graph_summary"`
}

type ReconcileVerdict string

const (
	VerdictConfirm ReconcileVerdict = "CONFIRM"
	VerdictReject  ReconcileVerdict = "REJECT"
	VerdictModify  ReconcileVerdict = "MODIFY"
)

// ReconcileRequest presents a deferred edge back to the knowledge oracle
// with the statistical narrative it conflicted with.
type ReconcileRequest struct {
	Edge         *CausalEdge `json:"edge"`
	Reason       string      `json:"reason"`
	Narrative    string      `json:"narrative"`
	GraphSummary string      `json:"graph_summary"`
}

// Reconciliation is the oracle's revised judgment of a deferred edge.
// Mechanism and Confidence are meaningful only for VerdictModify.
type Reconciliation struct {
	Verdict     ReconcileVerdict `json:"verdict"`
	Confidence  float64          `json:"confidence"`
	Mechanism   string           `json:"mechanism,omitempty"`
	Explanation string           `json:"explanation,omitempty"`
	Alternative string           `json:"alternative,omitempty"`
}

// PathJudgment is the oracle's plausibility assessment of a directed path.
type PathJudgment struct {
	Plausible    bool    `json:"plausible"`
	Plausibility float64 `json:"plausibility"`
	Reasoning    string  `json:"reasoning,omitempty"`
}

// KnowledgeOracle supplies domain judgments about cause-effect structure.
// Each method is a single sample; the engine handles self-consistency by
// invoking ProposeRoots/ProposeEffects repeatedly. Implementations absorb
// transient transport errors via their retry budget and surface
// ErrOracleUnavailable on exhaustion — never a panic, never a partial write.
type KnowledgeOracle interface {
	ProposeRoots(ctx context.Context, variables []Variable) ([]RootProposal, error)
	ProposeEffects(ctx context.Context, node Variable, ectx ExpansionContext) ([]EffectProposal, error)
	Reconcile(ctx context.Context, req ReconcileRequest) (*Reconciliation, error)
	JudgePath(ctx context.Context, path []Variable) (*PathJudgment, error)
}

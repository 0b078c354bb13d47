package service

import "github.com/causelab/causeway/internal/domain"

type Action string

const (
	ActionAccept Action = "ACCEPT"
	ActionDefer  Action = "DEFER"
	ActionReject Action = "REJECT"
)

// Decision is the tagged outcome of the edge policy, carrying the rule that
// fired so the ledger stays auditable.
type Decision struct {
	Action     Action
	Rule       string
	Reason     string
	Confidence float64
}

// DecisionInput is everything the policy needs to judge one candidate edge.
type DecisionInput struct {
	Knowledge    float64
	Hybrid       float64
	Evidence     *domain.EvidenceProfile
	CreatesCycle bool

	// SkipContradiction bypasses the evidence-conflict rule after the
	// resolver has explicitly reconciled the edge with the oracle.
	SkipContradiction bool
}

type policyRule struct {
	name string
	eval func(in DecisionInput) (Decision, bool)
}

// Policy is the ADD/DEFER/REJECT decision logic as an ordered rule list.
// Rules are evaluated top to bottom; the first that fires wins.
type Policy struct {
	rules []policyRule
}

func NewPolicy(cfg Config) *Policy {
	return &Policy{rules: []policyRule{
		{
			name: "cycle",
			eval: func(in DecisionInput) (Decision, bool) {
				if !in.CreatesCycle {
					return Decision{}, false
				}
				return Decision{Action: ActionReject, Rule: "cycle", Reason: "would create cycle", Confidence: 1.0}, true
			},
		},
		{
			name: "low_knowledge",
			eval: func(in DecisionInput) (Decision, bool) {
				if in.Knowledge >= cfg.DeferBelow {
					return Decision{}, false
				}
				return Decision{Action: ActionDefer, Rule: "low_knowledge", Reason: "insufficient knowledge confidence", Confidence: in.Knowledge}, true
			},
		},
		{
			name: "contradiction",
			eval: func(in DecisionInput) (Decision, bool) {
				if in.SkipContradiction || !contradicts(in.Evidence, cfg.ContradictionThreshold, cfg.SignificanceLevel) {
					return Decision{}, false
				}
				return Decision{Action: ActionDefer, Rule: "contradiction", Reason: "evidence contradicts belief", Confidence: in.Hybrid}, true
			},
		},
		{
			name: "confident",
			eval: func(in DecisionInput) (Decision, bool) {
				if in.Hybrid <= cfg.AcceptAbove {
					return Decision{}, false
				}
				return Decision{Action: ActionAccept, Rule: "confident", Reason: "hybrid confidence above threshold", Confidence: in.Hybrid}, true
			},
		},
	}}
}

// Evaluate runs the rule list; the fallthrough outcome is DEFER.
func (p *Policy) Evaluate(in DecisionInput) Decision {
	for _, r := range p.rules {
		if d, ok := r.eval(in); ok {
			return d
		}
	}
	return Decision{Action: ActionDefer, Rule: "uncertain", Reason: "uncertain combined confidence", Confidence: in.Hybrid}
}

// contradicts reports whether the evidence pushes against the proposed
// edge: any available signal at or beyond the threshold in the reverse
// direction, or an independence test that fails to reject at the
// configured significance level.
func contradicts(profile *domain.EvidenceProfile, threshold, significance float64) bool {
	if profile == nil || threshold <= 0 {
		return false
	}
	for _, s := range profile.Signals {
		if !s.Available {
			continue
		}
		if s.Strength <= -threshold {
			return true
		}
		if s.Name == domain.SignalCondIndependence && s.PValue != nil && *s.PValue > significance {
			return true
		}
	}
	return false
}

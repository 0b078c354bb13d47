package domain

import "context"

// Signal names produced by the evidence oracle.
const (
	SignalPearson          = "pearson"
	SignalSpearman         = "spearman"
	SignalLagged           = "lagged"
	SignalRegression       = "regression"
	SignalPartial          = "partial"
	SignalCondIndependence = "cond_independence"
)

// Signal is one named statistical measurement for a variable pair. Strength
// is normalized to [-1, 1]; Available is false when the underlying test was
// inapplicable (missing column, too few rows, empty conditioning set).
type Signal struct {
	Name      string   `json:"name"`
	Strength  float64  `json:"strength"`
	Available bool     `json:"available"`
	PValue    *float64 `json:"p_value,omitempty"`
	Detail    string   `json:"detail,omitempty"`
}

// EvidenceProfile is the per-pair record of statistical signals. The core
// treats Detail payloads as opaque.
type EvidenceProfile struct {
	Source  string   `json:"source"`
	Target  string   `json:"target"`
	Signals []Signal `json:"signals"`
}

// Signal returns the named signal, or a zero-valued unavailable one.
func (p *EvidenceProfile) Signal(name string) Signal {
	for _, s := range p.Signals {
		if s.Name == name {
			return s
		}
	}
	return Signal{Name: name}
}

// Available reports whether any signal carries a usable measurement.
func (p *EvidenceProfile) Available() bool {
	if p == nil {
		return false
	}
	for _, s := range p.Signals {
		if s.Available {
			return true
		}
	}
	return false
}

// EvidenceOracle computes statistical relationship strength from
// observational data. Implementations return an empty profile, never an
// error, when data is insufficient; ErrOracleUnavailable is reserved for
// transport-level failures that survived the retry budget.
type EvidenceOracle interface {
	ComputeProfile(ctx context.Context, source, target string, conditioning []string) (*EvidenceProfile, error)
}

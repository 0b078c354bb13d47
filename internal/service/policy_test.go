package service

import (
	"testing"

	"github.com/causelab/causeway/internal/domain"
)

func contradictingProfile(strength float64) *domain.EvidenceProfile {
	return &domain.EvidenceProfile{Signals: []domain.Signal{
		{Name: domain.SignalPearson, Strength: strength, Available: true},
	}}
}

func TestPolicyCycleRejects(t *testing.T) {
	p := NewPolicy(DefaultConfig())
	d := p.Evaluate(DecisionInput{Knowledge: 0.95, Hybrid: 0.95, CreatesCycle: true})
	if d.Action != ActionReject || d.Rule != "cycle" {
		t.Errorf("decision = %+v, want cycle rejection", d)
	}
}

func TestPolicyLowKnowledgeDefers(t *testing.T) {
	p := NewPolicy(DefaultConfig())
	d := p.Evaluate(DecisionInput{Knowledge: 0.2, Hybrid: 0.7})
	if d.Action != ActionDefer || d.Rule != "low_knowledge" {
		t.Errorf("decision = %+v, want low_knowledge deferral", d)
	}
}

func TestPolicyContradictionDefersDespiteConfidence(t *testing.T) {
	p := NewPolicy(DefaultConfig())
	d := p.Evaluate(DecisionInput{
		Knowledge: 0.9,
		Hybrid:    0.8,
		Evidence:  contradictingProfile(-0.6),
	})
	if d.Action != ActionDefer || d.Rule != "contradiction" {
		t.Errorf("decision = %+v, want contradiction deferral", d)
	}
}

func TestPolicySkipContradictionAfterReconciliation(t *testing.T) {
	p := NewPolicy(DefaultConfig())
	d := p.Evaluate(DecisionInput{
		Knowledge:         0.9,
		Hybrid:            0.8,
		Evidence:          contradictingProfile(-0.6),
		SkipContradiction: true,
	})
	if d.Action != ActionAccept {
		t.Errorf("decision = %+v, want acceptance with contradiction rule suppressed", d)
	}
}

func TestPolicyWeakContradictionIgnored(t *testing.T) {
	p := NewPolicy(DefaultConfig())
	d := p.Evaluate(DecisionInput{
		Knowledge: 0.9,
		Hybrid:    0.8,
		Evidence:  contradictingProfile(-0.3),
	})
	if d.Action != ActionAccept {
		t.Errorf("decision = %+v, want acceptance when contradiction below threshold", d)
	}
}

func TestPolicyIndependenceVerdictDefers(t *testing.T) {
	// A failed independence rejection contradicts the edge even though the
	// correlation itself is weakly positive.
	p := NewPolicy(DefaultConfig())
	pval := 0.5
	d := p.Evaluate(DecisionInput{
		Knowledge: 0.9,
		Hybrid:    0.8,
		Evidence: &domain.EvidenceProfile{Signals: []domain.Signal{
			{Name: domain.SignalCondIndependence, Strength: 0.1, Available: true, PValue: &pval},
		}},
	})
	if d.Action != ActionDefer || d.Rule != "contradiction" {
		t.Errorf("decision = %+v, want contradiction deferral on independence", d)
	}
}

func TestPolicyDependentEvidenceNotContradicting(t *testing.T) {
	p := NewPolicy(DefaultConfig())
	pval := 0.01
	d := p.Evaluate(DecisionInput{
		Knowledge: 0.9,
		Hybrid:    0.8,
		Evidence: &domain.EvidenceProfile{Signals: []domain.Signal{
			{Name: domain.SignalCondIndependence, Strength: 0.7, Available: true, PValue: &pval},
		}},
	})
	if d.Action != ActionAccept {
		t.Errorf("decision = %+v, want acceptance when the independence test rejects", d)
	}
}

func TestPolicyConfidentAccepts(t *testing.T) {
	p := NewPolicy(DefaultConfig())
	d := p.Evaluate(DecisionInput{Knowledge: 0.8, Hybrid: 0.75})
	if d.Action != ActionAccept || d.Rule != "confident" {
		t.Errorf("decision = %+v, want confident acceptance", d)
	}
}

func TestPolicyFallthroughDefers(t *testing.T) {
	p := NewPolicy(DefaultConfig())
	d := p.Evaluate(DecisionInput{Knowledge: 0.5, Hybrid: 0.5})
	if d.Action != ActionDefer || d.Rule != "uncertain" {
		t.Errorf("decision = %+v, want uncertain deferral", d)
	}
}

func TestPolicyBoundaryHybridNotAccepted(t *testing.T) {
	// Acceptance requires strictly above the threshold.
	cfg := DefaultConfig()
	p := NewPolicy(cfg)
	d := p.Evaluate(DecisionInput{Knowledge: 0.6, Hybrid: cfg.AcceptAbove})
	if d.Action != ActionDefer {
		t.Errorf("decision = %+v, want deferral at exact threshold", d)
	}
}

func TestPolicyCycleBeatsContradiction(t *testing.T) {
	p := NewPolicy(DefaultConfig())
	d := p.Evaluate(DecisionInput{
		Knowledge:    0.9,
		Hybrid:       0.9,
		Evidence:     contradictingProfile(-0.9),
		CreatesCycle: true,
	})
	if d.Action != ActionReject || d.Rule != "cycle" {
		t.Errorf("decision = %+v, want cycle rule to fire first", d)
	}
}

package service

import (
	"context"
	"testing"

	"github.com/causelab/causeway/internal/domain"
	"github.com/causelab/causeway/internal/llm"
	"go.uber.org/zap"
)

// deferredGraph builds a two-variable graph holding one contradicted,
// deferred edge with strong knowledge confidence behind it.
func deferredGraph(t *testing.T) (*domain.CausalGraph, *domain.CausalEdge) {
	t.Helper()
	vars := domain.NewVariableSet([]domain.Variable{
		{Name: "rain"},
		{Name: "wet_ground"},
	})
	graph := domain.NewCausalGraph(vars)
	edge := &domain.CausalEdge{
		Source:              domain.Variable{Name: "rain"},
		Target:              domain.Variable{Name: "wet_ground"},
		Mechanism:           "rainfall soaks the surface",
		KnowledgeConfidence: 0.9,
		Evidence:            supportiveProfile("rain", "wet_ground", -0.7),
	}
	graph.Defer(edge, "evidence contradicts belief")
	return graph, edge
}

func TestResolveConfirmPromotesEdge(t *testing.T) {
	graph, edge := deferredGraph(t)
	oracle := llm.NewMockOracle()
	oracle.ReconcileResponse = &domain.Reconciliation{
		Verdict:     domain.VerdictConfirm,
		Explanation: "suppressor variable masks the effect",
	}
	resolver := NewResolver(oracle, DefaultConfig(), zap.NewNop())

	warnings, err := resolver.Resolve(context.Background(), graph)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v", warnings)
	}
	if graph.Edge("rain", "wet_ground") == nil {
		t.Fatal("confirmed edge should be accepted")
	}
	if edge.Status != domain.EdgeAccepted {
		t.Errorf("status = %s", edge.Status)
	}
	if len(graph.Deferred()) != 0 {
		t.Errorf("deferred ledger should be empty, got %d entries", len(graph.Deferred()))
	}
	// Hybrid over the original knowledge and the evidence magnitude:
	// 0.6*0.9 + 0.4*0.7.
	if !almostEqual(edge.Confidence, 0.82) {
		t.Errorf("confidence = %v, want 0.82", edge.Confidence)
	}
}

func TestResolveRejectIsPermanent(t *testing.T) {
	graph, _ := deferredGraph(t)
	oracle := llm.NewMockOracle()
	oracle.ReconcileResponse = &domain.Reconciliation{
		Verdict:     domain.VerdictReject,
		Explanation: "correlation was spurious",
		Alternative: "both driven by season",
	}
	resolver := NewResolver(oracle, DefaultConfig(), zap.NewNop())

	if _, err := resolver.Resolve(context.Background(), graph); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !graph.IsRejected("rain", "wet_ground") {
		t.Fatal("expected permanent rejection")
	}
	if len(graph.Deferred()) != 0 {
		t.Error("rejected edge should leave the deferred ledger")
	}
	rejected := graph.Rejected()
	if rejected[0].Reason != "correlation was spurious" {
		t.Errorf("reason = %q", rejected[0].Reason)
	}
	if rejected[0].Edge.Notes != "both driven by season" {
		t.Errorf("notes = %q", rejected[0].Edge.Notes)
	}
}

func TestResolveModifyUpdatesMechanism(t *testing.T) {
	graph, edge := deferredGraph(t)
	oracle := llm.NewMockOracle()
	oracle.ReconcileResponse = &domain.Reconciliation{
		Verdict:    domain.VerdictModify,
		Confidence: 0.95,
		Mechanism:  "rainfall wets surfaces only above a volume threshold",
	}
	resolver := NewResolver(oracle, DefaultConfig(), zap.NewNop())

	if _, err := resolver.Resolve(context.Background(), graph); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if edge.Status != domain.EdgeAccepted {
		t.Fatalf("status = %s, want accepted after modification", edge.Status)
	}
	if edge.Mechanism != "rainfall wets surfaces only above a volume threshold" {
		t.Errorf("mechanism = %q", edge.Mechanism)
	}
	if len(edge.Alternatives) != 1 || edge.Alternatives[0] != "rainfall soaks the surface" {
		t.Errorf("alternatives = %v, want the original mechanism retained", edge.Alternatives)
	}
	if edge.KnowledgeConfidence != 0.95 {
		t.Errorf("knowledge confidence = %v", edge.KnowledgeConfidence)
	}
}

func TestResolveOracleUnavailableLeavesDeferred(t *testing.T) {
	graph, edge := deferredGraph(t)
	oracle := llm.NewMockOracle()
	oracle.ReconcileError = domain.ErrOracleUnavailable
	resolver := NewResolver(oracle, DefaultConfig(), zap.NewNop())

	warnings, err := resolver.Resolve(context.Background(), graph)
	if err != nil {
		t.Fatalf("Resolve should absorb oracle unavailability, got %v", err)
	}
	if len(warnings) != 1 {
		t.Errorf("warnings = %v, want one", warnings)
	}
	if edge.Status != domain.EdgeDeferred {
		t.Errorf("status = %s, want still deferred", edge.Status)
	}
}

func TestResolveConfirmedCycleStaysDeferred(t *testing.T) {
	vars := domain.NewVariableSet([]domain.Variable{
		{Name: "a"},
		{Name: "b"},
	})
	graph := domain.NewCausalGraph(vars)
	forward := &domain.CausalEdge{
		Source:     domain.Variable{Name: "a"},
		Target:     domain.Variable{Name: "b"},
		Confidence: 0.9,
	}
	if err := graph.Accept(forward); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	backward := &domain.CausalEdge{
		Source:              domain.Variable{Name: "b"},
		Target:              domain.Variable{Name: "a"},
		KnowledgeConfidence: 0.9,
	}
	graph.Defer(backward, "evidence contradicts belief")

	oracle := llm.NewMockOracle()
	oracle.ReconcileResponse = &domain.Reconciliation{Verdict: domain.VerdictConfirm}
	resolver := NewResolver(oracle, DefaultConfig(), zap.NewNop())

	if _, err := resolver.Resolve(context.Background(), graph); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if graph.IsRejected("b", "a") {
		t.Error("confirmed edge closing a cycle must not be demoted to rejected")
	}
	if backward.Status != domain.EdgeDeferred {
		t.Errorf("status = %s, want still deferred", backward.Status)
	}
	deferred := graph.Deferred()
	if len(deferred) != 1 {
		t.Fatalf("deferred ledger = %d entries, want 1", len(deferred))
	}
	if deferred[0].Reason != "irreconcilable: would create cycle" {
		t.Errorf("reason = %q, want irreconcilable cycle marker", deferred[0].Reason)
	}
	if graph.Edge("b", "a") != nil {
		t.Error("irreconcilable edge must not enter the accepted set")
	}
	if err := graph.VerifyAcyclic(); err != nil {
		t.Errorf("VerifyAcyclic: %v", err)
	}
}

func TestResolveConfirmIndependentEvidenceStaysDeferred(t *testing.T) {
	vars := domain.NewVariableSet([]domain.Variable{
		{Name: "rain"},
		{Name: "wet_ground"},
	})
	graph := domain.NewCausalGraph(vars)
	p := 0.6
	edge := &domain.CausalEdge{
		Source:              domain.Variable{Name: "rain"},
		Target:              domain.Variable{Name: "wet_ground"},
		KnowledgeConfidence: 0.9,
		Evidence: &domain.EvidenceProfile{
			Source: "rain",
			Target: "wet_ground",
			Signals: []domain.Signal{
				{Name: domain.SignalPearson, Strength: 0.05, Available: true},
				{Name: domain.SignalCondIndependence, Strength: 0.02, Available: true, PValue: &p},
			},
		},
	}
	graph.Defer(edge, "evidence contradicts belief")

	oracle := llm.NewMockOracle()
	oracle.ReconcileResponse = &domain.Reconciliation{Verdict: domain.VerdictConfirm}
	resolver := NewResolver(oracle, DefaultConfig(), zap.NewNop())

	if _, err := resolver.Resolve(context.Background(), graph); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	// Near-zero correlations drag the hybrid score below the acceptance
	// bar: 0.6*0.9 + 0.4*0.035 = 0.554.
	if edge.Status != domain.EdgeDeferred {
		t.Fatalf("status = %s, want still deferred over independent data", edge.Status)
	}
	if graph.Edge("rain", "wet_ground") != nil {
		t.Error("edge over independent data must not be accepted")
	}
	if !almostEqual(edge.Confidence, 0.554) {
		t.Errorf("confidence = %v, want 0.554", edge.Confidence)
	}
}

func TestResolveIdempotentWhenNothingDeferred(t *testing.T) {
	graph, _ := deferredGraph(t)
	oracle := llm.NewMockOracle()
	oracle.ReconcileResponse = &domain.Reconciliation{Verdict: domain.VerdictConfirm}
	resolver := NewResolver(oracle, DefaultConfig(), zap.NewNop())

	if _, err := resolver.Resolve(context.Background(), graph); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	calls := len(oracle.ReconcileCalls)
	if _, err := resolver.Resolve(context.Background(), graph); err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if len(oracle.ReconcileCalls) != calls {
		t.Errorf("second pass issued %d extra calls", len(oracle.ReconcileCalls)-calls)
	}
}

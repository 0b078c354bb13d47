package llm

import (
	"context"
	"sync"

	"github.com/causelab/causeway/internal/domain"
)

// MockOracle is a configurable knowledge oracle for testing. Set the
// response fields to control what each method returns. Safe for the
// engine's concurrent sampling.
type MockOracle struct {
	mu sync.Mutex

	ProposeRootsResponse   []domain.RootProposal
	ProposeRootsError      error
	ProposeEffectsResponse map[string][]domain.EffectProposal
	ProposeEffectsError    error
	ReconcileResponse      *domain.Reconciliation
	ReconcileError         error
	JudgePathResponse      *domain.PathJudgment
	JudgePathError         error

	// Call tracking for assertions
	ProposeRootsCalls   [][]domain.Variable
	ProposeEffectsCalls []string
	ReconcileCalls      []domain.ReconcileRequest
	JudgePathCalls      [][]domain.Variable
}

func NewMockOracle() *MockOracle {
	return &MockOracle{
		ProposeRootsResponse:   []domain.RootProposal{},
		ProposeEffectsResponse: map[string][]domain.EffectProposal{},
		ReconcileResponse:      &domain.Reconciliation{Verdict: domain.VerdictReject, Explanation: "mock verdict"},
		JudgePathResponse:      &domain.PathJudgment{Plausible: true, Plausibility: 0.8, Reasoning: "mock judgment"},
	}
}

var _ domain.KnowledgeOracle = (*MockOracle)(nil)

func (m *MockOracle) ProposeRoots(ctx context.Context, variables []domain.Variable) ([]domain.RootProposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProposeRootsCalls = append(m.ProposeRootsCalls, variables)
	if m.ProposeRootsError != nil {
		return nil, m.ProposeRootsError
	}
	return m.ProposeRootsResponse, nil
}

func (m *MockOracle) ProposeEffects(ctx context.Context, node domain.Variable, ectx domain.ExpansionContext) ([]domain.EffectProposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProposeEffectsCalls = append(m.ProposeEffectsCalls, node.Name)
	if m.ProposeEffectsError != nil {
		return nil, m.ProposeEffectsError
	}
	return m.ProposeEffectsResponse[node.Name], nil
}

func (m *MockOracle) Reconcile(ctx context.Context, req domain.ReconcileRequest) (*domain.Reconciliation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReconcileCalls = append(m.ReconcileCalls, req)
	if m.ReconcileError != nil {
		return nil, m.ReconcileError
	}
	return m.ReconcileResponse, nil
}

func (m *MockOracle) JudgePath(ctx context.Context, path []domain.Variable) (*domain.PathJudgment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.JudgePathCalls = append(m.JudgePathCalls, path)
	if m.JudgePathError != nil {
		return nil, m.JudgePathError
	}
	return m.JudgePathResponse, nil
}

// Reset clears all recorded calls and resets responses to defaults.
func (m *MockOracle) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProposeRootsResponse = []domain.RootProposal{}
	m.ProposeRootsError = nil
	m.ProposeEffectsResponse = map[string][]domain.EffectProposal{}
	m.ProposeEffectsError = nil
	m.ReconcileResponse = &domain.Reconciliation{Verdict: domain.VerdictReject, Explanation: "mock verdict"}
	m.ReconcileError = nil
	m.JudgePathResponse = &domain.PathJudgment{Plausible: true, Plausibility: 0.8, Reasoning: "mock judgment"}
	m.JudgePathError = nil
	m.ProposeRootsCalls = nil
	m.ProposeEffectsCalls = nil
	m.ReconcileCalls = nil
	m.JudgePathCalls = nil
}

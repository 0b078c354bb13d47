package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/causelab/causeway/internal/domain"
	"go.uber.org/zap"
)

type stubCompleter struct {
	response string
	err      error
	calls    int
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

// scriptedCompleter replays a fixed sequence of responses across attempts.
type scriptedCompleter struct {
	responses []string
	calls     int
}

func (s *scriptedCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	r := s.responses[s.calls]
	s.calls++
	return r, nil
}

func testOptions() Options {
	return Options{
		RequestsPerSecond: 1000,
		Burst:             1000,
		MaxRetries:        2,
		Backoff:           time.Millisecond,
	}
}

func TestProposeRootsParsesAndClamps(t *testing.T) {
	stub := &stubCompleter{response: "```json\n[{\"variable\":\"load\",\"confidence\":1.4,\"reasoning\":\"external driver\"}]\n```"}
	oracle := NewOracle(stub, testOptions(), zap.NewNop())

	proposals, err := oracle.ProposeRoots(context.Background(), []domain.Variable{{Name: "load"}})
	if err != nil {
		t.Fatalf("ProposeRoots: %v", err)
	}
	if len(proposals) != 1 {
		t.Fatalf("expected 1 proposal, got %d", len(proposals))
	}
	if proposals[0].Variable != "load" {
		t.Errorf("variable = %q", proposals[0].Variable)
	}
	if proposals[0].Confidence != 1.0 {
		t.Errorf("confidence not clamped: %v", proposals[0].Confidence)
	}
}

func TestProposeEffectsParsesArray(t *testing.T) {
	stub := &stubCompleter{response: `[{"target":"latency","confidence":0.85,"mechanism":"saturated workers"}]`}
	oracle := NewOracle(stub, testOptions(), zap.NewNop())

	node := domain.Variable{Name: "load", Description: "request volume"}
	proposals, err := oracle.ProposeEffects(context.Background(), node, domain.ExpansionContext{})
	if err != nil {
		t.Fatalf("ProposeEffects: %v", err)
	}
	if len(proposals) != 1 || proposals[0].Target != "latency" {
		t.Fatalf("unexpected proposals: %+v", proposals)
	}
	if proposals[0].Mechanism != "saturated workers" {
		t.Errorf("mechanism = %q", proposals[0].Mechanism)
	}
}

func TestReconcileUnknownVerdictFallsBackToReject(t *testing.T) {
	stub := &stubCompleter{response: `{"verdict":"MAYBE","confidence":0.7}`}
	oracle := NewOracle(stub, testOptions(), zap.NewNop())

	req := domain.ReconcileRequest{Edge: &domain.CausalEdge{
		Source: domain.Variable{Name: "a"},
		Target: domain.Variable{Name: "b"},
	}}
	rec, err := oracle.Reconcile(context.Background(), req)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if rec.Verdict != domain.VerdictReject {
		t.Errorf("verdict = %q, want REJECT fallback", rec.Verdict)
	}
}

func TestReconcileLowercaseVerdict(t *testing.T) {
	stub := &stubCompleter{response: `{"verdict":"confirm","confidence":0.9,"explanation":"suppressor variable"}`}
	oracle := NewOracle(stub, testOptions(), zap.NewNop())

	req := domain.ReconcileRequest{Edge: &domain.CausalEdge{
		Source: domain.Variable{Name: "a"},
		Target: domain.Variable{Name: "b"},
	}}
	rec, err := oracle.Reconcile(context.Background(), req)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if rec.Verdict != domain.VerdictConfirm {
		t.Errorf("verdict = %q, want CONFIRM", rec.Verdict)
	}
}

func TestCompleteRetriesThenUnavailable(t *testing.T) {
	stub := &stubCompleter{err: errors.New("connection refused")}
	oracle := NewOracle(stub, testOptions(), zap.NewNop())

	_, err := oracle.ProposeRoots(context.Background(), nil)
	if !errors.Is(err, domain.ErrOracleUnavailable) {
		t.Fatalf("expected ErrOracleUnavailable, got %v", err)
	}
	if stub.calls != 3 {
		t.Errorf("expected 3 attempts (1 + 2 retries), got %d", stub.calls)
	}
}

func TestMalformedResponseConsumesRetries(t *testing.T) {
	stub := &stubCompleter{response: "the likely roots are load and latency"}
	oracle := NewOracle(stub, testOptions(), zap.NewNop())

	_, err := oracle.ProposeRoots(context.Background(), []domain.Variable{{Name: "load"}})
	if !errors.Is(err, domain.ErrOracleUnavailable) {
		t.Fatalf("expected ErrOracleUnavailable for unparseable responses, got %v", err)
	}
	if stub.calls != 3 {
		t.Errorf("expected 3 attempts (1 + 2 retries), got %d", stub.calls)
	}
}

func TestMalformedResponseRetriedThenParsed(t *testing.T) {
	stub := &scriptedCompleter{responses: []string{
		"sure! here are the roots:",
		`[{"variable":"load","confidence":0.9,"reasoning":"external driver"}]`,
	}}
	oracle := NewOracle(stub, testOptions(), zap.NewNop())

	proposals, err := oracle.ProposeRoots(context.Background(), []domain.Variable{{Name: "load"}})
	if err != nil {
		t.Fatalf("ProposeRoots: %v", err)
	}
	if stub.calls != 2 {
		t.Errorf("expected the malformed response to cost one attempt, got %d calls", stub.calls)
	}
	if len(proposals) != 1 || proposals[0].Variable != "load" {
		t.Errorf("proposals = %+v", proposals)
	}
}

func TestJudgePathParsesJudgment(t *testing.T) {
	stub := &stubCompleter{response: `{"plausible":false,"plausibility":0.2,"reasoning":"no plausible mechanism"}`}
	oracle := NewOracle(stub, testOptions(), zap.NewNop())

	path := []domain.Variable{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	judgment, err := oracle.JudgePath(context.Background(), path)
	if err != nil {
		t.Fatalf("JudgePath: %v", err)
	}
	if judgment.Plausible {
		t.Error("expected implausible judgment")
	}
	if judgment.Plausibility != 0.2 {
		t.Errorf("plausibility = %v", judgment.Plausibility)
	}
}

func TestStripFences(t *testing.T) {
	cases := map[string]string{
		"```json\n[]\n```": "[]",
		"```\n{}\n```":     "{}",
		"  [1,2]  ":        "[1,2]",
	}
	for in, want := range cases {
		if got := stripFences(in); got != want {
			t.Errorf("stripFences(%q) = %q, want %q", in, got, want)
		}
	}
}

package service

import (
	"context"
	"fmt"

	"github.com/causelab/causeway/internal/domain"
	"go.uber.org/zap"
)

// Validator runs the five-test battery over a constructed graph. Validation
// reads the graph and never mutates it; running it twice over the same graph
// produces the same report.
type Validator struct {
	oracle   domain.KnowledgeOracle
	evidence domain.EvidenceOracle
	cfg      Config
	logger   *zap.Logger
}

func NewValidator(oracle domain.KnowledgeOracle, evidence domain.EvidenceOracle, cfg Config, logger *zap.Logger) *Validator {
	return &Validator{
		oracle:   oracle,
		evidence: evidence,
		cfg:      cfg,
		logger:   logger,
	}
}

// Validate produces a fresh report. A structural invariant violation is the
// one fatal outcome; everything else lands in the report or the warnings.
func (v *Validator) Validate(ctx context.Context, graph *domain.CausalGraph) (*domain.ValidationReport, []string, error) {
	report := domain.NewValidationReport(v.cfg.ScoreFloor)
	var warnings []string

	structural, err := v.testStructural(graph)
	if err != nil {
		return nil, warnings, err
	}
	report.Add(domain.TestStructural, structural)
	report.Add(domain.TestConfidence, v.testConfidence(graph))

	statistical, w := v.testStatistical(ctx, graph)
	warnings = append(warnings, w...)
	report.Add(domain.TestStatistical, statistical)

	logical, w, err := v.testLogical(ctx, graph)
	warnings = append(warnings, w...)
	if err != nil {
		return nil, warnings, err
	}
	report.Add(domain.TestLogical, logical)
	report.Add(domain.TestCompleteness, v.testCompleteness(graph))

	v.logger.Info("validation complete",
		zap.Bool("satisfied", report.Satisfied),
		zap.Int("violations", len(report.Issues())))
	return report, warnings, nil
}

// testStructural re-verifies acyclicity and endpoint membership. A cycle in
// the accepted subgraph means an earlier guard was bypassed, which is not
// repairable.
func (v *Validator) testStructural(graph *domain.CausalGraph) (domain.TestResult, error) {
	if err := graph.VerifyAcyclic(); err != nil {
		return domain.TestResult{}, err
	}

	var violations []domain.Violation
	vars := graph.VariableSet()
	for _, e := range graph.Edges() {
		if !vars.Contains(e.Source.Name) || !vars.Contains(e.Target.Name) {
			violations = append(violations, domain.Violation{
				Type:     "unknown_variable",
				Details:  fmt.Sprintf("edge %s references a variable outside the problem set", e),
				Severity: "error",
				Source:   e.Source.Name,
				Target:   e.Target.Name,
			})
		}
	}
	if vars.Len() > 0 && len(graph.Roots()) == 0 {
		violations = append(violations, domain.Violation{
			Type:     "no_root",
			Details:  "graph has no in-degree-zero variable",
			Severity: "error",
		})
	}

	isolated := 0
	if vars.Len() > 1 {
		for _, v := range vars.All() {
			if len(graph.Parents(v.Name)) == 0 && len(graph.Children(v.Name)) == 0 {
				isolated++
				violations = append(violations, domain.Violation{
					Type:     "isolated_variable",
					Details:  fmt.Sprintf("%s participates in no edge", v.Name),
					Severity: "warning",
					Target:   v.Name,
				})
			}
		}
	}

	score := 1.0
	if vars.Len() > 1 {
		score = 1.0 - float64(isolated)/float64(vars.Len())
	}
	for _, viol := range violations {
		if viol.Severity == "error" {
			score = 0
			break
		}
	}
	return domain.TestResult{Passed: len(violations) == 0, Score: score, Violations: violations}, nil
}

// testConfidence scores the fraction of accepted edges above the minimum
// confidence bar.
func (v *Validator) testConfidence(graph *domain.CausalGraph) domain.TestResult {
	edges := graph.Edges()
	if len(edges) == 0 {
		return domain.TestResult{Passed: true, Score: 1.0}
	}
	var violations []domain.Violation
	for _, e := range edges {
		if e.Confidence < v.cfg.MinEdgeConfidence {
			violations = append(violations, domain.Violation{
				Type:     "low_confidence",
				Details:  fmt.Sprintf("edge %s holds confidence %.2f, below the %.2f minimum", e, e.Confidence, v.cfg.MinEdgeConfidence),
				Severity: "warning",
				Source:   e.Source.Name,
				Target:   e.Target.Name,
			})
		}
	}
	score := 1.0 - float64(len(violations))/float64(len(edges))
	return domain.TestResult{Passed: len(violations) == 0, Score: score, Violations: violations}
}

// testStatistical runs conditional-independence checks on a bounded sample
// of accepted edges, conditioning each on the target's other parents. With
// no evidence oracle wired the test passes vacuously.
func (v *Validator) testStatistical(ctx context.Context, graph *domain.CausalGraph) (domain.TestResult, []string) {
	if v.evidence == nil {
		return domain.TestResult{Passed: true, Score: 1.0}, nil
	}
	edges := graph.Edges()
	if len(edges) == 0 {
		return domain.TestResult{Passed: true, Score: 1.0}, nil
	}
	if len(edges) > v.cfg.MaxStatEdges {
		edges = edges[:v.cfg.MaxStatEdges]
	}

	var warnings []string
	var violations []domain.Violation
	tested := 0
	for _, e := range edges {
		conditioning := otherParents(graph, e.Target.Name, e.Source.Name)
		profile, err := v.evidence.ComputeProfile(ctx, e.Source.Name, e.Target.Name, conditioning)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("statistical check unavailable for %s", e))
			continue
		}
		ci := profile.Signal(domain.SignalCondIndependence)
		if !ci.Available || ci.PValue == nil {
			continue
		}
		tested++
		if *ci.PValue > v.cfg.SignificanceLevel {
			violations = append(violations, domain.Violation{
				Type:     "conditional_independence",
				Details:  fmt.Sprintf("%s appears independent of %s given its other parents", e.Source.Name, e.Target.Name),
				Severity: "error",
				Source:   e.Source.Name,
				Target:   e.Target.Name,
				PValue:   ci.PValue,
			})
		}
	}
	if tested == 0 {
		return domain.TestResult{Passed: true, Score: 1.0}, warnings
	}
	score := 1.0 - float64(len(violations))/float64(tested)
	return domain.TestResult{Passed: len(violations) == 0, Score: score, Violations: violations}, warnings
}

// testLogical asks the knowledge oracle whether multi-hop causal chains
// remain plausible end to end. The score is the mean plausibility over
// judged paths.
func (v *Validator) testLogical(ctx context.Context, graph *domain.CausalGraph) (domain.TestResult, []string, error) {
	paths := graph.Paths(v.cfg.MaxPathLen, v.cfg.MaxPaths)
	if len(paths) == 0 {
		return domain.TestResult{Passed: true, Score: 1.0}, nil, nil
	}

	var warnings []string
	var violations []domain.Violation
	total := 0.0
	judged := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return domain.TestResult{}, warnings, err
		}
		judgment, err := v.oracle.JudgePath(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return domain.TestResult{}, warnings, ctx.Err()
			}
			warnings = append(warnings, fmt.Sprintf("plausibility check unavailable for path %s", pathString(path)))
			continue
		}
		judged++
		total += clamp01(judgment.Plausibility)
		if !judgment.Plausible {
			violations = append(violations, domain.Violation{
				Type:     "implausible_path",
				Details:  fmt.Sprintf("path %s judged implausible: %s", pathString(path), judgment.Reasoning),
				Severity: "warning",
				Source:   path[0].Name,
				Target:   path[len(path)-1].Name,
			})
		}
	}
	if judged == 0 {
		return domain.TestResult{Passed: true, Score: 1.0}, warnings, nil
	}
	return domain.TestResult{Passed: len(violations) == 0, Score: total / float64(judged), Violations: violations}, warnings, nil
}

// testCompleteness scores the fraction of variables reachable from the
// identified roots.
func (v *Validator) testCompleteness(graph *domain.CausalGraph) domain.TestResult {
	vars := graph.Variables()
	if len(vars) == 0 {
		return domain.TestResult{Passed: true, Score: 1.0}
	}
	roots := graph.Roots()
	reachable := make(map[string]bool, len(vars))
	for _, r := range roots {
		reachable[r.Name] = true
		for _, other := range vars {
			if r.Name != other.Name && graph.HasPath(r.Name, other.Name) {
				reachable[other.Name] = true
			}
		}
	}

	var violations []domain.Violation
	for _, vr := range vars {
		if !reachable[vr.Name] {
			violations = append(violations, domain.Violation{
				Type:     "unreachable_variable",
				Details:  fmt.Sprintf("%s is not reachable from any root cause", vr.Name),
				Severity: "warning",
				Target:   vr.Name,
			})
		}
	}
	score := float64(len(vars)-len(violations)) / float64(len(vars))
	return domain.TestResult{Passed: len(violations) == 0, Score: score, Violations: violations}
}

func otherParents(graph *domain.CausalGraph, target, exclude string) []string {
	var out []string
	for _, p := range graph.Parents(target) {
		if p.Name != exclude {
			out = append(out, p.Name)
		}
	}
	return out
}

func pathString(path []domain.Variable) string {
	s := ""
	for i, v := range path {
		if i > 0 {
			s += " -> "
		}
		s += v.Name
	}
	return s
}

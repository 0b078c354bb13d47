package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/causelab/causeway/internal/domain"
	"go.uber.org/zap"
)

// Engine runs the full discovery pipeline: graph construction, conflict
// resolution, then a bounded validate-repair loop.
type Engine struct {
	builder   *Builder
	resolver  *Resolver
	validator *Validator
	cfg       Config
	logger    *zap.Logger
}

func NewEngine(oracle domain.KnowledgeOracle, evidence domain.EvidenceOracle, cfg Config, logger *zap.Logger) *Engine {
	return &Engine{
		builder:   NewBuilder(oracle, evidence, cfg, logger),
		resolver:  NewResolver(oracle, cfg, logger),
		validator: NewValidator(oracle, evidence, cfg, logger),
		cfg:       cfg,
		logger:    logger,
	}
}

// Discover builds and refines a causal graph over the variable set.
// Cancellation returns the best graph so far with RunPartial; exhausting the
// iteration budget returns RunDegraded. The only fatal outcomes are
// invariant violations and non-transient oracle transport errors.
func (e *Engine) Discover(ctx context.Context, vars *domain.VariableSet) (*domain.DiscoveryResult, error) {
	graph, warnings, err := e.builder.Build(ctx, vars)
	if err != nil {
		if isCancellation(err) && graph != nil {
			return e.partial(graph, warnings, 0), nil
		}
		return nil, err
	}

	if e.cfg.ResolveConflicts {
		resolveWarnings, err := e.resolver.Resolve(ctx, graph)
		warnings = append(warnings, resolveWarnings...)
		if err != nil {
			if isCancellation(err) {
				return e.partial(graph, warnings, 0), nil
			}
			return nil, err
		}
	}

	var report *domain.ValidationReport
	iterations := 0
	for iterations < e.cfg.MaxIterations {
		iterations++

		var validateWarnings []string
		report, validateWarnings, err = e.validator.Validate(ctx, graph)
		warnings = append(warnings, validateWarnings...)
		if err != nil {
			if isCancellation(err) {
				return e.partial(graph, warnings, iterations), nil
			}
			return nil, err
		}

		if report.Satisfied {
			e.logger.Info("discovery satisfied", zap.Int("iterations", iterations), zap.Int("edges", graph.EdgeCount()))
			return &domain.DiscoveryResult{
				Graph:      graph,
				Snapshot:   graph.Snapshot(),
				Validation: report,
				Status:     domain.RunSatisfied,
				Iterations: iterations,
				Warnings:   warnings,
			}, nil
		}
		if iterations == e.cfg.MaxIterations {
			break
		}

		repaired := e.repair(graph, report)
		warnings = append(warnings, repaired...)
		e.logger.Info("repair pass applied",
			zap.Int("iteration", iterations),
			zap.Int("actions", len(repaired)),
			zap.Int("edges", graph.EdgeCount()))
	}

	e.logger.Warn("iteration budget exhausted with validation unsatisfied", zap.Int("iterations", iterations))
	return &domain.DiscoveryResult{
		Graph:      graph,
		Snapshot:   graph.Snapshot(),
		Validation: report,
		Status:     domain.RunDegraded,
		Iterations: iterations,
		Warnings:   warnings,
	}, nil
}

// repair applies the two structural remedies the validator's findings
// support: dropping accepted edges that fell below the confidence floor,
// then penalizing edges flagged by the conditional-independence check so a
// later pass can drop them if nothing rehabilitates the signal.
func (e *Engine) repair(graph *domain.CausalGraph, report *domain.ValidationReport) []string {
	var actions []string

	for _, edge := range graph.Edges() {
		if edge.Confidence < e.cfg.MinEdgeConfidence {
			if graph.Downgrade(edge.Source.Name, edge.Target.Name, "dropped during repair: confidence below minimum") {
				actions = append(actions, fmt.Sprintf("dropped %s (confidence %.2f)", edge, edge.Confidence))
			}
		}
	}

	if stat, ok := report.Tests[domain.TestStatistical]; ok {
		for _, violation := range stat.Violations {
			edge := graph.Edge(violation.Source, violation.Target)
			if edge == nil {
				continue
			}
			before := edge.Confidence
			edge.Confidence = clamp01(edge.Confidence - e.cfg.ViolationPenalty)
			actions = append(actions, fmt.Sprintf("penalized %s (%.2f -> %.2f)", edge, before, edge.Confidence))
		}
	}
	return actions
}

func (e *Engine) partial(graph *domain.CausalGraph, warnings []string, iterations int) *domain.DiscoveryResult {
	warnings = append(warnings, "run cancelled; returning best graph so far")
	return &domain.DiscoveryResult{
		Graph:      graph,
		Snapshot:   graph.Snapshot(),
		Validation: nil,
		Status:     domain.RunPartial,
		Iterations: iterations,
		Warnings:   warnings,
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

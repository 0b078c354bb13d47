package service

import (
	"context"
	"fmt"

	"github.com/causelab/causeway/internal/domain"
	"go.uber.org/zap"
)

// Resolver revisits deferred edges, presenting the conflicting evidence back
// to the knowledge oracle and applying its verdict through the decision
// policy. Resolution never loosens the acyclicity invariant: a confirmed
// edge that would now close a cycle stays deferred and is surfaced as
// irreconcilable.
type Resolver struct {
	oracle domain.KnowledgeOracle
	policy *Policy
	cfg    Config
	logger *zap.Logger
}

func NewResolver(oracle domain.KnowledgeOracle, cfg Config, logger *zap.Logger) *Resolver {
	return &Resolver{
		oracle: oracle,
		policy: NewPolicy(cfg),
		cfg:    cfg,
		logger: logger,
	}
}

// Resolve walks the deferred ledger once. It is idempotent: entries already
// promoted or rejected by an earlier pass are skipped, and an edge left
// deferred by one pass reaches the same state on a re-run against the same
// oracle.
func (r *Resolver) Resolve(ctx context.Context, graph *domain.CausalGraph) ([]string, error) {
	var warnings []string

	for _, entry := range graph.Deferred() {
		if err := ctx.Err(); err != nil {
			return warnings, err
		}
		edge := entry.Edge
		if edge.Status != domain.EdgeDeferred {
			continue
		}

		req := domain.ReconcileRequest{
			Edge:         edge,
			Reason:       entry.Reason,
			Narrative:    edge.Evidence.Narrative(),
			GraphSummary: graph.Summary(),
		}
		rec, err := r.oracle.Reconcile(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return warnings, ctx.Err()
			}
			warnings = append(warnings, fmt.Sprintf("reconciliation unavailable for %s; edge left deferred", edge))
			continue
		}

		r.logger.Debug("reconciliation verdict",
			zap.String("edge", edge.String()),
			zap.String("verdict", string(rec.Verdict)),
			zap.Float64("confidence", rec.Confidence))

		switch rec.Verdict {
		case domain.VerdictReject:
			reason := rec.Explanation
			if reason == "" {
				reason = "withdrawn on reconciliation"
			}
			if rec.Alternative != "" {
				edge.Notes = rec.Alternative
			}
			graph.Reject(edge, reason)

		case domain.VerdictConfirm:
			r.reattempt(graph, entry, edge.KnowledgeConfidence, &warnings)

		case domain.VerdictModify:
			if rec.Mechanism != "" {
				if edge.Mechanism != "" && edge.Mechanism != rec.Mechanism {
					edge.Alternatives = append(edge.Alternatives, edge.Mechanism)
				}
				edge.Mechanism = rec.Mechanism
			}
			knowledge := edge.KnowledgeConfidence
			if rec.Confidence > 0 {
				knowledge = clamp01(rec.Confidence)
				edge.KnowledgeConfidence = knowledge
			}
			r.reattempt(graph, entry, knowledge, &warnings)

		default:
			warnings = append(warnings, fmt.Sprintf("unrecognized reconciliation verdict %q for %s; edge left deferred", rec.Verdict, edge))
		}
	}

	return warnings, nil
}

// reattempt replays the decision policy for a reconciled edge with the
// contradiction rule suppressed: the oracle has already seen the conflicting
// evidence and stood by the claim, so only confidence and acyclicity decide.
// An edge the graph can no longer admit without a cycle is not demoted to
// rejected; it stays in the deferred ledger marked irreconcilable.
func (r *Resolver) reattempt(graph *domain.CausalGraph, entry *domain.LedgerEntry, knowledge float64, warnings *[]string) {
	edge := entry.Edge
	cStat, statAvailable := StatisticalConfidence(edge.Evidence)
	hybrid := HybridConfidence(knowledge, cStat, statAvailable, r.cfg.Alpha)
	edge.Confidence = hybrid

	if graph.WouldCreateCycle(edge.Source.Name, edge.Target.Name) {
		edge.Status = domain.EdgeDeferred
		entry.Reason = "irreconcilable: would create cycle"
		return
	}

	decision := r.policy.Evaluate(DecisionInput{
		Knowledge:         knowledge,
		Hybrid:            hybrid,
		Evidence:          edge.Evidence,
		SkipContradiction: true,
	})
	switch decision.Action {
	case ActionAccept:
		if err := graph.Accept(edge); err != nil {
			edge.Status = domain.EdgeDeferred
			entry.Reason = "irreconcilable: conflicts with the accepted graph"
			*warnings = append(*warnings, fmt.Sprintf("confirmed edge %s still conflicts with the graph: %v", edge, err))
		}
	default:
		// Still below the acceptance bar.
		edge.Status = domain.EdgeDeferred
		entry.Reason = decision.Reason
	}
}

package service

import (
	"container/heap"
	"context"
	"errors"
	"fmt"

	"github.com/causelab/causeway/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// rootSeedThreshold: roots below this knowledge confidence are recorded but
// not used to seed the expansion queue.
const rootSeedThreshold = 0.5

type nodeStatus int

const (
	nodeUnvisited nodeStatus = iota
	nodeQueued
	nodeExpanded
)

// pqItem is one entry in the expansion queue. seq breaks confidence ties by
// insertion order so expansion is deterministic.
type pqItem struct {
	name       string
	confidence float64
	seq        int
}

type nodeQueue []*pqItem

func (q nodeQueue) Len() int { return len(q) }
func (q nodeQueue) Less(i, j int) bool {
	if q[i].confidence != q[j].confidence {
		return q[i].confidence > q[j].confidence
	}
	return q[i].seq < q[j].seq
}
func (q nodeQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x any)        { *q = append(*q, x.(*pqItem)) }
func (q *nodeQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// Builder incrementally constructs a DAG via confidence-ordered expansion,
// fusing knowledge-oracle self-consistency with evidence signals through
// the decision policy.
type Builder struct {
	oracle   domain.KnowledgeOracle
	evidence domain.EvidenceOracle
	policy   *Policy
	cfg      Config
	logger   *zap.Logger
}

func NewBuilder(oracle domain.KnowledgeOracle, evidence domain.EvidenceOracle, cfg Config, logger *zap.Logger) *Builder {
	return &Builder{
		oracle:   oracle,
		evidence: evidence,
		policy:   NewPolicy(cfg),
		cfg:      cfg,
		logger:   logger,
	}
}

// Build runs one full expansion over the variable set. Oracle failures
// degrade to empty proposals and surface as warnings; the only error
// returns are caller cancellation and invariant violations.
func (b *Builder) Build(ctx context.Context, vars *domain.VariableSet) (*domain.CausalGraph, []string, error) {
	graph := domain.NewCausalGraph(vars)
	status := make(map[string]nodeStatus, vars.Len())
	var warnings []string

	pq := &nodeQueue{}
	heap.Init(pq)
	seq := 0

	roots, rootWarnings := b.sampleRoots(ctx, vars)
	warnings = append(warnings, rootWarnings...)
	if err := ctx.Err(); err != nil {
		return graph, warnings, err
	}

	for _, rc := range roots {
		graph.MarkRoot(rc.name, rc.reasoning)
		if rc.confidence > rootSeedThreshold {
			heap.Push(pq, &pqItem{name: rc.name, confidence: rc.confidence, seq: seq})
			seq++
			status[rc.name] = nodeQueued
		}
	}
	if pq.Len() == 0 {
		// No confident roots; seed from the front of the variable set so
		// discovery still makes progress.
		for i, v := range vars.All() {
			if i >= 2 {
				break
			}
			heap.Push(pq, &pqItem{name: v.Name, confidence: 0, seq: seq})
			seq++
			status[v.Name] = nodeQueued
			graph.MarkRoot(v.Name, "fallback: no confident roots identified")
		}
		warnings = append(warnings, "no confident root causes found; seeded expansion from the variable set")
	}

	b.logger.Info("expanding graph", zap.Int("seed_nodes", pq.Len()), zap.Int("variables", vars.Len()))

	for pq.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return graph, warnings, err
		}

		item := heap.Pop(pq).(*pqItem)
		if status[item.name] == nodeExpanded {
			continue
		}
		node, ok := vars.Lookup(item.name)
		if !ok {
			status[item.name] = nodeExpanded
			continue
		}

		ectx := domain.ExpansionContext{
			Remaining:    b.remaining(vars, status, node.Name),
			GraphSummary: graph.Summary(),
		}
		candidates, sampleWarnings := b.sampleEffects(ctx, node, ectx)
		warnings = append(warnings, sampleWarnings...)

		for _, c := range candidates {
			target, ok := vars.Lookup(c.target)
			if !ok || target.Name == node.Name {
				continue
			}
			if graph.Edge(node.Name, target.Name) != nil || graph.IsRejected(node.Name, target.Name) {
				continue
			}

			edge := &domain.CausalEdge{
				Source:              node,
				Target:              target,
				Mechanism:           c.mechanism,
				Alternatives:        c.alternatives,
				KnowledgeConfidence: c.knowledge,
				Status:              domain.EdgeProposed,
			}

			in := DecisionInput{
				Knowledge:    c.knowledge,
				CreatesCycle: graph.WouldCreateCycle(node.Name, target.Name),
			}
			if !in.CreatesCycle && b.evidence != nil && c.knowledge >= b.cfg.DeferBelow {
				profile, err := b.evidence.ComputeProfile(ctx, node.Name, target.Name, nil)
				if err != nil {
					warnings = append(warnings, fmt.Sprintf("evidence unavailable for %s -> %s", node.Name, target.Name))
				} else {
					edge.Evidence = profile
					in.Evidence = profile
				}
			}

			cStat, statAvailable := StatisticalConfidence(edge.Evidence)
			in.Hybrid = HybridConfidence(c.knowledge, cStat, statAvailable, b.cfg.Alpha)
			edge.Confidence = in.Hybrid

			decision := b.policy.Evaluate(in)
			b.logger.Debug("edge decision",
				zap.String("source", node.Name),
				zap.String("target", target.Name),
				zap.String("action", string(decision.Action)),
				zap.String("rule", decision.Rule),
				zap.Float64("knowledge", c.knowledge),
				zap.Float64("hybrid", in.Hybrid))

			switch decision.Action {
			case ActionAccept:
				if err := graph.Accept(edge); err != nil {
					if errors.Is(err, domain.ErrCycle) {
						graph.Reject(edge, "would create cycle")
					}
					continue
				}
				if status[target.Name] == nodeUnvisited {
					heap.Push(pq, &pqItem{name: target.Name, confidence: edge.Confidence, seq: seq})
					seq++
					status[target.Name] = nodeQueued
				}
			case ActionDefer:
				graph.Defer(edge, decision.Reason)
			case ActionReject:
				graph.Reject(edge, decision.Reason)
			}
		}

		status[item.name] = nodeExpanded
	}

	if err := graph.VerifyAcyclic(); err != nil {
		return nil, warnings, err
	}

	b.logger.Info("graph construction complete",
		zap.Int("edges", graph.EdgeCount()),
		zap.Int("deferred", len(graph.Deferred())),
		zap.Int("rejected", len(graph.Rejected())))
	return graph, warnings, nil
}

func (b *Builder) remaining(vars *domain.VariableSet, status map[string]nodeStatus, current string) []domain.Variable {
	var out []domain.Variable
	for _, v := range vars.All() {
		if v.Name == current || status[v.Name] == nodeExpanded {
			continue
		}
		out = append(out, v)
	}
	return out
}

type rootCandidate struct {
	name       string
	confidence float64
	reasoning  string
}

// sampleRoots asks the oracle for root causes k times and fuses the
// samples. Candidates come back ordered by first appearance so repeated
// runs against a deterministic oracle are identical.
func (b *Builder) sampleRoots(ctx context.Context, vars *domain.VariableSet) ([]rootCandidate, []string) {
	k := b.cfg.Samples
	results := make([][]domain.RootProposal, k)
	failures := make([]error, k)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < k; i++ {
		i := i
		g.Go(func() error {
			props, err := b.oracle.ProposeRoots(gctx, vars.All())
			if err != nil {
				failures[i] = err
				return nil
			}
			results[i] = props
			return nil
		})
	}
	_ = g.Wait()

	usable := 0
	for i := 0; i < k; i++ {
		if failures[i] == nil {
			usable++
		}
	}
	var warnings []string
	if usable == 0 {
		warnings = append(warnings, "knowledge oracle unavailable for root identification")
		return nil, warnings
	}

	// Order-independent reduction: per-candidate samples indexed by slot.
	var order []string
	perVar := make(map[string][]Sample)
	reasons := make(map[string]string)
	for i := 0; i < k; i++ {
		if failures[i] != nil {
			continue
		}
		seen := make(map[string]bool)
		for _, p := range results[i] {
			v, ok := vars.Lookup(p.Variable)
			if !ok || seen[v.Name] {
				continue
			}
			seen[v.Name] = true
			if _, known := perVar[v.Name]; !known {
				order = append(order, v.Name)
			}
			perVar[v.Name] = append(perVar[v.Name], Sample{Proposed: true, Confidence: p.Confidence})
			if reasons[v.Name] == "" && p.Reasoning != "" {
				reasons[v.Name] = p.Reasoning
			}
		}
	}

	out := make([]rootCandidate, 0, len(order))
	for _, name := range order {
		samples := perVar[name]
		// Pad with non-proposing samples so frequency reflects all usable calls.
		for len(samples) < usable {
			samples = append(samples, Sample{})
		}
		reasoning := reasons[name]
		if reasoning == "" {
			reasoning = fmt.Sprintf("proposed as root in %d/%d samples", len(perVar[name]), usable)
		}
		out = append(out, rootCandidate{
			name:       name,
			confidence: KnowledgeConfidence(samples),
			reasoning:  reasoning,
		})
	}
	return out, warnings
}

type effectCandidate struct {
	target       string
	knowledge    float64
	mechanism    string
	alternatives []string
}

// sampleEffects asks the oracle for node's direct effects k times and fuses
// the samples into per-target candidates.
func (b *Builder) sampleEffects(ctx context.Context, node domain.Variable, ectx domain.ExpansionContext) ([]effectCandidate, []string) {
	k := b.cfg.Samples
	results := make([][]domain.EffectProposal, k)
	failures := make([]error, k)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < k; i++ {
		i := i
		g.Go(func() error {
			props, err := b.oracle.ProposeEffects(gctx, node, ectx)
			if err != nil {
				failures[i] = err
				return nil
			}
			results[i] = props
			return nil
		})
	}
	_ = g.Wait()

	usable := 0
	for i := 0; i < k; i++ {
		if failures[i] == nil {
			usable++
		}
	}
	var warnings []string
	if usable == 0 {
		warnings = append(warnings, fmt.Sprintf("knowledge oracle unavailable expanding %s; node expanded with no proposals", node.Name))
		return nil, warnings
	}

	var order []string
	perTarget := make(map[string][]Sample)
	mechanisms := make(map[string][]string)
	for i := 0; i < k; i++ {
		if failures[i] != nil {
			continue
		}
		seen := make(map[string]bool)
		for _, p := range results[i] {
			if seen[p.Target] {
				continue
			}
			seen[p.Target] = true
			if _, known := perTarget[p.Target]; !known {
				order = append(order, p.Target)
			}
			perTarget[p.Target] = append(perTarget[p.Target], Sample{Proposed: true, Confidence: p.Confidence})
			mechanisms[p.Target] = append(mechanisms[p.Target], p.Mechanism)
		}
	}

	out := make([]effectCandidate, 0, len(order))
	for _, target := range order {
		samples := perTarget[target]
		for len(samples) < usable {
			samples = append(samples, Sample{})
		}
		mechanism, alternatives := consensusMechanism(mechanisms[target])
		out = append(out, effectCandidate{
			target:       target,
			knowledge:    KnowledgeConfidence(samples),
			mechanism:    mechanism,
			alternatives: alternatives,
		})
	}
	return out, warnings
}

// consensusMechanism picks the most frequent mechanism text (first seen on
// ties) and returns up to three distinct others as alternatives.
func consensusMechanism(all []string) (string, []string) {
	if len(all) == 0 {
		return "", nil
	}
	counts := make(map[string]int)
	var order []string
	for _, m := range all {
		if m == "" {
			continue
		}
		if counts[m] == 0 {
			order = append(order, m)
		}
		counts[m]++
	}
	if len(order) == 0 {
		return "", nil
	}
	best := order[0]
	for _, m := range order {
		if counts[m] > counts[best] {
			best = m
		}
	}
	var alternatives []string
	for _, m := range order {
		if m != best && len(alternatives) < 3 {
			alternatives = append(alternatives, m)
		}
	}
	return best, alternatives
}

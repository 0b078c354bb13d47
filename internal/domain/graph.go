package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrCycle marks an insertion that would close a directed cycle. This is a
// normal decision outcome, not a failure.
var ErrCycle = errors.New("edge would create cycle")

// ErrDuplicateEdge marks an insertion for a pair that is already accepted.
var ErrDuplicateEdge = errors.New("edge already accepted")

// CausalGraph is a DAG over a variable set plus the ledger of deferred and
// rejected candidate edges. The accepted-edge subgraph is acyclic by
// construction: every Accept runs a reachability check first. Ledger edges
// never contribute to reachability or path queries.
//
// CausalGraph is not safe for concurrent mutation; callers parallelizing
// oracle work must serialize Accept/Downgrade through a single writer.
type CausalGraph struct {
	vars     *VariableSet
	edges    []*CausalEdge
	index    map[string]*CausalEdge
	children map[string][]string

	deferred []*LedgerEntry
	rejected []*LedgerEntry

	rootReasons map[string]string
}

func NewCausalGraph(vars *VariableSet) *CausalGraph {
	return &CausalGraph{
		vars:        vars,
		index:       make(map[string]*CausalEdge),
		children:    make(map[string][]string),
		rootReasons: make(map[string]string),
	}
}

func (g *CausalGraph) Variables() []Variable { return g.vars.All() }

func (g *CausalGraph) VariableSet() *VariableSet { return g.vars }

// Edges returns the accepted edges in insertion order.
func (g *CausalGraph) Edges() []*CausalEdge {
	out := make([]*CausalEdge, len(g.edges))
	copy(out, g.edges)
	return out
}

func (g *CausalGraph) EdgeCount() int { return len(g.edges) }

func (g *CausalGraph) Edge(source, target string) *CausalEdge {
	return g.index[EdgeKey(source, target)]
}

// Accept inserts an edge into the accepted subgraph. Returns ErrCycle when
// the insertion would close a cycle and ErrDuplicateEdge when the pair is
// already accepted; both leave the graph unchanged. A successful accept
// removes any ledger entry for the same pair so the pair holds exactly one
// status.
func (g *CausalGraph) Accept(edge *CausalEdge) error {
	key := edge.Key()
	if _, ok := g.index[key]; ok {
		return ErrDuplicateEdge
	}
	if g.WouldCreateCycle(edge.Source.Name, edge.Target.Name) {
		return ErrCycle
	}

	edge.Status = EdgeAccepted
	g.edges = append(g.edges, edge)
	g.index[key] = edge
	g.children[edge.Source.Name] = append(g.children[edge.Source.Name], edge.Target.Name)
	g.dropLedger(key)
	return nil
}

// Defer records a candidate edge in the deferred ledger.
func (g *CausalGraph) Defer(edge *CausalEdge, reason string) {
	edge.Status = EdgeDeferred
	g.deferred = append(g.deferred, &LedgerEntry{Edge: edge, Reason: reason})
}

// Reject records a candidate edge in the rejected ledger. Rejection is
// permanent: repair and later iterations never re-add a rejected pair.
func (g *CausalGraph) Reject(edge *CausalEdge, reason string) {
	g.dropLedger(edge.Key())
	edge.Status = EdgeRejected
	g.rejected = append(g.rejected, &LedgerEntry{Edge: edge, Reason: reason})
}

// Downgrade removes an accepted edge and records it as rejected. Used by
// the repair pass; reachability is rebuilt from the surviving edges.
func (g *CausalGraph) Downgrade(source, target, reason string) bool {
	key := EdgeKey(source, target)
	edge, ok := g.index[key]
	if !ok {
		return false
	}
	delete(g.index, key)
	for i, e := range g.edges {
		if e == edge {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			break
		}
	}
	g.rebuildChildren()
	edge.Status = EdgeRejected
	g.rejected = append(g.rejected, &LedgerEntry{Edge: edge, Reason: reason})
	return true
}

func (g *CausalGraph) rebuildChildren() {
	g.children = make(map[string][]string)
	for _, e := range g.edges {
		g.children[e.Source.Name] = append(g.children[e.Source.Name], e.Target.Name)
	}
}

func (g *CausalGraph) dropLedger(key string) {
	for i, le := range g.deferred {
		if le.Edge.Key() == key {
			g.deferred = append(g.deferred[:i], g.deferred[i+1:]...)
			return
		}
	}
}

// Deferred returns the deferred ledger in insertion order.
func (g *CausalGraph) Deferred() []*LedgerEntry {
	out := make([]*LedgerEntry, len(g.deferred))
	copy(out, g.deferred)
	return out
}

func (g *CausalGraph) Rejected() []*LedgerEntry {
	out := make([]*LedgerEntry, len(g.rejected))
	copy(out, g.rejected)
	return out
}

// IsRejected reports whether the pair sits in the rejected ledger.
func (g *CausalGraph) IsRejected(source, target string) bool {
	key := EdgeKey(source, target)
	for _, le := range g.rejected {
		if le.Edge.Key() == key {
			return true
		}
	}
	return false
}

func (g *CausalGraph) MarkRoot(name, reasoning string) {
	g.rootReasons[name] = reasoning
}

func (g *CausalGraph) RootReason(name string) string {
	return g.rootReasons[name]
}

// Roots returns connected variables with in-degree zero, in variable-set
// order for determinism.
func (g *CausalGraph) Roots() []Variable {
	inDegree := make(map[string]int)
	connected := make(map[string]bool)
	for _, e := range g.edges {
		inDegree[e.Target.Name]++
		connected[e.Source.Name] = true
		connected[e.Target.Name] = true
	}
	var roots []Variable
	for _, v := range g.vars.All() {
		if connected[v.Name] && inDegree[v.Name] == 0 {
			roots = append(roots, v)
		}
	}
	return roots
}

func (g *CausalGraph) Parents(name string) []Variable {
	var out []Variable
	for _, e := range g.edges {
		if e.Target.Name == name {
			out = append(out, e.Source)
		}
	}
	return out
}

func (g *CausalGraph) Children(name string) []Variable {
	var out []Variable
	for _, e := range g.edges {
		if e.Source.Name == name {
			out = append(out, e.Target)
		}
	}
	return out
}

// HasPath reports reachability over accepted edges only.
func (g *CausalGraph) HasPath(source, target string) bool {
	if source == target {
		return true
	}
	seen := map[string]bool{source: true}
	stack := []string{source}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range g.children[n] {
			if c == target {
				return true
			}
			if !seen[c] {
				seen[c] = true
				stack = append(stack, c)
			}
		}
	}
	return false
}

// WouldCreateCycle reports whether accepting source->target closes a cycle,
// i.e. whether source is already reachable from target.
func (g *CausalGraph) WouldCreateCycle(source, target string) bool {
	return g.HasPath(target, source)
}

// VerifyAcyclic is the defensive re-check: a cycle here means an insertion
// bypassed Accept, which is an invariant violation and fatal to the run.
func (g *CausalGraph) VerifyAcyclic() error {
	const (
		white = 0
		grey  = 1
		black = 2
	)
	color := make(map[string]int)
	var visit func(n string) bool
	visit = func(n string) bool {
		color[n] = grey
		for _, c := range g.children[n] {
			switch color[c] {
			case grey:
				return false
			case white:
				if !visit(c) {
					return false
				}
			}
		}
		color[n] = black
		return true
	}
	for n := range g.children {
		if color[n] == white && !visit(n) {
			return fmt.Errorf("%w: accepted subgraph contains a directed cycle through %q", ErrInvariantViolation, n)
		}
	}
	return nil
}

// Paths enumerates directed paths of length >= 2 edges over the accepted
// subgraph, up to maxLen edges and at most limit paths. Enumeration order
// is deterministic: sources in variable-set order, children in insertion
// order.
func (g *CausalGraph) Paths(maxLen, limit int) [][]Variable {
	var paths [][]Variable
	var walk func(path []string)
	walk = func(path []string) {
		if len(paths) >= limit {
			return
		}
		last := path[len(path)-1]
		if len(path) >= 3 {
			vars := make([]Variable, len(path))
			for i, n := range path {
				vars[i], _ = g.vars.Lookup(n)
			}
			paths = append(paths, vars)
			if len(paths) >= limit {
				return
			}
		}
		if len(path) > maxLen {
			return
		}
		for _, c := range g.children[last] {
			onPath := false
			for _, p := range path {
				if p == c {
					onPath = true
					break
				}
			}
			if !onPath {
				walk(append(path, c))
			}
		}
	}
	for _, v := range g.vars.All() {
		walk([]string{v.Name})
		if len(paths) >= limit {
			break
		}
	}
	return paths
}

// MeanConfidence averages accepted-edge confidence; 0 for an empty graph.
func (g *CausalGraph) MeanConfidence() float64 {
	if len(g.edges) == 0 {
		return 0
	}
	var sum float64
	for _, e := range g.edges {
		sum += e.Confidence
	}
	return sum / float64(len(g.edges))
}

// Summary renders accepted edges as context for oracle prompts.
func (g *CausalGraph) Summary() string {
	if len(g.edges) == 0 {
		return "No edges yet"
	}
	var sb strings.Builder
	for _, e := range g.edges {
		fmt.Fprintf(&sb, "%s -> %s (confidence: %.2f)\n", e.Source.Name, e.Target.Name, e.Confidence)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Snapshot is the serializable form of a graph plus its ledger.
type Snapshot struct {
	Variables []Variable     `json:"variables"`
	Edges     []*CausalEdge  `json:"edges"`
	Roots     []string       `json:"roots"`
	Deferred  []*LedgerEntry `json:"deferred,omitempty"`
	Rejected  []*LedgerEntry `json:"rejected,omitempty"`
}

func (g *CausalGraph) Snapshot() *Snapshot {
	roots := g.Roots()
	names := make([]string, 0, len(roots))
	for _, r := range roots {
		names = append(names, r.Name)
	}
	sort.Strings(names)
	return &Snapshot{
		Variables: g.vars.All(),
		Edges:     g.Edges(),
		Roots:     names,
		Deferred:  g.Deferred(),
		Rejected:  g.Rejected(),
	}
}

package diagnosis

import (
	"math"
	"sort"
	"time"

	"github.com/recist-project/recist/pkg/domain"
)

// halfLife is the exponential-decay half-life used for node weight
// recency, spec §4.3 step 3.
const halfLife = 60 * time.Second

// Node is one observation (a LogEntry) in the causal subgraph.
type Node struct {
	Index int
	Entry domain.LogEntry
	Edges []int // outgoing edge indices into the same Node slice
}

// Subgraph is the directed acyclic graph described in spec §3: edges
// are inserted under temporal proximity (≤1s), source identity, or a
// known pattern rule, and a would-be cycle drops the later edge rather
// than forming it.
type Subgraph struct {
	Nodes []Node
}

// patternRules pairs a source substring with another it is known to
// cause, grounding edge insertion's "known pattern rule" (spec §3).
// This is a small, hand-curated table rather than a rule engine: the
// corpus has no pattern-mining library, and the rule set spec.md
// describes is three fixed cases, not an open-ended grammar.
var patternRules = map[string]string{
	"oomkiller":     "container",
	"scheduler":     "kubelet",
	"liveness-probe": "container",
}

// BuildSubgraph constructs the causal subgraph over a deduplicated,
// chronologically ordered log sequence (spec §4.3 steps 2-3).
func BuildSubgraph(logs []domain.LogEntry) *Subgraph {
	sorted := make([]domain.LogEntry, len(logs))
	copy(sorted, logs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	g := &Subgraph{Nodes: make([]Node, len(sorted))}
	for i, entry := range sorted {
		g.Nodes[i] = Node{Index: i, Entry: entry}
	}

	for i := range g.Nodes {
		for j := range g.Nodes[:i] {
			if !edgeRule(g.Nodes[j], g.Nodes[i]) {
				continue
			}
			if g.wouldCycle(j, i) {
				continue // later edge dropped, per spec §3
			}
			g.Nodes[j].Edges = append(g.Nodes[j].Edges, i)
		}
	}
	return g
}

func edgeRule(from, to Node) bool {
	if d := to.Entry.Timestamp.Sub(from.Entry.Timestamp); d >= 0 && d <= time.Second {
		return true
	}
	if from.Entry.Source != "" && from.Entry.Source == to.Entry.Source {
		return true
	}
	if causes, ok := patternRules[from.Entry.Source]; ok && causes == to.Entry.Source {
		return true
	}
	return false
}

// wouldCycle reports whether adding an edge from→to would close a cycle,
// by checking whether to can already reach from.
func (g *Subgraph) wouldCycle(from, to int) bool {
	visited := make(map[int]bool)
	var dfs func(n int) bool
	dfs = func(n int) bool {
		if n == from {
			return true
		}
		if visited[n] {
			return false
		}
		visited[n] = true
		for _, next := range g.Nodes[n].Edges {
			if dfs(next) {
				return true
			}
		}
		return false
	}
	return dfs(to)
}

// Weight returns node i's weight: frequency (out-degree + 1, standing in
// for how many later observations it explains) times an exponential
// recency decay relative to `now` with a 60s half-life (spec §4.3 step 3).
func (g *Subgraph) Weight(i int, now time.Time) float64 {
	node := g.Nodes[i]
	frequency := float64(len(node.Edges) + 1)
	age := now.Sub(node.Entry.Timestamp)
	if age < 0 {
		age = 0
	}
	decay := math.Exp(-math.Ln2 * age.Seconds() / halfLife.Seconds())
	return frequency * decay
}

// inDegree counts incoming edges for every node.
func (g *Subgraph) inDegree() []int {
	in := make([]int, len(g.Nodes))
	for _, n := range g.Nodes {
		for _, e := range n.Edges {
			in[e]++
		}
	}
	return in
}

// RootCandidates returns the nodes with in-degree 0, ranked by weight
// descending (spec §4.3 step 3: "Root candidates are nodes with
// in-degree 0").
func (g *Subgraph) RootCandidates(now time.Time) []Node {
	in := g.inDegree()
	var roots []Node
	for i, n := range g.Nodes {
		if in[i] == 0 {
			roots = append(roots, n)
		}
	}
	sort.SliceStable(roots, func(a, b int) bool {
		return g.Weight(roots[a].Index, now) > g.Weight(roots[b].Index, now)
	})
	return roots
}

package diagnosis

import (
	"testing"
	"time"

	"github.com/recist-project/recist/pkg/domain"
)

func TestBuildSubgraphTemporalProximityEdge(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	logs := []domain.LogEntry{
		{Timestamp: base, Source: "a", Message: "first"},
		{Timestamp: base.Add(500 * time.Millisecond), Source: "b", Message: "second"},
	}
	g := BuildSubgraph(logs)
	if len(g.Nodes[0].Edges) != 1 || g.Nodes[0].Edges[0] != 1 {
		t.Fatalf("expected an edge from node 0 to node 1, got %+v", g.Nodes[0].Edges)
	}
}

func TestBuildSubgraphDropsWouldBeCycle(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	logs := []domain.LogEntry{
		{Timestamp: base, Source: "svc", Message: "a"},
		{Timestamp: base.Add(100 * time.Millisecond), Source: "svc", Message: "b"},
		{Timestamp: base.Add(200 * time.Millisecond), Source: "svc", Message: "c"},
	}
	g := BuildSubgraph(logs)
	// same-source identity rule links every pair; temporal proximity
	// would too, but no edge may close a cycle back to an ancestor.
	for _, n := range g.Nodes {
		for _, e := range n.Edges {
			if e <= n.Index {
				t.Fatalf("found a back edge %d -> %d", n.Index, e)
			}
		}
	}
}

func TestRootCandidatesAreInDegreeZero(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	logs := []domain.LogEntry{
		{Timestamp: base, Source: "root", Message: "cause"},
		{Timestamp: base.Add(200 * time.Millisecond), Source: "effect", Message: "symptom"},
	}
	g := BuildSubgraph(logs)
	roots := g.RootCandidates(base.Add(time.Second))
	if len(roots) != 1 || roots[0].Entry.Message != "cause" {
		t.Fatalf("roots = %+v, want exactly the first entry", roots)
	}
}

func TestWeightDecaysWithAge(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	logs := []domain.LogEntry{{Timestamp: base, Source: "a", Message: "x"}}
	g := BuildSubgraph(logs)
	fresh := g.Weight(0, base)
	aged := g.Weight(0, base.Add(60*time.Second))
	if aged >= fresh {
		t.Errorf("weight should decay after one half-life: fresh=%v aged=%v", fresh, aged)
	}
	if aged > fresh/1.9 || aged < fresh/2.1 {
		t.Errorf("after one half-life weight should roughly halve: fresh=%v aged=%v", fresh, aged)
	}
}

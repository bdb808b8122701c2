package dag

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func chain(t *testing.T, ids ...string) *DAG {
	t.Helper()
	g := New(nil)
	for _, id := range ids {
		if err := g.AddNode(Node{ID: id}); err != nil {
			t.Fatalf("AddNode(%q): %v", id, err)
		}
	}
	for i := 0; i+1 < len(ids); i++ {
		if err := g.AddEdge(Edge{From: ids[i], To: ids[i+1]}); err != nil {
			t.Fatalf("AddEdge(%q, %q): %v", ids[i], ids[i+1], err)
		}
	}
	return g
}

func TestAddNodeErrors(t *testing.T) {
	g := New(nil)
	if err := g.AddNode(Node{}); !errors.Is(err, ErrInvalidNodeID) {
		t.Errorf("AddNode(empty) = %v, want ErrInvalidNodeID", err)
	}
	_ = g.AddNode(Node{ID: "a"})
	if err := g.AddNode(Node{ID: "a"}); !errors.Is(err, ErrDuplicateNodeID) {
		t.Errorf("AddNode(dup) = %v, want ErrDuplicateNodeID", err)
	}
	if n, _ := g.Node("a"); n.Meta == nil {
		t.Error("Meta should be initialized")
	}
}

func TestAddEdgeErrors(t *testing.T) {
	g := chain(t, "a")
	if err := g.AddEdge(Edge{From: "x", To: "a"}); !errors.Is(err, ErrUnknownSourceNode) {
		t.Errorf("got %v, want ErrUnknownSourceNode", err)
	}
	if err := g.AddEdge(Edge{From: "a", To: "x"}); !errors.Is(err, ErrUnknownTargetNode) {
		t.Errorf("got %v, want ErrUnknownTargetNode", err)
	}
}

func TestAddEdgeDeduplicates(t *testing.T) {
	g := chain(t, "a", "b")
	_ = g.AddEdge(Edge{From: "a", To: "b"})
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount = %d, want 1", g.EdgeCount())
	}
}

func TestTopologicalOrder(t *testing.T) {
	tests := []struct {
		name  string
		build func() *DAG
		want  []string
	}{
		{
			name:  "chain",
			build: func() *DAG { return chain(t, "out", "mid", "leaf") },
			want:  []string{"leaf", "mid", "out"},
		},
		{
			name: "shared dependency emitted once",
			build: func() *DAG {
				g := chain(t, "out", "left", "tex")
				_ = g.AddNode(Node{ID: "right"})
				_ = g.AddEdge(Edge{From: "out", To: "right"})
				_ = g.AddEdge(Edge{From: "right", To: "tex"})
				return g
			},
			want: []string{"tex", "left", "right", "out"},
		},
		{
			name: "disconnected nodes keep insertion order",
			build: func() *DAG {
				g := New(nil)
				_ = g.AddNode(Node{ID: "z"})
				_ = g.AddNode(Node{ID: "a"})
				return g
			},
			want: []string{"z", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.build().TopologicalOrder()
			if err != nil {
				t.Fatalf("TopologicalOrder: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCycleDetection(t *testing.T) {
	g := chain(t, "a", "b", "c")
	_ = g.AddEdge(Edge{From: "c", To: "a"})

	if err := g.Validate(); !errors.Is(err, ErrGraphHasCycle) {
		t.Errorf("Validate = %v, want ErrGraphHasCycle", err)
	}
	if _, err := g.TopologicalOrder(); !errors.Is(err, ErrGraphHasCycle) {
		t.Errorf("TopologicalOrder = %v, want ErrGraphHasCycle", err)
	}
	want := []string{"a", "b", "c", "a"}
	if diff := cmp.Diff(want, g.FindCycle()); diff != "" {
		t.Errorf("FindCycle mismatch (-want +got):\n%s", diff)
	}
}

func TestFindCycleAcyclic(t *testing.T) {
	if c := chain(t, "a", "b").FindCycle(); c != nil {
		t.Errorf("FindCycle = %v, want nil", c)
	}
}

func TestAssignRows(t *testing.T) {
	g := chain(t, "out", "mid", "leaf")
	_ = g.AddEdge(Edge{From: "out", To: "leaf"})
	if err := g.AssignRows(); err != nil {
		t.Fatal(err)
	}
	want := map[string]int{"out": 0, "mid": 1, "leaf": 2}
	for id, row := range want {
		if n, _ := g.Node(id); n.Row != row {
			t.Errorf("%s row = %d, want %d", id, n.Row, row)
		}
	}
	if g.RowCount() != 3 {
		t.Errorf("RowCount = %d, want 3", g.RowCount())
	}
}

func TestSourcesAndSinks(t *testing.T) {
	g := chain(t, "out", "leaf")
	if got := NodeIDs(g.Sources()); !cmp.Equal(got, []string{"out"}) {
		t.Errorf("Sources = %v", got)
	}
	if got := NodeIDs(g.Sinks()); !cmp.Equal(got, []string{"leaf"}) {
		t.Errorf("Sinks = %v", got)
	}
	if got := g.Parents("leaf"); !cmp.Equal(got, []string{"out"}) {
		t.Errorf("Parents = %v", got)
	}
}

package dag_test

import (
	"fmt"

	"github.com/matzehuels/mtlxgen/pkg/dag"
)

func ExampleDAG_basic() {
	// material -> shader -> image
	g := dag.New(nil)
	_ = g.AddNode(dag.Node{ID: "material"})
	_ = g.AddNode(dag.Node{ID: "shader"})
	_ = g.AddNode(dag.Node{ID: "image"})
	_ = g.AddEdge(dag.Edge{From: "material", To: "shader"})
	_ = g.AddEdge(dag.Edge{From: "shader", To: "image"})

	fmt.Println("Nodes:", g.NodeCount())
	fmt.Println("Edges:", g.EdgeCount())
	// Output:
	// Nodes: 3
	// Edges: 2
}

func ExampleDAG_TopologicalOrder() {
	g := dag.New(nil)
	_ = g.AddNode(dag.Node{ID: "surface"})
	_ = g.AddNode(dag.Node{ID: "mix"})
	_ = g.AddNode(dag.Node{ID: "image"})
	_ = g.AddNode(dag.Node{ID: "constant"})
	_ = g.AddEdge(dag.Edge{From: "surface", To: "mix"})
	_ = g.AddEdge(dag.Edge{From: "mix", To: "image"})
	_ = g.AddEdge(dag.Edge{From: "mix", To: "constant"})

	order, _ := g.TopologicalOrder()
	fmt.Println(order)
	// Output:
	// [image constant mix surface]
}

func ExampleDAG_FindCycle() {
	g := dag.New(nil)
	_ = g.AddNode(dag.Node{ID: "a"})
	_ = g.AddNode(dag.Node{ID: "b"})
	_ = g.AddEdge(dag.Edge{From: "a", To: "b"})
	_ = g.AddEdge(dag.Edge{From: "b", To: "a"})

	fmt.Println(g.FindCycle())
	// Output:
	// [a b a]
}

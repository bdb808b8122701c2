// Package dag provides the directed graph used to represent shading node
// networks while they are validated, compiled and drawn.
//
// # Overview
//
// A material document describes a network of nodes whose inputs are
// connected to the outputs of other nodes. This package holds that network
// as a graph where an edge From → To means "From reads the output of To".
// Outputs of the network are therefore sources and constants or texture
// lookups are sinks.
//
// # Basic Usage
//
// Create a new graph with [New], add nodes with [DAG.AddNode], and edges with
// [DAG.AddEdge]:
//
//	g := dag.New(nil)
//	g.AddNode(dag.Node{ID: "SR_marble"})
//	g.AddNode(dag.Node{ID: "noise"})
//	g.AddEdge(dag.Edge{From: "SR_marble", To: "noise"})
//
// [DAG.TopologicalOrder] yields an emission order in which every node
// follows its dependencies; code generators walk it to write one statement
// per node. [DAG.Validate] and [DAG.FindCycle] report feedback loops, which
// material documents must not contain.
//
// # Rows
//
// [DAG.AssignRows] assigns each node a layer equal to its longest distance
// from an output. The node-link renderer uses rows as Graphviz ranks.
//
// # Metadata
//
// Both nodes and the graph itself support arbitrary metadata via [Metadata]
// maps. Metadata maps are never nil after creation.
//
// # Concurrency
//
// DAG instances are not safe for concurrent use. Callers must synchronize
// access if multiple goroutines read or modify the same graph.
package dag

package nodelink

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/matzehuels/mtlxgen/pkg/dag"
)

type jsonGraph struct {
	Element string     `json:"element,omitempty"`
	Nodes   []jsonNode `json:"nodes"`
	Edges   []jsonEdge `json:"edges"`
}

type jsonNode struct {
	ID   string       `json:"id"`
	Row  int          `json:"row"`
	Meta dag.Metadata `json:"meta,omitempty"`
}

type jsonEdge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Input string `json:"input,omitempty"`
}

// WriteJSON encodes a node graph as indented JSON and writes it to w.
// Nodes keep their metadata and row; edges carry the input they feed.
func WriteJSON(g *dag.DAG, w io.Writer) error {
	out := jsonGraph{
		Nodes: make([]jsonNode, 0, g.NodeCount()),
		Edges: make([]jsonEdge, 0, g.EdgeCount()),
	}
	out.Element, _ = g.Meta()["element"].(string)

	for _, n := range g.Nodes() {
		out.Nodes = append(out.Nodes, jsonNode{ID: n.ID, Row: n.Row, Meta: n.Meta})
	}
	for _, e := range g.Edges() {
		input, _ := e.Meta["input"].(string)
		out.Edges = append(out.Edges, jsonEdge{From: e.From, To: e.To, Input: input})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

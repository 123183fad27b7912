package graph

import (
	"strings"
	"testing"
)

func chainGraph() *Graph {
	return &Graph{
		Nodes: []*Node{
			{ID: "a", Kind: KindAI, Data: NodeData{Provider: ProviderChat}},
			{ID: "b", Kind: KindAI, Data: NodeData{Provider: ProviderChat}},
			{ID: "c", Kind: KindResult},
		},
		Edges: []Edge{
			{Source: "a", Target: "b"},
			{Source: "b", Target: "c"},
		},
	}
}

func TestValidateAcceptsChain(t *testing.T) {
	if err := chainGraph().Validate(); err != nil {
		t.Errorf("Expected valid graph, got %v", err)
	}
}

func TestValidateRejectsDuplicateID(t *testing.T) {
	g := &Graph{
		Nodes: []*Node{
			{ID: "a", Kind: KindResult},
			{ID: "a", Kind: KindResult},
		},
	}

	err := g.Validate()
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("Expected duplicate id error, got %v", err)
	}
}

func TestValidateRejectsEmptyID(t *testing.T) {
	g := &Graph{Nodes: []*Node{{ID: "", Kind: KindResult}}}

	if err := g.Validate(); err == nil {
		t.Error("Expected error for empty node id")
	}
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	g := &Graph{
		Nodes: []*Node{{ID: "a", Kind: KindAI, Data: NodeData{Provider: "quantum"}}},
	}

	err := g.Validate()
	if err == nil || !strings.Contains(err.Error(), "unknown provider") {
		t.Errorf("Expected unknown provider error, got %v", err)
	}
}

func TestValidateRejectsUnknownKind(t *testing.T) {
	g := &Graph{Nodes: []*Node{{ID: "a", Kind: "widget"}}}

	err := g.Validate()
	if err == nil || !strings.Contains(err.Error(), "unknown kind") {
		t.Errorf("Expected unknown kind error, got %v", err)
	}
}

func TestValidateRejectsDanglingEdge(t *testing.T) {
	g := &Graph{
		Nodes: []*Node{{ID: "a", Kind: KindResult}},
		Edges: []Edge{{Source: "a", Target: "ghost"}},
	}

	err := g.Validate()
	if err == nil || !strings.Contains(err.Error(), "unknown target") {
		t.Errorf("Expected dangling edge error, got %v", err)
	}
}

func TestValidateDoesNotRejectCycles(t *testing.T) {
	g := &Graph{
		Nodes: []*Node{
			{ID: "a", Kind: KindResult},
			{ID: "b", Kind: KindResult},
		},
		Edges: []Edge{
			{Source: "a", Target: "b"},
			{Source: "b", Target: "a"},
		},
	}

	if err := g.Validate(); err != nil {
		t.Errorf("Expected cyclic graph to pass validation, got %v", err)
	}
}

func TestInDegrees(t *testing.T) {
	degrees := chainGraph().InDegrees()

	if degrees["a"] != 0 {
		t.Errorf("Expected in-degree 0 for a, got %d", degrees["a"])
	}
	if degrees["b"] != 1 {
		t.Errorf("Expected in-degree 1 for b, got %d", degrees["b"])
	}
	if degrees["c"] != 1 {
		t.Errorf("Expected in-degree 1 for c, got %d", degrees["c"])
	}
}

func TestAdjacencyPreservesEdgeOrder(t *testing.T) {
	g := &Graph{
		Nodes: []*Node{
			{ID: "root", Kind: KindResult},
			{ID: "x", Kind: KindResult},
			{ID: "y", Kind: KindResult},
		},
		Edges: []Edge{
			{Source: "root", Target: "y"},
			{Source: "root", Target: "x"},
		},
	}

	successors := g.Adjacency()["root"]
	if len(successors) != 2 || successors[0] != "y" || successors[1] != "x" {
		t.Errorf("Expected successors [y x], got %v", successors)
	}
}

func TestCycleNodesEmptyForAcyclicGraph(t *testing.T) {
	if stuck := chainGraph().CycleNodes(); len(stuck) != 0 {
		t.Errorf("Expected no cycle nodes, got %v", stuck)
	}
}

func TestCycleNodesIncludesCycleAndDependents(t *testing.T) {
	g := &Graph{
		Nodes: []*Node{
			{ID: "root", Kind: KindResult},
			{ID: "a", Kind: KindResult},
			{ID: "b", Kind: KindResult},
			{ID: "after", Kind: KindResult},
		},
		Edges: []Edge{
			{Source: "a", Target: "b"},
			{Source: "b", Target: "a"},
			{Source: "a", Target: "after"},
		},
	}

	stuck := g.CycleNodes()
	if len(stuck) != 3 {
		t.Fatalf("Expected 3 stuck nodes, got %v", stuck)
	}
	if stuck[0] != "a" || stuck[1] != "b" || stuck[2] != "after" {
		t.Errorf("Expected [a b after] in declaration order, got %v", stuck)
	}
}

func TestResetStatus(t *testing.T) {
	g := chainGraph()
	g.Nodes[0].Status = StatusComplete
	g.Nodes[1].Status = StatusError
	g.Nodes[1].Err = "boom"

	g.ResetStatus()

	if g.Nodes[0].Status != StatusReady {
		t.Errorf("Expected root node ready, got %s", g.Nodes[0].Status)
	}
	if g.Nodes[1].Status != StatusPending {
		t.Errorf("Expected dependent node pending, got %s", g.Nodes[1].Status)
	}
	if g.Nodes[1].Err != "" {
		t.Errorf("Expected error cleared, got %q", g.Nodes[1].Err)
	}
}

func TestNodeLookup(t *testing.T) {
	g := chainGraph()

	if n := g.Node("b"); n == nil || n.ID != "b" {
		t.Errorf("Expected node b, got %v", n)
	}
	if n := g.Node("missing"); n != nil {
		t.Errorf("Expected nil for missing node, got %v", n)
	}
}

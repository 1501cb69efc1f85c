// This file supplements spec.md §6 with a debugging aid not named by
// the original spec: exporting the dependency DAG as Graphviz DOT.
// Grounded on internal/batch/batch.go's use of
// gonum.org/v1/gonum/graph/simple to represent a package dependency
// graph for topological scheduling; here the same graph library
// represents the same shape of structure purely for visualisation, so
// the DOT writer is hand-rolled rather than routed through
// graph/encoding/dot (whose Node/Edge attribute interfaces are more
// machinery than a debug dump needs).
package buildctx

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

type namedNode struct {
	id   int64
	name string
}

func (n *namedNode) ID() int64 { return n.id }

// graphMirror builds a gonum directed graph mirroring Targets and
// their Dependencies, purely for PrintDOT. The executor in package
// graph never sees this structure: it walks *target.Target pointers
// directly, per spec.md §4.6.
func (c *Context) graphMirror() (*simple.DirectedGraph, map[string]*namedNode) {
	g := simple.NewDirectedGraph()
	nodes := make(map[string]*namedNode, len(c.Targets))
	for i, t := range c.Targets {
		n := &namedNode{id: int64(i), name: t.Name}
		nodes[t.Name] = n
		g.AddNode(n)
	}
	for _, t := range c.Targets {
		from := nodes[t.Name]
		for _, dep := range t.Dependencies {
			to := nodes[dep.Name]
			if from.ID() == to.ID() {
				continue
			}
			g.SetEdge(g.NewEdge(from, to))
		}
	}
	return g, nodes
}

// PrintDOT writes the dependency DAG as a Graphviz "digraph" to w.
func (c *Context) PrintDOT(w io.Writer) error {
	g, nodes := c.graphMirror()

	if _, err := fmt.Fprintln(w, "digraph otter {"); err != nil {
		return err
	}
	for _, t := range c.Targets {
		if _, err := fmt.Fprintf(w, "  %q [shape=box,label=%q];\n", t.Name, fmt.Sprintf("%s\\n%s", t.Name, t.Kind)); err != nil {
			return err
		}
	}

	seen := make(map[[2]int64]bool)
	it := g.Edges()
	for it.Next() {
		e := it.Edge()
		key := [2]int64{e.From().ID(), e.To().ID()}
		if seen[key] {
			continue
		}
		seen[key] = true
		from := nodeByID(nodes, e.From().ID())
		to := nodeByID(nodes, e.To().ID())
		if _, err := fmt.Fprintf(w, "  %q -> %q;\n", from, to); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, "}"); err != nil {
		return err
	}
	return nil
}

func nodeByID(nodes map[string]*namedNode, id int64) string {
	for name, n := range nodes {
		if n.ID() == id {
			return name
		}
	}
	return ""
}

var _ graph.Directed = (*simple.DirectedGraph)(nil)

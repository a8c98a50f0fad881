// Package dag validates the shape of decoded operator plans. Plans must be
// acyclic; sharing is fine (one subtree reachable from several parents), a
// back edge is not. Validation also measures depth so resolution can pick a
// sane recursion bound before walking a plan from an untrusted file.
package dag

import (
	"fmt"

	"github.com/leapstack-labs/relineage/pkg/rel"
)

// Stats summarizes a validated plan.
type Stats struct {
	// Nodes counts distinct operator nodes.
	Nodes int
	// MaxDepth is the longest root-to-leaf path, root counted as 1.
	MaxDepth int
	// Shared counts nodes reachable through more than one parent.
	Shared int
}

// Validate walks the plan from root and returns its stats, or an error if the
// node graph contains a cycle.
func Validate(root rel.Node) (Stats, error) {
	if root == nil {
		return Stats{}, fmt.Errorf("nil plan root")
	}
	w := &walker{
		state:   make(map[rel.Node]visitState),
		heights: make(map[rel.Node]int),
		parents: make(map[rel.Node]int),
	}
	depth, err := w.visit(root)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Nodes: len(w.state), MaxDepth: depth}
	for _, count := range w.parents {
		if count > 1 {
			stats.Shared++
		}
	}
	return stats, nil
}

type visitState int

const (
	visiting visitState = iota + 1
	done
)

type walker struct {
	state   map[rel.Node]visitState
	heights map[rel.Node]int // node -> longest path to a leaf, node counted as 1
	parents map[rel.Node]int
}

// visit returns the height of node. A node already in the visiting state is a
// back edge, i.e. a cycle.
func (w *walker) visit(node rel.Node) (int, error) {
	switch w.state[node] {
	case visiting:
		return 0, fmt.Errorf("cycle detected involving %T", node)
	case done:
		return w.heights[node], nil
	}

	w.state[node] = visiting
	height := 1
	for _, in := range node.Inputs() {
		w.parents[in]++
		h, err := w.visit(in)
		if err != nil {
			return 0, err
		}
		if h+1 > height {
			height = h + 1
		}
	}
	w.state[node] = done
	w.heights[node] = height
	return height, nil
}

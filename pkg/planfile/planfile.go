// Package planfile reads serialized operator plans. A plan file carries the
// base-table schemas and the operator nodes in one JSON document; nodes
// reference each other by id, so a subtree shared by several parents decodes
// to a single shared node (plans are DAGs, not trees).
package planfile

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/leapstack-labs/relineage/pkg/catalog"
	"github.com/leapstack-labs/relineage/pkg/rel"
)

// Plan is a decoded operator plan plus the catalog it references.
type Plan struct {
	Root    rel.Node
	Catalog *catalog.Catalog

	nodes map[string]rel.Node
}

// Node returns the decoded node with the given id.
func (p *Plan) Node(id string) (rel.Node, bool) {
	n, ok := p.nodes[id]
	return n, ok
}

// NodeIDs returns all node ids in sorted order.
func (p *Plan) NodeIDs() []string {
	ids := make([]string, 0, len(p.nodes))
	for id := range p.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Load reads and decodes the plan file at path.
func Load(path string) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plan file: %w", err)
	}
	defer f.Close()

	plan, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode plan file %s: %w", path, err)
	}
	return plan, nil
}

// Decode reads a plan document from r.
func Decode(r io.Reader) (*Plan, error) {
	var doc planJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid plan JSON: %w", err)
	}
	if doc.Version != 1 {
		return nil, fmt.Errorf("unsupported plan version %d", doc.Version)
	}
	if len(doc.Nodes) == 0 {
		return nil, fmt.Errorf("plan has no nodes")
	}
	if doc.Root == "" {
		return nil, fmt.Errorf("plan has no root")
	}

	cat := catalog.New()
	for _, t := range doc.Tables {
		if len(t.Name) == 0 {
			return nil, fmt.Errorf("table with empty qualified name")
		}
		fields := make([]rel.Field, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = rel.Field{Name: f.Name, Type: f.Type}
		}
		cat.Add(catalog.NewTable(t.Name, fields...))
	}

	b := &builder{
		catalog:  cat,
		byID:     make(map[string]nodeJSON, len(doc.Nodes)),
		decoded:  make(map[string]rel.Node),
		building: make(map[string]bool),
	}
	for _, n := range doc.Nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("node with empty id")
		}
		if _, dup := b.byID[n.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %q", n.ID)
		}
		b.byID[n.ID] = n
	}

	root, err := b.node(doc.Root)
	if err != nil {
		return nil, err
	}
	// Decode unreachable nodes too; the CLI may query them directly.
	for _, n := range doc.Nodes {
		if _, err := b.node(n.ID); err != nil {
			return nil, err
		}
	}

	return &Plan{Root: root, Catalog: cat, nodes: b.decoded}, nil
}

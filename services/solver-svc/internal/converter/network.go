// Package converter reads network documents into balanced networks and
// renders solve results back out.
package converter

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/apperror"
	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/cache"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/algorithms"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/graph"
)

// Document is a network description.
//
//	pairs: 3
//	source: 0
//	arcs:
//	  - {from: 0, to: 2, capacity: 1}
//	  - [2, 5, 1]
//	matching:
//	  vertices: 2
//	  edges: [[0, 1]]
//
// Arcs may be mappings or [from, to, capacity, flow] sequences with the
// flow optional. A matching section expands into the balanced network of an
// undirected graph: vertex i becomes the pair 2i+2, 2i+3 and the source pair
// is 0, 1. Explicit arcs are added after the matching arcs.
type Document struct {
	Pairs    int           `yaml:"pairs"`
	Source   int           `yaml:"source"`
	Arcs     []ArcSpec     `yaml:"arcs"`
	Matching *MatchingSpec `yaml:"matching,omitempty"`
}

// ArcSpec describes the arc (From, To); its complement is implied.
type ArcSpec struct {
	From          int   `yaml:"from"`
	To            int   `yaml:"to"`
	Capacity      int64 `yaml:"capacity"`
	Flow          int64 `yaml:"flow,omitempty"`
	Bidirectional bool  `yaml:"bidirectional,omitempty"`
	// Unbounded replaces Capacity with graph.Infinity.
	Unbounded bool `yaml:"unbounded,omitempty"`

	line int
}

// node.Decode does not inherit KnownFields from the document decoder.
var arcFields = map[string]bool{
	"from": true, "to": true, "capacity": true, "flow": true,
	"bidirectional": true, "unbounded": true,
}

// UnmarshalYAML accepts both the mapping and the sequence form.
func (a *ArcSpec) UnmarshalYAML(node *yaml.Node) error {
	a.line = node.Line

	if node.Kind == yaml.SequenceNode {
		var fields []int64
		if err := node.Decode(&fields); err != nil {
			return err
		}
		if len(fields) < 3 || len(fields) > 4 {
			return fmt.Errorf("line %d: arc needs [from, to, capacity] or [from, to, capacity, flow]", node.Line)
		}
		a.From, a.To, a.Capacity = int(fields[0]), int(fields[1]), fields[2]
		if len(fields) == 4 {
			a.Flow = fields[3]
		}
		return nil
	}

	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			if key := node.Content[i]; !arcFields[key.Value] {
				return fmt.Errorf("line %d: field %s not found in arc", key.Line, key.Value)
			}
		}
	}

	type plain ArcSpec
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	p.line = node.Line
	*a = ArcSpec(p)
	return nil
}

// MatchingSpec describes an undirected graph whose maximum matching is
// wanted.
type MatchingSpec struct {
	Vertices int      `yaml:"vertices"`
	Edges    [][2]int `yaml:"edges"`
	// Capacity applies to every arc; zero means one.
	Capacity int64 `yaml:"capacity,omitempty"`
}

// ParseNetwork decodes a document. Unknown fields are rejected.
func ParseNetwork(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	doc := &Document{}
	if err := dec.Decode(doc); err != nil {
		if err == io.EOF {
			return nil, apperror.New(apperror.CodeInvalidNetwork, "empty network document")
		}
		return nil, apperror.Wrap(err, apperror.CodeInvalidNetwork, "failed to parse network document")
	}
	return doc, nil
}

// ReadNetworkFile parses the document at path.
func ReadNetworkFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseNetwork(f)
}

// expanded returns the pair count and arc list after matching expansion.
func (d *Document) expanded() (int, []ArcSpec) {
	pairs := d.Pairs
	var arcs []ArcSpec

	if m := d.Matching; m != nil {
		pairs = max(pairs, m.Vertices+1)
		c := m.Capacity
		if c == 0 {
			c = 1
		}
		for i := 0; i < m.Vertices; i++ {
			arcs = append(arcs, ArcSpec{From: 0, To: 2*i + 2, Capacity: c})
		}
		for _, e := range m.Edges {
			arcs = append(arcs, ArcSpec{From: 2*e[0] + 2, To: 2*e[1] + 3, Capacity: c})
		}
	}

	return pairs, append(arcs, d.Arcs...)
}

// Validate reports every problem in the document.
func (d *Document) Validate() *apperror.ValidationErrors {
	v := apperror.NewValidationErrors()
	pairs, _ := d.expanded()
	n := 2 * pairs

	if pairs <= 0 {
		v.Add(apperror.NewWithField(apperror.CodeInvalidNetwork, "network has no nodes", "pairs"))
		return v
	}
	if d.Source < 0 || d.Source >= n {
		v.Add(apperror.NewWithField(apperror.CodeInvalidSource,
			fmt.Sprintf("source %d out of range [0,%d)", d.Source, n), "source"))
	}

	if m := d.Matching; m != nil {
		for i, e := range m.Edges {
			if e[0] < 0 || e[0] >= m.Vertices || e[1] < 0 || e[1] >= m.Vertices {
				v.Add(apperror.NewWithField(apperror.CodeOutOfRange,
					fmt.Sprintf("matching edge %v out of range [0,%d)", e, m.Vertices),
					fmt.Sprintf("matching.edges[%d]", i)))
			}
		}
		if m.Capacity < 0 {
			v.Add(apperror.NewWithField(apperror.CodeInvalidArgument, "negative matching capacity", "matching.capacity"))
		}
	}

	for i, a := range d.Arcs {
		field := fmt.Sprintf("arcs[%d]", i)
		where := field
		if a.line > 0 {
			where = fmt.Sprintf("line %d", a.line)
		}
		if a.From < 0 || a.From >= n || a.To < 0 || a.To >= n {
			v.Add(apperror.NewWithField(apperror.CodeOutOfRange,
				fmt.Sprintf("%s: arc (%d,%d) out of range [0,%d)", where, a.From, a.To, n), field))
			continue
		}
		if a.Capacity < 0 {
			v.Add(apperror.NewWithField(apperror.CodeInvalidArgument,
				fmt.Sprintf("%s: negative capacity %d", where, a.Capacity), field))
		}
		if a.Flow < 0 || (!a.Unbounded && a.Flow > a.Capacity) {
			v.Add(apperror.NewWithField(apperror.CodeCapacityOverflow,
				fmt.Sprintf("%s: flow %d outside [0,%d]", where, a.Flow, a.Capacity), field))
		}
		if a.Bidirectional && a.Flow != 0 {
			v.Add(apperror.NewWithField(apperror.CodeInvalidArgument,
				fmt.Sprintf("%s: bidirectional arcs cannot carry an initial flow", where), field))
		}
		if a.From == d.Source^1 || a.To == d.Source {
			v.AddWarning(apperror.CodeInvalidNetwork,
				fmt.Sprintf("%s: arc (%d,%d) can never carry flow from the source", where, a.From, a.To))
		}
	}

	return v
}

// Build validates the document and creates the network with its initial
// flow. A non-zero initial flow must be balanced and conserved.
func (d *Document) Build() (*graph.BalancedGraph, error) {
	if v := d.Validate(); v.HasErrors() {
		return nil, v.First()
	}

	pairs, arcs := d.expanded()
	g := graph.NewBalancedGraph(pairs)
	hasFlow := false

	for _, a := range arcs {
		capacity := a.Capacity
		if a.Unbounded {
			capacity = graph.Infinity
		}
		arc, err := g.AddArc(a.From, a.To, capacity)
		if err != nil {
			return nil, err
		}
		if a.Flow > 0 {
			if err := g.SetFlow(graph.EdgeOf(arc), a.Flow); err != nil {
				return nil, err
			}
			hasFlow = true
		}
		if a.Bidirectional {
			if _, err := g.AddArc(a.To, a.From, capacity); err != nil {
				return nil, err
			}
		}
	}

	if hasFlow {
		if err := algorithms.VerifyFlow(g, d.Source, g.FlowValue(d.Source)); err != nil {
			return nil, apperror.Wrap(err, apperror.CodeInvalidNetwork, "initial flow is not a balanced flow")
		}
	}
	return g, nil
}

// NetworkKey returns the cache view of g with source s, flows included.
func NetworkKey(g *graph.BalancedGraph, s int) cache.Network {
	arcs := make([]cache.NetworkArc, g.M())
	for e := range arcs {
		edge := g.Edge(e)
		arcs[e] = cache.NetworkArc{From: edge.From, To: edge.To, Capacity: edge.Capacity, Flow: edge.Flow}
	}
	return cache.Network{Nodes: g.N(), Source: s, Arcs: arcs}
}

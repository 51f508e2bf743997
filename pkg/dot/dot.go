// Package dot renders measured object graphs as node-link diagrams.
//
// A [Recorder] attaches to a [meter.Meter] as its traversal listener and
// captures every block and reference edge the walk discovers. The captured
// graph converts to Graphviz DOT source via [Recorder.ToDOT] and renders to
// SVG in-process via [RenderSVG].
//
//	rec := dot.NewRecorder()
//	total, err := meter.New().WithListenerFactory(rec.Factory()).MeasureDeep(root)
//	svg, err := dot.RenderSVG(rec.ToDOT(dot.Options{Detailed: true}))
package dot

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/heapmeter/pkg/meter"
)

// Options configures diagram generation.
type Options struct {
	// Detailed includes each block's shallow size in its label. When
	// false, only the type name is shown.
	Detailed bool
}

// Node is one captured heap block.
type Node struct {
	ID   string // stable diagram identifier
	Type string // block type name
	Size uint64 // shallow bytes, zero when only counting
}

// Edge is one captured reference between blocks.
type Edge struct {
	From  string // parent node ID
	To    string // child node ID
	Field string // field or slot through which the child was reached
}

// Recorder captures the object graph discovered by one or more traversals.
// It implements [meter.Listener]; obtain a factory with [Recorder.Factory].
// Not safe for concurrent traversals.
type Recorder struct {
	nodes []*Node
	index map[meter.Identity]*Node
	edges []Edge
	total uint64
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{index: make(map[meter.Identity]*Node)}
}

// Factory returns a ListenerFactory handing out this recorder, for use with
// [meter.Meter.WithListenerFactory].
func (r *Recorder) Factory() meter.ListenerFactory {
	return func() meter.Listener { return r }
}

// Nodes returns the captured blocks in discovery order.
func (r *Recorder) Nodes() []Node {
	out := make([]Node, len(r.nodes))
	for i, n := range r.nodes {
		out[i] = *n
	}
	return out
}

// Edges returns the captured references in discovery order.
func (r *Recorder) Edges() []Edge { return r.edges }

// Total returns the aggregate reported when the traversal finished.
func (r *Recorder) Total() uint64 { return r.total }

func (r *Recorder) Started(root reflect.Value) {
	r.node(root)
}

func (r *Recorder) EdgeTraversed(parent reflect.Value, field string, child reflect.Value) {
	from := r.node(parent)
	to := r.node(child)
	if from == nil || to == nil {
		return
	}
	r.edges = append(r.edges, Edge{From: from.ID, To: to.ID, Field: field})
}

func (r *Recorder) ObjectMeasured(v reflect.Value, size uint64) {
	if n := r.node(v); n != nil {
		n.Size = size
	}
}

func (r *Recorder) ObjectCounted(reflect.Value) {}

func (r *Recorder) Done(total uint64) { r.total = total }

// node returns the Node for v, registering it on first sight. Blocks
// without a derivable identity are dropped from the diagram.
func (r *Recorder) node(v reflect.Value) *Node {
	id, ok := meter.IdentityOf(v)
	if !ok {
		return nil
	}
	if n, seen := r.index[id]; seen {
		return n
	}
	n := &Node{
		ID:   "n" + strconv.Itoa(len(r.nodes)),
		Type: v.Type().String(),
	}
	r.nodes = append(r.nodes, n)
	r.index[id] = n
	return n
}

// ToDOT converts the captured graph to Graphviz DOT source. The result can
// be rendered with [RenderSVG] or saved for external tooling.
func (r *Recorder) ToDOT(opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for i, n := range r.nodes {
		label := fmtLabel(*n, opts.Detailed)
		attrs := []string{fmt.Sprintf("label=%q", label)}
		if i == 0 {
			// The root block anchors the diagram.
			attrs = append(attrs, "fillcolor=lightgrey")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range r.edges {
		if e.Field != "" {
			fmt.Fprintf(&buf, "  %q -> %q [label=%q, fontsize=10];\n", e.From, e.To, e.Field)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n Node, detailed bool) string {
	if !detailed {
		return n.Type
	}
	return n.Type + "\n" + meter.HumanBytes(n.Size)
}

// RenderSVG renders DOT source to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

package meter

import (
	"fmt"
	"io"
	"reflect"
	"strings"
)

// treePrinter is a Listener that writes the discovered object tree to a
// writer, one line per block, indented by discovery depth and capped at a
// maximum depth. Intended for debugging measurements of unfamiliar graphs.
type treePrinter struct {
	w        io.Writer
	maxDepth int
	depths   map[Identity]int
}

// NewTreePrinterFactory returns a ListenerFactory producing a fresh tree
// printer per traversal. Output goes to w; blocks deeper than maxDepth are
// measured but not printed.
func NewTreePrinterFactory(w io.Writer, maxDepth int) ListenerFactory {
	return func() Listener {
		return &treePrinter{w: w, maxDepth: maxDepth, depths: make(map[Identity]int)}
	}
}

func (p *treePrinter) Started(root reflect.Value) {
	if id, ok := identityOf(root); ok {
		p.depths[id] = 0
	}
	fmt.Fprintf(p.w, "root %s\n", root.Type())
}

func (p *treePrinter) EdgeTraversed(parent reflect.Value, field string, child reflect.Value) {
	pid, ok := identityOf(parent)
	if !ok {
		return
	}
	cid, ok := identityOf(child)
	if !ok {
		return
	}
	depth := p.depths[pid] + 1
	p.depths[cid] = depth
	if depth > p.maxDepth {
		return
	}
	fmt.Fprintf(p.w, "%s%s %s\n", strings.Repeat("  ", depth), field, child.Type())
}

func (p *treePrinter) ObjectMeasured(v reflect.Value, size uint64) {
	id, ok := identityOf(v)
	if !ok {
		return
	}
	if depth, seen := p.depths[id]; !seen || depth > p.maxDepth {
		return
	}
	fmt.Fprintf(p.w, "%s= %s %s\n", strings.Repeat("  ", p.depths[id]), v.Type(), HumanBytes(size))
}

func (p *treePrinter) ObjectCounted(v reflect.Value) {}

func (p *treePrinter) Done(total uint64) {
	fmt.Fprintf(p.w, "total %s\n", HumanBytes(total))
}

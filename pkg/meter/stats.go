package meter

import (
	"fmt"
	"reflect"
	"sort"
)

// TypeStat aggregates the blocks of one runtime type observed during a
// traversal.
type TypeStat struct {
	Type  string // type name, e.g. "map[string]any"
	Count uint64 // number of distinct blocks
	Bytes uint64 // summed shallow bytes (zero when only counting)
}

// StatsRecorder is a Listener that tallies per-type block counts and bytes.
// It is the data source for the CLI's type table and the debug HTTP report.
//
// A recorder accumulates across every traversal it observes; use a fresh one
// per measurement when per-call figures are wanted.
type StatsRecorder struct {
	byType map[string]*TypeStat
	total  uint64
	nodes  uint64
}

// NewStatsRecorder returns an empty recorder.
func NewStatsRecorder() *StatsRecorder {
	return &StatsRecorder{byType: make(map[string]*TypeStat)}
}

// Factory returns a ListenerFactory handing out this recorder, for use with
// [Meter.WithListenerFactory].
func (r *StatsRecorder) Factory() ListenerFactory {
	return func() Listener { return r }
}

func (r *StatsRecorder) Started(reflect.Value) {}

func (r *StatsRecorder) ObjectMeasured(v reflect.Value, size uint64) {
	s := r.stat(v.Type())
	s.Count++
	s.Bytes += size
	r.nodes++
	r.total += size
}

func (r *StatsRecorder) ObjectCounted(v reflect.Value) {
	r.stat(v.Type()).Count++
	r.nodes++
}

func (r *StatsRecorder) EdgeTraversed(reflect.Value, string, reflect.Value) {}

func (r *StatsRecorder) Done(uint64) {}

func (r *StatsRecorder) stat(t reflect.Type) *TypeStat {
	name := t.String()
	s, ok := r.byType[name]
	if !ok {
		s = &TypeStat{Type: name}
		r.byType[name] = s
	}
	return s
}

// Total returns the summed shallow bytes over all observed blocks.
func (r *StatsRecorder) Total() uint64 { return r.total }

// Nodes returns the number of observed blocks.
func (r *StatsRecorder) Nodes() uint64 { return r.nodes }

// Rows returns the per-type statistics, largest byte contribution first,
// ties broken by type name for deterministic output.
func (r *StatsRecorder) Rows() []TypeStat {
	rows := make([]TypeStat, 0, len(r.byType))
	for _, s := range r.byType {
		rows = append(rows, *s)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Bytes != rows[j].Bytes {
			return rows[i].Bytes > rows[j].Bytes
		}
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Type < rows[j].Type
	})
	return rows
}

// HumanBytes formats n using a human readable suffix.
func HumanBytes(n uint64) string {
	const (
		kib = 1 << 10
		mib = 1 << 20
		gib = 1 << 30
	)
	switch {
	case n >= gib:
		return fmt.Sprintf("%.2f GiB", float64(n)/float64(gib))
	case n >= mib:
		return fmt.Sprintf("%.2f MiB", float64(n)/float64(mib))
	case n >= kib:
		return fmt.Sprintf("%.2f KiB", float64(n)/float64(kib))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

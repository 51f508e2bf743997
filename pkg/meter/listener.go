package meter

import "reflect"

// Listener observes traversal lifecycle events. It is a side channel only:
// nothing a listener does influences the traversal outcome. All methods are
// invoked from the single goroutine running the traversal.
type Listener interface {
	// Started is invoked once with the root block before traversal begins.
	Started(root reflect.Value)

	// ObjectMeasured is invoked for each visited block during deep
	// measurement, with the block's contribution in bytes.
	ObjectMeasured(v reflect.Value, size uint64)

	// ObjectCounted is invoked for each visited block during counting.
	ObjectCounted(v reflect.Value)

	// EdgeTraversed is invoked when a not-yet-visited child is discovered,
	// with the field or slot path through which it was reached.
	EdgeTraversed(parent reflect.Value, field string, child reflect.Value)

	// Done is invoked once with the final aggregate when the traversal
	// completes normally.
	Done(total uint64)
}

// ListenerFactory produces a fresh Listener for each traversal call.
type ListenerFactory func() Listener

// noopListener discards all events. The walker recognizes it and skips
// per-edge notification entirely.
type noopListener struct{}

func (noopListener) Started(reflect.Value)                              {}
func (noopListener) ObjectMeasured(reflect.Value, uint64)               {}
func (noopListener) ObjectCounted(reflect.Value)                        {}
func (noopListener) EdgeTraversed(reflect.Value, string, reflect.Value) {}
func (noopListener) Done(uint64)                                        {}

// NoopListener returns the shared no-op listener.
func NoopListener() Listener { return noopListener{} }

// Combine returns a Listener forwarding every event to each of ls in order.
func Combine(ls ...Listener) Listener {
	return fanoutListener(ls)
}

type fanoutListener []Listener

func (f fanoutListener) Started(root reflect.Value) {
	for _, l := range f {
		l.Started(root)
	}
}

func (f fanoutListener) ObjectMeasured(v reflect.Value, size uint64) {
	for _, l := range f {
		l.ObjectMeasured(v, size)
	}
}

func (f fanoutListener) ObjectCounted(v reflect.Value) {
	for _, l := range f {
		l.ObjectCounted(v)
	}
}

func (f fanoutListener) EdgeTraversed(parent reflect.Value, field string, child reflect.Value) {
	for _, l := range f {
		l.EdgeTraversed(parent, field, child)
	}
}

func (f fanoutListener) Done(total uint64) {
	for _, l := range f {
		l.Done(total)
	}
}

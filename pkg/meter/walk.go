package meter

import (
	"bytes"
	"reflect"
	"strconv"
	"sync"
	"unsafe"

	"github.com/matzehuels/heapmeter/pkg/sizer"
)

// walker holds the per-call traversal state: the explicit work stack, the
// identity set of visited blocks, and the per-call shallow-size cache for
// fixed-layout types. Walkers are pooled; every field is reset on release so
// reuse cannot leak state between calls.
type walker struct {
	m     Meter
	sizer sizer.Sizer // nil when counting

	stack     []reflect.Value
	visited   VisitedSet
	sizeCache map[reflect.Type]uint64

	listener Listener
	quiet    bool // listener is the shared no-op

	// ignorable is the designated referent of the block currently being
	// scanned, valid only while hasIgnorable is set.
	ignorable    Identity
	hasIgnorable bool

	pooledVisited bool
}

var walkerPool = sync.Pool{
	New: func() any {
		return &walker{sizeCache: make(map[reflect.Type]uint64)}
	},
}

func (m Meter) newWalker(s sizer.Sizer) *walker {
	w := walkerPool.Get().(*walker)
	w.m = m
	w.sizer = s
	if m.visitedProvider != nil {
		w.visited = m.visitedProvider()
		w.pooledVisited = false
	} else {
		w.visited = visitedPool.Get().(*identitySet)
		w.pooledVisited = true
	}
	w.listener = m.newListener()
	_, w.quiet = w.listener.(noopListener)
	return w
}

// release clears all scratch state and returns the walker to the pool. It
// runs on every exit path, normal or failing.
func (w *walker) release() {
	// The pooled backing array would otherwise keep the last graph's
	// reflect.Values reachable until the next traversal overwrites them.
	w.stack = w.stack[:cap(w.stack)]
	clear(w.stack)
	w.stack = w.stack[:0]
	w.visited.Clear()
	clear(w.sizeCache)
	if w.pooledVisited {
		visitedPool.Put(w.visited)
	}
	w.visited = nil
	w.listener = nil
	w.sizer = nil
	w.m = Meter{}
	w.hasIgnorable = false
	walkerPool.Put(w)
}

// run performs the traversal from the root block. When measure is true each
// visited block contributes its shallow size; otherwise each contributes a
// count of one. The root must already have passed the exclusion check.
func (w *walker) run(root reflect.Value, measure bool) uint64 {
	if id, ok := identityOf(root); ok {
		w.visited.Add(id)
	}
	w.listener.Started(root)
	w.stack = append(w.stack, root)

	var total uint64
	for len(w.stack) > 0 {
		cur := w.stack[len(w.stack)-1]
		w.stack = w.stack[:len(w.stack)-1]

		if measure {
			size := w.blockSize(cur)
			if remaining, ok := w.bufferRemaining(cur); ok {
				// Contribution is the structure overhead plus the
				// logically remaining content; the backing array is
				// deliberately not descended into.
				size += remaining
				total += size
				w.listener.ObjectMeasured(cur, size)
				continue
			}
			total += size
			w.listener.ObjectMeasured(cur, size)
		} else {
			total++
			w.listener.ObjectCounted(cur)
		}

		w.scanChildren(cur)
	}

	w.listener.Done(total)
	return total
}

// blockSize returns the shallow size of one block, memoizing fixed-layout
// types for the duration of the call. Variable-length blocks (backing
// arrays, strings, maps, channels) are always sized per instance.
func (w *walker) blockSize(v reflect.Value) uint64 {
	t := v.Type()
	switch t.Kind() {
	case reflect.Slice, reflect.String, reflect.Map, reflect.Chan:
		return w.sizer.ShallowSize(v)
	}
	if size, ok := w.sizeCache[t]; ok {
		return size
	}
	size := w.sizer.ShallowSize(v)
	w.sizeCache[t] = size
	return size
}

var bufferType = reflect.TypeOf(bytes.Buffer{})

// bufferRemaining reports the unread content length of a buffer-like block
// when the meter is configured to omit backing capacity. The second return
// is false when the block is not buffer-like or full sizing is configured.
func (w *walker) bufferRemaining(v reflect.Value) (uint64, bool) {
	if w.m.fullBufferSize || w.sizer == nil {
		return 0, false
	}
	if v.Type() != bufferType || !v.CanAddr() {
		return 0, false
	}
	buf := (*bytes.Buffer)(v.Addr().UnsafePointer())
	return uint64(buf.Len()), true
}

// scanChildren discovers the blocks referenced by cur and pushes the ones
// not yet visited.
func (w *walker) scanChildren(cur reflect.Value) {
	w.hasIgnorable = false
	switch cur.Kind() {
	case reflect.Struct:
		w.scanStruct(cur)
	case reflect.Array, reflect.Slice:
		w.scanElements(cur)
	case reflect.Map:
		w.scanMap(cur)
	}
	// Strings, channels, funcs and scalar blocks have no discoverable
	// children.
}

func (w *walker) scanStruct(cur reflect.Value) {
	info := w.m.cache.info(cur.Type())
	if info.excluded {
		return
	}
	if w.m.ignoreWeakReferents {
		w.markIgnorableReferent(cur)
	}
	for _, f := range info.fields {
		w.scanValue(cur, f.Name, fieldValue(cur, f))
	}
}

// markIgnorableReferent records the identity of the weakly-held target when
// cur is a weak-style reference holder, so that target is skipped during
// this block's field scan.
func (w *walker) markIgnorableReferent(cur reflect.Value) {
	if !cur.CanAddr() || !cur.Addr().CanInterface() {
		return
	}
	ref, ok := cur.Addr().Interface().(Referent)
	if !ok {
		return
	}
	r := ref.Referent()
	if r == nil {
		return
	}
	block, ok := referentBlock(reflect.ValueOf(r))
	if !ok {
		return
	}
	if id, ok := identityOf(block); ok {
		w.ignorable = id
		w.hasIgnorable = true
	}
}

func (w *walker) scanElements(cur reflect.Value) {
	if !typeContainsPointers(cur.Type().Elem()) {
		return
	}
	for i := 0; i < cur.Len(); i++ {
		name := ""
		if !w.quiet {
			name = strconv.Itoa(i)
		}
		w.scanValue(cur, name, cur.Index(i))
	}
}

func (w *walker) scanMap(cur reflect.Value) {
	t := cur.Type()
	keyPtrs := typeContainsPointers(t.Key())
	elemPtrs := typeContainsPointers(t.Elem())
	if !keyPtrs && !elemPtrs {
		return
	}
	iter := cur.MapRange()
	for iter.Next() {
		if keyPtrs {
			w.scanValue(cur, "key", iter.Key())
		}
		if elemPtrs {
			w.scanValue(cur, "value", iter.Value())
		}
	}
}

// scanValue resolves one inline value to the blocks it references. Inline
// structs and arrays are part of the parent block, so their followable
// contents are scanned in place rather than pushed.
func (w *walker) scanValue(parent reflect.Value, name string, v reflect.Value) {
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return
		}
		w.push(parent, name, v.Elem())
	case reflect.Interface:
		if v.IsNil() {
			return
		}
		w.scanInterface(parent, name, v)
	case reflect.Slice, reflect.Map, reflect.Chan:
		if v.IsNil() {
			return
		}
		w.push(parent, name, v)
	case reflect.String:
		if v.Len() == 0 {
			return
		}
		w.push(parent, name, v)
	case reflect.Struct:
		info := w.m.cache.info(v.Type())
		if info.excluded {
			return
		}
		for _, f := range info.fields {
			w.scanValue(parent, name, fieldValue(v, f))
		}
	case reflect.Array:
		if !typeContainsPointers(v.Type().Elem()) {
			return
		}
		for i := 0; i < v.Len(); i++ {
			w.scanValue(parent, name, v.Index(i))
		}
	}
	// Funcs and unsafe pointers are opaque: there is no sound way to
	// discover what a closure or raw pointer retains.
}

// scanInterface resolves an interface's dynamic value. Pointer-shaped
// dynamic values are handled like ordinary references; other values live in
// a heap box reached through the interface's data word.
func (w *walker) scanInterface(parent reflect.Value, name string, v reflect.Value) {
	e := v.Elem()
	switch e.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Chan,
		reflect.String, reflect.Func, reflect.UnsafePointer:
		w.scanValue(parent, name, e)
	default:
		if !v.CanAddr() {
			// Map keys and values arrive as unaddressable copies of the
			// interface header. Copying the header to addressable storage
			// keeps the data word intact: it still points at the shared
			// box, so identity and sizing are unaffected.
			if !v.CanInterface() {
				return
			}
			cp := reflect.New(v.Type()).Elem()
			cp.Set(v)
			v = cp
		}
		words := (*[2]unsafe.Pointer)(v.Addr().UnsafePointer())
		data := words[1]
		if data == nil {
			return
		}
		w.push(parent, name, reflect.NewAt(e.Type(), data).Elem())
	}
}

// push marks a child block visited and schedules it, unless its type is
// wholly excluded, it is the current block's ignorable referent, or it was
// visited before. Excluded children are not marked visited.
func (w *walker) push(parent reflect.Value, name string, block reflect.Value) {
	if w.m.cache.info(block.Type()).excluded {
		return
	}
	id, ok := identityOf(block)
	if !ok {
		return
	}
	if w.hasIgnorable && id == w.ignorable {
		return
	}
	if !w.visited.Add(id) {
		return
	}
	w.stack = append(w.stack, block)
	if !w.quiet {
		w.listener.EdgeTraversed(parent, name, block)
	}
}

// fieldValue reads one declared field of owner. Addressable owners are read
// through their storage directly, which also grants access to unexported
// fields; non-addressable owners fall back to the read-only view.
func fieldValue(owner reflect.Value, f FieldDescriptor) reflect.Value {
	if owner.CanAddr() {
		p := unsafe.Add(owner.Addr().UnsafePointer(), f.Offset)
		return reflect.NewAt(f.Type, p).Elem()
	}
	return owner.Field(f.Index)
}

// referentBlock resolves the block denoted by an arbitrary value, one
// pointer level deep. Used for weak-referent identity.
func referentBlock(v reflect.Value) (reflect.Value, bool) {
	if !v.IsValid() {
		return reflect.Value{}, false
	}
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Value{}, false
		}
		return v.Elem(), true
	case reflect.Slice, reflect.Map, reflect.Chan, reflect.String, reflect.Func:
		return v, true
	default:
		return reflect.Value{}, false
	}
}

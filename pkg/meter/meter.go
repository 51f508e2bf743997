// Package meter measures the deep, retained memory footprint of live Go
// values. A [Meter] walks the object graph rooted at a value, visiting every
// reachable heap block exactly once, and sums the per-block shallow sizes
// produced by a pluggable [sizer.Sizer].
//
// Meters are immutable values: each With method returns a derived copy, so a
// configured Meter can be shared freely across goroutines.
//
//	m := meter.New().WithMode(sizer.ModeFallbackBest)
//	total, err := m.MeasureDeep(root)
//
// Traversal follows pointers, interfaces, slices, strings, maps and
// channels. Inline struct and array fields belong to their enclosing block
// and never count twice. Funcs and unsafe pointers are treated as opaque.
package meter

import (
	"fmt"
	"io"
	"reflect"
	"time"

	herrors "github.com/matzehuels/heapmeter/pkg/errors"
	"github.com/matzehuels/heapmeter/pkg/observability"
	"github.com/matzehuels/heapmeter/pkg/sizer"
)

// Meter measures values. The zero value is not usable; construct with [New].
type Meter struct {
	cache               *typeCache
	mode                sizer.Mode
	fullBufferSize      bool
	ignoreWeakReferents bool
	listenerFactory     ListenerFactory
	visitedProvider     VisitedSetProvider
}

// New returns a Meter with the default configuration: best-effort sizing,
// full buffer backing included, no exclusion heuristics, no listener.
func New() Meter {
	return Meter{
		cache:          newTypeCache(&policy{}),
		mode:           sizer.ModeFallbackBest,
		fullBufferSize: true,
	}
}

// WithMode returns a copy using the given sizing strategy mode. The mode is
// resolved lazily on each measuring call, so a probe attached after
// configuration is still honored.
func (m Meter) WithMode(mode sizer.Mode) Meter {
	m.mode = mode
	return m
}

// WithFullBufferSize controls how buffer-like blocks are measured. When
// full is true (the default) the backing array contributes its entire
// capacity; when false a buffer contributes only its structure overhead
// plus the logically remaining content length.
func (m Meter) WithFullBufferSize(full bool) Meter {
	m.fullBufferSize = full
	return m
}

// WithIgnoreBackReferences returns a copy that skips fields whose name
// matches the back-reference pattern (parent, outer, owner), breaking the
// usual child-to-container edges.
func (m Meter) WithIgnoreBackReferences() Meter {
	p := m.cache.policy.clone()
	p.ignoreBackRefs = true
	m.cache = newTypeCache(p)
	return m
}

// WithIgnoreSharedSingletons returns a copy that skips values of types
// known to be process-wide shared state, such as type descriptors.
func (m Meter) WithIgnoreSharedSingletons() Meter {
	p := m.cache.policy.clone()
	p.ignoreSingletons = true
	m.cache = newTypeCache(p)
	return m
}

// WithIgnoreWeakReferents returns a copy that skips the designated target
// of any block implementing [Referent], approximating weak-reference
// semantics during traversal.
func (m Meter) WithIgnoreWeakReferents() Meter {
	m.ignoreWeakReferents = true
	return m
}

// WithExcludedTypes returns a copy whose traversal never enters values of
// the given types. An excluded block contributes nothing, is not marked
// visited, and its children are not discovered through it.
func (m Meter) WithExcludedTypes(types ...reflect.Type) Meter {
	p := m.cache.policy.clone()
	if p.excluded == nil {
		p.excluded = make(map[reflect.Type]struct{}, len(types))
	}
	for _, t := range types {
		if t != nil {
			p.excluded[t] = struct{}{}
		}
	}
	m.cache = newTypeCache(p)
	return m
}

// WithListenerFactory returns a copy that constructs one [Listener] per
// measuring call from f. A nil factory restores the default silent
// behavior.
func (m Meter) WithListenerFactory(f ListenerFactory) Meter {
	m.listenerFactory = f
	return m
}

// WithVisitedSetProvider returns a copy using p to allocate the visited set
// for each call. A nil provider restores the pooled default.
func (m Meter) WithVisitedSetProvider(p VisitedSetProvider) Meter {
	m.visitedProvider = p
	return m
}

// WithDebug returns a copy that prints the traversal tree to w, truncated
// at maxDepth levels. It panics if maxDepth is not positive.
func (m Meter) WithDebug(w io.Writer, maxDepth int) Meter {
	if maxDepth <= 0 {
		panic(fmt.Sprintf("meter: debug depth must be positive, got %d", maxDepth))
	}
	m.listenerFactory = NewTreePrinterFactory(w, maxDepth)
	return m
}

// Mode reports the configured sizing strategy mode.
func (m Meter) Mode() sizer.Mode { return m.mode }

func (m Meter) newListener() Listener {
	if m.listenerFactory == nil {
		return NoopListener()
	}
	if l := m.listenerFactory(); l != nil {
		return l
	}
	return NoopListener()
}

// MeasureShallow returns the size of the root block alone, without
// following any references.
func (m Meter) MeasureShallow(v any) (uint64, error) {
	start := time.Now()
	root, err := checkRoot(v)
	if err != nil {
		observability.Measure().OnMeasureStart("shallow", "")
		observability.Measure().OnMeasureComplete("shallow", "", 0, time.Since(start), err)
		return 0, err
	}
	observability.Measure().OnMeasureStart("shallow", root.Type().String())

	s, err := sizer.Resolve(m.mode)
	if err != nil {
		observability.Measure().OnMeasureComplete("shallow", root.Type().String(), 0, time.Since(start), err)
		return 0, err
	}
	size := s.ShallowSize(rootBlock(root))
	observability.Measure().OnMeasureComplete("shallow", root.Type().String(), size, time.Since(start), nil)
	return size, nil
}

// MeasureDeep returns the total footprint of every block reachable from v,
// each counted exactly once regardless of how many paths lead to it.
func (m Meter) MeasureDeep(v any) (total uint64, err error) {
	start := time.Now()
	root, err := checkRoot(v)
	if err != nil {
		observability.Measure().OnMeasureStart("deep", "")
		observability.Measure().OnMeasureComplete("deep", "", 0, time.Since(start), err)
		return 0, err
	}
	rootType := root.Type().String()
	observability.Measure().OnMeasureStart("deep", rootType)
	defer func() {
		observability.Measure().OnMeasureComplete("deep", rootType, total, time.Since(start), err)
	}()

	s, err := sizer.Resolve(m.mode)
	if err != nil {
		return 0, err
	}
	return m.traverse(root, s)
}

// CountReachable returns the number of distinct blocks reachable from v. It
// never consults the sizing strategy, so it succeeds even under
// [sizer.ModeNever].
func (m Meter) CountReachable(v any) (total uint64, err error) {
	start := time.Now()
	root, err := checkRoot(v)
	if err != nil {
		observability.Measure().OnMeasureStart("count", "")
		observability.Measure().OnMeasureComplete("count", "", 0, time.Since(start), err)
		return 0, err
	}
	rootType := root.Type().String()
	observability.Measure().OnMeasureStart("count", rootType)
	defer func() {
		observability.Measure().OnMeasureComplete("count", rootType, total, time.Since(start), err)
	}()

	return m.traverse(root, nil)
}

// traverse runs the walker over the graph rooted at root. A nil sizer
// selects counting. Reflection failures inside the walk surface as
// FIELD_ACCESS_FAILURE errors rather than panics.
func (m Meter) traverse(root reflect.Value, s sizer.Sizer) (total uint64, err error) {
	block := rootBlock(root)
	if m.cache.info(block.Type()).excluded {
		return 0, nil
	}

	w := m.newWalker(s)
	defer w.release()
	defer func() {
		if r := recover(); r != nil {
			total = 0
			if cause, ok := r.(error); ok {
				err = herrors.Wrap(herrors.ErrCodeFieldAccess, cause,
					"traversal of %s failed", block.Type())
			} else {
				err = herrors.New(herrors.ErrCodeFieldAccess,
					"traversal of %s failed: %v", block.Type(), r)
			}
		}
	}()

	return w.run(block, s != nil), nil
}

// checkRoot rejects nil and typed-nil roots.
func checkRoot(v any) (reflect.Value, error) {
	if v == nil {
		return reflect.Value{}, herrors.New(herrors.ErrCodeNilArgument, "cannot measure nil")
	}
	root := reflect.ValueOf(v)
	switch root.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		if root.IsNil() {
			return reflect.Value{}, herrors.New(herrors.ErrCodeNilArgument,
				"cannot measure nil %s", root.Type())
		}
	}
	return root, nil
}

// rootBlock resolves the caller's value to the heap block traversal starts
// from. Pointers are dereferenced one level; reference kinds denote their
// own block; bare values are copied to addressable storage so their fields
// can be read uniformly.
func rootBlock(root reflect.Value) reflect.Value {
	switch root.Kind() {
	case reflect.Pointer:
		return root.Elem()
	case reflect.Slice, reflect.Map, reflect.Chan, reflect.String, reflect.Func:
		return root
	default:
		p := reflect.New(root.Type())
		p.Elem().Set(root)
		return p.Elem()
	}
}

package meter

import (
	"reflect"
	"sync"
	"unsafe"
)

// Identity identifies one heap block by where it lives and what it is. The
// address alone is not enough: a struct and its first field share an address
// but are distinct blocks for exclusion purposes.
//
// Two values are the same node if and only if their identities are equal;
// value equality is never consulted, so types with surprising Equal/== are
// traversed safely.
type Identity struct {
	Addr uintptr
	Type reflect.Type
}

// IdentityOf derives the identity of a block value, as seen by traversal
// and by [Listener] implementations that need to key blocks. The second
// return is false when the value denotes no trackable block (zero-length
// strings, or values with no stable address).
func IdentityOf(v reflect.Value) (Identity, bool) {
	return identityOf(v)
}

// identityOf derives the identity of a block value. The second return is
// false when the value denotes no trackable block (zero-length strings, or
// values with no stable address).
func identityOf(v reflect.Value) (Identity, bool) {
	t := v.Type()
	switch t.Kind() {
	case reflect.Slice, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		p := v.Pointer()
		if p == 0 {
			return Identity{}, false
		}
		return Identity{Addr: p, Type: t}, true
	case reflect.String:
		s := v.String()
		if len(s) == 0 {
			return Identity{}, false
		}
		return Identity{Addr: uintptr(unsafe.Pointer(unsafe.StringData(s))), Type: t}, true
	default:
		if !v.CanAddr() {
			return Identity{}, false
		}
		return Identity{Addr: v.Addr().Pointer(), Type: t}, true
	}
}

// VisitedSet tracks block identities seen during one traversal call. The
// default implementation is a pooled map; callers can supply their own via
// [Meter.WithVisitedSetProvider] to control allocation and reuse.
//
// Implementations need not be safe for concurrent use: a set is owned by
// exactly one traversal at a time.
type VisitedSet interface {
	// Add inserts id and reports whether it was newly added.
	Add(id Identity) bool

	// Clear removes all entries. Called on every traversal exit path.
	Clear()

	// Len returns the number of tracked identities.
	Len() int
}

// VisitedSetProvider supplies the identity set for one traversal call.
type VisitedSetProvider func() VisitedSet

// identitySet is the default map-backed VisitedSet.
type identitySet struct {
	m map[Identity]struct{}
}

func newIdentitySet() *identitySet {
	return &identitySet{m: make(map[Identity]struct{})}
}

func (s *identitySet) Add(id Identity) bool {
	if _, ok := s.m[id]; ok {
		return false
	}
	s.m[id] = struct{}{}
	return true
}

func (s *identitySet) Clear() { clear(s.m) }

func (s *identitySet) Len() int { return len(s.m) }

// visitedPool recycles default identity sets across traversal calls. Sets
// are cleared before being returned to the pool, so reuse never leaks state
// between calls.
var visitedPool = sync.Pool{
	New: func() any { return newIdentitySet() },
}

package meter

import (
	"reflect"
	"sync"

	"github.com/matzehuels/heapmeter/pkg/observability"
)

// FieldDescriptor describes one followable struct field: a field whose value
// may reference further heap blocks.
type FieldDescriptor struct {
	Name   string       // field name as declared
	Index  int          // positional index within the declaring struct
	Offset uintptr      // byte offset within the declaring struct
	Type   reflect.Type // declared field type
}

// typeInfo is the immutable per-type metadata: the ordered followable fields,
// or the wholly-excluded sentinel. Built once per type and reused across all
// traversal calls sharing the cache.
type typeInfo struct {
	fields   []FieldDescriptor
	excluded bool
}

// excludedInfo is the cached sentinel for wholly-excluded types. Distinct
// from a typeInfo with no fields: exclusion means the block is never sized
// either, and the policy is not re-evaluated on later lookups.
var excludedInfo = &typeInfo{excluded: true}

// typeCache lazily builds and memoizes followable-field metadata per type.
// Population is concurrency-safe: a race between two callers building the
// same type wastes one build, and both arrive at identical metadata.
type typeCache struct {
	policy *policy
	infos  sync.Map // reflect.Type -> *typeInfo
}

func newTypeCache(p *policy) *typeCache {
	return &typeCache{policy: p}
}

// info returns the metadata for t, building it on first encounter.
func (c *typeCache) info(t reflect.Type) *typeInfo {
	if v, ok := c.infos.Load(t); ok {
		observability.TypeCache().OnHit(t.String())
		return v.(*typeInfo)
	}
	observability.TypeCache().OnMiss(t.String())

	info := c.build(t)
	if info.excluded {
		observability.TypeCache().OnExcluded(t.String())
	}
	actual, _ := c.infos.LoadOrStore(t, info)
	return actual.(*typeInfo)
}

func (c *typeCache) build(t reflect.Type) *typeInfo {
	if c.policy.excludesType(t) {
		return excludedInfo
	}
	if t.Kind() != reflect.Struct {
		return &typeInfo{}
	}

	var fields []FieldDescriptor
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !typeContainsPointers(f.Type) {
			continue // scalar data, nothing to follow
		}
		if c.policy.excludesField(f) {
			continue
		}
		fields = append(fields, FieldDescriptor{
			Name:   f.Name,
			Index:  i,
			Offset: f.Offset,
			Type:   f.Type,
		})
	}
	return &typeInfo{fields: fields}
}

// typeContainsPointers reports whether values of t can reference memory
// outside their own storage. Pure scalar types (and aggregates of them)
// contribute only to their parent's shallow size and are never followed.
func typeContainsPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Interface,
		reflect.Slice, reflect.Map, reflect.Chan, reflect.Func, reflect.String:
		return true
	case reflect.Array:
		return typeContainsPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if typeContainsPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

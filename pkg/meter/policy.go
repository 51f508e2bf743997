package meter

import (
	"reflect"
	"regexp"
	"runtime"
	"sync"
)

// TagKey is the struct tag consumed by the exclusion policy. A field tagged
// `meter:"-"` is never measured and never followed:
//
//	type Entry struct {
//	    payload []byte
//	    index   *Index `meter:"-"`
//	}
const TagKey = "meter"

// tagExcluded is the tag value marking a field as excluded.
const tagExcluded = "-"

// Referent marks a weak-style reference holder. When a meter is configured
// with [Meter.WithIgnoreWeakReferents], the value returned by Referent is
// not followed from the holder, so weakly-held object graphs do not count
// toward the holder's footprint.
type Referent interface {
	Referent() any
}

// backRefPattern matches the conventional names of back-reference fields:
// the pointer an inner value holds to its enclosing structure.
var backRefPattern = regexp.MustCompile(`(?i)^(parent|outer|owner)$`)

// deniedTypes is the fixed, unconditional denylist of runtime-internal types
// whose traversal is unsound or meaningless: they alias runtime bookkeeping
// that generic introspection must not walk. Not configurable.
var deniedTypes = func() map[reflect.Type]struct{} {
	d := map[reflect.Type]struct{}{
		reflect.TypeOf(reflect.TypeOf(0)): {}, // the dynamic type behind reflect.Type
		reflect.TypeOf(reflect.Value{}):   {},
		reflect.TypeOf(sync.Pool{}):       {},
		reflect.TypeOf(sync.Map{}):        {},
		reflect.TypeOf(runtime.Func{}):    {},
	}
	return d
}()

// typeDescriptorIface is the reflect.Type interface itself; values of this
// interface are shared type descriptors, not per-object memory.
var typeDescriptorIface = reflect.TypeOf((*reflect.Type)(nil)).Elem()

// policy is the composite exclusion rule set. A policy value is immutable
// once owned by a type cache; deriving a meter with different rules builds
// a fresh policy and cache.
type policy struct {
	ignoreBackRefs   bool
	ignoreSingletons bool
	excluded         map[reflect.Type]struct{}
}

func (p *policy) clone() *policy {
	q := &policy{
		ignoreBackRefs:   p.ignoreBackRefs,
		ignoreSingletons: p.ignoreSingletons,
	}
	if len(p.excluded) > 0 {
		q.excluded = make(map[reflect.Type]struct{}, len(p.excluded))
		for t := range p.excluded {
			q.excluded[t] = struct{}{}
		}
	}
	return q
}

// excludesType reports whether values of t are wholly excluded: never
// followed, never sized. The built-in denylist applies regardless of
// configuration.
func (p *policy) excludesType(t reflect.Type) bool {
	if _, ok := deniedTypes[t]; ok {
		return true
	}
	if _, ok := p.excluded[t]; ok {
		return true
	}
	if p.ignoreSingletons && isTypeDescriptor(t) {
		return true
	}
	return false
}

// excludesField reports whether a declared struct field is dropped from the
// followable set.
func (p *policy) excludesField(f reflect.StructField) bool {
	if f.Tag.Get(TagKey) == tagExcluded {
		return true
	}
	if p.ignoreBackRefs && backRefPattern.MatchString(f.Name) {
		return true
	}
	return p.excludesType(f.Type)
}

// isTypeDescriptor reports whether t denotes shared type-descriptor state:
// either the reflect.Type interface or a concrete type implementing it.
func isTypeDescriptor(t reflect.Type) bool {
	if t == typeDescriptorIface {
		return true
	}
	return t.Kind() != reflect.Interface && t.Implements(typeDescriptorIface)
}

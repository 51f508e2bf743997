package meter

import (
	"reflect"
	"runtime"
	"sync"
	"testing"
)

func TestPolicyDeniedTypes(t *testing.T) {
	p := &policy{}
	tests := []struct {
		name string
		typ  reflect.Type
	}{
		{name: "reflect type descriptor", typ: reflect.TypeOf(reflect.TypeOf(0))},
		{name: "reflect.Value", typ: reflect.TypeOf(reflect.Value{})},
		{name: "sync.Pool", typ: reflect.TypeOf(sync.Pool{})},
		{name: "sync.Map", typ: reflect.TypeOf(sync.Map{})},
		{name: "runtime.Func", typ: reflect.TypeOf(runtime.Func{})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !p.excludesType(tt.typ) {
				t.Errorf("excludesType(%v) = false, want true regardless of configuration", tt.typ)
			}
		})
	}
}

func TestPolicyConfiguredExclusions(t *testing.T) {
	p := &policy{excluded: map[reflect.Type]struct{}{
		reflect.TypeOf(leaf{}): {},
	}}

	if !p.excludesType(reflect.TypeOf(leaf{})) {
		t.Error("configured type not excluded")
	}
	if p.excludesType(reflect.TypeOf(pairNode{})) {
		t.Error("unconfigured type excluded")
	}
}

func TestPolicySingletons(t *testing.T) {
	p := &policy{ignoreSingletons: true}
	if !p.excludesType(typeDescriptorIface) {
		t.Error("type descriptor interface not excluded under singleton policy")
	}

	q := &policy{}
	if q.excludesType(typeDescriptorIface) {
		t.Error("type descriptor interface excluded without singleton policy")
	}
}

func TestPolicyBackRefFields(t *testing.T) {
	tests := []struct {
		field string
		want  bool
	}{
		{field: "Parent", want: true},
		{field: "parent", want: true},
		{field: "OUTER", want: true},
		{field: "owner", want: true},
		{field: "Owner", want: true},
		{field: "Parents", want: false},
		{field: "ownerID", want: false},
		{field: "Next", want: false},
	}
	p := &policy{ignoreBackRefs: true}
	ptr := reflect.TypeOf((*int)(nil))
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			f := reflect.StructField{Name: tt.field, Type: ptr}
			if got := p.excludesField(f); got != tt.want {
				t.Errorf("excludesField(%s) = %v, want %v", tt.field, got, tt.want)
			}
		})
	}

	// Without the policy the same names are followable.
	q := &policy{}
	if q.excludesField(reflect.StructField{Name: "Parent", Type: ptr}) {
		t.Error("Parent excluded without back-ref policy")
	}
}

func TestPolicyTagAlwaysApplies(t *testing.T) {
	f := reflect.StructField{
		Name: "Skipped",
		Type: reflect.TypeOf((*int)(nil)),
		Tag:  `meter:"-"`,
	}
	if !(&policy{}).excludesField(f) {
		t.Error(`field tagged meter:"-" not excluded`)
	}
}

func TestPolicyClone(t *testing.T) {
	p := &policy{
		ignoreBackRefs: true,
		excluded: map[reflect.Type]struct{}{
			reflect.TypeOf(leaf{}): {},
		},
	}
	q := p.clone()
	q.excluded[reflect.TypeOf(pairNode{})] = struct{}{}

	if p.excludesType(reflect.TypeOf(pairNode{})) {
		t.Error("mutating a clone leaked into the original")
	}
	if !q.excludesType(reflect.TypeOf(leaf{})) {
		t.Error("clone lost an existing exclusion")
	}
	if !q.ignoreBackRefs {
		t.Error("clone lost the back-ref flag")
	}
}

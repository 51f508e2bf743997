package meter

import (
	"reflect"
	"testing"
)

func TestIdentityStructVsFirstField(t *testing.T) {
	type inner struct{ p *int }
	type outer struct{ in inner }

	o := &outer{}
	ov := reflect.ValueOf(o).Elem()
	iv := ov.Field(0)

	oid, ok := identityOf(ov)
	if !ok {
		t.Fatal("no identity for outer")
	}
	iid, ok := identityOf(iv)
	if !ok {
		t.Fatal("no identity for inner")
	}
	if oid.Addr != iid.Addr {
		t.Errorf("outer and first field addresses differ: %#x vs %#x", oid.Addr, iid.Addr)
	}
	if oid == iid {
		t.Error("outer and first field share an identity; types must disambiguate")
	}
}

func TestIdentitySharedSliceBacking(t *testing.T) {
	a := make([]int, 8)
	b := a[:4]
	c := a[2:]

	aid, _ := identityOf(reflect.ValueOf(a))
	bid, _ := identityOf(reflect.ValueOf(b))
	cid, _ := identityOf(reflect.ValueOf(c))

	if aid != bid {
		t.Error("full slice and prefix view should share an identity")
	}
	if aid == cid {
		t.Error("offset view starts at a different address, identities must differ")
	}
}

func TestIdentityStrings(t *testing.T) {
	s := "identity"
	v1 := reflect.ValueOf(s)
	v2 := reflect.ValueOf(s)

	id1, ok := identityOf(v1)
	if !ok {
		t.Fatal("no identity for non-empty string")
	}
	id2, _ := identityOf(v2)
	if id1 != id2 {
		t.Error("same string value produced different identities")
	}

	if _, ok := identityOf(reflect.ValueOf("")); ok {
		t.Error("empty string should have no identity")
	}
}

func TestIdentityNonAddressable(t *testing.T) {
	// A bare struct value has no stable address and therefore no identity.
	if _, ok := identityOf(reflect.ValueOf(leaf{})); ok {
		t.Error("non-addressable struct should have no identity")
	}
}

func TestIdentitySet(t *testing.T) {
	s := newIdentitySet()
	id := Identity{Addr: 0x1000, Type: reflect.TypeOf(0)}

	if !s.Add(id) {
		t.Error("first Add returned false")
	}
	if s.Add(id) {
		t.Error("second Add returned true")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}

	other := Identity{Addr: 0x1000, Type: reflect.TypeOf("")}
	if !s.Add(other) {
		t.Error("same address with different type should be a distinct entry")
	}

	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", s.Len())
	}
	if !s.Add(id) {
		t.Error("Add after Clear returned false")
	}
}

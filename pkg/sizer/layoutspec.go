package sizer

import (
	"reflect"
)

// LayoutSpec describes an assumed memory layout: word width, header sizes
// and alignment rules. The spec strategy applies it to a type's declared
// fields instead of asking the runtime, so it works on any host but is only
// approximate on platforms whose real layout differs.
type LayoutSpec struct {
	PointerBytes     uint64 // width of a pointer / word
	StringHeaderMax  uint64 // string header (data pointer + length)
	SliceHeaderBytes uint64 // slice header (data pointer + length + capacity)
	InterfaceBytes   uint64 // interface value (type word + data word)
	MapHeaderBytes   uint64 // map structure base
	MapEntryOverhead uint64 // per-entry bookkeeping beyond key and element
	ChanHeaderBytes  uint64 // channel structure base
	AlignmentBytes   uint64 // maximum field alignment
}

// DefaultLayoutSpec returns the layout of a common 64-bit platform.
func DefaultLayoutSpec() LayoutSpec {
	return LayoutSpec{
		PointerBytes:     8,
		StringHeaderMax:  16,
		SliceHeaderBytes: 24,
		InterfaceBytes:   16,
		MapHeaderBytes:   48,
		MapEntryOverhead: 3,
		ChanHeaderBytes:  96,
		AlignmentBytes:   8,
	}
}

// specSizer computes sizes purely from a LayoutSpec applied to declared
// fields, with alignment padding between fields and at the end of structs.
type specSizer struct {
	spec LayoutSpec
}

// NewSpecSizer returns the layout-spec strategy for the given spec.
func NewSpecSizer(spec LayoutSpec) Sizer {
	return &specSizer{spec: spec}
}

func (s *specSizer) ShallowSize(v reflect.Value) uint64 {
	t := v.Type()
	switch t.Kind() {
	case reflect.Slice:
		return uint64(v.Cap()) * s.typeBytes(t.Elem())
	case reflect.String:
		return uint64(v.Len())
	case reflect.Map:
		perEntry := s.typeBytes(t.Key()) + s.typeBytes(t.Elem()) + s.spec.MapEntryOverhead
		return s.spec.MapHeaderBytes + uint64(v.Len())*perEntry
	case reflect.Chan:
		return s.spec.ChanHeaderBytes + uint64(v.Cap())*s.typeBytes(t.Elem())
	default:
		return s.typeBytes(t)
	}
}

// typeBytes returns the declared size of t under the spec, including struct
// padding. Variable-length kinds yield their header size; per-instance
// content is handled by ShallowSize.
func (s *specSizer) typeBytes(t reflect.Type) uint64 {
	switch t.Kind() {
	case reflect.Bool, reflect.Int8, reflect.Uint8:
		return 1
	case reflect.Int16, reflect.Uint16:
		return 2
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return 4
	case reflect.Int64, reflect.Uint64, reflect.Float64, reflect.Complex64:
		return 8
	case reflect.Complex128:
		return 16
	case reflect.Int, reflect.Uint, reflect.Uintptr,
		reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Chan, reflect.Func:
		return s.spec.PointerBytes
	case reflect.String:
		return s.spec.StringHeaderMax
	case reflect.Slice:
		return s.spec.SliceHeaderBytes
	case reflect.Interface:
		return s.spec.InterfaceBytes
	case reflect.Array:
		return uint64(t.Len()) * s.typeBytes(t.Elem())
	case reflect.Struct:
		return s.structBytes(t)
	default:
		return s.spec.PointerBytes
	}
}

func (s *specSizer) structBytes(t reflect.Type) uint64 {
	var size uint64
	var maxAlign uint64 = 1
	for i := 0; i < t.NumField(); i++ {
		fieldBytes := s.typeBytes(t.Field(i).Type)
		align := s.alignBytes(fieldBytes)
		if align > maxAlign {
			maxAlign = align
		}
		size = roundUp(size, align) + fieldBytes
	}
	if size == 0 {
		return 0
	}
	return roundUp(size, maxAlign)
}

// alignBytes returns the alignment for a field of the given size, capped at
// the spec's maximum alignment.
func (s *specSizer) alignBytes(size uint64) uint64 {
	align := uint64(1)
	for align < size && align < s.spec.AlignmentBytes {
		align *= 2
	}
	return align
}

func roundUp(n, align uint64) uint64 {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}

package sizer

import (
	"reflect"
)

// Runtime-internal structure sizes used when reflect cannot report a block's
// footprint directly. Maps and channels hide their layout behind a pointer;
// these estimates track the runtime's hmap and hchan headers on 64-bit
// platforms and are close enough for footprint diagnostics.
const (
	mapHeaderBytes    = 48 // runtime hmap
	mapBucketOverhead = 16 // per-bucket tophash array + overflow pointer
	mapBucketEntries  = 8
	chanHeaderBytes   = 96 // runtime hchan
)

// lowLevelSizer derives exact platform sizes from the runtime's own type
// metadata. Fixed-layout blocks use the type's reported size (which already
// includes alignment padding); variable-length blocks are computed per
// instance from their length or capacity.
type lowLevelSizer struct{}

// NewLowLevelSizer returns the low-level accessor strategy.
// Callers should check [HasLowLevelAccess] before use; [Resolve] does so.
func NewLowLevelSizer() Sizer {
	return lowLevelSizer{}
}

func (lowLevelSizer) ShallowSize(v reflect.Value) uint64 {
	t := v.Type()
	switch t.Kind() {
	case reflect.Slice:
		// The block is the backing array: capacity, not length.
		return uint64(v.Cap()) * uint64(t.Elem().Size())
	case reflect.String:
		return uint64(v.Len())
	case reflect.Map:
		return mapBlockBytes(uint64(v.Len()), uint64(t.Key().Size()), uint64(t.Elem().Size()))
	case reflect.Chan:
		return chanHeaderBytes + uint64(v.Cap())*uint64(t.Elem().Size())
	default:
		return uint64(t.Size())
	}
}

// mapBlockBytes estimates the in-heap footprint of a map with n entries.
// Buckets hold eight entries each and are allocated in power-of-two counts
// sized for a 6.5 average load factor.
func mapBlockBytes(n, keyBytes, elemBytes uint64) uint64 {
	buckets := uint64(1)
	for buckets*13/2 < n {
		buckets *= 2
	}
	bucketBytes := mapBucketOverhead + mapBucketEntries*(keyBytes+elemBytes)
	return mapHeaderBytes + buckets*bucketBytes
}

// Package runtimeprobe provides a sizing probe backed by the Go runtime's
// allocation size classes.
//
// The runtime never allocates a block of exactly the requested size: small
// objects are rounded up to one of a fixed set of size classes, and large
// objects to whole pages. A raw layout size therefore undercounts what the
// heap is actually charged. This probe reports the allocator-rounded size,
// which is what a heap profiler observes.
//
// Attach it during process startup, before the first measurement:
//
//	runtimeprobe.Attach()
//	m := meter.New() // ModeNever now succeeds
package runtimeprobe

import (
	"reflect"

	"github.com/matzehuels/heapmeter/pkg/sizer"
)

// classSizes mirrors the runtime's malloc size classes (runtime/sizeclasses.go).
var classSizes = [...]uint64{
	8, 16, 24, 32, 48, 64, 80, 96, 112, 128,
	144, 160, 176, 192, 208, 224, 240, 256, 288, 320,
	352, 384, 416, 448, 480, 512, 576, 640, 704, 768,
	896, 1024, 1152, 1280, 1408, 1536, 1792, 2048, 2304, 2688,
	3072, 3200, 3456, 4096, 4864, 5376, 6144, 6528, 6784, 6912,
	8192, 9472, 9728, 10240, 10880, 12288, 13568, 14336, 16384, 18432,
	19072, 20480, 21760, 24576, 27264, 28672, 32768,
}

// pageBytes is the allocation granularity for objects above the largest
// size class.
const pageBytes = 8192

// Roundup returns the number of bytes the allocator hands out for a request
// of n bytes. Zero-byte requests stay zero; they share the runtime's
// zero-size base and occupy no heap.
func Roundup(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	if n > classSizes[len(classSizes)-1] {
		return (n + pageBytes - 1) / pageBytes * pageBytes
	}
	// The table is small; linear scan beats binary search for the common
	// tiny-object cases.
	for _, c := range classSizes {
		if n <= c {
			return c
		}
	}
	return n
}

// probe reports allocator-rounded block sizes. The raw layout size comes
// from the low-level accessor; rounding adds the allocator's slack.
type probe struct {
	raw sizer.Sizer
}

// New returns a probe suitable for [sizer.AttachProbe].
func New() sizer.Probe {
	return probe{raw: sizer.NewLowLevelSizer()}
}

// Attach registers the runtime probe as the process-wide sizing capability.
func Attach() {
	sizer.AttachProbe(New())
}

func (p probe) ShallowSizeOf(t reflect.Type, v reflect.Value) uint64 {
	return Roundup(p.raw.ShallowSize(v))
}

// Package sizer computes the shallow footprint of individual memory blocks.
//
// A shallow size covers one block's own storage: the bytes a struct, backing
// array, string, map or channel occupies itself, excluding anything it
// references. Deep measurement over whole object graphs is the job of
// [github.com/matzehuels/heapmeter/pkg/meter], which drives a Sizer across
// every reachable block.
//
// # Strategies
//
// Three interchangeable strategies exist:
//
//   - Probe: delegates to a host-attached sizing capability (see [AttachProbe]).
//     Most accurate, since the probe can account for what the allocator
//     actually hands out, but requires the surrounding process to attach one
//     before first use.
//   - Low-level accessor: derives exact platform layout from the runtime's
//     own type metadata (sizes, alignments, field offsets). Available when
//     low-level introspection is permitted, see [HasLowLevelAccess].
//   - Layout spec: computes sizes from a declared [LayoutSpec] (pointer
//     width, header sizes, alignment) applied to a type's fields. Always
//     available, approximate on platforms that differ from the spec.
//
// Which strategy is used, and how fallbacks are ordered, is governed by a
// [Mode] resolved once per measurement call via [Resolve].
package sizer

import (
	"reflect"
	"sync"
)

// Sizer computes the shallow size in bytes of the block denoted by a value.
// The value must be valid and non-nil; variable-length blocks (slices,
// strings, maps, channels) are sized per instance.
type Sizer interface {
	ShallowSize(v reflect.Value) uint64
}

// Probe is the host-provided exact sizing capability. The surrounding
// system is responsible for attaching one via [AttachProbe] before first
// use; the library never attaches a probe on its own.
type Probe interface {
	// ShallowSizeOf returns the allocated size in bytes of the block of
	// type t denoted by v.
	ShallowSizeOf(t reflect.Type, v reflect.Value) uint64
}

var (
	probeMu sync.RWMutex
	probe   Probe
)

// AttachProbe registers the host sizing probe used by probe-backed modes.
// It is typically called once during process startup.
func AttachProbe(p Probe) {
	probeMu.Lock()
	defer probeMu.Unlock()
	probe = p
}

// DetachProbe removes any attached probe.
// This is primarily useful for testing.
func DetachProbe() {
	probeMu.Lock()
	defer probeMu.Unlock()
	probe = nil
}

// HasProbe reports whether a host probe is attached.
func HasProbe() bool {
	probeMu.RLock()
	defer probeMu.RUnlock()
	return probe != nil
}

func attachedProbe() Probe {
	probeMu.RLock()
	defer probeMu.RUnlock()
	return probe
}

// lowLevelAccess gates the low-level accessor strategy. It is a variable so
// tests can simulate hosts where low-level introspection is unavailable.
var lowLevelAccess = true

// HasLowLevelAccess reports whether the low-level accessor strategy can be
// used in this process.
func HasLowLevelAccess() bool {
	return lowLevelAccess
}

// probeSizer adapts an attached Probe to the Sizer interface.
type probeSizer struct {
	probe Probe
}

func (s probeSizer) ShallowSize(v reflect.Value) uint64 {
	return s.probe.ShallowSizeOf(v.Type(), v)
}

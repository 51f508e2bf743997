// Package observability provides hooks for metrics and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about measurement runs and type-metadata cache activity.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// Hooks carry no context argument: a traversal is synchronous and
// uncancellable, so there is no per-call context to propagate.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetMeasureHooks(&myMeasureHooks{})
//	    observability.SetTypeCacheHooks(&myTypeCacheHooks{})
//	    // ... run application
//	}
package observability

import (
	"sync"
	"time"
)

// =============================================================================
// Measure Hooks
// =============================================================================

// MeasureHooks receives events from measurement runs.
type MeasureHooks interface {
	// OnMeasureStart records the beginning of a deep measurement or count.
	// op is "deep", "shallow", or "count"; rootType names the root's type.
	OnMeasureStart(op, rootType string)

	// OnMeasureComplete records the end of a measurement run.
	// total is the aggregate (bytes or node count, depending on op).
	OnMeasureComplete(op, rootType string, total uint64, duration time.Duration, err error)
}

// =============================================================================
// Type Cache Hooks
// =============================================================================

// TypeCacheHooks receives events from the followable-field metadata cache.
type TypeCacheHooks interface {
	// OnHit records a cache hit for a type's field metadata.
	OnHit(typeName string)

	// OnMiss records a cache miss; the metadata is built and memoized.
	OnMiss(typeName string)

	// OnExcluded records that a type was classified as wholly excluded.
	OnExcluded(typeName string)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopMeasureHooks is a no-op implementation of MeasureHooks.
type NoopMeasureHooks struct{}

func (NoopMeasureHooks) OnMeasureStart(string, string)                                  {}
func (NoopMeasureHooks) OnMeasureComplete(string, string, uint64, time.Duration, error) {}

// NoopTypeCacheHooks is a no-op implementation of TypeCacheHooks.
type NoopTypeCacheHooks struct{}

func (NoopTypeCacheHooks) OnHit(string)      {}
func (NoopTypeCacheHooks) OnMiss(string)     {}
func (NoopTypeCacheHooks) OnExcluded(string) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	measureHooks   MeasureHooks   = NoopMeasureHooks{}
	typeCacheHooks TypeCacheHooks = NoopTypeCacheHooks{}
	hooksMu        sync.RWMutex
)

// SetMeasureHooks registers custom measurement hooks.
// This should be called once at application startup before any measurements.
func SetMeasureHooks(h MeasureHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		measureHooks = h
	}
}

// SetTypeCacheHooks registers custom type-cache hooks.
// This should be called once at application startup before any measurements.
func SetTypeCacheHooks(h TypeCacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		typeCacheHooks = h
	}
}

// Measure returns the registered measurement hooks.
func Measure() MeasureHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return measureHooks
}

// TypeCache returns the registered type-cache hooks.
func TypeCache() TypeCacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return typeCacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	measureHooks = NoopMeasureHooks{}
	typeCacheHooks = NoopTypeCacheHooks{}
}

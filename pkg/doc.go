// Package pkg provides the core libraries for Heapmeter memory measurement.
//
// # Overview
//
// Heapmeter reports the deep, retained memory footprint of live Go values:
// how many bytes a structure really holds onto, counting every reachable
// heap block exactly once. The pkg directory is organized into five areas:
//
//  1. [meter] - Graph traversal (identity tracking, exclusion policy, listeners)
//  2. [sizer] - Shallow block sizing (probe, low-level accessor, layout spec)
//  3. [dot], [meterui] - Output surfaces (graph diagrams, debug HTTP)
//  4. [store] - Report persistence
//  5. [errors], [observability], [buildinfo] - Shared infrastructure
//
// # Architecture
//
// The typical data flow through Heapmeter:
//
//	live value
//	     ↓
//	[meter] package (walk the object graph, dedupe blocks)
//	     ↓
//	[sizer] package (shallow size per block, mode-selected strategy)
//	     ↓
//	totals, per-type statistics, DOT diagrams, HTTP reports
//
// # Quick Start
//
// Measure a value with defaults:
//
//	total, err := meter.New().MeasureDeep(v)
//
// Pick a sizing strategy and inspect per-type usage:
//
//	rec := meter.NewStatsRecorder()
//	m := meter.New().
//	    WithMode(sizer.ModeFallbackBest).
//	    WithListenerFactory(rec.Factory())
//	total, err := m.MeasureDeep(v)
package pkg

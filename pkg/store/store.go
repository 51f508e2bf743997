// Package store persists measurement reports between process runs.
//
// The debug HTTP surface keeps completed scan reports in memory; a Store
// gives them durability, so a report URL handed to a colleague still works
// after a restart. Two implementations exist: [FileStore] for CLI usage and
// [NullStore] when persistence is disabled.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Store is a byte-oriented key/value store with per-entry expiry. Values
// are opaque to the store; callers marshal their own payloads.
type Store interface {
	// Get retrieves the value stored under key. The second return reports
	// whether a live entry was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes the entry under key. Deleting an absent key is not an
	// error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}

// hashKey maps an arbitrary key to a fixed-length hex string, keeping file
// names safe regardless of what callers use as keys.
func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

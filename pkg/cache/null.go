package cache

import (
	"context"
	"time"
)

// NullCache stands in for a cache when caching is turned off with
// --no-cache or when no cache directory is available. Every lookup misses.
type NullCache struct{}

// NewNullCache returns a cache that stores nothing.
func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(context.Context, string) ([]byte, bool, error)         { return nil, false, nil }
func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NullCache) Delete(context.Context, string) error                     { return nil }
func (NullCache) Close() error                                             { return nil }

// Enabled reports whether c stores anything. Callers use it to skip
// encoding values that would be discarded.
func Enabled(c Cache) bool {
	if c == nil {
		return false
	}
	_, off := c.(NullCache)
	return !off
}

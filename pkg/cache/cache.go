// Package cache stores generated shader sources and validation reports.
//
// Three implementations share the [Cache] interface: [FileCache] for the
// CLI, [RedisCache] for the HTTP server and [NullCache] when caching is off.
// Keys come from a [Keyer] so that callers never build them by hand.
package cache

import (
	"context"
	"time"
)

// Cache TTLs.
const (
	// TTLDocument is how long a validation report is kept.
	TTLDocument = 24 * time.Hour

	// TTLShader is how long generated shader source is kept. Keys include
	// the document and library digests, so entries never go stale.
	TTLShader = 7 * 24 * time.Hour
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the stored value and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data for ttl; a zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases resources held by the cache.
	Close() error
}

// ShaderKeyOpts are the generation options that change shader output.
type ShaderKeyOpts struct {
	Target         string `json:"target"`
	Element        string `json:"element,omitempty"`
	All            bool   `json:"all,omitempty"`
	UDIM           bool   `json:"udim,omitempty"`
	ColorSpace     string `json:"color_space"`
	DistanceUnit   string `json:"distance_unit"`
	NoVerticalFlip bool   `json:"no_vertical_flip,omitempty"`
}

// Keyer derives cache keys.
type Keyer interface {
	// DocumentKey identifies the validation report of a document checked
	// against a library.
	DocumentKey(docHash, libraryHash string) string
	// ShaderKey identifies the shaders generated from a document.
	ShaderKey(docHash, libraryHash string, opts ShaderKeyOpts) string
}

// DefaultKeyer hashes every key component into a fixed-length key.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// DocumentKey implements Keyer.
func (DefaultKeyer) DocumentKey(docHash, libraryHash string) string {
	return hashKey("document", docHash, libraryHash)
}

// ShaderKey implements Keyer.
func (DefaultKeyer) ShaderKey(docHash, libraryHash string, opts ShaderKeyOpts) string {
	return hashKey("shader", docHash, libraryHash, opts)
}

package cache

// ScopedKeyer wraps a Keyer with a prefix so that several deployments can
// share one Redis instance without seeing each other's entries.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "mtlxgen:v1:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// DocumentKey generates a prefixed key for validation reports.
func (k *ScopedKeyer) DocumentKey(docHash, libraryHash string) string {
	return k.prefix + k.inner.DocumentKey(docHash, libraryHash)
}

// ShaderKey generates a prefixed key for generated shaders.
func (k *ScopedKeyer) ShaderKey(docHash, libraryHash string, opts ShaderKeyOpts) string {
	return k.prefix + k.inner.ShaderKey(docHash, libraryHash, opts)
}

package cache

// ScopedKeyer wraps a Keyer with a prefix so that several databases can
// share one Redis instance without seeing each other's entries.
//
//	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "run42:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer uses
// [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) ImageKey(stateHash string, opts ImageKeyOpts) string {
	return k.prefix + k.inner.ImageKey(stateHash, opts)
}

func (k *ScopedKeyer) WebGLKey(stateHash string, opts WebGLKeyOpts) string {
	return k.prefix + k.inner.WebGLKey(stateHash, opts)
}

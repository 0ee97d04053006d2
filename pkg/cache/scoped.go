package cache

// ScopedKeyer prefixes every key of an inner Keyer. The HTTP server uses it
// to keep API results apart from CLI results on a shared backend.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner with prefix. A nil inner uses DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ResultKey returns the prefixed key of the inner keyer.
func (k *ScopedKeyer) ResultKey(datasetHash string, opts ResultKeyOpts) string {
	return k.prefix + k.inner.ResultKey(datasetHash, opts)
}

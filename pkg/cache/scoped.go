package cache

// ScopedKeyer prefixes every key of an inner Keyer, so several documents or
// tenants can share one Redis database without clearing each other out.
//
//	keyer := cache.NewScopedKeyer(nil, "doc:"+doc.ID+":")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer returns a keyer that prepends prefix. A nil inner uses
// DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// PlanKey implements Keyer.
func (k *ScopedKeyer) PlanKey(sceneHash string, step int, opts PlanKeyOpts) string {
	return k.prefix + k.inner.PlanKey(sceneHash, step, opts)
}

// ReportKey implements Keyer.
func (k *ScopedKeyer) ReportKey(sceneHash string, opts PlanKeyOpts) string {
	return k.prefix + k.inner.ReportKey(sceneHash, opts)
}

// ArtifactKey implements Keyer.
func (k *ScopedKeyer) ArtifactKey(planHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(planHash, opts)
}

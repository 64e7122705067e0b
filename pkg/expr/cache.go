package expr

import (
	"sync"

	"github.com/matzehuels/stepgrid/pkg/variable"
)

// Cache memoizes parsed formulas. The same formula is typically evaluated
// once per step for every entity that carries it, so parsing once pays off.
// A Cache holds at most Options.CacheSize formulas; when full it starts over
// empty. A Cache is safe for concurrent use; the zero value is not, use
// NewCache.
type Cache struct {
	opts Options
	mu   sync.RWMutex
	m    map[string]cached
}

type cached struct {
	expr *Expr
	err  error
}

// NewCache returns an empty cache that parses with opts.
func NewCache(opts Options) *Cache {
	return &Cache{opts: opts, m: make(map[string]cached)}
}

// Parse returns the parsed form of src, parsing it on first use. Parse
// failures are cached too.
func (c *Cache) Parse(src string) (*Expr, error) {
	c.mu.RLock()
	hit, ok := c.m[src]
	c.mu.RUnlock()
	if ok {
		return hit.expr, hit.err
	}

	e, err := ParseOptions(src, c.opts)
	c.mu.Lock()
	if _, ok := c.m[src]; !ok && len(c.m) >= c.opts.cacheSize() {
		clear(c.m)
	}
	c.m[src] = cached{expr: e, err: err}
	c.mu.Unlock()
	return e, err
}

// Evaluate parses (or reuses) src and evaluates it against snap.
func (c *Cache) Evaluate(src string, snap variable.Snapshot) (float64, error) {
	e, err := c.Parse(src)
	if err != nil {
		return 0, err
	}
	return e.Eval(snap)
}

// Len returns the number of cached formulas.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

var shared = NewCache(Options{})

// Evaluate parses src and evaluates it against snap, using a process-wide
// parse cache.
func Evaluate(src string, snap variable.Snapshot) (float64, error) {
	return shared.Evaluate(src, snap)
}

// Validate reports whether src parses. Candidate formulas are not cached.
func Validate(src string) error {
	_, err := Parse(src)
	return err
}

// Package cache stores resolved plans and rendered artifacts between runs.
//
// Keys are produced by a [Keyer] from content hashes, so a changed scene,
// timeline or board always misses. Three backends implement [Cache]:
//
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [RedisCache]: a shared cache for `stepgrid serve` deployments
//   - [NullCache]: caching disabled
package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the stored value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Default entry lifetimes.
const (
	PlanTTL     = 7 * 24 * time.Hour
	ArtifactTTL = 24 * time.Hour
)

// Key types reported to observability hooks.
const (
	KeyTypePlan     = "plan"
	KeyTypeReport   = "report"
	KeyTypeArtifact = "artifact"
)

// =============================================================================
// Keys
// =============================================================================

// Keyer builds cache keys.
type Keyer interface {
	// PlanKey addresses the resolved plan of a scene at one step.
	PlanKey(sceneHash string, step int, opts PlanKeyOpts) string

	// ReportKey addresses the timeline validation report of a scene.
	ReportKey(sceneHash string, opts PlanKeyOpts) string

	// ArtifactKey addresses a rendered plan.
	ArtifactKey(planHash string, opts ArtifactKeyOpts) string
}

// PlanKeyOpts holds everything besides the scene that changes a plan.
type PlanKeyOpts struct {
	Timeline string `json:"timeline"` // Timeline fingerprint
	Rows     int    `json:"rows"`
	Cols     int    `json:"cols"`
	MaxSize  int    `json:"max_size"`
}

// ArtifactKeyOpts selects a rendering.
type ArtifactKeyOpts struct {
	Format string `json:"format"`
}

// DefaultKeyer hashes key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// PlanKey implements Keyer.
func (DefaultKeyer) PlanKey(sceneHash string, step int, opts PlanKeyOpts) string {
	return hashKey(KeyTypePlan, sceneHash, step, opts)
}

// ReportKey implements Keyer.
func (DefaultKeyer) ReportKey(sceneHash string, opts PlanKeyOpts) string {
	return hashKey(KeyTypeReport, sceneHash, opts)
}

// ArtifactKey implements Keyer.
func (DefaultKeyer) ArtifactKey(planHash string, opts ArtifactKeyOpts) string {
	return hashKey(KeyTypeArtifact, planHash, opts)
}

// DefaultDir returns the per-user directory used by the CLI's file cache.
func DefaultDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("user cache dir: %w", err)
	}
	return filepath.Join(dir, "stepgrid"), nil
}

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/stepgrid/pkg/binding"
	"github.com/matzehuels/stepgrid/pkg/cache"
	"github.com/matzehuels/stepgrid/pkg/document"
	"github.com/matzehuels/stepgrid/pkg/observability"
	"github.com/matzehuels/stepgrid/pkg/resolve"
	"github.com/matzehuels/stepgrid/pkg/scene"
	"github.com/matzehuels/stepgrid/pkg/validate"
)

// Runner executes the pipeline with caching. It holds no per-run state, so
// one Runner may serve concurrent runs.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	TTL    time.Duration // Lifetime of cached plans and reports; zero means cache.PlanTTL
}

// NewRunner returns a runner. A nil cache disables caching, a nil keyer
// uses cache.DefaultKeyer and a nil logger uses log.Default.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Execute resolves and renders d.
func (r *Runner) Execute(ctx context.Context, d *document.Document, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(d.Timeline().Len()); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result, err := r.Resolve(ctx, d, opts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result.Artifacts, err = r.render(ctx, result.Plans, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Stats.RenderTime = time.Since(start)

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)
	return result, nil
}

// render renders plans in every requested format, reusing cached
// artifacts of identical plans.
func (r *Runner) render(ctx context.Context, plans []resolve.PlanJSON, opts Options) (map[string][]byte, error) {
	data, err := json.Marshal(plans)
	if err != nil {
		return nil, err
	}
	planHash := cache.Hash(data)

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		key := r.Keyer.ArtifactKey(planHash, cache.ArtifactKeyOpts{Format: format})
		if !opts.Refresh {
			if out, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
				observability.Cache().OnCacheHit(ctx, cache.KeyTypeArtifact)
				artifacts[format] = out
				continue
			}
			observability.Cache().OnCacheMiss(ctx, cache.KeyTypeArtifact)
		}

		out, err := Render(plans, []string{format})
		if err != nil {
			return nil, err
		}
		artifacts[format] = out[format]
		if err := r.Cache.Set(ctx, key, out[format], cache.ArtifactTTL); err == nil {
			observability.Cache().OnCacheSet(ctx, cache.KeyTypeArtifact, len(out[format]))
		}
	}
	return artifacts, nil
}

// Resolve resolves the requested steps of d concurrently. Cached plans are
// used unless opts.Refresh is set.
func (r *Runner) Resolve(ctx context.Context, d *document.Document, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(d.Timeline().Len()); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	s, err := d.Store()
	if err != nil {
		return nil, err
	}
	sceneHash, err := SceneHash(s)
	if err != nil {
		return nil, err
	}
	bind := r.binding(d, opts)
	engine := resolve.NewEngine(resolve.NewResolver(bind), d.Timeline(), opts.Logger)
	keyOpts := planKeyOpts(d, bind)

	result := &Result{
		DocumentID: d.ID,
		SceneHash:  sceneHash,
		Plans:      make([]resolve.PlanJSON, len(opts.Steps)),
	}
	hits := make([]bool, len(opts.Steps))

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Parallelism)
	for i, step := range opts.Steps {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			plan, hit, err := r.plan(gctx, engine, s, step, r.Keyer.PlanKey(sceneHash, step, keyOpts), opts.Refresh)
			if err != nil {
				return fmt.Errorf("step %d: %w", step+1, err)
			}
			result.Plans[i], hits[i] = plan, hit
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.Stats.ResolveTime = time.Since(start)
	result.Stats.Steps = len(opts.Steps)
	result.Stats.Entities = s.Len()
	for i, p := range result.Plans {
		if hits[i] {
			result.CacheInfo.PlanHits++
		} else {
			result.CacheInfo.PlanMisses++
		}
		for _, c := range p.Cells {
			if c.InvalidReason != "" {
				result.Stats.Invalid++
			}
		}
	}

	r.Logger.Info("resolved steps",
		"steps", result.Stats.Steps,
		"entities", result.Stats.Entities,
		"invalid", result.Stats.Invalid,
		"cached", result.CacheInfo.PlanHits,
		"duration", result.Stats.ResolveTime)
	return result, nil
}

// plan returns one step's plan, from the cache when possible.
func (r *Runner) plan(ctx context.Context, e *resolve.Engine, s *scene.Store, step int, key string, refresh bool) (resolve.PlanJSON, bool, error) {
	if !refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var p resolve.PlanJSON
			if err := json.Unmarshal(data, &p); err == nil {
				observability.Cache().OnCacheHit(ctx, cache.KeyTypePlan)
				return p, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, cache.KeyTypePlan)
	}

	p := resolve.Export(e.Plan(ctx, s, step))
	if data, err := json.Marshal(p); err == nil {
		if err := r.Cache.Set(ctx, key, data, r.ttl()); err != nil {
			r.Logger.Warn("cache write failed", "step", step, "error", err)
		} else {
			observability.Cache().OnCacheSet(ctx, cache.KeyTypePlan, len(data))
		}
	}
	return p, false, nil
}

// Issues returns the timeline validation report of d: entity ID → first
// problem found. Reports are cached like plans.
func (r *Runner) Issues(ctx context.Context, d *document.Document, opts Options) (map[scene.ID]string, error) {
	r.applyLogger(&opts)
	s, err := d.Store()
	if err != nil {
		return nil, err
	}
	sceneHash, err := SceneHash(s)
	if err != nil {
		return nil, err
	}
	bind := r.binding(d, opts)
	key := r.Keyer.ReportKey(sceneHash, planKeyOpts(d, bind))

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var issues map[scene.ID]string
			if err := json.Unmarshal(data, &issues); err == nil {
				observability.Cache().OnCacheHit(ctx, cache.KeyTypeReport)
				return issues, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, cache.KeyTypeReport)
	}

	start := time.Now()
	issues := validate.New(bind).Report(s, d.Timeline())
	if data, err := json.Marshal(issues); err == nil {
		if err := r.Cache.Set(ctx, key, data, r.ttl()); err == nil {
			observability.Cache().OnCacheSet(ctx, cache.KeyTypeReport, len(data))
		}
	}
	r.Logger.Info("validated timeline",
		"entities", s.Len(),
		"issues", len(issues),
		"duration", time.Since(start))
	return issues, nil
}

func (r *Runner) ttl() time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return cache.PlanTTL
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// SceneHash returns the content hash of a store's entities.
func SceneHash(s *scene.Store) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("hash scene: %w", err)
	}
	return cache.Hash(data), nil
}

func planKeyOpts(d *document.Document, bind *binding.Resolver) cache.PlanKeyOpts {
	return cache.PlanKeyOpts{
		Timeline: d.Timeline().Fingerprint(),
		Rows:     bind.Bounds.Rows,
		Cols:     bind.Bounds.Cols,
		MaxSize:  bind.Bounds.MaxSize,
	}
}

func (r *Runner) binding(d *document.Document, opts Options) *binding.Resolver {
	if opts.Binding != nil {
		return opts.Binding
	}
	return binding.NewResolver(d.Bounds(), nil)
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

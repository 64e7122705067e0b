package resolve

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stepgrid/pkg/observability"
	"github.com/matzehuels/stepgrid/pkg/scene"
	"github.com/matzehuels/stepgrid/pkg/validate"
	"github.com/matzehuels/stepgrid/pkg/variable"
)

// Engine resolves plans for one timeline, memoizing by (store, step) and
// timeline validation by store. Stores are immutable, so the *scene.Store
// pointer identifies a version; plans for an older store are dropped as
// soon as a newer one is resolved.
//
// An Engine is safe for concurrent use.
type Engine struct {
	resolver  *Resolver
	validator *validate.Validator
	timeline  variable.Timeline
	logger    *log.Logger

	mu     sync.Mutex
	store  *scene.Store
	issues map[scene.ID]string
	plans  map[int]*Plan
}

// NewEngine returns an engine over tl. A nil resolver uses the default board;
// a nil logger discards output.
func NewEngine(r *Resolver, tl variable.Timeline, logger *log.Logger) *Engine {
	if r == nil {
		r = NewResolver(nil)
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Engine{
		resolver:  r,
		validator: validate.New(r.Binding()),
		timeline:  tl,
		logger:    logger,
	}
}

// Resolver returns the underlying resolver.
func (e *Engine) Resolver() *Resolver { return e.resolver }

// Timeline returns the timeline the engine resolves against.
func (e *Engine) Timeline() variable.Timeline { return e.timeline }

// Steps returns the number of resolvable steps. An empty timeline still has
// one step, resolved against an empty snapshot.
func (e *Engine) Steps() int { return max(e.timeline.Len(), 1) }

// Snapshot returns the variables at step.
func (e *Engine) Snapshot(step int) variable.Snapshot { return e.timeline.SnapshotAt(step) }

// Issues returns the timeline validation messages for s, computed once per
// store.
func (e *Engine) Issues(ctx context.Context, s *scene.Store) map[scene.ID]string {
	e.mu.Lock()
	if e.store == s && e.issues != nil {
		issues := e.issues
		e.mu.Unlock()
		return issues
	}
	e.mu.Unlock()

	start := time.Now()
	issues := e.validator.Report(s, e.timeline)
	observability.Resolve().OnValidateComplete(ctx, s.Len(), len(issues), time.Since(start))
	if len(issues) > 0 {
		e.logger.Debug("timeline validation", "entities", s.Len(), "issues", len(issues))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.reset(s)
	e.issues = issues
	return issues
}

// Plan returns the resolved plan of s at step.
func (e *Engine) Plan(ctx context.Context, s *scene.Store, step int) *Plan {
	e.mu.Lock()
	if e.store == s {
		if p, ok := e.plans[step]; ok {
			e.mu.Unlock()
			return p
		}
	}
	e.mu.Unlock()

	issues := e.Issues(ctx, s)

	start := time.Now()
	observability.Resolve().OnResolveStart(ctx, step, s.Len())
	p := e.resolver.Resolve(s, e.Snapshot(step), issues)
	p.Step = step
	p.Line = e.timeline.Line(step)
	invalid := len(p.Invalid())
	elapsed := time.Since(start)
	observability.Resolve().OnResolveComplete(ctx, step, invalid, elapsed)
	e.logger.Debug("resolved step", "step", step, "entities", s.Len(), "invalid", invalid, "duration", elapsed)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.reset(s)
	e.plans[step] = p
	return p
}

// reset switches the memo to s. Callers hold e.mu.
func (e *Engine) reset(s *scene.Store) {
	if e.store == s && e.plans != nil {
		return
	}
	e.store = s
	e.issues = nil
	e.plans = map[int]*Plan{}
}

// Package pipeline runs the load → resolve → render pipeline over a
// document.
//
// The same Runner backs the CLI (`stepgrid resolve`, `stepgrid validate`)
// and the HTTP API, so both produce identical plans and share one cache.
//
// # Stages
//
//  1. Resolve: every requested step is resolved concurrently through one
//     [resolve.Engine]. Each plan is cached under its scene hash, timeline
//     fingerprint, board and step.
//  2. Render: plans are rendered to JSON or a text grid.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, doc, pipeline.Options{
//	    Steps:   []int{0, 1, 2},
//	    Formats: []string{pipeline.FormatText},
//	})
//	fmt.Print(string(result.Artifacts["text"]))
package pipeline

import (
	"fmt"
	"io"
	"runtime"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stepgrid/pkg/binding"
	errs "github.com/matzehuels/stepgrid/pkg/errors"
	"github.com/matzehuels/stepgrid/pkg/resolve"
)

// Format constants for output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatText: true,
}

// =============================================================================
// Options
// =============================================================================

// Options configures a pipeline run. It supports JSON for API requests.
type Options struct {
	// Steps to resolve, 0-indexed. Empty means every step.
	Steps []int `json:"steps,omitempty"`

	// Formats to render. Empty means json.
	Formats []string `json:"formats,omitempty"`

	// Refresh bypasses cached plans (new plans are still written).
	Refresh bool `json:"refresh,omitempty"`

	// Parallelism bounds concurrent step resolution. Zero means GOMAXPROCS.
	Parallelism int `json:"parallelism,omitempty"`

	// Runtime options (not serialized)
	Binding *binding.Resolver `json:"-"` // nil uses the document's board
	Logger  *log.Logger       `json:"-"`

	validated bool
}

// Result holds the outputs of a pipeline run.
type Result struct {
	// DocumentID identifies the source document.
	DocumentID string

	// SceneHash is the content hash of the document's entities.
	SceneHash string

	// Plans are the resolved plans in requested step order.
	Plans []resolve.PlanJSON

	// Artifacts holds rendered outputs keyed by format.
	Artifacts map[string][]byte

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats holds run statistics.
type Stats struct {
	Steps       int
	Entities    int
	Invalid     int // Invalid content entries summed over all plans
	ResolveTime time.Duration
	RenderTime  time.Duration
}

// CacheInfo records which plans came from the cache.
type CacheInfo struct {
	PlanHits   int
	PlanMisses int
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errs.New(errs.ErrCodeInvalidFormat, "invalid format: %q (must be one of: json, text)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAndSetDefaults checks the options against a timeline of n steps
// and fills defaults. It is idempotent.
func (o *Options) ValidateAndSetDefaults(n int) error {
	if o.validated {
		return nil
	}
	n = max(n, 1)
	if len(o.Steps) == 0 {
		o.Steps = make([]int, n)
		for i := range o.Steps {
			o.Steps[i] = i
		}
	}
	for _, s := range o.Steps {
		if s < 0 || s >= n {
			return errs.New(errs.ErrCodeInvalidInput, "step %d outside timeline of %d steps", s+1, n)
		}
	}
	o.SetRenderDefaults()
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.Parallelism <= 0 {
		o.Parallelism = runtime.GOMAXPROCS(0)
	}
	o.validated = true
	return nil
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatJSON}
	}
	o.Formats = slices.Compact(slices.Sorted(slices.Values(o.Formats)))
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

func (o *Options) String() string {
	return fmt.Sprintf("steps=%v formats=%v refresh=%v", o.Steps, o.Formats, o.Refresh)
}

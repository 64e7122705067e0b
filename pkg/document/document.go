package document

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/stepgrid/pkg/binding"
	errs "github.com/matzehuels/stepgrid/pkg/errors"
	"github.com/matzehuels/stepgrid/pkg/scene"
	"github.com/matzehuels/stepgrid/pkg/variable"
)

// CurrentVersion is the document format written by this package.
const CurrentVersion = 1

// ErrUnsupportedVersion is returned for documents newer than CurrentVersion.
var ErrUnsupportedVersion = errors.New("unsupported document version")

// Document is a saved editing session: the traced program, its timeline,
// the selected step and the scene.
type Document struct {
	Version     int                 `json:"version"`
	ID          string              `json:"id"`
	SavedAt     time.Time           `json:"savedAt"`
	Code        string              `json:"code"`
	Snapshots   []variable.Snapshot `json:"timeline"`
	Steps       []variable.Step     `json:"steps,omitempty"`
	CurrentStep int                 `json:"currentStep"`
	Output      string              `json:"output,omitempty"`
	Board       binding.Bounds      `json:"board"`
	Entities    []scene.Entity      `json:"entities"`
}

// New returns an empty document with a fresh ID on the default board.
func New() *Document {
	return &Document{
		Version:   CurrentVersion,
		ID:        uuid.NewString(),
		Snapshots: []variable.Snapshot{},
		Board:     binding.DefaultBounds(),
		Entities:  []scene.Entity{},
	}
}

// FromTrace returns a document holding the timeline of a tracer run.
func FromTrace(code string, tr variable.Trace) *Document {
	d := New()
	tl := tr.Timeline()
	d.Code = code
	d.Snapshots = tl.Snapshots
	d.Steps = tl.Steps
	d.Output = tr.Output
	return d
}

// Timeline returns the document's timeline.
func (d *Document) Timeline() variable.Timeline {
	return variable.Timeline{Snapshots: d.Snapshots, Steps: d.Steps}
}

// Bounds returns the board, with defaults for missing fields.
func (d *Document) Bounds() binding.Bounds { return d.Board.WithDefaults() }

// Store rebuilds the scene. ID and z-order counters resume above every value
// present in the document.
func (d *Document) Store() (*scene.Store, error) {
	s, err := scene.FromEntities(d.Entities)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidDocument, err, "document %s", d.ID)
	}
	return s, nil
}

// SetStore replaces the saved entities with the contents of s.
func (d *Document) SetStore(s *scene.Store) {
	d.Entities = s.Entities()
	if d.Entities == nil {
		d.Entities = []scene.Entity{}
	}
}

// Validate checks the version and step selection.
func (d *Document) Validate() error {
	switch {
	case d.Version > CurrentVersion:
		return errs.Wrap(errs.ErrCodeInvalidDocument, ErrUnsupportedVersion,
			"version %d (this build reads up to %d)", d.Version, CurrentVersion)
	case d.Version < 0:
		return errs.Wrap(errs.ErrCodeInvalidDocument, ErrUnsupportedVersion, "version %d", d.Version)
	}
	if n := d.Timeline().Len(); d.CurrentStep < 0 || (n > 0 && d.CurrentStep >= n) {
		return errs.New(errs.ErrCodeInvalidDocument, "current step %d outside timeline of %d steps", d.CurrentStep, n)
	}
	for i, st := range d.Steps {
		if st.SnapshotIndex < 0 || st.SnapshotIndex >= len(d.Snapshots) {
			return errs.New(errs.ErrCodeInvalidDocument, "step %d addresses missing snapshot %d", i+1, st.SnapshotIndex)
		}
	}
	return nil
}

// normalize fills fields older writers left out.
func (d *Document) normalize() {
	if d.Version == 0 {
		d.Version = CurrentVersion
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Snapshots == nil {
		d.Snapshots = []variable.Snapshot{}
	}
	if d.Entities == nil {
		d.Entities = []scene.Entity{}
	}
	d.Board = d.Board.WithDefaults()
}

func (d *Document) String() string {
	return fmt.Sprintf("document %s (v%d, %d entities, %d steps)", d.ID, d.Version, len(d.Entities), d.Timeline().Len())
}

package validate

import (
	"fmt"

	"github.com/matzehuels/stepgrid/pkg/binding"
	errs "github.com/matzehuels/stepgrid/pkg/errors"
	"github.com/matzehuels/stepgrid/pkg/expr"
	"github.com/matzehuels/stepgrid/pkg/scene"
	"github.com/matzehuels/stepgrid/pkg/variable"
)

// Fields are the bindings of one entity that must resolve to integers. A nil
// field is not checked.
type Fields struct {
	Row    *binding.Numeric
	Col    *binding.Numeric
	Width  *binding.Numeric
	Height *binding.Numeric
}

// FieldsOf returns the position and size bindings of e.
func FieldsOf(e scene.Entity) Fields {
	w, h := scene.Size(e.Payload)
	return Fields{Row: &e.Position.Row, Col: &e.Position.Col, Width: &w, Height: &h}
}

// PositionFields returns the fields of a position binding alone.
func PositionFields(p binding.Position) Fields {
	return Fields{Row: &p.Row, Col: &p.Col}
}

// SizeFields returns the fields of a size pair alone.
func SizeFields(w, h binding.Numeric) Fields {
	return Fields{Width: &w, Height: &h}
}

type field struct {
	name string
	n    binding.Numeric
}

func (f Fields) formulas() []field {
	var out []field
	for _, c := range []struct {
		name string
		n    *binding.Numeric
	}{{"row", f.Row}, {"col", f.Col}, {"width", f.Width}, {"height", f.Height}} {
		if c.n != nil && !c.n.IsFixed() {
			out = append(out, field{c.name, *c.n})
		}
	}
	return out
}

// =============================================================================
// Validator
// =============================================================================

// Validator checks formula bindings against every step of a timeline.
type Validator struct {
	resolver *binding.Resolver
}

// New returns a validator evaluating through r. A nil r uses the default
// resolver.
func New(r *binding.Resolver) *Validator {
	if r == nil {
		r = binding.Default()
	}
	return &Validator{resolver: r}
}

// Proposed checks candidate bindings before they are committed. At every
// step, each formula must evaluate without error to a whole number. The first
// failure is returned as a TIMELINE_INTEGRITY error naming the field, the
// 1-indexed step and, for fractions, the value obtained. With an empty
// timeline only syntax is checked.
func (v *Validator) Proposed(f Fields, tl variable.Timeline) error {
	checks := f.formulas()
	if len(checks) == 0 {
		return nil
	}

	steps := tl.Len()
	if steps == 0 || tl.IsEmpty() {
		for _, c := range checks {
			if err := expr.Validate(c.n.Text()); err != nil {
				return errs.Wrap(errs.ErrCodeTimelineIntegrity, err, "%s formula %q is invalid", c.name, c.n.Text())
			}
		}
		return nil
	}

	done := map[int]bool{}
	for step := 0; step < steps; step++ {
		idx := tl.SnapshotIndex(step)
		if done[idx] {
			continue
		}
		done[idx] = true
		snap := tl.SnapshotAt(step)

		for _, c := range checks {
			val, err := v.resolver.Eval(c.n, snap)
			if err != nil {
				return errs.Wrap(errs.ErrCodeTimelineIntegrity, err,
					"%s formula %q fails at step %d", c.name, c.n.Text(), step+1)
			}
			if !binding.IsInteger(val) {
				return errs.New(errs.ErrCodeTimelineIntegrity,
					"%s formula %q evaluates to %s at step %d, not an integer",
					c.name, c.n.Text(), binding.FormatValue(val), step+1)
			}
		}
	}
	return nil
}

// Entity checks every formula binding of a committed entity.
func (v *Validator) Entity(e scene.Entity, tl variable.Timeline) error {
	if err := v.Proposed(FieldsOf(e), tl); err != nil {
		return fmt.Errorf("%s: %w", e.ID, err)
	}
	return nil
}

// Report validates every entity of s and returns the failure message per
// entity ID. Entities without failures are absent from the result.
func (v *Validator) Report(s *scene.Store, tl variable.Timeline) map[scene.ID]string {
	out := map[scene.ID]string{}
	for _, e := range s.Entities() {
		if msg := errs.Reason(v.Proposed(FieldsOf(e), tl)); msg != "" {
			out[e.ID] = msg
		}
	}
	return out
}

var defaultValidator = New(nil)

// ProposedAcrossTimeline checks candidate bindings on the default board.
func ProposedAcrossTimeline(f Fields, tl variable.Timeline) error {
	return defaultValidator.Proposed(f, tl)
}

// EntityAcrossTimeline checks a committed entity on the default board.
func EntityAcrossTimeline(e scene.Entity, tl variable.Timeline) error {
	return defaultValidator.Entity(e, tl)
}

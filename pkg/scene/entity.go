package scene

import (
	"strconv"
	"strings"

	"github.com/matzehuels/stepgrid/pkg/binding"
)

// ID identifies an entity. IDs are "<kind>-<n>" with n unique across the
// store, e.g. "shape-3" or "panel-1". Array groups use the same scheme for
// their ArrayID ("array-2") and their members ("cell-4").
type ID = string

// Entity is one object on the grid.
type Entity struct {
	ID       ID               // Stable identifier
	Position binding.Position // Anchor, panel-relative when PanelID is set
	Z        int              // Stacking order, higher is on top
	PanelID  ID               // Parent panel entity, "" for top-level
	Payload  Payload          // Exactly one variant
}

// Kind returns the payload kind.
func (e Entity) Kind() Kind {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.Kind()
}

// IsPanel reports whether the entity is a panel.
func (e Entity) IsPanel() bool { return e.Kind() == KindPanel }

// Array returns the array cell payload, if any.
func (e Entity) Array() (*ArrayCell, bool) {
	a, ok := e.Payload.(*ArrayCell)
	return a, ok
}

// Clone returns a deep copy, so the caller can modify the payload without
// touching the stored entity.
func (e Entity) Clone() Entity {
	if e.Payload != nil {
		e.Payload = e.Payload.clone()
	}
	return e
}

// IDNumber extracts the numeric suffix of an ID, or 0 if there is none.
func IDNumber(id string) int {
	i := strings.LastIndexByte(id, '-')
	if i < 0 {
		return 0
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func formatID(prefix string, n int) ID {
	return prefix + "-" + strconv.Itoa(n)
}

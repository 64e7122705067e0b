package scene

import (
	"encoding/json"
	"fmt"

	"github.com/matzehuels/stepgrid/pkg/binding"
)

// =============================================================================
// Wire format
// =============================================================================

// entityJSON is the serialized form of an Entity:
//
//	{"id": "shape-3", "type": "shape", "position": {"row": 2, "col": {"formula": "i"}},
//	 "zOrder": 3, "panelId": "panel-1", "payload": {...}}
type entityJSON struct {
	ID       ID               `json:"id"`
	Type     Kind             `json:"type"`
	Position binding.Position `json:"position"`
	Z        int              `json:"zOrder"`
	PanelID  ID               `json:"panelId,omitempty"`
	Payload  json.RawMessage  `json:"payload"`
}

// MarshalJSON implements json.Marshaler.
func (e Entity) MarshalJSON() ([]byte, error) {
	if e.Payload == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoPayload, e.ID)
	}
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(entityJSON{
		ID:       e.ID,
		Type:     e.Payload.Kind(),
		Position: e.Position,
		Z:        e.Z,
		PanelID:  e.PanelID,
		Payload:  payload,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Entity) UnmarshalJSON(data []byte) error {
	var raw entityJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p, err := newPayload(raw.Type)
	if err != nil {
		return fmt.Errorf("entity %s: %w", raw.ID, err)
	}
	if len(raw.Payload) > 0 {
		if err := json.Unmarshal(raw.Payload, p); err != nil {
			return fmt.Errorf("entity %s: %w", raw.ID, err)
		}
	}
	*e = Entity{
		ID:       raw.ID,
		Position: raw.Position,
		Z:        raw.Z,
		PanelID:  raw.PanelID,
		Payload:  p,
	}
	return nil
}

func newPayload(k Kind) (Payload, error) {
	switch k {
	case KindShape:
		return NewShape(ShapeRect), nil
	case KindArray:
		return &ArrayCell{}, nil
	case KindScalar:
		return &Scalar{Mode: DisplayNameValue}, nil
	case KindLabel:
		return &Label{Style: DefaultStyle(), FontSize: DefaultFontSize}, nil
	case KindPanel:
		return &Panel{Style: DefaultStyle()}, nil
	}
	return nil, fmt.Errorf("unknown entity type %q", k)
}

// UnmarshalJSON fills absent fields from DefaultStyle.
func (s *Style) UnmarshalJSON(data []byte) error {
	type plain Style
	p := plain(DefaultStyle())
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Style(p)
	return nil
}

// MarshalJSON encodes the store as its entity list in z-order.
func (s *Store) MarshalJSON() ([]byte, error) {
	entities := s.Entities()
	if entities == nil {
		entities = []Entity{}
	}
	return json.Marshal(entities)
}

// UnmarshalStore decodes an entity list and builds a validated store.
func UnmarshalStore(data []byte) (*Store, error) {
	var entities []Entity
	if err := json.Unmarshal(data, &entities); err != nil {
		return nil, err
	}
	return FromEntities(entities)
}

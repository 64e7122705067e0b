package scene

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
)

var (
	// ErrInvalidID is returned when an entity has an empty ID.
	ErrInvalidID = errors.New("entity ID must not be empty")

	// ErrDuplicateID is returned when inserting an ID that already exists.
	ErrDuplicateID = errors.New("duplicate entity ID")

	// ErrNoPayload is returned when an entity has no payload.
	ErrNoPayload = errors.New("entity has no payload")

	// ErrBrokenArray is returned when the members of an array do not form a
	// contiguous 0..N-1 run sharing one position and direction.
	ErrBrokenArray = errors.New("array members are inconsistent")

	// ErrNotFound is returned when an entity ID is unknown.
	ErrNotFound = errors.New("entity not found")
)

// Store is an immutable set of entities keyed by ID.
//
// Stores are never modified after construction: [Store.Begin] returns a
// transaction over a private copy and [Tx.Commit] produces a new Store. A
// resolver holding a *Store therefore never observes a half-applied edit, and
// the pointer doubles as a version identity for memoization. Entities
// returned by a Store share payloads with it; Clone before modifying.
type Store struct {
	entities map[ID]Entity
	sorted   []ID // Ascending Z, then ID number
	nextID   int
	nextZ    int
	version  uint64
}

// New returns an empty store.
func New() *Store {
	return &Store{entities: map[ID]Entity{}, nextID: 1, nextZ: 1}
}

// FromEntities builds a store from loaded entities, validates it, and
// restores the ID and z-order counters strictly above every value present.
func FromEntities(entities []Entity) (*Store, error) {
	tx := New().Begin()
	for _, e := range entities {
		if err := tx.Insert(e); err != nil {
			return nil, err
		}
	}
	s := tx.Commit()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	s.version = 0
	return s, nil
}

// Version counts commits since the store was created or loaded.
func (s *Store) Version() uint64 { return s.version }

// Len returns the number of entities.
func (s *Store) Len() int { return len(s.entities) }

// NextZ returns the z-order the next placement will receive.
func (s *Store) NextZ() int { return s.nextZ }

// NextIDNumber returns the number the next allocated ID will carry.
func (s *Store) NextIDNumber() int { return s.nextID }

// Get returns the entity with the given ID.
func (s *Store) Get(id ID) (Entity, bool) {
	e, ok := s.entities[id]
	return e, ok
}

// Entities returns all entities in ascending z-order, ties broken by ID
// number.
func (s *Store) Entities() []Entity {
	out := make([]Entity, len(s.sorted))
	for i, id := range s.sorted {
		out[i] = s.entities[id]
	}
	return out
}

// Panels returns all panel entities in ascending z-order.
func (s *Store) Panels() []Entity {
	return s.filter(func(e Entity) bool { return e.IsPanel() })
}

// Children returns the entities whose PanelID is panelID.
func (s *Store) Children(panelID ID) []Entity {
	return s.filter(func(e Entity) bool { return e.PanelID == panelID })
}

// Array returns the members of an array ordered by index.
func (s *Store) Array(arrayID string) []Entity {
	members := s.filter(func(e Entity) bool {
		a, ok := e.Array()
		return ok && a.ArrayID == arrayID
	})
	slices.SortFunc(members, func(x, y Entity) int {
		a, _ := x.Array()
		b, _ := y.Array()
		return cmp.Compare(a.Index, b.Index)
	})
	return members
}

// ArrayIDs returns every array ID in order of first appearance by z-order.
func (s *Store) ArrayIDs() []string {
	var ids []string
	seen := map[string]bool{}
	for _, id := range s.sorted {
		if a, ok := s.entities[id].Array(); ok && !seen[a.ArrayID] {
			seen[a.ArrayID] = true
			ids = append(ids, a.ArrayID)
		}
	}
	return ids
}

func (s *Store) filter(keep func(Entity) bool) []Entity {
	var out []Entity
	for _, id := range s.sorted {
		if e := s.entities[id]; keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// Validate checks structural invariants: every array is a contiguous 0..N-1
// run with one member per index, sharing position, direction and panel.
// Dangling panel references are not an error here; the resolver reports them
// on the affected entity.
func (s *Store) Validate() error {
	for _, arrayID := range s.ArrayIDs() {
		members := s.Array(arrayID)
		first, _ := members[0].Array()
		for i, m := range members {
			a, _ := m.Array()
			switch {
			case a.Index != i:
				return fmt.Errorf("%w: %s has no member at index %d", ErrBrokenArray, arrayID, i)
			case m.Position != members[0].Position:
				return fmt.Errorf("%w: %s member %d has a different position", ErrBrokenArray, arrayID, i)
			case a.Direction != first.Direction:
				return fmt.Errorf("%w: %s member %d has a different direction", ErrBrokenArray, arrayID, i)
			case m.PanelID != members[0].PanelID:
				return fmt.Errorf("%w: %s member %d is in a different panel", ErrBrokenArray, arrayID, i)
			}
		}
	}
	return nil
}

// =============================================================================
// Transactions
// =============================================================================

// Tx accumulates edits against a private copy of a store.
type Tx struct {
	base     *Store
	entities map[ID]Entity
	nextID   int
	nextZ    int
}

// Begin starts a transaction. The receiver is not affected by it.
func (s *Store) Begin() *Tx {
	return &Tx{
		base:     s,
		entities: maps.Clone(s.entities),
		nextID:   s.nextID,
		nextZ:    s.nextZ,
	}
}

// NewID allocates a fresh ID with the given prefix.
func (tx *Tx) NewID(prefix string) ID {
	id := formatID(prefix, tx.nextID)
	tx.nextID++
	return id
}

// NewZ allocates the next z-order.
func (tx *Tx) NewZ() int {
	z := tx.nextZ
	tx.nextZ++
	return z
}

// Get returns the entity as currently staged.
func (tx *Tx) Get(id ID) (Entity, bool) {
	e, ok := tx.entities[id]
	return e, ok
}

// Insert adds a new entity. Counters are bumped past its ID number and Z.
func (tx *Tx) Insert(e Entity) error {
	if e.ID == "" {
		return ErrInvalidID
	}
	if e.Payload == nil {
		return fmt.Errorf("%w: %s", ErrNoPayload, e.ID)
	}
	if _, exists := tx.entities[e.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
	}
	tx.entities[e.ID] = e.Clone()
	tx.bump(e)
	return nil
}

// Replace overwrites an existing entity.
func (tx *Tx) Replace(e Entity) error {
	if _, exists := tx.entities[e.ID]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, e.ID)
	}
	if e.Payload == nil {
		return fmt.Errorf("%w: %s", ErrNoPayload, e.ID)
	}
	tx.entities[e.ID] = e.Clone()
	tx.bump(e)
	return nil
}

// Delete removes an entity. Unknown IDs are ignored.
func (tx *Tx) Delete(id ID) {
	delete(tx.entities, id)
}

// DeleteArray removes every member of an array.
func (tx *Tx) DeleteArray(arrayID string) {
	for id, e := range tx.entities {
		if a, ok := e.Array(); ok && a.ArrayID == arrayID {
			delete(tx.entities, id)
		}
	}
}

func (tx *Tx) bump(e Entity) {
	tx.nextID = max(tx.nextID, IDNumber(e.ID)+1)
	if a, ok := e.Array(); ok {
		tx.nextID = max(tx.nextID, IDNumber(a.ArrayID)+1)
	}
	tx.nextZ = max(tx.nextZ, e.Z+1)
}

// Commit returns the new store.
func (tx *Tx) Commit() *Store {
	s := &Store{
		entities: tx.entities,
		nextID:   tx.nextID,
		nextZ:    tx.nextZ,
		version:  tx.base.version + 1,
	}
	s.sorted = make([]ID, 0, len(s.entities))
	for id := range s.entities {
		s.sorted = append(s.sorted, id)
	}
	slices.SortFunc(s.sorted, func(a, b ID) int {
		if c := cmp.Compare(s.entities[a].Z, s.entities[b].Z); c != 0 {
			return c
		}
		if c := cmp.Compare(IDNumber(a), IDNumber(b)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	// The transaction must not alias the committed map.
	tx.entities = maps.Clone(tx.entities)
	return s
}

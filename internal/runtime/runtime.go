// Package runtime implements the Object Runtime: the canonical
// (type, name) -> entity mapping that every other component reads and
// writes through, generalizing the teacher's internal/objects.ObjectStore
// (a fixed set of typed slices + name-indexed maps guarded by one
// sync.RWMutex) into a type-erased registry with a declared attribute
// schema per type, per Design Note §9.
package runtime

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/renameio/v2"

	"github.com/oceanplexian/gogios/internal/eventbus"
)

// ErrAlreadyExists is returned by Register on a (type, name) collision.
type ErrAlreadyExists struct {
	Type, Name string
}

func (e ErrAlreadyExists) Error() string {
	return fmt.Sprintf("object runtime: %s/%s already exists", e.Type, e.Name)
}

// ErrNotFound is returned by Modify/Lookup operations against an unknown
// entity.
type ErrNotFound struct {
	Type, Name string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("object runtime: %s/%s not found", e.Type, e.Name)
}

// ErrUnknownAttribute is returned by Modify when attr is not in the type's
// schema.
type ErrUnknownAttribute struct {
	Type, Attr string
}

func (e ErrUnknownAttribute) Error() string {
	return fmt.Sprintf("object runtime: %s has no attribute %q", e.Type, e.Attr)
}

// Entity is one registered (type, name) object. Each entity carries its
// own mutex so operations that touch a single entity never contend with
// unrelated ones; the Runtime's LockMany helper serializes cross-entity
// locking into a canonical order to preclude deadlock (spec.md §4.1).
type Entity struct {
	mu      sync.Mutex
	Type    string
	Name    string
	Created time.Time
	Attrs   map[string]interface{}
}

// Key uniquely identifies an entity by (type, name).
type Key struct {
	Type string
	Name string
}

func (k Key) String() string { return k.Type + "/" + k.Name }

// Runtime is the canonical object registry. It is a value owned by the
// engine, not a singleton.
type Runtime struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
	objects map[Key]*Entity
	bus     *eventbus.Bus
}

// New creates an empty Runtime publishing attribute-change events onto bus.
// bus may be nil, in which case AttributeChanged events are simply not
// published (used by tests that don't need the bus).
func New(bus *eventbus.Bus) *Runtime {
	return &Runtime{
		schemas: make(map[string]*Schema),
		objects: make(map[Key]*Entity),
		bus:     bus,
	}
}

// RegisterSchema declares the attribute schema for a type. Must be called
// before any Register/Modify against that type.
func (r *Runtime) RegisterSchema(s *Schema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[s.TypeName] = s
}

// Register creates a new entity. Fails with ErrAlreadyExists on a
// (type, name) collision.
func (r *Runtime) Register(typ, name string, properties map[string]interface{}) (*Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := Key{Type: typ, Name: name}
	if _, exists := r.objects[key]; exists {
		return nil, ErrAlreadyExists{Type: typ, Name: name}
	}

	attrs := make(map[string]interface{}, len(properties))
	if schema, ok := r.schemas[typ]; ok {
		for _, a := range schema.Attrs {
			if a.Default != nil {
				attrs[a.Name] = a.Default
			}
		}
	}
	for k, v := range properties {
		attrs[k] = v
	}

	e := &Entity{
		Type:    typ,
		Name:    name,
		Created: time.Now(),
		Attrs:   attrs,
	}
	r.objects[key] = e
	return e, nil
}

// Lookup returns the entity for (type, name), or nil if it does not exist.
func (r *Runtime) Lookup(typ, name string) *Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.objects[Key{Type: typ, Name: name}]
}

// Enumerate returns every registered entity of the given type. The order
// is not guaranteed; callers that need determinism should sort by Name.
func (r *Runtime) Enumerate(typ string) []*Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Entity
	for k, e := range r.objects {
		if k.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// Remove deletes an entity from the registry (shutdown or explicit
// removal, per spec.md §3).
func (r *Runtime) Remove(typ, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.objects, Key{Type: typ, Name: name})
}

// Modify validates value against typ's declared attribute schema and
// updates attr on the entity. Modifications to state-class attributes
// publish AttributeChanged on the bus (spec.md §4.1).
func (r *Runtime) Modify(typ, name, attr string, value interface{}) error {
	r.mu.RLock()
	schema := r.schemas[typ]
	e := r.objects[Key{Type: typ, Name: name}]
	r.mu.RUnlock()

	if e == nil {
		return ErrNotFound{Type: typ, Name: name}
	}

	var class Class
	if schema != nil {
		def, ok := schema.Lookup(attr)
		if !ok {
			return ErrUnknownAttribute{Type: typ, Attr: attr}
		}
		if def.Class == ClassConfig {
			return fmt.Errorf("object runtime: %s.%s is a config attribute and immutable after load", typ, attr)
		}
		class = def.Class
	}

	e.mu.Lock()
	old := e.Attrs[attr]
	e.Attrs[attr] = value
	e.mu.Unlock()

	if class == ClassState && r.bus != nil {
		r.bus.Publish(eventbus.Event{
			Kind:   eventbus.KindAttributeChanged,
			Object: eventbus.ObjectRef{Type: typ, Name: name},
			Payload: AttributeChanged{
				Attr: attr,
				Old:  old,
				New:  value,
			},
		})
	}
	return nil
}

// AttributeChanged is the payload of a KindAttributeChanged event.
type AttributeChanged struct {
	Attr     string
	Old, New interface{}
}

// Get returns the current value of attr on an entity, and whether it is
// set at all.
func (e *Entity) Get(attr string) (interface{}, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.Attrs[attr]
	return v, ok
}

// LockMany locks the given entities in canonical (type, name) order,
// returning an unlock function. This precludes deadlock when an operation
// needs to hold more than one entity's lock at once (spec.md §4.1).
func (r *Runtime) LockMany(entities ...*Entity) func() {
	sorted := append([]*Entity(nil), entities...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Type != sorted[j].Type {
			return sorted[i].Type < sorted[j].Type
		}
		return sorted[i].Name < sorted[j].Name
	})
	for _, e := range sorted {
		e.mu.Lock()
	}
	return func() {
		for i := len(sorted) - 1; i >= 0; i-- {
			sorted[i].mu.Unlock()
		}
	}
}

// snapshotLine is one newline-delimited JSON record in a Snapshot file.
type snapshotLine struct {
	Type  string                 `json:"type"`
	Name  string                 `json:"name"`
	State map[string]interface{} `json:"state"`
}

// Snapshot serializes every entity's state-class attributes to a
// newline-delimited JSON journal, written atomically (grounded in the
// teacher's status.dat temp-file+rename discipline, here delegated to
// renameio so a crash mid-write never leaves a truncated snapshot).
func (r *Runtime) Snapshot(filename string) error {
	r.mu.RLock()
	keys := make([]Key, 0, len(r.objects))
	for k := range r.objects {
		keys = append(keys, k)
	}
	schemas := r.schemas
	objects := r.objects
	r.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Type != keys[j].Type {
			return keys[i].Type < keys[j].Type
		}
		return keys[i].Name < keys[j].Name
	})

	t, err := renameio.TempFile("", filename)
	if err != nil {
		return fmt.Errorf("snapshot: create temp file: %w", err)
	}
	defer t.Cleanup()

	w := bufio.NewWriter(t)
	enc := json.NewEncoder(w)
	for _, k := range keys {
		e := objects[k]
		schema := schemas[k.Type]

		e.mu.Lock()
		state := make(map[string]interface{})
		for name, v := range e.Attrs {
			if schema == nil || schema.ClassOf(name) == ClassState {
				state[name] = v
			}
		}
		e.mu.Unlock()

		if err := enc.Encode(snapshotLine{Type: k.Type, Name: k.Name, State: state}); err != nil {
			return fmt.Errorf("snapshot: encode %s: %w", k, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("snapshot: flush: %w", err)
	}
	return t.CloseAtomicallyReplace()
}

// Restore loads state-class attributes from a Snapshot file. Restore is
// idempotent: applying it twice leaves the same state. Entities in the
// journal that this Runtime has no registered (type, name) for — because
// the current config no longer defines them — are dropped with a
// warning via onUnknown, which may be nil.
func (r *Runtime) Restore(filename string, onUnknown func(typ, name string)) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("restore: open %s: %w", filename, err)
	}
	defer f.Close()

	dec := json.NewDecoder(bufio.NewReader(f))
	for dec.More() {
		var line snapshotLine
		if err := dec.Decode(&line); err != nil {
			return fmt.Errorf("restore: decode: %w", err)
		}

		r.mu.RLock()
		e, ok := r.objects[Key{Type: line.Type, Name: line.Name}]
		schema := r.schemas[line.Type]
		r.mu.RUnlock()

		if !ok {
			if onUnknown != nil {
				onUnknown(line.Type, line.Name)
			}
			continue
		}

		e.mu.Lock()
		for name, v := range line.State {
			if schema == nil || schema.ClassOf(name) == ClassState {
				e.Attrs[name] = v
			}
		}
		e.mu.Unlock()
	}
	return nil
}

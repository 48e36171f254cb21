package runtime

import (
	"path/filepath"
	"testing"

	"github.com/oceanplexian/gogios/internal/eventbus"
)

func newTestRuntime() *Runtime {
	r := New(eventbus.New())
	r.RegisterSchema(HostSchema)
	return r
}

func TestRegisterAndLookup(t *testing.T) {
	r := newTestRuntime()
	if _, err := r.Register("Host", "web1", map[string]interface{}{"address": "10.0.0.1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	e := r.Lookup("Host", "web1")
	if e == nil {
		t.Fatal("expected entity to be found")
	}
	if v, _ := e.Get("address"); v != "10.0.0.1" {
		t.Fatalf("expected address 10.0.0.1, got %v", v)
	}
	if v, _ := e.Get("check_interval"); v != 60.0 {
		t.Fatalf("expected schema default check_interval 60.0, got %v", v)
	}
}

func TestRegisterCollisionFails(t *testing.T) {
	r := newTestRuntime()
	if _, err := r.Register("Host", "web1", nil); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := r.Register("Host", "web1", nil)
	if _, ok := err.(ErrAlreadyExists); !ok {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestModifyRejectsConfigAttribute(t *testing.T) {
	r := newTestRuntime()
	r.Register("Host", "web1", nil)
	if err := r.Modify("Host", "web1", "address", "10.0.0.2"); err == nil {
		t.Fatal("expected error modifying a config-class attribute")
	}
}

func TestModifyRejectsUnknownAttribute(t *testing.T) {
	r := newTestRuntime()
	r.Register("Host", "web1", nil)
	err := r.Modify("Host", "web1", "bogus", 1)
	if _, ok := err.(ErrUnknownAttribute); !ok {
		t.Fatalf("expected ErrUnknownAttribute, got %v", err)
	}
}

func TestModifyStateAttributePublishesEvent(t *testing.T) {
	bus := eventbus.New()
	r := New(bus)
	r.RegisterSchema(HostSchema)
	r.Register("Host", "web1", nil)

	var got eventbus.Event
	bus.Subscribe(eventbus.KindAttributeChanged, func(ev eventbus.Event) { got = ev })

	if err := r.Modify("Host", "web1", "state", 1); err != nil {
		t.Fatalf("Modify: %v", err)
	}
	if got.Kind != eventbus.KindAttributeChanged {
		t.Fatalf("expected AttributeChanged event, got %v", got.Kind)
	}
	if got.Object != (eventbus.ObjectRef{Type: "Host", Name: "web1"}) {
		t.Fatalf("unexpected object ref: %+v", got.Object)
	}
	payload, ok := got.Payload.(AttributeChanged)
	if !ok {
		t.Fatalf("expected AttributeChanged payload, got %T", got.Payload)
	}
	if payload.New != 1 {
		t.Fatalf("expected new value 1, got %v", payload.New)
	}
}

func TestModifyNotFound(t *testing.T) {
	r := newTestRuntime()
	err := r.Modify("Host", "ghost", "state", 1)
	if _, ok := err.(ErrNotFound); !ok {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEnumerate(t *testing.T) {
	r := newTestRuntime()
	r.Register("Host", "web1", nil)
	r.Register("Host", "web2", nil)
	r.RegisterSchema(ServiceSchema)
	r.Register("Service", "web1!http", nil)

	hosts := r.Enumerate("Host")
	if len(hosts) != 2 {
		t.Fatalf("expected 2 hosts, got %d", len(hosts))
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	r := newTestRuntime()
	r.Register("Host", "web1", nil)
	r.Register("Host", "web2", nil)
	r.Modify("Host", "web1", "state", 1)
	r.Modify("Host", "web1", "current_attempt", 3)
	r.Modify("Host", "web2", "state", 0)

	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")
	if err := r.Snapshot(path); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	r2 := newTestRuntime()
	r2.Register("Host", "web1", nil)
	r2.Register("Host", "web2", nil)
	if err := r2.Restore(path, nil); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	e1 := r2.Lookup("Host", "web1")
	if v, _ := e1.Get("state"); v.(float64) != 1 {
		t.Fatalf("expected restored state 1, got %v", v)
	}
	if v, _ := e1.Get("current_attempt"); v.(float64) != 3 {
		t.Fatalf("expected restored current_attempt 3, got %v", v)
	}

	// Config-class attributes must not be carried by Snapshot/Restore.
	if _, ok := e1.Get("check_interval"); !ok {
		t.Fatal("expected schema default to survive independently of restore")
	}
}

func TestRestoreIsIdempotent(t *testing.T) {
	r := newTestRuntime()
	r.Register("Host", "web1", nil)
	r.Modify("Host", "web1", "state", 2)

	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")
	if err := r.Snapshot(path); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	r2 := newTestRuntime()
	r2.Register("Host", "web1", nil)
	if err := r2.Restore(path, nil); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if err := r2.Restore(path, nil); err != nil {
		t.Fatalf("second Restore: %v", err)
	}
	e := r2.Lookup("Host", "web1")
	if v, _ := e.Get("state"); v.(float64) != 2 {
		t.Fatalf("expected idempotent restore to leave state 2, got %v", v)
	}
}

func TestRestoreDropsConfigUnknownEntities(t *testing.T) {
	r := newTestRuntime()
	r.Register("Host", "web1", nil)
	r.Register("Host", "retired", nil)
	r.Modify("Host", "retired", "state", 1)

	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")
	if err := r.Snapshot(path); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	r2 := newTestRuntime()
	r2.Register("Host", "web1", nil)

	var dropped []string
	if err := r2.Restore(path, func(typ, name string) { dropped = append(dropped, typ+"/"+name) }); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if len(dropped) != 1 || dropped[0] != "Host/retired" {
		t.Fatalf("expected retired host dropped, got %v", dropped)
	}
}

func TestLockManyOrdersByTypeThenName(t *testing.T) {
	r := newTestRuntime()
	r.RegisterSchema(ServiceSchema)
	eb, _ := r.Register("Host", "zzz", nil)
	ea, _ := r.Register("Host", "aaa", nil)
	es, _ := r.Register("Service", "aaa!check", nil)

	// Passed out of order; LockMany must not deadlock regardless of
	// acquisition order requested by the caller.
	done := make(chan struct{})
	go func() {
		unlock := r.LockMany(eb, es, ea)
		unlock()
		close(done)
	}()
	<-done
}

func TestRestoreMissingFileFails(t *testing.T) {
	r := newTestRuntime()
	err := r.Restore(filepath.Join(t.TempDir(), "missing.json"), nil)
	if err == nil {
		t.Fatal("expected error restoring from a nonexistent snapshot")
	}
}

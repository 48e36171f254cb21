package acknowledgement

import (
	"testing"
	"time"

	"github.com/oceanplexian/gogios/internal/objects"
)

type mockLogger struct{}

func (m *mockLogger) Log(format string, args ...interface{}) {}

type mockPublisher struct {
	set     []*Acknowledgement
	cleared []*Acknowledgement
}

func (m *mockPublisher) AcknowledgementSet(a *Acknowledgement)     { m.set = append(m.set, a) }
func (m *mockPublisher) AcknowledgementCleared(a *Acknowledgement) { m.cleared = append(m.cleared, a) }

func newTestSetup() (*Manager, *objects.ObjectStore, *mockPublisher) {
	store := objects.NewObjectStore()
	store.AddHost(&objects.Host{Name: "host1"})
	store.AddService(&objects.Service{Host: store.GetHost("host1"), Description: "http"})
	m := New(1, store)
	m.SetLogger(&mockLogger{})
	pub := &mockPublisher{}
	m.SetPublisher(pub)
	return m, store, pub
}

func TestSetHostAcknowledgement(t *testing.T) {
	m, store, pub := newTestSetup()

	id := m.Set(&Acknowledgement{
		HostName: "host1",
		Author:   "admin",
		Text:     "investigating",
		AckType:  objects.AckNormal,
	})
	if id == 0 {
		t.Error("expected non-zero acknowledgement ID")
	}

	host := store.GetHost("host1")
	if !host.ProblemAcknowledged || host.AckType != objects.AckNormal {
		t.Errorf("host not marked acknowledged: %+v", host)
	}
	if len(pub.set) != 1 {
		t.Fatalf("expected 1 AcknowledgementSet event, got %d", len(pub.set))
	}
	if pub.set[0].UUID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("expected a non-nil UUID to be assigned")
	}

	ack, ok := m.Get("host1", "")
	if !ok || ack.Author != "admin" {
		t.Errorf("unexpected acknowledgement: %+v", ack)
	}
}

func TestClearAcknowledgement(t *testing.T) {
	m, store, pub := newTestSetup()

	m.Set(&Acknowledgement{HostName: "host1", ServiceDescription: "http", Author: "admin", AckType: objects.AckSticky})
	m.Clear("host1", "http")

	svc := store.GetService("host1", "http")
	if svc.ProblemAcknowledged || svc.AckType != objects.AckNone {
		t.Errorf("service acknowledgement not cleared: %+v", svc)
	}
	if len(pub.cleared) != 1 {
		t.Fatalf("expected 1 AcknowledgementCleared event, got %d", len(pub.cleared))
	}
	if _, ok := m.Get("host1", "http"); ok {
		t.Error("expected acknowledgement to be gone after clear")
	}
}

func TestClearUnknownIsNoop(t *testing.T) {
	m, _, pub := newTestSetup()
	m.Clear("host1", "")
	if len(pub.cleared) != 0 {
		t.Error("expected no AcknowledgementCleared event for an unset acknowledgement")
	}
}

func TestExpiryAutoClears(t *testing.T) {
	m, store, pub := newTestSetup()

	m.Set(&Acknowledgement{
		HostName:   "host1",
		Author:     "admin",
		AckType:    objects.AckNormal,
		Expires:    true,
		ExpireTime: time.Now().Add(20 * time.Millisecond),
	})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := m.Get("host1", ""); !ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, ok := m.Get("host1", ""); ok {
		t.Fatal("expected acknowledgement to auto-expire")
	}
	host := store.GetHost("host1")
	if host.ProblemAcknowledged {
		t.Error("expected host to no longer be acknowledged after expiry")
	}
	if len(pub.cleared) != 1 {
		t.Fatalf("expected 1 AcknowledgementCleared event from expiry, got %d", len(pub.cleared))
	}
}

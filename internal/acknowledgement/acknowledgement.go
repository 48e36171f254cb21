// Package acknowledgement manages problem acknowledgements as a standalone
// entity, parented to a Checkable, mirroring the shape of internal/downtime
// (legacy integer ID plus a UUID, author/text/entry_time, a Logger/Publisher
// pair injected the same way) rather than the teacher's bare
// ProblemAcknowledged/AckType booleans on Host/Service.
package acknowledgement

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/oceanplexian/gogios/internal/objects"
)

// Acknowledgement represents an active problem acknowledgement on a host
// or service. ServiceDescription is empty for a host acknowledgement.
type Acknowledgement struct {
	UUID               uuid.UUID
	LegacyID           uint64
	HostName           string
	ServiceDescription string
	Author             string
	Text               string
	EntryTime          time.Time
	AckType            int // objects.AckNormal or objects.AckSticky
	Expires            bool
	ExpireTime         time.Time
}

func objectKey(hostName, svcDesc string) string {
	if svcDesc == "" {
		return hostName
	}
	return hostName + "!" + svcDesc
}

// Logger is the interface for acknowledgement log events.
type Logger interface {
	Log(format string, args ...interface{})
}

// Publisher is notified as acknowledgements are set and cleared, so that a
// caller can replicate the change to peers.
type Publisher interface {
	AcknowledgementSet(a *Acknowledgement)
	AcknowledgementCleared(a *Acknowledgement)
}

// Manager tracks active acknowledgements and their automatic expiry.
type Manager struct {
	mu      sync.RWMutex
	acks    map[string]*Acknowledgement
	timers  map[string]*time.Timer
	nextID  atomic.Uint64
	store   *objects.ObjectStore
	logger  Logger
	publish Publisher
}

// New creates a Manager whose legacy IDs start at startID.
func New(startID uint64, store *objects.ObjectStore) *Manager {
	m := &Manager{
		acks:   make(map[string]*Acknowledgement),
		timers: make(map[string]*time.Timer),
		store:  store,
	}
	m.nextID.Store(startID)
	return m
}

// SetLogger sets the logger.
func (m *Manager) SetLogger(l Logger) { m.logger = l }

// SetPublisher sets the acknowledgement lifecycle publisher.
func (m *Manager) SetPublisher(p Publisher) { m.publish = p }

func (m *Manager) log(format string, args ...interface{}) {
	if m.logger != nil {
		m.logger.Log(format, args...)
	}
}

// Set records a new acknowledgement and marks the target Checkable as
// acknowledged. If a.Expires, the acknowledgement is cleared automatically
// when a.ExpireTime passes, emitting AcknowledgementCleared per spec
// invariant 6.
func (m *Manager) Set(a *Acknowledgement) uint64 {
	key := objectKey(a.HostName, a.ServiceDescription)

	id := m.nextID.Add(1) - 1
	a.LegacyID = id
	if a.UUID == uuid.Nil {
		a.UUID = uuid.New()
	}
	if a.EntryTime.IsZero() {
		a.EntryTime = time.Now()
	}

	if a.ServiceDescription == "" {
		if hst := m.store.GetHost(a.HostName); hst != nil {
			hst.ProblemAcknowledged = true
			hst.AckType = a.AckType
		}
	} else if svc := m.store.GetService(a.HostName, a.ServiceDescription); svc != nil {
		svc.ProblemAcknowledged = true
		svc.AckType = a.AckType
	}

	m.mu.Lock()
	if old := m.timers[key]; old != nil {
		old.Stop()
	}
	m.acks[key] = a
	if a.Expires {
		wait := time.Until(a.ExpireTime)
		if wait < 0 {
			wait = 0
		}
		m.timers[key] = time.AfterFunc(wait, func() { m.Clear(a.HostName, a.ServiceDescription) })
	} else {
		delete(m.timers, key)
	}
	m.mu.Unlock()

	m.log("ACKNOWLEDGEMENT SET: %s", key)
	if m.publish != nil {
		m.publish.AcknowledgementSet(a)
	}
	return id
}

// Clear removes the acknowledgement on the given host or service, if any.
func (m *Manager) Clear(hostName, svcDesc string) {
	key := objectKey(hostName, svcDesc)

	m.mu.Lock()
	a, ok := m.acks[key]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.acks, key)
	if t := m.timers[key]; t != nil {
		t.Stop()
		delete(m.timers, key)
	}
	m.mu.Unlock()

	if svcDesc == "" {
		if hst := m.store.GetHost(hostName); hst != nil {
			hst.ProblemAcknowledged = false
			hst.AckType = objects.AckNone
		}
	} else if svc := m.store.GetService(hostName, svcDesc); svc != nil {
		svc.ProblemAcknowledged = false
		svc.AckType = objects.AckNone
	}

	m.log("ACKNOWLEDGEMENT CLEARED: %s", key)
	if m.publish != nil {
		m.publish.AcknowledgementCleared(a)
	}
}

// Get returns the active acknowledgement for a host or service, if any.
func (m *Manager) Get(hostName, svcDesc string) (*Acknowledgement, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.acks[objectKey(hostName, svcDesc)]
	return a, ok
}

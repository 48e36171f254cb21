// Package eventbus implements the process-wide synchronous event fan-out
// described by the cluster's event model: state changes, comments,
// downtimes, acknowledgements and notifications all flow through one Bus
// so that the Cluster Transport, local sinks, and the Object Runtime see
// the same ordered stream.
package eventbus

import "sync"

// Kind identifies the class of event carried on the bus.
type Kind string

const (
	KindAttributeChanged       Kind = "AttributeChanged"
	KindCheckResult            Kind = "CheckResult"
	KindStateChange            Kind = "StateChange"
	KindNextCheckChanged       Kind = "NextCheckChanged"
	KindFlappingChanged        Kind = "FlappingChanged"
	KindAcknowledgementSet     Kind = "AcknowledgementSet"
	KindAcknowledgementCleared Kind = "AcknowledgementCleared"
	KindNotificationSent       Kind = "NotificationSent"
	KindCommentAdded           Kind = "CommentAdded"
	KindCommentRemoved         Kind = "CommentRemoved"
	KindDowntimeAdded          Kind = "DowntimeAdded"
	KindDowntimeRemoved        Kind = "DowntimeRemoved"
	KindDowntimeTriggered      Kind = "DowntimeTriggered"
	KindConfigUpdate           Kind = "ConfigUpdate"
)

// Event is the envelope every subscriber receives. Object identifies the
// (type, name) the event concerns; Authority is the identity of the peer
// that originated it (local engine identity for locally produced events).
type Event struct {
	Kind      Kind
	Object    ObjectRef
	Authority string
	Payload   interface{}
}

// ObjectRef names the entity an event concerns.
type ObjectRef struct {
	Type string
	Name string
}

// Handler processes one event. Handlers that need to do async work must
// hand off to their own queue: Publish blocks the publisher until every
// handler registered for the kind has returned.
type Handler func(Event)

// subscription is an opaque handle returned by Subscribe, used to
// Unsubscribe later.
type subscription struct {
	kind Kind
	id   uint64
}

// Bus is a value type owned by the engine; there is no package-level
// singleton (Design Note: "no module-level singletons").
type Bus struct {
	mu        sync.RWMutex
	nextID    uint64
	handlers  map[Kind][]entry
	inflight  sync.WaitGroup
	unsubDone map[uint64]chan struct{}
}

type entry struct {
	id uint64
	h  Handler
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{
		handlers:  make(map[Kind][]entry),
		unsubDone: make(map[uint64]chan struct{}),
	}
}

// Subscribe registers h to run, in registration order, every time an event
// of the given kind is published. The returned handle may be passed to
// Unsubscribe.
func (b *Bus) Subscribe(kind Kind, h Handler) subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.handlers[kind] = append(b.handlers[kind], entry{id: id, h: h})
	return subscription{kind: kind, id: id}
}

// Unsubscribe removes the handler. Any in-flight call into it is allowed
// to complete first; Unsubscribe does not return until it has.
func (b *Bus) Unsubscribe(sub subscription) {
	b.mu.Lock()
	list := b.handlers[sub.kind]
	for i, e := range list {
		if e.id == sub.id {
			b.handlers[sub.kind] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	b.mu.Unlock()

	// Wait for every Publish already in flight (calls into any handler,
	// not only this one). Publish holds b.mu (RLock) only while copying out the
	// handler list, then releases it before invoking handlers, so a
	// concurrent Unsubscribe can race a Publish that already captured
	// the handler snapshot; draining inflight covers that window.
	b.inflight.Wait()
}

// Publish invokes every subscriber registered for ev.Kind, in registration
// order, synchronously on the calling goroutine.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	list := make([]entry, len(b.handlers[ev.Kind]))
	copy(list, b.handlers[ev.Kind])
	b.mu.RUnlock()

	b.inflight.Add(1)
	defer b.inflight.Done()

	for _, e := range list {
		e.h(ev)
	}
}

// SubscriberCount returns the number of handlers registered for kind, for
// tests and diagnostics.
func (b *Bus) SubscriberCount(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[kind])
}

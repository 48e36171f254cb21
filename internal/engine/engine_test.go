package engine

import (
	"testing"
	"time"

	"github.com/oceanplexian/gogios/internal/acknowledgement"
	"github.com/oceanplexian/gogios/internal/downtime"
	"github.com/oceanplexian/gogios/internal/eventbus"
	"github.com/oceanplexian/gogios/internal/objects"
)

func TestPublishServiceCheckResultCarriesAuthority(t *testing.T) {
	bus := eventbus.New()
	b := New(bus, "node-a")

	var got eventbus.Event
	bus.Subscribe(eventbus.KindCheckResult, func(ev eventbus.Event) { got = ev })

	host := &objects.Host{Name: "web1"}
	svc := &objects.Service{Host: host, Description: "http"}
	cr := &objects.CheckResult{ReturnCode: 2, Output: "CRITICAL", StartTime: time.Now()}

	b.PublishServiceCheckResult(svc, cr)

	if got.Authority != "node-a" {
		t.Fatalf("expected authority node-a, got %q", got.Authority)
	}
	if got.Object.Type != "Service" || got.Object.Name != "web1!http" {
		t.Fatalf("unexpected object ref: %+v", got.Object)
	}
	payload, ok := got.Payload.(eventbus.CheckResultPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", got.Payload)
	}
	if payload.ReturnCode != 2 || payload.Output != "CRITICAL" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestCommentLifecyclePublishesAddedAndRemoved(t *testing.T) {
	bus := eventbus.New()
	b := New(bus, "node-a")

	var kinds []eventbus.Kind
	bus.Subscribe(eventbus.KindCommentAdded, func(ev eventbus.Event) { kinds = append(kinds, ev.Kind) })
	bus.Subscribe(eventbus.KindCommentRemoved, func(ev eventbus.Event) { kinds = append(kinds, ev.Kind) })

	cm := downtime.NewCommentManager(1)
	cm.SetPublisher(b)

	id := cm.Add(&downtime.Comment{HostName: "web1", Author: "ops", Data: "investigating"})
	cm.Delete(id)

	if len(kinds) != 2 || kinds[0] != eventbus.KindCommentAdded || kinds[1] != eventbus.KindCommentRemoved {
		t.Fatalf("expected [Added Removed], got %v", kinds)
	}
}

func TestDowntimeLifecyclePublishesAddedAndTriggered(t *testing.T) {
	bus := eventbus.New()
	b := New(bus, "node-a")

	var kinds []eventbus.Kind
	bus.Subscribe(eventbus.KindDowntimeAdded, func(ev eventbus.Event) { kinds = append(kinds, ev.Kind) })
	bus.Subscribe(eventbus.KindDowntimeTriggered, func(ev eventbus.Event) { kinds = append(kinds, ev.Kind) })

	store := objects.NewObjectStore()
	host := &objects.Host{Name: "web1"}
	store.AddHost(host)

	cm := downtime.NewCommentManager(1)
	dm := downtime.NewDowntimeManager(1, cm, store)
	dm.SetPublisher(b)

	id := dm.Schedule(&downtime.Downtime{
		Type:      objects.HostDowntimeType,
		HostName:  "web1",
		StartTime: time.Now(),
		EndTime:   time.Now().Add(time.Hour),
		Fixed:     true,
	})
	dm.HandleStart(id)

	if len(kinds) != 2 || kinds[0] != eventbus.KindDowntimeAdded || kinds[1] != eventbus.KindDowntimeTriggered {
		t.Fatalf("expected [Added Triggered], got %v", kinds)
	}
}

func TestAcknowledgementLifecyclePublishesSetAndCleared(t *testing.T) {
	bus := eventbus.New()
	b := New(bus, "node-a")

	var kinds []eventbus.Kind
	bus.Subscribe(eventbus.KindAcknowledgementSet, func(ev eventbus.Event) { kinds = append(kinds, ev.Kind) })
	bus.Subscribe(eventbus.KindAcknowledgementCleared, func(ev eventbus.Event) { kinds = append(kinds, ev.Kind) })

	store := objects.NewObjectStore()
	store.AddHost(&objects.Host{Name: "web1"})

	ackMgr := acknowledgement.New(1, store)
	ackMgr.SetPublisher(b)

	ackMgr.Set(&acknowledgement.Acknowledgement{HostName: "web1", Author: "ops", AckType: objects.AckNormal})
	ackMgr.Clear("web1", "")

	if len(kinds) != 2 || kinds[0] != eventbus.KindAcknowledgementSet || kinds[1] != eventbus.KindAcknowledgementCleared {
		t.Fatalf("expected [Set Cleared], got %v", kinds)
	}
}

func TestNotificationSentTargetsServiceWhenDescriptionPresent(t *testing.T) {
	bus := eventbus.New()
	b := New(bus, "node-a")

	var got eventbus.Event
	bus.Subscribe(eventbus.KindNotificationSent, func(ev eventbus.Event) { got = ev })

	b.NotificationSent("web1", "http", objects.NotificationNormal, 2)

	if got.Object.Type != "Service" || got.Object.Name != "web1!http" {
		t.Fatalf("unexpected object ref: %+v", got.Object)
	}
	payload := got.Payload.(eventbus.NotificationSentPayload)
	if payload.ContactsNotified != 2 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

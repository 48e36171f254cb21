// Package engine wires the teacher's existing callback-style check and
// notification handlers into the Event Bus, tagging every event with the
// identity of the peer that produced it. It is the seam between the
// checker/downtime/notify packages (which know nothing about clustering)
// and the Object Runtime / Cluster Transport (which know nothing about
// Nagios state-machine semantics).
package engine

import (
	"github.com/oceanplexian/gogios/internal/acknowledgement"
	"github.com/oceanplexian/gogios/internal/downtime"
	"github.com/oceanplexian/gogios/internal/eventbus"
	"github.com/oceanplexian/gogios/internal/objects"
)

// Bridge publishes locally produced domain events onto the Event Bus,
// stamping each with the local peer identity.
type Bridge struct {
	bus      *eventbus.Bus
	identity string
}

// New creates a Bridge that publishes onto bus as identity.
func New(bus *eventbus.Bus, identity string) *Bridge {
	return &Bridge{bus: bus, identity: identity}
}

func serviceObjectName(hostName, description string) string {
	if description == "" {
		return hostName
	}
	return hostName + "!" + description
}

func (b *Bridge) publish(kind eventbus.Kind, typ, name string, payload interface{}) {
	b.bus.Publish(eventbus.Event{
		Kind:      kind,
		Object:    eventbus.ObjectRef{Type: typ, Name: name},
		Authority: b.identity,
		Payload:   payload,
	})
}

// PublishHostCheckResult emits event::CheckResult for a host check.
func (b *Bridge) PublishHostCheckResult(host *objects.Host, cr *objects.CheckResult) {
	b.publish(eventbus.KindCheckResult, "Host", host.Name, eventbus.CheckResultPayload{
		HostName:      host.Name,
		CheckType:     cr.CheckType,
		ReturnCode:    cr.ReturnCode,
		Output:        cr.Output,
		StartTime:     cr.StartTime,
		FinishTime:    cr.FinishTime,
		Latency:       cr.Latency,
		ExecutionTime: cr.ExecutionTime,
	})
}

// PublishServiceCheckResult emits event::CheckResult for a service check.
func (b *Bridge) PublishServiceCheckResult(svc *objects.Service, cr *objects.CheckResult) {
	b.publish(eventbus.KindCheckResult, "Service", serviceObjectName(svc.Host.Name, svc.Description), eventbus.CheckResultPayload{
		HostName:            svc.Host.Name,
		ServiceDescription:  svc.Description,
		CheckType:           cr.CheckType,
		ReturnCode:          cr.ReturnCode,
		Output:              cr.Output,
		StartTime:           cr.StartTime,
		FinishTime:          cr.FinishTime,
		Latency:             cr.Latency,
		ExecutionTime:       cr.ExecutionTime,
	})
}

// PublishHostStateChange emits event::StateChange for a host.
func (b *Bridge) PublishHostStateChange(host *objects.Host, oldState, newState int, hardChange bool) {
	b.publish(eventbus.KindStateChange, "Host", host.Name, eventbus.StateChangePayload{
		OldState:     oldState,
		NewState:     newState,
		StateType:    host.StateType,
		HardChange:   hardChange,
		PluginOutput: host.PluginOutput,
	})
}

// PublishServiceStateChange emits event::StateChange for a service.
func (b *Bridge) PublishServiceStateChange(svc *objects.Service, oldState, newState int, hardChange bool) {
	b.publish(eventbus.KindStateChange, "Service", serviceObjectName(svc.Host.Name, svc.Description), eventbus.StateChangePayload{
		OldState:     oldState,
		NewState:     newState,
		StateType:    svc.StateType,
		HardChange:   hardChange,
		PluginOutput: svc.PluginOutput,
	})
}

// NotificationSent implements notify.Publisher.
func (b *Bridge) NotificationSent(hostName, svcDesc string, ntype int, contactsNotified int) {
	typ, name := "Host", hostName
	if svcDesc != "" {
		typ, name = "Service", serviceObjectName(hostName, svcDesc)
	}
	b.publish(eventbus.KindNotificationSent, typ, name, eventbus.NotificationSentPayload{
		NotificationType: ntype,
		ContactsNotified: contactsNotified,
	})
}

// CommentAdded implements downtime.Publisher.
func (b *Bridge) CommentAdded(c *downtime.Comment) {
	typ, name := "Host", c.HostName
	if c.ServiceDescription != "" {
		typ, name = "Service", serviceObjectName(c.HostName, c.ServiceDescription)
	}
	b.publish(eventbus.KindCommentAdded, typ, name, eventbus.CommentPayload{
		UUID:       c.UUID,
		CommentID:  c.CommentID,
		EntryType:  c.EntryType,
		Author:     c.Author,
		Text:       c.Data,
		Persistent: c.Persistent,
	})
}

// CommentRemoved implements downtime.Publisher.
func (b *Bridge) CommentRemoved(c *downtime.Comment) {
	typ, name := "Host", c.HostName
	if c.ServiceDescription != "" {
		typ, name = "Service", serviceObjectName(c.HostName, c.ServiceDescription)
	}
	b.publish(eventbus.KindCommentRemoved, typ, name, eventbus.CommentPayload{
		UUID:      c.UUID,
		CommentID: c.CommentID,
		EntryType: c.EntryType,
		Author:    c.Author,
		Text:      c.Data,
	})
}

func (b *Bridge) downtimeObject(d *downtime.Downtime) (string, string) {
	if d.Type == objects.HostDowntimeType {
		return "Host", d.HostName
	}
	return "Service", serviceObjectName(d.HostName, d.ServiceDescription)
}

// DowntimeAdded implements downtime.DowntimePublisher.
func (b *Bridge) DowntimeAdded(d *downtime.Downtime) {
	typ, name := b.downtimeObject(d)
	b.publish(eventbus.KindDowntimeAdded, typ, name, eventbus.DowntimePayload{
		UUID:        d.UUID,
		DowntimeID:  d.DowntimeID,
		Author:      d.Author,
		Comment:     d.Comment,
		StartTime:   d.StartTime,
		EndTime:     d.EndTime,
		Fixed:       d.Fixed,
		TriggeredBy: d.TriggeredBy,
	})
}

// DowntimeRemoved implements downtime.DowntimePublisher.
func (b *Bridge) DowntimeRemoved(d *downtime.Downtime) {
	typ, name := b.downtimeObject(d)
	b.publish(eventbus.KindDowntimeRemoved, typ, name, eventbus.DowntimePayload{
		UUID:        d.UUID,
		DowntimeID:  d.DowntimeID,
		Author:      d.Author,
		Comment:     d.Comment,
		TriggeredBy: d.TriggeredBy,
	})
}

// DowntimeTriggered implements downtime.DowntimePublisher.
func (b *Bridge) DowntimeTriggered(d *downtime.Downtime) {
	typ, name := b.downtimeObject(d)
	b.publish(eventbus.KindDowntimeTriggered, typ, name, eventbus.DowntimePayload{
		UUID:        d.UUID,
		DowntimeID:  d.DowntimeID,
		Author:      d.Author,
		Comment:     d.Comment,
		StartTime:   d.StartTime,
		EndTime:     d.EndTime,
		Fixed:       d.Fixed,
		TriggeredBy: d.TriggeredBy,
	})
}

func acknowledgementObject(a *acknowledgement.Acknowledgement) (string, string) {
	if a.ServiceDescription == "" {
		return "Host", a.HostName
	}
	return "Service", serviceObjectName(a.HostName, a.ServiceDescription)
}

// AcknowledgementSet implements acknowledgement.Publisher.
func (b *Bridge) AcknowledgementSet(a *acknowledgement.Acknowledgement) {
	typ, name := acknowledgementObject(a)
	b.publish(eventbus.KindAcknowledgementSet, typ, name, eventbus.AcknowledgementPayload{
		UUID:   a.UUID,
		Author: a.Author,
		Text:   a.Text,
		Expiry: a.ExpireTime,
		Type:   a.AckType,
	})
}

// AcknowledgementCleared implements acknowledgement.Publisher.
func (b *Bridge) AcknowledgementCleared(a *acknowledgement.Acknowledgement) {
	typ, name := acknowledgementObject(a)
	b.publish(eventbus.KindAcknowledgementCleared, typ, name, eventbus.AcknowledgementPayload{
		UUID:   a.UUID,
		Author: a.Author,
		Text:   a.Text,
	})
}

package main

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/oceanplexian/gogios/internal/cluster"
	"github.com/oceanplexian/gogios/internal/eventbus"
	"github.com/oceanplexian/gogios/internal/replay"
)

// replicableKinds lists every event kind that crosses the cluster, either
// live (wireClusterBroadcast) or via journal replay on reconnect
// (wireJournal, clusterDispatcher.handleHandshake).
var replicableKinds = []eventbus.Kind{
	eventbus.KindCheckResult,
	eventbus.KindStateChange,
	eventbus.KindNextCheckChanged,
	eventbus.KindFlappingChanged,
	eventbus.KindAcknowledgementSet,
	eventbus.KindAcknowledgementCleared,
	eventbus.KindNotificationSent,
	eventbus.KindCommentAdded,
	eventbus.KindCommentRemoved,
	eventbus.KindDowntimeAdded,
	eventbus.KindDowntimeRemoved,
	eventbus.KindDowntimeTriggered,
}

// marshalEventParams builds the {object, authority, payload} envelope
// both the journal and the live broadcaster wrap an event in.
func marshalEventParams(ev eventbus.Event) (json.RawMessage, error) {
	return json.Marshal(struct {
		Object    eventbus.ObjectRef `json:"object"`
		Authority string             `json:"authority"`
		Payload   interface{}        `json:"payload"`
	}{ev.Object, ev.Authority, ev.Payload})
}

// wireJournal subscribes to every replicable event kind and appends it to
// the local replay log, tagged with a monotonically increasing sequence
// number scoped to this process (the (source, sequence) pair replay.Dedup
// uses to suppress duplicates on replay).
func wireJournal(bus *eventbus.Bus, journal *replay.Journal, identity string) {
	var seq atomic.Uint64

	for _, kind := range replicableKinds {
		method := "event::" + string(kind)
		bus.Subscribe(kind, func(ev eventbus.Event) {
			params, err := marshalEventParams(ev)
			if err != nil {
				return
			}
			journal.Append(replay.Entry{
				SourceEndpoint: identity,
				Sequence:       seq.Add(1),
				Timestamp:      time.Now().UnixNano(),
				Method:         method,
				Params:         params,
			})
		})
	}
}

// wireClusterBroadcast subscribes to every replicable event kind and
// forwards locally originated events to every currently connected peer
// as they happen, so steady-state cluster state propagates immediately
// instead of only on the next reconnect's journal replay. Events
// received from a peer (ev.Authority != identity) are not re-broadcast:
// each node's own journal is the single source of truth for what it has
// produced, and clusterDispatcher.applyEventMethod already refuses to
// apply an event whose Authority is the local identity, so loops cannot
// form even without this guard — it is kept anyway to avoid needless
// relay traffic.
func wireClusterBroadcast(bus *eventbus.Bus, transport *cluster.Transport, identity string) {
	for _, kind := range replicableKinds {
		method := "event::" + string(kind)
		bus.Subscribe(kind, func(ev eventbus.Event) {
			if ev.Authority != identity {
				return
			}
			params, err := marshalEventParams(ev)
			if err != nil {
				return
			}
			msg, err := cluster.NewMessage(method, time.Now().UnixNano(), json.RawMessage(params))
			if err != nil {
				return
			}
			for _, peer := range transport.ConnectedPeers() {
				transport.Send(peer, msg)
			}
		})
	}
}

package main

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/oceanplexian/gogios/internal/cluster"
	"github.com/oceanplexian/gogios/internal/eventbus"
	"github.com/oceanplexian/gogios/internal/logging"
	"github.com/oceanplexian/gogios/internal/objects"
	"github.com/oceanplexian/gogios/internal/replay"
	objruntime "github.com/oceanplexian/gogios/internal/runtime"
)

// connectedMembership returns the zone's effective connected-endpoint
// set: the local identity plus whichever of the zone's statically
// configured peers currently have a live link, sorted. authority.Table
// sorts internally too, but producing a stable slice here keeps
// authority.Delta's before/after comparison meaningful across calls.
func connectedMembership(identity string, connectedPeers, zoneRoster []string) []string {
	roster := make(map[string]bool, len(zoneRoster))
	for _, e := range zoneRoster {
		roster[e] = true
	}
	seen := map[string]bool{identity: true}
	members := []string{identity}
	for _, peer := range connectedPeers {
		if roster[peer] && !seen[peer] {
			seen[peer] = true
			members = append(members, peer)
		}
	}
	sort.Strings(members)
	return members
}

// replicatedEvent is the envelope wireJournal marshals every event::*
// message into: {object, authority, payload}, the same shape every local
// Event Bus subscriber already receives.
type replicatedEvent struct {
	Object    eventbus.ObjectRef `json:"object"`
	Authority string             `json:"authority"`
	Payload   json.RawMessage    `json:"payload"`
}

// clusterDispatcher is the receive side of the cluster protocol: it
// applies inbound event::* traffic to the local Object Runtime and
// drives the §4.6 connect handshake (exchange known replay positions,
// stream the gap, then log::ReplayComplete) instead of the no-op logger
// this seam used to be.
type clusterDispatcher struct {
	rt            *objruntime.Runtime
	journal       *replay.Journal
	dedup         *replay.Dedup
	identity      string
	logger        *logging.Logger
	bookmarksPath string

	transport *cluster.Transport
}

func newClusterDispatcher(rt *objruntime.Runtime, journal *replay.Journal, dedup *replay.Dedup, identity string, logger *logging.Logger, bookmarksPath string) *clusterDispatcher {
	return &clusterDispatcher{
		rt:            rt,
		journal:       journal,
		dedup:         dedup,
		identity:      identity,
		logger:        logger,
		bookmarksPath: bookmarksPath,
	}
}

// attach gives the dispatcher a way to talk back to the transport that
// owns it. cluster.New needs a Handler before the Transport it returns
// exists, so this is called once, right after construction.
func (d *clusterDispatcher) attach(t *cluster.Transport) {
	d.transport = t
}

// onLinkUp is the cluster.Config.OnLinkUp hook: it records the peer as
// seen and kicks off the handshake side of the §4.6 connect protocol by
// advertising how far we have already replayed that peer's journal.
func (d *clusterDispatcher) onLinkUp(peer string) {
	d.rt.Modify("Endpoint", peer, "seen", time.Now().Unix())

	var highest int64
	if e := d.rt.Lookup("Endpoint", peer); e != nil {
		if v, ok := e.Get("remote_log_position"); ok {
			if i, ok := v.(int64); ok {
				highest = i
			}
		}
	}

	msg, err := cluster.NewMessage(cluster.MethodHandshake, time.Now().UnixNano(), cluster.HandshakeParams{
		Identity:             d.identity,
		HighestLocalPosition: highest,
	})
	if err != nil {
		d.logger.Log("cluster: failed to build handshake for %s: %v", peer, err)
		return
	}
	if err := d.transport.Send(peer, msg); err != nil {
		d.logger.Log("cluster: failed to send handshake to %s: %v", peer, err)
	}
}

// onLinkDown is the cluster.Config.OnLinkDown hook.
func (d *clusterDispatcher) onLinkDown(peer string) {
	if d.bookmarksPath != "" {
		if err := persistBookmarks(d.rt, d.bookmarksPath); err != nil {
			d.logger.Log("cluster: failed to persist bookmarks after losing %s: %v", peer, err)
		}
	}
}

// handle is the cluster.Handler wired into cluster.New: the entire
// receive side of the protocol.
func (d *clusterDispatcher) handle(peer string, msg cluster.Message) {
	switch {
	case msg.Method == cluster.MethodHandshake:
		d.handleHandshake(peer, msg)
	case msg.Method == cluster.MethodReplay:
		d.handleReplayEntry(peer, msg)
	case msg.Method == cluster.MethodReplayComplete:
		d.logger.Log("cluster: %s finished replaying to us", peer)
	case msg.Method == cluster.MethodConfigUpdate:
		// Config attributes are immutable after load (runtime.Modify
		// rejects them); config replication is config-reload's job, not
		// this seam's. Logged so an operator can see it arrived.
		d.logger.Log("cluster: config::Update from %s (not applied here)", peer)
	case strings.HasPrefix(msg.Method, "event::"):
		d.applyEventMethod(msg.Method, msg.Params)
	default:
		d.logger.Log("cluster: unrecognized method %s from %s", msg.Method, peer)
	}
}

// handleHandshake replies to a peer's advertised replay position by
// streaming every journal entry newer than it, in order, each wrapped in
// its own log::Replay message, followed by log::ReplayComplete. Runs on
// its own goroutine so the reader loop that decoded the handshake isn't
// blocked for the duration of the stream.
func (d *clusterDispatcher) handleHandshake(peer string, msg cluster.Message) {
	var params cluster.HandshakeParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		d.logger.Log("cluster: malformed handshake from %s: %v", peer, err)
		return
	}
	d.logger.Log("cluster: handshake from %s, streaming journal since %d", peer, params.HighestLocalPosition)

	go func() {
		err := d.journal.StreamSince(params.HighestLocalPosition, func(entry replay.Entry) error {
			replayMsg, err := cluster.NewMessage(cluster.MethodReplay, time.Now().UnixNano(), entry)
			if err != nil {
				return err
			}
			return d.transport.Send(peer, replayMsg)
		})
		if err != nil {
			d.logger.Log("cluster: replay stream to %s failed: %v", peer, err)
		}

		complete, err := cluster.NewMessage(cluster.MethodReplayComplete, time.Now().UnixNano(), struct{}{})
		if err != nil {
			return
		}
		if err := d.transport.Send(peer, complete); err != nil {
			d.logger.Log("cluster: failed to send replay-complete to %s: %v", peer, err)
		}
	}()
}

// handleReplayEntry applies one replayed journal entry after confirming
// it is newer than anything already accepted from that source, then
// advances the peer's Endpoint.remote_log_position bookmark.
func (d *clusterDispatcher) handleReplayEntry(peer string, msg cluster.Message) {
	var entry replay.Entry
	if err := json.Unmarshal(msg.Params, &entry); err != nil {
		d.logger.Log("cluster: malformed replay entry from %s: %v", peer, err)
		return
	}
	if !d.dedup.Accept(entry.SourceEndpoint, entry.Sequence) {
		return
	}
	d.applyEventMethod(entry.Method, entry.Params)
	d.rt.Modify("Endpoint", peer, "remote_log_position", entry.Timestamp)
}

// applyEventMethod decodes an event::<Kind> message (whether received
// live or replayed out of a peer's journal) and projects it onto the
// matching entity in the local Object Runtime. Kinds the schema has no
// attribute for (comments, downtimes, notifications) are logged only;
// they are Livestatus/audit concerns, not Object Runtime state.
func (d *clusterDispatcher) applyEventMethod(method string, params json.RawMessage) {
	if !strings.HasPrefix(method, "event::") {
		return
	}
	kind := eventbus.Kind(strings.TrimPrefix(method, "event::"))

	var env replicatedEvent
	if err := json.Unmarshal(params, &env); err != nil {
		d.logger.Log("cluster: malformed %s envelope: %v", method, err)
		return
	}
	if env.Authority == d.identity {
		return
	}
	typ, name := env.Object.Type, env.Object.Name

	switch kind {
	case eventbus.KindCheckResult:
		var p eventbus.CheckResultPayload
		if err := json.Unmarshal(env.Payload, &p); err == nil {
			d.rt.Modify(typ, name, "last_check_result", p)
		}
	case eventbus.KindStateChange:
		var p eventbus.StateChangePayload
		if err := json.Unmarshal(env.Payload, &p); err == nil {
			d.rt.Modify(typ, name, "state", p.NewState)
			d.rt.Modify(typ, name, "state_type", p.StateType)
		}
	case eventbus.KindNextCheckChanged:
		var p eventbus.NextCheckChangedPayload
		if err := json.Unmarshal(env.Payload, &p); err == nil {
			d.rt.Modify(typ, name, "next_check", p.NextCheck.Unix())
		}
	case eventbus.KindFlappingChanged:
		var p eventbus.FlappingChangedPayload
		if err := json.Unmarshal(env.Payload, &p); err == nil {
			d.rt.Modify(typ, name, "flapping_current", p.IsFlapping)
		}
	case eventbus.KindAcknowledgementSet:
		var p eventbus.AcknowledgementPayload
		if err := json.Unmarshal(env.Payload, &p); err == nil {
			d.rt.Modify(typ, name, "acknowledgement", p.Type)
			d.rt.Modify(typ, name, "acknowledgement_expiry", p.Expiry.Unix())
		}
	case eventbus.KindAcknowledgementCleared:
		d.rt.Modify(typ, name, "acknowledgement", objects.AckNone)
	case eventbus.KindCommentAdded, eventbus.KindCommentRemoved,
		eventbus.KindDowntimeAdded, eventbus.KindDowntimeRemoved, eventbus.KindDowntimeTriggered,
		eventbus.KindNotificationSent:
		d.logger.Log("cluster: received %s for %s/%s (not applied to the Object Runtime)", kind, typ, name)
	default:
		d.logger.Log("cluster: unhandled event kind %s for %s/%s", kind, typ, name)
	}
}

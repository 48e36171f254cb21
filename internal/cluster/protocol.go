package cluster

// Well-known method names for the non-event::* control traffic exchanged
// over a link: the replay handshake (spec.md §4.6) and config
// replication. Event traffic uses "event::<Kind>", built by the caller
// from an eventbus.Kind, so it has no fixed constant here.
const (
	MethodHandshake      = "log::Handshake"
	MethodReplay         = "log::Replay"
	MethodReplayComplete = "log::ReplayComplete"
	MethodConfigUpdate   = "config::Update"
)

// HandshakeParams is sent immediately after a link comes up, in both
// directions: each side tells its peer how far it has already replayed
// that peer's journal, so the peer knows where to resume streaming from
// (spec.md §4.6 step 1 — "exchange (identity, known_endpoints,
// highest_local_position)").
type HandshakeParams struct {
	Identity             string   `json:"identity"`
	KnownEndpoints       []string `json:"known_endpoints"`
	HighestLocalPosition int64    `json:"highest_local_position"`
}

// Package authority implements deterministic ownership arbitration across
// a connected Zone's endpoints: which peer runs a given object's checks
// and emits its notifications, per spec.md §4.7 ("AUTHORITY ARBITRATION").
// The teacher (gogios) is single-node and has no analog for this; the
// hash function is fixed by the spec's own Open Question resolution
// rather than grounded in teacher code.
package authority

import (
	"hash/fnv"
	"sort"
	"sync"
)

// Feature is a named capability an object's authority governs, e.g.
// "checker" or "notification". Different features may resolve to
// different owning endpoints for the same object.
type Feature string

const (
	FeatureChecker  Feature = "checker"
	FeatureNotifier Feature = "notifier"
)

// Table holds the current connected-endpoint membership per zone and
// answers authority(object, feature) queries against it. A Table is
// owned by the engine; recompute it on every connectivity change
// (connect, disconnect, clean shutdown) per spec.md §4.7 invariant 4.
type Table struct {
	mu    sync.RWMutex
	zones map[string][]string // zone name -> connected endpoint names, sorted
}

// New creates an empty Table.
func New() *Table {
	return &Table{zones: make(map[string][]string)}
}

// SetZoneMembership replaces the connected-endpoint set for zone. Callers
// pass the full membership, not a delta; endpoints are sorted internally
// so callers need not presort.
func (t *Table) SetZoneMembership(zone string, endpoints []string) {
	sorted := append([]string(nil), endpoints...)
	sort.Strings(sorted)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.zones[zone] = sorted
}

// ZoneMembership returns the current connected-endpoint set for zone, in
// sorted order.
func (t *Table) ZoneMembership(zone string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.zones[zone]))
	copy(out, t.zones[zone])
	return out
}

// Owner computes authority(object, feature) = E_Z[ FNV1a(name || "\0" ||
// feature) mod |E_Z| ], per spec.md §4.7. Returns "" if zone has no
// connected endpoints (nothing to own it — the object is unowned until
// connectivity is established).
func (t *Table) Owner(zone, objectName string, feature Feature) string {
	t.mu.RLock()
	endpoints := t.zones[zone]
	t.mu.RUnlock()

	if len(endpoints) == 0 {
		return ""
	}

	h := fnv.New32a()
	h.Write([]byte(objectName))
	h.Write([]byte{0})
	h.Write([]byte(feature))
	idx := int(h.Sum32()) % len(endpoints)
	if idx < 0 {
		idx += len(endpoints)
	}
	return endpoints[idx]
}

// OwnedByUs reports whether localEndpoint is the authority for
// (objectName, feature) in zone. This is the gate the Scheduler and
// Notification engine consult before acting (spec.md §4.2, §4.3).
func (t *Table) OwnedByUs(zone, objectName string, feature Feature, localEndpoint string) bool {
	return t.Owner(zone, objectName, feature) == localEndpoint
}

// Delta reports how membership for zone changed between the previous
// call's snapshot and the set passed to SetZoneMembership now. Callers
// that need to know which objects "just dropped out of idle" or "were
// gained" (spec.md §4.7 invariant 4) should instead recompute Owner for
// every object of interest before and after a SetZoneMembership call;
// Delta is a convenience for logging/metrics, not a substitute for that
// recomputation, since a membership change can shuffle ownership of
// objects whose hash bucket didn't involve the added/removed endpoint at
// all only when the endpoint count itself changes the modulus.
func Delta(before, after []string) (added, removed []string) {
	beforeSet := make(map[string]bool, len(before))
	for _, e := range before {
		beforeSet[e] = true
	}
	afterSet := make(map[string]bool, len(after))
	for _, e := range after {
		afterSet[e] = true
	}
	for _, e := range after {
		if !beforeSet[e] {
			added = append(added, e)
		}
	}
	for _, e := range before {
		if !afterSet[e] {
			removed = append(removed, e)
		}
	}
	return added, removed
}

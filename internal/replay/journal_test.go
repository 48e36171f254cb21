package replay

import (
	"encoding/json"
	"os"
	"testing"
	"time"
)

func mustEntry(t *testing.T, source string, seq uint64, ts int64, method string, params interface{}) Entry {
	t.Helper()
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	return Entry{SourceEndpoint: source, Sequence: seq, Timestamp: ts, Method: method, Params: raw}
}

func TestAppendAndStreamSinceInOrder(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(dir, 0, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer j.Close()

	for i := int64(1); i <= 5; i++ {
		e := mustEntry(t, "node-a", uint64(i), i*1000, "event::CheckResult", map[string]int{"n": int(i)})
		if err := j.Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	var got []int64
	if err := j.StreamSince(2000, func(e Entry) error {
		got = append(got, e.Timestamp)
		return nil
	}); err != nil {
		t.Fatalf("StreamSince: %v", err)
	}
	want := []int64{3000, 4000, 5000}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestRotationCreatesNewSegment(t *testing.T) {
	dir := t.TempDir()
	// Tiny rotate size forces a new segment after the first entry.
	j, err := Open(dir, 10, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer j.Close()

	for i := int64(1); i <= 3; i++ {
		e := mustEntry(t, "node-a", uint64(i), i, "event::CheckResult", map[string]int{"padding": 123456})
		if err := j.Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	segments, err := j.listSegments()
	if err != nil {
		t.Fatalf("listSegments: %v", err)
	}
	if len(segments) < 2 {
		t.Fatalf("expected rotation to produce multiple segments, got %d", len(segments))
	}

	var count int
	if err := j.StreamSince(0, func(Entry) error { count++; return nil }); err != nil {
		t.Fatalf("StreamSince: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected all 3 entries to survive rotation, got %d", count)
	}
}

func TestRetentionPrunesOldSegmentsOnRotate(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(dir, 1, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer j.Close()

	// Manually backdate the first segment so it falls outside retention
	// once a rotation runs.
	j.mu.Lock()
	old := segmentPath(dir, time.Now().Add(-10*24*time.Hour))
	j.currentFile.Close()
	if err := os.Rename(j.currentPath, old); err != nil {
		t.Fatalf("backdate segment: %v", err)
	}
	j.currentPath = old
	f, err := os.OpenFile(old, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("reopen backdated segment: %v", err)
	}
	j.currentFile = f
	j.currentSize = 999
	j.retention = 24 * time.Hour
	j.mu.Unlock()

	if err := j.Append(mustEntry(t, "node-a", 1, 1, "event::CheckResult", map[string]int{"padding": 99})); err != nil {
		t.Fatalf("Append: %v", err)
	}

	segments, err := j.listSegments()
	if err != nil {
		t.Fatalf("listSegments: %v", err)
	}
	for _, s := range segments {
		if s == old {
			t.Fatalf("expected backdated segment %s to be pruned, segments=%v", old, segments)
		}
	}
}

func TestDedupAcceptsOnlyIncreasingSequence(t *testing.T) {
	d, err := NewDedup(16)
	if err != nil {
		t.Fatalf("NewDedup: %v", err)
	}
	if !d.Accept("node-a", 1) {
		t.Fatal("expected first sequence from a source to be accepted")
	}
	if !d.Accept("node-a", 2) {
		t.Fatal("expected strictly increasing sequence to be accepted")
	}
	if d.Accept("node-a", 2) {
		t.Fatal("expected a repeated sequence to be rejected")
	}
	if d.Accept("node-a", 1) {
		t.Fatal("expected an out-of-order lower sequence to be rejected")
	}
	if !d.Accept("node-b", 1) {
		t.Fatal("expected a different source's sequence to be tracked independently")
	}
}

func TestCompactionPreservesRestoreEquivalence(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(dir, 0, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer j.Close()

	entries := []Entry{
		mustEntry(t, "node-a", 1, 100, methodConfigUpdate, configUpdateParams{Type: "Host", Name: "web1"}),
		mustEntry(t, "node-a", 2, 200, "event::CheckResult", map[string]string{"object": "web1"}),
		mustEntry(t, "node-a", 3, 300, methodConfigUpdate, configUpdateParams{Type: "Host", Name: "web1"}),
		mustEntry(t, "node-a", 4, 400, methodConfigUpdate, configUpdateParams{Type: "Host", Name: "web2"}),
		mustEntry(t, "node-a", 5, 500, methodConfigUpdate, configUpdateParams{Type: "Host", Name: "web1"}),
	}
	for _, e := range entries {
		if err := j.Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	// Simulate applying every entry to an Object Runtime: a config::Update
	// is idempotent, so the "restored" state is just the last Params seen
	// per (type, name).
	stateBefore := applyAll(entries)

	if err := j.CompactLiveSegment(); err != nil {
		t.Fatalf("CompactLiveSegment: %v", err)
	}

	var after []Entry
	if err := j.StreamSince(0, func(e Entry) error { after = append(after, e); return nil }); err != nil {
		t.Fatalf("StreamSince after compaction: %v", err)
	}

	// Compaction must drop the two superseded web1 config::Update entries
	// (sequence 1 and 3), keeping sequence 5, while leaving the
	// interleaved CheckResult and the web2 update untouched.
	if len(after) != 3 {
		t.Fatalf("expected 3 entries after compaction, got %d: %+v", len(after), after)
	}

	stateAfter := applyAll(after)
	if len(stateBefore) != len(stateAfter) {
		t.Fatalf("restore-equivalence broken: before=%v after=%v", stateBefore, stateAfter)
	}
	for k, v := range stateBefore {
		if stateAfter[k] != v {
			t.Fatalf("restore-equivalence broken for %s: before=%q after=%q", k, v, stateAfter[k])
		}
	}
}

func applyAll(entries []Entry) map[string]string {
	state := make(map[string]string)
	for _, e := range entries {
		if e.Method != methodConfigUpdate {
			continue
		}
		var p configUpdateParams
		if err := json.Unmarshal(e.Params, &p); err != nil {
			continue
		}
		state[p.Type+"/"+p.Name] = string(e.Params)
	}
	return state
}

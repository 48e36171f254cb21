package main

import (
	"encoding/json"

	"github.com/google/renameio/v2"

	objruntime "github.com/oceanplexian/gogios/internal/runtime"
)

// bookmarkRecord is one line of bookmarks.json: how far replay has
// progressed against a single peer endpoint (spec.md §6).
type bookmarkRecord struct {
	Endpoint          string `json:"endpoint"`
	Seen              int64  `json:"seen,omitempty"`
	LocalLogPosition  int64  `json:"local_log_position,omitempty"`
	RemoteLogPosition int64  `json:"remote_log_position,omitempty"`
}

func int64Attr(e *objruntime.Entity, attr string) int64 {
	v, ok := e.Get(attr)
	if !ok {
		return 0
	}
	i, _ := v.(int64)
	return i
}

// persistBookmarks writes the current replay position of every known
// peer endpoint to path, atomically, so a restart resumes streaming from
// the last applied position instead of replaying the whole journal.
func persistBookmarks(rt *objruntime.Runtime, path string) error {
	endpoints := rt.Enumerate("Endpoint")
	records := make([]bookmarkRecord, 0, len(endpoints))
	for _, e := range endpoints {
		records = append(records, bookmarkRecord{
			Endpoint:          e.Name,
			Seen:              int64Attr(e, "seen"),
			LocalLogPosition:  int64Attr(e, "local_log_position"),
			RemoteLogPosition: int64Attr(e, "remote_log_position"),
		})
	}
	body, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(path, body, 0o644)
}

package livestatus

import (
	"time"

	"github.com/oceanplexian/gogios/internal/api"
	objruntime "github.com/oceanplexian/gogios/internal/runtime"
)

// endpointsTable exposes cluster peer connectivity and replay position. It
// has no objects.ObjectStore equivalent: Endpoint/Zone only exist in the
// Object Runtime, so GetRows returns nothing in single-node mode (Runtime
// nil or no Endpoint entities registered) rather than erroring.
func endpointsTable() *Table {
	return &Table{
		Name: "endpoints",
		GetRows: func(p *api.StateProvider) []interface{} {
			if p.Runtime == nil {
				return nil
			}
			entities := p.Runtime.Enumerate("Endpoint")
			rows := make([]interface{}, len(entities))
			for i, e := range entities {
				rows[i] = e
			}
			return rows
		},
		Columns: map[string]*Column{
			"name": {Name: "name", Type: "string", Extract: func(r interface{}) interface{} {
				return r.(*objruntime.Entity).Name
			}},
			"host": {Name: "host", Type: "string", Extract: func(r interface{}) interface{} {
				return endpointString(r, "host")
			}},
			"port": {Name: "port", Type: "int", Extract: func(r interface{}) interface{} {
				return endpointInt(r, "port")
			}},
			"seen": {Name: "seen", Type: "time", Extract: func(r interface{}) interface{} {
				if sec := endpointInt(r, "seen"); sec != 0 {
					return time.Unix(sec, 0)
				}
				return time.Time{}
			}},
			"local_log_position": {Name: "local_log_position", Type: "int", Extract: func(r interface{}) interface{} {
				return endpointInt(r, "local_log_position")
			}},
			"remote_log_position": {Name: "remote_log_position", Type: "int", Extract: func(r interface{}) interface{} {
				return endpointInt(r, "remote_log_position")
			}},
		},
	}
}

func endpointString(r interface{}, attr string) string {
	v, ok := r.(*objruntime.Entity).Get(attr)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func endpointInt(r interface{}, attr string) int64 {
	v, ok := r.(*objruntime.Entity).Get(attr)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}

package main

import (
	"github.com/oceanplexian/gogios/internal/clusterconfig"
	"github.com/oceanplexian/gogios/internal/objects"
	objruntime "github.com/oceanplexian/gogios/internal/runtime"
)

// registerObjectRuntime populates the generic Object Runtime from the
// teacher's typed store so that Snapshot/Restore, cluster replay, and
// incoming peer events have something to apply to. The typed Host/Service
// structs remain the source of truth for the scheduler and state
// machine; this is a one-way projection kept current by syncHostState /
// syncServiceState after every processed CheckResult.
func registerObjectRuntime(rt *objruntime.Runtime, store *objects.ObjectStore) {
	rt.RegisterSchema(objruntime.HostSchema)
	rt.RegisterSchema(objruntime.ServiceSchema)

	for _, h := range store.Hosts {
		rt.Register("Host", h.Name, map[string]interface{}{
			"check_interval":     h.CheckInterval,
			"retry_interval":     h.RetryInterval,
			"max_check_attempts": h.MaxCheckAttempts,
			"address":            h.Address,
		})
	}
	for _, svc := range store.Services {
		if svc.Host == nil {
			continue
		}
		rt.Register("Service", svc.Host.Name+"!"+svc.Description, map[string]interface{}{
			"check_interval":     svc.CheckInterval,
			"retry_interval":     svc.RetryInterval,
			"max_check_attempts": svc.MaxCheckAttempts,
			"host_name":          svc.Host.Name,
			"description":        svc.Description,
		})
	}
}

// syncHostState projects the state-class attributes of host into rt,
// publishing AttributeChanged for anything that moved.
func syncHostState(rt *objruntime.Runtime, h *objects.Host) {
	attrs := map[string]interface{}{
		"state":                  h.CurrentState,
		"state_type":             h.StateType,
		"current_attempt":        h.CurrentAttempt,
		"last_state_change":      h.LastStateChange.Unix(),
		"last_hard_state_change": h.LastHardStateChange.Unix(),
		"next_check":             h.NextCheck.Unix(),
		"flapping_current":       h.IsFlapping,
		"in_downtime_depth":      h.ScheduledDowntimeDepth,
	}
	for attr, val := range attrs {
		rt.Modify("Host", h.Name, attr, val)
	}
}

// registerZoneRuntime populates the Object Runtime with the Endpoint and
// Zone entities from a loaded zones.yaml, so cluster membership and
// replay bookmarks (local_log_position / remote_log_position, spec.md
// §6) have somewhere to live instead of only existing inside
// cluster.Transport's in-memory link map.
func registerZoneRuntime(rt *objruntime.Runtime, zone clusterconfig.Zone) {
	rt.RegisterSchema(objruntime.EndpointSchema)
	rt.RegisterSchema(objruntime.ZoneSchema)

	rt.Register("Zone", zone.Name, map[string]interface{}{
		"parent":    zone.Parent,
		"endpoints": zone.EndpointNames(),
	})
	for _, ep := range zone.Endpoints {
		rt.Register("Endpoint", ep.Name, map[string]interface{}{
			"host":     ep.Host,
			"port":     ep.Port,
			"features": []string{"checker", "notifier"},
		})
	}
}

// syncServiceState is the Service analogue of syncHostState.
func syncServiceState(rt *objruntime.Runtime, svc *objects.Service) {
	if svc.Host == nil {
		return
	}
	name := svc.Host.Name + "!" + svc.Description
	attrs := map[string]interface{}{
		"state":                  svc.CurrentState,
		"state_type":             svc.StateType,
		"current_attempt":        svc.CurrentAttempt,
		"last_state_change":      svc.LastStateChange.Unix(),
		"last_hard_state_change": svc.LastHardStateChange.Unix(),
		"next_check":             svc.NextCheck.Unix(),
		"flapping_current":       svc.IsFlapping,
		"in_downtime_depth":      svc.ScheduledDowntimeDepth,
	}
	for attr, val := range attrs {
		rt.Modify("Service", name, attr, val)
	}
}

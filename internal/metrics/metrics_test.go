package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ChecksExecuted.Inc()
	m.ClusterMsgSent.WithLabelValues("node-a", "event::CheckResult").Inc()
	m.PeerConnected.WithLabelValues("node-a").Set(1)

	if got := testutil.ToFloat64(m.ChecksExecuted); got != 1 {
		t.Fatalf("expected ChecksExecuted=1, got %v", got)
	}
	if got := testutil.ToFloat64(m.ClusterMsgSent.WithLabelValues("node-a", "event::CheckResult")); got != 1 {
		t.Fatalf("expected ClusterMsgSent=1, got %v", got)
	}
}

func TestNewPanicsOnDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	defer func() {
		if recover() == nil {
			t.Fatal("expected MustRegister to panic on duplicate collectors")
		}
	}()
	New(reg)
}

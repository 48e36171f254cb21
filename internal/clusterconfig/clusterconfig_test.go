package clusterconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
identity: node-a
bind_host: 0.0.0.0
bind_port: 5665
tls:
  cert_file: certs/node-a.crt
  key_file: certs/node-a.key
  ca_file: certs/ca.crt
zones:
  - name: main
    endpoints:
      - name: node-a
        host: 10.0.0.1
        port: 5665
      - name: node-b
        host: 10.0.0.2
        port: 5665
journal:
  directory: /var/lib/gogios/journal
  rotate_size_mb: 100
  retention_period: 48h
`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "zones.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatalf("write sample config: %v", err)
	}
	return path
}

func TestLoadParsesTopology(t *testing.T) {
	cfg, err := Load(writeSample(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Identity != "node-a" {
		t.Fatalf("expected identity node-a, got %q", cfg.Identity)
	}
	if len(cfg.Zones) != 1 || len(cfg.Zones[0].Endpoints) != 2 {
		t.Fatalf("expected 1 zone with 2 endpoints, got %+v", cfg.Zones)
	}
	if cfg.Journal.RotateSizeMB != 100 {
		t.Fatalf("expected rotate_size_mb 100, got %d", cfg.Journal.RotateSizeMB)
	}
	if cfg.Journal.RetentionPeriod != 48*time.Hour {
		t.Fatalf("expected retention_period 48h, got %v", cfg.Journal.RetentionPeriod)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zones.yaml")
	if err := os.WriteFile(path, []byte("identity: node-a\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BindPort != 5665 {
		t.Fatalf("expected default bind_port 5665, got %d", cfg.BindPort)
	}
	if cfg.Journal.RotateSizeMB != 50 {
		t.Fatalf("expected default rotate_size_mb 50, got %d", cfg.Journal.RotateSizeMB)
	}
	if cfg.Journal.RetentionPeriod != 7*24*time.Hour {
		t.Fatalf("expected default retention_period 7d, got %v", cfg.Journal.RetentionPeriod)
	}
	if cfg.MaxMsgMiB != 64 {
		t.Fatalf("expected default max_message_mib 64, got %d", cfg.MaxMsgMiB)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error loading a nonexistent zones.yaml")
	}
}

func TestEndpointNames(t *testing.T) {
	cfg, err := Load(writeSample(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	names := cfg.Zones[0].EndpointNames()
	if len(names) != 2 || names[0] != "node-a" || names[1] != "node-b" {
		t.Fatalf("unexpected endpoint names: %v", names)
	}
}

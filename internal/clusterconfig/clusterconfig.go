// Package clusterconfig loads zones.yaml: the cluster topology, TLS
// material paths, and replay journal settings that sit alongside the
// teacher's own object-template config language (internal/config) rather
// than replacing it. Loading and hot-reload are done with viper, grounded
// in ipiton-alert-history-service's SIGHUP/viper reload handler
// (cmd/server/signal.go).
package clusterconfig

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Endpoint is one peer in a Zone's endpoint list.
type Endpoint struct {
	Name string `mapstructure:"name"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Zone is one node of the zone tree: a name, an optional parent, and the
// endpoints that belong to it.
type Zone struct {
	Name      string     `mapstructure:"name"`
	Parent    string     `mapstructure:"parent"`
	Endpoints []Endpoint `mapstructure:"endpoints"`
}

// TLSConfig names the on-disk material produced by the teacher's
// (out-of-scope) cert wizard: certs/<cn>.{crt,key} and ca.crt.
type TLSConfig struct {
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
	CAFile   string `mapstructure:"ca_file"`
}

// JournalConfig controls replay-log segment rotation and retention
// (spec.md §4.6: rotate at N MB, default 50; retain log_retention,
// default 7 days).
type JournalConfig struct {
	Directory       string        `mapstructure:"directory"`
	RotateSizeMB    int           `mapstructure:"rotate_size_mb"`
	RetentionPeriod time.Duration `mapstructure:"retention_period"`
}

// Config is the full contents of zones.yaml.
type Config struct {
	Identity  string        `mapstructure:"identity"`
	BindHost  string        `mapstructure:"bind_host"`
	BindPort  int           `mapstructure:"bind_port"`
	TLS       TLSConfig     `mapstructure:"tls"`
	Zones     []Zone        `mapstructure:"zones"`
	Journal   JournalConfig `mapstructure:"journal"`
	MaxMsgMiB int           `mapstructure:"max_message_mib"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bind_port", 5665)
	v.SetDefault("journal.rotate_size_mb", 50)
	v.SetDefault("journal.retention_period", 7*24*time.Hour)
	v.SetDefault("max_message_mib", 64)
}

// Load reads zones.yaml from path into a Config.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("clusterconfig: read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("clusterconfig: unmarshal %s: %w", path, err)
	}
	return &cfg, nil
}

// Watcher wraps a viper instance configured to hot-reload zones.yaml.
// Per SPEC_FULL.md §6, TLS path and journal limit changes take effect on
// next rotation/reconnect, not mid-connection — onChange is expected to
// stash the new Config for the next such boundary rather than apply it
// immediately.
type Watcher struct {
	v *viper.Viper
}

// WatchFile starts watching path for changes, invoking onChange with the
// freshly parsed Config whenever it is rewritten. onChange is called on
// viper's internal fsnotify goroutine.
func WatchFile(path string, onChange func(*Config, error)) (*Watcher, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("clusterconfig: read %s: %w", path, err)
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			onChange(nil, fmt.Errorf("clusterconfig: reload %s: %w", path, err))
			return
		}
		onChange(&cfg, nil)
	})
	v.WatchConfig()

	return &Watcher{v: v}, nil
}

// Current returns the Watcher's most recently loaded Config.
func (w *Watcher) Current() (*Config, error) {
	var cfg Config
	if err := w.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("clusterconfig: unmarshal current config: %w", err)
	}
	return &cfg, nil
}

// EndpointNames returns the sorted-by-registration names of every
// endpoint in zone.
func (z Zone) EndpointNames() []string {
	names := make([]string, len(z.Endpoints))
	for i, e := range z.Endpoints {
		names[i] = e.Name
	}
	return names
}

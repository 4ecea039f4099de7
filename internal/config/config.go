// Package config provides the typed palisade configuration, loaded once at
// startup and validated before anything touches the firewall.
package config

import (
	"time"

	"grimm.is/palisade/internal/brand"
)

// CurrentSchemaVersion defines the current schema version of the configuration.
const CurrentSchemaVersion = "1.0"

// Config is the top-level structure for the palisade configuration.
type Config struct {
	// Schema version for backward compatibility (e.g., "1.0")
	SchemaVersion string `hcl:"schema_version,optional" json:"schema_version,omitempty"`

	LogLevel string `hcl:"log_level,optional" json:"log_level,omitempty"`

	AllowList *AllowListConfig `hcl:"allowlist,block" json:"allowlist,omitempty"`
	Firewall  *FirewallConfig  `hcl:"firewall,block" json:"firewall,omitempty"`
	Monitor   *MonitorConfig   `hcl:"monitor,block" json:"monitor,omitempty"`
	Auto      *AutoConfig      `hcl:"auto,block" json:"auto,omitempty"`
}

// AllowListConfig controls which sources feed the compiled allow-list.
type AllowListConfig struct {
	// Custom static entries, dotted-quad or CIDR.
	Custom []string `hcl:"custom,optional" json:"custom,omitempty"`

	// IncludePrivate adds the RFC1918 ranges to the allow-list.
	IncludePrivate bool `hcl:"include_private,optional" json:"include_private"`

	// CoarsenHosts widens bare host addresses to their containing /24.
	// This is deliberate: crawler addresses churn within a provider's /24,
	// so single hosts are treated as representative of their block.
	// Explicit CIDR entries are never coarsened. Defaults to true.
	CoarsenHosts *bool `hcl:"coarsen_hosts,optional" json:"coarsen_hosts,omitempty"`

	Remote *RemoteConfig `hcl:"remote,block" json:"remote,omitempty"`
}

// RemoteConfig describes the remotely fetched address list.
type RemoteConfig struct {
	Enabled bool   `hcl:"enabled,optional" json:"enabled"`
	URL     string `hcl:"url,optional" json:"url,omitempty"`

	// Timeout in seconds for the whole fetch. Defaults to 30.
	Timeout int `hcl:"timeout,optional" json:"timeout,omitempty"`

	// CacheTTL in seconds; 0 disables the on-disk cache.
	CacheTTL int `hcl:"cache_ttl,optional" json:"cache_ttl,omitempty"`
}

// FirewallConfig controls the nftables table palisade manages.
type FirewallConfig struct {
	// Table is the nftables table name. Defaults to the brand name.
	Table string `hcl:"table,optional" json:"table,omitempty"`

	// LogPrefix tags kernel log lines emitted for rejected packets.
	LogPrefix string `hcl:"log_prefix,optional" json:"log_prefix,omitempty"`

	// BackupDir holds ruleset snapshots. Defaults under the state dir.
	BackupDir string `hcl:"backup_dir,optional" json:"backup_dir,omitempty"`
}

// MonitorConfig controls the blocked-traffic monitor.
type MonitorConfig struct {
	// EventDir holds the daily blocked-event logs.
	EventDir string `hcl:"event_dir,optional" json:"event_dir,omitempty"`

	// LogSources are candidate kernel log paths, first existing wins.
	LogSources []string `hcl:"log_sources,optional" json:"log_sources,omitempty"`

	// StatusEvery emits a live status line after this many events.
	StatusEvery int `hcl:"status_every,optional" json:"status_every,omitempty"`

	// MetricsListen serves prometheus metrics when non-empty, e.g. ":9155".
	MetricsListen string `hcl:"metrics_listen,optional" json:"metrics_listen,omitempty"`
}

// AutoConfig tunes fully-automatic mode, which trades confirmation
// prompts for a fixed countdown before mutating.
type AutoConfig struct {
	// Countdown in seconds before a destructive operation proceeds.
	Countdown int `hcl:"countdown,optional" json:"countdown,omitempty"`
}

// DefaultLogSources are the well-known kernel log paths, in probe order.
var DefaultLogSources = []string{
	"/var/log/kern.log",
	"/var/log/messages",
	"/var/log/syslog",
}

// DefaultLogPrefix is the constant tag on kernel log lines for rejected packets.
const DefaultLogPrefix = "PALISADE-DROP: "

// New returns a config populated with defaults.
func New() *Config {
	cfg := &Config{SchemaVersion: CurrentSchemaVersion}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills in zero-valued fields. Safe to call on loaded configs.
func (c *Config) ApplyDefaults() {
	if c.SchemaVersion == "" {
		c.SchemaVersion = CurrentSchemaVersion
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.AllowList == nil {
		c.AllowList = &AllowListConfig{IncludePrivate: true}
	}
	if c.AllowList.Remote == nil {
		c.AllowList.Remote = &RemoteConfig{}
	}
	if c.AllowList.Remote.Timeout <= 0 {
		c.AllowList.Remote.Timeout = 30
	}
	if c.Firewall == nil {
		c.Firewall = &FirewallConfig{}
	}
	if c.Firewall.Table == "" {
		c.Firewall.Table = brand.LowerName
	}
	if c.Firewall.LogPrefix == "" {
		c.Firewall.LogPrefix = DefaultLogPrefix
	}
	if c.Firewall.BackupDir == "" {
		c.Firewall.BackupDir = brand.GetBackupDir()
	}
	if c.Monitor == nil {
		c.Monitor = &MonitorConfig{}
	}
	if c.Monitor.EventDir == "" {
		c.Monitor.EventDir = brand.GetLogDir()
	}
	if len(c.Monitor.LogSources) == 0 {
		c.Monitor.LogSources = append([]string(nil), DefaultLogSources...)
	}
	if c.Monitor.StatusEvery <= 0 {
		c.Monitor.StatusEvery = 100
	}
	if c.Auto == nil {
		c.Auto = &AutoConfig{}
	}
	if c.Auto.Countdown <= 0 {
		c.Auto.Countdown = 5
	}
}

// Coarsen reports whether bare hosts are widened to their /24.
func (c *Config) Coarsen() bool {
	if c.AllowList == nil || c.AllowList.CoarsenHosts == nil {
		return true
	}
	return *c.AllowList.CoarsenHosts
}

// RemoteTimeout returns the remote fetch timeout as a duration.
func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.AllowList.Remote.Timeout) * time.Second
}

// RemoteCacheTTL returns the cache TTL as a duration; zero disables caching.
func (c *Config) RemoteCacheTTL() time.Duration {
	return time.Duration(c.AllowList.Remote.CacheTTL) * time.Second
}

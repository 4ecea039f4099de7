package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate checks the configuration for errors that would make the
// compile-and-apply pipeline misbehave. It assumes defaults are applied.
func (c *Config) Validate() error {
	var errs []string

	if c.SchemaVersion != CurrentSchemaVersion {
		errs = append(errs, fmt.Sprintf("unsupported schema_version %q (current: %s)",
			c.SchemaVersion, CurrentSchemaVersion))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid log_level %q", c.LogLevel))
	}

	if c.AllowList != nil {
		for _, entry := range c.AllowList.Custom {
			if !validAddress(entry) {
				errs = append(errs, fmt.Sprintf("invalid allowlist custom entry %q", entry))
			}
		}
		if r := c.AllowList.Remote; r != nil && r.Enabled {
			if r.URL == "" {
				errs = append(errs, "remote list enabled but url is empty")
			} else if u, err := url.Parse(r.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
				errs = append(errs, fmt.Sprintf("invalid remote url %q", r.URL))
			}
			if r.Timeout < 1 || r.Timeout > 600 {
				errs = append(errs, fmt.Sprintf("remote timeout %d out of range (1-600s)", r.Timeout))
			}
		}
	}

	if c.Firewall != nil {
		if !validNftName(c.Firewall.Table) {
			errs = append(errs, fmt.Sprintf("invalid firewall table name %q", c.Firewall.Table))
		}
		if c.Firewall.LogPrefix == "" {
			errs = append(errs, "firewall log_prefix must not be empty")
		} else if len(c.Firewall.LogPrefix) > 64 {
			// NF_LOG_PREFIXLEN is 128; keep well under it
			errs = append(errs, "firewall log_prefix too long")
		}
	}

	if c.Monitor != nil {
		if len(c.Monitor.LogSources) == 0 {
			errs = append(errs, "monitor needs at least one log source")
		}
		for _, src := range c.Monitor.LogSources {
			if !strings.HasPrefix(src, "/") {
				errs = append(errs, fmt.Sprintf("monitor log source %q must be an absolute path", src))
			}
		}
	}

	if c.Auto != nil && c.Auto.Countdown > 300 {
		errs = append(errs, fmt.Sprintf("auto countdown %d too large (max 300s)", c.Auto.Countdown))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validAddress(s string) bool {
	if strings.Contains(s, "/") {
		ip, _, err := net.ParseCIDR(s)
		return err == nil && ip.To4() != nil
	}
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() != nil
}

// validNftName rejects characters that would break out of an nft identifier.
func validNftName(s string) bool {
	if s == "" || len(s) > 63 {
		return false
	}
	for _, r := range s {
		if !(r == '_' || r == '-' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

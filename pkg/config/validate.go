package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/pokerops/tourneytrack/pkg/utils"
)

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	// ListenAddr
	if c.ListenAddr == "" {
		warnings = append(warnings, "listen_addr is empty, defaulting to ':8080'")
		c.ListenAddr = ":8080"
	}

	// StateDir
	if c.StateDir == "" {
		warnings = append(warnings, "state_dir is empty, defaulting to './tracker_state'")
		c.StateDir = "./tracker_state"
	}

	// RefreshInterval
	if c.RefreshInterval <= 0 {
		warnings = append(warnings, "refresh_interval not specified or invalid, defaulting to 30s")
		c.RefreshInterval = 30 * time.Second
	}

	// MaxConcurrentRefreshes
	if c.MaxConcurrentRefreshes <= 0 {
		warnings = append(warnings, "max_concurrent_refreshes should be > 0, defaulting to 8")
		c.MaxConcurrentRefreshes = 8
	}

	// Refetch rate limiting
	if c.RefetchRatePerMinute <= 0 {
		c.RefetchRatePerMinute = 6
	}
	if c.RefetchBurst <= 0 {
		c.RefetchBurst = 2
	}

	// RequestTimeout
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}

	// GCInterval
	if c.GCInterval < 0 {
		warnings = append(warnings, "gc_interval cannot be negative, using default")
		c.GCInterval = 0
	}

	// ExportDir
	if c.ExportDir == "" {
		c.ExportDir = "./exports"
	}

	// Venues
	if len(c.Venues) == 0 {
		return warnings, fmt.Errorf("%w: no venues configured", utils.ErrConfigValidation)
	}
	for key, venue := range c.Venues {
		if venue.BaseURL == "" {
			return warnings, fmt.Errorf("%w: venue %q has no base_url", utils.ErrConfigValidation, key)
		}
		parsed, parseErr := url.Parse(venue.BaseURL)
		if parseErr != nil || parsed.Scheme == "" || parsed.Host == "" {
			return warnings, fmt.Errorf("%w: venue %q base_url %q is not an absolute URL",
				utils.ErrConfigValidation, key, venue.BaseURL)
		}
		if venue.Name == "" {
			warnings = append(warnings, fmt.Sprintf("venue %q has no name, using its key", key))
			venue.Name = key
			c.Venues[key] = venue
		}
		if venue.RefetchDelay < 0 {
			return warnings, fmt.Errorf("%w: venue %q refetch_delay cannot be negative",
				utils.ErrConfigValidation, key)
		}
	}

	return warnings, nil
}

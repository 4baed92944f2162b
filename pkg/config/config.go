package config

import (
	"fmt"
	"time"
)

// VenueConfig holds configuration specific to a single venue website
type VenueConfig struct {
	Name            string        `yaml:"name"`
	BaseURL         string        `yaml:"base_url"`
	DoNotScrape     *bool         `yaml:"do_not_scrape,omitempty"`     // Overrides robots.txt policy when set
	UserAgent       string        `yaml:"user_agent,omitempty"`        // Overrides default user agent
	RefetchDelay    time.Duration `yaml:"refetch_delay,omitempty"`     // Minimum delay between debug refetches
	GameURLTemplate string        `yaml:"game_url_template,omitempty"` // e.g. "%s/tournaments/event-%d"
}

// AppConfig holds the global application configuration
type AppConfig struct {
	ListenAddr             string        `yaml:"listen_addr"`
	StateDir               string        `yaml:"state_dir"`
	DefaultUserAgent       string        `yaml:"default_user_agent"`
	RefreshInterval        time.Duration `yaml:"refresh_interval,omitempty"`         // Tracker polling interval
	MaxConcurrentRefreshes int           `yaml:"max_concurrent_refreshes,omitempty"` // Bound on parallel game refreshes
	RefetchRatePerMinute   int           `yaml:"refetch_rate_per_minute,omitempty"`  // Debug refetch rate limit
	RefetchBurst           int           `yaml:"refetch_burst,omitempty"`
	RequestTimeout         time.Duration `yaml:"request_timeout,omitempty"` // Outbound HTTP timeout
	GCInterval             time.Duration `yaml:"gc_interval,omitempty"`     // Badger value-log GC interval
	ExportDir              string        `yaml:"export_dir,omitempty"`
	AutoSaveRealGames      bool          `yaml:"auto_save_real_games,omitempty"` // Skip review for non-placeholder payloads

	Venues map[string]VenueConfig `yaml:"venues"`
}

// GetEffectiveUserAgent determines the user agent for a venue.
// Venue config (if non-empty) overrides the global default.
func GetEffectiveUserAgent(venueCfg VenueConfig, appCfg AppConfig) string {
	if venueCfg.UserAgent != "" {
		return venueCfg.UserAgent
	}
	if appCfg.DefaultUserAgent != "" {
		return appCfg.DefaultUserAgent
	}
	return "tourneytrack/1.0"
}

// GetEffectiveDoNotScrape determines whether a venue is excluded from
// scraping by operator policy. Unset means "defer to robots.txt".
func GetEffectiveDoNotScrape(venueCfg VenueConfig) (excluded, explicit bool) {
	if venueCfg.DoNotScrape != nil {
		return *venueCfg.DoNotScrape, true
	}
	return false, false
}

// BuildGameURL renders the venue page URL for an event number. The template
// receives the base URL and the event number; venues without a template use
// the common <base>/event/<n> layout.
func (v VenueConfig) BuildGameURL(eventNumber int) string {
	if v.GameURLTemplate != "" {
		return fmt.Sprintf(v.GameURLTemplate, v.BaseURL, eventNumber)
	}
	return fmt.Sprintf("%s/event/%d", v.BaseURL, eventNumber)
}

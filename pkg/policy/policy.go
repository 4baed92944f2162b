// Package policy answers "may this URL be scraped" before a scrape job is
// enqueued. It combines operator-level venue overrides from config with each
// venue's robots.txt rules. It deliberately knows nothing about how scraping
// is performed.
package policy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"

	"github.com/pokerops/tourneytrack/pkg/config"
	"github.com/pokerops/tourneytrack/pkg/utils"
)

// Decision is the outcome of a policy check
type Decision struct {
	Allowed bool
	Reason  string // Populated when not allowed
}

// Checker caches per-host robots.txt data and evaluates scrape policy
type Checker struct {
	client        *http.Client
	cfg           *config.AppConfig
	cfgMu         sync.RWMutex
	robotsCache   map[string]*robotstxt.RobotsData // hostname -> parsed data (or nil on fetch/parse failure)
	robotsCacheMu sync.Mutex
	log           *logrus.Entry
}

// NewChecker creates a policy checker
func NewChecker(client *http.Client, cfg *config.AppConfig, log *logrus.Entry) *Checker {
	if client == nil {
		client = http.DefaultClient
	}
	return &Checker{
		client:      client,
		cfg:         cfg,
		robotsCache: make(map[string]*robotstxt.RobotsData),
		log:         log,
	}
}

// SetConfig swaps the active config (hot reload)
func (c *Checker) SetConfig(cfg *config.AppConfig) {
	c.cfgMu.Lock()
	c.cfg = cfg
	c.cfgMu.Unlock()
}

func (c *Checker) venueConfig(venueKey string) (config.VenueConfig, *config.AppConfig, bool) {
	c.cfgMu.RLock()
	defer c.cfgMu.RUnlock()
	venue, ok := c.cfg.Venues[venueKey]
	return venue, c.cfg, ok
}

// Check evaluates scrape policy for a venue URL. Operator config wins over
// robots.txt in both directions: an explicit do_not_scrape=false override
// permits a venue robots.txt would block.
func (c *Checker) Check(ctx context.Context, venueKey, rawURL string) (Decision, error) {
	venue, appCfg, ok := c.venueConfig(venueKey)
	if !ok {
		return Decision{}, fmt.Errorf("%w: unknown venue %q", utils.ErrInvalidInput, venueKey)
	}

	target, err := url.Parse(rawURL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return Decision{}, fmt.Errorf("%w: URL %q is not absolute", utils.ErrInvalidInput, rawURL)
	}

	if excluded, explicit := config.GetEffectiveDoNotScrape(venue); explicit {
		if excluded {
			return Decision{Allowed: false, Reason: "venue marked do-not-scrape in config"}, nil
		}
		return Decision{Allowed: true}, nil
	}

	userAgent := config.GetEffectiveUserAgent(venue, *appCfg)
	if !c.testAgent(ctx, target, userAgent) {
		return Decision{Allowed: false, Reason: "disallowed by robots.txt"}, nil
	}
	return Decision{Allowed: true}, nil
}

// testAgent checks if the user agent is allowed access based on cached or
// freshly fetched robots.txt. Returns true if allowed, and also when robots
// data could not be obtained (the conventional permissive fallback).
func (c *Checker) testAgent(ctx context.Context, target *url.URL, userAgent string) bool {
	data := c.robotsData(ctx, target)
	if data == nil {
		return true
	}
	return data.TestAgent(target.RequestURI(), userAgent)
}

// robotsData retrieves robots.txt data for the target's host, using cache or
// fetching. Returns nil on any fetch/parse failure; the nil result is cached
// so a broken host is not re-fetched on every check.
func (c *Checker) robotsData(ctx context.Context, target *url.URL) *robotstxt.RobotsData {
	host := target.Hostname()
	hostLog := c.log.WithField("host", host)

	c.robotsCacheMu.Lock()
	data, found := c.robotsCache[host]
	c.robotsCacheMu.Unlock()
	if found {
		return data
	}

	robotsURL := &url.URL{Scheme: target.Scheme, Host: target.Host, Path: "/robots.txt"}
	if robotsURL.Scheme != "http" && robotsURL.Scheme != "https" {
		hostLog.Warnf("Invalid scheme '%s', defaulting to https for robots.txt", target.Scheme)
		robotsURL.Scheme = "https"
	}
	hostLog.Infof("Fetching robots.txt from %s", robotsURL)

	data = c.fetchRobots(ctx, robotsURL.String())

	c.robotsCacheMu.Lock()
	c.robotsCache[host] = data
	c.robotsCacheMu.Unlock()
	return data
}

func (c *Checker) fetchRobots(ctx context.Context, robotsURL string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		c.log.Errorf("Error creating robots.txt request: %v", err)
		return nil
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Errorf("Fetching robots.txt failed: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Missing or blocked robots.txt reads as "no restrictions"
		c.log.Debugf("robots.txt returned status %d, treating as absent", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Errorf("Error reading robots.txt body: %v", err)
		return nil
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		c.log.Errorf("Error parsing robots.txt: %v", err)
		return nil
	}
	return data
}

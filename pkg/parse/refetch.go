package parse

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/pokerops/tourneytrack/pkg/config"
	"github.com/pokerops/tourneytrack/pkg/models"
	"github.com/pokerops/tourneytrack/pkg/storage"
	"github.com/pokerops/tourneytrack/pkg/utils"
)

// Refetch response bodies are capped; a tournament listing page larger than
// this is almost certainly not a tournament listing page.
const maxSnapshotSize = 5 * 1024 * 1024

// Refetcher re-downloads a tracked game's page on operator demand and stores
// the result as a fresh snapshot. A global rate limiter keeps debug refetches
// from hammering venue sites regardless of how eager the operator is.
type Refetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	store   storage.SnapshotStore
	cfg     config.AppConfig
	log     *logrus.Logger

	mu        sync.Mutex
	lastFetch map[string]time.Time // venueKey -> last refetch, for per-venue delays
}

// NewRefetcher creates a Refetcher from the app config's rate limit settings.
func NewRefetcher(cfg config.AppConfig, store storage.SnapshotStore, log *logrus.Logger) *Refetcher {
	perMinute := cfg.RefetchRatePerMinute
	if perMinute <= 0 {
		perMinute = 6
	}
	burst := cfg.RefetchBurst
	if burst <= 0 {
		burst = 1
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Refetcher{
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst),
		store:     store,
		cfg:       cfg,
		log:       log,
		lastFetch: make(map[string]time.Time),
	}
}

// Refetch downloads the game's URL and stores the body as a new snapshot,
// returning the stored snapshot. Blocks on the rate limiter; ctx cancellation
// aborts both the wait and the fetch.
func (r *Refetcher) Refetch(ctx context.Context, game *models.TrackedGame) (*models.Snapshot, error) {
	taskLog := r.log.WithField("game_id", game.ID).WithField("url", game.URL)

	if waitErr := r.limiter.Wait(ctx); waitErr != nil {
		return nil, fmt.Errorf("%w: rate limit wait aborted: %v", utils.ErrFetch, waitErr)
	}

	venueCfg := r.cfg.Venues[game.VenueKey]

	// The global limiter paces the console as a whole; venues can also set a
	// minimum delay between refetches of their own pages.
	if delay := venueCfg.RefetchDelay; delay > 0 {
		r.mu.Lock()
		remaining := delay - time.Since(r.lastFetch[game.VenueKey])
		r.mu.Unlock()
		if remaining > 0 {
			select {
			case <-time.After(remaining):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: venue delay wait aborted: %v", utils.ErrFetch, ctx.Err())
			}
		}
	}
	r.mu.Lock()
	r.lastFetch[game.VenueKey] = time.Now()
	r.mu.Unlock()

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, game.URL, nil)
	if reqErr != nil {
		return nil, fmt.Errorf("%w: creating request for '%s': %v", utils.ErrFetch, game.URL, reqErr)
	}
	req.Header.Set("User-Agent", config.GetEffectiveUserAgent(venueCfg, r.cfg))

	resp, doErr := r.client.Do(req)
	if doErr != nil {
		return nil, fmt.Errorf("%w: fetching '%s': %v", utils.ErrFetch, game.URL, doErr)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d fetching '%s'", utils.ErrFetch, resp.StatusCode, game.URL)
	}

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotSize+1))
	if readErr != nil {
		return nil, fmt.Errorf("%w: reading body of '%s': %v", utils.ErrFetch, game.URL, readErr)
	}
	if len(body) > maxSnapshotSize {
		return nil, fmt.Errorf("%w: page '%s' exceeds snapshot size limit", utils.ErrFetch, game.URL)
	}

	snap := &models.Snapshot{
		Key:       uuid.NewString(),
		GameID:    game.ID,
		URL:       game.URL,
		FetchedAt: time.Now().UTC(),
		Body:      body,
	}
	if putErr := r.store.PutSnapshot(snap); putErr != nil {
		return nil, fmt.Errorf("storing refetched snapshot: %w", putErr)
	}

	taskLog.WithField("snapshot_key", snap.Key).Infof("Refetched snapshot (%d bytes)", len(body))
	return snap, nil
}

package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/pokerops/tourneytrack/pkg/config"
	"github.com/pokerops/tourneytrack/pkg/models"
	"github.com/pokerops/tourneytrack/pkg/pipeline"
	"github.com/pokerops/tourneytrack/pkg/policy"
	"github.com/pokerops/tourneytrack/pkg/storage"
	"github.com/pokerops/tourneytrack/pkg/utils"
)

// Tracker owns the tracked-game lifecycle: the periodic refresh loop, scrape
// job bookkeeping, and the review workflow. It is the sole writer of game
// processing state; the HTTP layer reads through it.
type Tracker struct {
	store  storage.TrackerStore
	jobs   *JobManager
	policy *policy.Checker
	log    *logrus.Logger

	cfgMu sync.RWMutex
	cfg   config.AppConfig

	lastRefreshMu sync.RWMutex
	lastRefresh   time.Time
}

// New creates a Tracker
func New(store storage.TrackerStore, checker *policy.Checker, cfg config.AppConfig, log *logrus.Logger) *Tracker {
	return &Tracker{
		store:  store,
		jobs:   NewJobManager(),
		policy: checker,
		cfg:    cfg,
		log:    log,
	}
}

// Jobs exposes the job manager for the HTTP layer
func (t *Tracker) Jobs() *JobManager {
	return t.jobs
}

// SetConfig swaps the active config on hot reload
func (t *Tracker) SetConfig(cfg config.AppConfig) {
	t.cfgMu.Lock()
	t.cfg = cfg
	t.cfgMu.Unlock()
}

func (t *Tracker) config() config.AppConfig {
	t.cfgMu.RLock()
	defer t.cfgMu.RUnlock()
	return t.cfg
}

// LastRefresh reports when the last refresh pass completed
func (t *Tracker) LastRefresh() time.Time {
	t.lastRefreshMu.RLock()
	defer t.lastRefreshMu.RUnlock()
	return t.lastRefresh
}

// Run starts the periodic refresh loop and blocks until ctx is cancelled.
// An initial pass runs immediately so a restarted console is never stale for
// a full interval.
func (t *Tracker) Run(ctx context.Context) error {
	interval := t.config().RefreshInterval
	t.log.Infof("Starting tracker refresh loop with interval %v", interval)

	t.RefreshAll(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.log.Info("Tracker refresh loop shutting down...")
			t.jobs.CancelAll()
			return nil
		case <-ticker.C:
			t.RefreshAll(ctx)
		}
	}
}

// RefreshAll refreshes every tracked game, bounded by the configured
// concurrency limit.
func (t *Tracker) RefreshAll(ctx context.Context) {
	games, err := t.store.ListGames()
	if err != nil {
		t.log.Errorf("Refresh pass failed listing games: %v", err)
		return
	}

	cfg := t.config()
	limit := int64(cfg.MaxConcurrentRefreshes)
	if limit <= 0 {
		limit = 1
	}
	sem := semaphore.NewWeighted(limit)

	var wg sync.WaitGroup
	for _, game := range games {
		if game.Hidden {
			continue
		}
		if acquireErr := sem.Acquire(ctx, 1); acquireErr != nil {
			break // shutting down
		}
		wg.Add(1)
		go func(g *models.TrackedGame) {
			defer wg.Done()
			defer sem.Release(1)
			t.refreshGame(g)
		}(game)
	}
	wg.Wait()

	t.lastRefreshMu.Lock()
	t.lastRefresh = time.Now()
	t.lastRefreshMu.Unlock()
	t.log.Debugf("Refresh pass complete (%d games)", len(games))
}

// refreshGame recomputes one game's pipeline state, reconciles any active
// scrape job against it, and applies the auto-save policy.
func (t *Tracker) refreshGame(game *models.TrackedGame) {
	gameLog := t.log.WithField("game_id", game.ID).WithField("venue", game.VenueKey)

	state := pipeline.Derive(game.Processing)
	if state.Unrecognized {
		gameLog.Warnf("Backend reported unrecognized status '%s'", game.Processing.OverallStatus)
	}

	if job := t.jobs.GetJobByGame(game.ID); job != nil {
		t.reconcileJob(job, game, gameLog)
	}

	cfg := t.config()
	if cfg.AutoSaveRealGames && game.Processing.OverallStatus == models.OverallStatusReview {
		payload := game.Processing.ParsedPayload
		if payload != nil && !payload.GameStatus.IsPlaceholder() && !payload.DoNotScrape {
			if _, err := t.Approve(game.ID); err != nil {
				gameLog.Errorf("Auto-save failed: %v (%s)", err, utils.CategorizeError(err))
			} else {
				gameLog.Info("Auto-saved real game from review")
			}
			return
		}
	}

	game.RefreshedAt = time.Now().UTC()
	if err := t.store.PutGame(game); err != nil {
		gameLog.Errorf("Failed persisting refreshed game: %v (%s)", err, utils.CategorizeError(err))
	}
}

// reconcileJob moves a job to a terminal status once the backend's processing
// record shows the scrape finished.
func (t *Tracker) reconcileJob(job *Job, game *models.TrackedGame, gameLog *logrus.Entry) {
	status := game.Processing.OverallStatus
	if !status.IsTerminal() {
		if job.Status == JobStatusPending && (status == models.OverallStatusScraping || status == models.OverallStatusSaving) {
			t.jobs.UpdateStatus(job.ID, JobStatusRunning, "")
		}
		return
	}

	switch status {
	case models.OverallStatusError:
		t.jobs.UpdateStatus(job.ID, JobStatusFailed, game.Processing.Message)
		gameLog.WithField("job_id", job.ID).Warn("Scrape job failed")
	default:
		t.jobs.UpdateStatus(job.ID, JobStatusCompleted, "")
		gameLog.WithField("job_id", job.ID).Debug("Scrape job completed")
	}
}

// EnqueueScrape policy-checks a game and creates a scrape job for it. A
// policy denial marks the game skipped and returns the blocking error; a
// venue already being scraped returns the existing job with no error.
func (t *Tracker) EnqueueScrape(ctx context.Context, gameID string) (*Job, error) {
	game, err := t.store.GetGame(gameID)
	if err != nil {
		return nil, err
	}

	decision, checkErr := t.policy.Check(ctx, game.VenueKey, game.URL)
	if checkErr != nil {
		return nil, checkErr
	}
	if !decision.Allowed {
		game.Processing = models.ProcessingRecord{
			OverallStatus: models.OverallStatusSkipped,
			Message:       fmt.Sprintf("Do not scrape: %s", decision.Reason),
			DataSource:    models.DataSourceNone,
		}
		game.RefreshedAt = time.Now().UTC()
		if putErr := t.store.PutGame(game); putErr != nil {
			t.log.Errorf("Failed persisting skipped game '%s': %v", game.ID, putErr)
		}
		return nil, fmt.Errorf("%w: %s", utils.ErrDoNotScrape, decision.Reason)
	}

	job, created := t.jobs.CreateJob(game.VenueKey, game.ID)
	if !created {
		if job.GameID != game.ID {
			return job, fmt.Errorf("%w: venue '%s' busy with game '%s'", utils.ErrJobConflict, game.VenueKey, job.GameID)
		}
		return job, nil
	}

	game.Processing = models.ProcessingRecord{
		OverallStatus:    models.OverallStatusPending,
		Message:          "Queued for scraping",
		DataSource:       models.DataSourcePending,
		ExistingRecordID: game.Processing.ExistingRecordID,
	}
	game.RefreshedAt = time.Now().UTC()
	if putErr := t.store.PutGame(game); putErr != nil {
		return job, putErr
	}

	t.log.WithField("game_id", game.ID).WithField("job_id", job.ID).Info("Enqueued scrape job")
	return job, nil
}

package parse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokerops/tourneytrack/pkg/config"
	"github.com/pokerops/tourneytrack/pkg/models"
)

const detailPage = `<html><head><title>Spring Series</title></head><body>
<div class="tourney-detail">
  <h1 class="tourney-name">Spring Series Event #12</h1>
  <span class="tourney-game-type">NLHE</span>
  <span class="tourney-status">running</span>
  <span class="tourney-buy-in">$1,500</span>
  <span class="tourney-prize-pool">$250,000</span>
  <span class="tourney-entrants">312 entrants</span>
  <time class="tourney-start-time" datetime="2026-03-14T12:00:00Z">March 14</time>
</div>
</body></html>`

func snapshotFor(body string) *models.Snapshot {
	return &models.Snapshot{
		Key:       "snap-1",
		GameID:    "game-1",
		URL:       "https://example.com/event/12",
		FetchedAt: time.Now().UTC(),
		Body:      []byte(body),
	}
}

func TestSnapshot_FullDetailPage(t *testing.T) {
	payload, err := Snapshot(snapshotFor(detailPage))
	require.NoError(t, err)

	assert.Equal(t, "snap-1", payload.SnapshotKey)
	assert.Equal(t, models.GameStatusRunning, payload.GameStatus)
	assert.Equal(t, "Spring Series Event #12", payload.Name)
	assert.Equal(t, "NLHE", payload.GameType)
	assert.Equal(t, int64(150000), payload.BuyInCents)
	assert.Equal(t, int64(25000000), payload.PrizePoolCents)
	assert.Equal(t, 312, payload.Entrants)
	assert.Equal(t, time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC), payload.StartTime)
	assert.False(t, payload.DoNotScrape)
}

func TestSnapshot_PlaceholderMarkers(t *testing.T) {
	tests := []struct {
		name string
		html string
		want models.GameStatus
	}{
		{
			name: "empty slot",
			html: `<html><body><div class="tourney-not-found">No event at this number</div></body></html>`,
			want: models.GameStatusNotFound,
		},
		{
			name: "hidden event",
			html: `<html><body><div class="tourney-not-published">Coming soon</div></body></html>`,
			want: models.GameStatusNotPublished,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := Snapshot(snapshotFor(tt.html))
			require.NoError(t, err)
			assert.Equal(t, tt.want, payload.GameStatus)
			assert.True(t, payload.GameStatus.IsPlaceholder())
			assert.Empty(t, payload.Name)
			assert.Zero(t, payload.BuyInCents)
		})
	}
}

func TestSnapshot_DoNotScrapeMeta(t *testing.T) {
	html := `<html><head><meta name="tourneytrack-policy" content="do-not-scrape"></head><body>
<div class="tourney-detail"><h1 class="tourney-name">Hidden Event</h1></div></body></html>`

	payload, err := Snapshot(snapshotFor(html))
	require.NoError(t, err)
	assert.True(t, payload.DoNotScrape)
	assert.Equal(t, "Hidden Event", payload.Name)
}

func TestSnapshot_NoDetailSection(t *testing.T) {
	_, err := Snapshot(snapshotFor(`<html><body><p>totally unrelated page</p></body></html>`))
	assert.Error(t, err)
}

func TestSnapshot_UnknownStatusDefaultsToScheduled(t *testing.T) {
	html := `<html><body><div class="tourney-detail">
<h1 class="tourney-name">Event</h1><span class="tourney-status">mystery</span></div></body></html>`

	payload, err := Snapshot(snapshotFor(html))
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusScheduled, payload.GameStatus)
}

func TestParseMoneyCents(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{"$1,500", 150000},
		{"2500.50", 250050},
		{"free", 0},
		{"", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseMoneyCents(tt.raw), "raw=%q", tt.raw)
	}
}

func TestSnapshotMarkdown(t *testing.T) {
	html := `<html><head><script>alert(1)</script></head><body>
<h1>Spring Series Event #12</h1><p>Buy-in <strong>$1,500</strong></p></body></html>`

	markdown, err := SnapshotMarkdown(snapshotFor(html))
	require.NoError(t, err)
	// The converter escapes markdown-significant characters like '#'.
	assert.Contains(t, markdown, `Spring Series Event \#12`)
	assert.Contains(t, markdown, "**$1,500**")
	assert.NotContains(t, markdown, "alert(1)")
}

type memSnapshotStore struct {
	mu    sync.Mutex
	snaps map[string]*models.Snapshot
}

func (m *memSnapshotStore) PutSnapshot(snap *models.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snaps == nil {
		m.snaps = make(map[string]*models.Snapshot)
	}
	m.snaps[snap.Key] = snap
	return nil
}

func (m *memSnapshotStore) GetSnapshot(key string) (*models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snaps[key], nil
}

func TestRefetcher_StoresSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Write([]byte(detailPage))
	}))
	defer server.Close()

	store := &memSnapshotStore{}
	cfg := config.AppConfig{
		DefaultUserAgent:     "test-agent",
		RefetchRatePerMinute: 600,
		RefetchBurst:         5,
	}
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	r := NewRefetcher(cfg, store, logger)
	game := &models.TrackedGame{ID: "game-1", VenueKey: "acme", URL: server.URL}

	snap, err := r.Refetch(context.Background(), game)
	require.NoError(t, err)
	assert.Equal(t, "game-1", snap.GameID)
	assert.Equal(t, []byte(detailPage), snap.Body)

	stored, err := store.GetSnapshot(snap.Key)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, snap.Key, stored.Key)
}

func TestRefetcher_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	r := NewRefetcher(config.AppConfig{RefetchRatePerMinute: 600, RefetchBurst: 5}, &memSnapshotStore{}, logger)

	_, err := r.Refetch(context.Background(), &models.TrackedGame{ID: "game-1", URL: server.URL})
	assert.Error(t, err)
}

func TestRefetcher_ContextCancelledDuringWait(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	// Burst 1 at a slow rate: the second call must wait, so a cancelled
	// context aborts it.
	r := NewRefetcher(config.AppConfig{RefetchRatePerMinute: 1, RefetchBurst: 1}, &memSnapshotStore{}, logger)
	r.limiter.Allow() // drain the burst token

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Refetch(ctx, &models.TrackedGame{ID: "game-1", URL: "http://127.0.0.1:0"})
	assert.Error(t, err)
}

func TestRefetcher_HonorsVenueDelay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(detailPage))
	}))
	defer server.Close()

	delay := 80 * time.Millisecond
	cfg := config.AppConfig{
		RefetchRatePerMinute: 6000,
		RefetchBurst:         10,
		Venues: map[string]config.VenueConfig{
			"acme": {Name: "Acme Poker", BaseURL: server.URL, RefetchDelay: delay},
		},
	}
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	r := NewRefetcher(cfg, &memSnapshotStore{}, logger)
	game := &models.TrackedGame{ID: "game-1", VenueKey: "acme", URL: server.URL}

	start := time.Now()
	_, err := r.Refetch(context.Background(), game)
	require.NoError(t, err)
	_, err = r.Refetch(context.Background(), game)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), delay)
}

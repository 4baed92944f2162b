package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokerops/tourneytrack/pkg/config"
	"github.com/pokerops/tourneytrack/pkg/export"
	"github.com/pokerops/tourneytrack/pkg/models"
	"github.com/pokerops/tourneytrack/pkg/parse"
	"github.com/pokerops/tourneytrack/pkg/policy"
	"github.com/pokerops/tourneytrack/pkg/storage"
	"github.com/pokerops/tourneytrack/pkg/tracker"
)

func newTestServer(t *testing.T) (*Server, *storage.BadgerStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	store, err := storage.NewBadgerStore(filepath.Join(t.TempDir(), "state"), logger.WithField("component", "storage"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	excluded := true
	cfg := config.AppConfig{
		ListenAddr: ":0",
		Venues: map[string]config.VenueConfig{
			"acme":     {Name: "Acme Poker", BaseURL: "https://acme.example.com", GameURLTemplate: "%s/tournaments/event-%d"},
			"noscrape": {Name: "No Scrape", BaseURL: "https://ns.example.com", DoNotScrape: &excluded},
		},
	}

	checker := policy.NewChecker(&http.Client{Timeout: time.Second}, &cfg, logger.WithField("component", "policy"))
	tr := tracker.New(store, checker, cfg, logger)
	exporter := export.NewExporter(store, logger)
	refetcher := parse.NewRefetcher(cfg, store, logger)

	return NewServer(store, tr, exporter, refetcher, cfg, logger), store
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestTrackAndGetGame(t *testing.T) {
	server, _ := newTestServer(t)
	router := server.Router()

	w := doRequest(t, router, http.MethodPost, "/api/games", TrackGameRequest{
		VenueKey:    "acme",
		EventNumber: 7,
		URL:         "https://acme.example.com/event/7",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created GameView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.OverallStatusPending, created.Processing.OverallStatus)
	// A freshly tracked game shows an all-pending pipeline.
	assert.False(t, created.Pipeline.Unrecognized)

	w = doRequest(t, router, http.MethodGet, "/api/games/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var fetched GameView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, created.ID, fetched.ID)
}

func TestTrackGame_RejectsRelativeURL(t *testing.T) {
	server, _ := newTestServer(t)
	router := server.Router()

	w := doRequest(t, router, http.MethodPost, "/api/games", TrackGameRequest{
		VenueKey: "acme",
		URL:      "/event/7",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListGames_HidesHiddenByDefault(t *testing.T) {
	server, store := newTestServer(t)
	router := server.Router()

	require.NoError(t, store.PutGame(&models.TrackedGame{ID: "g1", VenueKey: "acme", URL: "https://acme.example.com/1"}))
	require.NoError(t, store.PutGame(&models.TrackedGame{ID: "g2", VenueKey: "acme", URL: "https://acme.example.com/2", Hidden: true}))

	w := doRequest(t, router, http.MethodGet, "/api/games", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Games []GameView `json:"games"`
		Total int        `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)

	w = doRequest(t, router, http.MethodGet, "/api/games?include_hidden=true", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
}

func TestGetGame_NotFound(t *testing.T) {
	server, _ := newTestServer(t)
	w := doRequest(t, server.Router(), http.MethodGet, "/api/games/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScrapeGame_DoNotScrapeVenueForbidden(t *testing.T) {
	server, store := newTestServer(t)
	router := server.Router()

	require.NoError(t, store.PutGame(&models.TrackedGame{
		ID:       "g1",
		VenueKey: "noscrape",
		URL:      "https://ns.example.com/event/1",
	}))

	w := doRequest(t, router, http.MethodPost, "/api/games/g1/scrape", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestApproveAndRejectFlow(t *testing.T) {
	server, store := newTestServer(t)
	router := server.Router()

	require.NoError(t, store.PutGame(&models.TrackedGame{
		ID:       "g1",
		VenueKey: "acme",
		URL:      "https://acme.example.com/event/1",
		Processing: models.ProcessingRecord{
			OverallStatus: models.OverallStatusReview,
			DataSource:    models.DataSourceWeb,
			ParsedPayload: &models.ParsedPayload{GameStatus: models.GameStatusFinished, Name: "Main Event"},
		},
	}))

	w := doRequest(t, router, http.MethodPost, "/api/games/g1/approve", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var rec models.TournamentRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, "Main Event", rec.Name)

	// Already approved: no longer in review.
	w = doRequest(t, router, http.MethodPost, "/api/games/g1/reject", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGameSnapshot(t *testing.T) {
	server, store := newTestServer(t)
	router := server.Router()

	require.NoError(t, store.PutSnapshot(&models.Snapshot{
		Key:    "snap-1",
		GameID: "g1",
		Body:   []byte("<html><body><h1>Event Page</h1></body></html>"),
	}))
	require.NoError(t, store.PutGame(&models.TrackedGame{
		ID:       "g1",
		VenueKey: "acme",
		URL:      "https://acme.example.com/event/1",
		Processing: models.ProcessingRecord{
			OverallStatus: models.OverallStatusSuccess,
			DataSource:    models.DataSourceS3,
			ParsedPayload: &models.ParsedPayload{GameStatus: models.GameStatusRunning, SnapshotKey: "snap-1"},
		},
	}))

	w := doRequest(t, router, http.MethodGet, "/api/games/g1/snapshot", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<h1>Event Page</h1>")

	w = doRequest(t, router, http.MethodGet, "/api/games/g1/snapshot?format=markdown", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Event Page")
	assert.NotContains(t, w.Body.String(), "<h1>")
}

func TestGameSnapshot_NoSnapshot(t *testing.T) {
	server, store := newTestServer(t)
	require.NoError(t, store.PutGame(&models.TrackedGame{ID: "g1", VenueKey: "acme", URL: "https://acme.example.com/1"}))

	w := doRequest(t, server.Router(), http.MethodGet, "/api/games/g1/snapshot", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVenueCRUD(t *testing.T) {
	server, _ := newTestServer(t)
	router := server.Router()

	w := doRequest(t, router, http.MethodPost, "/api/venues", PutVenueRequest{
		Key:     "acme",
		Name:    "Acme Poker",
		BaseURL: "https://acme.example.com",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/venues/acme", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var venue models.Venue
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &venue))
	assert.Equal(t, "Acme Poker", venue.Name)
	created := venue.CreatedAt

	// Re-put keeps CreatedAt.
	w = doRequest(t, router, http.MethodPost, "/api/venues", PutVenueRequest{
		Key:     "acme",
		Name:    "Acme Poker Club",
		BaseURL: "https://acme.example.com",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &venue))
	assert.True(t, created.Equal(venue.CreatedAt), "CreatedAt drifted: %v", venue.CreatedAt)
	assert.Equal(t, "Acme Poker Club", venue.Name)

	w = doRequest(t, router, http.MethodDelete, "/api/venues/acme", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/venues/acme", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSeriesCRUD(t *testing.T) {
	server, _ := newTestServer(t)
	router := server.Router()

	w := doRequest(t, router, http.MethodPost, "/api/series", PutSeriesRequest{
		Key:      "spring_2026",
		VenueKey: "acme",
		Name:     "Spring Series 2026",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/series", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Series []models.Series `json:"series"`
		Total  int             `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)

	w = doRequest(t, router, http.MethodDelete, "/api/series/spring_2026", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestExportEndpoint(t *testing.T) {
	server, store := newTestServer(t)
	require.NoError(t, store.PutRecord(&models.TournamentRecord{
		ID:        "rec-1",
		VenueKey:  "acme",
		Name:      "Main Event",
		CreatedAt: time.Now().UTC(),
	}))

	w := doRequest(t, server.Router(), http.MethodGet, "/api/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestJobsEndpoints(t *testing.T) {
	server, store := newTestServer(t)
	router := server.Router()

	require.NoError(t, store.PutGame(&models.TrackedGame{
		ID:       "g1",
		VenueKey: "acme",
		URL:      "https://acme.example.com/event/1",
	}))

	// Policy for "acme" consults robots.txt against an unreachable host and
	// falls back to permissive, so the enqueue succeeds.
	w := doRequest(t, router, http.MethodPost, "/api/games/g1/scrape", nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	var job tracker.Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	require.NotEmpty(t, job.ID)

	w = doRequest(t, router, http.MethodGet, "/api/jobs", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Jobs  []tracker.Job `json:"jobs"`
		Total int           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)

	w = doRequest(t, router, http.MethodPost, "/api/jobs/"+job.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// A cancelled job cannot be cancelled again.
	w = doRequest(t, router, http.MethodPost, "/api/jobs/"+job.ID+"/cancel", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/jobs/nope/cancel", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t)
	w := doRequest(t, server.Router(), http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestTrackGame_BuildsURLFromVenueTemplate(t *testing.T) {
	server, _ := newTestServer(t)
	router := server.Router()

	w := doRequest(t, router, http.MethodPost, "/api/games", TrackGameRequest{
		VenueKey:    "acme",
		EventNumber: 12,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created GameView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "https://acme.example.com/tournaments/event-12", created.URL)

	// No URL, unknown venue: nothing to build from.
	w = doRequest(t, router, http.MethodPost, "/api/games", TrackGameRequest{
		VenueKey:    "ghost",
		EventNumber: 3,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// No URL and no event number: nothing to interpolate.
	w = doRequest(t, router, http.MethodPost, "/api/games", TrackGameRequest{
		VenueKey: "acme",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHideAndUnhideGame(t *testing.T) {
	server, store := newTestServer(t)
	router := server.Router()

	require.NoError(t, store.PutGame(&models.TrackedGame{ID: "g1", VenueKey: "acme", URL: "https://acme.example.com/1"}))

	w := doRequest(t, router, http.MethodPost, "/api/games/g1/hide", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Games []GameView `json:"games"`
		Total int        `json:"total"`
	}
	w = doRequest(t, router, http.MethodGet, "/api/games", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Total)

	w = doRequest(t, router, http.MethodPost, "/api/games/g1/unhide", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/games", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)

	w = doRequest(t, router, http.MethodPost, "/api/games/nope/hide", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

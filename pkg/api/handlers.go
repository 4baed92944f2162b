package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pokerops/tourneytrack/pkg/models"
	"github.com/pokerops/tourneytrack/pkg/parse"
	"github.com/pokerops/tourneytrack/pkg/pipeline"
	"github.com/pokerops/tourneytrack/pkg/utils"
)

// ErrorResponse is the JSON error envelope
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// GameView is a tracked game with its derived pipeline state attached.
// This is the console's primary read model: the four-stage view the UI
// renders per tracked game.
type GameView struct {
	models.TrackedGame
	Pipeline pipeline.PipelineState `json:"pipeline"`
}

func sendError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, utils.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, utils.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, utils.ErrAlreadyExists), errors.Is(err, utils.ErrJobConflict):
		status = http.StatusConflict
	case errors.Is(err, utils.ErrDoNotScrape), errors.Is(err, utils.ErrRobotsDisallowed):
		status = http.StatusForbidden
	}
	c.JSON(status, ErrorResponse{Error: true, Message: err.Error()})
}

func gameView(game *models.TrackedGame) GameView {
	return GameView{TrackedGame: *game, Pipeline: pipeline.Derive(game.Processing)}
}

// --- health ---

func (s *Server) handleHealth(c *gin.Context) {
	keys, err := s.store.CountKeys()
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"keys":         keys,
		"last_refresh": s.tracker.LastRefresh(),
	})
}

// --- games ---

func (s *Server) handleListGames(c *gin.Context) {
	games, err := s.store.ListGames()
	if err != nil {
		sendError(c, err)
		return
	}

	includeHidden := c.Query("include_hidden") == "true"
	views := make([]GameView, 0, len(games))
	for _, game := range games {
		if game.Hidden && !includeHidden {
			continue
		}
		views = append(views, gameView(game))
	}
	c.JSON(http.StatusOK, gin.H{"games": views, "total": len(views)})
}

func (s *Server) handleGetGame(c *gin.Context) {
	game, err := s.store.GetGame(c.Param("id"))
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gameView(game))
}

// TrackGameRequest is the POST /api/games body. URL may be omitted when the
// venue is configured; it is then built from the venue's URL template and the
// event number.
type TrackGameRequest struct {
	VenueKey    string `json:"venue_key" binding:"required"`
	SeriesKey   string `json:"series_key"`
	EventNumber int    `json:"event_number"`
	URL         string `json:"url"`
}

func (s *Server) handleTrackGame(c *gin.Context) {
	var req TrackGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, fmt.Errorf("%w: %v", utils.ErrInvalidInput, err))
		return
	}
	if req.URL == "" {
		venueCfg, ok := s.cfg.Venues[req.VenueKey]
		if !ok {
			sendError(c, fmt.Errorf("%w: no url given and venue '%s' is not configured", utils.ErrInvalidInput, req.VenueKey))
			return
		}
		if req.EventNumber <= 0 {
			sendError(c, fmt.Errorf("%w: event_number required to build a url for venue '%s'", utils.ErrInvalidInput, req.VenueKey))
			return
		}
		req.URL = venueCfg.BuildGameURL(req.EventNumber)
	}
	if !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
		sendError(c, fmt.Errorf("%w: url must be absolute", utils.ErrInvalidInput))
		return
	}

	game := &models.TrackedGame{
		ID:          uuid.NewString(),
		VenueKey:    req.VenueKey,
		SeriesKey:   req.SeriesKey,
		EventNumber: req.EventNumber,
		URL:         req.URL,
		TrackedAt:   time.Now().UTC(),
		Processing: models.ProcessingRecord{
			OverallStatus: models.OverallStatusPending,
			Message:       "Tracked, awaiting first scrape",
		},
	}
	if err := s.store.PutGame(game); err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gameView(game))
}

func (s *Server) handleUntrackGame(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.store.GetGame(id); err != nil {
		sendError(c, err)
		return
	}
	if err := s.store.DeleteGame(id); err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// handleHideGame parks a game: it stays in the store but drops out of the
// default list view and the refresh loop.
func (s *Server) handleHideGame(c *gin.Context) {
	s.setGameHidden(c, true)
}

func (s *Server) handleUnhideGame(c *gin.Context) {
	s.setGameHidden(c, false)
}

func (s *Server) setGameHidden(c *gin.Context, hidden bool) {
	game, err := s.store.GetGame(c.Param("id"))
	if err != nil {
		sendError(c, err)
		return
	}
	game.Hidden = hidden
	if err := s.store.PutGame(game); err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gameView(game))
}

func (s *Server) handleScrapeGame(c *gin.Context) {
	job, err := s.tracker.EnqueueScrape(c.Request.Context(), c.Param("id"))
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, job)
}

func (s *Server) handleApproveGame(c *gin.Context) {
	rec, err := s.tracker.Approve(c.Param("id"))
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleRejectGame(c *gin.Context) {
	if err := s.tracker.Reject(c.Param("id")); err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rejected": c.Param("id")})
}

// handleGameSnapshot serves the game's cached snapshot for debugging.
// format=markdown renders the review view; the default returns raw HTML.
func (s *Server) handleGameSnapshot(c *gin.Context) {
	game, err := s.store.GetGame(c.Param("id"))
	if err != nil {
		sendError(c, err)
		return
	}

	key := snapshotKeyFor(game)
	if key == "" {
		sendError(c, fmt.Errorf("%w: game '%s' has no snapshot", utils.ErrNotFound, game.ID))
		return
	}
	snap, err := s.store.GetSnapshot(key)
	if err != nil {
		sendError(c, err)
		return
	}

	if c.Query("format") == "markdown" {
		markdown, mdErr := parse.SnapshotMarkdown(snap)
		if mdErr != nil {
			sendError(c, mdErr)
			return
		}
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(markdown))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", snap.Body)
}

func snapshotKeyFor(game *models.TrackedGame) string {
	if payload := game.Processing.ParsedPayload; payload != nil && payload.SnapshotKey != "" {
		return payload.SnapshotKey
	}
	return ""
}

func (s *Server) handleRefetchGame(c *gin.Context) {
	game, err := s.store.GetGame(c.Param("id"))
	if err != nil {
		sendError(c, err)
		return
	}

	snap, err := s.refetcher.Refetch(c.Request.Context(), game)
	if err != nil {
		sendError(c, err)
		return
	}

	payload, parseErr := parse.Snapshot(snap)
	if parseErr != nil {
		// The snapshot is stored either way; report the parse problem.
		c.JSON(http.StatusOK, gin.H{
			"snapshot_key": snap.Key,
			"fetched_at":   snap.FetchedAt,
			"parse_error":  parseErr.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"snapshot_key": snap.Key,
		"fetched_at":   snap.FetchedAt,
		"payload":      payload,
	})
}

// --- venues ---

func (s *Server) handleListVenues(c *gin.Context) {
	venues, err := s.store.ListVenues()
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"venues": venues, "total": len(venues)})
}

// PutVenueRequest is the POST /api/venues body
type PutVenueRequest struct {
	Key         string `json:"key" binding:"required"`
	Name        string `json:"name" binding:"required"`
	BaseURL     string `json:"base_url" binding:"required"`
	DoNotScrape bool   `json:"do_not_scrape"`
}

func (s *Server) handlePutVenue(c *gin.Context) {
	var req PutVenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, fmt.Errorf("%w: %v", utils.ErrInvalidInput, err))
		return
	}

	venue := &models.Venue{
		Key:         req.Key,
		Name:        req.Name,
		BaseURL:     req.BaseURL,
		DoNotScrape: req.DoNotScrape,
		CreatedAt:   time.Now().UTC(),
	}
	if existing, err := s.store.GetVenue(req.Key); err == nil {
		venue.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, utils.ErrNotFound) {
		sendError(c, err)
		return
	}

	if err := s.store.PutVenue(venue); err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, venue)
}

func (s *Server) handleGetVenue(c *gin.Context) {
	venue, err := s.store.GetVenue(c.Param("key"))
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, venue)
}

func (s *Server) handleDeleteVenue(c *gin.Context) {
	key := c.Param("key")
	if _, err := s.store.GetVenue(key); err != nil {
		sendError(c, err)
		return
	}
	if err := s.store.DeleteVenue(key); err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": key})
}

// --- series ---

func (s *Server) handleListSeries(c *gin.Context) {
	series, err := s.store.ListSeries()
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"series": series, "total": len(series)})
}

// PutSeriesRequest is the POST /api/series body
type PutSeriesRequest struct {
	Key       string    `json:"key" binding:"required"`
	VenueKey  string    `json:"venue_key" binding:"required"`
	Name      string    `json:"name" binding:"required"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

func (s *Server) handlePutSeries(c *gin.Context) {
	var req PutSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, fmt.Errorf("%w: %v", utils.ErrInvalidInput, err))
		return
	}

	series := &models.Series{
		Key:       req.Key,
		VenueKey:  req.VenueKey,
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		CreatedAt: time.Now().UTC(),
	}
	if existing, err := s.store.GetSeries(req.Key); err == nil {
		series.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, utils.ErrNotFound) {
		sendError(c, err)
		return
	}

	if err := s.store.PutSeries(series); err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

func (s *Server) handleGetSeries(c *gin.Context) {
	series, err := s.store.GetSeries(c.Param("key"))
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

func (s *Server) handleDeleteSeries(c *gin.Context) {
	key := c.Param("key")
	if _, err := s.store.GetSeries(key); err != nil {
		sendError(c, err)
		return
	}
	if err := s.store.DeleteSeries(key); err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": key})
}

// --- export ---

func (s *Server) handleExport(c *gin.Context) {
	filename := fmt.Sprintf("tournaments_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if _, err := s.exporter.WriteTo(c.Writer); err != nil {
		s.log.Errorf("Export failed: %v (%s)", err, utils.CategorizeError(err))
		c.Status(http.StatusInternalServerError)
	}
}

// --- jobs ---

func (s *Server) handleListJobs(c *gin.Context) {
	jobs := s.tracker.Jobs().ListJobs()
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "total": len(jobs)})
}

func (s *Server) handleCancelJob(c *gin.Context) {
	id := c.Param("id")
	job := s.tracker.Jobs().GetJob(id)
	if job == nil {
		sendError(c, fmt.Errorf("%w: job '%s'", utils.ErrNotFound, id))
		return
	}
	if !s.tracker.Jobs().CancelJob(id) {
		sendError(c, fmt.Errorf("%w: job '%s' is not active (status '%s')", utils.ErrInvalidInput, id, job.Status))
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": id})
}

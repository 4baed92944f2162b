package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pokerops/tourneytrack/pkg/config"
	"github.com/pokerops/tourneytrack/pkg/export"
	applog "github.com/pokerops/tourneytrack/pkg/log"
	"github.com/pokerops/tourneytrack/pkg/parse"
	"github.com/pokerops/tourneytrack/pkg/storage"
	"github.com/pokerops/tourneytrack/pkg/tracker"
)

// Server is the admin HTTP API: the operator-facing surface over the tracker,
// store, exporter and snapshot tooling.
type Server struct {
	store     storage.TrackerStore
	tracker   *tracker.Tracker
	exporter  *export.Exporter
	refetcher *parse.Refetcher
	cfg       config.AppConfig
	log       *logrus.Logger

	httpServer *http.Server
}

// NewServer wires the admin API against its collaborators
func NewServer(
	store storage.TrackerStore,
	tr *tracker.Tracker,
	exporter *export.Exporter,
	refetcher *parse.Refetcher,
	cfg config.AppConfig,
	log *logrus.Logger,
) *Server {
	return &Server{
		store:     store,
		tracker:   tr,
		exporter:  exporter,
		refetcher: refetcher,
		cfg:       cfg,
		log:       log,
	}
}

// Router builds the gin engine with all routes registered
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())

	router.GET("/healthz", s.handleHealth)

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/games", s.handleListGames)
		apiGroup.POST("/games", s.handleTrackGame)
		apiGroup.GET("/games/:id", s.handleGetGame)
		apiGroup.DELETE("/games/:id", s.handleUntrackGame)
		apiGroup.POST("/games/:id/scrape", s.handleScrapeGame)
		apiGroup.POST("/games/:id/approve", s.handleApproveGame)
		apiGroup.POST("/games/:id/reject", s.handleRejectGame)
		apiGroup.POST("/games/:id/hide", s.handleHideGame)
		apiGroup.POST("/games/:id/unhide", s.handleUnhideGame)
		apiGroup.GET("/games/:id/snapshot", s.handleGameSnapshot)
		apiGroup.POST("/games/:id/refetch", s.handleRefetchGame)

		apiGroup.GET("/venues", s.handleListVenues)
		apiGroup.POST("/venues", s.handlePutVenue)
		apiGroup.GET("/venues/:key", s.handleGetVenue)
		apiGroup.DELETE("/venues/:key", s.handleDeleteVenue)

		apiGroup.GET("/series", s.handleListSeries)
		apiGroup.POST("/series", s.handlePutSeries)
		apiGroup.GET("/series/:key", s.handleGetSeries)
		apiGroup.DELETE("/series/:key", s.handleDeleteSeries)

		apiGroup.GET("/export", s.handleExport)

		apiGroup.GET("/jobs", s.handleListJobs)
		apiGroup.POST("/jobs/:id/cancel", s.handleCancelJob)
	}

	return router
}

// Run serves the admin API until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	gin.DefaultWriter = applog.NewGinLogrusWriter(s.log.WithField("component", "gin"), logrus.DebugLevel)
	gin.DefaultErrorWriter = applog.NewGinLogrusWriter(s.log.WithField("component", "gin"), logrus.ErrorLevel)

	s.httpServer = &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("Admin API listening on %s", s.cfg.ListenAddr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.log.Info("Admin API shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithField("method", c.Request.Method).
			WithField("path", c.Request.URL.Path).
			WithField("status", c.Writer.Status()).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			Debug("Request handled")
	}
}

// Package server exposes the aggregation pipeline and cache administration
// over HTTP. Handlers are thin pass-throughs: all real work happens in the
// services.
package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kwanpak/cinegrid/internal/aggregator"
	"github.com/kwanpak/cinegrid/internal/boxoffice"
	"github.com/kwanpak/cinegrid/internal/cache"
	"github.com/kwanpak/cinegrid/internal/domain"
	"github.com/kwanpak/cinegrid/internal/kmdb"
	"github.com/kwanpak/cinegrid/internal/kobis"
)

type Server struct {
	log        zerolog.Logger
	store      *cache.Store
	aggregator aggregator.Service
	box        boxoffice.Service
	theaters   kobis.ScheduleService
	archive    kmdb.Service
	detail     kobis.DetailService
	history    domain.HistoryRepo
}

func New(log zerolog.Logger, store *cache.Store, agg aggregator.Service, box boxoffice.Service, theaters kobis.ScheduleService, archive kmdb.Service, detail kobis.DetailService, history domain.HistoryRepo) *Server {
	return &Server{
		log:        log.With().Str("module", "server").Logger(),
		store:      store,
		aggregator: agg,
		box:        box,
		theaters:   theaters,
		archive:    archive,
		detail:     detail,
		history:    history,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	api := r.Group("/api")
	api.GET("/schedules", s.handleSchedules)
	api.GET("/cache", s.handleCacheAction)
	api.DELETE("/cache", s.handleCacheDelete)
	api.GET("/movie-info", s.handleMovieInfo)
	api.GET("/history", s.handleHistory)

	return r
}

// Run starts the HTTP server on addr and blocks.
func (s *Server) Run(addr string) error {
	s.log.Info().Str("addr", addr).Msg("starting HTTP server")
	return s.Router().Run(addr)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

// handleSchedules serves GET /api/schedules?type=&date=&force=.
// type is integrated (default), art, or kofa; date is YYYY-MM-DD (invalid or
// absent falls back to today); force bypasses the cache read but the fetch
// still writes through.
func (s *Server) handleSchedules(c *gin.Context) {
	typ := c.DefaultQuery("type", "integrated")
	force := c.Query("force") == "true"

	date := time.Now()
	if param := c.Query("date"); param != "" {
		if parsed, err := time.ParseInLocation("2006-01-02", param, time.Local); err == nil {
			date = parsed
		}
	}
	dateStr := date.Format("2006-01-02")

	var (
		screenings []domain.Screening
		fromCache  bool
	)

	switch typ {
	case "integrated":
		result, err := s.aggregator.Merged(c.Request.Context(), date, force)
		if err != nil {
			s.fail(c, err)
			return
		}
		screenings = result.Screenings
		fromCache = result.FromCache

	case "art":
		exclude := s.box.TopTitles(c.Request.Context(), date)
		if force {
			s.store.Delete("art_cinemas", dateStr, exclude)
		}
		screenings = s.theaters.Schedules(c.Request.Context(), date, exclude)

	case "kofa":
		if force {
			s.store.Delete("kofa_api", dateStr, nil)
		}
		screenings = s.archive.Schedules(c.Request.Context(), date)

	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid type (must be integrated, art, or kofa)",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(screenings),
		"data":    screenings,
		"cache": gin.H{
			"fromCache": fromCache,
			"stats":     s.store.Stats(),
			"date":      dateStr,
			"type":      typ,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleCacheAction serves GET /api/cache?action=stats|cleanup.
func (s *Server) handleCacheAction(c *gin.Context) {
	switch c.Query("action") {
	case "stats":
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"stats":     s.store.Stats(),
			"timestamp": time.Now().Format(time.RFC3339),
		})
	case "cleanup":
		s.store.Cleanup()
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"message":   "expired cache entries removed",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid action (must be stats or cleanup)",
		})
	}
}

// handleCacheDelete serves DELETE /api/cache?type=&date=. With neither
// parameter the whole cache is cleared; with only one the request is
// rejected.
func (s *Server) handleCacheDelete(c *gin.Context) {
	typ := c.Query("type")
	date := c.Query("date")

	switch {
	case typ == "" && date == "":
		s.store.Clear()
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"message":   "cache cleared",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	case typ != "" && date != "":
		s.store.Delete(typ, date, nil)
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"message":   "cache entry deleted",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "provide both type and date, or neither",
		})
	}
}

// handleMovieInfo serves GET /api/movie-info?movieCode= for on-demand detail
// enrichment.
func (s *Server) handleMovieInfo(c *gin.Context) {
	movieCode := c.Query("movieCode")
	if movieCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "movieCode is required",
		})
		return
	}

	info, err := s.detail.MovieInfo(c.Request.Context(), movieCode)
	if err != nil {
		s.fail(c, err)
		return
	}
	if info == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "no movie found for code " + movieCode,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    info,
	})
}

// handleHistory serves GET /api/history?limit=.
func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": []domain.RunStats{}})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := s.history.RecentRuns(c.Request.Context(), limit)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(runs),
		"data":    runs,
	})
}

func (s *Server) fail(c *gin.Context, err error) {
	s.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

// Package app wires the services together behind one constructor.
package app

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/kwanpak/cinegrid/internal/aggregator"
	"github.com/kwanpak/cinegrid/internal/boxoffice"
	"github.com/kwanpak/cinegrid/internal/cache"
	"github.com/kwanpak/cinegrid/internal/config"
	"github.com/kwanpak/cinegrid/internal/database"
	"github.com/kwanpak/cinegrid/internal/domain"
	"github.com/kwanpak/cinegrid/internal/fetch"
	"github.com/kwanpak/cinegrid/internal/kmdb"
	"github.com/kwanpak/cinegrid/internal/kobis"
	"github.com/kwanpak/cinegrid/internal/logger"
	"github.com/kwanpak/cinegrid/internal/notification"
	"github.com/kwanpak/cinegrid/internal/server"
	"github.com/kwanpak/cinegrid/internal/theaters"
)

// App holds the fully wired application.
type App struct {
	Log    zerolog.Logger
	Config *domain.Config
	Store  *cache.Store

	Box        boxoffice.Service
	Theaters   kobis.ScheduleService
	Archive    kmdb.Service
	Detail     kobis.DetailService
	Aggregator aggregator.Service

	History  domain.HistoryRepo
	Notifier domain.NotificationService

	db *database.DB
}

// New initializes logging, configuration, the cache store, the history
// database and every service.
func New(logLevel string) (*App, error) {
	log := logger.NewWithLevel(logLevel)

	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}

	settings := cfg.Profile.Settings()
	store := cache.NewStore(log, cfg.CacheDir, cfg.CacheTTL())
	client := fetch.NewClient(log, settings)

	box := boxoffice.NewService(log, cfg, client, store)
	theaterSvc := kobis.NewScheduleService(log, client, store, theaters.All(), settings)
	archive := kmdb.NewService(log, cfg, client, store)
	detail := kobis.NewDetailService(log, cfg, client)
	agg := aggregator.NewService(log, store, box, theaterSvc, archive)

	a := &App{
		Log:        log,
		Config:     cfg,
		Store:      store,
		Box:        box,
		Theaters:   theaterSvc,
		Archive:    archive,
		Detail:     detail,
		Aggregator: agg,
		Notifier:   notification.NewService(log, cfg.DiscordWebhookURL),
	}

	// History is best-effort; a broken database does not block fetching.
	db, err := database.NewDB(cfg.CacheDir, log)
	if err != nil {
		log.Warn().Err(err).Msg("run history disabled: failed to open database")
	} else {
		a.db = db
		a.History = database.NewHistoryRepo(log, db)
	}

	return a, nil
}

// Close releases held resources.
func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// Fetch runs one aggregate fetch for the date, records it in the run
// history and sends notifications.
func (a *App) Fetch(ctx context.Context, date time.Time, force bool) ([]domain.Screening, error) {
	start := time.Now()

	result, err := a.Aggregator.Merged(ctx, date, force)
	if err != nil {
		if notifyErr := a.Notifier.SendError(ctx, err); notifyErr != nil {
			a.Log.Warn().Err(notifyErr).Msg("failed to send error notification")
		}
		return nil, err
	}

	stats := domain.RunStats{
		Date:          date.Format("2006-01-02"),
		Total:         len(result.Screenings),
		TheaterCount:  result.TheaterCount,
		ArchiveCount:  result.ArchiveCount,
		ExcludedCount: len(result.Excluded),
		FromCache:     result.FromCache,
		Duration:      time.Since(start),
		RanAt:         start,
	}

	if a.History != nil {
		if err := a.History.RecordRun(ctx, stats); err != nil {
			a.Log.Warn().Err(err).Msg("failed to record run history")
		}
	}

	if err := a.Notifier.SendSuccess(ctx, stats); err != nil {
		a.Log.Warn().Err(err).Msg("failed to send success notification")
	}

	return result.Screenings, nil
}

// Server builds the HTTP server over the wired services.
func (a *App) Server() *server.Server {
	return server.New(a.Log, a.Store, a.Aggregator, a.Box, a.Theaters, a.Archive, a.Detail, a.History)
}

// Package aggregator orchestrates the source adapters into one merged,
// sorted, cached schedule.
package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kwanpak/cinegrid/internal/boxoffice"
	"github.com/kwanpak/cinegrid/internal/cache"
	"github.com/kwanpak/cinegrid/internal/domain"
	"github.com/kwanpak/cinegrid/internal/kmdb"
	"github.com/kwanpak/cinegrid/internal/kobis"
)

const cacheType = "integrated"

// Result is one merged schedule plus how it was obtained.
type Result struct {
	Screenings   []domain.Screening
	FromCache    bool
	TheaterCount int
	ArchiveCount int
	Excluded     []string
}

// Service produces the merged schedule for a target date.
type Service interface {
	Merged(ctx context.Context, date time.Time, force bool) (Result, error)
}

type service struct {
	log      zerolog.Logger
	store    *cache.Store
	box      boxoffice.Service
	theaters kobis.ScheduleService
	archive  kmdb.Service
}

func NewService(log zerolog.Logger, store *cache.Store, box boxoffice.Service, theaters kobis.ScheduleService, archive kmdb.Service) Service {
	return &service{
		log:      log.With().Str("module", "aggregator").Logger(),
		store:    store,
		box:      box,
		theaters: theaters,
		archive:  archive,
	}
}

// Merged returns the sorted union of theater and archive screenings for the
// date, minus the box-office exclude-list. force bypasses the cache read but
// still writes through. The aggregator owns the merged entry; each adapter
// writes only its own cache namespace.
func (s *service) Merged(ctx context.Context, date time.Time, force bool) (Result, error) {
	dateStr := date.Format("2006-01-02")

	if !force {
		var cached []domain.Screening
		if s.store.Get(cacheType, dateStr, nil, &cached) {
			s.log.Debug().Int("count", len(cached)).Msg("using cached merged schedule")
			return Result{Screenings: cached, FromCache: true}, nil
		}
	}

	// The exclude-list step never fails outright; it degrades to a
	// fallback list inside the adapter.
	exclude := s.box.TopTitles(ctx, date)

	// The two data-bearing sources are independent; fetch them
	// concurrently.
	var (
		wg              sync.WaitGroup
		theaterShowings []domain.Screening
		archiveShowings []domain.Screening
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		theaterShowings = s.theaters.Schedules(ctx, date, exclude)
	}()
	go func() {
		defer wg.Done()
		archiveShowings = s.archive.Schedules(ctx, date)
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	merged := make([]domain.Screening, 0, len(theaterShowings)+len(archiveShowings))
	merged = append(merged, theaterShowings...)
	merged = append(merged, archiveShowings...)
	domain.SortScreenings(merged)

	s.store.Set(cacheType, dateStr, merged, nil)

	s.log.Info().
		Str("date", dateStr).
		Int("total", len(merged)).
		Int("theater", len(theaterShowings)).
		Int("archive", len(archiveShowings)).
		Int("excluded_titles", len(exclude)).
		Msg("merged schedule built")

	return Result{
		Screenings:   merged,
		TheaterCount: len(theaterShowings),
		ArchiveCount: len(archiveShowings),
		Excluded:     exclude,
	}, nil
}

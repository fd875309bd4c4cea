package aggregator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwanpak/cinegrid/internal/cache"
	"github.com/kwanpak/cinegrid/internal/domain"
)

type stubBoxOffice struct {
	calls  int32
	titles []string
}

func (s *stubBoxOffice) TopTitles(ctx context.Context, ref time.Time) []string {
	atomic.AddInt32(&s.calls, 1)
	return s.titles
}

type stubTheaters struct {
	calls     int32
	screening []domain.Screening
	exclude   []string
}

func (s *stubTheaters) Schedules(ctx context.Context, date time.Time, exclude []string) []domain.Screening {
	atomic.AddInt32(&s.calls, 1)
	s.exclude = exclude
	return s.screening
}

type stubArchive struct {
	calls     int32
	screening []domain.Screening
}

func (s *stubArchive) Schedules(ctx context.Context, date time.Time) []domain.Screening {
	atomic.AddInt32(&s.calls, 1)
	return s.screening
}

func screeningAt(title string, date time.Time, hour int, source domain.Source) domain.Screening {
	return domain.Screening{
		Title:    title,
		Time:     domain.Clock(hour, 0),
		Showtime: domain.ClockOn(date, hour, 0),
		Source:   source,
	}
}

func newTestService(t *testing.T, box *stubBoxOffice, theaters *stubTheaters, archive *stubArchive) Service {
	t.Helper()
	log := zerolog.Nop()
	store := cache.NewStore(log, t.TempDir(), 6*time.Hour)
	return NewService(log, store, box, theaters, archive)
}

func TestMergedSortsAcrossSources(t *testing.T) {
	date := time.Date(2025, 9, 15, 0, 0, 0, 0, time.Local)
	theaters := &stubTheaters{screening: []domain.Screening{
		screeningAt("Theater Late", date, 20, domain.SourceTheater),
		screeningAt("Theater Early", date, 10, domain.SourceTheater),
	}}
	archive := &stubArchive{screening: []domain.Screening{
		screeningAt("Archive Mid", date, 14, domain.SourceArchive),
	}}
	box := &stubBoxOffice{titles: []string{"Blockbuster"}}

	svc := newTestService(t, box, theaters, archive)
	got, err := svc.Merged(context.Background(), date, false)

	require.NoError(t, err)
	require.Len(t, got.Screenings, 3)
	assert.Equal(t, "Theater Early", got.Screenings[0].Title)
	assert.Equal(t, "Archive Mid", got.Screenings[1].Title)
	assert.Equal(t, "Theater Late", got.Screenings[2].Title)
	for i := 1; i < len(got.Screenings); i++ {
		assert.False(t, got.Screenings[i].Showtime.Before(got.Screenings[i-1].Showtime))
	}

	assert.False(t, got.FromCache)
	assert.Equal(t, 2, got.TheaterCount)
	assert.Equal(t, 1, got.ArchiveCount)
	assert.Equal(t, []string{"Blockbuster"}, got.Excluded)
	assert.Equal(t, []string{"Blockbuster"}, theaters.exclude,
		"exclude-list must be handed to the theater source")
}

func TestMergedHandlesEmptySources(t *testing.T) {
	date := time.Date(2025, 9, 15, 0, 0, 0, 0, time.Local)
	svc := newTestService(t, &stubBoxOffice{}, &stubTheaters{}, &stubArchive{})

	got, err := svc.Merged(context.Background(), date, false)

	require.NoError(t, err)
	assert.Empty(t, got.Screenings)
	assert.Zero(t, got.TheaterCount)
	assert.Zero(t, got.ArchiveCount)
}

func TestMergedUsesCacheOnSecondCall(t *testing.T) {
	date := time.Date(2025, 9, 15, 0, 0, 0, 0, time.Local)
	box := &stubBoxOffice{}
	theaters := &stubTheaters{screening: []domain.Screening{
		screeningAt("Film A", date, 10, domain.SourceTheater),
	}}
	archive := &stubArchive{}

	svc := newTestService(t, box, theaters, archive)

	first, err := svc.Merged(context.Background(), date, false)
	require.NoError(t, err)

	second, err := svc.Merged(context.Background(), date, false)
	require.NoError(t, err)

	assert.Equal(t, first.Screenings, second.Screenings)
	assert.True(t, second.FromCache)
	assert.Equal(t, int32(1), atomic.LoadInt32(&box.calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&theaters.calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&archive.calls))
}

func TestMergedForceBypassesCacheRead(t *testing.T) {
	date := time.Date(2025, 9, 15, 0, 0, 0, 0, time.Local)
	box := &stubBoxOffice{}
	theaters := &stubTheaters{}
	archive := &stubArchive{}

	svc := newTestService(t, box, theaters, archive)

	_, err := svc.Merged(context.Background(), date, false)
	require.NoError(t, err)

	got, err := svc.Merged(context.Background(), date, true)
	require.NoError(t, err)

	assert.False(t, got.FromCache)
	assert.Equal(t, int32(2), atomic.LoadInt32(&theaters.calls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&archive.calls))
}

func TestMergedForceStillWritesThrough(t *testing.T) {
	date := time.Date(2025, 9, 15, 0, 0, 0, 0, time.Local)
	theaters := &stubTheaters{screening: []domain.Screening{
		screeningAt("Film A", date, 10, domain.SourceTheater),
	}}

	svc := newTestService(t, &stubBoxOffice{}, theaters, &stubArchive{})

	_, err := svc.Merged(context.Background(), date, true)
	require.NoError(t, err)

	got, err := svc.Merged(context.Background(), date, false)
	require.NoError(t, err)

	assert.True(t, got.FromCache)
	assert.Equal(t, int32(1), atomic.LoadInt32(&theaters.calls))
}

func TestMergedPropagatesContextCancellation(t *testing.T) {
	date := time.Date(2025, 9, 15, 0, 0, 0, 0, time.Local)
	svc := newTestService(t, &stubBoxOffice{}, &stubTheaters{}, &stubArchive{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Merged(ctx, date, true)

	assert.ErrorIs(t, err, context.Canceled)
}

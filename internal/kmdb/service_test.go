package kmdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwanpak/cinegrid/internal/cache"
	"github.com/kwanpak/cinegrid/internal/domain"
	"github.com/kwanpak/cinegrid/internal/fetch"
)

const sampleResponse = `{
	"resultMsg": "INFO-000",
	"resultList": [
		{
			"cMovieId": "K-00123",
			"cMovieName": "살인의 추억",
			"cMovieTime": "9:30",
			"cDirector": "봉준호",
			"cProductionYear": "2003",
			"cRunningTime": "131",
			"cActors": "송강호, 김상경",
			"cCodeSubName2": "15세이상관람가",
			"cCodeSubName3": "시네마테크KOFA 1관",
			"image1URL": "https://example.com/poster.jpg"
		},
		{
			"cMovieId": "K-00456",
			"cMovieName": "하녀",
			"cMovieTime": "14:00",
			"cCodeSubName3": "2"
		},
		{
			"cMovieId": "K-00789",
			"cMovieName": "",
			"cMovieTime": "16:00"
		},
		{
			"cMovieId": "K-00790",
			"cMovieName": "오발탄",
			"cMovieTime": "soon"
		}
	]
}`

func newTestService(t *testing.T, handler http.HandlerFunc) *service {
	t.Helper()
	log := zerolog.Nop()
	settings := domain.FetchSettings{
		Timeout:     2 * time.Second,
		MaxAttempts: 1,
		RetryDelay:  time.Millisecond,
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &domain.Config{KmdbAPIKey: "test-key"}
	store := cache.NewStore(log, t.TempDir(), 6*time.Hour)

	svc := NewService(log, cfg, fetch.NewClient(log, settings), store).(*service)
	svc.baseURL = srv.URL
	return svc
}

func TestSchedulesParsesArchiveProgram(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("serviceKey"))
		assert.Equal(t, "20250915", r.URL.Query().Get("StartDate"))
		assert.Equal(t, "20250915", r.URL.Query().Get("EndDate"))
		w.Write([]byte(sampleResponse))
	})
	date := time.Date(2025, 9, 15, 0, 0, 0, 0, time.Local)

	got := svc.Schedules(context.Background(), date)

	// Nameless and unparsable-time rows are dropped.
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, "살인의 추억", first.Title)
	assert.Equal(t, "한국영상자료원 시네마테크KOFA", first.Theater)
	assert.Equal(t, "마포구", first.Area)
	assert.Equal(t, "시네마테크KOFA 1관", first.Screen)
	assert.Equal(t, "09:30", first.Time)
	assert.Equal(t, domain.ClockOn(date, 9, 30), first.Showtime)
	assert.Equal(t, "K-00123", first.MovieCode)
	assert.Equal(t, "봉준호", first.Director)
	assert.Equal(t, "2003", first.ProdYear)
	assert.Equal(t, "131", first.Runtime)
	assert.Equal(t, "송강호, 김상경", first.Actors)
	assert.Equal(t, "https://example.com/poster.jpg", first.PosterURL)
	assert.Equal(t, "15세이상관람가", first.Rating)
	assert.Equal(t, domain.SourceArchive, first.Source)

	second := got[1]
	assert.Equal(t, "하녀", second.Title)
	assert.Equal(t, "2 상영관", second.Screen)
	assert.Equal(t, "14:00", second.Time)
}

func TestSchedulesSortsByShowtime(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"resultMsg": "INFO-000",
			"resultList": [
				{"cMovieId":"1","cMovieName":"Late","cMovieTime":"19:00"},
				{"cMovieId":"2","cMovieName":"Early","cMovieTime":"10:00"}
			]
		}`))
	})

	got := svc.Schedules(context.Background(), time.Date(2025, 9, 15, 0, 0, 0, 0, time.Local))

	require.Len(t, got, 2)
	assert.Equal(t, "Early", got[0].Title)
	assert.Equal(t, "Late", got[1].Title)
}

func TestSchedulesEmptyWithoutAPIKey(t *testing.T) {
	var calls int32
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(sampleResponse))
	})
	svc.config = &domain.Config{}

	got := svc.Schedules(context.Background(), time.Now())

	assert.Empty(t, got)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestSchedulesEmptyOnErrorResult(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"resultMsg":"ERROR-300","resultList":[]}`))
	})

	got := svc.Schedules(context.Background(), time.Now())

	assert.Empty(t, got)
}

func TestSchedulesEmptyOnUpstreamFailure(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	got := svc.Schedules(context.Background(), time.Now())

	assert.Empty(t, got)
}

func TestSchedulesUsesCacheOnSecondCall(t *testing.T) {
	var calls int32
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(sampleResponse))
	})
	date := time.Date(2025, 9, 15, 0, 0, 0, 0, time.Local)

	first := svc.Schedules(context.Background(), date)
	second := svc.Schedules(context.Background(), date)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestScreenLabel(t *testing.T) {
	assert.Equal(t, "시네마테크KOFA", screenLabel(""))
	assert.Equal(t, "시네마테크KOFA 2관", screenLabel("시네마테크KOFA 2관"))
	assert.Equal(t, "B 상영관", screenLabel("B"))
}

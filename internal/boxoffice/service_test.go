package boxoffice

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
	"boxOfficeResult": {
		"dailyBoxOfficeList": [
			{"rank": "1", "movieNm": "Movie A", "movieCd": "1"},
			{"rank": "2", "movieNm": "Movie B (4DX)", "movieCd": "2"},
			{"rank": "3", "movieNm": "Movie C", "movieCd": "3"},
			{"rank": "4", "movieNm": "Movie D", "movieCd": "4"},
			{"rank": "5", "movieNm": "Movie E", "movieCd": "5"},
			{"rank": "6", "movieNm": "Movie F", "movieCd": "6"}
		]
	}
}`

func newTestService(t *testing.T, upstream string) Service {
	t.Helper()
	log := zerolog.Nop()
	cfg := &domain.Config{KobisAPIKey: "test-key"}
	settings := domain.FetchSettings{Timeout: 2 * time.Second, MaxAttempts: 1, RetryDelay: time.Millisecond}
	store := cache.NewStore(log, t.TempDir(), 6*time.Hour)

	svc := NewService(log, cfg, fetch.NewClient(log, settings), store).(*service)
	svc.baseURL = upstream
	return svc
}

func TestTopTitlesCleansAndLimits(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Len(t, r.URL.Query().Get("targetDt"), 8)
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	svc := newTestService(t, srv.URL)
	titles := svc.TopTitles(context.Background(), time.Now())

	require.Len(t, titles, 5)
	assert.Equal(t, []string{"Movie A", "Movie B", "Movie C", "Movie D", "Movie E"}, titles)
}

func TestTopTitlesTargetsYesterday(t *testing.T) {
	var gotDt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDt = r.URL.Query().Get("targetDt")
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	svc := newTestService(t, srv.URL)
	ref := time.Date(2025, 9, 15, 12, 0, 0, 0, time.Local)
	svc.TopTitles(context.Background(), ref)

	assert.Equal(t, "20250914", gotDt)
}

func TestTopTitlesUsesCacheOnSecondCall(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	svc := newTestService(t, srv.URL)
	ref := time.Now()

	first := svc.TopTitles(context.Background(), ref)
	second := svc.TopTitles(context.Background(), ref)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "second call must not hit upstream")
}

func TestTopTitlesFallsBackOnUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	svc := newTestService(t, srv.URL)
	titles := svc.TopTitles(context.Background(), time.Now())

	assert.Equal(t, fallbackTitles, titles)
}

func TestTopTitlesFallsBackOnMissingKey(t *testing.T) {
	log := zerolog.Nop()
	cfg := &domain.Config{}
	settings := domain.FetchSettings{Timeout: time.Second, MaxAttempts: 1, RetryDelay: time.Millisecond}
	store := cache.NewStore(log, t.TempDir(), 6*time.Hour)
	svc := NewService(log, cfg, fetch.NewClient(log, settings), store)

	titles := svc.TopTitles(context.Background(), time.Now())
	assert.Equal(t, fallbackTitles, titles)
}

func TestTopTitlesFallsBackOnEmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"boxOfficeResult":{"dailyBoxOfficeList":[]}}`))
	}))
	defer srv.Close()

	svc := newTestService(t, srv.URL)
	titles := svc.TopTitles(context.Background(), time.Now())

	assert.Equal(t, fallbackTitles, titles)
}

func TestFallbackIsNotCached(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	svc := newTestService(t, srv.URL)
	ref := time.Now()

	assert.Equal(t, fallbackTitles, svc.TopTitles(context.Background(), ref))
	// A later call retries upstream instead of serving the fallback.
	assert.Equal(t, []string{"Movie A", "Movie B", "Movie C", "Movie D", "Movie E"},
		svc.TopTitles(context.Background(), ref))
}

// Package kobis talks to the KOBIS theater-schedule endpoint: an
// anti-forgery token is harvested from the schedule page, then a
// form-encoded POST per theater and date yields that theater's showings.
package kobis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/kwanpak/cinegrid/internal/cache"
	"github.com/kwanpak/cinegrid/internal/domain"
	"github.com/kwanpak/cinegrid/internal/fetch"
)

const cacheType = "art_cinemas"

// ScheduleService fetches showings for the whole theater catalog on one
// date, dropping any title on the exclude-list.
type ScheduleService interface {
	Schedules(ctx context.Context, date time.Time, exclude []string) []domain.Screening
}

type scheduleService struct {
	log      zerolog.Logger
	client   *fetch.Client
	store    *cache.Store
	theaters []domain.Theater

	batchSize  int
	batchDelay time.Duration

	pageURL     string
	scheduleURL string
}

type scheduleResponse struct {
	Schedule []struct {
		MovieNm string `json:"movieNm"`
		ScrnNm  string `json:"scrnNm"`
		MovieCd string `json:"movieCd"`
		ShowTm  string `json:"showTm"`
	} `json:"schedule"`
}

var csrfRe = regexp.MustCompile(`CSRFToken=([^"&]+)`)

func NewScheduleService(log zerolog.Logger, client *fetch.Client, store *cache.Store, theaters []domain.Theater, settings domain.FetchSettings) ScheduleService {
	return &scheduleService{
		log:         log.With().Str("module", "kobis").Logger(),
		client:      client,
		store:       store,
		theaters:    theaters,
		batchSize:   settings.BatchSize,
		batchDelay:  settings.BatchDelay,
		pageURL:     "https://www.kobis.or.kr/kobis/business/mast/thea/findTheaterSchedule.do",
		scheduleURL: "https://www.kobis.or.kr/kobis/business/mast/thea/findSchedule.do",
	}
}

// Schedules returns all showings across the catalog for the given date,
// already filtered through the exclude-list. The cache key incorporates the
// exclude-list so different lists never share an entry. Individual theater
// failures contribute nothing; only a missing anti-forgery token empties the
// whole result.
func (s *scheduleService) Schedules(ctx context.Context, date time.Time, exclude []string) []domain.Screening {
	dateStr := date.Format("2006-01-02")

	var cached []domain.Screening
	if s.store.Get(cacheType, dateStr, exclude, &cached) {
		s.log.Debug().Int("count", len(cached)).Msg("using cached theater schedules")
		return cached
	}

	token, err := s.csrfToken(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to harvest CSRF token, returning no theater schedules")
		return []domain.Screening{}
	}

	s.log.Info().
		Int("theaters", len(s.theaters)).
		Int("batch_size", s.batchSize).
		Msg("fetching theater schedules")

	all := []domain.Screening{}
	for start := 0; start < len(s.theaters); start += s.batchSize {
		end := start + s.batchSize
		if end > len(s.theaters) {
			end = len(s.theaters)
		}
		all = append(all, s.fetchBatch(ctx, s.theaters[start:end], token, date, exclude)...)

		// Throttle between batches so the upstream service is not hammered.
		if end < len(s.theaters) {
			select {
			case <-time.After(s.batchDelay):
			case <-ctx.Done():
				return all
			}
		}
	}

	s.store.Set(cacheType, dateStr, all, exclude)
	s.log.Info().Int("count", len(all)).Msg("theater schedules fetched")
	return all
}

// fetchBatch issues every fetch in the batch concurrently and waits for all
// of them. A theater whose fetch or parse fails is logged and skipped.
func (s *scheduleService) fetchBatch(ctx context.Context, batch []domain.Theater, token string, date time.Time, exclude []string) []domain.Screening {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	out := []domain.Screening{}

	for _, theater := range batch {
		wg.Add(1)
		go func(theater domain.Theater) {
			defer wg.Done()

			screenings, err := s.fetchTheater(ctx, theater, token, date, exclude)
			if err != nil {
				s.log.Warn().Err(err).Str("theater", theater.Name).Msg("theater schedule fetch failed")
				return
			}

			mu.Lock()
			out = append(out, screenings...)
			mu.Unlock()
		}(theater)
	}

	wg.Wait()
	return out
}

func (s *scheduleService) fetchTheater(ctx context.Context, theater domain.Theater, token string, date time.Time, exclude []string) ([]domain.Screening, error) {
	form := url.Values{}
	form.Set("theaCd", theater.Code)
	form.Set("showDt", date.Format("20060102"))

	body, err := s.client.PostForm(ctx, s.scheduleURL+"?CSRFToken="+token, form, pageHeader())
	if err != nil {
		return nil, errors.Wrap(err, "schedule request failed")
	}

	resp := &scheduleResponse{}
	if err := json.Unmarshal(body, resp); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal schedule response")
	}

	screenings := []domain.Screening{}
	for _, item := range resp.Schedule {
		title := domain.CleanTitle(item.MovieNm)

		if excluded(title, exclude) {
			s.log.Debug().Str("title", title).Msg("dropped box-office title")
			continue
		}

		for _, tok := range strings.Split(item.ShowTm, ",") {
			hour, minute, err := domain.ParseClock(tok)
			if err != nil {
				s.log.Debug().Err(err).Str("theater", theater.Name).Msg("skipping malformed showtime")
				continue
			}

			screenings = append(screenings, domain.Screening{
				Title:     title,
				Theater:   theater.Name,
				Area:      theater.Area,
				Screen:    item.ScrnNm,
				MovieCode: item.MovieCd,
				Time:      domain.Clock(hour, minute),
				Showtime:  domain.ClockOn(date, hour, minute),
				Source:    domain.SourceTheater,
			})
		}
	}

	return screenings, nil
}

// csrfToken fetches the schedule page and pulls the anti-forgery token from
// its hidden input, falling back to a regexp over the raw HTML.
func (s *scheduleService) csrfToken(ctx context.Context) (string, error) {
	body, err := s.client.Get(ctx, s.pageURL, pageHeader())
	if err != nil {
		return "", errors.Wrap(err, "failed to fetch schedule page")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err == nil {
		if token, ok := doc.Find(`input[name="CSRFToken"]`).Attr("value"); ok && token != "" {
			return token, nil
		}
	}

	if m := csrfRe.FindSubmatch(body); m != nil {
		return string(m[1]), nil
	}

	return "", errors.New("no CSRF token in schedule page")
}

func excluded(title string, exclude []string) bool {
	for _, e := range exclude {
		if title == e {
			return true
		}
	}
	return false
}

func pageHeader() http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	h.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")
	h.Set("Origin", "https://www.kobis.or.kr")
	h.Set("Referer", "https://www.kobis.or.kr/kobis/business/mast/thea/findTheaterSchedule.do")
	h.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36")
	h.Set("X-Requested-With", "XMLHttpRequest")
	return h
}

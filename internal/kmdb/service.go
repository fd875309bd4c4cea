// Package kmdb queries the Korean film-archive API for the cinematheque
// KOFA screening program. This source is supplementary: on any failure it
// contributes nothing instead of breaking the aggregate.
package kmdb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/kwanpak/cinegrid/internal/cache"
	"github.com/kwanpak/cinegrid/internal/domain"
	"github.com/kwanpak/cinegrid/internal/fetch"
)

const (
	cacheType = "kofa_api"

	kofaTheater = "한국영상자료원 시네마테크KOFA"
	kofaArea    = "마포구"
)

// Service fetches the archive screening program for a single date.
type Service interface {
	Schedules(ctx context.Context, date time.Time) []domain.Screening
}

type service struct {
	log     zerolog.Logger
	config  *domain.Config
	client  *fetch.Client
	store   *cache.Store
	baseURL string
}

type apiResponse struct {
	ResultMsg  string `json:"resultMsg"`
	ResultList []struct {
		CMovieID        string `json:"cMovieId"`
		CMovieName      string `json:"cMovieName"`
		CMovieTime      string `json:"cMovieTime"`
		CDirector       string `json:"cDirector"`
		CProductionYear string `json:"cProductionYear"`
		CRunningTime    string `json:"cRunningTime"`
		CActors         string `json:"cActors"`
		CCodeSubName2   string `json:"cCodeSubName2"`
		CCodeSubName3   string `json:"cCodeSubName3"`
		Image1URL       string `json:"image1URL"`
	} `json:"resultList"`
}

func NewService(log zerolog.Logger, config *domain.Config, client *fetch.Client, store *cache.Store) Service {
	return &service{
		log:     log.With().Str("module", "kmdb").Logger(),
		config:  config,
		client:  client,
		store:   store,
		baseURL: "https://www.kmdb.or.kr/info/api/3/api.json",
	}
}

// Schedules returns the archive screenings for the date, or an empty slice
// on any error (missing key, network failure, unexpected response shape).
func (s *service) Schedules(ctx context.Context, date time.Time) []domain.Screening {
	dateStr := date.Format("2006-01-02")

	var cached []domain.Screening
	if s.store.Get(cacheType, dateStr, nil, &cached) {
		s.log.Debug().Int("count", len(cached)).Msg("using cached archive schedules")
		return cached
	}

	screenings, err := s.fetch(ctx, date)
	if err != nil {
		s.log.Warn().Err(err).Msg("archive schedule fetch failed, continuing without it")
		return []domain.Screening{}
	}

	s.store.Set(cacheType, dateStr, screenings, nil)
	s.log.Info().Int("count", len(screenings)).Msg("archive schedules fetched")
	return screenings
}

func (s *service) fetch(ctx context.Context, date time.Time) ([]domain.Screening, error) {
	if s.config.KmdbAPIKey == "" {
		return nil, errors.New("kmdb_api_key is not configured")
	}

	digits := date.Format("20060102")
	q := url.Values{}
	q.Set("serviceKey", s.config.KmdbAPIKey)
	q.Set("StartDate", digits)
	q.Set("EndDate", digits)

	header := http.Header{}
	header.Set("Accept", "application/json")

	body, err := s.client.Get(ctx, s.baseURL+"?"+q.Encode(), header)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch archive schedule")
	}

	resp := &apiResponse{}
	if err := json.Unmarshal(body, resp); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal archive response")
	}
	if resp.ResultMsg != "INFO-000" {
		return nil, errors.Errorf("archive API returned %q", resp.ResultMsg)
	}

	screenings := []domain.Screening{}
	for _, item := range resp.ResultList {
		if item.CMovieName == "" || item.CMovieTime == "" {
			continue
		}

		// Archive times come as "H:MM" or "HH:MM".
		hour, minute, err := domain.ParseClock(item.CMovieTime)
		if err != nil {
			s.log.Debug().Err(err).Str("title", item.CMovieName).Msg("skipping malformed archive showtime")
			continue
		}

		screenings = append(screenings, domain.Screening{
			Title:     item.CMovieName,
			Theater:   kofaTheater,
			Area:      kofaArea,
			Screen:    screenLabel(item.CCodeSubName3),
			Time:      domain.Clock(hour, minute),
			Showtime:  domain.ClockOn(date, hour, minute),
			MovieCode: item.CMovieID,
			Director:  item.CDirector,
			ProdYear:  item.CProductionYear,
			Runtime:   item.CRunningTime,
			Actors:    item.CActors,
			PosterURL: item.Image1URL,
			Rating:    item.CCodeSubName2,
			Source:    domain.SourceArchive,
		})
	}

	domain.SortScreenings(screenings)
	return screenings, nil
}

func screenLabel(raw string) string {
	if raw == "" {
		return "시네마테크KOFA"
	}
	if strings.Contains(raw, "관") {
		return raw
	}
	return raw + " 상영관"
}

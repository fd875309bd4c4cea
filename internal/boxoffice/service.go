package boxoffice

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/kwanpak/cinegrid/internal/cache"
	"github.com/kwanpak/cinegrid/internal/domain"
	"github.com/kwanpak/cinegrid/internal/fetch"
)

const (
	cacheType = "boxoffice"
	topN      = 5
)

// fallbackTitles is returned when the ranking API cannot be reached at all.
// A stale approximate exclude-list beats aborting the whole schedule fetch:
// the filter is best-effort, not correctness-critical.
var fallbackTitles = []string{
	"베놈",
	"글래디에이터",
	"위키드",
	"모아나",
	"청설",
}

// Service produces the exclude-list: the top-5 grossing titles for
// "yesterday" relative to the reference time, fetched at most once per
// calendar day.
type Service interface {
	TopTitles(ctx context.Context, ref time.Time) []string
}

type service struct {
	log     zerolog.Logger
	config  *domain.Config
	client  *fetch.Client
	store   *cache.Store
	baseURL string
}

type boxOfficeResponse struct {
	BoxOfficeResult struct {
		DailyBoxOfficeList []struct {
			Rank    string `json:"rank"`
			MovieNm string `json:"movieNm"`
			MovieCd string `json:"movieCd"`
		} `json:"dailyBoxOfficeList"`
	} `json:"boxOfficeResult"`
}

func NewService(log zerolog.Logger, config *domain.Config, client *fetch.Client, store *cache.Store) Service {
	return &service{
		log:     log.With().Str("module", "boxoffice").Logger(),
		config:  config,
		client:  client,
		store:   store,
		baseURL: "http://www.kobis.or.kr/kobisopenapi/webservice/rest/boxoffice/searchDailyBoxOfficeList.json",
	}
}

// TopTitles returns the cleaned top-5 box-office titles for the day before
// ref. Never fails: on any error the hardcoded fallback list is returned so
// callers can keep filtering.
func (s *service) TopTitles(ctx context.Context, ref time.Time) []string {
	yesterday := ref.AddDate(0, 0, -1)
	dateStr := yesterday.Format("2006-01-02")

	var titles []string
	if s.store.Get(cacheType, dateStr, nil, &titles) {
		s.log.Debug().Strs("titles", titles).Msg("using cached box-office titles")
		return titles
	}

	titles, err := s.fetchTop(ctx, yesterday)
	if err != nil {
		s.log.Warn().Err(err).Msg("box-office fetch failed, using fallback exclude list")
		return fallbackTitles
	}

	s.store.Set(cacheType, dateStr, titles, nil)
	s.log.Info().Strs("titles", titles).Msg("box-office top titles")
	return titles
}

func (s *service) fetchTop(ctx context.Context, target time.Time) ([]string, error) {
	if s.config.KobisAPIKey == "" {
		return nil, errors.New("kobis_api_key is not configured")
	}

	q := url.Values{}
	q.Set("key", s.config.KobisAPIKey)
	q.Set("targetDt", target.Format("20060102"))

	body, err := s.client.Get(ctx, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch daily box office")
	}

	resp := &boxOfficeResponse{}
	if err := json.Unmarshal(body, resp); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal box office response")
	}

	list := resp.BoxOfficeResult.DailyBoxOfficeList
	if len(list) == 0 {
		return nil, errors.New("box office response contains no entries")
	}
	if len(list) > topN {
		list = list[:topN]
	}

	titles := make([]string, 0, len(list))
	for _, m := range list {
		titles = append(titles, domain.CleanTitle(m.MovieNm))
	}

	return titles, nil
}

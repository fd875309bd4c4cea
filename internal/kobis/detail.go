package kobis

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/kwanpak/cinegrid/internal/domain"
	"github.com/kwanpak/cinegrid/internal/fetch"
)

const detailCacheTTL = 30 * time.Minute

// MovieInfo is the detail record returned by the KOBIS movie-info API.
type MovieInfo struct {
	MovieCd   string `json:"movieCd"`
	MovieNm   string `json:"movieNm"`
	MovieNmEn string `json:"movieNmEn,omitempty"`
	PrdtYear  string `json:"prdtYear,omitempty"`
	OpenDt    string `json:"openDt,omitempty"`
	ShowTm    string `json:"showTm,omitempty"`
	Genres    string `json:"genres,omitempty"`
	Directors string `json:"directors,omitempty"`
	Actors    string `json:"actors,omitempty"`
	Rating    string `json:"rating,omitempty"`
}

// DetailService looks up per-film detail on demand. This enrichment path is
// separate from the batch pipeline and keeps its own small in-process cache:
// the shared store is keyed by calendar date, which film detail is not.
type DetailService interface {
	MovieInfo(ctx context.Context, movieCode string) (*MovieInfo, error)
}

type detailService struct {
	log     zerolog.Logger
	config  *domain.Config
	client  *fetch.Client
	baseURL string

	mu    sync.Mutex
	cache map[string]detailEntry
}

type detailEntry struct {
	info     *MovieInfo
	cachedAt time.Time
}

type movieInfoResponse struct {
	MovieInfoResult struct {
		MovieInfo struct {
			MovieCd   string `json:"movieCd"`
			MovieNm   string `json:"movieNm"`
			MovieNmEn string `json:"movieNmEn"`
			PrdtYear  string `json:"prdtYear"`
			OpenDt    string `json:"openDt"`
			ShowTm    string `json:"showTm"`
			Genres    []struct {
				GenreNm string `json:"genreNm"`
			} `json:"genres"`
			Directors []struct {
				PeopleNm string `json:"peopleNm"`
			} `json:"directors"`
			Actors []struct {
				PeopleNm string `json:"peopleNm"`
			} `json:"actors"`
			Audits []struct {
				WatchGradeNm string `json:"watchGradeNm"`
			} `json:"audits"`
		} `json:"movieInfo"`
	} `json:"movieInfoResult"`
}

func NewDetailService(log zerolog.Logger, config *domain.Config, client *fetch.Client) DetailService {
	return &detailService{
		log:     log.With().Str("module", "kobis").Str("api", "movieinfo").Logger(),
		config:  config,
		client:  client,
		baseURL: "http://www.kobis.or.kr/kobisopenapi/webservice/rest/movie/searchMovieInfo.json",
		cache:   make(map[string]detailEntry),
	}
}

func (s *detailService) MovieInfo(ctx context.Context, movieCode string) (*MovieInfo, error) {
	if info, ok := s.cached(movieCode); ok {
		s.log.Debug().Str("movie_code", movieCode).Msg("movie info cache hit")
		return info, nil
	}

	if s.config.KobisAPIKey == "" {
		return nil, errors.New("kobis_api_key is not configured")
	}

	q := url.Values{}
	q.Set("key", s.config.KobisAPIKey)
	q.Set("movieCd", movieCode)

	body, err := s.client.Get(ctx, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		// Cache the failure too, to keep a flapping upstream from being
		// hammered on every request.
		s.remember(movieCode, nil)
		return nil, errors.Wrap(err, "failed to fetch movie info")
	}

	resp := &movieInfoResponse{}
	if err := json.Unmarshal(body, resp); err != nil {
		s.remember(movieCode, nil)
		return nil, errors.Wrap(err, "failed to unmarshal movie info response")
	}

	raw := resp.MovieInfoResult.MovieInfo
	if raw.MovieCd == "" {
		s.remember(movieCode, nil)
		return nil, nil
	}

	info := &MovieInfo{
		MovieCd:   raw.MovieCd,
		MovieNm:   raw.MovieNm,
		MovieNmEn: raw.MovieNmEn,
		PrdtYear:  raw.PrdtYear,
		OpenDt:    raw.OpenDt,
		ShowTm:    raw.ShowTm,
	}
	info.Genres = joinNames(len(raw.Genres), func(i int) string { return raw.Genres[i].GenreNm })
	info.Directors = joinNames(len(raw.Directors), func(i int) string { return raw.Directors[i].PeopleNm })
	info.Actors = joinNames(len(raw.Actors), func(i int) string { return raw.Actors[i].PeopleNm })
	if len(raw.Audits) > 0 {
		info.Rating = raw.Audits[0].WatchGradeNm
	}

	s.remember(movieCode, info)
	return info, nil
}

func (s *detailService) cached(movieCode string) (*MovieInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.cache[movieCode]
	if !ok || time.Since(e.cachedAt) > detailCacheTTL {
		return nil, false
	}
	return e.info, true
}

func (s *detailService) remember(movieCode string, info *MovieInfo) {
	s.mu.Lock()
	s.cache[movieCode] = detailEntry{info: info, cachedAt: time.Now()}
	s.mu.Unlock()
}

func joinNames(n int, name func(int) string) string {
	out := ""
	for i := 0; i < n; i++ {
		if out != "" {
			out += ", "
		}
		out += name(i)
	}
	return out
}

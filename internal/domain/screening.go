package domain

import (
	"sort"
	"time"
)

// Source identifies which upstream produced a screening.
type Source string

const (
	// SourceTheater - screenings from the KOBIS theater-schedule endpoint
	SourceTheater Source = "KOBIS"
	// SourceArchive - screenings from the KMDB film-archive API
	SourceArchive Source = "KMDB_API"
	// SourceManual - hand-entered screenings
	SourceManual Source = "MANUAL"
)

// Screening is one showing of one film at one theater at one start time.
// Showtime carries local wall-clock semantics: its date component always
// equals the query's target date. Screenings are immutable once produced;
// a refresh builds a whole new slice.
type Screening struct {
	Title     string    `json:"title"`
	Theater   string    `json:"theater"`
	Area      string    `json:"area"`
	Screen    string    `json:"screen,omitempty"`
	Time      string    `json:"time"`
	Showtime  time.Time `json:"showtime"`
	MovieCode string    `json:"movieCode,omitempty"`
	Director  string    `json:"director,omitempty"`
	PosterURL string    `json:"posterUrl,omitempty"`
	ProdYear  string    `json:"prodYear,omitempty"`
	Runtime   string    `json:"runtime,omitempty"`
	Actors    string    `json:"actors,omitempty"`
	Rating    string    `json:"rating,omitempty"`
	Source    Source    `json:"source"`
}

// SortScreenings orders screenings ascending by start time. The sort is
// stable so screenings with equal start times keep their relative source
// order.
func SortScreenings(s []Screening) {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].Showtime.Before(s[j].Showtime)
	})
}

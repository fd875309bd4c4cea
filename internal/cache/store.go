package cache

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Store is a two-tier key/value cache: an in-process map in front of one
// JSON file per entry on disk. Writes go through to both tiers; reads check
// memory first and repopulate it from disk on a hit there. Expired entries
// are treated as absent and evicted lazily by whichever tier found them.
//
// Disk I/O failures are never surfaced to callers; the store degrades to
// "no cache" instead.
//
// The memory map is guarded by a mutex for map safety only. A concurrent
// miss-then-fetch-then-set on the same key can still duplicate an upstream
// fetch and overwrite with an equivalent payload; last write wins.
type Store struct {
	log        zerolog.Logger
	dir        string
	defaultTTL time.Duration

	mu     sync.RWMutex
	memory map[string]entry

	// now is swapped out in tests
	now func() time.Time
}

// entry wraps a cached payload with its lifecycle timestamps. ExpiresAt is
// always after Timestamp; an entry past ExpiresAt is logically absent even
// while still stored.
type entry struct {
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

func (e entry) expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Stats is a read-only snapshot of entry counts per tier.
type Stats struct {
	MemoryCount int `json:"memoryCount"`
	FileCount   int `json:"fileCount"`
}

func NewStore(log zerolog.Logger, dir string, defaultTTL time.Duration) *Store {
	if defaultTTL <= 0 {
		defaultTTL = 6 * time.Hour
	}
	return &Store{
		log:        log.With().Str("module", "cache").Logger(),
		dir:        dir,
		defaultTTL: defaultTTL,
		memory:     make(map[string]entry),
		now:        time.Now,
	}
}

var nonDigitRe = regexp.MustCompile(`[^\d]`)

// Key derives the deterministic cache key for (type, date, params). The date
// is reduced to its digits (YYYY-MM-DD -> YYYYMMDD) and params are
// canonicalized by sorting a copy before encoding, so two logically
// identical queries always produce the same key and differing exclude-lists
// never collide.
func Key(typ, date string, params []string) string {
	dateStr := nonDigitRe.ReplaceAllString(date, "")

	var paramStr string
	if params != nil {
		canonical := make([]string, len(params))
		copy(canonical, params)
		sort.Strings(canonical)
		b, _ := json.Marshal(canonical)
		paramStr = string(b)
	}

	return typ + "_" + dateStr + "_" + base64.RawURLEncoding.EncodeToString([]byte(paramStr))
}

// Get looks up (type, date, params) and unmarshals the payload into v.
// It reports whether a live entry was found.
func (s *Store) Get(typ, date string, params []string, v any) bool {
	key := Key(typ, date, params)

	if e, ok := s.getFromMemory(key); ok {
		if err := json.Unmarshal(e.Payload, v); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to decode memory cache payload")
			return false
		}
		s.log.Debug().Str("key", key).Msg("memory cache hit")
		return true
	}

	e, ok := s.getFromFile(key)
	if !ok {
		s.log.Debug().Str("key", key).Msg("cache miss")
		return false
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to decode file cache payload")
		return false
	}

	// Repopulate the memory tier so the next read skips the disk. The
	// entry keeps its original expiry.
	s.mu.Lock()
	s.memory[key] = e
	s.mu.Unlock()

	s.log.Debug().Str("key", key).Msg("file cache hit")
	return true
}

// Set stores the payload under (type, date, params) in both tiers. The TTL
// depends on the key's date component: same-day data expires at the next
// local midnight, future data after the fixed default TTL.
func (s *Store) Set(typ, date string, v any, params []string) {
	key := Key(typ, date, params)

	payload, err := json.Marshal(v)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to encode cache payload")
		return
	}

	now := s.now()
	e := entry{
		Payload:   payload,
		Timestamp: now,
		ExpiresAt: now.Add(s.ttlFor(date, now)),
	}

	s.mu.Lock()
	s.memory[key] = e
	s.mu.Unlock()

	if err := s.writeFile(key, e); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to write file cache")
	}

	s.log.Debug().Str("key", key).Time("expires_at", e.ExpiresAt).Msg("cache set")
}

// Delete removes (type, date, params) from both tiers. Deleting an absent
// key is a no-op.
func (s *Store) Delete(typ, date string, params []string) {
	key := Key(typ, date, params)

	s.mu.Lock()
	delete(s.memory, key)
	s.mu.Unlock()

	if err := os.Remove(s.filePath(key)); err != nil && !os.IsNotExist(err) {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to remove file cache")
	}
}

// Cleanup sweeps both tiers and evicts every expired entry. Intended for
// periodic or manual invocation.
func (s *Store) Cleanup() {
	now := s.now()

	s.mu.Lock()
	for key, e := range s.memory {
		if e.expired(now) {
			delete(s.memory, key)
		}
	}
	s.mu.Unlock()

	files, err := os.ReadDir(s.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Msg("failed to list cache dir")
		}
		return
	}

	for _, f := range files {
		if !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.dir, f.Name())
		b, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var e entry
		if err := json.Unmarshal(b, &e); err != nil || e.expired(now) {
			if err := os.Remove(path); err != nil {
				s.log.Warn().Err(err).Str("file", f.Name()).Msg("failed to remove expired cache file")
				continue
			}
			s.log.Debug().Str("file", f.Name()).Msg("removed expired cache file")
		}
	}
}

// Clear unconditionally empties both tiers.
func (s *Store) Clear() {
	s.mu.Lock()
	s.memory = make(map[string]entry)
	s.mu.Unlock()

	files, err := os.ReadDir(s.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Msg("failed to list cache dir")
		}
		return
	}
	for _, f := range files {
		if strings.HasSuffix(f.Name(), ".json") {
			os.Remove(filepath.Join(s.dir, f.Name()))
		}
	}
}

// Stats counts live plus not-yet-swept entries in each tier.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	memCount := len(s.memory)
	s.mu.RUnlock()

	fileCount := 0
	if files, err := os.ReadDir(s.dir); err == nil {
		for _, f := range files {
			if strings.HasSuffix(f.Name(), ".json") {
				fileCount++
			}
		}
	}

	return Stats{MemoryCount: memCount, FileCount: fileCount}
}

// ttlFor implements the per-date TTL policy: entries for today expire at the
// next local midnight regardless of when they were cached, entries for other
// dates after the fixed default.
func (s *Store) ttlFor(date string, now time.Time) time.Duration {
	if nonDigitRe.ReplaceAllString(date, "") == now.Format("20060102") {
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
		return midnight.Sub(now)
	}
	return s.defaultTTL
}

func (s *Store) getFromMemory(key string) (entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.memory[key]
	if !ok {
		return entry{}, false
	}
	if e.expired(s.now()) {
		delete(s.memory, key)
		return entry{}, false
	}
	return e, true
}

func (s *Store) getFromFile(key string) (entry, bool) {
	path := s.filePath(key)

	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to read file cache")
		}
		return entry{}, false
	}

	var e entry
	if err := json.Unmarshal(b, &e); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("corrupt cache file, treating as miss")
		os.Remove(path)
		return entry{}, false
	}

	if e.expired(s.now()) {
		os.Remove(path)
		return entry{}, false
	}

	return e, true
}

func (s *Store) writeFile(key string, e entry) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.filePath(key), b, 0o644)
}

func (s *Store) filePath(key string) string {
	return filepath.Join(s.dir, key+".json")
}

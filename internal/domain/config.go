package domain

import "time"

// FetchProfile selects the timeout/retry/batch trade-off. A constrained
// execution environment (serverless time limits) trades completeness for
// finishing quickly; a normal environment retries harder and throttles more.
type FetchProfile string

const (
	// ProfileNormal - long timeouts, full retry budget, small batches
	ProfileNormal FetchProfile = "normal"
	// ProfileConstrained - short timeouts, no retries, large batches
	ProfileConstrained FetchProfile = "constrained"
)

// FetchSettings are the concrete knobs derived from a profile.
type FetchSettings struct {
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
	BatchSize   int
	BatchDelay  time.Duration
}

// Settings returns the named preset for the profile. Unknown values fall
// back to the normal preset.
func (p FetchProfile) Settings() FetchSettings {
	if p == ProfileConstrained {
		return FetchSettings{
			Timeout:     4 * time.Second,
			MaxAttempts: 1,
			RetryDelay:  200 * time.Millisecond,
			BatchSize:   8,
			BatchDelay:  100 * time.Millisecond,
		}
	}
	return FetchSettings{
		Timeout:     15 * time.Second,
		MaxAttempts: 3,
		RetryDelay:  2 * time.Second,
		BatchSize:   4,
		BatchDelay:  500 * time.Millisecond,
	}
}

type Config struct {
	KobisAPIKey       string       `toml:"kobis_api_key" mapstructure:"kobis_api_key"`
	KmdbAPIKey        string       `toml:"kmdb_api_key" mapstructure:"kmdb_api_key"`
	CacheDir          string       `toml:"cache_dir" mapstructure:"cache_dir"`
	CacheTTLHours     int          `toml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
	Profile           FetchProfile `toml:"profile" mapstructure:"profile"`
	DiscordWebhookURL string       `toml:"discord_webhook_url" mapstructure:"discord_webhook_url"`
}

// CacheTTL is the fixed TTL applied to cache entries for non-today dates.
func (c *Config) CacheTTL() time.Duration {
	hours := c.CacheTTLHours
	if hours <= 0 {
		hours = 6
	}
	return time.Duration(hours) * time.Hour
}

package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/kwanpak/cinegrid/internal/domain"
)

// Load builds the configuration from viper's merged sources:
// 1. Config file (config.yaml, optional)
// 2. Environment variables (CINEGRID_*)
// 3. Bound CLI flags
//
// The upstream API keys are deliberately not required here: an adapter that
// needs a missing key degrades to an empty result instead of the whole
// process refusing to start.
func Load() (*domain.Config, error) {
	cfg := &domain.Config{}

	cfg.KobisAPIKey = viper.GetString("kobis_api_key")
	cfg.KmdbAPIKey = viper.GetString("kmdb_api_key")
	cfg.CacheDir = viper.GetString("cache_dir")
	cfg.CacheTTLHours = viper.GetInt("cache_ttl_hours")
	cfg.DiscordWebhookURL = viper.GetString("discord_webhook_url")

	if cfg.CacheDir == "" {
		cfg.CacheDir = ".cache"
	}

	profile := viper.GetString("profile")
	switch domain.FetchProfile(profile) {
	case domain.ProfileNormal, domain.ProfileConstrained:
		cfg.Profile = domain.FetchProfile(profile)
	case "":
		cfg.Profile = domain.ProfileNormal
	default:
		return nil, fmt.Errorf("invalid profile: %s (must be 'normal' or 'constrained')", profile)
	}

	return cfg, nil
}

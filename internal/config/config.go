/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	MetricsBind string

	StationName string
	MediaRoot   string
	ClassifyMap string // optional YAML file overriding the filename classification table

	FFmpegBin  string
	FFprobeBin string
	Bitrate    int // stream bitrate in kbps

	ProbeCachePath string // SQLite probe cache; empty disables caching

	// Program generation
	InitialBatchSize int
	RefillBatchSize  int
	HistorySize      int

	// External trigger cadences
	WeatherInterval time.Duration
	AdInterval      time.Duration
	TimeHours       []int // local hours for time-of-day announcements

	// Weather snapshot source
	WeatherURL string
	WeatherTTL time.Duration

	// Optional NATS relay for station events
	NATSEnabled bool
	NATSURL     string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("SKALD_ENV", "development"),
		HTTPBind:    getEnv("SKALD_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("SKALD_HTTP_PORT", 8080),
		MetricsBind: getEnv("SKALD_METRICS_BIND", ""),

		StationName: getEnv("SKALD_STATION_NAME", "Skald Radio"),
		MediaRoot:   getEnv("SKALD_MEDIA_ROOT", "./media"),
		ClassifyMap: getEnv("SKALD_CLASSIFY_MAP", ""),

		FFmpegBin:  getEnv("SKALD_FFMPEG_BIN", "ffmpeg"),
		FFprobeBin: getEnv("SKALD_FFPROBE_BIN", "ffprobe"),
		Bitrate:    getEnvInt("SKALD_BITRATE", 128),

		ProbeCachePath: getEnv("SKALD_PROBE_CACHE", "./skald-probe.db"),

		InitialBatchSize: getEnvInt("SKALD_INITIAL_BATCH", 10),
		RefillBatchSize:  getEnvInt("SKALD_REFILL_BATCH", 5),
		HistorySize:      getEnvInt("SKALD_HISTORY_SIZE", 20),

		WeatherInterval: time.Duration(getEnvInt("SKALD_WEATHER_INTERVAL_MINUTES", 60)) * time.Minute,
		AdInterval:      time.Duration(getEnvInt("SKALD_AD_INTERVAL_MINUTES", 30)) * time.Minute,
		TimeHours:       getEnvHours("SKALD_TIME_HOURS", []int{0, 6, 12, 18}),

		WeatherURL: getEnv("SKALD_WEATHER_URL", ""),
		WeatherTTL: time.Duration(getEnvInt("SKALD_WEATHER_TTL_MINUTES", 15)) * time.Minute,

		NATSEnabled: getEnvBool("SKALD_NATS_ENABLED", false),
		NATSURL:     getEnv("SKALD_NATS_URL", "nats://localhost:4222"),
	}

	if cfg.MediaRoot == "" {
		return nil, fmt.Errorf("SKALD_MEDIA_ROOT must be provided")
	}
	if cfg.Bitrate <= 0 {
		return nil, fmt.Errorf("SKALD_BITRATE must be positive, got %d", cfg.Bitrate)
	}
	if cfg.HistorySize < 0 {
		return nil, fmt.Errorf("SKALD_HISTORY_SIZE must not be negative")
	}
	for _, h := range cfg.TimeHours {
		if h < 0 || h > 23 {
			return nil, fmt.Errorf("SKALD_TIME_HOURS entry %d out of range", h)
		}
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "true" || v == "1" || v == "yes" {
			return true
		}
		if v == "false" || v == "0" || v == "no" {
			return false
		}
	}
	return def
}

// getEnvHours parses a comma-separated hour list, e.g. "0,6,12,18".
func getEnvHours(key string, def []int) []int {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parts := strings.Split(val, ",")
	hours := make([]int, 0, len(parts))
	for _, p := range parts {
		parsed, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return def
		}
		hours = append(hours, parsed)
	}
	if len(hours) == 0 {
		return def
	}
	return hours
}

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package catalog scans the media library and exposes named pools of
// classified audio items with random-draw accessors.
package catalog

import (
	"context"
	"io/fs"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_radio/internal/models"
	"github.com/friendsincode/skald_radio/internal/prober"
)

var audioExtensions = map[string]struct{}{
	".mp3":  {},
	".ogg":  {},
	".oga":  {},
	".flac": {},
	".wav":  {},
	".m4a":  {},
	".aac":  {},
	".opus": {},
}

// Catalog holds the classified library pools. Pools are populated once by
// Build and read-only afterwards; random draws are safe for concurrent use.
type Catalog struct {
	mu  sync.Mutex
	rng *rand.Rand

	music     []*models.AudioItem
	jingles   []*models.AudioItem
	ads       []*models.AudioItem
	djIntros  []*models.AudioItem
	djOutros  []*models.AudioItem
	djSolos   []*models.AudioItem
	stationID []*models.AudioItem

	timeOfDay   map[models.TimeBucket][]*models.AudioItem
	weather     map[models.WeatherBucket][]*models.AudioItem
	transitions map[models.TransitionKind][]*models.AudioItem

	logger zerolog.Logger
}

// New creates an empty catalog.
func New(logger zerolog.Logger) *Catalog {
	return &Catalog{
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		timeOfDay:   make(map[models.TimeBucket][]*models.AudioItem),
		weather:     make(map[models.WeatherBucket][]*models.AudioItem),
		transitions: make(map[models.TransitionKind][]*models.AudioItem),
		logger:      logger.With().Str("component", "catalog").Logger(),
	}
}

// Build scans root, classifies every audio file, probes it, and fills the
// pools. Unreadable files are skipped with a warning.
func (c *Catalog) Build(ctx context.Context, root string, rules []Rule, p *prober.Prober) error {
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			c.logger.Warn().Err(err).Str("path", path).Msg("skipping unreadable entry")
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := audioExtensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.add(path, Classify(rules, path), p.Probe(ctx, path))
		count++
		return nil
	})
	if err != nil {
		return err
	}

	c.logger.Info().
		Int("files", count).
		Int("music", len(c.music)).
		Int("jingles", len(c.jingles)).
		Int("ads", len(c.ads)).
		Msg("catalog built")
	return nil
}

func (c *Catalog) add(path string, class Class, res prober.Result) {
	item := &models.AudioItem{
		ID:                 uuid.NewString(),
		Path:               path,
		Title:              res.Title,
		Artist:             res.Artist,
		Type:               class.Type,
		Duration:           res.Duration,
		NeedsReencode:      res.Estimated || !strings.EqualFold(res.Codec, "mp3"),
		RecommendedBitrate: res.Bitrate,
	}

	switch class.Type {
	case models.TypeMusic:
		c.music = append(c.music, item)
	case models.TypeJingle:
		c.jingles = append(c.jingles, item)
	case models.TypeAd:
		c.ads = append(c.ads, item)
	case models.TypeStationID:
		c.stationID = append(c.stationID, item)
	case models.TypeDJIntro:
		c.djIntros = append(c.djIntros, item)
	case models.TypeDJOutro:
		c.djOutros = append(c.djOutros, item)
	case models.TypeDJSolo:
		c.djSolos = append(c.djSolos, item)
	case models.TypeTime:
		c.timeOfDay[class.TimeBucket] = append(c.timeOfDay[class.TimeBucket], item)
	case models.TypeWeather:
		c.weather[class.Weather] = append(c.weather[class.Weather], item)
	case models.TypeTransit:
		c.transitions[class.Transition] = append(c.transitions[class.Transition], item)
	}
}

// draw picks a uniform random element, or nil when the pool is empty. The
// same item may recur across draws; there is no replacement tracking.
func (c *Catalog) draw(pool []*models.AudioItem) *models.AudioItem {
	if len(pool) == 0 {
		return nil
	}
	c.mu.Lock()
	idx := c.rng.Intn(len(pool))
	c.mu.Unlock()

	// Copy so callers may assign start times without mutating the pool.
	copied := *pool[idx]
	return &copied
}

// RandomMusic draws from the music pool, or nil when empty.
func (c *Catalog) RandomMusic() *models.AudioItem { return c.draw(c.music) }

// RandomJingle draws from the jingle pool.
func (c *Catalog) RandomJingle() *models.AudioItem { return c.draw(c.jingles) }

// RandomAd draws from the ad pool.
func (c *Catalog) RandomAd() *models.AudioItem { return c.draw(c.ads) }

// RandomStationID draws from the station-id pool.
func (c *Catalog) RandomStationID() *models.AudioItem { return c.draw(c.stationID) }

// RandomDJIntro draws from the DJ intro pool.
func (c *Catalog) RandomDJIntro() *models.AudioItem { return c.draw(c.djIntros) }

// RandomDJOutro draws from the DJ outro pool.
func (c *Catalog) RandomDJOutro() *models.AudioItem { return c.draw(c.djOutros) }

// RandomDJSolo draws from the DJ solo pool.
func (c *Catalog) RandomDJSolo() *models.AudioItem { return c.draw(c.djSolos) }

// RandomTimeOfDay draws a time announcement for the bucket.
func (c *Catalog) RandomTimeOfDay(bucket models.TimeBucket) *models.AudioItem {
	return c.draw(c.timeOfDay[bucket])
}

// RandomWeather draws a weather announcement for the bucket.
func (c *Catalog) RandomWeather(bucket models.WeatherBucket) *models.AudioItem {
	return c.draw(c.weather[bucket])
}

// RandomTransition draws a DJ transition liner of the given kind.
func (c *Catalog) RandomTransition(kind models.TransitionKind) *models.AudioItem {
	return c.draw(c.transitions[kind])
}

// PoolSizes reports item counts per pool, used by the scan command.
func (c *Catalog) PoolSizes() map[string]int {
	sizes := map[string]int{
		"music":      len(c.music),
		"jingle":     len(c.jingles),
		"ad":         len(c.ads),
		"station_id": len(c.stationID),
		"dj_intro":   len(c.djIntros),
		"dj_outro":   len(c.djOutros),
		"dj_solo":    len(c.djSolos),
	}
	for bucket, pool := range c.timeOfDay {
		sizes["time_"+strings.ToLower(string(bucket))] = len(pool)
	}
	for bucket, pool := range c.weather {
		sizes["weather_"+strings.ToLower(string(bucket))] = len(pool)
	}
	for kind, pool := range c.transitions {
		sizes["transition_"+strings.ToLower(string(kind))] = len(pool)
	}
	return sizes
}

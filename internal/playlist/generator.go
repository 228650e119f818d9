/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playlist converts catalog draws into program entries: single
// items or gapless segments selected by weighted randomization with
// anti-repeat history.
package playlist

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_radio/internal/models"
)

// maxPickAttempts bounds the anti-repeat retry loop. When every attempt
// lands inside the history window the pick degrades to a filler item
// instead of recursing.
const maxPickAttempts = 8

// Library is the catalog contract the generator consumes. Every call is an
// independent random draw that returns nil when the pool is empty.
type Library interface {
	RandomMusic() *models.AudioItem
	RandomJingle() *models.AudioItem
	RandomAd() *models.AudioItem
	RandomStationID() *models.AudioItem
	RandomDJIntro() *models.AudioItem
	RandomDJOutro() *models.AudioItem
	RandomDJSolo() *models.AudioItem
	RandomTimeOfDay(models.TimeBucket) *models.AudioItem
	RandomWeather(models.WeatherBucket) *models.AudioItem
	RandomTransition(models.TransitionKind) *models.AudioItem
}

type contentKind int

const (
	kindStationID contentKind = iota
	kindJingle
	kindDJSolo
	kindMusicIntro
	kindMusicOutro
	kindMusicSolo
)

// contentWeights is the distribution drawn for each playlist position,
// except positions where a station ID is forced.
var contentWeights = []struct {
	kind   contentKind
	weight int
}{
	{kindMusicSolo, 35},
	{kindMusicIntro, 15},
	{kindMusicOutro, 15},
	{kindJingle, 15},
	{kindDJSolo, 12},
	{kindStationID, 8},
}

// Generator produces program entries from a content library.
type Generator struct {
	lib     Library
	history *History
	logger  zerolog.Logger

	mu             sync.Mutex
	rng            *rand.Rand
	untilStationID int
}

// New creates a generator with the given history capacity.
func New(lib Library, historySize int, logger zerolog.Logger) *Generator {
	g := &Generator{
		lib:     lib,
		history: NewHistory(historySize),
		logger:  logger.With().Str("component", "playlist").Logger(),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	g.untilStationID = g.stationIDPeriod()
	return g
}

// stationIDPeriod picks the randomized 5-7 position station-id interval.
func (g *Generator) stationIDPeriod() int {
	return 5 + g.rng.Intn(3)
}

// GeneratePlaylist produces n program entries. Each entry is a single
// item or a gapless segment; empty pools degrade to filler items so the
// result always holds n entries.
func (g *Generator) GeneratePlaylist(n int) []models.QueueEntry {
	entries := make([]models.QueueEntry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, g.nextEntry())
	}
	return entries
}

func (g *Generator) nextEntry() models.QueueEntry {
	g.mu.Lock()
	g.untilStationID--
	forced := g.untilStationID <= 0
	if forced {
		g.untilStationID = g.stationIDPeriod()
	}
	var kind contentKind
	if forced {
		kind = kindStationID
	} else {
		kind = g.drawKind()
	}
	g.mu.Unlock()

	switch kind {
	case kindStationID:
		return models.EntryFor(g.singleDraw(g.lib.RandomStationID, "Station ID"))
	case kindJingle:
		return models.EntryFor(g.singleDraw(g.lib.RandomJingle, "Jingle"))
	case kindDJSolo:
		return models.EntryFor(g.singleDraw(g.lib.RandomDJSolo, "DJ Break"))
	case kindMusicIntro:
		return g.musicWithIntro()
	case kindMusicOutro:
		return g.musicWithOutro()
	default:
		return models.EntryFor(g.pickMusic())
	}
}

func (g *Generator) drawKind() contentKind {
	total := 0
	for _, entry := range contentWeights {
		total += entry.weight
	}
	roll := g.rng.Intn(total)
	for _, entry := range contentWeights {
		roll -= entry.weight
		if roll < 0 {
			return entry.kind
		}
	}
	return kindMusicSolo
}

// pickMusic draws a music item that is not inside the anti-repeat window,
// retrying a bounded number of times before degrading to filler.
func (g *Generator) pickMusic() *models.AudioItem {
	for attempt := 0; attempt < maxPickAttempts; attempt++ {
		item := g.lib.RandomMusic()
		if item == nil {
			return models.NewFillerItem("Music")
		}
		if g.history.Contains(item.Title) {
			continue
		}
		g.history.Add(item.Title)
		return item
	}
	g.logger.Debug().Msg("anti-repeat retries exhausted, inserting filler")
	return models.NewFillerItem("Music")
}

func (g *Generator) singleDraw(draw func() *models.AudioItem, fillerTitle string) *models.AudioItem {
	if item := draw(); item != nil {
		return item
	}
	return models.NewFillerItem(fillerTitle)
}

func (g *Generator) musicWithIntro() models.QueueEntry {
	music := g.pickMusic()
	intro := g.lib.RandomDJIntro()
	if intro == nil {
		return models.EntryFor(music)
	}
	return models.EntryForSegment(models.NewSegment(time.Now(), intro, music))
}

func (g *Generator) musicWithOutro() models.QueueEntry {
	music := g.pickMusic()
	outro := g.lib.RandomDJOutro()
	if outro == nil {
		return models.EntryFor(music)
	}
	return models.EntryForSegment(models.NewSegment(time.Now(), music, outro))
}

// CreateWeatherSegment builds the hourly weather insert: an optional
// transition liner followed by an announcement for the mapped bucket.
func (g *Generator) CreateWeatherSegment(condition string) models.QueueEntry {
	bucket := BucketForCondition(condition)

	var members []*models.AudioItem
	if trans := g.lib.RandomTransition(models.ToWeather); trans != nil {
		members = append(members, trans)
	}
	if ann := g.lib.RandomWeather(bucket); ann != nil {
		members = append(members, ann)
	}

	return g.wrap(members, "Weather Update")
}

// CreateAdSegment builds an ad break: an optional transition liner
// followed by one or two ad spots.
func (g *Generator) CreateAdSegment() models.QueueEntry {
	var members []*models.AudioItem
	if trans := g.lib.RandomTransition(models.ToAd); trans != nil {
		members = append(members, trans)
	}

	g.mu.Lock()
	spots := 1 + g.rng.Intn(2)
	g.mu.Unlock()
	for i := 0; i < spots; i++ {
		if ad := g.lib.RandomAd(); ad != nil {
			members = append(members, ad)
		}
	}

	return g.wrap(members, "Advertisement")
}

// CreateTimeSegment builds a time-of-day announcement for the bucket.
func (g *Generator) CreateTimeSegment(bucket models.TimeBucket) models.QueueEntry {
	if ann := g.lib.RandomTimeOfDay(bucket); ann != nil {
		return models.EntryFor(ann)
	}
	return models.EntryFor(models.NewFillerItem("Time Check"))
}

// wrap packages members as a gapless segment (2+), a single item (1), or
// one filler item (0). Never empty, never an error.
func (g *Generator) wrap(members []*models.AudioItem, fillerTitle string) models.QueueEntry {
	switch len(members) {
	case 0:
		return models.EntryFor(models.NewFillerItem(fillerTitle))
	case 1:
		return models.EntryFor(members[0])
	default:
		return models.EntryForSegment(models.NewSegment(time.Now(), members...))
	}
}

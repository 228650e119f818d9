/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package models holds the broadcast domain types shared across the
// playlist generator, scheduler, and broadcast engine.
package models

import (
	"time"

	"github.com/google/uuid"
)

// ItemType classifies an audio item by program function.
type ItemType string

const (
	TypeMusic     ItemType = "music"
	TypeJingle    ItemType = "jingle"
	TypeAd        ItemType = "ad"
	TypeStationID ItemType = "station_id"
	TypeDJIntro   ItemType = "dj_intro"
	TypeDJOutro   ItemType = "dj_outro"
	TypeDJSolo    ItemType = "dj_solo"
	TypeTime      ItemType = "dj_time"
	TypeWeather   ItemType = "dj_weather"
	TypeTransit   ItemType = "dj_transition"
	TypeFiller    ItemType = "filler"
)

// WeatherBucket is one of the five canonical announcement conditions.
type WeatherBucket string

const (
	WeatherSun    WeatherBucket = "SUN"
	WeatherWind   WeatherBucket = "WIND"
	WeatherRain   WeatherBucket = "RAIN"
	WeatherFog    WeatherBucket = "FOG"
	WeatherCloudy WeatherBucket = "CLOUDY"
)

// TimeBucket identifies a time-of-day announcement slot.
type TimeBucket string

const (
	TimeMorning   TimeBucket = "MORNING"
	TimeAfternoon TimeBucket = "AFTERNOON"
	TimeEvening   TimeBucket = "EVENING"
	TimeNight     TimeBucket = "NIGHT"
)

// BucketForHour maps a local hour to its time-of-day bucket.
func BucketForHour(hour int) TimeBucket {
	switch {
	case hour >= 6 && hour < 12:
		return TimeMorning
	case hour >= 12 && hour < 18:
		return TimeAfternoon
	case hour >= 18 && hour < 22:
		return TimeEvening
	default:
		return TimeNight
	}
}

// TransitionKind selects a DJ transition liner.
type TransitionKind string

const (
	ToWeather TransitionKind = "TO_WEATHER"
	ToAd      TransitionKind = "TO_AD"
	ToTime    TransitionKind = "TO_TIME"
)

// FillerDuration is the fixed duration assigned to synthetic filler items.
const FillerDuration = 5 * time.Second

// AudioItem is the atomic playable unit. Path is empty for synthetic
// filler. Duration and metadata are immutable once resolved; StartTime is
// assigned when the item is scheduled.
type AudioItem struct {
	ID        string
	Path      string
	Title     string
	Artist    string
	Type      ItemType
	Duration  time.Duration
	StartTime time.Time

	// Gapless boundary flags within a segment.
	GaplessStart bool
	GaplessEnd   bool

	// Streaming hints from the prober.
	NeedsReencode      bool
	RecommendedBitrate int
}

// Synthetic reports whether the item is a generated placeholder with no
// backing file.
func (a *AudioItem) Synthetic() bool {
	return a.Path == ""
}

// NewFillerItem creates a synthetic placeholder used when a pool draw
// comes up empty. It carries the fixed filler duration and no path.
func NewFillerItem(title string) *AudioItem {
	return &AudioItem{
		ID:       uuid.NewString(),
		Title:    title,
		Artist:   "Skald Radio",
		Type:     TypeFiller,
		Duration: FillerDuration,
	}
}

// Segment is an ordered run of items meant to play with zero gap. Member
// start times are contiguous: each member starts exactly where the
// previous one ends.
type Segment struct {
	Items []*AudioItem
}

// NewSegment builds a segment from items, assigning contiguous start
// times from base and setting the gapless boundary flags.
func NewSegment(base time.Time, items ...*AudioItem) *Segment {
	cursor := base
	for i, item := range items {
		item.StartTime = cursor
		item.GaplessStart = i == 0
		item.GaplessEnd = i == len(items)-1
		cursor = cursor.Add(item.Duration)
	}
	return &Segment{Items: items}
}

// Duration is the sum of all member durations.
func (s *Segment) Duration() time.Duration {
	var total time.Duration
	for _, item := range s.Items {
		total += item.Duration
	}
	return total
}

// Rebase shifts all member start times so the first member starts at t,
// preserving contiguity.
func (s *Segment) Rebase(t time.Time) {
	cursor := t
	for _, item := range s.Items {
		item.StartTime = cursor
		cursor = cursor.Add(item.Duration)
	}
}

// QueueEntry is one program queue slot: a single item or a gapless
// segment of two or more items.
type QueueEntry struct {
	Items []*AudioItem
}

// EntryFor wraps a single item as a queue entry.
func EntryFor(item *AudioItem) QueueEntry {
	return QueueEntry{Items: []*AudioItem{item}}
}

// EntryForSegment wraps a segment as a queue entry.
func EntryForSegment(seg *Segment) QueueEntry {
	return QueueEntry{Items: seg.Items}
}

// IsSegment reports whether the entry holds a multi-item gapless run.
func (e QueueEntry) IsSegment() bool {
	return len(e.Items) > 1
}

// First returns the leading item, or nil for a malformed empty entry.
func (e QueueEntry) First() *AudioItem {
	if len(e.Items) == 0 {
		return nil
	}
	return e.Items[0]
}

// Duration is the total play time of the entry.
func (e QueueEntry) Duration() time.Duration {
	var total time.Duration
	for _, item := range e.Items {
		total += item.Duration
	}
	return total
}

// NowPlaying is the read-only current-track projection served to the
// transport layer.
type NowPlaying struct {
	Title      string    `json:"title"`
	Artist     string    `json:"artist"`
	Type       ItemType  `json:"type"`
	StartTime  time.Time `json:"start_time"`
	DurationMS int64     `json:"duration_ms"`
}

// UpcomingEntry is one row of the "upcoming" projection. Segments are
// represented by their first member.
type UpcomingEntry struct {
	Title      string   `json:"title"`
	Artist     string   `json:"artist"`
	Type       ItemType `json:"type"`
	DurationMS int64    `json:"duration_ms"`
}

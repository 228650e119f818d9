/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package scheduler owns the program queue. A single loop pops entries on
// duration timers and hands them to the broadcast engine; external trigger
// tickers inject weather, time, and ad segments at the front of the queue.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_radio/internal/events"
	"github.com/friendsincode/skald_radio/internal/models"
	"github.com/friendsincode/skald_radio/internal/telemetry"
)

// State is the scheduler lifecycle phase. Stopped is terminal.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateStopped State = "stopped"
)

// upcomingCount is how many queue entries the upcoming projection exposes.
const upcomingCount = 5

// Broadcaster is the engine contract the scheduler drives.
type Broadcaster interface {
	SupportsGapless() bool
	PlayItem(ctx context.Context, item *models.AudioItem)
	PlaySegment(ctx context.Context, items []*models.AudioItem)
	Stop()
}

// Program is the generator contract that feeds the queue.
type Program interface {
	GeneratePlaylist(n int) []models.QueueEntry
	CreateWeatherSegment(condition string) models.QueueEntry
	CreateAdSegment() models.QueueEntry
	CreateTimeSegment(bucket models.TimeBucket) models.QueueEntry
}

// ConditionSource supplies the current weather condition string. An empty
// string is acceptable and maps to the default bucket downstream.
type ConditionSource interface {
	Condition(ctx context.Context) string
}

// Options tune the queue and trigger cadences.
type Options struct {
	InitialBatchSize int
	RefillBatchSize  int
	WeatherInterval  time.Duration
	AdInterval       time.Duration
	TimeHours        []int
}

// Scheduler advances the program queue and exposes the now-playing and
// upcoming projections.
type Scheduler struct {
	gen     Program
	engine  Broadcaster
	weather ConditionSource
	bus     *events.Bus
	metrics *telemetry.Metrics
	logger  zerolog.Logger
	opts    Options

	mu      sync.Mutex
	state   State
	queue   []models.QueueEntry
	current *models.AudioItem
	started time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds an idle scheduler.
func New(gen Program, engine Broadcaster, weather ConditionSource, bus *events.Bus, metrics *telemetry.Metrics, opts Options, logger zerolog.Logger) *Scheduler {
	if opts.InitialBatchSize <= 0 {
		opts.InitialBatchSize = 10
	}
	if opts.RefillBatchSize <= 0 {
		opts.RefillBatchSize = 5
	}
	return &Scheduler{
		gen:     gen,
		engine:  engine,
		weather: weather,
		bus:     bus,
		metrics: metrics,
		logger:  logger.With().Str("component", "scheduler").Logger(),
		opts:    opts,
		state:   StateIdle,
	}
}

// State returns the current lifecycle phase.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start transitions Idle to Running, seeds the queue with the initial
// batch, and launches the advance loop and trigger tickers. A stopped
// scheduler cannot be restarted.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("scheduler cannot start from state %q", state)
	}
	s.state = StateRunning
	s.queue = s.gen.GeneratePlaylist(s.opts.InitialBatchSize)
	s.metrics.QueueLength.Set(float64(len(s.queue)))
	s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.publishState(StateRunning)
	s.logger.Info().Int("queued", s.opts.InitialBatchSize).Msg("scheduler started")

	s.wg.Add(1)
	go s.run(runCtx)

	if s.opts.WeatherInterval > 0 {
		s.wg.Add(1)
		go s.runIntervalTrigger(runCtx, "weather", s.opts.WeatherInterval, s.buildWeather)
	}
	if s.opts.AdInterval > 0 {
		s.wg.Add(1)
		go s.runIntervalTrigger(runCtx, "ad", s.opts.AdInterval, func(context.Context) models.QueueEntry {
			return s.gen.CreateAdSegment()
		})
	}
	if len(s.opts.TimeHours) > 0 {
		s.wg.Add(1)
		go s.runTimeTrigger(runCtx)
	}
	return nil
}

// Stop transitions to the terminal state, kills the active pipeline, and
// disconnects every listener. In-flight audio is not drained.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	s.state = StateStopped
	s.queue = nil
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.engine.Stop()
	s.metrics.QueueLength.Set(0)
	s.publishState(StateStopped)
	s.logger.Info().Msg("scheduler stopped")
}

// run is the advance loop. It is the only goroutine that pops the queue.
func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			wait := s.advance(ctx)
			if wait <= 0 {
				wait = time.Second
			}
			timer.Reset(wait)
		}
	}
}

// advance pops the front entry, starts it on the engine, and returns how
// long to wait before the next advance. Gapless-capable engines take a
// whole segment in one call and the wait is the sum of member durations;
// otherwise playback degrades to one member at a time with the remainder
// re-queued at the front.
func (s *Scheduler) advance(ctx context.Context) time.Duration {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return time.Second
	}
	if len(s.queue) == 0 {
		batch := s.gen.GeneratePlaylist(s.opts.RefillBatchSize)
		s.queue = append(s.queue, batch...)
		s.bus.Publish(events.EventQueueRefill, events.Payload{"count": len(batch)})
		s.logger.Debug().Int("count", len(batch)).Msg("queue refilled")
	}
	entry := s.queue[0]
	s.queue = s.queue[1:]
	s.metrics.QueueLength.Set(float64(len(s.queue)))
	s.mu.Unlock()

	first := entry.First()
	if first == nil {
		return time.Second
	}

	var wait time.Duration
	switch {
	case entry.IsSegment() && s.engine.SupportsGapless():
		seg := models.Segment{Items: entry.Items}
		seg.Rebase(time.Now())
		s.engine.PlaySegment(ctx, entry.Items)
		wait = seg.Duration()
	case entry.IsSegment():
		first.StartTime = time.Now()
		s.engine.PlayItem(ctx, first)
		s.pushFrontEntry(models.QueueEntry{Items: entry.Items[1:]})
		wait = first.Duration
	default:
		first.StartTime = time.Now()
		s.engine.PlayItem(ctx, first)
		wait = first.Duration
	}

	s.mu.Lock()
	s.current = first
	s.started = first.StartTime
	s.mu.Unlock()

	s.logger.Info().
		Str("title", first.Title).
		Str("type", string(first.Type)).
		Dur("wait", wait).
		Msg("advanced program")
	return wait
}

// PushFront inserts an entry at the head of the queue so it plays on the
// next advance, before previously queued content.
func (s *Scheduler) PushFront(entry models.QueueEntry) {
	if entry.First() == nil {
		return
	}
	s.pushFrontEntry(entry)
}

func (s *Scheduler) pushFrontEntry(entry models.QueueEntry) {
	if len(entry.Items) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped {
		return
	}
	s.queue = append([]models.QueueEntry{entry}, s.queue...)
	s.metrics.QueueLength.Set(float64(len(s.queue)))
}

// QueueLength reports the number of queued entries.
func (s *Scheduler) QueueLength() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// NowPlaying returns the current-track projection. Before anything has
// played it reports an unknown music item starting now.
func (s *Scheduler) NowPlaying() models.NowPlaying {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return models.NowPlaying{
			Title:     "Unknown",
			Artist:    "Unknown",
			Type:      models.TypeMusic,
			StartTime: time.Now(),
		}
	}
	return models.NowPlaying{
		Title:      s.current.Title,
		Artist:     s.current.Artist,
		Type:       s.current.Type,
		StartTime:  s.started,
		DurationMS: s.current.Duration.Milliseconds(),
	}
}

// Upcoming returns up to five queued entries; segments are represented by
// their first member.
func (s *Scheduler) Upcoming() []models.UpcomingEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.queue)
	if n > upcomingCount {
		n = upcomingCount
	}
	out := make([]models.UpcomingEntry, 0, n)
	for _, entry := range s.queue[:n] {
		first := entry.First()
		if first == nil {
			continue
		}
		out = append(out, models.UpcomingEntry{
			Title:      first.Title,
			Artist:     first.Artist,
			Type:       first.Type,
			DurationMS: entry.Duration().Milliseconds(),
		})
	}
	return out
}

// runIntervalTrigger fires build on a fixed cadence and injects the result
// at the front of the queue.
func (s *Scheduler) runIntervalTrigger(ctx context.Context, kind string, interval time.Duration, build func(context.Context) models.QueueEntry) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fireTrigger(ctx, kind, build)
		}
	}
}

// runTimeTrigger sleeps until the next configured announcement hour, then
// injects a time-of-day segment for the bucket of that hour.
func (s *Scheduler) runTimeTrigger(ctx context.Context) {
	defer s.wg.Done()

	for {
		next := nextAnnouncement(time.Now(), s.opts.TimeHours)
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		s.fireTrigger(ctx, "time", func(context.Context) models.QueueEntry {
			return s.gen.CreateTimeSegment(models.BucketForHour(time.Now().Hour()))
		})
	}
}

func (s *Scheduler) fireTrigger(ctx context.Context, kind string, build func(context.Context) models.QueueEntry) {
	entry := build(ctx)
	s.PushFront(entry)
	s.metrics.TriggersFired.WithLabelValues(kind).Inc()
	s.bus.Publish(events.EventTriggerFired, events.Payload{"kind": kind})
	s.logger.Info().Str("kind", kind).Msg("trigger fired")
}

func (s *Scheduler) buildWeather(ctx context.Context) models.QueueEntry {
	condition := ""
	if s.weather != nil {
		condition = s.weather.Condition(ctx)
	}
	return s.gen.CreateWeatherSegment(condition)
}

func (s *Scheduler) publishState(state State) {
	s.bus.Publish(events.EventSchedulerState, events.Payload{"state": string(state)})
}

// nextAnnouncement returns the earliest configured hour boundary strictly
// after now, rolling to the next day when all of today's slots have passed.
func nextAnnouncement(now time.Time, hours []int) time.Time {
	var best time.Time
	for _, h := range hours {
		candidate := time.Date(now.Year(), now.Month(), now.Day(), h, 0, 0, 0, now.Location())
		if !candidate.After(now) {
			candidate = candidate.Add(24 * time.Hour)
		}
		if best.IsZero() || candidate.Before(best) {
			best = candidate
		}
	}
	if best.IsZero() {
		return now.Add(time.Hour)
	}
	return best
}

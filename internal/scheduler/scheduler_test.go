/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_radio/internal/events"
	"github.com/friendsincode/skald_radio/internal/models"
	"github.com/friendsincode/skald_radio/internal/telemetry"
)

type fakeEngine struct {
	mu       sync.Mutex
	gapless  bool
	items    []*models.AudioItem
	segments [][]*models.AudioItem
	stopped  bool
}

func (f *fakeEngine) SupportsGapless() bool { return f.gapless }

func (f *fakeEngine) PlayItem(_ context.Context, item *models.AudioItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, item)
}

func (f *fakeEngine) PlaySegment(_ context.Context, items []*models.AudioItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.segments = append(f.segments, items)
}

func (f *fakeEngine) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

type fakeProgram struct {
	mu      sync.Mutex
	refills []int
}

func track(title string, d time.Duration) *models.AudioItem {
	return &models.AudioItem{ID: title, Path: "/lib/" + title + ".mp3", Title: title, Type: models.TypeMusic, Duration: d}
}

func (f *fakeProgram) GeneratePlaylist(n int) []models.QueueEntry {
	f.mu.Lock()
	f.refills = append(f.refills, n)
	f.mu.Unlock()
	out := make([]models.QueueEntry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.EntryFor(track("gen", 3*time.Minute)))
	}
	return out
}

func (f *fakeProgram) CreateWeatherSegment(condition string) models.QueueEntry {
	return models.EntryFor(&models.AudioItem{Title: "Weather " + condition, Type: models.TypeWeather, Duration: 20 * time.Second})
}

func (f *fakeProgram) CreateAdSegment() models.QueueEntry {
	return models.EntryFor(&models.AudioItem{Title: "Ad", Type: models.TypeAd, Duration: 30 * time.Second})
}

func (f *fakeProgram) CreateTimeSegment(bucket models.TimeBucket) models.QueueEntry {
	return models.EntryFor(&models.AudioItem{Title: "Time " + string(bucket), Type: models.TypeTime, Duration: 10 * time.Second})
}

func newTestScheduler(engine *fakeEngine) (*Scheduler, *fakeProgram) {
	gen := &fakeProgram{}
	s := New(gen, engine, nil, events.NewBus(), telemetry.New(), Options{
		InitialBatchSize: 3,
		RefillBatchSize:  2,
	}, zerolog.Nop())
	return s, gen
}

func TestLifecycleTransitions(t *testing.T) {
	engine := &fakeEngine{gapless: true}
	s, _ := newTestScheduler(engine)

	if s.State() != StateIdle {
		t.Fatalf("new scheduler state = %q, want idle", s.State())
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.State() != StateRunning {
		t.Fatalf("state after Start = %q, want running", s.State())
	}
	if err := s.Start(context.Background()); err == nil {
		t.Error("second Start should fail")
	}

	s.Stop()
	if s.State() != StateStopped {
		t.Fatalf("state after Stop = %q, want stopped", s.State())
	}
	if !engine.stopped {
		t.Error("Stop did not tear down the engine")
	}
	if err := s.Start(context.Background()); err == nil {
		t.Error("Start after Stop should fail, stopped is terminal")
	}
	// Stop again is a no-op.
	s.Stop()
}

func TestAdvanceGaplessSegment(t *testing.T) {
	engine := &fakeEngine{gapless: true}
	s, _ := newTestScheduler(engine)
	s.state = StateRunning

	a := track("a", 2*time.Minute)
	b := track("b", time.Minute)
	s.queue = []models.QueueEntry{{Items: []*models.AudioItem{a, b}}}

	wait := s.advance(context.Background())
	if wait != 3*time.Minute {
		t.Errorf("wait = %v, want sum of member durations 3m", wait)
	}
	if len(engine.segments) != 1 || len(engine.items) != 0 {
		t.Fatalf("gapless engine got %d segments, %d items; want 1 segment", len(engine.segments), len(engine.items))
	}
	if got := engine.segments[0][1].StartTime.Sub(engine.segments[0][0].StartTime); got != 2*time.Minute {
		t.Errorf("member start times not contiguous after rebase: gap %v", got)
	}

	np := s.NowPlaying()
	if np.Title != "a" || np.DurationMS != (2*time.Minute).Milliseconds() {
		t.Errorf("NowPlaying = %+v, want first member of segment", np)
	}
}

func TestAdvanceDegradesWithoutGapless(t *testing.T) {
	engine := &fakeEngine{gapless: false}
	s, _ := newTestScheduler(engine)
	s.state = StateRunning

	a := track("a", 2*time.Minute)
	b := track("b", time.Minute)
	s.queue = []models.QueueEntry{{Items: []*models.AudioItem{a, b}}}

	wait := s.advance(context.Background())
	if wait != 2*time.Minute {
		t.Errorf("wait = %v, want first member duration 2m", wait)
	}
	if len(engine.items) != 1 || engine.items[0].Title != "a" {
		t.Fatalf("engine items = %v, want single item a", engine.items)
	}
	if s.QueueLength() != 1 {
		t.Fatalf("QueueLength = %d, want remainder re-queued", s.QueueLength())
	}

	// Next advance plays the remainder, preserving order.
	wait = s.advance(context.Background())
	if wait != time.Minute {
		t.Errorf("wait = %v, want 1m", wait)
	}
	if len(engine.items) != 2 || engine.items[1].Title != "b" {
		t.Fatalf("segment order lost: %v", engine.items)
	}
}

func TestAdvanceRefillsEmptyQueue(t *testing.T) {
	engine := &fakeEngine{gapless: true}
	s, gen := newTestScheduler(engine)
	s.state = StateRunning

	s.advance(context.Background())

	gen.mu.Lock()
	defer gen.mu.Unlock()
	if len(gen.refills) != 1 || gen.refills[0] != 2 {
		t.Fatalf("refills = %v, want one refill with batch size 2", gen.refills)
	}
	if len(engine.items) != 1 {
		t.Fatalf("engine items = %d, want 1 from refilled queue", len(engine.items))
	}
}

func TestPushFrontPlaysNext(t *testing.T) {
	engine := &fakeEngine{gapless: true}
	s, _ := newTestScheduler(engine)
	s.state = StateRunning
	s.queue = []models.QueueEntry{models.EntryFor(track("queued", time.Minute))}

	s.PushFront(models.EntryFor(&models.AudioItem{Title: "Weather", Type: models.TypeWeather, Duration: 20 * time.Second}))

	s.advance(context.Background())
	if len(engine.items) != 1 || engine.items[0].Title != "Weather" {
		t.Fatalf("front-injected entry did not play first: %v", engine.items)
	}

	// Empty entries are ignored.
	s.PushFront(models.QueueEntry{})
	if s.QueueLength() != 1 {
		t.Errorf("QueueLength = %d after empty PushFront, want 1", s.QueueLength())
	}
}

func TestNowPlayingDefaults(t *testing.T) {
	engine := &fakeEngine{gapless: true}
	s, _ := newTestScheduler(engine)

	np := s.NowPlaying()
	if np.Title != "Unknown" || np.Artist != "Unknown" {
		t.Errorf("default NowPlaying = %+v, want Unknown/Unknown", np)
	}
	if np.Type != models.TypeMusic {
		t.Errorf("default type = %q, want music", np.Type)
	}
	if np.DurationMS != 0 {
		t.Errorf("default duration = %d, want 0", np.DurationMS)
	}
	if time.Since(np.StartTime) > time.Second {
		t.Error("default start time should be approximately now")
	}
}

func TestUpcomingFlattensSegments(t *testing.T) {
	engine := &fakeEngine{gapless: true}
	s, _ := newTestScheduler(engine)

	seg := []*models.AudioItem{track("intro", 10*time.Second), track("song", 3*time.Minute)}
	s.queue = []models.QueueEntry{
		{Items: seg},
		models.EntryFor(track("b", time.Minute)),
		models.EntryFor(track("c", time.Minute)),
		models.EntryFor(track("d", time.Minute)),
		models.EntryFor(track("e", time.Minute)),
		models.EntryFor(track("f", time.Minute)),
	}

	up := s.Upcoming()
	if len(up) != 5 {
		t.Fatalf("Upcoming returned %d entries, want 5", len(up))
	}
	if up[0].Title != "intro" {
		t.Errorf("segment not represented by first member: %q", up[0].Title)
	}
	if up[0].DurationMS != (3*time.Minute + 10*time.Second).Milliseconds() {
		t.Errorf("segment duration = %d, want total of members", up[0].DurationMS)
	}
}

func TestTriggerInjection(t *testing.T) {
	engine := &fakeEngine{gapless: true}
	s, _ := newTestScheduler(engine)
	s.state = StateRunning
	s.queue = []models.QueueEntry{models.EntryFor(track("queued", time.Minute))}

	s.fireTrigger(context.Background(), "weather", s.buildWeather)
	s.fireTrigger(context.Background(), "ad", func(context.Context) models.QueueEntry {
		return s.gen.CreateAdSegment()
	})

	if s.QueueLength() != 3 {
		t.Fatalf("QueueLength = %d, want 3", s.QueueLength())
	}
	// Last injected trigger plays first.
	s.advance(context.Background())
	if engine.items[0].Type != models.TypeAd {
		t.Errorf("front entry type = %q, want ad", engine.items[0].Type)
	}
}

func TestNextAnnouncement(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 8, 26, 13, 30, 0, 0, loc)
	hours := []int{0, 6, 12, 18}

	got := nextAnnouncement(now, hours)
	want := time.Date(2026, 8, 26, 18, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("nextAnnouncement = %v, want %v", got, want)
	}

	// Past the last slot, roll over to midnight.
	late := time.Date(2026, 8, 26, 22, 15, 0, 0, loc)
	got = nextAnnouncement(late, hours)
	want = time.Date(2026, 8, 27, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("nextAnnouncement = %v, want %v", got, want)
	}

	// Exactly on a slot moves to the next one, never fires twice.
	exact := time.Date(2026, 8, 26, 12, 0, 0, 0, loc)
	got = nextAnnouncement(exact, hours)
	want = time.Date(2026, 8, 26, 18, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("nextAnnouncement = %v, want %v", got, want)
	}
}

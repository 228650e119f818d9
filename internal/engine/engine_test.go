/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package engine

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_radio/internal/events"
	"github.com/friendsincode/skald_radio/internal/models"
	"github.com/friendsincode/skald_radio/internal/telemetry"
)

func newTestEngine() *Engine {
	// A binary that never exists forces the fallback tone path, which is
	// what these tests exercise.
	return New("ffmpeg-does-not-exist", 128, events.NewBus(), telemetry.New(), zerolog.Nop())
}

func drainAudio(l *Listener, window time.Duration) int {
	deadline := time.After(window)
	total := 0
	for {
		select {
		case chunk := <-l.Audio():
			total += len(chunk)
		case <-deadline:
			return total
		}
	}
}

func TestListenerAttachDetach(t *testing.T) {
	e := newTestEngine()

	a := e.AddListener()
	b := e.AddListener()
	if e.ListenerCount() != 2 {
		t.Fatalf("ListenerCount = %d, want 2", e.ListenerCount())
	}

	e.RemoveListener(a)
	if e.ListenerCount() != 1 {
		t.Fatalf("ListenerCount = %d, want 1", e.ListenerCount())
	}

	select {
	case <-a.Done():
	default:
		t.Error("removed listener not marked done")
	}

	// Removing twice must be harmless.
	e.RemoveListener(a)
	e.RemoveListener(b)
	if e.ListenerCount() != 0 {
		t.Fatalf("ListenerCount = %d, want 0", e.ListenerCount())
	}
}

func TestPlayItemFallsBackToTone(t *testing.T) {
	e := newTestEngine()
	l := e.AddListener()

	item := &models.AudioItem{
		ID:       "x",
		Path:     "/no/such/file.mp3",
		Title:    "Broken Track",
		Type:     models.TypeMusic,
		Duration: 2 * time.Second,
	}
	e.PlayItem(context.Background(), item)

	// One metadata record reflecting the new item.
	select {
	case record := <-l.Metadata():
		if record[0] == 0 {
			t.Error("empty metadata record")
		}
	case <-time.After(time.Second):
		t.Fatal("no metadata record after PlayItem")
	}

	// Fallback tone audio must flow despite the missing binary.
	if got := drainAudio(l, 700*time.Millisecond); got == 0 {
		t.Fatal("no fallback audio broadcast")
	}

	e.Stop()
}

func TestListenerAttachMidBroadcastGetsMetadata(t *testing.T) {
	e := newTestEngine()

	item := &models.AudioItem{
		ID:       "y",
		Title:    "Current",
		Artist:   "Someone",
		Type:     models.TypeMusic,
		Duration: 3 * time.Second,
	}
	// Synthetic item (no path) goes straight to the tone generator.
	e.PlayItem(context.Background(), item)
	time.Sleep(300 * time.Millisecond)

	l := e.AddListener()
	select {
	case record := <-l.Metadata():
		if len(record) == 0 {
			t.Error("empty metadata record on attach")
		}
	default:
		t.Fatal("listener attached mid-broadcast received no metadata record")
	}

	if got := drainAudio(l, 600*time.Millisecond); got == 0 {
		t.Fatal("listener attached mid-broadcast receives no audio")
	}

	e.Stop()
}

func TestStopDisconnectsListeners(t *testing.T) {
	e := newTestEngine()
	l := e.AddListener()
	e.Stop()

	select {
	case <-l.Done():
	default:
		t.Error("listener not closed by Stop")
	}
	if e.ListenerCount() != 0 {
		t.Errorf("ListenerCount = %d after Stop", e.ListenerCount())
	}
}

func TestWriteConcatListLifecycle(t *testing.T) {
	items := []*models.AudioItem{
		{Path: "/lib/a.mp3", Duration: time.Second},
		{Path: "/lib/b's song.mp3", Duration: time.Second},
	}

	path, err := writeConcatList(items)
	if err != nil {
		t.Fatalf("writeConcatList: %v", err)
	}
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read list: %v", err)
	}
	content := string(data)
	if content == "" {
		t.Fatal("empty concat list")
	}
	if !strings.Contains(content, "file '/lib/a.mp3'") {
		t.Errorf("list missing first entry:\n%s", content)
	}
	// Single quotes in paths are escaped for the concat demuxer.
	if strings.Contains(content, "b's song") {
		t.Errorf("unescaped quote in list:\n%s", content)
	}

	removeListFile(path)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("list file not removed")
	}
}

func TestRingBufferRecent(t *testing.T) {
	rb := newRingBuffer(8)
	rb.Write([]byte{1, 2, 3, 4})

	got := rb.Recent(16)
	if len(got) != 4 {
		t.Fatalf("Recent returned %d bytes, want 4 (only written data)", len(got))
	}

	rb.Write([]byte{5, 6, 7, 8, 9, 10})
	got = rb.Recent(4)
	want := []byte{7, 8, 9, 10}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Recent = %v, want %v", got, want)
		}
	}
}

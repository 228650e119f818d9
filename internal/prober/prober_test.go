/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package prober

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestProbeFallbackEstimation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Some Artist - Some Song.mp3")

	// 160000 bytes at the assumed 128 kbps (16000 B/s) is 10 seconds.
	if err := os.WriteFile(path, make([]byte, 160000), 0o644); err != nil {
		t.Fatal(err)
	}

	// Point at a binary that does not exist so the probe always fails.
	p := New("ffprobe-does-not-exist", 128, nil, zerolog.Nop())
	res := p.Probe(context.Background(), path)

	if !res.Estimated {
		t.Fatal("expected estimated result")
	}
	if res.Duration != 10*time.Second {
		t.Errorf("Duration = %v, want 10s", res.Duration)
	}
	if res.Title != "Some Song" || res.Artist != "Some Artist" {
		t.Errorf("tags = %q / %q, want Some Song / Some Artist", res.Title, res.Artist)
	}
}

func TestProbeFallbackMissingFile(t *testing.T) {
	p := New("ffprobe-does-not-exist", 128, nil, zerolog.Nop())
	res := p.Probe(context.Background(), "/no/such/file_name.mp3")

	if !res.Estimated {
		t.Fatal("expected estimated result")
	}
	if res.Duration != 0 {
		t.Errorf("Duration = %v, want 0 for unreadable file", res.Duration)
	}
	if res.Title != "file name" {
		t.Errorf("Title = %q, want filename-derived title", res.Title)
	}
}

func TestMetadataFromFilename(t *testing.T) {
	cases := []struct {
		path   string
		title  string
		artist string
	}{
		{"/lib/Queen - Bohemian Rhapsody.mp3", "Bohemian Rhapsody", "Queen"},
		{"/lib/jingle_station_morning.mp3", "jingle station morning", ""},
		{"/lib/Track.ogg", "Track", ""},
	}

	for _, tc := range cases {
		title, artist := metadataFromFilename(tc.path, "")
		if title != tc.title || artist != tc.artist {
			t.Errorf("%s: got %q/%q, want %q/%q", tc.path, title, artist, tc.title, tc.artist)
		}
	}
}

func TestStreamingInfoCapsBitrate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.mp3")
	if err := os.WriteFile(path, make([]byte, 16000), 0o644); err != nil {
		t.Fatal(err)
	}

	p := New("ffprobe-does-not-exist", 96, nil, zerolog.Nop())
	info := p.GetStreamingInfo(context.Background(), path)

	if info.RecommendedBitrate != 96 {
		t.Errorf("RecommendedBitrate = %d, want capped at 96", info.RecommendedBitrate)
	}
	if !info.NeedsReencoding {
		t.Error("estimated 128k source above 96k target should need reencoding")
	}
}

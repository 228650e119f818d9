/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_radio/internal/models"
	"github.com/friendsincode/skald_radio/internal/prober"
)

func TestClassifyTable(t *testing.T) {
	cases := []struct {
		path string
		want models.ItemType
	}{
		{"/lib/Artist - Song.mp3", models.TypeMusic},
		{"/lib/jingle_upbeat.mp3", models.TypeJingle},
		{"/lib/ad_soda.mp3", models.TypeAd},
		{"/lib/station_id_3.mp3", models.TypeStationID},
		{"/lib/dj_intro_fast.mp3", models.TypeDJIntro},
		{"/lib/dj_outro_slow.mp3", models.TypeDJOutro},
		{"/lib/dj_banter_04.mp3", models.TypeDJSolo},
		{"/lib/weather_rain_2.mp3", models.TypeWeather},
		{"/lib/time_morning_1.mp3", models.TypeTime},
		{"/lib/to_weather_1.mp3", models.TypeTransit},
		{"/lib/to_ad_1.mp3", models.TypeTransit},
	}

	for _, tc := range cases {
		got := Classify(defaultRules, tc.path)
		if got.Type != tc.want {
			t.Errorf("Classify(%s) = %s, want %s", tc.path, got.Type, tc.want)
		}
	}
}

func TestClassifyBuckets(t *testing.T) {
	got := Classify(defaultRules, "/lib/weather_fog_morning.mp3")
	if got.Weather != models.WeatherFog {
		t.Errorf("weather bucket = %s, want FOG", got.Weather)
	}

	got = Classify(defaultRules, "/lib/time_evening_2.mp3")
	if got.TimeBucket != models.TimeEvening {
		t.Errorf("time bucket = %s, want EVENING", got.TimeBucket)
	}

	got = Classify(defaultRules, "/lib/to_weather_smooth.mp3")
	if got.Transition != models.ToWeather {
		t.Errorf("transition = %s, want TO_WEATHER", got.Transition)
	}
}

func TestLoadRulesOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := "- match: [\"promo\"]\n  category: ad\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if got := Classify(rules, "/lib/promo_summer.mp3"); got.Type != models.TypeAd {
		t.Errorf("custom rule: got %s, want ad", got.Type)
	}
}

func TestBuildFillsPools(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"Queen - Radio Ga Ga.mp3",
		"Artist - Other Song.mp3",
		"jingle_short.mp3",
		"ad_coffee.mp3",
		"station_id_main.mp3",
		"notes.txt", // ignored, not audio
	}
	for _, name := range files {
		if err := os.WriteFile(filepath.Join(dir, name), make([]byte, 32000), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	// Missing ffprobe binary exercises the estimation fallback.
	p := prober.New("ffprobe-does-not-exist", 128, nil, zerolog.Nop())
	cat := New(zerolog.Nop())
	if err := cat.Build(context.Background(), dir, defaultRules, p); err != nil {
		t.Fatalf("Build: %v", err)
	}

	sizes := cat.PoolSizes()
	if sizes["music"] != 2 {
		t.Errorf("music pool = %d, want 2", sizes["music"])
	}
	if sizes["jingle"] != 1 || sizes["ad"] != 1 || sizes["station_id"] != 1 {
		t.Errorf("pools = %v", sizes)
	}

	if cat.RandomJingle() == nil {
		t.Error("RandomJingle returned nil for non-empty pool")
	}
	if cat.RandomDJSolo() != nil {
		t.Error("RandomDJSolo should be nil for empty pool")
	}

	music := cat.RandomMusic()
	if music == nil {
		t.Fatal("RandomMusic returned nil")
	}
	if music.Duration == 0 {
		t.Error("expected estimated duration from file size")
	}
}

func TestDrawReturnsCopies(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Solo - Track.mp3"), make([]byte, 16000), 0o644); err != nil {
		t.Fatal(err)
	}

	p := prober.New("ffprobe-does-not-exist", 128, nil, zerolog.Nop())
	cat := New(zerolog.Nop())
	if err := cat.Build(context.Background(), dir, defaultRules, p); err != nil {
		t.Fatal(err)
	}

	first := cat.RandomMusic()
	first.Title = "mutated"
	second := cat.RandomMusic()
	if second.Title == "mutated" {
		t.Error("draw must return copies, pool item was mutated")
	}
}

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/friendsincode/skald_radio/internal/models"
)

// Rule maps filename keywords to a pool category. Rules are evaluated in
// order; the first rule with a matching keyword wins.
type Rule struct {
	Match    []string `yaml:"match"`
	Category string   `yaml:"category"`
	Bucket   string   `yaml:"bucket,omitempty"`
}

// Class is a classification outcome.
type Class struct {
	Type       models.ItemType
	TimeBucket models.TimeBucket
	Weather    models.WeatherBucket
	Transition models.TransitionKind
}

// defaultRules is the built-in classification table. More specific
// keywords come first so e.g. "to_weather" is not swallowed by "weather".
var defaultRules = []Rule{
	{Match: []string{"to_weather"}, Category: "transition", Bucket: string(models.ToWeather)},
	{Match: []string{"to_ad", "to_advert"}, Category: "transition", Bucket: string(models.ToAd)},
	{Match: []string{"to_time"}, Category: "transition", Bucket: string(models.ToTime)},

	{Match: []string{"weather_sun", "weather_clear"}, Category: "weather", Bucket: string(models.WeatherSun)},
	{Match: []string{"weather_wind"}, Category: "weather", Bucket: string(models.WeatherWind)},
	{Match: []string{"weather_rain"}, Category: "weather", Bucket: string(models.WeatherRain)},
	{Match: []string{"weather_fog"}, Category: "weather", Bucket: string(models.WeatherFog)},
	{Match: []string{"weather_cloud", "weather"}, Category: "weather", Bucket: string(models.WeatherCloudy)},

	{Match: []string{"time_morning"}, Category: "time", Bucket: string(models.TimeMorning)},
	{Match: []string{"time_afternoon"}, Category: "time", Bucket: string(models.TimeAfternoon)},
	{Match: []string{"time_evening"}, Category: "time", Bucket: string(models.TimeEvening)},
	{Match: []string{"time_night"}, Category: "time", Bucket: string(models.TimeNight)},

	{Match: []string{"station_id", "stationid", "id_"}, Category: "station_id"},
	{Match: []string{"jingle"}, Category: "jingle"},
	{Match: []string{"advert", "ad_", "_ad"}, Category: "ad"},
	{Match: []string{"intro"}, Category: "dj_intro"},
	{Match: []string{"outro"}, Category: "dj_outro"},
	{Match: []string{"dj_", "dj-"}, Category: "dj_solo"},
}

// LoadRules reads a rule table from a YAML file, or returns the built-in
// table when path is empty.
func LoadRules(path string) ([]Rule, error) {
	if path == "" {
		return defaultRules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read classification map: %w", err)
	}

	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse classification map: %w", err)
	}
	if len(rules) == 0 {
		return defaultRules, nil
	}
	return rules, nil
}

// Classify assigns a pool category to a file path based on its base name.
// Anything unmatched is music.
func Classify(rules []Rule, path string) Class {
	name := strings.ToLower(filepath.Base(path))

	for _, rule := range rules {
		for _, keyword := range rule.Match {
			if !strings.Contains(name, keyword) {
				continue
			}
			return classFor(rule)
		}
	}

	return Class{Type: models.TypeMusic}
}

func classFor(rule Rule) Class {
	switch rule.Category {
	case "music":
		return Class{Type: models.TypeMusic}
	case "jingle":
		return Class{Type: models.TypeJingle}
	case "ad":
		return Class{Type: models.TypeAd}
	case "station_id":
		return Class{Type: models.TypeStationID}
	case "dj_intro":
		return Class{Type: models.TypeDJIntro}
	case "dj_outro":
		return Class{Type: models.TypeDJOutro}
	case "dj_solo":
		return Class{Type: models.TypeDJSolo}
	case "time":
		return Class{Type: models.TypeTime, TimeBucket: models.TimeBucket(rule.Bucket)}
	case "weather":
		return Class{Type: models.TypeWeather, Weather: models.WeatherBucket(rule.Bucket)}
	case "transition":
		return Class{Type: models.TypeTransit, Transition: models.TransitionKind(rule.Bucket)}
	default:
		return Class{Type: models.TypeMusic}
	}
}

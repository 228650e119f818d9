/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"strings"

	"github.com/friendsincode/skald_radio/internal/models"
)

// conditionKeywords maps condition substrings to announcement buckets.
// Evaluated in order; unmatched conditions fall through to CLOUDY.
var conditionKeywords = []struct {
	keywords []string
	bucket   models.WeatherBucket
}{
	{[]string{"sun", "clear"}, models.WeatherSun},
	{[]string{"wind"}, models.WeatherWind},
	{[]string{"rain", "shower"}, models.WeatherRain},
	{[]string{"fog", "mist"}, models.WeatherFog},
	{[]string{"cloud", "overcast"}, models.WeatherCloudy},
}

// BucketForCondition maps a free-form weather condition string to one of
// the five canonical announcement buckets.
func BucketForCondition(condition string) models.WeatherBucket {
	lower := strings.ToLower(condition)
	for _, entry := range conditionKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.bucket
			}
		}
	}
	return models.WeatherCloudy
}

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package engine

import (
	"encoding/binary"
	"math"
	"time"
)

// Fallback tone parameters. The payload is raw S16LE PCM so its content is
// fully deterministic and its play length is a pure function of size.
const (
	toneFrequency  = 440.0
	toneSampleRate = 44100
	toneChannels   = 1
	toneAmplitude  = 0.25
)

// toneBytesPerSecond is the PCM data rate of the fallback payload.
const toneBytesPerSecond = toneSampleRate * toneChannels * 2

// GenerateTone synthesizes a single-frequency sine wave of duration d.
// Content is deterministic: the same duration always yields the same bytes.
func GenerateTone(d time.Duration) []byte {
	if d <= 0 {
		d = time.Second
	}

	samples := int(d.Seconds() * toneSampleRate)
	buf := make([]byte, samples*toneChannels*2)

	step := 2 * math.Pi * toneFrequency / toneSampleRate
	for i := 0; i < samples; i++ {
		value := int16(toneAmplitude * math.Sin(step*float64(i)) * math.MaxInt16)
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(value))
	}
	return buf
}

// TonePlayLength reports the wall-clock play time of a tone payload.
func TonePlayLength(payload []byte) time.Duration {
	return time.Duration(float64(len(payload)) / toneBytesPerSecond * float64(time.Second))
}

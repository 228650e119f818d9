/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package prober resolves duration, tags, and streaming hints for library
// files via ffprobe, with deterministic fallbacks when probing fails.
package prober

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/skald_radio/internal/db"
)

// fallbackBitrateKbps is assumed when a file cannot be probed; duration is
// then estimated from file size alone.
const fallbackBitrateKbps = 128

const probeTimeout = 10 * time.Second

// Result is the resolved media information for one file.
type Result struct {
	Duration   time.Duration
	Title      string
	Artist     string
	Album      string
	Codec      string
	Bitrate    int // kbps
	SampleRate int
	Channels   int
	Estimated  bool // true when ffprobe failed and values were derived
}

// StreamingInfo carries transcoding hints for the broadcast engine.
type StreamingInfo struct {
	NeedsReencoding     bool
	RecommendedBitrate  int
	HasCompatibleFormat bool
}

// Prober runs ffprobe with an optional SQLite result cache.
type Prober struct {
	bin           string
	targetBitrate int
	cache         *gorm.DB
	logger        zerolog.Logger
}

// New creates a prober. cache may be nil to disable caching.
func New(bin string, targetBitrate int, cache *gorm.DB, logger zerolog.Logger) *Prober {
	if bin == "" {
		bin = "ffprobe"
	}
	if targetBitrate <= 0 {
		targetBitrate = fallbackBitrateKbps
	}
	return &Prober{
		bin:           bin,
		targetBitrate: targetBitrate,
		cache:         cache,
		logger:        logger.With().Str("component", "prober").Logger(),
	}
}

// Probe resolves media information for path. It never returns an error:
// probe failures degrade to a file-size duration estimate and
// filename-derived tags.
func (p *Prober) Probe(ctx context.Context, path string) Result {
	info, statErr := os.Stat(path)

	if p.cache != nil && statErr == nil {
		if cached, ok := p.lookupCache(path, info); ok {
			return cached
		}
	}

	res, err := p.runFFprobe(ctx, path)
	if err != nil {
		p.logger.Warn().Err(err).Str("file", path).Msg("probe failed, estimating from file size")
		res = p.estimate(path, info)
	}

	if p.cache != nil && statErr == nil && !res.Estimated {
		p.storeCache(path, info, res)
	}

	return res
}

// AnalyzeDuration returns the authoritative duration for path.
func (p *Prober) AnalyzeDuration(ctx context.Context, path string) time.Duration {
	return p.Probe(ctx, path).Duration
}

// AnalyzeMetadata returns the tag data for path.
func (p *Prober) AnalyzeMetadata(ctx context.Context, path string) Result {
	return p.Probe(ctx, path)
}

// GetStreamingInfo derives transcoding hints for path.
func (p *Prober) GetStreamingInfo(ctx context.Context, path string) StreamingInfo {
	res := p.Probe(ctx, path)

	compatible := strings.EqualFold(res.Codec, "mp3") && res.SampleRate == 44100
	recommended := res.Bitrate
	if recommended <= 0 || recommended > p.targetBitrate {
		recommended = p.targetBitrate
	}

	return StreamingInfo{
		NeedsReencoding:     !compatible || res.Bitrate > p.targetBitrate,
		RecommendedBitrate:  recommended,
		HasCompatibleFormat: compatible,
	}
}

// ffprobe -print_format json output shapes.
type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string            `json:"duration"`
	BitRate  string            `json:"bit_rate"`
	Tags     map[string]string `json:"tags"`
}

type ffprobeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

func (p *Prober) runFFprobe(ctx context.Context, path string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.bin,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return Result{}, err
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(output, &parsed); err != nil {
		return Result{}, err
	}

	res := Result{}
	if secs, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil {
		res.Duration = time.Duration(secs * float64(time.Second))
	}
	if bps, err := strconv.Atoi(parsed.Format.BitRate); err == nil {
		res.Bitrate = bps / 1000
	}

	tags := lowerKeys(parsed.Format.Tags)
	res.Title = tags["title"]
	res.Artist = tags["artist"]
	res.Album = tags["album"]

	for _, stream := range parsed.Streams {
		if stream.CodecType != "audio" {
			continue
		}
		res.Codec = stream.CodecName
		res.Channels = stream.Channels
		if rate, err := strconv.Atoi(stream.SampleRate); err == nil {
			res.SampleRate = rate
		}
		break
	}

	if res.Title == "" {
		res.Title, res.Artist = metadataFromFilename(path, res.Artist)
	}

	return res, nil
}

// estimate derives deterministic fallback values from the file size and name.
func (p *Prober) estimate(path string, info os.FileInfo) Result {
	res := Result{
		Bitrate:    fallbackBitrateKbps,
		SampleRate: 44100,
		Channels:   2,
		Estimated:  true,
	}
	if info != nil {
		bytesPerSecond := fallbackBitrateKbps * 1000 / 8
		res.Duration = time.Duration(info.Size()/int64(bytesPerSecond)) * time.Second
	}
	res.Title, res.Artist = metadataFromFilename(path, "")
	return res
}

// metadataFromFilename derives "Artist - Title" style tags from the base name.
func metadataFromFilename(path, artist string) (string, string) {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ReplaceAll(base, "_", " ")

	if parts := strings.SplitN(base, " - ", 2); len(parts) == 2 {
		return strings.TrimSpace(parts[1]), strings.TrimSpace(parts[0])
	}
	return strings.TrimSpace(base), artist
}

func (p *Prober) lookupCache(path string, info os.FileInfo) (Result, bool) {
	var rec db.ProbeRecord
	err := p.cache.First(&rec, "path = ?", path).Error
	if err != nil {
		return Result{}, false
	}
	if rec.Size != info.Size() || !rec.ModTime.Equal(info.ModTime()) {
		return Result{}, false
	}
	return Result{
		Duration:   time.Duration(rec.DurationMS) * time.Millisecond,
		Title:      rec.Title,
		Artist:     rec.Artist,
		Album:      rec.Album,
		Codec:      rec.Codec,
		Bitrate:    rec.Bitrate,
		SampleRate: rec.SampleRate,
		Channels:   rec.Channels,
	}, true
}

func (p *Prober) storeCache(path string, info os.FileInfo, res Result) {
	rec := db.ProbeRecord{
		Path:       path,
		Size:       info.Size(),
		ModTime:    info.ModTime(),
		DurationMS: res.Duration.Milliseconds(),
		Title:      res.Title,
		Artist:     res.Artist,
		Album:      res.Album,
		Codec:      res.Codec,
		Bitrate:    res.Bitrate,
		SampleRate: res.SampleRate,
		Channels:   res.Channels,
	}
	if err := p.cache.Save(&rec).Error; err != nil {
		p.logger.Debug().Err(err).Str("file", path).Msg("probe cache write failed")
	}
}

func lowerKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}

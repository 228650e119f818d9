/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package engine owns the single active transcoding pipeline and fans its
// output to every attached listener, with gapless segment joins, ICY
// metadata interleaving, and synthetic fallback audio on pipeline failure.
package engine

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_radio/internal/events"
	"github.com/friendsincode/skald_radio/internal/models"
	"github.com/friendsincode/skald_radio/internal/telemetry"
)

// ChunkSize is the broadcast granularity: pipeline output is read and
// fanned out in blocks of this size, and metadata records are interleaved
// at these boundaries.
const ChunkSize = 4096

// Engine is the broadcast core. Exactly one pipeline produces audio at a
// time; starting a new item or segment always tears down the previous
// pipeline first. Listener membership changes never restart the pipeline.
type Engine struct {
	bin     string
	bitrate int
	logger  zerolog.Logger
	bus     *events.Bus
	metrics *telemetry.Metrics

	mu        sync.RWMutex
	listeners map[*Listener]struct{}
	buffer    *ringBuffer
	current   *models.AudioItem
	proc      *pipelineProc
	session   uint64
}

// New creates a broadcast engine using the given ffmpeg binary and stream
// bitrate (kbps).
func New(bin string, bitrate int, bus *events.Bus, metrics *telemetry.Metrics, logger zerolog.Logger) *Engine {
	// Five seconds of audio at the stream bitrate for listener quick-start.
	bufferSize := (bitrate * 1000 / 8) * 5
	if bufferSize < 20000 {
		bufferSize = 20000
	}

	return &Engine{
		bin:       bin,
		bitrate:   bitrate,
		logger:    logger.With().Str("component", "engine").Logger(),
		bus:       bus,
		metrics:   metrics,
		listeners: make(map[*Listener]struct{}),
		buffer:    newRingBuffer(bufferSize),
	}
}

// SupportsGapless reports whether the engine can play a whole segment
// through one pipeline run.
func (e *Engine) SupportsGapless() bool { return true }

// AddListener registers a new output sink and attaches it to the flowing
// stream. The sink receives recent buffered audio for a fast start and,
// when a track is active, one metadata record.
func (e *Engine) AddListener() *Listener {
	l := newListener()

	e.mu.Lock()
	e.listeners[l] = struct{}{}
	count := len(e.listeners)
	current := e.current
	e.mu.Unlock()

	// Prime with up to two seconds of already-produced audio. Listeners
	// attaching mid-broadcast never receive bytes from before this point
	// beyond that primer.
	primeBytes := (e.bitrate * 1000 / 8) * 2
	if recent := e.buffer.Recent(primeBytes); len(recent) > 0 {
		l.audio <- recent
	}
	if current != nil {
		l.meta <- EncodeMetadata(current.Title, current.Artist)
	}

	e.metrics.Listeners.Set(float64(count))
	e.bus.Publish(events.EventListenerStats, events.Payload{
		"listeners": count,
		"event":     "connect",
	})
	e.logger.Info().Int("listeners", count).Str("listener", l.ID).Msg("listener attached")
	return l
}

// RemoveListener detaches a sink. The pipeline is unaffected.
func (e *Engine) RemoveListener(l *Listener) {
	e.mu.Lock()
	_, ok := e.listeners[l]
	delete(e.listeners, l)
	count := len(e.listeners)
	e.mu.Unlock()

	if !ok {
		return
	}
	l.close()

	e.metrics.Listeners.Set(float64(count))
	e.bus.Publish(events.EventListenerStats, events.Payload{
		"listeners": count,
		"event":     "disconnect",
	})
	e.logger.Info().Int("listeners", count).Str("listener", l.ID).Msg("listener detached")
}

// ListenerCount returns the number of attached sinks.
func (e *Engine) ListenerCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners)
}

// PlayItem tears down any running pipeline and starts one over the item.
// Failures degrade to fallback audio; the broadcast never goes silent.
func (e *Engine) PlayItem(ctx context.Context, item *models.AudioItem) {
	e.play(ctx, []*models.AudioItem{item})
}

// PlaySegment plays all members through a single pipeline run so the
// joins are gapless. Metadata reflects the first member.
func (e *Engine) PlaySegment(ctx context.Context, items []*models.AudioItem) {
	if len(items) == 0 {
		return
	}
	e.play(ctx, items)
}

// Stop kills the active pipeline and disconnects every listener.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.session++
	if e.proc != nil {
		e.proc.kill()
		e.proc = nil
	}
	e.current = nil
	for l := range e.listeners {
		l.close()
	}
	e.listeners = make(map[*Listener]struct{})
	e.mu.Unlock()

	e.buffer.Clear()
	e.metrics.Listeners.Set(0)
	e.logger.Info().Msg("broadcast engine stopped")
}

func (e *Engine) play(ctx context.Context, items []*models.AudioItem) {
	e.mu.Lock()
	e.session++
	session := e.session
	if e.proc != nil {
		e.proc.kill()
		e.proc = nil
	}
	first := items[0]
	e.current = first
	e.mu.Unlock()

	e.broadcastMetadata(EncodeMetadata(first.Title, first.Artist))
	e.metrics.TracksStarted.WithLabelValues(string(first.Type)).Inc()
	e.bus.Publish(events.EventNowPlaying, events.Payload{
		"title":       first.Title,
		"artist":      first.Artist,
		"type":        string(first.Type),
		"duration_ms": totalDuration(items).Milliseconds(),
		"members":     len(items),
	})

	real := nonSynthetic(items)
	if len(real) == 0 {
		go e.playFallback(ctx, session, totalDuration(items))
		return
	}

	proc, err := startPipeline(ctx, e.bin, e.bitrate, real, e.logger)
	if err != nil {
		e.logger.Error().Err(err).Str("title", first.Title).Msg("pipeline spawn failed, falling back to tone")
		e.metrics.PipelineFailures.Inc()
		e.bus.Publish(events.EventPipelineFailed, events.Payload{"title": first.Title, "stage": "spawn"})
		go e.playFallback(ctx, session, totalDuration(items))
		return
	}

	e.mu.Lock()
	if session != e.session {
		// A newer play superseded us while spawning.
		e.mu.Unlock()
		proc.kill()
		go func() { _ = proc.wait() }()
		return
	}
	e.proc = proc
	e.mu.Unlock()

	go e.feed(ctx, session, proc, totalDuration(items))
}

// feed pumps pipeline output to the listeners until the process exits.
// A runtime failure on the current session degrades to fallback audio.
func (e *Engine) feed(ctx context.Context, session uint64, proc *pipelineProc, duration time.Duration) {
	buf := make([]byte, ChunkSize)
	for {
		n, err := proc.stdout.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			e.broadcast(chunk)
		}
		if err != nil {
			waitErr := proc.wait()
			if err != io.EOF {
				e.logger.Debug().Err(err).Msg("pipeline read ended")
			}
			if waitErr != nil && e.isCurrentSession(session) && ctx.Err() == nil {
				e.logger.Error().
					Err(waitErr).
					Str("stderr", proc.stderrOutput()).
					Msg("pipeline exited with error, falling back to tone")
				e.metrics.PipelineFailures.Inc()
				e.bus.Publish(events.EventPipelineFailed, events.Payload{"stage": "runtime"})
				e.playFallback(ctx, session, duration)
			}
			return
		}
	}
}

// playFallback synthesizes a deterministic single-tone payload and paces
// it out in real time so the broadcast never goes silent.
func (e *Engine) playFallback(ctx context.Context, session uint64, duration time.Duration) {
	if duration <= 0 {
		duration = models.FillerDuration
	}
	payload := GenerateTone(duration)

	chunk := toneBytesPerSecond / 4
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for offset := 0; offset < len(payload); offset += chunk {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !e.isCurrentSession(session) {
			return
		}
		end := offset + chunk
		if end > len(payload) {
			end = len(payload)
		}
		e.broadcast(payload[offset:end])
	}
}

// broadcast fans one audio chunk to every listener. Sends never block: a
// sink whose buffer is full skips the chunk, and detached sinks are
// dropped lazily on the next write attempt.
func (e *Engine) broadcast(data []byte) {
	if len(data) == 0 {
		return
	}
	e.buffer.Write(data)
	e.metrics.BytesBroadcast.Add(float64(len(data)))

	var dead []*Listener
	e.mu.RLock()
	for l := range e.listeners {
		select {
		case <-l.done:
			dead = append(dead, l)
		case l.audio <- data:
		default:
			// Listener is slow; skip this chunk rather than stall the rest.
		}
	}
	e.mu.RUnlock()

	for _, l := range dead {
		e.RemoveListener(l)
	}
}

func (e *Engine) broadcastMetadata(record []byte) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for l := range e.listeners {
		select {
		case l.meta <- record:
		default:
		}
	}
}

func (e *Engine) isCurrentSession(session uint64) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return session == e.session
}

func nonSynthetic(items []*models.AudioItem) []*models.AudioItem {
	out := make([]*models.AudioItem, 0, len(items))
	for _, item := range items {
		if !item.Synthetic() {
			out = append(out, item)
		}
	}
	return out
}

func totalDuration(items []*models.AudioItem) time.Duration {
	var total time.Duration
	for _, item := range items {
		total += item.Duration
	}
	return total
}

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server exposes the station over HTTP: the listener stream, the
// now-playing and upcoming projections, health, and metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_radio/internal/config"
	"github.com/friendsincode/skald_radio/internal/engine"
	"github.com/friendsincode/skald_radio/internal/models"
	"github.com/friendsincode/skald_radio/internal/scheduler"
	"github.com/friendsincode/skald_radio/internal/telemetry"
	"github.com/friendsincode/skald_radio/internal/version"
)

// Station is the scheduler surface the HTTP layer reads.
type Station interface {
	NowPlaying() models.NowPlaying
	Upcoming() []models.UpcomingEntry
	QueueLength() int
	State() scheduler.State
}

// Broadcast is the engine surface the stream handler consumes.
type Broadcast interface {
	AddListener() *engine.Listener
	RemoveListener(*engine.Listener)
	ListenerCount() int
}

// Server serves the listener stream and the station API.
type Server struct {
	cfg        *config.Config
	station    Station
	broadcast  Broadcast
	metrics    *telemetry.Metrics
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	startedAt  time.Time
}

// New constructs the HTTP server and wires its routes.
func New(cfg *config.Config, station Station, broadcast Broadcast, metrics *telemetry.Metrics, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		station:   station,
		broadcast: broadcast,
		metrics:   metrics,
		logger:    logger.With().Str("component", "server").Logger(),
		startedAt: time.Now(),
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	// The stream route holds the connection open for the session lifetime,
	// so the timeout applies to API routes only.
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(60 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/stream" {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	router.Get("/stream", s.handleStream)
	router.Get("/api/nowplaying", s.handleNowPlaying)
	router.Get("/api/upcoming", s.handleUpcoming)
	router.Get("/api/status", s.handleStatus)
	router.Get("/healthz", s.handleHealth)
	router.Handle("/metrics", metrics.Handler())

	s.router = router
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		// WriteTimeout stays 0 so the audio stream is never cut mid-session.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the route tree, used directly in tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start runs the HTTP listener until it fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleStream attaches the client as a broadcast listener and relays
// audio until the client disconnects. Clients sending "Icy-MetaData: 1"
// receive metadata records interleaved at chunk boundaries on track
// changes.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	wantMeta := r.Header.Get("Icy-MetaData") == "1"

	listener := s.broadcast.AddListener()
	defer s.broadcast.RemoveListener(listener)

	h := w.Header()
	h.Set("Content-Type", "audio/mpeg")
	h.Set("Cache-Control", "no-cache, no-store")
	h.Set("Connection", "close")
	h.Set("icy-name", s.cfg.StationName)
	h.Set("icy-br", strconv.Itoa(s.cfg.Bitrate))
	if wantMeta {
		h.Set("icy-metaint", strconv.Itoa(engine.ChunkSize))
	}
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.logger.Info().
		Str("remote", r.RemoteAddr).
		Bool("metadata", wantMeta).
		Msg("listener connected")

	var pending []byte
	for {
		select {
		case <-r.Context().Done():
			s.logger.Info().Str("remote", r.RemoteAddr).Msg("listener disconnected")
			return
		case <-listener.Done():
			return
		case record := <-listener.Metadata():
			if wantMeta {
				pending = record
			}
		case chunk := <-listener.Audio():
			if _, err := w.Write(chunk); err != nil {
				return
			}
			if pending != nil {
				if _, err := w.Write(pending); err != nil {
					return
				}
				pending = nil
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleNowPlaying(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.station.NowPlaying())
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	up := s.station.Upcoming()
	if up == nil {
		up = []models.UpcomingEntry{}
	}
	s.writeJSON(w, up)
}

type statusResponse struct {
	Station     string            `json:"station"`
	Version     string            `json:"version"`
	State       string            `json:"state"`
	Listeners   int               `json:"listeners"`
	QueueLength int               `json:"queue_length"`
	UptimeSec   int64             `json:"uptime_seconds"`
	NowPlaying  models.NowPlaying `json:"now_playing"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, statusResponse{
		Station:     s.cfg.StationName,
		Version:     version.Version,
		State:       string(s.station.State()),
		Listeners:   s.broadcast.ListenerCount(),
		QueueLength: s.station.QueueLength(),
		UptimeSec:   int64(time.Since(s.startedAt).Seconds()),
		NowPlaying:  s.station.NowPlaying(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug().Err(err).Msg("encode response")
	}
}

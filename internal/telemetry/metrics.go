/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry exposes Prometheus metrics for the broadcast core.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the station's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	Listeners        prometheus.Gauge
	QueueLength      prometheus.Gauge
	TracksStarted    *prometheus.CounterVec
	BytesBroadcast   prometheus.Counter
	PipelineFailures prometheus.Counter
	TriggersFired    *prometheus.CounterVec
}

// New registers and returns the station metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		Listeners: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "skald_listeners",
			Help: "Currently connected listeners.",
		}),
		QueueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "skald_queue_length",
			Help: "Entries waiting in the program queue.",
		}),
		TracksStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skald_tracks_started_total",
			Help: "Items handed to the broadcast engine, by type.",
		}, []string{"type"}),
		BytesBroadcast: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skald_bytes_broadcast_total",
			Help: "Audio bytes fanned out to listeners.",
		}),
		PipelineFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skald_pipeline_failures_total",
			Help: "Transcoding pipeline spawn or runtime failures.",
		}),
		TriggersFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skald_triggers_fired_total",
			Help: "External trigger injections, by kind.",
		}, []string{"kind"}),
	}

	registry.MustRegister(
		m.Listeners,
		m.QueueLength,
		m.TracksStarted,
		m.BytesBroadcast,
		m.PipelineFailures,
		m.TriggersFired,
	)
	return m
}

// Handler exposes the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

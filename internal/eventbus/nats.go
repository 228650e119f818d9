/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus relays in-process station events onto NATS so external
// consumers (dashboards, loggers, other nodes) can observe the broadcast
// without touching the core.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_radio/internal/events"
)

// relayedEvents are the event types mirrored onto NATS. Internal plumbing
// events stay in-process.
var relayedEvents = []events.EventType{
	events.EventNowPlaying,
	events.EventListenerStats,
	events.EventPipelineFailed,
	events.EventTriggerFired,
	events.EventSchedulerState,
}

// message is the envelope published to NATS subjects.
type message struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"`
}

// Relay mirrors bus events to NATS subjects of the form
// "skald.events.<event_type>".
type Relay struct {
	conn   *nats.Conn
	bus    *events.Bus
	logger zerolog.Logger
	nodeID string
	cancel context.CancelFunc
}

// NewRelay connects to NATS and starts mirroring the relayed event types.
// The connection reconnects indefinitely with backoff.
func NewRelay(url string, bus *events.Bus, logger zerolog.Logger) (*Relay, error) {
	log := logger.With().Str("component", "eventbus").Logger()

	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", url, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Relay{
		conn:   conn,
		bus:    bus,
		logger: log,
		nodeID: nodeID(),
		cancel: cancel,
	}

	for _, eventType := range relayedEvents {
		sub := bus.Subscribe(eventType)
		go r.pump(ctx, eventType, sub)
	}

	log.Info().Str("url", url).Str("node", r.nodeID).Msg("nats relay started")
	return r, nil
}

func (r *Relay) pump(ctx context.Context, eventType events.EventType, sub events.Subscriber) {
	subject := fmt.Sprintf("skald.events.%s", eventType)
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-sub:
			if !ok {
				return
			}
			data, err := json.Marshal(message{
				EventType: eventType,
				Payload:   payload,
				Timestamp: time.Now().UTC(),
				NodeID:    r.nodeID,
				MessageID: uuid.NewString(),
			})
			if err != nil {
				r.logger.Error().Err(err).Str("event", string(eventType)).Msg("marshal event")
				continue
			}
			if err := r.conn.Publish(subject, data); err != nil {
				r.logger.Warn().Err(err).Str("subject", subject).Msg("publish event")
			}
		}
	}
}

// Close stops the relay and drains the NATS connection.
func (r *Relay) Close() {
	r.cancel()
	if err := r.conn.Drain(); err != nil {
		r.logger.Debug().Err(err).Msg("nats drain")
	}
}

func nodeID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "skald"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}

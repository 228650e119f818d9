/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package weather fetches the station's current-conditions snapshot. Only
// the condition string is consumed; the playlist generator maps it to an
// announcement bucket.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Snapshot is the subset of the provider payload the station cares about.
type Snapshot struct {
	Condition   string  `json:"condition"`
	Temperature float64 `json:"temperature"`
	ObservedAt  string  `json:"observed_at"`
}

// Client polls an HTTP endpoint for the current conditions and caches the
// result for a TTL. Fetch failures fall back to the last good snapshot, so
// a flaky provider never breaks the weather segment.
type Client struct {
	url    string
	ttl    time.Duration
	http   *http.Client
	logger zerolog.Logger

	mu        sync.Mutex
	last      Snapshot
	fetchedAt time.Time
}

// New creates a client for url with the given cache TTL. An empty url
// yields a client whose Condition is always empty.
func New(url string, ttl time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		url:    url,
		ttl:    ttl,
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: logger.With().Str("component", "weather").Logger(),
	}
}

// Condition returns the current condition string, refreshing the snapshot
// when the cache has expired. It never fails: on error the last known
// condition (possibly empty) is returned, which downstream maps to the
// default bucket.
func (c *Client) Condition(ctx context.Context) string {
	return c.Current(ctx).Condition
}

// Current returns the cached snapshot, refreshing it when stale.
func (c *Client) Current(ctx context.Context) Snapshot {
	c.mu.Lock()
	if c.url == "" || (!c.fetchedAt.IsZero() && time.Since(c.fetchedAt) < c.ttl) {
		snap := c.last
		c.mu.Unlock()
		return snap
	}
	c.mu.Unlock()

	snap, err := c.fetch(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.logger.Warn().Err(err).Msg("weather fetch failed, using last snapshot")
		return c.last
	}
	c.last = snap
	c.fetchedAt = time.Now()
	return snap
}

func (c *Client) fetch(ctx context.Context) (Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Snapshot{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Snapshot{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Snapshot{}, fmt.Errorf("weather endpoint returned %s", resp.Status)
	}

	var snap Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode weather payload: %w", err)
	}
	return snap, nil
}

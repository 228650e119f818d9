/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"strings"
	"sync"
)

// History is a bounded window of recently played music titles used for
// anti-repeat filtering. Once capacity is exceeded the oldest title is
// evicted.
type History struct {
	mu       sync.Mutex
	titles   []string
	capacity int
}

// NewHistory creates a history window. Capacity below 1 disables tracking.
func NewHistory(capacity int) *History {
	return &History{capacity: capacity}
}

// Contains reports whether title is inside the window (case-insensitive).
func (h *History) Contains(title string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range h.titles {
		if strings.EqualFold(t, title) {
			return true
		}
	}
	return false
}

// Add appends title, evicting the oldest entry when over capacity.
func (h *History) Add(title string) {
	if h.capacity < 1 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.titles = append(h.titles, title)
	if len(h.titles) > h.capacity {
		h.titles = h.titles[1:]
	}
}

// Len returns the current window size.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.titles)
}

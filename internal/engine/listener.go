/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package engine

import (
	"sync"

	"github.com/google/uuid"
)

// listenerChanSize buffers roughly a megabyte of 4 KB chunks so a short
// network stall does not immediately cost a listener audio.
const listenerChanSize = 256

// Listener is one attached output sink. Audio and metadata travel on
// separate channels; the transport decides how to interleave them.
type Listener struct {
	ID string

	audio chan []byte
	meta  chan []byte
	done  chan struct{}
	once  sync.Once
}

func newListener() *Listener {
	return &Listener{
		ID:    uuid.NewString(),
		audio: make(chan []byte, listenerChanSize),
		meta:  make(chan []byte, 4),
		done:  make(chan struct{}),
	}
}

// Audio yields broadcast audio chunks.
func (l *Listener) Audio() <-chan []byte { return l.audio }

// Metadata yields ICY metadata records pushed on track changes.
func (l *Listener) Metadata() <-chan []byte { return l.meta }

// Done is closed when the engine detaches the listener.
func (l *Listener) Done() <-chan struct{} { return l.done }

func (l *Listener) close() {
	l.once.Do(func() { close(l.done) })
}

// ringBuffer holds recent broadcast audio so new listeners start with
// data instead of silence.
type ringBuffer struct {
	mu   sync.RWMutex
	data []byte
	size int
	pos  int
	fill int
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{data: make([]byte, size), size: size}
}

func (rb *ringBuffer) Write(p []byte) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	for _, b := range p {
		rb.data[rb.pos] = b
		rb.pos = (rb.pos + 1) % rb.size
	}
	rb.fill += len(p)
	if rb.fill > rb.size {
		rb.fill = rb.size
	}
}

// Recent returns up to n of the most recently written bytes.
func (rb *ringBuffer) Recent(n int) []byte {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	if n > rb.fill {
		n = rb.fill
	}
	if n <= 0 {
		return nil
	}
	out := make([]byte, n)
	start := (rb.pos - n + rb.size) % rb.size
	for i := 0; i < n; i++ {
		out[i] = rb.data[(start+i)%rb.size]
	}
	return out
}

func (rb *ringBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	for i := range rb.data {
		rb.data[i] = 0
	}
	rb.pos = 0
	rb.fill = 0
}

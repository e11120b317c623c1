// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package stream broadcasts audit events to live WebSocket clients.
//
// The hub fans each event out to every connected client through a bounded
// per-client queue. A client whose queue is full is dropped rather than
// allowed to stall the broadcast; reconnecting is the client's job. Events
// carry attribution and cost accounting only, so the stream leaks no
// receipt bodies.
package stream

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/PStryder/InterView/pkg/extensions"
	"github.com/PStryder/InterView/pkg/logging"
	"github.com/PStryder/InterView/services/interview/observability"
)

// SendQueueSize is the per-client event buffer. A client this far behind
// is dropped.
const SendQueueSize = 64

var errHubClosed = errors.New("stream hub closed")

type client struct {
	session string
	send    chan extensions.AuditEvent
}

// Hub distributes audit events to registered clients. It implements
// extensions.ResolutionObserver.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
	logger  *logging.Logger
	metrics *observability.ResolutionMetrics
}

// NewHub creates an empty hub.
func NewHub(logger *logging.Logger, metrics *observability.ResolutionMetrics) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
		metrics: metrics,
	}
}

// Observe fans the event out to every client without blocking. Clients
// with full queues are dropped.
func (h *Hub) Observe(_ context.Context, event extensions.AuditEvent) error {
	h.mu.RLock()
	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- event:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("Dropping slow stream client",
			"session_id", c.session,
			"queue_size", SendQueueSize,
		)
		h.remove(c)
	}
	return nil
}

// Serve registers the connection and writes events to it until the client
// disconnects, falls behind, or the context ends. It blocks for the life
// of the connection.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn) error {
	c := &client{
		session: uuid.NewString(),
		send:    make(chan extensions.AuditEvent, SendQueueSize),
	}
	if err := h.add(c); err != nil {
		return err
	}
	defer h.remove(c)

	// Read loop so close frames and pings are processed. Inbound payloads
	// are discarded, the stream is one-way.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-readerDone:
			return nil
		case event, ok := <-c.send:
			if !ok {
				// Dropped as a slow client.
				return nil
			}
			if err := conn.WriteJSON(event); err != nil {
				return err
			}
		}
	}
}

// ClientCount reports how many clients are connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close drops every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	dropped := len(h.clients)
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	for i := 0; i < dropped; i++ {
		if h.metrics != nil {
			h.metrics.StreamClientDisconnected()
		}
	}
}

func (h *Hub) add(c *client) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return errHubClosed
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.StreamClientConnected()
	}
	h.logger.Info("Stream client connected", "session_id", c.session)
	return nil
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	if ok {
		if h.metrics != nil {
			h.metrics.StreamClientDisconnected()
		}
		h.logger.Info("Stream client disconnected", "session_id", c.session)
	}
}

var _ extensions.ResolutionObserver = (*Hub)(nil)

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sensors

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds how long a slow client may stall a broadcast.
	writeWait = 5 * time.Second

	// pongWait is how long a connection may stay silent before it is
	// considered dead. Pings go out at a third of it.
	pongWait     = 60 * time.Second
	pingInterval = pongWait / 3
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is fronted by its own auth layer; browser origin is not a
	// trust boundary here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// client is one subscriber connection. The mutex serializes writers: the
// broadcast path and the keepalive ping race for the socket otherwise.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(messageType int, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, payload)
}

// Hub fans accepted readings out to websocket subscribers, grouped by user.
//
// Thread Safety: Safe for concurrent use.
type Hub struct {
	mu    sync.Mutex
	conns map[string]map[*client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[string]map[*client]struct{})}
}

// Subscribe upgrades the request and registers the connection under userID.
// The connection is served by its own goroutine until the client
// disconnects or a write fails; Subscribe returns once the handshake is
// done.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	cl := &client{conn: conn}

	h.mu.Lock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*client]struct{})
	}
	h.conns[userID][cl] = struct{}{}
	h.mu.Unlock()
	wsClientsGauge.Inc()
	slog.Info("websocket client connected", slog.String("user_id", userID))

	go h.serve(userID, cl)
	return nil
}

// serve owns the connection's read loop and keepalive pings.
func (h *Hub) serve(userID string, cl *client) {
	defer h.drop(userID, cl)

	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			// Subscribers only listen; the read loop exists to see
			// closes and feed the pong handler.
			if _, _, err := cl.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := cl.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// drop removes and closes a connection.
func (h *Hub) drop(userID string, cl *client) {
	h.mu.Lock()
	if set, ok := h.conns[userID]; ok {
		if _, present := set[cl]; present {
			delete(set, cl)
			wsClientsGauge.Dec()
		}
		if len(set) == 0 {
			delete(h.conns, userID)
		}
	}
	h.mu.Unlock()

	_ = cl.conn.Close()
	slog.Info("websocket client disconnected", slog.String("user_id", userID))
}

// Broadcast pushes one update to every subscriber of userID. Dead
// connections are dropped; a failed write never fails ingestion.
func (h *Hub) Broadcast(userID string, update Update) {
	payload, err := json.Marshal(update)
	if err != nil {
		slog.Error("encoding websocket update failed", slog.Any("error", err))
		return
	}

	h.mu.Lock()
	targets := make([]*client, 0, len(h.conns[userID]))
	for cl := range h.conns[userID] {
		targets = append(targets, cl)
	}
	h.mu.Unlock()

	for _, cl := range targets {
		if err := cl.write(websocket.TextMessage, payload); err != nil {
			slog.Debug("dropping dead websocket client",
				slog.String("user_id", userID),
				slog.Any("error", err),
			)
			h.drop(userID, cl)
		}
	}
}

// Subscribers reports the current subscriber count for a user.
func (h *Hub) Subscribers(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns[userID])
}

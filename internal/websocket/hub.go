// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

// Package websocket streams enrichment progress to the dashboard. A long
// sequential fetch over a big library takes minutes by design; the hub
// broadcasts per-item progress so the front end can show a live bar instead
// of a spinner.
package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/akarlsen/ludograph/internal/logging"
	"github.com/akarlsen/ludograph/internal/metrics"
)

// Message types sent over the progress stream.
const (
	MessageTypeProgress = "enrich_progress"
	MessageTypeDone     = "enrich_done"
	MessageTypePing     = "ping"
	MessageTypePong     = "pong"
)

// Message is one frame on the wire.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ProgressData is the payload of an enrich_progress frame.
type ProgressData struct {
	Done   int   `json:"done"`
	Total  int   `json:"total"`
	ItemID int64 `json:"item_id"`
}

// Hub maintains the set of connected clients and fans broadcasts out to
// them. A slow client never blocks a broadcast: when its buffer is full it
// is dropped.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates an idle hub; Run must be started for it to do anything.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Run services the hub until ctx is canceled, then closes every client and
// returns ctx.Err(). Designed to run under supervision.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			count := h.ClientCount()
			h.closeAllClients()
			logging.Info().Int("clients_closed", count).Msg("Progress hub stopped")
			return ctx.Err()

		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketClients.Set(float64(total))
			logging.Info().Int("total_clients", total).Msg("Progress client connected")

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketClients.Set(float64(total))
			logging.Info().Int("total_clients", total).Msg("Progress client disconnected")

		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

// BroadcastProgress sends one per-item progress frame. The frame is dropped
// when the broadcast buffer is full; progress is advisory, not durable.
func (h *Hub) BroadcastProgress(done, total int, itemID int64) {
	h.send(Message{Type: MessageTypeProgress, Data: ProgressData{Done: done, Total: total, ItemID: itemID}})
}

// BroadcastDone signals the end of an enrichment run.
func (h *Hub) BroadcastDone(resolved, total int) {
	h.send(Message{Type: MessageTypeDone, Data: map[string]any{
		"resolved":    resolved,
		"total":       total,
		"finished_at": time.Now().UTC().Format(time.RFC3339),
	}})
}

func (h *Hub) send(message Message) {
	select {
	case h.broadcast <- message:
	default:
		logging.Warn().Str("message_type", message.Type).Msg("Broadcast channel full, dropping frame")
	}
}

// broadcastToClients fans a message out in client ID order, so delivery
// order is reproducible in tests. Clients with a full buffer are removed.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
	}
	if len(toRemove) > 0 {
		metrics.WebSocketClients.Set(float64(len(h.clients)))
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.WebSocketClients.Set(0)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

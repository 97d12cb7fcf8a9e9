// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

package websocket

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestClient() *Client {
	return &Client{
		id:   clientIDCounter.Add(1),
		send: make(chan Message, 256),
	}
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Run returned %v, expected context.Canceled", err)
			}
		case <-time.After(time.Second):
			t.Error("Hub did not stop within a second")
		}
	})
	return h, cancel
}

func TestRegisterAndBroadcast(t *testing.T) {
	h, _ := startHub(t)

	c1, c2 := newTestClient(), newTestClient()
	c1.hub, c2.hub = h, h
	h.Register <- c1
	h.Register <- c2

	h.BroadcastProgress(3, 10, 42)

	for _, c := range []*Client{c1, c2} {
		select {
		case msg := <-c.send:
			if msg.Type != MessageTypeProgress {
				t.Errorf("Expected progress frame, got %q", msg.Type)
			}
			data, ok := msg.Data.(ProgressData)
			if !ok || data.Done != 3 || data.Total != 10 || data.ItemID != 42 {
				t.Errorf("Progress payload wrong: %+v", msg.Data)
			}
		case <-time.After(time.Second):
			t.Fatal("Client did not receive the broadcast")
		}
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	h, _ := startHub(t)

	c := newTestClient()
	c.hub = h
	h.Register <- c
	h.Unregister <- c

	// The hub closes the send channel on unregister.
	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("Expected closed send channel after unregister")
		}
	case <-time.After(time.Second):
		t.Fatal("Send channel was not closed")
	}

	if h.ClientCount() != 0 {
		t.Errorf("Expected 0 clients, got %d", h.ClientCount())
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	h, _ := startHub(t)

	slow := newTestClient()
	slow.hub = h
	slow.send = make(chan Message) // No buffer and nobody reading
	h.Register <- slow

	h.BroadcastProgress(1, 2, 1)

	deadline := time.After(time.Second)
	for h.ClientCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("Slow client was not dropped")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestBroadcastDone(t *testing.T) {
	h, _ := startHub(t)

	c := newTestClient()
	c.hub = h
	h.Register <- c

	h.BroadcastDone(48, 50)

	select {
	case msg := <-c.send:
		if msg.Type != MessageTypeDone {
			t.Errorf("Expected done frame, got %q", msg.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("Done frame not delivered")
	}
}

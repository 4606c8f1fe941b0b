/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package hub routes outbound messages either to a single connection or to
// every connection subscribed to a room-code channel.
package hub

import (
	"sync"

	"github.com/samber/lo"

	"github.com/Seednode/impostor/protocol"
)

// Conn is one connected client. Send must not block; it reports false when
// the message could not be queued. Close must not block either and is safe
// to call more than once.
type Conn interface {
	ID() string
	Send(msg protocol.Message) bool
	Close()
}

type Hub struct {
	mu       sync.RWMutex
	conns    map[string]Conn
	channels map[string]map[string]struct{}
	joined   map[string]map[string]struct{} // conn id -> channels
	logf     func(format string, args ...any)
}

func New(logf func(format string, args ...any)) *Hub {
	if logf == nil {
		logf = func(string, ...any) {}
	}

	return &Hub{
		conns:    make(map[string]Conn),
		channels: make(map[string]map[string]struct{}),
		joined:   make(map[string]map[string]struct{}),
		logf:     logf,
	}
}

func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[c.ID()] = c
}

// Unregister forgets a connection and drops it from every channel.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for channel := range h.joined[id] {
		h.unsubscribeLocked(channel, id)
	}

	delete(h.joined, id)
	delete(h.conns, id)
}

func (h *Hub) Subscribe(channel, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.channels[channel] == nil {
		h.channels[channel] = make(map[string]struct{})
	}
	h.channels[channel][id] = struct{}{}

	if h.joined[id] == nil {
		h.joined[id] = make(map[string]struct{})
	}
	h.joined[id][channel] = struct{}{}
}

func (h *Hub) Unsubscribe(channel, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.unsubscribeLocked(channel, id)
}

func (h *Hub) unsubscribeLocked(channel, id string) {
	if members, ok := h.channels[channel]; ok {
		delete(members, id)
		if len(members) == 0 {
			delete(h.channels, channel)
		}
	}

	if rooms, ok := h.joined[id]; ok {
		delete(rooms, channel)
		if len(rooms) == 0 {
			delete(h.joined, id)
		}
	}
}

// Drop removes a channel and all of its subscriptions.
func (h *Hub) Drop(channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id := range h.channels[channel] {
		h.unsubscribeLocked(channel, id)
	}
}

// Members lists the connection ids subscribed to channel.
func (h *Hub) Members(channel string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return lo.Keys(h.channels[channel])
}

// SendToConnection delivers a message meant for id alone. Nothing else
// carries its contents, so a connection that cannot take it is closed and
// left to reconnect.
func (h *Hub) SendToConnection(id string, msg protocol.Message) {
	h.mu.RLock()
	c, ok := h.conns[id]
	h.mu.RUnlock()

	if !ok {
		return
	}

	if !c.Send(msg) {
		h.logf("SOCKET: Dropped %s for %s, closing", msg.Type, id)
		c.Close()
	}
}

func (h *Hub) SendToRoom(channel string, msg protocol.Message) {
	h.mu.RLock()
	targets := make([]Conn, 0, len(h.channels[channel]))
	for id := range h.channels[channel] {
		if c, ok := h.conns[id]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.Send(msg) {
			h.logf("SOCKET: Dropped %s for %s in %s", msg.Type, c.ID(), channel)
		}
	}
}

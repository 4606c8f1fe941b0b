/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package protocol defines the websocket wire model shared by the room
// service, the broadcast hub and the transport.
//
// Every frame, in either direction, is a JSON envelope:
//
//	{"type": "join-room", "payload": {"roomCode": "ABC123", "playerName": "Toto"}}
//
// Inbound frames are decoded into one of the Request variants and validated
// before they reach any room state.
package protocol

import (
	"encoding/json"
)

// Inbound events (client -> server).
const (
	EventCreateRoom     = "create-room"
	EventJoinRoom       = "join-room"
	EventUpdateSettings = "update-settings"
	EventStartGame      = "start-game"
	EventRestartGame    = "restart-game"
	EventRevealCards    = "reveal-cards"
	EventLeaveRoom      = "leave-room"
)

// Outbound events (server -> client).
const (
	EventRoomCreated   = "room-created"
	EventUpdateRoom    = "update-room"
	EventGameStarted   = "game-started"
	EventRoomGameStart = "room-game-start"
	EventGameReset     = "game-reset"
	EventCardsRevealed = "cards-revealed"
	EventRoomClosed    = "room-closed"
	EventError         = "error"
)

type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage marshals payload once so the same bytes can be fanned out to
// every recipient. A nil payload produces a message without one.
func NewMessage(evtType string, payload any) (Message, error) {
	if payload == nil {
		return Message{Type: evtType}, nil
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}

	return Message{Type: evtType, Payload: b}, nil
}

// NewErrorMessage builds an error event whose payload is the bare reason string.
func NewErrorMessage(reason string) Message {
	b, _ := json.Marshal(reason)

	return Message{Type: EventError, Payload: b}
}

/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package room

import "fmt"

type Kind int

const (
	KindNotFound Kind = iota + 1
	KindInvalidPhase
	KindConflict
	KindUnauthorized
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindInvalidPhase:
		return "invalid phase"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a rejected request. Message is shown to the player as is.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Message
}

// Surfaced reports whether the sender should be told about the rejection.
// Non-hosts poking at host-only events get no answer.
func (e *Error) Surfaced() bool {
	return e.Kind != KindUnauthorized
}

func errNotFound() error {
	return &Error{Kind: KindNotFound, Message: "Sala no encontrada"}
}

func errStarted() error {
	return &Error{Kind: KindInvalidPhase, Message: "El juego ya comenzó"}
}

func errDuplicateName() error {
	return &Error{Kind: KindConflict, Message: "Ya existe un jugador con ese nombre"}
}

func errRoomFull() error {
	return &Error{Kind: KindConflict, Message: "La sala está llena"}
}

func errAlreadyJoined() error {
	return &Error{Kind: KindConflict, Message: "Ya estás en esta sala"}
}

func errNotHost() error {
	return &Error{Kind: KindUnauthorized, Message: "only the host may do that"}
}

func errPhase(msg string) error {
	return &Error{Kind: KindInvalidPhase, Message: msg}
}

func errInvalid(msg string) error {
	return &Error{Kind: KindInvalid, Message: msg}
}

package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// Request is implemented by every inbound event payload.
type Request interface {
	Event() string
}

type CreateRoom struct {
	PlayerName string   `json:"playerName" validate:"required,max=32"`
	GameType   GameType `json:"gameType" validate:"omitempty,oneof=impostor whoiswho"`
}

type JoinRoom struct {
	RoomCode   string `json:"roomCode" validate:"required,alphanum,max=16"`
	PlayerName string `json:"playerName" validate:"required,max=32"`
}

type UpdateSettings struct {
	RoomCode string   `json:"roomCode" validate:"required,alphanum,max=16"`
	Settings Settings `json:"settings"`
}

// StartGame carries the assignment computed by the host. An empty GameData
// asks the server to compute it.
type StartGame struct {
	RoomCode string       `json:"roomCode" validate:"required,alphanum,max=16"`
	GameData []Assignment `json:"gameData" validate:"dive"`
}

type RestartGame struct {
	RoomCode string `json:"roomCode" validate:"required,alphanum,max=16"`
}

type RevealCards struct {
	RoomCode string `json:"roomCode" validate:"required,alphanum,max=16"`
}

type LeaveRoom struct {
	RoomCode string `json:"roomCode" validate:"required,alphanum,max=16"`
}

func (*CreateRoom) Event() string     { return EventCreateRoom }
func (*JoinRoom) Event() string       { return EventJoinRoom }
func (*UpdateSettings) Event() string { return EventUpdateSettings }
func (*StartGame) Event() string      { return EventStartGame }
func (*RestartGame) Event() string    { return EventRestartGame }
func (*RevealCards) Event() string    { return EventRevealCards }
func (*LeaveRoom) Event() string      { return EventLeaveRoom }

func (r *CreateRoom) normalize() {
	r.PlayerName = strings.TrimSpace(r.PlayerName)
	r.GameType = GameType(strings.ToLower(strings.TrimSpace(string(r.GameType))))
	if r.GameType == "" {
		r.GameType = GameImpostor
	}
}

func (r *JoinRoom) normalize() {
	r.RoomCode = NormalizeCode(r.RoomCode)
	r.PlayerName = strings.TrimSpace(r.PlayerName)
}

func (r *UpdateSettings) normalize() { r.RoomCode = NormalizeCode(r.RoomCode) }
func (r *StartGame) normalize()      { r.RoomCode = NormalizeCode(r.RoomCode) }
func (r *RestartGame) normalize()    { r.RoomCode = NormalizeCode(r.RoomCode) }
func (r *RevealCards) normalize()    { r.RoomCode = NormalizeCode(r.RoomCode) }
func (r *LeaveRoom) normalize()      { r.RoomCode = NormalizeCode(r.RoomCode) }

// NormalizeCode trims and upper-cases a room code as typed by a player.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

var constructors = map[string]func() Request{
	EventCreateRoom:     func() Request { return &CreateRoom{} },
	EventJoinRoom:       func() Request { return &JoinRoom{} },
	EventUpdateSettings: func() Request { return &UpdateSettings{} },
	EventStartGame:      func() Request { return &StartGame{} },
	EventRestartGame:    func() Request { return &RestartGame{} },
	EventRevealCards:    func() Request { return &RevealCards{} },
	EventLeaveRoom:      func() Request { return &LeaveRoom{} },
}

// DecodeError is returned for frames that cannot become a valid Request.
type DecodeError struct {
	Event  string
	Reason string
	Fields []string
}

func (e *DecodeError) Error() string {
	var b strings.Builder

	b.WriteString("invalid request")
	if e.Event != "" {
		b.WriteString(" " + e.Event)
	}
	b.WriteString(": " + e.Reason)

	if len(e.Fields) > 0 {
		b.WriteString(" (" + strings.Join(e.Fields, ", ") + ")")
	}

	return b.String()
}

type Decoder struct {
	validate *validator.Validate
}

func NewDecoder() *Decoder {
	v := validator.New()

	// Report json field names rather than Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Decoder{validate: v}
}

// Decode parses an envelope and returns the typed, normalised and validated request.
func (d *Decoder) Decode(data []byte) (Request, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, &DecodeError{Reason: "malformed message"}
	}

	newRequest, ok := constructors[msg.Type]
	if !ok {
		return nil, &DecodeError{Event: msg.Type, Reason: "unknown event type"}
	}

	if len(msg.Payload) == 0 || string(msg.Payload) == "null" {
		return nil, &DecodeError{Event: msg.Type, Reason: "missing payload"}
	}

	req := newRequest()
	if err := json.Unmarshal(msg.Payload, req); err != nil {
		return nil, &DecodeError{Event: msg.Type, Reason: "malformed payload"}
	}

	if n, ok := req.(interface{ normalize() }); ok {
		n.normalize()
	}

	if err := d.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, &DecodeError{Event: msg.Type, Reason: err.Error()}
		}

		return nil, &DecodeError{
			Event:  msg.Type,
			Reason: "validation failed",
			Fields: lo.Map(verrs, func(fe validator.FieldError, _ int) string {
				return fmt.Sprintf("%s: %s", fieldPath(fe), fe.Tag())
			}),
		}
	}

	return req, nil
}

// fieldPath drops the root struct name from the validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

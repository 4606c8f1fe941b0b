package protocol

import "encoding/json"

type GameType string

const (
	GameImpostor GameType = "impostor"
	GameWhoIsWho GameType = "whoiswho"
)

type Phase string

const (
	PhaseLobby   Phase = "lobby"
	PhasePlaying Phase = "playing"
)

type Role string

const (
	RoleCivilian Role = "civilian"
	RoleImpostor Role = "impostor"
)

// DefaultCategory is selected for every new room.
const DefaultCategory = "lugares"

type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsHost bool   `json:"isHost"`
}

// Settings are replaced wholesale by the host. PlayerCount is informational only.
type Settings struct {
	PlayerCount        int      `json:"playerCount" validate:"gte=0"`
	ImpostorCount      int      `json:"impostorCount" validate:"gte=1"`
	SelectedCategories []string `json:"selectedCategories" validate:"required,min=1,unique,dive,required"`
	ShowHints          bool     `json:"showHints"`
}

func DefaultSettings() Settings {
	return Settings{
		PlayerCount:        4,
		ImpostorCount:      1,
		SelectedCategories: []string{DefaultCategory},
		ShowHints:          false,
	}
}

// RosterEntry is one row of the who-is-who roster every player receives.
type RosterEntry struct {
	ID        string `json:"id" validate:"required"`
	Name      string `json:"name"`
	Character string `json:"character"`
}

// Assignment is the secret record delivered to a single player on game start.
//
// Impostor mode fills Type, Word (civilians only) and Hint (impostors only,
// when hints are enabled). Impostor-mode records always carry the hint key,
// null when there is none. Who-is-who mode fills PlayersData with the full
// roster, identical for every player.
type Assignment struct {
	ID          string        `json:"id" validate:"required"`
	Name        string        `json:"name,omitempty"`
	Type        Role          `json:"type,omitempty" validate:"omitempty,oneof=civilian impostor"`
	Word        string        `json:"word,omitempty"`
	Hint        *string       `json:"hint,omitempty"`
	PlayersData []RosterEntry `json:"playersData,omitempty" validate:"dive"`
}

func (a Assignment) MarshalJSON() ([]byte, error) {
	type plain Assignment
	if a.Type == "" {
		return json.Marshal(plain(a))
	}

	return json.Marshal(struct {
		plain
		Hint *string `json:"hint"`
	}{plain(a), a.Hint})
}

type GameState struct {
	Phase Phase `json:"phase"`
}

// RoomSnapshot is the full room state broadcast with update-room. Secret
// assignments are never part of it.
type RoomSnapshot struct {
	Code      string    `json:"code"`
	GameType  GameType  `json:"gameType"`
	HostID    string    `json:"hostId"`
	Players   []Player  `json:"players"`
	Settings  Settings  `json:"settings"`
	GameState GameState `json:"gameState"`
}

type RoomCreated struct {
	RoomCode string `json:"roomCode"`
	IsHost   bool   `json:"isHost"`
}

// RoomClosed tells members why their room went away.
type RoomClosed struct {
	RoomCode string `json:"roomCode"`
	Reason   string `json:"reason"`
}

// RoomSummary is the public view served over HTTP for room lookups.
type RoomSummary struct {
	Code     string   `json:"code"`
	GameType GameType `json:"gameType"`
	Phase    Phase    `json:"phase"`
	Players  []string `json:"players"`
}

/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package room

import (
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/Seednode/impostor/protocol"
)

// Room is one game session. Every field is guarded by mu, and every
// accepted mutation is broadcast before mu is released, so members never
// observe a snapshot older than the state it describes.
type Room struct {
	mu sync.Mutex

	code     string
	gameType protocol.GameType
	hostID   string
	players  []protocol.Player
	settings protocol.Settings

	phase       protocol.Phase
	playersData []protocol.Assignment

	lastActive time.Time

	// closed is set once the room has left the registry. Handlers that
	// looked the room up before that must treat it as missing.
	closed bool
}

func newRoom(code, hostID, hostName string, gameType protocol.GameType, now time.Time) *Room {
	return &Room{
		code:     code,
		gameType: gameType,
		hostID:   hostID,
		players: []protocol.Player{
			{ID: hostID, Name: hostName, IsHost: true},
		},
		settings:   protocol.DefaultSettings(),
		phase:      protocol.PhaseLobby,
		lastActive: now,
	}
}

func (r *Room) Code() string {
	return r.code
}

func (r *Room) GameType() protocol.GameType {
	return r.gameType
}

func (r *Room) Snapshot() protocol.RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.snapshotLocked()
}

// PlayersData returns a copy of the current secret assignment.
func (r *Room) PlayersData() []protocol.Assignment {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.playersData)
}

func (r *Room) snapshotLocked() protocol.RoomSnapshot {
	settings := r.settings
	settings.SelectedCategories = slices.Clone(r.settings.SelectedCategories)

	return protocol.RoomSnapshot{
		Code:      r.code,
		GameType:  r.gameType,
		HostID:    r.hostID,
		Players:   slices.Clone(r.players),
		Settings:  settings,
		GameState: protocol.GameState{Phase: r.phase},
	}
}

func (r *Room) summaryLocked() protocol.RoomSummary {
	return protocol.RoomSummary{
		Code:     r.code,
		GameType: r.gameType,
		Phase:    r.phase,
		Players: lo.Map(r.players, func(p protocol.Player, _ int) string {
			return p.Name
		}),
	}
}

func (r *Room) hasMemberLocked(id string) bool {
	return lo.ContainsBy(r.players, func(p protocol.Player) bool {
		return p.ID == id
	})
}

func (r *Room) hasNameLocked(name string) bool {
	return lo.ContainsBy(r.players, func(p protocol.Player) bool {
		return p.Name == name
	})
}

func (r *Room) isHostLocked(id string) bool {
	return id != "" && r.hostID == id
}

// addPlayerLocked validates and appends a non-host member.
func (r *Room) addPlayerLocked(id, name string, maxPlayers int) error {
	switch {
	case r.hasMemberLocked(id):
		return errAlreadyJoined()
	case r.phase != protocol.PhaseLobby:
		return errStarted()
	case r.hasNameLocked(name):
		return errDuplicateName()
	case maxPlayers > 0 && len(r.players) >= maxPlayers:
		return errRoomFull()
	}

	r.players = append(r.players, protocol.Player{ID: id, Name: name})

	return nil
}

// removePlayerLocked drops a member and, if it held host authority, hands
// it to the earliest remaining member. It reports whether id was a member.
func (r *Room) removePlayerLocked(id string) bool {
	idx := slices.IndexFunc(r.players, func(p protocol.Player) bool {
		return p.ID == id
	})
	if idx < 0 {
		return false
	}

	wasHost := r.players[idx].IsHost || r.hostID == id
	r.players = slices.Delete(r.players, idx, idx+1)

	if len(r.players) == 0 {
		r.hostID = ""
		return true
	}

	if wasHost {
		r.players[0].IsHost = true
		r.hostID = r.players[0].ID
	}

	return true
}

func (r *Room) emptyLocked() bool {
	return len(r.players) == 0
}

func (r *Room) startLocked(data []protocol.Assignment) {
	r.phase = protocol.PhasePlaying
	r.playersData = data
}

func (r *Room) resetLocked() {
	r.phase = protocol.PhaseLobby
	r.playersData = nil
}

func (r *Room) touchLocked(now time.Time) {
	r.lastActive = now
}

func (r *Room) idleLocked(now time.Time, timeout time.Duration) bool {
	return timeout > 0 && now.Sub(r.lastActive) > timeout
}

func (r *Room) memberIDsLocked() []string {
	return lo.Map(r.players, func(p protocol.Player, _ int) string {
		return p.ID
	})
}

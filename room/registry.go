/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package room

import (
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/Seednode/impostor/protocol"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6

	maxCodeAttempts = 32
)

var ErrNoFreeCode = errors.New("unable to allocate a free room code")

// NewCode returns a random upper-case alphanumeric room code.
func NewCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	out := make([]byte, codeLength)
	for i := range out {
		out[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
	}

	return string(out), nil
}

// Registry maps live room codes to rooms. It never broadcasts; callers do.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]*Room
	newCode func() (string, error)
}

// NewRegistry uses newCode to draw room codes. A nil newCode uses NewCode.
func NewRegistry(newCode func() (string, error)) *Registry {
	if newCode == nil {
		newCode = NewCode
	}

	return &Registry{
		rooms:   make(map[string]*Room),
		newCode: newCode,
	}
}

// Create inserts a new room with hostID as its only member under a code no
// live room is using. The room is returned locked so the caller can finish
// setting it up and broadcast before anyone else touches it; the caller must
// unlock it.
func (g *Registry) Create(hostID, hostName string, gameType protocol.GameType, now time.Time) (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for range maxCodeAttempts {
		code, err := g.newCode()
		if err != nil {
			return nil, err
		}

		if _, exists := g.rooms[code]; exists {
			continue
		}

		r := newRoom(code, hostID, hostName, gameType, now)
		r.mu.Lock()
		g.rooms[code] = r

		return r, nil
	}

	return nil, ErrNoFreeCode
}

func (g *Registry) Get(code string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	r, ok := g.rooms[code]

	return r, ok
}

// Remove deletes code only while it still maps to r, so a stale handle can
// never evict a newer room that reused the code.
func (g *Registry) Remove(code string, r *Room) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if current, ok := g.rooms[code]; !ok || current != r {
		return false
	}

	delete(g.rooms, code)

	return true
}

// Rooms returns the live rooms at the time of the call.
func (g *Registry) Rooms() []*Room {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return lo.Values(g.rooms)
}

func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.rooms)
}

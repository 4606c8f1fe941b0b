/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package room

import "sync"

// Session is the server-side view of one connection: its ephemeral id and
// the room, if any, it currently belongs to.
type Session struct {
	id string

	mu   sync.Mutex
	room string
}

func newSession(id string) *Session {
	return &Session{id: id}
}

func (s *Session) ID() string {
	return s.id
}

// Room returns the code of the room the connection is in, or "".
func (s *Session) Room() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.room
}

func (s *Session) setRoom(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.room = code
}

// leave clears the room only if it is still code.
func (s *Session) leave(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.room == code {
		s.room = ""
	}
}

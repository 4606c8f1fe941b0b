/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package room owns the live rooms: the registry, each room's membership,
// host authority and phase, and the per-connection session bookkeeping.
//
// Every mutation of a room runs under that room's lock and is broadcast
// before the lock is released. No handler ever holds two room locks.
package room

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/Seednode/impostor/assign"
	"github.com/Seednode/impostor/catalog"
	"github.com/Seednode/impostor/protocol"
)

// Broadcaster delivers outbound messages. Sends must not block.
type Broadcaster interface {
	Subscribe(channel, id string)
	Unsubscribe(channel, id string)
	Drop(channel string)
	SendToRoom(channel string, msg protocol.Message)
	SendToConnection(id string, msg protocol.Message)
}

type Options struct {
	Catalog *catalog.Catalog
	Engine  *assign.Engine

	// TrustHost routes host-submitted assignments unchanged. Without it, or
	// when the host submits nothing, the server deals the roles itself.
	TrustHost bool

	// MaxPlayers caps room membership; 0 means unlimited.
	MaxPlayers int

	// RoomTimeout closes rooms with no accepted mutation for this long; 0
	// disables reaping.
	RoomTimeout time.Duration

	NewCode func() (string, error)
	Now     func() time.Time
	Logf    func(format string, args ...any)
}

type Service struct {
	rooms   *Registry
	out     Broadcaster
	decoder *protocol.Decoder
	opts    Options

	mu       sync.Mutex
	sessions map[string]*Session
}

func New(out Broadcaster, opts Options) *Service {
	if opts.Engine == nil {
		opts.Engine = assign.New(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logf == nil {
		opts.Logf = func(string, ...any) {}
	}

	return &Service{
		rooms:    NewRegistry(opts.NewCode),
		out:      out,
		decoder:  protocol.NewDecoder(),
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

func (s *Service) Registry() *Registry {
	return s.rooms
}

// Connect starts tracking a connection.
func (s *Service) Connect(id string) *Session {
	sess := newSession(id)

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	return sess
}

func (s *Service) Session(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]

	return sess, ok
}

// Disconnect removes the connection from every room it is a member of,
// transferring host authority and destroying rooms left empty.
func (s *Service) Disconnect(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	for _, r := range s.rooms.Rooms() {
		r.mu.Lock()
		if s.removeMemberLocked(r, id) {
			s.opts.Logf("ROOMS: %s left %s (disconnected)", id, r.code)
		}
		r.mu.Unlock()
	}
}

// HandleFrame decodes one inbound frame and applies it. Rejections are
// reported to the sender only; nothing here terminates the connection.
func (s *Service) HandleFrame(sess *Session, data []byte) {
	req, err := s.decoder.Decode(data)
	if err != nil {
		s.report(sess, err)
		return
	}

	s.report(sess, s.Handle(sess, req))
}

// Handle applies a decoded request and returns the rejection, if any,
// without reporting it.
func (s *Service) Handle(sess *Session, req protocol.Request) error {
	switch req := req.(type) {
	case *protocol.CreateRoom:
		return s.createRoom(sess, req)
	case *protocol.JoinRoom:
		return s.joinRoom(sess, req)
	case *protocol.UpdateSettings:
		return s.updateSettings(sess, req)
	case *protocol.StartGame:
		return s.startGame(sess, req)
	case *protocol.RestartGame:
		return s.restartGame(sess, req)
	case *protocol.RevealCards:
		return s.revealCards(sess, req)
	case *protocol.LeaveRoom:
		return s.leaveRoom(sess, req)
	default:
		return errInvalid("unsupported event " + req.Event())
	}
}

func (s *Service) report(sess *Session, err error) {
	if err == nil {
		return
	}

	var rerr *Error
	var derr *protocol.DecodeError

	switch {
	case errors.As(err, &rerr):
		if !rerr.Surfaced() {
			s.opts.Logf("ROOMS: Ignored request from %s: %v", sess.ID(), err)
			return
		}
		s.out.SendToConnection(sess.ID(), protocol.NewErrorMessage(rerr.Message))
	case errors.As(err, &derr):
		s.out.SendToConnection(sess.ID(), protocol.NewErrorMessage(derr.Error()))
	default:
		s.opts.Logf("ROOMS: Failed request from %s: %v", sess.ID(), err)
		s.out.SendToConnection(sess.ID(), protocol.NewErrorMessage("Error interno del servidor"))
	}
}

func (s *Service) createRoom(sess *Session, req *protocol.CreateRoom) error {
	previous := sess.Room()

	r, err := s.rooms.Create(sess.ID(), req.PlayerName, req.GameType, s.opts.Now())
	if err != nil {
		return err
	}

	sess.setRoom(r.code)
	s.out.Subscribe(r.code, sess.ID())
	s.sendTo(sess.ID(), protocol.EventRoomCreated, protocol.RoomCreated{RoomCode: r.code, IsHost: true})
	s.broadcastRoomLocked(r)
	r.mu.Unlock()

	s.opts.Logf("ROOMS: %s created %s room %s", sess.ID(), req.GameType, r.code)

	if previous != "" {
		s.leave(sess.ID(), previous)
	}

	return nil
}

func (s *Service) joinRoom(sess *Session, req *protocol.JoinRoom) error {
	r, ok := s.rooms.Get(req.RoomCode)
	if !ok {
		return errNotFound()
	}

	previous := sess.Room()

	if err := s.admit(sess, r, req.PlayerName); err != nil {
		return err
	}

	s.opts.Logf("ROOMS: %s joined %s as %q", sess.ID(), r.code, req.PlayerName)

	if previous != "" && previous != r.code {
		s.leave(sess.ID(), previous)
	}

	return nil
}

func (s *Service) admit(sess *Session, r *Room, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errNotFound()
	}

	if err := r.addPlayerLocked(sess.ID(), name, s.opts.MaxPlayers); err != nil {
		return err
	}

	sess.setRoom(r.code)
	s.out.Subscribe(r.code, sess.ID())
	r.touchLocked(s.opts.Now())
	s.broadcastRoomLocked(r)

	return nil
}

func (s *Service) updateSettings(sess *Session, req *protocol.UpdateSettings) error {
	return s.asHost(sess, req.RoomCode, func(r *Room) error {
		r.settings = req.Settings
		r.settings.SelectedCategories = slices.Clone(req.Settings.SelectedCategories)
		r.touchLocked(s.opts.Now())
		s.broadcastRoomLocked(r)

		return nil
	})
}

func (s *Service) startGame(sess *Session, req *protocol.StartGame) error {
	return s.asHost(sess, req.RoomCode, func(r *Room) error {
		if r.phase != protocol.PhaseLobby {
			return errStarted()
		}

		data := slices.Clone(req.GameData)
		if len(data) == 0 || !s.opts.TrustHost {
			dealt, err := s.opts.Engine.Assign(r.gameType, slices.Clone(r.players), r.settings, s.opts.Catalog)
			if err != nil {
				return errInvalid(err.Error())
			}
			data = dealt
		}

		r.startLocked(data)
		r.touchLocked(s.opts.Now())

		for _, a := range data {
			if !r.hasMemberLocked(a.ID) {
				s.opts.Logf("ROOMS: Skipped assignment for non-member %s in %s", a.ID, r.code)
				continue
			}
			s.sendTo(a.ID, protocol.EventGameStarted, a)
		}

		s.out.SendToRoom(r.code, protocol.Message{Type: protocol.EventRoomGameStart})

		s.opts.Logf("ROOMS: Started %s with %d players", r.code, len(r.players))

		return nil
	})
}

func (s *Service) restartGame(sess *Session, req *protocol.RestartGame) error {
	return s.asHost(sess, req.RoomCode, func(r *Room) error {
		r.resetLocked()
		r.touchLocked(s.opts.Now())
		s.broadcastRoomLocked(r)
		s.out.SendToRoom(r.code, protocol.Message{Type: protocol.EventGameReset})

		return nil
	})
}

func (s *Service) revealCards(sess *Session, req *protocol.RevealCards) error {
	return s.asHost(sess, req.RoomCode, func(r *Room) error {
		if r.gameType != protocol.GameWhoIsWho {
			return errInvalid("Solo disponible en Quién es quién")
		}
		if r.phase != protocol.PhasePlaying {
			return errPhase("El juego no comenzó")
		}

		r.touchLocked(s.opts.Now())
		s.out.SendToRoom(r.code, protocol.Message{Type: protocol.EventCardsRevealed})

		return nil
	})
}

func (s *Service) leaveRoom(sess *Session, req *protocol.LeaveRoom) error {
	if !s.leave(sess.ID(), req.RoomCode) {
		return errNotFound()
	}

	s.opts.Logf("ROOMS: %s left %s", sess.ID(), req.RoomCode)

	return nil
}

// asHost runs fn under the room lock if sess holds host authority there.
func (s *Service) asHost(sess *Session, code string, fn func(r *Room) error) error {
	r, ok := s.rooms.Get(code)
	if !ok {
		return errNotFound()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errNotFound()
	}

	if !r.isHostLocked(sess.ID()) {
		return errNotHost()
	}

	return fn(r)
}

func (s *Service) leave(id, code string) bool {
	r, ok := s.rooms.Get(code)
	if !ok {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return s.removeMemberLocked(r, id)
}

func (s *Service) removeMemberLocked(r *Room, id string) bool {
	if r.closed || !r.removePlayerLocked(id) {
		return false
	}

	s.out.Unsubscribe(r.code, id)
	if sess, ok := s.Session(id); ok {
		sess.leave(r.code)
	}

	if r.emptyLocked() {
		s.destroyLocked(r)
		s.opts.Logf("ROOMS: Removed empty room %s", r.code)

		return true
	}

	r.touchLocked(s.opts.Now())
	s.broadcastRoomLocked(r)

	return true
}

// closeLocked tells every member the room is gone and then destroys it.
func (s *Service) closeLocked(r *Room, reason string) {
	s.sendRoom(r.code, protocol.EventRoomClosed, protocol.RoomClosed{RoomCode: r.code, Reason: reason})

	for _, id := range r.memberIDsLocked() {
		if sess, ok := s.Session(id); ok {
			sess.leave(r.code)
		}
	}

	s.destroyLocked(r)
}

func (s *Service) destroyLocked(r *Room) {
	r.closed = true
	s.rooms.Remove(r.code, r)
	s.out.Drop(r.code)
}

// Reap closes rooms idle for longer than the room timeout and returns how
// many it closed.
func (s *Service) Reap(now time.Time) int {
	if s.opts.RoomTimeout <= 0 {
		return 0
	}

	reaped := 0

	for _, r := range s.rooms.Rooms() {
		r.mu.Lock()
		if !r.closed && r.idleLocked(now, s.opts.RoomTimeout) {
			s.closeLocked(r, "Sala cerrada por inactividad")
			reaped++
			s.opts.Logf("ROOMS: Reaped idle room %s", r.code)
		}
		r.mu.Unlock()
	}

	return reaped
}

// Run reaps idle rooms until ctx is done. It returns at once when reaping
// is disabled.
func (s *Service) Run(ctx context.Context) {
	if s.opts.RoomTimeout <= 0 {
		return
	}

	ticker := time.NewTicker(s.opts.RoomTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Reap(s.opts.Now())
		}
	}
}

// Close ends every live room.
func (s *Service) Close() {
	for _, r := range s.rooms.Rooms() {
		r.mu.Lock()
		if !r.closed {
			s.closeLocked(r, "El servidor se está cerrando")
		}
		r.mu.Unlock()
	}
}

// Lookup returns the public summary of a live room.
func (s *Service) Lookup(code string) (protocol.RoomSummary, bool) {
	r, ok := s.rooms.Get(protocol.NormalizeCode(code))
	if !ok {
		return protocol.RoomSummary{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return protocol.RoomSummary{}, false
	}

	return r.summaryLocked(), true
}

func (s *Service) broadcastRoomLocked(r *Room) {
	s.sendRoom(r.code, protocol.EventUpdateRoom, r.snapshotLocked())
}

func (s *Service) sendRoom(code, evtType string, payload any) {
	msg, err := protocol.NewMessage(evtType, payload)
	if err != nil {
		s.opts.Logf("ROOMS: Unable to encode %s for %s: %v", evtType, code, err)
		return
	}

	s.out.SendToRoom(code, msg)
}

func (s *Service) sendTo(id, evtType string, payload any) {
	msg, err := protocol.NewMessage(evtType, payload)
	if err != nil {
		s.opts.Logf("ROOMS: Unable to encode %s for %s: %v", evtType, id, err)
		return
	}

	s.out.SendToConnection(id, msg)
}

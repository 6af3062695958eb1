// Package match turns session events into room mutations and pushes the
// resulting snapshots back out through a Sender.
package match

import (
	"errors"

	"pong-arena/internal/game"
	"pong-arena/internal/protocol"
	"pong-arena/internal/room"

	"github.com/charmbracelet/log"
)

// Sender delivers an encoded frame to one session. Implementations must not
// block; a frame that cannot be queued is dropped.
type Sender interface {
	Send(sessionID string, frame []byte)
}

// broadcast sends the same frame to every member.
func broadcast(sender Sender, members []string, frame []byte) {
	for _, id := range members {
		sender.Send(id, frame)
	}
}

// Service handles join, paddle move and disconnect for every session.
type Service struct {
	store  *room.Store
	engine *game.Engine
	sender Sender
	logger *log.Logger
}

// NewService wires the event handlers to a store and an outbound Sender.
func NewService(store *room.Store, engine *game.Engine, sender Sender, logger *log.Logger) *Service {
	return &Service{
		store:  store,
		engine: engine,
		sender: sender,
		logger: logger,
	}
}

// Connect records a new session. Nothing is sent until it joins.
func (s *Service) Connect(sessionID, remoteIP string) {
	s.logger.Info("🔌 session connected", "session", sessionID, "ip", remoteIP)
}

// HandleFrame decodes one inbound frame and dispatches it. Malformed frames
// mutate nothing and get an error notice back. Unknown events are dropped.
func (s *Service) HandleFrame(sessionID string, frame []byte) error {
	env, err := protocol.Decode(frame)
	if err != nil {
		s.notify(sessionID, protocol.EventError, err.Error())
		return err
	}

	switch env.Event {
	case protocol.EventJoin:
		s.Join(sessionID)
	case protocol.EventPaddleMove:
		dir, err := protocol.DecodeDirection(env.Data)
		if err != nil {
			s.notify(sessionID, protocol.EventError, err.Error())
			return err
		}
		s.PaddleMove(sessionID, dir)
	default:
		s.logger.Debug("unknown event dropped", "session", sessionID, "event", env.Event)
	}
	return nil
}

// Join seats the session. The joiner gets joined then state; if the room is
// now full, every member gets started.
func (s *Service) Join(sessionID string) {
	adm, err := s.store.Admit(sessionID)
	if err != nil {
		if errors.Is(err, room.ErrRoomFull) {
			s.notify(sessionID, protocol.EventFull, "room is full")
			return
		}
		s.logger.Error("admit failed", "session", sessionID, "error", err)
		s.notify(sessionID, protocol.EventError, "join failed")
		return
	}

	s.logger.Info("🎮 player joined", "session", sessionID, "room", adm.RoomID, "side", adm.Side)

	s.send(sessionID, protocol.EventJoined, protocol.Joined{
		PlayerID: adm.PlayerID,
		RoomID:   adm.RoomID,
		Side:     adm.Side,
	})
	s.send(sessionID, protocol.EventState, adm.Snapshot)

	if adm.Started {
		s.logger.Info("🏓 match started", "room", adm.RoomID)
		s.broadcast(adm.Members, protocol.EventStarted, nil)
	}
}

// PaddleMove moves the session's paddle and pushes the new state to its room.
// A session without a room is ignored.
func (s *Service) PaddleMove(sessionID string, dir game.Direction) {
	h, ok := s.store.Lookup(sessionID)
	if !ok {
		return
	}

	var (
		snap    game.GameState
		members []string
	)
	h.Do(func(r *game.Room) {
		s.engine.SetPaddle(r, sessionID, dir)
		snap = r.State.Clone()
		members = r.MemberIDs()
	})
	s.broadcast(members, protocol.EventState, snap)
}

// Disconnect unseats the session. Remaining members get playerLeft then the
// stopped state. Unknown sessions are ignored.
func (s *Service) Disconnect(sessionID string) {
	dep, ok := s.store.Remove(sessionID)
	if !ok {
		s.logger.Debug("session closed without a seat", "session", sessionID)
		return
	}

	s.logger.Info("👋 player left", "session", sessionID, "room", dep.RoomID, "roomClosed", dep.Deleted)
	if len(dep.Remaining) == 0 {
		return
	}
	s.broadcast(dep.Remaining, protocol.EventPlayerLeft, nil)
	s.broadcast(dep.Remaining, protocol.EventState, dep.Snapshot)
}

func (s *Service) send(sessionID, event string, data any) {
	frame, err := protocol.Encode(event, data)
	if err != nil {
		s.logger.Error("encode failed", "event", event, "error", err)
		return
	}
	s.sender.Send(sessionID, frame)
}

func (s *Service) broadcast(members []string, event string, data any) {
	frame, err := protocol.Encode(event, data)
	if err != nil {
		s.logger.Error("encode failed", "event", event, "error", err)
		return
	}
	broadcast(s.sender, members, frame)
}

func (s *Service) notify(sessionID, event, msg string) {
	s.send(sessionID, event, protocol.Notice{Message: msg})
}

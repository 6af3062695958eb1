// Package room owns every live room and matches arriving players into them.
package room

import (
	"fmt"
	"sync"

	"pong-arena/internal/game"

	"github.com/google/uuid"
)

// ErrRoomFull is returned by Admit when the chosen room has no free seat.
var ErrRoomFull = game.ErrRoomFull

// Handle guards one room. All reads and writes of the room go through Do.
type Handle struct {
	id   string
	mu   sync.Mutex
	room *game.Room
}

// ID returns the room id. It never changes so no lock is taken.
func (h *Handle) ID() string {
	return h.id
}

// Do runs fn with the room locked. fn must not block or retain the room.
func (h *Handle) Do(fn func(r *game.Room)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(h.room)
}

// Snapshot returns a deep copy of the room's state.
func (h *Handle) Snapshot() game.GameState {
	var snap game.GameState
	h.Do(func(r *game.Room) { snap = r.State.Clone() })
	return snap
}

// Summary is the list view of a room.
type Summary struct {
	ID        string         `json:"id"`
	Players   []string       `json:"players"`
	IsPlaying bool           `json:"isPlaying"`
	Scores    map[string]int `json:"scores"`
}

// Summary returns a copy of the room's list view.
func (h *Handle) Summary() Summary {
	var s Summary
	h.Do(func(r *game.Room) {
		snap := r.State.Clone()
		s = Summary{
			ID:        r.ID,
			Players:   snap.Players,
			IsPlaying: snap.IsPlaying,
			Scores:    snap.Scores,
		}
	})
	return s
}

// Admission describes the seat a player was given.
type Admission struct {
	PlayerID string
	RoomID   string
	Side     game.Side
	// Started is true when this admission filled the room and kicked off play.
	Started  bool
	Members  []string
	Snapshot game.GameState
}

// Departure describes what a leave left behind.
type Departure struct {
	PlayerID  string
	RoomID    string
	Remaining []string
	Snapshot  game.GameState
	// Deleted is true when the room emptied and was dropped from the store.
	Deleted bool
}

// Stats is a point-in-time count across all rooms.
type Stats struct {
	Rooms        int `json:"rooms"`
	PlayingRooms int `json:"playingRooms"`
	Players      int `json:"players"`
}

// Store is the room table and the player to room index.
// Lock order is store, then room.
type Store struct {
	engine *game.Engine
	newID  func() string

	mu      sync.RWMutex
	rooms   map[string]*Handle
	order   []string          // room ids in creation order
	players map[string]string // player id -> room id
}

// NewStore creates an empty store. Rooms are stamped and started with engine.
func NewStore(engine *game.Engine) *Store {
	return &Store{
		engine:  engine,
		newID:   uuid.NewString,
		rooms:   make(map[string]*Handle),
		players: make(map[string]string),
	}
}

// Admit seats playerID in the oldest room with a free seat, or in a new room
// if every room is full. The match starts when the second player sits down.
// A player that is already seated gets its existing seat back.
func (s *Store) Admit(playerID string) (Admission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if roomID, ok := s.players[playerID]; ok {
		return s.rooms[roomID].existingSeat(playerID), nil
	}

	h := s.firstOpenLocked()
	if h == nil {
		h = s.createLocked()
	}

	adm := Admission{PlayerID: playerID, RoomID: h.id}
	var err error
	h.Do(func(r *game.Room) {
		adm.Side, err = r.AddPlayer(playerID)
		if err != nil {
			return
		}
		if len(r.Players) == game.MaxPlayers {
			adm.Started = s.engine.StartMatch(r)
		}
		adm.Members = r.MemberIDs()
		adm.Snapshot = r.State.Clone()
	})
	if err != nil {
		return Admission{}, fmt.Errorf("admit %s: %w", playerID, err)
	}

	s.players[playerID] = h.id
	return adm, nil
}

func (h *Handle) existingSeat(playerID string) Admission {
	adm := Admission{PlayerID: playerID, RoomID: h.id}
	h.Do(func(r *game.Room) {
		if p, ok := r.Player(playerID); ok {
			adm.Side = p.Side
		}
		adm.Members = r.MemberIDs()
		adm.Snapshot = r.State.Clone()
	})
	return adm
}

func (s *Store) firstOpenLocked() *Handle {
	for _, id := range s.order {
		h := s.rooms[id]
		open := false
		h.Do(func(r *game.Room) { open = !r.IsFull() })
		if open {
			return h
		}
	}
	return nil
}

func (s *Store) createLocked() *Handle {
	id := s.newID()
	h := &Handle{id: id, room: game.NewRoom(id, s.engine.Now())}
	s.rooms[id] = h
	s.order = append(s.order, id)
	return h
}

// Remove unseats playerID, stops play in its room and drops the room once
// empty. Returns false and changes nothing if the player is not seated.
func (s *Store) Remove(playerID string) (Departure, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roomID, ok := s.players[playerID]
	if !ok {
		return Departure{}, false
	}
	h := s.rooms[roomID]

	dep := Departure{PlayerID: playerID, RoomID: roomID}
	h.Do(func(r *game.Room) {
		r.RemovePlayer(playerID)
		s.engine.EndMatch(r)
		dep.Remaining = r.MemberIDs()
		dep.Snapshot = r.State.Clone()
	})
	delete(s.players, playerID)

	if len(dep.Remaining) == 0 {
		delete(s.rooms, roomID)
		for i, id := range s.order {
			if id == roomID {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		dep.Deleted = true
	}
	return dep, true
}

// Lookup returns the room playerID is seated in.
func (s *Store) Lookup(playerID string) (*Handle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roomID, ok := s.players[playerID]
	if !ok {
		return nil, false
	}
	return s.rooms[roomID], true
}

// Room returns the room with the given id.
func (s *Store) Room(id string) (*Handle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.rooms[id]
	return h, ok
}

// Rooms returns the live rooms in creation order. The slice is a copy; the
// store lock is released before it is returned.
func (s *Store) Rooms() []*Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Handle, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.rooms[id])
	}
	return out
}

// Stats counts rooms, playing rooms and seated players.
func (s *Store) Stats() Stats {
	var st Stats
	for _, h := range s.Rooms() {
		st.Rooms++
		h.Do(func(r *game.Room) {
			st.Players += len(r.Players)
			if r.State.IsPlaying {
				st.PlayingRooms++
			}
		})
	}
	return st
}

// Summaries lists every live room in creation order.
func (s *Store) Summaries() []Summary {
	handles := s.Rooms()
	out := make([]Summary, 0, len(handles))
	for _, h := range handles {
		out = append(out, h.Summary())
	}
	return out
}

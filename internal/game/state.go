package game

import (
	"fmt"
	"time"
)

// Side is the half of the board a player defends.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Sign is the x direction of travel away from this side: after a bounce off
// its paddle, or on a serve after this side scores.
func (s Side) Sign() float64 {
	if s == SideLeft {
		return 1
	}
	return -1
}

// Paddle is owned by exactly one player. Position is the top-left corner.
type Paddle struct {
	ID       string  `json:"id"`
	Position Vector2 `json:"position"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Side     Side    `json:"side"`
}

// Bounds returns the paddle's collision rectangle.
func (p Paddle) Bounds() Rect {
	return Rect{X: p.Position.X, Y: p.Position.Y, W: p.Width, H: p.Height}
}

// Ball is the single ball of a room.
type Ball struct {
	Position Vector2 `json:"position"`
	Velocity Vector2 `json:"velocity"`
	Radius   float64 `json:"radius"`
}

// Player is a seated member of a room.
type Player struct {
	ID    string `json:"id"`
	Side  Side   `json:"side"`
	Ready bool   `json:"ready"`
}

// GameState is the authoritative, broadcastable snapshot of one room.
// IsPlaying is only ever true while exactly two players are seated.
type GameState struct {
	Paddles    map[string]*Paddle `json:"paddles"`
	Ball       Ball               `json:"ball"`
	Scores     map[string]int     `json:"scores"`
	GameWidth  float64            `json:"gameWidth"`
	GameHeight float64            `json:"gameHeight"`
	IsPlaying  bool               `json:"isPlaying"`
	Players    []string           `json:"players"`
}

// NewGameState returns an empty board with the ball at centre.
func NewGameState() GameState {
	return GameState{
		Paddles: make(map[string]*Paddle),
		Ball: Ball{
			Position: Vector2{X: GameWidth / 2, Y: GameHeight / 2},
			Velocity: Vector2{X: BallSpeed, Y: BallSpeed},
			Radius:   BallRadius,
		},
		Scores:     make(map[string]int),
		GameWidth:  GameWidth,
		GameHeight: GameHeight,
		Players:    make([]string, 0, MaxPlayers),
	}
}

// Clone returns a deep copy that shares no maps, slices or paddles with s.
// Snapshots handed to the network layer must be clones.
func (s GameState) Clone() GameState {
	out := s
	out.Paddles = make(map[string]*Paddle, len(s.Paddles))
	for id, p := range s.Paddles {
		cp := *p
		out.Paddles[id] = &cp
	}
	out.Scores = make(map[string]int, len(s.Scores))
	for id, v := range s.Scores {
		out.Scores[id] = v
	}
	out.Players = append(make([]string, 0, len(s.Players)), s.Players...)
	return out
}

// Room is one independent two-player session.
type Room struct {
	ID         string
	Players    []Player
	State      GameState
	LastUpdate time.Time
}

// NewRoom creates an empty room stamped with now.
func NewRoom(id string, now time.Time) *Room {
	return &Room{
		ID:         id,
		Players:    make([]Player, 0, MaxPlayers),
		State:      NewGameState(),
		LastUpdate: now,
	}
}

// IsFull reports whether both seats are taken.
func (r *Room) IsFull() bool {
	return len(r.Players) >= MaxPlayers
}

// Player returns the seated player with the given id.
func (r *Room) Player(id string) (Player, bool) {
	for _, p := range r.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// PlayerOn returns the player defending side.
func (r *Room) PlayerOn(side Side) (Player, bool) {
	for _, p := range r.Players {
		if p.Side == side {
			return p, true
		}
	}
	return Player{}, false
}

// MemberIDs returns a copy of the seated player ids in arrival order.
func (r *Room) MemberIDs() []string {
	ids := make([]string, len(r.Players))
	for i, p := range r.Players {
		ids[i] = p.ID
	}
	return ids
}

// AddPlayer seats id on the next free side and gives it a paddle and a score.
// Arrival order decides the side: first is left, second is right. A player
// refilling a room takes whichever side the leaver vacated.
func (r *Room) AddPlayer(id string) (Side, error) {
	if r.IsFull() {
		return "", fmt.Errorf("room %s: %w", r.ID, ErrRoomFull)
	}

	side := SideLeft
	if _, taken := r.PlayerOn(SideLeft); taken {
		side = SideRight
	}

	r.Players = append(r.Players, Player{ID: id, Side: side})
	r.State.Players = append(r.State.Players, id)

	x := float64(PaddleMargin)
	if side == SideRight {
		x = GameWidth - PaddleMargin - PaddleWidth
	}
	r.State.Paddles[id] = &Paddle{
		ID:       id,
		Position: Vector2{X: x, Y: GameHeight/2 - PaddleHeight/2},
		Width:    PaddleWidth,
		Height:   PaddleHeight,
		Side:     side,
	}
	r.State.Scores[id] = 0

	return side, nil
}

// RemovePlayer drops id's seat, paddle and score and stops play.
// Returns false if id was not seated.
func (r *Room) RemovePlayer(id string) bool {
	idx := -1
	for i, p := range r.Players {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	r.Players = append(r.Players[:idx], r.Players[idx+1:]...)
	for i, pid := range r.State.Players {
		if pid == id {
			r.State.Players = append(r.State.Players[:i], r.State.Players[i+1:]...)
			break
		}
	}
	delete(r.State.Paddles, id)
	delete(r.State.Scores, id)
	r.State.IsPlaying = false
	return true
}

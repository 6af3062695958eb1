package game

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Board and physics constants. These are fixed parameters of the simulation,
// not runtime configuration.
const (
	GameWidth    = 800.0
	GameHeight   = 400.0
	PaddleWidth  = 10.0
	PaddleHeight = 80.0
	PaddleMargin = 20.0 // gap between a paddle and its goal line
	BallRadius   = 8.0
	PaddleSpeed  = 6.0 // units per move command
	BallSpeed    = 4.0 // units per nominal frame

	MaxPlayers = 2

	// FrameInterval is one nominal 60 Hz frame. Velocities are expressed per frame.
	FrameInterval = 16670 * time.Microsecond
	// TickInterval is the scheduler period.
	TickInterval = FrameInterval
	// MaxDeltaTime caps how many frames a single advance may integrate,
	// so a stalled process cannot tunnel the ball through a paddle.
	MaxDeltaTime = 2.0

	MaxBounceAngle = math.Pi / 3 // deflection span across the paddle face
	ServeSpread    = 0.5         // serve angle is uniform in ±ServeSpread/2 radians
)

// ErrRoomFull is returned when a third player is seated in a room.
var ErrRoomFull = errors.New("room is full")

// Direction is a paddle move command.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// ParseDirection validates a raw direction from the wire.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(s) {
	case DirectionUp, DirectionDown:
		return Direction(s), true
	}
	return "", false
}

// Rand is the engine's only source of nondeterminism (serve side and angle).
type Rand interface {
	Float64() float64
}

// Engine advances rooms. It holds no room state of its own: every call
// receives the room it mutates and keeps no reference to it afterwards.
// Callers serialise access to a given room.
type Engine struct {
	rngMu sync.Mutex
	rng   Rand
	clock func() time.Time
}

// NewEngine creates an engine. A nil rng seeds one from the wall clock;
// a nil clock uses time.Now.
func NewEngine(rng Rand, clock func() time.Time) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if clock == nil {
		clock = time.Now
	}
	return &Engine{rng: rng, clock: clock}
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	return e.clock()
}

func (e *Engine) random() float64 {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Float64()
}

// Advance steps room's simulation to now.
// It is a no-op, including for LastUpdate, unless the room is playing with
// two players, so a restarted match does not integrate the idle gap.
func (e *Engine) Advance(room *Room, now time.Time) {
	state := &room.State
	if !state.IsPlaying || len(room.Players) < MaxPlayers {
		return
	}

	dt := Clamp(float64(now.Sub(room.LastUpdate))/float64(FrameInterval), 0, MaxDeltaTime)

	ball := &state.Ball
	ball.Position = ball.Position.Add(ball.Velocity.Scale(dt))

	// Walls: elastic, only the vertical component flips
	if ball.Position.Y <= ball.Radius || ball.Position.Y >= state.GameHeight-ball.Radius {
		ball.Velocity = ReflectVertical(ball.Velocity)
		ball.Position.Y = Clamp(ball.Position.Y, ball.Radius, state.GameHeight-ball.Radius)
	}

	e.resolvePaddles(state)
	e.resolveScoring(room)

	room.LastUpdate = now
}

// resolvePaddles bounces the ball off the first paddle it is moving into.
// At most one collision is resolved per call.
func (e *Engine) resolvePaddles(state *GameState) {
	ball := &state.Ball

	for _, id := range state.Players {
		paddle, ok := state.Paddles[id]
		if !ok || !movingToward(*ball, paddle.Side) {
			continue
		}
		if !CircleRectCollision(*ball, paddle.Bounds()) {
			continue
		}

		hit := Clamp((ball.Position.Y-paddle.Position.Y)/paddle.Height, 0, 1)
		angle := (hit - 0.5) * MaxBounceAngle

		// Speed comes from the incoming velocity, not BallSpeed
		speed := ball.Velocity.Length()
		ball.Velocity = Vector2{
			X: paddle.Side.Sign() * speed * math.Cos(angle),
			Y: speed * math.Sin(angle),
		}

		// Clear the paddle so the next frame does not re-trigger
		if paddle.Side == SideLeft {
			ball.Position.X = paddle.Position.X + paddle.Width + ball.Radius + 1
		} else {
			ball.Position.X = paddle.Position.X - ball.Radius - 1
		}
		return
	}
}

// movingToward gates paddle tests so a ball retreating from a hit is ignored.
func movingToward(b Ball, side Side) bool {
	if side == SideLeft {
		return b.Velocity.X < 0
	}
	return b.Velocity.X > 0
}

func (e *Engine) resolveScoring(room *Room) {
	state := &room.State
	ball := &state.Ball

	var scorer Side
	switch {
	case ball.Position.X < -ball.Radius:
		scorer = SideRight
	case ball.Position.X > state.GameWidth+ball.Radius:
		scorer = SideLeft
	default:
		return
	}

	p, ok := room.PlayerOn(scorer)
	if !ok {
		return
	}
	state.Scores[p.ID]++
	e.serve(state, scorer)
}

// serve recentres the ball and launches it toward the side that did not score.
func (e *Engine) serve(state *GameState, lastScorer Side) {
	ball := &state.Ball
	ball.Position = Vector2{X: state.GameWidth / 2, Y: state.GameHeight / 2}

	angle := (e.random() - 0.5) * ServeSpread
	ball.Velocity = Vector2{
		X: BallSpeed * lastScorer.Sign() * math.Cos(angle),
		Y: BallSpeed * math.Sin(angle),
	}
}

// SetPaddle moves playerID's paddle one step and clamps it to the board.
// Unknown players and directions are ignored.
func (e *Engine) SetPaddle(room *Room, playerID string, dir Direction) {
	paddle, ok := room.State.Paddles[playerID]
	if !ok {
		return
	}

	var step float64
	switch dir {
	case DirectionUp:
		step = -PaddleSpeed
	case DirectionDown:
		step = PaddleSpeed
	default:
		return
	}
	paddle.Position.Y = Clamp(paddle.Position.Y+step, 0, room.State.GameHeight-paddle.Height)
}

// StartMatch begins play when exactly two players are seated.
// Returns false if the room cannot start.
func (e *Engine) StartMatch(room *Room) bool {
	if len(room.Players) != MaxPlayers {
		return false
	}

	room.State.IsPlaying = true
	room.LastUpdate = e.clock()

	first := SideRight
	if e.random() > 0.5 {
		first = SideLeft
	}
	e.serve(&room.State, first)
	return true
}

// EndMatch stops play. Safe to call repeatedly.
func (e *Engine) EndMatch(room *Room) {
	room.State.IsPlaying = false
}

package match

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"pong-arena/internal/game"
	"pong-arena/internal/logging"
	"pong-arena/internal/protocol"
)

func TestTickBroadcastsPlayingRoomsOnly(t *testing.T) {
	f := newFixture()
	sched := NewScheduler(f.store, f.engine, f.sender, logging.Discard())

	f.service.Join("a1")
	f.service.Join("a2") // playing
	f.service.Join("b1") // waiting alone
	for _, id := range []string{"a1", "a2", "b1"} {
		f.sender.events(id)
	}

	sched.Tick(epoch.Add(game.FrameInterval))

	for _, id := range []string{"a1", "a2"} {
		if got := f.sender.events(id); !equalEvents(got, []string{"state"}) {
			t.Errorf("%s got %v, want [state]", id, got)
		}
	}
	if got := f.sender.events("b1"); len(got) != 0 {
		t.Errorf("waiting player got %v, want nothing", got)
	}
}

// TestTickAdvancesBall checks the broadcast snapshot reflects the step
func TestTickAdvancesBall(t *testing.T) {
	f := newFixture()
	sched := NewScheduler(f.store, f.engine, f.sender, logging.Discard())
	f.service.Join("a1")
	f.service.Join("a2")

	sched.Tick(epoch.Add(game.FrameInterval))

	env := f.sender.last("a1")
	var state game.GameState
	if err := json.Unmarshal(env.Data, &state); err != nil {
		t.Fatalf("state payload: %v", err)
	}
	// rand 0.5 serves straight at the left paddle at BallSpeed
	if want := game.GameWidth/2 - game.BallSpeed; state.Ball.Position.X != want {
		t.Errorf("ball x = %v, want %v", state.Ball.Position.X, want)
	}
	if !state.IsPlaying {
		t.Error("broadcast state should be playing")
	}
}

// TestEndToEndCentredHit runs ticks until the serve comes back off the paddle
func TestEndToEndCentredHit(t *testing.T) {
	f := newFixture()
	sched := NewScheduler(f.store, f.engine, f.sender, logging.Discard())
	f.service.Join("a1")
	f.service.Join("a2")

	now := epoch
	var state game.GameState
	for i := 0; i < 200; i++ {
		now = now.Add(game.FrameInterval)
		sched.Tick(now)
		if err := json.Unmarshal(f.sender.last("a1").Data, &state); err != nil {
			t.Fatalf("state payload: %v", err)
		}
		if state.Ball.Velocity.X > 0 {
			break
		}
	}

	if state.Ball.Velocity.X != game.BallSpeed || state.Ball.Velocity.Y != 0 {
		t.Errorf("after paddle hit v = %+v, want {%v 0}", state.Ball.Velocity, game.BallSpeed)
	}
	if state.Scores["a1"] != 0 || state.Scores["a2"] != 0 {
		t.Errorf("scores = %v, want no points", state.Scores)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture()
	sched := NewScheduler(f.store, f.engine, f.sender, logging.Discard())
	sched.interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	f.service.Join("a1")
	f.service.Join("a2")
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	f.sender.mu.Lock()
	n := 0
	for _, env := range f.sender.frames["a1"] {
		if env.Event == protocol.EventState {
			n++
		}
	}
	f.sender.mu.Unlock()
	if n < 2 {
		t.Errorf("a1 got %d state frames, want the join state plus ticks", n)
	}
}

package match

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"pong-arena/internal/game"
	"pong-arena/internal/logging"
	"pong-arena/internal/protocol"
	"pong-arena/internal/room"
)

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// fakeSender records every frame per session
type fakeSender struct {
	mu     sync.Mutex
	frames map[string][]protocol.Envelope
}

func newFakeSender() *fakeSender {
	return &fakeSender{frames: make(map[string][]protocol.Envelope)}
}

func (f *fakeSender) Send(sessionID string, frame []byte) {
	env, err := protocol.Decode(frame)
	if err != nil {
		panic("service produced an undecodable frame: " + string(frame))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames[sessionID] = append(f.frames[sessionID], env)
}

// events returns the event names sent to sessionID and clears them.
func (f *fakeSender) events(sessionID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, env := range f.frames[sessionID] {
		out = append(out, env.Event)
	}
	delete(f.frames, sessionID)
	return out
}

// last returns the most recent frame sent to sessionID.
func (f *fakeSender) last(sessionID string) protocol.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	frames := f.frames[sessionID]
	if len(frames) == 0 {
		return protocol.Envelope{}
	}
	return frames[len(frames)-1]
}

type fixture struct {
	store   *room.Store
	engine  *game.Engine
	sender  *fakeSender
	service *Service
}

func newFixture() *fixture {
	engine := game.NewEngine(fixedRand(0.5), func() time.Time { return epoch })
	store := room.NewStore(engine)
	sender := newFakeSender()
	return &fixture{
		store:   store,
		engine:  engine,
		sender:  sender,
		service: NewService(store, engine, sender, logging.Discard()),
	}
}

func equalEvents(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestJoinEvents(t *testing.T) {
	f := newFixture()

	f.service.Join("s1")
	if got := f.sender.events("s1"); !equalEvents(got, []string{"joined", "state"}) {
		t.Errorf("s1 after own join: %v", got)
	}

	f.service.Join("s2")
	if got := f.sender.events("s1"); !equalEvents(got, []string{"started"}) {
		t.Errorf("s1 after s2 join: %v", got)
	}
	if got := f.sender.events("s2"); !equalEvents(got, []string{"joined", "state", "started"}) {
		t.Errorf("s2 after own join: %v", got)
	}
}

func TestJoinedPayload(t *testing.T) {
	f := newFixture()
	f.service.Join("s1")

	f.sender.mu.Lock()
	env := f.sender.frames["s1"][0]
	f.sender.mu.Unlock()

	var joined protocol.Joined
	if err := json.Unmarshal(env.Data, &joined); err != nil {
		t.Fatalf("joined payload: %v", err)
	}
	if joined.PlayerID != "s1" || joined.Side != game.SideLeft || joined.RoomID == "" {
		t.Errorf("joined = %+v", joined)
	}
	if h, ok := f.store.Lookup("s1"); !ok || h.ID() != joined.RoomID {
		t.Error("joined room id does not match the store")
	}
}

func TestPaddleMoveBroadcasts(t *testing.T) {
	f := newFixture()
	f.service.Join("s1")
	f.service.Join("s2")
	f.sender.events("s1")
	f.sender.events("s2")

	f.service.PaddleMove("s1", game.DirectionUp)

	for _, id := range []string{"s1", "s2"} {
		env := f.sender.last(id)
		if env.Event != protocol.EventState {
			t.Fatalf("%s got %q, want state", id, env.Event)
		}
		var state game.GameState
		if err := json.Unmarshal(env.Data, &state); err != nil {
			t.Fatalf("state payload: %v", err)
		}
		want := game.GameHeight/2 - game.PaddleHeight/2 - game.PaddleSpeed
		if got := state.Paddles["s1"].Position.Y; got != want {
			t.Errorf("%s sees paddle y=%v, want %v", id, got, want)
		}
	}
}

func TestPaddleMoveWithoutRoomIgnored(t *testing.T) {
	f := newFixture()
	f.service.PaddleMove("ghost", game.DirectionDown)
	if got := f.sender.events("ghost"); len(got) != 0 {
		t.Errorf("ghost got %v, want nothing", got)
	}
}

func TestDisconnect(t *testing.T) {
	f := newFixture()
	f.service.Join("s1")
	f.service.Join("s2")
	f.sender.events("s1")
	f.sender.events("s2")

	f.service.Disconnect("s1")

	if got := f.sender.events("s2"); !equalEvents(got, []string{"playerLeft", "state"}) {
		t.Errorf("s2 after s1 left: %v", got)
	}
	if got := f.sender.events("s1"); len(got) != 0 {
		t.Errorf("leaver got %v", got)
	}

	h, ok := f.store.Lookup("s2")
	if !ok {
		t.Fatal("s2 lost its seat")
	}
	if h.Snapshot().IsPlaying {
		t.Error("room still playing after a leave")
	}

	// Unknown and repeated disconnects are no-ops
	f.service.Disconnect("s1")
	f.service.Disconnect("nobody")
	if got := f.sender.events("s2"); len(got) != 0 {
		t.Errorf("s2 got %v after no-op disconnects", got)
	}

	f.service.Disconnect("s2")
	if len(f.store.Rooms()) != 0 {
		t.Error("empty room was not removed")
	}
}

func TestHandleFrame(t *testing.T) {
	tests := []struct {
		name       string
		frame      string
		wantErr    bool
		wantEvents []string
	}{
		{"join", `{"event":"join"}`, false, []string{"joined", "state"}},
		{"not json", `{{{`, true, []string{"error"}},
		{"missing event", `{"data":"up"}`, true, []string{"error"}},
		{"bad direction", `{"event":"paddleMove","data":"left"}`, true, []string{"error"}},
		{"unknown event", `{"event":"cheat","data":1}`, false, nil},
		// Valid move from a session with no room is dropped silently
		{"move without room", `{"event":"paddleMove","data":"up"}`, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			err := f.service.HandleFrame("s1", []byte(tt.frame))
			if tt.wantErr != (err != nil) {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, protocol.ErrMalformed) {
				t.Errorf("err = %v, want ErrMalformed", err)
			}
			if got := f.sender.events("s1"); !equalEvents(got, tt.wantEvents) {
				t.Errorf("events = %v, want %v", got, tt.wantEvents)
			}
		})
	}
}

// TestMalformedFrameDoesNotMutate checks a bad move leaves the paddle alone
func TestMalformedFrameDoesNotMutate(t *testing.T) {
	f := newFixture()
	f.service.Join("s1")
	h, _ := f.store.Lookup("s1")
	before := h.Snapshot().Paddles["s1"].Position

	f.service.HandleFrame("s1", []byte(`{"event":"paddleMove","data":"sideways"}`))
	f.service.HandleFrame("s1", []byte(`{"event":"paddleMove","data":7}`))

	if after := h.Snapshot().Paddles["s1"].Position; after != before {
		t.Errorf("paddle moved from %+v to %+v", before, after)
	}
}

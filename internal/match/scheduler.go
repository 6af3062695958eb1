package match

import (
	"context"
	"time"

	"pong-arena/internal/game"
	"pong-arena/internal/observability"
	"pong-arena/internal/protocol"
	"pong-arena/internal/room"

	"github.com/charmbracelet/log"
)

// Scheduler advances every room at a fixed rate and broadcasts the
// snapshots of rooms that are playing.
type Scheduler struct {
	store    *room.Store
	engine   *game.Engine
	sender   Sender
	logger   *log.Logger
	interval time.Duration
}

// NewScheduler creates a scheduler ticking at game.TickInterval.
func NewScheduler(store *room.Store, engine *game.Engine, sender Sender, logger *log.Logger) *Scheduler {
	return &Scheduler{
		store:    store,
		engine:   engine,
		sender:   sender,
		logger:   logger,
		interval: game.TickInterval,
	}
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("⏱️ tick loop started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("⏱️ tick loop stopped")
			return
		case <-ticker.C:
			start := time.Now()
			s.Tick(s.engine.Now())
			observability.RecordTick(time.Since(start), s.interval)
		}
	}
}

// Tick advances each room to now. Each room is locked only while it is
// stepped and copied; frames are encoded and sent after the unlock.
func (s *Scheduler) Tick(now time.Time) {
	var rooms, playing, players int

	for _, h := range s.store.Rooms() {
		var (
			snap    game.GameState
			members []string
			live    bool
		)
		h.Do(func(r *game.Room) {
			s.engine.Advance(r, now)
			players += len(r.Players)
			if r.State.IsPlaying {
				live = true
				snap = r.State.Clone()
				members = r.MemberIDs()
			}
		})
		rooms++
		if !live {
			continue
		}
		playing++

		frame, err := protocol.Encode(protocol.EventState, snap)
		if err != nil {
			s.logger.Error("encode failed", "room", h.ID(), "error", err)
			continue
		}
		broadcast(s.sender, members, frame)
	}

	observability.UpdateRoomCounts(rooms, playing, players)
}

package render

import (
	"context"
	"log/slog"
	"time"

	"github.com/df-mc/dragonfly/server/world"
)

// Loop periodically re-sends the crack animation of all tracked spawners. A Loop is started once per plugin
// lifetime and stops when the context passed to Run is cancelled.
type Loop struct {
	b        *Broadcaster
	interval time.Duration
	log      *slog.Logger
}

// NewLoop returns a Loop broadcasting through b every interval.
func NewLoop(b *Broadcaster, interval time.Duration, log *slog.Logger) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Loop{b: b, interval: interval, log: log}
}

// Run blocks, broadcasting every interval until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.log.Debug("Render loop started.", "interval", l.interval)
	for {
		select {
		case <-ctx.Done():
			l.log.Debug("Render loop stopped.")
			return
		case <-ticker.C:
			l.Cycle(ctx)
		}
	}
}

// Cycle performs a single broadcast over every world with tracked spawners. The broadcast itself runs inside a
// transaction of each world.
func (l *Loop) Cycle(ctx context.Context) {
	for _, w := range l.b.reg.Worlds() {
		if w == nil {
			l.b.metrics.AddSkipped(1)
			continue
		}
		done := w.Exec(func(tx *world.Tx) {
			l.b.Broadcast(tx)
		})
		select {
		case <-done:
		case <-ctx.Done():
			return
		}
	}
	l.b.metrics.IncCycles()
}

package render

import (
	"time"

	"github.com/df-mc/dragonfly/server/block"
	"github.com/df-mc/dragonfly/server/world"
)

// DefaultInterval is the time between two periodic broadcasts of all tracked spawners.
const DefaultInterval = 15 * time.Second

// CrackDuration returns the time the client takes to crack a block completely for the tier passed. Each
// broadcast restarts the animation, so within one interval the crack progresses to (tier+1)/10 of a full
// break before it is restarted.
func CrackDuration(tier int, interval time.Duration) time.Duration {
	if interval <= 0 {
		interval = DefaultInterval
	}
	tier = min(max(tier, 0), 9)
	return interval * 10 / time.Duration(tier+1)
}

// Broadcaster sends the crack animation of tracked spawners to the viewers of their blocks.
type Broadcaster struct {
	reg      *Registry
	metrics  *Metrics
	interval time.Duration
}

// NewBroadcaster returns a Broadcaster sending the keys of reg. metrics may be nil.
func NewBroadcaster(reg *Registry, metrics *Metrics, interval time.Duration) *Broadcaster {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Broadcaster{reg: reg, metrics: metrics, interval: interval}
}

// Registry returns the registry the Broadcaster reads keys from.
func (b *Broadcaster) Registry() *Registry {
	return b.reg
}

// Broadcast sends the animation of every key tracked in the world of tx. It returns the number of crack
// actions sent.
func (b *Broadcaster) Broadcast(tx *world.Tx) int {
	sent := 0
	for _, e := range b.reg.Entries(tx.World()) {
		sent += b.send(tx, e)
	}
	return sent
}

// BroadcastEntry sends the animation of a single entry. Entries of other worlds than that of tx are ignored.
func (b *Broadcaster) BroadcastEntry(tx *world.Tx, e Entry) int {
	if e.World != tx.World() {
		return 0
	}
	return b.send(tx, e)
}

func (b *Broadcaster) send(tx *world.Tx, e Entry) int {
	pos := e.Pos()
	action := block.StartCrackAction{BreakTime: CrackDuration(e.Tier, b.interval)}
	sent := 0
	for _, v := range tx.Viewers(pos.Vec3Centre()) {
		v.ViewBlockAction(pos, action)
		sent++
	}
	b.metrics.AddActions(uint64(sent))
	return sent
}

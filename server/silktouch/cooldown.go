package silktouch

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// hologramToggleCooldown is the time a player must wait between two hologram toggles.
	hologramToggleCooldown = 7500 * time.Millisecond
	// messageCooldown is the time before a repeated warning is sent to the same player again.
	messageCooldown = 5 * time.Second
)

type cooldownKey struct {
	id    uuid.UUID
	scope string
}

// Cooldowns tracks the last time players performed rate limited actions. Cooldowns is safe for concurrent
// use.
type Cooldowns struct {
	mu   sync.Mutex
	last map[cooldownKey]time.Time
	now  func() time.Time
}

// NewCooldowns returns an empty Cooldowns.
func NewCooldowns() *Cooldowns {
	return &Cooldowns{last: make(map[cooldownKey]time.Time), now: time.Now}
}

// Try reports if the player with the UUID passed may perform the action of scope, which is the case if they
// did not do so in the last d. If it returns true, the action is recorded.
func (c *Cooldowns) Try(id uuid.UUID, scope string, d time.Duration) bool {
	now := c.now()
	key := cooldownKey{id: id, scope: scope}

	c.mu.Lock()
	defer c.mu.Unlock()
	if last, ok := c.last[key]; ok && now.Sub(last) <= d {
		return false
	}
	c.last[key] = now
	return true
}

// Forget removes every cooldown of the player with the UUID passed.
func (c *Cooldowns) Forget(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.last {
		if key.id == id {
			delete(c.last, key)
		}
	}
}

package notify

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"budgetwatch/internal/logger"
)

// DefaultCooldownCapacity is used when NewCooldown is given a non-positive capacity.
const DefaultCooldownCapacity = 100000

// Cooldown remembers which (budget, status) pairs were alerted recently.
type Cooldown struct {
	cache  *ristretto.Cache[string, struct{}]
	window time.Duration
}

// NewCooldown creates a cooldown that suppresses repeats for window and
// tracks up to capacity pairs at a time.
func NewCooldown(window time.Duration, capacity int) (*Cooldown, error) {
	if capacity < 1 {
		capacity = DefaultCooldownCapacity
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, struct{}]{
		NumCounters: int64(capacity) * 10, // number of keys to track frequency of
		MaxCost:     int64(capacity),
		BufferItems: 64, // number of keys per Get buffer
		// Each pair costs exactly 1 so MaxCost is a pair count.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &Cooldown{cache: cache, window: window}, nil
}

func cooldownKey(budgetID, status string) string {
	return budgetID + ":" + status
}

// Active reports whether an alert for budgetID in status went out within the window.
func (c *Cooldown) Active(budgetID, status string) bool {
	_, ok := c.cache.Get(cooldownKey(budgetID, status))
	return ok
}

// Record starts the window for budgetID in status. A pair the cache refuses
// is logged and will be alerted again on the next evaluation.
func (c *Cooldown) Record(budgetID, status string) {
	if !c.cache.SetWithTTL(cooldownKey(budgetID, status), struct{}{}, 1, c.window) {
		logger.Get().Warnw("alert cooldown dropped entry", "budget_id", budgetID, "status", status)
		return
	}
	c.cache.Wait()
}

// Close stops the cache's background goroutines.
func (c *Cooldown) Close() {
	c.cache.Close()
}

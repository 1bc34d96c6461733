// Package idle decides when the box has been idle long enough to power down.
package idle

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// ShouldShutdown reports whether the time since lastActivity has reached
// threshold. A threshold of zero or less disables shutdown.
func ShouldShutdown(now, lastActivity time.Time, threshold time.Duration) bool {
	return threshold > 0 && now.Sub(lastActivity) >= threshold
}

// Action is run when the idle threshold is reached.
type Action func(ctx context.Context) error

// Guard fires its action exactly once after the idle threshold is reached.
type Guard struct {
	threshold time.Duration
	action    Action
	once      sync.Once
}

// NewGuard creates a Guard. A nil action only logs.
func NewGuard(threshold time.Duration, action Action) *Guard {
	return &Guard{threshold: threshold, action: action}
}

// Due reports whether the shutdown is due.
func (g *Guard) Due(now, lastActivity time.Time) bool {
	if g == nil {
		return false
	}
	return ShouldShutdown(now, lastActivity, g.threshold)
}

// Fire runs the action once. Later calls do nothing.
func (g *Guard) Fire(ctx context.Context) {
	g.once.Do(func() {
		zlog.Info().Msgf("idle: no activity for %s, shutting down", g.threshold)
		if g.action == nil {
			return
		}
		if err := g.action(ctx); err != nil {
			zlog.Error().Msgf("idle: shutdown action failed: %v", err)
		}
	})
}

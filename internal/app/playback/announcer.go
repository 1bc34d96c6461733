package playback

import (
	"context"
	"os"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// Announcement names a short clip played on a state change.
type Announcement string

const (
	AnnounceStart    Announcement = "start"
	AnnounceFound    Announcement = "found"
	AnnounceInvalid  Announcement = "invalid"
	AnnounceStop     Announcement = "stop"
	AnnounceShutdown Announcement = "shutdown"
)

// Announcer plays announcements. Announce blocks until the clip is done.
type Announcer interface {
	Announce(ctx context.Context, a Announcement)
}

type silentAnnouncer struct{}

func (silentAnnouncer) Announce(ctx context.Context, a Announcement) {}

// ClipAnnouncer plays announcement clips through the player.
type ClipAnnouncer struct {
	player  Player
	clips   map[Announcement]string
	poll    time.Duration
	timeout time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewClipAnnouncer creates a ClipAnnouncer. Clips that are configured but
// missing on disk are reported once here.
func NewClipAnnouncer(player Player, clips map[Announcement]string) *ClipAnnouncer {
	for name, path := range clips {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			zlog.Warn().Msgf("announcer: clip %q not found: %s", name, path)
		}
	}
	return &ClipAnnouncer{
		player:  player,
		clips:   clips,
		poll:    50 * time.Millisecond,
		timeout: 30 * time.Second,
		sleep:   sleepContext,
	}
}

// Announce plays the clip for a and waits for it to finish.
func (a *ClipAnnouncer) Announce(ctx context.Context, name Announcement) {
	path := a.clips[name]
	if path == "" {
		return
	}
	zlog.Debug().Msgf("announcer: playing %s", name)

	if err := a.player.Load(path); err != nil {
		zlog.Warn().Msgf("announcer: failed to load %s: %v", name, err)
		return
	}
	if err := a.player.Play(); err != nil {
		zlog.Warn().Msgf("announcer: failed to play %s: %v", name, err)
		return
	}

	for waited := time.Duration(0); waited < a.timeout; waited += a.poll {
		state, err := a.player.State()
		if err != nil || !(state == PlayerOpening || state.Active()) {
			return
		}
		if a.sleep(ctx, a.poll) != nil {
			break
		}
	}
	_ = a.player.Stop()
}

// sleepContext sleeps for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

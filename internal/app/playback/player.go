package playback

import "time"

// PlayerState is the state reported by the media player.
type PlayerState int

const (
	PlayerIdle    PlayerState = iota // Nothing loaded or stopped before playing
	PlayerOpening                    // Loading or buffering
	PlayerPlaying
	PlayerPaused
	PlayerEnded // Track played to the end
	PlayerError // Playback failed
)

// String returns the string representation of the player state.
func (s PlayerState) String() string {
	switch s {
	case PlayerIdle:
		return "idle"
	case PlayerOpening:
		return "opening"
	case PlayerPlaying:
		return "playing"
	case PlayerPaused:
		return "paused"
	case PlayerEnded:
		return "ended"
	case PlayerError:
		return "error"
	default:
		return "unknown"
	}
}

// Active reports whether a track is loaded and running.
func (s PlayerState) Active() bool {
	return s == PlayerPlaying || s == PlayerPaused
}

// Player is the media engine boundary.
type Player interface {
	Load(locator string) error
	Play() error
	Stop() error
	Seek(d time.Duration) error
	SetVolume(volume int) error
	State() (PlayerState, error)
	Position() (time.Duration, error)
	Length() (time.Duration, error)
	Close() error
}

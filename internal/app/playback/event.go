package playback

import "github.com/osa030/tagbox/internal/domain/track"

// EventType represents a playback event type.
type EventType int

const (
	EventSessionStarted     EventType = iota // Queue built for a token
	EventTrackStarted                        // Track started playing
	EventTrackEnded                          // Track finished playing
	EventTrackSkipped                        // Track was skipped
	EventTrackFailed                         // Track could not be resolved or played
	EventSessionFinished                     // Queue played to the end
	EventSessionInterrupted                  // Session stopped before the end
	EventShutdown                            // Idle shutdown fired
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventSessionStarted:
		return "session_started"
	case EventTrackStarted:
		return "track_started"
	case EventTrackEnded:
		return "track_ended"
	case EventTrackSkipped:
		return "track_skipped"
	case EventTrackFailed:
		return "track_failed"
	case EventSessionFinished:
		return "session_finished"
	case EventSessionInterrupted:
		return "session_interrupted"
	case EventShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type      EventType
	SessionID string
	Token     string
	Track     *track.Track // Current track (nil for session events)
	Index     int          // Queue position of Track
	Phase     Phase        // Phase after the event
}

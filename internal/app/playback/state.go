// Package playback drives a playlist through the media player while tracking
// the token that started it.
package playback

// Phase represents the session phase.
type Phase int

const (
	PhaseIdle        Phase = iota // Waiting for a valid token
	PhaseStarting                 // Building the queue for a new token
	PhasePlaying                  // Playing the queue
	PhaseFinished                 // Queue played to the end
	PhaseInterrupted              // Stopped by removal, swap or disable
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseStarting:
		return "starting"
	case PhasePlaying:
		return "playing"
	case PhaseFinished:
		return "finished"
	case PhaseInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

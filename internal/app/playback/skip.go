package playback

import "sync/atomic"

// SkipSignal is a pending skip request set by a button or signal handler.
// The controller consumes it at its next player poll.
type SkipSignal struct {
	pending atomic.Bool
}

// Request asks the controller to skip the current track.
func (s *SkipSignal) Request() {
	s.pending.Store(true)
}

// Pending reports whether a skip is waiting to be consumed.
func (s *SkipSignal) Pending() bool {
	return s.pending.Load()
}

func (s *SkipSignal) take() bool {
	return s.pending.Swap(false)
}

func (s *SkipSignal) clear() {
	s.pending.Store(false)
}

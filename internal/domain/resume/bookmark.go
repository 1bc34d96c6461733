// Package resume provides the resume bookmark kept across interruptions.
package resume

import (
	"strings"
	"time"
)

// Bookmark remembers where an interrupted playlist stopped.
type Bookmark struct {
	Token    string        // Token the playlist was started with
	Index    int           // Queue position of the interrupted track
	Offset   time.Duration // Position inside the interrupted track
	Shuffled bool          // Queue was shuffled with Seed
	Seed     int64
}

// Matches reports whether the bookmark belongs to token (case-insensitive).
func (b *Bookmark) Matches(token string) bool {
	return b != nil && strings.EqualFold(b.Token, token)
}

// SeekTarget returns where to seek when resuming: backoff before the saved
// offset, never negative.
func (b *Bookmark) SeekTarget(backoff time.Duration) time.Duration {
	if b == nil || b.Offset <= backoff {
		return 0
	}
	return b.Offset - backoff
}

package playback

import (
	"time"

	"github.com/google/uuid"

	"github.com/osa030/tagbox/internal/app/token"
	"github.com/osa030/tagbox/internal/domain/playlist"
	"github.com/osa030/tagbox/internal/domain/resume"
	"github.com/osa030/tagbox/internal/domain/track"
)

// Session is the state of one playlist sitting. It is an immutable value:
// every transition returns a new Session.
type Session struct {
	ID       string
	Token    string
	Playlist string // Name of the matched playlist
	Params   token.Params
	Queue    []track.Track
	Index    int           // Queue position of the current track
	Offset   time.Duration // Position inside the current track
	Seek     time.Duration // Seek applied when the current track starts
	Shuffled bool
	Seed     int64
	Halted   bool
}

// newSession builds the queue for ev from pl, resuming from memory when it
// belongs to the same token.
func newSession(ev token.Event, pl playlist.Playlist, memory *resume.Bookmark, backoff time.Duration) Session {
	s := Session{
		ID:       uuid.NewString(),
		Token:    ev.Token,
		Playlist: pl.Name,
		Params:   ev.Params,
		Queue:    pl.Tracks,
	}

	same := memory.Matches(ev.Token)

	if ev.Params.Shuffle {
		s.Shuffled = true
		if same && memory.Shuffled {
			s.Seed = memory.Seed
		} else {
			s.Seed = playlist.NewSeed()
		}
		s.Queue = playlist.Shuffled(pl.Tracks, s.Seed)
	}

	if same && memory.Index >= 0 && memory.Index < len(s.Queue) && memory.Shuffled == s.Shuffled {
		s.Index = memory.Index
		s.Offset = memory.Offset
		s.Seek = memory.SeekTarget(backoff)
	}
	return s
}

// Current returns the track at the queue position.
func (s Session) Current() (track.Track, bool) {
	if s.Index < 0 || s.Index >= len(s.Queue) {
		return track.Track{}, false
	}
	return s.Queue[s.Index], true
}

// Next returns the track after the current one.
func (s Session) Next() (track.Track, bool) {
	i := s.Index + 1
	if i >= len(s.Queue) {
		return track.Track{}, false
	}
	return s.Queue[i], true
}

// Done reports whether the queue has been played to the end.
func (s Session) Done() bool {
	return s.Index >= len(s.Queue)
}

// Advance moves to the next track. Only the first resumed track is seeked.
func (s Session) Advance() Session {
	s.Index++
	s.Offset = 0
	s.Seek = 0
	return s
}

// At records the position inside the current track.
func (s Session) At(offset time.Duration) Session {
	s.Offset = offset
	return s
}

// Halt marks the session as stopped and drops the queue.
func (s Session) Halt() Session {
	s.Halted = true
	s.Queue = nil
	return s
}

// Bookmark returns the resume memory for the session.
func (s Session) Bookmark() resume.Bookmark {
	return resume.Bookmark{
		Token:    s.Token,
		Index:    s.Index,
		Offset:   s.Offset,
		Shuffled: s.Shuffled,
		Seed:     s.Seed,
	}
}

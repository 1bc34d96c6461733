// Package playlist provides the Playlist domain entity.
package playlist

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"time"

	"github.com/osa030/tagbox/internal/domain/track"
)

// Playlist is a named, ordered collection of tracks.
type Playlist struct {
	ID     string        // Source-specific ID
	Name   string        // Name matched against tokens
	Source track.Source  // Origin of the playlist
	Tracks []track.Track // Tracks in play order
}

// TotalDuration returns the total duration of all tracks in seconds.
// Tracks with unknown duration count as zero.
func (p *Playlist) TotalDuration() int64 {
	var total int64
	for _, t := range p.Tracks {
		total += int64(t.Duration.Seconds())
	}
	return total
}

// Copy returns a playlist whose track slice is owned by the caller.
func (p *Playlist) Copy() Playlist {
	tracks := make([]track.Track, len(p.Tracks))
	copy(tracks, p.Tracks)
	return Playlist{ID: p.ID, Name: p.Name, Source: p.Source, Tracks: tracks}
}

// Shuffled returns the tracks permuted by a generator seeded with seed.
// The same seed and track list always yield the same order.
func Shuffled(tracks []track.Track, seed int64) []track.Track {
	out := make([]track.Track, len(tracks))
	copy(out, tracks)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// NewSeed draws a fresh shuffle seed from crypto/rand, falling back to the clock.
func NewSeed() int64 {
	var buf [8]byte
	if _, err := cryptoRand.Read(buf[:]); err == nil {
		return int64(binary.LittleEndian.Uint64(buf[:]))
	}
	return time.Now().UnixNano()
}

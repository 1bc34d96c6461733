package playlist

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tagbox/internal/domain/track"
)

func numbered(n int) []track.Track {
	out := make([]track.Track, n)
	for i := range out {
		out[i] = track.Track{ID: fmt.Sprintf("t%02d", i), Title: fmt.Sprintf("Track %d", i)}
	}
	return out
}

func TestPlaylist_TotalDurationSkipsUnknown(t *testing.T) {
	tracks := numbered(3)
	tracks[0].Duration = 2 * time.Minute
	tracks[1].Duration = 3*time.Minute + 30*time.Second

	p := &Playlist{Name: "Story", Tracks: tracks}
	assert.Equal(t, int64(330), p.TotalDuration())
}

func TestPlaylist_CopyDoesNotAlias(t *testing.T) {
	p := &Playlist{ID: "/srv/music/Story", Name: "Story", Source: track.SourceLocal, Tracks: numbered(2)}

	c := p.Copy()
	c.Tracks[0].Title = "changed"

	assert.Equal(t, "Track 0", p.Tracks[0].Title)
	assert.Equal(t, p.Name, c.Name)
	assert.Equal(t, p.Source, c.Source)
}

func TestShuffled(t *testing.T) {
	tracks := numbered(20)

	first := Shuffled(tracks, 42)
	require.Len(t, first, len(tracks))
	assert.Equal(t, first, Shuffled(tracks, 42))
	assert.NotEqual(t, first, Shuffled(tracks, 43))
	assert.ElementsMatch(t, tracks, first)
	assert.Equal(t, "t00", tracks[0].ID)
}

func TestNewSeed(t *testing.T) {
	assert.NotEqual(t, NewSeed(), NewSeed())
}

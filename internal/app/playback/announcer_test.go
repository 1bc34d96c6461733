package playback

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClipAnnouncer_PlaysClipToEnd(t *testing.T) {
	clock := newFakeClock()
	player := newFakePlayer(clock)

	dir := t.TempDir()
	found := filepath.Join(dir, "found.mp3")
	require.NoError(t, os.WriteFile(found, []byte("clip"), 0o644))
	player.lengths[found] = time.Second

	a := NewClipAnnouncer(player, map[Announcement]string{
		AnnounceFound: found,
		AnnounceStop:  filepath.Join(dir, "missing.mp3"),
	})
	a.sleep = clock.Sleep

	start := clock.Now()
	a.Announce(context.Background(), AnnounceFound)

	assert.Equal(t, []string{found}, player.loads)
	assert.Equal(t, time.Second, clock.Now().Sub(start), "announce blocks until the clip ends")
	assert.Equal(t, 0, player.stops)

	// not configured
	a.Announce(context.Background(), AnnounceInvalid)
	assert.Len(t, player.loads, 1)
}

func TestClipAnnouncer_Timeout(t *testing.T) {
	clock := newFakeClock()
	player := newFakePlayer(clock)
	player.lengths["long.mp3"] = time.Hour

	a := NewClipAnnouncer(player, map[Announcement]string{AnnounceStart: "long.mp3"})
	a.sleep = clock.Sleep
	a.timeout = 2 * time.Second

	start := clock.Now()
	a.Announce(context.Background(), AnnounceStart)
	assert.Equal(t, 2*time.Second, clock.Now().Sub(start))
	assert.Equal(t, 1, player.stops)
}

func TestSkipSignal(t *testing.T) {
	var s SkipSignal
	assert.False(t, s.Pending())
	s.Request()
	s.Request()
	assert.True(t, s.Pending())
	assert.True(t, s.take())
	assert.False(t, s.take())
	s.Request()
	s.clear()
	assert.False(t, s.Pending())
}

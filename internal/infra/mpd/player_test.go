package mpd

import (
	"errors"
	"testing"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tagbox/internal/app/playback"
)

type fakeConn struct {
	queue   []string
	state   string
	status  mpd.Attrs
	volume  int
	seek    time.Duration
	failing int   // number of upcoming commands that fail
	ack     error // server error returned by every command while set
	closed  bool
}

func (f *fakeConn) fail() error {
	if f.ack != nil {
		return f.ack
	}
	if f.failing > 0 {
		f.failing--
		return errors.New("connection reset")
	}
	return nil
}

func (f *fakeConn) Clear() error {
	if err := f.fail(); err != nil {
		return err
	}
	f.queue = nil
	return nil
}

func (f *fakeConn) Add(uri string) error {
	if err := f.fail(); err != nil {
		return err
	}
	f.queue = append(f.queue, uri)
	return nil
}

func (f *fakeConn) Play(int) error {
	if err := f.fail(); err != nil {
		return err
	}
	f.state = "play"
	return nil
}

func (f *fakeConn) Stop() error {
	f.state = "stop"
	return f.fail()
}

func (f *fakeConn) SeekCur(d time.Duration, _ bool) error {
	f.seek = d
	return f.fail()
}

func (f *fakeConn) SetVolume(v int) error {
	if err := f.fail(); err != nil {
		return err
	}
	f.volume = v
	return nil
}

func (f *fakeConn) Status() (mpd.Attrs, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	st := mpd.Attrs{"state": f.state}
	for k, v := range f.status {
		st[k] = v
	}
	return st, nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func newTestPlayer(cfg Config, fc *fakeConn) (*Player, *int) {
	dials := 0
	p := newPlayer(cfg, func() (conn, error) {
		dials++
		return fc, nil
	})
	return p, &dials
}

func TestPlayer_LoadPlayStateLifecycle(t *testing.T) {
	fc := &fakeConn{state: "stop"}
	p, _ := newTestPlayer(Config{MusicRoot: "/srv/music"}, fc)

	state, err := p.State()
	require.NoError(t, err)
	assert.Equal(t, playback.PlayerIdle, state)

	require.NoError(t, p.Load("/srv/music/kids/song.mp3"))
	assert.Equal(t, []string{"kids/song.mp3"}, fc.queue)

	require.NoError(t, p.Play())
	state, err = p.State()
	require.NoError(t, err)
	assert.Equal(t, playback.PlayerPlaying, state)

	// The server stops on its own once the single queued item ends.
	fc.state = "stop"
	state, err = p.State()
	require.NoError(t, err)
	assert.Equal(t, playback.PlayerEnded, state)

	require.NoError(t, p.Stop())
	state, err = p.State()
	require.NoError(t, err)
	assert.Equal(t, playback.PlayerIdle, state)
}

func TestPlayer_OpeningUntilServerPlays(t *testing.T) {
	fc := &fakeConn{}
	p, _ := newTestPlayer(Config{}, fc)

	require.NoError(t, p.Load("yt:https://www.youtube.com/watch?v=abc"))
	require.NoError(t, p.Play())
	fc.state = "stop"

	state, err := p.State()
	require.NoError(t, err)
	assert.Equal(t, playback.PlayerOpening, state)
}

func TestPlayer_ErrorStatus(t *testing.T) {
	fc := &fakeConn{status: mpd.Attrs{"error": "Failed to decode"}}
	p, _ := newTestPlayer(Config{}, fc)

	require.NoError(t, p.Play())
	state, err := p.State()
	require.NoError(t, err)
	assert.Equal(t, playback.PlayerError, state)
}

func TestPlayer_PositionAndLength(t *testing.T) {
	fc := &fakeConn{status: mpd.Attrs{"elapsed": "12.500", "duration": "180.250"}}
	p, _ := newTestPlayer(Config{}, fc)

	pos, err := p.Position()
	require.NoError(t, err)
	assert.Equal(t, 12500*time.Millisecond, pos)

	length, err := p.Length()
	require.NoError(t, err)
	assert.Equal(t, 180250*time.Millisecond, length)

	fc.status = mpd.Attrs{"time": "7:200"}
	pos, err = p.Position()
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, pos)
	length, err = p.Length()
	require.NoError(t, err)
	assert.Equal(t, 200*time.Second, length)
}

func TestPlayer_RedialsOnFailure(t *testing.T) {
	fc := &fakeConn{}
	p, dials := newTestPlayer(Config{}, fc)

	require.NoError(t, p.SetVolume(40))
	assert.Equal(t, 1, *dials)

	fc.failing = 1
	require.NoError(t, p.SetVolume(60))
	assert.Equal(t, 60, fc.volume)
	assert.Equal(t, 2, *dials)

	fc.failing = 2
	assert.Error(t, p.SetVolume(80))
	assert.Equal(t, 60, fc.volume)
}

func TestPlayer_ServerErrorKeepsConnection(t *testing.T) {
	fc := &fakeConn{}
	p, dials := newTestPlayer(Config{}, fc)
	require.NoError(t, p.Play())

	fc.ack = mpd.Error{Code: mpd.ErrorSystem, CommandName: "setvol", Message: "problems setting volume"}
	for range 3 {
		err := p.SetVolume(50)
		require.Error(t, err)
		var ack mpd.Error
		assert.True(t, errors.As(err, &ack))
	}

	assert.Equal(t, 1, *dials, "an ACK must not trigger a reconnect")
	assert.False(t, fc.closed)
}

func TestPlayer_URI(t *testing.T) {
	p := newPlayer(Config{MusicRoot: "/srv/music"}, nil)

	assert.Equal(t, "a/b.mp3", p.URI("/srv/music/a/b.mp3"))
	assert.Equal(t, "file:///home/pi/clips/start.mp3", p.URI("/home/pi/clips/start.mp3"))
	assert.Equal(t, "spotify:track:123", p.URI("spotify:track:123"))

	bare := newPlayer(Config{}, nil)
	assert.Equal(t, "file:///srv/music/a.mp3", bare.URI("/srv/music/a.mp3"))
}

func TestPlayer_SeekAndClose(t *testing.T) {
	fc := &fakeConn{}
	p, _ := newTestPlayer(Config{}, fc)

	require.NoError(t, p.Seek(3*time.Second))
	assert.Equal(t, 3*time.Second, fc.seek)

	require.NoError(t, p.Close())
	assert.True(t, fc.closed)
	require.NoError(t, p.Close())
}

// Package mpd drives an MPD-protocol server (MPD or Mopidy) as the media player.
package mpd

import (
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fhs/gompd/v2/mpd"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tagbox/internal/app/playback"
)

// conn is the subset of *mpd.Client used by the player.
type conn interface {
	Clear() error
	Add(uri string) error
	Play(pos int) error
	Stop() error
	SeekCur(d time.Duration, relative bool) error
	SetVolume(volume int) error
	Status() (mpd.Attrs, error)
	Close() error
}

type dialFunc func() (conn, error)

// Config holds the MPD connection settings.
type Config struct {
	Addr      string // host:port, or an absolute unix socket path
	Password  string
	MusicRoot string // Local files below this directory are added by relative path
}

// Player implements playback.Player over one MPD connection.
// A failed command redials once before giving up.
type Player struct {
	mu        sync.Mutex
	cfg       Config
	dial      dialFunc
	c         conn
	started   bool // Play issued since the last Load/Stop
	seenStart bool // the server reported play/pause since Play
}

// New creates a Player and verifies the server is reachable.
func New(cfg Config) (*Player, error) {
	p := newPlayer(cfg, func() (conn, error) {
		network := "tcp"
		if strings.HasPrefix(cfg.Addr, "/") {
			network = "unix"
		}
		if cfg.Password != "" {
			return mpd.DialAuthenticated(network, cfg.Addr, cfg.Password)
		}
		return mpd.Dial(network, cfg.Addr)
	})
	if err := p.connect(); err != nil {
		return nil, err
	}
	zlog.Info().Msgf("mpd: connected to %s", cfg.Addr)
	return p, nil
}

func newPlayer(cfg Config, dial dialFunc) *Player {
	return &Player{cfg: cfg, dial: dial}
}

// Load replaces the queue with the single item at locator.
func (p *Player) Load(locator string) error {
	uri := p.URI(locator)
	p.mu.Lock()
	defer p.mu.Unlock()

	p.started = false
	p.seenStart = false
	err := p.do(func(c conn) error {
		if err := c.Clear(); err != nil {
			return err
		}
		return c.Add(uri)
	})
	return errors.Wrapf(err, "failed to load %s", uri)
}

// Play starts the loaded item.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.do(func(c conn) error { return c.Play(0) }); err != nil {
		return errors.Wrap(err, "failed to play")
	}
	p.started = true
	p.seenStart = false
	return nil
}

// Stop stops playback.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.started = false
	p.seenStart = false
	return errors.Wrap(p.do(func(c conn) error { return c.Stop() }), "failed to stop")
}

// Seek jumps to d within the current item.
func (p *Player) Seek(d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Wrapf(p.do(func(c conn) error { return c.SeekCur(d, false) }), "failed to seek to %s", d)
}

// SetVolume sets the output volume (0-100).
func (p *Player) SetVolume(volume int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Wrapf(p.do(func(c conn) error { return c.SetVolume(volume) }), "failed to set volume %d", volume)
}

// State maps the server status to a player state.
func (p *Player) State() (playback.PlayerState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, err := p.status()
	if err != nil {
		return playback.PlayerError, err
	}
	state := mapState(st, p.started, p.seenStart)
	if state.Active() {
		p.seenStart = true
	}
	return state, nil
}

// Position returns the elapsed time of the current item.
func (p *Player) Position() (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, err := p.status()
	if err != nil {
		return 0, err
	}
	return elapsed(st), nil
}

// Length returns the duration of the current item, zero when unknown.
func (p *Player) Length() (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, err := p.status()
	if err != nil {
		return 0, err
	}
	return duration(st), nil
}

// Close closes the connection.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.c == nil {
		return nil
	}
	err := p.c.Close()
	p.c = nil
	return err
}

// URI converts a locator into the URI added to the queue. Local paths below
// MusicRoot become relative paths, other absolute paths become file:// URIs
// and everything else passes through unchanged.
func (p *Player) URI(locator string) string {
	if !filepath.IsAbs(locator) {
		return locator
	}
	if p.cfg.MusicRoot != "" {
		if rel, err := filepath.Rel(p.cfg.MusicRoot, locator); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return "file://" + locator
}

func (p *Player) status() (mpd.Attrs, error) {
	var st mpd.Attrs
	err := p.do(func(c conn) error {
		s, err := c.Status()
		st = s
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get status")
	}
	return st, nil
}

func (p *Player) connect() error {
	c, err := p.dial()
	if err != nil {
		return errors.Wrapf(err, "failed to connect to mpd at %s", p.cfg.Addr)
	}
	p.c = c
	return nil
}

// do runs fn on the connection, redialing once when the connection failed.
// Errors reported by the server (ACK) leave the connection in place.
func (p *Player) do(fn func(c conn) error) error {
	if p.c == nil {
		if err := p.connect(); err != nil {
			return err
		}
	}
	err := fn(p.c)
	if err == nil || isServerError(err) {
		return err
	}

	zlog.Debug().Msgf("mpd: command failed, reconnecting: %v", err)
	_ = p.c.Close()
	p.c = nil
	if cerr := p.connect(); cerr != nil {
		return errors.CombineErrors(err, cerr)
	}
	return fn(p.c)
}

func isServerError(err error) bool {
	var ack mpd.Error
	return errors.As(err, &ack)
}

func mapState(st mpd.Attrs, started, seenStart bool) playback.PlayerState {
	if st["error"] != "" {
		return playback.PlayerError
	}
	switch st["state"] {
	case "play":
		return playback.PlayerPlaying
	case "pause":
		return playback.PlayerPaused
	}
	switch {
	case started && seenStart:
		return playback.PlayerEnded
	case started:
		return playback.PlayerOpening
	}
	return playback.PlayerIdle
}

func elapsed(st mpd.Attrs) time.Duration {
	if v, ok := seconds(st["elapsed"]); ok {
		return v
	}
	// Older servers only report "time" as elapsed:total.
	if parts := strings.SplitN(st["time"], ":", 2); len(parts) == 2 {
		if v, ok := seconds(parts[0]); ok {
			return v
		}
	}
	return 0
}

func duration(st mpd.Attrs) time.Duration {
	if v, ok := seconds(st["duration"]); ok {
		return v
	}
	if parts := strings.SplitN(st["time"], ":", 2); len(parts) == 2 {
		if v, ok := seconds(parts[1]); ok {
			return v
		}
	}
	return 0
}

func seconds(s string) (time.Duration, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(f * float64(time.Second)), true
}

package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tagbox/internal/app/idle"
	"github.com/osa030/tagbox/internal/app/token"
	"github.com/osa030/tagbox/internal/domain/playlist"
	"github.com/osa030/tagbox/internal/domain/resume"
	"github.com/osa030/tagbox/internal/domain/track"
)

// ErrShutdown is returned by Run after the idle shutdown fired.
var ErrShutdown = errors.New("idle shutdown")

const storeTimeout = 2 * time.Second

// Resolver reports token transitions.
type Resolver interface {
	Update(ctx context.Context) token.Event
}

// Catalog provides playlists and track locators.
type Catalog interface {
	Lookup(token string) (playlist.Playlist, error)
	Resolve(ctx context.Context, t track.Track) (string, error)
}

// Config holds controller configuration.
type Config struct {
	PollInterval       time.Duration // Player polling while a track plays
	TokenCheckInterval time.Duration // Token polling while a track plays
	WaitInterval       time.Duration // Token polling while idle
	ResumeBackoff      time.Duration // Rewind applied to the resumed track
	PrefetchWindow     time.Duration // Resolve the next track this long before the end
	VolumeRetries      int
	VolumeRetryDelay   time.Duration
	OpenTimeout        time.Duration // Bound on waiting for a track to start, 0 waits forever
}

// DefaultConfig returns the default timing.
func DefaultConfig() Config {
	return Config{
		PollInterval:       100 * time.Millisecond,
		TokenCheckInterval: time.Second,
		WaitInterval:       time.Second,
		ResumeBackoff:      3 * time.Second,
		PrefetchWindow:     5 * time.Second,
		VolumeRetries:      10,
		VolumeRetryDelay:   500 * time.Millisecond,
		OpenTimeout:        10 * time.Second,
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithAnnouncer sets the announcer. The default is silent.
func WithAnnouncer(a Announcer) Option {
	return func(c *Controller) { c.announcer = a }
}

// WithStore sets the bookmark store. The default keeps bookmarks in memory.
func WithStore(s BookmarkStore) Option {
	return func(c *Controller) { c.store = s }
}

// WithGuard sets the idle shutdown guard.
func WithGuard(g *idle.Guard) Option {
	return func(c *Controller) { c.guard = g }
}

// WithSkipSignal sets the skip signal shared with button and signal handlers.
func WithSkipSignal(s *SkipSignal) Option {
	return func(c *Controller) { c.skip = s }
}

// WithClock replaces the wall clock and sleep.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Controller) {
		c.now = now
		c.sleep = sleep
	}
}

// Controller runs the token wait loop and plays sessions.
// Queue and position are only touched by the goroutine running Run.
type Controller struct {
	mu      sync.RWMutex
	phase   Phase
	session Session

	config    Config
	resolver  Resolver
	catalog   Catalog
	player    Player
	announcer Announcer
	store     BookmarkStore
	guard     *idle.Guard
	skip      *SkipSignal

	memory       *resume.Bookmark
	locators     map[string]string // track key -> locator, owned by the current session
	lastActivity time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	eventCh   chan Event
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewController creates a new playback controller.
func NewController(config Config, resolver Resolver, catalog Catalog, player Player, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		phase:     PhaseIdle,
		config:    config,
		resolver:  resolver,
		catalog:   catalog,
		player:    player,
		announcer: silentAnnouncer{},
		store:     NewMemoryStore(),
		skip:      &SkipSignal{},
		locators:  make(map[string]string),
		now:       time.Now,
		sleep:     sleepContext,
		eventCh:   make(chan Event, 64),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Events returns the event channel.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// Skip returns the skip signal.
func (c *Controller) Skip() *SkipSignal {
	return c.skip
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

// Session returns the current session value.
func (c *Controller) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Run waits for tokens and plays their playlists until ctx is done or the
// idle shutdown fires.
func (c *Controller) Run(ctx context.Context) error {
	c.loadMemory(ctx)
	c.lastActivity = c.now()

	c.announcer.Announce(ctx, AnnounceStart)
	zlog.Info().Msg("session: waiting for token...")

	for {
		if ctx.Err() != nil {
			return nil
		}

		if ev := c.resolver.Update(ctx); ev.Changed() {
			c.process(ctx, ev)
			if ctx.Err() != nil {
				return nil
			}
		}

		if c.guard.Due(c.now(), c.lastActivity) {
			c.shutdown(ctx)
			return ErrShutdown
		}

		if err := c.sleep(ctx, c.config.WaitInterval); err != nil {
			return nil
		}
	}
}

// process applies ev and every transition observed while playing.
func (c *Controller) process(ctx context.Context, ev token.Event) {
	for next := &ev; next != nil && ctx.Err() == nil; {
		next = c.apply(ctx, *next)
	}
}

func (c *Controller) apply(ctx context.Context, ev token.Event) *token.Event {
	c.lastActivity = c.now()

	switch ev.Type {
	case token.EventRemoved:
		zlog.Info().Msgf("session: token %q was removed", ev.PrevToken)
		if ev.WasValid {
			c.announcer.Announce(ctx, AnnounceStop)
		}
		zlog.Info().Msg("session: waiting for token...")

	case token.EventDisabled:
		zlog.Info().Msg("session: reader disabled")

	case token.EventArrived, token.EventSwapped:
		zlog.Info().Msgf("session: token detected: %q (uid %s)", ev.Token, ev.UID.Key())
		if !ev.Valid {
			zlog.Warn().Msgf("session: token %q is invalid", ev.Token)
			c.forget(ctx)
			c.announcer.Announce(ctx, AnnounceInvalid)
			return nil
		}
		c.announcer.Announce(ctx, AnnounceFound)
		return c.play(ctx, ev)
	}
	return nil
}

// play runs a session for a valid token. It returns the transition that
// interrupted it, if any.
func (c *Controller) play(ctx context.Context, ev token.Event) *token.Event {
	c.setPhase(PhaseStarting)

	pl, err := c.catalog.Lookup(ev.Token)
	if err != nil {
		zlog.Warn().Msgf("session: playlist for %q not found: %v", ev.Token, err)
		c.forget(ctx)
		c.setPhase(PhaseIdle)
		return nil
	}

	if !c.memory.Matches(ev.Token) {
		c.forget(ctx)
	}
	sess := newSession(ev, pl, c.memory, c.config.ResumeBackoff)
	c.skip.clear()
	c.locators = make(map[string]string)

	if sess.Index > 0 || sess.Seek > 0 {
		zlog.Info().Msgf("session: continuing playlist %q at title %d/%d (session %s)", sess.Playlist, sess.Index+1, len(sess.Queue), sess.ID)
	} else {
		zlog.Info().Msgf("session: starting playlist %q with %d titles (session %s)", sess.Playlist, len(sess.Queue), sess.ID)
	}

	c.setSession(sess)
	c.setPhase(PhasePlaying)
	c.emit(Event{Type: EventSessionStarted, SessionID: sess.ID, Token: sess.Token, Phase: PhasePlaying})

	for !sess.Done() {
		var pending *token.Event
		sess, pending = c.playTrack(ctx, sess)
		c.setSession(sess)
		if sess.Halted {
			return c.interrupt(ctx, sess, pending)
		}
	}

	zlog.Info().Msgf("session: playlist %q finished normally", sess.Playlist)
	c.forget(ctx)
	c.lastActivity = c.now()
	c.setSession(sess.Halt())
	c.setPhase(PhaseFinished)
	c.emit(Event{Type: EventSessionFinished, SessionID: sess.ID, Token: sess.Token, Phase: PhaseFinished})
	c.setPhase(PhaseIdle)
	return nil
}

// interrupt stops the player and keeps the resume memory for the session.
func (c *Controller) interrupt(ctx context.Context, sess Session, pending *token.Event) *token.Event {
	c.stopPlayer(ctx)
	c.remember(ctx, sess.Bookmark())

	c.setPhase(PhaseInterrupted)
	c.emit(Event{Type: EventSessionInterrupted, SessionID: sess.ID, Token: sess.Token, Index: sess.Index, Phase: PhaseInterrupted})
	c.setPhase(PhaseIdle)
	return pending
}

// playTrack plays the current track of sess. The returned session has
// advanced past the track, or is halted when a token transition or
// cancellation interrupted it.
func (c *Controller) playTrack(ctx context.Context, sess Session) (Session, *token.Event) {
	t, _ := sess.Current()
	pos := fmt.Sprintf("%d/%d", sess.Index+1, len(sess.Queue))
	ev := Event{SessionID: sess.ID, Token: sess.Token, Track: &t, Index: sess.Index, Phase: PhasePlaying}

	locator, err := c.locate(ctx, t)
	if err != nil {
		zlog.Warn().Msgf("session: skipping title %s %q: %v", pos, t.Title, err)
		c.emitAs(ev, EventTrackFailed)
		return sess.Advance(), nil
	}

	kind := "stream"
	if t.IsLocal {
		kind = "file"
	}
	zlog.Info().Msgf("session: playing title %s %q (%s)", pos, t.Title, kind)

	if err := c.player.Load(locator); err != nil {
		zlog.Error().Msgf("session: failed to load title %s: %v", pos, err)
		c.emitAs(ev, EventTrackFailed)
		return sess.Advance(), nil
	}
	if err := c.player.Play(); err != nil {
		zlog.Error().Msgf("session: failed to start title %s: %v", pos, err)
		c.emitAs(ev, EventTrackFailed)
		return sess.Advance(), nil
	}

	state, err := c.waitOpen(ctx)
	if ctx.Err() != nil {
		return sess.Halt(), nil
	}
	switch {
	case state == PlayerEnded:
		c.emitAs(ev, EventTrackEnded)
		return sess.Advance(), nil
	case state != PlayerPlaying && state != PlayerPaused:
		zlog.Error().Msgf("session: playback of title %s failed to start: %v", pos, err)
		c.emitAs(ev, EventTrackFailed)
		return sess.Advance(), nil
	}

	if sess.Seek > 0 {
		if err := c.player.Seek(sess.Seek); err != nil {
			zlog.Warn().Msgf("session: failed to seek to %s: %v", sess.Seek, err)
		}
	}
	c.applyVolume(ctx, sess.Params.Volume)
	c.emitAs(ev, EventTrackStarted)

	nextCheck := c.now().Add(c.config.TokenCheckInterval)
	prefetched := false
	var pending *token.Event

	for {
		if pending != nil || ctx.Err() != nil {
			return sess.Halt(), pending
		}

		if c.skip.take() {
			zlog.Info().Msgf("session: skipping title %s on request", pos)
			if err := c.player.Stop(); err != nil {
				zlog.Warn().Msgf("session: failed to stop title: %v", err)
			}
			c.emitAs(ev, EventTrackSkipped)
			return sess.Advance(), nil
		}

		state, err := c.player.State()
		if err != nil {
			zlog.Error().Msgf("session: player state unavailable: %v", err)
			state = PlayerError
		}
		switch state {
		case PlayerError:
			zlog.Error().Msgf("session: playback of title %s stopped unexpectedly", pos)
			c.emitAs(ev, EventTrackFailed)
			return sess.Advance(), nil
		case PlayerEnded, PlayerIdle:
			c.emitAs(ev, EventTrackEnded)
			return sess.Advance(), nil
		}

		if offset, err := c.player.Position(); err == nil {
			sess = sess.At(offset)
		}

		if !prefetched && c.prefetchDue(sess) {
			prefetched = true
			c.prefetch(ctx, sess)
		}

		if !c.now().Before(nextCheck) {
			if tev := c.checkToken(ctx); tev.Changed() {
				pending = &tev
			}
			nextCheck = c.now().Add(c.config.TokenCheckInterval)
		}

		// a cancelled sleep is handled at the top of the loop
		_ = c.sleep(ctx, c.config.PollInterval)
	}
}

// checkToken polls the resolver while a track plays. A catalog refresh for
// a newly presented token may not hold the loop longer than one check interval.
func (c *Controller) checkToken(ctx context.Context) token.Event {
	ctx, cancel := context.WithTimeout(ctx, c.config.TokenCheckInterval)
	defer cancel()
	return c.resolver.Update(ctx)
}

// waitOpen waits until the player leaves Idle/Opening.
func (c *Controller) waitOpen(ctx context.Context) (PlayerState, error) {
	deadline := c.now().Add(c.config.OpenTimeout)
	for {
		state, err := c.player.State()
		if err != nil {
			return PlayerError, err
		}
		if state != PlayerIdle && state != PlayerOpening {
			return state, nil
		}
		if c.config.OpenTimeout > 0 && !c.now().Before(deadline) {
			return PlayerError, errors.Newf("no playback after %s", c.config.OpenTimeout)
		}
		if err := c.sleep(ctx, c.config.PollInterval); err != nil {
			return PlayerError, err
		}
	}
}

// locate returns the locator of t, resolving remote tracks through the
// session's locator cache.
func (c *Controller) locate(ctx context.Context, t track.Track) (string, error) {
	if !t.NeedsResolution() {
		return t.Locator, nil
	}
	if loc, ok := c.locators[t.Key()]; ok {
		return loc, nil
	}
	loc, err := c.catalog.Resolve(ctx, t)
	if err != nil {
		return "", err
	}
	c.locators[t.Key()] = loc
	return loc, nil
}

func (c *Controller) prefetchDue(sess Session) bool {
	if _, ok := sess.Next(); !ok {
		return false
	}
	length, err := c.player.Length()
	if err != nil || length <= 0 {
		return false
	}
	return sess.Offset >= length-c.config.PrefetchWindow
}

// prefetch resolves the next track's locator ahead of time.
func (c *Controller) prefetch(ctx context.Context, sess Session) {
	next, _ := sess.Next()
	if !next.NeedsResolution() {
		return
	}
	if _, ok := c.locators[next.Key()]; ok {
		return
	}
	if _, err := c.locate(ctx, next); err != nil {
		zlog.Debug().Msgf("session: prefetch of %q failed: %v", next.Title, err)
		return
	}
	zlog.Debug().Msgf("session: prefetched %q", next.Title)
}

// applyVolume sets the volume while a track is playing, retrying a bounded
// number of times. It does nothing when the player is not playing.
func (c *Controller) applyVolume(ctx context.Context, volume int) {
	volume = min(100, max(0, volume))

	var lastErr error
	for i := 0; i < c.config.VolumeRetries; i++ {
		state, err := c.player.State()
		if err != nil || !state.Active() {
			return
		}
		if lastErr = c.player.SetVolume(volume); lastErr == nil {
			return
		}
		if c.sleep(ctx, c.config.VolumeRetryDelay) != nil {
			break
		}
	}
	if lastErr != nil {
		zlog.Warn().Msgf("session: setting volume to %d failed: %v", volume, lastErr)
	}
}

// stopPlayer resets the volume and stops playback.
func (c *Controller) stopPlayer(ctx context.Context) {
	c.applyVolume(ctx, 100)
	if err := c.player.Stop(); err != nil {
		zlog.Warn().Msgf("session: failed to stop player: %v", err)
	}
}

func (c *Controller) shutdown(ctx context.Context) {
	c.announcer.Announce(ctx, AnnounceShutdown)
	c.guard.Fire(ctx)
	c.emit(Event{Type: EventShutdown, Phase: c.Phase()})
}

func (c *Controller) loadMemory(ctx context.Context) {
	b, err := c.store.Load(ctx)
	if err != nil {
		zlog.Warn().Msgf("session: failed to load bookmark: %v", err)
		return
	}
	if b != nil {
		zlog.Info().Msgf("session: bookmark for %q at title %d", b.Token, b.Index+1)
	}
	c.memory = b
}

// storeContext detaches bookmark writes from cancellation so a bookmark taken
// while shutting down still reaches the store.
func storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
}

func (c *Controller) remember(ctx context.Context, b resume.Bookmark) {
	c.memory = &b
	ctx, cancel := storeContext(ctx)
	defer cancel()
	if err := c.store.Save(ctx, b); err != nil {
		zlog.Warn().Msgf("session: failed to save bookmark: %v", err)
	}
}

func (c *Controller) forget(ctx context.Context) {
	if c.memory == nil {
		return
	}
	c.memory = nil
	ctx, cancel := storeContext(ctx)
	defer cancel()
	if err := c.store.Clear(ctx); err != nil {
		zlog.Warn().Msgf("session: failed to clear bookmark: %v", err)
	}
}

func (c *Controller) setPhase(p Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != p {
		zlog.Debug().Msgf("session: phase %s -> %s", c.phase, p)
	}
	c.phase = p
}

func (c *Controller) setSession(s Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

func (c *Controller) emitAs(e Event, t EventType) {
	e.Type = t
	c.emit(e)
}

// emit sends an event without blocking.
func (c *Controller) emit(e Event) {
	select {
	case c.eventCh <- e:
	case <-c.ctx.Done():
	default:
		// Channel full, drop event
	}
}

// Close stops playback and releases the player. It is safe to call more
// than once.
func (c *Controller) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		c.stopPlayer(context.Background())
		err = c.player.Close()
	})
	return err
}

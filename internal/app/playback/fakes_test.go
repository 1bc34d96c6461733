package playback

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/osa030/tagbox/internal/app/token"
	"github.com/osa030/tagbox/internal/domain/playlist"
	"github.com/osa030/tagbox/internal/domain/resume"
	"github.com/osa030/tagbox/internal/domain/tag"
	"github.com/osa030/tagbox/internal/domain/track"
)

// fakeClock advances only when the controller sleeps.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.now = f.now.Add(d)
	return nil
}

// fakePlayer plays every locator for its configured length on the fake clock.
type fakePlayer struct {
	clock   *fakeClock
	lengths map[string]time.Duration
	broken  map[string]bool

	loaded    string
	playing   bool
	startedAt time.Time
	offset    time.Duration

	loads          []string
	stops          int
	seeks          []time.Duration
	volumes        []int
	volumeFailures int
	closes         int
}

func newFakePlayer(clock *fakeClock) *fakePlayer {
	return &fakePlayer{
		clock:   clock,
		lengths: make(map[string]time.Duration),
		broken:  make(map[string]bool),
	}
}

func (p *fakePlayer) Load(locator string) error {
	p.loads = append(p.loads, locator)
	p.loaded = locator
	p.playing = false
	return nil
}

func (p *fakePlayer) Play() error {
	if p.loaded == "" {
		return errors.New("nothing loaded")
	}
	p.playing = true
	p.startedAt = p.clock.Now()
	p.offset = 0
	return nil
}

func (p *fakePlayer) Stop() error {
	p.stops++
	p.playing = false
	p.loaded = ""
	return nil
}

func (p *fakePlayer) Seek(d time.Duration) error {
	p.seeks = append(p.seeks, d)
	p.offset = d
	p.startedAt = p.clock.Now()
	return nil
}

func (p *fakePlayer) SetVolume(volume int) error {
	if p.volumeFailures > 0 {
		p.volumeFailures--
		return errors.New("mixer busy")
	}
	p.volumes = append(p.volumes, volume)
	return nil
}

func (p *fakePlayer) length() time.Duration {
	if l, ok := p.lengths[p.loaded]; ok {
		return l
	}
	return 10 * time.Second
}

func (p *fakePlayer) State() (PlayerState, error) {
	if !p.playing {
		return PlayerIdle, nil
	}
	if p.broken[p.loaded] {
		return PlayerError, nil
	}
	pos, _ := p.Position()
	if pos >= p.length() {
		return PlayerEnded, nil
	}
	return PlayerPlaying, nil
}

func (p *fakePlayer) Position() (time.Duration, error) {
	if !p.playing {
		return 0, nil
	}
	return p.offset + p.clock.Now().Sub(p.startedAt), nil
}

func (p *fakePlayer) Length() (time.Duration, error) {
	return p.length(), nil
}

func (p *fakePlayer) Close() error {
	p.closes++
	return nil
}

// scriptResolver returns scripted events by call number.
type scriptResolver struct {
	calls  int
	script map[int]token.Event
	hooks  map[int]func()
	stopAt int
	cancel context.CancelFunc
	ctxs   []context.Context
}

func (r *scriptResolver) Update(ctx context.Context) token.Event {
	r.calls++
	r.ctxs = append(r.ctxs, ctx)
	if h := r.hooks[r.calls]; h != nil {
		h()
	}
	if r.stopAt > 0 && r.calls >= r.stopAt && r.cancel != nil {
		r.cancel()
	}
	if ev, ok := r.script[r.calls]; ok {
		return ev
	}
	return token.Event{Type: token.EventUnchanged}
}

type fakeCatalog struct {
	playlists   map[string]playlist.Playlist
	failResolve map[string]bool
	resolved    []string
}

func (c *fakeCatalog) Lookup(tok string) (playlist.Playlist, error) {
	p, ok := c.playlists[strings.ToLower(tok)]
	if !ok {
		return playlist.Playlist{}, errors.New("not found")
	}
	return p.Copy(), nil
}

func (c *fakeCatalog) Resolve(ctx context.Context, t track.Track) (string, error) {
	c.resolved = append(c.resolved, t.ID)
	if c.failResolve[t.ID] {
		return "", errors.New("stream unavailable")
	}
	return "remote:" + t.ID, nil
}

type recordingAnnouncer struct {
	played []Announcement
}

func (a *recordingAnnouncer) Announce(ctx context.Context, name Announcement) {
	a.played = append(a.played, name)
}

func (a *recordingAnnouncer) count(name Announcement) int {
	n := 0
	for _, p := range a.played {
		if p == name {
			n++
		}
	}
	return n
}

func localPlaylist(name string, ids ...string) playlist.Playlist {
	tracks := make([]track.Track, len(ids))
	for i, id := range ids {
		tracks[i] = track.Track{ID: id, Title: id, Locator: id, IsLocal: true, Source: track.SourceLocal}
	}
	return playlist.Playlist{ID: name, Name: name, Source: track.SourceLocal, Tracks: tracks}
}

func remotePlaylist(name string, ids ...string) playlist.Playlist {
	tracks := make([]track.Track, len(ids))
	for i, id := range ids {
		tracks[i] = track.Track{ID: id, Title: id, Source: track.SourceSpotify}
	}
	return playlist.Playlist{ID: name, Name: name, Source: track.SourceSpotify, Tracks: tracks}
}

func arrived(tok string, params token.Params) token.Event {
	return token.Event{
		Type:   token.EventArrived,
		Token:  tok,
		UID:    tag.UID{1, 2, 3, 4},
		Params: params,
		Valid:  true,
	}
}

func removed(prev string) token.Event {
	return token.Event{Type: token.EventRemoved, PrevToken: prev, WasValid: true}
}

// harness wires a controller to fakes.
type harness struct {
	clock     *fakeClock
	player    *fakePlayer
	catalog   *fakeCatalog
	resolver  *scriptResolver
	announcer *recordingAnnouncer
	store     *MemoryStore
	ctrl      *Controller
	ctx       context.Context
}

func newHarness(playlists ...playlist.Playlist) *harness {
	clock := newFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{
		clock:     clock,
		player:    newFakePlayer(clock),
		catalog:   &fakeCatalog{playlists: make(map[string]playlist.Playlist), failResolve: make(map[string]bool)},
		resolver:  &scriptResolver{script: make(map[int]token.Event), hooks: make(map[int]func()), cancel: cancel},
		announcer: &recordingAnnouncer{},
		store:     NewMemoryStore(),
		ctx:       ctx,
	}
	for _, p := range playlists {
		h.catalog.playlists[strings.ToLower(p.Name)] = p
	}
	return h
}

func (h *harness) build(opts ...Option) *Controller {
	base := []Option{
		WithClock(h.clock.Now, h.clock.Sleep),
		WithAnnouncer(h.announcer),
		WithStore(h.store),
	}
	h.ctrl = NewController(DefaultConfig(), h.resolver, h.catalog, h.player, append(base, opts...)...)
	return h.ctrl
}

func (h *harness) events() []Event {
	var out []Event
	for {
		select {
		case e := <-h.ctrl.Events():
			out = append(out, e)
		default:
			return out
		}
	}
}

func countEvents(events []Event, t EventType) int {
	n := 0
	for _, e := range events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// strictStore rejects calls on a done context, as database/sql does.
type strictStore struct {
	*MemoryStore
}

func (s strictStore) Save(ctx context.Context, b resume.Bookmark) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemoryStore.Save(ctx, b)
}

func (s strictStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemoryStore.Clear(ctx)
}

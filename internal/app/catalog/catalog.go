package catalog

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tagbox/internal/app/filter"
	"github.com/osa030/tagbox/internal/domain/playlist"
	"github.com/osa030/tagbox/internal/domain/track"
)

var (
	// ErrNotFound is returned when no playlist matches a token.
	ErrNotFound = errors.New("playlist not found")
	// ErrUnplayable is returned when a track cannot be played.
	ErrUnplayable = errors.New("track is not playable")
	// ErrNoSource is returned when no configured source can resolve a track.
	ErrNoSource = errors.New("no source for track")
)

// Options configures a Catalog.
type Options struct {
	Policy          MatchPolicy
	Chain           *filter.Chain // Optional track filters applied on refresh
	RefreshCooldown time.Duration // Minimum interval between refresh-on-miss attempts
	RefreshTimeout  time.Duration // Bound on a refresh-on-miss attempt
}

// Catalog holds the playlists of all sources.
// It is shared with the media directory watcher and guarded by a RW mutex.
type Catalog struct {
	mu          sync.RWMutex
	sources     []Source
	entries     [][]playlist.Playlist // playlists per source, by position in sources
	opts        Options
	lastRemote  time.Time
	refreshLock sync.Mutex
	now         func() time.Time
}

// New creates a catalog over sources. Playlists are matched in source order.
func New(sources []Source, opts Options) *Catalog {
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = 30 * time.Second
	}
	if opts.Chain == nil {
		opts.Chain = filter.NewChain()
	}
	return &Catalog{
		sources: sources,
		entries: make([][]playlist.Playlist, len(sources)),
		opts:    opts,
		now:     time.Now,
	}
}

// Refresh reloads every source. A failing source keeps its previous playlists.
func (c *Catalog) Refresh(ctx context.Context) error {
	var errs error
	for i := range c.sources {
		if err := c.refreshSource(ctx, i); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	c.mu.Lock()
	c.lastRemote = c.now()
	c.mu.Unlock()
	return errs
}

// RefreshLocal reloads the local sources only.
func (c *Catalog) RefreshLocal(ctx context.Context) error {
	var errs error
	for i, s := range c.sources {
		if s.Kind() != track.SourceLocal {
			continue
		}
		if err := c.refreshSource(ctx, i); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	return errs
}

func (c *Catalog) refreshSource(ctx context.Context, i int) error {
	s := c.sources[i]
	c.refreshLock.Lock()
	defer c.refreshLock.Unlock()

	pls, err := s.Playlists(ctx)
	if err != nil {
		zlog.Warn().Msgf("catalog: source %s refresh failed: %v", s.Name(), err)
		return errors.Wrapf(err, "failed to refresh source %s", s.Name())
	}

	for i := range pls {
		before := len(pls[i].Tracks)
		pls[i].Tracks = c.opts.Chain.Apply(ctx, pls[i].Tracks)
		if dropped := before - len(pls[i].Tracks); dropped > 0 {
			zlog.Info().Msgf("catalog: %d track(s) filtered from playlist %q", dropped, pls[i].Name)
		}
	}

	c.mu.Lock()
	c.entries[i] = pls
	c.mu.Unlock()

	zlog.Info().Msgf("catalog: source %s provides %d playlist(s)", s.Name(), len(pls))
	return nil
}

// all returns the playlists in source order. Caller holds c.mu.
func (c *Catalog) all() []playlist.Playlist {
	var out []playlist.Playlist
	for _, pls := range c.entries {
		out = append(out, pls...)
	}
	return out
}

// Lookup returns a copy of the playlist selected by token.
func (c *Catalog) Lookup(token string) (playlist.Playlist, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pls := c.all()
	i := match(pls, token, c.opts.Policy)
	if i < 0 {
		return playlist.Playlist{}, errors.Wrapf(ErrNotFound, "token %q", token)
	}
	return pls[i].Copy(), nil
}

// IsValid reports whether token selects a playlist.
// A miss triggers one refresh of the remote sources when the cooldown allows
// it, bounded by ctx and the refresh timeout.
func (c *Catalog) IsValid(ctx context.Context, token string) bool {
	if _, err := c.Lookup(token); err == nil {
		return true
	}
	if strings.TrimSpace(token) == "" {
		return false
	}
	if !c.refreshRemoteOnMiss(ctx) {
		return false
	}
	_, err := c.Lookup(token)
	return err == nil
}

func (c *Catalog) refreshRemoteOnMiss(ctx context.Context) bool {
	c.mu.Lock()
	now := c.now()
	if !c.lastRemote.IsZero() && now.Sub(c.lastRemote) < c.opts.RefreshCooldown {
		c.mu.Unlock()
		return false
	}
	c.lastRemote = now
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.opts.RefreshTimeout)
	defer cancel()

	refreshed := false
	for i, s := range c.sources {
		if s.Kind() == track.SourceLocal {
			continue
		}
		zlog.Info().Msgf("catalog: token miss, refreshing source %s", s.Name())
		if err := c.refreshSource(ctx, i); err == nil {
			refreshed = true
		}
	}
	return refreshed
}

// Resolve returns a playable locator for t.
func (c *Catalog) Resolve(ctx context.Context, t track.Track) (string, error) {
	if t.Locator != "" {
		return t.Locator, nil
	}
	for _, s := range c.sources {
		if s.Kind() == t.Source {
			return s.Resolve(ctx, t)
		}
	}
	return "", errors.Wrapf(ErrNoSource, "source %s", t.Source)
}

// Playlists returns a snapshot of all playlists in match order.
func (c *Catalog) Playlists() []playlist.Playlist {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pls := c.all()
	out := make([]playlist.Playlist, len(pls))
	for i := range pls {
		out[i] = pls[i].Copy()
	}
	return out
}

// Names returns all playlist names in match order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pls := c.all()
	names := make([]string, len(pls))
	for i, p := range pls {
		names[i] = p.Name
	}
	return names
}

// Package spotify reads playlists and tracks from the Spotify Web API.
package spotify

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/osa030/tagbox/internal/domain/playlist"
	"github.com/osa030/tagbox/internal/domain/track"
)

const (
	defaultMarket = "JP"
	playlistPage  = 50
	itemPage      = 100
)

// Client is a read-only Spotify API client.
type Client struct {
	client      *spotify.Client
	market      string
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Market       string
}

// New creates a client that refreshes its access token from cfg.RefreshToken.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("spotify credentials are required")
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithScopes(
			spotifyauth.ScopePlaylistReadPrivate,
			spotifyauth.ScopePlaylistReadCollaborative,
			spotifyauth.ScopeUserReadPrivate,
		),
	)
	httpClient := auth.Client(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	market := cfg.Market
	if market == "" {
		market = defaultMarket
	}

	return &Client{
		client:      spotify.New(httpClient),
		market:      market,
		maxAttempts: 3,
		baseDelay:   time.Second,
		sleep:       sleepContext,
	}, nil
}

// GetTrack looks up a track by ID, URL, or URI. market overrides the
// configured market when given.
func (c *Client) GetTrack(ctx context.Context, trackID string, market ...string) (*track.Track, error) {
	id := parseID(trackID, "track")

	var opts []spotify.RequestOption
	if len(market) > 0 && market[0] != "" {
		opts = append(opts, spotify.Market(market[0]))
	}

	t, err := call(ctx, c, "get track", func() (*spotify.FullTrack, error) {
		return c.client.GetTrack(ctx, spotify.ID(id), opts...)
	})
	if err != nil {
		return nil, err
	}
	return c.convertTrack(t), nil
}

// GetPlaylistTracks lists every track of a playlist. Episodes and local
// files are skipped.
func (c *Client) GetPlaylistTracks(ctx context.Context, playlistURL string) ([]track.Track, error) {
	id := parseID(playlistURL, "playlist")
	if id == "" {
		return nil, errors.New("invalid playlist URL")
	}

	var tracks []track.Track
	for offset := 0; ; offset += itemPage {
		page, err := call(ctx, c, "get playlist items", func() (*spotify.PlaylistItemPage, error) {
			return c.client.GetPlaylistItems(ctx, spotify.ID(id),
				spotify.Limit(itemPage),
				spotify.Offset(offset),
				spotify.Market(c.market),
			)
		})
		if err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if ft := item.Track.Track; ft != nil && ft.ID != "" {
				tracks = append(tracks, *c.convertTrack(ft))
			}
		}
		if len(page.Items) < itemPage {
			return tracks, nil
		}
	}
}

// GetUserPlaylists lists the current user's playlists without their tracks.
func (c *Client) GetUserPlaylists(ctx context.Context) ([]playlist.Playlist, error) {
	var out []playlist.Playlist
	for offset := 0; ; offset += playlistPage {
		page, err := call(ctx, c, "get user playlists", func() (*spotify.SimplePlaylistPage, error) {
			return c.client.CurrentUsersPlaylists(ctx,
				spotify.Limit(playlistPage),
				spotify.Offset(offset),
			)
		})
		if err != nil {
			return nil, err
		}

		for _, p := range page.Playlists {
			out = append(out, playlist.Playlist{ID: string(p.ID), Name: p.Name, Source: track.SourceSpotify})
		}
		if len(page.Playlists) < playlistPage {
			return out, nil
		}
	}
}

// GetPlaylist looks up the name of a playlist by ID, URL, or URI.
func (c *Client) GetPlaylist(ctx context.Context, playlistURL string) (*playlist.Playlist, error) {
	id := parseID(playlistURL, "playlist")
	if id == "" {
		return nil, errors.New("invalid playlist URL")
	}

	p, err := call(ctx, c, "get playlist", func() (*spotify.FullPlaylist, error) {
		return c.client.GetPlaylist(ctx, spotify.ID(id), spotify.Market(c.market))
	})
	if err != nil {
		return nil, errors.Wrap(err, "playlist does not exist or is not accessible")
	}
	return &playlist.Playlist{ID: string(p.ID), Name: p.Name, Source: track.SourceSpotify}, nil
}

func (c *Client) convertTrack(t *spotify.FullTrack) *track.Track {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}

	markets := append([]string(nil), t.AvailableMarkets...)
	// Requests made with a market parameter omit available_markets.
	if len(markets) == 0 && c.market != "" {
		markets = []string{c.market}
	}

	return &track.Track{
		ID:         string(t.ID),
		Title:      t.Name,
		Artists:    artists,
		Album:      t.Album.Name,
		Duration:   time.Duration(t.Duration) * time.Millisecond,
		Source:     track.SourceSpotify,
		Markets:    markets,
		IsPlayable: t.IsPlayable,
	}
}

// call runs fn, retrying rate limits and server errors with exponential backoff.
func call[T any](ctx context.Context, c *Client, op string, fn func() (T, error)) (T, error) {
	var zero T
	delay := c.baseDelay
	for attempt := 1; ; attempt++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		if !isRetryable(err) {
			return zero, errors.Wrapf(err, "failed to %s", op)
		}
		if attempt >= c.maxAttempts {
			return zero, errors.Wrapf(err, "failed to %s after %d attempts", op, attempt)
		}

		zlog.Debug().Msgf("spotify: %s failed (attempt %d/%d), retrying in %s: %v", op, attempt, c.maxAttempts, delay, err)
		if serr := c.sleep(ctx, delay); serr != nil {
			return zero, errors.CombineErrors(errors.Wrapf(err, "failed to %s", op), serr)
		}
		delay *= 2
	}
}

// isRetryable reports whether err is a rate limit or server error.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr spotify.Error
	if errors.As(err, &apiErr) && apiErr.Status != 0 {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= http.StatusInternalServerError
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "rate limit") {
		return true
	}
	for _, code := range []string{"429", "500", "502", "503", "504"} {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}

// parseID extracts the ID from a spotify:<kind>:ID URI or an
// open.spotify.com/<kind>/ID URL. Anything else is taken as a bare ID.
func parseID(input, kind string) string {
	input = strings.TrimSpace(input)

	if id, ok := strings.CutPrefix(input, "spotify:"+kind+":"); ok {
		return id
	}

	marker := "/" + kind + "/"
	if strings.Contains(input, "open.spotify.com") {
		if i := strings.LastIndex(input, marker); i >= 0 {
			id := input[i+len(marker):]
			if j := strings.IndexAny(id, "?#"); j >= 0 {
				id = id[:j]
			}
			return strings.TrimRight(id, "/")
		}
	}

	return input
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

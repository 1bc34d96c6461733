// Package catalog maps tokens to playlists gathered from local and remote sources.
package catalog

import (
	"context"

	"github.com/osa030/tagbox/internal/domain/playlist"
	"github.com/osa030/tagbox/internal/domain/track"
)

// Source is the interface for playlist sources.
type Source interface {
	// Name returns the source name used in logs.
	Name() string
	// Kind returns the track source this Source produces and resolves.
	Kind() track.Source
	// Playlists lists every playlist offered by the source, tracks included.
	Playlists(ctx context.Context) ([]playlist.Playlist, error)
	// Resolve returns a locator the player can load for t.
	Resolve(ctx context.Context, t track.Track) (string, error)
}

// SpotifyClient defines the Spotify operations needed by SpotifySource.
type SpotifyClient interface {
	GetUserPlaylists(ctx context.Context) ([]playlist.Playlist, error)
	GetPlaylist(ctx context.Context, playlistURL string) (*playlist.Playlist, error)
	GetPlaylistTracks(ctx context.Context, playlistURL string) ([]track.Track, error)
	GetTrack(ctx context.Context, trackID string, market ...string) (*track.Track, error)
}

// YouTubeClient defines the YouTube operations needed by YouTubeSource.
type YouTubeClient interface {
	GetPlaylistItems(ctx context.Context, playlistURL string) ([]track.Track, error)
}

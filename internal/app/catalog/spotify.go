package catalog

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tagbox/internal/domain/playlist"
	"github.com/osa030/tagbox/internal/domain/track"
)

// SpotifySourceConfig represents the settings of a spotify source.
type SpotifySourceConfig struct {
	// Playlists restricts the source to the listed playlist URLs/URIs.
	// When empty, all playlists of the current user are offered.
	Playlists []string `yaml:"playlists" mapstructure:"playlists"`
	Market    string   `yaml:"market" mapstructure:"market" default:"JP" validate:"len=2"`
}

// SpotifySource serves playlists from a Spotify account.
type SpotifySource struct {
	client SpotifyClient
	config *SpotifySourceConfig
}

// NewSpotifySource creates a new SpotifySource.
func NewSpotifySource(client SpotifyClient, settings map[string]any) (*SpotifySource, error) {
	if client == nil {
		return nil, errors.New("spotify client is not configured")
	}

	var config SpotifySourceConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	zlog.Debug().Msgf("spotify source config: %+v", config)
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &SpotifySource{client: client, config: &config}, nil
}

func (s *SpotifySource) Name() string {
	return "spotify"
}

func (s *SpotifySource) Kind() track.Source {
	return track.SourceSpotify
}

// Playlists fetches the configured (or all user) playlists with their tracks.
func (s *SpotifySource) Playlists(ctx context.Context) ([]playlist.Playlist, error) {
	var refs []playlist.Playlist
	if len(s.config.Playlists) == 0 {
		all, err := s.client.GetUserPlaylists(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to list user playlists")
		}
		refs = all
	} else {
		for _, url := range s.config.Playlists {
			p, err := s.client.GetPlaylist(ctx, url)
			if err != nil {
				zlog.Warn().Msgf("spotify: playlist %s unavailable: %v", url, err)
				continue
			}
			refs = append(refs, *p)
		}
	}

	pls := make([]playlist.Playlist, 0, len(refs))
	for _, ref := range refs {
		tracks, err := s.client.GetPlaylistTracks(ctx, ref.ID)
		if err != nil {
			zlog.Warn().Msgf("spotify: failed to load tracks of %q: %v", ref.Name, err)
			continue
		}
		pls = append(pls, playlist.Playlist{
			ID:     ref.ID,
			Name:   ref.Name,
			Source: track.SourceSpotify,
			Tracks: tracks,
		})
	}
	return pls, nil
}

// Resolve checks that the track is playable in the market and returns its URI.
func (s *SpotifySource) Resolve(ctx context.Context, t track.Track) (string, error) {
	full, err := s.client.GetTrack(ctx, t.ID, s.config.Market)
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve spotify track %s", t.ID)
	}
	if !full.IsAvailableInMarket(s.config.Market) {
		return "", errors.Wrapf(ErrUnplayable, "spotify track %s in market %s", t.ID, s.config.Market)
	}
	return "spotify:track:" + full.ID, nil
}

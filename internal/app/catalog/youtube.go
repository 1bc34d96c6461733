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

// YouTubePlaylistConfig names a YouTube playlist.
type YouTubePlaylistConfig struct {
	Name string `yaml:"name" mapstructure:"name" validate:"required"`
	URL  string `yaml:"url" mapstructure:"url" validate:"required"`
}

// YouTubeSourceConfig represents the settings of a youtube source.
type YouTubeSourceConfig struct {
	Playlists []YouTubePlaylistConfig `yaml:"playlists" mapstructure:"playlists" validate:"required,min=1,dive"`
}

// YouTubeSource serves configured YouTube playlists.
type YouTubeSource struct {
	client YouTubeClient
	config *YouTubeSourceConfig
}

// NewYouTubeSource creates a new YouTubeSource.
func NewYouTubeSource(client YouTubeClient, settings map[string]any) (*YouTubeSource, error) {
	if client == nil {
		return nil, errors.New("youtube client is not configured")
	}

	var config YouTubeSourceConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	zlog.Debug().Msgf("youtube source config: %+v", config)
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &YouTubeSource{client: client, config: &config}, nil
}

func (s *YouTubeSource) Name() string {
	return "youtube"
}

func (s *YouTubeSource) Kind() track.Source {
	return track.SourceYouTube
}

// Playlists fetches the items of every configured playlist.
func (s *YouTubeSource) Playlists(ctx context.Context) ([]playlist.Playlist, error) {
	pls := make([]playlist.Playlist, 0, len(s.config.Playlists))
	for _, pc := range s.config.Playlists {
		tracks, err := s.client.GetPlaylistItems(ctx, pc.URL)
		if err != nil {
			zlog.Warn().Msgf("youtube: failed to load playlist %q: %v", pc.Name, err)
			continue
		}
		pls = append(pls, playlist.Playlist{
			ID:     pc.URL,
			Name:   pc.Name,
			Source: track.SourceYouTube,
			Tracks: tracks,
		})
	}
	if len(pls) == 0 && len(s.config.Playlists) > 0 {
		return nil, errors.New("no youtube playlist could be loaded")
	}
	return pls, nil
}

// Resolve returns the URI the YouTube backend of the media daemon plays.
func (s *YouTubeSource) Resolve(ctx context.Context, t track.Track) (string, error) {
	if t.ID == "" {
		return "", errors.Wrap(ErrUnplayable, "youtube track without video id")
	}
	return "yt:https://www.youtube.com/watch?v=" + t.ID, nil
}

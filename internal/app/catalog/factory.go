package catalog

import (
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tagbox/internal/app/filter"
	"github.com/osa030/tagbox/internal/infra/config"
)

// NewFromConfig creates a catalog from configuration.
// The local media directory, when set, is always the first source.
func NewFromConfig(cfg *config.Config, spotify SpotifyClient, youtube YouTubeClient, chain *filter.Chain) (*Catalog, error) {
	policy, err := ParseMatchPolicy(cfg.Catalog.Match)
	if err != nil {
		return nil, err
	}

	var sources []Source
	if cfg.Catalog.MediaDir != "" {
		sources = append(sources, NewLocalSource(cfg.Catalog.MediaDir))
		zlog.Info().Msgf("registered catalog source: type=local dir=%s", cfg.Catalog.MediaDir)
	}

	for i, scfg := range cfg.Catalog.Sources {
		var source Source
		zlog.Debug().Msgf("creating catalog source: index=%d type=%s settings=%+v", i+1, scfg.Type, scfg.Settings)
		switch scfg.Type {
		case "spotify":
			source, err = NewSpotifySource(spotify, scfg.Settings)

		case "youtube":
			source, err = NewYouTubeSource(youtube, scfg.Settings)

		default:
			return nil, errors.Newf("unsupported source type: %s (source index %d)", scfg.Type, i)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "failed to create source (index %d, type %s)", i, scfg.Type)
		}

		sources = append(sources, source)
		zlog.Info().Msgf("registered catalog source: index=%d type=%s", i+1, scfg.Type)
	}

	if len(sources) == 0 {
		return nil, errors.New("no catalog sources configured")
	}

	return New(sources, Options{
		Policy:          policy,
		Chain:           chain,
		RefreshCooldown: time.Duration(cfg.Catalog.RefreshCooldownSec) * time.Second,
		RefreshTimeout:  time.Duration(cfg.Catalog.RefreshTimeoutSec) * time.Second,
	}), nil
}

package filter

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tagbox/internal/domain/track"
)

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// Settings is the per-filter configuration consumed by NewChainFromSettings.
type Settings struct {
	Enabled  bool
	Settings map[string]any
}

// NewChainFromSettings builds a chain from the registered filters that are enabled.
func NewChainFromSettings(settings map[string]Settings) (*Chain, error) {
	c := NewChain()
	for name, s := range settings {
		if !s.Enabled {
			continue
		}
		factory, ok := registry[name]
		if !ok {
			return nil, errors.Newf("unknown filter: %s", name)
		}
		f := factory()
		if err := f.ValidateConfig(s.Settings); err != nil {
			return nil, errors.Wrapf(err, "filter %s", name)
		}
		c.Add(f)
		zlog.Info().Msgf("registered track filter: %s", name)
	}
	return c, nil
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters that apply to the track's source.
// Returns immediately if any filter rejects the track.
func (c *Chain) Execute(ctx context.Context, t track.Track) Result {
	for _, f := range c.filters {
		if !f.AppliesTo(t.Source) {
			continue
		}

		result := f.Check(ctx, t)
		if !result.Accepted {
			return result
		}
	}
	return Accept()
}

// Apply returns the tracks of one playlist accepted by the chain, preserving order.
func (c *Chain) Apply(ctx context.Context, tracks []track.Track) []track.Track {
	if len(c.filters) == 0 {
		return tracks
	}
	for _, f := range c.filters {
		if r, ok := f.(Resetter); ok {
			r.Reset()
		}
	}
	kept := make([]track.Track, 0, len(tracks))
	for _, t := range tracks {
		result := c.Execute(ctx, t)
		if !result.Accepted {
			zlog.Debug().Msgf("filter: track dropped: title=%q code=%s", t.Title, result.Code)
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}

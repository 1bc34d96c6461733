package filter

import (
	"context"

	"github.com/osa030/tagbox/internal/domain/track"
)

// MarketConfig selects the market Spotify tracks must be playable in.
type MarketConfig struct {
	Market string `mapstructure:"market" default:"JP" validate:"len=2"`
}

// MarketFilter drops Spotify tracks that are not playable in its market.
type MarketFilter struct {
	market string
}

// NewMarketFilter creates a MarketFilter for market.
func NewMarketFilter(market string) *MarketFilter {
	return &MarketFilter{market: market}
}

func (f *MarketFilter) Name() string {
	return "market_filter"
}

func (f *MarketFilter) Description() string {
	return "Drops Spotify tracks that are not playable in the configured market"
}

func (f *MarketFilter) ReturnCodes() []string {
	return []string{CodeMarketRestriction}
}

func (f *MarketFilter) ValidateConfig(settings map[string]any) error {
	var config MarketConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	f.market = config.Market
	return nil
}

// AppliesTo is true for Spotify only; other sources report no markets.
func (f *MarketFilter) AppliesTo(source track.Source) bool {
	return source == track.SourceSpotify
}

func (f *MarketFilter) Check(ctx context.Context, t track.Track) Result {
	if f.market == "" || t.IsAvailableInMarket(f.market) {
		return Accept()
	}
	return Reject(CodeMarketRestriction)
}

func init() {
	Register("market_filter", func() Filter {
		return &MarketFilter{}
	})
}

package filter

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tagbox/internal/domain/track"
)

// DurationLimitConfig bounds track length in minutes. A max of 0 means no upper bound.
type DurationLimitConfig struct {
	MinMinutes float64 `mapstructure:"min_minutes" default:"0" validate:"gte=0"`
	MaxMinutes float64 `mapstructure:"max_minutes" validate:"gte=0"`
}

// DurationLimitFilter drops tracks outside the configured length range.
// Tracks with unknown duration are kept.
type DurationLimitFilter struct {
	min time.Duration
	max time.Duration
}

// NewDurationLimitFilter creates a filter with the given bounds.
func NewDurationLimitFilter(min, max time.Duration) *DurationLimitFilter {
	return &DurationLimitFilter{min: min, max: max}
}

func (f *DurationLimitFilter) Name() string {
	return "duration_limit_filter"
}

func (f *DurationLimitFilter) Description() string {
	return "Drops tracks shorter than min_minutes or longer than max_minutes"
}

func (f *DurationLimitFilter) ReturnCodes() []string {
	return []string{CodeTooShort, CodeTooLong}
}

func (f *DurationLimitFilter) ValidateConfig(settings map[string]any) error {
	var config DurationLimitConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	if config.MaxMinutes > 0 && config.MinMinutes > config.MaxMinutes {
		return errors.New("min_minutes cannot be greater than max_minutes")
	}

	f.min = minutes(config.MinMinutes)
	f.max = minutes(config.MaxMinutes)
	zlog.Info().Msgf("filter: duration limit min=%s max=%s", f.min, f.max)
	return nil
}

func (f *DurationLimitFilter) AppliesTo(source track.Source) bool {
	return true
}

func (f *DurationLimitFilter) Check(ctx context.Context, t track.Track) Result {
	switch {
	case t.Duration <= 0:
		return Accept()
	case t.Duration < f.min:
		return Reject(CodeTooShort)
	case f.max > 0 && t.Duration > f.max:
		return Reject(CodeTooLong)
	}
	return Accept()
}

func minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}

func init() {
	Register("duration_limit_filter", func() Filter {
		return &DurationLimitFilter{}
	})
}

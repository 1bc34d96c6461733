// Package filter drops catalog tracks that cannot or should not be played.
package filter

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/tagbox/internal/domain/track"
)

// Rejection codes.
const (
	CodeMarketRestriction = "market_restriction"
	CodeTooShort          = "duration_too_short"
	CodeTooLong           = "duration_too_long"
	CodeDuplicate         = "duplicate_track"
)

// Result is the verdict of one filter on one track.
type Result struct {
	Accepted bool
	Code     string // Rejection code, empty when accepted
}

// Accept returns an accepted result.
func Accept() Result {
	return Result{Accepted: true}
}

// Reject returns a rejected result with the given code.
func Reject(code string) Result {
	return Result{Code: code}
}

// Filter is a track filter configured from a settings map.
type Filter interface {
	// Name returns the filter name used as the config key.
	Name() string
	Description() string
	// ReturnCodes lists the rejection codes Check may return.
	ReturnCodes() []string
	// ValidateConfig decodes, validates and stores the settings.
	ValidateConfig(settings map[string]any) error
	// AppliesTo reports whether tracks from source are checked at all.
	AppliesTo(source track.Source) bool
	Check(ctx context.Context, t track.Track) Result
}

// Resetter is implemented by filters that keep state across the tracks of one playlist.
type Resetter interface {
	Reset()
}

var registry = make(map[string]func() Filter)

// Register registers a filter factory under name.
func Register(name string, factory func() Filter) {
	registry[name] = factory
}

// GetRegistered returns all registered filter factories.
func GetRegistered() map[string]func() Filter {
	return registry
}

// decodeSettings decodes a settings map into out (a struct pointer),
// then applies `default` tags and `validate` rules.
func decodeSettings(settings map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}

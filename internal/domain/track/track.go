// Package track provides the Track domain entity.
package track

import "time"

// Source identifies where a track descriptor came from.
type Source string

const (
	SourceLocal   Source = "local"
	SourceSpotify Source = "spotify"
	SourceYouTube Source = "youtube"
)

// Track is an immutable track descriptor obtained from the catalog.
// Remote tracks carry no locator until the session resolves one.
type Track struct {
	ID         string        // Source-specific identity (file path, Spotify ID, video ID)
	Title      string        // Display title
	Artists    []string      // Artist names (may be empty)
	Album      string        // Album name (may be empty)
	Duration   time.Duration // Zero when unknown
	Locator    string        // Playable location, set eagerly for local files only
	IsLocal    bool          // True for files in the media directory
	Source     Source        // Origin of the descriptor
	Markets    []string      // Available markets (Spotify only)
	IsPlayable *bool         // Playable in the configured market (nil if not reported)
}

// Key returns the identity used by locator caches.
func (t Track) Key() string {
	return string(t.Source) + ":" + t.ID
}

// NeedsResolution reports whether the track must be resolved before playback.
func (t Track) NeedsResolution() bool {
	return !t.IsLocal && t.Locator == ""
}

// IsAvailableInMarket checks if the track is available in the specified market.
func (t *Track) IsAvailableInMarket(market string) bool {
	// IsPlayable takes precedence (track relinking)
	if t.IsPlayable != nil {
		return *t.IsPlayable
	}

	for _, m := range t.Markets {
		if m == market {
			return true
		}
	}
	return false
}

package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func boolPtr(v bool) *bool { return &v }

func TestTrack_IsAvailableInMarket(t *testing.T) {
	cases := map[string]struct {
		trk  Track
		want bool
	}{
		"listed market":          {Track{Markets: []string{"US", "JP"}}, true},
		"unlisted market":        {Track{Markets: []string{"US", "GB"}}, false},
		"no markets reported":    {Track{}, false},
		"market codes are exact": {Track{Markets: []string{"jp"}}, false},
		"relinked playable":      {Track{Markets: []string{"US"}, IsPlayable: boolPtr(true)}, true},
		"relinked unplayable":    {Track{Markets: []string{"JP"}, IsPlayable: boolPtr(false)}, false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.trk.IsAvailableInMarket("JP"))
		})
	}
}

func TestTrack_NeedsResolution(t *testing.T) {
	local := Track{ID: "/srv/music/Story/01.mp3", IsLocal: true, Locator: "/srv/music/Story/01.mp3", Source: SourceLocal}
	assert.False(t, local.NeedsResolution())

	remote := Track{ID: "dQw4w9WgXcQ", Source: SourceYouTube}
	assert.True(t, remote.NeedsResolution())

	remote.Locator = "yt:https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	assert.False(t, remote.NeedsResolution())
}

func TestTrack_KeyIncludesSource(t *testing.T) {
	sp := Track{ID: "abc", Source: SourceSpotify}
	yt := Track{ID: "abc", Source: SourceYouTube}

	assert.Equal(t, "spotify:abc", sp.Key())
	assert.NotEqual(t, sp.Key(), yt.Key())
}

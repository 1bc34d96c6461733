package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tagbox/internal/app/playback"
	"github.com/osa030/tagbox/internal/app/token"
	"github.com/osa030/tagbox/internal/infra/config"
)

const wireConfig = `
catalog:
  media_dir: /srv/music
filters:
  duration_limit_filter:
    enabled: true
    settings:
      max_minutes: 10
overrides:
  "4.161.178.195":
    name: Bedtime
    volume: 40
    shuffle: true
  "1.2.3.4":
    name: Morning
announcements:
  start: /srv/clips/start.mp3
  stop: /srv/clips/stop.mp3
`

func TestControllerConfig_Defaults(t *testing.T) {
	cfg, err := config.Parse([]byte(wireConfig))
	require.NoError(t, err)

	assert.Equal(t, playback.DefaultConfig(), controllerConfig(cfg))
}

func TestOverrides(t *testing.T) {
	cfg, err := config.Parse([]byte(wireConfig))
	require.NoError(t, err)

	got := overrides(cfg)
	assert.Equal(t, token.Override{Name: "Bedtime", Volume: 40, Shuffle: true}, got["4.161.178.195"])
	assert.Equal(t, token.Override{Name: "Morning", Volume: 100}, got["1.2.3.4"])
}

func TestClips_OmitsEmpty(t *testing.T) {
	cfg, err := config.Parse([]byte(wireConfig))
	require.NoError(t, err)

	assert.Equal(t, map[playback.Announcement]string{
		playback.AnnounceStart: "/srv/clips/start.mp3",
		playback.AnnounceStop:  "/srv/clips/stop.mp3",
	}, clips(cfg))
}

func TestFilterSettings(t *testing.T) {
	cfg, err := config.Parse([]byte(wireConfig))
	require.NoError(t, err)

	got := filterSettings(cfg)
	require.Contains(t, got, "duration_limit_filter")
	assert.True(t, got["duration_limit_filter"].Enabled)
	assert.Equal(t, 10, got["duration_limit_filter"].Settings["max_minutes"])
}

func TestMs(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, ms(1500))
}

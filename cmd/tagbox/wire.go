package main

import (
	"time"

	"github.com/osa030/tagbox/internal/app/filter"
	"github.com/osa030/tagbox/internal/app/playback"
	"github.com/osa030/tagbox/internal/app/token"
	"github.com/osa030/tagbox/internal/infra/config"
)

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// controllerConfig converts the playback and player sections to controller timing.
func controllerConfig(cfg *config.Config) playback.Config {
	return playback.Config{
		PollInterval:       ms(cfg.Playback.PollIntervalMs),
		TokenCheckInterval: ms(cfg.Playback.TokenCheckIntervalMs),
		WaitInterval:       ms(cfg.Playback.WaitIntervalMs),
		ResumeBackoff:      ms(cfg.Playback.ResumeBackoffMs),
		PrefetchWindow:     ms(cfg.Playback.PrefetchWindowMs),
		VolumeRetries:      cfg.Player.VolumeRetries,
		VolumeRetryDelay:   ms(cfg.Player.VolumeRetryDelayMs),
		OpenTimeout:        ms(cfg.Player.OpenTimeoutMs),
	}
}

// overrides converts the configured UID overrides. A missing volume means full volume.
func overrides(cfg *config.Config) map[string]token.Override {
	out := make(map[string]token.Override, len(cfg.Overrides))
	for key, o := range cfg.Overrides {
		volume := 100
		if o.Volume != nil {
			volume = *o.Volume
		}
		out[key] = token.Override{Name: o.Name, Volume: volume, Shuffle: o.Shuffle}
	}
	return out
}

// clips maps announcements to their configured files. Empty entries are omitted.
func clips(cfg *config.Config) map[playback.Announcement]string {
	all := map[playback.Announcement]string{
		playback.AnnounceStart:    cfg.Announcements.Start,
		playback.AnnounceFound:    cfg.Announcements.Found,
		playback.AnnounceInvalid:  cfg.Announcements.Invalid,
		playback.AnnounceStop:     cfg.Announcements.Stop,
		playback.AnnounceShutdown: cfg.Announcements.Shutdown,
	}
	out := make(map[playback.Announcement]string)
	for name, path := range all {
		if path != "" {
			out[name] = path
		}
	}
	return out
}

func filterSettings(cfg *config.Config) map[string]filter.Settings {
	out := make(map[string]filter.Settings, len(cfg.Filters))
	for name, f := range cfg.Filters {
		out[name] = filter.Settings{Enabled: f.Enabled, Settings: f.Settings}
	}
	return out
}

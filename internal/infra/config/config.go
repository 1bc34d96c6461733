// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Reader        ReaderConfig              `yaml:"reader"`
	Player        PlayerConfig              `yaml:"player"`
	Playback      PlaybackConfig            `yaml:"playback"`
	Catalog       CatalogConfig             `yaml:"catalog"`
	Filters       map[string]FilterConfig   `yaml:"filters"`
	Overrides     map[string]OverrideConfig `yaml:"overrides" validate:"dive"`
	Announcements AnnouncementsConfig       `yaml:"announcements"`
	Power         PowerConfig               `yaml:"power"`
	GPIO          GPIOConfig                `yaml:"gpio"`
	Resume        ResumeConfig              `yaml:"resume"`
	Spotify       SpotifyConfig             `yaml:"spotify"`
	Hooks         HooksConfig               `yaml:"hooks"`
}

// ReaderConfig represents the tag reader configuration.
type ReaderConfig struct {
	Device                string `yaml:"device"` // libnfc connection string, empty for the first device
	MaxBlocks             int    `yaml:"max_blocks" default:"50" validate:"gte=1,lte=256"`
	Raw                   bool   `yaml:"raw"`
	ToleratedReadFailures int    `yaml:"tolerated_read_failures" default:"3" validate:"gte=0"`
}

// PlayerConfig represents the media daemon connection.
type PlayerConfig struct {
	Addr               string `yaml:"addr" default:"localhost:6600" validate:"required"`
	Password           string `yaml:"password"`
	MusicRoot          string `yaml:"music_root"` // MPD music_directory, used to make local paths relative
	VolumeRetries      int    `yaml:"volume_retries" default:"10" validate:"gte=1"`
	VolumeRetryDelayMs int    `yaml:"volume_retry_delay_ms" default:"500" validate:"gte=0"`
	OpenTimeoutMs      int    `yaml:"open_timeout_ms" default:"10000" validate:"gte=0"`
}

// PlaybackConfig represents playback loop timing.
type PlaybackConfig struct {
	PollIntervalMs       int `yaml:"poll_interval_ms" default:"100" validate:"gte=10,lte=5000"`
	TokenCheckIntervalMs int `yaml:"token_check_interval_ms" default:"1000" validate:"gte=100,lte=60000"`
	WaitIntervalMs       int `yaml:"wait_interval_ms" default:"1000" validate:"gte=100,lte=60000"`
	ResumeBackoffMs      int `yaml:"resume_backoff_ms" default:"3000" validate:"gte=0"`
	PrefetchWindowMs     int `yaml:"prefetch_window_ms" default:"5000" validate:"gte=0"`
}

// CatalogConfig represents playlist sources and token matching.
type CatalogConfig struct {
	MediaDir           string         `yaml:"media_dir"`
	Match              string         `yaml:"match" default:"contains" validate:"oneof=contains exact"`
	Watch              bool           `yaml:"watch"`
	RefreshCooldownSec int            `yaml:"refresh_cooldown_sec" default:"60" validate:"gte=0"`
	RefreshTimeoutSec  int            `yaml:"refresh_timeout_sec" default:"30" validate:"gte=1"`
	Sources            []SourceConfig `yaml:"sources" validate:"dive"`
}

// SourceConfig represents a single remote catalog source.
type SourceConfig struct {
	Type     string         `yaml:"type" validate:"required,oneof=spotify youtube"`
	Settings map[string]any `yaml:"settings"`
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// OverrideConfig maps a tag UID to playlist parameters.
type OverrideConfig struct {
	Name    string `yaml:"name"`
	Volume  *int   `yaml:"volume" validate:"omitempty,gte=0,lte=100"`
	Shuffle bool   `yaml:"shuffle"`
}

// AnnouncementsConfig represents the short clips played on state changes.
// Empty entries are silent.
type AnnouncementsConfig struct {
	Start    string `yaml:"start"`
	Found    string `yaml:"found"`
	Invalid  string `yaml:"invalid"`
	Stop     string `yaml:"stop"`
	Shutdown string `yaml:"shutdown"`
}

// PowerConfig represents the idle shutdown behaviour.
type PowerConfig struct {
	IdleShutdownSec  int      `yaml:"idle_shutdown_sec" validate:"gte=0"` // 0 disables
	ShutdownDelaySec int      `yaml:"shutdown_delay_sec" default:"3" validate:"gte=0"`
	Commands         []string `yaml:"commands"`
}

// GPIOConfig names the optional GPIO pins (periph.io names such as "GPIO17").
type GPIOConfig struct {
	SkipPin     string `yaml:"skip_pin"`
	EnablePin   string `yaml:"enable_pin"`
	ShutdownPin string `yaml:"shutdown_pin"`
}

// ResumeConfig represents persistent resume memory.
type ResumeConfig struct {
	Path string `yaml:"path"` // sqlite file, empty keeps resume memory in process only
}

// SpotifyConfig represents Spotify API configuration.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"JP"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("MPD_PASSWORD"); v != "" {
		c.Player.Password = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.Catalog.MediaDir == "" && len(c.Catalog.Sources) == 0 {
		return errors.New("catalog needs a media_dir or at least one source")
	}

	if c.UsesSpotify() {
		if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" || c.Spotify.RefreshToken == "" {
			return errors.New("spotify source configured but spotify credentials are missing")
		}
	}

	for key := range c.Overrides {
		if !IsUIDKey(key) {
			return errors.Newf("override key %q is not a dotted UID (e.g. 1.2.3.4)", key)
		}
	}

	return nil
}

// UsesSpotify reports whether any catalog source needs the Spotify API.
func (c *Config) UsesSpotify() bool {
	return c.usesSource("spotify")
}

// UsesYouTube reports whether any catalog source reads YouTube playlists.
func (c *Config) UsesYouTube() bool {
	return c.usesSource("youtube")
}

func (c *Config) usesSource(kind string) bool {
	for _, s := range c.Catalog.Sources {
		if s.Type == kind {
			return true
		}
	}
	return false
}

// IsUIDKey reports whether key has the form of an override key: up to four
// dot-separated decimal bytes.
func IsUIDKey(key string) bool {
	parts := strings.Split(key, ".")
	if len(parts) == 0 || len(parts) > 4 {
		return false
	}
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return false
		}
	}
	return true
}

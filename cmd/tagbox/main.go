// Package main provides the tagbox entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tagbox/internal/app/catalog"
	"github.com/osa030/tagbox/internal/app/filter"
	"github.com/osa030/tagbox/internal/app/idle"
	"github.com/osa030/tagbox/internal/app/playback"
	"github.com/osa030/tagbox/internal/app/reader"
	"github.com/osa030/tagbox/internal/app/token"
	"github.com/osa030/tagbox/internal/domain/tag"
	"github.com/osa030/tagbox/internal/infra/config"
	"github.com/osa030/tagbox/internal/infra/gpio"
	"github.com/osa030/tagbox/internal/infra/hooks"
	"github.com/osa030/tagbox/internal/infra/logger"
	"github.com/osa030/tagbox/internal/infra/mpd"
	"github.com/osa030/tagbox/internal/infra/nfc"
	"github.com/osa030/tagbox/internal/infra/spotify"
	"github.com/osa030/tagbox/internal/infra/store"
	"github.com/osa030/tagbox/internal/infra/youtube"
)

var (
	app        = kingpin.New("tagbox", "Tag-triggered playlist player")
	configPath = app.Flag("config", "Path to config file").Default("config/tagbox.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
	noColor    = app.Flag("no-color", "Plain console output (for journald)").Bool()

	runCmd = app.Command("run", "Wait for tags and play their playlists (default)").Default()

	readTagCmd   = app.Command("read-tag", "Poll the reader and print every tag read")
	readTagRaw   = readTagCmd.Flag("raw", "Decode without framing/EOL handling").Bool()
	readTagDev   = readTagCmd.Flag("device", "libnfc connection string (default: first device)").String()
	readTagLimit = readTagCmd.Flag("max-blocks", "Maximum blocks read per tag").Default("50").Int()

	listPlaylistsCmd = app.Command("list-playlists", "Load the catalog and print its playlists")
	listFiltersCmd   = app.Command("list-filters", "List available filters and exit")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	loggerConfig := logger.Config{
		Output:  "stdout",
		Level:   "info",
		NoColor: *noColor,
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
		loggerConfig.File = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch command {
	case readTagCmd.FullCommand():
		err = readTags(ctx)
	case listPlaylistsCmd.FullCommand():
		err = withConfig(func(cfg *config.Config) error { return listPlaylists(ctx, cfg) })
	case runCmd.FullCommand():
		err = withConfig(func(cfg *config.Config) error { return run(ctx, cfg) })
	}
	if err != nil {
		zlog.Error().Msgf("%v", err)
		stop()
		_ = logger.Close()
		os.Exit(1)
	}
}

func withConfig(fn func(cfg *config.Config) error) error {
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	return fn(cfg)
}

// run wires the reader, catalog and player together and blocks until a
// signal arrives or the idle shutdown fires. Using a separate function
// ensures defer statements run even when returning with an error.
func run(ctx context.Context, cfg *config.Config) error {
	cat, err := buildCatalog(ctx, cfg)
	if err != nil {
		return err
	}

	if cfg.Catalog.Watch && cfg.Catalog.MediaDir != "" {
		w, err := catalog.NewWatcher(cat, cfg.Catalog.MediaDir)
		if err != nil {
			zlog.Warn().Msgf("Media directory watching disabled: %v", err)
		} else {
			defer w.Close()
			go w.Run(ctx)
		}
	}

	device, err := nfc.Open(cfg.Reader.Device)
	if err != nil {
		return err
	}
	rd := reader.New(device, reader.Config{MaxBlocks: cfg.Reader.MaxBlocks, RawMode: cfg.Reader.Raw})
	defer rd.Close()

	player, err := mpd.New(mpd.Config{
		Addr:      cfg.Player.Addr,
		Password:  cfg.Player.Password,
		MusicRoot: cfg.Player.MusicRoot,
	})
	if err != nil {
		return err
	}

	var enable token.EnableSource
	if cfg.GPIO.EnablePin != "" {
		pin, err := gpio.NewEnablePin(cfg.GPIO.EnablePin)
		if err != nil {
			return err
		}
		enable = pin
	}

	resolver := token.New(rd, cat, enable, token.Config{
		ToleratedFailures: cfg.Reader.ToleratedReadFailures,
		Overrides:         overrides(cfg),
	})

	opts := []playback.Option{
		playback.WithAnnouncer(playback.NewClipAnnouncer(player, clips(cfg))),
	}

	if cfg.Resume.Path != "" {
		st, err := store.Open(cfg.Resume.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		opts = append(opts, playback.WithStore(st))
	}

	guard, err := buildGuard(cfg)
	if err != nil {
		return err
	}
	opts = append(opts, playback.WithGuard(guard))

	controller := playback.NewController(controllerConfig(cfg), resolver, cat, player, opts...)
	defer controller.Close()

	go logEvents(ctx, controller.Events())
	watchSkip(ctx, cfg, controller.Skip())

	if err := hooks.Run(ctx, "on_started", cfg.Hooks.OnStarted); err != nil {
		zlog.Warn().Msgf("on_started hooks failed: %v", err)
	}
	defer func() {
		if err := hooks.Run(context.Background(), "on_stopped", cfg.Hooks.OnStopped); err != nil {
			zlog.Warn().Msgf("on_stopped hooks failed: %v", err)
		}
	}()

	err = controller.Run(ctx)
	if errors.Is(err, playback.ErrShutdown) {
		zlog.Info().Msg("Idle shutdown complete")
		return nil
	}
	zlog.Info().Msg("tagbox stopped")
	return err
}

// buildCatalog creates the remote clients the sources need and loads every source.
func buildCatalog(ctx context.Context, cfg *config.Config) (*catalog.Catalog, error) {
	chain, err := filter.NewChainFromSettings(filterSettings(cfg))
	if err != nil {
		return nil, errors.Wrap(err, "invalid filter config")
	}

	var spotifyClient catalog.SpotifyClient
	if cfg.UsesSpotify() {
		c, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			RefreshToken: cfg.Spotify.RefreshToken,
			Market:       cfg.Spotify.Market,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create Spotify client")
		}
		spotifyClient = c
	}

	var youtubeClient catalog.YouTubeClient
	if cfg.UsesYouTube() {
		youtubeClient = youtube.New(time.Duration(cfg.Catalog.RefreshTimeoutSec) * time.Second)
	}

	cat, err := catalog.NewFromConfig(cfg, spotifyClient, youtubeClient, chain)
	if err != nil {
		return nil, err
	}

	if err := cat.Refresh(ctx); err != nil {
		zlog.Warn().Msgf("Catalog loaded with errors: %v", err)
	}
	zlog.Info().Msgf("Catalog ready: %d playlists", len(cat.Names()))
	return cat, nil
}

// buildGuard creates the idle guard and its power-off action.
func buildGuard(cfg *config.Config) (*idle.Guard, error) {
	if cfg.Power.IdleShutdownSec <= 0 {
		return nil, nil
	}

	power := idle.PowerOff{
		Delay: time.Duration(cfg.Power.ShutdownDelaySec) * time.Second,
	}
	if cfg.GPIO.ShutdownPin != "" {
		pin, err := gpio.NewShutdownPin(cfg.GPIO.ShutdownPin)
		if err != nil {
			return nil, err
		}
		power.Signal = pin.Signal
	}
	if len(cfg.Power.Commands) > 0 {
		commands := cfg.Power.Commands
		power.Commands = func(ctx context.Context) error {
			return hooks.Run(ctx, "shutdown", commands)
		}
	}

	return idle.NewGuard(time.Duration(cfg.Power.IdleShutdownSec)*time.Second, power.Action()), nil
}

// watchSkip requests a skip on SIGUSR1 and on presses of the skip button.
func watchSkip(ctx context.Context, cfg *config.Config, skip *playback.SkipSignal) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGUSR1)
	go func() {
		defer signal.Stop(sigCh)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigCh:
				zlog.Info().Msg("Skip requested by signal")
				skip.Request()
			}
		}
	}()

	if cfg.GPIO.SkipPin == "" {
		return
	}
	button, err := gpio.NewButton(cfg.GPIO.SkipPin)
	if err != nil {
		zlog.Warn().Msgf("Skip button disabled: %v", err)
		return
	}
	go button.Watch(ctx, skip.Request)
}

func logEvents(ctx context.Context, events <-chan playback.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-events:
			if e.Track != nil {
				zlog.Info().Msgf("event: %s session=%s token=%q index=%d title=%q",
					e.Type, e.SessionID, e.Token, e.Index, e.Track.Title)
				continue
			}
			zlog.Info().Msgf("event: %s session=%s token=%q phase=%s", e.Type, e.SessionID, e.Token, e.Phase)
		}
	}
}

// readTags prints every new tag until interrupted.
func readTags(ctx context.Context) error {
	device, err := nfc.Open(*readTagDev)
	if err != nil {
		return err
	}
	rd := reader.New(device, reader.Config{MaxBlocks: *readTagLimit, RawMode: *readTagRaw})
	defer rd.Close()

	fmt.Println("Waiting for tags (Ctrl-C to quit)...")
	var previous tag.UID
	for ctx.Err() == nil {
		out := rd.PollOnce(previous)
		switch out.Kind {
		case reader.OutcomeNewTag:
			fmt.Printf("UID:  %s (override key %s)\n", out.UID, out.UID.Key())
			fmt.Printf("Raw:  %v\n", out.Raw)
			fmt.Printf("Text: %q\n\n", out.Text)
			previous = out.UID
		case reader.OutcomeNoTag:
			previous = nil
		case reader.OutcomeFailure:
			zlog.Debug().Msgf("read failed: %v", out.Err)
		}

		select {
		case <-ctx.Done():
		case <-time.After(500 * time.Millisecond):
		}
	}
	return nil
}

func listPlaylists(ctx context.Context, cfg *config.Config) error {
	cat, err := buildCatalog(ctx, cfg)
	if err != nil {
		return err
	}

	fmt.Println("Playlists:")
	for _, pl := range cat.Playlists() {
		fmt.Printf("  %-40s [%s, %d tracks, %ds]\n", pl.Name, pl.Source, len(pl.Tracks), pl.TotalDuration())
	}
	return nil
}

// printFilters prints available filters.
func printFilters() {
	fmt.Println("Available Filters:")
	for _, factory := range filter.GetRegistered() {
		f := factory()
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}

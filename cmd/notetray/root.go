package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/petems/notetray/internal/app"
	"github.com/petems/notetray/internal/audio"
	"github.com/petems/notetray/internal/config"
	"github.com/petems/notetray/internal/dialog"
	"github.com/petems/notetray/internal/hotkey"
	"github.com/petems/notetray/internal/logging"
	"github.com/petems/notetray/internal/permissions"
	"github.com/petems/notetray/internal/settings"
	"github.com/petems/notetray/internal/sink"
	"github.com/petems/notetray/internal/tray"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfg      *config.Config
	log      zerolog.Logger
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "notetray",
	Short: "Record audio notes from the system tray",
	Long: `NoteTray records audio from a microphone and saves it as a WAV file
next to your notes, in <root>/Notes/<date>_Notes/[<class>/]recording<N>.wav.

Without a subcommand it runs as a system tray application with a global
hotkey. Without a notes root configured it asks where to save each
recording.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load config from XDG/Library/AppData unless a file is given
		var err error
		if cfgFile != "" {
			cfg, err = config.LoadFile(cfgFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.LogLevel
		if logLevel != "" {
			level = logLevel
		}
		log = logging.NewWithLevel(level)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTray()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is the platform config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(configCmd)
}

// pipeline is the capture stack shared by the tray and the CLI commands.
type pipeline struct {
	host  audio.Host
	reg   *audio.Registry
	state *app.AppState
	sink  *sink.Sink
}

func openPipeline() (*pipeline, error) {
	host, err := audio.NewPortAudioHost()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio: %w", err)
	}
	reg := audio.NewRegistry(host)

	store, err := settings.NewFromDefault(reg)
	if err != nil {
		log.Warn().Err(err).Msg("No default input device, pick one from the menu")
	}

	snk, err := sink.New(sink.Options{
		Layout:   sink.NewLayout(cfg.Notes.Root, cfg.Notes.Class, time.Now()),
		BitDepth: cfg.Recording.BitDepth,
		Logger:   log,
	})
	if err != nil {
		host.Close()
		return nil, err
	}

	return &pipeline{
		host:  host,
		reg:   reg,
		state: app.NewAppState(store),
		sink:  snk,
	}, nil
}

func (p *pipeline) Close() {
	if err := p.host.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close audio host")
	}
}

func runTray() error {
	// macOS requires explicit microphone approval before capture works
	if err := permissions.EnsurePermissions(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := openPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	// Create tray UI first (we'll pass it to app)
	trayUI := tray.New(nil, log, Version, Commit) // App reference set below

	dialogs := dialog.Native{}
	application := app.New(app.Config{
		Host:          p.host,
		Registry:      p.reg,
		State:         p.state,
		Sink:          p.sink,
		Config:        cfg,
		Logger:        log,
		Prompter:      dialogs,
		Notifier:      dialogs,
		StatusUpdater: trayUI,
	})

	// Set app reference in tray
	trayUI.SetApp(application)

	// Register global hotkey. The tray menu works without it.
	hkManager, err := hotkey.New()
	if err != nil {
		log.Warn().Err(err).Msg("Global hotkey unavailable")
	} else {
		defer hkManager.Close()
		accel := cfg.PlatformHotkey()
		if err := hkManager.Register(accel, application.OnHotkey); err != nil {
			log.Warn().Err(err).Str("hotkey", accel).Msg("Failed to register hotkey")
		} else {
			log.Info().Str("hotkey", accel).Str("mode", application.Mode()).Msg("Hotkey registered")
		}
	}

	log.Info().Str("version", Version).Msg("NoteTray starting...")

	// Setup shutdown signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Shutting down...")
		cancel()
	}()

	// Start tray UI - MUST run on main thread
	if err := trayUI.Run(ctx); err != nil {
		return fmt.Errorf("tray error: %w", err)
	}

	// Save a recording still in progress on quit; this may prompt for a path
	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.Recording.CloseTimeout+time.Minute)
	defer stop()
	if err := application.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
	return nil
}

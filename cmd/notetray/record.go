package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/petems/notetray/internal/audio"
	"github.com/petems/notetray/internal/sink"
	"github.com/spf13/cobra"
)

var (
	recordDevice   string
	recordDuration time.Duration
	recordOutput   string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record from a microphone until Ctrl+C",
	Long: `Record from the default input device, or the one named with --device,
until Ctrl+C or until --duration elapses. The file goes to --output, or
to the next recording<N>.wav in today's notes directory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openPipeline()
		if err != nil {
			return err
		}
		defer p.Close()

		dev, err := p.state.Settings.Current()
		if recordDevice != "" {
			dev, err = p.reg.ResolveInputByName(recordDevice)
		}
		if err != nil {
			return err
		}

		path := recordOutput
		if path == "" {
			if path, err = p.sink.NextPath(); err != nil {
				return fmt.Errorf("%w: set notes.root in %s or pass --output", err, cfg.Path())
			}
		}

		rec := cfg.Recording
		channels := rec.Channels
		if dev.MaxChannels > 0 && dev.MaxChannels < channels {
			channels = dev.MaxChannels
		}

		session := audio.NewSession(p.host, p.state.Slot, audio.SessionOpts{
			FramesPerBuffer: rec.FramesPerBuffer,
			CloseTimeout:    rec.CloseTimeout,
			MaxFrames:       rec.MaxFrames(),
			Logger:          log,
		})
		if err := session.Start(dev, rec.SampleRate, channels); err != nil {
			return err
		}
		log.Info().Str("device", dev.Name).Str("path", path).Msg("Recording - Press Ctrl+C to stop")

		// Handle interruption
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		var timeout <-chan time.Time
		if recordDuration > 0 {
			timer := time.NewTimer(recordDuration)
			defer timer.Stop()
			timeout = timer.C
		}
		select {
		case <-sigChan:
		case <-timeout:
		}
		log.Info().Msg("Stopping recording...")

		chunks, err := session.Stop()
		if err != nil {
			return fmt.Errorf("failed to stop recording: %w", err)
		}
		stats := session.Stats()
		log.Debug().
			Uint64("delivered", stats.Delivered).
			Uint64("dropped", stats.Dropped).
			Uint64("faults", stats.Faults).
			Msg("Callback stats")

		rate, ch := session.Format()
		out, err := p.sink.Write(sink.RecordingOutput{
			Path:         path,
			SampleRateHz: rate,
			ChannelCount: ch,
		}, chunks)
		if err != nil {
			return err
		}
		fmt.Printf("%s (%d frames, %.1fs)\n", out.Path, out.TotalFrames,
			float64(out.TotalFrames)/float64(out.SampleRateHz))
		return nil
	},
}

func init() {
	recordCmd.Flags().StringVarP(&recordDevice, "device", "d", "", "input device name (default is the host default input)")
	recordCmd.Flags().DurationVarP(&recordDuration, "duration", "t", 0, "stop after this long (default is until Ctrl+C)")
	recordCmd.Flags().StringVarP(&recordOutput, "output", "o", "", "output WAV file (default is the notes directory)")
}

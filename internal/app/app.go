package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/petems/notetray/internal/audio"
	"github.com/petems/notetray/internal/config"
	"github.com/petems/notetray/internal/settings"
	"github.com/petems/notetray/internal/sink"
	"github.com/rs/zerolog"
)

var (
	// ErrNoPending means there is no unsaved recording to save.
	ErrNoPending = errors.New("no unsaved recording")
	// ErrCanceled is returned by a Prompter when the user dismisses it.
	ErrCanceled = errors.New("canceled by user")
	// ErrUnsavedRecording blocks a new recording until the pending one is
	// saved or discarded.
	ErrUnsavedRecording = errors.New("an unsaved recording is pending")
)

// StatusUpdater is an interface for updating status (e.g., tray icon)
type StatusUpdater interface {
	SetIdle()
	SetRecording()
	SetProcessing()
	SetError()
}

// Prompter asks the user for a destination when no notes directory is set.
// It returns ErrCanceled when the user dismisses the prompt.
type Prompter interface {
	PromptSavePath(suggested string) (string, error)
}

// Notifier shows non-blocking messages to the user.
type Notifier interface {
	Notify(title, msg string)
}

// AppState is the process-wide state shared by the capture components.
type AppState struct {
	Settings *settings.Store
	Slot     *audio.Slot
}

func NewAppState(store *settings.Store) *AppState {
	return &AppState{
		Settings: store,
		Slot:     audio.NewSlot(),
	}
}

type Config struct {
	Host          audio.Host
	Registry      *audio.Registry
	State         *AppState
	Sink          *sink.Sink
	Config        *config.Config
	Logger        zerolog.Logger
	Prompter      Prompter      // Optional - without it recordings need a notes directory
	Notifier      Notifier      // Optional - can be nil
	StatusUpdater StatusUpdater // Optional - can be nil
}

type pendingRecording struct {
	out    sink.RecordingOutput
	chunks []audio.SampleChunk
}

type App struct {
	host   audio.Host
	reg    *audio.Registry
	state  *AppState
	sink   *sink.Sink
	cfg    *config.Config
	log    zerolog.Logger
	prompt Prompter
	notify Notifier
	status StatusUpdater

	mu      sync.Mutex
	session *audio.Session
	pending *pendingRecording
	last    *sink.RecordingOutput
}

func New(cfg Config) *App {
	return &App{
		host:   cfg.Host,
		reg:    cfg.Registry,
		state:  cfg.State,
		sink:   cfg.Sink,
		cfg:    cfg.Config,
		log:    cfg.Logger,
		prompt: cfg.Prompter,
		notify: cfg.Notifier,
		status: cfg.StatusUpdater,
	}
}

// SetStatusUpdater sets the status updater (for circular dependency resolution)
func (a *App) SetStatusUpdater(s StatusUpdater) {
	a.mu.Lock()
	a.status = s
	a.mu.Unlock()
}

func (a *App) OnHotkey(pressed bool) {
	switch a.Mode() {
	case config.ModePushToTalk:
		if pressed {
			_ = a.StartRecording()
		} else if a.IsRecording() {
			_, _ = a.StopRecording()
		}
	default:
		if !pressed {
			return
		}
		if a.IsRecording() {
			_, _ = a.StopRecording()
		} else {
			_ = a.StartRecording()
		}
	}
}

// StartRecording opens a session on the selected input device.
func (a *App) StartRecording() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session != nil {
		return a.failLocked("Recording", audio.ErrSessionConflict)
	}
	if a.pending != nil {
		return a.failLocked("Recording", ErrUnsavedRecording)
	}

	dev, err := a.state.Settings.Current()
	if err != nil {
		return a.failLocked("Recording", err)
	}

	rec := a.cfg.Recording
	channels := rec.Channels
	if dev.MaxChannels > 0 && dev.MaxChannels < channels {
		a.log.Info().
			Int("requested", channels).
			Int("device_max", dev.MaxChannels).
			Msg("Reducing channel count to device maximum")
		channels = dev.MaxChannels
	}

	session := audio.NewSession(a.host, a.state.Slot, audio.SessionOpts{
		FramesPerBuffer: rec.FramesPerBuffer,
		CloseTimeout:    rec.CloseTimeout,
		MaxFrames:       rec.MaxFrames(),
		Logger:          a.log,
	})
	if err := session.Start(dev, rec.SampleRate, channels); err != nil {
		return a.failLocked("Recording", err)
	}

	a.log.Debug().Str("session", session.ID().String()).Msg("Session attached")
	a.session = session
	if a.status != nil {
		a.status.SetRecording()
	}
	return nil
}

// StopRecording stops the current session and saves it. If saving fails
// the audio is kept and can be saved with SavePending.
func (a *App) StopRecording() (sink.RecordingOutput, error) {
	a.mu.Lock()
	session := a.session
	if session == nil {
		err := fmt.Errorf("%w: not recording", audio.ErrInvalidState)
		a.mu.Unlock()
		return sink.RecordingOutput{}, err
	}
	a.session = nil
	if a.status != nil {
		a.status.SetProcessing()
	}

	chunks, err := session.Stop()
	if err != nil {
		err = a.failLocked("Recording", err)
		a.mu.Unlock()
		return sink.RecordingOutput{}, err
	}

	rate, channels := session.Format()
	a.log.Info().
		Str("session", session.ID().String()).
		Str("device", session.Device().Name).
		Int("frames", session.Frames()).
		Msg("Recording finished")
	a.pending = &pendingRecording{
		out: sink.RecordingOutput{
			SampleRateHz: rate,
			ChannelCount: channels,
		},
		chunks: chunks,
	}
	a.mu.Unlock()

	return a.SavePending("")
}

// SavePending writes the unsaved recording to path. An empty path uses the
// notes directory or prompts the user.
func (a *App) SavePending(path string) (sink.RecordingOutput, error) {
	a.mu.Lock()
	p := a.pending
	a.mu.Unlock()
	if p == nil {
		return sink.RecordingOutput{}, ErrNoPending
	}

	if path == "" {
		var err error
		path, err = a.destination()
		if errors.Is(err, ErrCanceled) {
			a.log.Info().Msg("Save canceled, recording kept")
			return sink.RecordingOutput{}, err
		}
		if err != nil {
			a.mu.Lock()
			defer a.mu.Unlock()
			return sink.RecordingOutput{}, a.failLocked("Save", err)
		}
	}

	out := p.out
	out.Path = path
	written, err := a.sink.Write(out, p.chunks)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		return written, a.failLocked("Save", err)
	}
	if a.pending == p {
		a.pending = nil
	}
	a.last = &written
	if a.status != nil {
		a.status.SetIdle()
	}
	if a.notify != nil {
		a.notify.Notify("Saved", written.Path)
	}
	return written, nil
}

func (a *App) destination() (string, error) {
	path, err := a.sink.NextPath()
	if errors.Is(err, sink.ErrNoDestination) && a.prompt != nil {
		return a.prompt.PromptSavePath("recording.wav")
	}
	return path, err
}

// TodayNote returns the day's note file in the notes directory, creating
// it when missing.
func (a *App) TodayNote() (string, error) {
	return a.sink.TodayNote()
}

// DiscardPending drops an unsaved recording.
func (a *App) DiscardPending() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending != nil {
		a.log.Info().Msg("Discarded unsaved recording")
		a.pending = nil
	}
	if a.session == nil && a.status != nil {
		a.status.SetIdle()
	}
}

func (a *App) HasPending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending != nil
}

// LastRecording returns the most recently saved recording.
func (a *App) LastRecording() (sink.RecordingOutput, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last == nil {
		return sink.RecordingOutput{}, false
	}
	return *a.last, true
}

func (a *App) failLocked(what string, err error) error {
	a.log.Error().Err(err).Msg(what + " failed")
	if a.status != nil {
		a.status.SetError()
	}
	if a.notify != nil {
		a.notify.Notify(what+" failed", UserMessage(err))
	}
	return err
}

// UserMessage turns pipeline errors into something to show in a dialog.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, audio.ErrSessionConflict):
		return "A recording is already in progress."
	case errors.Is(err, audio.ErrDeviceUnavailable):
		return "No microphone is available. " + err.Error()
	case errors.Is(err, audio.ErrDeviceBusy):
		return "The microphone could not be opened. " + err.Error()
	case errors.Is(err, audio.ErrStreamCloseTimeout):
		return "The audio driver stopped responding. The recording was lost."
	case errors.Is(err, ErrUnsavedRecording):
		return "The last recording has not been saved. Save or discard it from the menu first."
	case errors.Is(err, sink.ErrWriteFailed):
		return err.Error() + ". The recording is kept; choose another location."
	default:
		return err.Error()
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	if !a.IsRecording() {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := a.StopRecording()
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tray actions

func (a *App) Mode() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg.Mode
}

func (a *App) SetMode(mode string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.Mode = mode
	return a.cfg.Save()
}

// SelectDevice applies the input device named name. When several devices
// share the name, the first one in enumeration order is used.
func (a *App) SelectDevice(name string) error {
	dev, err := a.reg.ResolveInputByName(name)
	if err != nil {
		return err
	}
	a.selectDevice(dev)
	return nil
}

// SelectDeviceByID applies the input device with the given host index. It
// reaches devices whose name is shared with an earlier one.
func (a *App) SelectDeviceByID(id int) error {
	dev, err := a.reg.ResolveByID(id, audio.Input)
	if err != nil {
		return err
	}
	a.selectDevice(dev)
	return nil
}

func (a *App) selectDevice(dev audio.AudioDevice) {
	a.state.Settings.Select(dev)
	a.log.Info().Str("device", dev.Name).Int("device_id", dev.ID).Msg("Changed audio device")
}

func (a *App) CurrentDevice() (audio.AudioDevice, error) {
	return a.state.Settings.Current()
}

func (a *App) IsRecording() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session != nil
}

func (a *App) ListDevices() ([]audio.AudioDevice, error) {
	return a.reg.InputDevices()
}

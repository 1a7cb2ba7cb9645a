package app

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/petems/notetray/internal/audio"
	"github.com/petems/notetray/internal/audio/audiotest"
	"github.com/petems/notetray/internal/config"
	"github.com/petems/notetray/internal/settings"
	"github.com/petems/notetray/internal/sink"
	"github.com/rs/zerolog"
)

// Mock implementations for testing
type mockStatus struct {
	mu     sync.Mutex
	states []string
}

func (m *mockStatus) set(s string) {
	m.mu.Lock()
	m.states = append(m.states, s)
	m.mu.Unlock()
}

func (m *mockStatus) SetIdle()       { m.set("idle") }
func (m *mockStatus) SetRecording()  { m.set("recording") }
func (m *mockStatus) SetProcessing() { m.set("processing") }
func (m *mockStatus) SetError()      { m.set("error") }

func (m *mockStatus) last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.states) == 0 {
		return ""
	}
	return m.states[len(m.states)-1]
}

type mockPrompter struct {
	paths []string
	err   error
	calls int
}

func (m *mockPrompter) PromptSavePath(suggested string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	if len(m.paths) == 0 {
		return "", ErrCanceled
	}
	p := m.paths[0]
	m.paths = m.paths[1:]
	return p, nil
}

type mockNotifier struct {
	titles []string
}

func (m *mockNotifier) Notify(title, msg string) {
	m.titles = append(m.titles, title)
}

type testEnv struct {
	app    *App
	host   *audiotest.Host
	status *mockStatus
	notify *mockNotifier
}

type envOpts struct {
	notesRoot string
	prompter  Prompter
	mode      string
	devices   []audio.HostDevice
}

func newTestEnv(t *testing.T, opts envOpts) *testEnv {
	t.Helper()

	devices := opts.devices
	if devices == nil {
		devices = []audio.HostDevice{
			{Index: 0, Name: "Mic A", MaxInputChannels: 2},
			{Index: 1, Name: "Mic B", MaxInputChannels: 2},
		}
	}
	host := audiotest.NewHost(devices...)
	host.SetDefaultInput(0)
	reg := audio.NewRegistry(host)

	store, err := settings.NewFromDefault(reg)
	if err != nil {
		t.Fatalf("NewFromDefault: %v", err)
	}

	cfg, err := config.LoadFile(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	cfg.Recording.CloseTimeout = time.Second
	if opts.mode != "" {
		cfg.Mode = opts.mode
	}

	var layout sink.Layout
	if opts.notesRoot != "" {
		layout = sink.NewLayout(opts.notesRoot, "", time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC))
	}
	snk, err := sink.New(sink.Options{Layout: layout, BitDepth: cfg.Recording.BitDepth, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("sink.New: %v", err)
	}

	status := &mockStatus{}
	notify := &mockNotifier{}
	a := New(Config{
		Host:          host,
		Registry:      reg,
		State:         NewAppState(store),
		Sink:          snk,
		Config:        cfg,
		Logger:        zerolog.Nop(),
		Prompter:      opts.prompter,
		Notifier:      notify,
		StatusUpdater: status,
	})
	return &testEnv{app: a, host: host, status: status, notify: notify}
}

func TestSelectDeviceAppliesToNextStart(t *testing.T) {
	env := newTestEnv(t, envOpts{notesRoot: t.TempDir()})

	if err := env.app.SelectDevice("Mic A"); err != nil {
		t.Fatalf("SelectDevice: %v", err)
	}
	if err := env.app.SelectDevice("Mic B"); err != nil {
		t.Fatalf("SelectDevice: %v", err)
	}

	if err := env.app.StartRecording(); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	opened := env.host.Opened()
	if len(opened) != 1 || opened[0] != 1 {
		t.Fatalf("expected Mic B (#1) to be opened, got %v", opened)
	}
	if _, err := env.app.StopRecording(); err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
}

func TestSelectDeviceUnknown(t *testing.T) {
	env := newTestEnv(t, envOpts{})

	if err := env.app.SelectDevice("Nope"); !errors.Is(err, audio.ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}
	dev, err := env.app.CurrentDevice()
	if err != nil || dev.Name != "Mic A" {
		t.Errorf("expected selection to stay on Mic A, got %+v (%v)", dev, err)
	}
}

func TestRecordToNotesDirectory(t *testing.T) {
	root := t.TempDir()
	env := newTestEnv(t, envOpts{notesRoot: root})

	if err := env.app.StartRecording(); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if !env.app.IsRecording() {
		t.Fatal("expected app to be recording")
	}
	if env.status.last() != "recording" {
		t.Errorf("expected recording status, got %q", env.status.last())
	}

	stream := env.host.LastStream()
	stream.DeliverFrames(512, 0.1)
	stream.DeliverFrames(512, 0.1)
	stream.DeliverFrames(256, 0.1)

	out, err := env.app.StopRecording()
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	expected := filepath.Join(root, "Notes", "2026-10-14_Notes", "recording0.wav")
	if out.Path != expected {
		t.Errorf("expected %s, got %s", expected, out.Path)
	}
	if out.TotalFrames != 1280 {
		t.Errorf("expected 1280 frames, got %d", out.TotalFrames)
	}

	h, err := sink.ReadHeader(out.Path)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h.TotalFrames != 1280 || h.ChannelCount != 2 || h.SampleRateHz != 44100 {
		t.Errorf("unexpected header %+v", h)
	}

	if env.app.IsRecording() {
		t.Error("expected app to stop recording")
	}
	if env.status.last() != "idle" {
		t.Errorf("expected idle status, got %q", env.status.last())
	}
	if last, ok := env.app.LastRecording(); !ok || last.Path != out.Path {
		t.Errorf("expected last recording %s, got %+v", out.Path, last)
	}

	// Immediate start/stop still produces a valid file with the next number.
	if err := env.app.StartRecording(); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	second, err := env.app.StopRecording()
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if filepath.Base(second.Path) != "recording1.wav" {
		t.Errorf("expected recording1.wav, got %s", filepath.Base(second.Path))
	}
	if second.TotalFrames != 0 {
		t.Errorf("expected empty recording, got %d frames", second.TotalFrames)
	}
}

func TestWriteFailedKeepsRecordingForRetry(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	prompter := &mockPrompter{paths: []string{filepath.Join(blocker, "out.wav")}}
	env := newTestEnv(t, envOpts{prompter: prompter})

	if err := env.app.StartRecording(); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	stream := env.host.LastStream()
	stream.DeliverFrames(512, 0.3)
	stream.DeliverFrames(512, 0.3)
	stream.DeliverFrames(256, 0.3)

	_, err := env.app.StopRecording()
	if !errors.Is(err, sink.ErrWriteFailed) {
		t.Fatalf("expected ErrWriteFailed, got %v", err)
	}
	if !env.app.HasPending() {
		t.Fatal("expected recording to be kept after failed write")
	}
	if env.status.last() != "error" {
		t.Errorf("expected error status, got %q", env.status.last())
	}

	good := filepath.Join(dir, "retry.wav")
	out, err := env.app.SavePending(good)
	if err != nil {
		t.Fatalf("SavePending: %v", err)
	}
	if out.Path != good || out.TotalFrames != 1280 {
		t.Errorf("unexpected output %+v", out)
	}
	if env.app.HasPending() {
		t.Error("expected pending recording to be cleared")
	}
	if _, err := env.app.SavePending(good); !errors.Is(err, ErrNoPending) {
		t.Errorf("expected ErrNoPending, got %v", err)
	}
}

func TestPromptCanceledKeepsRecording(t *testing.T) {
	prompter := &mockPrompter{}
	env := newTestEnv(t, envOpts{prompter: prompter})

	if err := env.app.StartRecording(); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	env.host.LastStream().DeliverFrames(100, 0.1)

	if _, err := env.app.StopRecording(); !errors.Is(err, ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
	if prompter.calls != 1 {
		t.Errorf("expected one prompt, got %d", prompter.calls)
	}
	if !env.app.HasPending() {
		t.Fatal("expected recording to be kept")
	}

	env.app.DiscardPending()
	if env.app.HasPending() {
		t.Error("expected pending recording to be discarded")
	}
}

func TestNoDestinationWithoutPrompter(t *testing.T) {
	env := newTestEnv(t, envOpts{})

	if err := env.app.StartRecording(); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if _, err := env.app.StopRecording(); !errors.Is(err, sink.ErrNoDestination) {
		t.Fatalf("expected ErrNoDestination, got %v", err)
	}
	if !env.app.HasPending() {
		t.Error("expected recording to be kept")
	}
}

func TestStartWithoutDevice(t *testing.T) {
	env := newTestEnv(t, envOpts{})
	env.app.state.Settings = settings.New()

	if err := env.app.StartRecording(); !errors.Is(err, audio.ErrDeviceUnavailable) {
		t.Fatalf("expected ErrDeviceUnavailable, got %v", err)
	}
	if env.app.IsRecording() {
		t.Error("expected app not to be recording")
	}
	if len(env.notify.titles) != 1 || env.notify.titles[0] != "Recording failed" {
		t.Errorf("expected a failure notification, got %v", env.notify.titles)
	}
}

func TestStartWhileRecording(t *testing.T) {
	env := newTestEnv(t, envOpts{notesRoot: t.TempDir()})

	if err := env.app.StartRecording(); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if err := env.app.StartRecording(); !errors.Is(err, audio.ErrSessionConflict) {
		t.Fatalf("expected ErrSessionConflict, got %v", err)
	}
	if len(env.host.Opened()) != 1 {
		t.Errorf("expected a single stream, got %d", len(env.host.Opened()))
	}
	if !env.app.IsRecording() {
		t.Error("expected first recording to continue")
	}
}

func TestStopWithoutStart(t *testing.T) {
	env := newTestEnv(t, envOpts{})

	if _, err := env.app.StopRecording(); !errors.Is(err, audio.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestChannelsClampedToDevice(t *testing.T) {
	env := newTestEnv(t, envOpts{
		notesRoot: t.TempDir(),
		devices:   []audio.HostDevice{{Index: 0, Name: "Mono Mic", MaxInputChannels: 1}},
	})

	if err := env.app.StartRecording(); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if ch := env.host.LastStream().Params.Channels; ch != 1 {
		t.Errorf("expected 1 channel, got %d", ch)
	}
	out, err := env.app.StopRecording()
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if out.ChannelCount != 1 {
		t.Errorf("expected mono output, got %d channels", out.ChannelCount)
	}
}

func TestToggleModeKeyPress(t *testing.T) {
	env := newTestEnv(t, envOpts{notesRoot: t.TempDir(), mode: config.ModeToggle})

	// Initially not recording
	if env.app.IsRecording() {
		t.Error("App should not be recording initially")
	}

	// Key release when not recording - should do nothing
	env.app.OnHotkey(false)
	if env.app.IsRecording() {
		t.Error("App should not start recording on key release")
	}

	// First key press - should start recording
	env.app.OnHotkey(true)
	if !env.app.IsRecording() {
		t.Error("App should be recording after first key press")
	}

	// Key release - should NOT stop recording in Toggle mode
	env.app.OnHotkey(false)
	if !env.app.IsRecording() {
		t.Error("App should still be recording after key release in Toggle mode")
	}

	// Second key press - should stop recording
	env.app.OnHotkey(true)
	if env.app.IsRecording() {
		t.Error("App should have stopped recording after second key press")
	}
	if _, ok := env.app.LastRecording(); !ok {
		t.Error("expected the recording to be saved")
	}
}

func TestPushToTalkModeKeyPress(t *testing.T) {
	env := newTestEnv(t, envOpts{notesRoot: t.TempDir(), mode: config.ModePushToTalk})

	// Key press - should start recording
	env.app.OnHotkey(true)
	if !env.app.IsRecording() {
		t.Error("App should be recording after key press")
	}

	// Key release - should stop recording in PushToTalk mode
	env.app.OnHotkey(false)
	if env.app.IsRecording() {
		t.Error("App should have stopped recording after key release")
	}
	if _, ok := env.app.LastRecording(); !ok {
		t.Error("expected the recording to be saved")
	}
}

func TestSetModePersists(t *testing.T) {
	env := newTestEnv(t, envOpts{})

	if err := env.app.SetMode(config.ModePushToTalk); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	loaded, err := config.LoadFile(env.app.cfg.Path())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if loaded.Mode != config.ModePushToTalk {
		t.Errorf("expected PushToTalk to be saved, got %s", loaded.Mode)
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{audio.ErrSessionConflict, "A recording is already in progress."},
		{ErrUnsavedRecording, "The last recording has not been saved. Save or discard it from the menu first."},
		{audio.ErrStreamCloseTimeout, "The audio driver stopped responding. The recording was lost."},
		{errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		if got := UserMessage(tt.err); got != tt.expected {
			t.Errorf("UserMessage(%v) = %q, expected %q", tt.err, got, tt.expected)
		}
	}
}

func TestStartRefusedWhileRecordingUnsaved(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	prompter := &mockPrompter{paths: []string{filepath.Join(blocker, "out.wav")}}
	env := newTestEnv(t, envOpts{prompter: prompter})

	if err := env.app.StartRecording(); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	env.host.LastStream().DeliverFrames(1000, 0.2)
	if _, err := env.app.StopRecording(); !errors.Is(err, sink.ErrWriteFailed) {
		t.Fatalf("expected ErrWriteFailed, got %v", err)
	}

	// A second recording must not replace the unsaved one.
	if err := env.app.StartRecording(); !errors.Is(err, ErrUnsavedRecording) {
		t.Fatalf("expected ErrUnsavedRecording, got %v", err)
	}
	if env.app.IsRecording() {
		t.Fatal("expected no recording to start")
	}
	if len(env.host.Opened()) != 1 {
		t.Errorf("expected a single stream, got %d", len(env.host.Opened()))
	}

	out, err := env.app.SavePending(filepath.Join(dir, "retry.wav"))
	if err != nil {
		t.Fatalf("SavePending: %v", err)
	}
	if out.TotalFrames != 1000 {
		t.Fatalf("expected the first recording (1000 frames), got %d", out.TotalFrames)
	}

	// Once saved, recording is allowed again.
	if err := env.app.StartRecording(); err != nil {
		t.Fatalf("StartRecording after save: %v", err)
	}
}

func TestStartAllowedAfterDiscard(t *testing.T) {
	env := newTestEnv(t, envOpts{prompter: &mockPrompter{}})

	if err := env.app.StartRecording(); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if _, err := env.app.StopRecording(); !errors.Is(err, ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
	if err := env.app.StartRecording(); !errors.Is(err, ErrUnsavedRecording) {
		t.Fatalf("expected ErrUnsavedRecording, got %v", err)
	}

	env.app.DiscardPending()
	if err := env.app.StartRecording(); err != nil {
		t.Fatalf("StartRecording after discard: %v", err)
	}
}

func TestSelectDeviceByIDWithSharedName(t *testing.T) {
	env := newTestEnv(t, envOpts{
		notesRoot: t.TempDir(),
		devices: []audio.HostDevice{
			{Index: 0, Name: "USB Headset", MaxInputChannels: 2},
			{Index: 1, Name: "USB Headset", MaxInputChannels: 2},
		},
	})

	// By name only the first one is reachable.
	if err := env.app.SelectDevice("USB Headset"); err != nil {
		t.Fatalf("SelectDevice: %v", err)
	}
	if dev, _ := env.app.CurrentDevice(); dev.ID != 0 {
		t.Errorf("expected device #0 by name, got #%d", dev.ID)
	}

	if err := env.app.SelectDeviceByID(1); err != nil {
		t.Fatalf("SelectDeviceByID: %v", err)
	}
	if err := env.app.StartRecording(); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if opened := env.host.Opened(); len(opened) != 1 || opened[0] != 1 {
		t.Errorf("expected device #1 to be opened, got %v", opened)
	}

	if err := env.app.SelectDeviceByID(7); !errors.Is(err, audio.ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound, got %v", err)
	}
}

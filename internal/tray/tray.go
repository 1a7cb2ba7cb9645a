package tray

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/getlantern/systray"
	"github.com/petems/notetray/internal/app"
	"github.com/petems/notetray/internal/config"
	"github.com/petems/notetray/internal/dialog"
	"github.com/petems/notetray/internal/logging"
	"github.com/petems/notetray/internal/sink"
	"github.com/rs/zerolog"
)

type UI struct {
	app     *app.App
	dialogs dialog.Native
	version string
	commit  string
	log     zerolog.Logger

	mu     sync.Mutex
	ready  bool
	status string

	// Menu items
	mStartStop *systray.MenuItem
	mMode      *systray.MenuItem
	mDevices   *systray.MenuItem
	mRescan    *systray.MenuItem
	mSave      *systray.MenuItem
	mDiscard   *systray.MenuItem
	mCopy      *systray.MenuItem
	mNote      *systray.MenuItem

	deviceItems []*systray.MenuItem
	deviceDone  chan struct{}
}

// Status update methods for the app to call
func (u *UI) SetIdle() {
	u.updateStatus("idle")
}

func (u *UI) SetRecording() {
	u.updateStatus("recording")
}

func (u *UI) SetProcessing() {
	u.updateStatus("processing")
}

func (u *UI) SetError() {
	u.updateStatus("error")
}

func New(application *app.App, log zerolog.Logger, version, commit string) *UI {
	return &UI{
		app:     application,
		version: version,
		commit:  commit,
		log:     log,
		status:  "idle",
	}
}

// SetApp sets the app reference (for circular dependency resolution)
func (u *UI) SetApp(application *app.App) {
	u.app = application
}

func (u *UI) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		systray.Quit()
	}()
	systray.Run(u.onReady, u.onExit)
	return nil
}

func (u *UI) onReady() {
	systray.SetTooltip("Record audio notes")

	// Build menu
	u.mStartStop = systray.AddMenuItem(startStopLabel(false), "Press hotkey to record")
	u.mSave = systray.AddMenuItem("Save Unsaved Recording…", "Choose where to save the last recording")
	u.mDiscard = systray.AddMenuItem("Discard Unsaved Recording", "Drop the last recording")
	u.mCopy = systray.AddMenuItem("Copy Last Recording Path", "Copy the saved file path")
	u.mNote = systray.AddMenuItem("Open Today's Note", "Open the note next to today's recordings")
	systray.AddSeparator()

	u.mMode = systray.AddMenuItem(modeLabel(u.app.Mode()), "Toggle between modes")
	systray.AddSeparator()

	u.mDevices = systray.AddMenuItem("Microphone", "Select audio device")
	u.mRescan = u.mDevices.AddSubMenuItem("Rescan Devices", "Refresh the device list")
	u.buildDeviceMenu()

	systray.AddSeparator()
	mLogs := systray.AddMenuItem("Open Logs", "View application logs")
	mAbout := systray.AddMenuItem("About", "About NoteTray")
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	u.mu.Lock()
	u.ready = true
	status := u.status
	u.mu.Unlock()
	u.render(status)

	// Event loop
	go u.handleEvents(mLogs, mAbout, mQuit)
}

func (u *UI) handleEvents(mLogs, mAbout, mQuit *systray.MenuItem) {
	for {
		select {
		case <-u.mStartStop.ClickedCh:
			u.toggleRecording()
		case <-u.mSave.ClickedCh:
			u.savePending()
		case <-u.mDiscard.ClickedCh:
			u.app.DiscardPending()
			u.refreshItems()
		case <-u.mCopy.ClickedCh:
			u.copyLastPath()
		case <-u.mNote.ClickedCh:
			u.openTodayNote()
		case <-u.mMode.ClickedCh:
			u.toggleMode()
		case <-u.mRescan.ClickedCh:
			u.buildDeviceMenu()
		case <-mLogs.ClickedCh:
			u.openLogs()
		case <-mAbout.ClickedCh:
			u.showAbout()
		case <-mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

func (u *UI) toggleRecording() {
	// Failures are reported to the user by the app.
	if u.app.IsRecording() {
		_, _ = u.app.StopRecording()
	} else {
		_ = u.app.StartRecording()
	}
	u.refreshItems()
}

func (u *UI) savePending() {
	if !u.app.HasPending() {
		return
	}
	path, err := u.dialogs.PromptSavePath("recording.wav")
	if errors.Is(err, app.ErrCanceled) {
		return
	}
	if err == nil {
		_, err = u.app.SavePending(path)
	}
	if err != nil {
		u.dialogs.Error("Save failed", app.UserMessage(err))
	}
	u.refreshItems()
}

func (u *UI) copyLastPath() {
	out, ok := u.app.LastRecording()
	if !ok {
		return
	}
	if err := clipboard.WriteAll(out.Path); err != nil {
		u.log.Error().Err(err).Msg("Failed to copy recording path")
		return
	}
	u.log.Info().Str("path", out.Path).Msg("Copied recording path")
}

// buildDeviceMenu lists the input devices under the Microphone menu. On
// rescan the previous items are hidden, since systray cannot remove them.
func (u *UI) buildDeviceMenu() {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.deviceDone != nil {
		close(u.deviceDone)
	}
	for _, item := range u.deviceItems {
		item.Hide()
	}
	u.deviceItems = nil
	u.deviceDone = make(chan struct{})

	devices, err := u.app.ListDevices()
	if err != nil {
		u.log.Error().Err(err).Msg("Failed to list audio devices")
		return
	}

	current, currentErr := u.app.CurrentDevice()
	items := make([]*systray.MenuItem, 0, len(devices))
	for _, dev := range devices {
		item := u.mDevices.AddSubMenuItem(dev.Name, fmt.Sprintf("Device #%d", dev.ID))
		if currentErr == nil && dev.ID == current.ID {
			item.Check()
		}
		items = append(items, item)
	}
	u.deviceItems = items

	for i, dev := range devices {
		go func(id int, name string, menuItem *systray.MenuItem, done <-chan struct{}) {
			for {
				select {
				case <-done:
					return
				case <-menuItem.ClickedCh:
				}
				// By ID, so devices sharing a name stay distinct.
				if err := u.app.SelectDeviceByID(id); err != nil {
					u.log.Error().Err(err).Str("device", name).Msg("Failed to select audio device")
					u.dialogs.Error("Microphone", app.UserMessage(err))
					continue
				}
				// Uncheck all other items
				for _, itm := range items {
					if itm != menuItem {
						itm.Uncheck()
					}
				}
				// Check this item
				menuItem.Check()
			}
		}(dev.ID, dev.Name, items[i], u.deviceDone)
	}
}

func (u *UI) toggleMode() {
	oldMode := u.app.Mode()
	newMode := nextMode(oldMode)
	if err := u.app.SetMode(newMode); err != nil {
		u.log.Error().Err(err).Msg("Failed to save mode")
	}
	u.mMode.SetTitle(modeLabel(newMode))
	u.log.Info().Str("from", oldMode).Str("to", newMode).Msg("Changed mode")
}

func (u *UI) openTodayNote() {
	path, err := u.app.TodayNote()
	if errors.Is(err, sink.ErrNoDestination) {
		u.dialogs.Info("Notes", "Set notes.root in the config file to keep notes and recordings together.")
		return
	}
	if err == nil {
		err = dialog.Open(path)
	}
	if err != nil {
		u.log.Error().Err(err).Msg("Failed to open today's note")
		u.dialogs.Error("Notes", err.Error())
	}
}

func (u *UI) openLogs() {
	if err := dialog.Open(logging.LogPath()); err != nil {
		u.log.Error().Err(err).Msg("Failed to open logs")
		u.dialogs.Error("Open Logs", err.Error())
	}
}

func (u *UI) showAbout() {
	u.dialogs.Info("About", fmt.Sprintf("NoteTray %s (%s)\nAudio notes from the tray", u.version, u.commit))
}

func (u *UI) onExit() {
	// Cleanup
}

// updateStatus records status and redraws the tray once the menu exists.
func (u *UI) updateStatus(status string) {
	u.mu.Lock()
	u.status = status
	ready := u.ready
	u.mu.Unlock()
	if ready {
		u.render(status)
	}
}

// render sets the tray title with microphone emoji and status indicator
func (u *UI) render(status string) {
	systray.SetTitle(fmt.Sprintf("🎤 %s", emojiForStatus(status)))
	u.mStartStop.SetTitle(startStopLabel(status == "recording"))
	// The app may hold its lock while reporting status.
	go u.refreshItems()
}

func (u *UI) refreshItems() {
	setEnabled(u.mSave, u.app.HasPending())
	setEnabled(u.mDiscard, u.app.HasPending())
	_, ok := u.app.LastRecording()
	setEnabled(u.mCopy, ok)
}

func setEnabled(item *systray.MenuItem, enabled bool) {
	if enabled {
		item.Enable()
	} else {
		item.Disable()
	}
}

// emojiForStatus returns the appropriate status emoji
func emojiForStatus(status string) string {
	switch status {
	case "recording":
		return "🔴" // Red - recording
	case "processing":
		return "🟡" // Yellow - writing the file
	case "idle":
		return "🟢" // Green - ready/idle
	case "error":
		return "⚪️" // White - error
	default:
		return "🟢" // Green - default to ready
	}
}

func startStopLabel(recording bool) string {
	if recording {
		return "Stop Recording"
	}
	return "Start Recording"
}

func modeLabel(mode string) string {
	if mode == config.ModePushToTalk {
		return "Mode: Push-to-Talk"
	}
	return "Mode: Toggle"
}

func nextMode(mode string) string {
	if mode == config.ModePushToTalk {
		return config.ModeToggle
	}
	return config.ModePushToTalk
}

// Package dialog shows native dialogs and desktop notifications.
package dialog

import (
	"errors"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/gen2brain/beeep"
	"github.com/ncruces/zenity"
	"github.com/petems/notetray/internal/app"
)

const appName = "NoteTray"

// Native implements app.Prompter and app.Notifier with zenity and beeep.
type Native struct{}

// PromptSavePath asks where to save a recording.
func (Native) PromptSavePath(suggested string) (string, error) {
	path, err := zenity.SelectFileSave(
		zenity.Title(appName+": save recording"),
		zenity.Filename(suggested),
		zenity.ConfirmOverwrite(),
		zenity.FileFilter{Name: "WAV audio", Patterns: []string{"*.wav"}},
	)
	if errors.Is(err, zenity.ErrCanceled) {
		return "", app.ErrCanceled
	}
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(filepath.Ext(path), ".wav") {
		path += ".wav"
	}
	return path, nil
}

// Error shows a blocking error dialog.
func (Native) Error(title, msg string) {
	_ = zenity.Error(msg, zenity.Title(appName+": "+title), zenity.ErrorIcon)
}

// Notify shows a desktop notification.
func (Native) Notify(title, msg string) {
	_ = beeep.Notify(appName+": "+title, msg, "")
}

// Info shows a blocking information dialog.
func (Native) Info(title, msg string) {
	_ = zenity.Info(msg, zenity.Title(appName+": "+title), zenity.InfoIcon)
}

// Open opens path with the desktop's default application.
func Open(path string) error {
	name, args := openCommand(runtime.GOOS, path)
	return exec.Command(name, args...).Start()
}

func openCommand(goos, path string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{path}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", path}
	default:
		return "xdg-open", []string{path}
	}
}

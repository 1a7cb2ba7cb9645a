//go:build !linux && !darwin

package hotkey

import "errors"

// ErrUnsupported is returned where no global hotkey backend exists. The
// tray menu still works.
var ErrUnsupported = errors.New("global hotkeys are not supported on this platform")

// New returns ErrUnsupported.
func New() (Manager, error) {
	return nil, ErrUnsupported
}

package audio

import "errors"

var (
	// ErrDeviceUnavailable means the host could not be queried or has no
	// device to offer.
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	// ErrDeviceBusy means the device could not be opened with the
	// requested format.
	ErrDeviceBusy = errors.New("audio device busy")
	// ErrDeviceNotFound means no device matched a lookup.
	ErrDeviceNotFound = errors.New("audio device not found")
	// ErrSessionConflict means another session holds the recording slot.
	ErrSessionConflict = errors.New("a recording is already in progress")
	// ErrInvalidState means the operation is not valid in the session's
	// current state.
	ErrInvalidState = errors.New("invalid recording state")
	// ErrStreamCloseTimeout means the driver did not confirm closure in
	// time. The session's audio was discarded.
	ErrStreamCloseTimeout = errors.New("timed out waiting for audio stream to close")
)

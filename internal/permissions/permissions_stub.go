//go:build !darwin

package permissions

// CheckMicrophone always reports Authorized; only macOS gates microphone
// access per application.
func CheckMicrophone() Status {
	return Authorized
}

// EnsurePermissions is a no-op on non-macOS platforms.
func EnsurePermissions() error {
	return CheckMicrophone().Err()
}

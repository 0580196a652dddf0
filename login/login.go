// Package login registers the application to start with the user session.
package login

import "errors"

var ErrUnsupported = errors.New("auto start is not supported on this platform")

// Apply enables or disables auto start to match enabled. It does nothing
// when the current registration already matches.
func Apply(enabled bool) error {
	if enabled == Enabled() {
		return nil
	}
	if enabled {
		return Enable()
	}
	return Disable()
}

// passEnv lists variables copied into the login item so the started
// process sees the same configuration.
var passEnv = []string{"OPENAI_API_KEY", "DICTATE_CONFIG", "DICTATE_LOG_PATH"}

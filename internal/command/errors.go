package command

import "errors"

var (
	// ErrCommandInFlight is returned when a wait is already outstanding
	// for the same device and command name. The caller retries after the
	// first wait resolves or times out; waiters are never silently
	// orphaned.
	ErrCommandInFlight = errors.New("command: already in flight")

	// ErrClosed is returned when the correlator has shut down.
	ErrClosed = errors.New("command: correlator closed")
)

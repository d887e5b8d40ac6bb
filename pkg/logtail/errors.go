package logtail

import "errors"

var (
	// ErrRead wraps failures reading the log file after it was opened.
	ErrRead = errors.New("log read failed")

	// ErrLivenessFailure is returned when a heartbeat probe could not be
	// sent, was not answered in time, or was answered with anything but pong.
	ErrLivenessFailure = errors.New("ping error")
)

package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrChannelUnavailable means the recipient cannot be reached on the requested channel.
	ErrChannelUnavailable = errors.New("channel unavailable")
	// ErrUnsubscribed means the recipient opted out of outbound messages.
	ErrUnsubscribed = errors.New("recipient unsubscribed")
	// ErrConflict means the operation collides with one already in progress.
	ErrConflict = errors.New("conflict")
)

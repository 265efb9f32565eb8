package chat

import "errors"

var (
	// ErrLineTooLong is returned when a client fills its receive buffer
	// without sending a line terminator.
	ErrLineTooLong = errors.New("line too long")

	// ErrOutboxFull is returned when queuing a payload would push a client's
	// unsent bytes past the configured limit.
	ErrOutboxFull = errors.New("outbox full")

	// ErrClientClosed is returned when sending to a client that was torn down.
	ErrClientClosed = errors.New("client closed")
)

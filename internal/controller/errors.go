package controller

import "errors"

// Sentinel errors for controller operations.
// Callers use errors.Is() to check error types.
var (
	// ErrTimeout is returned when the agent does not answer in time.
	ErrTimeout = errors.New("controller: agent reply timeout")

	// ErrRejected is returned when the agent answers ok=false.
	ErrRejected = errors.New("controller: command rejected")

	// ErrBadReply is returned when an agent reply cannot be decoded.
	ErrBadReply = errors.New("controller: bad reply")
)

package server

import (
	"errors"
	"fmt"

	"cropcraft.ai/internal/protocol"
	"cropcraft.ai/internal/sim/game"
)

// codedError carries the machine code the protocol layer reports
// alongside the message.
type codedError struct {
	code string
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

func badRequest(format string, args ...any) error {
	return &codedError{code: protocol.ErrBadRequest, err: fmt.Errorf(format, args...)}
}

func precondition(format string, args ...any) error {
	return &codedError{code: protocol.ErrPrecondition, err: fmt.Errorf(format, args...)}
}

func lookupFailed(err error) error {
	return &codedError{code: protocol.ErrLookup, err: err}
}

// classify maps a handler error onto its protocol code.
func classify(err error) string {
	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}
	switch {
	case errors.Is(err, game.ErrPastDay):
		return protocol.ErrPastDay
	case errors.Is(err, game.ErrNotPlanted):
		return protocol.ErrPrecondition
	case errors.Is(err, protocol.ErrEmptyPayload):
		return protocol.ErrBadRequest
	default:
		return protocol.ErrInternal
	}
}

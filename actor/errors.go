package actor

import (
	"errors"
	"fmt"
)

// ErrClosed is returned when sending to a process whose inbox no longer
// accepts messages, either because it stopped or because it never existed.
var ErrClosed = errors.New("actor: process closed")

// ErrFull is returned by a non-blocking send to a process whose inbox has
// no room left.
var ErrFull = errors.New("actor: inbox full")

type ErrInitFailed struct {
	Errors []error
}

func (e ErrInitFailed) Error() string {
	return fmt.Sprintf("failed to initialize engine: %v", e.Errors)
}

func (e ErrInitFailed) Unwrap() []error {
	return e.Errors
}

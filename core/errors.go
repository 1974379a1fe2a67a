package core

import (
	"errors"
	"fmt"
)

var (
	ErrNilTask            = errors.New("core: nil task")
	ErrNegativeDelay      = errors.New("core: negative delay")
	ErrWrongThread        = errors.New("core: message loop used from a goroutine other than its owner")
	ErrAlreadyRunning     = errors.New("core: message loop is already running")
	ErrLoopDestroyed      = errors.New("core: message loop has been destroyed")
	ErrAlreadyStarted     = errors.New("core: thread already started")
	ErrNotRunning         = errors.New("core: thread is not running")
	ErrThreadStartTimeout = errors.New("core: timed out waiting for thread to start")
	ErrDuplicateObserver  = errors.New("core: observer already registered")
	ErrNilObserver        = errors.New("core: nil observer")
	ErrInFlightUnderflow  = errors.New("core: in-flight counter decremented below zero")
)

// PanicError carries a value recovered from a panicking task.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("core: task panicked: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

package service

import "github.com/pkg/errors"

// InputError means the caller sent nothing usable.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

// ProcessingError wraps a failure while decoding, detecting, drawing or
// storing.
type ProcessingError struct {
	Err error
}

func (e *ProcessingError) Error() string { return e.Err.Error() }

func (e *ProcessingError) Unwrap() error { return e.Err }

// NotFoundError means a requested artifact does not exist.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string { return "output " + e.Name + " not found" }

func processing(err error, msg string) error {
	return &ProcessingError{Err: errors.Wrap(err, msg)}
}

func IsInput(err error) bool {
	var e *InputError
	return errors.As(err, &e)
}

func IsProcessing(err error) bool {
	var e *ProcessingError
	return errors.As(err, &e)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

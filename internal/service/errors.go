package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidVehicleType = errors.New("invalid vehicle type")
	ErrAlreadyParked      = errors.New("vehicle already parked")
	ErrCarParkFull        = errors.New("car park is full")
	ErrNotParked          = errors.New("vehicle not parked")
)

// Error is a business failure. Kind is one of the sentinels above and Message
// is safe to return to the caller as-is.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

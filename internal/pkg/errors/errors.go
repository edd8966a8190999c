package errors

import "errors"

var (
	// ErrDuplicateField - error, which signifies that two sections of a record produced the same key
	ErrDuplicateField = errors.New("duplicate field")
	// ErrUnknownSink - error, which signifies that the requested sink kind is not supported
	ErrUnknownSink = errors.New("unknown sink")
	// ErrInvalidConfig - error, which signifies that the configuration failed validation
	ErrInvalidConfig = errors.New("invalid config")
)

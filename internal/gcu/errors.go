// internal/gcu/errors.go
package gcu

import (
	"context"
	"errors"
	"fmt"

	"gcu-service/internal/model"
	"gcu-service/internal/protocol"
)

var (
	// ErrDeviceError indicates the device answered with its Error status.
	ErrDeviceError = errors.New("device reported error")
	// ErrNoPayload indicates a response ended with OK but carried no data line.
	ErrNoPayload = errors.New("no payload in response")
	// ErrLineTooLong indicates a response line exceeded the configured bound
	// before a terminator arrived.
	ErrLineTooLong = errors.New("response line too long")
	// ErrOutOfRange indicates an address or value that does not fit a 7 byte frame.
	ErrOutOfRange = model.ErrOutOfRange
	// ErrNoSetting indicates a staging index with no setting behind it.
	ErrNoSetting = errors.New("no staged setting at index")
	// ErrDuplicateLevel indicates two staged settings for the same power level.
	ErrDuplicateLevel = errors.New("duplicate power level")
)

// IOError wraps link open/configure/read/write/timeout failures.
type IOError struct {
	Op  string
	Err error
}

// Error implements error.
func (e *IOError) Error() string {
	return fmt.Sprintf("io error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the link error.
func (e *IOError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a read timeout.
func (e *IOError) Timeout() bool {
	return errors.Is(e.Err, protocol.ErrTimeout)
}

// ProtocolError is reported when the device's reply breaks the exchange.
type ProtocolError struct {
	Command string
	Err     error
}

// Error implements error.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error on %q: %v", e.Command, e.Err)
}

// Unwrap returns the cause.
func (e *ProtocolError) Unwrap() error { return e.Err }

// ParseError wraps payloads that are not valid UTF-8 or not decimal.
type ParseError struct {
	Payload string
	Err     error
}

// Error implements error.
func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse payload %q: %v", e.Payload, e.Err)
}

// Unwrap returns the cause.
func (e *ParseError) Unwrap() error { return e.Err }

// PersistenceError wraps tabular read/write and schema failures.
type PersistenceError struct {
	Path string
	Err  error
}

// Error implements error.
func (e *PersistenceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("settings persistence: %v", e.Err)
	}
	return fmt.Sprintf("settings persistence %s: %v", e.Path, e.Err)
}

// Unwrap returns the cause.
func (e *PersistenceError) Unwrap() error { return e.Err }

// ErrorKind names the kind of a client error for logs and API responses.
func ErrorKind(err error) string {
	var (
		ioErr    *IOError
		protoErr *ProtocolError
		parseErr *ParseError
		persErr  *PersistenceError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ioErr):
		if ioErr.Timeout() || errors.Is(ioErr.Err, context.DeadlineExceeded) {
			return "timeout"
		}
		return "io"
	case errors.As(err, &protoErr):
		return "protocol"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &persErr):
		return "persistence"
	case errors.Is(err, ErrOutOfRange), errors.Is(err, ErrNoSetting), errors.Is(err, ErrDuplicateLevel):
		return "invalid_argument"
	default:
		return "internal"
	}
}

// internal/gcu/response.go
package gcu

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"gcu-service/internal/protocol"
)

var errInvalidUTF8 = errors.New("invalid UTF-8")

const (
	statusOK    = "OK"
	statusError = "Error"

	terminator = 0x0D
)

// Status is the terminal status of a response sequence
type Status int

const (
	StatusOK Status = iota
	StatusError
)

// String implements fmt.Stringer
func (s Status) String() string {
	if s == StatusOK {
		return statusOK
	}
	return statusError
}

// Response is the outcome of one response sequence
type Response struct {
	Status  Status
	Payload string
	// HasPayload is false when no data line preceded the status line
	HasPayload bool
}

// responseReader consumes CR terminated lines from a link
type responseReader struct {
	link    protocol.Link
	maxLine int
	logger  *zap.Logger
	buf     [1]byte
}

// readByte reads exactly one byte, honouring ctx between reads
func (r *responseReader) readByte(ctx context.Context) (byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, &IOError{Op: "read", Err: err}
	}
	if _, err := r.link.Read(r.buf[:]); err != nil {
		return 0, &IOError{Op: "read", Err: err}
	}
	return r.buf[0], nil
}

// readLine reads bytes until CR and returns the line without the terminator
func (r *responseReader) readLine(ctx context.Context, cmd Command) ([]byte, error) {
	var line []byte
	for {
		b, err := r.readByte(ctx)
		if err != nil {
			return nil, err
		}
		if b == terminator {
			return line, nil
		}
		if r.maxLine > 0 && len(line) >= r.maxLine {
			return nil, &ProtocolError{Command: string(cmd), Err: ErrLineTooLong}
		}
		line = append(line, b)
	}
}

// readResponse reads lines until OK or Error, keeping the last data line
func (r *responseReader) readResponse(ctx context.Context, cmd Command) (*Response, error) {
	resp := &Response{}
	for {
		raw, err := r.readLine(ctx, cmd)
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(raw) {
			return nil, &ParseError{Payload: string(raw), Err: errInvalidUTF8}
		}
		// Surrounding whitespace is dropped from status and data lines alike
		line := strings.TrimSpace(string(raw))

		switch line {
		case statusOK:
			resp.Status = StatusOK
			return resp, nil
		case statusError:
			resp.Status = StatusError
			return resp, nil
		default:
			r.logger.Debug("Response data line", zap.String("command", string(cmd)), zap.String("line", line))
			resp.Payload = line
			resp.HasPayload = true
		}
	}
}

// readEcho consumes the half-duplex reflection of a sent frame
func (r *responseReader) readEcho(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if _, err := r.readByte(ctx); err != nil {
			if ioErr, ok := err.(*IOError); ok {
				ioErr.Op = fmt.Sprintf("echo after %d of %d bytes", i, n)
			}
			return err
		}
	}
	return nil
}

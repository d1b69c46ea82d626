// internal/protocol/protocol.go
package protocol

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned by Link.Read when no byte arrived within the read timeout
var ErrTimeout = errors.New("read timeout")

// ErrNotOpen is returned by I/O on a link that has not been opened
var ErrNotOpen = errors.New("link not open")

// Link is a byte-granular, blocking line to a single device.
// Implementations: the OS serial port and the in-memory simulator.
type Link interface {
	// Connection lifecycle
	Open(ctx context.Context) error
	Close() error
	IsOpen() bool

	// Line configuration
	Configure(settings LineSettings) error
	SetReadTimeout(timeout time.Duration) error

	// Data communication. Read returns ErrTimeout instead of a zero-length read.
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)

	// SetSignal drives the device enable line (DTR)
	SetSignal(high bool) error

	// Diagnostics
	Name() string
	Stats() ProtocolStats
}

// LineSettings describes the serial framing of a link
type LineSettings struct {
	BaudRate    int    `mapstructure:"baud_rate" json:"baud_rate"`
	DataBits    int    `mapstructure:"data_bits" json:"data_bits"`
	StopBits    int    `mapstructure:"stop_bits" json:"stop_bits"`
	Parity      string `mapstructure:"parity" json:"parity"`
	FlowControl string `mapstructure:"flow_control" json:"flow_control"`
}

// DefaultLineSettings is the GCU line: 9600 baud, 8N1, no flow control
var DefaultLineSettings = LineSettings{
	BaudRate:    9600,
	DataBits:    8,
	StopBits:    1,
	Parity:      "none",
	FlowControl: "none",
}

// Validate checks the settings against what the links can express
func (s LineSettings) Validate() error {
	if s.BaudRate <= 0 {
		return fmt.Errorf("invalid baud rate: %d", s.BaudRate)
	}
	if s.DataBits < 5 || s.DataBits > 8 {
		return fmt.Errorf("invalid data bits: %d", s.DataBits)
	}
	if s.StopBits != 1 && s.StopBits != 2 {
		return fmt.Errorf("invalid stop bits: %d", s.StopBits)
	}
	switch s.Parity {
	case "none", "odd", "even", "mark", "space":
	default:
		return fmt.Errorf("invalid parity: %q", s.Parity)
	}
	if s.FlowControl != "" && s.FlowControl != "none" {
		return fmt.Errorf("unsupported flow control: %q", s.FlowControl)
	}
	return nil
}

// ProtocolStats provides link-level statistics
type ProtocolStats struct {
	BytesWritten   int64         `json:"bytes_written"`
	BytesRead      int64         `json:"bytes_read"`
	OperationCount int64         `json:"operation_count"`
	ErrorCount     int64         `json:"error_count"`
	TimeoutCount   int64         `json:"timeout_count"`
	LastActivity   time.Time     `json:"last_activity"`
	AverageLatency time.Duration `json:"average_latency"`
	IsConnected    bool          `json:"is_connected"`
	SignalHigh     bool          `json:"signal_high"`
}

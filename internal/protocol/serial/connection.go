// internal/protocol/serial/connection.go
package serial

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"gcu-service/internal/protocol"
)

// portHandle is the subset of serial.Port used by Connection
type portHandle interface {
	SetMode(mode *serial.Mode) error
	SetReadTimeout(timeout time.Duration) error
	SetDTR(dtr bool) error
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// openPort is swapped in tests
var openPort = func(name string, mode *serial.Mode) (portHandle, error) {
	return serial.Open(name, mode)
}

// Config represents serial port configuration
type Config struct {
	Port        string
	Line        protocol.LineSettings
	ReadTimeout time.Duration
}

// Connection implements protocol.Link over an OS serial port
type Connection struct {
	config *Config
	port   portHandle
	logger *zap.Logger
	mutex  sync.Mutex
	isOpen bool
	stats  protocol.ProtocolStats
}

// NewConnection creates a new serial connection
func NewConnection(config *Config, logger *zap.Logger) (*Connection, error) {
	if config.Port == "" {
		return nil, fmt.Errorf("port is required")
	}
	if err := config.Line.Validate(); err != nil {
		return nil, fmt.Errorf("invalid line settings: %w", err)
	}

	return &Connection{
		config: config,
		logger: logger.With(
			zap.String("protocol", "serial"),
			zap.String("port", config.Port),
		),
	}, nil
}

// Open opens the serial connection
func (c *Connection) Open(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.isOpen {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	port, err := openPort(c.config.Port, toMode(c.config.Line))
	if err != nil {
		c.logger.Error("Failed to open serial port", zap.Error(err))
		return fmt.Errorf("failed to open serial port: %w", err)
	}

	if c.config.ReadTimeout > 0 {
		if err := port.SetReadTimeout(c.config.ReadTimeout); err != nil {
			port.Close()
			return fmt.Errorf("failed to set read timeout: %w", err)
		}
	}

	c.port = port
	c.isOpen = true
	c.stats.IsConnected = true
	c.stats.LastActivity = time.Now()

	c.logger.Info("Serial port opened successfully",
		zap.Int("baud_rate", c.config.Line.BaudRate),
		zap.Duration("read_timeout", c.config.ReadTimeout),
	)
	return nil
}

// Close closes the serial connection
func (c *Connection) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.isOpen || c.port == nil {
		return nil
	}

	if err := c.port.Close(); err != nil {
		c.logger.Error("Failed to close serial port", zap.Error(err))
		return fmt.Errorf("failed to close serial port: %w", err)
	}

	c.port = nil
	c.isOpen = false
	c.stats.IsConnected = false

	c.logger.Info("Serial port closed")
	return nil
}

// IsOpen returns whether the connection is open
func (c *Connection) IsOpen() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.isOpen && c.port != nil
}

// Configure applies new line settings to the open port
func (c *Connection) Configure(settings protocol.LineSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.config.Line = settings
	if !c.isOpen {
		// applied on Open
		return nil
	}
	if err := c.port.SetMode(toMode(settings)); err != nil {
		return fmt.Errorf("failed to set serial mode: %w", err)
	}
	return nil
}

// SetReadTimeout sets the per-read timeout
func (c *Connection) SetReadTimeout(timeout time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.config.ReadTimeout = timeout
	if !c.isOpen {
		return nil
	}
	if err := c.port.SetReadTimeout(timeout); err != nil {
		return fmt.Errorf("failed to set read timeout: %w", err)
	}
	return nil
}

// Write writes data to the serial port
func (c *Connection) Write(data []byte) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.isOpen || c.port == nil {
		return 0, protocol.ErrNotOpen
	}

	startTime := time.Now()
	n, err := c.port.Write(data)
	if err != nil {
		c.stats.ErrorCount++
		c.logger.Error("Serial write failed", zap.Error(err))
		return n, fmt.Errorf("failed to write to serial port: %w", err)
	}
	if n != len(data) {
		c.stats.ErrorCount++
		return n, fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(data))
	}

	c.stats.BytesWritten += int64(n)
	c.stats.OperationCount++
	c.stats.LastActivity = time.Now()
	c.updateAverageLatency(time.Since(startTime))

	c.logger.Debug("Data written to serial port",
		zap.Int("bytes_written", n),
		zap.Binary("data", data),
	)
	return n, nil
}

// Read reads data from the serial port. A read that returns no data after the
// read timeout is reported as protocol.ErrTimeout.
func (c *Connection) Read(buffer []byte) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.isOpen || c.port == nil {
		return 0, protocol.ErrNotOpen
	}

	n, err := c.port.Read(buffer)
	if err != nil {
		c.stats.ErrorCount++
		c.logger.Error("Failed to read from serial port", zap.Error(err))
		return n, fmt.Errorf("failed to read from serial port: %w", err)
	}
	if n == 0 {
		c.stats.TimeoutCount++
		return 0, protocol.ErrTimeout
	}

	c.stats.BytesRead += int64(n)
	c.stats.LastActivity = time.Now()

	c.logger.Debug("Data read from serial port",
		zap.Int("bytes_read", n),
		zap.Binary("data", buffer[:n]),
	)
	return n, nil
}

// SetSignal drives DTR, which enables the device
func (c *Connection) SetSignal(high bool) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.isOpen || c.port == nil {
		return protocol.ErrNotOpen
	}
	if err := c.port.SetDTR(high); err != nil {
		c.stats.ErrorCount++
		return fmt.Errorf("failed to set DTR: %w", err)
	}
	c.stats.SignalHigh = high

	c.logger.Debug("DTR changed", zap.Bool("high", high))
	return nil
}

// Name returns the port name
func (c *Connection) Name() string {
	return c.config.Port
}

// Stats returns a copy of the link statistics
func (c *Connection) Stats() protocol.ProtocolStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.stats
}

// updateAverageLatency updates the running average write latency
func (c *Connection) updateAverageLatency(newLatency time.Duration) {
	if c.stats.AverageLatency == 0 {
		c.stats.AverageLatency = newLatency
	} else {
		c.stats.AverageLatency = (c.stats.AverageLatency + newLatency) / 2
	}
}

// toMode converts line settings to a serial.Mode
func toMode(settings protocol.LineSettings) *serial.Mode {
	mode := &serial.Mode{
		BaudRate: settings.BaudRate,
		DataBits: settings.DataBits,
		StopBits: serial.OneStopBit,
	}
	if settings.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}

	// Set parity
	switch settings.Parity {
	case "odd":
		mode.Parity = serial.OddParity
	case "even":
		mode.Parity = serial.EvenParity
	case "mark":
		mode.Parity = serial.MarkParity
	case "space":
		mode.Parity = serial.SpaceParity
	default:
		mode.Parity = serial.NoParity
	}
	return mode
}

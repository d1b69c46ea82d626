// internal/protocol/tcp/connection.go
package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"gcu-service/internal/protocol"
)

// Config represents a serial-over-TCP bridge endpoint
type Config struct {
	Address      string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	KeepAlive    bool
}

// Connection implements protocol.Link over a raw TCP serial bridge.
// Line framing and the enable signal are owned by the bridge.
type Connection struct {
	config *Config
	conn   net.Conn
	logger *zap.Logger
	mutex  sync.Mutex
	isOpen bool
	stats  protocol.ProtocolStats
}

// NewConnection creates a new TCP bridge connection
func NewConnection(config *Config, logger *zap.Logger) (*Connection, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("bridge address is required")
	}
	if _, _, err := net.SplitHostPort(config.Address); err != nil {
		return nil, fmt.Errorf("invalid bridge address: %w", err)
	}

	return &Connection{
		config: config,
		logger: logger.With(
			zap.String("protocol", "tcp"),
			zap.String("address", config.Address),
		),
	}, nil
}

// Open dials the bridge
func (tc *Connection) Open(ctx context.Context) error {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	if tc.isOpen {
		return nil
	}

	tc.logger.Info("Opening TCP bridge connection")

	dialer := &net.Dialer{Timeout: tc.config.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", tc.config.Address)
	if err != nil {
		tc.logger.Error("Failed to open TCP connection", zap.Error(err))
		return fmt.Errorf("failed to connect to %s: %w", tc.config.Address, err)
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok && tc.config.KeepAlive {
		tcpConn.SetKeepAlive(true)
		tcpConn.SetKeepAlivePeriod(30 * time.Second)
	}

	tc.conn = conn
	tc.isOpen = true
	tc.stats.IsConnected = true
	tc.stats.LastActivity = time.Now()

	tc.logger.Info("TCP bridge connection opened")
	return nil
}

// Close closes the bridge connection
func (tc *Connection) Close() error {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	if !tc.isOpen || tc.conn == nil {
		return nil
	}

	err := tc.conn.Close()
	tc.conn = nil
	tc.isOpen = false
	tc.stats.IsConnected = false
	if err != nil {
		return fmt.Errorf("failed to close TCP connection: %w", err)
	}

	tc.logger.Info("TCP bridge connection closed")
	return nil
}

// IsOpen returns whether the connection is open
func (tc *Connection) IsOpen() bool {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()
	return tc.isOpen && tc.conn != nil
}

// Configure validates the settings; the bridge applies its own line framing
func (tc *Connection) Configure(settings protocol.LineSettings) error {
	return settings.Validate()
}

// SetReadTimeout sets the per-read deadline
func (tc *Connection) SetReadTimeout(timeout time.Duration) error {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()
	tc.config.ReadTimeout = timeout
	return nil
}

// SetSignal records the requested level; DTR is driven by the bridge
func (tc *Connection) SetSignal(high bool) error {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	if !tc.isOpen {
		return protocol.ErrNotOpen
	}
	tc.stats.SignalHigh = high
	tc.logger.Debug("Enable signal is managed by the bridge", zap.Bool("high", high))
	return nil
}

// Write writes data to the bridge
func (tc *Connection) Write(data []byte) (int, error) {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	if !tc.isOpen || tc.conn == nil {
		return 0, protocol.ErrNotOpen
	}

	if tc.config.WriteTimeout > 0 {
		tc.conn.SetWriteDeadline(time.Now().Add(tc.config.WriteTimeout))
	}

	startTime := time.Now()
	n, err := tc.conn.Write(data)
	if err != nil {
		tc.stats.ErrorCount++
		tc.logger.Error("TCP write failed", zap.Error(err))
		return n, fmt.Errorf("failed to write to TCP connection: %w", err)
	}

	tc.stats.BytesWritten += int64(n)
	tc.stats.OperationCount++
	tc.stats.LastActivity = time.Now()
	tc.updateAverageLatency(time.Since(startTime))

	tc.logger.Debug("Data written to bridge", zap.Binary("data", data))
	return n, nil
}

// Read reads from the bridge. A deadline expiry is reported as protocol.ErrTimeout.
func (tc *Connection) Read(buffer []byte) (int, error) {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	if !tc.isOpen || tc.conn == nil {
		return 0, protocol.ErrNotOpen
	}

	if tc.config.ReadTimeout > 0 {
		tc.conn.SetReadDeadline(time.Now().Add(tc.config.ReadTimeout))
	}

	n, err := tc.conn.Read(buffer)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			tc.stats.TimeoutCount++
			return 0, protocol.ErrTimeout
		}
		tc.stats.ErrorCount++
		return n, fmt.Errorf("failed to read from TCP connection: %w", err)
	}

	tc.stats.BytesRead += int64(n)
	tc.stats.LastActivity = time.Now()
	return n, nil
}

// Name returns the bridge address
func (tc *Connection) Name() string {
	return "tcp://" + tc.config.Address
}

// Stats returns link statistics
func (tc *Connection) Stats() protocol.ProtocolStats {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()
	return tc.stats
}

// updateAverageLatency updates the running average latency
func (tc *Connection) updateAverageLatency(newLatency time.Duration) {
	if tc.stats.AverageLatency == 0 {
		tc.stats.AverageLatency = newLatency
	} else {
		tc.stats.AverageLatency = (tc.stats.AverageLatency + newLatency) / 2
	}
}

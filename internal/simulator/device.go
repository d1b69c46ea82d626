// internal/simulator/device.go
package simulator

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"gcu-service/internal/model"
	"gcu-service/internal/protocol"
)

const (
	frameLength = 7
	terminator  = "\r"
	replyOK     = "OK\r"
	replyError  = "Error\r"
)

// Faults injects misbehaviour into the next replies
type Faults struct {
	// ShortEcho drops this many bytes from the tail of every echo
	ShortEcho int
	// ForceError answers every command with Error
	ForceError bool
	// Payload replaces the data line of read commands
	Payload string
	// DropTerminator leaves the status line without its CR
	DropTerminator bool
	// Silent suppresses every reply after the echo
	Silent bool
}

// Config seeds the simulated device
type Config struct {
	Version       string
	Pressure      uint16
	PulseDuration uint16
	Registers     map[uint8]uint16
}

// DefaultConfig returns a device with plausible factory values
func DefaultConfig() Config {
	cfg := Config{
		Version:       "GCU-SIM-1.0",
		Pressure:      1200,
		PulseDuration: 350,
		Registers:     make(map[uint8]uint16),
	}
	for level := uint16(1); level <= model.DefaultPowerLevels; level++ {
		addrs, _ := model.SettingAddresses(level)
		for i, addr := range addrs {
			cfg.Registers[addr] = level*100 + uint16(i)
		}
	}
	return cfg
}

// Device is an in-memory GCU behind a protocol.Link
type Device struct {
	mutex       sync.Mutex
	logger      *zap.Logger
	version     string
	pressure    uint16
	pulse       uint16
	registers   [model.MaxAddress + 1]uint16
	pending     bytes.Buffer
	faults      Faults
	line        protocol.LineSettings
	readTimeout time.Duration
	isOpen      bool
	signal      bool
	stats       protocol.ProtocolStats
	frames      []string
}

// NewDevice creates a new simulated device
func NewDevice(cfg Config, logger *zap.Logger) *Device {
	d := &Device{
		logger:   logger.With(zap.String("protocol", "simulator")),
		version:  cfg.Version,
		pressure: cfg.Pressure,
		pulse:    cfg.PulseDuration,
		line:     protocol.DefaultLineSettings,
	}
	for addr, value := range cfg.Registers {
		if int(addr) < len(d.registers) {
			d.registers[addr] = value
		}
	}
	return d
}

// Open opens the simulated line
func (d *Device) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.isOpen = true
	d.stats.IsConnected = true
	d.stats.LastActivity = time.Now()
	return nil
}

// Close closes the simulated line and drops unread bytes
func (d *Device) Close() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.isOpen = false
	d.signal = false
	d.pending.Reset()
	d.stats.IsConnected = false
	d.stats.SignalHigh = false
	return nil
}

// IsOpen returns true if the line is open
func (d *Device) IsOpen() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.isOpen
}

// Configure accepts any valid line settings
func (d *Device) Configure(settings protocol.LineSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.line = settings
	return nil
}

// SetReadTimeout records the timeout. Reads on an empty line time out immediately.
func (d *Device) SetReadTimeout(timeout time.Duration) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.readTimeout = timeout
	return nil
}

// SetSignal powers the device up or down
func (d *Device) SetSignal(high bool) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if !d.isOpen {
		return protocol.ErrNotOpen
	}
	d.signal = high
	d.stats.SignalHigh = high
	return nil
}

// Write echoes the frame and queues the device reply
func (d *Device) Write(p []byte) (int, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if !d.isOpen {
		return 0, protocol.ErrNotOpen
	}

	frame := string(p)
	d.frames = append(d.frames, frame)
	d.stats.BytesWritten += int64(len(p))
	d.stats.OperationCount++
	d.stats.LastActivity = time.Now()

	echo := len(p) - d.faults.ShortEcho
	if echo < 0 {
		echo = 0
	}
	d.pending.Write(p[:echo])

	if !d.signal || d.faults.Silent {
		return len(p), nil
	}

	payload, ok := d.execute(frame)
	switch {
	case d.faults.ForceError || !ok:
		d.reply("", replyError)
	default:
		d.reply(payload, replyOK)
	}
	return len(p), nil
}

// Read returns queued bytes, or protocol.ErrTimeout when the line is idle
func (d *Device) Read(p []byte) (int, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if !d.isOpen {
		return 0, protocol.ErrNotOpen
	}
	if d.pending.Len() == 0 {
		d.stats.TimeoutCount++
		return 0, protocol.ErrTimeout
	}

	n, _ := d.pending.Read(p)
	d.stats.BytesRead += int64(n)
	d.stats.LastActivity = time.Now()
	return n, nil
}

// Name returns the link name
func (d *Device) Name() string {
	return "simulator"
}

// Stats returns link statistics
func (d *Device) Stats() protocol.ProtocolStats {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.stats
}

// SetFaults replaces the injected faults
func (d *Device) SetFaults(f Faults) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.faults = f
}

// SetLive sets the values reported for pressure and pulse duration
func (d *Device) SetLive(pressure, pulse uint16) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.pressure = pressure
	d.pulse = pulse
}

// Register returns the stored value of a register
func (d *Device) Register(address uint8) uint16 {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.registers[address]
}

// Frames returns every frame written so far
func (d *Device) Frames() []string {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	out := make([]string, len(d.frames))
	copy(out, d.frames)
	return out
}

// Powered reports whether the enable signal is asserted
func (d *Device) Powered() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.signal
}

// Inject queues raw bytes on the line, after any pending reply
func (d *Device) Inject(raw string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.pending.WriteString(raw)
}

// execute runs one frame against the register file. ok is false when the
// frame is malformed or addresses nothing.
func (d *Device) execute(frame string) (payload string, ok bool) {
	if len(frame) != frameLength {
		d.logger.Debug("Rejected frame", zap.String("frame", frame))
		return "", false
	}

	switch frame[0] {
	case 'V':
		return d.version, true
	case 'P':
		return d.readPayload(d.pressure), true
	case 'A':
		return d.readPayload(d.pulse), true
	case 'Q':
		d.signal = false
		d.stats.SignalHigh = false
		return "", true
	case 'R':
		addr, err := strconv.ParseUint(frame[1:3], 10, 8)
		if err != nil || addr > model.MaxAddress {
			return "", false
		}
		return d.readPayload(d.registers[addr]), true
	case 'W':
		addr, err := strconv.ParseUint(frame[1:3], 10, 8)
		if err != nil || addr > model.MaxAddress {
			return "", false
		}
		value, err := strconv.ParseUint(frame[3:], 10, 16)
		if err != nil {
			return "", false
		}
		d.registers[addr] = uint16(value)
		return "", true
	default:
		return "", false
	}
}

func (d *Device) readPayload(value uint16) string {
	if d.faults.Payload != "" {
		return d.faults.Payload
	}
	return fmt.Sprintf("%d", value)
}

// reply queues an optional data line and the status line
func (d *Device) reply(payload, status string) {
	if payload != "" {
		d.pending.WriteString(payload + terminator)
	}
	if d.faults.DropTerminator {
		status = status[:len(status)-1]
	}
	d.pending.WriteString(status)
}

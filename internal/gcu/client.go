// internal/gcu/client.go
package gcu

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"gcu-service/internal/model"
	"gcu-service/internal/protocol"
)

// Options configures the protocol client
type Options struct {
	Line         protocol.LineSettings
	ReadTimeout  time.Duration
	SettleDelay  time.Duration
	PowerUpDelay time.Duration
	// CommandTimeout bounds one command exchange (send, echo and response).
	// Zero leaves the exchange bounded only by the caller's context.
	CommandTimeout time.Duration
	// MaxLineLength bounds a response line. Zero means unbounded.
	MaxLineLength int
	PowerLevels   int
}

// DefaultOptions returns the timings the GCU firmware expects
func DefaultOptions() Options {
	return Options{
		Line:           protocol.DefaultLineSettings,
		ReadTimeout:    time.Second,
		SettleDelay:    200 * time.Millisecond,
		PowerUpDelay:   500 * time.Millisecond,
		CommandTimeout: 10 * time.Second,
		MaxLineLength:  128,
		PowerLevels:    model.DefaultPowerLevels,
	}
}

// Client drives a GCU over a half-duplex link. It is not safe for
// concurrent use: operations must be issued one at a time.
type Client struct {
	link     protocol.Link
	opts     Options
	logger   *zap.Logger
	reader   *responseReader
	settings []model.Setting
}

// NewClient configures the link and wraps it
func NewClient(link protocol.Link, opts Options, logger *zap.Logger) (*Client, error) {
	if opts.PowerLevels <= 0 {
		opts.PowerLevels = model.DefaultPowerLevels
	}
	if _, err := model.BaseAddress(uint16(opts.PowerLevels)); err != nil {
		return nil, fmt.Errorf("invalid power level count: %w", err)
	}
	if err := link.Configure(opts.Line); err != nil {
		return nil, &IOError{Op: "configure", Err: err}
	}
	if err := link.SetReadTimeout(opts.ReadTimeout); err != nil {
		return nil, &IOError{Op: "set timeout", Err: err}
	}

	logger = logger.With(zap.String("component", "gcu"), zap.String("link", link.Name()))
	return &Client{
		link:   link,
		opts:   opts,
		logger: logger,
		reader: &responseReader{link: link, maxLine: opts.MaxLineLength, logger: logger},
	}, nil
}

// Link returns the owned link
func (c *Client) Link() protocol.Link {
	return c.link
}

// Options returns the client options
func (c *Client) Options() Options {
	return c.opts
}

// Connect asserts the enable signal and waits for the device to power up
func (c *Client) Connect(ctx context.Context) error {
	if err := c.link.SetSignal(true); err != nil {
		return &IOError{Op: "assert signal", Err: err}
	}
	if err := sleep(ctx, c.opts.PowerUpDelay); err != nil {
		return &IOError{Op: "power up", Err: err}
	}
	c.logger.Info("GCU enabled")
	return nil
}

// Disconnect sends the quit command and deasserts the enable signal.
// The quit response status is ignored; the signal is dropped even if
// the quit exchange fails.
func (c *Client) Disconnect(ctx context.Context) error {
	_, quitErr := c.exchange(ctx, CmdQuit)
	if err := c.link.SetSignal(false); err != nil {
		if quitErr != nil {
			return quitErr
		}
		return &IOError{Op: "deassert signal", Err: err}
	}
	if quitErr != nil {
		return quitErr
	}
	c.logger.Info("GCU disabled")
	return nil
}

// Version reads the firmware version string
func (c *Client) Version(ctx context.Context) (string, error) {
	resp, err := c.exchange(ctx, CmdVersion)
	if err != nil {
		return "", err
	}
	if err := checkPayload(CmdVersion, resp); err != nil {
		return "", err
	}
	return resp.Payload, nil
}

// Pressure reads the current pressure
func (c *Client) Pressure(ctx context.Context) (uint16, error) {
	return c.readUint16(ctx, CmdPressure)
}

// PulseDuration reads the current pulse duration
func (c *Client) PulseDuration(ctx context.Context) (uint16, error) {
	return c.readUint16(ctx, CmdPulseDuration)
}

// ReadWord reads one register
func (c *Client) ReadWord(ctx context.Context, address uint8) (uint16, error) {
	cmd, err := ReadCommand(address)
	if err != nil {
		return 0, err
	}
	return c.readUint16(ctx, cmd)
}

// WriteWord writes one register. Any payload is discarded; a device Error
// status is reported as a ProtocolError.
func (c *Client) WriteWord(ctx context.Context, address uint8, value uint16) error {
	cmd, err := WriteCommand(address, value)
	if err != nil {
		return err
	}
	resp, err := c.exchange(ctx, cmd)
	if err != nil {
		return err
	}
	if resp.Status == StatusError {
		return &ProtocolError{Command: string(cmd), Err: ErrDeviceError}
	}
	return nil
}

// ReadSettings replaces the staging collection with every power level read
// off the device. On failure the collection keeps the levels read so far.
func (c *Client) ReadSettings(ctx context.Context) error {
	c.settings = c.settings[:0]
	for level := 1; level <= c.opts.PowerLevels; level++ {
		addrs, err := model.SettingAddresses(uint16(level))
		if err != nil {
			return err
		}

		var values [model.RegistersPerSetting]uint16
		for i, addr := range addrs {
			v, err := c.ReadWord(ctx, addr)
			if err != nil {
				return fmt.Errorf("power level %d register %d: %w", level, addr, err)
			}
			values[i] = v
		}
		c.settings = append(c.settings, model.NewSetting(uint16(level), values))
		c.logger.Debug("Power level read", zap.Int("power_level", level))
	}
	return nil
}

// WriteSettings writes the staged setting at index to the block its
// power level maps to. The batch stops at the first failing register.
func (c *Client) WriteSettings(ctx context.Context, index int) error {
	if index < 0 || index >= len(c.settings) {
		return fmt.Errorf("index %d of %d: %w", index, len(c.settings), ErrNoSetting)
	}
	setting := c.settings[index]
	if err := validateSetting(setting, c.opts.PowerLevels); err != nil {
		return err
	}
	regs, err := setting.Registers()
	if err != nil {
		return err
	}
	for _, reg := range regs {
		if err := c.WriteWord(ctx, reg.Address, reg.Value); err != nil {
			return fmt.Errorf("power level %d register %d: %w", setting.PowerLevel, reg.Address, err)
		}
	}
	c.logger.Debug("Power level written", zap.Uint16("power_level", setting.PowerLevel))
	return nil
}

// WriteAllSettings writes every staged setting in order. The whole
// collection is checked before the first register is written.
func (c *Client) WriteAllSettings(ctx context.Context) error {
	if err := c.ValidateSettings(c.settings); err != nil {
		return err
	}
	for i := range c.settings {
		if err := c.WriteSettings(ctx, i); err != nil {
			return err
		}
	}
	return nil
}

// Settings returns a copy of the staging collection
func (c *Client) Settings() []model.Setting {
	out := make([]model.Setting, len(c.settings))
	copy(out, c.settings)
	return out
}

// SetSettings replaces the staging collection
func (c *Client) SetSettings(settings []model.Setting) {
	c.settings = append(c.settings[:0], settings...)
}

// ValidateSettings checks settings against the configured power levels
func (c *Client) ValidateSettings(settings []model.Setting) error {
	return ValidateSettings(settings, c.opts.PowerLevels)
}

// ValidateSettings checks that every level maps to a register block within
// 1..powerLevels, that no level appears twice and that every value fits a
// frame. A zero powerLevels bounds levels by the address space only.
func ValidateSettings(settings []model.Setting, powerLevels int) error {
	seen := make(map[uint16]bool, len(settings))
	for _, s := range settings {
		if err := validateSetting(s, powerLevels); err != nil {
			return err
		}
		if seen[s.PowerLevel] {
			return fmt.Errorf("power level %d: %w", s.PowerLevel, ErrDuplicateLevel)
		}
		seen[s.PowerLevel] = true
	}
	return nil
}

func validateSetting(s model.Setting, powerLevels int) error {
	if _, err := model.BaseAddress(s.PowerLevel); err != nil {
		return err
	}
	if powerLevels > 0 && int(s.PowerLevel) > powerLevels {
		return fmt.Errorf("power level %d of %d: %w", s.PowerLevel, powerLevels, ErrOutOfRange)
	}
	for i, v := range s.Values() {
		if v > MaxValue {
			return fmt.Errorf("power level %d %s %d: %w", s.PowerLevel, model.SettingFields[i+1], v, ErrOutOfRange)
		}
	}
	return nil
}

// readUint16 sends cmd and parses its payload as a decimal word
func (c *Client) readUint16(ctx context.Context, cmd Command) (uint16, error) {
	resp, err := c.exchange(ctx, cmd)
	if err != nil {
		return 0, err
	}
	if err := checkPayload(cmd, resp); err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(resp.Payload, 10, 16)
	if err != nil {
		return 0, &ParseError{Payload: resp.Payload, Err: err}
	}
	return uint16(v), nil
}

// exchange sends one command and reads its full response
func (c *Client) exchange(ctx context.Context, cmd Command) (*Response, error) {
	if c.opts.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.CommandTimeout)
		defer cancel()
	}

	startTime := time.Now()
	if err := c.send(ctx, cmd); err != nil {
		return nil, err
	}
	resp, err := c.reader.readResponse(ctx, cmd)
	if err != nil {
		c.logger.Debug("Command failed", zap.String("command", string(cmd)), zap.Error(err))
		return nil, err
	}

	c.logger.Debug("Command completed",
		zap.String("command", string(cmd)),
		zap.String("opcode", string(cmd.Opcode())),
		zap.Stringer("status", resp.Status),
		zap.Duration("duration", time.Since(startTime)),
	)
	return resp, nil
}

// send waits for the line to settle, writes the frame and drops its echo
func (c *Client) send(ctx context.Context, cmd Command) error {
	if !cmd.Valid() {
		return fmt.Errorf("command %q: %w", cmd, ErrOutOfRange)
	}
	if err := sleep(ctx, c.opts.SettleDelay); err != nil {
		return &IOError{Op: "settle", Err: err}
	}

	n, err := c.link.Write(cmd.Bytes())
	if err != nil {
		return &IOError{Op: "write", Err: err}
	}
	if n != FrameLength {
		return &IOError{Op: "write", Err: fmt.Errorf("short write: %d of %d bytes", n, FrameLength)}
	}
	return c.reader.readEcho(ctx, n)
}

// checkPayload turns an Error status or a missing data line into a ProtocolError
func checkPayload(cmd Command, resp *Response) error {
	if resp.Status == StatusError {
		return &ProtocolError{Command: string(cmd), Err: ErrDeviceError}
	}
	if !resp.HasPayload {
		return &ProtocolError{Command: string(cmd), Err: ErrNoPayload}
	}
	return nil
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// internal/shell/shell.go
package shell

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"gcu-service/internal/gcu"
	"gcu-service/internal/model"
	"gcu-service/internal/service"
)

const (
	shellKey          = "$shell"
	connectedPrompt   = "gcu> "
	unconnectedPrompt = "[none] > "
)

// Device is the GCU surface the console drives
type Device interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Status() *model.DeviceInfo
	Version(ctx context.Context) (string, error)
	Pressure(ctx context.Context) (uint16, error)
	PulseDuration(ctx context.Context) (uint16, error)
	ReadRegister(ctx context.Context, address uint8) (uint16, error)
	WriteRegister(ctx context.Context, address uint8, value uint16) error
	ReadSettings(ctx context.Context) ([]model.Setting, error)
	StagedSettings() []model.Setting
	SaveSettingsFile(path string) error
	WriteSettingsFile(ctx context.Context, path string) ([]model.Setting, error)
}

var _ Device = (*service.GCUService)(nil)

// Shell is an ishell backed interactive console for one device.
type Shell struct {
	Shell   *ishell.Shell
	Device  Device
	Timeout time.Duration
}

// New creates a console bound to device. Every command gets timeout to complete.
func New(device Device, timeout time.Duration) *Shell {
	s := &Shell{
		Shell:   ishell.New(),
		Device:  device,
		Timeout: timeout,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// From gets Shell from ishell context.
func From(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Run runs the console until the user exits, or runs args as a single command.
func (s *Shell) Run(args ...string) error {
	if len(args) > 0 {
		return s.Shell.Process(args...)
	}
	s.Shell.Println("GCU console. Type help for commands.")
	s.Shell.Run()
	return nil
}

func (s *Shell) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.Timeout)
}

func (s *Shell) setPrompt(prompt string) {
	if s.Shell != nil {
		s.Shell.SetPrompt(prompt)
	}
}

// Connect powers up the device
func (s *Shell) Connect() error {
	ctx, cancel := s.context()
	defer cancel()
	if err := s.Device.Connect(ctx); err != nil {
		return err
	}
	s.setPrompt(connectedPrompt)
	return nil
}

// Disconnect releases the device
func (s *Shell) Disconnect() error {
	ctx, cancel := s.context()
	defer cancel()
	s.setPrompt(unconnectedPrompt)
	return s.Device.Disconnect(ctx)
}

// Version returns the formatted firmware version line
func (s *Shell) Version() (string, error) {
	ctx, cancel := s.context()
	defer cancel()
	v, err := s.Device.Version(ctx)
	if err != nil {
		return "", err
	}
	return "Version : " + v, nil
}

// Pressure returns the formatted pressure line
func (s *Shell) Pressure() (string, error) {
	ctx, cancel := s.context()
	defer cancel()
	v, err := s.Device.Pressure(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Pressure : %d", v), nil
}

// PulseDuration returns the formatted pulse duration line
func (s *Shell) PulseDuration() (string, error) {
	ctx, cancel := s.context()
	defer cancel()
	v, err := s.Device.PulseDuration(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Pulse Duration : %d", v), nil
}

// ReadRegister reads one register given as text
func (s *Shell) ReadRegister(address string) (string, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return "", err
	}
	ctx, cancel := s.context()
	defer cancel()
	v, err := s.Device.ReadRegister(ctx, addr)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("R%02d : %d", addr, v), nil
}

// WriteRegister writes one register given as text
func (s *Shell) WriteRegister(address, value string) error {
	addr, err := ParseAddress(address)
	if err != nil {
		return err
	}
	v, err := strconv.ParseUint(value, 10, 16)
	if err != nil || v > 9999 {
		return fmt.Errorf("invalid value %q: %w", value, gcu.ErrOutOfRange)
	}
	ctx, cancel := s.context()
	defer cancel()
	return s.Device.WriteRegister(ctx, addr, uint16(v))
}

// ReadSettings reads every power level from the device
func (s *Shell) ReadSettings() ([]model.Setting, error) {
	ctx, cancel := s.context()
	defer cancel()
	return s.Device.ReadSettings(ctx)
}

// LoadAndWrite writes the settings stored in path to the device
func (s *Shell) LoadAndWrite(path string) ([]model.Setting, error) {
	ctx, cancel := s.context()
	defer cancel()
	return s.Device.WriteSettingsFile(ctx, path)
}

// ParseAddress parses a decimal register address
func ParseAddress(text string) (uint8, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(text), 10, 8)
	if err != nil || v > model.MaxAddress {
		return 0, fmt.Errorf("invalid address %q: %w", text, gcu.ErrOutOfRange)
	}
	return uint8(v), nil
}

// FormatSettings renders settings one power level per line
func FormatSettings(settings []model.Setting) string {
	if len(settings) == 0 {
		return "No settings staged"
	}
	var b strings.Builder
	for i, st := range settings {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "Level %d: pressure %d/%d/%d pulse %d/%d/%d slope %d/%d volts %d",
			st.PowerLevel,
			st.HighPressure, st.MidPressure, st.LowPressure,
			st.HighPulse, st.MidPulse, st.LowPulse,
			st.HighSlope, st.LowSlope,
			st.Volts,
		)
	}
	return b.String()
}

package shell

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gcu-service/internal/config"
	"gcu-service/internal/gcu"
	"gcu-service/internal/model"
	"gcu-service/internal/service"
	"gcu-service/internal/simulator"
)

func newTestShell(t *testing.T) (*Shell, *simulator.Device) {
	t.Helper()

	dev := simulator.NewDevice(simulator.DefaultConfig(), zap.NewNop())
	require.NoError(t, dev.Open(context.Background()))

	opts := gcu.DefaultOptions()
	opts.SettleDelay = 0
	opts.PowerUpDelay = 0
	client, err := gcu.NewClient(dev, opts, zap.NewNop())
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Serial.Simulate = true

	svc := service.NewGCUService(client, nil, nil, nil, cfg, zap.NewNop())
	return &Shell{Device: svc, Timeout: 5 * time.Second}, dev
}

func TestShell_RequiresConnection(t *testing.T) {
	s, dev := newTestShell(t)

	_, err := s.Version()
	assert.ErrorIs(t, err, service.ErrNotConnected)
	assert.Empty(t, dev.Frames())
}

func TestShell_LiveValues(t *testing.T) {
	s, _ := newTestShell(t)
	require.NoError(t, s.Connect())

	line, err := s.Version()
	require.NoError(t, err)
	assert.Equal(t, "Version : GCU-SIM-1.0", line)

	line, err = s.Pressure()
	require.NoError(t, err)
	assert.Equal(t, "Pressure : 1200", line)

	line, err = s.PulseDuration()
	require.NoError(t, err)
	assert.Equal(t, "Pulse Duration : 350", line)

	require.NoError(t, s.Disconnect())
	assert.Equal(t, model.DeviceStatusDisconnected, s.Device.Status().Status)
}

func TestShell_Registers(t *testing.T) {
	s, dev := newTestShell(t)
	require.NoError(t, s.Connect())

	line, err := s.ReadRegister("22")
	require.NoError(t, err)
	assert.Equal(t, "R22 : 101", line)

	require.NoError(t, s.WriteRegister("22", "4321"))
	assert.Equal(t, uint16(4321), dev.Register(22))

	tests := []struct {
		name    string
		address string
		value   string
	}{
		{"address too high", "100", "1"},
		{"address not a number", "abc", "1"},
		{"value too high", "22", "10000"},
		{"negative value", "22", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, s.WriteRegister(tt.address, tt.value), gcu.ErrOutOfRange)
		})
	}
}

func TestShell_SaveAndLoadSettings(t *testing.T) {
	s, dev := newTestShell(t)
	require.NoError(t, s.Connect())

	settings, err := s.ReadSettings()
	require.NoError(t, err)
	require.Len(t, settings, model.DefaultPowerLevels)

	path := filepath.Join(t.TempDir(), "settings.csv")
	require.NoError(t, s.Device.SaveSettingsFile(path))

	require.NoError(t, s.WriteRegister("20", "9"))
	require.Equal(t, uint16(9), dev.Register(20))

	written, err := s.LoadAndWrite(path)
	require.NoError(t, err)
	assert.Equal(t, settings, written)
	assert.Equal(t, uint16(100), dev.Register(20))
}

func TestShell_LoadMissingFile(t *testing.T) {
	s, _ := newTestShell(t)
	require.NoError(t, s.Connect())

	path := filepath.Join(t.TempDir(), "missing.csv")
	_, err := s.LoadAndWrite(path)

	var persErr *gcu.PersistenceError
	require.True(t, errors.As(err, &persErr))
	assert.Equal(t, path, persErr.Path)
}

func TestFormatSettings(t *testing.T) {
	assert.Equal(t, "No settings staged", FormatSettings(nil))

	out := FormatSettings([]model.Setting{{PowerLevel: 1, HighPressure: 5, Volts: 24}})
	assert.Equal(t, "Level 1: pressure 5/0/0 pulse 0/0/0 slope 0/0 volts 24", out)
}

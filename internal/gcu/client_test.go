package gcu

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"gcu-service/internal/model"
	"gcu-service/internal/simulator"
)

func TestVersion(t *testing.T) {
	link := newScriptLink("V      GCU-1.2\rOK\r")
	c := newTestClient(t, link)

	version, err := c.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "GCU-1.2", version)
	require.Len(t, link.written, 1)
	assert.Equal(t, "V      ", string(link.written[0]))
}

func TestVersionTrimsPadding(t *testing.T) {
	c := newTestClient(t, newScriptLink("V       GCU-1.2 \r OK\r"))

	version, err := c.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "GCU-1.2", version)
}

func TestReadOperations(t *testing.T) {
	c, dev := newSimClient(t)
	dev.SetLive(1500, 420)
	ctx := context.Background()

	pressure, err := c.Pressure(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1500, pressure)

	pulse, err := c.PulseDuration(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 420, pulse)

	assert.Equal(t, []string{"P      ", "A      "}, dev.Frames())
}

func TestWriteReadRoundTrip(t *testing.T) {
	c, _ := newSimClient(t)
	ctx := context.Background()

	for addr := 0; addr <= model.MaxAddress; addr++ {
		for _, value := range []uint16{0, 1, 42, 999, 1000, 5005, MaxValue} {
			require.NoError(t, c.WriteWord(ctx, uint8(addr), value))
			got, err := c.ReadWord(ctx, uint8(addr))
			require.NoError(t, err)
			require.Equal(t, value, got, "address %d", addr)
		}
	}

	for value := uint16(0); value <= MaxValue; value++ {
		require.NoError(t, c.WriteWord(ctx, 57, value))
		got, err := c.ReadWord(ctx, 57)
		require.NoError(t, err)
		require.Equal(t, value, got)
	}
}

func TestShortEchoIsTimeout(t *testing.T) {
	c := newTestClient(t, newScriptLink("V     "))

	_, err := c.Version(context.Background())
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.True(t, ioErr.Timeout())
	assert.Equal(t, "timeout", ErrorKind(err))
}

func TestWriteFailures(t *testing.T) {
	link := newScriptLink("")
	link.writeErr = errBroken
	c := newTestClient(t, link)

	_, err := c.Pressure(context.Background())
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "write", ioErr.Op)
	assert.ErrorIs(t, err, errBroken)

	link = newScriptLink("")
	link.writeN = 3
	c = newTestClient(t, link)
	_, err = c.Pressure(context.Background())
	require.ErrorAs(t, err, &ioErr)
	assert.Contains(t, err.Error(), "short write")
}

func TestDeviceStatusErrors(t *testing.T) {
	c, dev := newSimClient(t)
	ctx := context.Background()

	dev.SetFaults(simulator.Faults{ForceError: true})
	_, err := c.Pressure(ctx)
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.ErrorIs(t, err, ErrDeviceError)
	assert.Equal(t, "P      ", protoErr.Command)

	err = c.WriteWord(ctx, 10, 5)
	assert.ErrorIs(t, err, ErrDeviceError)
	assert.Equal(t, "protocol", ErrorKind(err))
}

func TestPayloadErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not decimal", "12a"},
		{"overflow", "70000"},
		{"negative", "-5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, dev := newSimClient(t)
			dev.SetFaults(simulator.Faults{Payload: tt.payload})

			_, err := c.ReadWord(context.Background(), 3)
			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, tt.payload, parseErr.Payload)
		})
	}

	c := newTestClient(t, newScriptLink("P      OK\r"))
	_, err := c.Pressure(context.Background())
	assert.ErrorIs(t, err, ErrNoPayload)
}

func TestOutOfRangeArguments(t *testing.T) {
	link := newScriptLink("")
	c := newTestClient(t, link)
	ctx := context.Background()

	_, err := c.ReadWord(ctx, 100)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.ErrorIs(t, c.WriteWord(ctx, 1, 10000), ErrOutOfRange)
	assert.Equal(t, "invalid_argument", ErrorKind(c.WriteWord(ctx, 1, 10000)))
	assert.Empty(t, link.written)
}

func TestUnpoweredDeviceTimesOut(t *testing.T) {
	dev := simulator.NewDevice(simulator.DefaultConfig(), zap.NewNop())
	require.NoError(t, dev.Open(context.Background()))
	c := newTestClient(t, dev)

	_, err := c.Pressure(context.Background())
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.True(t, ioErr.Timeout())
}

func TestConnectDisconnect(t *testing.T) {
	c, dev := newSimClient(t)
	assert.True(t, dev.Powered())

	require.NoError(t, c.Disconnect(context.Background()))
	assert.False(t, dev.Powered())
	assert.Equal(t, []string{"Q      "}, dev.Frames())
}

func TestDisconnectDropsSignalWhenQuitFails(t *testing.T) {
	link := newScriptLink("")
	link.signal = true
	c := newTestClient(t, link)

	err := c.Disconnect(context.Background())
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.False(t, link.signal)
}

func TestReadSettings(t *testing.T) {
	c, dev := newSimClient(t)

	require.NoError(t, c.ReadSettings(context.Background()))
	settings := c.Settings()
	require.Len(t, settings, model.DefaultPowerLevels)

	for i, s := range settings {
		level := uint16(i + 1)
		assert.Equal(t, level, s.PowerLevel)
		for j, v := range s.Values() {
			assert.Equal(t, level*100+uint16(j), v)
		}
	}
	assert.Len(t, dev.Frames(), model.DefaultPowerLevels*model.RegistersPerSetting)
	assert.Equal(t, "R200000", dev.Frames()[0])
	assert.Equal(t, "R760000", dev.Frames()[len(dev.Frames())-1])
}

func TestReadSettingsPartialFailure(t *testing.T) {
	var script strings.Builder
	addrs, err := model.SettingAddresses(1)
	require.NoError(t, err)
	for _, addr := range addrs {
		fmt.Fprintf(&script, "R%02d00005\rOK\r", addr)
	}
	c := newTestClient(t, newScriptLink(script.String()))
	c.SetSettings([]model.Setting{{PowerLevel: 9}, {PowerLevel: 8}})

	err = c.ReadSettings(context.Background())
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)

	settings := c.Settings()
	require.Len(t, settings, 1)
	assert.Equal(t, model.NewSetting(1, [9]uint16{5, 5, 5, 5, 5, 5, 5, 5, 5}), settings[0])
}

func TestWriteAllSettings(t *testing.T) {
	c, dev := newSimClient(t)
	c.SetSettings([]model.Setting{
		model.NewSetting(1, [9]uint16{11, 12, 13, 14, 15, 16, 17, 18, 19}),
		model.NewSetting(3, [9]uint16{31, 32, 33, 34, 35, 36, 37, 38, 39}),
	})

	require.NoError(t, c.WriteAllSettings(context.Background()))
	assert.EqualValues(t, 11, dev.Register(20))
	assert.EqualValues(t, 19, dev.Register(36))
	assert.EqualValues(t, 31, dev.Register(60))
	assert.EqualValues(t, 39, dev.Register(76))
	assert.Len(t, dev.Frames(), 18)
	assert.Equal(t, "W200011", dev.Frames()[0])
}

func TestWriteSettingsAbortsBatch(t *testing.T) {
	c, dev := newSimClient(t)
	c.SetSettings([]model.Setting{model.NewSetting(1, [9]uint16{1, 2, 3, 4, 5, 6, 7, 8, 9})})
	dev.SetFaults(simulator.Faults{ForceError: true})

	err := c.WriteSettings(context.Background(), 0)
	assert.ErrorIs(t, err, ErrDeviceError)
	assert.Len(t, dev.Frames(), 1)

	assert.ErrorIs(t, c.WriteSettings(context.Background(), 1), ErrNoSetting)
}

func TestNewClientRejectsTooManyLevels(t *testing.T) {
	opts := testOptions()
	opts.PowerLevels = 5
	_, err := NewClient(newScriptLink(""), opts, zap.NewNop())
	assert.Error(t, err)
}

func TestWriteAllSettingsRejectsBadStaging(t *testing.T) {
	valid := model.NewSetting(1, [9]uint16{1, 2, 3, 4, 5, 6, 7, 8, 9})
	tooLarge := model.NewSetting(2, [9]uint16{1, 2, 3, 4, 5, 6, 7, 8, 9})
	tooLarge.HighPulse = 10000

	tests := []struct {
		name     string
		settings []model.Setting
		wantErr  error
	}{
		{"level zero", []model.Setting{valid, {PowerLevel: 0}}, ErrOutOfRange},
		{"level beyond address space", []model.Setting{valid, {PowerLevel: 5}}, ErrOutOfRange},
		{"level beyond configured count", []model.Setting{valid, {PowerLevel: 4}}, ErrOutOfRange},
		{"duplicate level", []model.Setting{valid, valid}, ErrDuplicateLevel},
		{"value too large", []model.Setting{valid, tooLarge}, ErrOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, dev := newSimClient(t)
			c.SetSettings(tt.settings)

			err := c.WriteAllSettings(context.Background())
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, "invalid_argument", ErrorKind(err))
			assert.Empty(t, dev.Frames())
		})
	}
}

func TestWriteSettingsRejectsValueBeforeFirstFrame(t *testing.T) {
	c, dev := newSimClient(t)
	s := model.NewSetting(1, [9]uint16{1, 2, 3, 4, 5, 6, 7, 8, 9})
	s.HighPulse = 10000
	c.SetSettings([]model.Setting{s})

	err := c.WriteSettings(context.Background(), 0)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.Contains(t, err.Error(), "high_pulse")
	assert.Empty(t, dev.Frames())
	assert.EqualValues(t, 103, dev.Register(26))
}

func TestExchangeLogsOpcode(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c, err := NewClient(newScriptLink("P      1200\rOK\r"), testOptions(), zap.New(core))
	require.NoError(t, err)

	_, err = c.Pressure(context.Background())
	require.NoError(t, err)

	entries := logs.FilterMessage("Command completed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "P", entries[0].ContextMap()["opcode"])
}

package simulator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gcu-service/internal/protocol"
)

func openDevice(t *testing.T) *Device {
	t.Helper()
	d := NewDevice(DefaultConfig(), zap.NewNop())
	require.NoError(t, d.Open(context.Background()))
	require.NoError(t, d.SetSignal(true))
	return d
}

func drain(d *Device) string {
	var out []byte
	buf := make([]byte, 1)
	for {
		n, err := d.Read(buf)
		if err != nil {
			return string(out)
		}
		out = append(out, buf[:n]...)
	}
}

func TestDeviceRepliesWithEchoAndStatus(t *testing.T) {
	d := openDevice(t)

	_, err := d.Write([]byte("V      "))
	require.NoError(t, err)
	assert.Equal(t, "V      GCU-SIM-1.0\rOK\r", drain(d))

	_, err = d.Write([]byte("W050042"))
	require.NoError(t, err)
	assert.Equal(t, "W050042OK\r", drain(d))
	assert.EqualValues(t, 42, d.Register(5))

	_, err = d.Write([]byte("R050000"))
	require.NoError(t, err)
	assert.Equal(t, "R05000042\rOK\r", drain(d))
}

func TestDeviceRejectsMalformedFrames(t *testing.T) {
	d := openDevice(t)

	for _, frame := range []string{"X      ", "R", "RAB0000", "W01ABCD"} {
		_, err := d.Write([]byte(frame))
		require.NoError(t, err)
		assert.Equal(t, frame+"Error\r", drain(d), frame)
	}
}

func TestDeviceUnpoweredOnlyEchoes(t *testing.T) {
	d := NewDevice(DefaultConfig(), zap.NewNop())
	require.NoError(t, d.Open(context.Background()))

	_, err := d.Write([]byte("P      "))
	require.NoError(t, err)
	assert.Equal(t, "P      ", drain(d))

	_, err = d.Read(make([]byte, 1))
	assert.ErrorIs(t, err, protocol.ErrTimeout)
}

func TestDeviceFaults(t *testing.T) {
	d := openDevice(t)

	d.SetFaults(Faults{ShortEcho: 3, Silent: true})
	_, err := d.Write([]byte("P      "))
	require.NoError(t, err)
	assert.Equal(t, "P   ", drain(d))

	d.SetFaults(Faults{ForceError: true})
	_, err = d.Write([]byte("P      "))
	require.NoError(t, err)
	assert.Equal(t, "P      Error\r", drain(d))

	d.SetFaults(Faults{Payload: "12a", DropTerminator: true})
	_, err = d.Write([]byte("A      "))
	require.NoError(t, err)
	assert.Equal(t, "A      12a\rOK", drain(d))
}

func TestDeviceRequiresOpen(t *testing.T) {
	d := NewDevice(DefaultConfig(), zap.NewNop())

	_, err := d.Write([]byte("V      "))
	assert.ErrorIs(t, err, protocol.ErrNotOpen)
	_, err = d.Read(make([]byte, 1))
	assert.ErrorIs(t, err, protocol.ErrNotOpen)
	assert.ErrorIs(t, d.SetSignal(true), protocol.ErrNotOpen)

	require.NoError(t, d.Open(context.Background()))
	require.NoError(t, d.Close())
	assert.False(t, d.IsOpen())
	assert.False(t, d.Stats().IsConnected)
}

package serial

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
	"go.uber.org/zap"

	"gcu-service/internal/protocol"
)

type fakePort struct {
	mode     *serial.Mode
	timeout  time.Duration
	dtr      []bool
	written  []byte
	incoming []byte
	readErr  error
	closed   bool
}

func (p *fakePort) SetMode(mode *serial.Mode) error {
	p.mode = mode
	return nil
}

func (p *fakePort) SetReadTimeout(timeout time.Duration) error {
	p.timeout = timeout
	return nil
}

func (p *fakePort) SetDTR(dtr bool) error {
	p.dtr = append(p.dtr, dtr)
	return nil
}

func (p *fakePort) Read(b []byte) (int, error) {
	if p.readErr != nil {
		return 0, p.readErr
	}
	if len(p.incoming) == 0 {
		// go.bug.st/serial reports a timeout as a zero-length read
		return 0, nil
	}
	n := copy(b, p.incoming)
	p.incoming = p.incoming[n:]
	return n, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.written = append(p.written, b...)
	return len(b), nil
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func withFakePort(t *testing.T) *fakePort {
	port := &fakePort{}
	saved := openPort
	openPort = func(name string, mode *serial.Mode) (portHandle, error) {
		port.mode = mode
		return port, nil
	}
	t.Cleanup(func() { openPort = saved })
	return port
}

func newTestConnection(t *testing.T) *Connection {
	conn, err := NewConnection(&Config{
		Port:        "/dev/ttyTEST",
		Line:        protocol.DefaultLineSettings,
		ReadTimeout: time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	return conn
}

func TestNewConnectionRequiresPort(t *testing.T) {
	_, err := NewConnection(&Config{Line: protocol.DefaultLineSettings}, zap.NewNop())
	require.Error(t, err)
}

func TestOpenAppliesLineSettings(t *testing.T) {
	port := withFakePort(t)
	conn := newTestConnection(t)

	require.NoError(t, conn.Open(context.Background()))
	assert.True(t, conn.IsOpen())
	assert.Equal(t, 9600, port.mode.BaudRate)
	assert.Equal(t, 8, port.mode.DataBits)
	assert.Equal(t, serial.NoParity, port.mode.Parity)
	assert.Equal(t, serial.OneStopBit, port.mode.StopBits)
	assert.Equal(t, time.Second, port.timeout)

	require.NoError(t, conn.Close())
	assert.True(t, port.closed)
	assert.False(t, conn.IsOpen())
}

func TestReadTimeoutIsReported(t *testing.T) {
	port := withFakePort(t)
	conn := newTestConnection(t)
	require.NoError(t, conn.Open(context.Background()))

	port.incoming = []byte{'O'}
	buf := make([]byte, 1)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, byte('O'), buf[0])

	_, err = conn.Read(buf)
	assert.ErrorIs(t, err, protocol.ErrTimeout)
	assert.EqualValues(t, 1, conn.Stats().TimeoutCount)
}

func TestReadErrorIsWrapped(t *testing.T) {
	port := withFakePort(t)
	conn := newTestConnection(t)
	require.NoError(t, conn.Open(context.Background()))

	cause := errors.New("device unplugged")
	port.readErr = cause
	_, err := conn.Read(make([]byte, 1))
	assert.ErrorIs(t, err, cause)
}

func TestWriteAndSignal(t *testing.T) {
	port := withFakePort(t)
	conn := newTestConnection(t)
	require.NoError(t, conn.Open(context.Background()))

	n, err := conn.Write([]byte("V      "))
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, []byte("V      "), port.written)

	require.NoError(t, conn.SetSignal(true))
	require.NoError(t, conn.SetSignal(false))
	assert.Equal(t, []bool{true, false}, port.dtr)
	assert.EqualValues(t, 7, conn.Stats().BytesWritten)
}

func TestIOBeforeOpen(t *testing.T) {
	conn := newTestConnection(t)

	_, err := conn.Write([]byte("x"))
	assert.ErrorIs(t, err, protocol.ErrNotOpen)
	_, err = conn.Read(make([]byte, 1))
	assert.ErrorIs(t, err, protocol.ErrNotOpen)
	assert.ErrorIs(t, conn.SetSignal(true), protocol.ErrNotOpen)
}

func TestConfigureOpenPort(t *testing.T) {
	port := withFakePort(t)
	conn := newTestConnection(t)
	require.NoError(t, conn.Open(context.Background()))

	settings := protocol.DefaultLineSettings
	settings.Parity = "even"
	settings.StopBits = 2
	require.NoError(t, conn.Configure(settings))
	assert.Equal(t, serial.EvenParity, port.mode.Parity)
	assert.Equal(t, serial.TwoStopBits, port.mode.StopBits)

	settings.FlowControl = "rtscts"
	assert.Error(t, conn.Configure(settings))
}

package tcp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gcu-service/internal/protocol"
)

// echoBridge accepts one connection and echoes every byte back
func echoBridge(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 64)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				return
			}
			if _, err := conn.Write(buf[:n]); err != nil {
				return
			}
		}
	}()
	return ln.Addr().String()
}

func TestConnectionEchoAndTimeout(t *testing.T) {
	conn, err := NewConnection(&Config{
		Address:     echoBridge(t),
		DialTimeout: time.Second,
		ReadTimeout: 200 * time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, conn.Open(context.Background()))
	defer conn.Close()
	require.NoError(t, conn.Configure(protocol.DefaultLineSettings))
	require.NoError(t, conn.SetSignal(true))

	n, err := conn.Write([]byte("V      "))
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	got := make([]byte, 0, 7)
	buf := make([]byte, 7)
	for len(got) < 7 {
		n, err := conn.Read(buf)
		require.NoError(t, err)
		got = append(got, buf[:n]...)
	}
	assert.Equal(t, "V      ", string(got))

	_, err = conn.Read(buf)
	assert.ErrorIs(t, err, protocol.ErrTimeout)

	stats := conn.Stats()
	assert.True(t, stats.SignalHigh)
	assert.EqualValues(t, 7, stats.BytesWritten)
	assert.EqualValues(t, 1, stats.TimeoutCount)
}

func TestConnectionValidation(t *testing.T) {
	_, err := NewConnection(&Config{}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewConnection(&Config{Address: "no-port"}, zap.NewNop())
	assert.Error(t, err)

	conn, err := NewConnection(&Config{Address: "127.0.0.1:1"}, zap.NewNop())
	require.NoError(t, err)
	_, err = conn.Write([]byte("x"))
	assert.ErrorIs(t, err, protocol.ErrNotOpen)
	assert.Equal(t, "tcp://127.0.0.1:1", conn.Name())
}

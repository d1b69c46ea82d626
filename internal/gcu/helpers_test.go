package gcu

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gcu-service/internal/protocol"
	"gcu-service/internal/simulator"
)

// scriptLink replays a fixed byte stream and records writes
type scriptLink struct {
	in       bytes.Buffer
	written  [][]byte
	signal   bool
	writeErr error
	writeN   int
	readErr  error
}

func newScriptLink(script string) *scriptLink {
	l := &scriptLink{}
	l.in.WriteString(script)
	return l
}

func (l *scriptLink) Open(context.Context) error { return nil }
func (l *scriptLink) Close() error { return nil }
func (l *scriptLink) IsOpen() bool { return true }
func (l *scriptLink) Configure(protocol.LineSettings) error { return nil }
func (l *scriptLink) SetReadTimeout(time.Duration) error { return nil }
func (l *scriptLink) Name() string { return "script" }
func (l *scriptLink) Stats() protocol.ProtocolStats { return protocol.ProtocolStats{} }
func (l *scriptLink) SetSignal(high bool) error { l.signal = high; return nil }

func (l *scriptLink) Read(p []byte) (int, error) {
	if l.readErr != nil {
		return 0, l.readErr
	}
	if l.in.Len() == 0 {
		return 0, protocol.ErrTimeout
	}
	return l.in.Read(p)
}

func (l *scriptLink) Write(p []byte) (int, error) {
	if l.writeErr != nil {
		return 0, l.writeErr
	}
	l.written = append(l.written, append([]byte(nil), p...))
	if l.writeN > 0 {
		return l.writeN, nil
	}
	return len(p), nil
}

var errBroken = errors.New("broken pipe")

// testOptions removes the firmware delays
func testOptions() Options {
	opts := DefaultOptions()
	opts.SettleDelay = 0
	opts.PowerUpDelay = 0
	return opts
}

func newTestClient(t *testing.T, link protocol.Link) *Client {
	t.Helper()
	c, err := NewClient(link, testOptions(), zap.NewNop())
	require.NoError(t, err)
	return c
}

// newSimClient returns a connected client on a fresh simulator
func newSimClient(t *testing.T) (*Client, *simulator.Device) {
	t.Helper()
	dev := simulator.NewDevice(simulator.DefaultConfig(), zap.NewNop())
	require.NoError(t, dev.Open(context.Background()))
	c := newTestClient(t, dev)
	require.NoError(t, c.Connect(context.Background()))
	return c, dev
}

package gcu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandFraming(t *testing.T) {
	for _, cmd := range []Command{CmdVersion, CmdPressure, CmdPulseDuration, CmdQuit} {
		assert.True(t, cmd.Valid(), "%q", cmd)
	}

	read, err := ReadCommand(7)
	require.NoError(t, err)
	assert.Equal(t, Command("R070000"), read)
	assert.Equal(t, byte('R'), read.Opcode())

	write, err := WriteCommand(99, 42)
	require.NoError(t, err)
	assert.Equal(t, Command("W990042"), write)
	assert.Len(t, write.Bytes(), FrameLength)

	write, err = WriteCommand(0, MaxValue)
	require.NoError(t, err)
	assert.Equal(t, Command("W009999"), write)
}

func TestCommandRange(t *testing.T) {
	_, err := ReadCommand(100)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = WriteCommand(100, 1)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = WriteCommand(1, 10000)
	assert.ErrorIs(t, err, ErrOutOfRange)

	assert.False(t, Command("R1").Valid())
	assert.Equal(t, byte(0), Command("").Opcode())
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingAddresses(t *testing.T) {
	for level := uint16(1); level <= DefaultPowerLevels; level++ {
		addrs, err := SettingAddresses(level)
		require.NoError(t, err)

		base := uint8(20 * level)
		seen := make(map[uint8]bool)
		for i, addr := range addrs {
			assert.Equal(t, base+uint8(2*i), addr, "level %d field %d", level, i)
			assert.False(t, seen[addr], "duplicate address %d", addr)
			seen[addr] = true
		}
		assert.Len(t, seen, RegistersPerSetting)
	}
}

func TestBaseAddressBounds(t *testing.T) {
	_, err := BaseAddress(0)
	assert.Error(t, err)

	base, err := BaseAddress(4)
	require.NoError(t, err)
	assert.EqualValues(t, 80, base)

	_, err = BaseAddress(5)
	assert.Error(t, err)
}

func TestSettingRegisters(t *testing.T) {
	s := NewSetting(2, [RegistersPerSetting]uint16{1, 2, 3, 4, 5, 6, 7, 8, 9})
	assert.EqualValues(t, 9, s.Volts)
	assert.EqualValues(t, 1, s.HighPressure)

	regs, err := s.Registers()
	require.NoError(t, err)
	require.Len(t, regs, RegistersPerSetting)
	assert.Equal(t, Register{Address: 40, Value: 1}, regs[0])
	assert.Equal(t, Register{Address: 56, Value: 9}, regs[8])
	assert.Equal(t, s, NewSetting(2, s.Values()))
}

// internal/model/setting.go
package model

import (
	"errors"
	"fmt"
)

const (
	// RegisterBlockSize is the number of addresses reserved per power level
	RegisterBlockSize = 20
	// RegisterStride is the distance between two fields of a block
	RegisterStride = 2
	// RegistersPerSetting is the number of value fields in a Setting
	RegistersPerSetting = 9
	// MaxAddress is the highest address a 2-digit frame can carry
	MaxAddress = 99
	// DefaultPowerLevels is the number of levels configured on a GCU
	DefaultPowerLevels = 3
)

// ErrOutOfRange indicates an address, value or power level that does not fit
// the register frame.
var ErrOutOfRange = errors.New("value out of frame range")

// Setting is one power level's complete register block
type Setting struct {
	PowerLevel   uint16 `json:"power_level" csv:"power_level"`
	HighPressure uint16 `json:"high_pressure" csv:"high_pressure"`
	MidPressure  uint16 `json:"mid_pressure" csv:"mid_pressure"`
	LowPressure  uint16 `json:"low_pressure" csv:"low_pressure"`
	HighPulse    uint16 `json:"high_pulse" csv:"high_pulse"`
	MidPulse     uint16 `json:"mid_pulse" csv:"mid_pulse"`
	LowPulse     uint16 `json:"low_pulse" csv:"low_pulse"`
	HighSlope    uint16 `json:"high_slope" csv:"high_slope"`
	LowSlope     uint16 `json:"low_slope" csv:"low_slope"`
	Volts        uint16 `json:"volts" csv:"volts"`
}

// SettingFields lists the tabular column names in order
var SettingFields = []string{
	"power_level",
	"high_pressure", "mid_pressure", "low_pressure",
	"high_pulse", "mid_pulse", "low_pulse",
	"high_slope", "low_slope",
	"volts",
}

// Register pairs a device address with its value
type Register struct {
	Address uint8  `json:"address"`
	Value   uint16 `json:"value"`
}

// BaseAddress returns the first register address of a power level
func BaseAddress(powerLevel uint16) (uint8, error) {
	if powerLevel == 0 {
		return 0, fmt.Errorf("power level must be at least 1: %w", ErrOutOfRange)
	}
	base := int(powerLevel) * RegisterBlockSize
	last := base + (RegistersPerSetting-1)*RegisterStride
	if last > MaxAddress {
		return 0, fmt.Errorf("power level %d maps beyond address %d: %w", powerLevel, MaxAddress, ErrOutOfRange)
	}
	return uint8(base), nil
}

// SettingAddresses returns the register addresses of a power level in field order
func SettingAddresses(powerLevel uint16) ([RegistersPerSetting]uint8, error) {
	var addrs [RegistersPerSetting]uint8
	base, err := BaseAddress(powerLevel)
	if err != nil {
		return addrs, err
	}
	for i := range addrs {
		addrs[i] = base + uint8(i*RegisterStride)
	}
	return addrs, nil
}

// Values returns the register values in address order
func (s *Setting) Values() [RegistersPerSetting]uint16 {
	return [RegistersPerSetting]uint16{
		s.HighPressure, s.MidPressure, s.LowPressure,
		s.HighPulse, s.MidPulse, s.LowPulse,
		s.HighSlope, s.LowSlope,
		s.Volts,
	}
}

// Registers pairs every value of the setting with its address
func (s *Setting) Registers() ([]Register, error) {
	addrs, err := SettingAddresses(s.PowerLevel)
	if err != nil {
		return nil, err
	}
	values := s.Values()
	regs := make([]Register, RegistersPerSetting)
	for i := range regs {
		regs[i] = Register{Address: addrs[i], Value: values[i]}
	}
	return regs, nil
}

// NewSetting assembles a Setting from register values in address order
func NewSetting(powerLevel uint16, values [RegistersPerSetting]uint16) Setting {
	return Setting{
		PowerLevel:   powerLevel,
		HighPressure: values[0],
		MidPressure:  values[1],
		LowPressure:  values[2],
		HighPulse:    values[3],
		MidPulse:     values[4],
		LowPulse:     values[5],
		HighSlope:    values[6],
		LowSlope:     values[7],
		Volts:        values[8],
	}
}

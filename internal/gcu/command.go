// internal/gcu/command.go
package gcu

import (
	"fmt"

	"gcu-service/internal/model"
)

// FrameLength is the size of every command frame on the wire
const FrameLength = 7

// MaxValue is the largest value a 4 digit data field can carry
const MaxValue = 9999

// Command is a 7 byte ASCII command frame
type Command string

// Fixed command frames
const (
	CmdVersion       Command = "V      "
	CmdPressure      Command = "P      "
	CmdPulseDuration Command = "A      "
	CmdQuit          Command = "Q      "
)

// ReadCommand frames a register read: R{addr:02}0000
func ReadCommand(address uint8) (Command, error) {
	if address > model.MaxAddress {
		return "", fmt.Errorf("address %d: %w", address, ErrOutOfRange)
	}
	return Command(fmt.Sprintf("R%02d0000", address)), nil
}

// WriteCommand frames a register write: W{addr:02}{data:04}
func WriteCommand(address uint8, value uint16) (Command, error) {
	if address > model.MaxAddress {
		return "", fmt.Errorf("address %d: %w", address, ErrOutOfRange)
	}
	if value > MaxValue {
		return "", fmt.Errorf("value %d: %w", value, ErrOutOfRange)
	}
	return Command(fmt.Sprintf("W%02d%04d", address, value)), nil
}

// Bytes returns the frame as sent on the wire
func (c Command) Bytes() []byte {
	return []byte(c)
}

// Valid reports whether the frame has the fixed wire length
func (c Command) Valid() bool {
	return len(c) == FrameLength
}

// Opcode returns the leading command letter
func (c Command) Opcode() byte {
	if len(c) == 0 {
		return 0
	}
	return c[0]
}

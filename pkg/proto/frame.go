package proto

import "fmt"

// Frame delimiter bytes.
const (
	STX byte = 0x04
	ETX byte = 0x0f
)

// FrameLen is the fixed size of every frame on the wire.
const FrameLen = 7

// Command bytes sent to the board.
const (
	CmdRelayOn          byte = 0x11
	CmdRelayOff         byte = 0x12
	CmdRelayToggle      byte = 0x14
	CmdQueryRelayStatus byte = 0x18
	CmdSetButtonMode    byte = 0x21
	CmdQueryButtonMode  byte = 0x22
	CmdStartTimer       byte = 0x41
	CmdSetTimerDelay    byte = 0x42
	CmdQueryTimerDelay  byte = 0x44
	CmdFactoryReset     byte = 0x66
	CmdQueryJumper      byte = 0x70
	CmdQueryFirmware    byte = 0x71
)

// Command bytes received from the board. Query responses reuse the query
// command byte; 50h and 51h are also sent unsolicited.
const (
	EvtButtonMode  byte = 0x22
	EvtTimerDelay  byte = 0x44
	EvtButtonState byte = 0x50
	EvtRelayState  byte = 0x51
	EvtJumper      byte = 0x70
	EvtFirmware    byte = 0x71
)

var knownCommands = map[byte]bool{
	CmdRelayOn:          true,
	CmdRelayOff:         true,
	CmdRelayToggle:      true,
	CmdQueryRelayStatus: true,
	CmdSetButtonMode:    true,
	CmdQueryButtonMode:  true,
	CmdStartTimer:       true,
	CmdSetTimerDelay:    true,
	CmdQueryTimerDelay:  true,
	CmdFactoryReset:     true,
	CmdQueryJumper:      true,
	CmdQueryFirmware:    true,
	EvtButtonState:      true,
	EvtRelayState:       true,
}

// Frame contains the information of one protocol frame.
type Frame struct {
	Cmd    byte
	Mask   byte
	Param1 byte
	Param2 byte
}

// MaskBit builds the single-bit mask selecting relay/button index (0-7).
// The index must be validated by the caller.
func MaskBit(index int) byte {
	return 1 << uint(index)
}

// Checksum calculates the two's complement checksum over STX and the four
// payload bytes.
func Checksum(cmd, mask, param1, param2 byte) byte {
	return byte(-(int(STX) + int(cmd) + int(mask) + int(param1) + int(param2)))
}

// Encode builds a frame after validating the command byte and the mask.
// The mask is accepted as int so callers computing masks can rely on the
// range check instead of silent truncation.
func Encode(cmd byte, mask int, param1, param2 byte) (Frame, error) {
	if !knownCommands[cmd] {
		return Frame{}, fmt.Errorf("%w 0x%02x", ErrUnknownCommand, cmd)
	}
	if mask < 0 || mask > 0xff {
		return Frame{}, fmt.Errorf("%w: mask 0x%x", ErrBadMask, mask)
	}
	return Frame{Cmd: cmd, Mask: byte(mask), Param1: param1, Param2: param2}, nil
}

// Bytes returns encoded bytes for sending.
func (f Frame) Bytes() []byte {
	return []byte{
		STX, f.Cmd, f.Mask, f.Param1, f.Param2,
		Checksum(f.Cmd, f.Mask, f.Param1, f.Param2),
		ETX,
	}
}

// Delay combines PARAM1/PARAM2 into the 16-bit timer delay in seconds.
func (f Frame) Delay() uint16 {
	return uint16(f.Param1)<<8 | uint16(f.Param2)
}

// Decode parses one fixed-length frame. It is pure and never applies
// anything to board state; callers interpret the result.
func Decode(b []byte) (Frame, error) {
	if len(b) != FrameLen {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrBadLength, len(b))
	}
	if b[0] != STX || b[6] != ETX {
		return Frame{}, fmt.Errorf("%w: %02x...%02x", ErrBadMarker, b[0], b[6])
	}
	if chk := Checksum(b[1], b[2], b[3], b[4]); b[5] != chk {
		return Frame{}, fmt.Errorf("%w: got 0x%02x, want 0x%02x", ErrBadChecksum, b[5], chk)
	}
	if !knownCommands[b[1]] {
		return Frame{}, fmt.Errorf("%w 0x%02x", ErrUnknownCommand, b[1])
	}
	return Frame{Cmd: b[1], Mask: b[2], Param1: b[3], Param2: b[4]}, nil
}

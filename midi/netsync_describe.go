package midi

import "fmt"

// DescribeNetsyncBody names the MTC/MMC sub-message carried by a netsync
// payload, for logging. body is the payload with its single-byte
// netsync header already stripped (body[0] is the MIDI status byte:
// 0xF1 for MTC Quarter Frame, 0xF0 for a SysEx-wrapped MTC Full Frame
// or MMC command). It never fails: a truncated or unrecognized SysEx
// body is named as such, a body with any other leading byte falls back
// to GetCommandInfo's generic channel/system message table, and failing
// that, a hex dump of the leading byte.
//
// This helper is diagnostic only. The netsync codec itself (package
// netsync) never calls into it or into GetCommandInfo — its own
// parsing is self-contained per the core's independence requirement.
func DescribeNetsyncBody(body []byte) string {
	if len(body) == 0 {
		return "(empty)"
	}

	switch body[0] {
	case 0xF1:
		return "MTC quarter frame"

	case 0xF0:
		if len(body) < 4 {
			return "SysEx (truncated)"
		}
		if body[1] != 0x7F || body[2] != 0x7F {
			return "SysEx (non-universal real-time)"
		}
		switch body[3] {
		case 0x01:
			return "MTC full frame"
		case 0x06:
			if len(body) < 5 {
				return "MMC (truncated)"
			}
			switch body[4] {
			case 0x01:
				return "MMC stop"
			case 0x02:
				return "MMC play"
			case 0x44:
				return "MMC locate"
			default:
				return fmt.Sprintf("MMC (unknown command %#x)", body[4])
			}
		default:
			return fmt.Sprintf("SysEx universal real-time (unknown sub-id %#x)", body[3])
		}
	}

	if info := GetCommandInfo(body[0]); info != nil {
		return info.Name()
	}
	return fmt.Sprintf("unknown (%#x)", body[0])
}

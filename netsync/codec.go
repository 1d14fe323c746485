// Package netsync is the bit-exact encode/decode engine for the netsync
// payload: the byte stream carried in the payload of an RTP-MIDI packet
// that lets a timing master and its slaves exchange MTC Quarter Frame,
// MTC Full Frame, and MMC Stop/Play/Locate events.
//
// Encode and Decode are pure, stateless, reentrant, and allocation-free
// on the decode path; Encode writes into a caller-owned buffer and never
// allocates either. Neither function ever panics, regardless of input.
package netsync

import (
	"errors"
	"fmt"

	"github.com/Aser-Osama/rtp-midi-netsync/event"
)

// Sentinel errors. Encode only ever returns ErrInvalidEventType or
// ErrBufferTooSmall; Decode only ever returns ErrInvalidPayload. Wrap
// with fmt.Errorf("%w: ...") for context; callers that need to
// distinguish kinds should use errors.Is against these values, or use
// the ffi package, which maps them to the stable integer codes in
// spec §6.
var (
	// ErrInvalidEventType is returned by Encode when the event is not
	// one of the five enumerated variants.
	ErrInvalidEventType = errors.New("netsync: invalid event type")

	// ErrBufferTooSmall is returned by Encode when the destination
	// buffer's capacity is smaller than the encoded length.
	ErrBufferTooSmall = errors.New("netsync: buffer too small")

	// ErrInvalidPayload is returned by Decode for any byte sequence
	// that is not a well-formed netsync payload: too short, wrong
	// header sentinel, length mismatch, unrecognized body, or a
	// missing/incorrect trailer.
	ErrInvalidPayload = errors.New("netsync: invalid payload")
)

// Header flags nibble. The low nibble of byte 0 carries the total
// payload length (including the header itself); the high nibble must
// equal headerFlags or the payload is rejected outright. See spec §4.2.1
// and §9 open question 3 — this sentinel is not claimed bit-exact with
// any particular prior implementation.
const headerFlags = 0xA

// MIDI status bytes used by the five variants.
const (
	statusQuarterFrame = 0xF1
	statusSysEx        = 0xF0
	statusSysExEnd     = 0xF7
)

// SysEx sub-IDs (universal real-time, device ID 0x7F) used by MTC Full
// Frame and MMC.
const (
	subIDMTC        = 0x01
	subIDMMC        = 0x06
	mmcCmdStop      = 0x01
	mmcCmdPlay      = 0x02
	mmcCmdLocate    = 0x44
	mmcLocateSubCmd = 0x06
	mmcLocateInfo   = 0x01
)

// Total wire lengths per variant, header included.
const (
	lenMtcQuarter = 3
	lenMtcFull    = 11
	lenMmcStop    = 7
	lenMmcPlay    = 7
	lenMmcLocate  = 13
)

// MaxPayloadSize is the maximum encoded length of any supported event
// (MmcLocate, 13 bytes) rounded up to a convenient power-of-two bound.
// Callers sizing a scratch buffer for Encode should use this constant.
const MaxPayloadSize = 16

// EncodedLen returns the number of bytes Encode will write for e, or 0
// if e is not well-formed. It never fails for any in-range Kind.
func EncodedLen(e event.Event) int {
	switch e.Kind {
	case event.MtcQuarter:
		return lenMtcQuarter
	case event.MtcFull:
		return lenMtcFull
	case event.MmcStop:
		return lenMmcStop
	case event.MmcPlay:
		return lenMmcPlay
	case event.MmcLocate:
		return lenMmcLocate
	default:
		return 0
	}
}

func header(n int) byte {
	return headerFlags<<4 | byte(n&0x0F)
}

// Encode serializes e into buf and returns the number of bytes written.
//
// Encode first checks event.IsWellFormed(e); if that fails it returns
// ErrInvalidEventType without touching buf. It then checks
// len(buf) >= EncodedLen(e); if that fails it returns ErrBufferTooSmall
// without writing any byte of buf — the buffer-safety property in spec
// §8 holds by construction: every length and validity check happens
// before the first write.
func Encode(e event.Event, buf []byte) (int, error) {
	if !event.IsWellFormed(e) {
		return 0, fmt.Errorf("%w: kind %d", ErrInvalidEventType, e.Kind)
	}

	n := EncodedLen(e)
	if len(buf) < n {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrBufferTooSmall, n, len(buf))
	}

	switch e.Kind {
	case event.MtcQuarter:
		buf[0] = header(lenMtcQuarter)
		buf[1] = statusQuarterFrame
		buf[2] = (e.Quarter.MsgType&0x07)<<4 | (e.Quarter.Value & 0x0F)

	case event.MtcFull:
		buf[0] = header(lenMtcFull)
		buf[1] = statusSysEx
		buf[2] = 0x7F
		buf[3] = 0x7F
		buf[4] = subIDMTC
		buf[5] = 0x01
		buf[6] = e.Timecode.Hour
		buf[7] = e.Timecode.Minute
		buf[8] = e.Timecode.Second
		buf[9] = e.Timecode.Frame
		buf[10] = statusSysExEnd

	case event.MmcStop:
		buf[0] = header(lenMmcStop)
		buf[1] = statusSysEx
		buf[2] = 0x7F
		buf[3] = 0x7F
		buf[4] = subIDMMC
		buf[5] = mmcCmdStop
		buf[6] = statusSysExEnd

	case event.MmcPlay:
		buf[0] = header(lenMmcPlay)
		buf[1] = statusSysEx
		buf[2] = 0x7F
		buf[3] = 0x7F
		buf[4] = subIDMMC
		buf[5] = mmcCmdPlay
		buf[6] = statusSysExEnd

	case event.MmcLocate:
		buf[0] = header(lenMmcLocate)
		buf[1] = statusSysEx
		buf[2] = 0x7F
		buf[3] = 0x7F
		buf[4] = subIDMMC
		buf[5] = mmcCmdLocate
		buf[6] = mmcLocateSubCmd
		buf[7] = mmcLocateInfo
		buf[8] = e.Timecode.Hour
		buf[9] = e.Timecode.Minute
		buf[10] = e.Timecode.Second
		buf[11] = e.Timecode.Frame
		buf[12] = statusSysExEnd
	}

	return n, nil
}

// Decode parses buf as a netsync payload and returns the event it
// encodes. It never reads beyond len(buf) and never panics on any
// input of any length, including the empty slice.
//
// Decode rejects, with ErrInvalidPayload:
//   - any buffer shorter than 2 bytes;
//   - a header whose high nibble is not 0xA;
//   - a header whose low nibble (declared length) does not equal
//     len(buf) exactly — no truncation, no trailing bytes;
//   - any body that does not match one of the five fixed layouts in
//     spec §4.2.2, including a missing or wrong SysEx trailer.
func Decode(buf []byte) (event.Event, error) {
	if len(buf) < 2 {
		return event.Event{}, fmt.Errorf("%w: length %d below minimum 2", ErrInvalidPayload, len(buf))
	}

	if buf[0]>>4 != headerFlags {
		return event.Event{}, fmt.Errorf("%w: header flags nibble %#x", ErrInvalidPayload, buf[0]>>4)
	}

	declared := int(buf[0] & 0x0F)
	if declared != len(buf) {
		return event.Event{}, fmt.Errorf("%w: header declares length %d, got %d", ErrInvalidPayload, declared, len(buf))
	}

	switch buf[1] {
	case statusQuarterFrame:
		if len(buf) != lenMtcQuarter {
			return event.Event{}, fmt.Errorf("%w: quarter frame length %d", ErrInvalidPayload, len(buf))
		}
		b2 := buf[2]
		return event.MTCQuarter((b2>>4)&0x07, b2&0x0F), nil

	case statusSysEx:
		return decodeSysEx(buf)

	default:
		return event.Event{}, fmt.Errorf("%w: unrecognized status byte %#x", ErrInvalidPayload, buf[1])
	}
}

func decodeSysEx(buf []byte) (event.Event, error) {
	if len(buf) < 5 || buf[2] != 0x7F || buf[3] != 0x7F {
		return event.Event{}, fmt.Errorf("%w: malformed sysex prefix", ErrInvalidPayload)
	}

	switch buf[4] {
	case subIDMTC:
		if len(buf) != lenMtcFull || buf[5] != 0x01 || buf[10] != statusSysExEnd {
			return event.Event{}, fmt.Errorf("%w: malformed mtc full frame", ErrInvalidPayload)
		}
		return event.MTCFull(buf[6], buf[7], buf[8], buf[9]), nil

	case subIDMMC:
		if len(buf) < 6 {
			return event.Event{}, fmt.Errorf("%w: truncated mmc command", ErrInvalidPayload)
		}
		switch buf[5] {
		case mmcCmdStop:
			if len(buf) != lenMmcStop || buf[6] != statusSysExEnd {
				return event.Event{}, fmt.Errorf("%w: malformed mmc stop", ErrInvalidPayload)
			}
			return event.MMCStop(), nil

		case mmcCmdPlay:
			if len(buf) != lenMmcPlay || buf[6] != statusSysExEnd {
				return event.Event{}, fmt.Errorf("%w: malformed mmc play", ErrInvalidPayload)
			}
			return event.MMCPlay(), nil

		case mmcCmdLocate:
			if len(buf) != lenMmcLocate || buf[6] != mmcLocateSubCmd || buf[7] != mmcLocateInfo || buf[12] != statusSysExEnd {
				return event.Event{}, fmt.Errorf("%w: malformed mmc locate", ErrInvalidPayload)
			}
			return event.MMCLocate(buf[8], buf[9], buf[10], buf[11]), nil

		default:
			return event.Event{}, fmt.Errorf("%w: unrecognized mmc command %#x", ErrInvalidPayload, buf[5])
		}

	default:
		return event.Event{}, fmt.Errorf("%w: unrecognized sysex sub-id %#x", ErrInvalidPayload, buf[4])
	}
}

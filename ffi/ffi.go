// Package ffi is the boundary adapter between the native netsync codec
// and a caller-provided-buffer / integer-error-code calling convention
// suitable for a foreign-language boundary. It is the only place in this
// module where an Event is represented as a fixed 8-byte data array plus
// a length byte, mirroring the original C struct layout; everywhere else
// in this module (event, netsync) the event is a typed Go value.
//
// The adapter itself never dereferences a raw pointer — that happens one
// layer further out, in ffi/capi, which is the actual cgo export shim.
// ffi operates on ordinary Go slices and values and is unit-testable
// without cgo.
package ffi

import (
	"errors"

	"github.com/Aser-Osama/rtp-midi-netsync/event"
	"github.com/Aser-Osama/rtp-midi-netsync/netsync"
)

// ErrorCode is the stable integer error code returned across the
// boundary. Values are part of the wire contract in spec §6/§7 and must
// never be renumbered.
type ErrorCode int

const (
	Success            ErrorCode = 0
	InvalidMasterEvent ErrorCode = 1 // reserved, never returned by this implementation
	InvalidSlaveEvent  ErrorCode = 2
	BufferTooSmall     ErrorCode = 3
	NullPointer        ErrorCode = 4
	InvalidEventType   ErrorCode = 5
)

// DescribeError returns a non-empty, human-readable description of code.
// It never returns the empty string, including for codes outside the
// enumerated table, for which it returns "Unknown error".
func DescribeError(code ErrorCode) string {
	switch code {
	case Success:
		return "success"
	case InvalidMasterEvent:
		return "invalid master event"
	case InvalidSlaveEvent:
		return "invalid slave event"
	case BufferTooSmall:
		return "buffer too small"
	case NullPointer:
		return "null pointer"
	case InvalidEventType:
		return "invalid event type"
	default:
		return "Unknown error"
	}
}

// MaxPayloadSize returns the maximum length, in bytes, of any variant's
// encoded netsync payload. Callers should size encode buffers to at
// least this many bytes to guarantee Encode never reports
// BufferTooSmall.
func MaxPayloadSize() int {
	return netsync.MaxPayloadSize
}

// dataCap is the fixed capacity of Event.Data, matching the original C
// struct's 8-byte inline array (4 bytes of payload max, 4 bytes
// unused).
const dataCap = 8

// Event is the foreign-boundary event representation: a tag, a fixed
// 8-byte data array, and a length indicating how many of those bytes
// are meaningful. It is built and consumed only at this boundary; see
// event.Event for the typed representation used by the rest of this
// module.
type Event struct {
	Tag     event.Kind
	Data    [dataCap]byte
	DataLen uint8
}

func toEvent(e Event) (event.Event, ErrorCode) {
	switch e.Tag {
	case event.MtcQuarter:
		if e.DataLen != 2 {
			return event.Event{}, InvalidEventType
		}
		return event.MTCQuarter(e.Data[0], e.Data[1]), Success

	case event.MtcFull:
		if e.DataLen != 4 {
			return event.Event{}, InvalidEventType
		}
		return event.MTCFull(e.Data[0], e.Data[1], e.Data[2], e.Data[3]), Success

	case event.MmcStop:
		if e.DataLen != 0 {
			return event.Event{}, InvalidEventType
		}
		return event.MMCStop(), Success

	case event.MmcPlay:
		if e.DataLen != 0 {
			return event.Event{}, InvalidEventType
		}
		return event.MMCPlay(), Success

	case event.MmcLocate:
		if e.DataLen != 4 {
			return event.Event{}, InvalidEventType
		}
		return event.MMCLocate(e.Data[0], e.Data[1], e.Data[2], e.Data[3]), Success

	default:
		return event.Event{}, InvalidEventType
	}
}

func fromEvent(e event.Event) Event {
	switch e.Kind {
	case event.MtcQuarter:
		out := Event{Tag: e.Kind, DataLen: 2}
		out.Data[0] = e.Quarter.MsgType
		out.Data[1] = e.Quarter.Value
		return out

	case event.MtcFull:
		out := Event{Tag: e.Kind, DataLen: 4}
		out.Data[0] = e.Timecode.Hour
		out.Data[1] = e.Timecode.Minute
		out.Data[2] = e.Timecode.Second
		out.Data[3] = e.Timecode.Frame
		return out

	case event.MmcStop, event.MmcPlay:
		return Event{Tag: e.Kind, DataLen: 0}

	case event.MmcLocate:
		out := Event{Tag: e.Kind, DataLen: 4}
		out.Data[0] = e.Timecode.Hour
		out.Data[1] = e.Timecode.Minute
		out.Data[2] = e.Timecode.Second
		out.Data[3] = e.Timecode.Frame
		return out

	default:
		return Event{Tag: e.Kind}
	}
}

// MTCQuarter builds the boundary representation of an MTC Quarter Frame
// event. Infallible, like its event package counterpart.
func MTCQuarter(msgType, value uint8) Event {
	return fromEvent(event.MTCQuarter(msgType, value))
}

// MTCFull builds the boundary representation of an MTC Full Frame event.
func MTCFull(hour, minute, second, frame uint8) Event {
	return fromEvent(event.MTCFull(hour, minute, second, frame))
}

// MMCStop builds the boundary representation of an MMC Stop event.
func MMCStop() Event {
	return fromEvent(event.MMCStop())
}

// MMCPlay builds the boundary representation of an MMC Play event.
func MMCPlay() Event {
	return fromEvent(event.MMCPlay())
}

// MMCLocate builds the boundary representation of an MMC Locate event.
func MMCLocate(hour, minute, second, frame uint8) Event {
	return fromEvent(event.MMCLocate(hour, minute, second, frame))
}

// Encode mirrors encode(event_ptr, buf_ptr, buf_cap, out_size_ptr) ->
// code. On success it returns the number of bytes written and Success;
// buf[:n] holds the payload and bytes beyond n are untouched. On
// failure it returns (0, code) and leaves buf unmodified.
//
// Encode returns NullPointer if buf is nil and the event requires a
// non-empty payload (every supported event does; there is no
// zero-length netsync payload) — the idiomatic Go stand-in for "a
// required pointer is absent" described in spec §4.2.3, since a nil
// slice is the only pointer-like value Go callers can pass here.
func Encode(ev Event, buf []byte) (int, ErrorCode) {
	if buf == nil {
		return 0, NullPointer
	}

	e, code := toEvent(ev)
	if code != Success {
		return 0, code
	}

	n, err := netsync.Encode(e, buf)
	if err != nil {
		if errors.Is(err, netsync.ErrBufferTooSmall) {
			return 0, BufferTooSmall
		}
		return 0, InvalidEventType
	}
	return n, Success
}

// Decode mirrors decode(buf_ptr, buf_len, event_ptr) -> code. On success
// it returns the decoded event and Success. Decode never returns
// BufferTooSmall (it is not the decoder's concern, per spec §4.2.4).
func Decode(buf []byte) (Event, ErrorCode) {
	if buf == nil {
		return Event{}, NullPointer
	}

	e, err := netsync.Decode(buf)
	if err != nil {
		return Event{}, InvalidSlaveEvent
	}
	return fromEvent(e), Success
}

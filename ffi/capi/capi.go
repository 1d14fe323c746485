//go:build cgo

// Command capi builds the cgo export surface for the netsync codec: the
// C ABI described in spec §6 (encode, decode, max payload size, error
// description, and the five event constructors), built only when the
// cgo build tag is active, via `go build -buildmode=c-shared` (or
// c-archive). This is the ONLY place in this module that dereferences a
// raw, caller-supplied C pointer; everything it calls into (package
// ffi) operates on ordinary Go slices and values.
//
// The package is intentionally thin: pointer-nullness checks and
// buffer-length translation happen here, every actual decision (which
// error code, what the bytes look like) is delegated to ffi and
// netsync. This mirrors the re-architecting note in spec §9: "a
// systems-language port should implement the codec as an idiomatic
// fallible function over a byte slice and an event value, then write a
// thin, tested adapter that performs pointer validation and
// error-code translation."
package main

/*
#include <stddef.h>
#include <stdint.h>

typedef enum {
	NETSYNC_EVENT_MTC_QUARTER = 0,
	NETSYNC_EVENT_MTC_FULL = 1,
	NETSYNC_EVENT_MMC_STOP = 2,
	NETSYNC_EVENT_MMC_PLAY = 3,
	NETSYNC_EVENT_MMC_LOCATE = 4
} NetsyncEventType;

typedef struct {
	NetsyncEventType event_type;
	uint8_t data[8];
	uint8_t data_len;
} NetsyncEvent;
*/
import "C"

import (
	"unsafe"

	"github.com/Aser-Osama/rtp-midi-netsync/event"
	"github.com/Aser-Osama/rtp-midi-netsync/ffi"
)

func fromC(ev *C.NetsyncEvent) ffi.Event {
	out := ffi.Event{
		Tag:     event.Kind(ev.event_type),
		DataLen: uint8(ev.data_len),
	}
	for i := range out.Data {
		out.Data[i] = byte(ev.data[i])
	}
	return out
}

func toC(ev ffi.Event, out *C.NetsyncEvent) {
	out.event_type = C.NetsyncEventType(ev.Tag)
	out.data_len = C.uint8_t(ev.DataLen)
	for i, b := range ev.Data {
		out.data[i] = C.uint8_t(b)
	}
}

//export netsync_master_flow
func netsync_master_flow(cEvent *C.NetsyncEvent, buffer *C.uint8_t, bufferSize C.size_t, actualSize *C.size_t) C.int {
	if cEvent == nil || buffer == nil || actualSize == nil {
		return C.int(ffi.NullPointer)
	}

	buf := unsafe.Slice((*byte)(buffer), int(bufferSize))
	n, code := ffi.Encode(fromC(cEvent), buf)
	*actualSize = C.size_t(n)
	return C.int(code)
}

//export netsync_slave_flow
func netsync_slave_flow(buffer *C.uint8_t, bufferLen C.size_t, outEvent *C.NetsyncEvent) C.int {
	if buffer == nil || outEvent == nil {
		return C.int(ffi.NullPointer)
	}

	buf := unsafe.Slice((*byte)(buffer), int(bufferLen))
	ev, code := ffi.Decode(buf)
	if code == ffi.Success {
		toC(ev, outEvent)
	}
	return C.int(code)
}

//export netsync_max_payload_size
func netsync_max_payload_size() C.size_t {
	return C.size_t(ffi.MaxPayloadSize())
}

//export netsync_describe_error
func netsync_describe_error(code C.int) *C.char {
	return C.CString(ffi.DescribeError(ffi.ErrorCode(code)))
}

//export netsync_create_mtc_quarter
func netsync_create_mtc_quarter(msgType, value C.uint8_t, out *C.NetsyncEvent) {
	if out == nil {
		return
	}
	toC(ffi.MTCQuarter(uint8(msgType), uint8(value)), out)
}

//export netsync_create_mtc_full
func netsync_create_mtc_full(hour, minute, second, frame C.uint8_t, out *C.NetsyncEvent) {
	if out == nil {
		return
	}
	toC(ffi.MTCFull(uint8(hour), uint8(minute), uint8(second), uint8(frame)), out)
}

//export netsync_create_mmc_stop
func netsync_create_mmc_stop(out *C.NetsyncEvent) {
	if out == nil {
		return
	}
	toC(ffi.MMCStop(), out)
}

//export netsync_create_mmc_play
func netsync_create_mmc_play(out *C.NetsyncEvent) {
	if out == nil {
		return
	}
	toC(ffi.MMCPlay(), out)
}

//export netsync_create_mmc_locate
func netsync_create_mmc_locate(hour, minute, second, frame C.uint8_t, out *C.NetsyncEvent) {
	if out == nil {
		return
	}
	toC(ffi.MMCLocate(uint8(hour), uint8(minute), uint8(second), uint8(frame)), out)
}

// main is required for -buildmode=c-shared/-c-archive but never runs;
// callers only ever link against the exported C functions above.
func main() {}

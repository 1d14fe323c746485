// Package rtp implements the RTP-MIDI packet format (RFC 6295): the RTP
// fixed header plus the MIDI Command Section that carries one or more
// timestamped MIDI commands. It is a transport concern, external to the
// netsync codec core (spec §1's "RTP packetization … not part of the
// core") — this package knows nothing about netsync payload framing. It
// is, however, the only plausible carrier for one: package session places
// a netsync payload's body (its self-framing header byte stripped, since
// a command here is framed by its own leading MIDI status byte instead)
// as a single MIDICommand's Payload, and reconstructs that header byte
// from each received MIDICommand's Payload before handing it to
// netsync.Decode.
package rtp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/Aser-Osama/rtp-midi-netsync/midi"
)

// Generic RTP constants
const (
	version2Bit  = 0x80
	extensionBit = 0x10
	paddingBit   = 0x20
	markerBit    = 0x80
	ccMask       = 0x0f
	ptMask       = 0x7f
)

// RTP-MIDI constants
const (
	minimumBufferLength = 12
)

const (
	padding   = 0x00
	extension = 0x00
	ccBits    = 0x00
	firstByte = version2Bit | padding | extension | ccBits
)

const (
	payloadType = 0x61
	secondByte  = payloadType
)

// MIDI List constants
const (
	deltaTimeMask    = 0x7f
	deltaTimeHasNext = 0x80
)

// rtpClockRate is the RTP-MIDI timestamp clock rate in Hz, per the
// "rtp-midi" media type registration. Timestamps and delta-times are
// both expressed in this clock's ticks.
const rtpClockRate = 100000

// MIDIMessage represents a MIDI package exchanged over RTP.
//
// see https://en.wikipedia.org/wiki/RTP-MIDI
// see https://developer.apple.com/library/archive/documentation/Audio/Conceptual/MIDINetworkDriverProtocol/MIDI/MIDI.html
// see https://tools.ietf.org/html/rfc6295
/*
    0                   1                   2                   3
    0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   | V |P|X|  CC   |M|     PT      |        Sequence number        |
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   |                           Timestamp                           |
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   |                             SSRC                              |
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+


   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   |                     MIDI command section ...                  |
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   |                       Journal section ...                     |
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+

*/
type RTPMIDIHeader struct {
	// version (V): 2 bits.
	Version uint8
	// padding (P): 1 bit.
	Padding bool
	// extension (X): 1 bit.
	Extension bool
	// CSRC count (CC): 4 bits.
	CSRCCount uint8
	// marker (M): 1 bit. For native RTP-MIDI streams, MUST be 1 if the
	// MIDI command section has a non-zero LEN field and 0 otherwise.
	Marker byte
	// payload type (PT): 7 bits. For RTP-MIDI: 0x61.
	PayloadType uint8
}

func (h *RTPMIDIHeader) Valid() error {
	if h.PayloadType != payloadType {
		return fmt.Errorf("payload type mismatch: expected %X, got %X", payloadType, h.PayloadType)
	}
	return nil
}

func (h *RTPMIDIHeader) HasMIDIData() bool {
	return h.Marker > 0
}

// MIDIMessage is one RTP-MIDI packet: its sequencing/identity fields
// plus the MIDI commands carried in its command section.
type MIDIMessage struct {
	SequenceNumber uint16
	SSRC           uint32
	Commands       MIDICommands
}

// MIDICommands is the list of MIDICommand carried inside a MIDIMessage.
type MIDICommands struct {
	Timestamp time.Time
	Commands  []MIDICommand
}

// MIDIPayload is a single MIDI command's raw bytes: status byte (or an
// inherited running-status byte, which is always restored before it
// reaches this type) followed by data bytes. For a netsync-carrying
// command, this is a netsync.Encode result without its header byte.
type MIDIPayload []byte

// MIDICommand is a single command: a delta-time relative to the
// previous command (or to the packet timestamp, for the first) plus
// its payload.
type MIDICommand struct {
	DeltaTime time.Duration
	Payload   MIDIPayload
}

type midiListHeader struct {
	bigHeader           bool // B
	hasJournal          bool // J
	preceedingDeltaTime bool // Z
	Len                 uint16
}

// Decode parses an RTP-MIDI packet out of buffer.
func Decode(buffer []byte) (msg MIDIMessage, err error) {
	if len(buffer) < minimumBufferLength {
		return msg, fmt.Errorf("buffer is too small: %d bytes", len(buffer))
	}

	header := RTPMIDIHeader{}
	header.Version = (buffer[0] & version2Bit) >> 6
	header.Padding = (buffer[0] & paddingBit) > 0
	header.Extension = (buffer[0] & extensionBit) > 0
	header.CSRCCount = buffer[0] & ccMask

	header.PayloadType = buffer[1] & ptMask
	header.Marker = (buffer[1] & markerBit) >> 7

	msg.SequenceNumber = binary.BigEndian.Uint16(buffer[2:4])
	msg.SSRC = binary.BigEndian.Uint32(buffer[8:12])

	if err = header.Valid(); err != nil {
		return msg, err
	}

	// MIDI List starts at byte 12.
	offset := 12
	if offset >= len(buffer) {
		msg.Commands = MIDICommands{Timestamp: time.Now()}
		return msg, nil
	}

	listHeader := midiListHeader{
		bigHeader:           buffer[offset]&bigHeaderBit > 0,
		hasJournal:          buffer[offset]&journalBit > 0,
		preceedingDeltaTime: buffer[offset]&zeroDeltaBit > 0,
	}

	listStart := offset + 1
	if listHeader.bigHeader {
		if offset+1 >= len(buffer) {
			return msg, fmt.Errorf("truncated big MIDI list header")
		}
		listHeader.Len = binary.BigEndian.Uint16(buffer[offset:offset+2]) & 0x0fff
		listStart = offset + 2
	} else {
		listHeader.Len = uint16(buffer[offset] & lenMask)
	}

	commands, cmdErr := parseMIDIList(buffer, listStart, &listHeader)
	if cmdErr != nil {
		err = fmt.Errorf("parsing midi list, returning parsed commands so far: %w", cmdErr)
	}
	msg.Commands = MIDICommands{
		Timestamp: time.Now(),
		Commands:  commands,
	}
	return msg, err
}

func parseMIDIList(buffer []byte, offset int, header *midiListHeader) ([]MIDICommand, error) {
	commands := make([]MIDICommand, 0)

	// Keep track of the last status byte to infer running status for
	// succeeding commands that omit their own.
	var lastStatusByte byte

	end := offset + int(header.Len)
	for offset < end {
		command := MIDICommand{}
		dataLength := 0
		deltaTime := uint32(0)

		if len(commands) > 0 || header.preceedingDeltaTime {
			for k := 0; k < 4 && offset < len(buffer); k++ {
				currentOctet := buffer[offset]
				deltaTime <<= 7
				deltaTime |= uint32(currentOctet) & deltaTimeMask
				offset++
				if currentOctet&deltaTimeHasNext == 0 {
					break
				}
			}
		}
		command.DeltaTime = time.Duration(deltaTime) * time.Second / rtpClockRate

		if offset >= len(buffer) {
			return commands, fmt.Errorf("truncated command at offset %d", offset)
		}

		statusByte := buffer[offset]
		hasOwnStatusByte := (statusByte & 0x80) == 0x80
		if hasOwnStatusByte {
			lastStatusByte = statusByte
			offset++
		} else {
			statusByte = lastStatusByte
		}

		// A netsync payload (and any other SysEx message) is
		// self-delimited by its 0xF7 trailer rather than by a fixed
		// data length; sniff for the trailer instead of consulting
		// the generic MIDI data-length table.
		if statusByte == 0xf0 {
			dataLength = 0
			for len(buffer) > offset+dataLength && buffer[offset+dataLength]&0x80 == 0x00 {
				dataLength++
			}
			if offset+dataLength >= len(buffer) || buffer[offset+dataLength] != 0xf7 {
				dataLength--
			}
			dataLength++
		} else {
			dataLength = midi.GetDataLength(statusByte)
		}

		command.Payload = MIDIPayload{statusByte}

		if len(buffer) < offset+dataLength || dataLength < 0 {
			return commands, fmt.Errorf("not enough buffer data to read additional %d command bytes", dataLength)
		}
		if dataLength > 0 {
			command.Payload = append(command.Payload, buffer[offset:offset+dataLength]...)
			offset += dataLength
		}

		if command.Payload[0] == 0xf0 && command.Payload[len(command.Payload)-1] != 0xf7 {
			continue
		}
		commands = append(commands, command)
	}
	return commands, nil
}

// Encode serializes m into an RTP-MIDI packet, computing the RTP
// timestamp as the elapsed time between start (the session's epoch) and
// m.Commands.Timestamp, in rtpClockRate ticks.
func Encode(m MIDIMessage, start time.Time) []byte {
	b := new(bytes.Buffer)

	b.WriteByte(firstByte)
	b.WriteByte(secondByte)
	binary.Write(b, binary.BigEndian, m.SequenceNumber)
	ts := clockTicks(m.Commands.Timestamp.Sub(start))
	binary.Write(b, binary.BigEndian, ts)
	binary.Write(b, binary.BigEndian, m.SSRC)

	m.Commands.encode(b)

	return b.Bytes()
}

func clockTicks(d time.Duration) uint32 {
	if d < 0 {
		d = 0
	}
	return uint32(d * rtpClockRate / time.Second)
}

func (m MIDIMessage) String() string {
	return fmt.Sprintf("RM SSRC=0x%x sn=%d", m.SSRC, m.SequenceNumber)
}

/*

0                   1                   2                   3
0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
|B|J|Z|P|LEN... |  MIDI list ...                                |
+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+

                  Figure 2 -- MIDI Command Section


+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
|  Delta Time 0     (1-4 octets long, or 0 octets if Z = 0)     |
+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
|  MIDI Command 0   (1 or more octets long)                     |
+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
|  Delta Time 1     (1-4 octets long)                           |
+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
|  MIDI Command 1   (1 or more octets long)                     |
+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
|                              ...                              |
+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
|  Delta Time N     (1-4 octets long)                           |
+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
|  MIDI Command N   (0 or more octets long)                     |
+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+

                Figure 3 -- MIDI List Structure
*/

const (
	emptyHeader  = byte(0x00)
	bigHeaderBit = 0x80 // Big Header: 2 octets
	journalBit   = 0x40 // Journal present
	zeroDeltaBit = 0x20 // DeltaTime present for first MIDI command
	lenMask      = 0x0f // Mask for the length information
)

func (mcs MIDICommands) encode(w io.Writer) {
	if len(mcs.Commands) == 0 {
		w.Write([]byte{emptyHeader})
		return
	}
	header := emptyHeader
	b := new(bytes.Buffer)

	for i, mc := range mcs.Commands {
		if i == 0 && mc.DeltaTime > 0 {
			header = header | zeroDeltaBit
			encodeDeltaTime(mc.DeltaTime, b)
		} else if i > 0 {
			encodeDeltaTime(mc.DeltaTime, b)
		}
		mc.Payload.encode(b)
	}

	if b.Len() > 4095 {
		// RTP-MIDI command sections larger than 4095 octets need the
		// journal section's continuation mechanism; no caller in this
		// module ever batches enough commands to hit it (netsync
		// messages top out at 13 bytes each).
		panic(fmt.Sprintf("rtp: command section too large to encode: %d bytes", b.Len()))
	} else if b.Len() > 15 {
		header = header | bigHeaderBit | (byte(b.Len()>>8) & lenMask)
		count := byte(b.Len())
		w.Write([]byte{header, count})
	} else {
		header = header | (byte(b.Len()) & lenMask)
		w.Write([]byte{header})
	}

	w.Write(b.Bytes())
}

func encodeDeltaTime(d time.Duration, w io.Writer) {
	ticks := clockTicks(d)
	var octets [4]byte
	n := 0
	octets[n] = byte(ticks & deltaTimeMask)
	ticks >>= 7
	n++
	for ticks > 0 {
		octets[n] = byte(ticks&deltaTimeMask) | deltaTimeHasNext
		ticks >>= 7
		n++
	}
	// octets were built least-significant-first; write most-significant-first.
	for i := n - 1; i >= 0; i-- {
		w.Write([]byte{octets[i]})
	}
}

func (p MIDIPayload) encode(w io.Writer) {
	if len(p) == 0 {
		return
	}
	w.Write(p)
}

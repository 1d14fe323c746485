package rtp_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aser-Osama/rtp-midi-netsync/event"
	"github.com/Aser-Osama/rtp-midi-netsync/netsync"
	"github.com/Aser-Osama/rtp-midi-netsync/rtp"
)

// An RTP-MIDI command list frames each command by its real MIDI status
// byte (RFC 6295), not by netsync's own header nibble — so the bytes
// placed in a MIDICommand.Payload are a netsync payload with its
// single-byte header stripped (package session reconstructs that
// header, which is fully determined by the body's length, before
// calling netsync.Decode; see session.go).
func TestEncodeDecodeRoundTripWithNetsyncBody(t *testing.T) {
	buf := make([]byte, netsync.MaxPayloadSize)
	n, err := netsync.Encode(event.MMCPlay(), buf)
	require.NoError(t, err)
	body := append([]byte{}, buf[1:n]...)

	start := time.Now()
	msg := rtp.MIDIMessage{
		SequenceNumber: 42,
		SSRC:           0xdeadbeef,
		Commands: rtp.MIDICommands{
			Timestamp: start,
			Commands: []rtp.MIDICommand{
				{DeltaTime: 0, Payload: rtp.MIDIPayload(body)},
			},
		},
	}

	encoded := rtp.Encode(msg, start)

	decoded, err := rtp.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, msg.SequenceNumber, decoded.SequenceNumber)
	assert.Equal(t, msg.SSRC, decoded.SSRC)
	require.Len(t, decoded.Commands.Commands, 1)
	assert.Equal(t, body, []byte(decoded.Commands.Commands[0].Payload))

	reframed := append([]byte{byte(0xA0 | (len(body)+1)&0x0F)}, decoded.Commands.Commands[0].Payload...)
	got, err := netsync.Decode(reframed)
	require.NoError(t, err)
	assert.Equal(t, event.MMCPlay(), got)
}

func TestDecodeBufferTooSmall(t *testing.T) {
	_, err := rtp.Decode([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestDecodeWrongPayloadType(t *testing.T) {
	buf := make([]byte, 12)
	buf[0] = 0x80
	buf[1] = 0x00 // wrong payload type
	_, err := rtp.Decode(buf)
	assert.Error(t, err)
}

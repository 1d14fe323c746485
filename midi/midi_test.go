package midi_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aser-Osama/rtp-midi-netsync/midi"
)

func TestGetDataLength(t *testing.T) {
	assert.Equal(t, 2, midi.GetDataLength(0x90))
	assert.Equal(t, 2, midi.GetDataLength(0x93)) // channel nibble ignored
	assert.Equal(t, 1, midi.GetDataLength(0xF1))
	assert.Equal(t, 2, midi.GetDataLength(0xAA)) // polyphonic aftertouch on channel 10
}

func TestDescribeNetsyncBody(t *testing.T) {
	tests := []struct {
		name string
		body []byte
		want string
	}{
		{"quarter frame", []byte{0xF1, 0x37}, "MTC quarter frame"},
		{"full frame", []byte{0xF0, 0x7F, 0x7F, 0x01, 0x01, 1, 2, 3, 4, 0xF7}, "MTC full frame"},
		{"mmc stop", []byte{0xF0, 0x7F, 0x7F, 0x06, 0x01, 0xF7}, "MMC stop"},
		{"mmc play", []byte{0xF0, 0x7F, 0x7F, 0x06, 0x02, 0xF7}, "MMC play"},
		{"mmc locate", []byte{0xF0, 0x7F, 0x7F, 0x06, 0x44, 0x06, 0x01, 1, 2, 3, 4, 0xF7}, "MMC locate"},
		{"empty", []byte{}, "(empty)"},
		{"note on", []byte{0x90, 60, 100}, "noteOn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, midi.DescribeNetsyncBody(tt.body))
		})
	}
}

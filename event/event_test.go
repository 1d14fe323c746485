package event_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/Aser-Osama/rtp-midi-netsync/event"
)

func TestConstructorsSetKind(t *testing.T) {
	cases := []struct {
		name string
		ev   event.Event
		want event.Kind
	}{
		{"quarter", event.MTCQuarter(1, 2), event.MtcQuarter},
		{"full", event.MTCFull(1, 2, 3, 4), event.MtcFull},
		{"stop", event.MMCStop(), event.MmcStop},
		{"play", event.MMCPlay(), event.MmcPlay},
		{"locate", event.MMCLocate(1, 2, 3, 4), event.MmcLocate},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, c.ev.Kind)
		})
	}
}

func TestMTCQuarterDoesNotClamp(t *testing.T) {
	ev := event.MTCQuarter(0xFF, 0xFF)
	assert.Equal(t, uint8(0xFF), ev.Quarter.MsgType)
	assert.Equal(t, uint8(0xFF), ev.Quarter.Value)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "MtcQuarter", event.MtcQuarter.String())
	assert.Equal(t, "MtcFull", event.MtcFull.String())
	assert.Equal(t, "MmcStop", event.MmcStop.String())
	assert.Equal(t, "MmcPlay", event.MmcPlay.String())
	assert.Equal(t, "MmcLocate", event.MmcLocate.String())
	assert.Equal(t, "Unknown", event.Kind(200).String())
}

func TestIsWellFormed(t *testing.T) {
	assert.True(t, event.IsWellFormed(event.MMCStop()))
	assert.True(t, event.IsWellFormed(event.Event{Kind: event.MmcLocate}))
	assert.False(t, event.IsWellFormed(event.Event{Kind: event.Kind(200)}))
}

func TestIsWellFormed_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		kind := event.Kind(rapid.IntRange(0, 255).Draw(t, "kind"))
		ev := event.Event{Kind: kind}
		assert.Equal(t, kind <= event.MmcLocate, event.IsWellFormed(ev))
	})
}

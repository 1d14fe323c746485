package session_test

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aser-Osama/rtp-midi-netsync/event"
	"github.com/Aser-Osama/rtp-midi-netsync/session"
)

func TestMasterSlaveRoundTrip(t *testing.T) {
	master, err := session.Start("master", 0)
	require.NoError(t, err)
	defer master.End()

	slave, err := session.Start("slave", 0)
	require.NoError(t, err)
	defer slave.End()

	slaveAddr := slave.LocalAddr()
	master.AddPeer(slaveAddr)

	var mu sync.Mutex
	var received []event.Event
	done := make(chan struct{}, 1)
	slave.Handle(func(ev event.Event, from net.Addr, s *session.Session) {
		mu.Lock()
		received = append(received, ev)
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
	})

	require.NoError(t, master.SendEvent(event.MMCPlay()))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for decoded event")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, event.MMCPlay(), received[0])
}

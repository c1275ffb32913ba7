// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"net"
	"testing"
	"time"

	"prosody/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedCursor struct {
	at float64
	ok bool
}

func (c fixedCursor) Cursor() (float64, bool) { return c.at, c.ok }

func TestNewUDPPublisherValidation(t *testing.T) {
	_, err := NewUDPPublisher(time.Millisecond, nil, fixedCursor{})
	assert.Error(t, err)

	_, err = NewUDPPublisher(time.Millisecond, &utils.MockSender{}, nil)
	assert.Error(t, err)

	p, err := NewUDPPublisher(0, &utils.MockSender{}, fixedCursor{})
	require.NoError(t, err)
	assert.Equal(t, 33*time.Millisecond, p.interval)
}

func TestPacketLayout(t *testing.T) {
	sender := &utils.MockSender{}
	p, err := NewUDPPublisher(time.Second, sender, fixedCursor{at: 1.25, ok: true})
	require.NoError(t, err)

	p.buildAndSendPacket()
	p.buildAndSendPacket()

	require.Len(t, sender.Sent, 2)
	for i, raw := range sender.Sent {
		require.Len(t, raw, PacketSize)
		pkt, err := ParsePacket(raw)
		require.NoError(t, err)
		assert.Equal(t, uint32(i+1), pkt.Seq)
		assert.True(t, pkt.Visible)
		assert.Equal(t, 1.25, pkt.Cursor)
		assert.NotZero(t, pkt.Timestamp)
	}
	assert.Equal(t, uint8(FlagVisible), sender.Sent[0][12])
}

func TestHiddenCursorPacket(t *testing.T) {
	sender := &utils.MockSender{}
	p, err := NewUDPPublisher(time.Second, sender, fixedCursor{at: 9, ok: false})
	require.NoError(t, err)

	p.buildAndSendPacket()

	pkt, err := ParsePacket(sender.Last())
	require.NoError(t, err)
	assert.False(t, pkt.Visible)
	assert.Zero(t, pkt.Cursor)
}

func TestSendErrorDoesNotStopSequence(t *testing.T) {
	sender := &utils.MockSender{Err: errors.New("network unreachable")}
	p, err := NewUDPPublisher(time.Second, sender, fixedCursor{})
	require.NoError(t, err)

	p.buildAndSendPacket()
	sender.Err = nil
	p.buildAndSendPacket()

	pkt, err := ParsePacket(sender.Last())
	require.NoError(t, err)
	assert.Equal(t, uint32(2), pkt.Seq)
}

func TestParsePacketRejectsShortInput(t *testing.T) {
	_, err := ParsePacket(make([]byte, PacketSize-1))
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	sender := &utils.MockSender{}
	p, err := NewUDPPublisher(time.Millisecond, sender, fixedCursor{at: 0.5, ok: true})
	require.NoError(t, err)

	p.Start()
	p.Start() // no-op
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, p.Stop())
	require.NoError(t, p.Stop())

	assert.NotEmpty(t, sender.Sent)
	sent := len(sender.Sent)
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, sent, len(sender.Sent), "packets sent after Stop")

	p.Start()
	require.NoError(t, p.Close())
}

func TestUDPSenderLoopback(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer listener.Close()

	sender, err := NewUDPSender(listener.LocalAddr().String())
	require.NoError(t, err)
	assert.Equal(t, listener.LocalAddr().String(), sender.Target())

	p, err := NewUDPPublisher(time.Second, sender, fixedCursor{at: 2, ok: true})
	require.NoError(t, err)
	p.buildAndSendPacket()

	buf := make([]byte, 64)
	require.NoError(t, listener.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := listener.ReadFromUDP(buf)
	require.NoError(t, err)

	pkt, err := ParsePacket(buf[:n])
	require.NoError(t, err)
	assert.Equal(t, 2.0, pkt.Cursor)

	assert.Equal(t, uint64(1), sender.Packets())

	require.NoError(t, sender.Close())
	require.NoError(t, sender.Close())
	assert.ErrorIs(t, sender.Send([]byte{1}), ErrSenderClosed)
}

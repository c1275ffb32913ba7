// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	applog "prosody/internal/log"
)

// CursorSource supplies the playback cursor.
type CursorSource interface {
	Cursor() (float64, bool)
}

// Sender transmits one packet.
type Sender interface {
	Send(data []byte) error
}

// UDPPublisher periodically samples the playback cursor, packs it into a
// defined binary format, and sends it over UDP using a Sender.
// It runs in a separate goroutine managed by Start and Stop methods.
type UDPPublisher struct {
	sender   Sender        // The underlying UDP sender instance.
	source   CursorSource  // Where the cursor is read from.
	interval time.Duration // The interval at which packets are sent.

	ticker   *time.Ticker   // Ticker that triggers packet sending.
	doneChan chan struct{}  // Channel used to signal the publisher goroutine to stop.
	stopOnce sync.Once      // Ensures the stop logic runs only once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the publisher goroutine to finish during Stop.
	mu       sync.Mutex     // Protects access to ticker and doneChan during Start/Stop.

	sequenceNum uint32        // Monotonically increasing sequence number for packets.
	packetBuf   *bytes.Buffer // Reusable buffer for constructing the binary packet.
}

// NewUDPPublisher creates and initializes a new UDPPublisher.
// If the provided interval is invalid (<= 0), it defaults to 33ms (~30Hz).
func NewUDPPublisher(interval time.Duration, sender Sender, source CursorSource) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if source == nil {
		return nil, fmt.Errorf("UDPPublisher: cursor source cannot be nil")
	}

	if interval <= 0 {
		interval = 33 * time.Millisecond
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}
	applog.Infof("UDPPublisher: Initializing (Interval: %s)", interval)

	return &UDPPublisher{
		sender:    sender,
		source:    source,
		interval:  interval,
		packetBuf: bytes.NewBuffer(make([]byte, 0, PacketSize)),
	}, nil
}

// Start begins the periodic publishing process.
// It is safe to call Start multiple times; subsequent calls are no-ops if already started.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Capture local variables for the goroutine to avoid data races on p.ticker/p.doneChan
	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Debugf("UDPPublisher: Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it to exit.
// It is safe to call Stop multiple times; subsequent calls are no-ops.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Debugf("UDPPublisher: Publisher goroutine finished.")
	return nil
}

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Flags             | uint8          | 1            | Bit 0: cursor visible   |
| Cursor            | float64        | 8            | Seconds, 0 when hidden  |
+-----------------------------------------------------------------------------+
*/

// PacketSize is the length of one cursor packet.
const PacketSize = 4 + 8 + 1 + 8

// FlagVisible is set when a source is playing.
const FlagVisible uint8 = 1

// Packet is a decoded cursor packet.
type Packet struct {
	Seq       uint32
	Timestamp int64
	Visible   bool
	Cursor    float64
}

// AppendPacket encodes pkt onto dst.
func AppendPacket(dst []byte, pkt Packet) []byte {
	var flags uint8
	if pkt.Visible {
		flags |= FlagVisible
	}
	dst = binary.BigEndian.AppendUint32(dst, pkt.Seq)
	dst = binary.BigEndian.AppendUint64(dst, uint64(pkt.Timestamp))
	dst = append(dst, flags)
	return binary.BigEndian.AppendUint64(dst, math.Float64bits(pkt.Cursor))
}

// ParsePacket decodes a cursor packet.
func ParsePacket(b []byte) (Packet, error) {
	if len(b) != PacketSize {
		return Packet{}, fmt.Errorf("cursor packet: got %d bytes, want %d", len(b), PacketSize)
	}
	return Packet{
		Seq:       binary.BigEndian.Uint32(b[0:4]),
		Timestamp: int64(binary.BigEndian.Uint64(b[4:12])),
		Visible:   b[12]&FlagVisible != 0,
		Cursor:    math.Float64frombits(binary.BigEndian.Uint64(b[13:21])),
	}, nil
}

// buildAndSendPacket is executed on each ticker interval.
func (p *UDPPublisher) buildAndSendPacket() {
	cursor, ok := p.source.Cursor()
	if !ok {
		cursor = 0
	}

	p.sequenceNum++
	pkt := Packet{
		Seq:       p.sequenceNum,
		Timestamp: time.Now().UnixNano(),
		Visible:   ok,
		Cursor:    cursor,
	}

	p.packetBuf.Reset()
	p.packetBuf.Write(AppendPacket(p.packetBuf.AvailableBuffer(), pkt))
	packetBytes := p.packetBuf.Bytes()

	// Error logging is handled within sender.Send.
	if err := p.sender.Send(packetBytes); err == nil {
		applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, len(packetBytes))
	}
}

// Close implements the io.Closer interface. It gracefully stops the publisher goroutine.
func (p *UDPPublisher) Close() error {
	return p.Stop()
}

// Ensure UDPPublisher satisfies the io.Closer interface at compile time.
var _ interface{ Close() error } = (*UDPPublisher)(nil)

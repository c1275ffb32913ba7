// SPDX-License-Identifier: MIT
package capture

import "time"

// SampleBlock is one processing quantum of mono float32 samples. A block is
// never modified after the processing callback hands it over.
type SampleBlock []float32

// Buffer accumulates the blocks of one recording in arrival order. It is
// owned by the accumulator goroutine while capturing and handed to Stop's
// caller afterwards; it is not safe for concurrent use.
type Buffer struct {
	blocks     []SampleBlock
	sampleRate uint32
	samples    int
}

// NewBuffer returns an empty buffer for the given sample rate.
func NewBuffer(sampleRate uint32) *Buffer {
	return &Buffer{sampleRate: sampleRate}
}

// Append adds a block to the end of the buffer. Empty blocks are ignored.
func (b *Buffer) Append(block SampleBlock) {
	if len(block) == 0 {
		return
	}
	b.blocks = append(b.blocks, block)
	b.samples += len(block)
}

// Blocks returns the accumulated blocks in order.
func (b *Buffer) Blocks() []SampleBlock { return b.blocks }

// Len returns the total number of samples across all blocks.
func (b *Buffer) Len() int { return b.samples }

// SampleRate returns the rate the blocks were produced at.
func (b *Buffer) SampleRate() uint32 { return b.sampleRate }

// Duration returns the recorded time span.
func (b *Buffer) Duration() time.Duration {
	if b.sampleRate == 0 {
		return 0
	}
	return time.Duration(b.samples) * time.Second / time.Duration(b.sampleRate)
}

// SPDX-License-Identifier: MIT
package capture

import "sync/atomic"

// processor is the per-quantum unit connected to the device stream. Process
// runs on the audio thread: it never blocks and shares nothing mutable with
// the accumulator. Each quantum is copied into a fresh block whose ownership
// moves across the channel.
type processor struct {
	blocks   chan<- SampleBlock
	done     <-chan struct{}
	quanta   atomic.Uint64
	overruns atomic.Uint64
}

func newProcessor(blocks chan<- SampleBlock, done <-chan struct{}) *processor {
	return &processor{blocks: blocks, done: done}
}

// Process receives non-interleaved input, one slice per channel. Quanta with
// no channels or no frames are skipped.
func (p *processor) Process(in [][]float32) {
	if len(in) == 0 || len(in[0]) == 0 {
		return
	}

	select {
	case <-p.done:
		return
	default:
	}

	block := make(SampleBlock, len(in[0]))
	copy(block, in[0])
	p.quanta.Add(1)

	select {
	case p.blocks <- block:
	default:
		// Accumulator fell a full queue behind.
		p.overruns.Add(1)
	}
}

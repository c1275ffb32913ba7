// SPDX-License-Identifier: MIT
package capture

import (
	"math"
	"sync/atomic"
)

// Peak returns the largest absolute sample value in block.
func Peak(block []float32) float32 {
	var peak float32
	for _, s := range block {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}

// Meter tracks the input level of the most recent block. Observe is a
// Listener; Level and Active may be read from any goroutine.
type Meter struct {
	level     atomic.Uint32 // float32 bits
	threshold atomic.Uint32 // float32 bits
}

// NewMeter returns a meter whose signal threshold is ~0.1% of full scale.
func NewMeter() *Meter {
	m := &Meter{}
	m.SetThreshold(0.001)
	return m
}

// Observe updates the level from block events and resets it when capture stops.
func (m *Meter) Observe(e Event) {
	switch e.Kind {
	case EventBlock:
		m.level.Store(math.Float32bits(e.Peak))
	case EventState:
		if e.To == StateIdle {
			m.level.Store(0)
		}
	}
}

// Level returns the last observed peak in the range 0.0-1.0.
func (m *Meter) Level() float64 {
	l := float64(math.Float32frombits(m.level.Load()))
	if l > 1.0 {
		return 1.0
	}
	return l
}

// SetThreshold adjusts the signal threshold.
// The value is in the range of 0.0-1.0 where 0=always active, 1=never active.
func (m *Meter) SetThreshold(threshold float64) {
	if threshold < 0.0 {
		threshold = 0.0
	}
	if threshold > 1.0 {
		threshold = 1.0
	}
	m.threshold.Store(math.Float32bits(float32(threshold)))
}

// Threshold returns the current signal threshold.
func (m *Meter) Threshold() float64 {
	return float64(math.Float32frombits(m.threshold.Load()))
}

// Active reports whether the last block rose above the threshold.
func (m *Meter) Active() bool {
	return m.Level() > m.Threshold()
}

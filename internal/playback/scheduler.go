// SPDX-License-Identifier: MIT
package playback

import (
	"context"
	"time"
)

// Scheduler drives redraws: once per frame interval while media is
// playing, otherwise it only polls at the idle interval. RequestRedraw
// draws on the next loop iteration regardless of playback.
type Scheduler struct {
	playing func() bool
	draw    func()
	frame   time.Duration
	idle    time.Duration

	// after returns a channel that fires once d has elapsed.
	after   func(d time.Duration) <-chan time.Time
	redraws chan struct{}
}

// NewScheduler creates a scheduler. playing is polled on every tick.
func NewScheduler(playing func() bool, draw func(), frame, idle time.Duration) *Scheduler {
	return &Scheduler{
		playing: playing,
		draw:    draw,
		frame:   frame,
		idle:    idle,
		after:   time.After,
		redraws: make(chan struct{}, 1),
	}
}

// Tick runs one scheduling step and returns the delay until the next one.
// It draws only while something is playing.
func (s *Scheduler) Tick() time.Duration {
	if s.playing() {
		s.draw()
		return s.frame
	}
	return s.idle
}

// RequestRedraw asks the loop to draw once. Requests coalesce.
func (s *Scheduler) RequestRedraw() {
	select {
	case s.redraws <- struct{}{}:
	default:
	}
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	tick := s.after(s.Tick())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.redraws:
			s.draw()
		case <-tick:
			tick = s.after(s.Tick())
		}
	}
}

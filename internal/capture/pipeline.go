// SPDX-License-Identifier: MIT
/*
Package capture implements the recording side of a session:
- a processing context (Backend) that is prepared once and suspended between recordings
- a per-quantum processor running on the audio thread
- an accumulator that owns the Buffer and emits events
- a WAV hand-off on Stop

Thread Safety:
- The audio thread and the accumulator share only a channel of blocks
- Start/Stop are serialized by a mutex; State is atomic
*/
package capture

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	applog "prosody/internal/log"
	"prosody/internal/wav"

	"github.com/google/uuid"
)

var (
	// ErrCaptureDenied is returned when the input device cannot be acquired.
	ErrCaptureDenied = errors.New("capture denied")
	// ErrNotCapturing is returned by Stop when no recording is active.
	ErrNotCapturing = errors.New("not capturing")
)

// Stream is an open device stream.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// Backend is the audio processing context.
type Backend interface {
	// Prepare creates the context and installs the processing module. It
	// returns once the context can accept streams.
	Prepare(ctx context.Context) error
	// Resume reactivates a suspended context.
	Resume(ctx context.Context) error
	// OpenInput acquires a single-channel input stream delivering quanta to
	// process and reports the stream's sample rate.
	OpenInput(process func(in [][]float32)) (Stream, float64, error)
	// Suspend pauses the context without destroying it.
	Suspend() error
}

// Recording is the result of one Start/Stop cycle.
type Recording struct {
	ID         uuid.UUID
	Audio      wav.EncodedAudio
	Samples    int
	SampleRate uint32
	Duration   time.Duration
	Overruns   uint64
}

type activeCapture struct {
	id     uuid.UUID
	stream Stream
	proc   *processor
	blocks chan SampleBlock
	done   chan struct{}
	result chan *Buffer
}

// Pipeline moves audio from a device stream into a Buffer and encodes it on Stop.
type Pipeline struct {
	backend    Backend
	queueDepth int

	mu       sync.Mutex
	prepared bool
	active   *activeCapture
	state    atomic.Int32

	events dispatcher
}

// NewPipeline creates an idle pipeline. queueDepth bounds the number of
// blocks in flight between the audio thread and the accumulator. Capture is
// lossless only while the accumulator keeps up: a quantum arriving at a full
// queue is dropped, and the drop count is reported as Recording.Overruns.
func NewPipeline(backend Backend, queueDepth int) *Pipeline {
	if queueDepth <= 0 {
		queueDepth = 1
	}
	return &Pipeline{backend: backend, queueDepth: queueDepth}
}

// State returns the current pipeline state.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Subscribe registers a listener for block and state events.
func (p *Pipeline) Subscribe(l Listener) (unsubscribe func()) {
	return p.events.Subscribe(l)
}

// Start begins a recording with an empty buffer. It is a no-op while capturing.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.State() == StateCapturing {
		return nil
	}

	if !p.prepared {
		if err := p.backend.Prepare(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrCaptureDenied, err)
		}
		p.prepared = true
	} else if err := p.backend.Resume(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrCaptureDenied, err)
	}

	blocks := make(chan SampleBlock, p.queueDepth)
	done := make(chan struct{})
	proc := newProcessor(blocks, done)

	stream, rate, err := p.backend.OpenInput(proc.Process)
	if err != nil {
		p.suspend()
		return fmt.Errorf("%w: %w", ErrCaptureDenied, err)
	}

	ac := &activeCapture{
		id:     uuid.New(),
		stream: stream,
		proc:   proc,
		blocks: blocks,
		done:   done,
		result: make(chan *Buffer, 1),
	}
	go p.accumulate(ac, NewBuffer(sampleRate(rate)))

	if err := stream.Start(); err != nil {
		close(done)
		<-ac.result
		if cerr := stream.Close(); cerr != nil {
			applog.Warnf("Capture: Error closing stream after failed start: %v", cerr)
		}
		p.suspend()
		return fmt.Errorf("%w: %w", ErrCaptureDenied, err)
	}

	p.active = ac
	p.transition(StateIdle, StateCapturing)
	applog.Infof("Capture: Recording %s started (%.0f Hz)", ac.id, rate)
	return nil
}

// Stop ends the recording, releases the device and returns the encoded
// audio. Every release step runs even if an earlier one fails; the
// failures are joined into the returned error alongside a valid Recording.
func (p *Pipeline) Stop() (*Recording, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ac := p.active
	if ac == nil {
		return nil, ErrNotCapturing
	}

	var errs []error
	if err := ac.stream.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop stream: %w", err))
	}
	close(ac.done)
	buf := <-ac.result
	if err := ac.stream.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close stream: %w", err))
	}
	if err := p.backend.Suspend(); err != nil {
		errs = append(errs, fmt.Errorf("suspend context: %w", err))
	}

	p.active = nil
	p.transition(StateCapturing, StateIdle)

	rec := &Recording{
		ID:         ac.id,
		Audio:      wav.Encode(buf.Blocks(), buf.SampleRate()),
		Samples:    buf.Len(),
		SampleRate: buf.SampleRate(),
		Duration:   buf.Duration(),
		Overruns:   ac.proc.overruns.Load(),
	}
	if rec.Overruns > 0 {
		applog.Warnf("Capture: Recording %s dropped %d quanta", rec.ID, rec.Overruns)
	}
	applog.Infof("Capture: Recording %s stopped (%d samples, %s)", rec.ID, rec.Samples, rec.Duration)

	return rec, errors.Join(errs...)
}

// accumulate owns buf until the capture is torn down, then hands it back
// through ac.result.
func (p *Pipeline) accumulate(ac *activeCapture, buf *Buffer) {
	defer func() { ac.result <- buf }()

	add := func(b SampleBlock) {
		buf.Append(b)
		p.events.emit(Event{Kind: EventBlock, Samples: len(b), Total: buf.Len(), Peak: Peak(b)})
	}

	for {
		select {
		case b := <-ac.blocks:
			add(b)
		case <-ac.done:
			for {
				select {
				case b := <-ac.blocks:
					add(b)
				default:
					return
				}
			}
		}
	}
}

func (p *Pipeline) transition(from, to State) {
	p.state.Store(int32(to))
	p.events.emit(Event{Kind: EventState, From: from, To: to})
}

func (p *Pipeline) suspend() {
	if err := p.backend.Suspend(); err != nil {
		applog.Warnf("Capture: Error suspending context: %v", err)
	}
}

func sampleRate(rate float64) uint32 {
	if rate <= 0 || math.IsNaN(rate) {
		return 0
	}
	return uint32(math.Round(rate))
}

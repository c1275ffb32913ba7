// SPDX-License-Identifier: MIT
package capture

import (
	"context"
	"fmt"
	"sync"

	"prosody/internal/config"
	applog "prosody/internal/log"

	"github.com/gordonklaus/portaudio"
)

// PortAudio is the Backend for real devices. It also opens output streams
// for playback so capture and playback share one initialized subsystem.
type PortAudio struct {
	cfg config.AudioConfig

	mu          sync.Mutex
	initialized bool
}

// Compile-time checks for interface implementations.
var _ Backend = (*PortAudio)(nil)

// NewPortAudio creates a backend for the configured devices. PortAudio is
// initialized lazily by Prepare.
func NewPortAudio(cfg config.AudioConfig) *PortAudio {
	return &PortAudio{cfg: cfg}
}

// Prepare initializes PortAudio once.
func (pa *PortAudio) Prepare(ctx context.Context) error {
	pa.mu.Lock()
	defer pa.mu.Unlock()

	if pa.initialized {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := Initialize(); err != nil {
		return err
	}
	pa.initialized = true
	return nil
}

// Resume is a no-op: streams are opened per recording and the subsystem
// stays initialized while suspended.
func (pa *PortAudio) Resume(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return pa.Prepare(ctx)
}

// Suspend keeps the subsystem alive for the next recording.
func (pa *PortAudio) Suspend() error {
	return nil
}

// OpenInput opens a mono, non-interleaved float32 input stream.
func (pa *PortAudio) OpenInput(process func(in [][]float32)) (Stream, float64, error) {
	device, err := InputDevice(pa.cfg.InputDevice)
	if err != nil {
		return nil, 0, err
	}

	latency := device.DefaultHighInputLatency
	if pa.cfg.LowLatency {
		latency = device.DefaultLowInputLatency
	}

	sampleRate := pa.cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = device.DefaultSampleRate
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   device,
			Latency:  latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: pa.cfg.FramesPerBuffer,
		SampleRate:      sampleRate,
	}

	stream, err := portaudio.OpenStream(params, process)
	if err != nil {
		return nil, 0, fmt.Errorf("open input %q: %w", device.Name, err)
	}
	applog.Debugf("Capture: Opened input %q (latency %s)", device.Name, latency)
	return stream, sampleRate, nil
}

// OpenOutput opens a mono float32 output stream at sampleRate.
func (pa *PortAudio) OpenOutput(sampleRate float64, fill func(out []float32)) (Stream, error) {
	if err := pa.Prepare(context.Background()); err != nil {
		return nil, err
	}

	device, err := OutputDevice(pa.cfg.OutputDevice)
	if err != nil {
		return nil, err
	}

	latency := device.DefaultHighOutputLatency
	if pa.cfg.LowLatency {
		latency = device.DefaultLowOutputLatency
	}

	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   device,
			Latency:  latency,
		},
		FramesPerBuffer: pa.cfg.FramesPerBuffer,
		SampleRate:      sampleRate,
	}

	stream, err := portaudio.OpenStream(params, fill)
	if err != nil {
		return nil, fmt.Errorf("open output %q: %w", device.Name, err)
	}
	return stream, nil
}

// Close terminates PortAudio if Prepare initialized it.
func (pa *PortAudio) Close() error {
	pa.mu.Lock()
	defer pa.mu.Unlock()

	if !pa.initialized {
		return nil
	}
	pa.initialized = false
	return Terminate()
}

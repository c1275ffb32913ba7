// SPDX-License-Identifier: MIT
package wav

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrInvalidFile is returned when the input is not a readable PCM WAV file.
var ErrInvalidFile = errors.New("wav: invalid file")

// PCM is a decoded mono track normalized to [-1, 1].
type PCM struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the playing time of the track.
func (p *PCM) Duration() time.Duration {
	if p.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(p.Samples)) / float64(p.SampleRate) * float64(time.Second))
}

// Decode reads a WAV file and downmixes it to a mono float track.
func Decode(r io.ReadSeeker) (*PCM, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrInvalidFile
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav: failed to read PCM data: %w", err)
	}
	return fromIntBuffer(buf, int(d.BitDepth))
}

// DecodeBytes is Decode over an in-memory file such as EncodedAudio.Data.
func DecodeBytes(data []byte) (*PCM, error) {
	return Decode(bytes.NewReader(data))
}

func fromIntBuffer(buf *audio.IntBuffer, bitDepth int) (*PCM, error) {
	if buf == nil || buf.Format == nil {
		return nil, ErrInvalidFile
	}
	channels := buf.Format.NumChannels
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidFile, channels)
	}
	if bitDepth <= 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, fmt.Errorf("%w: bit depth %d", ErrInvalidFile, bitDepth)
	}

	scale := float64(int64(1) << (bitDepth - 1))
	frames := len(buf.Data) / channels
	out := make([]float32, frames)
	for i := range frames {
		var sum float64
		for c := range channels {
			sum += float64(buf.Data[i*channels+c])
		}
		out[i] = float32(sum / float64(channels) / scale)
	}

	return &PCM{Samples: out, SampleRate: buf.Format.SampleRate}, nil
}

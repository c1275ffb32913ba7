// SPDX-License-Identifier: MIT
//
// Package wav serializes captured float32 sample blocks into a mono 16-bit
// PCM RIFF/WAVE file and decodes such files back into PCM buffers for
// playback.
package wav

import (
	"encoding/binary"
)

// MIMEType is the content type tag carried by every EncodedAudio.
const MIMEType = "audio/wav"

// HeaderSize is the size in bytes of the canonical PCM header written by Encode.
const HeaderSize = 44

const (
	formatPCM     = 1
	numChannels   = 1
	bitsPerSample = 16
	bytesPerFrame = numChannels * bitsPerSample / 8
	fmtChunkSize  = 16
)

// EncodedAudio is a complete, playable audio resource.
type EncodedAudio struct {
	Data     []byte
	MIMEType string
}

// Len returns the size of the encoded file in bytes.
func (e EncodedAudio) Len() int { return len(e.Data) }

// Encode writes blocks, in order, as a single-channel 16-bit PCM WAV file at
// the given sample rate. It never fails: zero blocks produce a 44-byte header
// with an empty data chunk.
func Encode[B ~[]float32](blocks []B, sampleRate uint32) EncodedAudio {
	total := 0
	for _, b := range blocks {
		total += len(b)
	}
	dataBytes := uint32(total * bytesPerFrame)

	buf := make([]byte, HeaderSize+int(dataBytes))
	le := binary.LittleEndian

	copy(buf[0:4], "RIFF")
	le.PutUint32(buf[4:8], 36+dataBytes)
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	le.PutUint32(buf[16:20], fmtChunkSize)
	le.PutUint16(buf[20:22], formatPCM)
	le.PutUint16(buf[22:24], numChannels)
	le.PutUint32(buf[24:28], sampleRate)
	le.PutUint32(buf[28:32], sampleRate*bytesPerFrame)
	le.PutUint16(buf[32:34], bytesPerFrame)
	le.PutUint16(buf[34:36], bitsPerSample)
	copy(buf[36:40], "data")
	le.PutUint32(buf[40:44], dataBytes)

	offset := HeaderSize
	for _, b := range blocks {
		for _, s := range b {
			le.PutUint16(buf[offset:], uint16(Quantize(s)))
			offset += bytesPerFrame
		}
	}

	return EncodedAudio{Data: buf, MIMEType: MIMEType}
}

// Quantize clamps s to [-1, 1] and scales it to a signed 16-bit sample.
// Negative values scale by 32768 and non-negative values by 32767 so the
// full int16 range is reachable without overflow. NaN encodes as silence.
func Quantize(s float32) int16 {
	if s != s {
		return 0
	}
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	if s < 0 {
		return int16(float64(s) * 0x8000)
	}
	return int16(float64(s) * 0x7FFF)
}

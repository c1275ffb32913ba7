// SPDX-License-Identifier: MIT
package utils

import "math"

// MockSender records the payloads it is asked to send.
type MockSender struct {
	Sent [][]byte
	Err  error
}

// Send stores a copy of data for later inspection instead of transmitting.
func (m *MockSender) Send(data []byte) error {
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, append([]byte(nil), data...))
	return nil
}

// Last returns the most recent payload, or nil.
func (m *MockSender) Last() []byte {
	if len(m.Sent) == 0 {
		return nil
	}
	return m.Sent[len(m.Sent)-1]
}

func GenerateComplexWave(size int, sampleRate float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2 // 440Hz fundamental + harmonics
		buffer[i] = float32(signal * 0.9)
	}
	return buffer
}

func GenerateSineWave(size int, sampleRate, frequency float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(math.Sin(2*math.Pi*frequency*t) * 0.9)
	}
	return buffer
}

// Ramp returns n evenly spaced values from start to end inclusive.
func Ramp(n int, start, end float64) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (end - start) / float64(n-1)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

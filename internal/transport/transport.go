// SPDX-License-Identifier: MIT
package transport

// Transport defines a generic interface for sending frames or events.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// Frame is one redraw pushed to viewers. Charts holds PNG images keyed by
// chart name; they are base64 encoded in JSON.
type Frame struct {
	Seq      uint64            `json:"seq"`
	Sample   string            `json:"sample"`
	Cursor   *float64          `json:"cursor"`
	Vowel    string            `json:"vowel,omitempty"`
	Controls Controls          `json:"controls"`
	Error    string            `json:"error,omitempty"`
	Charts   map[string][]byte `json:"charts"`
}

// Controls mirrors the operator controls in a frame.
type Controls struct {
	TimeOffset      float64 `json:"time_offset"`
	PitchMultiplier float64 `json:"pitch_multiplier"`
	IntensityOffset float64 `json:"intensity_offset"`
}

// Message is sent by a viewer.
type Message struct {
	Type  string `json:"type"`
	Width int    `json:"width,omitempty"`
}

// MessageResize reports the viewer's layout width.
const MessageResize = "resize"

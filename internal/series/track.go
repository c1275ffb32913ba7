// SPDX-License-Identifier: MIT
package series

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrLengthMismatch is returned when the parallel arrays of a track differ in length.
var ErrLengthMismatch = errors.New("parallel arrays differ in length")

// Track is the analysis of one recording: one entry per timestamp in every
// parallel array. Formant vectors may be nil or hold any number of entries.
type Track struct {
	Time      []float64   `json:"time"`
	Pitch     []Value     `json:"pitch"`
	Formants  [][]float64 `json:"formants"`
	Intensity []Value     `json:"intensity"`
	Vowels    []*string   `json:"vowels,omitempty"`
}

// Len returns the number of timestamps.
func (t *Track) Len() int { return len(t.Time) }

// Validate checks that the parallel arrays line up. Vowels are optional.
func (t *Track) Validate() error {
	n := len(t.Time)
	check := func(name string, l int) error {
		if l != n {
			return fmt.Errorf("%w: %s has %d entries, time has %d", ErrLengthMismatch, name, l, n)
		}
		return nil
	}
	if err := check("pitch", len(t.Pitch)); err != nil {
		return err
	}
	if err := check("formants", len(t.Formants)); err != nil {
		return err
	}
	if err := check("intensity", len(t.Intensity)); err != nil {
		return err
	}
	if t.Vowels != nil {
		if err := check("vowels", len(t.Vowels)); err != nil {
			return err
		}
	}
	for i := 1; i < n; i++ {
		if t.Time[i] < t.Time[i-1] {
			return fmt.Errorf("time decreases at index %d (%g < %g)", i, t.Time[i], t.Time[i-1])
		}
	}
	return nil
}

// VowelAt returns the vowel recorded at the timestamp nearest to ts. It
// reports false outside the track or where no vowel was detected.
func (t *Track) VowelAt(ts float64) (string, bool) {
	n := len(t.Time)
	if n == 0 || len(t.Vowels) != n || ts < t.Time[0] || ts > t.Time[n-1] {
		return "", false
	}
	i := sort.SearchFloat64s(t.Time, ts)
	if i == n || (i > 0 && ts-t.Time[i-1] < t.Time[i]-ts) {
		i--
	}
	if t.Vowels[i] == nil {
		return "", false
	}
	return *t.Vowels[i], true
}

// Analysis is the collaborator's result. Either side may be absent.
type Analysis struct {
	Reference *Track `json:"reference,omitempty"`
	User      *Track `json:"user,omitempty"`
}

// Validate validates each present side.
func (a *Analysis) Validate() error {
	if a.Reference != nil {
		if err := a.Reference.Validate(); err != nil {
			return fmt.Errorf("reference: %w", err)
		}
	}
	if a.User != nil {
		if err := a.User.Validate(); err != nil {
			return fmt.Errorf("user: %w", err)
		}
	}
	return nil
}

// Parse decodes and validates an analysis document.
func Parse(data []byte) (*Analysis, error) {
	var a Analysis
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

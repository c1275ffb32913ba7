// SPDX-License-Identifier: MIT
package series

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pitches(vs []Value) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		if v.Valid {
			out[i] = v.Float
		}
	}
	return out
}

func scenario() *Analysis {
	return &Analysis{
		Reference: &Track{
			Time:      []float64{0, 1, 2},
			Pitch:     []Value{Some(100), Null, Some(120)},
			Formants:  [][]float64{{500, 1500, 2500}, nil, {510, 1490, 2480}},
			Intensity: Values(60, 61, 62),
		},
		User: &Track{
			Time:      []float64{0, 1},
			Pitch:     Values(80, 90),
			Formants:  [][]float64{{400, 1400, 2400}, {}},
			Intensity: []Value{Some(50), Null},
		},
	}
}

func TestBuildScenario(t *testing.T) {
	tests := []struct {
		name       string
		multiplier float64
		userPitch  []any
	}{
		{"identity multiplier", 1, []any{80.0, 90.0}},
		{"multiplier 1.5", 1.5, []any{120.0, 135.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			charts := Build(scenario(), Controls{TimeOffset: 0.5, PitchMultiplier: tt.multiplier})

			require.Len(t, charts.Pitch, 2)
			ref, user := charts.Pitch[0], charts.Pitch[1]

			assert.Equal(t, SideReference, ref.Side)
			assert.Equal(t, []float64{0, 1, 2}, ref.Times)
			assert.Equal(t, []any{100.0, nil, 120.0}, pitches(ref.Values))

			assert.Equal(t, SideUser, user.Side)
			assert.Equal(t, []float64{0.5, 1.5}, user.Times)
			assert.Equal(t, tt.userPitch, pitches(user.Values))
		})
	}
}

func TestBuildOffsetOnlyShiftsUser(t *testing.T) {
	a := scenario()
	for _, d := range []float64{-2.25, 0, 0.01, 3} {
		charts := Build(a, Controls{TimeOffset: d, PitchMultiplier: 1})
		for _, s := range charts.Pitch {
			for i, ts := range s.Times {
				switch s.Side {
				case SideReference:
					assert.Equal(t, a.Reference.Time[i], ts)
				case SideUser:
					assert.Equal(t, a.User.Time[i]+d, ts)
				}
			}
		}
		assert.Equal(t, charts.Pitch[1].Times, charts.Formants[1].Times)
		assert.Equal(t, charts.Pitch[1].Times, charts.Intensity[1].Times)
	}
	assert.Equal(t, []float64{0, 1}, a.User.Time, "source track mutated")
}

func TestBuildNullPassthrough(t *testing.T) {
	charts := Build(scenario(), Controls{PitchMultiplier: 3, IntensityOffset: -10})

	user := charts.Intensity[1]
	assert.Equal(t, []any{40.0, nil}, pitches(user.Values))
	assert.Equal(t, []any{60.0, 61.0, 62.0}, pitches(charts.Intensity[0].Values))
	assert.False(t, charts.Pitch[0].Values[1].Valid)
}

func TestBuildFormantsUntouched(t *testing.T) {
	a := scenario()
	charts := Build(a, Controls{PitchMultiplier: 2, IntensityOffset: 5})
	require.Len(t, charts.Formants, 2)
	assert.Equal(t, a.User.Formants, charts.Formants[1].Vectors)
	assert.Equal(t, a.Reference.Formants, charts.Formants[0].Vectors)
}

func TestBuildSides(t *testing.T) {
	assert.True(t, Build(nil, DefaultControls()).Empty())
	assert.True(t, Build(&Analysis{}, DefaultControls()).Empty())

	onlyUser := Build(&Analysis{User: scenario().User}, DefaultControls())
	require.Len(t, onlyUser.Pitch, 1)
	assert.Equal(t, UserColor, onlyUser.Pitch[0].Color)
	assert.Equal(t, "Student", onlyUser.Pitch[0].Label)

	both := Build(scenario(), DefaultControls())
	assert.Equal(t, ReferenceColor, both.Formants[0].Color)
	assert.Equal(t, "Reference", both.Intensity[0].Label)
}

func TestControlsNormalized(t *testing.T) {
	tests := []struct {
		name string
		in   Controls
		want Controls
	}{
		{"defaults", DefaultControls(), Controls{PitchMultiplier: 1}},
		{"zero multiplier", Controls{PitchMultiplier: 0}, Controls{PitchMultiplier: 1}},
		{"negative multiplier", Controls{PitchMultiplier: -2}, Controls{PitchMultiplier: 1}},
		{"nan fields", Controls{TimeOffset: math.NaN(), PitchMultiplier: math.NaN(), IntensityOffset: math.NaN()}, Controls{PitchMultiplier: 1}},
		{"kept", Controls{TimeOffset: -0.3, PitchMultiplier: 0.8, IntensityOffset: 4}, Controls{TimeOffset: -0.3, PitchMultiplier: 0.8, IntensityOffset: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalized())
		})
	}
}

func TestParse(t *testing.T) {
	doc := `{
		"reference": {
			"time": [0, 0.01, 0.02],
			"pitch": [110.5, null, 112],
			"formants": [[500, 1500, 2500], [], null],
			"intensity": [null, 55.2, 56],
			"vowels": ["a", null, null]
		}
	}`

	a, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.NotNil(t, a.Reference)
	assert.Nil(t, a.User)

	ref := a.Reference
	assert.Equal(t, []any{110.5, nil, 112.0}, pitches(ref.Pitch))
	assert.Equal(t, []any{nil, 55.2, 56.0}, pitches(ref.Intensity))
	assert.Len(t, ref.Formants[0], 3)
	assert.Empty(t, ref.Formants[1])
	assert.Nil(t, ref.Formants[2])

	out, err := json.Marshal(ref.Pitch)
	require.NoError(t, err)
	assert.JSONEq(t, `[110.5, null, 112]`, string(out))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{`},
		{"pitch short", `{"user": {"time": [0, 1], "pitch": [1], "formants": [[], []], "intensity": [1, 2]}}`},
		{"formants long", `{"reference": {"time": [0], "pitch": [1], "formants": [[], []], "intensity": [1]}}`},
		{"vowels short", `{"reference": {"time": [0], "pitch": [1], "formants": [[]], "intensity": [1], "vowels": []}}`},
		{"time decreasing", `{"reference": {"time": [1, 0], "pitch": [1, 2], "formants": [[], []], "intensity": [1, 2]}}`},
		{"bad value", `{"reference": {"time": [0], "pitch": ["x"], "formants": [[]], "intensity": [1]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}

	_, err := Parse([]byte(`{"user": {"time": [0, 1], "pitch": [1], "formants": [[], []], "intensity": [1, 2]}}`))
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestVowelAt(t *testing.T) {
	a, i := "a", "i"
	tr := &Track{
		Time:   []float64{0, 0.1, 0.2, 0.3},
		Vowels: []*string{&a, &a, nil, &i},
	}

	tests := []struct {
		ts     float64
		want   string
		wantOK bool
	}{
		{-0.1, "", false},
		{0, "a", true},
		{0.04, "a", true},
		{0.06, "a", true},
		{0.19, "", false},
		{0.27, "i", true},
		{0.3, "i", true},
		{0.31, "", false},
	}
	for _, tt := range tests {
		got, ok := tr.VowelAt(tt.ts)
		assert.Equal(t, tt.wantOK, ok, "VowelAt(%v)", tt.ts)
		assert.Equal(t, tt.want, got, "VowelAt(%v)", tt.ts)
	}

	assert.NotPanics(t, func() {
		_, ok := (&Track{Time: []float64{0}}).VowelAt(0)
		assert.False(t, ok)
	})
}

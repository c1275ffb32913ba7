// SPDX-License-Identifier: MIT
package series

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Value is a sample that may be absent. An invalid Value is a gap.
type Value struct {
	Float float64
	Valid bool
}

// Some returns a present value.
func Some(f float64) Value { return Value{Float: f, Valid: true} }

// Null is the absent value.
var Null = Value{}

// Values builds a slice from floats, mapping NaN to Null.
func Values(fs ...float64) []Value {
	out := make([]Value, len(fs))
	for i, f := range fs {
		if !math.IsNaN(f) {
			out[i] = Some(f)
		}
	}
	return out
}

// Mul scales a present value and passes a gap through.
func (v Value) Mul(k float64) Value {
	if !v.Valid {
		return v
	}
	return Some(v.Float * k)
}

// Add shifts a present value and passes a gap through.
func (v Value) Add(d float64) Value {
	if !v.Valid {
		return v
	}
	return Some(v.Float + d)
}

func (v Value) String() string {
	if !v.Valid {
		return "null"
	}
	return strconv.FormatFloat(v.Float, 'g', -1, 64)
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.Float)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = Null
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Some(f)
	return nil
}

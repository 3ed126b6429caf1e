package metrics

import (
	"encoding/json"
	"fmt"
	"math"
)

// ============================================================================
// METRIC VALUES (Canonical cell contents)
// ============================================================================

// Bounded is a metric estimate with a confidence interval.
// INVARIANTS:
// - LowerBound <= Value <= UpperBound whenever all three are finite
// - NaN components are legal and mean "interval unknown"
type Bounded struct {
	Value       float64 `json:"value"`
	LowerBound  float64 `json:"lowerBound"`
	UpperBound  float64 `json:"upperBound"`
	Methodology string  `json:"methodology,omitempty"` // e.g. "WILSON", "HANLEY_MCNEIL"
}

// Value holds one metric reading for one slice. Exactly one representation
// is active: a plain scalar (NaN allowed) or a bounded estimate.
type Value struct {
	scalar  float64
	bounded *Bounded
}

// NewScalar creates a scalar metric value. NaN is a legal reading.
func NewScalar(v float64) Value {
	return Value{scalar: v}
}

// NewBounded creates a bounded metric value after validating the interval
func NewBounded(value, lower, upper float64) (Value, error) {
	b := Bounded{Value: value, LowerBound: lower, UpperBound: upper}
	if err := validateBounded(b); err != nil {
		return Value{}, err
	}
	return Value{scalar: value, bounded: &b}, nil
}

// NewBoundedWithMethod creates a bounded value tagged with its CI methodology
func NewBoundedWithMethod(value, lower, upper float64, methodology string) (Value, error) {
	v, err := NewBounded(value, lower, upper)
	if err != nil {
		return Value{}, err
	}
	v.bounded.Methodology = methodology
	return v, nil
}

// MustBounded creates a bounded value or panics. Use only with known-good inputs.
func MustBounded(value, lower, upper float64) Value {
	v, err := NewBounded(value, lower, upper)
	if err != nil {
		panic(fmt.Sprintf("invalid bounded value: %v", err))
	}
	return v
}

// MustBoundedWithMethod is MustBounded with a CI methodology tag
func MustBoundedWithMethod(value, lower, upper float64, methodology string) Value {
	v := MustBounded(value, lower, upper)
	v.bounded.Methodology = methodology
	return v
}

func validateBounded(b Bounded) error {
	if anyNaN(b.Value, b.LowerBound, b.UpperBound) {
		return nil
	}
	if b.LowerBound > b.Value {
		return fmt.Errorf("lower bound %v exceeds value %v", b.LowerBound, b.Value)
	}
	if b.Value > b.UpperBound {
		return fmt.Errorf("value %v exceeds upper bound %v", b.Value, b.UpperBound)
	}
	return nil
}

func anyNaN(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// IsBounded reports whether the value carries a confidence interval
func (v Value) IsBounded() bool {
	return v.bounded != nil
}

// Scalar returns the point estimate (the bounded value's center when bounded)
func (v Value) Scalar() float64 {
	return v.scalar
}

// Bound returns the interval, or a zero Bounded and false for scalar values
func (v Value) Bound() (Bounded, bool) {
	if v.bounded == nil {
		return Bounded{}, false
	}
	return *v.bounded, true
}

// IsNaN reports whether the point estimate is NaN
func (v Value) IsNaN() bool {
	return math.IsNaN(v.scalar)
}

// ============================================================================
// JSON ENCODING
// ============================================================================
//
// Scalars encode as JSON numbers, NaN as the string "NaN" (JSON has no NaN
// literal). Bounded values encode as {"value":..,"lowerBound":..,
// "upperBound":..}; decoding also accepts the nested {"boundedValue": {...}}
// shape some producers emit.

type boundedJSON struct {
	Value       jsonFloat `json:"value"`
	LowerBound  jsonFloat `json:"lowerBound"`
	UpperBound  jsonFloat `json:"upperBound"`
	Methodology string    `json:"methodology,omitempty"`
}

type boundedEnvelope struct {
	BoundedValue *boundedJSON `json:"boundedValue"`
}

// jsonFloat round-trips NaN through the string "NaN"
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	if math.IsNaN(float64(f)) {
		return []byte(`"NaN"`), nil
	}
	return json.Marshal(float64(f))
}

func (f *jsonFloat) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "NaN" {
			*f = jsonFloat(math.NaN())
			return nil
		}
		return fmt.Errorf("unexpected string %q for float", s)
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = jsonFloat(v)
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.bounded != nil {
		return json.Marshal(boundedJSON{
			Value:       jsonFloat(v.bounded.Value),
			LowerBound:  jsonFloat(v.bounded.LowerBound),
			UpperBound:  jsonFloat(v.bounded.UpperBound),
			Methodology: v.bounded.Methodology,
		})
	}
	return jsonFloat(v.scalar).MarshalJSON()
}

func (v *Value) UnmarshalJSON(data []byte) error {
	// Scalar number or "NaN" string
	var f jsonFloat
	if err := f.UnmarshalJSON(data); err == nil {
		*v = NewScalar(float64(f))
		return nil
	}

	// Nested boundedValue envelope
	var env boundedEnvelope
	if err := json.Unmarshal(data, &env); err == nil && env.BoundedValue != nil {
		return v.setBounded(*env.BoundedValue)
	}

	// Flat bounded object
	var b boundedJSON
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("metric value: %w", err)
	}
	return v.setBounded(b)
}

func (v *Value) setBounded(b boundedJSON) error {
	bounded := Bounded{
		Value:       float64(b.Value),
		LowerBound:  float64(b.LowerBound),
		UpperBound:  float64(b.UpperBound),
		Methodology: b.Methodology,
	}
	if err := validateBounded(bounded); err != nil {
		return err
	}
	*v = Value{scalar: bounded.Value, bounded: &bounded}
	return nil
}

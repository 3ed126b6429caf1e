package metrics

import (
	"encoding/json"
	"math"
	"testing"
)

// TestNewBoundedValidation tests interval ordering rules
func TestNewBoundedValidation(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		lower    float64
		upper    float64
		hasError bool
	}{
		{"ordered interval", 0.61, 0.60, 0.62, false},
		{"degenerate interval", 0.5, 0.5, 0.5, false},
		{"lower above value", 0.5, 0.6, 0.7, true},
		{"value above upper", 0.8, 0.6, 0.7, true},
		{"nan value accepted", math.NaN(), 0.6, 0.7, false},
		{"nan bounds accepted", 0.5, math.NaN(), math.NaN(), false},
	}

	for _, test := range tests {
		_, err := NewBounded(test.value, test.lower, test.upper)
		if test.hasError && err == nil {
			t.Errorf("%s: expected error, got none", test.name)
		}
		if !test.hasError && err != nil {
			t.Errorf("%s: unexpected error: %v", test.name, err)
		}
	}
}

// TestScalarJSONRoundTrip tests scalar encode/decode including NaN
func TestScalarJSONRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  string
	}{
		{"plain float", 0.61, "0.61"},
		{"integer-valued", 34, "34"},
		{"nan as string", math.NaN(), `"NaN"`},
	}

	for _, test := range tests {
		data, err := json.Marshal(NewScalar(test.value))
		if err != nil {
			t.Fatalf("%s: marshal failed: %v", test.name, err)
		}
		if string(data) != test.want {
			t.Errorf("%s: expected %s, got %s", test.name, test.want, string(data))
		}

		var back Value
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("%s: unmarshal failed: %v", test.name, err)
		}
		if back.IsBounded() {
			t.Errorf("%s: scalar decoded as bounded", test.name)
		}
		if math.IsNaN(test.value) {
			if !back.IsNaN() {
				t.Errorf("%s: NaN did not survive round trip", test.name)
			}
		} else if back.Scalar() != test.value {
			t.Errorf("%s: expected %v, got %v", test.name, test.value, back.Scalar())
		}
	}
}

// TestBoundedJSONRoundTrip tests the flat bounded object encoding
func TestBoundedJSONRoundTrip(t *testing.T) {
	v := MustBounded(0.61, 0.60, 0.62)

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var back Value
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	bound, ok := back.Bound()
	if !ok {
		t.Fatal("Expected bounded value after round trip")
	}
	if bound.Value != 0.61 || bound.LowerBound != 0.60 || bound.UpperBound != 0.62 {
		t.Errorf("Interval changed in round trip: %+v", bound)
	}
	if back.Scalar() != 0.61 {
		t.Errorf("Expected point estimate 0.61, got %v", back.Scalar())
	}
}

// TestBoundedEnvelopeDecode tests the nested boundedValue producer shape
func TestBoundedEnvelopeDecode(t *testing.T) {
	raw := `{"boundedValue": {"value": 0.61, "lowerBound": 0.60, "upperBound": 0.62, "methodology": "POISSON_BOOTSTRAP"}}`

	var v Value
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	bound, ok := v.Bound()
	if !ok {
		t.Fatal("Expected bounded value")
	}
	if bound.Methodology != "POISSON_BOOTSTRAP" {
		t.Errorf("Expected methodology to survive decode, got %q", bound.Methodology)
	}
}

// TestBoundedNaNComponents tests that NaN interval parts survive JSON
func TestBoundedNaNComponents(t *testing.T) {
	v, err := NewBounded(math.NaN(), math.NaN(), math.NaN())
	if err != nil {
		t.Fatalf("NewBounded failed: %v", err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var back Value
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	bound, ok := back.Bound()
	if !ok {
		t.Fatal("Expected bounded value")
	}
	if !math.IsNaN(bound.Value) || !math.IsNaN(bound.LowerBound) || !math.IsNaN(bound.UpperBound) {
		t.Errorf("NaN components did not survive: %+v", bound)
	}
}

// TestSliceMetricsJSON tests the per-slice metric map encoding
func TestSliceMetricsJSON(t *testing.T) {
	sm := NewSliceMetrics("sex:male")
	sm.Set(MetricLoss, NewScalar(0.7))
	sm.Set(MetricAUC, MustBounded(0.61, 0.60, 0.62))

	data, err := json.Marshal(sm)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var back SliceMetrics
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back.Slice != "sex:male" {
		t.Errorf("Expected slice 'sex:male', got %q", back.Slice)
	}
	loss, ok := back.Get(MetricLoss)
	if !ok || loss.Scalar() != 0.7 {
		t.Errorf("Loss did not survive round trip: %v (present=%v)", loss.Scalar(), ok)
	}
	auc, ok := back.Get(MetricAUC)
	if !ok || !auc.IsBounded() {
		t.Error("AUC lost its interval in round trip")
	}
}

// TestCollectNames tests the metric-name union across slices
func TestCollectNames(t *testing.T) {
	a := NewSliceMetrics("Overall")
	a.Set(MetricLoss, NewScalar(1))
	b := NewSliceMetrics("sex:male")
	b.Set(MetricAUC, NewScalar(0.5))
	b.Set(MetricLoss, NewScalar(2))

	names := CollectNames([]SliceMetrics{a, b})
	expected := []string{MetricAUC, MetricLoss}
	if len(names) != len(expected) {
		t.Fatalf("Expected %d names, got %d: %v", len(expected), len(names), names)
	}
	for i, name := range expected {
		if names[i] != name {
			t.Errorf("Expected names[%d]=%s, got %s", i, name, names[i])
		}
	}
}

package game

import (
	"reflect"
	"testing"
	"time"
)

func TestNormalize_Table(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"bool", true, true},
		{"string", "ripe", "ripe"},
		{"int", 7, 7.0},
		{"float", 0.42, 0.42},
		{"date", day, "2024-05-01"},
		{"float slice", []float64{0.1, 0.2}, []float64{0.1, 0.2}},
		{"int slice", []int{1, 2}, []float64{1, 2}},
		{"nested", []any{[]float64{0.1}, 0.2, []any{0.3}}, []float64{0.1, 0.2, 0.3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Normalize(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []any{nil, true, "x", 3, 1.5, []int{1, 2}, []any{1.0, []float64{2.0}}, time.Now().UTC()}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("not idempotent for %v: %v then %v", in, once, twice)
		}
	}
}

func TestScalarFloat_LastElement(t *testing.T) {
	if v, ok := ScalarFloat([]float64{0.1, 0.2, 0.3}); !ok || v != 0.3 {
		t.Fatalf("sequence: got %v %v", v, ok)
	}
	if v, ok := ScalarFloat(12); !ok || v != 12.0 {
		t.Fatalf("int: got %v %v", v, ok)
	}
	if v, ok := ScalarFloat("2.5"); !ok || v != 2.5 {
		t.Fatalf("numeric string: got %v %v", v, ok)
	}
	if _, ok := ScalarFloat("ripe"); ok {
		t.Fatalf("non-numeric string coerced")
	}
	if _, ok := ScalarFloat(nil); ok {
		t.Fatalf("nil coerced")
	}
	if _, ok := ScalarFloat([]float64{}); ok {
		t.Fatalf("empty sequence coerced")
	}
}

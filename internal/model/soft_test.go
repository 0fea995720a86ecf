package model

import (
	"math"
	"testing"
)

func TestSoftMinMaxConverge(t *testing.T) {
	pairs := [][2]float64{{1, 2}, {-3, 4}, {5, 5}, {0, -1e-3}}
	for _, p := range pairs {
		a, b := p[0], p[1]
		for _, s := range []float64{1e-3, 1e-6} {
			if d := math.Abs(SoftMin(a, b, s) - math.Min(a, b)); d > s {
				t.Errorf("SoftMin(%g,%g,%g) off by %g", a, b, s, d)
			}
			if d := math.Abs(SoftMax(a, b, s) - math.Max(a, b)); d > s {
				t.Errorf("SoftMax(%g,%g,%g) off by %g", a, b, s, d)
			}
		}
	}
}

func TestSoftMinMonotone(t *testing.T) {
	prev := math.Inf(-1)
	for x := -5.0; x <= 5; x += 0.25 {
		v := SoftMin(x, 1, 0.5)
		if v < prev {
			t.Fatalf("SoftMin not monotone at %g", x)
		}
		prev = v
		if SoftMax(x, 1, 0.5) < SoftMin(x, 1, 0.5) {
			t.Fatalf("SoftMax below SoftMin at %g", x)
		}
	}
}

func TestSoftSwitchAndPositive(t *testing.T) {
	if v := SoftSwitch(0, 1); v != 0.5 {
		t.Errorf("expected 0.5 at zero, got %v", v)
	}
	if v := SoftSwitch(10, 1); v < 0.99 {
		t.Errorf("expected ~1 for large x, got %v", v)
	}
	if v := SoftSwitch(-10, 1); v > 0.01 {
		t.Errorf("expected ~0 for negative x, got %v", v)
	}
	for _, x := range []float64{-10, -1, 0, 1, 100} {
		v := SoftPositive(x, 1)
		if v <= 0 {
			t.Errorf("SoftPositive(%g) = %g, want > 0", x, v)
		}
		if x > 0 && math.Abs(v-x) > 0.05 {
			t.Errorf("SoftPositive(%g) = %g, want ~x", x, v)
		}
	}
}

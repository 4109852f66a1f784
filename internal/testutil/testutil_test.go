package testutil

import (
	"math"
	"testing"
)

func TestDeterministicNoiseReproducible(t *testing.T) {
	a := DeterministicNoise(42, 1.0, 64)
	b := DeterministicNoise(42, 1.0, 64)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("noise not deterministic at index %d", i)
		}
	}
	for i, v := range a {
		if v < -1 || v > 1 {
			t.Fatalf("a[%d] = %v out of range", i, v)
		}
	}
}

func TestImpulse(t *testing.T) {
	imp := Impulse(8, 3)
	for i, v := range imp {
		want := 0.0
		if i == 3 {
			want = 1
		}
		if v != want {
			t.Fatalf("imp[%d] = %v, want %v", i, v, want)
		}
	}
}

func TestConvolve(t *testing.T) {
	got := Convolve([]float64{1, 2}, []float64{3, 4})
	want := []float64{3, 10, 8}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-15 {
			t.Errorf("conv[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNormalizedError(t *testing.T) {
	if e := NormalizedError([]float64{1, 2}, []float64{1, 2}); e != 0 {
		t.Fatalf("identical slices: error = %v, want 0", e)
	}
	e := NormalizedError([]float64{2}, []float64{1})
	if math.Abs(e-1) > 1e-15 {
		t.Fatalf("error = %v, want 1", e)
	}
}

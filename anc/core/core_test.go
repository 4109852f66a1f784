package core

import (
	"math"
	"testing"
)

func TestApplyOptions_Defaults(t *testing.T) {
	cfg := ApplyOptions()
	if cfg.SampleRate != 8000 {
		t.Fatalf("SampleRate = %v, want 8000", cfg.SampleRate)
	}
}

func TestWithSampleRate(t *testing.T) {
	cfg := ApplyOptions(WithSampleRate(48000))
	if cfg.SampleRate != 48000 {
		t.Fatalf("SampleRate = %v, want 48000", cfg.SampleRate)
	}
	// Non-positive rates are ignored.
	cfg = ApplyOptions(WithSampleRate(-1))
	if cfg.SampleRate != 8000 {
		t.Fatalf("SampleRate = %v, want default 8000", cfg.SampleRate)
	}
}

func TestClamp(t *testing.T) {
	cases := []struct {
		value, min, max, want float64
	}{
		{0.5, 0, 1, 0.5},
		{-1, 0, 1, 0},
		{2, 0, 1, 1},
		{0.5, 1, 0, 0.5}, // swapped bounds
	}
	for _, c := range cases {
		if got := Clamp(c.value, c.min, c.max); got != c.want {
			t.Errorf("Clamp(%v, %v, %v) = %v, want %v", c.value, c.min, c.max, got, c.want)
		}
	}
}

func TestNearlyEqual(t *testing.T) {
	if !NearlyEqual(1.0, 1.0+1e-13, 1e-12) {
		t.Error("values within eps should compare equal")
	}
	if NearlyEqual(1.0, 1.1, 1e-12) {
		t.Error("values outside eps should not compare equal")
	}
	if !NearlyEqual(0, 0, 0) {
		t.Error("zero should equal zero with default eps")
	}
}

func TestFlushDenormals(t *testing.T) {
	if FlushDenormals(1e-31) != 0 {
		t.Error("denormal-range value should flush to zero")
	}
	if FlushDenormals(1e-3) != 1e-3 {
		t.Error("normal value should pass through")
	}
}

func TestLinearPowerToDB(t *testing.T) {
	if got := LinearPowerToDB(100); math.Abs(got-20) > 1e-12 {
		t.Fatalf("LinearPowerToDB(100) = %v, want 20", got)
	}
	if !math.IsInf(LinearPowerToDB(0), -1) {
		t.Error("zero power should map to -Inf")
	}
	if !math.IsNaN(LinearPowerToDB(-1)) {
		t.Error("negative power should map to NaN")
	}
}

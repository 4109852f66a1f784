package signal

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-anc/anc/core"
)

func TestSine(t *testing.T) {
	g := NewGenerator([]core.Option{core.WithSampleRate(1000)})
	x, err := g.Sine(250, 1, 5)
	if err != nil {
		t.Fatalf("Sine: %v", err)
	}
	want := []float64{0, 1, 0, -1, 0}
	for i := range want {
		if math.Abs(x[i]-want[i]) > 1e-12 {
			t.Errorf("x[%d] = %v, want %v", i, x[i], want[i])
		}
	}
}

func TestSine_Invalid(t *testing.T) {
	g := NewGenerator(nil)
	if _, err := g.Sine(100, 1, 0); err == nil {
		t.Fatal("expected error for zero samples")
	}
}

func TestWhiteNoise_Deterministic(t *testing.T) {
	a, err := NewGenerator(nil, WithSeed(7)).WhiteNoise(0.5, 64)
	if err != nil {
		t.Fatalf("WhiteNoise: %v", err)
	}
	b, _ := NewGenerator(nil, WithSeed(7)).WhiteNoise(0.5, 64)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("noise not deterministic at index %d", i)
		}
		if a[i] < -0.5 || a[i] > 0.5 {
			t.Fatalf("a[%d] = %v out of range", i, a[i])
		}
	}
}

func TestWhiteNoise_Invalid(t *testing.T) {
	g := NewGenerator(nil)
	if _, err := g.WhiteNoise(-1, 8); err == nil {
		t.Fatal("expected error for negative amplitude")
	}
	if _, err := g.WhiteNoise(1, 0); err == nil {
		t.Fatal("expected error for zero samples")
	}
}

func TestNoiseSource_MatchesBlock(t *testing.T) {
	block, _ := NewGenerator(nil, WithSeed(11)).WhiteNoise(0.1, 32)
	src := NewGenerator(nil, WithSeed(11)).NoiseSource(0.1)
	for i, want := range block {
		if got := src(); got != want {
			t.Fatalf("sample %d: source %v, block %v", i, got, want)
		}
	}
}

package fxlms

import (
	"fmt"
	"math"
	"testing"

	"github.com/cwbudde/algo-anc/anc/fir"
	"github.com/cwbudde/algo-anc/anc/identify"
	"github.com/cwbudde/algo-anc/anc/nlms"
	"github.com/cwbudde/algo-anc/internal/testutil"
)

func mustEstimate(t *testing.T, coeffs []float64) identify.PathEstimate {
	t.Helper()
	p, err := identify.NewPathEstimate(coeffs)
	if err != nil {
		t.Fatalf("NewPathEstimate: %v", err)
	}
	return p
}

// delayed prepends a zero tap, modeling the one-tick latency between an
// actuator sample and the error reading the harness feeds back.
func delayed(coeffs []float64) []float64 {
	return append([]float64{0}, coeffs...)
}

func TestProcess_ConvergesOnReferencePlant(t *testing.T) {
	// Duct model: secondary path s, target control response f,
	// primary path p = conv(s, f). After adaptation the control filter
	// must satisfy conv(w, s) ≈ p, i.e. w ≈ f.
	s := []float64{0.5, 0.5, -0.3, -0.3, -0.2, -0.2}
	f := []float64{0.1, -0.1, 0.2, -0.2, 0.3, -0.3, 0.15, -0.15}
	p := testutil.Convolve(s, f)

	primary, err := fir.New(p)
	if err != nil {
		t.Fatalf("fir.New: %v", err)
	}
	secondaryPlant, err := fir.New(s)
	if err != nil {
		t.Fatalf("fir.New: %v", err)
	}

	c, err := New(nlms.DefaultConfig(len(f)), mustEstimate(t, delayed(s)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Physical superposition at the error sensor: the emitted anti-noise
	// adds to the disturbance, reaching the sensor one tick later.
	noise := testutil.DeterministicNoise(17, 1.0, 50000)
	e := 0.0
	for _, x := range noise {
		y := c.Process(x, e)
		d := primary.ProcessSample(x)
		e = d + secondaryPlant.ProcessSample(y)
	}

	w := c.Weights()
	if mis := testutil.NormalizedError(w, f); mis > 1e-3 {
		t.Fatalf("weight misalignment vs f = %v, want < 1e-3", mis)
	}
	if mis := testutil.NormalizedError(testutil.Convolve(w, s), p); mis > 1e-3 {
		t.Fatalf("conv(w, s) misalignment vs p = %v, want < 1e-3", mis)
	}
	if math.Abs(e) > 1e-3 {
		t.Fatalf("residual error = %v after convergence, want < 1e-3", e)
	}
}

func TestProcess_OneSampleCoefficientDelay(t *testing.T) {
	// Weights computed on tick t must not shape the output of tick t.
	cfg := nlms.Config{Taps: 2, StepSize: 0.5, Epsilon: 1e-6}
	c, err := New(cfg, mustEstimate(t, []float64{1}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Tick 1: nonzero error forces an update, but the output still comes
	// from the zero-initialized staged weights.
	if y := c.Process(1, 1); y != 0 {
		t.Fatalf("tick 1 output = %v, want 0 (same-tick weights must not apply)", y)
	}

	// Tick 2: output reflects exactly the weights staged on tick 1,
	// w[0] = μ/(1+ε), regardless of tick 2's own (large) error. The
	// emitted sample is the negated control-filter output.
	wantW0 := cfg.StepSize / (1 + cfg.Epsilon)
	y := c.Process(2, 100)
	if math.Abs(y-(-2*wantW0)) > 1e-12 {
		t.Fatalf("tick 2 output = %v, want %v", y, -2*wantW0)
	}
}

func TestProcess_FeedbackCancellation(t *testing.T) {
	// With a unit-delay feedback estimate, the previous actuator sample is
	// subtracted from the reference before control and adaptation.
	cfg := nlms.Config{Taps: 1, StepSize: 0.5, Epsilon: 1e-6}
	c, err := NewWithFeedback(cfg, mustEstimate(t, []float64{1}), mustEstimate(t, []float64{0, 1}))
	if err != nil {
		t.Fatalf("NewWithFeedback: %v", err)
	}

	w0 := cfg.StepSize / (1 + cfg.Epsilon)

	if y := c.Process(1, 1); y != 0 {
		t.Fatalf("tick 1 output = %v, want 0", y)
	}
	y2 := c.Process(1, 0)
	if math.Abs(y2-(-w0)) > 1e-12 {
		t.Fatalf("tick 2 output = %v, want %v", y2, -w0)
	}
	// Tick 3 sees ref = 1 - y2 after feedback removal.
	y3 := c.Process(1, 0)
	want3 := -w0 * (1 - y2)
	if math.Abs(y3-want3) > 1e-12 {
		t.Fatalf("tick 3 output = %v, want %v", y3, want3)
	}
}

func TestProcess_SilenceProducesSilence(t *testing.T) {
	c, err := New(nlms.DefaultConfig(8), mustEstimate(t, []float64{0.5, 0.25}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := range 100 {
		if y := c.Process(0, 0); y != 0 {
			t.Fatalf("tick %d: output = %v for silence, want 0", i, y)
		}
	}
	for i, w := range c.Weights() {
		if w != 0 {
			t.Fatalf("weights[%d] = %v, want 0", i, w)
		}
	}
}

func TestResidualPowerTracksError(t *testing.T) {
	c, err := New(nlms.DefaultConfig(4), mustEstimate(t, []float64{1}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.ResidualPower() != 0 {
		t.Fatal("initial residual power should be 0")
	}
	for range 100 {
		c.Process(0.1, 1)
	}
	if c.ResidualPower() <= 0 {
		t.Fatal("residual power should rise with a persistent error")
	}
}

func BenchmarkProcess(b *testing.B) {
	s := []float64{0.5, 0.5, -0.3, -0.3, -0.2, -0.2}
	est, err := identify.NewPathEstimate(s)
	if err != nil {
		b.Fatalf("NewPathEstimate: %v", err)
	}
	for _, taps := range []int{8, 32, 128} {
		c, err := New(nlms.DefaultConfig(taps), est)
		if err != nil {
			b.Fatalf("New: %v", err)
		}
		b.Run(fmt.Sprintf("taps=%d", taps), func(b *testing.B) {
			x := 0.1
			for b.Loop() {
				x = 0.9*x + 0.01
				c.Process(x, 0.5*x)
			}
		})
	}
}

// Package nlms implements the normalized least-mean-squares adaptive
// engine shared by the noise control roles: secondary-path identification,
// feedback-path identification, and the primary control filter.
//
// The update rule normalizes the step size by the instantaneous power of
// the update input, so a single step-size setting stays stable across
// signal levels:
//
//	power = x·x + ε
//	w[i] += (μ / power) * e * x[i]
//
// ε keeps the division bounded when the input is silent, and an optional
// leakage factor decays the weights toward zero each update.
package nlms

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-anc/internal/vecmath"
)

// Errors returned by engine construction.
var (
	ErrInvalidTaps     = errors.New("nlms: taps must be >= 1")
	ErrInvalidStepSize = errors.New("nlms: step size must be in (0, 2)")
	ErrInvalidEpsilon  = errors.New("nlms: epsilon must be > 0")
	ErrInvalidLeakage  = errors.New("nlms: leakage must be in [0, 1)")
)

// Config holds the adaptation parameters. StepSize is bounded to (0, 2)
// per NLMS stability theory; values at or beyond 2 diverge.
type Config struct {
	Taps     int     // filter length
	StepSize float64 // μ, normalized step size
	Epsilon  float64 // power regularization, guards against silence
	Leakage  float64 // per-update weight decay μ·λ, 0 disables
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Taps < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidTaps, c.Taps)
	}
	if c.StepSize <= 0 || c.StepSize >= 2 {
		return fmt.Errorf("%w: %v", ErrInvalidStepSize, c.StepSize)
	}
	if c.Epsilon <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidEpsilon, c.Epsilon)
	}
	if c.Leakage < 0 || c.Leakage >= 1 {
		return fmt.Errorf("%w: %v", ErrInvalidLeakage, c.Leakage)
	}
	return nil
}

// DefaultConfig returns a stable configuration for the given filter length.
func DefaultConfig(taps int) Config {
	return Config{
		Taps:     taps,
		StepSize: 0.5,
		Epsilon:  1e-6,
	}
}

// Engine adapts one weight vector. Each role (identification, control)
// owns its own Engine; weight storage is never shared.
type Engine struct {
	cfg     Config
	weights []float64
}

// New creates an engine with zero-initialized weights.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:     cfg,
		weights: make([]float64, cfg.Taps),
	}, nil
}

// Update applies one NLMS iteration. ref is the update input vector in
// newest-first order (ref[k] = x[n-k]); errSample is the error measured
// this tick. A zero error with zero leakage leaves the weights unchanged.
func (e *Engine) Update(ref []float64, errSample float64) {
	power := vecmath.DotProduct(ref, ref) + e.cfg.Epsilon
	step := e.cfg.StepSize / power
	if e.cfg.Leakage > 0 {
		vecmath.ScaleBlockInPlace(e.weights, 1-e.cfg.StepSize*e.cfg.Leakage)
	}
	vecmath.AddScaledBlock(e.weights, ref, step*errSample)
}

// Predict returns the current filter output for the given input vector,
// dot(w, ref), without touching the weights.
func (e *Engine) Predict(ref []float64) float64 {
	return vecmath.DotProduct(e.weights, ref)
}

// Weights returns a copy of the current weight vector.
func (e *Engine) Weights() []float64 {
	w := make([]float64, len(e.weights))
	copy(w, e.weights)
	return w
}

// CopyWeights copies the current weights into dst, which must have the
// filter length. It is the allocation-free variant of [Engine.Weights]
// for per-tick use.
func (e *Engine) CopyWeights(dst []float64) error {
	if len(dst) != len(e.weights) {
		return fmt.Errorf("nlms: weight length mismatch: got %d, want %d",
			len(dst), len(e.weights))
	}
	copy(dst, e.weights)
	return nil
}

// Taps returns the filter length.
func (e *Engine) Taps() int {
	return e.cfg.Taps
}

// Reset zeroes the weight vector.
func (e *Engine) Reset() {
	for i := range e.weights {
		e.weights[i] = 0
	}
}

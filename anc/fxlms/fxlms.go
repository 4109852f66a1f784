// Package fxlms implements the filtered-X NLMS noise canceller.
//
// Because the control filter's output passes through the secondary path
// before reaching the error sensor, the adaptive update must correlate the
// error with the reference filtered through the secondary-path estimate;
// updating against the raw reference is unstable for anything but a
// pure-delay secondary path. The canceller therefore runs three stages per
// tick: the control filter producing the actuator sample, the frozen
// secondary-path model producing the filtered reference, and optionally a
// frozen feedback-path model removing actuator leakage from the reference
// input.
//
// Weights computed on tick t take effect on tick t+1. This one-sample
// application delay breaks the cyclic dependency between producing the
// tick's output and adapting on the same tick's error.
package fxlms

import (
	"github.com/cwbudde/algo-anc/anc/fir"
	"github.com/cwbudde/algo-anc/anc/identify"
	"github.com/cwbudde/algo-anc/anc/nlms"
	"github.com/cwbudde/algo-anc/internal/vecmath"
)

// Canceller is the cancellation-phase runtime. It owns the control filter
// weights through its NLMS engine; the path models are frozen estimates.
type Canceller struct {
	engine    *nlms.Engine
	control   *fir.Filter
	secondary *fir.Filter

	// Feedback model. The leading tap of an identified feedback path
	// pairs with the current tick's actuator sample, which is not yet
	// computed when the reference is cleaned; with at least one sample of
	// loop latency that tap is zero, so the prediction starts at the
	// previous actuator sample: pred = sum fbTail[k] * y[n-1-k].
	fbTail []float64
	yHist  []float64

	fxHist []float64 // filtered-reference history, newest first
	staged []float64 // weights computed this tick, applied next tick

	residualPower float64
}

// New creates a canceller with the given adaptation settings and the
// frozen secondary-path estimate, without feedback cancellation.
func New(cfg nlms.Config, secondary identify.PathEstimate) (*Canceller, error) {
	return newCanceller(cfg, secondary, nil)
}

// NewWithFeedback creates a canceller that additionally subtracts the
// feedback-path estimate's predicted actuator leakage from the reference
// input before control and adaptation.
func NewWithFeedback(cfg nlms.Config, secondary, feedback identify.PathEstimate) (*Canceller, error) {
	return newCanceller(cfg, secondary, feedback.Coefficients())
}

func newCanceller(cfg nlms.Config, secondary identify.PathEstimate, fbCoeffs []float64) (*Canceller, error) {
	engine, err := nlms.New(cfg)
	if err != nil {
		return nil, err
	}
	control, err := fir.NewOfLength(cfg.Taps)
	if err != nil {
		return nil, err
	}
	sec, err := secondary.Filter()
	if err != nil {
		return nil, err
	}
	c := &Canceller{
		engine:    engine,
		control:   control,
		secondary: sec,
		fxHist:    make([]float64, cfg.Taps),
		staged:    make([]float64, cfg.Taps),
	}
	if len(fbCoeffs) > 1 {
		c.fbTail = fbCoeffs[1:]
		c.yHist = make([]float64, len(c.fbTail))
	}
	return c, nil
}

// Process runs one cancellation tick. reference is the raw reference
// sensor sample, errSample the residual measured at the error sensor.
// It returns the anti-noise actuator sample for this tick: the negated
// control-filter output, so that driving the actuator with it subtracts
// the modeled disturbance at the error sensor. With this polarity the
// power-normalized update
//
//	w[i] += (μ / power) * e * fx[i]
//
// descends the residual power for path estimates identified with the
// same actuator chain.
func (c *Canceller) Process(reference, errSample float64) float64 {
	// Remove the predicted actuator leakage picked up by the reference
	// sensor. The prediction is causal: it sees actuator samples up to
	// the previous tick only.
	if c.fbTail != nil {
		reference -= vecmath.DotProduct(c.fbTail, c.yHist)
	}

	// Weights staged on the previous tick take effect now. Lengths match
	// by construction, so the error cannot occur.
	_ = c.control.SetCoefficients(c.staged)
	y := -c.control.ProcessSample(reference)

	// Filtered reference through the frozen secondary-path model.
	fx := c.secondary.ProcessSample(reference)
	copy(c.fxHist[1:], c.fxHist[:len(c.fxHist)-1])
	c.fxHist[0] = fx

	c.engine.Update(c.fxHist, errSample)
	_ = c.engine.CopyWeights(c.staged)

	if c.yHist != nil {
		copy(c.yHist[1:], c.yHist[:len(c.yHist)-1])
		c.yHist[0] = y
	}

	c.residualPower += residualSmoothing * (errSample*errSample - c.residualPower)
	return y
}

const residualSmoothing = 0.01

// Weights returns a copy of the current adaptive weights.
func (c *Canceller) Weights() []float64 {
	return c.engine.Weights()
}

// Taps returns the control filter length.
func (c *Canceller) Taps() int {
	return c.engine.Taps()
}

// ResidualPower returns the smoothed error-sensor power, the live figure
// of merit for cancellation depth.
func (c *Canceller) ResidualPower() float64 {
	return c.residualPower
}

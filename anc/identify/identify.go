// Package identify models acoustic transfer paths by adaptive system
// identification: a known excitation drives the actuator while an NLMS
// engine learns the FIR response from the actuator to a sensor.
//
// Two paths matter for feedforward noise control: the secondary path
// (actuator to error sensor) and the acoustic feedback path (actuator to
// reference sensor). Both use the same [Identifier] with independent
// engines. A finished identification is frozen into an immutable
// [PathEstimate].
package identify

import (
	"fmt"

	"github.com/cwbudde/algo-anc/anc/fir"
	"github.com/cwbudde/algo-anc/anc/nlms"
)

// PathEstimate is a frozen FIR model of an acoustic path. It is immutable
// once created; accessors hand out copies or fresh filter instances.
type PathEstimate struct {
	coeffs []float64
}

// NewPathEstimate freezes the given coefficients. The slice is copied.
func NewPathEstimate(coeffs []float64) (PathEstimate, error) {
	if len(coeffs) == 0 {
		return PathEstimate{}, fmt.Errorf("identify: path estimate must not be empty")
	}
	c := make([]float64, len(coeffs))
	copy(c, coeffs)
	return PathEstimate{coeffs: c}, nil
}

// Len returns the number of taps in the estimate.
func (p PathEstimate) Len() int {
	return len(p.coeffs)
}

// Coefficients returns a copy of the estimate's coefficients.
func (p PathEstimate) Coefficients() []float64 {
	c := make([]float64, len(p.coeffs))
	copy(c, p.coeffs)
	return c
}

// Filter returns a fresh FIR filter instance running this estimate,
// with its own zeroed delay line.
func (p PathEstimate) Filter() (*fir.Filter, error) {
	return fir.New(p.coeffs)
}

// residual power smoothing for telemetry; one-pole average.
const powerSmoothing = 0.01

// Identifier learns one transfer path while the excitation runs.
type Identifier struct {
	engine *nlms.Engine
	hist   []float64

	excitationPower float64
	residualPower   float64
}

// NewIdentifier creates an identifier with the given adaptation settings.
func NewIdentifier(cfg nlms.Config) (*Identifier, error) {
	engine, err := nlms.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Identifier{
		engine: engine,
		hist:   make([]float64, cfg.Taps),
	}, nil
}

// Step consumes one excitation sample and the sensor sample it produced,
// updates the path model, and returns the prediction residual. A silent
// or disconnected sensor leaves the model where it is; the engine's ε
// regularization keeps the step bounded rather than diverging.
func (id *Identifier) Step(excitation, sensor float64) float64 {
	copy(id.hist[1:], id.hist[:len(id.hist)-1])
	id.hist[0] = excitation

	residual := sensor - id.engine.Predict(id.hist)
	id.engine.Update(id.hist, residual)

	id.excitationPower += powerSmoothing * (excitation*excitation - id.excitationPower)
	id.residualPower += powerSmoothing * (residual*residual - id.residualPower)
	return residual
}

// Estimate freezes the current model into an immutable PathEstimate.
func (id *Identifier) Estimate() (PathEstimate, error) {
	return NewPathEstimate(id.engine.Weights())
}

// Weights returns a copy of the current model coefficients.
func (id *Identifier) Weights() []float64 {
	return id.engine.Weights()
}

// ExcitationPower returns the smoothed excitation power, an operational
// health signal: a near-zero value during identification means the
// excitation never reached the actuator.
func (id *Identifier) ExcitationPower() float64 {
	return id.excitationPower
}

// ResidualPower returns the smoothed prediction residual power. It decays
// toward the sensor noise floor as the model converges.
func (id *Identifier) ResidualPower() float64 {
	return id.residualPower
}

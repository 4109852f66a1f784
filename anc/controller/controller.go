// Package controller sequences the two operating phases of the noise
// control system: a fixed-duration identification phase in which white
// noise drives the actuator while the secondary and feedback paths are
// modeled, followed by the cancellation phase running the filtered-X
// canceller against the frozen path estimates.
//
// The transition happens exactly once, at the configured sample count,
// and is irreversible.
package controller

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-anc/anc/core"
	"github.com/cwbudde/algo-anc/anc/fxlms"
	"github.com/cwbudde/algo-anc/anc/identify"
	"github.com/cwbudde/algo-anc/anc/nlms"
	"github.com/cwbudde/algo-anc/anc/signal"
)

// Mode is the operating phase.
type Mode int

const (
	// ModeIdentifying drives white-noise excitation and models the
	// secondary and feedback paths.
	ModeIdentifying Mode = iota

	// ModeCancelling runs the filtered-X canceller. Terminal.
	ModeCancelling
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeIdentifying:
		return "identifying"
	case ModeCancelling:
		return "cancelling"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Errors returned by configuration validation.
var (
	ErrInvalidSampleRate = errors.New("controller: sample rate must be > 0")
	ErrInvalidDuration   = errors.New("controller: identification duration must be > 0")
	ErrInvalidAmplitude  = errors.New("controller: excitation amplitude must be > 0")
)

// Config holds the full system configuration, set once at startup.
type Config struct {
	SampleRate      float64
	IdentifySeconds float64 // identification phase duration

	ExcitationAmplitude float64 // white-noise excitation level
	ExcitationSeed      int64

	Control   nlms.Config // primary control filter adaptation
	Secondary nlms.Config // secondary-path identification
	Feedback  nlms.Config // feedback-path identification
}

// DefaultConfig returns a stable starting configuration.
func DefaultConfig() Config {
	return Config{
		SampleRate:          core.DefaultConfig().SampleRate,
		IdentifySeconds:     10,
		ExcitationAmplitude: 0.1,
		ExcitationSeed:      1,
		Control:             nlms.DefaultConfig(32),
		Secondary:           nlms.DefaultConfig(16),
		Feedback:            nlms.DefaultConfig(16),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRate, c.SampleRate)
	}
	if c.IdentifySeconds <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidDuration, c.IdentifySeconds)
	}
	if c.ExcitationAmplitude <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAmplitude, c.ExcitationAmplitude)
	}
	if err := c.Control.Validate(); err != nil {
		return fmt.Errorf("controller: control config: %w", err)
	}
	if err := c.Secondary.Validate(); err != nil {
		return fmt.Errorf("controller: secondary config: %w", err)
	}
	if err := c.Feedback.Validate(); err != nil {
		return fmt.Errorf("controller: feedback config: %w", err)
	}
	return nil
}

// IdentifySamples returns the identification duration in samples.
func (c Config) IdentifySamples() int {
	return int(c.IdentifySeconds * c.SampleRate)
}

// Controller owns the mode state and the path estimates.
type Controller struct {
	cfg             Config
	mode            Mode
	sampleCount     int
	identifySamples int

	excite    func() float64
	secondary *identify.Identifier
	feedback  *identify.Identifier

	secEst    identify.PathEstimate
	fbEst     identify.PathEstimate
	canceller *fxlms.Canceller
}

// New creates a controller in ModeIdentifying.
func New(cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sec, err := identify.NewIdentifier(cfg.Secondary)
	if err != nil {
		return nil, err
	}
	fb, err := identify.NewIdentifier(cfg.Feedback)
	if err != nil {
		return nil, err
	}
	gen := signal.NewGenerator(
		[]core.Option{core.WithSampleRate(cfg.SampleRate)},
		signal.WithSeed(cfg.ExcitationSeed),
	)
	return &Controller{
		cfg:             cfg,
		identifySamples: cfg.IdentifySamples(),
		excite:          gen.NoiseSource(cfg.ExcitationAmplitude),
		secondary:       sec,
		feedback:        fb,
	}, nil
}

// Tick processes one sample pair and returns the actuator sample.
//
// In ModeIdentifying the actuator carries the excitation and both path
// models adapt against their sensors. In ModeCancelling the actuator
// carries the anti-noise from the filtered-X canceller.
func (c *Controller) Tick(reference, errSample float64) float64 {
	c.sampleCount++

	if c.mode == ModeCancelling {
		return c.canceller.Process(reference, errSample)
	}

	v := c.excite()
	c.secondary.Step(v, errSample)
	c.feedback.Step(v, reference)

	if c.sampleCount >= c.identifySamples {
		// freeze() cannot fail here: both identifiers were constructed
		// with validated configs and non-empty weight vectors.
		if err := c.freeze(); err != nil {
			panic(err)
		}
	}
	return v
}

// freeze snapshots both path estimates, discards the identification
// engines, and enters the terminal cancelling mode.
func (c *Controller) freeze() error {
	secEst, err := c.secondary.Estimate()
	if err != nil {
		return err
	}
	fbEst, err := c.feedback.Estimate()
	if err != nil {
		return err
	}
	canceller, err := fxlms.NewWithFeedback(c.cfg.Control, secEst, fbEst)
	if err != nil {
		return err
	}

	c.secEst = secEst
	c.fbEst = fbEst
	c.canceller = canceller
	c.secondary = nil
	c.feedback = nil
	c.mode = ModeCancelling
	return nil
}

// Mode returns the current operating phase.
func (c *Controller) Mode() Mode {
	return c.mode
}

// SampleCount returns the number of ticks processed so far.
func (c *Controller) SampleCount() int {
	return c.sampleCount
}

// Snapshot is a read-only telemetry view, safe to hold across ticks.
type Snapshot struct {
	Mode        Mode
	SampleCount int

	// Path models: live copies while identifying, frozen afterwards.
	SecondaryWeights []float64
	FeedbackWeights  []float64

	// ControlWeights is nil while identifying.
	ControlWeights []float64

	// ExcitationPower is the smoothed identification excitation power;
	// near zero during identification indicates a dead actuator chain.
	ExcitationPower float64

	// ResidualPower is the smoothed error-sensor power.
	ResidualPower float64
}

// Snapshot returns copies of the current mode, counters, and coefficient
// vectors. It never exposes live mutable state.
func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{
		Mode:        c.mode,
		SampleCount: c.sampleCount,
	}
	if c.mode == ModeIdentifying {
		s.SecondaryWeights = c.secondary.Weights()
		s.FeedbackWeights = c.feedback.Weights()
		s.ExcitationPower = c.secondary.ExcitationPower()
		s.ResidualPower = c.secondary.ResidualPower()
		return s
	}
	s.SecondaryWeights = c.secEst.Coefficients()
	s.FeedbackWeights = c.fbEst.Coefficients()
	s.ControlWeights = c.canceller.Weights()
	s.ResidualPower = c.canceller.ResidualPower()
	return s
}

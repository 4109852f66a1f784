// Package signal generates the deterministic stimuli the noise control core
// needs: white-noise excitation for path identification and test tones.
package signal

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-anc/anc/core"
)

// Generator creates deterministic signals from a shared configuration.
type Generator struct {
	cfg  core.Config
	seed int64
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed sets deterministic random seed for noise generation.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// NewGenerator creates a configured signal generator.
func NewGenerator(coreOpts []core.Option, opts ...Option) *Generator {
	g := &Generator{
		cfg:  core.ApplyOptions(coreOpts...),
		seed: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Config returns the generator processing configuration.
func (g *Generator) Config() core.Config {
	return g.cfg
}

// Sine generates a sine wave.
func (g *Generator) Sine(freqHz, amplitude float64, samples int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("signal: sine samples must be > 0: %d", samples)
	}
	if g.cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("signal: sine sample rate must be > 0: %f", g.cfg.SampleRate)
	}
	out := make([]float64, samples)
	step := 2 * math.Pi * freqHz / g.cfg.SampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out, nil
}

// WhiteNoise generates deterministic white noise in [-amplitude, amplitude].
func (g *Generator) WhiteNoise(amplitude float64, samples int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("signal: noise samples must be > 0: %d", samples)
	}
	if amplitude < 0 {
		return nil, fmt.Errorf("signal: noise amplitude must be >= 0: %f", amplitude)
	}
	out := make([]float64, samples)
	rng := rand.New(rand.NewSource(g.seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out, nil
}

// NoiseSource returns a per-sample white-noise source in
// [-amplitude, amplitude], for callers that pull one excitation sample per
// tick instead of a precomputed block.
func (g *Generator) NoiseSource(amplitude float64) func() float64 {
	rng := rand.New(rand.NewSource(g.seed))
	return func() float64 {
		return (rng.Float64()*2 - 1) * amplitude
	}
}

// Command ancsim runs an active noise control simulation against a
// synthetic acoustic duct and reports identification quality, control
// filter convergence, and residual attenuation.
//
// Usage:
//
//	ancsim [flags]
//
// The duct model has a fixed primary, secondary, and feedback path. The
// controller first identifies the secondary and feedback paths with
// white-noise excitation, then switches to filtered-X cancellation of a
// broadband ambient noise source.
//
// Examples:
//
//	ancsim
//	ancsim -identify 2 -seconds 10
//	ancsim -mu 0.25 -taps 64 -spectrum
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/cwbudde/algo-anc/anc/controller"
	"github.com/cwbudde/algo-anc/anc/core"
	"github.com/cwbudde/algo-anc/anc/fir"
	"github.com/cwbudde/algo-anc/anc/loop"
	"github.com/cwbudde/algo-anc/anc/nlms"
	"github.com/cwbudde/algo-anc/anc/signal"
	"github.com/cwbudde/algo-anc/measure/path"
)

// Fixed duct model. The primary path is the secondary path convolved
// with a known response plus the actuator's one-sample latency, so an
// exact causal control solution exists and convergence is observable.
var (
	ductSecondary = []float64{0.5, 0.5, -0.3, -0.3, -0.2, -0.2}
	ductFeedback  = []float64{0.05, 0.02}
	ductControl   = []float64{0.1, -0.1, 0.2, -0.2, 0.3, -0.3, 0.15, -0.15}
)

func main() {
	rate := flag.Float64("rate", 8000, "sample rate in Hz")
	identifySec := flag.Float64("identify", 5, "identification phase duration in seconds")
	cancelSec := flag.Float64("seconds", 5, "cancellation phase duration in seconds")
	amplitude := flag.Float64("amplitude", 0.1, "white-noise excitation amplitude")
	ambient := flag.Float64("ambient", 0.5, "ambient noise amplitude during cancellation")
	mu := flag.Float64("mu", 0.5, "normalized step size for all adaptive filters")
	taps := flag.Int("taps", 32, "control filter length")
	pathTaps := flag.Int("path-taps", 16, "path identification filter length")
	seed := flag.Int64("seed", 1, "noise generator seed")
	spectrum := flag.Bool("spectrum", false, "print the control filter magnitude response")
	bins := flag.Int("bins", 64, "FFT size for -spectrum")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ancsim [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Simulates active noise control in a synthetic duct.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  ancsim\n")
		fmt.Fprintf(os.Stderr, "  ancsim -identify 2 -seconds 10\n")
		fmt.Fprintf(os.Stderr, "  ancsim -mu 0.25 -taps 64 -spectrum\n")
	}
	flag.Parse()

	cfg := controller.DefaultConfig()
	cfg.SampleRate = *rate
	cfg.IdentifySeconds = *identifySec
	cfg.ExcitationAmplitude = *amplitude
	cfg.ExcitationSeed = *seed
	cfg.Control = nlms.Config{Taps: *taps, StepSize: *mu, Epsilon: 1e-6}
	cfg.Secondary = nlms.Config{Taps: *pathTaps, StepSize: *mu, Epsilon: 1e-6}
	cfg.Feedback = nlms.Config{Taps: *pathTaps, StepSize: *mu, Epsilon: 1e-6}

	ctrl, err := controller.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	l, err := loop.New(ctrl, cfg.SampleRate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	d, err := newDuct(cfg, *ambient, *seed, int(*cancelSec*cfg.SampleRate))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := l.Run(context.Background(), d, d); err != nil {
		var miss *loop.DeadlineError
		if errors.As(err, &miss) {
			fmt.Fprintf(os.Stderr, "error: real-time deadline missed: %v\n", miss)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}

	printReport(ctrl, d)
	if *spectrum {
		printSpectrum(ctrl, *rate, *bins)
	}
}

// duct simulates the acoustic plant. It implements both loop.Source and
// loop.Sink: the sink side captures the actuator sample, the source
// side propagates it through the plant to produce the next sensor
// frame.
type duct struct {
	primary   *fir.Filter
	secondary *fir.Filter
	feedback  *fir.Filter

	noise      func() float64
	identify   int
	cancel     int
	n          int
	y          float64 // last actuator sample, one tick behind
	windowLen  int
	early      []float64
	late       []float64
	residCount int
}

func newDuct(cfg controller.Config, ambient float64, seed int64, cancelSamples int) (*duct, error) {
	// primary = one-sample latency followed by control response through
	// the secondary path.
	composed := convolve(ductControl, ductSecondary)
	primaryCoeffs := append([]float64{0}, composed...)

	primary, err := fir.New(primaryCoeffs)
	if err != nil {
		return nil, err
	}
	secondary, err := fir.New(ductSecondary)
	if err != nil {
		return nil, err
	}
	feedback, err := fir.New(ductFeedback)
	if err != nil {
		return nil, err
	}

	gen := signal.NewGenerator(
		[]core.Option{core.WithSampleRate(cfg.SampleRate)},
		signal.WithSeed(seed+1),
	)

	windowLen := cancelSamples / 4
	if windowLen < 1 {
		windowLen = 1
	}
	return &duct{
		primary:   primary,
		secondary: secondary,
		feedback:  feedback,
		noise:     gen.NoiseSource(ambient),
		identify:  cfg.IdentifySamples(),
		cancel:    cancelSamples,
		windowLen: windowLen,
		early:     make([]float64, 0, windowLen),
		late:      make([]float64, windowLen),
	}, nil
}

// ReadFrame advances the plant by one sample period.
func (d *duct) ReadFrame() (reference, errSample float64, ok bool) {
	if d.n >= d.identify+d.cancel {
		return 0, 0, false
	}
	var ambient float64
	if d.n >= d.identify {
		ambient = d.noise()
	}
	d.n++

	reference = ambient + d.feedback.ProcessSample(d.y)
	errSample = d.primary.ProcessSample(ambient) + d.secondary.ProcessSample(d.y)

	if d.n > d.identify {
		d.recordResidual(errSample)
	}
	return reference, errSample, true
}

// WriteSample captures the actuator output for the next plant step.
func (d *duct) WriteSample(sample float64) error {
	d.y = sample
	return nil
}

func (d *duct) recordResidual(e float64) {
	if len(d.early) < d.windowLen {
		d.early = append(d.early, e)
	}
	d.late[d.residCount%d.windowLen] = e
	d.residCount++
}

func printReport(ctrl *controller.Controller, d *duct) {
	snap := ctrl.Snapshot()

	trueSecondary := append([]float64{0}, ductSecondary...)
	trueFeedback := append([]float64{0}, ductFeedback...)
	unit := []float64{1}

	secErr, _ := path.Mismatch(snap.SecondaryWeights, unit, trueSecondary)
	fbErr, _ := path.Mismatch(snap.FeedbackWeights, unit, trueFeedback)
	secDelay, _ := path.BulkDelay(snap.SecondaryWeights)

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "mode\t%s\n", snap.Mode)
	fmt.Fprintf(tw, "samples\t%d\n", snap.SampleCount)
	fmt.Fprintf(tw, "secondary path\t%d taps, bulk delay %d, model error %.4g\n",
		len(snap.SecondaryWeights), secDelay, secErr)
	fmt.Fprintf(tw, "feedback path\t%d taps, model error %.4g\n",
		len(snap.FeedbackWeights), fbErr)

	if snap.ControlWeights != nil {
		primary := append([]float64{0}, convolve(ductControl, ductSecondary)...)
		ctlErr, _ := path.Mismatch(snap.ControlWeights, trueSecondary, primary)
		fmt.Fprintf(tw, "control filter\t%d taps, residual model error %.4g\n",
			len(snap.ControlWeights), ctlErr)
	}
	if att, err := path.Attenuation(d.early, d.late); err == nil {
		fmt.Fprintf(tw, "attenuation\t%.1f dB (first vs last quarter of run)\n", att)
	}
	fmt.Fprintf(tw, "residual power\t%.3g (%.1f dB)\n",
		snap.ResidualPower, core.LinearPowerToDB(snap.ResidualPower))
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to flush report: %v\n", err)
	}
}

func printSpectrum(ctrl *controller.Controller, rate float64, bins int) {
	snap := ctrl.Snapshot()
	if snap.ControlWeights == nil {
		fmt.Fprintln(os.Stderr, "warning: no control filter yet, skipping spectrum")
		return
	}
	mag, err := path.MagnitudeDB(snap.ControlWeights, bins)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "\nFrequency [Hz]\tControl gain [dB]\n")
	n := len(mag)
	for k := 0; k <= n/2; k++ {
		freq := float64(k) * rate / float64(n)
		fmt.Fprintf(tw, "%.1f\t%.2f\n", freq, mag[k])
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to flush spectrum: %v\n", err)
	}
}

func convolve(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, av := range a {
		for j, bv := range b {
			out[i+j] += av * bv
		}
	}
	return out
}


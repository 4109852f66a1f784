// Package path analyzes identified acoustic path estimates and
// cancellation results: frequency responses, bulk delay, residual
// attenuation, and model mismatch.
//
// Everything here runs offline on coefficient or signal snapshots; none
// of it belongs on the per-sample real-time path.
package path

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-anc/anc/core"
	internalvec "github.com/cwbudde/algo-anc/internal/vecmath"
)

// Errors returned by analysis functions.
var (
	ErrEmptyCoefficients = errors.New("path: coefficients must not be empty")
	ErrEmptySignal       = errors.New("path: signal must not be empty")
	ErrInvalidBins       = errors.New("path: bin count must be >= coefficient count")
	ErrLengthMismatch    = errors.New("path: signal length mismatch")
)

// dB floor for log conversions of near-zero magnitudes.
const floorDB = -200

// Response computes the complex frequency response of a path estimate by
// zero-padded FFT. nfft is rounded up to the next power of two; the
// returned slice has that many bins covering the full digital frequency
// axis, DC first.
func Response(coeffs []float64, nfft int) ([]complex128, error) {
	if len(coeffs) == 0 {
		return nil, ErrEmptyCoefficients
	}
	if nfft < len(coeffs) {
		return nil, fmt.Errorf("%w: got %d for %d taps", ErrInvalidBins, nfft, len(coeffs))
	}

	fftSize := nextPowerOf2(nfft)
	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("path: failed to create FFT plan: %w", err)
	}

	padded := make([]complex128, fftSize)
	for i, c := range coeffs {
		padded[i] = complex(c, 0)
	}
	bins := make([]complex128, fftSize)
	if err := plan.Forward(bins, padded); err != nil {
		return nil, fmt.Errorf("path: forward FFT failed: %w", err)
	}
	return bins, nil
}

// MagnitudeDB returns the magnitude response of a path estimate in dB,
// one value per FFT bin as produced by [Response].
func MagnitudeDB(coeffs []float64, nfft int) ([]float64, error) {
	bins, err := Response(coeffs, nfft)
	if err != nil {
		return nil, err
	}

	n := len(bins)
	re := make([]float64, n)
	im := make([]float64, n)
	for i, c := range bins {
		re[i] = real(c)
		im[i] = imag(c)
	}
	mag := make([]float64, n)
	vecmath.Magnitude(mag, re, im)

	for i, m := range mag {
		if m <= 0 {
			mag[i] = floorDB
		} else {
			mag[i] = 20 * math.Log10(m)
		}
	}
	return mag, nil
}

// ResidualSpectrumDB returns the Hann-windowed power spectrum of a
// residual signal segment in dB. Useful for seeing which bands the
// canceller actually attenuates.
func ResidualSpectrumDB(residual []float64, nfft int) ([]float64, error) {
	if len(residual) == 0 {
		return nil, ErrEmptySignal
	}
	if nfft < len(residual) {
		return nil, fmt.Errorf("%w: got %d for %d samples", ErrInvalidBins, nfft, len(residual))
	}

	windowed := make([]float64, len(residual))
	copy(windowed, residual)
	vecmath.MulBlockInPlace(windowed, hann(len(windowed)))

	return MagnitudeDB(windowed, nfft)
}

// BulkDelay returns the index of the dominant tap, an estimate of the
// path's transport latency in samples.
func BulkDelay(coeffs []float64) (int, error) {
	if len(coeffs) == 0 {
		return 0, ErrEmptyCoefficients
	}
	best := 0
	bestAbs := math.Abs(coeffs[0])
	for i, c := range coeffs[1:] {
		if a := math.Abs(c); a > bestAbs {
			bestAbs = a
			best = i + 1
		}
	}
	return best, nil
}

// Attenuation returns the energy ratio between a before and an after
// signal in dB. Positive values mean the after signal is quieter.
// The two slices must have the same length.
func Attenuation(before, after []float64) (float64, error) {
	if len(before) == 0 || len(after) == 0 {
		return 0, ErrEmptySignal
	}
	if len(before) != len(after) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(before), len(after))
	}
	beforePow := internalvec.DotProduct(before, before)
	afterPow := internalvec.DotProduct(after, after)
	if afterPow == 0 {
		return math.Inf(1), nil
	}
	return core.LinearPowerToDB(beforePow / afterPow), nil
}

// Mismatch returns the normalized distance between the identified control
// response convolved with the secondary path and the primary path:
// ||conv(weights, secondary) - primary|| / ||primary||. Values below 1e-3
// indicate convergence to the reference solution.
func Mismatch(weights, secondary, primary []float64) (float64, error) {
	if len(weights) == 0 || len(secondary) == 0 || len(primary) == 0 {
		return 0, ErrEmptyCoefficients
	}

	composed := convolve(weights, secondary)
	n := len(composed)
	if len(primary) > n {
		n = len(primary)
	}

	var num, den float64
	for i := 0; i < n; i++ {
		var c, p float64
		if i < len(composed) {
			c = composed[i]
		}
		if i < len(primary) {
			p = primary[i]
		}
		d := c - p
		num += d * d
		den += p * p
	}
	if den == 0 {
		return 0, fmt.Errorf("path: primary path has zero energy")
	}
	return math.Sqrt(num / den), nil
}

// convolve is the direct linear convolution, adequate for the short
// impulse responses handled here.
func convolve(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	temp := make([]float64, len(b))
	for i, av := range a {
		vecmath.ScaleBlock(temp, b, av)
		vecmath.AddBlockInPlace(out[i:i+len(b)], temp)
	}
	return out
}

// hann returns a symmetric Hann window of length n.
func hann(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

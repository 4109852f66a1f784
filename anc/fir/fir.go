// Package fir provides the direct-form FIR filter runtime used throughout
// the noise control core: for the adaptive control filter, the identified
// path models, and the filtered-reference stage.
//
// A [Filter] applies a set of coefficients to an input stream using a
// circular-buffer delay line. Coefficients may be replaced between samples
// with [Filter.SetCoefficients]; a replacement is applied as a whole, so a
// single ProcessSample call never observes a partially updated vector.
package fir

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Filter implements a direct-form FIR filter using a circular-buffer delay line.
type Filter struct {
	coeffs []float64
	delay  []float64
	pos    int
}

// New creates a FIR filter from the given coefficient slice.
// The coefficients are copied. The filter order is len(coeffs)-1.
func New(coeffs []float64) (*Filter, error) {
	if len(coeffs) == 0 {
		return nil, fmt.Errorf("fir: filter length must be > 0")
	}
	c := make([]float64, len(coeffs))
	copy(c, coeffs)
	return &Filter{
		coeffs: c,
		delay:  make([]float64, len(coeffs)),
	}, nil
}

// NewOfLength creates a FIR filter with the given number of taps,
// all coefficients zero. Used for adaptive filters that receive their
// coefficients tick by tick.
func NewOfLength(taps int) (*Filter, error) {
	if taps <= 0 {
		return nil, fmt.Errorf("fir: filter length must be > 0: %d", taps)
	}
	return &Filter{
		coeffs: make([]float64, taps),
		delay:  make([]float64, taps),
	}, nil
}

// ProcessSample filters one input sample using direct convolution
// with a circular delay line.
//
//	y[n] = sum_{k=0}^{N-1} h[k] * x[n-k]
func (f *Filter) ProcessSample(x float64) float64 {
	f.delay[f.pos] = x
	var y float64
	n := len(f.coeffs)
	p := f.pos
	for k := range n {
		y += f.coeffs[k] * f.delay[p]
		p--
		if p < 0 {
			p = n - 1
		}
	}
	f.pos++
	if f.pos >= n {
		f.pos = 0
	}
	return y
}

// ProcessBlock filters a block of samples in-place.
func (f *Filter) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = f.ProcessSample(x)
	}
}

// SetCoefficients replaces the coefficient vector. The slice is copied and
// its length must match the filter length. The delay line is untouched, so
// adaptation can swap coefficients between samples without losing history.
func (f *Filter) SetCoefficients(coeffs []float64) error {
	if len(coeffs) != len(f.coeffs) {
		return fmt.Errorf("fir: coefficient length mismatch: got %d, want %d",
			len(coeffs), len(f.coeffs))
	}
	copy(f.coeffs, coeffs)
	return nil
}

// History copies the delay-line contents into dst, newest sample first,
// so dst[k] = x[n-k]. At most min(len(dst), filter length) samples are
// written. This is the vector an adaptive update correlates the error with.
func (f *Filter) History(dst []float64) {
	n := len(f.coeffs)
	m := len(dst)
	if m > n {
		m = n
	}
	// pos points one past the newest sample.
	p := f.pos - 1
	if p < 0 {
		p = n - 1
	}
	for k := range m {
		dst[k] = f.delay[p]
		p--
		if p < 0 {
			p = n - 1
		}
	}
}

// Reset clears the delay line to zero.
func (f *Filter) Reset() {
	for i := range f.delay {
		f.delay[i] = 0
	}
	f.pos = 0
}

// Len returns the number of filter taps.
func (f *Filter) Len() int {
	return len(f.coeffs)
}

// Order returns the filter order (len(coeffs) - 1).
func (f *Filter) Order() int {
	return len(f.coeffs) - 1
}

// Coefficients returns a copy of the filter coefficients.
func (f *Filter) Coefficients() []float64 {
	c := make([]float64, len(f.coeffs))
	copy(c, f.coeffs)
	return c
}

// Response computes the complex frequency response H(e^{-jw}) at the given
// frequency (Hz) and sample rate (Hz).
func (f *Filter) Response(freqHz, sampleRate float64) complex128 {
	w := 2 * math.Pi * freqHz / sampleRate
	var h complex128
	for k, c := range f.coeffs {
		h += complex(c, 0) * cmplx.Exp(complex(0, -w*float64(k)))
	}
	return h
}

// MagnitudeDB returns the magnitude response in dB at the given frequency.
func (f *Filter) MagnitudeDB(freqHz, sampleRate float64) float64 {
	return 20 * math.Log10(cmplx.Abs(f.Response(freqHz, sampleRate)))
}

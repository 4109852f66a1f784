// Package vecmath provides the small vector kernels used by the per-sample
// processing loops: dot products for FIR evaluation and normalized power,
// and scaled accumulation for adaptive weight updates.
package vecmath

// DotProduct returns the dot product of a and b: sum(a[i] * b[i]).
// Returns 0 if slices are empty or have different lengths.
// Only the minimum length of the two slices is used.
func DotProduct(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}

	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// AddScaledBlock performs a scaled accumulate: dst[i] += src[i] * scale.
// Slices must have equal length. Panics if lengths differ.
func AddScaledBlock(dst, src []float64, scale float64) {
	if len(dst) != len(src) {
		panic("vecmath: slice length mismatch")
	}
	for i := range dst {
		dst[i] += src[i] * scale
	}
}

// ScaleBlockInPlace multiplies every element of dst by scale.
func ScaleBlockInPlace(dst []float64, scale float64) {
	for i := range dst {
		dst[i] *= scale
	}
}

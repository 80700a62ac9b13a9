package dsp

import (
	"fmt"

	"github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/algo-dsp/dsp/window"
)

// Resample converts samples from one rate to another.
func Resample(samples []float64, from, to int) ([]float64, error) {
	if from <= 0 || to <= 0 {
		return nil, fmt.Errorf("invalid resample rates %d -> %d", from, to)
	}
	if from == to || len(samples) == 0 {
		return append([]float64(nil), samples...), nil
	}
	g := gcd(from, to)
	out, err := resample.Resample(samples, to/g, from/g, resample.WithQuality(resample.QualityBalanced))
	if err != nil {
		return nil, fmt.Errorf("resample %d -> %d: %w", from, to, err)
	}
	return out, nil
}

// FadeOut applies a Hann-shaped taper over the last n samples in place.
func FadeOut(samples []float64, n int) {
	if n <= 0 || len(samples) == 0 {
		return
	}
	n = min(n, len(samples))
	w := window.Generate(window.TypeHann, 2*n)
	start := len(samples) - n
	for i := 0; i < n; i++ {
		samples[start+i] *= w[n+i]
	}
}

// FadeIn applies a Hann-shaped ramp over the first n samples in place.
func FadeIn(samples []float64, n int) {
	if n <= 0 || len(samples) == 0 {
		return
	}
	n = min(n, len(samples))
	w := window.Generate(window.TypeHann, 2*n)
	for i := 0; i < n; i++ {
		samples[i] *= w[i]
	}
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

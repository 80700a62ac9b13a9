package dsp

import "math"

// Peak returns the largest absolute sample value.
func Peak(samples []float64) float64 {
	peak := 0.0
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return peak
}

// RMS returns the root mean square level.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Normalize scales samples in place so the peak equals headroom. Silent
// input is left untouched.
func Normalize(samples []float64, headroom float64) {
	peak := Peak(samples)
	if peak == 0 {
		return
	}
	Scale(samples, headroom/peak)
}

// Scale multiplies samples in place by gain.
func Scale(samples []float64, gain float64) {
	for i := range samples {
		samples[i] *= gain
	}
}

// MatchRMS scales out in place so its RMS equals that of ref.
func MatchRMS(out, ref []float64) {
	have := RMS(out)
	if have == 0 {
		return
	}
	Scale(out, RMS(ref)/have)
}

// Quantize converts samples to signed 16-bit PCM, clamping out-of-range values.
func Quantize(samples []float64) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := math.Round(s * 32767)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		out[i] = int16(v)
	}
	return out
}

// Dequantize converts signed 16-bit PCM back to floats in [-1, 1).
func Dequantize(pcm []int16) []float64 {
	out := make([]float64, len(pcm))
	for i, v := range pcm {
		out[i] = float64(v) / 32768
	}
	return out
}

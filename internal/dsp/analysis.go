package dsp

import "math"

// ToneEnergy measures the power of a single frequency using the Goertzel
// recurrence.
func ToneEnergy(samples []float64, sampleRate int, freq float64) float64 {
	if len(samples) == 0 || sampleRate <= 0 {
		return 0
	}
	coeff := 2 * math.Cos(2*math.Pi*freq/float64(sampleRate))
	var s1, s2 float64
	for _, x := range samples {
		s0 := x + coeff*s1 - s2
		s2, s1 = s1, s0
	}
	return s1*s1 + s2*s2 - coeff*s1*s2
}

// DominantFrequency scans [lo, hi] in step increments and returns the
// frequency carrying the most energy.
func DominantFrequency(samples []float64, sampleRate int, lo, hi, step float64) float64 {
	if step <= 0 || hi < lo {
		return 0
	}
	best, bestEnergy := lo, -1.0
	for f := lo; f <= hi; f += step {
		if e := ToneEnergy(samples, sampleRate, f); e > bestEnergy {
			best, bestEnergy = f, e
		}
	}
	return best
}

// BandCentroid returns the energy-weighted mean frequency in [lo, hi],
// probed every step Hz. It is robust to vibrato, which spreads a partial
// over a band rather than a single bin.
func BandCentroid(samples []float64, sampleRate int, lo, hi, step float64) float64 {
	if step <= 0 || hi < lo {
		return 0
	}
	var weighted, total float64
	for f := lo; f <= hi; f += step {
		e := ToneEnergy(samples, sampleRate, f)
		weighted += e * f
		total += e
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

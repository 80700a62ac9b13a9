// Package dsp contains the sample-level building blocks shared by the vocal
// engines and the correction stages.
package dsp

import "math"

// SampleRate is the rate of every buffer handed between pipeline stages.
const SampleRate = 44100

// Buffer is mono audio with samples nominally in [-1, 1]. A Buffer is owned
// by the stage that produced it; stages that change samples return a new one.
type Buffer struct {
	Samples    []float64
	SampleRate int
}

// NewBuffer allocates a silent buffer of n samples.
func NewBuffer(n, sampleRate int) Buffer {
	return Buffer{Samples: make([]float64, n), SampleRate: sampleRate}
}

// Len returns the number of samples.
func (b Buffer) Len() int { return len(b.Samples) }

// Duration returns the length in seconds.
func (b Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// Clone returns a deep copy.
func (b Buffer) Clone() Buffer {
	return Buffer{Samples: append([]float64(nil), b.Samples...), SampleRate: b.SampleRate}
}

// SampleCount converts seconds into a whole number of samples.
func SampleCount(seconds float64, sampleRate int) int {
	if seconds <= 0 || sampleRate <= 0 {
		return 0
	}
	return int(math.Round(seconds * float64(sampleRate)))
}

// Concat joins buffers of the same rate into a new buffer.
func Concat(sampleRate int, parts ...[]float64) Buffer {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	out := make([]float64, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return Buffer{Samples: out, SampleRate: sampleRate}
}

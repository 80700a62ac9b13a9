package dsp

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/window"
	algofft "github.com/cwbudde/algo-fft"
)

const (
	// DefaultFrameSize is the STFT frame length used for pitch correction.
	DefaultFrameSize = 2048
	// DefaultHop gives 75% frame overlap.
	DefaultHop = 512

	normFloor = 1e-12
	ratioEps  = 1e-9
)

// ErrBadRatio is returned for non-positive or non-finite shift ratios.
var ErrBadRatio = errors.New("pitch ratio must be positive and finite")

// Shifter moves the spectrum of a signal by a frequency ratio. Each STFT
// frame is remapped bin by bin: source bin j lands on bin round(j*ratio) and
// bins that land beyond Nyquist are dropped. Phases are re-accumulated from
// instantaneous frequency so overlapping frames stay coherent.
//
// A Shifter owns its FFT plan and is not safe for concurrent use.
type Shifter struct {
	frameSize int
	hop       int
	plan      *algofft.Plan[complex128]
	window    []float64
	omega     []float64
}

// NewShifter builds a shifter. frameSize must be a power of two and hop
// must lie in (0, frameSize).
func NewShifter(frameSize, hop int) (*Shifter, error) {
	if frameSize < 64 || frameSize&(frameSize-1) != 0 {
		return nil, fmt.Errorf("frame size must be a power of two >= 64: %d", frameSize)
	}
	if hop <= 0 || hop >= frameSize {
		return nil, fmt.Errorf("hop must be in [1, %d): %d", frameSize, hop)
	}
	plan, err := algofft.NewPlan64(frameSize)
	if err != nil {
		return nil, fmt.Errorf("create fft plan: %w", err)
	}
	coeffs := window.Generate(window.TypeHann, frameSize, window.WithPeriodic())
	if len(coeffs) != frameSize {
		return nil, fmt.Errorf("window generation failed for size %d", frameSize)
	}
	half := frameSize / 2
	omega := make([]float64, half+1)
	for k := range omega {
		omega[k] = 2 * math.Pi * float64(k) / float64(frameSize)
	}
	return &Shifter{frameSize: frameSize, hop: hop, plan: plan, window: coeffs, omega: omega}, nil
}

// Shift returns a pitch-shifted copy of input with the same length and the
// same RMS level. A ratio of 1 returns an unmodified copy.
func (s *Shifter) Shift(input []float64, ratio float64) ([]float64, error) {
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio <= 0 {
		return nil, fmt.Errorf("%w: %f", ErrBadRatio, ratio)
	}
	out := make([]float64, len(input))
	if len(input) == 0 {
		return out, nil
	}
	if math.Abs(ratio-1) < ratioEps {
		copy(out, input)
		return out, nil
	}

	n := s.frameSize
	half := n / 2
	hop := float64(s.hop)

	spectrum := make([]complex128, n)
	synth := make([]complex128, n)
	frame := make([]complex128, n)
	norm := make([]float64, len(input))
	mags := make([]float64, half+1)
	inst := make([]float64, half+1)
	prevPhase := make([]float64, half+1)
	sumPhase := make([]float64, half+1)
	outMag := make([]float64, half+1)
	outFreq := make([]float64, half+1)
	strongest := make([]float64, half+1)

	// Frames start before the buffer so every sample sees full overlap.
	for pos := -(n - s.hop); pos < len(input); pos += s.hop {
		for i := 0; i < n; i++ {
			x := 0.0
			if idx := pos + i; idx >= 0 && idx < len(input) {
				x = input[idx]
			}
			spectrum[i] = complex(x*s.window[i], 0)
		}
		if err := s.plan.Forward(spectrum, spectrum); err != nil {
			return nil, fmt.Errorf("forward fft: %w", err)
		}

		for k := 0; k <= half; k++ {
			re, im := real(spectrum[k]), imag(spectrum[k])
			mags[k] = math.Hypot(re, im)
			phase := math.Atan2(im, re)
			delta := wrapPhase(phase - prevPhase[k] - s.omega[k]*hop)
			inst[k] = s.omega[k] + delta/hop
			prevPhase[k] = phase
		}

		for k := range outMag {
			outMag[k] = 0
			outFreq[k] = s.omega[k]
			strongest[k] = -1
		}
		for j := 0; j <= half; j++ {
			dest := int(math.Round(float64(j) * ratio))
			if dest > half {
				continue
			}
			outMag[dest] += mags[j]
			if mags[j] > strongest[dest] {
				strongest[dest] = mags[j]
				outFreq[dest] = inst[j] * ratio
			}
		}

		for k := 0; k <= half; k++ {
			sumPhase[k] += outFreq[k] * hop
			synth[k] = complex(outMag[k]*math.Cos(sumPhase[k]), outMag[k]*math.Sin(sumPhase[k]))
		}
		synth[0] = complex(real(synth[0]), 0)
		synth[half] = complex(real(synth[half]), 0)
		for k := 1; k < half; k++ {
			v := synth[k]
			synth[n-k] = complex(real(v), -imag(v))
		}

		if err := s.plan.Inverse(frame, synth); err != nil {
			return nil, fmt.Errorf("inverse fft: %w", err)
		}
		for i := 0; i < n; i++ {
			idx := pos + i
			if idx < 0 || idx >= len(input) {
				continue
			}
			w := s.window[i]
			out[idx] += real(frame[i]) * w
			norm[idx] += w * w
		}
	}

	for i := range out {
		if norm[i] > normFloor {
			out[i] /= norm[i]
		}
	}
	MatchRMS(out, input)
	return out, nil
}

func wrapPhase(x float64) float64 {
	x = math.Mod(x+math.Pi, 2*math.Pi)
	if x < 0 {
		x += 2 * math.Pi
	}
	return x - math.Pi
}

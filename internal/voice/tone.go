// Package voice renders the built-in singing voice: an additive
// harmonic/formant synthesizer and a plain sine fallback.
package voice

import (
	"math"
	"math/rand/v2"

	"github.com/loqalabs/loqa-sing/internal/dsp"
	"github.com/loqalabs/loqa-sing/internal/timbre"
)

const (
	attackS      = 0.05
	decayS       = 0.1
	releaseS     = 0.2
	sustainLevel = 0.85

	breathRateHz = 0.5
	breathDepth  = 0.02

	formantLevel = 0.3
	formantDecay = 2.0
)

// Params controls the additive synthesizer.
type Params struct {
	SampleRate     int
	BoostSemitones float64
	VibratoRateHz  float64
	VibratoDepth   float64
	Headroom       float64
	NoiseLevel     float64
	// MinNoteS is the shortest tone ever rendered; shorter notes are cut
	// from a tone of this length.
	MinNoteS float64
	// Seed makes the noise floor reproducible.
	Seed uint64
}

// DefaultParams returns the stock voice settings.
func DefaultParams() Params {
	return Params{
		SampleRate:     dsp.SampleRate,
		BoostSemitones: 12,
		VibratoRateHz:  5.2,
		VibratoDepth:   0.08,
		Headroom:       0.8,
		NoiseLevel:     0.001,
		MinNoteS:       1.0,
		Seed:           1,
	}
}

// SynthesizeTone renders one sung vowel at freqHz for durationS seconds.
// The pitch is boosted and frequency-modulated before the partials are
// summed, so every harmonic follows the vibrato.
func SynthesizeTone(freqHz, durationS float64, profile timbre.Profile, p Params) dsp.Buffer {
	n := dsp.SampleCount(durationS, p.SampleRate)
	buf := dsp.NewBuffer(n, p.SampleRate)
	if n == 0 || freqHz <= 0 {
		return buf
	}
	sr := float64(p.SampleRate)
	nyquist := sr / 2
	base := freqHz * math.Pow(2, p.BoostSemitones/12)
	peakFreq := base * (1 + math.Abs(p.VibratoDepth))
	env := newEnvelope(durationS)

	phase := 0.0
	for i := 0; i < n; i++ {
		t := float64(i) / sr
		v := 0.0
		for k, amp := range profile.Harmonics {
			if float64(k+1)*peakFreq >= nyquist {
				break
			}
			v += amp * math.Sin(float64(k+1)*phase)
		}
		formantGain := formantLevel * math.Exp(-formantDecay*t)
		for _, f := range profile.Formants {
			if f >= nyquist {
				continue
			}
			v += formantGain * math.Sin(2*math.Pi*f*t)
		}
		breath := 1 + breathDepth*math.Sin(2*math.Pi*breathRateHz*t)
		buf.Samples[i] = v * env.at(t) * breath

		inst := base * (1 + p.VibratoDepth*math.Sin(2*math.Pi*p.VibratoRateHz*t))
		phase += 2 * math.Pi * inst / sr
	}

	dsp.Normalize(buf.Samples, p.Headroom)
	if p.NoiseLevel > 0 {
		rng := rand.New(rand.NewPCG(p.Seed, math.Float64bits(freqHz)))
		for i := range buf.Samples {
			buf.Samples[i] += p.NoiseLevel * rng.NormFloat64()
		}
	}
	return buf
}

// envelope is an ADSR shape with raised-cosine attack and release. Segment
// lengths shrink proportionally when the note is shorter than their sum.
type envelope struct {
	attack, decay, release, total float64
}

func newEnvelope(total float64) envelope {
	e := envelope{attack: attackS, decay: decayS, release: releaseS, total: total}
	if sum := e.attack + e.decay + e.release; sum > total {
		scale := total / sum
		e.attack *= scale
		e.decay *= scale
		e.release *= scale
	}
	return e
}

func (e envelope) at(t float64) float64 {
	switch {
	case t >= e.total:
		return 0
	case t >= e.total-e.release:
		r := math.Sin(math.Pi / 2 * (e.total - t) / e.release)
		return sustainLevel * r * r
	case t < e.attack:
		a := math.Sin(math.Pi / 2 * t / e.attack)
		return a * a
	case t < e.attack+e.decay:
		return 1 - (1-sustainLevel)*(t-e.attack)/e.decay
	default:
		return sustainLevel
	}
}

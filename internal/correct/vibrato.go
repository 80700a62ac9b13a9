package correct

import (
	"math"

	"github.com/loqalabs/loqa-sing/internal/dsp"
	"github.com/loqalabs/loqa-sing/internal/music"
)

// Vibrato is an amplitude modulation applied to sustained notes.
type Vibrato struct {
	RateHz   float64
	Depth    float64
	MinNoteS float64
}

// DefaultVibrato returns the stock expression settings.
func DefaultVibrato() Vibrato {
	return Vibrato{RateHz: 5, Depth: 0.02, MinNoteS: 1.0}
}

// Apply returns a copy of buf with vibrato on every note lasting at least
// MinNoteS. Shorter notes are untouched.
func (v Vibrato) Apply(buf dsp.Buffer, notes []music.NoteEvent) dsp.Buffer {
	out := buf.Clone()
	sr := float64(out.SampleRate)
	for _, note := range notes {
		if note.DurationS < v.MinNoteS {
			continue
		}
		start := min(dsp.SampleCount(note.StartS, out.SampleRate), out.Len())
		end := min(dsp.SampleCount(note.EndS(), out.SampleRate), out.Len())
		for i := start; i < end; i++ {
			t := float64(i-start) / sr
			out.Samples[i] *= 1 + v.Depth*math.Sin(2*math.Pi*v.RateHz*t)
		}
	}
	return out
}

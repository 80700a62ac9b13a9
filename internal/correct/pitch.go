package correct

import (
	"fmt"
	"math"

	"github.com/loqalabs/loqa-sing/internal/dsp"
	"github.com/loqalabs/loqa-sing/internal/music"
)

// PitchCorrector moves every note of a duration-matched buffer from the
// assumed source pitch to its target, then shifts the whole buffer by a
// fixed timbre ratio.
type PitchCorrector struct {
	// ReferenceHz is the pitch the source voice is assumed to sing at.
	ReferenceHz float64
	// Tolerance is the relative ratio deviation left uncorrected.
	Tolerance float64
	// GlobalRatio is applied to the entire buffer after the per-note pass.
	GlobalRatio float64
	FrameSize   int
	Hop         int
}

// DefaultPitchCorrector returns the stock corrector settings.
func DefaultPitchCorrector() PitchCorrector {
	return PitchCorrector{
		ReferenceHz: music.C4Frequency,
		Tolerance:   0.05,
		GlobalRatio: 1.2,
		FrameSize:   dsp.DefaultFrameSize,
		Hop:         dsp.DefaultHop,
	}
}

// NoteRatio returns the shift for a note, or false when the note is close
// enough to the reference to be left alone.
func (c PitchCorrector) NoteRatio(targetHz float64) (float64, bool) {
	if c.ReferenceHz <= 0 || targetHz <= 0 {
		return 1, false
	}
	ratio := targetHz / c.ReferenceHz
	if math.Abs(ratio-1) <= c.Tolerance {
		return 1, false
	}
	return ratio, true
}

// Correct returns a pitch-corrected copy of buf. notes carry the target
// timings used to slice buf into per-note windows.
func (c PitchCorrector) Correct(buf dsp.Buffer, notes []music.NoteEvent) (dsp.Buffer, error) {
	out := buf.Clone()
	if out.Len() == 0 {
		return out, nil
	}
	shifter, err := dsp.NewShifter(c.FrameSize, c.Hop)
	if err != nil {
		return dsp.Buffer{}, fmt.Errorf("pitch corrector: %w", err)
	}

	for _, note := range notes {
		ratio, ok := c.NoteRatio(note.FrequencyHz)
		if !ok {
			continue
		}
		start := min(dsp.SampleCount(note.StartS, out.SampleRate), out.Len())
		end := min(dsp.SampleCount(note.EndS(), out.SampleRate), out.Len())
		if end <= start {
			continue
		}
		shifted, err := shifter.Shift(out.Samples[start:end], ratio)
		if err != nil {
			return dsp.Buffer{}, fmt.Errorf("shift note %s: %w", note.Label, err)
		}
		copy(out.Samples[start:end], shifted)
	}

	if c.GlobalRatio > 0 && c.GlobalRatio != 1 {
		shifted, err := shifter.Shift(out.Samples, c.GlobalRatio)
		if err != nil {
			return dsp.Buffer{}, fmt.Errorf("global shift: %w", err)
		}
		out.Samples = shifted
	}
	return out, nil
}

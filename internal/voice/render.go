package voice

import (
	"math"

	"github.com/loqalabs/loqa-sing/internal/dsp"
	"github.com/loqalabs/loqa-sing/internal/lyrics"
	"github.com/loqalabs/loqa-sing/internal/music"
	"github.com/loqalabs/loqa-sing/internal/timbre"
)

const (
	mathAmplitude = 0.3
	mathRampS     = 0.05
)

// Render sings every aligned segment with the additive synthesizer. Each
// tone is rendered for at least MinNoteS and then fitted into its note
// slot, so the result is exactly as long as the notes.
func Render(segments []lyrics.AlignedSegment, table *timbre.Table, p Params) dsp.Buffer {
	if len(segments) == 0 {
		return dsp.NewBuffer(0, p.SampleRate)
	}
	last := segments[len(segments)-1].Note
	out := dsp.NewBuffer(dsp.SampleCount(last.EndS(), p.SampleRate), p.SampleRate)
	releaseSamples := dsp.SampleCount(releaseS, p.SampleRate)

	for i, seg := range segments {
		start, end := slot(seg.Note, p.SampleRate, out.Len())
		if end <= start {
			continue
		}
		toneParams := p
		toneParams.Seed = p.Seed + uint64(i)
		dur := math.Max(p.MinNoteS, seg.Note.DurationS)
		tone := SynthesizeTone(seg.Note.FrequencyHz, dur, table.ForGrapheme(seg.Grapheme), toneParams)

		part := out.Samples[start:end]
		copied := copy(part, tone.Samples)
		if tone.Len() > len(part) {
			// Cut tones need their own release so slots do not click.
			dsp.FadeOut(part[:copied], min(releaseSamples, copied/2))
		}
	}
	return out
}

// MathTones renders one low-level sine per note with short linear ramps.
// It depends on nothing but the note list and always succeeds.
func MathTones(notes []music.NoteEvent, sampleRate int) dsp.Buffer {
	if len(notes) == 0 {
		return dsp.NewBuffer(0, sampleRate)
	}
	out := dsp.NewBuffer(dsp.SampleCount(notes[len(notes)-1].EndS(), sampleRate), sampleRate)
	ramp := dsp.SampleCount(mathRampS, sampleRate)
	for _, note := range notes {
		start, end := slot(note, sampleRate, out.Len())
		n := end - start
		if n <= 0 {
			continue
		}
		r := min(ramp, n/2)
		for i := 0; i < n; i++ {
			gain := 1.0
			if r > 0 {
				switch {
				case i < r:
					gain = float64(i) / float64(r)
				case i >= n-r:
					gain = float64(n-1-i) / float64(r)
				}
			}
			t := float64(i) / float64(sampleRate)
			out.Samples[start+i] = mathAmplitude * gain * math.Sin(2*math.Pi*note.FrequencyHz*t)
		}
	}
	return out
}

func slot(note music.NoteEvent, sampleRate, limit int) (int, int) {
	start := min(dsp.SampleCount(note.StartS, sampleRate), limit)
	end := min(dsp.SampleCount(note.EndS(), sampleRate), limit)
	return start, end
}

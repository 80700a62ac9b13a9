package correct

import (
	"github.com/loqalabs/loqa-sing/internal/dsp"
	"github.com/loqalabs/loqa-sing/internal/music"
)

// Chain runs the full correction of a collaborator recording: duration
// matching, then pitch correction, then vibrato and peak normalisation.
// Looping happens before pitch correction so repeated material is shifted
// along with the rest of its note.
type Chain struct {
	Pitch    PitchCorrector
	Vibrato  Vibrato
	Headroom float64
}

// DefaultChain returns the stock correction chain.
func DefaultChain() Chain {
	return Chain{Pitch: DefaultPitchCorrector(), Vibrato: DefaultVibrato(), Headroom: 0.8}
}

// Run corrects raw against notes.
func (c Chain) Run(raw dsp.Buffer, notes []music.NoteEvent) (dsp.Buffer, error) {
	matched := MatchDuration(raw, music.TotalDuration(notes))
	pitched, err := c.Pitch.Correct(matched, notes)
	if err != nil {
		return dsp.Buffer{}, err
	}
	out := c.Vibrato.Apply(pitched, notes)
	dsp.Normalize(out.Samples, c.Headroom)
	return out, nil
}

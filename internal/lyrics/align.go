package lyrics

import (
	"strings"

	"github.com/loqalabs/loqa-sing/internal/music"
)

// AlignedSegment pairs one grapheme with the note it is sung on.
type AlignedSegment struct {
	Grapheme string          `json:"grapheme"`
	Note     music.NoteEvent `json:"note"`
}

// Align pairs lyric graphemes with notes one to one. Short lyrics repeat
// their final grapheme, long lyrics are truncated, and an empty lyric sings
// DefaultGrapheme on every note. The result always has len(notes) entries.
func Align(lyric string, notes []music.NoteEvent) []AlignedSegment {
	graphemes := Graphemes(lyric)
	if len(graphemes) == 0 {
		graphemes = []string{DefaultGrapheme}
	}
	segments := make([]AlignedSegment, len(notes))
	for i, note := range notes {
		g := graphemes[len(graphemes)-1]
		if i < len(graphemes) {
			g = graphemes[i]
		}
		segments[i] = AlignedSegment{Grapheme: g, Note: note}
	}
	return segments
}

// Text joins the graphemes of segments back into the lyric actually sung.
func Text(segments []AlignedSegment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Grapheme)
	}
	return b.String()
}

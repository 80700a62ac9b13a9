package tts

import (
	"fmt"
	"html"
	"strings"

	"github.com/loqalabs/loqa-sing/internal/lyrics"
	"github.com/loqalabs/loqa-sing/internal/music"
)

const (
	pitchMultiplier = 10
	ssmlLang        = "ja-JP"
)

// PitchHint derives the coarse collaborator pitch from the first note,
// raised by boostSemitones, as a "+NHz" offset.
func PitchHint(notes []music.NoteEvent, boostSemitones int) string {
	if len(notes) == 0 {
		return "+0Hz"
	}
	control := music.PitchControl(notes[0].Label, pitchMultiplier, boostSemitones*pitchMultiplier)
	return fmt.Sprintf("%+dHz", control*2)
}

// RateHint maps the requested song length to a speaking rate. Long songs
// are slowed down so less looping is needed afterwards.
func RateHint(totalS float64) string {
	switch {
	case totalS < 3:
		return "+20%"
	case totalS > 15:
		return "-50%"
	case totalS > 8:
		return "-40%"
	default:
		return "-20%"
	}
}

// NoteRate buckets one note's length into an SSML prosody rate.
func NoteRate(durationS float64) string {
	switch {
	case durationS < 0.4:
		return "fast"
	case durationS < 0.8:
		return "medium"
	default:
		return "slow"
	}
}

// BuildSSML renders one prosody element per aligned segment.
func BuildSSML(segments []lyrics.AlignedSegment, voice string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="%s">`, ssmlLang)
	fmt.Fprintf(&b, `<voice name="%s">`, html.EscapeString(voice))
	for _, seg := range segments {
		fmt.Fprintf(&b, `<prosody pitch="%s" rate="%s">%s</prosody>`,
			music.PitchPercent(seg.Note.Label),
			NoteRate(seg.Note.DurationS),
			html.EscapeString(seg.Grapheme))
	}
	b.WriteString(`</voice></speak>`)
	return b.String()
}

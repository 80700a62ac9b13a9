package engine

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/loqalabs/loqa-sing/internal/music"
)

// FieldSeparator splits note and duration lists in textual requests.
const FieldSeparator = "|"

// Request is a validated sing request.
type Request struct {
	Lyric string
	Notes []music.NoteEvent
	// Voice optionally overrides the configured collaborator voice.
	Voice string
	// Prefer optionally overrides the configured first engine.
	Prefer *EngineID
}

// TotalDuration is the requested song length in seconds.
func (r Request) TotalDuration() float64 { return music.TotalDuration(r.Notes) }

// NewRequest validates labels and durations and resolves them into notes.
// Unknown note labels are logged and sung as C4.
func NewRequest(lyric string, labels []string, durations []float64, log *slog.Logger) (Request, error) {
	if len(labels) == 0 {
		return Request{}, &ValidationError{Field: "notes", Reason: "at least one note is required"}
	}
	if len(labels) != len(durations) {
		return Request{}, &ValidationError{
			Field:  "durations",
			Reason: fmt.Sprintf("got %d durations for %d notes", len(durations), len(labels)),
		}
	}
	for i, d := range durations {
		if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
			return Request{}, &ValidationError{
				Field:  "durations",
				Reason: fmt.Sprintf("duration %d must be a positive number of seconds, got %v", i, d),
			}
		}
	}
	return Request{Lyric: lyric, Notes: music.BuildEvents(labels, durations, log)}, nil
}

// ParseRequest builds a request from "|"-delimited note labels and
// durations such as "C4|D4|E4" and "0.5|0.5|1".
func ParseRequest(lyric, notes, durations string, log *slog.Logger) (Request, error) {
	labels := splitFields(notes)
	fields := splitFields(durations)
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Request{}, &ValidationError{
				Field:  "durations",
				Reason: fmt.Sprintf("cannot parse %q as seconds", f),
			}
		}
		values[i] = v
	}
	return NewRequest(lyric, labels, values, log)
}

// splitFields trims every field and drops empty trailing ones.
func splitFields(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, FieldSeparator)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

package music

import "log/slog"

// NoteEvent is one note of a request with its resolved frequency and timing.
type NoteEvent struct {
	Label       string  `json:"label"`
	FrequencyHz float64 `json:"frequency_hz"`
	DurationS   float64 `json:"duration_s"`
	StartS      float64 `json:"start_s"`
}

// EndS is the time at which the note stops sounding.
func (n NoteEvent) EndS() float64 { return n.StartS + n.DurationS }

// BuildEvents resolves labels and accumulates start times. labels and
// durations must have equal length; extra entries of the longer slice are
// ignored. Unparsable labels are logged and resolved to C4.
func BuildEvents(labels []string, durations []float64, log *slog.Logger) []NoteEvent {
	n := min(len(labels), len(durations))
	events := make([]NoteEvent, 0, n)
	start := 0.0
	for i := 0; i < n; i++ {
		freq, err := Resolve(labels[i])
		if err != nil && log != nil {
			log.Warn("note label fell back to C4",
				slog.String("label", labels[i]),
				slog.Float64("frequency_hz", freq),
				slog.String("error", err.Error()))
		}
		events = append(events, NoteEvent{
			Label:       labels[i],
			FrequencyHz: freq,
			DurationS:   durations[i],
			StartS:      start,
		})
		start += durations[i]
	}
	return events
}

// TotalDuration sums the durations of events.
func TotalDuration(events []NoteEvent) float64 {
	total := 0.0
	for _, e := range events {
		total += e.DurationS
	}
	return total
}

package music

import (
	"errors"
	"math"
	"testing"
)

func TestSemitonesFromA4(t *testing.T) {
	cases := []struct {
		label string
		want  int
	}{
		{"A4", 0},
		{"C4", -9},
		{"C#4", -8},
		{"Db4", -8},
		{"B3", -10},
		{"Bb4", 1},
		{"A#4", 1},
		{"C5", 3},
		{"A0", -48},
		{"G#9", 59},
		{" E4 ", -5},
	}
	for _, tc := range cases {
		got, err := SemitonesFromA4(tc.label)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.label, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %d semitones, got %d", tc.label, tc.want, got)
		}
	}
}

func TestSemitonesFromA4Invalid(t *testing.T) {
	for _, label := range []string{"", "C", "H4", "C##4", "Cx4", "4", "c4", "C-1"} {
		if _, err := SemitonesFromA4(label); !errors.Is(err, ErrInvalidLabel) {
			t.Fatalf("%q: expected ErrInvalidLabel, got %v", label, err)
		}
	}
}

func TestFrequencyKnownValues(t *testing.T) {
	cases := map[string]float64{
		"A4":  440.0,
		"A5":  880.0,
		"A3":  220.0,
		"C4":  261.6256,
		"E4":  329.6276,
		"C#5": 554.3653,
	}
	for label, want := range cases {
		if got := Frequency(label); math.Abs(got-want) > 0.01 {
			t.Fatalf("%s: expected %.4f Hz, got %.4f", label, want, got)
		}
	}
}

func TestFrequencyFallsBackToC4(t *testing.T) {
	for _, label := range []string{"", "X4", "C", "Q#"} {
		if got := Frequency(label); got != C4Frequency {
			t.Fatalf("%q: expected fallback %.2f, got %.4f", label, C4Frequency, got)
		}
	}
	freq, err := Resolve("nope")
	if err == nil || freq != C4Frequency {
		t.Fatalf("expected fallback with error, got %.2f, %v", freq, err)
	}
}

func TestFrequencyRoundTrip(t *testing.T) {
	letters := []string{"C", "C#", "Db", "D", "D#", "Eb", "E", "F", "F#", "Gb", "G", "G#", "Ab", "A", "A#", "Bb", "B"}
	for octave := 0; octave <= 9; octave++ {
		for _, letter := range letters {
			label := letter + string(rune('0'+octave))
			want, err := SemitonesFromA4(label)
			if err != nil {
				t.Fatalf("%s: %v", label, err)
			}
			freq := Frequency(label)
			got := SemitonesFromFrequency(freq)
			back := FrequencyFromSemitones(float64(want))
			if math.Abs(got-float64(want)) > 1e-9 || math.Abs(back-freq) > 0.01 {
				t.Fatalf("%s: round trip mismatch: semitones %.6f vs %d", label, got, want)
			}
		}
	}
}

func TestPitchPercent(t *testing.T) {
	cases := map[string]string{
		"C4":  "+0.0%",
		"D4":  "+11.9%",
		"B3":  "-5.9%",
		"bad": "+0.0%",
	}
	for label, want := range cases {
		if got := PitchPercent(label); got != want {
			t.Fatalf("%s: expected %s, got %s", label, want, got)
		}
	}
}

func TestPitchControlClamps(t *testing.T) {
	if got := PitchControl("A4", 10, 0); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := PitchControl("C4", 10, 120); got != 30 {
		t.Fatalf("expected 30, got %d", got)
	}
	if got := PitchControl("A6", 10, 120); got != 80 {
		t.Fatalf("expected clamp to 80, got %d", got)
	}
	if got := PitchControl("A1", 10, 0); got != -50 {
		t.Fatalf("expected clamp to -50, got %d", got)
	}
	if got := PitchControl("zz", 10, 20); got != 20 {
		t.Fatalf("expected offset for invalid label, got %d", got)
	}
}

func TestBuildEventsStartTimes(t *testing.T) {
	durations := []float64{0.5, 0.25, 1.0, 0.125}
	events := BuildEvents([]string{"C4", "D4", "bogus", "E4"}, durations, nil)
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	sum := 0.0
	for i, e := range events {
		if e.StartS != sum {
			t.Fatalf("event %d: expected start %.3f, got %.3f", i, sum, e.StartS)
		}
		sum += durations[i]
	}
	if events[2].FrequencyHz != C4Frequency {
		t.Fatalf("expected bogus label to resolve to C4, got %.2f", events[2].FrequencyHz)
	}
	if TotalDuration(events) != 1.875 {
		t.Fatalf("unexpected total %.3f", TotalDuration(events))
	}
}

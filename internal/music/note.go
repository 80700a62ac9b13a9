package music

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	// A4Frequency is the tuning reference for 12-tone equal temperament.
	A4Frequency = 440.0
	// C4Frequency is returned for labels that cannot be parsed.
	C4Frequency = 261.63
)

// ErrInvalidLabel is wrapped by every label parse failure.
var ErrInvalidLabel = errors.New("invalid note label")

// offsets from A within the same octave.
var letterOffsets = map[byte]int{
	'C': -9,
	'D': -7,
	'E': -5,
	'F': -4,
	'G': -2,
	'A': 0,
	'B': 2,
}

// SemitonesFromA4 parses a note label such as "C4", "C#4" or "Db3" and returns
// its distance from A4 in semitones.
func SemitonesFromA4(label string) (int, error) {
	label = strings.TrimSpace(label)
	if len(label) < 2 {
		return 0, fmt.Errorf("%w %q: too short", ErrInvalidLabel, label)
	}
	last := label[len(label)-1]
	if last < '0' || last > '9' {
		return 0, fmt.Errorf("%w %q: missing octave digit", ErrInvalidLabel, label)
	}
	octave := int(last - '0')

	name := label[:len(label)-1]
	offset, ok := letterOffsets[name[0]]
	if !ok {
		return 0, fmt.Errorf("%w %q: unknown note letter", ErrInvalidLabel, label)
	}
	switch name[1:] {
	case "":
	case "#":
		offset++
	case "b":
		offset--
	default:
		return 0, fmt.Errorf("%w %q: unknown accidental", ErrInvalidLabel, label)
	}
	return (octave-4)*12 + offset, nil
}

// Resolve returns the frequency for label. On parse failure it returns
// C4Frequency together with the parse error so callers can log it.
func Resolve(label string) (float64, error) {
	semitones, err := SemitonesFromA4(label)
	if err != nil {
		return C4Frequency, err
	}
	return FrequencyFromSemitones(float64(semitones)), nil
}

// Frequency maps a note label to Hz and never fails.
func Frequency(label string) float64 {
	freq, _ := Resolve(label)
	return freq
}

// FrequencyFromSemitones returns 440 * 2^(n/12).
func FrequencyFromSemitones(n float64) float64 {
	return A4Frequency * math.Pow(2, n/12)
}

// SemitonesFromFrequency is the inverse of FrequencyFromSemitones.
func SemitonesFromFrequency(freq float64) float64 {
	if freq <= 0 {
		return math.Inf(-1)
	}
	return 12 * math.Log2(freq/A4Frequency)
}

// Ratio converts a semitone offset into a frequency multiplier.
func Ratio(semitones float64) float64 {
	return math.Pow(2, semitones/12)
}

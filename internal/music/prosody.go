package music

import "fmt"

// percentPerSemitone approximates one equal-tempered semitone as a relative pitch change.
const percentPerSemitone = 5.946

// PitchPercent renders the offset of label from C4 as an SSML relative pitch
// such as "+11.9%". Invalid labels yield "+0.0%".
func PitchPercent(label string) string {
	semitones, err := SemitonesFromA4(label)
	if err != nil {
		return "+0.0%"
	}
	// C4 is 9 semitones below A4.
	fromC4 := semitones + 9
	return fmt.Sprintf("%+.1f%%", float64(fromC4)*percentPerSemitone)
}

// PitchControl converts label into a coarse collaborator pitch value:
// semitones from A4 times multiplier plus offset, clamped to [-50, 80].
// Invalid labels yield the clamped offset alone.
func PitchControl(label string, multiplier, offset int) int {
	semitones, err := SemitonesFromA4(label)
	if err != nil {
		return clamp(offset, -50, 80)
	}
	return clamp(semitones*multiplier+offset, -50, 80)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

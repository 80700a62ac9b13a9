// Package correct turns an uncontrolled voice recording into one that
// follows the requested notes: it fixes the length, moves each note to its
// target pitch and adds expression.
package correct

import (
	"math"

	"github.com/loqalabs/loqa-sing/internal/dsp"
)

// LoopFraction is the share of the buffer tail reused when extending.
const LoopFraction = 0.3

// MatchDuration returns a copy of buf that is exactly round(targetS*rate)
// samples long. Longer input is truncated; shorter input is extended by
// repeating its last LoopFraction, which keeps pitch intact at the cost of
// audible repetition.
func MatchDuration(buf dsp.Buffer, targetS float64) dsp.Buffer {
	want := dsp.SampleCount(targetS, buf.SampleRate)
	out := dsp.NewBuffer(want, buf.SampleRate)
	have := buf.Len()
	if have >= want {
		copy(out.Samples, buf.Samples[:want])
		return out
	}
	if have == 0 {
		return out
	}
	copy(out.Samples, buf.Samples)
	loopLen := max(1, int(math.Round(float64(have)*LoopFraction)))
	loop := buf.Samples[have-loopLen:]
	for pos := have; pos < want; {
		pos += copy(out.Samples[pos:], loop)
	}
	return out
}

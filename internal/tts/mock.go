package tts

import (
	"context"
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/rivo/uniseg"
)

const (
	mockSyllableS  = 0.25
	mockChunkS     = 0.1
	mockPitchHz    = 261.63
	mockAmplitude  = 0.4
	mockMinSeconds = 0.25
)

type mockSynth struct {
	sampleRate int
	channels   int
}

// NewMockSynth returns a deterministic stand-in collaborator. It "speaks"
// a steady tone at middle C with one amplitude bump per grapheme, shortened
// or lengthened by the rate hint.
func NewMockSynth(sampleRate, channels int) Synthesizer {
	return &mockSynth{sampleRate: sampleRate, channels: max(1, channels)}
}

func (m *mockSynth) Synthesize(ctx context.Context, req SynthRequest) (<-chan SynthChunk, <-chan error) {
	chunks := make(chan SynthChunk)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)

		syllables := max(1, uniseg.GraphemeClusterCount(req.Text))
		seconds := math.Max(mockMinSeconds, float64(syllables)*mockSyllableS/rateFactor(req.RateHint))
		pcm := m.render(seconds, syllables)

		frameBytes := 2 * m.channels
		chunkBytes := int(mockChunkS*float64(m.sampleRate)) * frameBytes
		sequence := 0
		for pos := 0; pos < len(pcm); pos += chunkBytes {
			end := min(pos+chunkBytes, len(pcm))
			chunk := SynthChunk{
				SessionID:  req.SessionID,
				Sequence:   sequence,
				SampleRate: m.sampleRate,
				Channels:   m.channels,
				PCM:        pcm[pos:end],
				Final:      end == len(pcm),
			}
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			case chunks <- chunk:
			}
			sequence++
		}
	}()
	return chunks, errs
}

func (m *mockSynth) render(seconds float64, syllables int) []byte {
	frames := int(math.Round(seconds * float64(m.sampleRate)))
	out := make([]byte, frames*2*m.channels)
	sr := float64(m.sampleRate)
	for i := 0; i < frames; i++ {
		t := float64(i) / sr
		bump := math.Sin(math.Pi * float64(syllables) * t / seconds)
		v := mockAmplitude * math.Abs(bump) * math.Sin(2*math.Pi*mockPitchHz*t)
		sample := uint16(int16(math.Round(v * 32767)))
		for c := 0; c < m.channels; c++ {
			binary.LittleEndian.PutUint16(out[(i*m.channels+c)*2:], sample)
		}
	}
	return out
}

// rateFactor turns a "+20%" style hint into a speed multiplier.
func rateFactor(hint string) float64 {
	hint = strings.TrimSuffix(strings.TrimSpace(hint), "%")
	if hint == "" {
		return 1
	}
	pct, err := strconv.ParseFloat(hint, 64)
	if err != nil || pct <= -100 {
		return 1
	}
	return 1 + pct/100
}

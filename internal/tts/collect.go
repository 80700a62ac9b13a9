package tts

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/loqalabs/loqa-sing/internal/audiofile"
	"github.com/loqalabs/loqa-sing/internal/dsp"
)

// Recording is the complete output of one synthesis call.
type Recording struct {
	PCM        []byte
	SampleRate int
	Channels   int
}

// Collect runs synth and concatenates its chunks. The call is abandoned
// once timeout elapses; a zero timeout only honours ctx.
func Collect(ctx context.Context, synth Synthesizer, req SynthRequest, timeout time.Duration) (Recording, error) {
	if synth == nil {
		return Recording{}, ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return Recording{}, fmt.Errorf("collect tts audio: %w", err)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var rec Recording
	var pcm bytes.Buffer
	chunks, errs := synth.Synthesize(ctx, req)
	for chunks != nil || errs != nil {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				chunks = nil
				continue
			}
			if rec.SampleRate == 0 {
				rec.SampleRate = chunk.SampleRate
				rec.Channels = chunk.Channels
			}
			pcm.Write(chunk.PCM)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return Recording{}, err
			}
		case <-ctx.Done():
			return Recording{}, fmt.Errorf("collect tts audio: %w", ctx.Err())
		}
	}
	if pcm.Len() == 0 {
		return Recording{}, ErrEmptyAudio
	}
	rec.PCM = pcm.Bytes()
	return rec, nil
}

// Buffer decodes the recording into mono samples at targetRate.
func (r Recording) Buffer(targetRate int) (dsp.Buffer, error) {
	return Decode(r.PCM, r.SampleRate, r.Channels, targetRate)
}

// Decode accepts a WAV stream or raw s16le PCM with the given layout,
// down-mixes it to mono and resamples it to targetRate.
func Decode(raw []byte, rate, channels, targetRate int) (dsp.Buffer, error) {
	var buf dsp.Buffer
	if len(raw) >= 12 && string(raw[0:4]) == "RIFF" && string(raw[8:12]) == "WAVE" {
		decoded, err := audiofile.DecodeWAV(bytes.NewReader(raw))
		if err != nil {
			return dsp.Buffer{}, err
		}
		buf = decoded
	} else {
		decoded, err := decodePCM(raw, rate, channels)
		if err != nil {
			return dsp.Buffer{}, err
		}
		buf = decoded
	}
	if buf.Len() == 0 {
		return dsp.Buffer{}, ErrEmptyAudio
	}
	if buf.SampleRate == targetRate {
		return buf, nil
	}
	samples, err := dsp.Resample(buf.Samples, buf.SampleRate, targetRate)
	if err != nil {
		return dsp.Buffer{}, err
	}
	return dsp.Buffer{Samples: samples, SampleRate: targetRate}, nil
}

func decodePCM(raw []byte, rate, channels int) (dsp.Buffer, error) {
	if rate <= 0 {
		return dsp.Buffer{}, fmt.Errorf("pcm sample rate unknown")
	}
	channels = max(1, channels)
	frameBytes := 2 * channels
	if len(raw)%frameBytes != 0 {
		return dsp.Buffer{}, fmt.Errorf("pcm payload not aligned to %d-byte frames", frameBytes)
	}
	frames := len(raw) / frameBytes
	out := dsp.NewBuffer(frames, rate)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for c := 0; c < channels; c++ {
			off := (i*channels + c) * 2
			sum += float64(int16(binary.LittleEndian.Uint16(raw[off:])))
		}
		out.Samples[i] = sum / float64(channels) / 32768
	}
	return out, nil
}

// Package audiofile serializes rendered buffers: 16-bit PCM WAV for the
// primary artifact and Ogg/Opus for compact previews.
package audiofile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/loqalabs/loqa-sing/internal/dsp"
)

const bitDepth = 16

// ErrNotWAV is returned when a payload is not a RIFF/WAVE stream.
var ErrNotWAV = errors.New("not a wav stream")

// EncodeWAV writes buf as mono 16-bit little-endian PCM.
func EncodeWAV(w io.WriteSeeker, buf dsp.Buffer) error {
	if buf.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", buf.SampleRate)
	}
	pcm := dsp.Quantize(buf.Samples)
	data := make([]int, len(pcm))
	for i, v := range pcm {
		data[i] = int(v)
	}
	enc := wav.NewEncoder(w, buf.SampleRate, bitDepth, 1, 1)
	intBuf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: buf.SampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(intBuf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}

// WriteWAV encodes buf into a new file at path, creating parent
// directories as needed.
func WriteWAV(path string, buf dsp.Buffer) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav file: %w", err)
	}
	if err := EncodeWAV(file, buf); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// DecodeWAV reads a PCM WAV stream, averaging channels down to mono. The
// returned buffer keeps the stream's native sample rate.
func DecodeWAV(r io.ReadSeeker) (dsp.Buffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return dsp.Buffer{}, ErrNotWAV
	}
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return dsp.Buffer{}, fmt.Errorf("decode wav: %w", err)
	}
	channels := max(1, pcm.Format.NumChannels)
	depth := int(dec.BitDepth)
	if depth <= 0 {
		depth = bitDepth
	}
	scale := float64(int(1) << (depth - 1))
	frames := len(pcm.Data) / channels
	out := dsp.NewBuffer(frames, pcm.Format.SampleRate)
	for i := 0; i < frames; i++ {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += pcm.Data[i*channels+c]
		}
		out.Samples[i] = float64(sum) / float64(channels) / scale
	}
	return out, nil
}

// ReadWAV decodes the WAV file at path.
func ReadWAV(path string) (dsp.Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return dsp.Buffer{}, fmt.Errorf("open wav: %w", err)
	}
	defer file.Close()
	return DecodeWAV(file)
}

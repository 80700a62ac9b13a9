package audiofile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/thesyncim/gopus"
	"github.com/thesyncim/gopus/container/ogg"

	"github.com/loqalabs/loqa-sing/internal/dsp"
)

const (
	opusRate  = 48000
	opusFrame = 960 // 20 ms
)

// OpusOptions tunes the Opus preview encoder.
type OpusOptions struct {
	// Bitrate in bits per second; zero keeps the encoder default.
	Bitrate int
}

// EncodeOpus writes buf as a mono Ogg/Opus stream. The audio is resampled
// to 48 kHz and the last frame is zero padded.
func EncodeOpus(w io.Writer, buf dsp.Buffer, opts OpusOptions) error {
	samples, err := dsp.Resample(buf.Samples, buf.SampleRate, opusRate)
	if err != nil {
		return err
	}
	enc, err := gopus.NewEncoder(gopus.EncoderConfig{SampleRate: opusRate, Channels: 1, Application: gopus.ApplicationAudio})
	if err != nil {
		return fmt.Errorf("create opus encoder: %w", err)
	}
	if opts.Bitrate > 0 {
		if err := enc.SetBitrate(opts.Bitrate); err != nil {
			return fmt.Errorf("set opus bitrate: %w", err)
		}
	}
	writer, err := ogg.NewWriter(w, opusRate, 1)
	if err != nil {
		return fmt.Errorf("create ogg writer: %w", err)
	}

	frame := make([]float32, opusFrame)
	for pos := 0; pos < len(samples); pos += opusFrame {
		clear(frame)
		end := min(pos+opusFrame, len(samples))
		for i, s := range samples[pos:end] {
			frame[i] = float32(s)
		}
		packet, err := enc.EncodeFloat32(frame)
		if err != nil {
			return fmt.Errorf("encode opus frame: %w", err)
		}
		if err := writer.WritePacket(packet, opusFrame); err != nil {
			return fmt.Errorf("write ogg page: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close ogg stream: %w", err)
	}
	return nil
}

// WriteOpus encodes buf into a new .opus file at path.
func WriteOpus(path string, buf dsp.Buffer, opts OpusOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create opus file: %w", err)
	}
	if err := EncodeOpus(file, buf, opts); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

package audiofile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/loqalabs/loqa-sing/internal/dsp"
)

func testTone() dsp.Buffer {
	buf := dsp.NewBuffer(dsp.SampleCount(0.25, dsp.SampleRate), dsp.SampleRate)
	for i := range buf.Samples {
		buf.Samples[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/dsp.SampleRate)
	}
	return buf
}

func TestWriteWAVHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.wav")
	buf := testTone()
	if err := WriteWAV(path, buf); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("missing RIFF/WAVE header")
	}
	if channels := binary.LittleEndian.Uint16(data[22:24]); channels != 1 {
		t.Fatalf("expected mono, got %d channels", channels)
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != dsp.SampleRate {
		t.Fatalf("expected %d Hz, got %d", dsp.SampleRate, rate)
	}
	if depth := binary.LittleEndian.Uint16(data[34:36]); depth != 16 {
		t.Fatalf("expected 16-bit, got %d", depth)
	}
	if want := 44 + 2*buf.Len(); len(data) != want {
		t.Fatalf("expected %d bytes, got %d", want, len(data))
	}
}

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	buf := testTone()
	if err := WriteWAV(path, buf); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}
	got, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV: %v", err)
	}
	if got.SampleRate != dsp.SampleRate || got.Len() != buf.Len() {
		t.Fatalf("unexpected decoded shape: %d Hz, %d samples", got.SampleRate, got.Len())
	}
	for i := range buf.Samples {
		if math.Abs(got.Samples[i]-buf.Samples[i]) > 1e-4 {
			t.Fatalf("sample %d: %f vs %f", i, got.Samples[i], buf.Samples[i])
		}
	}
}

func TestDecodeRejectsRawPCM(t *testing.T) {
	raw := bytes.NewReader(make([]byte, 128))
	if _, err := DecodeWAV(raw); !errors.Is(err, ErrNotWAV) {
		t.Fatalf("expected ErrNotWAV, got %v", err)
	}
}

func TestWriteWAVUnwritablePath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	if err := WriteWAV(filepath.Join(blocker, "out.wav"), testTone()); err == nil {
		t.Fatalf("expected error writing beneath a regular file")
	}
}

func TestEncodeOpus(t *testing.T) {
	var out bytes.Buffer
	if err := EncodeOpus(&out, testTone(), OpusOptions{Bitrate: 64000}); err != nil {
		t.Fatalf("EncodeOpus: %v", err)
	}
	data := out.Bytes()
	if len(data) < 4 || string(data[:4]) != "OggS" {
		t.Fatalf("expected an Ogg stream")
	}
	if !bytes.Contains(data, []byte("OpusHead")) {
		t.Fatalf("missing OpusHead packet")
	}
}

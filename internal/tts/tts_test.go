package tts

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/loqalabs/loqa-sing/internal/audiofile"
	"github.com/loqalabs/loqa-sing/internal/config"
	"github.com/loqalabs/loqa-sing/internal/dsp"
	"github.com/loqalabs/loqa-sing/internal/lyrics"
	"github.com/loqalabs/loqa-sing/internal/music"
)

func TestMockCollect(t *testing.T) {
	synth := NewMockSynth(16000, 1)
	rec, err := Collect(context.Background(), synth, SynthRequest{Text: "かえる"}, time.Second)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if rec.SampleRate != 16000 || rec.Channels != 1 {
		t.Fatalf("unexpected layout %d Hz x%d", rec.SampleRate, rec.Channels)
	}
	// Three graphemes at the default rate.
	if want := 2 * 12000; len(rec.PCM) != want {
		t.Fatalf("expected %d bytes, got %d", want, len(rec.PCM))
	}
	buf, err := rec.Buffer(dsp.SampleRate)
	if err != nil {
		t.Fatalf("Buffer: %v", err)
	}
	if buf.SampleRate != dsp.SampleRate {
		t.Fatalf("expected resample to %d, got %d", dsp.SampleRate, buf.SampleRate)
	}
	if dsp.Peak(buf.Samples) < 0.1 {
		t.Fatalf("mock speech is silent")
	}
}

func TestMockRateHintChangesLength(t *testing.T) {
	synth := NewMockSynth(16000, 1)
	fast, err := Collect(context.Background(), synth, SynthRequest{Text: "らららら", RateHint: "+20%"}, time.Second)
	if err != nil {
		t.Fatalf("Collect fast: %v", err)
	}
	slow, err := Collect(context.Background(), synth, SynthRequest{Text: "らららら", RateHint: "-50%"}, time.Second)
	if err != nil {
		t.Fatalf("Collect slow: %v", err)
	}
	if len(fast.PCM) >= len(slow.PCM) {
		t.Fatalf("faster rate should produce shorter audio: %d vs %d", len(fast.PCM), len(slow.PCM))
	}
}

func TestCollectHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Collect(ctx, NewMockSynth(16000, 1), SynthRequest{Text: "あ"}, time.Second)
	if err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}

type stuckSynth struct{}

func (stuckSynth) Synthesize(ctx context.Context, _ SynthRequest) (<-chan SynthChunk, <-chan error) {
	return make(chan SynthChunk), make(chan error)
}

func TestCollectTimeout(t *testing.T) {
	start := time.Now()
	_, err := Collect(context.Background(), stuckSynth{}, SynthRequest{Text: "あ"}, 50*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("timeout was not enforced")
	}
}

func TestCollectNilSynth(t *testing.T) {
	if _, err := Collect(context.Background(), nil, SynthRequest{}, time.Second); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestHTTPSynthWAVResponse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reply.wav")
	tone := dsp.NewBuffer(4410, 44100)
	for i := range tone.Samples {
		tone.Samples[i] = 0.25
	}
	if err := audiofile.WriteWAV(path, tone); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}
	wavBytes, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read wav: %v", err)
	}

	var gotVoice string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/synthesize" {
			http.NotFound(w, r)
			return
		}
		var body bytes.Buffer
		_, _ = body.ReadFrom(r.Body)
		if strings.Contains(body.String(), "ja-JP-KeitaNeural") {
			gotVoice = "keita"
		}
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(wavBytes)
	}))
	defer srv.Close()

	synth := NewHTTPSynth(srv.URL, 24000, 1)
	rec, err := Collect(context.Background(), synth, SynthRequest{Text: "あ", Voice: ResolveVoice("keita")}, time.Second)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if gotVoice != "keita" {
		t.Fatalf("voice was not forwarded")
	}
	buf, err := rec.Buffer(44100)
	if err != nil {
		t.Fatalf("Buffer: %v", err)
	}
	if buf.Len() != 4410 {
		t.Fatalf("expected 4410 samples, got %d", buf.Len())
	}
}

func TestHTTPSynthUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := Collect(context.Background(), NewHTTPSynth(url, 24000, 1), SynthRequest{Text: "あ"}, time.Second)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestHTTPSynthErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	}))
	defer srv.Close()
	_, err := Collect(context.Background(), NewHTTPSynth(srv.URL, 24000, 1), SynthRequest{Text: "あ"}, time.Second)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestDecodeStereoPCM(t *testing.T) {
	raw := make([]byte, 8)
	for i, v := range []int16{16384, 0, -16384, -16384} {
		binary.LittleEndian.PutUint16(raw[2*i:], uint16(v))
	}
	buf, err := Decode(raw, 8000, 2, 8000)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if buf.Len() != 2 || buf.Samples[0] != 0.25 || buf.Samples[1] != -0.5 {
		t.Fatalf("unexpected down-mix %v", buf.Samples)
	}
	if _, err := Decode(raw[:3], 8000, 1, 8000); err == nil {
		t.Fatalf("expected alignment error")
	}
	if _, err := Decode(nil, 8000, 1, 8000); !errors.Is(err, ErrEmptyAudio) {
		t.Fatalf("expected ErrEmptyAudio, got %v", err)
	}
}

func TestExecSynthMissingBinary(t *testing.T) {
	synth, err := NewExecSynth("/nonexistent/loqa-tts --fast", 22050, 1)
	if err != nil {
		t.Fatalf("NewExecSynth: %v", err)
	}
	if _, err := Collect(context.Background(), synth, SynthRequest{Text: "あ"}, time.Second); err == nil {
		t.Fatalf("expected error for missing binary")
	}
	if _, err := NewExecSynth("   ", 22050, 1); err == nil {
		t.Fatalf("expected error for empty command")
	}
}

func TestProsodyHints(t *testing.T) {
	notes := music.BuildEvents([]string{"C4", "D4"}, []float64{0.3, 0.6}, nil)
	// C4 is -9 semitones: -90 + 120 = 30, doubled.
	if got := PitchHint(notes, 12); got != "+60Hz" {
		t.Fatalf("expected +60Hz, got %s", got)
	}
	if got := PitchHint(nil, 12); got != "+0Hz" {
		t.Fatalf("expected +0Hz, got %s", got)
	}
	cases := map[float64]string{2: "+20%", 5: "-20%", 10: "-40%", 20: "-50%"}
	for total, want := range cases {
		if got := RateHint(total); got != want {
			t.Fatalf("RateHint(%v) = %s, want %s", total, got, want)
		}
	}

	ssml := BuildSSML(lyrics.Align("かえ", notes), ResolveVoice("nanami"))
	for _, want := range []string{
		`xml:lang="ja-JP"`,
		`<voice name="ja-JP-NanamiNeural">`,
		`<prosody pitch="+0.0%" rate="fast">か</prosody>`,
		`<prosody pitch="+11.9%" rate="medium">え</prosody>`,
	} {
		if !strings.Contains(ssml, want) {
			t.Fatalf("ssml missing %q:\n%s", want, ssml)
		}
	}
}

func TestResolveVoice(t *testing.T) {
	if ResolveVoice("unknown") != "ja-JP-NanamiNeural" {
		t.Fatalf("unknown voice should fall back to default")
	}
	if ids := VoiceIDs(); len(ids) != 2 || ids[0] != "keita" {
		t.Fatalf("unexpected voice ids %v", ids)
	}
}

func TestNewFromConfig(t *testing.T) {
	synth, err := New(config.TTSConfig{Enabled: false})
	if err != nil || synth != nil {
		t.Fatalf("disabled collaborator should be nil")
	}
	synth, err = New(config.TTSConfig{Enabled: true, Mode: "mock", SampleRate: 16000, Channels: 1})
	if err != nil || synth == nil {
		t.Fatalf("expected mock collaborator, got %v", err)
	}
	if _, err := New(config.TTSConfig{Enabled: true, Mode: "grpc"}); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

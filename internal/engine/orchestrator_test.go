package engine

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/loqalabs/loqa-sing/internal/dsp"
	"github.com/loqalabs/loqa-sing/internal/tts"
)

type countingSynth struct {
	calls atomic.Int32
	inner tts.Synthesizer
}

func (c *countingSynth) Synthesize(ctx context.Context, req tts.SynthRequest) (<-chan tts.SynthChunk, <-chan error) {
	c.calls.Add(1)
	return c.inner.Synthesize(ctx, req)
}

type stuckSynth struct{}

func (stuckSynth) Synthesize(context.Context, tts.SynthRequest) (<-chan tts.SynthChunk, <-chan error) {
	return make(chan tts.SynthChunk), make(chan error)
}

func unreachableSynth(t *testing.T) tts.Synthesizer {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return tts.NewHTTPSynth(url, 24000, 1)
}

func TestValidationHappensBeforeAnyEngine(t *testing.T) {
	synth := &countingSynth{inner: tts.NewMockSynth(24000, 1)}
	cfg := DefaultEngineConfig()
	cfg.TTS = synth
	o := NewOrchestrator(cfg, discardLogger())

	_, err := ParseRequest("かえる", "C4|D4|E4", "0.5|0.5", discardLogger())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, err := o.Synthesize(context.Background(), Request{}); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for empty request, got %v", err)
	}
	if synth.calls.Load() != 0 {
		t.Fatalf("no engine may run for an invalid request")
	}
}

func TestUnreachableTTSFallsBack(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.TTS = unreachableSynth(t)
	o := NewOrchestrator(cfg, discardLogger())

	req, err := ParseRequest("らら", "C4|E4|G4", "0.5|0.5|0.5", discardLogger())
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	result, err := o.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if result.EngineUsed == SequentialPipeline {
		t.Fatalf("unreachable collaborator cannot produce the sequential pipeline")
	}
	if result.EngineUsed != Additive {
		t.Fatalf("expected additive fallback, got %s", result.EngineUsed)
	}
	if math.Abs(result.TotalDurationS-1.5) > 1e-3 {
		t.Fatalf("expected 1.5 s, got %f", result.TotalDurationS)
	}
	if len(result.Attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %+v", result.Attempts)
	}
	for _, a := range result.Attempts[:2] {
		if a.Outcome != OutcomeFailed || a.Error == "" {
			t.Fatalf("expected failed tts attempts, got %+v", a)
		}
	}
}

func TestMissingTTSIsSkipped(t *testing.T) {
	o := NewOrchestrator(DefaultEngineConfig(), discardLogger())
	req, err := ParseRequest("", "A4", "0.5", discardLogger())
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	result, err := o.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if result.Attempts[0].Outcome != OutcomeSkipped || result.Attempts[1].Outcome != OutcomeSkipped {
		t.Fatalf("expected skipped tts attempts, got %+v", result.Attempts)
	}
}

func TestStuckTTSTimesOut(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.TTS = stuckSynth{}
	cfg.TTSTimeout = 50 * time.Millisecond
	o := NewOrchestrator(cfg, discardLogger())

	req, err := ParseRequest("あ", "C4", "0.5", discardLogger())
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	start := time.Now()
	result, err := o.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if result.EngineUsed != Additive {
		t.Fatalf("expected additive after timeouts, got %s", result.EngineUsed)
	}
	if time.Since(start) > 10*time.Second {
		t.Fatalf("stuck collaborator blocked the render")
	}
}

func TestSequentialPipelineEndToEnd(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.TTS = tts.NewMockSynth(24000, 1)
	o := NewOrchestrator(cfg, discardLogger())

	req, err := ParseRequest("かえるのうたが", "C4|D4|E4|F4|E4|D4|C4", "0.5|0.5|0.5|0.5|0.5|0.5|0.5", discardLogger())
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	path := filepath.Join(t.TempDir(), "out", "kaeru.wav")
	result, err := o.RenderToFile(context.Background(), req, path)
	if err != nil {
		t.Fatalf("RenderToFile: %v", err)
	}
	if result.EngineUsed != SequentialPipeline {
		t.Fatalf("expected sequential pipeline, got %s (%+v)", result.EngineUsed, result.Attempts)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read wav: %v", err)
	}
	if channels := binary.LittleEndian.Uint16(data[22:24]); channels != 1 {
		t.Fatalf("expected mono, got %d", channels)
	}
	rate := binary.LittleEndian.Uint32(data[24:28])
	if rate != 44100 {
		t.Fatalf("expected 44100 Hz, got %d", rate)
	}
	if depth := binary.LittleEndian.Uint16(data[34:36]); depth != 16 {
		t.Fatalf("expected 16-bit, got %d", depth)
	}
	pcm := data[44:]
	seconds := float64(len(pcm)/2) / float64(rate)
	if math.Abs(seconds-3.5) > 0.05 {
		t.Fatalf("expected 3.5 s, got %f", seconds)
	}
	peak := 0
	for i := 0; i+1 < len(pcm); i += 2 {
		v := int(int16(binary.LittleEndian.Uint16(pcm[i:])))
		if v < 0 {
			v = -v
		}
		peak = max(peak, v)
	}
	if peak < 3277 {
		t.Fatalf("render is silent, peak %d", peak)
	}
}

func TestAdditiveSingleNoteEmptyLyric(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.Mode = Additive
	o := NewOrchestrator(cfg, discardLogger())

	req, err := ParseRequest("", "A4", "1.0", discardLogger())
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	result, err := o.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if result.EngineUsed != Additive {
		t.Fatalf("expected additive, got %s", result.EngineUsed)
	}
	if result.TotalDurationS < 1.0-1e-9 {
		t.Fatalf("expected at least 1 s, got %f", result.TotalDurationS)
	}
	// The 8% FM vibrato smears the boosted fundamental and the "a" formant
	// near 950 Hz pulls the strongest single bin above it, so the check is
	// the energy centroid of the band around the octave, not the peak bin.
	target := 440 * math.Pow(2, cfg.Voice.BoostSemitones/12)
	got := dsp.BandCentroid(result.Buffer.Samples, result.Buffer.SampleRate, 0.75*target, 1.25*target, 2)
	if math.Abs(got-target)/target > 0.05 {
		t.Fatalf("expected dominant near %.0f Hz, got %.1f", target, got)
	}
}

func TestTTSOnlyKeepsRawTiming(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.Mode = TTSOnly
	cfg.TTS = tts.NewMockSynth(44100, 1)
	o := NewOrchestrator(cfg, discardLogger())

	req, err := ParseRequest("ららら", "C4|D4|E4", "0.5|0.5|0.5", discardLogger())
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	result, err := o.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if result.EngineUsed != TTSOnly {
		t.Fatalf("expected tts_only, got %s", result.EngineUsed)
	}
	// Three graphemes spoken 20% faster.
	if want := 0.75 / 1.2; math.Abs(result.TotalDurationS-want) > 1e-3 {
		t.Fatalf("expected raw length %.3f s, got %f", want, result.TotalDurationS)
	}
	if peak := dsp.Peak(result.Buffer.Samples); math.Abs(peak-cfg.Headroom) > 1e-9 {
		t.Fatalf("expected peak %.2f, got %f", cfg.Headroom, peak)
	}
}

func TestMathMode(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.Mode = Math
	o := NewOrchestrator(cfg, discardLogger())
	req, err := ParseRequest("", "A4|B4", "0.5|0.25", discardLogger())
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	result, err := o.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if result.EngineUsed != Math || result.Buffer.Len() != dsp.SampleCount(0.75, 44100) {
		t.Fatalf("unexpected math result %s, %d samples", result.EngineUsed, result.Buffer.Len())
	}
}

func TestRenderToFileOutputError(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.Mode = Math
	o := NewOrchestrator(cfg, discardLogger())
	req, err := ParseRequest("", "A4", "0.5", discardLogger())
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	if _, err := o.RenderToFile(context.Background(), req, filepath.Join(blocker, "out.wav")); !errors.Is(err, ErrOutput) {
		t.Fatalf("expected ErrOutput, got %v", err)
	}
}

func TestRequestPreferenceOverridesMode(t *testing.T) {
	o := NewOrchestrator(DefaultEngineConfig(), discardLogger())
	req, err := ParseRequest("", "C4", "0.5", discardLogger())
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	prefer := Math
	req.Prefer = &prefer
	result, err := o.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if result.EngineUsed != Math || len(result.Attempts) != 1 {
		t.Fatalf("expected a single math attempt, got %+v", result.Attempts)
	}
}

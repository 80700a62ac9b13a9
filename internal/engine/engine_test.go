package engine

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/loqalabs/loqa-sing/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest("かえる", " C4 | D4|E4|", "0.5|0.25 | 1|", discardLogger())
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if len(req.Notes) != 3 {
		t.Fatalf("expected 3 notes, got %d", len(req.Notes))
	}
	if req.Notes[1].Label != "D4" || req.Notes[2].StartS != 0.75 {
		t.Fatalf("unexpected notes %+v", req.Notes)
	}
	if req.TotalDuration() != 1.75 {
		t.Fatalf("expected 1.75 s, got %f", req.TotalDuration())
	}
}

func TestParseRequestUnknownLabelFallsBack(t *testing.T) {
	req, err := ParseRequest("", "H9", "1", discardLogger())
	if err != nil {
		t.Fatalf("unknown labels must not fail the request: %v", err)
	}
	if req.Notes[0].FrequencyHz != 261.63 {
		t.Fatalf("expected C4 fallback, got %f", req.Notes[0].FrequencyHz)
	}
}

func TestParseRequestValidation(t *testing.T) {
	cases := []struct {
		name      string
		notes     string
		durations string
		field     string
	}{
		{"count mismatch", "C4|D4|E4", "0.5|0.5", "durations"},
		{"no notes", "", "", "notes"},
		{"unparsable", "C4", "half", "durations"},
		{"negative", "C4", "-1", "durations"},
		{"zero", "C4|D4", "0.5|0", "durations"},
		{"nan", "C4", "NaN", "durations"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseRequest("", tc.notes, tc.durations, discardLogger())
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tc.field {
				t.Fatalf("expected field %q, got %q", tc.field, verr.Field)
			}
		})
	}
}

func TestEngineIDs(t *testing.T) {
	for _, id := range Engines() {
		parsed, err := ParseEngineID(id.String())
		if err != nil || parsed != id {
			t.Fatalf("round trip failed for %s", id)
		}
	}
	if _, err := ParseEngineID("neural"); err == nil {
		t.Fatalf("expected error for unknown engine")
	}
	order := FallbackOrder(Additive)
	if len(order) != 2 || order[0] != Additive || order[1] != Math {
		t.Fatalf("unexpected fallback order %v", order)
	}
	if len(FallbackOrder(SequentialPipeline)) != 4 {
		t.Fatalf("sequential pipeline should fall back through every engine")
	}
	if !TTSOnly.UsesTTS() || Additive.UsesTTS() {
		t.Fatalf("unexpected UsesTTS results")
	}

	data, err := json.Marshal(Attempt{Engine: TTSOnly, Outcome: OutcomeOK})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Attempt
	if err := json.Unmarshal(data, &back); err != nil || back.Engine != TTSOnly {
		t.Fatalf("attempt engine did not survive json: %s", data)
	}
}

func TestEngineErrorUnwraps(t *testing.T) {
	err := error(&EngineError{Engine: Additive, Err: ErrNoAudio})
	if !errors.Is(err, ErrNoAudio) {
		t.Fatalf("EngineError should unwrap")
	}
	if err.Error() != "additive: engine produced no usable audio" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestNewEngineConfig(t *testing.T) {
	cfg := config.Default()
	ec, err := NewEngineConfig(cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewEngineConfig: %v", err)
	}
	if ec.Mode != SequentialPipeline || ec.SampleRate != 44100 || ec.Timbre == nil {
		t.Fatalf("unexpected engine config %+v", ec)
	}
	if ec.Chain.Pitch.GlobalRatio != 1.2 || ec.Voice.BoostSemitones != 12 {
		t.Fatalf("synthesis policy not carried over")
	}
	cfg.Synthesis.Mode = "neural"
	if _, err := NewEngineConfig(cfg, nil, nil); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	o, err := FromConfig(cfg, discardLogger())
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if o.Config().TTS != nil {
		t.Fatalf("disabled collaborator must leave TTS nil")
	}

	cfg.TTS.Enabled = true
	o, err = FromConfig(cfg, discardLogger())
	if err != nil {
		t.Fatalf("FromConfig with mock tts: %v", err)
	}
	if o.Config().TTS == nil {
		t.Fatalf("expected mock collaborator")
	}

	cfg.Synthesis.TimbrePath = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := FromConfig(cfg, discardLogger()); err == nil {
		t.Fatalf("expected error for missing timbre file")
	}
}

package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/loqalabs/loqa-sing/internal/config"
	"github.com/loqalabs/loqa-sing/internal/correct"
	"github.com/loqalabs/loqa-sing/internal/timbre"
	"github.com/loqalabs/loqa-sing/internal/tts"
	"github.com/loqalabs/loqa-sing/internal/voice"
)

// EngineConfig is everything the orchestrator needs. It is built once and
// never modified, so one value can serve concurrent requests.
type EngineConfig struct {
	// Mode is the first engine tried.
	Mode       EngineID
	SampleRate int
	Headroom   float64

	Voice  voice.Params
	Timbre *timbre.Table
	Chain  correct.Chain

	// TTS is nil when no collaborator is configured.
	TTS                 tts.Synthesizer
	TTSVoice            string
	TTSTimeout          time.Duration
	UseSSML             bool
	PitchBoostSemitones int
}

// DefaultEngineConfig returns a collaborator-less configuration with the
// stock voice and correction settings.
func DefaultEngineConfig() EngineConfig {
	p := voice.DefaultParams()
	return EngineConfig{
		Mode:                SequentialPipeline,
		SampleRate:          p.SampleRate,
		Headroom:            p.Headroom,
		Voice:               p,
		Timbre:              timbre.Default(),
		Chain:               correct.DefaultChain(),
		TTSVoice:            tts.DefaultVoice,
		TTSTimeout:          30 * time.Second,
		PitchBoostSemitones: int(p.BoostSemitones),
	}
}

// NewEngineConfig derives the orchestrator settings from the service
// configuration. synth may be nil.
func NewEngineConfig(cfg config.Config, synth tts.Synthesizer, table *timbre.Table) (EngineConfig, error) {
	mode, err := ParseEngineID(cfg.Synthesis.Mode)
	if err != nil {
		return EngineConfig{}, err
	}
	if table == nil {
		table = timbre.Default()
	}
	s := cfg.Synthesis
	return EngineConfig{
		Mode:       mode,
		SampleRate: s.SampleRate,
		Headroom:   s.Headroom,
		Voice: voice.Params{
			SampleRate:     s.SampleRate,
			BoostSemitones: float64(s.PitchBoostSemitones),
			VibratoRateHz:  s.VibratoRateHz,
			VibratoDepth:   s.VibratoDepth,
			Headroom:       s.Headroom,
			NoiseLevel:     s.NoiseLevel,
			MinNoteS:       s.MinNoteDurationS,
			Seed:           1,
		},
		Timbre: table,
		Chain: correct.Chain{
			Pitch: correct.PitchCorrector{
				ReferenceHz: s.ReferenceHz,
				Tolerance:   s.PitchTolerance,
				GlobalRatio: s.FeminizationRatio,
				FrameSize:   s.FrameSize,
				Hop:         s.HopSize,
			},
			Vibrato: correct.Vibrato{
				RateHz:   s.PostVibratoRateHz,
				Depth:    s.PostVibratoDepth,
				MinNoteS: s.PostVibratoMinNoteS,
			},
			Headroom: s.Headroom,
		},
		TTS:                 synth,
		TTSVoice:            cfg.TTS.Voice,
		TTSTimeout:          time.Duration(cfg.TTS.TimeoutMS) * time.Millisecond,
		UseSSML:             cfg.TTS.UseSSML,
		PitchBoostSemitones: s.PitchBoostSemitones,
	}, nil
}

// FromConfig builds an orchestrator with the configured collaborator and
// timbre table.
func FromConfig(cfg config.Config, log *slog.Logger) (*Orchestrator, error) {
	synth, err := tts.New(cfg.TTS)
	if err != nil {
		return nil, fmt.Errorf("tts backend: %w", err)
	}
	table, err := timbre.Load(cfg.Synthesis.TimbrePath)
	if err != nil {
		return nil, err
	}
	ecfg, err := NewEngineConfig(cfg, synth, table)
	if err != nil {
		return nil, err
	}
	return NewOrchestrator(ecfg, log), nil
}

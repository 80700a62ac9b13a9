package tts

import (
	"fmt"

	"github.com/loqalabs/loqa-sing/internal/config"
)

// New builds the configured collaborator. A disabled collaborator yields
// a nil Synthesizer and no error.
func New(cfg config.TTSConfig) (Synthesizer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Mode {
	case "mock":
		return NewMockSynth(cfg.SampleRate, cfg.Channels), nil
	case "exec":
		return NewExecSynth(cfg.Command, cfg.SampleRate, cfg.Channels)
	case "http":
		return NewHTTPSynth(cfg.Endpoint, cfg.SampleRate, cfg.Channels), nil
	default:
		return nil, fmt.Errorf("unknown tts mode %q", cfg.Mode)
	}
}

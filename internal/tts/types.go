// Package tts talks to the external speech engine used as the sung voice
// source. Its pitch and timing are only loosely controllable through
// prosody hints; the correction chain fixes both afterwards.
package tts

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable reports a collaborator that could not be reached.
	ErrUnavailable = errors.New("tts collaborator unavailable")
	// ErrEmptyAudio reports a collaborator that answered without audio.
	ErrEmptyAudio = errors.New("tts collaborator returned no audio")
)

// SynthRequest contains parameters to synthesize speech.
type SynthRequest struct {
	SessionID string
	Text      string
	// SSML optionally carries per-note prosody markup for backends that
	// understand it.
	SSML      string
	Voice     string
	PitchHint string
	RateHint  string
}

// SynthChunk contains little-endian PCM data, or a complete WAV stream
// when the backend returns one.
type SynthChunk struct {
	SessionID  string
	Sequence   int
	SampleRate int
	Channels   int
	PCM        []byte
	Final      bool
}

// Synthesizer is the contract for producing audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthRequest) (<-chan SynthChunk, <-chan error)
}

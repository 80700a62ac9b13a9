// Package engine turns a validated sing request into audio. It tries the
// configured voice engines in priority order and always ends with a
// result, degrading to simpler engines when richer ones fail.
package engine

import "fmt"

// EngineID names one audio-producing strategy.
type EngineID int

const (
	// SequentialPipeline sings through the TTS collaborator and corrects
	// its timing and pitch.
	SequentialPipeline EngineID = iota
	// TTSOnly accepts the collaborator's audio as is.
	TTSOnly
	// Additive uses the built-in harmonic/formant voice.
	Additive
	// Math plays one plain sine per note.
	Math
)

var engineNames = [...]string{
	SequentialPipeline: "sequential_pipeline",
	TTSOnly:            "tts_only",
	Additive:           "additive",
	Math:               "math",
}

func (e EngineID) String() string {
	if e < 0 || int(e) >= len(engineNames) {
		return fmt.Sprintf("engine(%d)", int(e))
	}
	return engineNames[e]
}

// MarshalText encodes the engine by name.
func (e EngineID) MarshalText() ([]byte, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("unknown engine %d", int(e))
	}
	return []byte(e.String()), nil
}

// UnmarshalText decodes an engine name.
func (e *EngineID) UnmarshalText(text []byte) error {
	id, err := ParseEngineID(string(text))
	if err != nil {
		return err
	}
	*e = id
	return nil
}

// Valid reports whether e is one of the known engines.
func (e EngineID) Valid() bool {
	return e >= SequentialPipeline && e <= Math
}

// UsesTTS reports whether the engine needs the external collaborator.
func (e EngineID) UsesTTS() bool {
	switch e {
	case SequentialPipeline, TTSOnly:
		return true
	case Additive, Math:
		return false
	}
	return false
}

// ParseEngineID resolves an engine name.
func ParseEngineID(name string) (EngineID, error) {
	for id, n := range engineNames {
		if n == name {
			return EngineID(id), nil
		}
	}
	return 0, fmt.Errorf("unknown engine %q", name)
}

// Engines lists every engine in fallback order.
func Engines() []EngineID {
	return []EngineID{SequentialPipeline, TTSOnly, Additive, Math}
}

// FallbackOrder returns the engines tried when first is preferred: first
// itself and every engine after it.
func FallbackOrder(first EngineID) []EngineID {
	if !first.Valid() {
		first = SequentialPipeline
	}
	return Engines()[first:]
}

package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrOutput marks failures to persist a finished render.
	ErrOutput = errors.New("cannot write output")
	// ErrNoAudio is reported by an engine that produced an empty or
	// non-finite buffer.
	ErrNoAudio = errors.New("engine produced no usable audio")
)

// ValidationError rejects a malformed request before any engine runs.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// EngineError is the failure of one engine attempt. The orchestrator
// records it and moves on to the next engine.
type EngineError struct {
	Engine EngineID
	Err    error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Engine, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

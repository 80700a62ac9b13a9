package protocol

import "time"

// RenderRequest asks a renderer to sing a lyric. Notes and Durations are
// "|"-delimited lists of equal length.
type RenderRequest struct {
	JobID     string `json:"job_id,omitempty"`
	Lyric     string `json:"lyric"`
	Notes     string `json:"notes"`
	Durations string `json:"durations"`
	Voice     string `json:"voice,omitempty"`
	// Engine optionally names the first engine to try.
	Engine string `json:"engine,omitempty"`
	Opus   bool   `json:"opus,omitempty"`
}

// EngineAttempt reports one state of the renderer's fallback chain.
type EngineAttempt struct {
	Engine    string `json:"engine"`
	Outcome   string `json:"outcome"`
	Error     string `json:"error,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// RenderResult is the reply to a RenderRequest and the payload of the
// completion event.
type RenderResult struct {
	JobID      string          `json:"job_id"`
	Status     string          `json:"status"`
	Error      string          `json:"error,omitempty"`
	EngineUsed string          `json:"engine_used,omitempty"`
	DurationS  float64         `json:"duration_s,omitempty"`
	Path       string          `json:"path,omitempty"`
	OpusPath   string          `json:"opus_path,omitempty"`
	Object     string          `json:"object,omitempty"`
	Attempts   []EngineAttempt `json:"attempts,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

const (
	StatusOK    = "ok"
	StatusError = "error"
)

const (
	SubjectRenderRequest = "sing.render.request"
	SubjectRenderDone    = "sing.render.done"
)

// Renderer presence.
const (
	SubjectNodeAnnounce        = "sing.node.announce"
	SubjectNodeHeartbeatPrefix = "sing.node.heartbeat."
)

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/loqalabs/loqa-sing/internal/audiofile"
	"github.com/loqalabs/loqa-sing/internal/dsp"
	"github.com/loqalabs/loqa-sing/internal/lyrics"
	"github.com/loqalabs/loqa-sing/internal/tts"
	"github.com/loqalabs/loqa-sing/internal/voice"
)

const instrumentationName = "github.com/loqalabs/loqa-sing/engine"

// Outcome of one engine attempt.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Attempt records one state of the fallback chain.
type Attempt struct {
	Engine  EngineID      `json:"engine"`
	Outcome string        `json:"outcome"`
	Error   string        `json:"error,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// SynthesisResult is a finished render.
type SynthesisResult struct {
	EngineUsed     EngineID
	Buffer         dsp.Buffer
	TotalDurationS float64
	Attempts       []Attempt
}

// Orchestrator runs requests through the engine fallback chain. It holds
// no per-request state and is safe for concurrent use.
type Orchestrator struct {
	cfg          EngineConfig
	logger       *slog.Logger
	tracer       trace.Tracer
	renders      metric.Int64Counter
	fallthroughs metric.Int64Counter
	latency      metric.Float64Histogram
}

// NewOrchestrator wires an orchestrator to the global otel providers.
func NewOrchestrator(cfg EngineConfig, log *slog.Logger) *Orchestrator {
	o := &Orchestrator{
		cfg:    cfg,
		logger: log.With(slog.String("component", "orchestrator")),
		tracer: otel.Tracer(instrumentationName),
	}
	if err := o.initMetrics(); err != nil {
		o.logger.Warn("failed to initialize metrics", slogError(err))
	}
	return o
}

func (o *Orchestrator) initMetrics() error {
	meter := otel.Meter(instrumentationName)
	var err error
	if o.renders, err = meter.Int64Counter("loqa.sing.renders",
		metric.WithDescription("Completed renders by engine")); err != nil {
		return err
	}
	if o.fallthroughs, err = meter.Int64Counter("loqa.sing.fallthroughs",
		metric.WithDescription("Engine attempts that fell through to the next engine")); err != nil {
		return err
	}
	o.latency, err = meter.Float64Histogram("loqa.sing.render.duration",
		metric.WithDescription("Render wall time"), metric.WithUnit("s"))
	return err
}

// Config returns the orchestrator's engine configuration.
func (o *Orchestrator) Config() EngineConfig { return o.cfg }

// Synthesize renders req. Engine failures never surface; the only error
// is a request that failed validation.
func (o *Orchestrator) Synthesize(ctx context.Context, req Request) (SynthesisResult, error) {
	if len(req.Notes) == 0 {
		return SynthesisResult{}, &ValidationError{Field: "notes", Reason: "at least one note is required"}
	}
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "sing.render", trace.WithAttributes(
		attribute.Int("notes", len(req.Notes)),
		attribute.Float64("duration_s", req.TotalDuration()),
	))
	defer span.End()

	segments := lyrics.Align(lyrics.ToSingable(req.Lyric), req.Notes)
	var attempts []Attempt
	first := o.cfg.Mode
	if req.Prefer != nil && req.Prefer.Valid() {
		first = *req.Prefer
	}
	for _, id := range FallbackOrder(first) {
		attemptStart := time.Now()
		buf, err := o.attempt(ctx, id, req, segments)
		elapsed := time.Since(attemptStart)
		if err != nil {
			outcome := OutcomeFailed
			if errors.Is(err, tts.ErrUnavailable) && o.cfg.TTS == nil {
				outcome = OutcomeSkipped
			}
			attempts = append(attempts, Attempt{Engine: id, Outcome: outcome, Error: err.Error(), Elapsed: elapsed})
			o.logger.Warn("engine fell through",
				slog.String("engine", id.String()),
				slog.String("outcome", outcome),
				slogError(err))
			o.count(ctx, o.fallthroughs, id)
			continue
		}

		attempts = append(attempts, Attempt{Engine: id, Outcome: OutcomeOK, Elapsed: elapsed})
		o.count(ctx, o.renders, id)
		if o.latency != nil {
			o.latency.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attribute.String("engine", id.String())))
		}
		span.SetAttributes(attribute.String("engine", id.String()))
		o.logger.Info("render complete",
			slog.String("engine", id.String()),
			slog.Float64("duration_s", buf.Duration()),
			slog.Duration("elapsed", time.Since(start)))
		return SynthesisResult{
			EngineUsed:     id,
			Buffer:         buf,
			TotalDurationS: buf.Duration(),
			Attempts:       attempts,
		}, nil
	}

	// Math only fails on an empty note list, which validation rejects.
	err := fmt.Errorf("all engines failed for %d notes", len(req.Notes))
	span.SetStatus(codes.Error, err.Error())
	return SynthesisResult{Attempts: attempts}, err
}

// RenderToFile synthesizes req and writes it as a WAV file at path.
func (o *Orchestrator) RenderToFile(ctx context.Context, req Request, path string) (SynthesisResult, error) {
	result, err := o.Synthesize(ctx, req)
	if err != nil {
		return result, err
	}
	if err := audiofile.WriteWAV(path, result.Buffer); err != nil {
		return result, fmt.Errorf("%w: %v", ErrOutput, err)
	}
	return result, nil
}

func (o *Orchestrator) attempt(ctx context.Context, id EngineID, req Request, segments []lyrics.AlignedSegment) (dsp.Buffer, error) {
	ctx, span := o.tracer.Start(ctx, "sing.engine."+id.String())
	defer span.End()

	var (
		buf dsp.Buffer
		err error
	)
	switch id {
	case SequentialPipeline:
		buf, err = o.sequentialPipeline(ctx, req, segments)
	case TTSOnly:
		buf, err = o.ttsOnly(ctx, req, segments)
	case Additive:
		buf = voice.Render(segments, o.cfg.Timbre, o.cfg.Voice)
	case Math:
		buf = voice.MathTones(req.Notes, o.cfg.SampleRate)
	default:
		err = fmt.Errorf("unknown engine %d", int(id))
	}
	if err == nil && !usable(buf) {
		err = ErrNoAudio
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return dsp.Buffer{}, &EngineError{Engine: id, Err: err}
	}
	return buf, nil
}

func (o *Orchestrator) sequentialPipeline(ctx context.Context, req Request, segments []lyrics.AlignedSegment) (dsp.Buffer, error) {
	raw, err := o.speak(ctx, req, segments)
	if err != nil {
		return dsp.Buffer{}, err
	}
	return o.cfg.Chain.Run(raw, req.Notes)
}

func (o *Orchestrator) ttsOnly(ctx context.Context, req Request, segments []lyrics.AlignedSegment) (dsp.Buffer, error) {
	raw, err := o.speak(ctx, req, segments)
	if err != nil {
		return dsp.Buffer{}, err
	}
	dsp.Normalize(raw.Samples, o.cfg.Headroom)
	return raw, nil
}

// speak asks the collaborator to say the aligned lyric.
func (o *Orchestrator) speak(ctx context.Context, req Request, segments []lyrics.AlignedSegment) (dsp.Buffer, error) {
	if o.cfg.TTS == nil {
		return dsp.Buffer{}, tts.ErrUnavailable
	}
	voiceID := req.Voice
	if voiceID == "" {
		voiceID = o.cfg.TTSVoice
	}
	voiceName := tts.ResolveVoice(voiceID)
	synthReq := tts.SynthRequest{
		Text:      lyrics.Text(segments),
		Voice:     voiceName,
		PitchHint: tts.PitchHint(req.Notes, o.cfg.PitchBoostSemitones),
		RateHint:  tts.RateHint(req.TotalDuration()),
	}
	if o.cfg.UseSSML {
		synthReq.SSML = tts.BuildSSML(segments, voiceName)
	}
	rec, err := tts.Collect(ctx, o.cfg.TTS, synthReq, o.cfg.TTSTimeout)
	if err != nil {
		return dsp.Buffer{}, err
	}
	return rec.Buffer(o.cfg.SampleRate)
}

func (o *Orchestrator) count(ctx context.Context, counter metric.Int64Counter, id EngineID) {
	if counter == nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("engine", id.String())))
}

func usable(buf dsp.Buffer) bool {
	if buf.Len() == 0 {
		return false
	}
	for _, s := range buf.Samples {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return false
		}
	}
	return true
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}

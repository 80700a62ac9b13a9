package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/loqalabs/loqa-sing/internal/audiofile"
	"github.com/loqalabs/loqa-sing/internal/bus"
	"github.com/loqalabs/loqa-sing/internal/config"
	"github.com/loqalabs/loqa-sing/internal/engine"
	"github.com/loqalabs/loqa-sing/internal/eventstore"
	"github.com/loqalabs/loqa-sing/internal/protocol"
)

// Service answers render requests arriving on the bus.
type Service struct {
	synthesis config.SynthesisConfig
	artifacts config.ArtifactsConfig
	bus       *bus.Client
	orch      *engine.Orchestrator
	store     *eventstore.Store
	sem       chan struct{}
	sub       *nats.Subscription
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	ready     bool
	logger    *slog.Logger
}

func NewService(parent context.Context, cfg config.Config, busClient *bus.Client, orch *engine.Orchestrator, store *eventstore.Store, logger *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(parent)
	workers := cfg.Synthesis.MaxConcurrency
	if workers <= 0 {
		workers = 1
	}
	return &Service{
		synthesis: cfg.Synthesis,
		artifacts: cfg.Artifacts,
		bus:       busClient,
		orch:      orch,
		store:     store,
		sem:       make(chan struct{}, workers),
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger.With(slog.String("component", "render-service")),
	}
}

func (s *Service) Start() error {
	if s.bus == nil {
		return errors.New("render service requires a bus connection")
	}
	sub, err := s.bus.Conn().Subscribe(protocol.SubjectRenderRequest, s.handleRequest)
	if err != nil {
		return fmt.Errorf("subscribe render requests: %w", err)
	}
	s.mu.Lock()
	s.sub = sub
	s.ready = true
	s.mu.Unlock()
	s.logger.Info("render service listening", slog.String("subject", protocol.SubjectRenderRequest))
	return nil
}

func (s *Service) Close() {
	s.cancel()
	s.mu.Lock()
	s.ready = false
	sub := s.sub
	s.mu.Unlock()
	if sub != nil {
		_ = sub.Drain()
	}
	s.wg.Wait()
}

func (s *Service) Healthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *Service) handleRequest(msg *nats.Msg) {
	var req protocol.RenderRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.logger.Warn("failed to decode render request", slogError(err))
		s.reply(msg, protocol.RenderResult{
			Status:    protocol.StatusError,
			Error:     fmt.Sprintf("decode request: %v", err),
			Timestamp: time.Now().UTC(),
		})
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case s.sem <- struct{}{}:
		case <-s.ctx.Done():
			s.reply(msg, protocol.RenderResult{
				JobID:     req.JobID,
				Status:    protocol.StatusError,
				Error:     "service shutting down",
				Timestamp: time.Now().UTC(),
			})
			return
		}
		defer func() { <-s.sem }()

		result := s.Render(s.ctx, req)
		s.reply(msg, result)
		s.publish(protocol.SubjectRenderDone, result)
	}()
}

// Render runs one request to completion and records it. Failures are
// reported in the result rather than returned.
func (s *Service) Render(ctx context.Context, req protocol.RenderRequest) protocol.RenderResult {
	jobID := req.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}
	if timeout := s.synthesis.RequestTimeoutMS; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Millisecond)
		defer cancel()
	}

	logger := s.logger.With(slog.String("job_id", jobID))
	result, synth, err := s.render(ctx, jobID, req, logger)
	result.JobID = jobID
	result.Timestamp = time.Now().UTC()
	for _, a := range synth.Attempts {
		result.Attempts = append(result.Attempts, protocol.EngineAttempt{
			Engine:    a.Engine.String(),
			Outcome:   a.Outcome,
			Error:     a.Error,
			ElapsedMS: a.Elapsed.Milliseconds(),
		})
	}
	if err != nil {
		result.Status = protocol.StatusError
		result.Error = err.Error()
		logger.Warn("render failed", slogError(err))
	} else {
		result.Status = protocol.StatusOK
	}

	s.record(ctx, req, result, logger)
	return result
}

func (s *Service) render(ctx context.Context, jobID string, req protocol.RenderRequest, logger *slog.Logger) (protocol.RenderResult, engine.SynthesisResult, error) {
	var result protocol.RenderResult
	if strings.ContainsAny(jobID, `/\`) || jobID == "." || jobID == ".." {
		return result, engine.SynthesisResult{}, &engine.ValidationError{Field: "job_id", Reason: "must not contain path separators"}
	}
	request, err := engine.ParseRequest(req.Lyric, req.Notes, req.Durations, logger)
	if err != nil {
		return result, engine.SynthesisResult{}, err
	}
	request.Voice = req.Voice
	if req.Engine != "" {
		id, err := engine.ParseEngineID(req.Engine)
		if err != nil {
			return result, engine.SynthesisResult{}, &engine.ValidationError{Field: "engine", Reason: err.Error()}
		}
		request.Prefer = &id
	}

	path := filepath.Join(s.synthesis.OutputDir, jobID+".wav")
	synth, err := s.orch.RenderToFile(ctx, request, path)
	if err != nil {
		return result, synth, err
	}
	result.EngineUsed = synth.EngineUsed.String()
	result.DurationS = synth.TotalDurationS
	result.Path = path

	if req.Opus || s.artifacts.Opus {
		opusPath := filepath.Join(s.synthesis.OutputDir, jobID+".opus")
		if err := audiofile.WriteOpus(opusPath, synth.Buffer, audiofile.OpusOptions{Bitrate: s.artifacts.OpusBitrate}); err != nil {
			logger.Warn("opus encode failed", slogError(err))
		} else {
			result.OpusPath = opusPath
		}
	}

	if s.artifacts.Bucket != "" && s.bus != nil {
		object, err := s.publishArtifact(jobID, path)
		if err != nil {
			logger.Warn("artifact upload failed", slogError(err))
		} else {
			result.Object = object
		}
	}
	return result, synth, nil
}

func (s *Service) publishArtifact(jobID, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	name := jobID + ".wav"
	if _, err := s.bus.PutObject(s.artifacts.Bucket, name, data); err != nil {
		return "", err
	}
	return s.artifacts.Bucket + "/" + name, nil
}

func (s *Service) record(ctx context.Context, req protocol.RenderRequest, result protocol.RenderResult, logger *slog.Logger) {
	if s.store == nil {
		return
	}
	attempts := make([]eventstore.Attempt, 0, len(result.Attempts))
	for _, a := range result.Attempts {
		attempts = append(attempts, eventstore.Attempt{Engine: a.Engine, Outcome: a.Outcome, Error: a.Error, ElapsedMS: a.ElapsedMS})
	}
	render := eventstore.Render{
		JobID:      result.JobID,
		Lyric:      req.Lyric,
		Notes:      req.Notes,
		Durations:  req.Durations,
		Voice:      req.Voice,
		EngineUsed: result.EngineUsed,
		Status:     result.Status,
		Error:      result.Error,
		DurationS:  result.DurationS,
		Path:       result.Path,
	}
	// The request deadline may already have passed; history is still written.
	if err := s.store.RecordRender(context.WithoutCancel(ctx), render, attempts); err != nil {
		logger.Warn("failed to record render", slogError(err))
	}
}

func (s *Service) reply(msg *nats.Msg, result protocol.RenderResult) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn("failed to encode render result", slogError(err))
		return
	}
	if err := msg.Respond(data); err != nil {
		s.logger.Warn("failed to reply to render request", slogError(err))
	}
}

func (s *Service) publish(subject string, result protocol.RenderResult) {
	data, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn("failed to encode render result", slogError(err))
		return
	}
	if err := s.bus.Conn().Publish(subject, data); err != nil {
		s.logger.Warn("failed to publish render result", slogError(err))
	}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}

package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
)

const maxResponseBytes = 64 << 20

type httpSynth struct {
	endpoint   string
	client     *http.Client
	sampleRate int
	channels   int
}

type httpRequest struct {
	Text       string `json:"text"`
	SSML       string `json:"ssml,omitempty"`
	Voice      string `json:"voice"`
	Pitch      string `json:"pitch,omitempty"`
	Rate       string `json:"rate,omitempty"`
	SampleRate int    `json:"sample_rate"`
}

// NewHTTPSynth posts requests to endpoint and expects a WAV file or raw
// s16le PCM in the response body. An X-Sample-Rate response header
// overrides the configured rate for raw PCM.
func NewHTTPSynth(endpoint string, sampleRate, channels int) Synthesizer {
	return &httpSynth{
		endpoint:   strings.TrimRight(endpoint, "/"),
		client:     &http.Client{},
		sampleRate: sampleRate,
		channels:   max(1, channels),
	}
}

func (h *httpSynth) Synthesize(ctx context.Context, req SynthRequest) (<-chan SynthChunk, <-chan error) {
	chunks := make(chan SynthChunk, 1)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)
		chunk, err := h.fetch(ctx, req)
		if err != nil {
			errs <- err
			return
		}
		chunks <- chunk
	}()
	return chunks, errs
}

func (h *httpSynth) fetch(ctx context.Context, req SynthRequest) (SynthChunk, error) {
	body, err := json.Marshal(httpRequest{
		Text:       req.Text,
		SSML:       req.SSML,
		Voice:      req.Voice,
		Pitch:      req.PitchHint,
		Rate:       req.RateHint,
		SampleRate: h.sampleRate,
	})
	if err != nil {
		return SynthChunk{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return SynthChunk{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && ctx.Err() == nil {
			return SynthChunk{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return SynthChunk{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return SynthChunk{}, fmt.Errorf("%w: tts endpoint returned status %s", ErrUnavailable, resp.Status)
	}
	pcm, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return SynthChunk{}, fmt.Errorf("read tts response: %w", err)
	}
	rate := h.sampleRate
	if v := resp.Header.Get("X-Sample-Rate"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			rate = parsed
		}
	}
	return SynthChunk{
		SessionID:  req.SessionID,
		SampleRate: rate,
		Channels:   h.channels,
		PCM:        pcm,
		Final:      true,
	}, nil
}

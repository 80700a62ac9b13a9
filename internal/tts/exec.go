package tts

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"

	"github.com/mattn/go-shellwords"
)

type execSynth struct {
	cmd        []string
	sampleRate int
	channels   int
}

type execRequest struct {
	Text       string `json:"text"`
	SSML       string `json:"ssml,omitempty"`
	Voice      string `json:"voice"`
	Pitch      string `json:"pitch,omitempty"`
	Rate       string `json:"rate,omitempty"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

type execResponse struct {
	PCMBase64 string `json:"pcm_base64"`
	Final     bool   `json:"final"`
}

// NewExecSynth runs command once per request. The request is written to
// stdin as JSON; stdout must carry newline-delimited JSON chunks with
// base64 PCM.
func NewExecSynth(command string, sampleRate, channels int) (Synthesizer, error) {
	parser := shellwords.NewParser()
	parser.ParseEnv = true
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse tts command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("tts command empty")
	}
	return &execSynth{cmd: args, sampleRate: sampleRate, channels: max(1, channels)}, nil
}

func (e *execSynth) Synthesize(ctx context.Context, req SynthRequest) (<-chan SynthChunk, <-chan error) {
	chunks := make(chan SynthChunk)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)
		if err := e.run(ctx, req, chunks); err != nil {
			errs <- err
		}
	}()
	return chunks, errs
}

func (e *execSynth) run(ctx context.Context, req SynthRequest, chunks chan<- SynthChunk) error {
	data, err := json.Marshal(execRequest{
		Text:       req.Text,
		SSML:       req.SSML,
		Voice:      req.Voice,
		Pitch:      req.PitchHint,
		Rate:       req.RateHint,
		SampleRate: e.sampleRate,
		Channels:   e.channels,
	})
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, e.cmd[0], e.cmd[1:]...)
	cmd.Stdin = bytes.NewReader(data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return fmt.Errorf("start tts command: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	sequence := 0
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var resp execResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return fmt.Errorf("decode tts chunk: %w", err)
		}
		pcm, err := base64.StdEncoding.DecodeString(resp.PCMBase64)
		if err != nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return fmt.Errorf("decode tts pcm: %w", err)
		}
		select {
		case <-ctx.Done():
			_ = cmd.Wait()
			return ctx.Err()
		case chunks <- SynthChunk{
			SessionID:  req.SessionID,
			Sequence:   sequence,
			SampleRate: e.sampleRate,
			Channels:   e.channels,
			PCM:        pcm,
			Final:      resp.Final,
		}:
		}
		sequence++
	}
	scanErr := scanner.Err()
	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("tts command failed: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return scanErr
}

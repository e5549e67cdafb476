// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package stt implements the generic speech-to-text service stage in both
// of its supported modes: batch (one call per utterance) and streaming (a
// long-lived connection fed incrementally, with results delivered async).
package stt

import (
	"context"
	"fmt"
	"time"

	"github.com/convopipe/pipeline/pkg/frame"
	"github.com/convopipe/pipeline/pkg/logging"
	"github.com/convopipe/pipeline/pkg/processor"
	"github.com/convopipe/pipeline/pkg/utils"
)

// Result is the shape both modes produce (§6.2, §4.D.1).
type Result struct {
	Text     string
	Interim  bool
	Language string
	UserID   string
	Raw      any
}

// BatchAdapter is the narrow contract a batch-mode STT vendor integration
// satisfies: one blocking call per utterance.
type BatchAdapter interface {
	Transcribe(ctx context.Context, audio []byte, sampleRate, channels int) (Result, error)
}

// StreamingAdapter is the narrow contract a streaming-mode STT vendor
// integration satisfies: a long-lived connection fed bytes as they arrive,
// delivering results asynchronously via the registered callback.
type StreamingAdapter interface {
	Setup(ctx context.Context, onResult func(Result)) error
	SendAudio(ctx context.Context, audio []byte, sampleRate, channels int) error
	Cleanup(ctx context.Context) error
}

// Settings mirrors §6.4's STT configuration options.
type Settings struct {
	DefaultUserID string
	Language      string
}

// NewBatchProcessor builds a processor.Processor that calls adapter once
// per input-audio frame and emits at most one (interim or final)
// transcription frame downstream (none when the text is empty after
// trimming), forwarding the original audio frame unchanged so it remains
// available to later stages.
func NewBatchProcessor(name string, logger logging.Logger, adapter BatchAdapter, settings Settings) *processor.Processor {
	handle := func(ctx context.Context, p *processor.Processor, f frame.Frame, dir frame.Direction) error {
		audio, ok := f.(*frame.InputAudioFrame)
		if !ok {
			p.Push(f, frame.Downstream)
			return nil
		}
		result, err := adapter.Transcribe(ctx, audio.Audio, audio.SampleRate, audio.Channels)
		if err != nil {
			p.Push(f, frame.Downstream)
			return fmt.Errorf("transcribe: %w", err)
		}
		p.Push(f, frame.Downstream)
		pushResult(p, settings, result)
		return nil
	}
	return processor.New(name, logger, handle)
}

// NewStreamingProcessor builds a processor.Processor that opens a
// long-lived connection in Setup and dispatches bytes asynchronously,
// pushing results as they arrive via the shared push-transcription-result
// helper.
func NewStreamingProcessor(name string, logger logging.Logger, adapter StreamingAdapter, settings Settings) *processor.Processor {
	var bound *processor.Processor
	setup := func(ctx context.Context) error {
		return adapter.Setup(ctx, func(r Result) {
			if bound != nil {
				pushResult(bound, settings, r)
			}
		})
	}
	cleanup := func(ctx context.Context) error {
		return adapter.Cleanup(ctx)
	}
	handle := func(ctx context.Context, p *processor.Processor, f frame.Frame, dir frame.Direction) error {
		audio, ok := f.(*frame.InputAudioFrame)
		if !ok {
			p.Push(f, frame.Downstream)
			return nil
		}
		p.Push(f, frame.Downstream)
		return adapter.SendAudio(ctx, audio.Audio, audio.SampleRate, audio.Channels)
	}
	bound = processor.New(name, logger, handle, processor.WithSetup(setup), processor.WithCleanup(cleanup))
	return bound
}

// pushResult drops empty text, applies settings defaults, and pushes the
// appropriate (interim or final) transcription frame (§4.D.1).
func pushResult(p *processor.Processor, settings Settings, r Result) {
	if utils.IsEmpty(r.Text) {
		return
	}
	userID := r.UserID
	if userID == "" {
		userID = settings.DefaultUserID
	}
	language := r.Language
	if language == "" {
		language = settings.Language
	}
	timestamp := time.Now()

	if r.Interim {
		p.Push(frame.NewInterimTranscriptionFrame(r.Text, userID, timestamp, r.Raw), frame.Downstream)
		return
	}
	p.Push(frame.NewTranscriptionFrame(r.Text, userID, timestamp, language, r.Raw), frame.Downstream)
}

// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package tts implements the generic text-to-speech service stage: one
// synthesis call per eligible text frame, bracketed symmetrically with
// TTSStarted/TTSStopped control frames even when synthesis fails.
package tts

import (
	"context"
	"fmt"

	"github.com/convopipe/pipeline/pkg/frame"
	"github.com/convopipe/pipeline/pkg/logging"
	"github.com/convopipe/pipeline/pkg/processor"
	"github.com/convopipe/pipeline/pkg/utils"
)

// Adapter is the narrow contract a concrete TTS vendor integration must
// satisfy (§6.2). Cloud-specific implementations are out of scope for this
// module; tests use a stub.
type Adapter interface {
	Synthesize(ctx context.Context, text string, sampleRate int) ([]byte, error)
}

// Settings mirrors the synthesis options recognized by §6.4. Output is
// always mono; the stage has no option for channel count since
// NewTTSAudioFrame is always built with channels=1.
type Settings struct {
	SampleRate int
	VoiceID    string
}

// NewProcessor builds a processor.Processor running the TTS stage's
// protocol (§4.D.3): text frames marked SkipTTS pass through untouched and
// unsynthesized; empty text is dropped; every synthesis attempt is
// bracketed by TTSStartedFrame/TTSStoppedFrame, emitted symmetrically even
// when the adapter call fails.
func NewProcessor(name string, logger logging.Logger, adapter Adapter, settings Settings) *processor.Processor {
	handle := func(ctx context.Context, p *processor.Processor, f frame.Frame, dir frame.Direction) error {
		text, ok := f.(*frame.TextFrame)
		if !ok {
			p.Push(f, frame.Downstream)
			return nil
		}
		if text.SkipTTS {
			p.Push(f, frame.Downstream)
			return nil
		}
		if utils.IsEmpty(text.Text) {
			return nil
		}

		sampleRate := settings.SampleRate
		if sampleRate == 0 {
			sampleRate = 16000
		}

		p.Push(frame.NewTTSStartedFrame(), frame.Downstream)
		defer p.Push(frame.NewTTSStoppedFrame(), frame.Downstream)

		audio, err := adapter.Synthesize(ctx, text.Text, sampleRate)
		if err != nil {
			return fmt.Errorf("tts synthesize: %w", err)
		}
		p.Push(frame.NewTTSAudioFrame(audio, sampleRate, 1), frame.Downstream)
		return nil
	}
	return processor.New(name, logger, handle)
}

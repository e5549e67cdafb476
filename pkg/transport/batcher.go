// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package transport

import (
	"bytes"
	"context"

	"github.com/convopipe/pipeline/pkg/frame"
	"github.com/convopipe/pipeline/pkg/logging"
	"github.com/convopipe/pipeline/pkg/processor"
)

// BatcherSettings mirrors §6.4's audio-batcher configuration. PreRollFrames
// defaults to 5 (~100ms at 20ms chunking), per the design note on avoiding
// clipped first phonemes.
type BatcherSettings struct {
	SampleRate    int
	Channels      int
	PreRollFrames int
}

func (s BatcherSettings) preRollFrames() int {
	if s.PreRollFrames <= 0 {
		return 5
	}
	return s.PreRollFrames
}

// NewBatcherProcessor builds the audio-batching stage (§4.E.3): it
// accumulates input-audio chunks between user-started-speaking and
// user-stopped-speaking, with a small pre-roll ring buffer captured while
// not speaking, and on stop emits one concatenated input-audio frame.
// Individual input-audio frames are consumed, never forwarded; the
// speaking-state frames themselves pass through.
func NewBatcherProcessor(name string, logger logging.Logger, settings BatcherSettings) *processor.Processor {
	var buffer bytes.Buffer
	preRoll := make([][]byte, 0, settings.preRollFrames())
	speaking := false

	pushPreRoll := func(chunk []byte) {
		if len(preRoll) >= settings.preRollFrames() {
			preRoll = preRoll[1:]
		}
		preRoll = append(preRoll, chunk)
	}

	handle := func(ctx context.Context, p *processor.Processor, f frame.Frame, dir frame.Direction) error {
		switch v := f.(type) {
		case *frame.UserStartedSpeakingFrame:
			speaking = true
			for _, chunk := range preRoll {
				buffer.Write(chunk)
			}
			preRoll = preRoll[:0]
			p.Push(f, frame.Downstream)
			return nil

		case *frame.UserStoppedSpeakingFrame:
			speaking = false
			p.Push(f, frame.Downstream)
			if buffer.Len() > 0 {
				combined := make([]byte, buffer.Len())
				buffer.Read(combined)
				p.Push(frame.NewInputAudioFrame(combined, settings.SampleRate, settings.Channels), frame.Downstream)
			}
			return nil

		case *frame.InputAudioFrame:
			if speaking {
				buffer.Write(v.Audio)
			} else {
				pushPreRoll(v.Audio)
			}
			return nil

		default:
			p.Push(f, frame.Downstream)
			return nil
		}
	}
	return processor.New(name, logger, handle)
}

// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package transport

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/convopipe/pipeline/pkg/frame"
	"github.com/convopipe/pipeline/pkg/logging"
	"github.com/convopipe/pipeline/pkg/processor"
)

// OutboundMessage mirrors InboundMessage for the egress direction.
type OutboundMessage struct {
	Type    string
	Payload []byte
	Urgent  bool
}

// OutputSink is the narrow contract a concrete transport integration must
// satisfy for the output side (§6.2's `send_audio` / `send_message`).
type OutputSink interface {
	SendAudio(ctx context.Context, chunk []byte) error
	SendMessage(ctx context.Context, msg OutboundMessage) error
}

// OutputSettings bundles the output transport's configuration. ChunkSizeMs
// follows §6.3's 20ms default chunking.
type OutputSettings struct {
	Audio       AudioSettings
	ChunkSizeMs int
	DrainPeriod time.Duration
}

func (s OutputSettings) chunkBytes() int {
	ms := s.ChunkSizeMs
	if ms <= 0 {
		ms = 20
	}
	sampleRate := s.Audio.SampleRate
	if sampleRate <= 0 {
		sampleRate = 24000
	}
	channels := s.Audio.Channels
	if channels <= 0 {
		channels = 1
	}
	bytesPerSample := 2
	return sampleRate * channels * bytesPerSample * ms / 1000
}

// outputState holds the mutable bot-speaking bookkeeping the background
// drain task and the frame handler both touch; guarded by mu.
type outputState struct {
	mu          sync.Mutex
	buffer      bytes.Buffer
	ttsActive   bool
	botSpeaking bool
}

// NewOutputProcessor builds the output-transport processor (§4.E.2):
// TTS-started/TTS-stopped/output-audio/TTS-audio frames drive
// bot-speaking-state bookkeeping and buffer bytes for a background task
// that drains them through sink.SendAudio one chunk at a time; outbound
// transport messages are delivered via sink.SendMessage. None of these
// frames is forwarded; everything else is forwarded downstream unchanged.
func NewOutputProcessor(name string, logger logging.Logger, sink OutputSink, settings OutputSettings) *processor.Processor {
	if settings.DrainPeriod <= 0 {
		settings.DrainPeriod = 20 * time.Millisecond
	}
	state := &outputState{}
	chunkSize := settings.chunkBytes()

	var bound *processor.Processor
	stopDraining := make(chan struct{})
	done := make(chan struct{})

	setup := func(ctx context.Context) error {
		go drainOutput(ctx, bound, sink, state, chunkSize, settings.DrainPeriod, stopDraining, done)
		return nil
	}
	cleanup := func(ctx context.Context) error {
		close(stopDraining)
		<-done
		return nil
	}

	handle := func(ctx context.Context, p *processor.Processor, f frame.Frame, dir frame.Direction) error {
		switch v := f.(type) {
		case *frame.TTSStartedFrame:
			state.mu.Lock()
			state.ttsActive = true
			startBot := !state.botSpeaking
			if startBot {
				state.botSpeaking = true
			}
			state.mu.Unlock()
			if startBot {
				p.Push(frame.NewBotStartedSpeakingFrame(), frame.Downstream)
			}
			return nil

		case *frame.TTSStoppedFrame:
			state.mu.Lock()
			state.ttsActive = false
			state.mu.Unlock()
			return nil

		case *frame.OutputAudioFrame:
			bufferOutboundAudio(p, state, v.Audio)
			return nil

		case *frame.TTSAudioFrame:
			bufferOutboundAudio(p, state, v.Audio)
			return nil

		case *frame.OutboundTransportMessageFrame:
			return sink.SendMessage(ctx, OutboundMessage{Type: v.MessageType, Payload: v.Payload, Urgent: v.Urgent})

		default:
			p.Push(f, frame.Downstream)
			return nil
		}
	}

	bound = processor.New(name, logger, handle, processor.WithSetup(setup), processor.WithCleanup(cleanup))
	return bound
}

func bufferOutboundAudio(p *processor.Processor, state *outputState, audio []byte) {
	state.mu.Lock()
	startBot := !state.botSpeaking
	if startBot {
		state.botSpeaking = true
	}
	state.buffer.Write(audio)
	state.mu.Unlock()
	if startBot {
		p.Push(frame.NewBotStartedSpeakingFrame(), frame.Downstream)
	}
}

func drainOutput(ctx context.Context, p *processor.Processor, sink OutputSink, state *outputState, chunkSize int, period time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		state.mu.Lock()
		if state.buffer.Len() == 0 {
			state.mu.Unlock()
			continue
		}
		n := chunkSize
		if state.buffer.Len() < n {
			n = state.buffer.Len()
		}
		chunk := make([]byte, n)
		state.buffer.Read(chunk)
		state.mu.Unlock()

		if err := sink.SendAudio(ctx, chunk); err != nil {
			p.PushError(err.Error(), false)
		}

		state.mu.Lock()
		bufferEmpty := state.buffer.Len() == 0
		shouldStop := bufferEmpty && !state.ttsActive && state.botSpeaking
		if shouldStop {
			state.botSpeaking = false
		}
		state.mu.Unlock()
		if shouldStop {
			p.Push(frame.NewBotStoppedSpeakingFrame(), frame.Downstream)
		}
	}
}

// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package transport

import (
	"context"
	"errors"
	"time"

	"github.com/convopipe/pipeline/pkg/frame"
	"github.com/convopipe/pipeline/pkg/logging"
	"github.com/convopipe/pipeline/pkg/processor"
)

// InboundMessage is a typed byte blob carrying structured peer control,
// received alongside raw audio on the same concrete transport.
type InboundMessage struct {
	Type    string
	Payload []byte
}

// InputSource is the narrow contract a concrete transport integration must
// satisfy for the input side (§6.2's `receive_audio_frame`): it is polled
// repeatedly by a background task for the next raw-audio buffer or inbound
// control message. Returning (nil, nil, ErrNoData) is a normal, expected
// poll miss; any other non-nil error is pushed downstream as a non-fatal
// ErrorFrame and the background task keeps polling.
type InputSource interface {
	ReceiveAudioFrame(ctx context.Context) (audio []byte, msg *InboundMessage, err error)
}

// ErrNoData signals a poll that produced neither audio nor a message; the
// background task should simply poll again.
var ErrNoData = errors.New("transport: no data available")

// AudioSettings mirrors §6.4's ingress/egress audio configuration.
type AudioSettings struct {
	SampleRate int
	Channels   int
}

// InputSettings bundles the input transport's configuration.
type InputSettings struct {
	Audio      AudioSettings
	VAD        VADSettings
	PollPeriod time.Duration
}

// NewInputProcessor builds the input-transport processor (§4.E.1): a
// background task repeatedly polls source for the next raw-audio buffer,
// wraps each into an input-audio frame at the configured sample
// rate/channels, runs it through VAD, and pushes it downstream, except
// silent chunks held in the hangover buffer (see hangover), which are
// dropped when a stop is confirmed; inbound transport messages are
// forwarded downstream as frames.
//
// The processor's own handler pushes every frame dispatched to it
// downstream unchanged, whatever direction it arrived from; all of this
// stage's own output is produced by the background task, not by
// dispatched-frame handling.
func NewInputProcessor(name string, logger logging.Logger, source InputSource, settings InputSettings) *processor.Processor {
	if settings.PollPeriod <= 0 {
		settings.PollPeriod = 20 * time.Millisecond
	}
	vad := NewVAD(settings.VAD)
	h := &hangover{}

	var bound *processor.Processor
	stopPolling := make(chan struct{})
	done := make(chan struct{})

	setup := func(ctx context.Context) error {
		go pollInput(ctx, bound, source, vad, h, settings, stopPolling, done)
		return nil
	}
	cleanup := func(ctx context.Context) error {
		close(stopPolling)
		<-done
		return nil
	}
	handle := func(ctx context.Context, p *processor.Processor, f frame.Frame, dir frame.Direction) error {
		p.Push(f, frame.Downstream)
		return nil
	}
	bound = processor.New(name, logger, handle, processor.WithSetup(setup), processor.WithCleanup(cleanup))
	return bound
}

// hangover holds audio chunks classified as silent while the VAD is still
// in the speaking state but has not yet accumulated enough consecutive
// silence to confirm a stop. If speech resumes before that confirmation,
// the held chunks are released as ordinary audio (the dip was not actually
// a pause); if the stop confirms, they are discarded outright, since
// they're trailing silence that never made it into the utterance (§4.E.1,
// §8 S5).
type hangover struct {
	chunks [][]byte
}

func (h *hangover) hold(chunk []byte) { h.chunks = append(h.chunks, chunk) }
func (h *hangover) discard()          { h.chunks = h.chunks[:0] }
func (h *hangover) flush() [][]byte {
	out := h.chunks
	h.chunks = nil
	return out
}

func pollInput(ctx context.Context, p *processor.Processor, source InputSource, vad *VAD, h *hangover, settings InputSettings, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(settings.PollPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		audio, msg, err := source.ReceiveAudioFrame(ctx)
		if err != nil {
			if !errors.Is(err, ErrNoData) {
				p.PushError(err.Error(), false)
			}
			continue
		}
		if msg != nil {
			p.Push(frame.NewInboundTransportMessageFrame(msg.Type, msg.Payload), frame.Downstream)
		}
		if len(audio) == 0 {
			continue
		}

		wasSpeaking := vad.Speaking()
		transition, loud := vad.Process(audio)
		pushAudio := func(chunk []byte) {
			p.Push(frame.NewInputAudioFrame(chunk, settings.Audio.SampleRate, settings.Audio.Channels), frame.Downstream)
		}

		switch {
		case transition == StartedSpeaking:
			pushAudio(audio)
			p.Push(frame.NewUserStartedSpeakingFrame(), frame.Downstream)
		case transition == StoppedSpeaking:
			h.discard()
			p.Push(frame.NewUserStoppedSpeakingFrame(), frame.Downstream)
		case wasSpeaking && !loud:
			h.hold(audio)
		case wasSpeaking && loud:
			for _, chunk := range h.flush() {
				pushAudio(chunk)
			}
			pushAudio(audio)
		default:
			pushAudio(audio)
		}
	}
}

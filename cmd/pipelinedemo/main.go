// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Command pipelinedemo wires a minimal [STT -> LLM -> TTS] pipeline with
// stub adapters and drives it with one scripted utterance, printing the
// wire envelope of every sink frame that has one (transcriptions and
// spoken text); other frames reaching the sink are not printed. It exists
// to exercise the composition surface,
// not as a production entrypoint: concrete vendor adapters, a real
// transport, and configuration loading from the environment are left to
// callers of this module.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/convopipe/pipeline/pkg/frame"
	"github.com/convopipe/pipeline/pkg/logging"
	"github.com/convopipe/pipeline/pkg/pipeline"
	"github.com/convopipe/pipeline/pkg/processor"
	"github.com/convopipe/pipeline/pkg/stage/llm"
	"github.com/convopipe/pipeline/pkg/stage/stt"
	"github.com/convopipe/pipeline/pkg/stage/tts"
	"github.com/convopipe/pipeline/pkg/wire"
)

// Config is the demo's command-line surface.
type Config struct {
	Utterance    string
	SystemPrompt string
	ShutdownWait time.Duration
}

func parseFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.Utterance, "utterance", "hello there", "text the stub STT adapter returns for the scripted turn")
	flag.StringVar(&cfg.SystemPrompt, "system-prompt", "You are a friendly voice assistant.", "system prompt seeding the LLM stage's context")
	flag.DurationVar(&cfg.ShutdownWait, "shutdown-wait", 2*time.Second, "time allowed for pipeline cleanup on shutdown")
	flag.Parse()
	return cfg
}

// echoSTT turns any input-audio frame into a fixed transcription.
type echoSTT struct{ text string }

func (e echoSTT) Transcribe(ctx context.Context, audio []byte, sampleRate, channels int) (stt.Result, error) {
	return stt.Result{Text: e.text}, nil
}

// echoLLM replies with a canned greeting regardless of the conversation so
// far.
type echoLLM struct{}

func (echoLLM) Complete(ctx context.Context, messages []frame.Message) (llm.CompleteResult, error) {
	return llm.CompleteResult{Text: "Hello! How can I help you today?"}, nil
}

// silentTTS "synthesizes" a fixed-length silent buffer sized to the
// requested sample rate, standing in for a real vendor call.
type silentTTS struct{}

func (silentTTS) Synthesize(ctx context.Context, text string, sampleRate int) ([]byte, error) {
	return make([]byte, sampleRate/10), nil
}

func main() {
	cfg := parseFlags()

	logger, err := logging.NewLogger(logging.Options{Development: true})
	if err != nil {
		log.Fatalf("pipelinedemo: logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Infof("pipelinedemo: signal received, shutting down")
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		log.Fatalf("pipelinedemo: %v", err)
	}
}

// encodeForSink translates the frames a browser peer would care about into
// the wire envelope format (§6.3), the way an output transport stage would
// before handing bytes to a websocket. Frames with no browser-facing
// envelope are reported as nil, nil rather than an error.
func encodeForSink(f frame.Frame) ([]byte, error) {
	switch v := f.(type) {
	case *frame.TranscriptionFrame:
		return wire.EncodeTranscription(wire.TranscriptionPayload{
			Text:      v.Text,
			UserID:    v.UserID,
			Timestamp: v.Timestamp,
			Final:     true,
		})
	case *frame.InterimTranscriptionFrame:
		return wire.EncodeTranscription(wire.TranscriptionPayload{
			Text:      v.Text,
			UserID:    v.UserID,
			Timestamp: v.Timestamp,
			Final:     false,
		})
	case *frame.TextFrame:
		if v.SkipTTS {
			return nil, nil
		}
		return wire.EncodeBotResponse(wire.BotResponsePayload{Text: v.Text})
	default:
		return nil, nil
	}
}

func run(ctx context.Context, cfg Config, logger logging.Logger) error {
	sttStage := stt.NewBatchProcessor("stt", logger, echoSTT{text: cfg.Utterance}, stt.Settings{
		DefaultUserID: "demo-user",
		Language:      "en",
	})
	llmStage := llm.NewProcessor("llm", logger, echoLLM{}, cfg.SystemPrompt)
	ttsStage := tts.NewProcessor("tts", logger, silentTTS{}, tts.Settings{SampleRate: 24000})

	downstream := func(f frame.Frame) {
		raw, err := encodeForSink(f)
		if err != nil {
			logger.Warnw("pipelinedemo: failed to encode sink frame", "frame", f.Name(), "error", err)
			return
		}
		if raw == nil {
			return
		}
		fmt.Printf("[sink] %s\n", raw)
	}

	pl := pipeline.New("pipelinedemo", logger, []*processor.Processor{sttStage, llmStage, ttsStage}, downstream, nil)

	if err := pl.Start(ctx); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}

	pl.Queue(frame.NewStartFrame(true))
	pl.Queue(frame.NewInputAudioFrame(make([]byte, 320), 16000, 1))

	select {
	case <-ctx.Done():
	case <-time.After(500 * time.Millisecond):
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.ShutdownWait)
	defer stopCancel()
	return pl.Stop(stopCtx)
}

// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package transport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convopipe/pipeline/pkg/frame"
	"github.com/convopipe/pipeline/pkg/processor"
)

func collectSink(seen *[]frame.Frame, mu *sync.Mutex) *processor.Processor {
	return processor.New("collector", nil, func(ctx context.Context, p *processor.Processor, f frame.Frame, dir frame.Direction) error {
		mu.Lock()
		*seen = append(*seen, f)
		mu.Unlock()
		return nil
	})
}

func waitForLen(t *testing.T, seen *[]frame.Frame, mu *sync.Mutex, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		l := len(*seen)
		mu.Unlock()
		if l >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected %d frames, timed out", n)
}

func TestBatcher_ConcatenatesMidUtteranceChunksOnStop(t *testing.T) {
	p := NewBatcherProcessor("batcher", nil, BatcherSettings{SampleRate: 16000, Channels: 1})

	var mu sync.Mutex
	var seen []frame.Frame
	sink := collectSink(&seen, &mu)
	p.Link(sink)

	ctx := context.Background()
	p.Start(ctx)
	sink.Start(ctx)
	defer func() { _ = p.Stop(ctx); _ = sink.Stop(ctx) }()

	p.Queue(frame.NewUserStartedSpeakingFrame(), frame.Downstream)
	p.Queue(frame.NewInputAudioFrame([]byte{1, 2}, 16000, 1), frame.Downstream)
	p.Queue(frame.NewInputAudioFrame([]byte{3, 4}, 16000, 1), frame.Downstream)
	p.Queue(frame.NewUserStoppedSpeakingFrame(), frame.Downstream)

	waitForLen(t, &seen, &mu, 3)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 3)
	_, ok := seen[0].(*frame.UserStartedSpeakingFrame)
	assert.True(t, ok)
	_, ok = seen[1].(*frame.UserStoppedSpeakingFrame)
	assert.True(t, ok)
	audio, ok := seen[2].(*frame.InputAudioFrame)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4}, audio.Audio)
}

func TestBatcher_MidUtteranceChunksNotForwardedIndividually(t *testing.T) {
	p := NewBatcherProcessor("batcher", nil, BatcherSettings{SampleRate: 16000, Channels: 1})

	var mu sync.Mutex
	var seen []frame.Frame
	sink := collectSink(&seen, &mu)
	p.Link(sink)

	ctx := context.Background()
	p.Start(ctx)
	sink.Start(ctx)
	defer func() { _ = p.Stop(ctx); _ = sink.Stop(ctx) }()

	p.Queue(frame.NewUserStartedSpeakingFrame(), frame.Downstream)
	p.Queue(frame.NewInputAudioFrame([]byte{1, 2}, 16000, 1), frame.Downstream)
	waitForLen(t, &seen, &mu, 1)
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 1, "mid-utterance audio must be consumed, not forwarded, while buffering")
}

func TestBatcher_PreRollCapturedBeforeSpeechIsPrepended(t *testing.T) {
	p := NewBatcherProcessor("batcher", nil, BatcherSettings{SampleRate: 16000, Channels: 1, PreRollFrames: 2})

	var mu sync.Mutex
	var seen []frame.Frame
	sink := collectSink(&seen, &mu)
	p.Link(sink)

	ctx := context.Background()
	p.Start(ctx)
	sink.Start(ctx)
	defer func() { _ = p.Stop(ctx); _ = sink.Stop(ctx) }()

	p.Queue(frame.NewInputAudioFrame([]byte{0xAA}, 16000, 1), frame.Downstream)
	p.Queue(frame.NewUserStartedSpeakingFrame(), frame.Downstream)
	p.Queue(frame.NewInputAudioFrame([]byte{0xBB}, 16000, 1), frame.Downstream)
	p.Queue(frame.NewUserStoppedSpeakingFrame(), frame.Downstream)

	waitForLen(t, &seen, &mu, 3)

	mu.Lock()
	defer mu.Unlock()
	audio, ok := seen[2].(*frame.InputAudioFrame)
	require.True(t, ok)
	assert.Equal(t, []byte{0xAA, 0xBB}, audio.Audio, "pre-roll chunk must be moved into the buffer ahead of in-speech audio")
}

// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package llm

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

// scriptedAdapter returns a queued sequence of results, recording the
// messages it was called with each time.
type scriptedAdapter struct {
	mu      sync.Mutex
	results []CompleteResult
	calls   [][]frame.Message
}

func (a *scriptedAdapter) Complete(ctx context.Context, messages []frame.Message) (CompleteResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, append([]frame.Message(nil), messages...))
	if len(a.results) == 0 {
		return CompleteResult{}, nil
	}
	r := a.results[0]
	a.results = a.results[1:]
	return r, nil
}

func collectSink(seen *[]frame.Frame, mu *sync.Mutex) *processor.Processor {
	return processor.New("collector", nil, func(ctx context.Context, p *processor.Processor, f frame.Frame, dir frame.Direction) error {
		mu.Lock()
		*seen = append(*seen, f)
		mu.Unlock()
		p.Push(f, frame.Downstream)
		return nil
	})
}

func waitForLen(t *testing.T, seen *[]frame.Frame, mu *sync.Mutex, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		l := len(*seen)
		mu.Unlock()
		if l >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected at least %d frames, timed out", n)
}

func TestLLMStage_SimpleRoundtrip(t *testing.T) {
	adapter := &scriptedAdapter{results: []CompleteResult{{Text: "reply"}}}
	p := NewProcessor("llm", nil, adapter, "S")

	var mu sync.Mutex
	var seen []frame.Frame
	sink := collectSink(&seen, &mu)
	p.Link(sink)

	ctx := context.Background()
	p.Start(ctx)
	sink.Start(ctx)
	defer func() { _ = p.Stop(ctx); _ = sink.Stop(ctx) }()

	p.Queue(frame.NewTranscriptionFrame("Hello", "u", time.Now(), "en", nil), frame.Downstream)

	waitForLen(t, &seen, &mu, 4)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 4)
	_, ok := seen[0].(*frame.TranscriptionFrame)
	assert.True(t, ok)
	_, ok = seen[1].(*frame.LLMResponseStartFrame)
	assert.True(t, ok)
	text, ok := seen[2].(*frame.TextFrame)
	require.True(t, ok)
	assert.Equal(t, "reply", text.Text)
	_, ok = seen[3].(*frame.LLMResponseEndFrame)
	assert.True(t, ok)

	require.Len(t, adapter.calls, 1)
	require.Len(t, adapter.calls[0], 2)
	assert.Equal(t, frame.RoleSystem, adapter.calls[0][0].Role)
	assert.Equal(t, "S", adapter.calls[0][0].Content)
	assert.Equal(t, frame.RoleUser, adapter.calls[0][1].Role)
	assert.Equal(t, "Hello", adapter.calls[0][1].Content)
}

func TestLLMStage_ToolCallThenResult(t *testing.T) {
	adapter := &scriptedAdapter{results: []CompleteResult{
		{FunctionCalls: []FunctionCall{{ID: "c1", Name: "w", Arguments: map[string]any{"city": "NYC"}}}},
		{Text: "Sunny."},
	}}
	p := NewProcessor("llm", nil, adapter, "")

	var mu sync.Mutex
	var seen []frame.Frame
	sink := collectSink(&seen, &mu)
	p.Link(sink)

	ctx := context.Background()
	p.Start(ctx)
	sink.Start(ctx)
	defer func() { _ = p.Stop(ctx); _ = sink.Stop(ctx) }()

	p.Queue(frame.NewTranscriptionFrame("Weather?", "u", time.Now(), "en", nil), frame.Downstream)
	waitForLen(t, &seen, &mu, 4)
	mu.Lock()
	require.Len(t, seen, 4)
	fc, ok := seen[2].(*frame.FunctionCallFrame)
	require.True(t, ok)
	assert.Equal(t, "c1", fc.CallID)
	_, ok = seen[3].(*frame.LLMResponseEndFrame)
	assert.True(t, ok)
	mu.Unlock()

	p.Queue(frame.NewFunctionCallResultFrame("c1", "w", map[string]any{"temp": 72}), frame.Downstream)
	waitForLen(t, &seen, &mu, 7)

	mu.Lock()
	defer mu.Unlock()
	_, ok = seen[4].(*frame.LLMResponseStartFrame)
	assert.True(t, ok)
	text, ok := seen[5].(*frame.TextFrame)
	require.True(t, ok)
	assert.Equal(t, "Sunny.", text.Text)
	_, ok = seen[6].(*frame.LLMResponseEndFrame)
	assert.True(t, ok)

	require.Len(t, adapter.calls, 2)
	last := adapter.calls[1]
	found := false
	for _, m := range last {
		if m.Role == frame.RoleFunction && m.Name == "c1" {
			found = true
		}
	}
	assert.True(t, found, "expected a function-role message named c1")
}

func TestLLMStage_EmptyTranscriptionCausesNoGeneration(t *testing.T) {
	adapter := &scriptedAdapter{}
	p := NewProcessor("llm", nil, adapter, "")

	var mu sync.Mutex
	var seen []frame.Frame
	sink := collectSink(&seen, &mu)
	p.Link(sink)

	ctx := context.Background()
	p.Start(ctx)
	sink.Start(ctx)
	defer func() { _ = p.Stop(ctx); _ = sink.Stop(ctx) }()

	p.Queue(frame.NewTranscriptionFrame("   ", "u", time.Now(), "en", nil), frame.Downstream)
	waitForLen(t, &seen, &mu, 1)
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 1, "empty transcription should not trigger generation")
}

func TestContext_SystemMessageSurvivesAppendAndReplace(t *testing.T) {
	c := NewContext("you are a bot")
	c.Append(frame.Message{Role: frame.RoleUser, Content: "hi"})
	require.Equal(t, frame.RoleSystem, c.Messages()[0].Role)

	c.Replace([]frame.Message{{Role: frame.RoleUser, Content: "new turn"}})
	require.Equal(t, frame.RoleSystem, c.Messages()[0].Role)
	assert.Equal(t, "you are a bot", c.Messages()[0].Content)
}

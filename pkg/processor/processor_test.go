// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package processor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convopipe/pipeline/pkg/frame"
)

// collectingHandler appends every frame it sees (in handling order) to a
// slice guarded by a mutex, so tests can assert on observed order.
func collectingHandler(seen *[]frame.Frame, mu *sync.Mutex, delay time.Duration) Handler {
	return func(ctx context.Context, p *Processor, f frame.Frame, dir frame.Direction) error {
		if delay > 0 {
			time.Sleep(delay)
		}
		mu.Lock()
		*seen = append(*seen, f)
		mu.Unlock()
		p.Push(f, frame.Downstream)
		return nil
	}
}

func waitFor(t *testing.T, cond func() bool, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestProcessor_SystemFramesPreemptOrdinaryQueue(t *testing.T) {
	var mu sync.Mutex
	var seen []frame.Frame

	p := New("p", nil, collectingHandler(&seen, &mu, 5*time.Millisecond))
	sink := New("sink", nil, collectingHandler(&seen, &mu, 0))
	p.Link(sink)

	ctx := context.Background()

	// Queue a slow data frame first, then a system frame right behind it,
	// before the scheduler starts, so both are waiting when it first polls.
	p.Queue(frame.NewTextFrame("data", false), frame.Downstream)
	p.Queue(frame.NewErrorFrame("urgent", false), frame.Downstream)

	p.Start(ctx)
	sink.Start(ctx)
	defer func() { _ = p.Stop(ctx); _ = sink.Stop(ctx) }()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) >= 2
	}, time.Second)

	mu.Lock()
	defer mu.Unlock()
	_, ok := seen[0].(*frame.ErrorFrame)
	assert.True(t, ok, "the system frame must be handled before the data frame queued ahead of it")
}

func TestProcessor_HandlerErrorDoesNotStopScheduler(t *testing.T) {
	var errCount int
	handler := func(ctx context.Context, p *Processor, f frame.Frame, dir frame.Direction) error {
		if _, ok := f.(*frame.TextFrame); ok {
			return assertErr
		}
		return nil
	}
	var mu sync.Mutex
	var sinkSeen []frame.Frame
	p := New("p", nil, handler)
	sink := New("sink", nil, collectingHandler(&sinkSeen, &mu, 0))
	p.Link(sink)

	ctx := context.Background()
	p.Start(ctx)
	sink.Start(ctx)
	defer func() { _ = p.Stop(ctx); _ = sink.Stop(ctx) }()

	p.Queue(frame.NewTextFrame("boom", false), frame.Downstream)
	p.Queue(frame.NewTextFrame("again", false), frame.Downstream)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, f := range sinkSeen {
			if _, ok := f.(*frame.ErrorFrame); ok {
				return true
			}
		}
		return false
	}, time.Second)

	waitFor(t, func() bool { return p.Metrics().Errors >= 2 }, time.Second)
	_ = errCount
}

var assertErr = errTest("boom")

type errTest string

func (e errTest) Error() string { return string(e) }

func TestProcessor_CancelDiscardsOrdinaryQueue(t *testing.T) {
	var mu sync.Mutex
	var seen []frame.Frame
	p := New("p", nil, collectingHandler(&seen, &mu, 20*time.Millisecond))
	p.allowInterruptions = true

	ctx := context.Background()
	p.Start(ctx)
	defer func() { _ = p.Stop(ctx) }()

	p.Queue(frame.NewTextFrame("a", false), frame.Downstream) // in flight
	time.Sleep(2 * time.Millisecond)                          // let it start handling "a"
	p.Queue(frame.NewTextFrame("b", false), frame.Downstream)
	p.Queue(frame.NewCancelFrame(), frame.Downstream)
	p.Queue(frame.NewTextFrame("c", false), frame.Downstream)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, f := range seen {
			if tf, ok := f.(*frame.TextFrame); ok && tf.Text == "c" {
				return true
			}
		}
		return false
	}, time.Second)

	mu.Lock()
	defer mu.Unlock()
	for _, f := range seen {
		if tf, ok := f.(*frame.TextFrame); ok {
			assert.NotEqual(t, "b", tf.Text, "frame queued before cancel must be discarded")
		}
	}
}

// TestProcessor_InterruptionDiscardsOrdinaryQueue drives §8's S6: with
// interruptions allowed, TextFrame("a"), TextFrame("b"), Interruption,
// TextFrame("c") must be observed as a, interruption, c — "b" discarded.
func TestProcessor_InterruptionDiscardsOrdinaryQueue(t *testing.T) {
	var mu sync.Mutex
	var seen []frame.Frame
	p := New("p", nil, collectingHandler(&seen, &mu, 20*time.Millisecond))

	ctx := context.Background()
	p.Start(ctx)
	defer func() { _ = p.Stop(ctx) }()

	p.Queue(frame.NewStartFrame(true), frame.Downstream)
	waitFor(t, func() bool { return p.Metrics().PriorityDepth == 0 }, time.Second)

	p.Queue(frame.NewTextFrame("a", false), frame.Downstream) // in flight
	time.Sleep(2 * time.Millisecond)                          // let it start handling "a"
	p.Queue(frame.NewTextFrame("b", false), frame.Downstream)
	p.Queue(frame.NewInterruptionFrame("user"), frame.Downstream)
	p.Queue(frame.NewTextFrame("c", false), frame.Downstream)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, f := range seen {
			if tf, ok := f.(*frame.TextFrame); ok && tf.Text == "c" {
				return true
			}
		}
		return false
	}, time.Second)

	mu.Lock()
	defer mu.Unlock()
	for _, f := range seen {
		if tf, ok := f.(*frame.TextFrame); ok {
			assert.NotEqual(t, "b", tf.Text, "frame queued before the interruption must be discarded")
		}
	}
}

func TestProcessor_PauseStopsOrdinaryButNotSystemQueue(t *testing.T) {
	var mu sync.Mutex
	var seen []frame.Frame
	p := New("p", nil, collectingHandler(&seen, &mu, 0))

	ctx := context.Background()
	p.Start(ctx)
	defer func() { _ = p.Stop(ctx) }()

	p.Queue(frame.NewPauseProcessorFrame("", "p"), frame.Downstream)
	waitFor(t, func() bool { return p.Paused() }, time.Second)

	p.Queue(frame.NewTextFrame("queued-while-paused", false), frame.Downstream)
	p.Queue(frame.NewErrorFrame("still-delivered", false), frame.Downstream)

	// The system (priority) frame must still drain to zero depth quickly,
	// even though the ordinary queue is frozen by the pause.
	waitFor(t, func() bool { return p.Metrics().PriorityDepth == 0 }, time.Second)

	mu.Lock()
	before := len(seen)
	mu.Unlock()

	p.Queue(frame.NewResumeProcessorFrame("", "p"), frame.Downstream)
	waitFor(t, func() bool { return !p.Paused() }, time.Second)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, f := range seen[before:] {
			if tf, ok := f.(*frame.TextFrame); ok && tf.Text == "queued-while-paused" {
				return true
			}
		}
		return false
	}, time.Second)
}

func TestProcessor_LinkEstablishesBidirectionalReferences(t *testing.T) {
	a := New("a", nil, nil)
	b := New("b", nil, nil)
	a.Link(b)
	require.Equal(t, b, a.Downstream())
	require.Equal(t, a, b.Upstream())
}

func TestProcessor_PushWithoutNeighborDropsSilently(t *testing.T) {
	p := New("solo", nil, nil)
	assert.NotPanics(t, func() {
		p.Push(frame.NewTextFrame("nowhere", false), frame.Downstream)
	})
}

func TestProcessor_StopForwardsStopFrameThenExits(t *testing.T) {
	var mu sync.Mutex
	var sinkSeen []frame.Frame
	p := New("p", nil, func(ctx context.Context, pr *Processor, f frame.Frame, dir frame.Direction) error { return nil })
	sink := New("sink", nil, collectingHandler(&sinkSeen, &mu, 0))
	p.Link(sink)

	ctx := context.Background()
	p.Start(ctx)
	sink.Start(ctx)

	p.Queue(frame.NewStopFrame(), frame.Downstream)
	// The runtime intercepts StopFrame before any user handler runs, so its
	// arrival at the sink shows up in the sink's system-frame counter rather
	// than in sinkSeen.
	waitFor(t, func() bool { return sink.Metrics().HandledSystem >= 1 }, time.Second)

	require.NoError(t, p.Stop(ctx))
	require.NoError(t, sink.Stop(ctx))
}

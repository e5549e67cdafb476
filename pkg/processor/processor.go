// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package processor implements the per-stage runtime: two FIFO channels
// polled in priority order, a single-threaded cooperative scheduler,
// lifecycle hooks, pause/resume, and built-in handling of the closed set of
// System frames every processor must react to before its own handler runs.
package processor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/convopipe/pipeline/pkg/frame"
	"github.com/convopipe/pipeline/pkg/logging"
)

// State is one of the three lifecycle states a Processor moves through.
// Paused is an orthogonal flag, not a fourth state.
type State int

const (
	Constructed State = iota
	Running
	Stopped
)

// Handler is the user-defined per-frame callback. It receives the frame and
// the direction it arrived from, and may push zero or more frames to
// either neighbor via the Processor it is bound to. A returned error is
// treated exactly like a panic: counted, logged, converted to a non-fatal
// ErrorFrame pushed downstream.
type Handler func(ctx context.Context, p *Processor, f frame.Frame, dir frame.Direction) error

// Lifecycle hooks, separate from Handler so concrete stages can acquire and
// release resources (a streaming connection, a websocket) without wiring
// that logic into per-frame dispatch.
type SetupFunc func(ctx context.Context) error
type CleanupFunc func(ctx context.Context) error

// Metrics is a point-in-time, race-free snapshot of a processor's counters.
type Metrics struct {
	Handled        uint64
	HandledSystem  uint64
	HandledData    uint64
	HandledControl uint64
	Errors         uint64
	PriorityDepth  int
	OrdinaryDepth  int
}

const yieldInterval = time.Millisecond

// Processor is a single-stage compute unit: an identity, up to one
// downstream and one upstream neighbor, two FIFO queues, a scheduler
// goroutine, and a user-defined handler. Processors never share mutable
// state with each other; all inter-processor communication is frame
// passing (§3.3).
type Processor struct {
	id   uuid.UUID
	name string

	logger logging.Logger

	handler Handler
	setup   SetupFunc
	cleanup CleanupFunc

	downstream *Processor
	upstream   *Processor

	priorityQueue chan queueItem
	ordinaryQueue chan queueItem

	state atomic.Int32
	// paused is read by the scheduler loop on every iteration and written
	// only from within that same loop (system-frame interception), so it
	// needs no synchronization beyond being a plain bool.
	paused bool

	allowInterruptions bool

	stopRequested atomic.Bool
	loopDone      chan struct{}

	handledTotal  atomic.Uint64
	handledSystem atomic.Uint64
	handledData   atomic.Uint64
	handledCtrl   atomic.Uint64
	errorCount    atomic.Uint64

	mu sync.Mutex // guards downstream/upstream linking and cleanup-once

	runCtx    context.Context
	runCancel context.CancelFunc
}

// Option configures a Processor at construction.
type Option func(*Processor)

func WithSetup(f SetupFunc) Option     { return func(p *Processor) { p.setup = f } }
func WithCleanup(f CleanupFunc) Option { return func(p *Processor) { p.cleanup = f } }
func WithQueueSize(n int) Option {
	return func(p *Processor) {
		p.priorityQueue = make(chan queueItem, n)
		p.ordinaryQueue = make(chan queueItem, n)
	}
}

const defaultQueueSize = 256

// queueItem pairs a frame with the direction it is travelling, so the
// scheduler can hand the user handler the correct arrival direction even
// though priority is decided purely by category.
type queueItem struct {
	Frame frame.Frame
	Dir   frame.Direction
}

// New constructs a Processor in the Constructed state. handler is invoked
// for every frame the runtime does not intercept itself (§4.B).
func New(name string, logger logging.Logger, handler Handler, opts ...Option) *Processor {
	if logger == nil {
		logger = logging.Noop()
	}
	p := &Processor{
		id:            uuid.New(),
		name:          name,
		logger:        logger,
		handler:       handler,
		priorityQueue: make(chan queueItem, defaultQueueSize),
		ordinaryQueue: make(chan queueItem, defaultQueueSize),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Processor) ID() uuid.UUID { return p.id }
func (p *Processor) Name() string  { return p.name }
func (p *Processor) State() State  { return State(p.state.Load()) }
func (p *Processor) Paused() bool  { return p.paused }

// Link establishes bidirectional neighbor references: p -> downstream and
// downstream -> p (upstream).
func (p *Processor) Link(downstream *Processor) {
	p.mu.Lock()
	p.downstream = downstream
	p.mu.Unlock()

	downstream.mu.Lock()
	downstream.upstream = p
	downstream.mu.Unlock()
}

func (p *Processor) Downstream() *Processor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.downstream
}

func (p *Processor) Upstream() *Processor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.upstream
}

// Queue appends a frame to this processor's queues without blocking. Each
// queue is a buffered channel (defaultQueueSize unless WithQueueSize is
// given); when the target queue is full the new frame is dropped and a
// warning is logged. This applies to System frames on the priority queue as
// well as to Data/Control frames on the ordinary queue.
func (p *Processor) Queue(f frame.Frame, dir frame.Direction) {
	item := queueItem{Frame: f, Dir: dir}
	if f.Category() == frame.System {
		select {
		case p.priorityQueue <- item:
		default:
			p.logger.Warnw("priority queue full, dropping frame", "processor", p.name, "frame", f.Name())
		}
		return
	}
	select {
	case p.ordinaryQueue <- item:
	default:
		p.logger.Warnw("ordinary queue full, dropping frame", "processor", p.name, "frame", f.Name())
	}
}

// Push synchronously enqueues f on the neighbor in the given direction. If
// there is no such neighbor the frame is silently dropped (with a log
// line). Push never re-enters this processor's own queues.
func (p *Processor) Push(f frame.Frame, dir frame.Direction) {
	var neighbor *Processor
	if dir == frame.Downstream {
		neighbor = p.Downstream()
	} else {
		neighbor = p.Upstream()
	}
	if neighbor == nil {
		p.logger.Warnw("no neighbor to push to, dropping frame", "processor", p.name, "direction", dir.String(), "frame", f.Name())
		return
	}
	neighbor.Queue(f, dir)
}

// PushError synthesizes and pushes a non-fatal-by-default error frame
// downstream (§6.1).
func (p *Processor) PushError(message string, fatal bool) {
	p.Push(frame.NewErrorFrame(message, fatal), frame.Downstream)
}

// Setup runs the lifecycle setup hook, if any.
func (p *Processor) Setup(ctx context.Context) error {
	if p.setup == nil {
		return nil
	}
	return p.setup(ctx)
}

// Start spawns the scheduler goroutine. Idempotent once running.
func (p *Processor) Start(ctx context.Context) {
	if !p.state.CompareAndSwap(int32(Constructed), int32(Running)) {
		return
	}
	p.runCtx, p.runCancel = context.WithCancel(ctx)
	p.loopDone = make(chan struct{})
	go p.loop()
}

// HaltScheduler signals the scheduler to exit after draining the current
// frame and awaits it, without running Cleanup. It is split out from Stop
// so a pipeline can halt every stage's loop in strict reverse order (later
// stages' loops must stop accepting new work before earlier stages) and
// then run every stage's Cleanup concurrently, since by that point no
// scheduler loop is still pushing frames between them.
func (p *Processor) HaltScheduler(ctx context.Context) {
	if p.state.Load() != int32(Running) {
		return
	}
	p.stopRequested.Store(true)
	if p.loopDone != nil {
		<-p.loopDone
	}
	p.state.Store(int32(Stopped))
	if p.runCancel != nil {
		p.runCancel()
	}
}

// Stop signals the scheduler to exit after draining the current frame,
// awaits it, then invokes cleanup. Idempotent.
func (p *Processor) Stop(ctx context.Context) error {
	if p.state.Load() != int32(Running) {
		return nil
	}
	p.HaltScheduler(ctx)
	return p.Cleanup(ctx)
}

// Cleanup runs the lifecycle cleanup hook, if any. Safe to call only after
// the scheduler loop has exited (Stop guarantees this ordering).
func (p *Processor) Cleanup(ctx context.Context) error {
	if p.cleanup == nil {
		return nil
	}
	return p.cleanup(ctx)
}

// Metrics returns a snapshot of this processor's counters and queue depths.
func (p *Processor) Metrics() Metrics {
	return Metrics{
		Handled:        p.handledTotal.Load(),
		HandledSystem:  p.handledSystem.Load(),
		HandledData:    p.handledData.Load(),
		HandledControl: p.handledCtrl.Load(),
		Errors:         p.errorCount.Load(),
		PriorityDepth:  len(p.priorityQueue),
		OrdinaryDepth:  len(p.ordinaryQueue),
	}
}

// loop is the single-threaded cooperative scheduler. Each iteration
// dequeues and fully handles at most one frame before considering stop.
func (p *Processor) loop() {
	defer close(p.loopDone)
	for {
		item, ok := p.dequeue()
		if ok {
			p.handle(item.Frame, item.Dir)
		}
		if p.stopRequested.Load() {
			return
		}
		if !ok {
			time.Sleep(yieldInterval)
		}
	}
}

// dequeue implements the priority policy: the priority queue is always
// drained first (system frames must never be blocked, even while paused);
// the ordinary queue is only drained while not paused.
func (p *Processor) dequeue() (queueItem, bool) {
	select {
	case item := <-p.priorityQueue:
		return item, true
	default:
	}
	if p.paused {
		return queueItem{}, false
	}
	select {
	case item := <-p.ordinaryQueue:
		return item, true
	default:
		return queueItem{}, false
	}
}

func (p *Processor) handle(f frame.Frame, dir frame.Direction) {
	p.handledTotal.Add(1)
	switch f.Category() {
	case frame.System:
		p.handledSystem.Add(1)
	case frame.Control:
		p.handledCtrl.Add(1)
	case frame.Data:
		p.handledData.Add(1)
	}

	if p.interceptSystem(f) {
		return
	}
	if _, isEnd := f.(*frame.EndFrame); isEnd {
		p.Push(f, frame.Downstream)
		return
	}

	if p.handler == nil {
		return
	}
	if err := p.safeHandle(f, dir); err != nil {
		p.errorCount.Add(1)
		p.logger.Errorw("handler error", "processor", p.name, "frame", f.Name(), "error", err)
		p.Push(frame.NewErrorFrame(err.Error(), false), frame.Downstream)
	}
}

// safeHandle recovers a panicking handler the same way a returned error is
// treated: local, logged, converted into a downstream ErrorFrame.
func (p *Processor) safeHandle(f frame.Frame, dir frame.Direction) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s handler: %v", p.name, r)
		}
	}()
	return p.handler(p.runCtx, p, f, dir)
}

// interceptSystem implements the built-in system-frame handling the
// runtime performs before the user handler ever sees a frame (§4.B). It
// returns true when it fully handled the frame (the user handler must not
// also run).
func (p *Processor) interceptSystem(f frame.Frame) bool {
	switch v := f.(type) {
	case *frame.StartFrame:
		p.allowInterruptions = v.AllowInterruptions
		p.Push(f, frame.Downstream)
		return true
	case *frame.CancelFrame:
		if p.allowInterruptions {
			p.drainOrdinary()
		}
		p.Push(f, frame.Downstream)
		return true
	case *frame.InterruptionFrame:
		if p.allowInterruptions {
			p.drainOrdinary()
		}
		p.Push(f, frame.Downstream)
		return true
	case *frame.StopFrame:
		p.Push(f, frame.Downstream)
		p.stopRequested.Store(true)
		return true
	case *frame.PauseProcessorFrame:
		if p.matches(v.ProcessorID, v.ProcessorName) {
			p.paused = true
		}
		p.Push(f, frame.Downstream)
		return true
	case *frame.ResumeProcessorFrame:
		if p.matches(v.ProcessorID, v.ProcessorName) {
			p.paused = false
		}
		p.Push(f, frame.Downstream)
		return true
	default:
		return false
	}
}

func (p *Processor) matches(id, name string) bool {
	if id != "" {
		return id == p.id.String()
	}
	return name == p.name
}

// drainOrdinary discards all frames currently queued in the ordinary
// queue, leaving the priority queue untouched.
func (p *Processor) drainOrdinary() {
	for {
		select {
		case <-p.ordinaryQueue:
		default:
			return
		}
	}
}

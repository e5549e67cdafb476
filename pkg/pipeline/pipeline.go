// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package pipeline wraps an ordered list of processors with a Source and a
// Sink, links them in both directions, and manages their collective
// lifecycle.
package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/convopipe/pipeline/pkg/frame"
	"github.com/convopipe/pipeline/pkg/logging"
	"github.com/convopipe/pipeline/pkg/processor"
)

// UpstreamCallback receives frames that arrive at the Source from within
// the pipeline (back-channel signals such as user-started-speaking).
type UpstreamCallback func(f frame.Frame)

// DownstreamCallback receives frames that reach the Sink (the pipeline's
// final output).
type DownstreamCallback func(f frame.Frame)

// Pipeline is Source -> p1 -> p2 -> ... -> pN -> Sink, with every adjacent
// pair linked bidirectionally by processor.Link.
type Pipeline struct {
	name       string
	logger     logging.Logger
	source     *processor.Processor
	sink       *processor.Processor
	processors []*processor.Processor
	all        []*processor.Processor
}

// New constructs a pipeline from an ordered list of processors. downstream
// is invoked for frames reaching the Sink; upstream is invoked for frames
// arriving at the Source from within the pipeline (§4.C, §9 back-channel
// resolution: the Source owns the upstream callback, the Sink owns the
// downstream callback, and all other directions flow through neighbor
// links unchanged).
func New(name string, logger logging.Logger, processors []*processor.Processor, downstream DownstreamCallback, upstream UpstreamCallback) *Pipeline {
	if logger == nil {
		logger = logging.Noop()
	}
	source := newSource(logger, upstream)
	sink := newSink(logger, downstream)

	all := make([]*processor.Processor, 0, len(processors)+2)
	all = append(all, source)
	all = append(all, processors...)
	all = append(all, sink)

	for i := 0; i < len(all)-1; i++ {
		all[i].Link(all[i+1])
	}

	return &Pipeline{
		name:       name,
		logger:     logger,
		source:     source,
		sink:       sink,
		processors: processors,
		all:        all,
	}
}

// Processors returns the ordered, linked processor chain including the
// Source (first) and Sink (last), for callers that need to address a
// specific stage (e.g. to build a PauseProcessorFrame by name).
func (pl *Pipeline) Processors() []*processor.Processor { return pl.all }

// Start calls Setup on every processor in order; if any Setup call fails,
// Start aborts and no processor is left running (§4.C). On success it then
// calls Start on each processor in order.
func (pl *Pipeline) Start(ctx context.Context) error {
	for _, p := range pl.all {
		if err := p.Setup(ctx); err != nil {
			return fmt.Errorf("pipeline %s: setup failed for %s: %w", pl.name, p.Name(), err)
		}
	}
	for _, p := range pl.all {
		p.Start(ctx)
	}
	return nil
}

// Stop halts every processor's scheduler loop in reverse order — a later
// stage must stop accepting new work before an earlier stage's loop exits,
// since the earlier stage may still be pushing to it mid-drain — then runs
// every processor's Cleanup concurrently via errgroup, since by that point
// no scheduler loop is pushing frames between them and a slow adapter
// teardown (closing a websocket, draining a streaming connection) should
// not serialize behind the others.
func (pl *Pipeline) Stop(ctx context.Context) error {
	for i := len(pl.all) - 1; i >= 0; i-- {
		pl.all[i].HaltScheduler(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range pl.all {
		p := p
		g.Go(func() error {
			if err := p.Cleanup(gctx); err != nil {
				return fmt.Errorf("pipeline %s: cleanup failed for %s: %w", pl.name, p.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Queue deposits a frame at the Source, tagged downstream — the standard
// entry point for frames originating outside the pipeline.
func (pl *Pipeline) Queue(f frame.Frame) {
	pl.source.Queue(f, frame.Downstream)
}

// Push deposits a frame at the Sink tagged with dir, for scenarios that
// need to inject a frame from the downstream-most end (e.g. a consumer
// simulating user-started-speaking without a real transport). Tagged
// frame.Upstream it travels back toward pN; tagged frame.Downstream it is
// handed to the downstream callback.
func (pl *Pipeline) Push(f frame.Frame, dir frame.Direction) {
	pl.sink.Queue(f, dir)
}

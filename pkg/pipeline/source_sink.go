// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package pipeline

import (
	"context"

	"github.com/convopipe/pipeline/pkg/frame"
	"github.com/convopipe/pipeline/pkg/logging"
	"github.com/convopipe/pipeline/pkg/processor"
)

// newSource builds the boundary processor frames externally queued on the
// pipeline appear at. Frames arriving here tagged downstream are pushed to
// p1; frames arriving tagged upstream (i.e. bounced back from within the
// pipeline) are handed to the caller-supplied upstream callback instead of
// being pushed anywhere (the Source has no upstream neighbor of its own).
// Frames the processor runtime intercepts before the handler (start,
// cancel, stop, interruption, pause/resume, end) never reach the callback:
// the runtime forwards them downstream whatever direction they arrived from.
func newSource(logger logging.Logger, upstream UpstreamCallback) *processor.Processor {
	handler := func(ctx context.Context, p *processor.Processor, f frame.Frame, dir frame.Direction) error {
		if dir == frame.Upstream {
			if upstream != nil {
				upstream(f)
			}
			return nil
		}
		p.Push(f, frame.Downstream)
		return nil
	}
	return processor.New("Source", logger, handler)
}

// newSink builds the boundary processor at the downstream end of the
// chain. Frames arriving tagged downstream are handed to the caller-
// supplied downstream callback; frames arriving tagged upstream are
// forwarded further upstream (back toward pN). Frames the processor
// runtime intercepts before the handler (start, cancel, stop, interruption,
// pause/resume, end) bypass both: the runtime pushes them downstream, where
// the Sink has no neighbor, so they are dropped with a warning.
func newSink(logger logging.Logger, downstream DownstreamCallback) *processor.Processor {
	handler := func(ctx context.Context, p *processor.Processor, f frame.Frame, dir frame.Direction) error {
		if dir == frame.Upstream {
			p.Push(f, frame.Upstream)
			return nil
		}
		if downstream != nil {
			downstream(f)
		}
		return nil
	}
	return processor.New("Sink", logger, handler)
}

// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package frame

// StartFrame is the first frame pushed through a pipeline; it records
// whether interruptions are honored by processors downstream of it.
type StartFrame struct {
	Base
	AllowInterruptions bool
}

func NewStartFrame(allowInterruptions bool) *StartFrame {
	return &StartFrame{Base: NewBase("StartFrame", System), AllowInterruptions: allowInterruptions}
}

// CancelFrame discards ordinary-queue contents at every interruption-
// allowing processor it passes through, then keeps travelling downstream.
type CancelFrame struct {
	Base
}

func NewCancelFrame() *CancelFrame {
	return &CancelFrame{Base: NewBase("CancelFrame", System)}
}

// StopFrame asks every processor to finish its current frame, forward the
// StopFrame, and then exit its scheduling loop. Handling the frame does not
// run the processor's cleanup hook and leaves its State as Running; cleanup
// runs only when Stop or Cleanup is called on the processor (Pipeline.Stop
// calls both HaltScheduler and Cleanup).
type StopFrame struct {
	Base
}

func NewStopFrame() *StopFrame {
	return &StopFrame{Base: NewBase("StopFrame", System)}
}

// InterruptionFrame marks that the user began speaking mid-response (or any
// other reason to silence pending bot output). Source optionally records
// what triggered it ("vad", "word", ...), for diagnostics only.
type InterruptionFrame struct {
	Base
	Source string
}

func NewInterruptionFrame(source string) *InterruptionFrame {
	return &InterruptionFrame{Base: NewBase("InterruptionFrame", System), Source: source}
}

// ErrorFrame reports a non-fatal-by-default error synthesized by the
// processor runtime around a failed handler invocation, or pushed directly
// by an adapter.
type ErrorFrame struct {
	Base
	Message string
	Fatal   bool
}

func NewErrorFrame(message string, fatal bool) *ErrorFrame {
	return &ErrorFrame{Base: NewBase("ErrorFrame", System), Message: message, Fatal: fatal}
}

// PauseProcessorFrame pauses exactly one processor, identified by id or
// name, selected by the runtime at dispatch time.
type PauseProcessorFrame struct {
	Base
	ProcessorID   string
	ProcessorName string
}

func NewPauseProcessorFrame(id, name string) *PauseProcessorFrame {
	return &PauseProcessorFrame{Base: NewBase("PauseProcessorFrame", System), ProcessorID: id, ProcessorName: name}
}

// ResumeProcessorFrame resumes exactly one processor, identified by id or
// name.
type ResumeProcessorFrame struct {
	Base
	ProcessorID   string
	ProcessorName string
}

func NewResumeProcessorFrame(id, name string) *ResumeProcessorFrame {
	return &ResumeProcessorFrame{Base: NewBase("ResumeProcessorFrame", System), ProcessorID: id, ProcessorName: name}
}

// MetricsFrame carries a point-in-time snapshot of processor counters
// (handled/errors/queue depth) for an external collector. No stage in this
// module constructs or consumes it; pkg/metrics records processor.Metrics
// snapshots directly.
type MetricsFrame struct {
	Base
	ProcessorName string
	Handled       uint64
	HandledSystem uint64
	HandledData   uint64
	HandledCtrl   uint64
	Errors        uint64
	PriorityDepth int
	OrdinaryDepth int
}

func NewMetricsFrame(processorName string) *MetricsFrame {
	return &MetricsFrame{Base: NewBase("MetricsFrame", System), ProcessorName: processorName}
}

// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package transport implements the input/output transport stages, the
// RMS-threshold voice-activity detector, and the audio-batching stage that
// sits between a VAD-emitting stage and a batch STT (§4.E).
package transport

import (
	"encoding/binary"
	"math"

	"github.com/convopipe/pipeline/pkg/utils"
)

// VADSettings mirrors §6.4's VAD configuration, with the documented
// defaults.
type VADSettings struct {
	Enabled     bool
	Threshold   float64
	StartFrames int
	StopFrames  int
}

// DefaultVADSettings returns §6.4's documented defaults.
func DefaultVADSettings() VADSettings {
	return VADSettings{Enabled: true, Threshold: 0.01, StartFrames: 3, StopFrames: 10}
}

// vadState is the not-speaking/speaking state of the detector.
type vadState int

const (
	notSpeaking vadState = iota
	speaking
)

// VAD is a simple RMS-threshold state machine with two counters
// (consecutive speech frames, consecutive silence frames). It is not
// goroutine-safe; callers (the input transport's single background task)
// must serialize calls to Process.
type VAD struct {
	settings     VADSettings
	state        vadState
	speechCount  int
	silenceCount int
}

// NewVAD builds a VAD in the not-speaking state.
func NewVAD(settings VADSettings) *VAD {
	return &VAD{settings: settings}
}

// Transition is the edge a call to Process may report: none, a
// start-of-speech edge, or an end-of-speech edge.
type Transition int

const (
	NoTransition Transition = iota
	StartedSpeaking
	StoppedSpeaking
)

// Process feeds one chunk of 16-bit little-endian PCM through the state
// machine and reports any speaking-state transition it caused, along with
// whether this individual chunk was loud enough to count as speech (§4.E.1).
func (v *VAD) Process(pcm []byte) (Transition, bool) {
	if !v.settings.Enabled {
		return NoTransition, false
	}
	loud := rms(pcm) >= v.settings.Threshold

	if loud {
		v.speechCount++
		v.silenceCount = 0
	} else {
		v.silenceCount++
		v.speechCount = 0
	}

	switch v.state {
	case notSpeaking:
		if v.speechCount >= v.settings.StartFrames {
			v.state = speaking
			return StartedSpeaking, loud
		}
	case speaking:
		if v.silenceCount >= v.settings.StopFrames {
			v.state = notSpeaking
			return StoppedSpeaking, loud
		}
	}
	return NoTransition, loud
}

// Speaking reports the detector's current state.
func (v *VAD) Speaking() bool { return v.state == speaking }

// rms computes the root-mean-square amplitude of 16-bit little-endian PCM
// samples, normalized to [0, 1] against the full int16 range. The mean of
// the squared samples is computed via utils.AverageFloat32 so there is one
// shared mean-of-samples implementation rather than two.
func rms(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	squares := make([]float32, n)
	for i := 0; i < n; i++ {
		sample := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		normalized := float32(sample) / 32768.0
		squares[i] = normalized * normalized
	}
	return math.Sqrt(float64(utils.AverageFloat32(squares)))
}

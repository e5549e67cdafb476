// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package frame

import "time"

// AudioFrame carries raw PCM bytes. SampleRate and Channels are immutable
// for the life of the frame (§3.2).
type AudioFrame struct {
	Base
	Audio      []byte
	SampleRate int
	Channels   int
}

// InputAudioFrame is raw audio ingested from a peer, pre-STT.
type InputAudioFrame struct{ AudioFrame }

func NewInputAudioFrame(audio []byte, sampleRate, channels int) *InputAudioFrame {
	return &InputAudioFrame{AudioFrame{Base: NewBase("InputAudioFrame", Data), Audio: audio, SampleRate: sampleRate, Channels: channels}}
}

// OutputAudioFrame is raw audio destined for a peer, not necessarily from
// TTS (e.g. pre-recorded prompts).
type OutputAudioFrame struct{ AudioFrame }

func NewOutputAudioFrame(audio []byte, sampleRate, channels int) *OutputAudioFrame {
	return &OutputAudioFrame{AudioFrame{Base: NewBase("OutputAudioFrame", Data), Audio: audio, SampleRate: sampleRate, Channels: channels}}
}

// TTSAudioFrame is synthesized speech audio.
type TTSAudioFrame struct{ AudioFrame }

func NewTTSAudioFrame(audio []byte, sampleRate, channels int) *TTSAudioFrame {
	return &TTSAudioFrame{AudioFrame{Base: NewBase("TTSAudioFrame", Data), Audio: audio, SampleRate: sampleRate, Channels: channels}}
}

// TextFrame carries text, typically destined for TTS. SkipTTS, when true,
// asks the TTS stage to forward the frame unspoken.
type TextFrame struct {
	Base
	Text    string
	SkipTTS bool
}

func NewTextFrame(text string, skipTTS bool) *TextFrame {
	return &TextFrame{Base: NewBase("TextFrame", Data), Text: text, SkipTTS: skipTTS}
}

// LLMTextFrame carries raw text chunk(s) from an LLM adapter. It is kept
// distinct from TextFrame so it is never mistaken for final TTS input. The
// LLM stage in pkg/stage/llm does not produce it (generate pushes a
// TextFrame built from the adapter's result) and forwards any LLMTextFrame
// it receives unchanged.
type LLMTextFrame struct {
	Base
	Text string
}

func NewLLMTextFrame(text string) *LLMTextFrame {
	return &LLMTextFrame{Base: NewBase("LLMTextFrame", Data), Text: text}
}

// TranscriptionResult is the shape both STT modes (batch and streaming)
// produce and feed through the shared push-transcription-result helper.
type TranscriptionResult struct {
	Text      string
	Interim   bool
	Language  string
	UserID    string
	Timestamp time.Time
	Raw       any
}

// TranscriptionFrame is a final transcription.
type TranscriptionFrame struct {
	Base
	Text      string
	UserID    string
	Timestamp time.Time
	Language  string
	Raw       any
}

func NewTranscriptionFrame(text, userID string, timestamp time.Time, language string, raw any) *TranscriptionFrame {
	return &TranscriptionFrame{
		Base: NewBase("TranscriptionFrame", Data), Text: text, UserID: userID,
		Timestamp: timestamp, Language: language, Raw: raw,
	}
}

// InterimTranscriptionFrame is an interim (non-final) transcription; it
// carries the same shape minus Language (§3.2).
type InterimTranscriptionFrame struct {
	Base
	Text      string
	UserID    string
	Timestamp time.Time
	Raw       any
}

func NewInterimTranscriptionFrame(text, userID string, timestamp time.Time, raw any) *InterimTranscriptionFrame {
	return &InterimTranscriptionFrame{
		Base: NewBase("InterimTranscriptionFrame", Data), Text: text, UserID: userID,
		Timestamp: timestamp, Raw: raw,
	}
}

// ImageFrame carries a still image payload (e.g. vision-capable LLM input).
type ImageFrame struct {
	Base
	Image    []byte
	MimeType string
	Width    int
	Height   int
}

func NewImageFrame(image []byte, mimeType string, width, height int) *ImageFrame {
	return &ImageFrame{Base: NewBase("ImageFrame", Data), Image: image, MimeType: mimeType, Width: width, Height: height}
}

// Speaking-state frames.
type UserStartedSpeakingFrame struct{ Base }

func NewUserStartedSpeakingFrame() *UserStartedSpeakingFrame {
	return &UserStartedSpeakingFrame{Base: NewBase("UserStartedSpeakingFrame", Data)}
}

type UserStoppedSpeakingFrame struct{ Base }

func NewUserStoppedSpeakingFrame() *UserStoppedSpeakingFrame {
	return &UserStoppedSpeakingFrame{Base: NewBase("UserStoppedSpeakingFrame", Data)}
}

type BotStartedSpeakingFrame struct{ Base }

func NewBotStartedSpeakingFrame() *BotStartedSpeakingFrame {
	return &BotStartedSpeakingFrame{Base: NewBase("BotStartedSpeakingFrame", Data)}
}

type BotStoppedSpeakingFrame struct{ Base }

func NewBotStoppedSpeakingFrame() *BotStoppedSpeakingFrame {
	return &BotStoppedSpeakingFrame{Base: NewBase("BotStoppedSpeakingFrame", Data)}
}

// InboundTransportMessageFrame carries a typed byte blob received from a
// peer (structured control, not audio).
type InboundTransportMessageFrame struct {
	Base
	MessageType string
	Payload     []byte
}

func NewInboundTransportMessageFrame(messageType string, payload []byte) *InboundTransportMessageFrame {
	return &InboundTransportMessageFrame{Base: NewBase("InboundTransportMessageFrame", Data), MessageType: messageType, Payload: payload}
}

// OutboundTransportMessageFrame carries a typed byte blob to send to a peer.
// The output transport hands every message to its sink as soon as the frame
// is handled, urgent or not; Urgent is passed through to the sink.
type OutboundTransportMessageFrame struct {
	Base
	MessageType string
	Payload     []byte
	Urgent      bool
}

func NewOutboundTransportMessageFrame(messageType string, payload []byte, urgent bool) *OutboundTransportMessageFrame {
	return &OutboundTransportMessageFrame{Base: NewBase("OutboundTransportMessageFrame", Data), MessageType: messageType, Payload: payload, Urgent: urgent}
}

// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package frame

// EndFrame marks end-of-stream. The processor runtime forwards it
// downstream without invoking the user handler.
type EndFrame struct {
	Base
}

func NewEndFrame() *EndFrame {
	return &EndFrame{Base: NewBase("EndFrame", Control)}
}

// TTSStartedFrame / TTSStoppedFrame bracket a single synthesis call.
type TTSStartedFrame struct{ Base }

func NewTTSStartedFrame() *TTSStartedFrame {
	return &TTSStartedFrame{Base: NewBase("TTSStartedFrame", Control)}
}

type TTSStoppedFrame struct{ Base }

func NewTTSStoppedFrame() *TTSStoppedFrame {
	return &TTSStoppedFrame{Base: NewBase("TTSStoppedFrame", Control)}
}

// LLMResponseStartFrame / LLMResponseEndFrame bracket a single generate
// call. SkipTTS is carried so the downstream TTS stage can forward text
// without speaking it.
type LLMResponseStartFrame struct {
	Base
	SkipTTS bool
}

func NewLLMResponseStartFrame(skipTTS bool) *LLMResponseStartFrame {
	return &LLMResponseStartFrame{Base: NewBase("LLMResponseStartFrame", Control), SkipTTS: skipTTS}
}

type LLMResponseEndFrame struct{ Base }

func NewLLMResponseEndFrame() *LLMResponseEndFrame {
	return &LLMResponseEndFrame{Base: NewBase("LLMResponseEndFrame", Control)}
}

// FunctionCallFrame announces a tool invocation the LLM adapter requested.
type FunctionCallFrame struct {
	Base
	CallID    string
	Name      string
	Arguments map[string]any
}

func NewFunctionCallFrame(callID, name string, args map[string]any) *FunctionCallFrame {
	return &FunctionCallFrame{Base: NewBase("FunctionCallFrame", Control), CallID: callID, Name: name, Arguments: args}
}

// FunctionCallResultFrame carries the caller-supplied result of a prior
// FunctionCallFrame, correlated by CallID.
type FunctionCallResultFrame struct {
	Base
	CallID string
	Name   string
	Value  any
}

func NewFunctionCallResultFrame(callID, name string, value any) *FunctionCallResultFrame {
	return &FunctionCallResultFrame{Base: NewBase("FunctionCallResultFrame", Control), CallID: callID, Name: name, Value: value}
}

// LLMMessagesAppendFrame appends messages to the LLM stage's context. If
// Run is true the stage generates immediately after appending.
type LLMMessagesAppendFrame struct {
	Base
	Messages []Message
	Run      bool
}

func NewLLMMessagesAppendFrame(messages []Message, run bool) *LLMMessagesAppendFrame {
	return &LLMMessagesAppendFrame{Base: NewBase("LLMMessagesAppendFrame", Control), Messages: messages, Run: run}
}

// LLMMessagesReplaceFrame replaces the LLM stage's context wholesale. If Run
// is true the stage generates immediately after replacing.
type LLMMessagesReplaceFrame struct {
	Base
	Messages []Message
	Run      bool
}

func NewLLMMessagesReplaceFrame(messages []Message, run bool) *LLMMessagesReplaceFrame {
	return &LLMMessagesReplaceFrame{Base: NewBase("LLMMessagesReplaceFrame", Control), Messages: messages, Run: run}
}

// LLMRunFrame triggers generation without touching the context.
type LLMRunFrame struct{ Base }

func NewLLMRunFrame() *LLMRunFrame {
	return &LLMRunFrame{Base: NewBase("LLMRunFrame", Control)}
}

// LLMSetToolsFrame replaces the LLM stage's tool set.
type LLMSetToolsFrame struct {
	Base
	Tools []Tool
}

func NewLLMSetToolsFrame(tools []Tool) *LLMSetToolsFrame {
	return &LLMSetToolsFrame{Base: NewBase("LLMSetToolsFrame", Control), Tools: tools}
}

// ToolChoice selects how the adapter should pick among configured tools.
type ToolChoice struct {
	// Mode is one of "auto", "none", "required", or "function" (Function
	// names the specific function to force).
	Mode     string
	Function string
}

// LLMSetToolChoiceFrame updates the LLM stage's tool-choice policy.
type LLMSetToolChoiceFrame struct {
	Base
	Choice ToolChoice
}

func NewLLMSetToolChoiceFrame(choice ToolChoice) *LLMSetToolChoiceFrame {
	return &LLMSetToolChoiceFrame{Base: NewBase("LLMSetToolChoiceFrame", Control), Choice: choice}
}

// LLMConfigureOutputFrame updates the LLM stage's skip_tts flag.
type LLMConfigureOutputFrame struct {
	Base
	SkipTTS bool
}

func NewLLMConfigureOutputFrame(skipTTS bool) *LLMConfigureOutputFrame {
	return &LLMConfigureOutputFrame{Base: NewBase("LLMConfigureOutputFrame", Control), SkipTTS: skipTTS}
}

// LLMSettingsUpdateFrame updates generation settings (§6.4) without
// triggering generation.
type LLMSettingsUpdateFrame struct {
	Base
	MaxTokens        *int
	Temperature      *float64
	TopP             *float64
	FrequencyPenalty *float64
	PresencePenalty  *float64
}

func NewLLMSettingsUpdateFrame() *LLMSettingsUpdateFrame {
	return &LLMSettingsUpdateFrame{Base: NewBase("LLMSettingsUpdateFrame", Control)}
}

// Tool describes a function the LLM adapter may call.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Message is one entry in an LLM conversation context (§3.4). Name carries
// the call id a function-role message correlates with.
type Message struct {
	Role    string
	Content string
	Name    string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleFunction  = "function"
)

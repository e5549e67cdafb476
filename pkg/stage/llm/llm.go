// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/convopipe/pipeline/pkg/frame"
	"github.com/convopipe/pipeline/pkg/logging"
	"github.com/convopipe/pipeline/pkg/processor"
	"github.com/convopipe/pipeline/pkg/utils"
)

// FunctionCall is one tool invocation an adapter's Complete call returned.
type FunctionCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Usage reports token accounting, when the adapter provides it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompleteResult is what a concrete adapter's Complete call returns.
type CompleteResult struct {
	Text          string
	FunctionCalls []FunctionCall
	Usage         *Usage
}

// Adapter is the narrow contract a concrete LLM vendor integration must
// satisfy (§6.2). Cloud-specific implementations are out of scope for this
// module; tests use a stub.
type Adapter interface {
	Complete(ctx context.Context, messages []frame.Message) (CompleteResult, error)
}

// Settings mirrors the generation options recognized by §6.4.
type Settings struct {
	ModelID          string
	MaxTokens        int
	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
}

// Stage is the generic LLM service stage (§4.D.2).
type Stage struct {
	logger   logging.Logger
	adapter  Adapter
	context  *Context
	tools    []frame.Tool
	choice   frame.ToolChoice
	skipTTS  bool
	settings Settings
}

// Option configures a Stage at construction.
type Option func(*Stage)

func WithTools(tools []frame.Tool) Option    { return func(s *Stage) { s.tools = tools } }
func WithSkipTTS(skip bool) Option           { return func(s *Stage) { s.skipTTS = skip } }
func WithSettings(settings Settings) Option  { return func(s *Stage) { s.settings = settings } }
func WithToolChoice(c frame.ToolChoice) Option { return func(s *Stage) { s.choice = c } }

// NewProcessor builds a processor.Processor running the LLM stage's
// protocol, with the given system prompt seeding its context.
func NewProcessor(name string, logger logging.Logger, adapter Adapter, systemPrompt string, opts ...Option) *processor.Processor {
	s := &Stage{
		logger:  logger,
		adapter: adapter,
		context: NewContext(systemPrompt),
		choice:  frame.ToolChoice{Mode: "auto"},
	}
	for _, o := range opts {
		o(s)
	}
	return processor.New(name, logger, s.handle)
}

func (s *Stage) handle(ctx context.Context, p *processor.Processor, f frame.Frame, dir frame.Direction) error {
	switch v := f.(type) {
	case *frame.TranscriptionFrame:
		p.Push(f, frame.Downstream)
		if utils.IsEmpty(v.Text) {
			return nil
		}
		s.context.Append(frame.Message{Role: frame.RoleUser, Content: v.Text})
		return s.generate(ctx, p)

	case *frame.LLMMessagesAppendFrame:
		s.context.Append(v.Messages...)
		if v.Run {
			return s.generate(ctx, p)
		}
		return nil

	case *frame.LLMMessagesReplaceFrame:
		s.context.Replace(v.Messages)
		if v.Run {
			return s.generate(ctx, p)
		}
		return nil

	case *frame.LLMRunFrame:
		return s.generate(ctx, p)

	case *frame.LLMSetToolsFrame:
		s.tools = v.Tools
		return nil

	case *frame.LLMSetToolChoiceFrame:
		s.choice = v.Choice
		return nil

	case *frame.LLMConfigureOutputFrame:
		s.skipTTS = v.SkipTTS
		return nil

	case *frame.LLMSettingsUpdateFrame:
		if v.MaxTokens != nil {
			s.settings.MaxTokens = *v.MaxTokens
		}
		if v.Temperature != nil {
			s.settings.Temperature = *v.Temperature
		}
		if v.TopP != nil {
			s.settings.TopP = *v.TopP
		}
		if v.FrequencyPenalty != nil {
			s.settings.FrequencyPenalty = *v.FrequencyPenalty
		}
		if v.PresencePenalty != nil {
			s.settings.PresencePenalty = *v.PresencePenalty
		}
		return nil

	case *frame.FunctionCallResultFrame:
		value, err := json.Marshal(v.Value)
		if err != nil {
			return fmt.Errorf("marshal function result: %w", err)
		}
		s.context.Append(frame.Message{Role: frame.RoleFunction, Name: v.CallID, Content: string(value)})
		return s.generate(ctx, p)

	default:
		p.Push(f, frame.Downstream)
		return nil
	}
}

// generate brackets a single adapter call with response-start/end frames,
// emitting any function calls before the text frame (§4.D.2 tie-break),
// and always emits the end frame even if the adapter call failed, so the
// start/end pair stays symmetric (§9).
func (s *Stage) generate(ctx context.Context, p *processor.Processor) error {
	p.Push(frame.NewLLMResponseStartFrame(s.skipTTS), frame.Downstream)
	defer p.Push(frame.NewLLMResponseEndFrame(), frame.Downstream)

	result, err := s.adapter.Complete(ctx, s.context.Messages())
	if err != nil {
		return fmt.Errorf("llm complete: %w", err)
	}

	for _, call := range result.FunctionCalls {
		p.Push(frame.NewFunctionCallFrame(call.ID, call.Name, call.Arguments), frame.Downstream)
	}

	if !utils.IsEmpty(result.Text) {
		s.context.Append(frame.Message{Role: frame.RoleAssistant, Content: result.Text})
		p.Push(frame.NewTextFrame(result.Text, s.skipTTS), frame.Downstream)
	}

	return nil
}

// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package llm implements the generic language-model service stage: a
// conversation context, tool/tool-choice state, and the generate protocol
// that brackets every adapter call with response-start/end control frames.
package llm

import "github.com/convopipe/pipeline/pkg/frame"

// Context is the ordered sequence of messages an LLM stage sends to its
// adapter; it is owned exclusively by that stage for the processor's
// lifetime (§3.4).
type Context struct {
	systemPrompt string
	messages     []frame.Message
}

// NewContext builds a Context. If systemPrompt is non-empty it is the first
// element at construction.
func NewContext(systemPrompt string) *Context {
	c := &Context{systemPrompt: systemPrompt}
	if systemPrompt != "" {
		c.messages = append(c.messages, frame.Message{Role: frame.RoleSystem, Content: systemPrompt})
	}
	return c
}

// Messages returns the context's messages in order. The returned slice
// must not be mutated by the caller.
func (c *Context) Messages() []frame.Message {
	return c.messages
}

// Append adds messages to the end of the context.
func (c *Context) Append(messages ...frame.Message) {
	c.messages = append(c.messages, messages...)
}

// Replace swaps the context wholesale. If none of the replacement messages
// is a system message and a system prompt is configured, the system
// prompt is re-prepended (§3.4, §4.D.2).
func (c *Context) Replace(messages []frame.Message) {
	hasSystem := false
	for _, m := range messages {
		if m.Role == frame.RoleSystem {
			hasSystem = true
			break
		}
	}
	if !hasSystem && c.systemPrompt != "" {
		next := make([]frame.Message, 0, len(messages)+1)
		next = append(next, frame.Message{Role: frame.RoleSystem, Content: c.systemPrompt})
		next = append(next, messages...)
		c.messages = next
		return
	}
	c.messages = append([]frame.Message(nil), messages...)
}

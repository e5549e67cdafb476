// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package wire

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeTranscription_RoundTrips(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	raw, err := EncodeTranscription(TranscriptionPayload{Text: "hello", UserID: "u1", Timestamp: now, Final: true})
	require.NoError(t, err)

	env, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeTranscription, env.Type)

	var payload TranscriptionPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "hello", payload.Text)
	assert.True(t, payload.Final)
}

func TestEncodeBotResponse_SetsMessageType(t *testing.T) {
	raw, err := EncodeBotResponse(BotResponsePayload{Text: "hi there"})
	require.NoError(t, err)

	env, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeBotResponse, env.Type)
}

func TestEncodeMessage_AcceptsFreeformPayload(t *testing.T) {
	raw, err := EncodeMessage(map[string]any{"foo": "bar"})
	require.NoError(t, err)

	env, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeMessage, env.Type)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "bar", payload["foo"])
}

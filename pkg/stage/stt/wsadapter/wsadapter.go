// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package wsadapter implements stt.StreamingAdapter over a generic
// websocket transcription endpoint: binary frames carry audio out, JSON
// text frames carry transcription results back. The connection URL is a
// constructor argument; the result shape is fixed to the Result type
// below, so an endpoint emitting a different JSON shape needs its own
// adapter.
package wsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/convopipe/pipeline/pkg/logging"
	"github.com/convopipe/pipeline/pkg/stage/stt"
)

// Result is the JSON shape a websocket endpoint is expected to emit for
// each transcription event.
type Result struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Final    bool   `json:"is_final"`
}

// Adapter dials a websocket endpoint once in Setup, writes binary audio
// frames as SendAudio is called, and decodes every inbound text frame as a
// Result, translating it into stt.Result for the registered callback.
type Adapter struct {
	url    string
	logger logging.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// New builds an Adapter that will dial url when Setup is called.
func New(url string, logger logging.Logger) *Adapter {
	if logger == nil {
		logger = logging.Noop()
	}
	return &Adapter{url: url, logger: logger}
}

// Setup dials the endpoint and starts a background reader that decodes
// incoming Result messages and forwards them to onResult.
func (a *Adapter) Setup(ctx context.Context, onResult func(stt.Result)) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, a.url, nil)
	if err != nil {
		return fmt.Errorf("wsadapter: dial %s: %w", a.url, err)
	}

	a.mu.Lock()
	a.conn = conn
	a.mu.Unlock()

	go a.readLoop(conn, onResult)
	return nil
}

func (a *Adapter) readLoop(conn *websocket.Conn, onResult func(stt.Result)) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			a.logger.Warnw("wsadapter: read loop ended", "error", err)
			return
		}
		var r Result
		if err := json.Unmarshal(msg, &r); err != nil {
			a.logger.Warnw("wsadapter: malformed result payload", "error", err)
			continue
		}
		onResult(stt.Result{Text: r.Text, Language: r.Language, Interim: !r.Final})
	}
}

// SendAudio writes audio as a binary websocket frame. sampleRate and
// channels are accepted to satisfy stt.StreamingAdapter; this generic
// adapter assumes they were already negotiated when the connection was
// established.
func (a *Adapter) SendAudio(ctx context.Context, audio []byte, sampleRate, channels int) error {
	a.mu.Lock()
	conn := a.conn
	a.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("wsadapter: send before setup")
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("wsadapter: write audio: %w", err)
	}
	return nil
}

// Cleanup closes the websocket connection.
func (a *Adapter) Cleanup(ctx context.Context) error {
	a.mu.Lock()
	conn := a.conn
	a.conn = nil
	a.mu.Unlock()

	if conn == nil {
		return nil
	}
	if err := conn.Close(); err != nil {
		return fmt.Errorf("wsadapter: close: %w", err)
	}
	return nil
}

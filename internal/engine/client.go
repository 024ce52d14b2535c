package engine

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"storeline/voice/internal/agents"
)

// Client is the reasoning-engine leg of a call: a single websocket to the
// realtime API. One client per call; no reconnection, a dead socket ends the
// call.
type Client struct {
	mu     sync.Mutex
	ws     *websocket.Conn
	closed bool
}

type Options struct {
	URL    string // base realtime URL, without query
	APIKey string
	Model  string
}

// Dial opens the engine socket. The caller owns the connection and must
// Close it when either leg of the call goes down.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	hdr := make(http.Header)
	hdr.Set("Authorization", "Bearer "+opts.APIKey)
	hdr.Set("OpenAI-Beta", "realtime=v1")

	dctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	start := time.Now()
	ws, _, err := websocket.Dial(dctx, opts.URL+"?model="+opts.Model, &websocket.DialOptions{HTTPHeader: hdr})
	if err != nil {
		return nil, err
	}
	// Engine events can run well past the default 32KiB read limit.
	ws.SetReadLimit(1 << 20)
	log.Printf("[engine] connected in %dms", time.Since(start).Milliseconds())
	return &Client{ws: ws}, nil
}

// Read returns the next raw event frame from the engine.
func (c *Client) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.ws.Read(ctx)
	return data, err
}

// Close is safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	_ = c.ws.Close(websocket.StatusNormalClosure, "bye")
}

// Closed reports whether Close has been called. Event handlers suspended on
// an HTTP call check this before sending anything after they resume.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) writeJSON(ctx context.Context, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.ws.Write(wctx, websocket.MessageText, b)
}

// UpdateSession configures the engine for the given persona: instructions,
// toolset, telephony audio in and out, and server-side VAD that only reports
// speech boundaries (the session decides when a response is created).
func (c *Client) UpdateSession(ctx context.Context, instructions, voice string, tools []agents.ToolDef) error {
	if tools == nil {
		tools = []agents.ToolDef{}
	}
	return c.writeJSON(ctx, map[string]any{
		"type": "session.update",
		"session": map[string]any{
			"modalities":          []string{"text", "audio"},
			"instructions":        instructions,
			"voice":               voice,
			"input_audio_format":  "g711_ulaw",
			"output_audio_format": "g711_ulaw",
			"turn_detection": map[string]any{
				"type":            "server_vad",
				"create_response": false,
			},
			"tools":       tools,
			"tool_choice": "auto",
		},
	})
}

// AppendAudio forwards one base64 telephony frame into the engine's input
// buffer.
func (c *Client) AppendAudio(ctx context.Context, payloadB64 string) error {
	return c.writeJSON(ctx, map[string]any{
		"type":  "input_audio_buffer.append",
		"audio": payloadB64,
	})
}

// CreateUserMessage injects a synthetic user turn, e.g. a question carried
// across a handoff.
func (c *Client) CreateUserMessage(ctx context.Context, text string) error {
	return c.writeJSON(ctx, map[string]any{
		"type": "conversation.item.create",
		"item": map[string]any{
			"type": "message",
			"role": "user",
			"content": []map[string]any{
				{"type": "input_text", "text": text},
			},
		},
	})
}

// CreateFunctionOutput submits a tool result tagged with the originating
// call id.
func (c *Client) CreateFunctionOutput(ctx context.Context, callID, output string) error {
	return c.writeJSON(ctx, map[string]any{
		"type": "conversation.item.create",
		"item": map[string]any{
			"type":    "function_call_output",
			"call_id": callID,
			"output":  output,
		},
	})
}

// CreateResponse asks the engine to produce the next turn. The session's
// request gate guarantees at most one of these is outstanding.
func (c *Client) CreateResponse(ctx context.Context) error {
	return c.writeJSON(ctx, map[string]any{"type": "response.create"})
}

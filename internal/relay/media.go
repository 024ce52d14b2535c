package relay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"

	ws "nhooyr.io/websocket"
)

// twilioEvent covers the inbound media-stream event kinds we consume.
type twilioEvent struct {
	Event string `json:"event"`
	Start struct {
		CallSID   string `json:"callSid"`
		StreamSID string `json:"streamSid"`
	} `json:"start"`
	Media struct {
		Payload string `json:"payload"`
	} `json:"media"`
}

// mediaOut is the outbound media frame shape.
type mediaOut struct {
	Event     string `json:"event"`
	StreamSID string `json:"streamSid"`
	Media     struct {
		Payload string `json:"payload"`
	} `json:"media"`
}

// MediaWriter owns the outbound half of the telephony socket. Writes are
// serialized and silently dropped once the socket is closed, so playback
// loops suspended mid-frame cannot write into a dead connection.
type MediaWriter struct {
	mu        sync.Mutex
	ws        *ws.Conn
	streamSID string
	closed    bool
}

func NewMediaWriter(c *ws.Conn) *MediaWriter {
	return &MediaWriter{ws: c}
}

func (w *MediaWriter) SetStreamSID(sid string) {
	w.mu.Lock()
	w.streamSID = sid
	w.mu.Unlock()
}

// WriteFrame sends one mu-law frame to the caller. A write before the start
// event announced the stream id is dropped; there is nowhere to address it.
func (w *MediaWriter) WriteFrame(ctx context.Context, frame []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.streamSID == "" {
		return nil
	}
	var out mediaOut
	out.Event = "media"
	out.StreamSID = w.streamSID
	out.Media.Payload = base64.StdEncoding.EncodeToString(frame)
	b, err := json.Marshal(out)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return w.ws.Write(wctx, ws.MessageText, b)
}

// Close is idempotent; the cascade teardown may hit it from both legs.
func (w *MediaWriter) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	_ = w.ws.Close(ws.StatusNormalClosure, "done")
}

func (w *MediaWriter) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

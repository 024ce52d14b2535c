package relay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	ws "nhooyr.io/websocket"

	"storeline/voice/internal/answers"
	"storeline/voice/internal/config"
	"storeline/voice/internal/greeting"
	"storeline/voice/internal/prompts"
	"storeline/voice/internal/tools"
	"storeline/voice/internal/tts"
)

// fakeEngine stands in for the realtime API: it completes the handshake,
// records every inbound event type, and reports when its socket dies.
type fakeEngine struct {
	srv *httptest.Server

	mu    sync.Mutex
	types []string

	closed chan struct{}
}

func newFakeEngine(t *testing.T, dropAfterReady bool) *fakeEngine {
	t.Helper()
	fe := &fakeEngine{closed: make(chan struct{})}
	fe.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := ws.Accept(w, r, nil)
		if err != nil {
			return
		}
		ctx := context.Background()
		_ = c.Write(ctx, ws.MessageText, []byte(`{"type":"session.created"}`))
		if dropAfterReady {
			_ = c.Close(ws.StatusNormalClosure, "bye")
			close(fe.closed)
			return
		}
		for {
			_, data, err := c.Read(ctx)
			if err != nil {
				close(fe.closed)
				return
			}
			var ev struct {
				Type string `json:"type"`
			}
			if json.Unmarshal(data, &ev) == nil {
				fe.mu.Lock()
				fe.types = append(fe.types, ev.Type)
				fe.mu.Unlock()
			}
		}
	}))
	t.Cleanup(fe.srv.Close)
	return fe
}

func (fe *fakeEngine) count(typ string) int {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	n := 0
	for _, got := range fe.types {
		if got == typ {
			n++
		}
	}
	return n
}

func newRelayServer(t *testing.T, engineURL string) *httptest.Server {
	t.Helper()
	var cfg config.Config
	cfg.OpenAI.RealtimeURL = engineURL
	cfg.OpenAI.Model = "test-model"
	cfg.OpenAI.Voice = "alloy"

	ps := prompts.New(t.TempDir())
	tc := tools.New(tools.Endpoints{}, answers.New("", time.Second), time.Second)
	synth := tts.New(tts.Options{})
	h := NewHandler(cfg, ps, tc, synth, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/media-stream", h.HandleMediaStream)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func dialCaller(t *testing.T, srvURL string) *ws.Conn {
	t.Helper()
	c, _, err := ws.Dial(context.Background(), srvURL+"/media-stream", nil)
	if err != nil {
		t.Fatalf("dial media stream: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(ws.StatusNormalClosure, "") })
	return c
}

func sendEvent(t *testing.T, c *ws.Conn, payload string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Write(ctx, ws.MessageText, []byte(payload)); err != nil {
		t.Fatalf("write event: %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", msg)
}

// wsPair returns the two ends of a live websocket connection.
func wsPair(t *testing.T) (client, server *ws.Conn) {
	t.Helper()
	conns := make(chan *ws.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := ws.Accept(w, r, nil)
		if err != nil {
			return
		}
		conns <- c
	}))
	t.Cleanup(srv.Close)

	c, _, err := ws.Dial(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(ws.StatusNormalClosure, "") })
	select {
	case s := <-conns:
		return c, s
	case <-time.After(2 * time.Second):
		t.Fatalf("server side never accepted")
		return nil, nil
	}
}

func mediaEvent(frame []byte) string {
	return `{"event":"media","media":{"payload":"` + base64.StdEncoding.EncodeToString(frame) + `"}}`
}

func TestCallerStopClosesEngineLeg(t *testing.T) {
	fe := newFakeEngine(t, false)
	relay := newRelayServer(t, fe.srv.URL)
	c := dialCaller(t, relay.URL)

	sendEvent(t, c, `{"event":"start","start":{"callSid":"CA1","streamSid":"MZ1"}}`)
	waitFor(t, func() bool { return fe.count("session.update") >= 1 }, "engine configured")

	sendEvent(t, c, `{"event":"stop"}`)

	select {
	case <-fe.closed:
	case <-time.After(2 * time.Second):
		t.Fatalf("stop event did not cascade to the engine leg")
	}

	// The telephony socket is force-closed by the same cascade.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, _, err := c.Read(ctx); err == nil {
		t.Fatalf("telephony socket still open after stop")
	}
}

func TestEngineDropClosesTelephonyLeg(t *testing.T) {
	fe := newFakeEngine(t, true)
	relay := newRelayServer(t, fe.srv.URL)
	c := dialCaller(t, relay.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, _, err := c.Read(ctx); err == nil {
		t.Fatalf("engine drop did not cascade to the telephony leg")
	}
}

func TestAudioGatedUntilStreamStarts(t *testing.T) {
	fe := newFakeEngine(t, false)
	relay := newRelayServer(t, fe.srv.URL)
	c := dialCaller(t, relay.URL)
	frame := make([]byte, greeting.FrameSize)

	// A frame arriving before the start event has no active call behind it.
	sendEvent(t, c, mediaEvent(frame))
	sendEvent(t, c, `{"event":"start","start":{"callSid":"CA1","streamSid":"MZ1"}}`)
	waitFor(t, func() bool { return fe.count("session.update") >= 1 }, "engine configured")

	sendEvent(t, c, mediaEvent(frame))
	waitFor(t, func() bool { return fe.count("input_audio_buffer.append") >= 1 }, "frame forwarded")

	time.Sleep(100 * time.Millisecond)
	if n := fe.count("input_audio_buffer.append"); n != 1 {
		t.Fatalf("pre-start frame leaked to the engine, appends=%d", n)
	}
}

func TestMalformedFrameDoesNotEndCall(t *testing.T) {
	fe := newFakeEngine(t, false)
	relay := newRelayServer(t, fe.srv.URL)
	c := dialCaller(t, relay.URL)

	sendEvent(t, c, `{not json`)
	sendEvent(t, c, `{"event":"start","start":{"callSid":"CA1","streamSid":"MZ1"}}`)
	waitFor(t, func() bool { return fe.count("session.update") >= 1 }, "call survived malformed frame")
}

func TestMediaWriterCloseIdempotent(t *testing.T) {
	_, server := wsPair(t)
	w := NewMediaWriter(server)
	w.SetStreamSID("MZ1")

	w.Close()
	w.Close()
	if !w.Closed() {
		t.Fatalf("writer should report closed")
	}
	// Writes after close are dropped, not errors.
	if err := w.WriteFrame(context.Background(), make([]byte, greeting.FrameSize)); err != nil {
		t.Fatalf("write after close: %v", err)
	}
}

func TestPlaybackAbandonedOnClosedWriter(t *testing.T) {
	client, server := wsPair(t)
	out := NewMediaWriter(server)
	out.SetStreamSID("MZ1")

	// Two seconds of audio at nominal pace; far longer than the test allows.
	frames := greeting.Frames(make([]byte, greeting.FrameSize*100))
	sp := NewSpeaker(nil, out, frames)

	got := make(chan struct{}, 256)
	go func() {
		for {
			if _, _, err := client.Read(context.Background()); err != nil {
				return
			}
			got <- struct{}{}
		}
	}()

	done := make(chan error, 1)
	go func() { done <- sp.PlayGreeting(context.Background()) }()

	for i := 0; i < 3; i++ {
		select {
		case <-got:
		case <-time.After(2 * time.Second):
			t.Fatalf("no frames emitted")
		}
	}
	out.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("abandoned playback should not error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("playback kept running against a closed writer")
	}
}

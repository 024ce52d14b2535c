package relay

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	ws "nhooyr.io/websocket"

	"storeline/voice/internal/config"
	"storeline/voice/internal/engine"
	"storeline/voice/internal/prompts"
	"storeline/voice/internal/session"
	"storeline/voice/internal/tools"
	"storeline/voice/internal/tts"
)

// Handler terminates telephony media streams and runs one call session per
// accepted connection.
type Handler struct {
	cfg     config.Config
	prompts *prompts.Store
	tools   *tools.Client
	tts     *tts.Client
	greet   [][]byte // nil when no asset could be loaded
}

func NewHandler(cfg config.Config, ps *prompts.Store, tc *tools.Client, synth *tts.Client, greet [][]byte) *Handler {
	return &Handler{cfg: cfg, prompts: ps, tools: tc, tts: synth, greet: greet}
}

// HandleMediaStream accepts the telephony leg, dials the engine leg, and
// relays between them until either side goes down. Closing or erroring one
// leg force-closes the other.
func (h *Handler) HandleMediaStream(w http.ResponseWriter, r *http.Request) {
	c, err := ws.Accept(w, r, nil)
	if err != nil {
		log.Printf("[relay] ws accept: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	eng, err := engine.Dial(ctx, engine.Options{
		URL:    h.cfg.OpenAI.RealtimeURL,
		APIKey: h.cfg.OpenAI.APIKey,
		Model:  h.cfg.OpenAI.Model,
	})
	if err != nil {
		log.Printf("[relay] engine dial: %v", err)
		_ = c.Close(ws.StatusInternalError, "engine unavailable")
		return
	}

	out := NewMediaWriter(c)
	sp := NewSpeaker(h.tts, out, h.greet)
	sess := session.New(ctx, session.Options{
		Engine:       eng,
		Speaker:      sp,
		Tools:        h.tools,
		Prompts:      h.prompts,
		Voice:        h.cfg.OpenAI.Voice,
		AllowBargeIn: h.cfg.Relay.AllowBargeIn,
	})

	metricCallsActive.Inc()
	defer metricCallsActive.Dec()
	log.Printf("[relay] call %s accepted", sess.ID())

	var closeOnce sync.Once
	closeBoth := func() {
		closeOnce.Do(func() {
			sess.Close()
			eng.Close()
			out.Close()
			cancel()
		})
	}
	defer closeBoth()

	go h.runEngineLeg(ctx, eng, sess, closeBoth)
	h.runTelephonyLeg(ctx, c, eng, out, sess)
}

// runTelephonyLeg consumes caller events until the stream stops or errors.
func (h *Handler) runTelephonyLeg(ctx context.Context, c *ws.Conn, eng *engine.Client, out *MediaWriter, sess *session.Session) {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			log.Printf("[relay] call %s telephony read: %v", sess.ID(), err)
			return
		}
		if typ != ws.MessageText && typ != ws.MessageBinary {
			continue
		}
		var ev twilioEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			// Never crash the handler on a malformed frame.
			continue
		}
		switch ev.Event {
		case "start":
			out.SetStreamSID(ev.Start.StreamSID)
			sess.OnTelephonyStart(ev.Start.CallSID, ev.Start.StreamSID)
		case "media":
			metricFramesIn.Inc()
			if !sess.ShouldForwardAudio() {
				metricFramesDiscarded.Inc()
				continue
			}
			if err := eng.AppendAudio(ctx, ev.Media.Payload); err != nil {
				log.Printf("[relay] call %s forward audio: %v", sess.ID(), err)
				return
			}
		case "stop":
			log.Printf("[relay] call %s stream stopped", sess.ID())
			return
		}
	}
}

// runEngineLeg translates engine events into session transitions.
func (h *Handler) runEngineLeg(ctx context.Context, eng *engine.Client, sess *session.Session, closeBoth func()) {
	defer closeBoth()
	for {
		data, err := eng.Read(ctx)
		if err != nil {
			log.Printf("[relay] call %s engine read: %v", sess.ID(), err)
			return
		}
		sig := engine.Translate(data)
		switch sig.Kind {
		case engine.Ready:
			sess.OnEngineReady()
		case engine.ResponseStarted:
			sess.OnResponseStarted()
		case engine.TranscriptDelta:
			sess.OnTranscriptDelta(sig.Delta)
		case engine.TextDelta:
			sess.OnTextDelta(sig.Delta)
		case engine.SpeechStopped:
			sess.OnSpeechStopped()
		case engine.ToolCallStarted:
			sess.OnToolCallStarted(sig.CallID, sig.Name)
		case engine.ToolCallDone:
			sess.OnToolCallDone(sig.CallID, sig.Args)
		case engine.ResponseDone:
			sess.OnResponseDone()
		case engine.EngineError:
			sess.OnEngineError(sig.Message)
		}
	}
}

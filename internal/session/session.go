package session

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"storeline/voice/internal/agents"
)

// State is the coarse lifecycle of one call (the active persona is a
// sub-state tracked separately).
type State int

const (
	Connecting    State = iota // engine socket not yet open
	AwaitingStart              // engine open, telephony stream not started
	Active                     // both legs ready
	Closed                     // terminal
)

// Response-request reasons. The reason is kept, not a bare flag, because it
// decides downstream behavior (unsolicited completions are discarded).
const (
	ReasonUserSpeech   = "user-speech"
	ReasonToolFollowup = "tool-followup"
	ReasonHandoff      = "handoff"
)

// EngineControl is the outbound half of the reasoning-engine leg.
type EngineControl interface {
	UpdateSession(ctx context.Context, instructions, voice string, tools []agents.ToolDef) error
	CreateResponse(ctx context.Context) error
	CreateUserMessage(ctx context.Context, text string) error
	CreateFunctionOutput(ctx context.Context, callID, output string) error
	Closed() bool
}

// Speaker turns finalized agent text into caller-audible audio. Both calls
// block until playback is done (or fails).
type Speaker interface {
	Speak(ctx context.Context, text string) error
	PlayGreeting(ctx context.Context) error
}

// ToolInvoker dispatches one named tool call against its external service.
type ToolInvoker interface {
	Invoke(ctx context.Context, name string, args map[string]any, callSID, agent string) (map[string]any, error)
}

// PromptSource supplies per-agent instructions.
type PromptSource interface {
	Get(a agents.Agent) string
}

// Session owns all mutable per-call state. It is driven by callbacks from
// the two socket read loops; blocking work (synthesis, tool HTTP) runs on
// its own goroutine and re-checks liveness before touching the engine.
type Session struct {
	id  string
	ctx context.Context

	engine  EngineControl
	speaker Speaker
	tools   ToolInvoker
	prompts PromptSource

	voice        string
	allowBargeIn bool

	// speakMu serializes playbacks so frames from two syntheses can never
	// interleave on the outbound stream.
	speakMu sync.Mutex

	mu               sync.Mutex
	state            State
	callSID          string
	streamSID        string
	currentAgent     agents.Agent
	engineReady      bool
	telephonyStarted bool
	greeted          bool
	speaking         bool
	responseInFlight bool
	requested        bool // current/next response was explicitly asked for
	pendingReason    string
	speakQueue       []string
	speakDraining    bool
	transcript       string
	text             string
	toolCalls        map[string]string // call id -> tool name
}

type Options struct {
	Engine       EngineControl
	Speaker      Speaker
	Tools        ToolInvoker
	Prompts      PromptSource
	Voice        string
	AllowBargeIn bool
}

func New(ctx context.Context, opts Options) *Session {
	return &Session{
		id:           uuid.New().String(),
		ctx:          ctx,
		engine:       opts.Engine,
		speaker:      opts.Speaker,
		tools:        opts.Tools,
		prompts:      opts.Prompts,
		voice:        opts.Voice,
		allowBargeIn: opts.AllowBargeIn,
		state:        Connecting,
		currentAgent: agents.Router,
		toolCalls:    make(map[string]string),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) CallSID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callSID
}

func (s *Session) StreamSID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamSID
}

func (s *Session) Agent() agents.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentAgent
}

func (s *Session) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnEngineReady runs when the engine handshake completes. It pushes the
// initial router persona and, if the telephony leg already started, kicks
// off the greeting.
func (s *Session) OnEngineReady() {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return
	}
	s.engineReady = true
	if s.telephonyStarted {
		s.state = Active
	} else {
		s.state = AwaitingStart
	}
	agent := s.currentAgent
	s.mu.Unlock()

	instr := s.prompts.Get(agent)
	if err := s.engine.UpdateSession(s.ctx, instr, s.voice, agents.Tools(agent)); err != nil {
		log.Printf("[session %s] initial configure: %v", s.id, err)
	}
	s.maybeGreet()
}

// OnTelephonyStart records the identifiers from the stream's start event.
func (s *Session) OnTelephonyStart(callSID, streamSID string) {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return
	}
	s.callSID = callSID
	s.streamSID = streamSID
	s.telephonyStarted = true
	if s.engineReady {
		s.state = Active
	}
	s.mu.Unlock()

	log.Printf("[session %s] call started sid=%s stream=%s", s.id, callSID, streamSID)
	s.maybeGreet()
}

// maybeGreet plays the static greeting at most once, after both legs are up.
// A missing or broken asset degrades to no greeting; the call goes on.
func (s *Session) maybeGreet() {
	s.mu.Lock()
	if !s.engineReady || !s.telephonyStarted || s.greeted || s.state == Closed {
		s.mu.Unlock()
		return
	}
	s.greeted = true
	s.mu.Unlock()

	go func() {
		s.speakMu.Lock()
		defer s.speakMu.Unlock()
		s.setSpeaking(true)
		if err := s.speaker.PlayGreeting(s.ctx); err != nil {
			log.Printf("[session %s] greeting skipped: %v", s.id, err)
		}
		s.setSpeaking(false)
	}()
}

// ShouldForwardAudio gates inbound caller frames. While the agent is
// speaking, frames are discarded, not buffered, unless barge-in is enabled.
func (s *Session) ShouldForwardAudio() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Active {
		return false
	}
	if s.speaking && !s.allowBargeIn {
		return false
	}
	return true
}

// RequestResponse asks the engine for a turn. The engine rejects a second
// concurrent response, so while one is in flight the reason is queued
// (last writer wins) and reissued exactly once on completion.
func (s *Session) RequestResponse(reason string) {
	s.mu.Lock()
	if !s.engineReady || !s.telephonyStarted || s.state == Closed {
		s.mu.Unlock()
		return
	}
	if s.responseInFlight {
		s.pendingReason = reason
		s.mu.Unlock()
		metricResponsesQueued.Inc()
		return
	}
	s.responseInFlight = true
	s.requested = true
	s.mu.Unlock()

	metricResponsesRequested.WithLabelValues(reason).Inc()
	if err := s.engine.CreateResponse(s.ctx); err != nil {
		log.Printf("[session %s] response.create (%s): %v", s.id, reason, err)
	}
}

// requestIfIdle issues a request only when no response is open; otherwise
// drops it. Tool results submitted into an open response auto-continue it,
// so a followup request there would hit "already has an active response".
func (s *Session) requestIfIdle(reason string) {
	s.mu.Lock()
	busy := s.responseInFlight
	s.mu.Unlock()
	if busy {
		metricFollowupsSuppressed.Inc()
		return
	}
	s.RequestResponse(reason)
}

// OnResponseStarted resets the accumulators so text can never leak across
// agent turns.
func (s *Session) OnResponseStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responseInFlight = true
	s.transcript = ""
	s.text = ""
}

func (s *Session) OnTranscriptDelta(delta string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript += delta
}

func (s *Session) OnTextDelta(delta string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text += delta
}

// OnSpeechStopped is the engine's VAD telling us the caller finished a turn.
// Ignored while the agent is speaking: residual echo of our own playback
// must not trigger a spurious response.
func (s *Session) OnSpeechStopped() {
	s.mu.Lock()
	blocked := s.speaking && !s.allowBargeIn
	s.mu.Unlock()
	if blocked {
		return
	}
	s.RequestResponse(ReasonUserSpeech)
}

// OnResponseDone runs the completion protocol: reissue the queued request if
// any, then speak the accumulated text unless the response was unsolicited.
func (s *Session) OnResponseDone() {
	s.mu.Lock()
	text := s.transcript
	if text == "" {
		text = s.text
	}
	solicited := s.requested
	s.requested = false
	s.responseInFlight = false
	s.transcript = ""
	s.text = ""
	pending := s.pendingReason
	s.pendingReason = ""
	s.mu.Unlock()

	if pending != "" {
		s.RequestResponse(pending)
	}
	if !solicited {
		if text != "" {
			metricUnsolicitedDiscarded.Inc()
			log.Printf("[session %s] discarding unsolicited response (%d chars)", s.id, len(text))
		}
		return
	}
	if text == "" {
		return
	}
	s.enqueueSpeak(text)
}

// enqueueSpeak appends a finalized text and ensures exactly one drain
// goroutine is running. Mutex wakeup order is unspecified, so two parked
// speak goroutines could play out of order; the queue keeps completion order.
func (s *Session) enqueueSpeak(text string) {
	s.mu.Lock()
	s.speakQueue = append(s.speakQueue, text)
	if s.speakDraining {
		s.mu.Unlock()
		return
	}
	s.speakDraining = true
	s.mu.Unlock()
	go s.drainSpeakQueue()
}

func (s *Session) drainSpeakQueue() {
	for {
		s.mu.Lock()
		if len(s.speakQueue) == 0 || s.state == Closed {
			s.speakQueue = nil
			s.speakDraining = false
			s.mu.Unlock()
			return
		}
		text := s.speakQueue[0]
		s.speakQueue = s.speakQueue[1:]
		s.mu.Unlock()
		s.speak(text)
	}
}

func (s *Session) speak(text string) {
	s.speakMu.Lock()
	defer s.speakMu.Unlock()
	s.setSpeaking(true)
	if err := s.speaker.Speak(s.ctx, text); err != nil {
		log.Printf("[session %s] synthesis failed: %v", s.id, err)
	}
	s.setSpeaking(false)
}

func (s *Session) setSpeaking(v bool) {
	s.mu.Lock()
	s.speaking = v
	s.mu.Unlock()
}

// OnEngineError logs and moves on. The engine reporting an error is not the
// same as the engine socket dying; only the latter ends the call.
func (s *Session) OnEngineError(msg string) {
	metricEngineErrors.Inc()
	log.Printf("[session %s] engine error: %s", s.id, msg)
}

// Close marks the session terminal. Safe to call more than once; socket
// teardown itself belongs to the relay.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Closed
}

package session

import (
	"encoding/json"
	"log"

	"storeline/voice/internal/agents"
)

// OnToolCallStarted registers the call id so the arguments event can be
// matched back to a tool name.
func (s *Session) OnToolCallStarted(callID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolCalls[callID] = name
}

// OnToolCallDone parses the finalized arguments and dispatches the tool on
// its own goroutine. Malformed arguments degrade to an empty object; an
// unknown call id aborts this dispatch only.
func (s *Session) OnToolCallDone(callID, argsJSON string) {
	s.mu.Lock()
	name, ok := s.toolCalls[callID]
	delete(s.toolCalls, callID)
	s.mu.Unlock()
	if !ok {
		log.Printf("[session %s] tool result for unknown call id %s", s.id, callID)
		return
	}

	args := map[string]any{}
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			log.Printf("[session %s] bad args for %s: %v", s.id, name, err)
			args = map[string]any{}
		}
	}
	go s.dispatchTool(callID, name, args)
}

func (s *Session) dispatchTool(callID, name string, args map[string]any) {
	s.mu.Lock()
	callSID := s.callSID
	agent := s.currentAgent
	s.mu.Unlock()

	result, err := s.tools.Invoke(s.ctx, name, args, callSID, string(agent))
	if err != nil {
		// Best-effort error payload so the engine can react gracefully.
		metricToolCalls.WithLabelValues(name, "error").Inc()
		log.Printf("[session %s] tool %s: %v", s.id, name, err)
		result = map[string]any{"error": err.Error()}
	} else {
		metricToolCalls.WithLabelValues(name, "ok").Inc()
	}

	// The call may have ended while we were suspended on HTTP.
	s.mu.Lock()
	closed := s.state == Closed
	s.mu.Unlock()
	if closed || s.engine.Closed() {
		return
	}

	out, merr := json.Marshal(result)
	if merr != nil {
		out = []byte(`{}`)
	}
	if err := s.engine.CreateFunctionOutput(s.ctx, callID, string(out)); err != nil {
		log.Printf("[session %s] submit result for %s: %v", s.id, name, err)
		return
	}

	switch name {
	case agents.ToolRouteIntent:
		s.afterRouteIntent(args, result)
	case agents.ToolHandoffToRouter:
		question := stringField(result, "cleaned_question")
		if question == "" {
			question = stringField(args, "question")
		}
		s.PerformHandoff(agents.Handoff{
			FromAgent: agent,
			ToAgent:   agents.Router,
			Question:  question,
		})
	default:
		// search_items, search_pickup_locations, standard_answer: let the
		// current agent speak the answer unless a response is already open.
		s.requestIfIdle(ReasonToolFollowup)
	}
}

// afterRouteIntent acts on the router service's classification. A known
// secondary agent triggers a handoff and nothing else; the handoff decides
// whether a response is needed.
func (s *Session) afterRouteIntent(args, result map[string]any) {
	intent := stringField(result, "intent")
	to, ok := agents.Parse(intent)
	if ok && to != agents.Router {
		question := stringField(result, "cleaned_question")
		if question == "" {
			question = stringField(args, "question")
		}
		s.PerformHandoff(agents.Handoff{
			FromAgent:    s.Agent(),
			ToAgent:      to,
			QuestionType: stringField(result, "question_type"),
			Question:     question,
		})
		return
	}
	// No recognized intent: let the router answer in-persona.
	s.requestIfIdle(ReasonToolFollowup)
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

package session

import (
	"log"

	"storeline/voice/internal/agents"
)

// PerformHandoff switches the active persona and reconfigures the engine's
// instructions and toolset to match. Call and stream identifiers survive the
// transition; re-handoff to the current persona simply reconfigures again.
func (s *Session) PerformHandoff(h agents.Handoff) {
	if err := h.Validate(); err != nil {
		log.Printf("[session %s] handoff rejected: %v", s.id, err)
		return
	}

	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return
	}
	from := s.currentAgent
	s.currentAgent = h.ToAgent
	s.mu.Unlock()

	metricHandoffs.WithLabelValues(string(h.ToAgent)).Inc()
	log.Printf("[session %s] handoff %s -> %s", s.id, from, h.ToAgent)

	instr := s.prompts.Get(h.ToAgent)
	if err := s.engine.UpdateSession(s.ctx, instr, s.voice, agents.Tools(h.ToAgent)); err != nil {
		log.Printf("[session %s] handoff configure: %v", s.id, err)
		return
	}

	if h.Question != "" {
		if err := s.engine.CreateUserMessage(s.ctx, h.Question); err != nil {
			log.Printf("[session %s] forward question: %v", s.id, err)
			return
		}
		s.RequestResponse(ReasonHandoff)
	}
}

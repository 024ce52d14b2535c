package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricResponsesRequested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_responses_requested_total",
		Help: "Response requests issued to the engine",
	}, []string{"reason"})

	metricResponsesQueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_responses_queued_total",
		Help: "Response requests queued behind an in-flight response",
	})

	metricFollowupsSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_tool_followups_suppressed_total",
		Help: "Tool followup requests dropped because a response was open",
	})

	metricUnsolicitedDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_unsolicited_responses_discarded_total",
		Help: "Engine responses discarded because no request was recorded",
	})

	metricToolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_tool_calls_total",
		Help: "Tool dispatches by tool and outcome",
	}, []string{"tool", "outcome"})

	metricHandoffs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_handoffs_total",
		Help: "Agent handoffs by target persona",
	}, []string{"to"})

	metricEngineErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_engine_errors_total",
		Help: "Error events reported by the engine",
	})
)

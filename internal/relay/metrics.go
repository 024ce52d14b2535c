package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricCallsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_calls_active",
		Help: "Media streams currently connected",
	})

	metricFramesIn = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_frames_in_total",
		Help: "Caller audio frames received",
	})

	metricFramesDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_frames_discarded_total",
		Help: "Caller frames dropped while the agent was speaking",
	})

	metricFramesOut = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_frames_out_total",
		Help: "Audio frames emitted to the caller",
	})

	metricTTSLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voice_tts_latency_ms",
		Help:    "Synthesis latency from request to audio bytes",
		Buckets: prometheus.ExponentialBuckets(50, 1.6, 10),
	})
)

package relay

import (
	"context"
	"errors"
	"time"

	"storeline/voice/internal/greeting"
	"storeline/voice/internal/tts"
)

var errNoGreeting = errors.New("no greeting asset loaded")

// frameInterval is the nominal duration of one telephony frame; playback is
// paced to it so the downstream transport is never flooded.
const frameInterval = 20 * time.Millisecond

// Speaker feeds synthesized speech and the greeting asset into one call's
// outbound media stream.
type Speaker struct {
	tts   *tts.Client
	out   *MediaWriter
	greet [][]byte
}

func NewSpeaker(t *tts.Client, out *MediaWriter, greet [][]byte) *Speaker {
	return &Speaker{tts: t, out: out, greet: greet}
}

// Speak synthesizes text and plays it. A synthesis failure means silence,
// not a dropped call.
func (sp *Speaker) Speak(ctx context.Context, text string) error {
	start := time.Now()
	audio, err := sp.tts.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	metricTTSLatency.Observe(float64(time.Since(start).Milliseconds()))
	return sp.play(ctx, greeting.Frames(audio))
}

// PlayGreeting streams the precomputed greeting asset.
func (sp *Speaker) PlayGreeting(ctx context.Context) error {
	if len(sp.greet) == 0 {
		return errNoGreeting
	}
	return sp.play(ctx, sp.greet)
}

// play emits frames in order at real-time pace, rechecking liveness each
// iteration so a closed call abandons playback promptly.
func (sp *Speaker) play(ctx context.Context, frames [][]byte) error {
	for _, frame := range frames {
		if ctx.Err() != nil || sp.out.Closed() {
			return nil
		}
		if err := sp.out.WriteFrame(ctx, frame); err != nil {
			return err
		}
		metricFramesOut.Inc()
		time.Sleep(frameInterval)
	}
	return nil
}

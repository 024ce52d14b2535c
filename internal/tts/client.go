package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNotConfigured marks a missing ElevenLabs credential or voice; callers
// degrade to silence.
var ErrNotConfigured = errors.New("tts not configured")

const defaultBaseURL = "https://api.elevenlabs.io"

// Client synthesizes agent text as 8kHz mu-law bytes, requested in the
// telephony-native encoding so no transcode step sits between synthesis and
// playback.
type Client struct {
	baseURL    string
	apiKey     string
	voiceID    string
	modelID    string
	stability  float64
	similarity float64
	http       *http.Client
}

type Options struct {
	BaseURL    string // test override
	APIKey     string
	VoiceID    string
	ModelID    string
	Stability  float64
	Similarity float64
	Timeout    time.Duration
}

func New(opts Options) *Client {
	base := opts.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL:    base,
		apiKey:     opts.APIKey,
		voiceID:    opts.VoiceID,
		modelID:    opts.ModelID,
		stability:  opts.Stability,
		similarity: opts.Similarity,
		http:       &http.Client{Timeout: timeout},
	}
}

// Synthesize returns raw ulaw_8000 audio for the given text.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if c.apiKey == "" || c.voiceID == "" {
		return nil, ErrNotConfigured
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=ulaw_8000", c.baseURL, c.voiceID)
	body := map[string]any{
		"text":     text,
		"model_id": c.modelID,
		"voice_settings": map[string]any{
			"stability":        c.stability,
			"similarity_boost": c.similarity,
		},
	}
	reqBytes, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/basic")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("synthesis status=%d body=%s", resp.StatusCode, string(b))
	}
	return io.ReadAll(resp.Body)
}

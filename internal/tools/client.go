package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"storeline/voice/internal/agents"
	"storeline/voice/internal/answers"
)

// ErrNotConfigured marks a tool whose endpoint was not set at startup; it
// fails soft on every call.
var ErrNotConfigured = errors.New("tool endpoint not configured")

// Client invokes the external tool services. It is stateless and shared
// across calls.
type Client struct {
	http      *http.Client
	endpoints map[string]string
	answers   *answers.Client
}

type Endpoints struct {
	Router string
	Items  string
	Pickup string
}

func New(eps Endpoints, ans *answers.Client, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		http: &http.Client{Timeout: timeout},
		endpoints: map[string]string{
			agents.ToolRouteIntent:  eps.Router,
			agents.ToolSearchItems:  eps.Items,
			agents.ToolSearchPickup: eps.Pickup,
		},
		answers: ans,
	}
}

// Invoke runs one tool call. Arguments are posted together with call-scoped
// context; the response is the service's JSON object verbatim.
func (c *Client) Invoke(ctx context.Context, name string, args map[string]any, callSID, agent string) (map[string]any, error) {
	switch name {
	case agents.ToolStandardAnswer:
		return c.standardAnswer(ctx, args), nil
	case agents.ToolHandoffToRouter:
		// No external service behind this one; the session acts on it.
		return map[string]any{"acknowledged": true}, nil
	}

	url, ok := c.endpoints[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	if url == "" {
		return nil, ErrNotConfigured
	}

	body := map[string]any{
		"call_sid":      callSID,
		"current_agent": agent,
	}
	for k, v := range args {
		body[k] = v
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s: status=%d body=%s", name, resp.StatusCode, string(b))
	}

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", name, err)
	}
	return result, nil
}

func (c *Client) standardAnswer(ctx context.Context, args map[string]any) map[string]any {
	key, _ := args["key"].(string)
	vars := map[string]string{}
	if raw, ok := args["variables"].(map[string]any); ok {
		for k, v := range raw {
			if s, ok := v.(string); ok {
				vars[k] = s
			}
		}
	}
	return map[string]any{"answer": c.answers.Lookup(ctx, key, vars)}
}

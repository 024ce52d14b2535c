package answers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Fallback is spoken when an answer key is missing, inactive, or the answers
// service is unreachable.
const Fallback = "I'm sorry, I don't have that information right now."

// Client fetches answer templates from the answers service and renders them.
type Client struct {
	url  string
	http *http.Client
}

func New(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{url: url, http: &http.Client{Timeout: timeout}}
}

type templateResponse struct {
	Template string `json:"template"`
	Active   bool   `json:"active"`
}

// Lookup fetches the template for key and substitutes vars into it. Any
// failure yields the fallback sentence; a broken answers service must never
// break the call.
func (c *Client) Lookup(ctx context.Context, key string, vars map[string]string) string {
	tmpl, err := c.fetch(ctx, key)
	if err != nil {
		log.Printf("[answers] lookup %q: %v", key, err)
		return Fallback
	}
	return Render(tmpl, vars)
}

func (c *Client) fetch(ctx context.Context, key string) (string, error) {
	if c.url == "" {
		return "", fmt.Errorf("answers endpoint not configured")
	}
	body, _ := json.Marshal(map[string]string{"key": key})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("status=%d body=%s", resp.StatusCode, string(b))
	}
	var tr templateResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", err
	}
	if !tr.Active || tr.Template == "" {
		return "", fmt.Errorf("answer %q missing or inactive", key)
	}
	return tr.Template, nil
}

// Render substitutes {{name}} placeholders literally. A placeholder with no
// matching variable is left untouched.
func Render(template string, vars map[string]string) string {
	out := template
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{{"+k+"}}", v)
	}
	return out
}

package api

import (
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"storeline/voice/internal/config"
	"storeline/voice/internal/dialer"
	"storeline/voice/internal/prompts"
)

type Handlers struct {
	cfg     config.Config
	prompts *prompts.Store
	dialer  *dialer.Dialer
}

func NewHandlers(cfg config.Config, ps *prompts.Store, d *dialer.Dialer) *Handlers {
	return &Handlers{cfg: cfg, prompts: ps, dialer: d}
}

func (h *Handlers) authorized(r *http.Request) bool {
	if h.cfg.Admin.Token == "" {
		return false
	}
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return false
	}
	token := strings.TrimPrefix(authz, "Bearer ")
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.cfg.Admin.Token)) == 1
}

// HandleReloadPrompts swaps in the prompt set from disk. Sessions pick up
// the new instructions at their next handoff.
func (h *Handlers) HandleReloadPrompts(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.prompts.Reload(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
}

// HandleDial originates an outbound call bridged into the media stream.
func (h *Handlers) HandleDial(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req struct {
		To string `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.To == "" {
		http.Error(w, "missing destination number", http.StatusBadRequest)
		return
	}
	sid, err := h.dialer.Call(req.To)
	if err != nil {
		log.Printf("[api] dial %s: %v", req.To, err)
		status := http.StatusBadGateway
		if err == dialer.ErrNotConfigured {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "call_sid": sid})
}

// HandleIncomingCall answers the telephony provider's webhook with TwiML
// that connects the call's media to our stream endpoint.
func (h *Handlers) HandleIncomingCall(w http.ResponseWriter, r *http.Request) {
	host := h.cfg.Twilio.PublicHost
	if host == "" {
		host = r.Host
	}
	twiml := `<?xml version="1.0" encoding="UTF-8"?><Response><Connect><Stream url="wss://` +
		host + `/media-stream" /></Connect></Response>`
	w.Header().Set("Content-Type", "text/xml")
	w.Write([]byte(twiml))
}

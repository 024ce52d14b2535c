package api

import "net/http"

// NewRouter wires the control surface. The admin subtree is strict: the one
// known endpoint or 404, with bad credentials answered 401.
func NewRouter(h *Handlers) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/incoming-call", h.HandleIncomingCall)

	mux.HandleFunc("/admin/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/admin/reload-prompts" && r.Method == http.MethodPost:
			h.HandleReloadPrompts(w, r)
		case r.URL.Path == "/admin/dial" && r.Method == http.MethodPost:
			h.HandleDial(w, r)
		default:
			http.NotFound(w, r)
		}
	})

	return mux
}

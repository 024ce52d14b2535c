package answers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRenderSubstitution(t *testing.T) {
	got := Render("Hi {{name}}!", map[string]string{"name": "Rivky"})
	if got != "Hi Rivky!" {
		t.Fatalf("expected %q, got %q", "Hi Rivky!", got)
	}
}

func TestRenderAbsentKeyLeavesPlaceholder(t *testing.T) {
	got := Render("Hi {{name}}, we close at {{hour}}.", map[string]string{"name": "Rivky"})
	if got != "Hi Rivky, we close at {{hour}}." {
		t.Fatalf("absent variable must leave the placeholder: %q", got)
	}
}

func TestRenderNoVars(t *testing.T) {
	if got := Render("plain", nil); got != "plain" {
		t.Fatalf("got %q", got)
	}
}

func TestLookupRendersActiveTemplate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["key"] != "store_hours" {
			t.Errorf("unexpected key %q", req["key"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"template": "We are open until {{hour}}.",
			"active":   true,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	got := c.Lookup(context.Background(), "store_hours", map[string]string{"hour": "6pm"})
	if got != "We are open until 6pm." {
		t.Fatalf("got %q", got)
	}
}

func TestLookupInactiveFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"template": "old text", "active": false})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	if got := c.Lookup(context.Background(), "retired_key", nil); got != Fallback {
		t.Fatalf("inactive key must fall back, got %q", got)
	}
}

func TestLookupUnconfiguredFallsBack(t *testing.T) {
	c := New("", time.Second)
	if got := c.Lookup(context.Background(), "anything", nil); got != Fallback {
		t.Fatalf("missing endpoint must fall back, got %q", got)
	}
}

func TestLookupServerErrorFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	if got := c.Lookup(context.Background(), "store_hours", nil); got != Fallback {
		t.Fatalf("server error must fall back, got %q", got)
	}
}

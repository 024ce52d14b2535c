package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storeline/voice/internal/answers"
	"storeline/voice/internal/api"
	"storeline/voice/internal/config"
	"storeline/voice/internal/dialer"
	"storeline/voice/internal/greeting"
	"storeline/voice/internal/prompts"
	"storeline/voice/internal/relay"
	"storeline/voice/internal/tools"
	"storeline/voice/internal/tts"
)

func main() {
	// Load .env file if present (ignored if missing)
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	ps := prompts.New(cfg.Prompts.Dir)
	if err := ps.Reload(); err != nil {
		log.Printf("prompts: initial load: %v", err)
	}

	greet, err := greeting.Load(cfg.Greeting.AudioPath)
	if err != nil {
		log.Printf("greeting: %v; calls start without a greeting", err)
	}

	toolTimeout := time.Duration(cfg.Tools.TimeoutSecs) * time.Second
	ans := answers.New(cfg.Tools.AnswersURL, toolTimeout)
	tc := tools.New(tools.Endpoints{
		Router: cfg.Tools.RouterURL,
		Items:  cfg.Tools.ItemsURL,
		Pickup: cfg.Tools.PickupURL,
	}, ans, toolTimeout)

	synth := tts.New(tts.Options{
		APIKey:     cfg.TTS.APIKey,
		VoiceID:    cfg.TTS.VoiceID,
		ModelID:    cfg.TTS.ModelID,
		Stability:  cfg.TTS.Stability,
		Similarity: cfg.TTS.Similarity,
		Timeout:    time.Duration(cfg.TTS.TimeoutSecs) * time.Second,
	})

	d := dialer.New(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber, cfg.Twilio.PublicHost)
	rh := relay.NewHandler(cfg, ps, tc, synth, greet)
	h := api.NewHandlers(cfg, ps, d)

	mux := http.NewServeMux()
	mux.Handle("/", api.NewRouter(h))
	mux.HandleFunc("/media-stream", rh.HandleMediaStream)
	mux.Handle("/metrics", promhttp.Handler())

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           logMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigc
		log.Printf("shutdown signal received; stopping server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	log.Printf("server starting on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Println("server error:", err)
		os.Exit(1)
	}
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

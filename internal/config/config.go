package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port     string
		LogLevel string
	}
	OpenAI struct {
		APIKey      string
		RealtimeURL string
		Model       string
		Voice       string
	}
	Tools struct {
		RouterURL   string
		ItemsURL    string
		PickupURL   string
		AnswersURL  string
		TimeoutSecs int
	}
	TTS struct {
		APIKey      string
		VoiceID     string
		ModelID     string
		Stability   float64
		Similarity  float64
		TimeoutSecs int
	}
	Greeting struct {
		AudioPath string
	}
	Admin struct {
		Token string
	}
	Relay struct {
		AllowBargeIn bool
	}
	Twilio struct {
		AccountSID string
		AuthToken  string
		FromNumber string
		PublicHost string
	}
	Prompts struct {
		Dir string
	}
}

func Load() Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("openai.realtime_url", "wss://api.openai.com/v1/realtime")
	v.SetDefault("openai.model", "gpt-4o-realtime-preview-2024-12-17")
	v.SetDefault("openai.voice", "alloy")

	v.SetDefault("tools.timeout_secs", 15)

	v.SetDefault("tts.model_id", "eleven_turbo_v2_5")
	v.SetDefault("tts.stability", 0.5)
	v.SetDefault("tts.similarity", 0.75)
	v.SetDefault("tts.timeout_secs", 20)

	v.SetDefault("greeting.audio_path", "assets/greeting.ulaw")
	v.SetDefault("prompts.dir", "prompts")

	v.SetDefault("relay.allow_barge_in", false)

	// Map envs
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.log_level", "LOG_LEVEL")

	v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("openai.realtime_url", "OPENAI_REALTIME_URL")
	v.BindEnv("openai.model", "OPENAI_REALTIME_MODEL")
	v.BindEnv("openai.voice", "OPENAI_VOICE")

	v.BindEnv("tools.router_url", "TOOL_ROUTER_URL")
	v.BindEnv("tools.items_url", "TOOL_ITEMS_URL")
	v.BindEnv("tools.pickup_url", "TOOL_PICKUP_URL")
	v.BindEnv("tools.answers_url", "TOOL_ANSWERS_URL")
	v.BindEnv("tools.timeout_secs", "TOOL_TIMEOUT_SECS")

	v.BindEnv("tts.api_key", "ELEVENLABS_API_KEY")
	v.BindEnv("tts.voice_id", "ELEVENLABS_VOICE_ID")
	v.BindEnv("tts.model_id", "ELEVENLABS_MODEL_ID")
	v.BindEnv("tts.stability", "ELEVENLABS_STABILITY")
	v.BindEnv("tts.similarity", "ELEVENLABS_SIMILARITY")
	v.BindEnv("tts.timeout_secs", "ELEVENLABS_TIMEOUT_SECS")

	v.BindEnv("greeting.audio_path", "GREETING_AUDIO_PATH")
	v.BindEnv("prompts.dir", "PROMPTS_DIR")

	v.BindEnv("admin.token", "ADMIN_TOKEN")

	v.BindEnv("relay.allow_barge_in", "RELAY_ALLOW_BARGE_IN")

	v.BindEnv("twilio.account_sid", "TWILIO_ACCOUNT_SID")
	v.BindEnv("twilio.auth_token", "TWILIO_AUTH_TOKEN")
	v.BindEnv("twilio.from_number", "TWILIO_FROM_NUMBER")
	v.BindEnv("twilio.public_host", "PUBLIC_HOST")

	var c Config
	c.Server.Port = toString(v.Get("server.port"))
	c.Server.LogLevel = v.GetString("server.log_level")

	c.OpenAI.APIKey = v.GetString("openai.api_key")
	c.OpenAI.RealtimeURL = v.GetString("openai.realtime_url")
	c.OpenAI.Model = v.GetString("openai.model")
	c.OpenAI.Voice = v.GetString("openai.voice")

	c.Tools.RouterURL = v.GetString("tools.router_url")
	c.Tools.ItemsURL = v.GetString("tools.items_url")
	c.Tools.PickupURL = v.GetString("tools.pickup_url")
	c.Tools.AnswersURL = v.GetString("tools.answers_url")
	c.Tools.TimeoutSecs = v.GetInt("tools.timeout_secs")

	c.TTS.APIKey = v.GetString("tts.api_key")
	c.TTS.VoiceID = v.GetString("tts.voice_id")
	c.TTS.ModelID = v.GetString("tts.model_id")
	c.TTS.Stability = v.GetFloat64("tts.stability")
	c.TTS.Similarity = v.GetFloat64("tts.similarity")
	c.TTS.TimeoutSecs = v.GetInt("tts.timeout_secs")

	c.Greeting.AudioPath = v.GetString("greeting.audio_path")
	c.Prompts.Dir = v.GetString("prompts.dir")

	c.Admin.Token = v.GetString("admin.token")

	c.Relay.AllowBargeIn = v.GetBool("relay.allow_barge_in")

	c.Twilio.AccountSID = v.GetString("twilio.account_sid")
	c.Twilio.AuthToken = v.GetString("twilio.auth_token")
	c.Twilio.FromNumber = v.GetString("twilio.from_number")
	c.Twilio.PublicHost = v.GetString("twilio.public_host")

	log.Printf("config loaded: port=%s model=%s", c.Server.Port, c.OpenAI.Model)
	return c
}

// Validate checks hard requirements and warns about degraded optional
// collaborators. Only a missing OpenAI credential is fatal.
func (c Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.Tools.RouterURL == "" {
		log.Printf("config: TOOL_ROUTER_URL not set; intent routing will fail soft")
	}
	if c.Tools.ItemsURL == "" {
		log.Printf("config: TOOL_ITEMS_URL not set; item search will fail soft")
	}
	if c.Tools.PickupURL == "" {
		log.Printf("config: TOOL_PICKUP_URL not set; pickup search will fail soft")
	}
	if c.TTS.APIKey == "" || c.TTS.VoiceID == "" {
		log.Printf("config: ElevenLabs not configured; agent speech degrades to silence")
	}
	return nil
}

func toString(v any) string { return fmt.Sprint(v) }

package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr string

	// Agent backend. AgentURL is required: without it no call can get a
	// real reply, so its absence is a startup failure rather than a
	// per-call surprise.
	AgentURL     string
	AgentAPIKey  string
	AgentTimeout time.Duration

	// Call setup document.
	Greeting   string
	Language   string
	PublicHost string // overrides the request Host in the relay wss URL

	// Event data served on /api.
	EventDataPath string

	// Relay WebSocket behavior.
	WSWriteTimeout  time.Duration
	WSPingInterval  time.Duration
	MaxMessageBytes int64
	TurnQueueSize   int

	// CORS (empty => disabled, "*" => any origin).
	CORSAllowedOrigins map[string]struct{}

	// Operational defaults.
	ReadHeaderTimeout   time.Duration
	ShutdownGracePeriod time.Duration
}

const (
	DefaultGreeting = "Hello! I'm the event assistant. How can I help you today?"
	DefaultLanguage = "en-US"
)

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                envOr("RELAY_ADDR", ":8080"),
		AgentURL:            strings.TrimSpace(os.Getenv("RELAY_AGENT_URL")),
		AgentAPIKey:         strings.TrimSpace(os.Getenv("RELAY_AGENT_API_KEY")),
		AgentTimeout:        envDurationOr("RELAY_AGENT_TIMEOUT", 15*time.Second),
		Greeting:            envOr("RELAY_GREETING", DefaultGreeting),
		Language:            envOr("RELAY_LANGUAGE", DefaultLanguage),
		PublicHost:          strings.TrimSpace(os.Getenv("RELAY_PUBLIC_HOST")),
		EventDataPath:       envOr("RELAY_EVENT_DATA_PATH", "data/event.json"),
		WSWriteTimeout:      envDurationOr("RELAY_WS_WRITE_TIMEOUT", 5*time.Second),
		WSPingInterval:      envDurationOr("RELAY_WS_PING_INTERVAL", 20*time.Second),
		MaxMessageBytes:     envInt64Or("RELAY_MAX_MESSAGE_BYTES", 64*1024),
		TurnQueueSize:       envIntOr("RELAY_TURN_QUEUE_SIZE", 8),
		CORSAllowedOrigins:  make(map[string]struct{}),
		ReadHeaderTimeout:   envDurationOr("RELAY_READ_HEADER_TIMEOUT", 10*time.Second),
		ShutdownGracePeriod: envDurationOr("RELAY_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
	}

	for _, origin := range splitCSV(os.Getenv("RELAY_CORS_ORIGINS")) {
		cfg.CORSAllowedOrigins[origin] = struct{}{}
	}

	if cfg.AgentURL == "" {
		return Config{}, fmt.Errorf("RELAY_AGENT_URL must be set")
	}
	if u, err := url.Parse(cfg.AgentURL); err != nil || u.Scheme == "" || u.Host == "" {
		return Config{}, fmt.Errorf("RELAY_AGENT_URL must be an absolute URL")
	}
	if cfg.AgentTimeout <= 0 {
		return Config{}, fmt.Errorf("RELAY_AGENT_TIMEOUT must be > 0")
	}
	if strings.TrimSpace(cfg.Greeting) == "" {
		return Config{}, fmt.Errorf("RELAY_GREETING must not be empty")
	}
	if strings.TrimSpace(cfg.Language) == "" {
		return Config{}, fmt.Errorf("RELAY_LANGUAGE must not be empty")
	}
	if strings.TrimSpace(cfg.EventDataPath) == "" {
		return Config{}, fmt.Errorf("RELAY_EVENT_DATA_PATH must not be empty")
	}
	if cfg.WSWriteTimeout <= 0 {
		return Config{}, fmt.Errorf("RELAY_WS_WRITE_TIMEOUT must be > 0")
	}
	if cfg.WSPingInterval <= 0 {
		return Config{}, fmt.Errorf("RELAY_WS_PING_INTERVAL must be > 0")
	}
	if cfg.MaxMessageBytes <= 0 {
		return Config{}, fmt.Errorf("RELAY_MAX_MESSAGE_BYTES must be > 0")
	}
	if cfg.TurnQueueSize <= 0 {
		return Config{}, fmt.Errorf("RELAY_TURN_QUEUE_SIZE must be > 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("RELAY_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("RELAY_SHUTDOWN_GRACE_PERIOD must be > 0")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt64Or(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

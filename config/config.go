// Package config centralizes the service's configuration, read from the
// environment (with .env support for local development).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config groups every configuration concern into its own sub-struct.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Session  SessionConfig
	Voice    VoiceConfig
}

// ServerConfig holds the HTTP listen address.
type ServerConfig struct {
	Host string
	Port int
}

// Addr formats the listen address as "host:port".
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds the SQLite file path.
type DatabaseConfig struct {
	Path string
}

// SessionConfig governs the opaque session token: cookie name, lifetime.
type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// VoiceConfig carries the ICE server list the SFU's PeerConnections use.
type VoiceConfig struct {
	ICEServers []string
}

// Load builds a Config from the environment, loading .env first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	ttlHours, err := strconv.Atoi(getEnv("SESSION_TTL_HOURS", "168"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL_HOURS: %w", err)
	}

	secure, err := strconv.ParseBool(getEnv("SESSION_COOKIE_SECURE", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_COOKIE_SECURE: %w", err)
	}

	iceServers := strings.Split(getEnv("VOICE_ICE_SERVERS", "stun:stun.l.google.com:19302"), ",")

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "./data/hermes.db"),
		},
		Session: SessionConfig{
			CookieName: getEnv("SESSION_COOKIE_NAME", "hermes_session"),
			TTL:        time.Duration(ttlHours) * time.Hour,
			Secure:     secure,
		},
		Voice: VoiceConfig{
			ICEServers: iceServers,
		},
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

// Package config reads relay and phone settings from the environment.
// A .env file in the working directory is loaded first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	PresenceMemory = "memory"
	PresenceRedis  = "redis"
)

type LogConfig struct {
	Level  string
	Format string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ServerConfig struct {
	Addr         string
	StaticDir    string
	Presence     string
	Redis        RedisConfig
	HistoryLimit int
	SendBuffer   int
	Log          LogConfig
}

type ClientConfig struct {
	RelayURL    string
	DisplayName string
	STUNURLs    []string
	CaptureMic  bool
	Log         LogConfig
}

func LoadServer() (*ServerConfig, error) {
	_ = godotenv.Load()

	redisDB, err := getInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	history, err := getInt("RELAY_HISTORY_LIMIT", 100)
	if err != nil {
		return nil, err
	}
	buffer, err := getInt("RELAY_SEND_BUFFER", 64)
	if err != nil {
		return nil, err
	}
	if history <= 0 || buffer <= 0 {
		return nil, fmt.Errorf("RELAY_HISTORY_LIMIT and RELAY_SEND_BUFFER must be positive")
	}

	cfg := &ServerConfig{
		Addr:      getEnv("RELAY_ADDR", ":8080"),
		StaticDir: getEnv("RELAY_STATIC_DIR", "./static"),
		Presence:  strings.ToLower(getEnv("RELAY_PRESENCE", PresenceMemory)),
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		HistoryLimit: history,
		SendBuffer:   buffer,
		Log:          loadLog(),
	}

	switch cfg.Presence {
	case PresenceMemory, PresenceRedis:
	default:
		return nil, fmt.Errorf("invalid RELAY_PRESENCE %q", cfg.Presence)
	}
	return cfg, nil
}

func LoadClient() (*ClientConfig, error) {
	_ = godotenv.Load()

	name := strings.TrimSpace(getEnv("PHONE_DISPLAY_NAME", ""))
	if name == "" {
		return nil, fmt.Errorf("PHONE_DISPLAY_NAME environment variable is required")
	}

	capture, err := strconv.ParseBool(getEnv("PHONE_CAPTURE_MIC", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid PHONE_CAPTURE_MIC: %w", err)
	}

	return &ClientConfig{
		RelayURL:    getEnv("PHONE_RELAY_URL", "ws://localhost:8080/ws"),
		DisplayName: name,
		STUNURLs:    splitList(getEnv("PHONE_STUN_URLS", "stun:stun.l.google.com:19302")),
		CaptureMic:  capture,
		Log:         loadLog(),
	}, nil
}

func loadLog() LogConfig {
	return LogConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "console"),
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"flag"
	"os"
	"path/filepath"
)

type Config struct {
	Mode         string
	APIBaseURL   string
	SocketURL    string
	DatabasePath string
	LogLevel     string
}

func Load() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".chatcore")

	cfg := &Config{}

	flag.StringVar(&cfg.Mode, "mode", "interactive", "Run mode: interactive or headless")
	flag.StringVar(&cfg.APIBaseURL, "api", getEnv("CHATCORE_API_URL", "http://localhost:8000/api"), "REST API base URL")
	flag.StringVar(&cfg.SocketURL, "ws", getEnv("CHATCORE_WS_URL", "ws://localhost:8000/ws/chat"), "Chat socket URL")
	flag.StringVar(&cfg.DatabasePath, "db", getEnv("CHATCORE_DATABASE_PATH", filepath.Join(dataDir, "chatcore.db")), "Session database file path")
	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("CHATCORE_LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	flag.Parse()

	os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755)

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

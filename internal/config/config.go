package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string
	DBPath        string
	DataDir       string
	JWTSecret     string
	TokenTTL      time.Duration
	CORSOrigins   []string
	MigrationsDir string
	LogPath       string

	GeminiAPIKey string
	GeminiModel  string

	// Sync tuning for the task store: how long remote updates are
	// suppressed after a local write, and how long the store waits for
	// quiescence before flushing.
	SyncSuppressWindow time.Duration
	FlushDebounce      time.Duration
}

func Load() Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_PATH", "./data/focusvillage.db")
	v.SetDefault("DATA_DIR", "./data/guest")
	v.SetDefault("JWT_SECRET", "change-this-secret")
	v.SetDefault("TOKEN_TTL_HOURS", 72)
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")
	v.SetDefault("MIGRATIONS_DIR", "./migrations")
	v.SetDefault("LOG_PATH", "./logs/server.log")
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-2.0-flash")
	v.SetDefault("SYNC_SUPPRESS_SECONDS", 3)
	v.SetDefault("FLUSH_DEBOUNCE_MS", 1000)

	return Config{
		Port:               v.GetString("PORT"),
		DBPath:             v.GetString("DB_PATH"),
		DataDir:            v.GetString("DATA_DIR"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		TokenTTL:           time.Duration(v.GetInt("TOKEN_TTL_HOURS")) * time.Hour,
		CORSOrigins:        splitList(v.GetString("CORS_ORIGINS")),
		MigrationsDir:      v.GetString("MIGRATIONS_DIR"),
		LogPath:            v.GetString("LOG_PATH"),
		GeminiAPIKey:       v.GetString("GEMINI_API_KEY"),
		GeminiModel:        v.GetString("GEMINI_MODEL"),
		SyncSuppressWindow: time.Duration(v.GetInt("SYNC_SUPPRESS_SECONDS")) * time.Second,
		FlushDebounce:      time.Duration(v.GetInt("FLUSH_DEBOUNCE_MS")) * time.Millisecond,
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

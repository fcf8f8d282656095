package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	DBPath         string
	AllowedOrigins []string
	LogLevel       slog.Level

	// AverageDealValue is the single configurable revenue assumption used by
	// the metric calculator. It is passed down at call time; nothing reads it
	// as a global.
	AverageDealValue float64
	MatrixRowCap     int
}

// FromEnv loads configuration from the environment, with an optional .env
// file for local development.
func FromEnv() Config {
	_ = godotenv.Load()

	lvl := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		lvl = slog.LevelDebug
	}
	return Config{
		Port:             envOr("PORT", "8080"),
		DBPath:           envOr("DB_PATH", "attribution.db"),
		AllowedOrigins:   splitCSV(envOr("CORS_ORIGINS", "*")),
		LogLevel:         lvl,
		AverageDealValue: envFloat("AVERAGE_DEAL_VALUE", 500),
		MatrixRowCap:     envInt("MATRIX_ROW_CAP", 500),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envFloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

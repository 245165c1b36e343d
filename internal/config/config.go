package config

import (
	"os"
	"strconv"
	"strings"

	"durak_webapp/internal/logger"

	"github.com/joho/godotenv"
)

// Config — переменные окружения приложения
type Config struct {
	AppPort       string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	BotToken      string
	AllowedOrigin string

	AdminBotEnabled  bool
	AdminTelegramIDs []int64
}

// Load читает .env (если есть) и собирает конфиг.
// DATABASE_URL обязателен
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:       getEnv("APP_PORT", "8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		BotToken:      os.Getenv("BOT_TOKEN"),
		AllowedOrigin: os.Getenv("ALLOWED_ORIGIN"),
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RedisDB = n
		}
	}

	cfg.AdminBotEnabled = os.Getenv("ADMIN_BOT_ENABLED") == "true"
	for _, part := range strings.Split(os.Getenv("ADMIN_TELEGRAM_IDS"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			logger.Warn("некорректный id админа в ADMIN_TELEGRAM_IDS", "value", part)
			continue
		}
		cfg.AdminTelegramIDs = append(cfg.AdminTelegramIDs, id)
	}

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL не задан")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

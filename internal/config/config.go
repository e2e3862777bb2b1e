package config

import (
	"os"
	"strconv"
	"time"

	"gatepass/internal/database"
	"gatepass/internal/mailer"
	"gatepass/internal/messaging"
)

// EventConfig описывает текущее мероприятие
type EventConfig struct {
	Code     string
	Title    string
	MultiDay bool
}

// Config содержит конфигурацию приложения
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	// Окно защиты от повторной отправки билета
	ResendCooldown time.Duration

	Database database.Config
	NATS     messaging.Config
	SMTP     mailer.Config
	Event    EventConfig
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8081"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		ResendCooldown: time.Duration(getEnvInt("RESEND_COOLDOWN_SEC", 120)) * time.Second,

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "gatepass"),
			Password:           getEnv("DB_PASSWORD", "gatepass123"),
			DBName:             getEnv("DB_NAME", "gatepass"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "gatepass"),
			ClientID:  getEnv("NATS_CLIENT_ID", "gatepass-api"),
		},

		SMTP: mailer.Config{
			Host:        getEnv("SMTP_HOST", "localhost"),
			Port:        getEnvInt("SMTP_PORT", 587),
			Username:    getEnv("SMTP_USERNAME", ""),
			Password:    getEnv("SMTP_PASSWORD", ""),
			From:        getEnv("SMTP_FROM", "tickets@gatepass.local"),
			SendDelay:   time.Duration(getEnvInt("SMTP_SEND_DELAY_MS", 1000)) * time.Millisecond,
			SendTimeout: time.Duration(getEnvInt("SMTP_SEND_TIMEOUT_SEC", 30)) * time.Second,
			MaxAttempts: getEnvInt("SMTP_MAX_ATTEMPTS", 5),
		},

		Event: EventConfig{
			Code:     getEnv("EVENT_CODE", "SUMMIT26"),
			Title:    getEnv("EVENT_TITLE", "Gatepass Summit"),
			MultiDay: getEnv("EVENT_MULTI_DAY", "false") == "true",
		},
	}
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленное значение переменной окружения
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

package app

import (
	"os"
	"strconv"
	"time"
)

// Config описывает настройки запуска сервиса оформления.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	// PostgresDSN включает персистентное хранилище; пустой DSN означает in-memory.
	PostgresDSN string

	// KafkaBrokers включает публикацию событий; пустая строка отключает Kafka.
	KafkaBrokers string
	KafkaTopic   string

	// ViaCEPBaseURL переопределяет адрес сервиса адресов; пустая строка — публичный ViaCEP.
	ViaCEPBaseURL string

	// SessionMaxIdle — простой, после которого снимки сессии вычищаются.
	SessionMaxIdle  time.Duration
	CleanupInterval time.Duration
}

// DefaultConfig возвращает базовые адреса и интервалы.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:        ":8080",
		MetricsAddr:     ":9090",
		SessionMaxIdle:  24 * time.Hour,
		CleanupInterval: 10 * time.Minute,
	}
}

// ConfigFromEnv читает конфигурацию из переменных окружения поверх дефолтов.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("CHECKOUT_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("CHECKOUT_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("CHECKOUT_POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = v
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		cfg.KafkaTopic = v
	}
	if v := os.Getenv("VIACEP_BASE_URL"); v != "" {
		cfg.ViaCEPBaseURL = v
	}
	if v := os.Getenv("CHECKOUT_SESSION_MAX_IDLE_MINUTES"); v != "" {
		if minutes, err := strconv.Atoi(v); err == nil && minutes > 0 {
			cfg.SessionMaxIdle = time.Duration(minutes) * time.Minute
		}
	}
	if v := os.Getenv("CHECKOUT_CLEANUP_INTERVAL_MINUTES"); v != "" {
		if minutes, err := strconv.Atoi(v); err == nil && minutes > 0 {
			cfg.CleanupInterval = time.Duration(minutes) * time.Minute
		}
	}
	return cfg
}

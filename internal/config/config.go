package config

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"log/slog"
)

// Config содержит настройки сервера и клиента.
type Config struct {
	ServerAddr          string `json:"server_addr"`            // адрес HTTP-сервера (например, ":8080")
	FleetDBPath         string `json:"fleet_db_path"`          // путь к серверной SQLite БД
	CacheDBPath         string `json:"cache_db_path"`          // путь к клиентскому кэшу снимков
	ClientServerURL     string `json:"client_server_url"`      // базовый URL сервера для клиента
	KeepAliveIntervalMS int    `json:"keep_alive_interval_ms"` // интервал keep-alive кадров
	ReconnectDelayMS    int    `json:"reconnect_delay_ms"`     // задержка переподключения клиента
	MaxSubscriptions    int    `json:"max_subscriptions"`      // предел одновременных подписок
	ProbeIntervalMS     int    `json:"probe_interval_ms"`      // период проверки доступности сервера
	LogLevel            string `json:"log_level"`              // уровень логирования (например, "INFO")
	Seed                bool   `json:"seed"`                   // заполнять пустую БД демо-данными
}

// DefaultConfig возвращает настройки по умолчанию.
func DefaultConfig() *Config {
	return &Config{
		ServerAddr:          ":8080",
		FleetDBPath:         "fleet.db",
		CacheDBPath:         "cache.db",
		ClientServerURL:     "http://localhost:8080",
		KeepAliveIntervalMS: 30000,
		ReconnectDelayMS:    3000,
		MaxSubscriptions:    100,
		ProbeIntervalMS:     10000,
		LogLevel:            "INFO",
		Seed:                true,
	}
}

// LoadConfig загружает конфигурацию из JSON-файла поверх значений по умолчанию.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// KeepAlive возвращает интервал keep-alive как Duration.
func (c *Config) KeepAlive() time.Duration {
	return time.Duration(c.KeepAliveIntervalMS) * time.Millisecond
}

// ReconnectDelay возвращает задержку переподключения как Duration.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelayMS) * time.Millisecond
}

// ProbeInterval возвращает период проверки связи как Duration.
func (c *Config) ProbeInterval() time.Duration {
	return time.Duration(c.ProbeIntervalMS) * time.Millisecond
}

// SlogLevel переводит текстовый уровень логирования в slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

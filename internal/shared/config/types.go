package config

import (
	"fmt"
	"time"
)

type DatabaseConfig struct {
	Path        string `mapstructure:"path"`
	BusyTimeout int    `mapstructure:"busy_timeout"`
	// CacheShared keeps the realtime bridge and UI-triggered syncs on the
	// same in-memory database when tests use ":memory:".
	CacheShared bool `mapstructure:"cache_shared"`
}

// GetDSN builds the sqlite DSN including the pragmas the sync core relies
// on: WAL journaling and foreign key enforcement.
func (d *DatabaseConfig) GetDSN() string {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on", d.Path)
	if d.BusyTimeout > 0 {
		dsn += fmt.Sprintf("&_busy_timeout=%d", d.BusyTimeout)
	}
	if d.CacheShared {
		dsn += "&cache=shared"
	}
	return dsn
}

type APIConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

func (a *APIConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

type RealtimeConfig struct {
	URL                     string `mapstructure:"url"`
	HandshakeTimeoutSeconds int    `mapstructure:"handshake_timeout_seconds"`
	BackoffBaseSeconds      int    `mapstructure:"backoff_base_seconds"`
	BackoffCapSeconds       int    `mapstructure:"backoff_cap_seconds"`
	MaxReconnectAttempts    int    `mapstructure:"max_reconnect_attempts"`
	AckTimeoutSeconds       int    `mapstructure:"ack_timeout_seconds"`
	SendQueueCap            int    `mapstructure:"send_queue_cap"`
}

func (r *RealtimeConfig) HandshakeTimeout() time.Duration {
	if r.HandshakeTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(r.HandshakeTimeoutSeconds) * time.Second
}

func (r *RealtimeConfig) BackoffBase() time.Duration {
	if r.BackoffBaseSeconds <= 0 {
		return time.Second
	}
	return time.Duration(r.BackoffBaseSeconds) * time.Second
}

func (r *RealtimeConfig) BackoffCap() time.Duration {
	if r.BackoffCapSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(r.BackoffCapSeconds) * time.Second
}

func (r *RealtimeConfig) AckTimeout() time.Duration {
	if r.AckTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(r.AckTimeoutSeconds) * time.Second
}

type SyncConfig struct {
	TicketPageSize  int `mapstructure:"ticket_page_size"`
	MessagePageSize int `mapstructure:"message_page_size"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

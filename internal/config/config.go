package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port                   int               `json:"port"`
	JWTSecret              string            `json:"jwt_secret"`
	JWTTTLHours            int               `json:"jwt_ttl_hours"`
	AuditSalt              string            `json:"audit_salt"`
	PipelineTimeoutSeconds int               `json:"pipeline_timeout_seconds"`
	AuditRetentionDays     int               `json:"audit_retention_days"`
	CORSAllowlist          []string          `json:"cors_allowlist"`
	Database               DatabaseConfig    `json:"database"`
	LogConfig              logger.LogConfig  `json:"log_config"`
	AI                     AIConfig          `json:"ai"`
	RAG                    RAGConfig         `json:"rag"`
	RateLimit              RateLimitConfig   `json:"rate_limit"`
	Share                  ShareConfig       `json:"share"`
	EmbedCache             EmbedCacheConfig  `json:"embed_cache"`
	Schedule               ScheduleConfig    `json:"schedule"`
	SourceStore            SourceStoreConfig `json:"source_store"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type AIProviderConfig struct {
	Name     string      `json:"name"`
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Data     interface{} `json:"data"`
}

type AIConfig struct {
	Generators []AIProviderConfig `json:"generators"`
	Embedders  []AIProviderConfig `json:"embedders"`
	Timeout    int                `json:"timeout"`
}

// RetrievalConfig is the per call site retrieval tuning.
type RetrievalConfig struct {
	TopK      int     `json:"top_k"`
	Threshold float64 `json:"threshold"`
}

type RAGConfig struct {
	Owner      RetrievalConfig `json:"owner"`
	Share      RetrievalConfig `json:"share"`
	MaxHistory int             `json:"max_history"`
}

type LimitConfig struct {
	Requests      int `json:"requests"`
	WindowSeconds int `json:"window_seconds"`
}

type RateLimitConfig struct {
	Owner           LimitConfig `json:"owner"`
	Share           LimitConfig `json:"share"`
	Global          LimitConfig `json:"global"`
	MaxEntries      int         `json:"max_entries"`
	SweepIntervalMs int         `json:"sweep_interval_ms"`
}

type ShareConfig struct {
	MinTokenLen int `json:"min_token_len"`
	MaxTokenLen int `json:"max_token_len"`
}

type EmbedCacheConfig struct {
	LRUSize         int  `json:"lru_size"`
	LRUTTLSeconds   int  `json:"lru_ttl_seconds"`
	EnableDB        bool `json:"enable_db"`
	DBRetentionDays int  `json:"db_retention_days"`
}

type ScheduleConfig struct {
	EmbedCacheCleanup string `json:"embed_cache_cleanup"`
	AuditCleanup      string `json:"audit_cleanup"`
}

type SourceStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) normalize() error {
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if cfg.AuditSalt == "" {
		return fmt.Errorf("audit_salt is required")
	}
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.PipelineTimeoutSeconds <= 0 {
		cfg.PipelineTimeoutSeconds = 60
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if len(cfg.AI.Generators) == 0 {
		return fmt.Errorf("ai.generators requires at least one provider")
	}
	if len(cfg.AI.Embedders) == 0 {
		return fmt.Errorf("ai.embedders requires at least one provider")
	}
	for i, item := range append(append([]AIProviderConfig{}, cfg.AI.Generators...), cfg.AI.Embedders...) {
		if strings.TrimSpace(item.Provider) == "" || strings.TrimSpace(item.Model) == "" {
			return fmt.Errorf("ai provider #%d requires provider and model", i)
		}
	}
	if cfg.AI.Timeout <= 0 {
		cfg.AI.Timeout = 30
	}

	// Owner chat favours precision, share chat favours recall.
	if cfg.RAG.Owner.TopK <= 0 {
		cfg.RAG.Owner.TopK = 5
	}
	if cfg.RAG.Owner.Threshold == 0 {
		cfg.RAG.Owner.Threshold = 0.5
	}
	if cfg.RAG.Share.TopK <= 0 {
		cfg.RAG.Share.TopK = 8
	}
	if cfg.RAG.Share.Threshold == 0 {
		cfg.RAG.Share.Threshold = 0.3
	}
	for _, th := range []float64{cfg.RAG.Owner.Threshold, cfg.RAG.Share.Threshold} {
		if th < 0 || th >= 1 {
			return fmt.Errorf("rag threshold must be in [0,1)")
		}
	}
	if cfg.RAG.MaxHistory <= 0 {
		cfg.RAG.MaxHistory = 20
	}

	if cfg.RateLimit.Owner.Requests == 0 {
		cfg.RateLimit.Owner.Requests = 20
	}
	if cfg.RateLimit.Owner.WindowSeconds == 0 {
		cfg.RateLimit.Owner.WindowSeconds = 60
	}
	if cfg.RateLimit.Share.Requests == 0 {
		cfg.RateLimit.Share.Requests = 3
	}
	if cfg.RateLimit.Share.WindowSeconds == 0 {
		cfg.RateLimit.Share.WindowSeconds = 3600
	}
	if cfg.RateLimit.MaxEntries <= 0 {
		cfg.RateLimit.MaxEntries = 10000
	}

	if cfg.Share.MinTokenLen <= 0 {
		cfg.Share.MinTokenLen = 10
	}
	if cfg.Share.MaxTokenLen <= 0 {
		cfg.Share.MaxTokenLen = 64
	}
	if cfg.Share.MinTokenLen > cfg.Share.MaxTokenLen {
		return fmt.Errorf("share.min_token_len must not exceed share.max_token_len")
	}

	if cfg.EmbedCache.LRUSize == 0 {
		cfg.EmbedCache.LRUSize = 2000
	}
	if cfg.EmbedCache.LRUTTLSeconds == 0 {
		cfg.EmbedCache.LRUTTLSeconds = 7200
	}
	if cfg.EmbedCache.DBRetentionDays <= 0 {
		cfg.EmbedCache.DBRetentionDays = 30
	}
	if cfg.AuditRetentionDays <= 0 {
		cfg.AuditRetentionDays = 90
	}
	if cfg.Schedule.EmbedCacheCleanup == "" {
		cfg.Schedule.EmbedCacheCleanup = "0 3 * * *"
	}
	if cfg.Schedule.AuditCleanup == "" {
		cfg.Schedule.AuditCleanup = "30 3 * * *"
	}

	if cfg.SourceStore.Type == "" {
		cfg.SourceStore.Type = "local"
	}
	switch cfg.SourceStore.Type {
	case "local", "s3":
	default:
		return fmt.Errorf("source_store.type must be local or s3")
	}
	return nil
}

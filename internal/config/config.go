package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const FileEnv = "DEBATE_CONFIG_FILE"

type Config struct {
	Addr      string `yaml:"addr"`
	LogLevel  string `yaml:"log_level"`
	JWTSecret string `yaml:"jwt_secret"`

	// 存储：mysql | sqlite | memory
	StoreDriver  string        `yaml:"store_driver"`
	MySQLDSN     string        `yaml:"mysql_dsn"`
	SQLitePath   string        `yaml:"sqlite_path"`
	StoreTimeout time.Duration `yaml:"store_timeout"`

	// Redis 为空时不启用排行缓存和分布式锁
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// Kafka 为空时通知 outbox 只写日志
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`

	// 审核：openai | rules
	Classifier        string        `yaml:"classifier"`
	ClassifierTimeout time.Duration `yaml:"classifier_timeout"`
	OpenAIKey         string        `yaml:"openai_key"`
	OpenAIBaseURL     string        `yaml:"openai_base_url"`
	OpenAIModel       string        `yaml:"openai_model"`
	RulesFile         string        `yaml:"rules_file"`
	ModerateEdits     bool          `yaml:"moderate_edits"`

	MaxAttempts       int    `yaml:"max_attempts"`
	AnonymizeChunk    int    `yaml:"anonymize_chunk"`
	RedactionSentinel string `yaml:"redaction_sentinel"`

	OutboxInterval    time.Duration `yaml:"outbox_interval"`
	OutboxBatch       int           `yaml:"outbox_batch"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	ReconcileBatch    int           `yaml:"reconcile_batch"`
}

// Load 先读环境变量，再用 DEBATE_CONFIG_FILE 指向的 YAML 覆盖
func Load() (Config, error) {
	cfg := Config{
		Addr:      getenv("DEBATE_ADDR", ":8080"),
		LogLevel:  getenv("DEBATE_LOG_LEVEL", "info"),
		JWTSecret: getenv("DEBATE_JWT_SECRET", "debate-dev-secret"),

		StoreDriver:  getenv("DEBATE_STORE_DRIVER", "mysql"),
		MySQLDSN:     getenv("DEBATE_MYSQL_DSN", "root:root@tcp(127.0.0.1:3306)/debate?charset=utf8mb4&parseTime=True&loc=Local"),
		SQLitePath:   getenv("DEBATE_SQLITE_PATH", "debate.db"),
		StoreTimeout: getenvDuration("DEBATE_STORE_TIMEOUT", 3*time.Second),

		RedisAddr:     getenv("DEBATE_REDIS_ADDR", ""),
		RedisPassword: getenv("DEBATE_REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("DEBATE_REDIS_DB", 0),

		KafkaBrokers: getenvList("DEBATE_KAFKA_BROKERS"),
		KafkaTopic:   getenv("DEBATE_KAFKA_TOPIC", "debate.notifications"),

		Classifier:        getenv("DEBATE_CLASSIFIER", "rules"),
		ClassifierTimeout: getenvDuration("DEBATE_CLASSIFIER_TIMEOUT", 5*time.Second),
		OpenAIKey:         getenv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     getenv("OPENAI_BASE_URL", ""),
		OpenAIModel:       getenv("DEBATE_OPENAI_MODEL", ""),
		RulesFile:         getenv("DEBATE_RULES_FILE", ""),
		ModerateEdits:     getenvBool("DEBATE_MODERATE_EDITS", false),

		MaxAttempts:       getenvInt("DEBATE_MAX_ATTEMPTS", 5),
		AnonymizeChunk:    getenvInt("DEBATE_ANONYMIZE_CHUNK", 100),
		RedactionSentinel: getenv("DEBATE_REDACTION_SENTINEL", "[deleted]"),

		OutboxInterval:    getenvDuration("DEBATE_OUTBOX_INTERVAL", 5*time.Second),
		OutboxBatch:       getenvInt("DEBATE_OUTBOX_BATCH", 100),
		ReconcileInterval: getenvDuration("DEBATE_RECONCILE_INTERVAL", 5*time.Minute),
		ReconcileBatch:    getenvInt("DEBATE_RECONCILE_BATCH", 500),
	}

	if path := os.Getenv(FileEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case "mysql", "sqlite", "memory":
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	switch c.Classifier {
	case "rules":
	case "openai":
		if c.OpenAIKey == "" {
			return fmt.Errorf("classifier openai requires OPENAI_API_KEY")
		}
	default:
		return fmt.Errorf("unknown classifier %q", c.Classifier)
	}
	if strings.TrimSpace(c.RedactionSentinel) == "" {
		return fmt.Errorf("redaction sentinel must not be empty")
	}
	return nil
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"os"
	"strconv"
	"time"
)

// DBConfig 数据库配置
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
	// SlowQueryMS is the threshold above which queries are logged as slow.
	SlowQueryMS int `yaml:"slow_query_ms"`
}

// MQConfig 消息队列配置
type MQConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// JWTConfig holds the shared secret of the identity provider. Tokens are
// only verified here, never issued.
type JWTConfig struct {
	Secret   string `yaml:"secret"`
	Audience string `yaml:"audience"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port string `yaml:"port"`
}

// OutboxConfig controls the outbox dispatcher and the failed-event replay job.
type OutboxConfig struct {
	IntervalMS     int    `yaml:"interval_ms"`
	BatchSize      int    `yaml:"batch_size"`
	MaxRetries     int    `yaml:"max_retries"`
	ReplaySchedule string `yaml:"replay_schedule"`
}

// RateLimitConfig limits message sends per caller.
type RateLimitConfig struct {
	MessagesPerSecond float64 `yaml:"messages_per_second"`
	Burst             int     `yaml:"burst"`
}

// AdminConfig protects the outbox admin endpoints.
type AdminConfig struct {
	Token string `yaml:"token"`
}

// Interval returns the dispatcher tick, defaulting to one second.
func (c OutboxConfig) Interval() time.Duration {
	if c.IntervalMS <= 0 {
		return time.Second
	}
	return time.Duration(c.IntervalMS) * time.Millisecond
}

// OverrideDBFromEnv 从环境变量覆盖数据库配置
func OverrideDBFromEnv(cfg *DBConfig) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Name = name
	}
	if mode := os.Getenv("DB_SSLMODE"); mode != "" {
		cfg.SSLMode = mode
	}
}

// OverrideMQFromEnv 从环境变量覆盖MQ配置
func OverrideMQFromEnv(cfg *MQConfig) {
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.URL = url
	}
}

// OverrideRedisFromEnv 从环境变量覆盖Redis配置
func OverrideRedisFromEnv(cfg *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
}

// OverrideJWTFromEnv 从环境变量覆盖JWT配置
func OverrideJWTFromEnv(cfg *JWTConfig) {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Secret = secret
	}
	if aud := os.Getenv("JWT_AUDIENCE"); aud != "" {
		cfg.Audience = aud
	}
}

// OverrideServerFromEnv 从环境变量覆盖服务器配置
func OverrideServerFromEnv(cfg *ServerConfig) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
}

// OverrideAdminFromEnv reads ADMIN_TOKEN.
func OverrideAdminFromEnv(cfg *AdminConfig) {
	if token := os.Getenv("ADMIN_TOKEN"); token != "" {
		cfg.Token = token
	}
}

package config

import (
	"fmt"

	"sciencehub/pkg/config"
)

type Config struct {
	DB        config.DBConfig        `yaml:"db"`
	MQ        config.MQConfig        `yaml:"mq"`
	Redis     config.RedisConfig     `yaml:"redis"`
	JWT       config.JWTConfig       `yaml:"jwt"`
	Server    config.ServerConfig    `yaml:"server"`
	Outbox    config.OutboxConfig    `yaml:"outbox"`
	RateLimit config.RateLimitConfig `yaml:"rate_limit"`
	Admin     config.AdminConfig     `yaml:"admin"`
	Debug     bool                   `yaml:"debug"`
}

// Load reads the layered config for CONFIG_ENV from CONFIG_DIR and applies
// environment overrides.
func Load() (*Config, error) {
	return LoadFrom(config.GetConfigEnv(), config.GetEnv("CONFIG_DIR", "config"))
}

func LoadFrom(env, dir string) (*Config, error) {
	var cfg Config
	if err := config.Load(env, dir, &cfg); err != nil {
		return nil, err
	}

	// 环境变量覆盖
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideAdminFromEnv(&cfg.Admin)

	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8080"
	}
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt.secret is required")
	}
	return &cfg, nil
}

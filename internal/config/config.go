package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port                     string   `yaml:"port"`
	DatabaseURL              string   `yaml:"database_url"`
	RoundsPerGame            int      `yaml:"rounds_per_game"`
	RoundSeconds             int      `yaml:"round_seconds"`
	RoundPauseSeconds        int      `yaml:"round_pause_seconds"`
	PresenceTTLSeconds       int      `yaml:"presence_ttl_seconds"`
	SweepProbability         float64  `yaml:"sweep_probability"`
	HeartbeatSeconds         int      `yaml:"heartbeat_seconds"`
	DeadlineEnforcement      bool     `yaml:"deadline_enforcement"`
	DBMaxOpenConns           int      `yaml:"db_max_open_conns"`
	DBMaxIdleConns           int      `yaml:"db_max_idle_conns"`
	DBConnMaxLifetimeSeconds int      `yaml:"db_conn_max_lifetime_seconds"`
	DBConnMaxIdleTimeSeconds int      `yaml:"db_conn_max_idle_seconds"`
	NATSURL                  string   `yaml:"nats_url"`
	NATSSubjectPrefix        string   `yaml:"nats_subject_prefix"`
	LogLevel                 string   `yaml:"log_level"`
	LogFormat                string   `yaml:"log_format"`
	RateLimitPerSecond       float64  `yaml:"rate_limit_per_second"`
	RateLimitBurst           int      `yaml:"rate_limit_burst"`
	CORSOrigins              []string `yaml:"cors_origins"`
}

func Default() Config {
	return Config{
		Port:                     "8080",
		RoundsPerGame:            3,
		RoundSeconds:             80,
		RoundPauseSeconds:        5,
		PresenceTTLSeconds:       60,
		SweepProbability:         0.10,
		HeartbeatSeconds:         15,
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
		NATSSubjectPrefix:        "wordguess.games",
		LogLevel:                 "info",
		LogFormat:                "console",
		RateLimitPerSecond:       5,
		RateLimitBurst:           10,
	}
}

func (c Config) RoundDuration() time.Duration {
	return time.Duration(c.RoundSeconds) * time.Second
}

func (c Config) RoundPause() time.Duration {
	return time.Duration(c.RoundPauseSeconds) * time.Second
}

func (c Config) PresenceTTL() time.Duration {
	return time.Duration(c.PresenceTTLSeconds) * time.Second
}

func (c Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatSeconds) * time.Second
}

// Load builds the configuration from defaults, the optional CONFIG_FILE
// overlay and finally the environment.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		overlaid, err := LoadFile(path, cfg)
		if err != nil {
			return cfg, err
		}
		cfg = overlaid
	}
	return FromEnv(cfg), nil
}

// FromEnv applies environment overrides on top of cfg.
func FromEnv(cfg Config) Config {
	if raw := os.Getenv("PORT"); raw != "" {
		cfg.Port = raw
	}
	if raw := os.Getenv("DATABASE_URL"); raw != "" {
		cfg.DatabaseURL = raw
	}
	positiveInt("ROUNDS_PER_GAME", &cfg.RoundsPerGame)
	positiveInt("ROUND_SECONDS", &cfg.RoundSeconds)
	positiveInt("ROUND_PAUSE_SECONDS", &cfg.RoundPauseSeconds)
	positiveInt("PRESENCE_TTL_SECONDS", &cfg.PresenceTTLSeconds)
	positiveInt("HEARTBEAT_SECONDS", &cfg.HeartbeatSeconds)
	positiveInt("DB_MAX_OPEN_CONNS", &cfg.DBMaxOpenConns)
	positiveInt("DB_MAX_IDLE_CONNS", &cfg.DBMaxIdleConns)
	positiveInt("DB_CONN_MAX_LIFETIME_SECONDS", &cfg.DBConnMaxLifetimeSeconds)
	positiveInt("DB_CONN_MAX_IDLE_SECONDS", &cfg.DBConnMaxIdleTimeSeconds)
	positiveInt("RATE_LIMIT_BURST", &cfg.RateLimitBurst)
	if raw := os.Getenv("SWEEP_PROBABILITY"); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil && value >= 0 && value <= 1 {
			cfg.SweepProbability = value
		}
	}
	if raw := os.Getenv("RATE_LIMIT_PER_SECOND"); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil && value >= 0 {
			cfg.RateLimitPerSecond = value
		}
	}
	if raw := os.Getenv("SERVER_DEADLINE_ENFORCEMENT"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.DeadlineEnforcement = value
		}
	}
	if raw := os.Getenv("NATS_URL"); raw != "" {
		cfg.NATSURL = raw
	}
	if raw := os.Getenv("NATS_SUBJECT_PREFIX"); raw != "" {
		cfg.NATSSubjectPrefix = raw
	}
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = raw
	}
	if raw := os.Getenv("LOG_FORMAT"); raw != "" {
		cfg.LogFormat = raw
	}
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		cfg.CORSOrigins = splitList(raw)
	}
	return cfg
}

func positiveInt(key string, target *int) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	if value, err := strconv.Atoi(raw); err == nil && value > 0 {
		*target = value
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

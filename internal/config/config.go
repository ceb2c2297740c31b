// Package config loads server configuration from environment
// variables, with an optional .env file for development.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string `env:"CONVERGE_HTTP_ADDR" envDefault:":8080"`

	// Env is "dev" or "prod". Unknown values fall back to dev.
	Env string `env:"CONVERGE_ENV" envDefault:"dev"`

	DB        DBConfig        `envPrefix:"CONVERGE_DB_"`
	Redis     RedisConfig     `envPrefix:"CONVERGE_REDIS_"`
	Keys      KeyConfig       `envPrefix:"CONVERGE_KEY_"`
	Policy    PolicyConfig    `envPrefix:"CONVERGE_POLICY_"`
	Replay    ReplayConfig    `envPrefix:"CONVERGE_REPLAY_"`
	Heartbeat HeartbeatConfig `envPrefix:"CONVERGE_HEARTBEAT_"`

	// KnownControllers are pre-commissioned on startup in dev.
	KnownControllers []string `env:"CONVERGE_KNOWN_CONTROLLERS" envSeparator:","`
}

type DBConfig struct {
	Path string `env:"PATH" envDefault:"./data/converge.db"`
}

type RedisConfig struct {
	// Addr empty disables Redis; last-access and replay tracking fall
	// back to in-memory backends.
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

type KeyConfig struct {
	// Dir holds the Ed25519 signing keypair; generated on first boot.
	Dir string `env:"DIR" envDefault:"./data/keys"`
}

type PolicyConfig struct {
	// ExpressionFile is the operator-authored policy document consumed
	// by the expression evaluator. Required.
	ExpressionFile string `env:"EXPRESSION_FILE" envDefault:"./policies/policy.jmespath"`
}

type ReplayConfig struct {
	// Enabled turns on single-use nonce enforcement for capability
	// tokens.
	Enabled bool `env:"ENABLED" envDefault:"false"`
}

type HeartbeatConfig struct {
	// Retention 0 keeps heartbeat history forever.
	Retention     time.Duration `env:"RETENTION" envDefault:"720h"`
	PruneInterval time.Duration `env:"PRUNE_INTERVAL" envDefault:"6h"`

	// LastAccessTTL bounds the advisory last-access projection.
	LastAccessTTL time.Duration `env:"LAST_ACCESS_TTL" envDefault:"720h"`
}

// Load reads a .env file when one exists, then parses the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.sanitize()
	return cfg, nil
}

func (c *Config) sanitize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.Env != "dev" && c.Env != "prod" {
		c.Env = "dev"
	}

	out := c.KnownControllers[:0]
	for _, id := range c.KnownControllers {
		id = strings.TrimSpace(id)
		if id != "" {
			out = append(out, id)
		}
	}
	c.KnownControllers = out
}

func (c Config) IsDev() bool { return c.Env == "dev" }

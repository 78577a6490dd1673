// Package config holds the service configuration, loaded from file and
// environment by viper.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/riskgraph/pkg/errors"
)

// Config holds the application's configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	DebugPprof   bool   `mapstructure:"debug_pprof"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // in minutes
}

// GetDSN builds the PostgreSQL connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig configures the score cache connection.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	ScoreTTL     time.Duration `mapstructure:"score_ttl"`
}

// KafkaConfig configures the lifecycle event producer.
type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	EventTopic   string        `mapstructure:"event_topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	RequiredAcks int           `mapstructure:"required_acks"`
}

// EngineConfig bounds the engine's resource usage process-wide. Per-tenant
// ceilings are stored alongside the tenant config and must stay within
// these bounds.
type EngineConfig struct {
	MaxCascadeDepth   int           `mapstructure:"max_cascade_depth"`
	MaxIterations     int           `mapstructure:"max_iterations"`
	SimulationTimeout time.Duration `mapstructure:"simulation_timeout"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate checks essential configuration values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.ErrInvalidConfig("server.port", "must be a valid TCP port")
	}
	if c.Engine.MaxCascadeDepth < 1 {
		return errors.ErrInvalidConfig("engine.max_cascade_depth", "must be at least 1")
	}
	if c.Engine.MaxIterations < 1 {
		return errors.ErrInvalidConfig("engine.max_iterations", "must be at least 1")
	}
	if c.Engine.SimulationTimeout <= 0 {
		return errors.ErrInvalidConfig("engine.simulation_timeout", "must be positive")
	}
	return nil
}

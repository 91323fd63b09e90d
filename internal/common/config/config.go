// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Paystack PaystackConfig `mapstructure:"paystack"`
	Firebase FirebaseConfig `mapstructure:"firebase"`
	Database DatabaseConfig `mapstructure:"database"`
	Plans    PlansConfig    `mapstructure:"plans"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment" validate:"oneof=development staging production test"`
}

type ServerConfig struct {
	Address         string   `mapstructure:"address" validate:"required"`
	ReadTimeout     int      `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int      `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int      `mapstructure:"shutdown_timeout"` // milliseconds
	CORSOrigins     []string `mapstructure:"cors_origins"`
}

// PaystackConfig holds the gateway credentials. SecretKey may be empty at
// startup; both payment endpoints then fail closed on every request.
type PaystackConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	BaseURL   string `mapstructure:"base_url" validate:"required,url"`
	Timeout   int    `mapstructure:"timeout"` // milliseconds
}

// Configured reports whether a gateway secret has been provisioned.
func (p PaystackConfig) Configured() bool {
	return p.SecretKey != ""
}

type FirebaseConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
	UsersCollection string `mapstructure:"users_collection" validate:"required"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database" validate:"required_if=Enabled true"`
	User           string `mapstructure:"user" validate:"required_if=Enabled true"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address      string `mapstructure:"address"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	ReferenceTTL int    `mapstructure:"reference_ttl"` // hours
}

// Enabled reports whether the processed-reference ledger should use Redis.
func (r RedisConfig) Enabled() bool {
	return r.Address != ""
}

// PlansConfig selects the default plan. A non-empty Catalog replaces the
// compiled plan table entirely, so it must list every plan that should exist.
type PlansConfig struct {
	Default string      `mapstructure:"default" validate:"required"`
	Catalog []PlanEntry `mapstructure:"catalog" validate:"dive"`
}

type PlanEntry struct {
	ID          string `mapstructure:"id" validate:"required"`
	Amount      int64  `mapstructure:"amount" validate:"gt=0"`
	DisplayName string `mapstructure:"display_name" validate:"required"`
}

const (
	UnmatchedAmountDefaultPlan = "default_plan"
	UnmatchedAmountReject      = "reject"
)

type WebhookConfig struct {
	UnmatchedAmountPolicy string `mapstructure:"unmatched_amount_policy" validate:"oneof=default_plan reject"`
	MaxBodyBytes          int64  `mapstructure:"max_body_bytes" validate:"gt=0"`
}

// AlertsConfig holds settings for operator alerts and payer receipts.
type AlertsConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn" validate:"required_if=Enabled true"`
	} `mapstructure:"sns"`
	SES struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email" validate:"required_if=Enabled true"`
	} `mapstructure:"ses"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

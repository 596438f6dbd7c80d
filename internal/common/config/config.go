// internal/common/config/config.go
package config

import (
	"fmt"

	"loan-workers/internal/decisioning"
)

// Model names used as keys in models.endpoints.
const (
	ModelDecisionTree       = "decision_tree"
	ModelLogisticRegression = "logistic_regression"
	ModelRandomForest       = "random_forest"
)

// ModelNames returns the classifiers in vote order.
func ModelNames() []string {
	return []string{ModelDecisionTree, ModelLogisticRegression, ModelRandomForest}
}

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig                `mapstructure:"app"`
	Camunda       CamundaConfig            `mapstructure:"camunda"`
	Database      DatabaseConfig           `mapstructure:"database"`
	Workers       map[string]WorkerConfig  `mapstructure:"workers"`
	Logging       LoggingConfig            `mapstructure:"logging"`
	Policy        decisioning.PolicyConfig `mapstructure:"policy"`
	Models        ModelsConfig             `mapstructure:"models"`
	Audit         AuditConfig              `mapstructure:"audit"`
	Notifications NotificationConfig       `mapstructure:"notifications"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	HTTPAddress string `mapstructure:"http_address"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
	EnsureSchema   bool   `mapstructure:"ensure_schema"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Decisioning Sections ---

// ModelsConfig locates the three risk classifiers.
type ModelsConfig struct {
	Endpoints map[string]string `mapstructure:"endpoints"`
	Timeout   int               `mapstructure:"timeout"`   // milliseconds
	CacheTTL  int               `mapstructure:"cache_ttl"` // milliseconds, 0 disables caching
}

// AuditConfig selects where decision audit events go.
type AuditConfig struct {
	Sinks              []string `mapstructure:"sinks"`
	ElasticsearchIndex string   `mapstructure:"elasticsearch_index"`
}

// HasSink reports whether name is one of the configured sinks.
func (a AuditConfig) HasSink(name string) bool {
	for _, s := range a.Sinks {
		if s == name {
			return true
		}
	}
	return false
}

// NotificationConfig holds settings for the notify-underwriting-review worker.
type NotificationConfig struct {
	Review struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"review"`
	Email struct {
		Enabled   bool     `mapstructure:"enabled"`
		FromEmail string   `mapstructure:"from_email"`
		ToEmails  []string `mapstructure:"to_emails"`
	} `mapstructure:"email"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App        AppConfig               `mapstructure:"app"`
	Camunda    CamundaConfig           `mapstructure:"camunda"`
	Database   DatabaseConfig          `mapstructure:"database"`
	Workers    map[string]WorkerConfig `mapstructure:"workers"`
	GenAI      GenAIConfig             `mapstructure:"genai"`
	Generation GenerationConfig        `mapstructure:"generation"`
	Storage    StorageConfig           `mapstructure:"storage"`
	Logging    LoggingConfig           `mapstructure:"logging"`
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
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
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
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
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
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// --- Generation ---

const (
	ProviderGateway = "gateway"
	ProviderGemini  = "gemini"
	ProviderOpenAI  = "openai"
)

// GenAIConfig selects and tunes the text generation backend.
type GenAIConfig struct {
	Provider    string  `mapstructure:"provider"`
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
	MaxRetries  int     `mapstructure:"max_retries"`
	Temperature float32 `mapstructure:"temperature"`
	TopP        float32 `mapstructure:"top_p"`
	JSONMode    bool    `mapstructure:"json_mode"`
}

// GenerationConfig holds pipeline defaults.
type GenerationConfig struct {
	StoryBatchSize     int    `mapstructure:"story_batch_size"`
	StoryIterations    int    `mapstructure:"story_iterations"`
	TestCaseIterations int    `mapstructure:"test_case_iterations"`
	PromptsPath        string `mapstructure:"prompts_path"`
}

// --- Storage ---

const (
	BackendFilesystem = "filesystem"
	BackendPostgres   = "postgres"
)

type StorageConfig struct {
	Backend         string `mapstructure:"backend"`
	ProjectsDir     string `mapstructure:"projects_dir"`
	PendingTTL      int    `mapstructure:"pending_ttl"` // milliseconds
	WorkbookEnabled bool   `mapstructure:"workbook_enabled"`
}

// PendingTTLDuration returns the pending batch TTL as a duration.
func (s StorageConfig) PendingTTLDuration() time.Duration {
	return GetDuration(s.PendingTTL)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

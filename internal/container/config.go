// Package container provides dependency injection and lifecycle management
// for the trip expense service.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
type Config struct {
	Database   DatabaseConfig
	Storage    StorageConfig
	Receipts   ReceiptConfig
	Workflow   WorkflowConfig
	Settlement SettlementConfig
	Server     ServerConfig
	Auth       AuthConfig
	Lark       LarkConfig
	OpenAI     OpenAIConfig
	Worker     WorkerConfig
	Metrics    MetricsConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	BusyTimeout     time.Duration

	// MigrationsDir overrides the embedded migrations when set
	MigrationsDir string
}

// StorageConfig holds file storage settings.
type StorageConfig struct {
	// BaseDir holds one folder per trip with its receipt documents
	BaseDir string

	// CompanyName is printed on settlement statements
	CompanyName string
}

// ReceiptConfig holds the receipt upload policy.
type ReceiptConfig struct {
	MaxFileSize       int64
	AllowedExtensions []string
}

// WorkflowConfig holds trip policy switches.
type WorkflowConfig struct {
	RequireEndedBeforeSubmit bool
	AutoCreateSettlement     bool
}

// SettlementConfig holds reconciliation settings.
type SettlementConfig struct {
	// AdvanceBasis is "disbursed" or "approved"
	AdvanceBasis string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	Leeway    time.Duration
}

// LarkConfig holds Lark API settings.
type LarkConfig struct {
	// Enabled turns on notification push
	Enabled       bool
	AppID         string
	AppSecret     string
	ReceiveIDType string
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	// Enabled turns on the receipt amount advisory
	Enabled     bool
	APIKey      string
	BaseURL     string
	Model       string
	MaxPages    int
	PromptsPath string
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	PushPollInterval     time.Duration
	PushBatchSize        int
	AdvisoryPollInterval time.Duration
	AdvisoryBatchSize    int
	ItemTimeout          time.Duration
}

// MetricsConfig holds prometheus settings.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/trip_expense.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			BusyTimeout:     5 * time.Second,
		},
		Storage: StorageConfig{
			BaseDir: "uploads",
		},
		Receipts: ReceiptConfig{
			MaxFileSize:       5 << 20,
			AllowedExtensions: []string{".jpg", ".jpeg", ".png", ".pdf"},
		},
		Workflow: WorkflowConfig{
			AutoCreateSettlement: true,
		},
		Settlement: SettlementConfig{
			AdvanceBasis: "disbursed",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			Issuer: "trip-expense",
			Leeway: 30 * time.Second,
		},
		Lark: LarkConfig{
			ReceiveIDType: "user_id",
		},
		OpenAI: OpenAIConfig{
			Model:    "gpt-4o",
			MaxPages: 2,
		},
		Worker: WorkerConfig{
			PushPollInterval:     5 * time.Second,
			PushBatchSize:        20,
			AdvisoryPollInterval: 15 * time.Second,
			AdvisoryBatchSize:    5,
			ItemTimeout:          60 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir is required")
	}
	if c.Receipts.MaxFileSize <= 0 {
		return fmt.Errorf("receipts.max_file_size must be positive")
	}
	if len(c.Receipts.AllowedExtensions) == 0 {
		return fmt.Errorf("receipts.allowed_extensions must not be empty")
	}
	if c.Settlement.AdvanceBasis != "disbursed" && c.Settlement.AdvanceBasis != "approved" {
		return fmt.Errorf("settlement.advance_basis must be disbursed or approved, got %q", c.Settlement.AdvanceBasis)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	if c.Lark.Enabled {
		if c.Lark.AppID == "" {
			return fmt.Errorf("lark.app_id is required when lark is enabled")
		}
		if c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_secret is required when lark is enabled")
		}
	}

	if c.OpenAI.Enabled && c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required when openai is enabled")
	}

	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Receipts   ReceiptsConfig   `mapstructure:"receipts"`
	Workflow   WorkflowConfig   `mapstructure:"workflow"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Lark       LarkConfig       `mapstructure:"lark"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Workers    WorkersConfig    `mapstructure:"workers"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
	// MigrationsDir overrides the migrations compiled into the binary
	MigrationsDir string `mapstructure:"migrations_dir"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// StorageConfig holds receipt storage configuration
type StorageConfig struct {
	BaseDir     string `mapstructure:"base_dir"`
	CompanyName string `mapstructure:"company_name"`
}

// ReceiptsConfig holds the upload policy
type ReceiptsConfig struct {
	MaxFileSize       int64    `mapstructure:"max_file_size"`
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
}

// WorkflowConfig holds trip policy switches
type WorkflowConfig struct {
	RequireEndedBeforeSubmit bool `mapstructure:"require_ended_before_submit"`
	AutoCreateSettlement     bool `mapstructure:"auto_create_settlement"`
}

// SettlementConfig holds reconciliation configuration
type SettlementConfig struct {
	AdvanceBasis string `mapstructure:"advance_basis"`
}

// AuthConfig holds bearer token configuration
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	Leeway    time.Duration `mapstructure:"leeway"`
}

// LarkConfig holds Lark API configuration
type LarkConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	AppID         string `mapstructure:"app_id"`
	AppSecret     string `mapstructure:"app_secret"`
	ReceiveIDType string `mapstructure:"receive_id_type"`
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	APIKey      string `mapstructure:"api_key"`
	BaseURL     string `mapstructure:"base_url"`
	Model       string `mapstructure:"model"`
	MaxPages    int    `mapstructure:"max_pages"`
	PromptsPath string `mapstructure:"prompts_path"`
}

// WorkersConfig holds background worker configuration
type WorkersConfig struct {
	PushPollInterval     time.Duration `mapstructure:"push_poll_interval"`
	PushBatchSize        int           `mapstructure:"push_batch_size"`
	AdvisoryPollInterval time.Duration `mapstructure:"advisory_poll_interval"`
	AdvisoryBatchSize    int           `mapstructure:"advisory_batch_size"`
	ItemTimeout          time.Duration `mapstructure:"item_timeout"`
}

// MetricsConfig holds prometheus configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load loads configuration from an optional .env file, the YAML file at configPath and
// environment variables. A missing config file is tolerated; defaults and environment apply.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv exports the variables of path without overriding the real environment
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.path", "data/trip_expense.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.busy_timeout", 5*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	v.SetDefault("storage.base_dir", "uploads")

	v.SetDefault("receipts.max_file_size", 5<<20)
	v.SetDefault("receipts.allowed_extensions", []string{".jpg", ".jpeg", ".png", ".pdf"})

	v.SetDefault("workflow.require_ended_before_submit", false)
	v.SetDefault("workflow.auto_create_settlement", true)

	v.SetDefault("settlement.advance_basis", "disbursed")

	v.SetDefault("auth.issuer", "trip-expense")
	v.SetDefault("auth.leeway", 30*time.Second)

	v.SetDefault("lark.enabled", false)
	v.SetDefault("lark.receive_id_type", "user_id")

	v.SetDefault("openai.enabled", false)
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.max_pages", 2)

	v.SetDefault("workers.push_poll_interval", 5*time.Second)
	v.SetDefault("workers.push_batch_size", 20)
	v.SetDefault("workers.advisory_poll_interval", 15*time.Second)
	v.SetDefault("workers.advisory_batch_size", 5)
	v.SetDefault("workers.item_timeout", 60*time.Second)

	v.SetDefault("metrics.enabled", true)
}

// bindEnvVars binds the secrets to their conventional variable names
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("lark.app_id", "LARK_APP_ID")
	_ = v.BindEnv("lark.app_secret", "LARK_APP_SECRET")
	_ = v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("openai.base_url", "OPENAI_BASE_URL")
	_ = v.BindEnv("storage.company_name", "COMPANY_NAME")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Settlement.AdvanceBasis != "disbursed" && c.Settlement.AdvanceBasis != "approved" {
		return fmt.Errorf("settlement.advance_basis must be disbursed or approved")
	}

	if c.Lark.Enabled && (c.Lark.AppID == "" || c.Lark.AppSecret == "") {
		return fmt.Errorf("lark.app_id and lark.app_secret are required when lark is enabled")
	}

	if c.OpenAI.Enabled && c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required when openai is enabled")
	}

	return nil
}

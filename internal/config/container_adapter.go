package config

import (
	"github.com/garyjia/trip-expense/internal/container"
	"github.com/garyjia/trip-expense/pkg/utils"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
			MigrationsDir:   c.Database.MigrationsDir,
		},
		Storage: container.StorageConfig{
			BaseDir:     c.Storage.BaseDir,
			CompanyName: c.Storage.CompanyName,
		},
		Receipts: container.ReceiptConfig{
			MaxFileSize:       c.Receipts.MaxFileSize,
			AllowedExtensions: c.Receipts.AllowedExtensions,
		},
		Workflow: container.WorkflowConfig{
			RequireEndedBeforeSubmit: c.Workflow.RequireEndedBeforeSubmit,
			AutoCreateSettlement:     c.Workflow.AutoCreateSettlement,
		},
		Settlement: container.SettlementConfig{
			AdvanceBasis: c.Settlement.AdvanceBasis,
		},
		Server: container.ServerConfig{
			Host:            c.Server.Host,
			Port:            c.Server.Port,
			ReadTimeout:     c.Server.ReadTimeout,
			WriteTimeout:    c.Server.WriteTimeout,
			ShutdownTimeout: c.Server.ShutdownTimeout,
		},
		Auth: container.AuthConfig{
			JWTSecret: c.Auth.JWTSecret,
			Issuer:    c.Auth.Issuer,
			Leeway:    c.Auth.Leeway,
		},
		Lark: container.LarkConfig{
			Enabled:       c.Lark.Enabled,
			AppID:         c.Lark.AppID,
			AppSecret:     c.Lark.AppSecret,
			ReceiveIDType: c.Lark.ReceiveIDType,
		},
		OpenAI: container.OpenAIConfig{
			Enabled:     c.OpenAI.Enabled,
			APIKey:      c.OpenAI.APIKey,
			BaseURL:     c.OpenAI.BaseURL,
			Model:       c.OpenAI.Model,
			MaxPages:    c.OpenAI.MaxPages,
			PromptsPath: c.OpenAI.PromptsPath,
		},
		Worker: container.WorkerConfig{
			PushPollInterval:     c.Workers.PushPollInterval,
			PushBatchSize:        c.Workers.PushBatchSize,
			AdvisoryPollInterval: c.Workers.AdvisoryPollInterval,
			AdvisoryBatchSize:    c.Workers.AdvisoryBatchSize,
			ItemTimeout:          c.Workers.ItemTimeout,
		},
		Metrics: container.MetricsConfig{
			Enabled: c.Metrics.Enabled,
		},
	}
}

// LoggerConfig converts the logger section for utils.NewLogger.
func (c *Config) LoggerConfig(serviceName string) utils.LoggerConfig {
	return utils.LoggerConfig{
		Level:       c.Logger.Level,
		OutputPath:  c.Logger.OutputPath,
		Format:      c.Logger.Format,
		ServiceName: serviceName,
	}
}

package lark

import (
	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"go.uber.org/zap"
)

// Config holds Lark client configuration
type Config struct {
	AppID     string
	AppSecret string
	// ReceiveIDType tells Lark how to interpret notification user ids: user_id, open_id, union_id or email
	ReceiveIDType string
}

// Client wraps the Lark SDK client
type Client struct {
	client *lark.Client
	cfg    Config
	logger *zap.Logger
}

// NewClient creates a new Lark client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.ReceiveIDType == "" {
		cfg.ReceiveIDType = "user_id"
	}

	client := lark.NewClient(cfg.AppID, cfg.AppSecret,
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
	)

	return &Client{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// GetClient returns the underlying Lark SDK client
func (c *Client) GetClient() *lark.Client {
	return c.client
}

// ReceiveIDType returns the configured recipient id type
func (c *Client) ReceiveIDType() string {
	return c.cfg.ReceiveIDType
}

package lark

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/garyjia/trip-expense/internal/application/port"
	"github.com/garyjia/trip-expense/internal/domain/entity"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"
)

// messageCreator is the slice of the IM message API the pusher needs
type messageCreator interface {
	Create(ctx context.Context, req *larkim.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error)
}

// Pusher delivers in-app notifications as Lark text messages
type Pusher struct {
	messages      messageCreator
	receiveIDType string
	logger        *zap.Logger
}

// NewPusher creates a pusher sending through the client's IM message API
func NewPusher(client *Client, logger *zap.Logger) *Pusher {
	return newPusher(client.GetClient().Im.Message, client.ReceiveIDType(), logger)
}

func newPusher(messages messageCreator, receiveIDType string, logger *zap.Logger) *Pusher {
	return &Pusher{
		messages:      messages,
		receiveIDType: receiveIDType,
		logger:        logger,
	}
}

// Push sends one notification to its recipient
func (p *Pusher) Push(ctx context.Context, notification *entity.Notification) error {
	if notification.UserID == "" {
		return fmt.Errorf("notification %d has no recipient", notification.ID)
	}

	content, err := textContent(notification)
	if err != nil {
		return err
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(p.receiveIDType).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(notification.UserID).
			MsgType("text").
			Content(content).
			Build()).
		Build()

	resp, err := p.messages.Create(ctx, req)
	if err != nil {
		p.logger.Error("Failed to send Lark message",
			zap.Int64("notification_id", notification.ID),
			zap.String("receive_id", notification.UserID),
			zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		p.logger.Error("Lark API returned failure",
			zap.Int64("notification_id", notification.ID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("lark API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}
	p.logger.Debug("Notification pushed to Lark",
		zap.Int64("notification_id", notification.ID),
		zap.String("message_id", messageID))
	return nil
}

// textContent renders the Lark text message body, title on the first line
func textContent(notification *entity.Notification) (string, error) {
	lines := []string{notification.Title}
	if notification.Message != "" {
		lines = append(lines, notification.Message)
	}
	body, err := json.Marshal(map[string]string{"text": strings.Join(lines, "\n")})
	if err != nil {
		return "", fmt.Errorf("failed to marshal message content: %w", err)
	}
	return string(body), nil
}

var _ port.NotificationPusher = (*Pusher)(nil)

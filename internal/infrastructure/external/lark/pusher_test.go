package lark

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/trip-expense/internal/domain/entity"
)

type fakeMessages struct {
	requests []*larkim.CreateMessageReq
	resp     *larkim.CreateMessageResp
	err      error
}

func (f *fakeMessages) Create(ctx context.Context, req *larkim.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error) {
	f.requests = append(f.requests, req)
	return f.resp, f.err
}

func okResponse() *larkim.CreateMessageResp {
	messageID := "om_1"
	return &larkim.CreateMessageResp{
		Data: &larkim.CreateMessageRespData{MessageId: &messageID},
	}
}

func TestPusher_Push(t *testing.T) {
	notification := &entity.Notification{
		ID:      3,
		UserID:  "emp-1",
		Title:   "Advance Approved",
		Message: `Advance ADV-20251114-0001 was approved ("area")`,
	}

	t.Run("sends a text message", func(t *testing.T) {
		messages := &fakeMessages{resp: okResponse()}
		pusher := newPusher(messages, "user_id", zap.NewNop())

		require.NoError(t, pusher.Push(context.Background(), notification))
		require.Len(t, messages.requests, 1)

		body := messages.requests[0].Body
		require.NotNil(t, body)
		assert.Equal(t, "emp-1", *body.ReceiveId)
		assert.Equal(t, "text", *body.MsgType)

		var content map[string]string
		require.NoError(t, json.Unmarshal([]byte(*body.Content), &content))
		assert.Equal(t, "Advance Approved\n"+notification.Message, content["text"])
	})

	t.Run("transport error", func(t *testing.T) {
		messages := &fakeMessages{err: errors.New("dial tcp: timeout")}
		pusher := newPusher(messages, "user_id", zap.NewNop())

		err := pusher.Push(context.Background(), notification)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout")
	})

	t.Run("api failure code", func(t *testing.T) {
		resp := okResponse()
		resp.Code = 230001
		resp.Msg = "invalid receive_id"
		pusher := newPusher(&fakeMessages{resp: resp}, "user_id", zap.NewNop())

		err := pusher.Push(context.Background(), notification)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "230001")
	})

	t.Run("missing recipient", func(t *testing.T) {
		messages := &fakeMessages{resp: okResponse()}
		pusher := newPusher(messages, "user_id", zap.NewNop())

		assert.Error(t, pusher.Push(context.Background(), &entity.Notification{ID: 4, Title: "x"}))
		assert.Empty(t, messages.requests)
	})
}

func TestTextContent_TitleOnly(t *testing.T) {
	content, err := textContent(&entity.Notification{Title: "Trip Cancelled"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"Trip Cancelled"}`, content)
}

package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront/storebot/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(config.TelegramConfig{Token: "123:abc", APIURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func decodeParams(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var params map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
	return params
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient(config.TelegramConfig{}, zap.NewNop())
	assert.Error(t, err)
}

func TestSendMessageWithKeyboard(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot123:abc/sendMessage", r.URL.Path)
		params := decodeParams(t, r)
		assert.Equal(t, float64(7), params["chat_id"])
		assert.Equal(t, "hi", params["text"])
		markup := params["reply_markup"].(map[string]any)
		rows := markup["inline_keyboard"].([]any)
		assert.Len(t, rows, 1)
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":99,"chat":{"id":7,"type":"private"}}}`))
	})

	msg, err := c.SendMessage(context.Background(), 7, "hi", &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{Row(Button("Menu", "menu"))},
	})
	require.NoError(t, err)
	assert.Equal(t, 99, msg.MessageID)
}

func TestGetUpdates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		params := decodeParams(t, r)
		assert.Equal(t, float64(10), params["offset"])
		assert.Equal(t, float64(5), params["timeout"])
		_, _ = w.Write([]byte(`{"ok":true,"result":[
			{"update_id":10,"message":{"message_id":1,"chat":{"id":7},"text":"/start"}},
			{"update_id":11,"callback_query":{"id":"cb","from":{"id":7},"data":"menu","message":{"message_id":2,"chat":{"id":7}}}}
		]}`))
	})

	updates, err := c.GetUpdates(context.Background(), 10, 5*time.Second)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, "/start", updates[0].Message.Text)
	assert.Equal(t, int64(7), updates[0].ChatID())
	assert.Equal(t, "menu", updates[1].CallbackQuery.Data)
	assert.Equal(t, int64(7), updates[1].ChatID())
}

func TestAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: message to delete not found"}`))
	})

	err := c.DeleteMessage(context.Background(), 7, 1)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 400, apiErr.Code)
	assert.Equal(t, "deleteMessage", apiErr.Method)
}

func TestSetWebhookSendsSecret(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot123:abc/setWebhook", r.URL.Path)
		params := decodeParams(t, r)
		assert.Equal(t, "https://bot.example.com/telegram/webhook", params["url"])
		assert.Equal(t, "s3cret", params["secret_token"])
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	})

	require.NoError(t, c.SetWebhook(context.Background(), "https://bot.example.com/telegram/webhook", "s3cret"))
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := NewClient(config.TelegramConfig{Token: "t", APIURL: url}, zap.NewNop())
	require.NoError(t, err)

	err = c.AnswerCallbackQuery(context.Background(), "cb", "")
	assert.ErrorIs(t, err, ErrTransport)
}

package handler

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/storebot/internal/telegram"
)

const headerTelegramSecret = "X-Telegram-Bot-Api-Secret-Token"

// WebhookHandler accepts Telegram webhook deliveries and queues them per chat
// so Telegram is acknowledged immediately.
type WebhookHandler struct {
	secret string
	queue  *telegram.ChatQueue
	logger *zap.Logger
}

func NewWebhookHandler(secret string, handler telegram.UpdateHandler, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		secret: secret,
		queue:  telegram.NewChatQueue(handler),
		logger: logger.Named("webhook"),
	}
}

func (h *WebhookHandler) Receive(c *gin.Context) {
	if h.secret != "" {
		got := c.GetHeader(headerTelegramSecret)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
	}

	var update telegram.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		h.logger.Debug("malformed update", zap.Error(err))
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	h.queue.Submit(context.WithoutCancel(c.Request.Context()), update)

	c.Status(http.StatusOK)
}

// Wait blocks until every dispatched update has been handled.
func (h *WebhookHandler) Wait() {
	h.queue.Wait()
}

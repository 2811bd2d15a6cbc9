package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Achutaiscool/Twenty44-WA-bot/config"
	"github.com/Achutaiscool/Twenty44-WA-bot/models"
	"github.com/Achutaiscool/Twenty44-WA-bot/services/conversation"
	"github.com/Achutaiscool/Twenty44-WA-bot/utils"
)

// WebhookHandler receives WhatsApp Cloud API deliveries.
type WebhookHandler struct {
	engine *conversation.Engine
	logger *zap.Logger
}

func NewWebhookHandler(engine *conversation.Engine, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{engine: engine, logger: logger}
}

// Verify answers the provider's GET subscription handshake.
func (h *WebhookHandler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == config.AppConfig.WhatsAppVerifyToken {
		c.String(http.StatusOK, challenge)
		return
	}
	utils.JSONError(c, http.StatusForbidden, "webhook verification failed", "invalid verify token")
}

// Receive handles an inbound message delivery. A storage or lock failure
// is surfaced as a transport error so the provider redelivers; everything
// else acknowledges with 200 (the provider retries on non-2xx forever).
func (h *WebhookHandler) Receive(c *gin.Context) {
	var payload models.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid webhook payload", err.Error())
		return
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if err := h.engine.HandleInbound(msg); err != nil {
					if errors.Is(err, conversation.ErrBusy) {
						c.JSON(http.StatusServiceUnavailable, gin.H{"status": "busy"})
						return
					}
					h.logger.Error("inbound handling failed",
						zap.String("from", msg.From), zap.Error(err))
					c.JSON(http.StatusInternalServerError, gin.H{"status": "error"})
					return
				}
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Achutaiscool/Twenty44-WA-bot/services/conversation"
	"github.com/Achutaiscool/Twenty44-WA-bot/services/payments"
	"github.com/Achutaiscool/Twenty44-WA-bot/utils"
)

// PaymentWebhookHandler receives Stripe webhook deliveries.
type PaymentWebhookHandler struct {
	engine *conversation.Engine
	logger *zap.Logger
}

func NewPaymentWebhookHandler(engine *conversation.Engine, logger *zap.Logger) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{engine: engine, logger: logger}
}

// Receive verifies the delivery's signature and, for a completed checkout,
// drives the commit transition. Non-2xx makes Stripe redeliver, which is
// safe: a session already marked paid absorbs the duplicate.
func (h *PaymentWebhookHandler) Receive(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "failed to read webhook body", err.Error())
		return
	}

	event, ok, err := payments.ParseWebhook(body, c.GetHeader("Stripe-Signature"))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid payment webhook", err.Error())
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if err := h.engine.HandlePaymentConfirmed(event); err != nil {
		h.logger.Error("payment confirmation handling failed",
			zap.String("bookingRef", event.BookingRef), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Achutaiscool/Twenty44-WA-bot/handlers"
)

// RegisterRoutes registers all endpoints for the bot.
func RegisterRoutes(
	r *gin.Engine,
	webhook *handlers.WebhookHandler,
	payment *handlers.PaymentWebhookHandler,
) {
	r.GET("/webhook", webhook.Verify)
	r.POST("/webhook", webhook.Receive)

	r.POST("/payments/webhook", payment.Receive)

	r.GET("/healthz", handlers.Health)
}

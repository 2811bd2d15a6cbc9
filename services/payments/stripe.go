// Package payments adapts Stripe Checkout into payment-link issuance and
// webhook-event parsing for the conversation engine.
package payments

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"

	"github.com/Achutaiscool/Twenty44-WA-bot/config"
	"github.com/Achutaiscool/Twenty44-WA-bot/models"
)

// StripeLinkIssuer creates Checkout sessions carrying the booking ref as
// metadata, so the completion webhook can be correlated back to a session.
type StripeLinkIssuer struct {
	logger *zap.Logger
}

func NewStripeLinkIssuer(logger *zap.Logger) *StripeLinkIssuer {
	return &StripeLinkIssuer{logger: logger}
}

func (s *StripeLinkIssuer) CreatePaymentLink(req models.PaymentLinkRequest) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(req.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
					UnitAmount: stripe.Int64(req.Amount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(config.AppConfig.StripeSuccessURL),
	}
	params.Metadata = map[string]string{
		"booking_ref": req.BookingRef,
		"phone":       req.Phone,
	}

	cs, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	s.logger.Info("payment link issued",
		zap.String("bookingRef", req.BookingRef),
		zap.Int64("amount", req.Amount))
	return cs.URL, nil
}

// ParseWebhook verifies a Stripe webhook delivery and extracts the payment
// confirmation, if the event is one. ok is false for event types the bot
// does not act on.
func ParseWebhook(payload []byte, sigHeader string) (models.PaymentEvent, bool, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, config.AppConfig.StripeWebhookSecret)
	if err != nil {
		return models.PaymentEvent{}, false, fmt.Errorf("webhook signature verification failed: %w", err)
	}
	if event.Type != "checkout.session.completed" {
		return models.PaymentEvent{}, false, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return models.PaymentEvent{}, false, fmt.Errorf("failed to parse checkout session: %w", err)
	}
	ref := cs.Metadata["booking_ref"]
	if ref == "" {
		return models.PaymentEvent{}, false, fmt.Errorf("checkout session %s has no booking_ref metadata", cs.ID)
	}
	return models.PaymentEvent{
		BookingRef: ref,
		PaymentID:  cs.ID,
		Amount:     cs.AmountTotal,
	}, true, nil
}

package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/openclaw/billing/internal/core/domain"
	portssvc "github.com/openclaw/billing/internal/core/ports/services"
	"github.com/openclaw/billing/internal/middleware"
)

// Events with expanded invoice objects can run to hundreds of kilobytes, so
// the cap stays well above any genuine payload.
const maxWebhookBodyBytes = 1 << 20

// webhookHandler receives payment-provider webhooks, verifies their signature
// and hands the parsed event to the payment event service.
type webhookHandler struct {
	paymentEvents portssvc.PaymentEventSvcFacade
	webhookSecret string
}

func newWebhookHandler(sc *portssvc.ServiceContainer, webhookSecret string) *webhookHandler {
	return &webhookHandler{
		paymentEvents: sc.PaymentEvents,
		webhookSecret: webhookSecret,
	}
}

// RegisterWebhookRoutes registers the provider-facing webhook endpoint. It is
// authenticated by signature, not by JWT, so it lives outside the API group.
func RegisterWebhookRoutes(r *gin.Engine, sc *portssvc.ServiceContainer, webhookSecret string) {
	h := newWebhookHandler(sc, webhookSecret)
	r.POST("/webhooks/stripe", h.handleStripeWebhook)
}

// handleStripeWebhook godoc
// @Summary Receive Stripe events
// @Description Verifies the Stripe signature and applies the event. Unknown event types are acknowledged without action. Redelivered events are deduplicated by event id.
// @Tags webhooks
// @Accept  json
// @Produce  json
// @Success 200 {object} map[string]bool
// @Failure 400 {object} map[string]string "Unreadable body or invalid signature"
// @Failure 413 {object} map[string]string "Body exceeds the size limit"
// @Failure 500 {object} map[string]string "Event processing failed; Stripe will redeliver"
// @Router /webhooks/stripe [post]
func (h *webhookHandler) handleStripeWebhook(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			logger.Warn("Webhook body exceeds size limit", slog.Int64("limit_bytes", maxBytesErr.Limit))
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
			return
		}
		logger.Warn("Failed to read webhook body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	stripeEvent, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		logger.Warn("Webhook signature verification failed", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	logger = logger.With(slog.String("event_id", stripeEvent.ID), slog.String("event_type", string(stripeEvent.Type)))

	event, err := toPaymentEvent(stripeEvent)
	if err != nil {
		logger.Error("Failed to parse webhook event payload", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed event payload"})
		return
	}

	if err := h.paymentEvents.HandleEvent(c.Request.Context(), event); err != nil {
		// Non-2xx makes Stripe redeliver; event id dedupe keeps the retry safe.
		logger.Error("Failed to handle payment event", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Event processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// toPaymentEvent maps a verified stripe.Event onto the provider-agnostic
// domain event the services consume.
func toPaymentEvent(stripeEvent stripe.Event) (domain.PaymentEvent, error) {
	event := domain.PaymentEvent{
		EventID: stripeEvent.ID,
		Type:    domain.PaymentEventType(stripeEvent.Type),
	}

	switch event.Type {
	case domain.EventPaymentSucceeded, domain.EventPaymentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(stripeEvent.Data.Raw, &intent); err != nil {
			return domain.PaymentEvent{}, err
		}
		event.AccountID = intent.Metadata["userId"]
		if intent.LastPaymentError != nil {
			event.FailureMessage = intent.LastPaymentError.Msg
		}
		if pkgID := intent.Metadata["packageId"]; pkgID != "" {
			credits, err := decimal.NewFromString(intent.Metadata["credits"])
			if err != nil {
				return domain.PaymentEvent{}, err
			}
			event.Purchase = &domain.PurchaseDetails{PackageID: pkgID, Credits: credits}
		}

	case domain.EventSubscriptionCreated, domain.EventSubscriptionUpdated, domain.EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(stripeEvent.Data.Raw, &sub); err != nil {
			return domain.PaymentEvent{}, err
		}
		event.AccountID = sub.Metadata["userId"]
		details := &domain.SubscriptionDetails{
			StripeSubscriptionID: sub.ID,
			Status:               string(sub.Status),
			CurrentPeriodStart:   time.Unix(sub.CurrentPeriodStart, 0).UTC(),
			CurrentPeriodEnd:     time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
			CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
		}
		if sub.Customer != nil {
			details.StripeCustomerID = sub.Customer.ID
		}
		if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
			details.StripePriceID = sub.Items.Data[0].Price.ID
		}
		event.Subscription = details

	case domain.EventInvoicePaid, domain.EventInvoiceFailed:
		var invoice stripe.Invoice
		if err := json.Unmarshal(stripeEvent.Data.Raw, &invoice); err != nil {
			return domain.PaymentEvent{}, err
		}
		if invoice.Subscription != nil {
			event.InvoiceSubscriptionID = invoice.Subscription.ID
		}
	}

	return event, nil
}

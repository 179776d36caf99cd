package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/openclaw/billing/internal/core/ports/services"
	"github.com/openclaw/billing/internal/dto"
	"github.com/openclaw/billing/internal/middleware"
)

// subscriptionHandler handles HTTP requests for subscription state.
type subscriptionHandler struct {
	paymentEvents portssvc.PaymentEventSvcFacade
}

// RegisterSubscriptionRoutes registers routes related to subscriptions.
func RegisterSubscriptionRoutes(rg *gin.RouterGroup, sc *portssvc.ServiceContainer) {
	h := &subscriptionHandler{paymentEvents: sc.PaymentEvents}
	rg.GET("/subscription", h.getSubscription)
}

// getSubscription godoc
// @Summary Get subscription state
// @Description Returns the logged-in account's subscription tier and status. Accounts that never subscribed are on the free tier.
// @Tags subscription
// @Produce  json
// @Success 200 {object} dto.SubscriptionResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to retrieve subscription"
// @Security BearerAuth
// @Router /subscription [get]
func (h *subscriptionHandler) getSubscription(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Account ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	sub, err := h.paymentEvents.GetSubscription(c.Request.Context(), accountID)
	if err != nil {
		logger.Error("Failed to get subscription", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve subscription"})
		return
	}

	c.JSON(http.StatusOK, dto.ToSubscriptionResponse(&sub))
}

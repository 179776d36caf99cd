package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openclaw/billing/internal/apperrors"
	"github.com/openclaw/billing/internal/core/domain"
	portssvc "github.com/openclaw/billing/internal/core/ports/services"
	"github.com/openclaw/billing/internal/dto"
	"github.com/openclaw/billing/internal/middleware"
)

// creditsHandler handles HTTP requests for balances, history, purchases and
// usage tracking.
type creditsHandler struct {
	ledgerService   portssvc.LedgerSvcFacade
	meteringService portssvc.MeteringSvcFacade
	purchaseService portssvc.PurchaseSvcFacade
}

// newCreditsHandler creates a new creditsHandler.
func newCreditsHandler(sc *portssvc.ServiceContainer) *creditsHandler {
	return &creditsHandler{
		ledgerService:   sc.Ledger,
		meteringService: sc.Metering,
		purchaseService: sc.Purchase,
	}
}

// RegisterCreditsRoutes registers routes related to the credit ledger.
func RegisterCreditsRoutes(rg *gin.RouterGroup, sc *portssvc.ServiceContainer) {
	h := newCreditsHandler(sc)

	credits := rg.Group("/credits")
	{
		credits.GET("/balance", h.getBalance)
		credits.GET("/history", h.getHistory)
		credits.GET("/packages", h.listPackages)
		credits.POST("/purchase", h.purchaseCredits)
		credits.GET("/reconcile", h.reconcile)
		credits.GET("/stats", h.getStats)
	}
	usage := rg.Group("/usage")
	{
		usage.POST("/track", h.trackUsage)
	}
}

// getBalance godoc
// @Summary Get credit balance
// @Description Returns the current credit balance for the logged-in account. Accounts without ledger activity read as zero.
// @Tags credits
// @Produce  json
// @Success 200 {object} dto.BalanceResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to retrieve balance"
// @Security BearerAuth
// @Router /credits/balance [get]
func (h *creditsHandler) getBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Account ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	balance, err := h.ledgerService.GetBalance(c.Request.Context(), accountID)
	if err != nil {
		logger.Error("Failed to get balance", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve balance"})
		return
	}

	c.JSON(http.StatusOK, dto.ToBalanceResponse(&balance))
}

// getHistory godoc
// @Summary List credit transactions
// @Description Returns the account's ledger transactions, newest first.
// @Tags credits
// @Produce  json
// @Param   limit query int false "Page size (default 50, max 1000)"
// @Param   offset query int false "Rows to skip (default 0)"
// @Success 200 {object} dto.HistoryResponse
// @Failure 400 {object} map[string]string "Invalid pagination parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to retrieve history"
// @Security BearerAuth
// @Router /credits/history [get]
func (h *creditsHandler) getHistory(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Account ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var params dto.ListHistoryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for GetHistory", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pagination parameters: " + err.Error()})
		return
	}

	txns, err := h.ledgerService.GetHistory(c.Request.Context(), accountID, params.Limit, params.Offset)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error("Failed to get history", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve history"})
		return
	}

	c.JSON(http.StatusOK, dto.HistoryResponse{
		Transactions: dto.ToTransactionResponses(txns),
		Limit:        params.Limit,
		Offset:       params.Offset,
	})
}

// listPackages godoc
// @Summary List credit packages
// @Description Returns the purchasable credit package catalog.
// @Tags credits
// @Produce  json
// @Success 200 {array} dto.PackageResponse
// @Security BearerAuth
// @Router /credits/packages [get]
func (h *creditsHandler) listPackages(c *gin.Context) {
	pkgs := h.purchaseService.ListPackages(c.Request.Context())
	c.JSON(http.StatusOK, dto.ToListPackageResponse(pkgs))
}

// purchaseCredits godoc
// @Summary Start a credit purchase
// @Description Creates a payment intent for the chosen package. Credits are granted when the provider confirms payment via webhook.
// @Tags credits
// @Accept  json
// @Produce  json
// @Param   purchase body dto.PurchaseRequest true "Purchase details"
// @Success 200 {object} dto.PurchaseResponse
// @Failure 400 {object} map[string]string "Invalid input or unknown package"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to initiate purchase"
// @Security BearerAuth
// @Router /credits/purchase [post]
func (h *creditsHandler) purchaseCredits(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Account ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req dto.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for PurchaseCredits", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	email := middleware.GetUserEmailFromContext(c)
	intent, err := h.purchaseService.InitiatePurchase(c.Request.Context(), accountID, email, req.PackageID, req.PaymentMethodRef)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnknownPackage) {
			logger.Warn("Unknown package requested", slog.String("package_id", req.PackageID))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error("Failed to initiate purchase", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to initiate purchase"})
		return
	}

	logger.Info("Purchase initiated", slog.String("package_id", req.PackageID))
	c.JSON(http.StatusOK, dto.ToPurchaseResponse(intent))
}

// reconcile godoc
// @Summary Reconcile the account ledger
// @Description Recomputes the balance from the transaction log and compares it with the stored balance.
// @Tags credits
// @Produce  json
// @Success 200 {object} dto.ReconciliationResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to reconcile"
// @Security BearerAuth
// @Router /credits/reconcile [get]
func (h *creditsHandler) reconcile(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Account ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, err := h.ledgerService.Reconcile(c.Request.Context(), accountID)
	if err != nil {
		logger.Error("Failed to reconcile ledger", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reconcile"})
		return
	}

	c.JSON(http.StatusOK, dto.ToReconciliationResponse(result))
}

// getStats godoc
// @Summary Aggregate sales stats
// @Description Returns the total credits sold across all accounts.
// @Tags credits
// @Produce  json
// @Success 200 {object} dto.StatsResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to compute stats"
// @Security BearerAuth
// @Router /credits/stats [get]
func (h *creditsHandler) getStats(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	total, err := h.ledgerService.TotalCreditsSold(c.Request.Context())
	if err != nil {
		logger.Error("Failed to compute total credits sold", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}

	c.JSON(http.StatusOK, dto.StatsResponse{TotalCreditsSold: total})
}

// trackUsage godoc
// @Summary Record resource usage
// @Description Debits the account for a metered resource. The consuming action must not proceed when this returns 402.
// @Tags usage
// @Accept  json
// @Produce  json
// @Param   usage body dto.TrackUsageRequest true "Usage details"
// @Success 200 {object} dto.TrackUsageResponse
// @Failure 400 {object} map[string]string "Invalid input, unknown resource type, or non-positive quantity"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 402 {object} map[string]string "Insufficient credits"
// @Failure 500 {object} map[string]string "Failed to record usage"
// @Security BearerAuth
// @Router /usage/track [post]
func (h *creditsHandler) trackUsage(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Account ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req dto.TrackUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for TrackUsage", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	result, err := h.meteringService.RecordUsage(
		c.Request.Context(),
		accountID,
		domain.ResourceType(req.ResourceType),
		req.Quantity,
		req.Context,
		req.IdempotencyKey,
	)
	if err != nil {
		var insufficientErr *apperrors.InsufficientBalanceError
		switch {
		case errors.As(err, &insufficientErr):
			logger.Warn("Insufficient credits for usage",
				slog.String("resource_type", req.ResourceType),
				slog.String("shortfall", insufficientErr.Shortfall().String()),
			)
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error":         "Insufficient credits",
				"creditsNeeded": insufficientErr.Shortfall(),
			})
		case errors.Is(err, apperrors.ErrUnknownResource), errors.Is(err, apperrors.ErrInvalidAmount):
			logger.Warn("Invalid usage request", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			logger.Error("Failed to record usage", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record usage"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToTrackUsageResponse(result))
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"order-lifecycle-service/internal/models"
	"order-lifecycle-service/internal/services"
)

// WalletHandler handles HTTP requests for customer wallets
type WalletHandler struct {
	walletService services.WalletService
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(walletService services.WalletService) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

// walletCustomerID resolves which customer's wallet the request targets.
// Customers always target their own; admins pass ?customerId=.
func walletCustomerID(c *gin.Context, actor models.Actor) (uuid.UUID, bool) {
	if customerIDStr := c.Query("customerId"); customerIDStr != "" {
		id, err := uuid.Parse(customerIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid customer ID", Message: err.Error()})
			return uuid.Nil, false
		}
		return id, true
	}
	return actor.ID, true
}

// GetWallet returns the wallet balance
// @Summary Get wallet
// @Description Get the customer's wallet. Admins may pass customerId to inspect any wallet.
// @Tags wallet
// @Produce json
// @Param customerId query string false "Customer ID (admin only)"
// @Success 200 {object} models.Wallet
// @Failure 403 {object} ErrorResponse
// @Router /wallet [get]
func (h *WalletHandler) GetWallet(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	customerID, ok := walletCustomerID(c, actor)
	if !ok {
		return
	}

	wallet, err := h.walletService.GetWallet(customerID, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wallet)
}

// ListTransactions returns the wallet ledger
// @Summary List wallet transactions
// @Tags wallet
// @Produce json
// @Param customerId query string false "Customer ID (admin only)"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} services.WalletTransactionsResponse
// @Router /wallet/transactions [get]
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	customerID, ok := walletCustomerID(c, actor)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	resp, err := h.walletService.ListTransactions(customerID, page, limit, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AdjustWalletPayload wraps the adjustment with its target customer
type AdjustWalletPayload struct {
	CustomerID uuid.UUID `json:"customerId" binding:"required"`
	services.AdjustWalletRequest
}

// Adjust applies a manual admin correction to a wallet
// @Summary Adjust a wallet balance
// @Description Admin-only manual credit or debit with a mandatory reason
// @Tags wallet
// @Accept json
// @Produce json
// @Param adjustment body AdjustWalletPayload true "Adjustment"
// @Success 200 {object} models.Wallet
// @Failure 403 {object} ErrorResponse
// @Router /wallet/adjust [post]
func (h *WalletHandler) Adjust(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var payload AdjustWalletPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Message: err.Error()})
		return
	}

	wallet, err := h.walletService.Adjust(payload.CustomerID, payload.AdjustWalletRequest, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wallet)
}

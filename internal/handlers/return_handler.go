package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"order-lifecycle-service/internal/models"
	"order-lifecycle-service/internal/services"
)

// ReturnHandler handles HTTP requests for the return workflow
type ReturnHandler struct {
	returnService services.ReturnService
}

// NewReturnHandler creates a new return handler
func NewReturnHandler(returnService services.ReturnService) *ReturnHandler {
	return &ReturnHandler{returnService: returnService}
}

// CreateReturn opens a return request
// @Summary Request a return
// @Description Open a return against a delivered order line item, within the return window
// @Tags returns
// @Accept json
// @Produce json
// @Param return body services.CreateReturnRequest true "Return request"
// @Success 201 {object} models.ReturnRequest
// @Failure 422 {object} ErrorResponse
// @Router /returns [post]
func (h *ReturnHandler) CreateReturn(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req services.CreateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Message: err.Error()})
		return
	}

	ret, err := h.returnService.CreateReturn(req, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ret)
}

// GetReturn retrieves a return request with its timeline
// @Summary Get return by ID
// @Tags returns
// @Produce json
// @Param id path string true "Return ID"
// @Success 200 {object} models.ReturnRequest
// @Failure 404 {object} ErrorResponse
// @Router /returns/{id} [get]
func (h *ReturnHandler) GetReturn(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid return ID", Message: err.Error()})
		return
	}

	ret, err := h.returnService.GetReturn(id, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ret)
}

// ListReturns lists return requests scoped to the caller's role
// @Summary List returns
// @Tags returns
// @Produce json
// @Param orderId query string false "Filter by order ID"
// @Param status query string false "Filter by status"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} services.ReturnListResponse
// @Router /returns [get]
func (h *ReturnHandler) ListReturns(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	filters := services.ReturnListFilters{}
	if orderIDStr := c.Query("orderId"); orderIDStr != "" {
		orderID, err := uuid.Parse(orderIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid order ID", Message: err.Error()})
			return
		}
		filters.OrderID = &orderID
	}
	if statusStr := c.Query("status"); statusStr != "" {
		status := models.ReturnStatus(statusStr)
		filters.Status = &status
	}
	filters.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filters.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))

	resp, err := h.returnService.ListReturns(filters, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// BeginReview moves a return into review
// @Summary Begin review of a return
// @Tags returns
// @Produce json
// @Param id path string true "Return ID"
// @Success 200 {object} models.ReturnRequest
// @Failure 409 {object} ErrorResponse
// @Router /returns/{id}/review [post]
func (h *ReturnHandler) BeginReview(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid return ID", Message: err.Error()})
		return
	}

	ret, err := h.returnService.BeginReview(id, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ret)
}

// SellerRespond records the seller's approve/reject decision
// @Summary Seller decision on a return
// @Tags returns
// @Accept json
// @Produce json
// @Param id path string true "Return ID"
// @Param decision body services.SellerResponseRequest true "Decision"
// @Success 200 {object} models.ReturnRequest
// @Failure 409 {object} ErrorResponse
// @Router /returns/{id}/respond [post]
func (h *ReturnHandler) SellerRespond(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid return ID", Message: err.Error()})
		return
	}

	var req services.SellerResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Message: err.Error()})
		return
	}

	ret, err := h.returnService.SellerRespond(id, req, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ret)
}

// ShipBack records the customer shipping the item back
// @Summary Mark return item shipped back
// @Tags returns
// @Accept json
// @Produce json
// @Param id path string true "Return ID"
// @Param shipment body services.ShipBackRequest true "Ship-back tracking"
// @Success 200 {object} models.ReturnRequest
// @Failure 409 {object} ErrorResponse
// @Router /returns/{id}/ship-back [post]
func (h *ReturnHandler) ShipBack(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid return ID", Message: err.Error()})
		return
	}

	var req services.ShipBackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Message: err.Error()})
		return
	}

	ret, err := h.returnService.MarkItemShipped(id, req, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ret)
}

// ConfirmReceived records the seller receiving the returned item
// @Summary Confirm returned item received
// @Tags returns
// @Produce json
// @Param id path string true "Return ID"
// @Success 200 {object} models.ReturnRequest
// @Failure 409 {object} ErrorResponse
// @Router /returns/{id}/received [post]
func (h *ReturnHandler) ConfirmReceived(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid return ID", Message: err.Error()})
		return
	}

	ret, err := h.returnService.ConfirmItemReceived(id, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ret)
}

// AdminOverride forces a return decision
// @Summary Admin override of a return decision
// @Description Force the return to approved or rejected, including out of REJECTED
// @Tags returns
// @Accept json
// @Produce json
// @Param id path string true "Return ID"
// @Param decision body services.AdminOverrideRequest true "Override decision"
// @Success 200 {object} models.ReturnRequest
// @Failure 403 {object} ErrorResponse
// @Router /returns/{id}/override [post]
func (h *ReturnHandler) AdminOverride(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid return ID", Message: err.Error()})
		return
	}

	var req services.AdminOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Message: err.Error()})
		return
	}

	ret, err := h.returnService.AdminOverride(id, req, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ret)
}

// CheckEligibility reports whether an order can still take a return
// @Summary Check return eligibility for an order
// @Tags returns
// @Produce json
// @Param orderId path string true "Order ID"
// @Success 200 {object} services.ReturnEligibilityResponse
// @Failure 404 {object} ErrorResponse
// @Router /returns/eligibility/{orderId} [get]
func (h *ReturnHandler) CheckEligibility(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid order ID", Message: err.Error()})
		return
	}

	resp, err := h.returnService.CheckEligibility(orderID, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ProcessRefund issues the wallet refund and closes the return
// @Summary Issue the refund for a received return
// @Tags returns
// @Produce json
// @Param id path string true "Return ID"
// @Success 200 {object} services.ProcessRefundResponse
// @Failure 409 {object} ErrorResponse
// @Router /returns/{id}/refund [post]
func (h *ReturnHandler) ProcessRefund(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid return ID", Message: err.Error()})
		return
	}

	resp, err := h.returnService.ProcessRefund(id, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

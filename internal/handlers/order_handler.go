package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"order-lifecycle-service/internal/models"
	"order-lifecycle-service/internal/services"
)

// OrderHandler handles HTTP requests for orders
type OrderHandler struct {
	orderService        services.OrderService
	cancellationService services.CancellationService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService services.OrderService, cancellationService services.CancellationService) *OrderHandler {
	return &OrderHandler{
		orderService:        orderService,
		cancellationService: cancellationService,
	}
}

// CreateOrder creates a new order
// @Summary Create a new order
// @Description Create a new order with line items and a shipping address
// @Tags orders
// @Accept json
// @Produce json
// @Param order body services.CreateOrderRequest true "Order creation request"
// @Success 201 {object} models.Order
// @Failure 400 {object} ErrorResponse
// @Router /orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Message: err.Error()})
		return
	}

	// Customers only order for themselves
	if actor.Role == models.RoleCustomer {
		req.CustomerID = actor.ID
	}

	order, err := h.orderService.CreateOrder(req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// GetOrder retrieves an order by ID
// @Summary Get order by ID
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} models.Order
// @Failure 404 {object} ErrorResponse
// @Router /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid order ID", Message: err.Error()})
		return
	}

	order, err := h.orderService.GetOrder(id, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// GetOrderByNumber retrieves an order by its human-readable number
// @Summary Get order by order number
// @Tags orders
// @Produce json
// @Param orderNumber path string true "Order number"
// @Success 200 {object} models.Order
// @Failure 404 {object} ErrorResponse
// @Router /orders/number/{orderNumber} [get]
func (h *OrderHandler) GetOrderByNumber(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	order, err := h.orderService.GetOrderByNumber(c.Param("orderNumber"), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// ListOrders lists orders scoped to the caller's role
// @Summary List orders
// @Description Customers see their own orders, sellers orders containing their items, admins everything
// @Tags orders
// @Produce json
// @Param status query string false "Filter by status"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} services.OrderListResponse
// @Router /orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	filters := services.OrderListFilters{}
	if statusStr := c.Query("status"); statusStr != "" {
		status := models.OrderStatus(statusStr)
		filters.Status = &status
	}
	filters.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filters.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))

	resp, err := h.orderService.ListOrders(filters, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateStatusRequest is the payload for a status transition
type UpdateStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// UpdateOrderStatus drives a forward status transition
// @Summary Update order status
// @Description Move the order along its lifecycle. Shipping and cancelling have dedicated endpoints.
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param status body UpdateStatusRequest true "Target status"
// @Success 200 {object} models.Order
// @Failure 409 {object} ErrorResponse
// @Router /orders/{id}/status [patch]
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid order ID", Message: err.Error()})
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Message: err.Error()})
		return
	}

	order, err := h.orderService.UpdateOrderStatus(id, req.Status, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// ShipOrder marks an order shipped with courier details
// @Summary Mark order shipped
// @Description Attach courier and tracking and move the order to SHIPPED
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param shipment body services.ShipOrderRequest true "Courier details"
// @Success 200 {object} models.Order
// @Failure 409 {object} ErrorResponse
// @Router /orders/{id}/ship [post]
func (h *OrderHandler) ShipOrder(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid order ID", Message: err.Error()})
		return
	}

	var req services.ShipOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Message: err.Error()})
		return
	}

	order, err := h.orderService.MarkShipped(id, req, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// CancelOrder cancels an order and refunds paid amounts to the wallet
// @Summary Cancel an order
// @Description Cancel a pre-shipment order. Paid orders are refunded to the customer wallet.
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param cancellation body services.CancelOrderRequest true "Cancellation reason"
// @Success 200 {object} services.CancelOrderResponse
// @Failure 409 {object} ErrorResponse
// @Router /orders/{id}/cancel [post]
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid order ID", Message: err.Error()})
		return
	}

	var req services.CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Message: err.Error()})
		return
	}

	resp, err := h.cancellationService.CancelOrder(id, req, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetCancellation returns the cancellation record for an order
// @Summary Get cancellation details
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} models.CancellationLog
// @Failure 404 {object} ErrorResponse
// @Router /orders/{id}/cancellation [get]
func (h *OrderHandler) GetCancellation(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid order ID", Message: err.Error()})
		return
	}

	log, err := h.cancellationService.GetCancellation(id, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, log)
}

// GetValidTransitions lists the statuses an order may move to next
// @Summary Get valid status transitions
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} services.ValidTransitionsResponse
// @Router /orders/{id}/valid-transitions [get]
func (h *OrderHandler) GetValidTransitions(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid order ID", Message: err.Error()})
		return
	}

	resp, err := h.orderService.GetValidStatusTransitions(id, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetCancellationReasons lists the reason codes available to the caller
// @Summary List cancellation reasons for the caller's role
// @Tags orders
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /cancellation-reasons [get]
func (h *OrderHandler) GetCancellationReasons(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"role":    actor.Role,
		"reasons": h.cancellationService.ReasonsForRole(actor.Role),
	})
}

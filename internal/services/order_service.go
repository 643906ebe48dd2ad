package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"order-lifecycle-service/internal/events"
	"order-lifecycle-service/internal/models"
	"order-lifecycle-service/internal/repository"
)

// OrderService defines the business logic interface for order lifecycle
// operations. Cancellation has its own orchestrator (CancellationService)
// because it spans the wallet ledger.
type OrderService interface {
	CreateOrder(req CreateOrderRequest) (*models.Order, error)
	GetOrder(id uuid.UUID, actor models.Actor) (*models.Order, error)
	GetOrderByNumber(orderNumber string, actor models.Actor) (*models.Order, error)
	ListOrders(filters OrderListFilters, actor models.Actor) (*OrderListResponse, error)
	UpdateOrderStatus(id uuid.UUID, next models.OrderStatus, actor models.Actor) (*models.Order, error)
	MarkShipped(id uuid.UUID, req ShipOrderRequest, actor models.Actor) (*models.Order, error)
	GetValidStatusTransitions(id uuid.UUID, actor models.Actor) (*ValidTransitionsResponse, error)
}

// CreateOrderRequest is the payload for creating an order at checkout
type CreateOrderRequest struct {
	CustomerID    uuid.UUID                `json:"customerId" binding:"required"`
	PaymentMethod models.PaymentMethod     `json:"paymentMethod" binding:"required"`
	PaymentStatus models.PaymentStatus     `json:"paymentStatus"`
	Items         []CreateOrderItemRequest `json:"items" binding:"required,min=1"`
	Street        string                   `json:"street" binding:"required"`
	City          string                   `json:"city" binding:"required"`
	Province      string                   `json:"province"`
	PostalCode    string                   `json:"postalCode"`
	Phone         string                   `json:"phone"`
}

// CreateOrderItemRequest is one line item of a new order
type CreateOrderItemRequest struct {
	SellerID    uuid.UUID `json:"sellerId" binding:"required"`
	ProductID   uuid.UUID `json:"productId" binding:"required"`
	ProductName string    `json:"productName" binding:"required"`
	Quantity    int       `json:"quantity" binding:"required,min=1"`
	UnitPrice   float64   `json:"unitPrice" binding:"required,min=0"`
}

// ShipOrderRequest carries the courier details required to mark an order
// shipped
type ShipOrderRequest struct {
	CourierName models.CourierName `json:"courierName" binding:"required"`
	TrackingID  string             `json:"trackingId" binding:"required"`
}

// OrderListFilters represents query filters for listing orders
type OrderListFilters struct {
	Status *models.OrderStatus
	Page   int
	Limit  int
}

// OrderListResponse is a paginated order list
type OrderListResponse struct {
	Orders     []models.Order `json:"orders"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"totalPages"`
}

// ValidTransitionsResponse lists the statuses an order can move to next
type ValidTransitionsResponse struct {
	CurrentStatus    models.OrderStatus   `json:"currentStatus"`
	ValidTransitions []models.OrderStatus `json:"validTransitions"`
	IsTerminal       bool                 `json:"isTerminal"`
}

type orderService struct {
	orderRepo repository.OrderRepository
	publisher events.Publisher
}

// NewOrderService creates a new order service
func NewOrderService(orderRepo repository.OrderRepository, publisher events.Publisher) OrderService {
	return &orderService{orderRepo: orderRepo, publisher: publisher}
}

func (s *orderService) CreateOrder(req CreateOrderRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, &models.ValidationError{Field: "items", Message: "order must have at least one item"}
	}

	paymentStatus := req.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = models.PaymentStatusUnpaid
	}
	if req.PaymentMethod == models.PaymentMethodCOD && paymentStatus == models.PaymentStatusPaid {
		return nil, &models.ValidationError{Field: "paymentStatus", Message: "cash on delivery orders start unpaid"}
	}

	var total float64
	items := make([]models.OrderItem, 0, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &models.ValidationError{Field: fmt.Sprintf("items[%d].quantity", i), Message: "quantity must be positive"}
		}
		if item.UnitPrice < 0 {
			return nil, &models.ValidationError{Field: fmt.Sprintf("items[%d].unitPrice", i), Message: "unit price cannot be negative"}
		}
		total += item.UnitPrice * float64(item.Quantity)
		items = append(items, models.OrderItem{
			SellerID:    item.SellerID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}

	order := &models.Order{
		CustomerID:    req.CustomerID,
		Status:        models.OrderStatusPending,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: paymentStatus,
		Total:         total,
		Street:        req.Street,
		City:          req.City,
		Province:      req.Province,
		PostalCode:    req.PostalCode,
		Phone:         req.Phone,
		Items:         items,
	}

	if err := s.orderRepo.Create(order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) GetOrder(id uuid.UUID, actor models.Actor) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(order, actor); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) GetOrderByNumber(orderNumber string, actor models.Actor) (*models.Order, error) {
	order, err := s.orderRepo.GetByOrderNumber(orderNumber)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(order, actor); err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders returns orders scoped to the actor: customers see their own,
// sellers see orders containing their items, admins see everything.
func (s *orderService) ListOrders(filters OrderListFilters, actor models.Actor) (*OrderListResponse, error) {
	repoFilters := repository.OrderFilters{
		Status: filters.Status,
		Page:   filters.Page,
		Limit:  filters.Limit,
	}
	if repoFilters.Limit <= 0 {
		repoFilters.Limit = 20
	}
	if repoFilters.Page <= 0 {
		repoFilters.Page = 1
	}

	switch actor.Role {
	case models.RoleCustomer:
		id := actor.ID
		repoFilters.CustomerID = &id
	case models.RoleSeller:
		id := actor.ID
		repoFilters.SellerID = &id
	case models.RoleAdmin, models.RoleSupport:
		// unscoped
	default:
		return nil, &models.UnauthorizedError{Role: actor.Role, Action: "list orders"}
	}

	orders, total, err := s.orderRepo.List(repoFilters)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(repoFilters.Limit) - 1) / int64(repoFilters.Limit))
	return &OrderListResponse{
		Orders:     orders,
		Total:      total,
		Page:       repoFilters.Page,
		Limit:      repoFilters.Limit,
		TotalPages: totalPages,
	}, nil
}

// UpdateOrderStatus drives a single forward transition. Shipping must go
// through MarkShipped so tracking details land atomically with the status.
func (s *orderService) UpdateOrderStatus(id uuid.UUID, next models.OrderStatus, actor models.Actor) (*models.Order, error) {
	if next == models.OrderStatusShipped {
		return nil, &models.ValidationError{Field: "status", Message: "use the ship operation to mark an order shipped"}
	}
	if next == models.OrderStatusCancelled {
		return nil, &models.ValidationError{Field: "status", Message: "use the cancel operation to cancel an order"}
	}

	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeTransition(order, next, actor); err != nil {
		return nil, err
	}
	if err := models.ValidateOrderStatusTransition(order.Status, next); err != nil {
		return nil, err
	}

	extras := map[string]interface{}{}
	if next == models.OrderStatusDelivered {
		extras["delivered_at"] = time.Now().UTC()
	}

	previous := order.Status
	if err := s.orderRepo.UpdateStatusCAS(nil, order.ID, previous, next, extras); err != nil {
		return nil, err
	}
	s.orderRepo.InvalidateCache(order.ID, order.OrderNumber)

	updated, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	s.publisher.PublishOrderStatusChanged(updated, previous, next, actor)
	if next == models.OrderStatusDelivered {
		s.publisher.PublishOrderDelivered(updated)
	}
	return updated, nil
}

// MarkShipped transitions PROCESSING to SHIPPED with courier and tracking
// attached in the same update
func (s *orderService) MarkShipped(id uuid.UUID, req ShipOrderRequest, actor models.Actor) (*models.Order, error) {
	if !models.ValidCourier(req.CourierName) {
		return nil, &models.ValidationError{Field: "courierName", Message: fmt.Sprintf("unknown courier %q", req.CourierName)}
	}
	if req.TrackingID == "" {
		return nil, &models.ValidationError{Field: "trackingId", Message: "tracking id is required"}
	}

	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeTransition(order, models.OrderStatusShipped, actor); err != nil {
		return nil, err
	}
	if err := models.ValidateOrderStatusTransition(order.Status, models.OrderStatusShipped); err != nil {
		return nil, err
	}

	previous := order.Status
	extras := map[string]interface{}{
		"courier_name": req.CourierName,
		"tracking_id":  req.TrackingID,
	}
	if err := s.orderRepo.UpdateStatusCAS(nil, order.ID, previous, models.OrderStatusShipped, extras); err != nil {
		return nil, err
	}
	s.orderRepo.InvalidateCache(order.ID, order.OrderNumber)

	updated, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	s.publisher.PublishOrderStatusChanged(updated, previous, models.OrderStatusShipped, actor)
	s.publisher.PublishOrderShipped(updated)
	return updated, nil
}

func (s *orderService) GetValidStatusTransitions(id uuid.UUID, actor models.Actor) (*ValidTransitionsResponse, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(order, actor); err != nil {
		return nil, err
	}
	return &ValidTransitionsResponse{
		CurrentStatus:    order.Status,
		ValidTransitions: models.NextOrderStatuses(order.Status),
		IsTerminal:       models.IsTerminalOrderStatus(order.Status),
	}, nil
}

// authorizeView enforces read scoping: customers their own orders, sellers
// orders containing their items, admins and support everything.
func (s *orderService) authorizeView(order *models.Order, actor models.Actor) error {
	switch actor.Role {
	case models.RoleAdmin, models.RoleSupport:
		return nil
	case models.RoleCustomer:
		if order.CustomerID == actor.ID {
			return nil
		}
	case models.RoleSeller:
		if order.HasSeller(actor.ID) {
			return nil
		}
	}
	return &models.UnauthorizedError{Role: actor.Role, Action: "view this order"}
}

// authorizeTransition enforces role and ownership for a status change
func (s *orderService) authorizeTransition(order *models.Order, next models.OrderStatus, actor models.Actor) error {
	if !models.RoleCanTransition(actor.Role, next) {
		return &models.UnauthorizedError{Role: actor.Role, Action: fmt.Sprintf("move an order to %s", next)}
	}
	if actor.IsAdmin() {
		return nil
	}
	if actor.Role == models.RoleSeller && !order.HasSeller(actor.ID) {
		return &models.UnauthorizedError{Role: actor.Role, Action: "update an order without their items"}
	}
	if actor.Role == models.RoleCustomer && order.CustomerID != actor.ID {
		return &models.UnauthorizedError{Role: actor.Role, Action: "update another customer's order"}
	}
	return nil
}

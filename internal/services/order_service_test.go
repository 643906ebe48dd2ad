package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"order-lifecycle-service/internal/models"
	"order-lifecycle-service/internal/repository"
)

func newOrderFixture() (*MockOrderRepository, *recordingPublisher, OrderService) {
	orderRepo := new(MockOrderRepository)
	publisher := &recordingPublisher{}
	svc := NewOrderService(orderRepo, publisher)
	return orderRepo, publisher, svc
}

func processingOrder(sellerID uuid.UUID) *models.Order {
	orderID := uuid.New()
	return &models.Order{
		ID:          orderID,
		OrderNumber: "ORD-1700000001-def456",
		CustomerID:  uuid.New(),
		Status:      models.OrderStatusProcessing,
		Items: []models.OrderItem{
			{ID: uuid.New(), OrderID: orderID, SellerID: sellerID, ProductName: "Lawn suit", Quantity: 1, UnitPrice: 2400},
		},
	}
}

func TestCreateOrder_ComputesTotalFromItems(t *testing.T) {
	orderRepo, _, svc := newOrderFixture()

	orderRepo.On("Create", mock.AnythingOfType("*models.Order")).Return(nil)

	order, err := svc.CreateOrder(CreateOrderRequest{
		CustomerID:    uuid.New(),
		PaymentMethod: models.PaymentMethodCard,
		PaymentStatus: models.PaymentStatusPaid,
		Street:        "12 Mall Road",
		City:          "Lahore",
		Items: []CreateOrderItemRequest{
			{SellerID: uuid.New(), ProductID: uuid.New(), ProductName: "Kurta", Quantity: 2, UnitPrice: 1500},
			{SellerID: uuid.New(), ProductID: uuid.New(), ProductName: "Sandals", Quantity: 1, UnitPrice: 2000},
		},
	})

	assert.NoError(t, err)
	assert.Equal(t, 5000.0, order.Total)
	assert.Equal(t, models.OrderStatusPending, order.Status)
}

func TestCreateOrder_CODCannotStartPaid(t *testing.T) {
	_, _, svc := newOrderFixture()

	_, err := svc.CreateOrder(CreateOrderRequest{
		CustomerID:    uuid.New(),
		PaymentMethod: models.PaymentMethodCOD,
		PaymentStatus: models.PaymentStatusPaid,
		Street:        "12 Mall Road",
		City:          "Lahore",
		Items: []CreateOrderItemRequest{
			{SellerID: uuid.New(), ProductID: uuid.New(), ProductName: "Kurta", Quantity: 1, UnitPrice: 1500},
		},
	})

	var validation *models.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestMarkShipped_AttachesCourierAndTracking(t *testing.T) {
	orderRepo, publisher, svc := newOrderFixture()

	sellerID := uuid.New()
	order := processingOrder(sellerID)
	actor := models.Actor{ID: sellerID, Role: models.RoleSeller}

	orderRepo.On("GetByID", order.ID).Return(order, nil)
	orderRepo.On("UpdateStatusCAS", mock.Anything, order.ID, models.OrderStatusProcessing, models.OrderStatusShipped,
		mock.MatchedBy(func(extras map[string]interface{}) bool {
			return extras["courier_name"] == models.CourierTCS && extras["tracking_id"] == "TCS-123"
		})).Return(nil)
	orderRepo.On("InvalidateCache", order.ID, order.OrderNumber).Return()

	_, err := svc.MarkShipped(order.ID, ShipOrderRequest{CourierName: models.CourierTCS, TrackingID: "TCS-123"}, actor)

	assert.NoError(t, err)
	assert.Equal(t, 1, publisher.shipped)
	assert.Equal(t, 1, publisher.statusChanges)
	orderRepo.AssertExpectations(t)
}

func TestMarkShipped_SecondShipmentIsRejected(t *testing.T) {
	orderRepo, publisher, svc := newOrderFixture()

	sellerID := uuid.New()
	order := processingOrder(sellerID)
	order.Status = models.OrderStatusShipped
	order.CourierName = models.CourierTCS
	order.TrackingID = "TCS-123"
	actor := models.Actor{ID: sellerID, Role: models.RoleSeller}

	orderRepo.On("GetByID", order.ID).Return(order, nil)

	_, err := svc.MarkShipped(order.ID, ShipOrderRequest{CourierName: models.CourierLeopards, TrackingID: "LEO-999"}, actor)

	assert.True(t, models.IsInvalidTransition(err))
	assert.Equal(t, 0, publisher.shipped)
}

func TestMarkShipped_UnknownCourierRejected(t *testing.T) {
	_, _, svc := newOrderFixture()

	actor := models.Actor{ID: uuid.New(), Role: models.RoleSeller}
	_, err := svc.MarkShipped(uuid.New(), ShipOrderRequest{CourierName: "FedEx", TrackingID: "X"}, actor)

	var validation *models.ValidationError
	assert.ErrorAs(t, err, &validation)
	assert.Equal(t, "courierName", validation.Field)
}

func TestMarkShipped_SellerWithoutItemsRejected(t *testing.T) {
	orderRepo, _, svc := newOrderFixture()

	order := processingOrder(uuid.New())
	otherSeller := models.Actor{ID: uuid.New(), Role: models.RoleSeller}

	orderRepo.On("GetByID", order.ID).Return(order, nil)

	_, err := svc.MarkShipped(order.ID, ShipOrderRequest{CourierName: models.CourierTCS, TrackingID: "TCS-123"}, otherSeller)

	var unauthorized *models.UnauthorizedError
	assert.ErrorAs(t, err, &unauthorized)
}

func TestUpdateOrderStatus_ShipAndCancelAreFenced(t *testing.T) {
	_, _, svc := newOrderFixture()
	actor := models.Actor{ID: uuid.New(), Role: models.RoleAdmin}

	_, err := svc.UpdateOrderStatus(uuid.New(), models.OrderStatusShipped, actor)
	var validation *models.ValidationError
	assert.ErrorAs(t, err, &validation)

	_, err = svc.UpdateOrderStatus(uuid.New(), models.OrderStatusCancelled, actor)
	assert.ErrorAs(t, err, &validation)
}

func TestUpdateOrderStatus_CustomerCannotConfirm(t *testing.T) {
	orderRepo, _, svc := newOrderFixture()

	order := processingOrder(uuid.New())
	order.Status = models.OrderStatusPending
	actor := models.Actor{ID: order.CustomerID, Role: models.RoleCustomer}

	orderRepo.On("GetByID", order.ID).Return(order, nil)

	_, err := svc.UpdateOrderStatus(order.ID, models.OrderStatusConfirmed, actor)

	var unauthorized *models.UnauthorizedError
	assert.ErrorAs(t, err, &unauthorized)
}

func TestUpdateOrderStatus_DeliveredSetsTimestamp(t *testing.T) {
	orderRepo, publisher, svc := newOrderFixture()

	sellerID := uuid.New()
	order := processingOrder(sellerID)
	order.Status = models.OrderStatusShipped
	actor := models.Actor{ID: sellerID, Role: models.RoleSeller}

	orderRepo.On("GetByID", order.ID).Return(order, nil)
	orderRepo.On("UpdateStatusCAS", mock.Anything, order.ID, models.OrderStatusShipped, models.OrderStatusDelivered,
		mock.MatchedBy(func(extras map[string]interface{}) bool {
			_, hasTimestamp := extras["delivered_at"]
			return hasTimestamp
		})).Return(nil)
	orderRepo.On("InvalidateCache", order.ID, order.OrderNumber).Return()

	_, err := svc.UpdateOrderStatus(order.ID, models.OrderStatusDelivered, actor)

	assert.NoError(t, err)
	assert.Equal(t, 1, publisher.delivered)
}

func TestListOrders_ScopesByRole(t *testing.T) {
	orderRepo, _, svc := newOrderFixture()

	customer := models.Actor{ID: uuid.New(), Role: models.RoleCustomer}
	orderRepo.On("List", mock.MatchedBy(func(f repository.OrderFilters) bool {
		return f.CustomerID != nil && *f.CustomerID == customer.ID && f.SellerID == nil
	})).Return([]models.Order{}, int64(0), nil)

	_, err := svc.ListOrders(OrderListFilters{}, customer)
	assert.NoError(t, err)

	seller := models.Actor{ID: uuid.New(), Role: models.RoleSeller}
	sellerRepo := new(MockOrderRepository)
	sellerSvc := NewOrderService(sellerRepo, &recordingPublisher{})
	sellerRepo.On("List", mock.MatchedBy(func(f repository.OrderFilters) bool {
		return f.SellerID != nil && *f.SellerID == seller.ID && f.CustomerID == nil
	})).Return([]models.Order{}, int64(0), nil)

	_, err = sellerSvc.ListOrders(OrderListFilters{}, seller)
	assert.NoError(t, err)
	orderRepo.AssertExpectations(t)
	sellerRepo.AssertExpectations(t)
}

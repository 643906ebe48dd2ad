package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"order-lifecycle-service/internal/models"
)

func newCancellationFixture() (*MockOrderRepository, *MockCancellationLogRepository, *MockWalletRepository, *recordingPublisher, CancellationService) {
	orderRepo := new(MockOrderRepository)
	logRepo := new(MockCancellationLogRepository)
	walletRepo := new(MockWalletRepository)
	publisher := &recordingPublisher{}
	svc := NewCancellationService(orderRepo, logRepo, walletRepo, stubTxRunner{}, publisher)
	return orderRepo, logRepo, walletRepo, publisher, svc
}

func pendingPaidOrder(customerID uuid.UUID, total float64) *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		OrderNumber:   "ORD-1700000000-abc123",
		CustomerID:    customerID,
		Status:        models.OrderStatusPending,
		PaymentMethod: models.PaymentMethodCard,
		PaymentStatus: models.PaymentStatusPaid,
		Total:         total,
	}
}

func TestCancelOrder_PaidOrderRefundsFullTotalToWallet(t *testing.T) {
	orderRepo, logRepo, walletRepo, publisher, svc := newCancellationFixture()

	customerID := uuid.New()
	order := pendingPaidOrder(customerID, 5000)
	actor := models.Actor{ID: customerID, Role: models.RoleCustomer}

	orderRepo.On("GetByID", order.ID).Return(order, nil)
	orderRepo.On("UpdateStatusCAS", mock.Anything, order.ID, models.OrderStatusPending, models.OrderStatusCancelled, mock.Anything).Return(nil)
	orderRepo.On("InvalidateCache", order.ID, order.OrderNumber).Return()
	walletRepo.On("Credit", mock.Anything, customerID, 5000.0, models.WalletTxnRefund, mock.Anything, "cancellation:"+order.ID.String()).
		Return(&models.Wallet{CustomerID: customerID, Balance: 5000}, nil)
	logRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.CancellationLog")).Return(nil)

	resp, err := svc.CancelOrder(order.ID, CancelOrderRequest{Reason: models.CancelReasonChangedMind}, actor)

	assert.NoError(t, err)
	assert.Equal(t, 5000.0, resp.RefundAmount)
	assert.True(t, resp.RefundProcessed)
	assert.NotNil(t, resp.WalletBalance)
	assert.Equal(t, 5000.0, *resp.WalletBalance)
	assert.Equal(t, models.CancelReasonChangedMind, resp.CancellationLog.Reason)
	assert.Equal(t, 1, publisher.cancelled)
	assert.Equal(t, 1, publisher.walletCredits)
	walletRepo.AssertExpectations(t)
	logRepo.AssertExpectations(t)
	orderRepo.AssertExpectations(t)
}

func TestCancelOrder_UnpaidOrderSkipsWallet(t *testing.T) {
	orderRepo, logRepo, walletRepo, publisher, svc := newCancellationFixture()

	customerID := uuid.New()
	order := pendingPaidOrder(customerID, 3000)
	order.PaymentMethod = models.PaymentMethodCOD
	order.PaymentStatus = models.PaymentStatusUnpaid
	actor := models.Actor{ID: customerID, Role: models.RoleCustomer}

	orderRepo.On("GetByID", order.ID).Return(order, nil)
	orderRepo.On("UpdateStatusCAS", mock.Anything, order.ID, models.OrderStatusPending, models.OrderStatusCancelled, mock.Anything).Return(nil)
	orderRepo.On("InvalidateCache", order.ID, order.OrderNumber).Return()
	logRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.CancellationLog")).Return(nil)

	resp, err := svc.CancelOrder(order.ID, CancelOrderRequest{Reason: models.CancelReasonOrderedMistake}, actor)

	assert.NoError(t, err)
	assert.Equal(t, 0.0, resp.RefundAmount)
	assert.False(t, resp.RefundProcessed)
	assert.Nil(t, resp.WalletBalance)
	assert.Equal(t, 1, publisher.cancelled)
	assert.Equal(t, 0, publisher.walletCredits)
	walletRepo.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelOrder_ShippedOrderIsRefused(t *testing.T) {
	orderRepo, _, _, _, svc := newCancellationFixture()

	customerID := uuid.New()
	order := pendingPaidOrder(customerID, 1000)
	order.Status = models.OrderStatusShipped
	actor := models.Actor{ID: customerID, Role: models.RoleCustomer}

	orderRepo.On("GetByID", order.ID).Return(order, nil)

	_, err := svc.CancelOrder(order.ID, CancelOrderRequest{Reason: models.CancelReasonChangedMind}, actor)

	var notCancellable *models.NotCancellableError
	assert.ErrorAs(t, err, &notCancellable)
	assert.Contains(t, notCancellable.Reason, "shipped")
}

func TestCancelOrder_ReasonMustMatchRole(t *testing.T) {
	orderRepo, _, _, _, svc := newCancellationFixture()

	customerID := uuid.New()
	order := pendingPaidOrder(customerID, 1000)
	actor := models.Actor{ID: customerID, Role: models.RoleCustomer}

	orderRepo.On("GetByID", order.ID).Return(order, nil)

	// OUT_OF_STOCK is a seller reason
	_, err := svc.CancelOrder(order.ID, CancelOrderRequest{Reason: models.CancelReasonOutOfStock}, actor)

	var validation *models.ValidationError
	assert.ErrorAs(t, err, &validation)
	assert.Equal(t, "reason", validation.Field)
}

func TestCancelOrder_OtherReasonRequiresText(t *testing.T) {
	orderRepo, _, _, _, svc := newCancellationFixture()

	customerID := uuid.New()
	order := pendingPaidOrder(customerID, 1000)
	actor := models.Actor{ID: customerID, Role: models.RoleCustomer}

	orderRepo.On("GetByID", order.ID).Return(order, nil)

	_, err := svc.CancelOrder(order.ID, CancelOrderRequest{Reason: models.CancelReasonOther, ReasonText: "   "}, actor)

	var validation *models.ValidationError
	assert.ErrorAs(t, err, &validation)
	assert.Equal(t, "reasonText", validation.Field)
}

func TestCancelOrder_CustomerCannotCancelOthersOrder(t *testing.T) {
	orderRepo, _, _, _, svc := newCancellationFixture()

	order := pendingPaidOrder(uuid.New(), 1000)
	stranger := models.Actor{ID: uuid.New(), Role: models.RoleCustomer}

	orderRepo.On("GetByID", order.ID).Return(order, nil)

	_, err := svc.CancelOrder(order.ID, CancelOrderRequest{Reason: models.CancelReasonChangedMind}, stranger)

	var unauthorized *models.UnauthorizedError
	assert.ErrorAs(t, err, &unauthorized)
}

func TestCancelOrder_ConcurrentCancelLosesCleanly(t *testing.T) {
	orderRepo, _, _, publisher, svc := newCancellationFixture()

	customerID := uuid.New()
	order := pendingPaidOrder(customerID, 2000)
	order.PaymentStatus = models.PaymentStatusUnpaid
	actor := models.Actor{ID: customerID, Role: models.RoleCustomer}

	orderRepo.On("GetByID", order.ID).Return(order, nil)
	orderRepo.On("UpdateStatusCAS", mock.Anything, order.ID, models.OrderStatusPending, models.OrderStatusCancelled, mock.Anything).
		Return(&models.ConcurrentModificationError{Entity: "order", Expected: string(models.OrderStatusPending)})

	_, err := svc.CancelOrder(order.ID, CancelOrderRequest{Reason: models.CancelReasonChangedMind}, actor)

	assert.True(t, models.IsConcurrentModification(err))
	assert.Equal(t, 0, publisher.cancelled)
}

func TestCancelOrder_CreditFailureAbortsTransaction(t *testing.T) {
	orderRepo, logRepo, walletRepo, publisher, svc := newCancellationFixture()

	customerID := uuid.New()
	order := pendingPaidOrder(customerID, 5000)
	actor := models.Actor{ID: customerID, Role: models.RoleCustomer}

	orderRepo.On("GetByID", order.ID).Return(order, nil)
	orderRepo.On("UpdateStatusCAS", mock.Anything, order.ID, models.OrderStatusPending, models.OrderStatusCancelled, mock.Anything).Return(nil)
	walletRepo.On("Credit", mock.Anything, customerID, 5000.0, models.WalletTxnRefund, mock.Anything, mock.Anything).
		Return(nil, &models.RefundAlreadyIssuedError{LinkedEntityID: "cancellation:" + order.ID.String()})

	_, err := svc.CancelOrder(order.ID, CancelOrderRequest{Reason: models.CancelReasonChangedMind}, actor)

	assert.True(t, models.IsRefundAlreadyIssued(err))
	assert.Equal(t, 0, publisher.cancelled)
	logRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"order-lifecycle-service/internal/models"
	"order-lifecycle-service/internal/repository"
)

// MockOrderRepository is a mock implementation of repository.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

var _ repository.OrderRepository = (*MockOrderRepository)(nil)

func (m *MockOrderRepository) Create(order *models.Order) error {
	args := m.Called(order)
	if args.Error(0) == nil && order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(id uuid.UUID) (*models.Order, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByOrderNumber(orderNumber string) (*models.Order, error) {
	args := m.Called(orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) List(filters repository.OrderFilters) ([]models.Order, int64, error) {
	args := m.Called(filters)
	return args.Get(0).([]models.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) UpdateStatusCAS(tx *gorm.DB, id uuid.UUID, expected, next models.OrderStatus, extras map[string]interface{}) error {
	args := m.Called(tx, id, expected, next, extras)
	return args.Error(0)
}

func (m *MockOrderRepository) InvalidateCache(id uuid.UUID, orderNumber string) {
	m.Called(id, orderNumber)
}

func (m *MockOrderRepository) RedisHealth(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockReturnRepository is a mock implementation of repository.ReturnRepository
type MockReturnRepository struct {
	mock.Mock
}

var _ repository.ReturnRepository = (*MockReturnRepository)(nil)

func (m *MockReturnRepository) Create(tx *gorm.DB, ret *models.ReturnRequest) error {
	args := m.Called(tx, ret)
	if args.Error(0) == nil && ret.ID == uuid.Nil {
		ret.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockReturnRepository) GetByID(id uuid.UUID) (*models.ReturnRequest, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReturnRequest), args.Error(1)
}

func (m *MockReturnRepository) GetByRMANumber(rmaNumber string) (*models.ReturnRequest, error) {
	args := m.Called(rmaNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReturnRequest), args.Error(1)
}

func (m *MockReturnRepository) List(filters repository.ReturnFilters) ([]models.ReturnRequest, int64, error) {
	args := m.Called(filters)
	return args.Get(0).([]models.ReturnRequest), args.Get(1).(int64), args.Error(2)
}

func (m *MockReturnRepository) UpdateStatusCAS(tx *gorm.DB, id uuid.UUID, expected, next models.ReturnStatus, extras map[string]interface{}) error {
	args := m.Called(tx, id, expected, next, extras)
	return args.Error(0)
}

func (m *MockReturnRepository) AddTimelineEntry(tx *gorm.DB, entry *models.ReturnTimeline) error {
	args := m.Called(tx, entry)
	return args.Error(0)
}

func (m *MockReturnRepository) HasOpenReturnForItem(orderItemID uuid.UUID) (bool, error) {
	args := m.Called(orderItemID)
	return args.Bool(0), args.Error(1)
}

// MockCancellationLogRepository is a mock implementation of
// repository.CancellationLogRepository
type MockCancellationLogRepository struct {
	mock.Mock
}

var _ repository.CancellationLogRepository = (*MockCancellationLogRepository)(nil)

func (m *MockCancellationLogRepository) Create(tx *gorm.DB, entry *models.CancellationLog) error {
	args := m.Called(tx, entry)
	return args.Error(0)
}

func (m *MockCancellationLogRepository) GetByOrderID(orderID uuid.UUID) (*models.CancellationLog, error) {
	args := m.Called(orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CancellationLog), args.Error(1)
}

func (m *MockCancellationLogRepository) ExistsForOrder(orderID uuid.UUID) (bool, error) {
	args := m.Called(orderID)
	return args.Bool(0), args.Error(1)
}

// MockWalletRepository is a mock implementation of repository.WalletRepository
type MockWalletRepository struct {
	mock.Mock
}

var _ repository.WalletRepository = (*MockWalletRepository)(nil)

func (m *MockWalletRepository) GetOrCreateByCustomer(customerID uuid.UUID) (*models.Wallet, error) {
	args := m.Called(customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletRepository) GetByCustomer(customerID uuid.UUID) (*models.Wallet, error) {
	args := m.Called(customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletRepository) Credit(tx *gorm.DB, customerID uuid.UUID, amount float64, txnType models.WalletTransactionType, reason, linkedEntityID string) (*models.Wallet, error) {
	args := m.Called(tx, customerID, amount, txnType, reason, linkedEntityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletRepository) Debit(tx *gorm.DB, customerID uuid.UUID, amount float64, txnType models.WalletTransactionType, reason, linkedEntityID string) (*models.Wallet, error) {
	args := m.Called(tx, customerID, amount, txnType, reason, linkedEntityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletRepository) ListTransactions(customerID uuid.UUID, page, limit int) ([]models.WalletTransaction, int64, error) {
	args := m.Called(customerID, page, limit)
	return args.Get(0).([]models.WalletTransaction), args.Get(1).(int64), args.Error(2)
}

// stubTxRunner runs the transaction function directly with a nil handle;
// the mock repositories ignore the tx argument anyway
type stubTxRunner struct{}

func (stubTxRunner) InTransaction(fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// recordingPublisher captures published events for assertions
type recordingPublisher struct {
	statusChanges  int
	shipped        int
	delivered      int
	cancelled      int
	returnRequests int
	decisions      int
	refunds        int
	walletCredits  int
}

func (p *recordingPublisher) PublishOrderStatusChanged(*models.Order, models.OrderStatus, models.OrderStatus, models.Actor) {
	p.statusChanges++
}
func (p *recordingPublisher) PublishOrderShipped(*models.Order)   { p.shipped++ }
func (p *recordingPublisher) PublishOrderDelivered(*models.Order) { p.delivered++ }
func (p *recordingPublisher) PublishOrderCancelled(*models.Order, *models.CancellationLog) {
	p.cancelled++
}
func (p *recordingPublisher) PublishReturnRequested(*models.ReturnRequest) { p.returnRequests++ }
func (p *recordingPublisher) PublishReturnDecision(*models.ReturnRequest, bool) {
	p.decisions++
}
func (p *recordingPublisher) PublishReturnRefunded(*models.ReturnRequest, float64) { p.refunds++ }
func (p *recordingPublisher) PublishWalletCredited(string, float64, float64, string) {
	p.walletCredits++
}
func (p *recordingPublisher) Close() {}

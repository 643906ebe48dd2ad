package repository

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"order-lifecycle-service/internal/models"
)

// CancellationLogRepository persists the one-per-order cancellation audit
// records
type CancellationLogRepository interface {
	// Create inserts the log entry; the unique index on order_id enforces
	// the at-most-one invariant at the database level.
	Create(tx *gorm.DB, entry *models.CancellationLog) error
	GetByOrderID(orderID uuid.UUID) (*models.CancellationLog, error)
	ExistsForOrder(orderID uuid.UUID) (bool, error)
}

type cancellationLogRepository struct {
	db *gorm.DB
}

// NewCancellationLogRepository creates a new cancellation log repository
func NewCancellationLogRepository(db *gorm.DB) CancellationLogRepository {
	return &cancellationLogRepository{db: db}
}

func (r *cancellationLogRepository) Create(tx *gorm.DB, entry *models.CancellationLog) error {
	db := tx
	if db == nil {
		db = r.db
	}
	if err := db.Create(entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("cancellation already logged for order %s: %w", entry.OrderID, err)
		}
		return fmt.Errorf("failed to create cancellation log: %w", err)
	}
	return nil
}

func (r *cancellationLogRepository) GetByOrderID(orderID uuid.UUID) (*models.CancellationLog, error) {
	var entry models.CancellationLog
	err := r.db.First(&entry, "order_id = ?", orderID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("no cancellation log for order %s", orderID)
		}
		return nil, fmt.Errorf("failed to get cancellation log: %w", err)
	}
	return &entry, nil
}

func (r *cancellationLogRepository) ExistsForOrder(orderID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.Model(&models.CancellationLog{}).Where("order_id = ?", orderID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check cancellation log: %w", err)
	}
	return count > 0, nil
}

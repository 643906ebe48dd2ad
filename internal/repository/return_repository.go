package repository

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"order-lifecycle-service/internal/models"
)

// ReturnRepository defines the interface for return request data
// operations. Status mutations are conditional on the expected current
// status, same as orders.
type ReturnRepository interface {
	Create(tx *gorm.DB, ret *models.ReturnRequest) error
	GetByID(id uuid.UUID) (*models.ReturnRequest, error)
	GetByRMANumber(rmaNumber string) (*models.ReturnRequest, error)
	List(filters ReturnFilters) ([]models.ReturnRequest, int64, error)
	// UpdateStatusCAS moves the return from expected to next in a single
	// conditional update, applying extras in the same statement.
	UpdateStatusCAS(tx *gorm.DB, id uuid.UUID, expected, next models.ReturnStatus, extras map[string]interface{}) error
	AddTimelineEntry(tx *gorm.DB, entry *models.ReturnTimeline) error
	HasOpenReturnForItem(orderItemID uuid.UUID) (bool, error)
}

// ReturnFilters represents filters for querying return requests
type ReturnFilters struct {
	CustomerID *uuid.UUID
	SellerID   *uuid.UUID
	OrderID    *uuid.UUID
	Status     *models.ReturnStatus
	Page       int
	Limit      int
}

type returnRepository struct {
	db *gorm.DB
}

// NewReturnRepository creates a new return repository
func NewReturnRepository(db *gorm.DB) ReturnRepository {
	return &returnRepository{db: db}
}

func (r *returnRepository) Create(tx *gorm.DB, ret *models.ReturnRequest) error {
	db := tx
	if db == nil {
		db = r.db
	}
	if err := db.Create(ret).Error; err != nil {
		return fmt.Errorf("failed to create return request: %w", err)
	}
	return nil
}

func (r *returnRepository) GetByID(id uuid.UUID) (*models.ReturnRequest, error) {
	var ret models.ReturnRequest
	err := r.db.Preload("Timeline", func(db *gorm.DB) *gorm.DB {
		return db.Order("return_timeline.created_at ASC")
	}).First(&ret, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.ErrReturnNotFound
		}
		return nil, fmt.Errorf("failed to get return request: %w", err)
	}
	return &ret, nil
}

func (r *returnRepository) GetByRMANumber(rmaNumber string) (*models.ReturnRequest, error) {
	var ret models.ReturnRequest
	err := r.db.Preload("Timeline").First(&ret, "rma_number = ?", rmaNumber).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.ErrReturnNotFound
		}
		return nil, fmt.Errorf("failed to get return request: %w", err)
	}
	return &ret, nil
}

func (r *returnRepository) List(filters ReturnFilters) ([]models.ReturnRequest, int64, error) {
	var returns []models.ReturnRequest
	var total int64

	query := r.db.Model(&models.ReturnRequest{})

	if filters.CustomerID != nil {
		query = query.Where("customer_id = ?", *filters.CustomerID)
	}
	if filters.SellerID != nil {
		query = query.Where("seller_id = ?", *filters.SellerID)
	}
	if filters.OrderID != nil {
		query = query.Where("order_id = ?", *filters.OrderID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count return requests: %w", err)
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
		if filters.Page > 0 {
			query = query.Offset((filters.Page - 1) * filters.Limit)
		}
	}

	if err := query.Order("created_at DESC").Find(&returns).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list return requests: %w", err)
	}

	return returns, total, nil
}

func (r *returnRepository) UpdateStatusCAS(tx *gorm.DB, id uuid.UUID, expected, next models.ReturnStatus, extras map[string]interface{}) error {
	db := tx
	if db == nil {
		db = r.db
	}

	updates := map[string]interface{}{"status": next}
	for k, v := range extras {
		updates[k] = v
	}

	result := db.Model(&models.ReturnRequest{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update return status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := db.Model(&models.ReturnRequest{}).Where("id = ?", id).Count(&count).Error; err == nil && count == 0 {
			return models.ErrReturnNotFound
		}
		return &models.ConcurrentModificationError{Entity: "return request", Expected: string(expected)}
	}
	return nil
}

func (r *returnRepository) AddTimelineEntry(tx *gorm.DB, entry *models.ReturnTimeline) error {
	db := tx
	if db == nil {
		db = r.db
	}
	if err := db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to add return timeline entry: %w", err)
	}
	return nil
}

// HasOpenReturnForItem reports whether a non-terminal return already exists
// for the line item
func (r *returnRepository) HasOpenReturnForItem(orderItemID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.Model(&models.ReturnRequest{}).
		Where("order_item_id = ? AND status NOT IN ?", orderItemID,
			[]models.ReturnStatus{models.ReturnStatusRejected, models.ReturnStatusRefundIssued}).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check open returns: %w", err)
	}
	return count > 0, nil
}

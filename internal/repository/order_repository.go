package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"order-lifecycle-service/internal/models"
)

// Cache TTL constants for orders
const (
	OrderCacheTTL     = 10 * time.Minute
	orderCachePrefix  = "lifecycle:orders:"
	WalletCacheTTL    = 5 * time.Minute
	walletCachePrefix = "lifecycle:wallets:"
)

// OrderRepository defines the interface for order data operations. All
// status mutations are conditional on the expected current status; callers
// get a ConcurrentModificationError when the precondition no longer holds.
type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id uuid.UUID) (*models.Order, error)
	GetByOrderNumber(orderNumber string) (*models.Order, error)
	List(filters OrderFilters) ([]models.Order, int64, error)
	// UpdateStatusCAS moves the order from expected to next in a single
	// conditional update, applying extras (e.g. courier + tracking) in the
	// same statement. Pass a nil tx to run outside a caller transaction.
	UpdateStatusCAS(tx *gorm.DB, id uuid.UUID, expected, next models.OrderStatus, extras map[string]interface{}) error
	InvalidateCache(id uuid.UUID, orderNumber string)
	RedisHealth(ctx context.Context) error
}

// OrderFilters represents filters for querying orders
type OrderFilters struct {
	CustomerID *uuid.UUID
	SellerID   *uuid.UUID
	Status     *models.OrderStatus
	Page       int
	Limit      int
}

type orderRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewOrderRepository creates a new order repository with optional Redis caching
func NewOrderRepository(db *gorm.DB, redisClient *redis.Client) OrderRepository {
	return &orderRepository{db: db, redis: redisClient}
}

func orderCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("%sorder:%s", orderCachePrefix, id.String())
}

func orderNumberCacheKey(orderNumber string) string {
	return fmt.Sprintf("%sorder:number:%s", orderCachePrefix, orderNumber)
}

// RedisHealth returns the health status of the Redis connection
func (r *orderRepository) RedisHealth(ctx context.Context) error {
	if r.redis == nil {
		return fmt.Errorf("redis not configured")
	}
	return r.redis.Ping(ctx).Err()
}

// Create creates a new order with its line items
func (r *orderRepository) Create(order *models.Order) error {
	if err := r.db.Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetByID retrieves an order by ID with line items (with caching)
func (r *orderRepository) GetByID(id uuid.UUID) (*models.Order, error) {
	ctx := context.Background()

	if r.redis != nil {
		val, err := r.redis.Get(ctx, orderCacheKey(id)).Result()
		if err == nil {
			var order models.Order
			if err := json.Unmarshal([]byte(val), &order); err == nil {
				return &order, nil
			}
		}
	}

	var order models.Order
	err := r.db.Preload("Items").First(&order, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if r.redis != nil {
		if data, marshalErr := json.Marshal(order); marshalErr == nil {
			r.redis.Set(ctx, orderCacheKey(id), data, OrderCacheTTL)
		}
	}

	return &order, nil
}

// GetByOrderNumber retrieves an order by its human-readable number
func (r *orderRepository) GetByOrderNumber(orderNumber string) (*models.Order, error) {
	ctx := context.Background()

	if r.redis != nil {
		val, err := r.redis.Get(ctx, orderNumberCacheKey(orderNumber)).Result()
		if err == nil {
			var order models.Order
			if err := json.Unmarshal([]byte(val), &order); err == nil {
				return &order, nil
			}
		}
	}

	var order models.Order
	err := r.db.Preload("Items").First(&order, "order_number = ?", orderNumber).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if r.redis != nil {
		if data, marshalErr := json.Marshal(order); marshalErr == nil {
			r.redis.Set(ctx, orderNumberCacheKey(orderNumber), data, OrderCacheTTL)
		}
	}

	return &order, nil
}

// List retrieves orders with filtering and pagination. Seller filtering
// joins through line items so sellers only see orders they fulfil.
func (r *orderRepository) List(filters OrderFilters) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	query := r.db.Model(&models.Order{})

	if filters.CustomerID != nil {
		query = query.Where("customer_id = ?", *filters.CustomerID)
	}
	if filters.SellerID != nil {
		query = query.Joins("JOIN order_items ON order_items.order_id = orders.id").
			Where("order_items.seller_id = ?", *filters.SellerID).
			Distinct("orders.*")
	}
	if filters.Status != nil {
		query = query.Where("orders.status = ?", *filters.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
		if filters.Page > 0 {
			query = query.Offset((filters.Page - 1) * filters.Limit)
		}
	}

	err := query.Preload("Items").Order("orders.created_at DESC").Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	return orders, total, nil
}

// UpdateStatusCAS performs the compare-and-swap status transition. The
// status change and any extra fields (tracking metadata, delivered_at) land
// in one UPDATE so they are never observable independently.
func (r *orderRepository) UpdateStatusCAS(tx *gorm.DB, id uuid.UUID, expected, next models.OrderStatus, extras map[string]interface{}) error {
	db := tx
	if db == nil {
		db = r.db
	}

	updates := map[string]interface{}{"status": next}
	for k, v := range extras {
		updates[k] = v
	}

	result := db.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update order status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// Distinguish a vanished order from a lost race
		var count int64
		if err := db.Model(&models.Order{}).Where("id = ?", id).Count(&count).Error; err == nil && count == 0 {
			return models.ErrOrderNotFound
		}
		return &models.ConcurrentModificationError{Entity: "order", Expected: string(expected)}
	}

	r.InvalidateCache(id, "")
	return nil
}

// InvalidateCache drops the cached copies of an order
func (r *orderRepository) InvalidateCache(id uuid.UUID, orderNumber string) {
	if r.redis == nil {
		return
	}
	ctx := context.Background()
	r.redis.Del(ctx, orderCacheKey(id))
	if orderNumber != "" {
		r.redis.Del(ctx, orderNumberCacheKey(orderNumber))
	}
}

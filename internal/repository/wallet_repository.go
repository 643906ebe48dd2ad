package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"order-lifecycle-service/internal/models"
)

// WalletRepository defines the interface for wallet and wallet ledger
// operations. Credit and Debit must run inside the caller's transaction
// when they are part of a larger unit of work.
type WalletRepository interface {
	GetOrCreateByCustomer(customerID uuid.UUID) (*models.Wallet, error)
	GetByCustomer(customerID uuid.UUID) (*models.Wallet, error)
	// Credit adds amount to the customer's wallet and appends a ledger
	// entry. linkedEntityID deduplicates credits for the same source
	// entity; a second credit for the same link fails with
	// RefundAlreadyIssuedError.
	Credit(tx *gorm.DB, customerID uuid.UUID, amount float64, txnType models.WalletTransactionType, reason, linkedEntityID string) (*models.Wallet, error)
	Debit(tx *gorm.DB, customerID uuid.UUID, amount float64, txnType models.WalletTransactionType, reason, linkedEntityID string) (*models.Wallet, error)
	ListTransactions(customerID uuid.UUID, page, limit int) ([]models.WalletTransaction, int64, error)
}

type walletRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *gorm.DB, redisClient *redis.Client) WalletRepository {
	return &walletRepository{db: db, redis: redisClient}
}

func walletCacheKey(customerID uuid.UUID) string {
	return walletCachePrefix + "customer:" + customerID.String()
}

// GetOrCreateByCustomer returns the customer's wallet, creating a
// zero-balance wallet on first use.
func (r *walletRepository) GetOrCreateByCustomer(customerID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.Where("customer_id = ?", customerID).First(&wallet).Error
	if err == nil {
		return &wallet, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	wallet = models.Wallet{CustomerID: customerID}
	if err := r.db.Create(&wallet).Error; err != nil {
		// Lost a create race; the other writer's row wins
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if err2 := r.db.Where("customer_id = ?", customerID).First(&wallet).Error; err2 == nil {
				return &wallet, nil
			}
		}
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepository) GetByCustomer(customerID uuid.UUID) (*models.Wallet, error) {
	ctx := context.Background()

	if r.redis != nil {
		cached, err := r.redis.Get(ctx, walletCacheKey(customerID)).Result()
		if err == nil {
			var wallet models.Wallet
			if json.Unmarshal([]byte(cached), &wallet) == nil {
				return &wallet, nil
			}
		}
	}

	var wallet models.Wallet
	err := r.db.Where("customer_id = ?", customerID).First(&wallet).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	if r.redis != nil {
		if data, err := json.Marshal(wallet); err == nil {
			r.redis.Set(ctx, walletCacheKey(customerID), data, WalletCacheTTL)
		}
	}

	return &wallet, nil
}

func (r *walletRepository) Credit(tx *gorm.DB, customerID uuid.UUID, amount float64, txnType models.WalletTransactionType, reason, linkedEntityID string) (*models.Wallet, error) {
	if amount <= 0 {
		return nil, &models.ValidationError{Field: "amount", Message: "credit amount must be positive"}
	}
	if linkedEntityID == "" {
		return nil, &models.ValidationError{Field: "linkedEntityId", Message: "linked entity id is required"}
	}

	db := tx
	if db == nil {
		db = r.db
	}

	wallet, err := r.lockWallet(db, customerID)
	if err != nil {
		return nil, err
	}

	balanceBefore := wallet.Balance
	wallet.Balance += amount
	if txnType == models.WalletTxnRefund {
		wallet.TotalRefunded += amount
	}

	txn := models.WalletTransaction{
		WalletID:       wallet.ID,
		Type:           txnType,
		Amount:         amount,
		BalanceBefore:  balanceBefore,
		BalanceAfter:   wallet.Balance,
		Reason:         reason,
		LinkedEntityID: linkedEntityID,
	}
	if err := db.Create(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &models.RefundAlreadyIssuedError{LinkedEntityID: linkedEntityID}
		}
		return nil, fmt.Errorf("failed to record wallet transaction: %w", err)
	}

	if err := db.Model(wallet).Updates(map[string]interface{}{
		"balance":        wallet.Balance,
		"total_refunded": wallet.TotalRefunded,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to credit wallet: %w", err)
	}

	r.invalidateCache(customerID)
	return wallet, nil
}

func (r *walletRepository) Debit(tx *gorm.DB, customerID uuid.UUID, amount float64, txnType models.WalletTransactionType, reason, linkedEntityID string) (*models.Wallet, error) {
	if amount <= 0 {
		return nil, &models.ValidationError{Field: "amount", Message: "debit amount must be positive"}
	}
	if linkedEntityID == "" {
		return nil, &models.ValidationError{Field: "linkedEntityId", Message: "linked entity id is required"}
	}

	db := tx
	if db == nil {
		db = r.db
	}

	wallet, err := r.lockWallet(db, customerID)
	if err != nil {
		return nil, err
	}

	if wallet.Balance < amount {
		return nil, &models.ValidationError{Field: "amount", Message: "insufficient wallet balance"}
	}

	balanceBefore := wallet.Balance
	wallet.Balance -= amount
	wallet.TotalSpent += amount

	txn := models.WalletTransaction{
		WalletID:       wallet.ID,
		Type:           txnType,
		Amount:         amount,
		BalanceBefore:  balanceBefore,
		BalanceAfter:   wallet.Balance,
		Reason:         reason,
		LinkedEntityID: linkedEntityID,
	}
	if err := db.Create(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &models.RefundAlreadyIssuedError{LinkedEntityID: linkedEntityID}
		}
		return nil, fmt.Errorf("failed to record wallet transaction: %w", err)
	}

	if err := db.Model(wallet).Updates(map[string]interface{}{
		"balance":     wallet.Balance,
		"total_spent": wallet.TotalSpent,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to debit wallet: %w", err)
	}

	r.invalidateCache(customerID)
	return wallet, nil
}

func (r *walletRepository) ListTransactions(customerID uuid.UUID, page, limit int) ([]models.WalletTransaction, int64, error) {
	wallet, err := r.GetByCustomer(customerID)
	if err != nil {
		return nil, 0, err
	}

	var txns []models.WalletTransaction
	var total int64

	query := r.db.Model(&models.WalletTransaction{}).Where("wallet_id = ?", wallet.ID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count wallet transactions: %w", err)
	}

	if limit > 0 {
		query = query.Limit(limit)
		if page > 0 {
			query = query.Offset((page - 1) * limit)
		}
	}

	if err := query.Order("created_at DESC").Find(&txns).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list wallet transactions: %w", err)
	}

	return txns, total, nil
}

// lockWallet fetches the wallet under a row lock, creating it first if
// the customer has never held a balance.
func (r *walletRepository) lockWallet(db *gorm.DB, customerID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("customer_id = ?", customerID).First(&wallet).Error
	if err == nil {
		return &wallet, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}

	wallet = models.Wallet{CustomerID: customerID}
	if err := db.Create(&wallet).Error; err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepository) invalidateCache(customerID uuid.UUID) {
	if r.redis == nil {
		return
	}
	r.redis.Del(context.Background(), walletCacheKey(customerID))
}

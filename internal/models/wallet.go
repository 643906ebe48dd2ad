package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WalletTransactionType represents the type of wallet transaction
type WalletTransactionType string

const (
	WalletTxnRefund     WalletTransactionType = "REFUND"     // Refund credited (cancellation or return)
	WalletTxnSpend      WalletTransactionType = "SPEND"      // Used to pay for an order
	WalletTxnAdjustment WalletTransactionType = "ADJUSTMENT" // Manual admin adjustment
)

// Wallet holds a customer's stored balance. One wallet per customer,
// lazily created with zero balance on first access. The balance is mutated
// only through transaction-logged credits, debits, and adjustments.
type Wallet struct {
	ID            uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CustomerID    uuid.UUID      `json:"customerId" gorm:"type:uuid;not null;uniqueIndex:idx_wallets_customer"`
	Balance       float64        `json:"balance" gorm:"type:decimal(12,2);not null;default:0"`
	TotalRefunded float64        `json:"totalRefunded" gorm:"type:decimal(12,2);not null;default:0"`
	TotalSpent    float64        `json:"totalSpent" gorm:"type:decimal(12,2);not null;default:0"`
	Currency      string         `json:"currency" gorm:"type:varchar(3);not null;default:'PKR'"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`

	Transactions []WalletTransaction `json:"transactions,omitempty" gorm:"foreignKey:WalletID"`
}

// WalletTransaction is the immutable record of a balance change. The
// unique (wallet_id, linked_entity_id) index is the ledger-level
// idempotence guard: a given cancellation or return can credit the wallet
// at most once.
type WalletTransaction struct {
	ID             uuid.UUID             `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	WalletID       uuid.UUID             `json:"walletId" gorm:"type:uuid;not null;index;uniqueIndex:idx_wallet_txns_linked,priority:1"`
	Type           WalletTransactionType `json:"type" gorm:"type:varchar(20);not null"`
	Amount         float64               `json:"amount" gorm:"type:decimal(12,2);not null"`
	BalanceBefore  float64               `json:"balanceBefore" gorm:"type:decimal(12,2);not null"`
	BalanceAfter   float64               `json:"balanceAfter" gorm:"type:decimal(12,2);not null"`
	Reason         string                `json:"reason" gorm:"type:text;not null"`
	LinkedEntityID string                `json:"linkedEntityId" gorm:"type:varchar(100);not null;uniqueIndex:idx_wallet_txns_linked,priority:2"`
	Metadata       datatypes.JSON        `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt      time.Time             `json:"createdAt"`
}

// TableName specifies the table name for Wallet
func (Wallet) TableName() string {
	return "wallets"
}

// TableName specifies the table name for WalletTransaction
func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}

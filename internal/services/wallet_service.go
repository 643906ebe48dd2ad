package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"order-lifecycle-service/internal/events"
	"order-lifecycle-service/internal/models"
	"order-lifecycle-service/internal/repository"
)

// WalletService defines the business logic interface for customer wallets.
// Refund credits are issued by the cancellation and return services; this
// service covers balance reads, spending, and manual adjustments.
type WalletService interface {
	GetWallet(customerID uuid.UUID, actor models.Actor) (*models.Wallet, error)
	ListTransactions(customerID uuid.UUID, page, limit int, actor models.Actor) (*WalletTransactionsResponse, error)
	// SpendForOrder debits the wallet as payment for an order
	SpendForOrder(customerID, orderID uuid.UUID, amount float64, actor models.Actor) (*models.Wallet, error)
	// Adjust applies a manual admin correction, positive or negative
	Adjust(customerID uuid.UUID, req AdjustWalletRequest, actor models.Actor) (*models.Wallet, error)
}

// AdjustWalletRequest is the payload for a manual wallet adjustment
type AdjustWalletRequest struct {
	Amount float64 `json:"amount" binding:"required"`
	Reason string  `json:"reason" binding:"required"`
}

// WalletTransactionsResponse is a paginated ledger listing
type WalletTransactionsResponse struct {
	Transactions []models.WalletTransaction `json:"transactions"`
	Total        int64                      `json:"total"`
	Page         int                        `json:"page"`
	Limit        int                        `json:"limit"`
}

type walletService struct {
	walletRepo repository.WalletRepository
	publisher  events.Publisher
}

// NewWalletService creates a new wallet service
func NewWalletService(walletRepo repository.WalletRepository, publisher events.Publisher) WalletService {
	return &walletService{walletRepo: walletRepo, publisher: publisher}
}

// GetWallet returns the customer's wallet, creating a zero-balance one on
// first access
func (s *walletService) GetWallet(customerID uuid.UUID, actor models.Actor) (*models.Wallet, error) {
	if err := authorizeWalletAccess(customerID, actor); err != nil {
		return nil, err
	}
	return s.walletRepo.GetOrCreateByCustomer(customerID)
}

func (s *walletService) ListTransactions(customerID uuid.UUID, page, limit int, actor models.Actor) (*WalletTransactionsResponse, error) {
	if err := authorizeWalletAccess(customerID, actor); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}

	txns, total, err := s.walletRepo.ListTransactions(customerID, page, limit)
	if err != nil {
		if err == models.ErrWalletNotFound {
			return &WalletTransactionsResponse{Transactions: []models.WalletTransaction{}, Page: page, Limit: limit}, nil
		}
		return nil, err
	}

	return &WalletTransactionsResponse{
		Transactions: txns,
		Total:        total,
		Page:         page,
		Limit:        limit,
	}, nil
}

func (s *walletService) SpendForOrder(customerID, orderID uuid.UUID, amount float64, actor models.Actor) (*models.Wallet, error) {
	if err := authorizeWalletAccess(customerID, actor); err != nil {
		return nil, err
	}
	return s.walletRepo.Debit(nil, customerID, amount, models.WalletTxnSpend,
		fmt.Sprintf("Payment for order %s", orderID),
		"order-payment:"+orderID.String())
}

func (s *walletService) Adjust(customerID uuid.UUID, req AdjustWalletRequest, actor models.Actor) (*models.Wallet, error) {
	if !actor.IsAdmin() {
		return nil, &models.UnauthorizedError{Role: actor.Role, Action: "adjust a wallet"}
	}
	if req.Amount == 0 {
		return nil, &models.ValidationError{Field: "amount", Message: "adjustment amount cannot be zero"}
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, &models.ValidationError{Field: "reason", Message: "a reason is required"}
	}

	// Each adjustment gets a fresh link id; adjustments are not idempotent
	// retries of some upstream entity
	linkID := "adjustment:" + uuid.New().String()

	var wallet *models.Wallet
	var err error
	if req.Amount > 0 {
		wallet, err = s.walletRepo.Credit(nil, customerID, req.Amount, models.WalletTxnAdjustment, req.Reason, linkID)
	} else {
		wallet, err = s.walletRepo.Debit(nil, customerID, -req.Amount, models.WalletTxnAdjustment, req.Reason, linkID)
	}
	if err != nil {
		return nil, err
	}

	if req.Amount > 0 {
		s.publisher.PublishWalletCredited(customerID.String(), req.Amount, wallet.Balance, req.Reason)
	}
	return wallet, nil
}

func authorizeWalletAccess(customerID uuid.UUID, actor models.Actor) error {
	switch actor.Role {
	case models.RoleAdmin, models.RoleSupport:
		return nil
	case models.RoleCustomer:
		if actor.ID == customerID {
			return nil
		}
	}
	return &models.UnauthorizedError{Role: actor.Role, Action: "access this wallet"}
}

package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"order-lifecycle-service/internal/events"
	"order-lifecycle-service/internal/models"
	"order-lifecycle-service/internal/repository"
)

// CancellationService orchestrates order cancellation: eligibility gate,
// reason validation, the atomic status flip plus audit log, and the wallet
// refund for paid orders.
type CancellationService interface {
	CancelOrder(orderID uuid.UUID, req CancelOrderRequest, actor models.Actor) (*CancelOrderResponse, error)
	GetCancellation(orderID uuid.UUID, actor models.Actor) (*models.CancellationLog, error)
	ReasonsForRole(role models.ActorRole) []models.CancellationReason
}

// CancelOrderRequest is the payload for cancelling an order
type CancelOrderRequest struct {
	Reason     models.CancellationReason `json:"reason" binding:"required"`
	ReasonText string                    `json:"reasonText"`
}

// CancelOrderResponse reports the cancelled order plus refund outcome
type CancelOrderResponse struct {
	Order           *models.Order           `json:"order"`
	CancellationLog *models.CancellationLog `json:"cancellation"`
	RefundAmount    float64                 `json:"refundAmount"`
	RefundProcessed bool                    `json:"refundProcessed"`
	WalletBalance   *float64                `json:"walletBalance,omitempty"`
}

type cancellationService struct {
	orderRepo  repository.OrderRepository
	logRepo    repository.CancellationLogRepository
	walletRepo repository.WalletRepository
	txRunner   repository.TxRunner
	publisher  events.Publisher
}

// NewCancellationService creates a new cancellation service
func NewCancellationService(
	orderRepo repository.OrderRepository,
	logRepo repository.CancellationLogRepository,
	walletRepo repository.WalletRepository,
	txRunner repository.TxRunner,
	publisher events.Publisher,
) CancellationService {
	return &cancellationService{
		orderRepo:  orderRepo,
		logRepo:    logRepo,
		walletRepo: walletRepo,
		txRunner:   txRunner,
		publisher:  publisher,
	}
}

// CancelOrder cancels an order if it has not shipped. For paid orders the
// full total is credited to the customer's wallet in the same transaction
// that flips the status, so the refund and the cancellation are never
// observable apart.
func (s *cancellationService) CancelOrder(orderID uuid.UUID, req CancelOrderRequest, actor models.Actor) (*CancelOrderResponse, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeCancel(order, actor); err != nil {
		return nil, err
	}

	if ok, reason := models.CanCancelOrder(order.Status); !ok {
		return nil, &models.NotCancellableError{Status: order.Status, Reason: reason}
	}

	if !models.ReasonInSet(actor.Role, req.Reason) {
		return nil, &models.ValidationError{Field: "reason", Message: fmt.Sprintf("reason %s is not available for role %s", req.Reason, actor.Role)}
	}
	if req.Reason == models.CancelReasonOther && strings.TrimSpace(req.ReasonText) == "" {
		return nil, &models.ValidationError{Field: "reasonText", Message: "a free-text explanation is required for reason OTHER"}
	}

	refundAmount := 0.0
	if order.IsPaid() {
		refundAmount = order.Total
	}

	log := &models.CancellationLog{
		OrderID:      order.ID,
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
		Reason:       req.Reason,
		ReasonText:   strings.TrimSpace(req.ReasonText),
		RefundAmount: refundAmount,
	}

	var walletBalance *float64
	err = s.txRunner.InTransaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.UpdateStatusCAS(tx, order.ID, order.Status, models.OrderStatusCancelled, nil); err != nil {
			return err
		}

		if order.IsPaid() {
			// A duplicate ledger link cannot happen here: a prior credit
			// implies the order is already CANCELLED, which the CAS above
			// rejects. Any Credit error aborts the transaction.
			wallet, creditErr := s.walletRepo.Credit(tx, order.CustomerID, refundAmount,
				models.WalletTxnRefund,
				fmt.Sprintf("Refund for cancelled order %s", order.OrderNumber),
				cancellationLinkID(order.ID))
			if creditErr != nil {
				return creditErr
			}
			log.RefundProcessed = true
			balance := wallet.Balance
			walletBalance = &balance
		}

		return s.logRepo.Create(tx, log)
	})
	if err != nil {
		return nil, err
	}

	s.orderRepo.InvalidateCache(order.ID, order.OrderNumber)
	updated, err := s.orderRepo.GetByID(order.ID)
	if err != nil {
		return nil, err
	}

	s.publisher.PublishOrderCancelled(updated, log)
	if log.RefundProcessed && walletBalance != nil {
		s.publisher.PublishWalletCredited(order.CustomerID.String(), refundAmount, *walletBalance, string(req.Reason))
	}

	return &CancelOrderResponse{
		Order:           updated,
		CancellationLog: log,
		RefundAmount:    refundAmount,
		RefundProcessed: log.RefundProcessed,
		WalletBalance:   walletBalance,
	}, nil
}

func (s *cancellationService) GetCancellation(orderID uuid.UUID, actor models.Actor) (*models.CancellationLog, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeCancelView(order, actor); err != nil {
		return nil, err
	}
	return s.logRepo.GetByOrderID(orderID)
}

func (s *cancellationService) ReasonsForRole(role models.ActorRole) []models.CancellationReason {
	return models.CancellationReasonsForRole(role)
}

func (s *cancellationService) authorizeCancel(order *models.Order, actor models.Actor) error {
	switch actor.Role {
	case models.RoleAdmin:
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
	return &models.UnauthorizedError{Role: actor.Role, Action: "cancel this order"}
}

func (s *cancellationService) authorizeCancelView(order *models.Order, actor models.Actor) error {
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
	return &models.UnauthorizedError{Role: actor.Role, Action: "view this cancellation"}
}

// cancellationLinkID derives the ledger idempotence key for an order
// cancellation refund
func cancellationLinkID(orderID uuid.UUID) string {
	return "cancellation:" + orderID.String()
}

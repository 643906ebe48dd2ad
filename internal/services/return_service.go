package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"order-lifecycle-service/internal/events"
	"order-lifecycle-service/internal/models"
	"order-lifecycle-service/internal/repository"
)

// ReturnService defines the business logic interface for the return and
// refund workflow
type ReturnService interface {
	CreateReturn(req CreateReturnRequest, actor models.Actor) (*models.ReturnRequest, error)
	GetReturn(id uuid.UUID, actor models.Actor) (*models.ReturnRequest, error)
	ListReturns(filters ReturnListFilters, actor models.Actor) (*ReturnListResponse, error)
	BeginReview(id uuid.UUID, actor models.Actor) (*models.ReturnRequest, error)
	SellerRespond(id uuid.UUID, req SellerResponseRequest, actor models.Actor) (*models.ReturnRequest, error)
	MarkItemShipped(id uuid.UUID, req ShipBackRequest, actor models.Actor) (*models.ReturnRequest, error)
	ConfirmItemReceived(id uuid.UUID, actor models.Actor) (*models.ReturnRequest, error)
	AdminOverride(id uuid.UUID, req AdminOverrideRequest, actor models.Actor) (*models.ReturnRequest, error)
	ProcessRefund(id uuid.UUID, actor models.Actor) (*ProcessRefundResponse, error)
	CheckEligibility(orderID uuid.UUID, actor models.Actor) (*ReturnEligibilityResponse, error)
}

// CreateReturnRequest is the payload for opening a return against one
// order line item
type CreateReturnRequest struct {
	OrderID     uuid.UUID           `json:"orderId" binding:"required"`
	OrderItemID uuid.UUID           `json:"orderItemId" binding:"required"`
	Reason      models.ReturnReason `json:"reason" binding:"required"`
	Comments    string              `json:"comments"`
	Quantity    int                 `json:"quantity" binding:"required,min=1"`
	Photos      []string            `json:"photos"`
}

// SellerResponseRequest is the seller's approve/reject decision
type SellerResponseRequest struct {
	Approve  bool   `json:"approve"`
	Response string `json:"response" binding:"required"`
	// RefundAmount lets the seller grant a partial refund on approval; zero
	// keeps the requested amount
	RefundAmount float64 `json:"refundAmount"`
}

// ShipBackRequest carries the ship-back tracking reference
type ShipBackRequest struct {
	ReturnTrackingID string `json:"returnTrackingId" binding:"required"`
}

// AdminOverrideRequest forces a return to approved or rejected
type AdminOverrideRequest struct {
	Approve  bool   `json:"approve"`
	Decision string `json:"decision" binding:"required"`
}

// ProcessRefundResponse reports the refund credit outcome. AlreadyIssued
// marks a repeat call that found the refund in place; the wallet was not
// touched again.
type ProcessRefundResponse struct {
	Return        *models.ReturnRequest `json:"return"`
	RefundAmount  float64               `json:"refundAmount"`
	WalletBalance float64               `json:"walletBalance"`
	AlreadyIssued bool                  `json:"alreadyIssued"`
}

// ReturnEligibilityResponse reports whether an order can still take a
// return request
type ReturnEligibilityResponse struct {
	OrderID    uuid.UUID  `json:"orderId"`
	Eligible   bool       `json:"eligible"`
	Reason     string     `json:"reason,omitempty"`
	WindowDays int        `json:"windowDays"`
	Deadline   *time.Time `json:"deadline,omitempty"`
}

// ReturnListFilters represents query filters for listing returns
type ReturnListFilters struct {
	OrderID *uuid.UUID
	Status  *models.ReturnStatus
	Page    int
	Limit   int
}

// ReturnListResponse is a paginated return list
type ReturnListResponse struct {
	Returns    []models.ReturnRequest `json:"returns"`
	Total      int64                  `json:"total"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
	TotalPages int                    `json:"totalPages"`
}

type returnService struct {
	returnRepo       repository.ReturnRepository
	orderRepo        repository.OrderRepository
	walletRepo       repository.WalletRepository
	txRunner         repository.TxRunner
	publisher        events.Publisher
	returnWindowDays int
}

// NewReturnService creates a new return service
func NewReturnService(
	returnRepo repository.ReturnRepository,
	orderRepo repository.OrderRepository,
	walletRepo repository.WalletRepository,
	txRunner repository.TxRunner,
	publisher events.Publisher,
	returnWindowDays int,
) ReturnService {
	return &returnService{
		returnRepo:       returnRepo,
		orderRepo:        orderRepo,
		walletRepo:       walletRepo,
		txRunner:         txRunner,
		publisher:        publisher,
		returnWindowDays: returnWindowDays,
	}
}

// CreateReturn opens a return for a delivered order line item. The window
// is measured from the order's delivery timestamp.
func (s *returnService) CreateReturn(req CreateReturnRequest, actor models.Actor) (*models.ReturnRequest, error) {
	if actor.Role != models.RoleCustomer && !actor.IsAdmin() {
		return nil, &models.UnauthorizedError{Role: actor.Role, Action: "request a return"}
	}
	if !models.ValidReturnReason(req.Reason) {
		return nil, &models.ValidationError{Field: "reason", Message: fmt.Sprintf("unknown return reason %q", req.Reason)}
	}
	if req.Reason == models.ReturnReasonOther && strings.TrimSpace(req.Comments) == "" {
		return nil, &models.ValidationError{Field: "comments", Message: "comments are required for reason OTHER"}
	}
	if len(req.Photos) > models.MaxReturnPhotos {
		return nil, &models.ValidationError{Field: "photos", Message: fmt.Sprintf("at most %d photos may be attached", models.MaxReturnPhotos)}
	}

	order, err := s.orderRepo.GetByID(req.OrderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && order.CustomerID != actor.ID {
		return nil, &models.UnauthorizedError{Role: actor.Role, Action: "request a return on another customer's order"}
	}
	if order.Status != models.OrderStatusDelivered {
		return nil, &models.ValidationError{Field: "orderId", Message: "returns can only be requested for delivered orders"}
	}
	if order.DeliveredAt == nil {
		return nil, &models.ValidationError{Field: "orderId", Message: "order has no delivery timestamp"}
	}
	if time.Since(*order.DeliveredAt) > time.Duration(s.returnWindowDays)*24*time.Hour {
		return nil, &models.ReturnWindowExpiredError{WindowDays: s.returnWindowDays}
	}

	item := order.ItemByID(req.OrderItemID)
	if item == nil {
		return nil, &models.ValidationError{Field: "orderItemId", Message: "item does not belong to this order"}
	}
	if req.Quantity <= 0 || req.Quantity > item.Quantity {
		return nil, &models.ValidationError{Field: "quantity", Message: fmt.Sprintf("quantity must be between 1 and %d", item.Quantity)}
	}

	open, err := s.returnRepo.HasOpenReturnForItem(item.ID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, &models.ValidationError{Field: "orderItemId", Message: "an open return already exists for this item"}
	}

	ret := &models.ReturnRequest{
		OrderID:      order.ID,
		OrderItemID:  item.ID,
		CustomerID:   order.CustomerID,
		SellerID:     item.SellerID,
		Status:       models.ReturnStatusRequested,
		Reason:       req.Reason,
		Comments:     req.Comments,
		Photos:       pq.StringArray(req.Photos),
		RefundAmount: item.UnitPrice * float64(req.Quantity),
		Quantity:     req.Quantity,
	}

	err = s.txRunner.InTransaction(func(tx *gorm.DB) error {
		if err := s.returnRepo.Create(tx, ret); err != nil {
			return err
		}
		entry := ret.NewTimelineEntry(models.ReturnStatusRequested, "Return requested", &actor)
		return s.returnRepo.AddTimelineEntry(tx, &entry)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishReturnRequested(ret)
	return s.returnRepo.GetByID(ret.ID)
}

func (s *returnService) GetReturn(id uuid.UUID, actor models.Actor) (*models.ReturnRequest, error) {
	ret, err := s.returnRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(ret, actor); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *returnService) ListReturns(filters ReturnListFilters, actor models.Actor) (*ReturnListResponse, error) {
	repoFilters := repository.ReturnFilters{
		OrderID: filters.OrderID,
		Status:  filters.Status,
		Page:    filters.Page,
		Limit:   filters.Limit,
	}
	if repoFilters.Limit <= 0 {
		repoFilters.Limit = 20
	}
	if repoFilters.Page <= 0 {
		repoFilters.Page = 1
	}

	switch actor.Role {
	case models.RoleCustomer:
		id := actor.ID
		repoFilters.CustomerID = &id
	case models.RoleSeller:
		id := actor.ID
		repoFilters.SellerID = &id
	case models.RoleAdmin, models.RoleSupport:
		// unscoped
	default:
		return nil, &models.UnauthorizedError{Role: actor.Role, Action: "list returns"}
	}

	returns, total, err := s.returnRepo.List(repoFilters)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(repoFilters.Limit) - 1) / int64(repoFilters.Limit))
	return &ReturnListResponse{
		Returns:    returns,
		Total:      total,
		Page:       repoFilters.Page,
		Limit:      repoFilters.Limit,
		TotalPages: totalPages,
	}, nil
}

// BeginReview moves a fresh request into UNDER_REVIEW. This is a triage
// step, admin only; sellers decide directly via SellerRespond.
func (s *returnService) BeginReview(id uuid.UUID, actor models.Actor) (*models.ReturnRequest, error) {
	if !actor.IsAdmin() {
		return nil, &models.UnauthorizedError{Role: actor.Role, Action: "move a return into review"}
	}
	ret, err := s.returnRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := models.ValidateReturnTransition(ret.Status, models.ReturnStatusUnderReview); err != nil {
		return nil, err
	}

	err = s.transition(ret, ret.Status, models.ReturnStatusUnderReview, nil, "Return under review", &actor)
	if err != nil {
		return nil, err
	}
	return s.returnRepo.GetByID(id)
}

// SellerRespond records the seller's approve or reject decision
func (s *returnService) SellerRespond(id uuid.UUID, req SellerResponseRequest, actor models.Actor) (*models.ReturnRequest, error) {
	if strings.TrimSpace(req.Response) == "" {
		return nil, &models.ValidationError{Field: "response", Message: "a response message is required"}
	}

	ret, err := s.returnRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeSellerAction(ret, actor, "decide this return"); err != nil {
		return nil, err
	}

	next := models.ReturnStatusRejected
	message := "Return rejected by seller"
	if req.Approve {
		next = models.ReturnStatusApproved
		message = "Return approved by seller"
	}
	if err := models.ValidateReturnTransition(ret.Status, next); err != nil {
		return nil, err
	}
	if req.Approve && req.RefundAmount < 0 {
		return nil, &models.ValidationError{Field: "refundAmount", Message: "refund amount cannot be negative"}
	}
	if req.Approve && req.RefundAmount > ret.RefundAmount {
		return nil, &models.ValidationError{Field: "refundAmount", Message: "refund amount cannot exceed the requested amount"}
	}

	now := time.Now().UTC()
	extras := map[string]interface{}{
		"seller_response":     req.Response,
		"seller_responded_at": now,
	}
	if req.Approve && req.RefundAmount > 0 {
		extras["refund_amount"] = req.RefundAmount
	}

	if err := s.transition(ret, ret.Status, next, extras, message, &actor); err != nil {
		return nil, err
	}

	updated, err := s.returnRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	s.publisher.PublishReturnDecision(updated, req.Approve)
	return updated, nil
}

// MarkItemShipped records the customer shipping the item back
func (s *returnService) MarkItemShipped(id uuid.UUID, req ShipBackRequest, actor models.Actor) (*models.ReturnRequest, error) {
	if strings.TrimSpace(req.ReturnTrackingID) == "" {
		return nil, &models.ValidationError{Field: "returnTrackingId", Message: "return tracking id is required"}
	}

	ret, err := s.returnRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && (actor.Role != models.RoleCustomer || ret.CustomerID != actor.ID) {
		return nil, &models.UnauthorizedError{Role: actor.Role, Action: "ship back this return"}
	}
	if err := models.ValidateReturnTransition(ret.Status, models.ReturnStatusItemShipped); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	extras := map[string]interface{}{
		"return_tracking_id": req.ReturnTrackingID,
		"item_shipped_at":    now,
	}
	if err := s.transition(ret, ret.Status, models.ReturnStatusItemShipped, extras, "Item shipped back by customer", &actor); err != nil {
		return nil, err
	}
	return s.returnRepo.GetByID(id)
}

// ConfirmItemReceived records the seller receiving the returned item
func (s *returnService) ConfirmItemReceived(id uuid.UUID, actor models.Actor) (*models.ReturnRequest, error) {
	ret, err := s.returnRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeSellerAction(ret, actor, "confirm receipt of this return"); err != nil {
		return nil, err
	}
	if err := models.ValidateReturnTransition(ret.Status, models.ReturnStatusItemReceived); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	extras := map[string]interface{}{"item_received_at": now}
	if err := s.transition(ret, ret.Status, models.ReturnStatusItemReceived, extras, "Returned item received by seller", &actor); err != nil {
		return nil, err
	}
	return s.returnRepo.GetByID(id)
}

// AdminOverride forces the return to approved or rejected regardless of
// the seller's decision. The only state it cannot leave is REFUND_ISSUED.
func (s *returnService) AdminOverride(id uuid.UUID, req AdminOverrideRequest, actor models.Actor) (*models.ReturnRequest, error) {
	if !actor.IsAdmin() {
		return nil, &models.UnauthorizedError{Role: actor.Role, Action: "override a return decision"}
	}
	if strings.TrimSpace(req.Decision) == "" {
		return nil, &models.ValidationError{Field: "decision", Message: "a decision note is required"}
	}

	ret, err := s.returnRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !models.CanAdminOverride(ret.Status) {
		return nil, &models.InvalidTransitionError{From: string(ret.Status), To: "override"}
	}

	next := models.ReturnStatusRejected
	message := "Return rejected by admin override"
	if req.Approve {
		next = models.ReturnStatusApproved
		message = "Return approved by admin override"
	}
	if ret.Status == next {
		return ret, nil
	}

	now := time.Now().UTC()
	adminID := actor.ID
	extras := map[string]interface{}{
		"admin_id":       adminID,
		"admin_decision": req.Decision,
		"overridden_at":  now,
	}
	if err := s.transition(ret, ret.Status, next, extras, message, &actor); err != nil {
		return nil, err
	}

	updated, err := s.returnRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	s.publisher.PublishReturnDecision(updated, req.Approve)
	return updated, nil
}

// ProcessRefund issues the wallet credit and closes the return. The credit
// and the REFUND_ISSUED flip commit in the same transaction; the ledger's
// unique link index makes a second attempt a no-op failure.
func (s *returnService) ProcessRefund(id uuid.UUID, actor models.Actor) (*ProcessRefundResponse, error) {
	if !actor.IsAdmin() {
		return nil, &models.UnauthorizedError{Role: actor.Role, Action: "issue a refund"}
	}

	ret, err := s.returnRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if ret.Status == models.ReturnStatusRefundIssued {
		// Repeat call, the refund is already on the ledger. Report success
		// without crediting again.
		return s.refundAlreadyIssued(ret)
	}
	if err := models.ValidateReturnTransition(ret.Status, models.ReturnStatusRefundIssued); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	adminID := actor.ID
	var walletBalance float64

	err = s.txRunner.InTransaction(func(tx *gorm.DB) error {
		extras := map[string]interface{}{
			"refund_issued_at": now,
			"refund_issued_by": adminID,
		}
		if err := s.returnRepo.UpdateStatusCAS(tx, ret.ID, ret.Status, models.ReturnStatusRefundIssued, extras); err != nil {
			return err
		}

		wallet, err := s.walletRepo.Credit(tx, ret.CustomerID, ret.RefundAmount,
			models.WalletTxnRefund,
			fmt.Sprintf("Refund for return %s", ret.RMANumber),
			returnLinkID(ret.ID))
		if err != nil {
			return err
		}
		walletBalance = wallet.Balance

		entry := ret.NewTimelineEntry(models.ReturnStatusRefundIssued,
			fmt.Sprintf("Refund of %.2f credited to wallet", ret.RefundAmount), &actor)
		return s.returnRepo.AddTimelineEntry(tx, &entry)
	})
	if err != nil {
		if models.IsConcurrentModification(err) {
			// Lost the race. If the winner already issued this refund the
			// outcome the caller asked for is in place, so report it.
			current, reloadErr := s.returnRepo.GetByID(id)
			if reloadErr == nil && current.Status == models.ReturnStatusRefundIssued {
				return s.refundAlreadyIssued(current)
			}
		}
		return nil, err
	}

	updated, err := s.returnRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	s.publisher.PublishReturnRefunded(updated, walletBalance)
	s.publisher.PublishWalletCredited(ret.CustomerID.String(), ret.RefundAmount, walletBalance, "return refund")

	return &ProcessRefundResponse{
		Return:        updated,
		RefundAmount:  ret.RefundAmount,
		WalletBalance: walletBalance,
	}, nil
}

// refundAlreadyIssued builds the benign response for a return whose refund
// is already on the ledger
func (s *returnService) refundAlreadyIssued(ret *models.ReturnRequest) (*ProcessRefundResponse, error) {
	wallet, err := s.walletRepo.GetByCustomer(ret.CustomerID)
	if err != nil {
		return nil, err
	}
	return &ProcessRefundResponse{
		Return:        ret,
		RefundAmount:  ret.RefundAmount,
		WalletBalance: wallet.Balance,
		AlreadyIssued: true,
	}, nil
}

// CheckEligibility answers whether the return window is still open for an
// order without creating anything
func (s *returnService) CheckEligibility(orderID uuid.UUID, actor models.Actor) (*ReturnEligibilityResponse, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.Role != models.RoleSupport && order.CustomerID != actor.ID {
		return nil, &models.UnauthorizedError{Role: actor.Role, Action: "check return eligibility for another customer's order"}
	}

	resp := &ReturnEligibilityResponse{OrderID: order.ID, WindowDays: s.returnWindowDays}
	if order.Status != models.OrderStatusDelivered {
		resp.Reason = fmt.Sprintf("order is %s, returns require a delivered order", order.Status.DisplayName())
		return resp, nil
	}
	if order.DeliveredAt == nil {
		resp.Reason = "order has no delivery timestamp"
		return resp, nil
	}

	deadline := order.DeliveredAt.Add(time.Duration(s.returnWindowDays) * 24 * time.Hour)
	resp.Deadline = &deadline
	if time.Now().After(deadline) {
		resp.Reason = fmt.Sprintf("return window of %d days has expired", s.returnWindowDays)
		return resp, nil
	}
	resp.Eligible = true
	return resp, nil
}

// transition applies a CAS status change and its timeline entry in one
// transaction
func (s *returnService) transition(ret *models.ReturnRequest, from, to models.ReturnStatus, extras map[string]interface{}, message string, actor *models.Actor) error {
	return s.txRunner.InTransaction(func(tx *gorm.DB) error {
		if err := s.returnRepo.UpdateStatusCAS(tx, ret.ID, from, to, extras); err != nil {
			return err
		}
		entry := ret.NewTimelineEntry(to, message, actor)
		return s.returnRepo.AddTimelineEntry(tx, &entry)
	})
}

func (s *returnService) authorizeView(ret *models.ReturnRequest, actor models.Actor) error {
	switch actor.Role {
	case models.RoleAdmin, models.RoleSupport:
		return nil
	case models.RoleCustomer:
		if ret.CustomerID == actor.ID {
			return nil
		}
	case models.RoleSeller:
		if ret.SellerID == actor.ID {
			return nil
		}
	}
	return &models.UnauthorizedError{Role: actor.Role, Action: "view this return"}
}

func (s *returnService) authorizeSellerAction(ret *models.ReturnRequest, actor models.Actor, action string) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.Role == models.RoleSeller && ret.SellerID == actor.ID {
		return nil
	}
	return &models.UnauthorizedError{Role: actor.Role, Action: action}
}

// returnLinkID derives the ledger idempotence key for a return refund
func returnLinkID(returnID uuid.UUID) string {
	return "return:" + returnID.String()
}

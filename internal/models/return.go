package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ReturnStatus represents the status of a return request. The return state
// machine is independent of the order's.
type ReturnStatus string

const (
	ReturnStatusRequested    ReturnStatus = "RETURN_REQUESTED" // Submitted by customer
	ReturnStatusUnderReview  ReturnStatus = "UNDER_REVIEW"     // Picked up for seller review
	ReturnStatusApproved     ReturnStatus = "APPROVED"         // Seller (or admin) approved, awaiting ship-back
	ReturnStatusRejected     ReturnStatus = "REJECTED"         // Terminal for non-admin actors
	ReturnStatusItemShipped  ReturnStatus = "ITEM_SHIPPED"     // Customer shipped the item back
	ReturnStatusItemReceived ReturnStatus = "ITEM_RECEIVED"    // Seller confirmed receipt
	ReturnStatusRefundIssued ReturnStatus = "REFUND_ISSUED"    // Terminal
)

// ReturnReason is an enumerated reason code for a return
type ReturnReason string

const (
	ReturnReasonWrongItem       ReturnReason = "WRONG_ITEM"
	ReturnReasonDamaged         ReturnReason = "DAMAGED"
	ReturnReasonQualityMismatch ReturnReason = "QUALITY_MISMATCH"
	ReturnReasonSizeFit         ReturnReason = "SIZE_FIT"
	ReturnReasonChangedMind     ReturnReason = "CHANGED_MIND"
	ReturnReasonOther           ReturnReason = "OTHER"
)

// ReturnReasons lists the selectable return reason codes
var ReturnReasons = []ReturnReason{
	ReturnReasonWrongItem,
	ReturnReasonDamaged,
	ReturnReasonQualityMismatch,
	ReturnReasonSizeFit,
	ReturnReasonChangedMind,
	ReturnReasonOther,
}

// ValidReturnReason reports whether reason is a selectable code
func ValidReturnReason(reason ReturnReason) bool {
	for _, r := range ReturnReasons {
		if r == reason {
			return true
		}
	}
	return false
}

// MaxReturnPhotos caps the number of photo URLs attached to a return
const MaxReturnPhotos = 3

// ValidReturnTransitions defines the legal transitions of the return state
// machine for non-admin actors. Admin overrides bypass this table (see
// CanAdminOverride).
var ValidReturnTransitions = map[ReturnStatus][]ReturnStatus{
	ReturnStatusRequested:    {ReturnStatusUnderReview, ReturnStatusApproved, ReturnStatusRejected},
	ReturnStatusUnderReview:  {ReturnStatusApproved, ReturnStatusRejected},
	ReturnStatusApproved:     {ReturnStatusItemShipped},
	ReturnStatusItemShipped:  {ReturnStatusItemReceived},
	ReturnStatusItemReceived: {ReturnStatusRefundIssued},
	ReturnStatusRejected:     {}, // Terminal (admin override excepted)
	ReturnStatusRefundIssued: {}, // Terminal
}

// CanTransitionReturnStatus checks if a transition is legal for non-admin
// actors
func CanTransitionReturnStatus(from, to ReturnStatus) bool {
	for _, validTo := range ValidReturnTransitions[from] {
		if validTo == to {
			return true
		}
	}
	return false
}

// ValidateReturnTransition returns an error if the transition is invalid
func ValidateReturnTransition(from, to ReturnStatus) error {
	if !CanTransitionReturnStatus(from, to) {
		return &InvalidTransitionError{From: string(from), To: string(to)}
	}
	return nil
}

// IsTerminalReturnStatus checks if the return status is terminal. REJECTED
// is terminal for sellers and customers; only an admin override can move it.
func IsTerminalReturnStatus(status ReturnStatus) bool {
	return status == ReturnStatusRefundIssued || status == ReturnStatusRejected
}

// CanAdminOverride reports whether an admin may force approve/reject from
// the given status. Allowed anywhere except the fully terminal
// REFUND_ISSUED — this is the only path out of REJECTED.
func CanAdminOverride(from ReturnStatus) bool {
	return from != ReturnStatusRefundIssued
}

// ReturnRequest is a customer-initiated post-delivery claim against one
// order line item. Refund is issued at most once per request.
type ReturnRequest struct {
	ID          uuid.UUID    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RMANumber   string       `json:"rmaNumber" gorm:"not null;uniqueIndex:idx_returns_rma"`
	OrderID     uuid.UUID    `json:"orderId" gorm:"type:uuid;not null;index:idx_returns_order"`
	OrderItemID uuid.UUID    `json:"orderItemId" gorm:"type:uuid;not null;index"`
	CustomerID  uuid.UUID    `json:"customerId" gorm:"type:uuid;not null;index:idx_returns_customer"`
	SellerID    uuid.UUID    `json:"sellerId" gorm:"type:uuid;not null;index:idx_returns_seller"`
	Status      ReturnStatus `json:"status" gorm:"type:varchar(20);not null;default:'RETURN_REQUESTED';index:idx_returns_status"`
	Reason      ReturnReason `json:"reason" gorm:"type:varchar(30);not null"`
	Comments    string       `json:"comments" gorm:"type:text"`

	// Photos are pre-uploaded and referenced by URL, capped at MaxReturnPhotos
	Photos pq.StringArray `json:"photos" gorm:"type:text[]"`

	// Admin-approved value; not derived from the line total (partial refunds
	// are allowed)
	RefundAmount float64 `json:"refundAmount" gorm:"type:decimal(12,2);not null"`
	Quantity     int     `json:"quantity" gorm:"not null"`

	// Seller decision
	SellerResponse    string     `json:"sellerResponse" gorm:"type:text"`
	SellerRespondedAt *time.Time `json:"sellerRespondedAt"`

	// Admin override
	AdminID       *uuid.UUID `json:"adminId" gorm:"type:uuid"`
	AdminDecision string     `json:"adminDecision" gorm:"type:text"`
	OverriddenAt  *time.Time `json:"overriddenAt"`

	// Ship-back logistics
	ReturnTrackingID string     `json:"returnTrackingId" gorm:"type:varchar(100)"`
	ItemShippedAt    *time.Time `json:"itemShippedAt"`
	ItemReceivedAt   *time.Time `json:"itemReceivedAt"`

	// Refund
	RefundIssuedAt *time.Time `json:"refundIssuedAt"`
	RefundIssuedBy *uuid.UUID `json:"refundIssuedBy" gorm:"type:uuid"`

	CreatedAt time.Time      `json:"createdAt" gorm:"index:idx_returns_created,sort:desc"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Timeline []ReturnTimeline `json:"timeline,omitempty" gorm:"foreignKey:ReturnID;constraint:OnDelete:CASCADE"`
}

// ReturnTimeline tracks status changes and events on a return request
type ReturnTimeline struct {
	ID        uuid.UUID    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ReturnID  uuid.UUID    `json:"returnId" gorm:"type:uuid;not null;index"`
	Status    ReturnStatus `json:"status" gorm:"type:varchar(20);not null"`
	Message   string       `json:"message" gorm:"type:text;not null"`
	ActorID   *uuid.UUID   `json:"actorId" gorm:"type:uuid"` // nil for system events
	ActorRole ActorRole    `json:"actorRole" gorm:"type:varchar(20)"`
	CreatedAt time.Time    `json:"createdAt"`
}

// BeforeCreate hook to generate RMA number
func (r *ReturnRequest) BeforeCreate(tx *gorm.DB) error {
	if r.RMANumber == "" {
		r.RMANumber = "RMA-" + time.Now().Format("20060102") + "-" + uuid.New().String()[:6]
	}
	return nil
}

// TableName specifies the table name for ReturnRequest
func (ReturnRequest) TableName() string {
	return "return_requests"
}

// TableName specifies the table name for ReturnTimeline
func (ReturnTimeline) TableName() string {
	return "return_timeline"
}

// NewTimelineEntry creates a timeline entry for a status change
func (r *ReturnRequest) NewTimelineEntry(status ReturnStatus, message string, actor *Actor) ReturnTimeline {
	entry := ReturnTimeline{
		ReturnID:  r.ID,
		Status:    status,
		Message:   message,
		CreatedAt: time.Now(),
	}
	if actor != nil {
		id := actor.ID
		entry.ActorID = &id
		entry.ActorRole = actor.Role
	}
	return entry
}

package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CancellationReason is an enumerated cancellation reason code. Customers
// and sellers choose from different sets; both include an OTHER escape that
// requires free text.
type CancellationReason string

const (
	CancelReasonChangedMind    CancellationReason = "CHANGED_MIND"
	CancelReasonBetterPrice    CancellationReason = "FOUND_BETTER_PRICE"
	CancelReasonOrderedMistake CancellationReason = "ORDERED_BY_MISTAKE"
	CancelReasonShippingSlow   CancellationReason = "SHIPPING_TOO_SLOW"
	CancelReasonOutOfStock     CancellationReason = "OUT_OF_STOCK"
	CancelReasonPricingError   CancellationReason = "PRICING_ERROR"
	CancelReasonAddressIssue   CancellationReason = "UNDELIVERABLE_ADDRESS"
	CancelReasonCustomerNoPay  CancellationReason = "CUSTOMER_UNREACHABLE"
	CancelReasonOther          CancellationReason = "OTHER"
)

// CustomerCancellationReasons is the customer-facing reason set
var CustomerCancellationReasons = []CancellationReason{
	CancelReasonChangedMind,
	CancelReasonBetterPrice,
	CancelReasonOrderedMistake,
	CancelReasonShippingSlow,
	CancelReasonOther,
}

// SellerCancellationReasons is the seller-facing reason set
var SellerCancellationReasons = []CancellationReason{
	CancelReasonOutOfStock,
	CancelReasonPricingError,
	CancelReasonAddressIssue,
	CancelReasonCustomerNoPay,
	CancelReasonOther,
}

// CancellationReasonsForRole returns the reason set for the acting role.
// Admins may use either set, so they get the union.
func CancellationReasonsForRole(role ActorRole) []CancellationReason {
	switch role {
	case RoleCustomer:
		return CustomerCancellationReasons
	case RoleSeller:
		return SellerCancellationReasons
	default:
		reasons := make([]CancellationReason, 0, len(CustomerCancellationReasons)+len(SellerCancellationReasons))
		reasons = append(reasons, CustomerCancellationReasons...)
		for _, r := range SellerCancellationReasons {
			if r != CancelReasonOther {
				reasons = append(reasons, r)
			}
		}
		return reasons
	}
}

// ReasonInSet reports whether the code is part of the role's reason set
func ReasonInSet(role ActorRole, reason CancellationReason) bool {
	for _, r := range CancellationReasonsForRole(role) {
		if r == reason {
			return true
		}
	}
	return false
}

// CanCancelOrder decides whether cancellation is still allowed for the
// given status. The returned reason is user-facing and names the blocking
// state when cancellation is refused.
func CanCancelOrder(status OrderStatus) (bool, string) {
	switch status {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing:
		return true, ""
	case OrderStatusShipped:
		return false, "Order has already been shipped and cannot be cancelled online"
	case OrderStatusDelivered:
		return false, "Order has already been delivered and cannot be cancelled"
	case OrderStatusCancelled:
		return false, "Order is already cancelled"
	default:
		return false, fmt.Sprintf("Order in status %s cannot be cancelled", status)
	}
}

// CancellationLog is the immutable audit record of who cancelled an order
// and why. At most one entry exists per order (unique index); only the
// refund_processed flag may change after creation, and only to true once a
// wallet credit has been durably recorded.
type CancellationLog struct {
	ID              uuid.UUID          `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OrderID         uuid.UUID          `json:"orderId" gorm:"type:uuid;not null;uniqueIndex:idx_cancellation_logs_order"`
	ActorID         uuid.UUID          `json:"actorId" gorm:"type:uuid;not null"`
	ActorRole       ActorRole          `json:"actorRole" gorm:"type:varchar(20);not null"`
	Reason          CancellationReason `json:"reason" gorm:"type:varchar(40);not null"`
	ReasonText      string             `json:"reasonText" gorm:"type:text"`
	RefundAmount    float64            `json:"refundAmount" gorm:"type:decimal(12,2);default:0"`
	RefundProcessed bool               `json:"refundProcessed" gorm:"default:false"`
	Restocked       bool               `json:"restocked" gorm:"default:false"`
	CreatedAt       time.Time          `json:"createdAt"`
}

// TableName specifies the table name for CancellationLog
func (CancellationLog) TableName() string {
	return "cancellation_logs"
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanCancelOrder(t *testing.T) {
	tests := []struct {
		status  OrderStatus
		allowed bool
	}{
		{OrderStatusPending, true},
		{OrderStatusConfirmed, true},
		{OrderStatusProcessing, true},
		{OrderStatusShipped, false},
		{OrderStatusDelivered, false},
		{OrderStatusCancelled, false},
	}

	for _, tt := range tests {
		ok, reason := CanCancelOrder(tt.status)
		assert.Equal(t, tt.allowed, ok, "status %s", tt.status)
		if !tt.allowed {
			assert.NotEmpty(t, reason, "refusal for %s must carry a user-facing reason", tt.status)
		} else {
			assert.Empty(t, reason)
		}
	}
}

func TestCanCancelOrder_ShippedReasonMentionsShipping(t *testing.T) {
	_, reason := CanCancelOrder(OrderStatusShipped)
	assert.Contains(t, reason, "shipped")
}

func TestCancellationReasonSets(t *testing.T) {
	assert.True(t, ReasonInSet(RoleCustomer, CancelReasonChangedMind))
	assert.True(t, ReasonInSet(RoleCustomer, CancelReasonOther))
	assert.False(t, ReasonInSet(RoleCustomer, CancelReasonOutOfStock))

	assert.True(t, ReasonInSet(RoleSeller, CancelReasonOutOfStock))
	assert.True(t, ReasonInSet(RoleSeller, CancelReasonPricingError))
	assert.False(t, ReasonInSet(RoleSeller, CancelReasonChangedMind))

	// Admin gets the union
	assert.True(t, ReasonInSet(RoleAdmin, CancelReasonChangedMind))
	assert.True(t, ReasonInSet(RoleAdmin, CancelReasonOutOfStock))
}

func TestCancellationReasonsForRole_AdminUnionHasNoDuplicates(t *testing.T) {
	reasons := CancellationReasonsForRole(RoleAdmin)
	seen := map[CancellationReason]bool{}
	for _, r := range reasons {
		assert.False(t, seen[r], "duplicate reason %s", r)
		seen[r] = true
	}
	assert.True(t, seen[CancelReasonOther])
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var allReturnStatuses = []ReturnStatus{
	ReturnStatusRequested,
	ReturnStatusUnderReview,
	ReturnStatusApproved,
	ReturnStatusRejected,
	ReturnStatusItemShipped,
	ReturnStatusItemReceived,
	ReturnStatusRefundIssued,
}

func TestReturnTransitions_HappyPath(t *testing.T) {
	path := []ReturnStatus{
		ReturnStatusRequested,
		ReturnStatusUnderReview,
		ReturnStatusApproved,
		ReturnStatusItemShipped,
		ReturnStatusItemReceived,
		ReturnStatusRefundIssued,
	}
	for i := 0; i < len(path)-1; i++ {
		assert.True(t, CanTransitionReturnStatus(path[i], path[i+1]),
			"expected %s -> %s to be valid", path[i], path[i+1])
	}
}

func TestReturnTransitions_DirectDecisionWithoutReview(t *testing.T) {
	assert.True(t, CanTransitionReturnStatus(ReturnStatusRequested, ReturnStatusApproved))
	assert.True(t, CanTransitionReturnStatus(ReturnStatusRequested, ReturnStatusRejected))
}

func TestReturnTransitions_RejectedIsTerminalForNonAdmins(t *testing.T) {
	for _, to := range allReturnStatuses {
		assert.False(t, CanTransitionReturnStatus(ReturnStatusRejected, to),
			"REJECTED must not reach %s without an admin override", to)
	}
	assert.True(t, IsTerminalReturnStatus(ReturnStatusRejected))
}

func TestReturnTransitions_RefundIssuedIsFullyTerminal(t *testing.T) {
	for _, to := range allReturnStatuses {
		assert.False(t, CanTransitionReturnStatus(ReturnStatusRefundIssued, to))
	}
	assert.True(t, IsTerminalReturnStatus(ReturnStatusRefundIssued))
	assert.False(t, CanAdminOverride(ReturnStatusRefundIssued))
}

func TestCanAdminOverride(t *testing.T) {
	for _, from := range allReturnStatuses {
		if from == ReturnStatusRefundIssued {
			assert.False(t, CanAdminOverride(from))
		} else {
			assert.True(t, CanAdminOverride(from), "admin must be able to override from %s", from)
		}
	}
}

func TestReturnTransitions_NoSkippingShipBack(t *testing.T) {
	assert.False(t, CanTransitionReturnStatus(ReturnStatusApproved, ReturnStatusItemReceived))
	assert.False(t, CanTransitionReturnStatus(ReturnStatusApproved, ReturnStatusRefundIssued))
	assert.False(t, CanTransitionReturnStatus(ReturnStatusItemShipped, ReturnStatusRefundIssued))
}

func TestValidReturnReason(t *testing.T) {
	assert.True(t, ValidReturnReason(ReturnReasonDamaged))
	assert.True(t, ValidReturnReason(ReturnReasonOther))
	assert.False(t, ValidReturnReason(ReturnReason("NOT_A_REASON")))
}

func TestNewTimelineEntry(t *testing.T) {
	ret := &ReturnRequest{}
	actor := Actor{Role: RoleSeller}

	entry := ret.NewTimelineEntry(ReturnStatusApproved, "Return approved by seller", &actor)
	assert.Equal(t, ReturnStatusApproved, entry.Status)
	assert.NotNil(t, entry.ActorID)
	assert.Equal(t, RoleSeller, entry.ActorRole)

	system := ret.NewTimelineEntry(ReturnStatusUnderReview, "Auto-assigned for review", nil)
	assert.Nil(t, system.ActorID)
}

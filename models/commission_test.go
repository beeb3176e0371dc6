package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to string }{
		{CommissionStatusPending, CommissionStatusApproved},
		{CommissionStatusPending, CommissionStatusRejected},
		{CommissionStatusPending, CommissionStatusCancelled},
		{CommissionStatusApproved, CommissionStatusPaid},
		{CommissionStatusApproved, CommissionStatusCancelled},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be legal", tc.from, tc.to)
	}

	forbidden := []struct{ from, to string }{
		{CommissionStatusPending, CommissionStatusPaid},
		{CommissionStatusApproved, CommissionStatusRejected},
		{CommissionStatusApproved, CommissionStatusPending},
		{CommissionStatusPaid, CommissionStatusApproved},
		{CommissionStatusRejected, CommissionStatusApproved},
		{CommissionStatusRejected, CommissionStatusPending},
		{CommissionStatusCancelled, CommissionStatusPending},
		{CommissionStatusPaid, CommissionStatusCancelled},
	}
	for _, tc := range forbidden {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be illegal", tc.from, tc.to)
	}
}

func TestCurrentStatusMatchesHistory(t *testing.T) {
	now := time.Now()
	commission := &Commission{Status: CommissionStatusApproved}
	assert.False(t, commission.CurrentStatusMatchesHistory(), "empty history never matches")

	commission.StatusHistory = []StatusHistoryEntry{
		{Status: CommissionStatusPending, ChangedAt: now},
		{Status: CommissionStatusApproved, ChangedAt: now},
	}
	assert.True(t, commission.CurrentStatusMatchesHistory())

	commission.Status = CommissionStatusPaid
	assert.False(t, commission.CurrentStatusMatchesHistory())
}

func TestPayoutIsOpen(t *testing.T) {
	open := []string{PayoutStatusRequested, PayoutStatusProcessing, PayoutStatusCompleted}
	for _, status := range open {
		payout := &Payout{Status: status}
		assert.True(t, payout.IsOpen(), "%s holds the claim", status)
	}
	for _, status := range []string{PayoutStatusFailed, PayoutStatusCancelled} {
		payout := &Payout{Status: status}
		assert.False(t, payout.IsOpen(), "%s releases the claim", status)
	}
}

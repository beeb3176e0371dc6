package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/fly8app/fly8_backend/models"
	"github.com/fly8app/fly8_backend/repositories"
	"github.com/fly8app/fly8_backend/utils"
)

// approvedCommissions creates n approved application commissions for the
// agent and returns their ids. Default settings: 10% of the 10000 fallback
// base, so each is worth 1000.
func approvedCommissions(t *testing.T, store *memStore, commissions *CommissionService, agent *models.Agent, n int) []primitive.ObjectID {
	t.Helper()
	ids := make([]primitive.ObjectID, 0, n)
	for i := 0; i < n; i++ {
		commission, _, err := commissions.CreateApplicationCommission(context.Background(), completedApplication(agent.ID), adminActor)
		require.NoError(t, err)
		_, err = commissions.Approve(context.Background(), commission.ID, adminActor)
		require.NoError(t, err)
		ids = append(ids, commission.ID)
	}
	return ids
}

func TestRequestPayout(t *testing.T) {
	store, commissions, payouts := newTestEngine(t)
	agent := seedAgent(store, nil)
	ids := approvedCommissions(t, store, commissions, agent, 2)

	payout, err := payouts.RequestPayout(context.Background(), agent.ID, ids, "", "monthly payout")
	require.NoError(t, err)

	assert.Equal(t, models.PayoutStatusRequested, payout.Status)
	assert.Equal(t, 2000.0, payout.Amount)
	assert.Equal(t, "USD", payout.Currency)
	assert.Equal(t, "bank_transfer", payout.PayoutMethod)
	assert.Equal(t, "monthly payout", payout.AgentNote)
	assert.Empty(t, payout.InvoiceNumber, "payout invoice is assigned on completion")

	// Bank details frozen at request time.
	require.NotNil(t, payout.BankDetailsSnapshot)
	assert.Equal(t, "0011223344", payout.BankDetailsSnapshot.AccountNumber)

	require.Len(t, payout.StatusHistory, 1)
	assert.Equal(t, models.PayoutStatusRequested, payout.StatusHistory[0].Status)

	// Commissions stay approved until the transfer is confirmed.
	for _, id := range ids {
		commission, err := store.GetCommission(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.CommissionStatusApproved, commission.Status)
	}
}

func TestRequestPayout_Validation(t *testing.T) {
	store, commissions, payouts := newTestEngine(t)
	agent := seedAgent(store, nil)
	other := seedAgent(store, nil)
	ids := approvedCommissions(t, store, commissions, agent, 1)

	_, err := payouts.RequestPayout(context.Background(), agent.ID, nil, "", "")
	assert.True(t, IsValidation(err), "empty id list")

	_, err = payouts.RequestPayout(context.Background(), agent.ID, []primitive.ObjectID{ids[0], ids[0]}, "", "")
	assert.True(t, IsValidation(err), "duplicate ids in one request")

	_, err = payouts.RequestPayout(context.Background(), other.ID, ids, "", "")
	assert.True(t, IsValidation(err), "commission owned by a different agent")

	pending, _, err := commissions.CreateApplicationCommission(context.Background(), completedApplication(agent.ID), adminActor)
	require.NoError(t, err)
	_, err = payouts.RequestPayout(context.Background(), agent.ID, []primitive.ObjectID{pending.ID}, "", "")
	assert.True(t, IsPrecondition(err), "pending commission is not payable")
}

func TestRequestPayout_Threshold(t *testing.T) {
	store, commissions, payouts := newTestEngine(t)
	agent := seedAgent(store, nil)
	store.settings = &models.PlatformSettings{
		DefaultAgentCommission: 10,
		PayoutThreshold:        2500,
		CommissionCurrency:     "USD",
	}
	ids := approvedCommissions(t, store, commissions, agent, 2) // 2000 total

	_, err := payouts.RequestPayout(context.Background(), agent.ID, ids, "", "")
	assert.True(t, IsValidation(err))

	more := approvedCommissions(t, store, commissions, agent, 1)
	payout, err := payouts.RequestPayout(context.Background(), agent.ID, append(ids, more...), "", "")
	require.NoError(t, err)
	assert.Equal(t, 3000.0, payout.Amount)
}

func TestRequestPayout_DoubleClaim(t *testing.T) {
	store, commissions, payouts := newTestEngine(t)
	agent := seedAgent(store, nil)
	ids := approvedCommissions(t, store, commissions, agent, 2)

	_, err := payouts.RequestPayout(context.Background(), agent.ID, ids, "", "")
	require.NoError(t, err)

	// The open payout holds the claim; a second request over any of the same
	// commissions conflicts.
	_, err = payouts.RequestPayout(context.Background(), agent.ID, ids[:1], "", "")
	assert.True(t, IsConflict(err))
}

func TestRequestPayout_ConcurrentRequestsSingleWinner(t *testing.T) {
	store, commissions, payouts := newTestEngine(t)
	agent := seedAgent(store, nil)
	ids := approvedCommissions(t, store, commissions, agent, 1)

	const racers = 8
	var wg sync.WaitGroup
	results := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := payouts.RequestPayout(context.Background(), agent.ID, ids, "", "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case IsConflict(err):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins, "exactly one request may take the commission")
	assert.Equal(t, racers-1, conflicts)

	open, err := payouts.ListPayouts(context.Background(), repositories.PayoutFilter{Status: models.PayoutStatusRequested})
	require.NoError(t, err)
	require.Len(t, open, 1, "only the winning payout exists")

	commission, err := store.GetCommission(context.Background(), ids[0])
	require.NoError(t, err)
	require.NotNil(t, commission.PayoutClaimID)
	assert.Equal(t, open[0].ID, *commission.PayoutClaimID)
}

func TestProcessPayout(t *testing.T) {
	store, commissions, payouts := newTestEngine(t)
	agent := seedAgent(store, nil)
	ids := approvedCommissions(t, store, commissions, agent, 2)

	payout, err := payouts.RequestPayout(context.Background(), agent.ID, ids, "", "")
	require.NoError(t, err)

	_, err = payouts.ProcessPayout(context.Background(), payout.ID, "", "", adminActor)
	assert.True(t, IsValidation(err), "external reference is mandatory")

	completed, err := payouts.ProcessPayout(context.Background(), payout.ID, "WIRE-889", "batch 12", adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusCompleted, completed.Status)
	assert.Equal(t, "WIRE-889", completed.ExternalReference)
	assert.Regexp(t, utils.PayoutInvoicePattern, completed.InvoiceNumber)
	require.NotNil(t, completed.ProcessedAt)

	// Every linked commission settles with the payout as its reference.
	for _, id := range ids {
		commission, err := store.GetCommission(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.CommissionStatusPaid, commission.Status)
		assert.Equal(t, payout.ID.Hex(), commission.PayoutReference)
		require.NotNil(t, commission.PaidAt)
	}

	stored, err := store.GetAgent(context.Background(), agent.ID)
	require.NoError(t, err)
	assert.Equal(t, 2000.0, stored.TotalEarnings)
	assert.Equal(t, 0.0, stored.PendingEarnings)

	// Completing twice is a precondition failure, not a double payment.
	_, err = payouts.ProcessPayout(context.Background(), payout.ID, "WIRE-890", "", adminActor)
	assert.True(t, IsPrecondition(err))
}

func TestProcessPayout_SkipsDirectlySettledCommission(t *testing.T) {
	store, commissions, payouts := newTestEngine(t)
	agent := seedAgent(store, nil)
	ids := approvedCommissions(t, store, commissions, agent, 2)

	payout, err := payouts.RequestPayout(context.Background(), agent.ID, ids, "", "")
	require.NoError(t, err)

	// One commission is settled directly while the payout is in flight.
	direct, err := commissions.MarkPaidDirect(context.Background(), ids[0], "TXN-DIRECT", adminActor)
	require.NoError(t, err)

	_, err = payouts.ProcessPayout(context.Background(), payout.ID, "WIRE-900", "", adminActor)
	require.NoError(t, err)

	// The directly settled one keeps its original reference.
	kept, err := store.GetCommission(context.Background(), direct.ID)
	require.NoError(t, err)
	assert.Equal(t, "TXN-DIRECT", kept.PayoutReference)

	settled, err := store.GetCommission(context.Background(), ids[1])
	require.NoError(t, err)
	assert.Equal(t, payout.ID.Hex(), settled.PayoutReference)
}

// settlementFailStore injects a store failure on one commission's transition.
type settlementFailStore struct {
	*memStore
	failID primitive.ObjectID
	fail   bool
}

func (s *settlementFailStore) TransitionCommission(ctx context.Context, id primitive.ObjectID, from string, tr repositories.CommissionTransition) (*models.Commission, error) {
	if s.fail && id == s.failID {
		return nil, errors.New("connection reset by peer")
	}
	return s.memStore.TransitionCommission(ctx, id, from, tr)
}

func TestProcessPayout_SettlementFailureLeavesPayoutRetryable(t *testing.T) {
	base := newMemStore()
	wrapped := &settlementFailStore{memStore: base}
	notifier := NewNotifier(wrapped, nil)
	commissions := NewCommissionService(wrapped, notifier)
	payouts := NewPayoutService(wrapped, notifier)

	agent := seedAgent(base, nil)
	ids := approvedCommissions(t, base, commissions, agent, 2)

	payout, err := payouts.RequestPayout(context.Background(), agent.ID, ids, "", "")
	require.NoError(t, err)

	// The second settlement fails with a real store error: the call reports
	// it and the payout stays requested instead of completing half-settled.
	wrapped.failID = ids[1]
	wrapped.fail = true
	_, err = payouts.ProcessPayout(context.Background(), payout.ID, "WIRE-500", "", adminActor)
	require.Error(t, err)
	assert.False(t, IsPrecondition(err))

	reloaded, err := base.GetPayout(context.Background(), payout.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusRequested, reloaded.Status)
	assert.Empty(t, reloaded.InvoiceNumber)

	// Retrying after the store recovers settles the remaining commission and
	// completes the payout; the one already paid is skipped, not re-settled.
	wrapped.fail = false
	completed, err := payouts.ProcessPayout(context.Background(), payout.ID, "WIRE-500", "", adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusCompleted, completed.Status)

	for _, id := range ids {
		commission, err := base.GetCommission(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.CommissionStatusPaid, commission.Status)
		assert.Equal(t, payout.ID.Hex(), commission.PayoutReference)
	}
}

func TestProcessPayout_AuditRecordsPriorStatus(t *testing.T) {
	store, commissions, payouts := newTestEngine(t)
	agent := seedAgent(store, nil)
	ids := approvedCommissions(t, store, commissions, agent, 1)

	payout, err := payouts.RequestPayout(context.Background(), agent.ID, ids, "", "")
	require.NoError(t, err)
	store.payouts[payout.ID].Status = models.PayoutStatusProcessing

	_, err = payouts.ProcessPayout(context.Background(), payout.ID, "WIRE-600", "", adminActor)
	require.NoError(t, err)

	var entry *models.AuditLog
	for i := range store.auditLogs {
		if store.auditLogs[i].Action == models.AuditActionPayoutCompleted {
			entry = &store.auditLogs[i]
		}
	}
	require.NotNil(t, entry)
	previous, ok := entry.PreviousState.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, models.PayoutStatusProcessing, previous["status"])
}

func TestRejectPayout_ReleasesCommissions(t *testing.T) {
	store, commissions, payouts := newTestEngine(t)
	agent := seedAgent(store, nil)
	ids := approvedCommissions(t, store, commissions, agent, 2)

	payout, err := payouts.RequestPayout(context.Background(), agent.ID, ids, "", "")
	require.NoError(t, err)

	_, err = payouts.RejectPayout(context.Background(), payout.ID, "", adminActor)
	assert.True(t, IsValidation(err), "reason is mandatory")

	failed, err := payouts.RejectPayout(context.Background(), payout.ID, "bank details mismatch", adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusFailed, failed.Status)
	assert.Equal(t, "bank details mismatch", failed.FailureReason)

	// Commissions stay approved and are free for a new request.
	for _, id := range ids {
		commission, err := store.GetCommission(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.CommissionStatusApproved, commission.Status)
	}
	retry, err := payouts.RequestPayout(context.Background(), agent.ID, ids, "", "second attempt")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusRequested, retry.Status)

	// A failed payout cannot be processed.
	_, err = payouts.ProcessPayout(context.Background(), payout.ID, "WIRE-1", "", adminActor)
	assert.True(t, IsPrecondition(err))
}

func TestListPayouts_AgentFilter(t *testing.T) {
	store, commissions, payouts := newTestEngine(t)
	agent := seedAgent(store, nil)
	other := seedAgent(store, nil)
	ids := approvedCommissions(t, store, commissions, agent, 1)
	otherIDs := approvedCommissions(t, store, commissions, other, 1)

	_, err := payouts.RequestPayout(context.Background(), agent.ID, ids, "", "")
	require.NoError(t, err)
	_, err = payouts.RequestPayout(context.Background(), other.ID, otherIDs, "", "")
	require.NoError(t, err)

	mine, err := payouts.ListPayouts(context.Background(), repositories.PayoutFilter{AgentID: &agent.ID})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, agent.ID, mine[0].AgentID)

	all, err := payouts.ListPayouts(context.Background(), repositories.PayoutFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

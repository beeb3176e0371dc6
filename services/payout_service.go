package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/fly8app/fly8_backend/models"
	"github.com/fly8app/fly8_backend/repositories"
	"github.com/fly8app/fly8_backend/utils"
	"github.com/fly8app/fly8_backend/websocket"
)

// PayoutService owns the payout ledger: agent-initiated batches over
// approved commissions, processed or rejected by a super admin.
type PayoutService struct {
	store    repositories.Store
	notifier *Notifier
}

func NewPayoutService(store repositories.Store, notifier *Notifier) *PayoutService {
	return &PayoutService{store: store, notifier: notifier}
}

// RequestPayout creates a payout over the agent's approved commissions.
// Every listed commission must belong to the agent, be approved, and not be
// claimed by another open payout; the sum must reach the payout threshold.
// Bank details are frozen on the payout at request time.
func (s *PayoutService) RequestPayout(ctx context.Context, agentID primitive.ObjectID, commissionIDs []primitive.ObjectID, method, note string) (*models.Payout, error) {
	if len(commissionIDs) == 0 {
		return nil, validationErrorf("at least one commission is required")
	}
	if method == "" {
		method = "bank_transfer"
	}

	agent, err := s.store.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[primitive.ObjectID]bool, len(commissionIDs))
	var total float64
	var currency string
	for _, id := range commissionIDs {
		if seen[id] {
			return nil, validationErrorf("duplicate commission %s in request", id.Hex())
		}
		seen[id] = true

		commission, err := s.store.GetCommission(ctx, id)
		if err != nil {
			return nil, err
		}
		if commission.AgentID != agentID {
			return nil, validationErrorf("commission %s does not belong to this agent", commission.ReferenceID)
		}
		if commission.Status != models.CommissionStatusApproved {
			return nil, preconditionErrorf("commission %s is %s, not approved", commission.ReferenceID, commission.Status)
		}
		total += commission.Amount
		currency = commission.Currency
	}
	total = utils.Round2(total)

	if total < settings.PayoutThreshold {
		return nil, validationErrorf("payout amount %.2f is below the threshold of %.2f", total, settings.PayoutThreshold)
	}

	if holder, err := s.store.FindOpenPayoutHolding(ctx, commissionIDs); err != nil {
		return nil, err
	} else if holder != nil {
		return nil, conflictErrorf("a commission in this request is already part of payout %s", holder.ID.Hex())
	}

	if currency == "" {
		currency = settings.CommissionCurrency
	}

	// Claim every commission with a conditional write before the payout
	// document exists. Two concurrent requests over the same commission race
	// on the claim and exactly one wins; the loser rolls back whatever it
	// already took.
	now := time.Now()
	payoutID := primitive.NewObjectID()
	claimed := make([]primitive.ObjectID, 0, len(commissionIDs))
	for _, id := range commissionIDs {
		if err := s.store.ClaimCommission(ctx, id, payoutID); err != nil {
			s.releaseClaims(ctx, claimed, payoutID)
			if err == repositories.ErrStatusConflict {
				return nil, conflictErrorf("commission %s was claimed by another payout request", id.Hex())
			}
			return nil, err
		}
		claimed = append(claimed, id)
	}

	payout := &models.Payout{
		ID:            payoutID,
		AgentID:       agentID,
		Amount:        total,
		Currency:      currency,
		CommissionIDs: commissionIDs,
		Status:        models.PayoutStatusRequested,
		StatusHistory: []models.StatusHistoryEntry{{
			Status:    models.PayoutStatusRequested,
			ChangedBy: agentID.Hex(),
			ChangedAt: now,
			Note:      note,
		}},
		PayoutMethod:        method,
		BankDetailsSnapshot: agent.BankDetails,
		AgentNote:           note,
		RequestedAt:         now,
	}
	if err := s.store.InsertPayout(ctx, payout); err != nil {
		s.releaseClaims(ctx, claimed, payoutID)
		return nil, err
	}

	recordAudit(ctx, s.store, Actor{UserID: agentID.Hex(), Role: models.UserTypeAgent},
		models.AuditActionPayoutRequested, "payout", payout.ID.Hex(),
		nil, map[string]interface{}{"status": payout.Status, "amount": payout.Amount},
		map[string]interface{}{"commissionIds": hexIDs(commissionIDs)})

	s.notifier.NotifyAdmins(ctx, websocket.EventNewNotification,
		"Payout requested",
		fmt.Sprintf("Agent %s requested a payout of %.2f %s over %d commissions", agent.FullName, payout.Amount, payout.Currency, len(commissionIDs)),
		map[string]interface{}{"payoutId": payout.ID.Hex(), "agentId": agentID.Hex()},
		"Fly8: payout request awaiting processing")

	return payout, nil
}

// ProcessPayout completes a requested or processing payout: settles every
// linked commission still in approved status, then stamps the external
// transfer reference and the payout invoice number.
func (s *PayoutService) ProcessPayout(ctx context.Context, payoutID primitive.ObjectID, externalReference, note string, actor Actor) (*models.Payout, error) {
	if externalReference == "" {
		return nil, validationErrorf("external reference is required")
	}

	payout, err := s.store.GetPayout(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status != models.PayoutStatusRequested && payout.Status != models.PayoutStatusProcessing {
		return nil, preconditionErrorf("payout %s cannot be processed from its current status", payoutID.Hex())
	}
	priorStatus := payout.Status

	// Settle the linked commissions before completing the payout, so a store
	// failure here leaves the payout in its prior status and the whole
	// operation retryable. A commission already settled directly loses the
	// CAS and is skipped; any other error aborts.
	now := time.Now()
	for _, commissionID := range payout.CommissionIDs {
		_, err := s.store.TransitionCommission(ctx, commissionID, models.CommissionStatusApproved, repositories.CommissionTransition{
			To:              models.CommissionStatusPaid,
			Entry:           models.StatusHistoryEntry{Status: models.CommissionStatusPaid, ChangedBy: actor.UserID, ChangedAt: now, Note: "paid via payout " + payout.ID.Hex()},
			PaidAt:          &now,
			PayoutMethod:    payout.PayoutMethod,
			PayoutReference: payout.ID.Hex(),
			ProcessedBy:     actor.UserID,
		})
		if err != nil && err != repositories.ErrStatusConflict {
			return nil, fmt.Errorf("settling commission %s for payout %s: %w", commissionID.Hex(), payout.ID.Hex(), err)
		}
	}

	payout, err = s.store.TransitionPayout(ctx, payoutID,
		[]string{models.PayoutStatusRequested, models.PayoutStatusProcessing},
		repositories.PayoutTransition{
			To:                models.PayoutStatusCompleted,
			Entry:             models.StatusHistoryEntry{Status: models.PayoutStatusCompleted, ChangedBy: actor.UserID, ChangedAt: now, Note: note},
			InvoiceNumber:     utils.FormatPayoutInvoice(now),
			ExternalReference: externalReference,
			AdminNote:         note,
			ProcessedAt:       &now,
			ProcessedBy:       actor.UserID,
		})
	if err == repositories.ErrStatusConflict {
		return nil, preconditionErrorf("payout %s was processed concurrently", payoutID.Hex())
	}
	if err != nil {
		return nil, err
	}

	refreshEarningsBestEffort(ctx, s.store, payout.AgentID)
	recordAudit(ctx, s.store, actor, models.AuditActionPayoutCompleted, "payout", payout.ID.Hex(),
		map[string]interface{}{"status": priorStatus},
		map[string]interface{}{"status": payout.Status, "invoiceNumber": payout.InvoiceNumber, "externalReference": externalReference},
		map[string]interface{}{"commissionIds": hexIDs(payout.CommissionIDs)})

	if agent, err := s.store.GetAgent(ctx, payout.AgentID); err == nil {
		s.notifier.NotifyAgent(ctx, agent, websocket.EventPayoutCompleted,
			"Payout completed",
			fmt.Sprintf("Your payout of %.2f %s was processed (ref %s)", payout.Amount, payout.Currency, externalReference),
			map[string]interface{}{"payoutId": payout.ID.Hex(), "invoiceNumber": payout.InvoiceNumber})
	}
	return payout, nil
}

// releaseClaims undoes commission claims after a failed or rejected payout
// request. Release failures are logged, not returned: the payout decision
// already stands and a leftover claim only blocks re-requests until repaired.
func (s *PayoutService) releaseClaims(ctx context.Context, commissionIDs []primitive.ObjectID, payoutID primitive.ObjectID) {
	for _, id := range commissionIDs {
		if err := s.store.ReleaseCommissionClaim(ctx, id, payoutID); err != nil {
			log.Printf("Failed to release claim on commission %s for payout %s: %v", id.Hex(), payoutID.Hex(), err)
		}
	}
}

// RejectPayout fails a requested payout. Linked commissions keep their
// approved status and become eligible for a new request.
func (s *PayoutService) RejectPayout(ctx context.Context, payoutID primitive.ObjectID, reason string, actor Actor) (*models.Payout, error) {
	if reason == "" {
		return nil, validationErrorf("rejection reason is required")
	}

	now := time.Now()
	payout, err := s.store.TransitionPayout(ctx, payoutID,
		[]string{models.PayoutStatusRequested},
		repositories.PayoutTransition{
			To:            models.PayoutStatusFailed,
			Entry:         models.StatusHistoryEntry{Status: models.PayoutStatusFailed, ChangedBy: actor.UserID, ChangedAt: now, Note: reason},
			FailureReason: reason,
			ProcessedAt:   &now,
			ProcessedBy:   actor.UserID,
		})
	if err == repositories.ErrStatusConflict {
		return nil, preconditionErrorf("payout %s cannot be rejected from its current status", payoutID.Hex())
	}
	if err != nil {
		return nil, err
	}

	s.releaseClaims(ctx, payout.CommissionIDs, payout.ID)

	recordAudit(ctx, s.store, actor, models.AuditActionPayoutFailed, "payout", payout.ID.Hex(),
		map[string]interface{}{"status": models.PayoutStatusRequested},
		map[string]interface{}{"status": payout.Status}, map[string]interface{}{"reason": reason})

	if agent, err := s.store.GetAgent(ctx, payout.AgentID); err == nil {
		s.notifier.NotifyAgent(ctx, agent, websocket.EventPayoutFailed,
			"Payout rejected",
			fmt.Sprintf("Your payout request of %.2f %s was rejected: %s", payout.Amount, payout.Currency, reason),
			map[string]interface{}{"payoutId": payout.ID.Hex(), "reason": reason})
	}
	return payout, nil
}

// GetPayout returns a single payout by id.
func (s *PayoutService) GetPayout(ctx context.Context, id primitive.ObjectID) (*models.Payout, error) {
	return s.store.GetPayout(ctx, id)
}

// ListPayouts returns payouts for the admin or agent views.
func (s *PayoutService) ListPayouts(ctx context.Context, filter repositories.PayoutFilter) ([]models.Payout, error) {
	return s.store.ListPayouts(ctx, filter)
}

func hexIDs(ids []primitive.ObjectID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Hex()
	}
	return out
}

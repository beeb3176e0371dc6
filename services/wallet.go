package services

import (
	"context"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/fly8app/fly8_backend/models"
	"github.com/fly8app/fly8_backend/repositories"
	"github.com/fly8app/fly8_backend/utils"
)

// ComputeWallet projects an agent's wallet from their commission slice.
// The projection is the source of truth; the cached fields on the agent
// document only serve list views.
func ComputeWallet(commissions []models.Commission, settings *models.PlatformSettings) *models.AgentWallet {
	wallet := &models.AgentWallet{Currency: "USD"}
	if settings != nil {
		wallet.PayoutThreshold = settings.PayoutThreshold
		if settings.CommissionCurrency != "" {
			wallet.Currency = settings.CommissionCurrency
		}
	}

	for i := range commissions {
		commission := &commissions[i]
		switch commission.Status {
		case models.CommissionStatusApproved:
			wallet.AvailableBalance += commission.Amount
			wallet.TotalCommissions++
		case models.CommissionStatusPending:
			wallet.PendingBalance += commission.Amount
			wallet.TotalCommissions++
		case models.CommissionStatusPaid:
			wallet.LifetimeEarnings += commission.Amount
			wallet.TotalCommissions++
			if commission.PaidAt != nil &&
				(wallet.LastPayoutDate == nil || commission.PaidAt.After(*wallet.LastPayoutDate)) {
				wallet.LastPayoutDate = commission.PaidAt
				wallet.LastPayoutAmount = commission.Amount
			}
		}
	}

	wallet.AvailableBalance = utils.Round2(wallet.AvailableBalance)
	wallet.PendingBalance = utils.Round2(wallet.PendingBalance)
	wallet.LifetimeEarnings = utils.Round2(wallet.LifetimeEarnings)
	wallet.LastPayoutAmount = utils.Round2(wallet.LastPayoutAmount)
	wallet.IsPayoutEligible = wallet.AvailableBalance >= wallet.PayoutThreshold
	return wallet
}

// GetAgentWallet derives the wallet view from the ledger.
func GetAgentWallet(ctx context.Context, store repositories.Store, agentID primitive.ObjectID) (*models.AgentWallet, error) {
	if _, err := store.GetAgent(ctx, agentID); err != nil {
		return nil, err
	}
	settings, err := store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	commissions, err := store.ListAgentCommissions(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return ComputeWallet(commissions, settings), nil
}

// RefreshAgentEarnings recomputes the cached totalEarnings (paid) and
// pendingEarnings (pending + approved) on the agent document. Called after
// every status-changing write.
func RefreshAgentEarnings(ctx context.Context, store repositories.Store, agentID primitive.ObjectID) error {
	commissions, err := store.ListAgentCommissions(ctx, agentID)
	if err != nil {
		return err
	}
	var totalEarnings, pendingEarnings float64
	for i := range commissions {
		switch commissions[i].Status {
		case models.CommissionStatusPaid:
			totalEarnings += commissions[i].Amount
		case models.CommissionStatusPending, models.CommissionStatusApproved:
			pendingEarnings += commissions[i].Amount
		}
	}
	return store.UpdateAgentEarnings(ctx, agentID, utils.Round2(totalEarnings), utils.Round2(pendingEarnings))
}

// refreshEarningsBestEffort logs instead of propagating; the cache lagging
// behind the ledger is acceptable, failing the transition is not.
func refreshEarningsBestEffort(ctx context.Context, store repositories.Store, agentID primitive.ObjectID) {
	if err := RefreshAgentEarnings(ctx, store, agentID); err != nil {
		log.Printf("Failed to refresh cached earnings for agent %s: %v", agentID.Hex(), err)
	}
}

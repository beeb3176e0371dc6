package services

import "github.com/fly8app/fly8_backend/models"

const fallbackCommissionRate = 10.0

// ResolveRate computes the commission percentage for a new commission.
//
// The base rate is the agent's override when set, otherwise the platform
// default, otherwise 10. A tier can only raise the rate: the tier with the
// greatest minStudents not exceeding the agent's completed count is
// considered, and applied only when its rate beats the base. Ties on
// minStudents resolve to the larger rate.
func ResolveRate(agent *models.Agent, settings *models.PlatformSettings, agentCompletedCount int64) (float64, *models.TierSnapshot) {
	rate := fallbackCommissionRate
	if settings != nil && settings.DefaultAgentCommission > 0 {
		rate = settings.DefaultAgentCommission
	}
	if agent != nil && agent.CommissionPercentage != nil && *agent.CommissionPercentage > 0 {
		rate = *agent.CommissionPercentage
	}

	if settings == nil || len(settings.CommissionTiers) == 0 {
		return rate, nil
	}

	var best *models.CommissionTier
	for i := range settings.CommissionTiers {
		tier := &settings.CommissionTiers[i]
		if int64(tier.MinStudents) > agentCompletedCount {
			continue
		}
		if best == nil ||
			tier.MinStudents > best.MinStudents ||
			(tier.MinStudents == best.MinStudents && tier.CommissionRate > best.CommissionRate) {
			best = tier
		}
	}
	if best == nil || best.CommissionRate <= rate {
		return rate, nil
	}
	return best.CommissionRate, &models.TierSnapshot{
		MinStudents:    best.MinStudents,
		CommissionRate: best.CommissionRate,
	}
}

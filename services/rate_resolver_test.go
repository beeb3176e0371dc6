package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fly8app/fly8_backend/models"
)

func floatPtr(v float64) *float64 { return &v }

func TestResolveRate_Fallbacks(t *testing.T) {
	rate, tier := ResolveRate(nil, nil, 0)
	assert.Equal(t, 10.0, rate)
	assert.Nil(t, tier)

	rate, _ = ResolveRate(nil, &models.PlatformSettings{DefaultAgentCommission: 8}, 0)
	assert.Equal(t, 8.0, rate)

	agent := &models.Agent{CommissionPercentage: floatPtr(14)}
	rate, _ = ResolveRate(agent, &models.PlatformSettings{DefaultAgentCommission: 8}, 0)
	assert.Equal(t, 14.0, rate, "agent override beats the platform default")
}

func TestResolveRate_TierOnlyRaises(t *testing.T) {
	settings := &models.PlatformSettings{
		DefaultAgentCommission: 10,
		CommissionTiers: []models.CommissionTier{
			{MinStudents: 0, CommissionRate: 8},
			{MinStudents: 5, CommissionRate: 12},
			{MinStudents: 20, CommissionRate: 15},
		},
	}

	// Below every raising tier the base rate stands; the 8% tier never
	// lowers it.
	rate, tier := ResolveRate(nil, settings, 3)
	assert.Equal(t, 10.0, rate)
	assert.Nil(t, tier)

	rate, tier = ResolveRate(nil, settings, 5)
	assert.Equal(t, 12.0, rate)
	require.NotNil(t, tier)
	assert.Equal(t, 5, tier.MinStudents)

	rate, tier = ResolveRate(nil, settings, 40)
	assert.Equal(t, 15.0, rate)
	require.NotNil(t, tier)
	assert.Equal(t, 20, tier.MinStudents)

	// A high agent override floors the result even in the top tier.
	agent := &models.Agent{CommissionPercentage: floatPtr(18)}
	rate, tier = ResolveRate(agent, settings, 40)
	assert.Equal(t, 18.0, rate)
	assert.Nil(t, tier)
}

func TestResolveRate_TieOnMinStudents(t *testing.T) {
	settings := &models.PlatformSettings{
		DefaultAgentCommission: 10,
		CommissionTiers: []models.CommissionTier{
			{MinStudents: 5, CommissionRate: 11},
			{MinStudents: 5, CommissionRate: 13},
		},
	}
	rate, tier := ResolveRate(nil, settings, 6)
	assert.Equal(t, 13.0, rate, "tie on minStudents resolves to the larger rate")
	require.NotNil(t, tier)
	assert.Equal(t, 13.0, tier.CommissionRate)
}

package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fly8app/fly8_backend/models"
	"github.com/fly8app/fly8_backend/repositories"
)

// SettingsController owns the platform commission settings singleton.
type SettingsController struct {
	store repositories.Store
}

func NewSettingsController(store repositories.Store) *SettingsController {
	return &SettingsController{store: store}
}

// GetCommissionSettings returns the current platform settings.
func (sc *SettingsController) GetCommissionSettings(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	settings, err := sc.store.GetSettings(ctx)
	if err != nil {
		return engineErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commission settings retrieved successfully",
		Data:    settings,
	})
}

// UpdateSettingsRequest is the admin payload for the settings singleton.
// Tiers replace the existing list wholesale.
type UpdateSettingsRequest struct {
	DefaultAgentCommission float64                 `json:"defaultAgentCommission" validate:"gte=0,lte=100"`
	CommissionTiers        []models.CommissionTier `json:"commissionTiers" validate:"dive"`
	AutoApproveCommissions bool                    `json:"autoApproveCommissions"`
	PayoutThreshold        float64                 `json:"payoutThreshold" validate:"gte=0"`
	CommissionCurrency     string                  `json:"commissionCurrency"`
	ServiceFees            models.ServiceFees      `json:"serviceFees"`
}

// UpdateCommissionSettings replaces the settings singleton and invalidates
// the settings cache.
func (sc *SettingsController) UpdateCommissionSettings(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var req UpdateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid settings payload",
			Data:    err.Error(),
		})
	}
	for _, tier := range req.CommissionTiers {
		if tier.MinStudents < 0 || tier.CommissionRate < 0 || tier.CommissionRate > 100 {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid commission tier configuration",
			})
		}
	}

	currency := req.CommissionCurrency
	if currency == "" {
		currency = "USD"
	}

	actor := actorFromContext(c)
	settings := &models.PlatformSettings{
		DefaultAgentCommission: req.DefaultAgentCommission,
		CommissionTiers:        req.CommissionTiers,
		AutoApproveCommissions: req.AutoApproveCommissions,
		PayoutThreshold:        req.PayoutThreshold,
		CommissionCurrency:     currency,
		ServiceFees:            req.ServiceFees,
		UpdatedBy:              actor.UserID,
		UpdatedAt:              time.Now(),
	}
	if err := sc.store.UpdateSettings(ctx, settings); err != nil {
		return engineErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commission settings updated successfully",
		Data:    settings,
	})
}

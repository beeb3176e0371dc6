package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/fly8app/fly8_backend/models"
	"github.com/fly8app/fly8_backend/repositories"
	"github.com/fly8app/fly8_backend/services"
)

// PayoutController exposes the admin side of the payout ledger.
type PayoutController struct {
	service *services.PayoutService
}

func NewPayoutController(service *services.PayoutService) *PayoutController {
	return &PayoutController{service: service}
}

// GetPayouts lists payout requests, optionally filtered by status or agent.
func (pc *PayoutController) GetPayouts(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	filter := repositories.PayoutFilter{Status: c.QueryParam("status")}
	if agentParam := c.QueryParam("agentId"); agentParam != "" {
		agentID, err := primitive.ObjectIDFromHex(agentParam)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid agent ID format",
			})
		}
		filter.AgentID = &agentID
	}

	payouts, err := pc.service.ListPayouts(ctx, filter)
	if err != nil {
		return engineErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payouts retrieved successfully",
		Data:    payouts,
	})
}

// GetPayout returns a single payout request.
func (pc *PayoutController) GetPayout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid payout ID format",
		})
	}

	payout, err := pc.service.GetPayout(ctx, id)
	if err != nil {
		return engineErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payout retrieved successfully",
		Data:    payout,
	})
}

// ProcessPayoutRequest carries the bank transfer reference confirming the
// money actually moved.
type ProcessPayoutRequest struct {
	ExternalReference string `json:"externalReference" validate:"required"`
	Note              string `json:"note"`
}

// ProcessPayout completes a payout and settles its linked commissions.
func (pc *PayoutController) ProcessPayout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid payout ID format",
		})
	}

	var req ProcessPayoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "External reference is required",
		})
	}

	payout, err := pc.service.ProcessPayout(ctx, id, req.ExternalReference, req.Note, actorFromContext(c))
	if err != nil {
		return engineErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payout processed successfully",
		Data:    payout,
	})
}

// RejectPayoutRequest carries the mandatory failure reason.
type RejectPayoutRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// RejectPayout fails a pending payout request and releases its commissions.
func (pc *PayoutController) RejectPayout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid payout ID format",
		})
	}

	var req RejectPayoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Rejection reason is required",
		})
	}

	payout, err := pc.service.RejectPayout(ctx, id, req.Reason, actorFromContext(c))
	if err != nil {
		return engineErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payout rejected",
		Data:    payout,
	})
}

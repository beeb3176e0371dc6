package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/fly8app/fly8_backend/models"
	"github.com/fly8app/fly8_backend/repositories"
	"github.com/fly8app/fly8_backend/services"
	"github.com/fly8app/fly8_backend/utils"
)

// AgentController serves the agent's own view: wallet, commissions, payouts.
type AgentController struct {
	store   repositories.Store
	payouts *services.PayoutService
}

func NewAgentController(store repositories.Store, payouts *services.PayoutService) *AgentController {
	return &AgentController{store: store, payouts: payouts}
}

// currentAgent resolves the agent profile behind the authenticated user.
// Token failures are normalized to echo.ErrUnauthorized so callers can tell
// them apart from store errors.
func (ac *AgentController) currentAgent(ctx context.Context, c echo.Context) (*models.Agent, error) {
	userID, err := utils.GetUserIDFromToken(c)
	if err != nil {
		return nil, echo.ErrUnauthorized
	}
	return ac.store.GetAgentByUserID(ctx, userID)
}

// GetWallet projects the agent's wallet from the commission ledger.
func (ac *AgentController) GetWallet(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	agent, err := ac.currentAgent(ctx, c)
	if err != nil {
		return agentLookupError(c, err)
	}

	wallet, err := services.GetAgentWallet(ctx, ac.store, agent.ID)
	if err != nil {
		return engineErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Wallet retrieved successfully",
		Data:    wallet,
	})
}

// GetMyCommissions lists the agent's own commissions.
func (ac *AgentController) GetMyCommissions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	agent, err := ac.currentAgent(ctx, c)
	if err != nil {
		return agentLookupError(c, err)
	}

	page, _ := strconv.ParseInt(c.QueryParam("page"), 10, 64)
	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	commissions, total, err := ac.store.ListCommissions(ctx, repositories.CommissionFilter{
		AgentID: &agent.ID,
		Status:  c.QueryParam("status"),
		Page:    page,
		Limit:   limit,
	})
	if err != nil {
		return engineErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commissions retrieved successfully",
		Data: map[string]interface{}{
			"commissions": commissions,
			"total":       total,
			"page":        page,
			"limit":       limit,
		},
	})
}

// PayoutRequestBody is the agent's payout request payload.
type PayoutRequestBody struct {
	CommissionIDs []string `json:"commissionIds" validate:"required,min=1"`
	PayoutMethod  string   `json:"payoutMethod"`
	Note          string   `json:"note"`
}

// RequestPayout opens a payout over the agent's approved commissions.
func (ac *AgentController) RequestPayout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	agent, err := ac.currentAgent(ctx, c)
	if err != nil {
		return agentLookupError(c, err)
	}

	var req PayoutRequestBody
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "At least one commission ID is required",
		})
	}

	commissionIDs := make([]primitive.ObjectID, 0, len(req.CommissionIDs))
	for _, raw := range req.CommissionIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid commission ID format: " + raw,
			})
		}
		commissionIDs = append(commissionIDs, id)
	}

	payout, err := ac.payouts.RequestPayout(ctx, agent.ID, commissionIDs, req.PayoutMethod, req.Note)
	if err != nil {
		return engineErrorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Payout requested successfully",
		Data:    payout,
	})
}

// GetMyPayouts lists the agent's own payout requests.
func (ac *AgentController) GetMyPayouts(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	agent, err := ac.currentAgent(ctx, c)
	if err != nil {
		return agentLookupError(c, err)
	}

	payouts, err := ac.payouts.ListPayouts(ctx, repositories.PayoutFilter{
		AgentID: &agent.ID,
		Status:  c.QueryParam("status"),
	})
	if err != nil {
		return engineErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payouts retrieved successfully",
		Data:    payouts,
	})
}

func agentLookupError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, echo.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid or missing authentication token",
		})
	case services.IsNotFound(err):
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Agent profile not found",
		})
	default:
		return engineErrorResponse(c, err)
	}
}

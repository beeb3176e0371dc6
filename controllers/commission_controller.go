package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/fly8app/fly8_backend/models"
	"github.com/fly8app/fly8_backend/repositories"
	"github.com/fly8app/fly8_backend/services"
)

// CommissionController exposes the admin side of the commission ledger.
type CommissionController struct {
	service *services.CommissionService
}

func NewCommissionController(service *services.CommissionService) *CommissionController {
	return &CommissionController{service: service}
}

func actorFromContext(c echo.Context) services.Actor {
	userID, _ := c.Get("userId").(string)
	userType, _ := c.Get("userType").(string)
	return services.Actor{UserID: userID, Role: userType}
}

// GetCommissions returns a page of commissions with the status summary.
func (cc *CommissionController) GetCommissions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	page, _ := strconv.ParseInt(c.QueryParam("page"), 10, 64)
	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	filter := repositories.CommissionFilter{
		Status: c.QueryParam("status"),
		Page:   page,
		Limit:  limit,
	}
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

	commissions, total, summary, err := cc.service.ListCommissions(ctx, filter)
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
			"summary":     summary,
		},
	})
}

// ApproveCommission moves a pending commission to approved.
func (cc *CommissionController) ApproveCommission(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid commission ID format",
		})
	}

	commission, err := cc.service.Approve(ctx, id, actorFromContext(c))
	if err != nil {
		return engineErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commission approved successfully",
		Data:    commission,
	})
}

// RejectCommissionRequest carries the mandatory rejection reason.
type RejectCommissionRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// RejectCommission moves a pending commission to rejected.
func (cc *CommissionController) RejectCommission(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid commission ID format",
		})
	}

	var req RejectCommissionRequest
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

	commission, err := cc.service.Reject(ctx, id, req.Reason, actorFromContext(c))
	if err != nil {
		return engineErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commission rejected",
		Data:    commission,
	})
}

// MarkPaidRequest carries the external transfer reference for a direct payment.
type MarkPaidRequest struct {
	ExternalReference string `json:"externalReference" validate:"required"`
}

// MarkCommissionPaid settles an approved commission outside a payout batch.
func (cc *CommissionController) MarkCommissionPaid(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid commission ID format",
		})
	}

	var req MarkPaidRequest
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

	commission, err := cc.service.MarkPaidDirect(ctx, id, req.ExternalReference, actorFromContext(c))
	if err != nil {
		return engineErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commission marked as paid",
		Data:    commission,
	})
}

// ManualCommissionRequest is the admin payload for a manually entered commission.
type ManualCommissionRequest struct {
	AgentID        string  `json:"agentId" validate:"required"`
	StudentID      string  `json:"studentId"`
	Amount         float64 `json:"amount" validate:"required,gt=0"`
	CommissionType string  `json:"commissionType" validate:"required,oneof=APPLICATION VAS"`
	Description    string  `json:"description"`
	Note           string  `json:"note"`
}

// CreateManualCommission records an admin-entered commission.
func (cc *CommissionController) CreateManualCommission(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var req ManualCommissionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid manual commission payload",
			Data:    err.Error(),
		})
	}

	agentID, err := primitive.ObjectIDFromHex(req.AgentID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid agent ID format",
		})
	}
	input := services.ManualCommissionInput{
		AgentID:        agentID,
		Amount:         req.Amount,
		CommissionType: req.CommissionType,
		Description:    req.Description,
		Note:           req.Note,
	}
	if req.StudentID != "" {
		studentID, err := primitive.ObjectIDFromHex(req.StudentID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid student ID format",
			})
		}
		input.StudentID = studentID
	}

	commission, err := cc.service.CreateManual(ctx, input, actorFromContext(c))
	if err != nil {
		return engineErrorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Commission created successfully",
		Data:    commission,
	})
}

// BulkApproveRequest lists the commission ids to approve.
type BulkApproveRequest struct {
	IDs []string `json:"ids" validate:"required,min=1"`
}

// BulkApproveCommissions approves every listed pending commission.
func (cc *CommissionController) BulkApproveCommissions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var req BulkApproveRequest
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

	ids := make([]primitive.ObjectID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid commission ID format: " + raw,
			})
		}
		ids = append(ids, id)
	}

	result, err := cc.service.BulkApprove(ctx, ids, actorFromContext(c))
	if err != nil {
		return engineErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Bulk approval completed",
		Data:    result,
	})
}

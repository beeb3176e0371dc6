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

var commissionCountedStatuses = []string{
	models.CommissionStatusPending,
	models.CommissionStatusApproved,
	models.CommissionStatusPaid,
}

// CommissionService owns the commission ledger: idempotent creation from
// completed applications and service requests, and the admin approval
// workflow.
type CommissionService struct {
	store    repositories.Store
	notifier *Notifier
}

func NewCommissionService(store repositories.Store, notifier *Notifier) *CommissionService {
	return &CommissionService{store: store, notifier: notifier}
}

// CreateApplicationCommission converts a completed university application
// into a commission. Repeat deliveries of the same trigger return the
// existing commission unchanged. A nil commission with a nil error means the
// trigger was a deliberate no-op (no agent, or agent inactive).
func (s *CommissionService) CreateApplicationCommission(ctx context.Context, app *models.Application, actor Actor) (*models.Commission, bool, error) {
	if app == nil || app.ID.IsZero() {
		return nil, false, validationErrorf("application is required")
	}
	if app.Status != models.ApplicationStatusCompleted {
		return nil, false, validationErrorf("application %s is not completed", app.ID.Hex())
	}
	if app.AgentID == nil || app.AgentID.IsZero() {
		log.Printf("Application %s completed without an agent; no commission", app.ID.Hex())
		return nil, false, nil
	}

	if existing, err := s.store.FindCommissionByApplication(ctx, app.ID); err != nil {
		return nil, false, err
	} else if existing != nil {
		return existing, false, nil
	}

	agent, err := s.store.GetAgent(ctx, *app.AgentID)
	if err != nil {
		return nil, false, err
	}
	if !agent.IsActive {
		log.Printf("Agent %s is inactive; skipping commission for application %s", agent.ID.Hex(), app.ID.Hex())
		return nil, false, nil
	}

	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return nil, false, err
	}

	completedCount, err := s.store.CountAgentCommissions(ctx, agent.ID, models.CommissionTypeApplication, commissionCountedStatuses)
	if err != nil {
		return nil, false, err
	}
	percentage, tier := ResolveRate(agent, settings, completedCount)

	baseAmount := DefaultApplicationBaseAmount
	defaulted := true
	if university, err := s.store.GetUniversityByCode(ctx, app.UniversityCode); err == nil {
		baseAmount, defaulted = BaseAmountFromTuition(university.Tuition)
	} else if !IsNotFound(err) {
		return nil, false, err
	}

	description := fmt.Sprintf("Commission for application to %s (%s)", app.UniversityName, app.ProgramName)
	if defaulted {
		description += " [base amount defaulted]"
	}

	appID := app.ID
	commission := &models.Commission{
		ReferenceID:    utils.GenerateReferenceID("APP"),
		AgentID:        agent.ID,
		StudentID:      app.StudentID,
		CommissionType: models.CommissionTypeApplication,
		ApplicationID:  &appID,
		UniversityName: app.UniversityName,
		UniversityCode: app.UniversityCode,
		ProgramName:    app.ProgramName,
		BaseAmount:     baseAmount,
		Percentage:     percentage,
		TierApplied:    tier,
		Description:    description,
	}
	return s.finalizeCreate(ctx, commission, agent, settings, actor, map[string]interface{}{
		"applicationId":    app.ID.Hex(),
		"baseAmountSource": baseAmountSource(defaulted),
	})
}

// CreateVASCommission converts a completed value-added service request into
// a commission, with the same idempotency and no-op semantics as the
// application trigger.
func (s *CommissionService) CreateVASCommission(ctx context.Context, request *models.ServiceRequest, actor Actor) (*models.Commission, bool, error) {
	if request == nil || request.ID.IsZero() {
		return nil, false, validationErrorf("service request is required")
	}
	if request.Status != models.ApplicationStatusCompleted {
		return nil, false, validationErrorf("service request %s is not completed", request.ID.Hex())
	}
	if request.AssignedAgent == nil || request.AssignedAgent.IsZero() {
		log.Printf("Service request %s completed without an assigned agent; no commission", request.ID.Hex())
		return nil, false, nil
	}

	if existing, err := s.store.FindCommissionByServiceRequest(ctx, request.ID); err != nil {
		return nil, false, err
	} else if existing != nil {
		return existing, false, nil
	}

	agent, err := s.store.GetAgent(ctx, *request.AssignedAgent)
	if err != nil {
		return nil, false, err
	}
	if !agent.IsActive {
		log.Printf("Agent %s is inactive; skipping commission for service request %s", agent.ID.Hex(), request.ID.Hex())
		return nil, false, nil
	}

	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return nil, false, err
	}

	completedCount, err := s.store.CountAgentCommissions(ctx, agent.ID, models.CommissionTypeVAS, commissionCountedStatuses)
	if err != nil {
		return nil, false, err
	}
	percentage, tier := ResolveRate(agent, settings, completedCount)
	baseAmount, defaulted := BaseAmountForService(settings, request.ServiceType)

	description := fmt.Sprintf("Commission for %s service", request.ServiceType)
	if defaulted {
		description += " [base amount defaulted]"
	}

	requestID := request.ID
	commission := &models.Commission{
		ReferenceID:      utils.GenerateReferenceID("VAS"),
		AgentID:          agent.ID,
		StudentID:        request.StudentID,
		CommissionType:   models.CommissionTypeVAS,
		ServiceRequestID: &requestID,
		ServiceType:      request.ServiceType,
		BaseAmount:       baseAmount,
		Percentage:       percentage,
		TierApplied:      tier,
		Description:      description,
	}
	return s.finalizeCreate(ctx, commission, agent, settings, actor, map[string]interface{}{
		"serviceRequestId": request.ID.Hex(),
		"baseAmountSource": baseAmountSource(defaulted),
	})
}

func baseAmountSource(defaulted bool) string {
	if defaulted {
		return "default"
	}
	return "source"
}

// finalizeCreate computes the amount, applies the auto-approve policy,
// persists, and fires the side effects. A duplicate-key insert loses the
// race to a concurrent trigger and returns the winner's commission.
func (s *CommissionService) finalizeCreate(ctx context.Context, commission *models.Commission, agent *models.Agent, settings *models.PlatformSettings, actor Actor, auditDetails map[string]interface{}) (*models.Commission, bool, error) {
	now := time.Now()
	commission.Amount = utils.Round2(commission.BaseAmount * commission.Percentage / 100)
	commission.Currency = settings.CommissionCurrency
	if commission.Currency == "" {
		commission.Currency = "USD"
	}
	commission.CreatedAt = now
	commission.UpdatedAt = now

	commission.Status = models.CommissionStatusPending
	if settings.AutoApproveCommissions {
		commission.Status = models.CommissionStatusApproved
		commission.ApprovedBy = SystemActor.UserID
		commission.ApprovedAt = &now
		seq, err := s.store.NextInvoiceSeq(ctx, now.Year())
		if err != nil {
			return nil, false, err
		}
		commission.InvoiceNumber = utils.FormatCommissionInvoice(now.Year(), seq)
	}
	changedBy := actor.UserID
	if settings.AutoApproveCommissions {
		changedBy = SystemActor.UserID
	}
	commission.StatusHistory = []models.StatusHistoryEntry{{
		Status:    commission.Status,
		ChangedBy: changedBy,
		ChangedAt: now,
	}}

	if err := s.store.InsertCommission(ctx, commission); err != nil {
		if err == repositories.ErrDuplicateSource {
			existing, lookupErr := s.findBySameSource(ctx, commission)
			if lookupErr != nil {
				return nil, false, lookupErr
			}
			if existing != nil {
				return existing, false, nil
			}
			return nil, false, conflictErrorf("commission already exists for source entity")
		}
		return nil, false, err
	}

	refreshEarningsBestEffort(ctx, s.store, agent.ID)

	auditDetails["agentId"] = agent.ID.Hex()
	auditDetails["amount"] = commission.Amount
	auditDetails["commissionType"] = commission.CommissionType
	recordAudit(ctx, s.store, actor, models.AuditActionCommissionCreated, "commission", commission.ID.Hex(),
		nil, map[string]interface{}{"status": commission.Status, "invoiceNumber": commission.InvoiceNumber}, auditDetails)

	metadata := map[string]interface{}{
		"commissionId": commission.ID.Hex(),
		"referenceId":  commission.ReferenceID,
		"amount":       commission.Amount,
		"currency":     commission.Currency,
	}
	s.notifier.NotifyAgent(ctx, agent, websocket.EventCommissionCreated,
		"New commission earned",
		fmt.Sprintf("You earned a commission of %.2f %s (%s)", commission.Amount, commission.Currency, commission.ReferenceID),
		metadata)
	if settings.AutoApproveCommissions {
		s.notifier.NotifyAgent(ctx, agent, websocket.EventCommissionApproved,
			"Commission approved",
			fmt.Sprintf("Commission %s was auto-approved", commission.ReferenceID),
			metadata)
	} else {
		s.notifier.NotifyAdmins(ctx, websocket.EventCommissionCreated,
			"Commission pending review",
			fmt.Sprintf("Commission %s of %.2f %s for agent %s awaits approval", commission.ReferenceID, commission.Amount, commission.Currency, agent.FullName),
			metadata, "")
	}

	return commission, true, nil
}

func (s *CommissionService) findBySameSource(ctx context.Context, commission *models.Commission) (*models.Commission, error) {
	if commission.ApplicationID != nil {
		return s.store.FindCommissionByApplication(ctx, *commission.ApplicationID)
	}
	if commission.ServiceRequestID != nil {
		return s.store.FindCommissionByServiceRequest(ctx, *commission.ServiceRequestID)
	}
	return nil, nil
}

// Approve moves a pending commission to approved and assigns its invoice
// number. The underlying write is conditional on the commission still being
// pending, so concurrent approvals resolve to a single winner.
func (s *CommissionService) Approve(ctx context.Context, id primitive.ObjectID, actor Actor) (*models.Commission, error) {
	commission, err := s.store.GetCommission(ctx, id)
	if err != nil {
		return nil, err
	}
	if commission.Status != models.CommissionStatusPending {
		return nil, preconditionErrorf("commission %s is %s, not pending", commission.ReferenceID, commission.Status)
	}

	now := time.Now()
	invoiceNumber := commission.InvoiceNumber
	if invoiceNumber == "" {
		seq, err := s.store.NextInvoiceSeq(ctx, now.Year())
		if err != nil {
			return nil, err
		}
		invoiceNumber = utils.FormatCommissionInvoice(now.Year(), seq)
	}

	updated, err := s.store.TransitionCommission(ctx, id, models.CommissionStatusPending, repositories.CommissionTransition{
		To:            models.CommissionStatusApproved,
		Entry:         models.StatusHistoryEntry{Status: models.CommissionStatusApproved, ChangedBy: actor.UserID, ChangedAt: now},
		InvoiceNumber: invoiceNumber,
		ApprovedBy:    actor.UserID,
		ApprovedAt:    &now,
	})
	if err == repositories.ErrStatusConflict {
		return nil, preconditionErrorf("commission %s is no longer pending", commission.ReferenceID)
	}
	if err != nil {
		return nil, err
	}

	refreshEarningsBestEffort(ctx, s.store, updated.AgentID)
	recordAudit(ctx, s.store, actor, models.AuditActionCommissionApproved, "commission", updated.ID.Hex(),
		map[string]interface{}{"status": models.CommissionStatusPending},
		map[string]interface{}{"status": updated.Status, "invoiceNumber": updated.InvoiceNumber}, nil)

	if agent, err := s.store.GetAgent(ctx, updated.AgentID); err == nil {
		s.notifier.NotifyAgent(ctx, agent, websocket.EventCommissionApproved,
			"Commission approved",
			fmt.Sprintf("Commission %s of %.2f %s was approved", updated.ReferenceID, updated.Amount, updated.Currency),
			map[string]interface{}{"commissionId": updated.ID.Hex(), "invoiceNumber": updated.InvoiceNumber})
	}
	return updated, nil
}

// Reject moves a pending commission to rejected. A reason is mandatory.
func (s *CommissionService) Reject(ctx context.Context, id primitive.ObjectID, reason string, actor Actor) (*models.Commission, error) {
	if reason == "" {
		return nil, validationErrorf("rejection reason is required")
	}
	commission, err := s.store.GetCommission(ctx, id)
	if err != nil {
		return nil, err
	}
	if commission.Status != models.CommissionStatusPending {
		return nil, preconditionErrorf("commission %s is %s, not pending", commission.ReferenceID, commission.Status)
	}

	now := time.Now()
	updated, err := s.store.TransitionCommission(ctx, id, models.CommissionStatusPending, repositories.CommissionTransition{
		To:              models.CommissionStatusRejected,
		Entry:           models.StatusHistoryEntry{Status: models.CommissionStatusRejected, ChangedBy: actor.UserID, ChangedAt: now, Note: reason},
		RejectedBy:      actor.UserID,
		RejectedAt:      &now,
		RejectionReason: reason,
	})
	if err == repositories.ErrStatusConflict {
		return nil, preconditionErrorf("commission %s is no longer pending", commission.ReferenceID)
	}
	if err != nil {
		return nil, err
	}

	refreshEarningsBestEffort(ctx, s.store, updated.AgentID)
	recordAudit(ctx, s.store, actor, models.AuditActionCommissionRejected, "commission", updated.ID.Hex(),
		map[string]interface{}{"status": models.CommissionStatusPending},
		map[string]interface{}{"status": updated.Status}, map[string]interface{}{"reason": reason})
	return updated, nil
}

// MarkPaidDirect settles an approved commission outside a payout batch,
// recording the external transfer reference supplied by the operator.
func (s *CommissionService) MarkPaidDirect(ctx context.Context, id primitive.ObjectID, externalReference string, actor Actor) (*models.Commission, error) {
	if externalReference == "" {
		return nil, validationErrorf("external reference is required")
	}
	commission, err := s.store.GetCommission(ctx, id)
	if err != nil {
		return nil, err
	}
	if commission.Status != models.CommissionStatusApproved {
		return nil, preconditionErrorf("commission %s is %s, not approved", commission.ReferenceID, commission.Status)
	}

	now := time.Now()
	invoiceNumber := ""
	if commission.InvoiceNumber == "" {
		seq, err := s.store.NextInvoiceSeq(ctx, now.Year())
		if err != nil {
			return nil, err
		}
		invoiceNumber = utils.FormatCommissionInvoice(now.Year(), seq)
	}

	updated, err := s.store.TransitionCommission(ctx, id, models.CommissionStatusApproved, repositories.CommissionTransition{
		To:              models.CommissionStatusPaid,
		Entry:           models.StatusHistoryEntry{Status: models.CommissionStatusPaid, ChangedBy: actor.UserID, ChangedAt: now},
		InvoiceNumber:   invoiceNumber,
		PaidAt:          &now,
		PayoutMethod:    "direct",
		PayoutReference: externalReference,
		ProcessedBy:     actor.UserID,
	})
	if err == repositories.ErrStatusConflict {
		return nil, preconditionErrorf("commission %s is no longer approved", commission.ReferenceID)
	}
	if err != nil {
		return nil, err
	}

	refreshEarningsBestEffort(ctx, s.store, updated.AgentID)
	recordAudit(ctx, s.store, actor, models.AuditActionCommissionPaid, "commission", updated.ID.Hex(),
		map[string]interface{}{"status": models.CommissionStatusApproved},
		map[string]interface{}{"status": updated.Status, "payoutReference": externalReference}, nil)

	if agent, err := s.store.GetAgent(ctx, updated.AgentID); err == nil {
		s.notifier.NotifyAgent(ctx, agent, websocket.EventCommissionPaid,
			"Commission paid",
			fmt.Sprintf("Commission %s of %.2f %s was paid out", updated.ReferenceID, updated.Amount, updated.Currency),
			map[string]interface{}{"commissionId": updated.ID.Hex(), "payoutReference": externalReference})
	}
	return updated, nil
}

// ManualCommissionInput is an admin-entered commission with no source
// entity, e.g. a negotiated correction.
type ManualCommissionInput struct {
	AgentID        primitive.ObjectID
	StudentID      primitive.ObjectID
	Amount         float64
	CommissionType string
	Description    string
	Note           string
}

// CreateManual records an admin-entered commission directly in approved
// status, with a synthetic pending entry so the history reads like any other
// commission.
func (s *CommissionService) CreateManual(ctx context.Context, input ManualCommissionInput, actor Actor) (*models.Commission, error) {
	if input.Amount <= 0 {
		return nil, validationErrorf("amount must be positive")
	}
	if input.CommissionType != models.CommissionTypeApplication && input.CommissionType != models.CommissionTypeVAS {
		return nil, validationErrorf("unknown commission type %q", input.CommissionType)
	}
	agent, err := s.store.GetAgent(ctx, input.AgentID)
	if err != nil {
		return nil, err
	}
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	seq, err := s.store.NextInvoiceSeq(ctx, now.Year())
	if err != nil {
		return nil, err
	}

	kind := "APP"
	if input.CommissionType == models.CommissionTypeVAS {
		kind = "VAS"
	}
	currency := settings.CommissionCurrency
	if currency == "" {
		currency = "USD"
	}
	description := input.Description
	if description == "" {
		description = "Manually created commission"
	}

	commission := &models.Commission{
		ReferenceID:    utils.GenerateReferenceID(kind),
		InvoiceNumber:  utils.FormatCommissionInvoice(now.Year(), seq),
		AgentID:        agent.ID,
		StudentID:      input.StudentID,
		CommissionType: input.CommissionType,
		BaseAmount:     utils.Round2(input.Amount),
		Percentage:     100,
		Amount:         utils.Round2(input.Amount),
		Currency:       currency,
		Description:    description,
		Status:         models.CommissionStatusApproved,
		ApprovedBy:     actor.UserID,
		ApprovedAt:     &now,
		StatusHistory: []models.StatusHistoryEntry{
			{Status: models.CommissionStatusPending, ChangedBy: actor.UserID, ChangedAt: now, Note: "manual creation"},
			{Status: models.CommissionStatusApproved, ChangedBy: actor.UserID, ChangedAt: now, Note: input.Note},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertCommission(ctx, commission); err != nil {
		return nil, err
	}

	refreshEarningsBestEffort(ctx, s.store, agent.ID)
	recordAudit(ctx, s.store, actor, models.AuditActionManualCommission, "commission", commission.ID.Hex(),
		nil, map[string]interface{}{"status": commission.Status, "invoiceNumber": commission.InvoiceNumber, "amount": commission.Amount},
		map[string]interface{}{"agentId": agent.ID.Hex(), "commissionType": commission.CommissionType})

	s.notifier.NotifyAgent(ctx, agent, websocket.EventCommissionApproved,
		"Commission added",
		fmt.Sprintf("A commission of %.2f %s was added to your account", commission.Amount, commission.Currency),
		map[string]interface{}{"commissionId": commission.ID.Hex(), "referenceId": commission.ReferenceID})
	return commission, nil
}

// BulkApproveResult aggregates a bulk approval run.
type BulkApproveResult struct {
	Approved int      `json:"approved"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

// BulkApprove approves each pending commission in ids, skipping those no
// longer pending. Individual failures never abort the batch.
func (s *CommissionService) BulkApprove(ctx context.Context, ids []primitive.ObjectID, actor Actor) (*BulkApproveResult, error) {
	if len(ids) == 0 {
		return nil, validationErrorf("no commission ids provided")
	}
	result := &BulkApproveResult{Errors: []string{}}
	for _, id := range ids {
		_, err := s.Approve(ctx, id, actor)
		switch {
		case err == nil:
			result.Approved++
		case IsPrecondition(err):
			result.Skipped++
		default:
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", id.Hex(), err))
		}
	}
	return result, nil
}

// ListCommissions pages the ledger for the admin view, with the status
// summary alongside.
func (s *CommissionService) ListCommissions(ctx context.Context, filter repositories.CommissionFilter) ([]models.Commission, int64, *repositories.CommissionSummary, error) {
	commissions, total, err := s.store.ListCommissions(ctx, filter)
	if err != nil {
		return nil, 0, nil, err
	}
	summary, err := s.store.GetCommissionSummary(ctx)
	if err != nil {
		return nil, 0, nil, err
	}
	return commissions, total, summary, nil
}

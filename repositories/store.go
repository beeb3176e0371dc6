package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/fly8app/fly8_backend/models"
)

// Storage errors the engine maps onto its error taxonomy.
var (
	// ErrNotFound is returned when the referenced document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicateSource is returned when an insert violates the unique
	// source index (one commission per application / service request).
	ErrDuplicateSource = errors.New("commission already exists for source entity")
	// ErrStatusConflict is returned when a conditional transition finds the
	// document in a different status than expected.
	ErrStatusConflict = errors.New("document not in expected status")
)

// CommissionFilter narrows commission list queries. Zero values mean "any".
type CommissionFilter struct {
	AgentID *primitive.ObjectID
	Status  string
	Page    int64
	Limit   int64
}

// PayoutFilter narrows payout list queries.
type PayoutFilter struct {
	AgentID *primitive.ObjectID
	Status  string
}

// StatusTotal is a count plus amount sum for one commission status.
type StatusTotal struct {
	Count int64   `json:"count"`
	Total float64 `json:"total"`
}

// CommissionSummary aggregates the ledger by status for the admin list view.
type CommissionSummary struct {
	Pending  StatusTotal `json:"pending"`
	Approved StatusTotal `json:"approved"`
	Paid     StatusTotal `json:"paid"`
}

// CommissionTransition carries the fields a status change writes. Zero-value
// fields are left untouched. The store applies it only when the commission is
// currently in the expected status (compare-and-set), so two concurrent
// admins cannot both flip the same pending commission.
type CommissionTransition struct {
	To              string
	Entry           models.StatusHistoryEntry
	InvoiceNumber   string
	ApprovedBy      string
	ApprovedAt      *time.Time
	RejectedBy      string
	RejectedAt      *time.Time
	RejectionReason string
	PaidAt          *time.Time
	PayoutMethod    string
	PayoutReference string
	ProcessedBy     string
}

// PayoutTransition carries the fields a payout status change writes.
type PayoutTransition struct {
	To                string
	Entry             models.StatusHistoryEntry
	InvoiceNumber     string
	ExternalReference string
	AdminNote         string
	FailureReason     string
	ProcessedAt       *time.Time
	ProcessedBy       string
}

// Store is the persistence surface of the commission engine. The Mongo
// implementation backs production; tests run against an in-memory one.
type Store interface {
	// Settings singleton
	GetSettings(ctx context.Context) (*models.PlatformSettings, error)
	UpdateSettings(ctx context.Context, settings *models.PlatformSettings) error

	// Agent registry
	GetAgent(ctx context.Context, id primitive.ObjectID) (*models.Agent, error)
	GetAgentByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Agent, error)
	UpdateAgentEarnings(ctx context.Context, id primitive.ObjectID, totalEarnings, pendingEarnings float64) error

	// University tuition lookup for the base-amount resolver
	GetUniversityByCode(ctx context.Context, code string) (*models.University, error)

	// Commission ledger
	InsertCommission(ctx context.Context, commission *models.Commission) error
	GetCommission(ctx context.Context, id primitive.ObjectID) (*models.Commission, error)
	FindCommissionByApplication(ctx context.Context, applicationID primitive.ObjectID) (*models.Commission, error)
	FindCommissionByServiceRequest(ctx context.Context, serviceRequestID primitive.ObjectID) (*models.Commission, error)
	ListCommissions(ctx context.Context, filter CommissionFilter) ([]models.Commission, int64, error)
	ListAgentCommissions(ctx context.Context, agentID primitive.ObjectID) ([]models.Commission, error)
	CountAgentCommissions(ctx context.Context, agentID primitive.ObjectID, commissionType string, statuses []string) (int64, error)
	GetCommissionSummary(ctx context.Context) (*CommissionSummary, error)
	TransitionCommission(ctx context.Context, id primitive.ObjectID, from string, tr CommissionTransition) (*models.Commission, error)

	// ClaimCommission atomically marks an approved, unclaimed commission as
	// held by the given payout; a lost claim returns ErrStatusConflict.
	// ReleaseCommissionClaim undoes a claim held by that payout.
	ClaimCommission(ctx context.Context, id, payoutID primitive.ObjectID) error
	ReleaseCommissionClaim(ctx context.Context, id, payoutID primitive.ObjectID) error

	// Payout ledger
	InsertPayout(ctx context.Context, payout *models.Payout) error
	GetPayout(ctx context.Context, id primitive.ObjectID) (*models.Payout, error)
	ListPayouts(ctx context.Context, filter PayoutFilter) ([]models.Payout, error)
	FindOpenPayoutHolding(ctx context.Context, commissionIDs []primitive.ObjectID) (*models.Payout, error)
	TransitionPayout(ctx context.Context, id primitive.ObjectID, from []string, tr PayoutTransition) (*models.Payout, error)

	// Invoice sequencer counter
	NextInvoiceSeq(ctx context.Context, year int) (int64, error)

	// Audit sink
	InsertAuditLog(ctx context.Context, entry *models.AuditLog) error

	// Notifications
	InsertNotification(ctx context.Context, notification *models.Notification) error
	ListNotifications(ctx context.Context, recipientID primitive.ObjectID, limit int64) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, recipientID primitive.ObjectID) error

	// Platform users
	ListActiveSuperAdmins(ctx context.Context) ([]models.User, error)
}

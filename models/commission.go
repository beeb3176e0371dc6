package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Commission types
const (
	CommissionTypeApplication = "APPLICATION"
	CommissionTypeVAS         = "VAS"
)

// Commission statuses
const (
	CommissionStatusPending   = "pending"
	CommissionStatusApproved  = "approved"
	CommissionStatusPaid      = "paid"
	CommissionStatusRejected  = "rejected"
	CommissionStatusCancelled = "cancelled"
)

// StatusHistoryEntry records a single status change on a commission or payout
type StatusHistoryEntry struct {
	Status    string    `json:"status" bson:"status"`
	ChangedBy string    `json:"changedBy" bson:"changedBy"`
	ChangedAt time.Time `json:"changedAt" bson:"changedAt"`
	Note      string    `json:"note,omitempty" bson:"note,omitempty"`
}

// TierSnapshot is the tier row that was applied when the commission was created
type TierSnapshot struct {
	MinStudents    int     `json:"minStudents" bson:"minStudents"`
	CommissionRate float64 `json:"commissionRate" bson:"commissionRate"`
}

// Commission is one payment obligation to an agent, created when an
// application or a value-added service request reaches Completed.
type Commission struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ReferenceID    string             `json:"referenceId" bson:"referenceId"`
	InvoiceNumber  string             `json:"invoiceNumber,omitempty" bson:"invoiceNumber,omitempty"`
	AgentID        primitive.ObjectID `json:"agentId" bson:"agentId"`
	StudentID      primitive.ObjectID `json:"studentId" bson:"studentId"`
	CommissionType string             `json:"commissionType" bson:"commissionType"`

	// Source link: exactly one of ApplicationID / ServiceRequestID is set,
	// matching CommissionType.
	ApplicationID    *primitive.ObjectID `json:"applicationId,omitempty" bson:"applicationId,omitempty"`
	UniversityName   string              `json:"universityName,omitempty" bson:"universityName,omitempty"`
	UniversityCode   string              `json:"universityCode,omitempty" bson:"universityCode,omitempty"`
	ProgramName      string              `json:"programName,omitempty" bson:"programName,omitempty"`
	ServiceRequestID *primitive.ObjectID `json:"serviceRequestId,omitempty" bson:"serviceRequestId,omitempty"`
	ServiceType      string              `json:"serviceType,omitempty" bson:"serviceType,omitempty"`

	BaseAmount  float64       `json:"baseAmount" bson:"baseAmount"`
	Percentage  float64       `json:"percentage" bson:"percentage"`
	Amount      float64       `json:"amount" bson:"amount"`
	Currency    string        `json:"currency" bson:"currency"`
	TierApplied *TierSnapshot `json:"tierApplied,omitempty" bson:"tierApplied,omitempty"`
	Description string        `json:"description,omitempty" bson:"description,omitempty"`

	Status        string               `json:"status" bson:"status"`
	StatusHistory []StatusHistoryEntry `json:"statusHistory" bson:"statusHistory"`

	ApprovedBy      string     `json:"approvedBy,omitempty" bson:"approvedBy,omitempty"`
	ApprovedAt      *time.Time `json:"approvedAt,omitempty" bson:"approvedAt,omitempty"`
	RejectedBy      string     `json:"rejectedBy,omitempty" bson:"rejectedBy,omitempty"`
	RejectedAt      *time.Time `json:"rejectedAt,omitempty" bson:"rejectedAt,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty" bson:"rejectionReason,omitempty"`
	PaidAt          *time.Time `json:"paidAt,omitempty" bson:"paidAt,omitempty"`
	PayoutMethod    string     `json:"payoutMethod,omitempty" bson:"payoutMethod,omitempty"`
	PayoutReference string     `json:"payoutReference,omitempty" bson:"payoutReference,omitempty"`
	ProcessedBy     string     `json:"processedBy,omitempty" bson:"processedBy,omitempty"`

	// PayoutClaimID marks the payout currently holding this commission. It is
	// taken with a conditional write at request time, so two concurrent payout
	// requests over the same commission resolve to a single winner.
	PayoutClaimID *primitive.ObjectID `json:"payoutClaimId,omitempty" bson:"payoutClaimId,omitempty"`

	IsDeleted bool      `json:"isDeleted" bson:"isDeleted"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// legalTransitions is the full set of allowed commission status changes.
// paid, rejected and cancelled are terminal.
var legalTransitions = map[string][]string{
	CommissionStatusPending:  {CommissionStatusApproved, CommissionStatusRejected, CommissionStatusCancelled},
	CommissionStatusApproved: {CommissionStatusPaid, CommissionStatusCancelled},
}

// CanTransition reports whether a commission may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CurrentStatusMatchesHistory reports whether the last history entry agrees
// with the current status.
func (cm *Commission) CurrentStatusMatchesHistory() bool {
	if len(cm.StatusHistory) == 0 {
		return false
	}
	return cm.StatusHistory[len(cm.StatusHistory)-1].Status == cm.Status
}

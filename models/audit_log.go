package models

import "time"

// Audit actions emitted by the commission engine.
const (
	AuditActionCommissionCreated  = "commission_created"
	AuditActionCommissionApproved = "commission_approved"
	AuditActionCommissionRejected = "commission_rejected"
	AuditActionCommissionPaid     = "commission_paid"
	AuditActionManualCommission   = "commission_manual_created"
	AuditActionPayoutRequested    = "payout_requested"
	AuditActionPayoutCompleted    = "payout_completed"
	AuditActionPayoutFailed       = "payout_failed"
)

// AuditLog is one append-only record of a state transition or manual
// creation. The engine never deletes audit entries.
type AuditLog struct {
	LogID         string      `json:"logId" bson:"logId"`
	ActorUserID   string      `json:"actorUserId" bson:"actorUserId"`
	ActorRole     string      `json:"actorRole" bson:"actorRole"`
	Action        string      `json:"action" bson:"action"`
	EntityType    string      `json:"entityType" bson:"entityType"`
	EntityID      string      `json:"entityId" bson:"entityId"`
	PreviousState interface{} `json:"previousState,omitempty" bson:"previousState,omitempty"`
	NewState      interface{} `json:"newState,omitempty" bson:"newState,omitempty"`
	Details       interface{} `json:"details,omitempty" bson:"details,omitempty"`
	Timestamp     time.Time   `json:"timestamp" bson:"timestamp"`
}

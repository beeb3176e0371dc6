package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payout statuses
const (
	PayoutStatusRequested  = "requested"
	PayoutStatusProcessing = "processing"
	PayoutStatusCompleted  = "completed"
	PayoutStatusFailed     = "failed"
	PayoutStatusCancelled  = "cancelled"
)

// BankDetails is the payout destination captured on the agent profile.
// A payout freezes a copy at request time so later profile edits cannot
// redirect an in-flight transfer.
type BankDetails struct {
	AccountHolder string `json:"accountHolder,omitempty" bson:"accountHolder,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty" bson:"accountNumber,omitempty"`
	BankName      string `json:"bankName,omitempty" bson:"bankName,omitempty"`
	SwiftCode     string `json:"swiftCode,omitempty" bson:"swiftCode,omitempty"`
	IBAN          string `json:"iban,omitempty" bson:"iban,omitempty"`
	Country       string `json:"country,omitempty" bson:"country,omitempty"`
}

// Payout groups approved commissions into a single external transfer
// requested by an agent and processed by a super admin.
type Payout struct {
	ID                  primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	AgentID             primitive.ObjectID   `json:"agentId" bson:"agentId"`
	Amount              float64              `json:"amount" bson:"amount"`
	Currency            string               `json:"currency" bson:"currency"`
	CommissionIDs       []primitive.ObjectID `json:"commissionIds" bson:"commissionIds"`
	Status              string               `json:"status" bson:"status"`
	StatusHistory       []StatusHistoryEntry `json:"statusHistory" bson:"statusHistory"`
	PayoutMethod        string               `json:"payoutMethod" bson:"payoutMethod"`
	BankDetailsSnapshot *BankDetails         `json:"bankDetailsSnapshot,omitempty" bson:"bankDetailsSnapshot,omitempty"`
	ExternalReference   string               `json:"externalReference,omitempty" bson:"externalReference,omitempty"`
	InvoiceNumber       string               `json:"invoiceNumber,omitempty" bson:"invoiceNumber,omitempty"`
	AgentNote           string               `json:"agentNote,omitempty" bson:"agentNote,omitempty"`
	AdminNote           string               `json:"adminNote,omitempty" bson:"adminNote,omitempty"`
	FailureReason       string               `json:"failureReason,omitempty" bson:"failureReason,omitempty"`
	RequestedAt         time.Time            `json:"requestedAt" bson:"requestedAt"`
	ProcessedAt         *time.Time           `json:"processedAt,omitempty" bson:"processedAt,omitempty"`
	ProcessedBy         string               `json:"processedBy,omitempty" bson:"processedBy,omitempty"`
}

// IsOpen reports whether the payout still holds a claim on its commissions.
// failed and cancelled payouts release them for a new request.
func (p *Payout) IsOpen() bool {
	return p.Status == PayoutStatusRequested || p.Status == PayoutStatusProcessing || p.Status == PayoutStatusCompleted
}

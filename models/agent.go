package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Agent is a recruitment partner who earns commissions on completed
// applications and value-added services. TotalEarnings and PendingEarnings
// are denormalized for list views; the wallet projection over the commission
// ledger is authoritative.
type Agent struct {
	ID                   primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID               primitive.ObjectID `json:"userId" bson:"userId"`
	FullName             string             `json:"fullName" bson:"fullName"`
	Email                string             `json:"email" bson:"email"`
	Phone                string             `json:"phone,omitempty" bson:"phone,omitempty"`
	AgencyName           string             `json:"agencyName,omitempty" bson:"agencyName,omitempty"`
	Country              string             `json:"country,omitempty" bson:"country,omitempty"`
	CommissionPercentage *float64           `json:"commissionPercentage,omitempty" bson:"commissionPercentage,omitempty"`
	IsActive             bool               `json:"isActive" bson:"isActive"`
	TotalEarnings        float64            `json:"totalEarnings" bson:"totalEarnings"`
	PendingEarnings      float64            `json:"pendingEarnings" bson:"pendingEarnings"`
	BankDetails          *BankDetails       `json:"bankDetails,omitempty" bson:"bankDetails,omitempty"`
	FCMToken             string             `json:"fcmToken,omitempty" bson:"fcmToken,omitempty"`
	CreatedAt            time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// AgentWallet is the projected view of an agent's commission state,
// derived from the ledger on every read.
type AgentWallet struct {
	AvailableBalance float64    `json:"availableBalance"`
	PendingBalance   float64    `json:"pendingBalance"`
	LifetimeEarnings float64    `json:"lifetimeEarnings"`
	TotalCommissions int        `json:"totalCommissions"`
	PayoutThreshold  float64    `json:"payoutThreshold"`
	IsPayoutEligible bool       `json:"isPayoutEligible"`
	LastPayoutDate   *time.Time `json:"lastPayoutDate,omitempty"`
	LastPayoutAmount float64    `json:"lastPayoutAmount,omitempty"`
	Currency         string     `json:"currency"`
}

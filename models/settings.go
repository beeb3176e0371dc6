package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CommissionTier raises an agent's effective rate once their cumulative
// qualifying commissions reach MinStudents.
type CommissionTier struct {
	MinStudents    int     `json:"minStudents" bson:"minStudents" validate:"gte=0"`
	MaxStudents    int     `json:"maxStudents,omitempty" bson:"maxStudents,omitempty"`
	CommissionRate float64 `json:"commissionRate" bson:"commissionRate" validate:"gte=0,lte=100"`
}

// ServiceFees holds the base fee per value-added service type.
type ServiceFees struct {
	VisaGuidance       float64 `json:"visaGuidance,omitempty" bson:"visaGuidance,omitempty"`
	AccommodationHelp  float64 `json:"accommodationHelp,omitempty" bson:"accommodationHelp,omitempty"`
	AirportPickup      float64 `json:"airportPickup,omitempty" bson:"airportPickup,omitempty"`
	SOPReview          float64 `json:"sopReview,omitempty" bson:"sopReview,omitempty"`
	EducationLoan      float64 `json:"educationLoan,omitempty" bson:"educationLoan,omitempty"`
	HealthInsurance    float64 `json:"healthInsurance,omitempty" bson:"healthInsurance,omitempty"`
	ForexAssistance    float64 `json:"forexAssistance,omitempty" bson:"forexAssistance,omitempty"`
	ScholarshipSupport float64 `json:"scholarshipSupport,omitempty" bson:"scholarshipSupport,omitempty"`
}

// PlatformSettings is the singleton configuration document read by the
// commission engine.
type PlatformSettings struct {
	ID                     primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	DefaultAgentCommission float64            `json:"defaultAgentCommission" bson:"defaultAgentCommission" validate:"gte=0,lte=100"`
	CommissionTiers        []CommissionTier   `json:"commissionTiers" bson:"commissionTiers" validate:"dive"`
	AutoApproveCommissions bool               `json:"autoApproveCommissions" bson:"autoApproveCommissions"`
	PayoutThreshold        float64            `json:"payoutThreshold" bson:"payoutThreshold" validate:"gte=0"`
	CommissionCurrency     string             `json:"commissionCurrency" bson:"commissionCurrency"`
	ServiceFees            ServiceFees        `json:"serviceFees" bson:"serviceFees"`
	UpdatedBy              string             `json:"updatedBy,omitempty" bson:"updatedBy,omitempty"`
	UpdatedAt              time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// FeeForServiceType maps a service request type to its configured base fee.
// Returns 0 when the type is unknown or unset; the base-amount resolver
// applies the default in that case.
func (s ServiceFees) FeeForServiceType(serviceType string) float64 {
	switch serviceType {
	case "VISA_GUIDANCE":
		return s.VisaGuidance
	case "ACCOMMODATION_HELP":
		return s.AccommodationHelp
	case "AIRPORT_PICKUP":
		return s.AirportPickup
	case "SOP_REVIEW":
		return s.SOPReview
	case "EDUCATION_LOAN":
		return s.EducationLoan
	case "HEALTH_INSURANCE":
		return s.HealthInsurance
	case "FOREX_ASSISTANCE":
		return s.ForexAssistance
	case "SCHOLARSHIP_SUPPORT":
		return s.ScholarshipSupport
	}
	return 0
}

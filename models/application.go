package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Application statuses relevant to the commission engine. The full pipeline
// (document collection, offers, visa) lives with the application module;
// only Completed triggers commission creation.
const (
	ApplicationStatusCompleted = "Completed"
)

// Application is the slice of a university application the commission
// engine reads when the application completes.
type Application struct {
	ID             primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	StudentID      primitive.ObjectID  `json:"studentId" bson:"studentId"`
	AgentID        *primitive.ObjectID `json:"agentId,omitempty" bson:"agentId,omitempty"`
	UniversityName string              `json:"universityName" bson:"universityName"`
	UniversityCode string              `json:"universityCode" bson:"universityCode"`
	ProgramName    string              `json:"programName" bson:"programName"`
	Status         string              `json:"status" bson:"status"`
	CompletedAt    *time.Time          `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}

// ServiceRequest is the slice of a value-added service request the engine
// reads when the request completes.
type ServiceRequest struct {
	ID            primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	StudentID     primitive.ObjectID  `json:"studentId" bson:"studentId"`
	AssignedAgent *primitive.ObjectID `json:"assignedAgent,omitempty" bson:"assignedAgent,omitempty"`
	ServiceType   string              `json:"serviceType" bson:"serviceType"`
	Status        string              `json:"status" bson:"status"`
	CompletedAt   *time.Time          `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}

// TuitionEntry is one row of a university's tuition table, e.g.
// {"level": "Undergraduate", "amount": "$12,500 per year"}.
type TuitionEntry struct {
	Level  string `json:"level,omitempty" bson:"level,omitempty"`
	Amount string `json:"amount" bson:"amount"`
}

// University carries the tuition table used by the base-amount resolver.
type University struct {
	ID      primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name    string             `json:"name" bson:"name"`
	Code    string             `json:"code" bson:"code"`
	Country string             `json:"country,omitempty" bson:"country,omitempty"`
	Tuition []TuitionEntry     `json:"tuition,omitempty" bson:"tuition,omitempty"`
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification priorities
const (
	NotificationPriorityLow    = "low"
	NotificationPriorityNormal = "normal"
	NotificationPriorityHigh   = "high"
)

// Notification model
type Notification struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	RecipientID primitive.ObjectID `json:"recipientId" bson:"recipientId"` // The user who receives the notification
	Title       string             `json:"title" bson:"title"`
	Message     string             `json:"message" bson:"message"`
	Type        string             `json:"type" bson:"type"` // e.g. "commission_created", "payout_completed"
	Priority    string             `json:"priority" bson:"priority"`
	Metadata    interface{}        `json:"metadata,omitempty" bson:"metadata,omitempty"`
	IsRead      bool               `json:"isRead" bson:"isRead"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User types on the platform
const (
	UserTypeStudent    = "student"
	UserTypeCounselor  = "counselor"
	UserTypeAgent      = "agent"
	UserTypeSuperAdmin = "super_admin"
)

// User is a platform account. Students, counselors, agents and super admins
// all authenticate through the same collection; agents additionally have an
// Agent registry document.
type User struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Email     string             `json:"email" bson:"email"`
	FullName  string             `json:"fullName" bson:"fullName"`
	UserType  string             `json:"userType" bson:"userType"`
	IsActive  bool               `json:"isActive" bson:"isActive"`
	FCMToken  string             `json:"fcmToken,omitempty" bson:"fcmToken,omitempty"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Response model
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

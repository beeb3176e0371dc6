package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/fly8app/fly8_backend/models"
	"github.com/fly8app/fly8_backend/repositories"
)

// Actor identifies who triggered an engine operation.
type Actor struct {
	UserID string
	Role   string
}

// SystemActor stamps transitions performed by the engine itself, e.g.
// auto-approval.
var SystemActor = Actor{UserID: "system", Role: "system"}

// recordAudit appends an audit entry. Audit failures are logged and never
// fail the operation that produced them.
func recordAudit(ctx context.Context, store repositories.Store, actor Actor, action, entityType, entityID string, previousState, newState, details interface{}) {
	entry := &models.AuditLog{
		LogID:         uuid.NewString(),
		ActorUserID:   actor.UserID,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		PreviousState: previousState,
		NewState:      newState,
		Details:       details,
		Timestamp:     time.Now(),
	}
	if err := store.InsertAuditLog(ctx, entry); err != nil {
		log.Printf("Failed to write audit log %s/%s: %v", action, entityID, err)
	}
}

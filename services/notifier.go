package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/fly8app/fly8_backend/models"
	"github.com/fly8app/fly8_backend/repositories"
	"github.com/fly8app/fly8_backend/utils"
	"github.com/fly8app/fly8_backend/websocket"
)

// Notifier writes dashboard notification records and mirrors them over the
// real-time channel and FCM. Every emit path is best-effort: a failed
// notification is logged and never fails the transition that produced it.
type Notifier struct {
	store repositories.Store
	hub   *websocket.Hub
}

func NewNotifier(store repositories.Store, hub *websocket.Hub) *Notifier {
	return &Notifier{store: store, hub: hub}
}

func (n *Notifier) save(ctx context.Context, recipientID primitive.ObjectID, notifType, title, message, priority string, metadata interface{}) {
	notification := &models.Notification{
		RecipientID: recipientID,
		Title:       title,
		Message:     message,
		Type:        notifType,
		Priority:    priority,
		Metadata:    metadata,
		IsRead:      false,
		CreatedAt:   time.Now(),
	}
	if err := n.store.InsertNotification(ctx, notification); err != nil {
		log.Printf("Failed to save notification for %s: %v", recipientID.Hex(), err)
	}
}

func (n *Notifier) push(userID primitive.ObjectID, eventType, message string, data interface{}) {
	if n.hub == nil {
		return
	}
	if err := n.hub.PushEvent(userID, eventType, message, data); err != nil {
		// Offline clients are expected; they read the stored notification.
		log.Printf("Websocket push %s to %s skipped: %v", eventType, userID.Hex(), err)
	}
}

// NotifyAgent records a notification for the agent's platform account,
// pushes the typed event, and mirrors it to the agent's mobile app.
func (n *Notifier) NotifyAgent(ctx context.Context, agent *models.Agent, eventType, title, message string, metadata map[string]interface{}) {
	if agent == nil {
		return
	}
	n.save(ctx, agent.UserID, eventType, title, message, models.NotificationPriorityNormal, metadata)
	n.push(agent.UserID, eventType, message, metadata)

	fcmData := map[string]string{"type": eventType}
	for key, value := range metadata {
		if str, ok := value.(string); ok {
			fcmData[key] = str
		}
	}
	if err := utils.SendFCMNotification(agent.FCMToken, title, message, fcmData); err != nil {
		log.Printf("FCM push to agent %s skipped: %v", agent.ID.Hex(), err)
	}
}

// NotifyAdmins records a notification for every active super admin and
// pushes a new_notification event. When emailSubject is non-empty the
// notification is also mirrored by email.
func (n *Notifier) NotifyAdmins(ctx context.Context, notifType, title, message string, metadata map[string]interface{}, emailSubject string) {
	admins, err := n.store.ListActiveSuperAdmins(ctx)
	if err != nil {
		log.Printf("Failed to list super admins for notification: %v", err)
		return
	}
	for _, admin := range admins {
		n.save(ctx, admin.ID, notifType, title, message, models.NotificationPriorityHigh, metadata)
		n.push(admin.ID, websocket.EventNewNotification, message, metadata)
		if emailSubject != "" {
			body := fmt.Sprintf("Dear %s,\n\n%s\n\nBest regards,\nFly8 Platform", admin.FullName, message)
			if err := utils.SendEmail(admin.Email, emailSubject, body); err != nil {
				log.Printf("Admin email to %s skipped: %v", admin.Email, err)
			}
		}
	}
}

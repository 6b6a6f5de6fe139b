package services

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/deltacrown/deltacrown/brackets"
	"github.com/deltacrown/deltacrown/models"
	"github.com/deltacrown/deltacrown/repositories"
)

// Notifier persists notification rows and mirrors them to the websocket
// hub. Delivery failures are logged, never returned: a notification must
// not fail the business operation that triggered it.
type Notifier interface {
	Notify(ctx context.Context, exec repositories.SQLExecutor, recipientID int, nType models.NotificationType, payload interface{}, dedupeKey *string) bool
	BroadcastTournament(tournamentID int, eventType string, payload interface{})
}

type hubNotifier struct {
	notificationRepo repositories.NotificationRepository
	hub              *brackets.Hub
	logger           *slog.Logger
}

func NewHubNotifier(notificationRepo repositories.NotificationRepository, hub *brackets.Hub, logger *slog.Logger) Notifier {
	return &hubNotifier{
		notificationRepo: notificationRepo,
		hub:              hub,
		logger:           logger,
	}
}

// Notify writes the notification and reports whether a row was created.
// With a dedupe key set, false means the event already fired.
func (n *hubNotifier) Notify(ctx context.Context, exec repositories.SQLExecutor, recipientID int, nType models.NotificationType, payload interface{}, dedupeKey *string) bool {
	var payloadJSON *string
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			n.logger.Error("notification payload marshal failed",
				slog.String("type", string(nType)), slog.Any("error", err))
		} else {
			s := string(raw)
			payloadJSON = &s
		}
	}

	notification := &models.Notification{
		RecipientID: recipientID,
		Type:        nType,
		Payload:     payloadJSON,
		DedupeKey:   dedupeKey,
	}
	created, err := n.notificationRepo.Create(ctx, exec, notification)
	if err != nil {
		n.logger.Error("notification persist failed",
			slog.Int("recipient_id", recipientID),
			slog.String("type", string(nType)),
			slog.Any("error", err))
		return false
	}
	return created
}

func (n *hubNotifier) BroadcastTournament(tournamentID int, eventType string, payload interface{}) {
	if n.hub == nil {
		return
	}
	n.hub.BroadcastToRoom(roomForTournament(tournamentID), eventType, payload)
}

package models

import "time"

type NotificationType string

const (
	NotificationRegConfirmed        NotificationType = "reg_confirmed"
	NotificationRegWaitlisted       NotificationType = "reg_waitlisted"
	NotificationCheckinOpen         NotificationType = "checkin_open"
	NotificationMatchScheduled      NotificationType = "match_scheduled"
	NotificationResultVerified      NotificationType = "result_verified"
	NotificationDisputeOpened       NotificationType = "dispute_opened"
	NotificationDisputeResolved     NotificationType = "dispute_resolved"
	NotificationTournamentCompleted NotificationType = "tournament_completed"
)

// Notification is a fire-and-forget record of an event addressed to a
// user. Never mutated after creation except IsRead. DedupeKey, when
// set, carries a unique constraint so an event fires at most once per
// recipient (e.g. "checkin_open:42" for match 42).
type Notification struct {
	ID          int              `json:"id" db:"id"`
	RecipientID int              `json:"recipient_id" db:"recipient_id"`
	Type        NotificationType `json:"type" db:"type"`
	Payload     *string          `json:"payload,omitempty" db:"payload"`
	DedupeKey   *string          `json:"-" db:"dedupe_key"`
	IsRead      bool             `json:"is_read" db:"is_read"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/deltacrown/deltacrown/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationRepository interface {
	// Create inserts a notification. When DedupeKey is set the insert is
	// ON CONFLICT DO NOTHING against the dedupe unique index; the bool
	// result reports whether a row was actually written, so sweeps can
	// re-run without duplicating side effects.
	Create(ctx context.Context, exec SQLExecutor, n *models.Notification) (bool, error)
	ListByRecipient(ctx context.Context, recipientID int, unreadOnly bool, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, recipientID int) error
}

type postgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresNotificationRepository) Create(ctx context.Context, exec SQLExecutor, n *models.Notification) (bool, error) {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO notifications (recipient_id, type, payload, dedupe_key)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (dedupe_key) DO NOTHING
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		n.RecipientID, n.Type, n.Payload, n.DedupeKey,
	).Scan(&n.ID, &n.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Conflict on the dedupe key: already delivered.
			return false, nil
		}
		return false, fmt.Errorf("failed to create notification: %w", err)
	}
	return true, nil
}

func (r *postgresNotificationRepository) ListByRecipient(ctx context.Context, recipientID int, unreadOnly bool, limit int) ([]*models.Notification, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT id, recipient_id, type, payload, dedupe_key, is_read, created_at
		FROM notifications
		WHERE recipient_id = $1`)
	if unreadOnly {
		queryBuilder.WriteString(" AND is_read = FALSE")
	}
	queryBuilder.WriteString(" ORDER BY created_at DESC, id DESC")
	args := []interface{}{recipientID}
	if limit > 0 {
		args = append(args, limit)
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]*models.Notification, 0)
	for rows.Next() {
		n := &models.Notification{}
		if scanErr := rows.Scan(
			&n.ID, &n.RecipientID, &n.Type, &n.Payload, &n.DedupeKey,
			&n.IsRead, &n.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", scanErr)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *postgresNotificationRepository) MarkRead(ctx context.Context, id, recipientID int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND recipient_id = $2`,
		id, recipientID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return checkAffectedRows(result, ErrNotificationNotFound)
}

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"carpool/internal/trip"
)

func (p *Postgres) InsertNotification(ctx context.Context, n trip.Notification) error {
	var data []byte
	if n.Data != nil {
		var err error
		data, err = json.Marshal(n.Data)
		if err != nil {
			return fmt.Errorf("encode notification data: %w", err)
		}
	}
	_, err := p.pool.Exec(ctx, `
INSERT INTO notifications (id, recipient_id, sender_id, type, title, message, data, priority, is_read, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`, n.ID, n.RecipientID, nullable(n.SenderID), n.Type, n.Title, n.Message, data, n.Priority, n.IsRead, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (p *Postgres) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]trip.Notification, error) {
	sql := `
SELECT id, recipient_id, sender_id, type, title, message, data, priority, is_read, created_at
FROM notifications
WHERE recipient_id = $1`
	args := []any{userID}
	if unreadOnly {
		sql += ` AND NOT is_read`
	}
	args = append(args, limit, offset)
	sql += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	var out []trip.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (p *Postgres) CountNotifications(ctx context.Context, userID string, unreadOnly bool) (int, error) {
	sql := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1`
	if unreadOnly {
		sql += ` AND NOT is_read`
	}
	var count int
	err := p.pool.QueryRow(ctx, sql, userID).Scan(&count)
	return count, err
}

// NotificationStats returns total, unread, and per-type counts for one user.
func (p *Postgres) NotificationStats(ctx context.Context, userID string) (total, unread int, byType map[string]int, err error) {
	rows, err := p.pool.Query(ctx, `
SELECT type, COUNT(*), COUNT(*) FILTER (WHERE NOT is_read)
FROM notifications WHERE recipient_id = $1 GROUP BY type
`, userID)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("notification stats: %w", err)
	}
	defer rows.Close()
	byType = map[string]int{}
	for rows.Next() {
		var typ string
		var count, unreadCount int
		if err := rows.Scan(&typ, &count, &unreadCount); err != nil {
			return 0, 0, nil, err
		}
		byType[typ] = count
		total += count
		unread += unreadCount
	}
	return total, unread, byType, rows.Err()
}

func (p *Postgres) MarkNotificationRead(ctx context.Context, userID, id string) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND recipient_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return trip.ErrNotificationNotFound
	}
	return nil
}

func (p *Postgres) MarkAllNotificationsRead(ctx context.Context, userID string) (int, error) {
	tag, err := p.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE recipient_id = $1 AND NOT is_read`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (p *Postgres) DeleteNotification(ctx context.Context, userID, id string) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM notifications WHERE id = $1 AND recipient_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return trip.ErrNotificationNotFound
	}
	return nil
}

func scanNotification(row pgx.Row) (trip.Notification, error) {
	var (
		n      trip.Notification
		sender *string
		data   []byte
	)
	err := row.Scan(&n.ID, &n.RecipientID, &sender, &n.Type, &n.Title, &n.Message, &data, &n.Priority, &n.IsRead, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return trip.Notification{}, trip.ErrNotificationNotFound
		}
		return trip.Notification{}, fmt.Errorf("scan notification: %w", err)
	}
	n.SenderID = deref(sender)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return trip.Notification{}, fmt.Errorf("decode notification data: %w", err)
		}
	}
	return n, nil
}

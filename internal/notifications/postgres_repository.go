package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxQuerier is the slice of the pgxpool API the repository needs.
// *pgxpool.Pool satisfies it, as does pgxmock in tests.
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores notifications in PostgreSQL.
type PostgresRepository struct {
	db PgxQuerier
}

// NewPostgresRepository creates a PostgreSQL-backed repository.
func NewPostgresRepository(db PgxQuerier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const notificationColumns = `id, recipient_id, sender_id, type, priority, title, message,
	data, channels, delivery, is_read, read_at, action_url, action_text,
	expires_at, created_at, updated_at`

// Create inserts the record.
func (r *PostgresRepository) Create(ctx context.Context, n *Notification) error {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return fmt.Errorf("encode data: %w", err)
	}
	delivery, err := json.Marshal(n.Delivery)
	if err != nil {
		return fmt.Errorf("encode delivery: %w", err)
	}

	channels := make([]string, len(n.Channels))
	for i, ch := range n.Channels {
		channels[i] = string(ch)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO notifications (
			id, recipient_id, sender_id, type, priority, title, message,
			data, channels, delivery, is_read, read_at, action_url, action_text,
			expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		n.ID, n.RecipientID, nullableString(n.SenderID), string(n.Type), string(n.Priority),
		n.Title, n.Message, data, channels, delivery, n.IsRead, n.ReadAt,
		nullableString(n.ActionURL), nullableString(n.ActionText),
		n.ExpiresAt, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// GetByID fetches one record scoped to the recipient.
func (r *PostgresRepository) GetByID(ctx context.Context, id, recipientID string) (*Notification, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE id = $1 AND recipient_id = $2`,
		id, recipientID,
	)
	return scanNotification(row)
}

// List returns one page, newest first, plus the filtered total.
func (r *PostgresRepository) List(ctx context.Context, recipientID string, filter ListFilter) ([]*Notification, int, error) {
	filter.normalize()

	where := []string{"recipient_id = $1"}
	args := []any{recipientID}

	appendCond := func(cond string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filter.Type != nil {
		appendCond("type = $%d", string(*filter.Type))
	}
	if filter.Priority != nil {
		appendCond("priority = $%d", string(*filter.Priority))
	}
	if filter.IsRead != nil {
		appendCond("is_read = $%d", *filter.IsRead)
	}
	if filter.DateFrom != nil {
		appendCond("created_at >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		appendCond("created_at <= $%d", *filter.DateTo)
	}

	clause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM notifications WHERE "+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	query := fmt.Sprintf(`
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, clause, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := []*Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	return out, total, nil
}

// SetDelivery writes one channel's outcome into the delivery document.
func (r *PostgresRepository) SetDelivery(ctx context.Context, id string, ch Channel, d ChannelDelivery) error {
	encoded, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode delivery: %w", err)
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications
		SET delivery = jsonb_set(COALESCE(delivery, '{}'::jsonb), ARRAY[$2], $3::jsonb, true),
			updated_at = NOW()
		WHERE id = $1`,
		id, string(ch), encoded,
	)
	if err != nil {
		return fmt.Errorf("set delivery: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkRead flags the record read, re-stamping read_at on every call.
func (r *PostgresRepository) MarkRead(ctx context.Context, id, recipientID string, at time.Time) (*Notification, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE notifications
		SET is_read = TRUE, read_at = $3, updated_at = $3
		WHERE id = $1 AND recipient_id = $2
		RETURNING `+notificationColumns,
		id, recipientID, at,
	)
	return scanNotification(row)
}

// MarkAllRead flags every unread record for the recipient.
func (r *PostgresRepository) MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications
		SET is_read = TRUE, read_at = $2, updated_at = $2
		WHERE recipient_id = $1 AND is_read = FALSE`,
		recipientID, at,
	)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete removes one record owned by the recipient.
func (r *PostgresRepository) Delete(ctx context.Context, id, recipientID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM notifications WHERE id = $1 AND recipient_id = $2`,
		id, recipientID,
	)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll removes every record for the recipient.
func (r *PostgresRepository) DeleteAll(ctx context.Context, recipientID string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM notifications WHERE recipient_id = $1`,
		recipientID,
	)
	if err != nil {
		return 0, fmt.Errorf("delete all notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}

// UnreadCount counts unread records for the recipient.
func (r *PostgresRepository) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND is_read = FALSE`,
		recipientID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return count, nil
}

// Stats aggregates by type, priority, and read state in one grouped scan.
func (r *PostgresRepository) Stats(ctx context.Context, recipientID string) (*Stats, error) {
	rows, err := r.db.Query(ctx, `
		SELECT type, priority, is_read, COUNT(*)
		FROM notifications
		WHERE recipient_id = $1
		GROUP BY type, priority, is_read`,
		recipientID,
	)
	if err != nil {
		return nil, fmt.Errorf("notification stats: %w", err)
	}
	defer rows.Close()

	stats := &Stats{
		ByType:     make(map[Type]int),
		ByPriority: make(map[Priority]int),
	}
	for rows.Next() {
		var (
			typ      string
			priority string
			isRead   bool
			count    int
		)
		if err := rows.Scan(&typ, &priority, &isRead, &count); err != nil {
			return nil, fmt.Errorf("scan stats row: %w", err)
		}
		stats.Total += count
		if !isRead {
			stats.Unread += count
		}
		stats.ByType[Type(typ)] += count
		stats.ByPriority[Priority(priority)] += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("notification stats: %w", err)
	}
	return stats, nil
}

// DeleteExpired removes records past their expiry. Run from the
// scheduler's cleanup sweep.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM notifications WHERE expires_at < $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var (
		n          Notification
		senderID   *string
		data       []byte
		channels   []string
		delivery   []byte
		actionURL  *string
		actionText *string
	)
	err := row.Scan(
		&n.ID, &n.RecipientID, &senderID, &n.Type, &n.Priority, &n.Title, &n.Message,
		&data, &channels, &delivery, &n.IsRead, &n.ReadAt, &actionURL, &actionText,
		&n.ExpiresAt, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan notification: %w", err)
	}

	if senderID != nil {
		n.SenderID = *senderID
	}
	if actionURL != nil {
		n.ActionURL = *actionURL
	}
	if actionText != nil {
		n.ActionText = *actionText
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return nil, fmt.Errorf("decode data: %w", err)
		}
	}
	if len(delivery) > 0 {
		if err := json.Unmarshal(delivery, &n.Delivery); err != nil {
			return nil, fmt.Errorf("decode delivery: %w", err)
		}
	}
	n.Channels = make([]Channel, len(channels))
	for i, ch := range channels {
		n.Channels[i] = Channel(ch)
	}
	return &n, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ Repository = (*PostgresRepository)(nil)

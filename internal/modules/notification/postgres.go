// README: Notification store backed by PostgreSQL.
package notification

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"parcelo/internal/types"
)

var ErrNotFound = errors.New("notification not found")

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, n *Notification) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO notifications (
			id, user_id, title, message, type, action_url, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(n.ID), string(n.UserID), n.Title, n.Message, n.Type, n.ActionURL, n.CreatedAt,
	)
	return err
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID types.ID, limit int) ([]Notification, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, title, message, type, action_url, created_at, read_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, string(userID), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.ActionURL, &n.CreatedAt, &readAt); err != nil {
			return nil, err
		}
		if readAt.Valid {
			t := readAt.Time
			n.ReadAt = &t
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MarkRead(ctx context.Context, id types.ID) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE notifications SET read_at = NOW() WHERE id = $1 AND read_at IS NULL`, string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

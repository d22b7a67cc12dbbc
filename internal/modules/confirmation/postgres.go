// README: Confirmation code store backed by PostgreSQL.
package confirmation

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"parcelo/internal/types"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, c *Code) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO confirmation_codes (
			id, delivery_id, value, issued_at, expires_at, consumed
		) VALUES ($1, $2, $3, $4, $5, FALSE)`,
		string(c.ID), string(c.DeliveryID), c.Value, c.IssuedAt, c.ExpiresAt,
	)
	return err
}

func (s *PostgresStore) LatestByDelivery(ctx context.Context, deliveryID types.ID) (*Code, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, delivery_id, value, issued_at, expires_at, consumed, consumed_at, consumed_lat, consumed_lng
		FROM confirmation_codes
		WHERE delivery_id = $1
		ORDER BY issued_at DESC
		LIMIT 1`, string(deliveryID),
	)
	return scanCode(row)
}

func (s *PostgresStore) Consume(ctx context.Context, id types.ID, at time.Time, lat, lng *float64) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE confirmation_codes
		SET consumed = TRUE, consumed_at = $1, consumed_lat = $2, consumed_lng = $3
		WHERE id = $4 AND consumed = FALSE`,
		at, lat, lng, string(id),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) InvalidateActive(ctx context.Context, deliveryID types.ID, now time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE confirmation_codes
		SET expires_at = $1
		WHERE delivery_id = $2 AND consumed = FALSE AND expires_at > $1`,
		now, string(deliveryID),
	)
	return err
}

func (s *PostgresStore) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE confirmation_codes
		SET expired = TRUE
		WHERE expired = FALSE AND consumed = FALSE AND expires_at <= $1`, now,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCode(row rowScanner) (*Code, error) {
	var c Code
	var consumedAt sql.NullTime
	var lat, lng sql.NullFloat64
	err := row.Scan(&c.ID, &c.DeliveryID, &c.Value, &c.IssuedAt, &c.ExpiresAt, &c.Consumed, &consumedAt, &lat, &lng)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if consumedAt.Valid {
		t := consumedAt.Time
		c.ConsumedAt = &t
	}
	if lat.Valid {
		v := lat.Float64
		c.ConsumedLat = &v
	}
	if lng.Valid {
		v := lng.Float64
		c.ConsumedLng = &v
	}
	return &c, nil
}

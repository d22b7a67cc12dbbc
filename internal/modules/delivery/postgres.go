// README: Delivery store backed by PostgreSQL.
package delivery

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"parcelo/internal/types"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, d *Delivery) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO deliveries (
			id, requester_id, carrier_id, status, status_version,
			pickup_lat, pickup_lng, dropoff_lat, dropoff_lng,
			code_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12
		)`,
		string(d.ID),
		string(d.RequesterID),
		idPtr(d.CarrierID),
		string(d.Status),
		d.StatusVersion,
		d.Pickup.Lat, d.Pickup.Lng,
		d.Dropoff.Lat, d.Dropoff.Lng,
		idPtr(d.CodeID),
		d.CreatedAt,
		d.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id types.ID) (*Delivery, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, requester_id, carrier_id, status, status_version,
		       pickup_lat, pickup_lng, dropoff_lat, dropoff_lng,
		       code_id, created_at, updated_at
		FROM deliveries
		WHERE id = $1`, string(id),
	)

	var d Delivery
	var carrierID, codeID sql.NullString

	err := row.Scan(
		&d.ID, &d.RequesterID, &carrierID, &d.Status, &d.StatusVersion,
		&d.Pickup.Lat, &d.Pickup.Lng, &d.Dropoff.Lat, &d.Dropoff.Lng,
		&codeID, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if carrierID.Valid {
		v := types.ID(carrierID.String)
		d.CarrierID = &v
	}
	if codeID.Valid {
		v := types.ID(codeID.String)
		d.CodeID = &v
	}
	return &d, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, carrierID *types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE deliveries
		SET status = $1,
		    status_version = status_version + 1,
		    carrier_id = COALESCE($2, carrier_id),
		    updated_at = NOW()
		WHERE id = $3 AND status = $4 AND status_version = $5`,
		string(to),
		idPtr(carrierID),
		string(id),
		string(from),
		version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) SetCodeID(ctx context.Context, id types.ID, codeID *types.ID) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE deliveries SET code_id = $1, updated_at = NOW() WHERE id = $2`,
		idPtr(codeID), string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AppendHistory(ctx context.Context, e *HistoryEntry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO delivery_history (
			delivery_id, from_status, to_status, actor_role, actor_id, message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(e.DeliveryID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorRole,
		idPtr(e.ActorID),
		e.Message,
		e.CreatedAt,
	)
	return err
}

func (s *PostgresStore) History(ctx context.Context, id types.ID) ([]HistoryEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, delivery_id, from_status, to_status, actor_role, actor_id, message, created_at
		FROM delivery_history
		WHERE delivery_id = $1
		ORDER BY created_at ASC, id ASC`, string(id),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var actorID sql.NullString
		if err := rows.Scan(&e.ID, &e.DeliveryID, &e.FromStatus, &e.ToStatus, &e.ActorRole, &actorID, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		if actorID.Valid {
			v := types.ID(actorID.String)
			e.ActorID = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func idPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

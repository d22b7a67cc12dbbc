// README: Tracking store backed by Postgres history and a Redis hot cache.
package tracking

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"parcelo/internal/types"
)

// cacheTTL bounds staleness of the Redis latest-sample entry; history in
// Postgres remains the source of truth.
const cacheTTL = 10 * time.Minute

type PostgresStore struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func NewPostgresStore(db *pgxpool.Pool, redis *redis.Client) *PostgresStore {
	return &PostgresStore{db: db, redis: redis}
}

func (s *PostgresStore) Append(ctx context.Context, sample *Sample) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO location_samples (
			delivery_id, carrier_id, lat, lng, accuracy_m, heading_deg, speed_kmh, captured_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(sample.DeliveryID),
		string(sample.CarrierID),
		sample.Position.Lat, sample.Position.Lng,
		sample.AccuracyM, sample.HeadingDeg, sample.SpeedKmh,
		sample.CapturedAt,
	)
	if err != nil {
		return err
	}
	s.cacheLatest(ctx, sample)
	return nil
}

func (s *PostgresStore) Latest(ctx context.Context, deliveryID types.ID) (*Sample, error) {
	if cached := s.cachedLatest(ctx, deliveryID); cached != nil {
		return cached, nil
	}

	row := s.db.QueryRow(ctx, `
		SELECT delivery_id, carrier_id, lat, lng, accuracy_m, heading_deg, speed_kmh, captured_at
		FROM location_samples
		WHERE delivery_id = $1
		ORDER BY captured_at DESC
		LIMIT 1`, string(deliveryID),
	)

	var sample Sample
	var accuracy, heading, speed sql.NullFloat64
	err := row.Scan(
		&sample.DeliveryID, &sample.CarrierID,
		&sample.Position.Lat, &sample.Position.Lng,
		&accuracy, &heading, &speed,
		&sample.CapturedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSample
	}
	if err != nil {
		return nil, err
	}
	if accuracy.Valid {
		v := accuracy.Float64
		sample.AccuracyM = &v
	}
	if heading.Valid {
		v := heading.Float64
		sample.HeadingDeg = &v
	}
	if speed.Valid {
		v := speed.Float64
		sample.SpeedKmh = &v
	}
	return &sample, nil
}

func (s *PostgresStore) cacheLatest(ctx context.Context, sample *Sample) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(sample)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, latestKey(sample.DeliveryID), data, cacheTTL).Err(); err != nil {
		log.Printf("tracking: cache write failed: %v", err)
	}
}

func (s *PostgresStore) cachedLatest(ctx context.Context, deliveryID types.ID) *Sample {
	if s.redis == nil {
		return nil
	}
	data, err := s.redis.Get(ctx, latestKey(deliveryID)).Bytes()
	if err != nil {
		return nil
	}
	var sample Sample
	if err := json.Unmarshal(data, &sample); err != nil {
		return nil
	}
	return &sample
}

func latestKey(deliveryID types.ID) string {
	return "tracking:latest:" + string(deliveryID)
}

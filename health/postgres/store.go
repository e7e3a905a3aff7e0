// Package postgres implements the health store over PostgreSQL.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/tgillam/workout-seeder/health"
	"github.com/tgillam/workout-seeder/workout"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(connectionURL string) (*Store, error) {
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, connectionURL)
	if err != nil {
		return nil, errors.Wrap(err, "postgres: error creating pool")
	}

	s := &Store{
		pool: pool,
	}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	if err != nil {
		return errors.Wrap(err, "postgres: error ensuring schema")
	}
	return nil
}

func (s *Store) AuthorizationStatus(ctx context.Context, dataType string) (health.AuthorizationStatus, error) {
	row := s.pool.QueryRow(ctx, "SELECT status FROM authorizations WHERE data_type = $1", dataType)

	var status string
	err := row.Scan(&status)
	if err == pgx.ErrNoRows {
		return health.NotDetermined, nil
	}
	if err != nil {
		return health.NotDetermined, errors.Wrap(err, "postgres: error getting authorization status")
	}
	if status == health.Authorized.String() {
		return health.Authorized, nil
	}
	return health.Denied, nil
}

func (s *Store) RequestAuthorization(ctx context.Context, write, read []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "postgres: error beginning transaction")
	}
	defer tx.Rollback(ctx)

	for _, dataType := range append(append([]string{}, write...), read...) {
		_, err = tx.Exec(ctx, grantAuthorizationQuery, dataType, health.Authorized.String())
		if err != nil {
			return errors.Wrapf(err, "postgres: error granting authorization for %q", dataType)
		}
	}

	return tx.Commit(ctx)
}

const grantAuthorizationQuery = `
INSERT INTO authorizations (data_type, status)
VALUES ($1, $2)
ON CONFLICT (data_type) DO NOTHING`

func (s *Store) ListWorkouts(ctx context.Context, limit int) ([]health.WorkoutRecord, error) {
	rows, err := s.pool.Query(ctx, listWorkoutsQuery, limit)
	if err != nil {
		return nil, errors.Wrap(err, "postgres: error listing workouts")
	}
	defer rows.Close()

	var records []health.WorkoutRecord
	for rows.Next() {
		var record health.WorkoutRecord
		var activity string
		err := rows.Scan(&record.ID, &activity, &record.Start, &record.End)
		if err != nil {
			return nil, errors.Wrap(err, "postgres: error scanning workout")
		}
		record.Activity = workout.ActivityType(activity)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "postgres: error iterating workouts")
	}
	return records, nil
}

const listWorkoutsQuery = `
SELECT id, activity_type, start_time, end_time
FROM workouts
WHERE finished = TRUE
ORDER BY start_time DESC
LIMIT $1`

func (s *Store) Cleanup() {
	s.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS workouts (
	id UUID PRIMARY KEY,
	activity_type TEXT NOT NULL,
	location_type TEXT NOT NULL,
	start_time TIMESTAMPTZ,
	end_time TIMESTAMPTZ,
	finished BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS samples (
	workout_id UUID NOT NULL REFERENCES workouts (id),
	quantity_kind TEXT NOT NULL,
	value DOUBLE PRECISION NOT NULL,
	unit TEXT NOT NULL,
	start_time TIMESTAMPTZ NOT NULL,
	end_time TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_samples_workout ON samples (workout_id);

CREATE TABLE IF NOT EXISTS workout_metadata (
	workout_id UUID NOT NULL REFERENCES workouts (id),
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (workout_id, key)
);

CREATE TABLE IF NOT EXISTS routes (
	id UUID PRIMARY KEY,
	workout_id UUID REFERENCES workouts (id),
	finished BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS route_points (
	route_id UUID NOT NULL REFERENCES routes (id),
	position INTEGER NOT NULL,
	latitude DOUBLE PRECISION NOT NULL,
	longitude DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (route_id, position)
);

CREATE TABLE IF NOT EXISTS route_metadata (
	route_id UUID NOT NULL REFERENCES routes (id),
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (route_id, key)
);

CREATE TABLE IF NOT EXISTS authorizations (
	data_type TEXT PRIMARY KEY,
	status TEXT NOT NULL
);`

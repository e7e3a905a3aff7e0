// Package sqlite implements the health store over a local SQLite file, the
// closest analogue of an on-device health database.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/tgillam/workout-seeder/health"
	"github.com/tgillam/workout-seeder/workout"
)

// Timestamps are stored as RFC 3339 text so sub-second sample boundaries
// survive the round trip.
const timeLayout = time.RFC3339Nano

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, errors.Wrap(err, "sqlite: error opening database")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "sqlite: error pinging database")
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createTables() error {
	_, err := s.db.Exec(schema)
	if err != nil {
		return errors.Wrap(err, "sqlite: error creating tables")
	}
	return nil
}

func (s *Store) AuthorizationStatus(ctx context.Context, dataType string) (health.AuthorizationStatus, error) {
	row := s.db.QueryRowContext(ctx, "SELECT status FROM authorizations WHERE data_type = ?", dataType)

	var status string
	err := row.Scan(&status)
	if err == sql.ErrNoRows {
		return health.NotDetermined, nil
	}
	if err != nil {
		return health.NotDetermined, errors.Wrap(err, "sqlite: error getting authorization status")
	}
	if status == health.Authorized.String() {
		return health.Authorized, nil
	}
	return health.Denied, nil
}

func (s *Store) RequestAuthorization(ctx context.Context, write, read []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "sqlite: error beginning transaction")
	}
	defer tx.Rollback()

	for _, dataType := range append(append([]string{}, write...), read...) {
		_, err = tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO authorizations (data_type, status) VALUES (?, ?)",
			dataType, health.Authorized.String(),
		)
		if err != nil {
			return errors.Wrapf(err, "sqlite: error granting authorization for %q", dataType)
		}
	}

	return tx.Commit()
}

func (s *Store) ListWorkouts(ctx context.Context, limit int) ([]health.WorkoutRecord, error) {
	rows, err := s.db.QueryContext(ctx, listWorkoutsQuery, limit)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite: error listing workouts")
	}
	defer rows.Close()

	var records []health.WorkoutRecord
	for rows.Next() {
		record, err := scanWorkout(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sqlite: error iterating workouts")
	}
	return records, nil
}

const listWorkoutsQuery = `
SELECT id, activity_type, start_time, end_time
FROM workouts
WHERE finished = 1
ORDER BY start_time DESC
LIMIT ?`

func (s *Store) Cleanup() {
	s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS workouts (
	id TEXT PRIMARY KEY,
	activity_type TEXT NOT NULL,
	location_type TEXT NOT NULL,
	start_time TEXT,
	end_time TEXT,
	finished INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_workouts_start_time ON workouts(start_time);

CREATE TABLE IF NOT EXISTS samples (
	workout_id TEXT NOT NULL REFERENCES workouts(id),
	quantity_kind TEXT NOT NULL,
	value REAL NOT NULL,
	unit TEXT NOT NULL,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_samples_workout ON samples(workout_id);

CREATE TABLE IF NOT EXISTS workout_metadata (
	workout_id TEXT NOT NULL REFERENCES workouts(id),
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (workout_id, key)
);

CREATE TABLE IF NOT EXISTS routes (
	id TEXT PRIMARY KEY,
	workout_id TEXT REFERENCES workouts(id),
	finished INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS route_points (
	route_id TEXT NOT NULL REFERENCES routes(id),
	position INTEGER NOT NULL,
	latitude REAL NOT NULL,
	longitude REAL NOT NULL,
	PRIMARY KEY (route_id, position)
);

CREATE TABLE IF NOT EXISTS route_metadata (
	route_id TEXT NOT NULL REFERENCES routes(id),
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (route_id, key)
);

CREATE TABLE IF NOT EXISTS authorizations (
	data_type TEXT PRIMARY KEY,
	status TEXT NOT NULL
);`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanWorkout(row scanner) (*health.WorkoutRecord, error) {
	var record health.WorkoutRecord
	var id, activity, start, end string

	err := row.Scan(&id, &activity, &start, &end)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite: error scanning workout")
	}

	if record.ID, err = parseUUID(id); err != nil {
		return nil, err
	}
	record.Activity = workout.ActivityType(activity)
	if record.Start, err = time.Parse(timeLayout, start); err != nil {
		return nil, errors.Wrap(err, "sqlite: error parsing workout start time")
	}
	if record.End, err = time.Parse(timeLayout, end); err != nil {
		return nil, errors.Wrap(err, "sqlite: error parsing workout end time")
	}
	return &record, nil
}

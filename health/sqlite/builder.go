package sqlite

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tgillam/workout-seeder/health"
	"github.com/tgillam/workout-seeder/workout"
)

func parseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "sqlite: error parsing record id")
	}
	return id, nil
}

type workoutBuilder struct {
	store *Store
	id    uuid.UUID
	cfg   workout.Config
}

func (s *Store) WorkoutBuilder(cfg workout.Config) health.WorkoutBuilder {
	return &workoutBuilder{
		store: s,
		id:    uuid.New(),
		cfg:   cfg,
	}
}

func (b *workoutBuilder) BeginCollection(ctx context.Context, at time.Time) error {
	_, err := b.store.db.ExecContext(ctx,
		"INSERT INTO workouts (id, activity_type, location_type, start_time) VALUES (?, ?, ?, ?)",
		b.id.String(), string(b.cfg.Activity), string(b.cfg.Location), at.Format(timeLayout),
	)
	if err != nil {
		return errors.Wrap(err, "sqlite: error beginning collection")
	}
	return nil
}

func (b *workoutBuilder) AddSamples(ctx context.Context, samples []workout.Sample) error {
	tx, err := b.store.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "sqlite: error beginning transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertSampleQuery)
	if err != nil {
		return errors.Wrap(err, "sqlite: error preparing sample insert")
	}
	defer stmt.Close()

	for _, sample := range samples {
		_, err = stmt.ExecContext(ctx,
			b.id.String(),
			string(sample.Kind),
			sample.Value,
			string(sample.Unit),
			sample.Start.Format(timeLayout),
			sample.End.Format(timeLayout),
		)
		if err != nil {
			return errors.Wrap(err, "sqlite: error inserting sample")
		}
	}

	err = tx.Commit()
	if err != nil {
		return errors.Wrap(err, "sqlite: error committing samples")
	}
	return nil
}

const insertSampleQuery = `
INSERT INTO samples (workout_id, quantity_kind, value, unit, start_time, end_time)
VALUES (?, ?, ?, ?, ?, ?)`

func (b *workoutBuilder) AddMetadata(ctx context.Context, metadata map[string]string) error {
	for key, value := range metadata {
		_, err := b.store.db.ExecContext(ctx,
			"INSERT OR REPLACE INTO workout_metadata (workout_id, key, value) VALUES (?, ?, ?)",
			b.id.String(), key, value,
		)
		if err != nil {
			return errors.Wrapf(err, "sqlite: error inserting metadata key %q", key)
		}
	}
	return nil
}

func (b *workoutBuilder) EndCollection(ctx context.Context, at time.Time) error {
	result, err := b.store.db.ExecContext(ctx,
		"UPDATE workouts SET end_time = ? WHERE id = ?",
		at.Format(timeLayout), b.id.String(),
	)
	if err != nil {
		return errors.Wrap(err, "sqlite: error ending collection")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "sqlite: error ending collection")
	}
	if n == 0 {
		return errors.New("sqlite: cannot end collection, workout was never begun")
	}
	return nil
}

func (b *workoutBuilder) FinishWorkout(ctx context.Context) (*health.WorkoutRecord, error) {
	result, err := b.store.db.ExecContext(ctx, finishWorkoutQuery, b.id.String())
	if err != nil {
		return nil, errors.Wrap(err, "sqlite: error finishing workout")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, errors.Wrap(err, "sqlite: error finishing workout")
	}
	if n == 0 {
		return nil, errors.New("sqlite: cannot finish workout, collection is incomplete")
	}

	row := b.store.db.QueryRowContext(ctx,
		"SELECT id, activity_type, start_time, end_time FROM workouts WHERE id = ?",
		b.id.String(),
	)
	return scanWorkout(row)
}

const finishWorkoutQuery = `
UPDATE workouts
SET finished = 1
WHERE id = ?
AND start_time IS NOT NULL
AND end_time IS NOT NULL`

type routeBuilder struct {
	store    *Store
	id       uuid.UUID
	position int
}

func (s *Store) RouteBuilder() health.RouteBuilder {
	return &routeBuilder{
		store: s,
		id:    uuid.New(),
	}
}

func (b *routeBuilder) InsertRouteData(ctx context.Context, points []workout.RoutePoint) error {
	tx, err := b.store.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "sqlite: error beginning transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "INSERT OR IGNORE INTO routes (id) VALUES (?)", b.id.String())
	if err != nil {
		return errors.Wrap(err, "sqlite: error creating route")
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO route_points (route_id, position, latitude, longitude) VALUES (?, ?, ?, ?)",
	)
	if err != nil {
		return errors.Wrap(err, "sqlite: error preparing route point insert")
	}
	defer stmt.Close()

	for _, point := range points {
		_, err = stmt.ExecContext(ctx, b.id.String(), b.position, point.Latitude, point.Longitude)
		if err != nil {
			return errors.Wrap(err, "sqlite: error inserting route point")
		}
		b.position++
	}

	err = tx.Commit()
	if err != nil {
		return errors.Wrap(err, "sqlite: error committing route points")
	}
	return nil
}

func (b *routeBuilder) FinishRoute(ctx context.Context, record *health.WorkoutRecord, metadata map[string]string) error {
	if record == nil {
		return errors.New("sqlite: cannot finish route without a workout record")
	}

	tx, err := b.store.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "sqlite: error beginning transaction")
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"UPDATE routes SET workout_id = ?, finished = 1 WHERE id = ?",
		record.ID.String(), b.id.String(),
	)
	if err != nil {
		return errors.Wrap(err, "sqlite: error finishing route")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "sqlite: error finishing route")
	}
	if n == 0 {
		return errors.New("sqlite: cannot finish route, no route data inserted")
	}

	for key, value := range metadata {
		_, err = tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO route_metadata (route_id, key, value) VALUES (?, ?, ?)",
			b.id.String(), key, value,
		)
		if err != nil {
			return errors.Wrapf(err, "sqlite: error inserting route metadata key %q", key)
		}
	}

	return tx.Commit()
}

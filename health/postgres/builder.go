package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/tgillam/workout-seeder/health"
	"github.com/tgillam/workout-seeder/workout"
)

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
	_, err := b.store.pool.Exec(ctx, beginCollectionQuery, b.id, string(b.cfg.Activity), string(b.cfg.Location), at)
	if err != nil {
		return errors.Wrap(err, "postgres: error beginning collection")
	}
	return nil
}

const beginCollectionQuery = `
INSERT INTO workouts (
	id,
	activity_type,
	location_type,
	start_time
) VALUES (
	$1,
	$2,
	$3,
	$4
)`

func (b *workoutBuilder) AddSamples(ctx context.Context, samples []workout.Sample) error {
	tx, err := b.store.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "postgres: error beginning transaction")
	}
	defer tx.Rollback(ctx)

	for _, sample := range samples {
		_, err = tx.Exec(ctx, insertSampleQuery,
			b.id,
			string(sample.Kind),
			sample.Value,
			string(sample.Unit),
			sample.Start,
			sample.End,
		)
		if err != nil {
			return errors.Wrap(err, "postgres: error inserting sample")
		}
	}

	err = tx.Commit(ctx)
	if err != nil {
		return errors.Wrap(err, "postgres: error committing samples")
	}
	return nil
}

const insertSampleQuery = `
INSERT INTO samples (
	workout_id,
	quantity_kind,
	value,
	unit,
	start_time,
	end_time
) VALUES ($1, $2, $3, $4, $5, $6)`

func (b *workoutBuilder) AddMetadata(ctx context.Context, metadata map[string]string) error {
	for key, value := range metadata {
		_, err := b.store.pool.Exec(ctx, insertWorkoutMetadataQuery, b.id, key, value)
		if err != nil {
			return errors.Wrapf(err, "postgres: error inserting metadata key %q", key)
		}
	}
	return nil
}

const insertWorkoutMetadataQuery = `
INSERT INTO workout_metadata (workout_id, key, value)
VALUES ($1, $2, $3)
ON CONFLICT (workout_id, key) DO UPDATE SET value = EXCLUDED.value`

func (b *workoutBuilder) EndCollection(ctx context.Context, at time.Time) error {
	n, err := b.store.pool.Exec(ctx, "UPDATE workouts SET end_time = $2 WHERE id = $1", b.id, at)
	if err != nil {
		return errors.Wrap(err, "postgres: error ending collection")
	}
	if n.RowsAffected() == 0 {
		return errors.New("postgres: cannot end collection, workout was never begun")
	}
	return nil
}

func (b *workoutBuilder) FinishWorkout(ctx context.Context) (*health.WorkoutRecord, error) {
	row := b.store.pool.QueryRow(ctx, finishWorkoutQuery, b.id)

	record := health.WorkoutRecord{ID: b.id}
	var activity string
	err := row.Scan(&activity, &record.Start, &record.End)
	if err == pgx.ErrNoRows {
		return nil, errors.New("postgres: cannot finish workout, collection is incomplete")
	}
	if err != nil {
		return nil, errors.Wrap(err, "postgres: error finishing workout")
	}
	record.Activity = workout.ActivityType(activity)
	return &record, nil
}

const finishWorkoutQuery = `
UPDATE workouts
SET finished = TRUE
WHERE id = $1
AND start_time IS NOT NULL
AND end_time IS NOT NULL
RETURNING activity_type, start_time, end_time`

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
	tx, err := b.store.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "postgres: error beginning transaction")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "INSERT INTO routes (id) VALUES ($1) ON CONFLICT DO NOTHING", b.id)
	if err != nil {
		return errors.Wrap(err, "postgres: error creating route")
	}

	for _, point := range points {
		_, err = tx.Exec(ctx, insertRoutePointQuery, b.id, b.position, point.Latitude, point.Longitude)
		if err != nil {
			return errors.Wrap(err, "postgres: error inserting route point")
		}
		b.position++
	}

	err = tx.Commit(ctx)
	if err != nil {
		return errors.Wrap(err, "postgres: error committing route points")
	}
	return nil
}

const insertRoutePointQuery = `
INSERT INTO route_points (route_id, position, latitude, longitude)
VALUES ($1, $2, $3, $4)`

func (b *routeBuilder) FinishRoute(ctx context.Context, record *health.WorkoutRecord, metadata map[string]string) error {
	if record == nil {
		return errors.New("postgres: cannot finish route without a workout record")
	}

	tx, err := b.store.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "postgres: error beginning transaction")
	}
	defer tx.Rollback(ctx)

	n, err := tx.Exec(ctx, "UPDATE routes SET workout_id = $2, finished = TRUE WHERE id = $1", b.id, record.ID)
	if err != nil {
		return errors.Wrap(err, "postgres: error finishing route")
	}
	if n.RowsAffected() == 0 {
		return errors.New("postgres: cannot finish route, no route data inserted")
	}

	for key, value := range metadata {
		_, err = tx.Exec(ctx, insertRouteMetadataQuery, b.id, key, value)
		if err != nil {
			return errors.Wrapf(err, "postgres: error inserting route metadata key %q", key)
		}
	}

	return tx.Commit(ctx)
}

const insertRouteMetadataQuery = `
INSERT INTO route_metadata (route_id, key, value)
VALUES ($1, $2, $3)
ON CONFLICT (route_id, key) DO UPDATE SET value = EXCLUDED.value`

// Package health defines the surface of the local health data store the
// seeder writes into. Concrete stores live in the postgres and sqlite
// subpackages.
package health

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tgillam/workout-seeder/workout"
)

type AuthorizationStatus int

const (
	NotDetermined AuthorizationStatus = iota
	Denied
	Authorized
)

func (s AuthorizationStatus) String() string {
	switch s {
	case Denied:
		return "denied"
	case Authorized:
		return "authorized"
	default:
		return "not_determined"
	}
}

// Data type identifiers used for authorization checks and grants.
const (
	TypeWorkout      = "workout"
	TypeWorkoutRoute = "workout_route"
)

// WriteTypes is the full set of data types the seeder needs write access to.
func WriteTypes() []string {
	return []string{
		TypeWorkout,
		TypeWorkoutRoute,
		string(workout.QuantityDistance),
		string(workout.QuantityStepCount),
		string(workout.QuantityStrokeCount),
	}
}

// WorkoutRecord identifies a finished workout in the store.
type WorkoutRecord struct {
	ID       uuid.UUID            `json:"id"`
	Activity workout.ActivityType `json:"activity"`
	Start    time.Time            `json:"start"`
	End      time.Time            `json:"end"`
}

type Store interface {
	// AuthorizationStatus reports write access for a single data type.
	AuthorizationStatus(ctx context.Context, dataType string) (AuthorizationStatus, error)
	// RequestAuthorization grants access for data types that are still
	// undetermined. Types already denied stay denied.
	RequestAuthorization(ctx context.Context, write, read []string) error

	WorkoutBuilder(cfg workout.Config) WorkoutBuilder
	RouteBuilder() RouteBuilder

	ListWorkouts(ctx context.Context, limit int) ([]WorkoutRecord, error)
	Cleanup()
}

// WorkoutBuilder accumulates one workout across four collection phases and a
// terminal finish. Each call is independently fallible.
type WorkoutBuilder interface {
	BeginCollection(ctx context.Context, at time.Time) error
	AddSamples(ctx context.Context, samples []workout.Sample) error
	AddMetadata(ctx context.Context, metadata map[string]string) error
	EndCollection(ctx context.Context, at time.Time) error
	FinishWorkout(ctx context.Context) (*WorkoutRecord, error)
}

type RouteBuilder interface {
	InsertRouteData(ctx context.Context, points []workout.RoutePoint) error
	FinishRoute(ctx context.Context, record *WorkoutRecord, metadata map[string]string) error
}

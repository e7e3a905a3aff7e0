package generate

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/tgillam/workout-seeder/workout"
)

// Degrees of latitude/longitude approximating one metre of displacement.
const (
	metreLatitude  = 0.000009
	metreLongitude = 0.000014
)

// Relative speed of each activity, applied to the per-second step.
var routeMultipliers = map[workout.ActivityType]float64{
	workout.ActivityWalking: 1.7,
	workout.ActivityRunning: 2.6,
	workout.ActivityHiking:  0.9,
	workout.ActivityCycling: 4.9,
}

// Route simulates movement from the origin coordinate: one point per whole
// second of the workout window, plus the origin itself. The per-second step
// is drawn once and never changes direction, so the route is a straight
// drift. Swimming and indoor workouts have no route.
func Route(rng *rand.Rand, cfg workout.Config) ([]workout.RoutePoint, error) {
	if cfg.Activity == workout.ActivitySwimming || cfg.Location != workout.LocationOutdoor {
		return nil, nil
	}
	multiplier, ok := routeMultipliers[cfg.Activity]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedActivity, "%q", cfg.Activity)
	}

	latStep := rng.Float64() * metreLatitude * multiplier
	lonStep := rng.Float64() * metreLongitude * multiplier

	seconds := int(cfg.Duration().Seconds())
	points := make([]workout.RoutePoint, 0, seconds+1)
	point := cfg.Origin
	points = append(points, point)
	for i := 0; i < seconds; i++ {
		point.Latitude += latStep
		point.Longitude += lonStep
		points = append(points, point)
	}
	return points, nil
}

// Package generate synthesizes randomized workout samples and simulated GPS
// routes. All functions are pure: randomness comes from the injected source,
// and the output covers the configured workout window exactly.
package generate

import (
	"math"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/tgillam/workout-seeder/workout"
)

// ErrUnsupportedActivity is returned when a generator is asked for an
// activity type it has no policy for. The supported set is closed, so this
// is a caller error rather than an empty result.
var ErrUnsupportedActivity = errors.New("generate: unsupported activity type")

const (
	runningBlock = 5 * time.Minute
	cyclingBlock = 2 * time.Minute
)

// Samples produces the sample sequence for one workout. Per quantity kind,
// the sample sub-intervals tile [cfg.Start, cfg.End] with no gaps or
// overlaps; only the final sub-interval may be shorter than its nominal
// length.
func Samples(rng *rand.Rand, cfg workout.Config) ([]workout.Sample, error) {
	switch cfg.Activity {
	case workout.ActivityWalking:
		return strideSamples(rng, cfg, 4, 2)
	case workout.ActivityHiking:
		return strideSamples(rng, cfg, 3, 3)
	case workout.ActivityRunning:
		return blockSamples(rng, cfg, runningBlock, 7, 9, true)
	case workout.ActivityCycling:
		return blockSamples(rng, cfg, cyclingBlock, 12, 14, false)
	case workout.ActivitySwimming:
		return swimSamples(rng, cfg)
	default:
		return nil, errors.Wrapf(ErrUnsupportedActivity, "%q", cfg.Activity)
	}
}

// strideSamples covers walking and hiking: variable-length blocks sized by a
// random distance in [3,6] metres at a random speed in
// [speedMin, speedMin+speedSpan] km/h.
func strideSamples(rng *rand.Rand, cfg workout.Config, speedMin, speedSpan float64) ([]workout.Sample, error) {
	var samples []workout.Sample
	cursor := cfg.Start
	for cursor.Before(cfg.End) {
		distance := 3 + rng.Float64()*3
		speed := speedMin + rng.Float64()*speedSpan
		length := time.Duration(distance * 3.6 / speed * float64(time.Second))
		steps := stepCount(rng, distance)

		end := clamp(cursor.Add(length), cfg.End)
		samples = append(samples,
			workout.Sample{Kind: workout.QuantityDistance, Value: distance, Unit: workout.UnitMeters, Start: cursor, End: end},
			workout.Sample{Kind: workout.QuantityStepCount, Value: steps, Unit: workout.UnitCount, Start: cursor, End: end},
		)
		cursor = end
	}
	return samples, nil
}

// blockSamples covers running and cycling: fixed-length blocks at a random
// integer speed in [speedMin, speedMin+speedN-1] km/h, distance derived from
// the block's actual length so the truncated final block scales down too.
func blockSamples(rng *rand.Rand, cfg workout.Config, block time.Duration, speedMin, speedN int, withSteps bool) ([]workout.Sample, error) {
	var samples []workout.Sample
	cursor := cfg.Start
	for cursor.Before(cfg.End) {
		end := clamp(cursor.Add(block), cfg.End)
		speed := float64(speedMin + rng.Intn(speedN))
		distance := speed * 1000 / 3600 * end.Sub(cursor).Seconds()

		samples = append(samples, workout.Sample{
			Kind:  workout.QuantityDistance,
			Value: distance,
			Unit:  workout.UnitMeters,
			Start: cursor,
			End:   end,
		})
		if withSteps {
			samples = append(samples, workout.Sample{
				Kind:  workout.QuantityStepCount,
				Value: stepCount(rng, distance),
				Unit:  workout.UnitCount,
				Start: cursor,
				End:   end,
			})
		}
		cursor = end
	}
	return samples, nil
}

// swimSamples emits one distance sample per lap, each lap taking
// (randint[20,65]/25) x lap length seconds, plus a stroke-count sample of
// round(randint[7,14]/25 x lap length) strokes over the same sub-interval.
func swimSamples(rng *rand.Rand, cfg workout.Config) ([]workout.Sample, error) {
	if cfg.LapLength <= 0 {
		return nil, errors.New("generate: lap length must be positive")
	}
	var samples []workout.Sample
	cursor := cfg.Start
	for cursor.Before(cfg.End) {
		factor := float64(20+rng.Intn(46)) / 25
		length := time.Duration(factor * cfg.LapLength * float64(time.Second))
		strokes := math.Round(float64(7+rng.Intn(8)) / 25 * cfg.LapLength)

		end := clamp(cursor.Add(length), cfg.End)
		samples = append(samples,
			workout.Sample{Kind: workout.QuantityDistance, Value: cfg.LapLength, Unit: cfg.LapUnit, Start: cursor, End: end},
			workout.Sample{Kind: workout.QuantityStrokeCount, Value: strokes, Unit: workout.UnitCount, Start: cursor, End: end},
		)
		cursor = end
	}
	return samples, nil
}

// stepCount derives steps from a distance using a random stride length in
// [0.7,0.9] metres, rounded to the nearest whole step.
func stepCount(rng *rand.Rand, distance float64) float64 {
	stride := 0.7 + rng.Float64()*0.2
	return math.Round(distance / stride)
}

func clamp(t, limit time.Time) time.Time {
	if t.After(limit) {
		return limit
	}
	return t
}

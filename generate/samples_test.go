package generate

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tgillam/workout-seeder/workout"
)

var testStart = time.Date(2023, 5, 14, 9, 0, 0, 0, time.UTC)

func config(activity workout.ActivityType, duration time.Duration) workout.Config {
	cfg := workout.Config{
		Activity: activity,
		Location: workout.LocationOutdoor,
		Start:    testStart,
		End:      testStart.Add(duration),
		Timezone: "UTC",
	}
	if activity == workout.ActivitySwimming {
		cfg.SwimLocation = workout.SwimPool
		cfg.LapLength = 25
		cfg.LapUnit = workout.UnitMeters
	}
	return cfg
}

// requireTiling asserts the samples of one quantity kind exactly tile the
// workout window: first starts at the window start, each sample starts where
// the previous ended, and the last ends at the window end.
func requireTiling(t *testing.T, samples []workout.Sample, kind workout.QuantityKind, cfg workout.Config) {
	t.Helper()

	var kindSamples []workout.Sample
	for _, s := range samples {
		if s.Kind == kind {
			kindSamples = append(kindSamples, s)
		}
	}
	require.NotEmpty(t, kindSamples)

	require.True(t, kindSamples[0].Start.Equal(cfg.Start), "first sample must start at window start")
	for i, s := range kindSamples {
		require.True(t, s.End.After(s.Start), "sample %d must have positive length", i)
		if i > 0 {
			require.True(t, s.Start.Equal(kindSamples[i-1].End), "sample %d must start where sample %d ended", i, i-1)
		}
	}
	require.True(t, kindSamples[len(kindSamples)-1].End.Equal(cfg.End), "last sample must end at window end")
}

func TestSamplesTileWindowForAllActivities(t *testing.T) {
	kinds := map[workout.ActivityType][]workout.QuantityKind{
		workout.ActivityWalking:  {workout.QuantityDistance, workout.QuantityStepCount},
		workout.ActivityHiking:   {workout.QuantityDistance, workout.QuantityStepCount},
		workout.ActivityRunning:  {workout.QuantityDistance, workout.QuantityStepCount},
		workout.ActivityCycling:  {workout.QuantityDistance},
		workout.ActivitySwimming: {workout.QuantityDistance, workout.QuantityStrokeCount},
	}

	for activity, activityKinds := range kinds {
		activity, activityKinds := activity, activityKinds
		t.Run(string(activity), func(t *testing.T) {
			for seed := int64(0); seed < 10; seed++ {
				rng := rand.New(rand.NewSource(seed))
				cfg := config(activity, 17*time.Minute+13*time.Second)

				samples, err := Samples(rng, cfg)
				require.NoError(t, err)
				for _, kind := range activityKinds {
					requireTiling(t, samples, kind, cfg)
				}
			}
		})
	}
}

func TestSamplesAreDeterministicForAFixedSeed(t *testing.T) {
	cfg := config(workout.ActivityHiking, 30*time.Minute)

	first, err := Samples(rand.New(rand.NewSource(42)), cfg)
	require.NoError(t, err)
	second, err := Samples(rand.New(rand.NewSource(42)), cfg)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestWalkingBlockLengthsAndStepCounts(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cfg := config(workout.ActivityWalking, time.Minute)

	samples, err := Samples(rng, cfg)
	require.NoError(t, err)

	for i, s := range samples {
		last := i >= len(samples)-2 // final distance/step pair may be truncated
		length := s.End.Sub(s.Start).Seconds()
		// distance in [3,6] m at [4,6] km/h gives blocks of 1.8 to 5.4 s.
		if !last {
			require.GreaterOrEqual(t, length, 1.79)
		}
		require.LessOrEqual(t, length, 5.41)

		if s.Kind == workout.QuantityStepCount {
			// steps = round(distance/stride), distance in [3,6], stride in [0.7,0.9]
			require.GreaterOrEqual(t, s.Value, 3.0)
			require.LessOrEqual(t, s.Value, 9.0)
			require.Equal(t, workout.UnitCount, s.Unit)
		}
	}
}

func TestRunningFiveMinuteBlocks(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	cfg := config(workout.ActivityRunning, 5*time.Minute)

	samples, err := Samples(rng, cfg)
	require.NoError(t, err)

	// Exactly one full 300 s block, one distance and one step-count sample.
	require.Len(t, samples, 2)
	require.Equal(t, workout.QuantityDistance, samples[0].Kind)
	require.Equal(t, workout.QuantityStepCount, samples[1].Kind)
	require.True(t, samples[0].Start.Equal(cfg.Start))
	require.True(t, samples[0].End.Equal(cfg.End))

	// speed is an integer in [7,15] km/h over 300 s
	speed := samples[0].Value / (1000.0 / 3600.0) / 300.0
	require.InDelta(t, speed, float64(int(speed+0.5)), 1e-9)
	require.GreaterOrEqual(t, speed, 7.0)
	require.LessOrEqual(t, speed, 15.0)
}

func TestRunningTruncatesFinalBlock(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	cfg := config(workout.ActivityRunning, 400*time.Second)

	samples, err := Samples(rng, cfg)
	require.NoError(t, err)

	// Two blocks per kind: 300 s and a truncated 100 s.
	require.Len(t, samples, 4)
	require.Equal(t, 300.0, samples[0].End.Sub(samples[0].Start).Seconds())
	require.Equal(t, 100.0, samples[2].End.Sub(samples[2].Start).Seconds())
	requireTiling(t, samples, workout.QuantityDistance, cfg)
}

func TestCyclingBlocksAndNoStepSamples(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	cfg := config(workout.ActivityCycling, 125*time.Second)

	samples, err := Samples(rng, cfg)
	require.NoError(t, err)

	// One full 120 s block and one truncated 5 s block, distance only.
	require.Len(t, samples, 2)
	for _, s := range samples {
		require.Equal(t, workout.QuantityDistance, s.Kind)
	}
	require.Equal(t, 120.0, samples[0].End.Sub(samples[0].Start).Seconds())
	require.Equal(t, 5.0, samples[1].End.Sub(samples[1].Start).Seconds())

	// speed is an integer in [12,25] km/h
	speed := samples[0].Value / (1000.0 / 3600.0) / 120.0
	require.GreaterOrEqual(t, speed, 12.0)
	require.LessOrEqual(t, speed, 25.0)
}

func TestSwimmingLapSamples(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	cfg := config(workout.ActivitySwimming, 130*time.Second)

	samples, err := Samples(rng, cfg)
	require.NoError(t, err)
	requireTiling(t, samples, workout.QuantityDistance, cfg)
	requireTiling(t, samples, workout.QuantityStrokeCount, cfg)

	for i, s := range samples {
		last := i >= len(samples)-2
		length := s.End.Sub(s.Start).Seconds()
		// (randint[20,65]/25) x 25 m laps take 20 to 65 seconds.
		if !last {
			require.GreaterOrEqual(t, length, 19.99)
		}
		require.LessOrEqual(t, length, 65.01)

		switch s.Kind {
		case workout.QuantityDistance:
			require.Equal(t, 25.0, s.Value)
			require.Equal(t, workout.UnitMeters, s.Unit)
		case workout.QuantityStrokeCount:
			// round(randint[7,14]/25 x 25)
			require.GreaterOrEqual(t, s.Value, 7.0)
			require.LessOrEqual(t, s.Value, 14.0)
		}
	}
}

func TestSwimmingUsesConfiguredLapUnit(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	cfg := config(workout.ActivitySwimming, 2*time.Minute)
	cfg.LapUnit = workout.UnitYards

	samples, err := Samples(rng, cfg)
	require.NoError(t, err)
	for _, s := range samples {
		if s.Kind == workout.QuantityDistance {
			require.Equal(t, workout.UnitYards, s.Unit)
		}
	}
}

func TestSamplesRejectsUnsupportedActivity(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	cfg := config(workout.ActivityWalking, time.Minute)
	cfg.Activity = "rowing"

	samples, err := Samples(rng, cfg)
	require.ErrorIs(t, err, ErrUnsupportedActivity)
	require.Nil(t, samples)
}

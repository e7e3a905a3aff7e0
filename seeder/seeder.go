// Package seeder orchestrates one workout generation at a time: it checks
// store authorization, synthesizes samples and a route, and drives the
// store's collection phases.
package seeder

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/tgillam/workout-seeder/generate"
	"github.com/tgillam/workout-seeder/health"
	"github.com/tgillam/workout-seeder/workout"
)

var (
	// ErrBusy is returned when a generation is already in flight.
	ErrBusy = errors.New("seeder: generation already in progress")
	// ErrNotAuthorized is returned when the store denies write access.
	ErrNotAuthorized = errors.New("seeder: health store write access denied")
)

const (
	idle int32 = iota
	running
)

// Defaults fill the fields a trigger does not supply.
type Defaults struct {
	Origin   workout.RoutePoint
	Timezone string
}

type Seeder struct {
	store    health.Store
	trigger  <-chan workout.Config
	defaults Defaults

	state int32

	// mu guards the random source and the default window. The busy flag
	// serializes generations, but the window and random draws are also
	// reachable from trigger-producing goroutines.
	mu          sync.Mutex
	rng         *rand.Rand
	windowStart time.Time
	windowEnd   time.Time
}

func New(store health.Store, rng *rand.Rand, trigger <-chan workout.Config, defaults Defaults) *Seeder {
	s := &Seeder{
		store:    store,
		trigger:  trigger,
		defaults: defaults,
		state:    idle,
		rng:      rng,
	}
	if s.defaults.Timezone == "" {
		s.defaults.Timezone = time.Now().Location().String()
	}
	s.randomizeWindow()
	return s
}

// Serve consumes generation requests until the context is cancelled. A
// failed generation is logged and does not stop the loop.
func (s *Seeder) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case cfg := <-s.trigger:
			log.Println("seeder: triggered")
			err := s.Run(ctx, cfg)
			if errors.Is(err, ErrBusy) {
				log.Println("seeder: dropped trigger, generation already in progress")
				continue
			}
			if err != nil {
				log.Printf("seeder: generation failed: %v", err)
			}
		}
	}
}

// Run performs a single generation. A concurrent call while one is in
// flight returns ErrBusy rather than silently doing nothing. Individual
// collection phase failures are logged and the remaining independent phases
// still run; a finish failure is terminal.
func (s *Seeder) Run(ctx context.Context, cfg workout.Config) error {
	if !atomic.CompareAndSwapInt32(&s.state, idle, running) {
		return ErrBusy
	}
	defer func() {
		s.randomizeWindow()
		atomic.StoreInt32(&s.state, idle)
	}()

	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "seeder: invalid workout config")
	}

	if err := s.authorize(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	samples, err := generate.Samples(s.rng, cfg)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	points, err := generate.Route(s.rng, cfg)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	metadata := map[string]string{"timezone": cfg.Timezone}

	builder := s.store.WorkoutBuilder(cfg)
	if err := builder.BeginCollection(ctx, cfg.Start); err != nil {
		log.Printf("seeder: error beginning collection: %v", err)
	}
	if err := builder.AddSamples(ctx, samples); err != nil {
		log.Printf("seeder: error adding samples: %v", err)
	}
	if err := builder.AddMetadata(ctx, metadata); err != nil {
		log.Printf("seeder: error adding metadata: %v", err)
	}
	if err := builder.EndCollection(ctx, cfg.End); err != nil {
		log.Printf("seeder: error ending collection: %v", err)
	}

	record, err := builder.FinishWorkout(ctx)
	if err != nil {
		return errors.Wrap(err, "seeder: error finishing workout")
	}
	log.Printf("seeder: finished %s workout %s with %d samples", cfg.Activity, record.ID, len(samples))

	if !cfg.HasRoute() {
		return nil
	}

	routeBuilder := s.store.RouteBuilder()
	if err := routeBuilder.InsertRouteData(ctx, points); err != nil {
		log.Printf("seeder: error inserting route data: %v", err)
	}
	if err := routeBuilder.FinishRoute(ctx, record, metadata); err != nil {
		log.Printf("seeder: error finishing route: %v", err)
	}
	return nil
}

func (s *Seeder) authorize(ctx context.Context) error {
	status, err := s.store.AuthorizationStatus(ctx, health.TypeWorkout)
	if err != nil {
		return errors.Wrap(err, "seeder: error checking authorization")
	}
	if status == health.NotDetermined {
		err = s.store.RequestAuthorization(ctx, health.WriteTypes(), nil)
		if err != nil {
			return errors.Wrap(err, "seeder: error requesting authorization")
		}
		status, err = s.store.AuthorizationStatus(ctx, health.TypeWorkout)
		if err != nil {
			return errors.Wrap(err, "seeder: error checking authorization")
		}
	}
	if status != health.Authorized {
		return ErrNotAuthorized
	}
	return nil
}

// Window returns the current default workout window. It re-randomizes after
// every generation.
func (s *Seeder) Window() (time.Time, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.windowStart, s.windowEnd
}

// BaseConfig is the starting point for trigger sources: the default window,
// origin and timezone, with walking defaults a caller can override.
func (s *Seeder) BaseConfig() workout.Config {
	start, end := s.Window()
	return workout.Config{
		Activity:     workout.ActivityWalking,
		Location:     workout.LocationOutdoor,
		Start:        start,
		End:          end,
		SwimLocation: workout.SwimPool,
		LapLength:    25,
		LapUnit:      workout.UnitMeters,
		Origin:       s.defaults.Origin,
		Timezone:     s.defaults.Timezone,
	}
}

// RandomConfig is BaseConfig with a random activity, used for scheduled
// seeding.
func (s *Seeder) RandomConfig() workout.Config {
	activities := []workout.ActivityType{
		workout.ActivityWalking,
		workout.ActivityRunning,
		workout.ActivityHiking,
		workout.ActivityCycling,
		workout.ActivitySwimming,
	}
	cfg := s.BaseConfig()
	s.mu.Lock()
	cfg.Activity = activities[s.rng.Intn(len(activities))]
	s.mu.Unlock()
	return cfg
}

// randomizeWindow picks the next default window: a 20-90 minute workout
// ending somewhere in the past 24 hours.
func (s *Seeder) randomizeWindow() {
	s.mu.Lock()
	defer s.mu.Unlock()

	duration := time.Duration(20+s.rng.Intn(71)) * time.Minute
	back := time.Duration(s.rng.Int63n(int64(24*time.Hour - duration)))
	end := time.Now().Add(-back)
	s.windowStart = end.Add(-duration)
	s.windowEnd = end
}

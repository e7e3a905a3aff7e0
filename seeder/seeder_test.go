package seeder

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tgillam/workout-seeder/health"
	"github.com/tgillam/workout-seeder/workout"
)

type stubStore struct {
	status            health.AuthorizationStatus
	statusErr         error
	requested         [][]string
	builder           *stubBuilder
	routeBuilder      *stubRouteBuilder
	builderCalls      int
	routeBuilderCalls int
}

func newStubStore() *stubStore {
	return &stubStore{
		status:       health.Authorized,
		builder:      &stubBuilder{},
		routeBuilder: &stubRouteBuilder{},
	}
}

func (s *stubStore) AuthorizationStatus(ctx context.Context, dataType string) (health.AuthorizationStatus, error) {
	return s.status, s.statusErr
}

func (s *stubStore) RequestAuthorization(ctx context.Context, write, read []string) error {
	s.requested = append(s.requested, write)
	s.status = health.Authorized
	return nil
}

func (s *stubStore) WorkoutBuilder(cfg workout.Config) health.WorkoutBuilder {
	s.builderCalls++
	return s.builder
}

func (s *stubStore) RouteBuilder() health.RouteBuilder {
	s.routeBuilderCalls++
	return s.routeBuilder
}

func (s *stubStore) ListWorkouts(ctx context.Context, limit int) ([]health.WorkoutRecord, error) {
	return nil, nil
}

func (s *stubStore) Cleanup() {}

type stubBuilder struct {
	calls     []string
	errs      map[string]error
	samples   []workout.Sample
	metadata  map[string]string
	beginHold chan struct{}
	began     chan struct{}
	record    *health.WorkoutRecord
}

func (b *stubBuilder) call(name string) error {
	b.calls = append(b.calls, name)
	return b.errs[name]
}

func (b *stubBuilder) BeginCollection(ctx context.Context, at time.Time) error {
	if b.began != nil {
		close(b.began)
	}
	if b.beginHold != nil {
		<-b.beginHold
	}
	return b.call("begin")
}

func (b *stubBuilder) AddSamples(ctx context.Context, samples []workout.Sample) error {
	b.samples = samples
	return b.call("samples")
}

func (b *stubBuilder) AddMetadata(ctx context.Context, metadata map[string]string) error {
	b.metadata = metadata
	return b.call("metadata")
}

func (b *stubBuilder) EndCollection(ctx context.Context, at time.Time) error {
	return b.call("end")
}

func (b *stubBuilder) FinishWorkout(ctx context.Context) (*health.WorkoutRecord, error) {
	if err := b.call("finish"); err != nil {
		return nil, err
	}
	if b.record == nil {
		b.record = &health.WorkoutRecord{ID: uuid.New()}
	}
	return b.record, nil
}

type stubRouteBuilder struct {
	calls  []string
	errs   map[string]error
	points []workout.RoutePoint
	record *health.WorkoutRecord
}

func (b *stubRouteBuilder) InsertRouteData(ctx context.Context, points []workout.RoutePoint) error {
	b.calls = append(b.calls, "insert")
	b.points = points
	return b.errs["insert"]
}

func (b *stubRouteBuilder) FinishRoute(ctx context.Context, record *health.WorkoutRecord, metadata map[string]string) error {
	b.calls = append(b.calls, "finish")
	b.record = record
	return b.errs["finish"]
}

func testConfig(activity workout.ActivityType, location workout.LocationType) workout.Config {
	start := time.Date(2023, 5, 14, 9, 0, 0, 0, time.UTC)
	cfg := workout.Config{
		Activity: activity,
		Location: location,
		Start:    start,
		End:      start.Add(10 * time.Minute),
		Timezone: "Europe/London",
	}
	if activity == workout.ActivitySwimming {
		cfg.SwimLocation = workout.SwimPool
		cfg.LapLength = 25
		cfg.LapUnit = workout.UnitMeters
	}
	return cfg
}

func newTestSeeder(store health.Store) *Seeder {
	return New(store, rand.New(rand.NewSource(1)), nil, Defaults{Timezone: "Europe/London"})
}

func TestRunDrivesAllPhasesInOrder(t *testing.T) {
	store := newStubStore()
	s := newTestSeeder(store)

	err := s.Run(context.Background(), testConfig(workout.ActivityRunning, workout.LocationOutdoor))
	require.NoError(t, err)

	require.Equal(t, []string{"begin", "samples", "metadata", "end", "finish"}, store.builder.calls)
	require.Equal(t, []string{"insert", "finish"}, store.routeBuilder.calls)
	require.NotEmpty(t, store.builder.samples)
	require.Equal(t, map[string]string{"timezone": "Europe/London"}, store.builder.metadata)
	require.Len(t, store.routeBuilder.points, 601)
	require.Equal(t, store.builder.record, store.routeBuilder.record)
}

func TestRunSkipsRouteForIndoorWorkouts(t *testing.T) {
	store := newStubStore()
	s := newTestSeeder(store)

	err := s.Run(context.Background(), testConfig(workout.ActivityWalking, workout.LocationIndoor))
	require.NoError(t, err)

	require.Equal(t, []string{"begin", "samples", "metadata", "end", "finish"}, store.builder.calls)
	require.Zero(t, store.routeBuilderCalls)
}

func TestRunSkipsRouteForSwimming(t *testing.T) {
	store := newStubStore()
	s := newTestSeeder(store)

	err := s.Run(context.Background(), testConfig(workout.ActivitySwimming, workout.LocationOutdoor))
	require.NoError(t, err)
	require.Zero(t, store.routeBuilderCalls)
}

func TestRunContinuesAfterNonTerminalPhaseFailure(t *testing.T) {
	store := newStubStore()
	store.builder.errs = map[string]error{"begin": context.DeadlineExceeded}
	s := newTestSeeder(store)

	err := s.Run(context.Background(), testConfig(workout.ActivityRunning, workout.LocationOutdoor))
	require.NoError(t, err)

	// A failed begin is logged; the later phases still run.
	require.Equal(t, []string{"begin", "samples", "metadata", "end", "finish"}, store.builder.calls)
}

func TestRunAbortsAfterFinishFailure(t *testing.T) {
	store := newStubStore()
	store.builder.errs = map[string]error{"finish": context.DeadlineExceeded}
	s := newTestSeeder(store)

	err := s.Run(context.Background(), testConfig(workout.ActivityRunning, workout.LocationOutdoor))
	require.Error(t, err)
	require.Zero(t, store.routeBuilderCalls)
}

func TestRunReturnsErrBusyWhileGenerating(t *testing.T) {
	store := newStubStore()
	store.builder.beginHold = make(chan struct{})
	store.builder.began = make(chan struct{})
	s := newTestSeeder(store)

	done := make(chan error, 1)
	go func() {
		done <- s.Run(context.Background(), testConfig(workout.ActivityRunning, workout.LocationOutdoor))
	}()

	<-store.builder.began
	err := s.Run(context.Background(), testConfig(workout.ActivityWalking, workout.LocationOutdoor))
	require.ErrorIs(t, err, ErrBusy)

	close(store.builder.beginHold)
	require.NoError(t, <-done)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	store := newStubStore()
	s := newTestSeeder(store)

	cfg := testConfig(workout.ActivityRunning, workout.LocationOutdoor)
	cfg.End = cfg.Start

	err := s.Run(context.Background(), cfg)
	require.Error(t, err)
	require.Zero(t, store.builderCalls)
}

func TestRunRequestsAuthorizationWhenUndetermined(t *testing.T) {
	store := newStubStore()
	store.status = health.NotDetermined
	s := newTestSeeder(store)

	err := s.Run(context.Background(), testConfig(workout.ActivityRunning, workout.LocationOutdoor))
	require.NoError(t, err)

	require.Len(t, store.requested, 1)
	require.Equal(t, health.WriteTypes(), store.requested[0])
}

func TestRunFailsWhenAuthorizationDenied(t *testing.T) {
	store := newStubStore()
	store.status = health.Denied
	s := newTestSeeder(store)

	err := s.Run(context.Background(), testConfig(workout.ActivityRunning, workout.LocationOutdoor))
	require.ErrorIs(t, err, ErrNotAuthorized)
	require.Zero(t, store.builderCalls)
}

func TestRunRerandomizesTheDefaultWindow(t *testing.T) {
	store := newStubStore()
	s := newTestSeeder(store)

	beforeStart, beforeEnd := s.Window()
	require.True(t, beforeEnd.After(beforeStart))

	err := s.Run(context.Background(), testConfig(workout.ActivityCycling, workout.LocationOutdoor))
	require.NoError(t, err)

	afterStart, afterEnd := s.Window()
	require.True(t, afterEnd.After(afterStart))
	require.False(t, beforeStart.Equal(afterStart) && beforeEnd.Equal(afterEnd))
}

func TestServeStopsWhenContextIsCancelled(t *testing.T) {
	store := newStubStore()
	trigger := make(chan workout.Config)
	s := New(store, rand.New(rand.NewSource(1)), trigger, Defaults{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx)
	}()

	trigger <- testConfig(workout.ActivityHiking, workout.LocationOutdoor)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	require.Contains(t, store.builder.calls, "finish")
}

package workout

import (
	"time"

	"github.com/pkg/errors"
)

type ActivityType string

const (
	ActivityWalking  ActivityType = "walking"
	ActivityRunning  ActivityType = "running"
	ActivityHiking   ActivityType = "hiking"
	ActivityCycling  ActivityType = "cycling"
	ActivitySwimming ActivityType = "swimming"
)

func ParseActivityType(s string) (ActivityType, error) {
	switch ActivityType(s) {
	case ActivityWalking, ActivityRunning, ActivityHiking, ActivityCycling, ActivitySwimming:
		return ActivityType(s), nil
	}
	return "", errors.Errorf("workout: unknown activity type %q", s)
}

type LocationType string

const (
	LocationIndoor  LocationType = "indoor"
	LocationOutdoor LocationType = "outdoor"
)

func ParseLocationType(s string) (LocationType, error) {
	switch LocationType(s) {
	case LocationIndoor, LocationOutdoor:
		return LocationType(s), nil
	}
	return "", errors.Errorf("workout: unknown location type %q", s)
}

type SwimLocation string

const (
	SwimPool      SwimLocation = "pool"
	SwimOpenWater SwimLocation = "openwater"
)

func ParseSwimLocation(s string) (SwimLocation, error) {
	switch SwimLocation(s) {
	case SwimPool, SwimOpenWater:
		return SwimLocation(s), nil
	}
	return "", errors.Errorf("workout: unknown swim location %q", s)
}

type Unit string

const (
	UnitMeters Unit = "m"
	UnitYards  Unit = "yd"
	UnitCount  Unit = "count"
)

func ParseLapUnit(s string) (Unit, error) {
	switch Unit(s) {
	case UnitMeters, UnitYards:
		return Unit(s), nil
	}
	return "", errors.Errorf("workout: unknown lap unit %q", s)
}

type QuantityKind string

const (
	QuantityDistance    QuantityKind = "distance"
	QuantityStepCount   QuantityKind = "step_count"
	QuantityStrokeCount QuantityKind = "stroke_count"
)

// Sample is a single timestamped quantity measurement covering a
// sub-interval of the workout window.
type Sample struct {
	Kind  QuantityKind
	Value float64
	Unit  Unit
	Start time.Time
	End   time.Time
}

type RoutePoint struct {
	Latitude  float64
	Longitude float64
}

// Config carries everything one generation run needs. It is passed by value
// into the generators so presentation state never leaks into them.
type Config struct {
	Activity ActivityType
	Location LocationType
	Start    time.Time
	End      time.Time

	// Swimming only.
	SwimLocation SwimLocation
	LapLength    float64
	LapUnit      Unit

	Origin   RoutePoint
	Timezone string
}

func (c Config) Duration() time.Duration {
	return c.End.Sub(c.Start)
}

// HasRoute reports whether this workout produces a simulated GPS route.
func (c Config) HasRoute() bool {
	return c.Location == LocationOutdoor && c.Activity != ActivitySwimming
}

func (c Config) Validate() error {
	switch c.Activity {
	case ActivityWalking, ActivityRunning, ActivityHiking, ActivityCycling:
	case ActivitySwimming:
		if c.LapLength <= 0 {
			return errors.New("workout: lap length must be positive")
		}
		if _, err := ParseLapUnit(string(c.LapUnit)); err != nil {
			return err
		}
		if _, err := ParseSwimLocation(string(c.SwimLocation)); err != nil {
			return err
		}
	default:
		return errors.Errorf("workout: unknown activity type %q", c.Activity)
	}
	if _, err := ParseLocationType(string(c.Location)); err != nil {
		return err
	}
	if !c.End.After(c.Start) {
		return errors.New("workout: end must be after start")
	}
	return nil
}

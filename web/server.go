// Package web exposes the HTTP trigger surface: queueing a generation and
// listing the workouts already written to the store.
package web

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/tgillam/workout-seeder/health"
	"github.com/tgillam/workout-seeder/workout"
)

type Trigger interface {
	Trigger(cfg workout.Config) bool
}

type Configurer interface {
	BaseConfig() workout.Config
}

type Store interface {
	ListWorkouts(ctx context.Context, limit int) ([]health.WorkoutRecord, error)
}

type Server struct {
	server     *http.Server
	trigger    Trigger
	configurer Configurer
	store      Store
}

func NewServer(addr string, trigger Trigger, configurer Configurer, store Store) *Server {
	s := &Server{
		server:     &http.Server{Addr: addr},
		trigger:    trigger,
		configurer: configurer,
		store:      store,
	}
	s.server.Handler = s.routes()
	return s
}

func (s *Server) Serve() error {
	log.Println("web: starting server on", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("/workouts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			s.handleGenerate()(w, r)
		case http.MethodGet:
			s.handleList()(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	return mux
}

// generateRequest overrides the seeder's default config. Omitted fields keep
// their defaults; a zero window uses the seeder's randomized one.
type generateRequest struct {
	Activity        string  `json:"activity"`
	Location        string  `json:"location"`
	Start           string  `json:"start"`
	DurationSeconds float64 `json:"duration_seconds"`
	SwimLocation    string  `json:"swim_location"`
	LapLength       float64 `json:"lap_length"`
	LapUnit         string  `json:"lap_unit"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
}

func (s *Server) handleGenerate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		cfg, err := s.buildConfig(req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		if !s.trigger.Trigger(cfg) {
			writeError(w, http.StatusConflict, errBusy)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

var errBusy = errors.New("a generation is already pending")

func (s *Server) buildConfig(req generateRequest) (workout.Config, error) {
	cfg := s.configurer.BaseConfig()

	if req.Activity != "" {
		activity, err := workout.ParseActivityType(req.Activity)
		if err != nil {
			return cfg, err
		}
		cfg.Activity = activity
	}
	if req.Location != "" {
		location, err := workout.ParseLocationType(req.Location)
		if err != nil {
			return cfg, err
		}
		cfg.Location = location
	}
	if req.SwimLocation != "" {
		swimLocation, err := workout.ParseSwimLocation(req.SwimLocation)
		if err != nil {
			return cfg, err
		}
		cfg.SwimLocation = swimLocation
	}
	if req.LapLength != 0 {
		cfg.LapLength = req.LapLength
	}
	if req.LapUnit != "" {
		unit, err := workout.ParseLapUnit(req.LapUnit)
		if err != nil {
			return cfg, err
		}
		cfg.LapUnit = unit
	}
	if req.Latitude != 0 || req.Longitude != 0 {
		cfg.Origin = workout.RoutePoint{Latitude: req.Latitude, Longitude: req.Longitude}
	}

	if req.Start != "" {
		start, err := time.Parse(time.RFC3339, req.Start)
		if err != nil {
			return cfg, err
		}
		duration := cfg.End.Sub(cfg.Start)
		cfg.Start = start
		cfg.End = start.Add(duration)
	}
	if req.DurationSeconds > 0 {
		cfg.End = cfg.Start.Add(time.Duration(req.DurationSeconds * float64(time.Second)))
	}

	return cfg, cfg.Validate()
}

func (s *Server) handleList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := s.store.ListWorkouts(r.Context(), 50)
		if err != nil {
			log.Printf("web: error listing workouts: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []health.WorkoutRecord{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			log.Printf("web: error encoding workout list: %v", err)
		}
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

package main

import (
	"context"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/tgillam/workout-seeder/handler"
	"github.com/tgillam/workout-seeder/health"
	"github.com/tgillam/workout-seeder/health/postgres"
	"github.com/tgillam/workout-seeder/health/sqlite"
	"github.com/tgillam/workout-seeder/seeder"
	"github.com/tgillam/workout-seeder/web"
	"github.com/tgillam/workout-seeder/workout"
)

type Config struct {
	StoreBackend          string  `default:"sqlite" envconfig:"STORE_BACKEND"`
	PostgresConnectionURL string  `envconfig:"POSTGRES_CONNECTION_URL"`
	SQLitePath            string  `default:"health.db" envconfig:"SQLITE_PATH"`
	ListenAddr            string  `default:":8080" envconfig:"LISTEN_ADDR"`
	SeedSchedule          string  `envconfig:"SEED_SCHEDULE"`
	SeedOnStart           bool    `envconfig:"SEED_ON_START"`
	OriginLatitude        float64 `default:"51.4545" envconfig:"ORIGIN_LATITUDE"`
	OriginLongitude       float64 `default:"-2.5879" envconfig:"ORIGIN_LONGITUDE"`
	Timezone              string  `envconfig:"TIMEZONE"`
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}

	config := Config{}
	err := envconfig.Process("", &config)
	if err != nil {
		log.Fatal(err)
	}

	store, err := openStore(config)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Cleanup()

	trigger := handler.New()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	seed := seeder.New(store, rng, trigger.Requests(), seeder.Defaults{
		Origin: workout.RoutePoint{
			Latitude:  config.OriginLatitude,
			Longitude: config.OriginLongitude,
		},
		Timezone: config.Timezone,
	})

	ctx, cancel := context.WithCancel(context.Background())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		log.Println("shutdown signal received")
		cancel()
	}()

	if config.SeedSchedule != "" {
		c := cron.New()
		_, err = c.AddFunc(config.SeedSchedule, func() {
			log.Println("scheduled seed firing")
			trigger.Trigger(seed.RandomConfig())
		})
		if err != nil {
			log.Fatal(err)
		}
		c.Start()
		defer c.Stop()
		log.Println("scheduled seeding with", config.SeedSchedule)
	}

	if config.SeedOnStart {
		trigger.Trigger(seed.RandomConfig())
	}

	server := web.NewServer(config.ListenAddr, trigger, seed, store)
	go func() {
		err := server.Serve()
		if err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Println("error shutting down web server:", err)
		}
	}()

	log.Println("starting seeder")
	err = seed.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
	log.Println("shutting down")
}

func openStore(config Config) (health.Store, error) {
	switch config.StoreBackend {
	case "postgres":
		if config.PostgresConnectionURL == "" {
			return nil, errors.New("POSTGRES_CONNECTION_URL is required for the postgres backend")
		}
		return postgres.New(config.PostgresConnectionURL)
	case "sqlite":
		return sqlite.New(config.SQLitePath)
	default:
		return nil, errors.Errorf("unknown store backend %q", config.StoreBackend)
	}
}

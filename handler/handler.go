package handler

import (
	"log"

	"github.com/tgillam/workout-seeder/workout"
)

// Handler bridges trigger sources (HTTP, cron) to the seeder through a
// single-slot queue, so at most one generation request is ever pending.
type Handler struct {
	channel chan workout.Config
}

func New() *Handler {
	return &Handler{
		channel: make(chan workout.Config, 1),
	}
}

// Trigger queues a generation request. It reports false when a request is
// already pending.
func (h Handler) Trigger(cfg workout.Config) bool {
	select {
	case h.channel <- cfg:
		return true
	default:
		log.Println("handler: trigger dropped, a generation request is already pending")
		return false
	}
}

func (h Handler) Requests() <-chan workout.Config {
	return h.channel
}

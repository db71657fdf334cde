package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"delivery-tracking-service/internal/api/handlers"
	"delivery-tracking-service/internal/ports"
	"delivery-tracking-service/internal/services"
	"delivery-tracking-service/pkg/logger"
)

// Router is the API composition root: handlers get their dependencies here
// and stay unaware of concrete adapters.
type Router struct {
	tracking   *handlers.TrackingHandler
	stream     *handlers.StreamHandler
	plans      *handlers.PlanHandler
	health     *handlers.HealthHandler
	middleware *Middleware
}

func NewRouter(
	ingestor *services.Ingestor,
	planner *services.Planner,
	planStore ports.RoutePlanStore,
	trackingStore ports.TrackingStore,
	bus ports.BroadcastBus,
	heartbeat time.Duration,
	log *logger.Logger,
) *Router {
	handlerLog := log.Named("api")

	return &Router{
		tracking: &handlers.TrackingHandler{Ingestor: ingestor, Log: handlerLog},
		stream: &handlers.StreamHandler{
			Bus:       bus,
			Store:     trackingStore,
			Heartbeat: heartbeat,
			Log:       handlerLog,
		},
		plans:      &handlers.PlanHandler{Planner: planner, Plans: planStore, Log: handlerLog},
		health:     &handlers.HealthHandler{Log: handlerLog},
		middleware: NewMiddleware(log),
	}
}

func (rt *Router) Routes() http.Handler {
	router := chi.NewRouter()

	router.Use(rt.middleware.RequestID)
	router.Use(rt.middleware.Logger)
	router.Use(rt.middleware.Recoverer)

	router.Route("/api/v1", func(router chi.Router) {
		router.Get("/health", rt.health.Health)

		router.Post("/tracking", rt.tracking.Ingest)
		router.Get("/orders/{orderID}/stream", rt.stream.Stream)

		router.Route("/drivers/{driverID}/route", func(router chi.Router) {
			router.Get("/", rt.plans.GetRoute)
			router.Post("/plan", rt.plans.CreatePlan)
			router.Post("/subscription-plan", rt.plans.SubscriptionPlan)
			router.Get("/smart-path", rt.plans.SmartPath)
		})
	})

	return router
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/metrics"
	"github.com/hackgods/clinic-scheduling/internal/scheduling"
)

type RouterConfig struct {
	Service    *scheduling.Service
	Aggregator *scheduling.Aggregator
	Metrics    *metrics.Collector
	Logger     *zap.Logger
	Env        string
	Version    string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(MetricsMiddleware(cfg.Metrics))
	}

	// Health and metrics endpoints
	health := NewHealthHandler(cfg.Service, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Appointment endpoints
	r.Post("/appointments", bookAppointmentHandler(cfg.Service, cfg.Metrics))
	r.Get("/appointments", listAppointmentsHandler(cfg.Service))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Patch("/appointments/{id}", updateAppointmentHandler(cfg.Service, cfg.Metrics))
	r.Post("/appointments/{id}/reschedule", rescheduleAppointmentHandler(cfg.Service, cfg.Metrics))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/complete", completeAppointmentHandler(cfg.Service))
	r.Delete("/appointments/{id}", deleteAppointmentHandler(cfg.Service))

	// Physician schedule endpoints
	r.Get("/physicians/{id}/schedule", physicianScheduleHandler(cfg.Service))
	r.Get("/physicians/{id}/next-available", nextAvailableSlotHandler(cfg.Service))

	// Cross-physician availability search
	r.Post("/availability/search", availabilitySearchHandler(cfg.Aggregator))

	return r
}

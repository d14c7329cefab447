package api

import (
	"net/http"

	"github.com/hackgods/clinic-scheduling/internal/scheduling"
)

type HealthHandler struct {
	svc     *scheduling.Service
	env     string
	version string
}

func NewHealthHandler(svc *scheduling.Service, env, version string) *HealthHandler {
	return &HealthHandler{svc: svc, env: env, version: version}
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Env     string `json:"env,omitempty"`
}

type ReadinessResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version,omitempty"`
	Env          string `json:"env,omitempty"`
	Appointments int    `json:"appointments"`
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LivenessResponse{
		Status:  "ok",
		Version: h.version,
		Env:     h.env,
	})
}

// Readiness has no external dependencies to probe; the whole engine lives in
// process memory. It reports the store size as a cheap sanity signal.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ReadinessResponse{
		Status:       "ok",
		Version:      h.version,
		Env:          h.env,
		Appointments: len(h.svc.GetAllAppointments()),
	})
}

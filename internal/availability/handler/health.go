package handler

import (
	"net/http"
	"sync/atomic"

	"github.com/julienschmidt/httprouter"

	httputil "rentavail/pkg/http"
	"rentavail/pkg/kafka"
	"rentavail/pkg/logger"
)

type HealthResponse struct {
	Status     string                 `json:"status"`
	Properties int                    `json:"properties,omitempty"`
	Kafka      *kafka.MetricsSnapshot `json:"kafka,omitempty"`
}

type PropertyCounter interface {
	Properties() []string
}

// HealthHandler reports liveness unconditionally and readiness once
// MarkReady has been called, i.e. after seeding.
type HealthHandler struct {
	store   PropertyCounter
	metrics *kafka.Metrics
	ready   atomic.Bool
	log     *logger.Logger
}

func NewHealthHandler(store PropertyCounter, metrics *kafka.Metrics, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		store:   store,
		metrics: metrics,
		log:     log,
	}
}

func (h *HealthHandler) MarkReady() {
	h.ready.Store(true)
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok"}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if !h.ready.Load() {
		if err := httputil.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "starting"}); err != nil {
			h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
		}
		return
	}

	resp := HealthResponse{
		Status:     "ready",
		Properties: len(h.store.Properties()),
	}
	if h.metrics != nil {
		snap := h.metrics.Snapshot()
		resp.Kafka = &snap
	}
	if err := httputil.WriteJSON(w, http.StatusOK, resp); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"taskHub/internal/logger"

	"go.uber.org/zap"
)

const serviceName = "taskhub"

type HealthHandler struct {
	tasks   TaskService
	clients ClientCounter
}

func NewHealthHandler(tasks TaskService, clients ClientCounter) *HealthHandler {
	return &HealthHandler{tasks: tasks, clients: clients}
}

func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	clients := 0
	if h.clients != nil {
		clients = h.clients.ClientCount()
	}

	if err := h.tasks.HealthCheck(ctx); err != nil {
		logger.Warn("HTTP: Health check не пройден", zap.Error(err))
		responseWithFields(w, http.StatusServiceUnavailable,
			toPayload("status", "unavailable"),
			toPayload("service", serviceName),
			toPayload("error", err.Error()),
			toPayload("clients", clients))
		return
	}

	responseWithFields(w, http.StatusOK,
		toPayload("status", "ok"),
		toPayload("service", serviceName),
		toPayload("clients", clients))
}

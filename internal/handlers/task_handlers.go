package handlers

import (
	"net/http"
	"time"

	"taskHub/internal/handlers/dto"
	"taskHub/internal/logger"
	"taskHub/internal/models/task"

	"go.uber.org/zap"
)

type TaskHandler struct {
	tasks      TaskService
	dashboards DashboardService
	now        func() time.Time
}

func NewTaskHandler(tasks TaskService, dashboards DashboardService) *TaskHandler {
	return &TaskHandler{
		tasks:      tasks,
		dashboards: dashboards,
		now:        time.Now,
	}
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	creatorID, ok := actingUser(w, r)
	if !ok {
		return
	}

	var request dto.CreateTaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	if err := request.Validate(); err != nil {
		handleServiceError(w, r, err, "create_task")
		return
	}

	created, err := h.tasks.CreateTask(r.Context(), request.ToTask(creatorID))
	if err != nil {
		handleServiceError(w, r, err, "create_task")
		return
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.String("task_id", created.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithJSON(w, http.StatusCreated, dto.FromTask(created, h.now()))
}

// GetTasks понимает фильтры ?status=&priority=, сравнение на точное равенство
func (h *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	var filter task.Filter
	query := r.URL.Query()
	if raw := query.Get("status"); raw != "" {
		status := task.Status(raw)
		filter.Status = &status
	}
	if raw := query.Get("priority"); raw != "" {
		priority := task.Priority(raw)
		filter.Priority = &priority
	}

	tasks, err := h.tasks.GetAllTasks(r.Context(), filter)
	if err != nil {
		handleServiceError(w, r, err, "get_tasks")
		return
	}

	responseWithJSON(w, http.StatusOK, dto.FromTaskList(tasks, h.now()))
}

func (h *TaskHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}

	dashboard, err := h.dashboards.GetDashboardData(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err, "get_dashboard")
		return
	}

	responseWithJSON(w, http.StatusOK, dto.FromDashboard(dashboard, h.now()))
}

func (h *TaskHandler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	found, err := h.tasks.GetTaskByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err, "get_task")
		return
	}

	responseWithJSON(w, http.StatusOK, dto.FromTask(found, h.now()))
}

// UpdateTask обслуживает и PUT, и PATCH: в обоих случаях меняются только переданные поля
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	editorID, ok := actingUser(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var request dto.UpdateTaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	if err := request.Validate(); err != nil {
		handleServiceError(w, r, err, "update_task")
		return
	}

	updated, err := h.tasks.UpdateTask(r.Context(), id, request.ToPatch(), editorID)
	if err != nil {
		handleServiceError(w, r, err, "update_task")
		return
	}

	logger.Info("HTTP_OUT: Задача обновлена",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, dto.FromTask(updated, h.now()))
}

// DeleteTask отдаёт удалённую запись, а если удалять было нечего - 204
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	deleted, err := h.tasks.DeleteTask(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err, "delete_task")
		return
	}

	if deleted == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	logger.Info("HTTP_OUT: Задача удалена",
		zap.String("task_id", id.String()),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, dto.FromTask(deleted, h.now()))
}

func (h *TaskHandler) GetTaskLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	entries, err := h.tasks.GetTaskLogs(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err, "get_task_logs")
		return
	}

	responseWithJSON(w, http.StatusOK, dto.FromAuditList(entries))
}

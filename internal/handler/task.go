package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taskflow/taskflow/internal/auth"
	"github.com/taskflow/taskflow/internal/handler/dto"
	"github.com/taskflow/taskflow/internal/model"
	"github.com/taskflow/taskflow/internal/service"
)

// TaskHandler handles HTTP requests for task operations.
type TaskHandler struct {
	svc    *service.TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(svc *service.TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{svc: svc, logger: logger}
}

// List handles GET /api/tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	input := service.ListTasksInput{
		Status:   strings.TrimSpace(query.Get("status")),
		Category: strings.TrimSpace(query.Get("category")),
		Priority: strings.TrimSpace(query.Get("priority")),
	}
	if from := query.Get("from"); from != "" {
		t, err := dto.ParseDate(from)
		if err != nil {
			writeError(w, http.StatusBadRequest, "from: "+err.Error())
			return
		}
		input.From = &t
	}
	if to := query.Get("to"); to != "" {
		t, err := dto.ParseDate(to)
		if err != nil {
			writeError(w, http.StatusBadRequest, "to: "+err.Error())
			return
		}
		input.To = &t
	}

	tasks, err := h.svc.List(r.Context(), auth.UserIDFromContext(r.Context()), input)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "access", "")
		return
	}

	if tasks == nil {
		tasks = []*model.Task{}
	}
	count := len(tasks)
	writeJSON(w, http.StatusOK, envelope{Success: true, Count: &count, Data: tasks})
}

// Create handles POST /api/tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := h.svc.Create(r.Context(), auth.UserIDFromContext(r.Context()), req.ToInput())
	if err != nil {
		handleServiceError(w, r, h.logger, err, "create", "")
		return
	}

	h.logger.Info("task_created", "task_id", task.ID, "owner_id", task.OwnerID)
	writeSuccess(w, http.StatusCreated, task)
}

// Get handles GET /api/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	task, err := h.svc.Get(r.Context(), auth.UserIDFromContext(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "access", id)
		return
	}

	writeSuccess(w, http.StatusOK, task)
}

// Update handles PUT and PATCH /api/tasks/{id}. Both are partial updates.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.UpdateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	input, err := req.ToInput(r.Header.Get("If-Match"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.svc.Update(r.Context(), auth.UserIDFromContext(r.Context()), id, input)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "update", id)
		return
	}

	h.logger.Info("task_updated", "task_id", task.ID, "version", task.Version)
	writeSuccess(w, http.StatusOK, task)
}

// Delete handles DELETE /api/tasks/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.svc.Delete(r.Context(), auth.UserIDFromContext(r.Context()), id); err != nil {
		handleServiceError(w, r, h.logger, err, "delete", id)
		return
	}

	h.logger.Info("task_deleted", "task_id", id)
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: msgTaskDeleted, Data: struct{}{}})
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskflow/taskflow/internal/metrics"
	"github.com/taskflow/taskflow/internal/model"
	"github.com/taskflow/taskflow/internal/realtime"
	"github.com/taskflow/taskflow/internal/repository"
)

// TaskStore is the persistence contract for tasks.
type TaskStore interface {
	InsertTask(ctx context.Context, task *model.Task) error
	FindTaskByID(ctx context.Context, id string) (*model.Task, error)
	FindTasksByOwner(ctx context.Context, ownerID string, filter model.TaskFilter) ([]*model.Task, error)
	UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (*model.Task, error)
	DeleteTask(ctx context.Context, id string) (bool, error)
}

// EventPublisher hands task events to the realtime layer without blocking.
type EventPublisher interface {
	PublishAsync(ev realtime.Event)
}

// ForeignTaskPolicy decides how a request for another user's task is answered.
type ForeignTaskPolicy string

const (
	// PolicyConceal answers as if the task did not exist.
	PolicyConceal ForeignTaskPolicy = "conceal"
	// PolicyForbid answers with ErrForbidden.
	PolicyForbid ForeignTaskPolicy = "forbid"
)

// ParseForeignTaskPolicy validates a configured policy name.
func ParseForeignTaskPolicy(raw string) (ForeignTaskPolicy, error) {
	switch p := ForeignTaskPolicy(raw); p {
	case "":
		return PolicyConceal, nil
	case PolicyConceal, PolicyForbid:
		return p, nil
	default:
		return "", fmt.Errorf("unknown foreign task policy %q", raw)
	}
}

// TaskService handles task business logic. Every operation is scoped to
// the acting user.
type TaskService struct {
	store   TaskStore
	events  EventPublisher
	policy  ForeignTaskPolicy
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewTaskService creates a new TaskService.
func NewTaskService(store TaskStore, events EventPublisher, policy ForeignTaskPolicy, logger *slog.Logger, recorder metrics.Recorder) *TaskService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if policy == "" {
		policy = PolicyConceal
	}
	return &TaskService{
		store:   store,
		events:  events,
		policy:  policy,
		logger:  logger,
		metrics: recorder,
	}
}

// CreateTaskInput defines input for creating a task.
type CreateTaskInput struct {
	Title       string
	Description string
	Category    model.Category
	Priority    model.Priority
	Status      model.Status
	Deadline    *time.Time
}

// Create stores a new task owned by actorID.
func (s *TaskService) Create(ctx context.Context, actorID string, input CreateTaskInput) (*model.Task, error) {
	task := &model.Task{
		OwnerID:     actorID,
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Priority:    input.Priority,
		Status:      input.Status,
		Deadline:    input.Deadline,
	}
	task.Normalize()
	if err := task.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.InsertTask(ctx, task); err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}

	s.metrics.IncTaskCreated()
	s.logger.Debug("task_created", "task_id", task.ID, "owner_id", actorID)
	s.publish(realtime.NewTaskEvent(realtime.TaskCreated, task))

	return task, nil
}

// ListTasksInput narrows a listing. Empty fields match everything.
type ListTasksInput struct {
	Status   string
	Category string
	Priority string
	From     *time.Time
	To       *time.Time
}

// List returns the actor's tasks, newest first.
func (s *TaskService) List(ctx context.Context, actorID string, input ListTasksInput) ([]*model.Task, error) {
	filter := model.TaskFilter{
		Status:       model.ParseStatus(input.Status),
		Category:     model.Category(input.Category),
		Priority:     model.Priority(input.Priority),
		DeadlineFrom: input.From,
		DeadlineTo:   input.To,
	}

	var messages []string
	if filter.Status != "" && !filter.Status.IsValid() {
		messages = append(messages, "Status must be one of Not Started, In Progress, Completed")
	}
	if filter.Category != "" && !filter.Category.IsValid() {
		messages = append(messages, "Category must be one of Work, Personal, Hobby, Other")
	}
	if filter.Priority != "" && !filter.Priority.IsValid() {
		messages = append(messages, "Priority must be one of Low, Medium, High")
	}
	if filter.DeadlineFrom != nil && filter.DeadlineTo != nil && !filter.DeadlineFrom.Before(*filter.DeadlineTo) {
		messages = append(messages, "from must be before to")
	}
	if len(messages) > 0 {
		return nil, model.NewValidationError(messages...)
	}

	tasks, err := s.store.FindTasksByOwner(ctx, actorID, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Get returns one of the actor's tasks.
func (s *TaskService) Get(ctx context.Context, actorID, taskID string) (*model.Task, error) {
	return s.loadOwned(ctx, actorID, taskID)
}

// UpdateTaskInput defines input for updating a task. Nil fields are left
// unchanged.
type UpdateTaskInput struct {
	Title         *string
	Description   *string
	Category      *model.Category
	Priority      *model.Priority
	Status        *model.Status
	Deadline      *time.Time
	ClearDeadline bool

	// Version turns on the optimistic check when set.
	Version *int64
}

func (in UpdateTaskInput) patch() model.TaskPatch {
	return model.TaskPatch{
		Title:           in.Title,
		Description:     in.Description,
		Category:        in.Category,
		Priority:        in.Priority,
		Status:          in.Status,
		Deadline:        in.Deadline,
		ClearDeadline:   in.ClearDeadline,
		ExpectedVersion: in.Version,
	}
}

// Update applies a partial update to one of the actor's tasks.
func (s *TaskService) Update(ctx context.Context, actorID, taskID string, input UpdateTaskInput) (*model.Task, error) {
	existing, err := s.loadOwned(ctx, actorID, taskID)
	if err != nil {
		return nil, err
	}

	patch := input.patch()
	patch.Normalize()
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	if patch.IsEmpty() {
		if patch.ExpectedVersion != nil && *patch.ExpectedVersion != existing.Version {
			return nil, ErrVersionConflict
		}
		return existing, nil
	}

	updated, err := s.store.UpdateTask(ctx, taskID, patch)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrVersionConflict):
			return nil, ErrVersionConflict
		case errors.Is(err, repository.ErrTaskNotFound):
			return nil, ErrTaskNotFound
		case errors.Is(err, model.ErrValidation):
			return nil, err
		}
		return nil, fmt.Errorf("update task: %w", err)
	}

	s.metrics.IncTaskUpdated()
	s.logger.Debug("task_updated", "task_id", taskID, "owner_id", actorID, "version", updated.Version)
	s.publish(realtime.NewTaskEvent(realtime.TaskUpdated, updated))

	return updated, nil
}

// Delete removes one of the actor's tasks.
func (s *TaskService) Delete(ctx context.Context, actorID, taskID string) error {
	existing, err := s.loadOwned(ctx, actorID, taskID)
	if err != nil {
		return err
	}

	deleted, err := s.store.DeleteTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if !deleted {
		return ErrTaskNotFound
	}

	s.metrics.IncTaskDeleted()
	s.logger.Debug("task_deleted", "task_id", taskID, "owner_id", actorID)
	s.publish(realtime.NewDeletedEvent(existing.OwnerID, existing.ID))

	return nil
}

// loadOwned fetches a task and enforces ownership per the configured policy.
func (s *TaskService) loadOwned(ctx context.Context, actorID, taskID string) (*model.Task, error) {
	task, err := s.store.FindTaskByID(ctx, taskID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidID):
			return nil, ErrInvalidTaskID
		case errors.Is(err, repository.ErrTaskNotFound):
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}

	if task.OwnerID != actorID {
		s.logger.Debug("foreign_task_access", "task_id", taskID, "actor_id", actorID)
		if s.policy == PolicyForbid {
			return nil, ErrForbidden
		}
		return nil, ErrTaskNotFound
	}

	return task, nil
}

func (s *TaskService) publish(ev realtime.Event) {
	if s.events == nil {
		return
	}
	s.events.PublishAsync(ev)
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"

	"github.com/taskflow/taskflow/internal/model"
)

const taskColumns = `id, owner_id, title, description, category, priority, status, deadline, version, created_at, updated_at`

// InsertTask persists a task, assigning its id, timestamps and initial version.
func (r *Repository) InsertTask(ctx context.Context, task *model.Task) error {
	now := time.Now().UTC().Truncate(time.Microsecond)
	task.ID = ulid.Make().String()
	task.Version = 1
	task.CreatedAt = now
	task.UpdatedAt = now

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.pool.Exec(ctx, query,
		task.ID,
		task.OwnerID,
		task.Title,
		task.Description,
		task.Category,
		task.Priority,
		task.Status,
		task.Deadline,
		task.Version,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}

	return nil
}

// FindTaskByID retrieves a task by its ID.
func (r *Repository) FindTaskByID(ctx context.Context, id string) (*model.Task, error) {
	if _, err := ulid.ParseStrict(id); err != nil {
		return nil, ErrInvalidID
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task by ID: %w", err)
	}

	return task, nil
}

// FindTasksByOwner lists an owner's tasks, newest first.
func (r *Repository) FindTasksByOwner(ctx context.Context, ownerID string, filter model.TaskFilter) ([]*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = $1`
	args := []any{ownerID}
	argIndex := 2

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, filter.Status)
		argIndex++
	}
	if filter.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", argIndex)
		args = append(args, filter.Category)
		argIndex++
	}
	if filter.Priority != "" {
		query += fmt.Sprintf(" AND priority = $%d", argIndex)
		args = append(args, filter.Priority)
		argIndex++
	}
	if filter.DeadlineFrom != nil {
		query += fmt.Sprintf(" AND deadline >= $%d", argIndex)
		args = append(args, *filter.DeadlineFrom)
		argIndex++
	}
	if filter.DeadlineTo != nil {
		query += fmt.Sprintf(" AND deadline < $%d", argIndex)
		args = append(args, *filter.DeadlineTo)
	}

	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*model.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// UpdateTask applies the fields present in patch and bumps the version.
// The owner column is never part of the SET list.
func (r *Repository) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (*model.Task, error) {
	if _, err := ulid.ParseStrict(id); err != nil {
		return nil, ErrInvalidID
	}
	patch.Normalize()
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	args := []any{id}
	sets := []string{"version = version + 1"}
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	set("updated_at", time.Now().UTC().Truncate(time.Microsecond))
	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Category != nil {
		set("category", *patch.Category)
	}
	if patch.Priority != nil {
		set("priority", *patch.Priority)
	}
	if patch.Status != nil {
		set("status", *patch.Status)
	}
	switch {
	case patch.ClearDeadline:
		sets = append(sets, "deadline = NULL")
	case patch.Deadline != nil:
		set("deadline", *patch.Deadline)
	}

	where := "id = $1"
	if patch.ExpectedVersion != nil {
		args = append(args, *patch.ExpectedVersion)
		where += fmt.Sprintf(" AND version = $%d", len(args))
	}

	query := fmt.Sprintf(`UPDATE tasks SET %s WHERE %s RETURNING %s`,
		strings.Join(sets, ", "), where, taskColumns)

	task, err := scanTask(r.pool.QueryRow(ctx, query, args...))
	if err == nil {
		return task, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	if patch.ExpectedVersion != nil {
		exists, existsErr := r.taskExists(ctx, id)
		if existsErr != nil {
			return nil, existsErr
		}
		if exists {
			return nil, ErrVersionConflict
		}
	}
	return nil, ErrTaskNotFound
}

// DeleteTask removes a task and reports whether it existed.
func (r *Repository) DeleteTask(ctx context.Context, id string) (bool, error) {
	if _, err := ulid.ParseStrict(id); err != nil {
		return false, ErrInvalidID
	}

	result, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *Repository) taskExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tasks WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check task existence: %w", err)
	}
	return exists, nil
}

// scanTask scans a single row into a Task model.
func scanTask(row pgx.Row) (*model.Task, error) {
	var task model.Task
	err := row.Scan(
		&task.ID,
		&task.OwnerID,
		&task.Title,
		&task.Description,
		&task.Category,
		&task.Priority,
		&task.Status,
		&task.Deadline,
		&task.Version,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	return &task, err
}

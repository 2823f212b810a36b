// Package memstore is an in-process user and task store for development and tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/taskflow/taskflow/internal/model"
	"github.com/taskflow/taskflow/internal/repository"
)

// Store keeps users and tasks in maps guarded by a single lock.
type Store struct {
	mu    sync.RWMutex
	users map[string]*model.User
	tasks map[string]*model.Task
	now   func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users: make(map[string]*model.User),
		tasks: make(map[string]*model.Task),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

// CreateUser stores a copy of user after assigning its id and timestamps.
func (s *Store) CreateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == user.Username {
			return repository.ErrUsernameExists
		}
		if strings.EqualFold(existing.Email, user.Email) {
			return repository.ErrEmailExists
		}
	}

	now := s.now()
	user.ID = ulid.Make().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	s.users[user.ID] = &stored
	return nil
}

// GetUserByID returns a copy of the user with the given id.
func (s *Store) GetUserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	found := *user
	return &found, nil
}

// GetUserByEmail returns a copy of the user with the given email.
func (s *Store) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			found := *user
			return &found, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

// InsertTask stores a copy of task after assigning its id, timestamps and version.
func (s *Store) InsertTask(_ context.Context, task *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	task.ID = ulid.Make().String()
	task.Version = 1
	task.CreatedAt = now
	task.UpdatedAt = now

	s.tasks[task.ID] = cloneTask(task)
	return nil
}

// FindTaskByID returns a copy of the task with the given id.
func (s *Store) FindTaskByID(_ context.Context, id string) (*model.Task, error) {
	if _, err := ulid.ParseStrict(id); err != nil {
		return nil, repository.ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, repository.ErrTaskNotFound
	}
	return cloneTask(task), nil
}

// FindTasksByOwner lists copies of an owner's tasks, newest first.
func (s *Store) FindTasksByOwner(_ context.Context, ownerID string, filter model.TaskFilter) ([]*model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]*model.Task, 0)
	for _, task := range s.tasks {
		if task.OwnerID == ownerID && filter.Matches(task) {
			tasks = append(tasks, cloneTask(task))
		}
	}

	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		}
		return tasks[i].ID > tasks[j].ID
	})
	return tasks, nil
}

// UpdateTask applies the present patch fields and bumps the version.
func (s *Store) UpdateTask(_ context.Context, id string, patch model.TaskPatch) (*model.Task, error) {
	if _, err := ulid.ParseStrict(id); err != nil {
		return nil, repository.ErrInvalidID
	}
	patch.Normalize()
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, repository.ErrTaskNotFound
	}
	if patch.ExpectedVersion != nil && *patch.ExpectedVersion != task.Version {
		return nil, repository.ErrVersionConflict
	}

	updated := cloneTask(task)
	patch.ApplyTo(updated)
	updated.Version++
	updated.UpdatedAt = s.now()

	s.tasks[id] = updated
	return cloneTask(updated), nil
}

// DeleteTask removes a task and reports whether it existed.
func (s *Store) DeleteTask(_ context.Context, id string) (bool, error) {
	if _, err := ulid.ParseStrict(id); err != nil {
		return false, repository.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return false, nil
	}
	delete(s.tasks, id)
	return true, nil
}

func cloneTask(t *model.Task) *model.Task {
	c := *t
	if t.Deadline != nil {
		d := *t.Deadline
		c.Deadline = &d
	}
	return &c
}

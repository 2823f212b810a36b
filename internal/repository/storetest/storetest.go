// Package storetest is a behavioural suite every user and task store must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/taskflow/taskflow/internal/model"
	"github.com/taskflow/taskflow/internal/repository"
	"github.com/taskflow/taskflow/internal/testutil"
)

// Store is the union of the user and task store contracts.
type Store interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	InsertTask(ctx context.Context, task *model.Task) error
	FindTaskByID(ctx context.Context, id string) (*model.Task, error)
	FindTasksByOwner(ctx context.Context, ownerID string, filter model.TaskFilter) ([]*model.Task, error)
	UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (*model.Task, error)
	DeleteTask(ctx context.Context, id string) (bool, error)
}

// Harness describes the store under test.
type Harness struct {
	// New returns an empty store.
	New func(t *testing.T) Store
	// MissingID is well formed for the driver but never assigned.
	MissingID string
}

// malformedID is rejected by every driver's id parser.
const malformedID = "not-a-valid-id!"

// Run executes the suite.
func Run(t *testing.T, h Harness) {
	t.Run("UserDuplicates", func(t *testing.T) { testUserDuplicates(t, h) })
	t.Run("UserLookup", func(t *testing.T) { testUserLookup(t, h) })
	t.Run("InsertAndFind", func(t *testing.T) { testInsertAndFind(t, h) })
	t.Run("MalformedIDs", func(t *testing.T) { testMalformedIDs(t, h) })
	t.Run("ListByOwner", func(t *testing.T) { testListByOwner(t, h) })
	t.Run("ListFilters", func(t *testing.T) { testListFilters(t, h) })
	t.Run("UpdatePartial", func(t *testing.T) { testUpdatePartial(t, h) })
	t.Run("UpdateRevalidates", func(t *testing.T) { testUpdateRevalidates(t, h) })
	t.Run("UpdateVersion", func(t *testing.T) { testUpdateVersion(t, h) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, h) })
}

func createUser(t *testing.T, s Store, name string) *model.User {
	t.Helper()
	user := testutil.NewTestUser(t, name)
	if err := s.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser(%s): %v", name, err)
	}
	if user.ID == "" {
		t.Fatal("CreateUser did not assign an id")
	}
	return user
}

func insertTask(t *testing.T, s Store, task *model.Task) *model.Task {
	t.Helper()
	if err := s.InsertTask(context.Background(), task); err != nil {
		t.Fatalf("InsertTask(%s): %v", task.Title, err)
	}
	return task
}

func testUserDuplicates(t *testing.T, h Harness) {
	ctx := context.Background()
	s := h.New(t)
	alice := createUser(t, s, "alice")

	sameEmail := testutil.NewTestUser(t, "other")
	sameEmail.Email = alice.Email
	if err := s.CreateUser(ctx, sameEmail); !errors.Is(err, repository.ErrEmailExists) {
		t.Errorf("duplicate email: err = %v, want ErrEmailExists", err)
	}

	sameName := testutil.NewTestUser(t, "other")
	sameName.Username = alice.Username
	if err := s.CreateUser(ctx, sameName); !errors.Is(err, repository.ErrUsernameExists) {
		t.Errorf("duplicate username: err = %v, want ErrUsernameExists", err)
	}
}

func testUserLookup(t *testing.T, h Harness) {
	ctx := context.Background()
	s := h.New(t)
	alice := createUser(t, s, "alice")

	byEmail, err := s.GetUserByEmail(ctx, alice.Email)
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if byEmail.ID != alice.ID || byEmail.PasswordHash != alice.PasswordHash {
		t.Errorf("GetUserByEmail returned %+v", byEmail)
	}

	byID, err := s.GetUserByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if byID.Username != alice.Username {
		t.Errorf("Username = %q, want %q", byID.Username, alice.Username)
	}
	if !byID.CreatedAt.Equal(alice.CreatedAt) {
		t.Errorf("stored CreatedAt %v differs from the created %v", byID.CreatedAt, alice.CreatedAt)
	}

	if _, err := s.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, repository.ErrUserNotFound) {
		t.Errorf("unknown email: err = %v, want ErrUserNotFound", err)
	}
	if _, err := s.GetUserByID(ctx, malformedID); !errors.Is(err, repository.ErrUserNotFound) {
		t.Errorf("malformed user id: err = %v, want ErrUserNotFound", err)
	}
}

func testInsertAndFind(t *testing.T, h Harness) {
	ctx := context.Background()
	s := h.New(t)
	owner := createUser(t, s, "owner")

	deadline := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	task := testutil.NewTestTaskWithDeadline(t, owner.ID, "Write report", deadline)
	task.Description = "first draft"
	insertTask(t, s, task)

	if task.ID == "" || task.CreatedAt.IsZero() || task.UpdatedAt.IsZero() {
		t.Fatalf("InsertTask did not assign id and timestamps: %+v", task)
	}
	if task.Version != 1 {
		t.Errorf("Version = %d, want 1", task.Version)
	}

	got, err := s.FindTaskByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("FindTaskByID: %v", err)
	}
	if got.OwnerID != owner.ID || got.Title != "Write report" || got.Description != "first draft" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.Status != model.StatusNotStarted || got.Priority != model.PriorityMedium || got.Category != model.CategoryPersonal {
		t.Errorf("defaults not persisted: %+v", got)
	}
	if got.Deadline == nil || !got.Deadline.Equal(deadline) {
		t.Errorf("Deadline = %v, want %v", got.Deadline, deadline)
	}
	if !got.CreatedAt.Equal(task.CreatedAt) || !got.UpdatedAt.Equal(task.UpdatedAt) {
		t.Errorf("stored timestamps %v/%v differ from the inserted %v/%v",
			got.CreatedAt, got.UpdatedAt, task.CreatedAt, task.UpdatedAt)
	}

	if _, err := s.FindTaskByID(ctx, h.MissingID); !errors.Is(err, repository.ErrTaskNotFound) {
		t.Errorf("missing id: err = %v, want ErrTaskNotFound", err)
	}
}

func testMalformedIDs(t *testing.T, h Harness) {
	ctx := context.Background()
	s := h.New(t)

	if _, err := s.FindTaskByID(ctx, malformedID); !errors.Is(err, repository.ErrInvalidID) {
		t.Errorf("FindTaskByID: err = %v, want ErrInvalidID", err)
	}
	if _, err := s.UpdateTask(ctx, malformedID, model.TaskPatch{}); !errors.Is(err, repository.ErrInvalidID) {
		t.Errorf("UpdateTask: err = %v, want ErrInvalidID", err)
	}
	if _, err := s.DeleteTask(ctx, malformedID); !errors.Is(err, repository.ErrInvalidID) {
		t.Errorf("DeleteTask: err = %v, want ErrInvalidID", err)
	}
}

func testListByOwner(t *testing.T, h Harness) {
	ctx := context.Background()
	s := h.New(t)
	alice := createUser(t, s, "alice")
	bob := createUser(t, s, "bob")

	first := insertTask(t, s, testutil.NewTestTask(t, alice.ID, "first"))
	time.Sleep(5 * time.Millisecond)
	second := insertTask(t, s, testutil.NewTestTask(t, alice.ID, "second"))
	insertTask(t, s, testutil.NewTestTask(t, bob.ID, "bob's"))

	tasks, err := s.FindTasksByOwner(ctx, alice.ID, model.TaskFilter{})
	if err != nil {
		t.Fatalf("FindTasksByOwner: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	if tasks[0].ID != second.ID || tasks[1].ID != first.ID {
		t.Errorf("order = [%s %s], want newest first [%s %s]", tasks[0].Title, tasks[1].Title, second.Title, first.Title)
	}
	for _, task := range tasks {
		if task.OwnerID != alice.ID {
			t.Errorf("task %s belongs to %s", task.ID, task.OwnerID)
		}
	}

	none, err := s.FindTasksByOwner(ctx, createUser(t, s, "carol").ID, model.TaskFilter{})
	if err != nil {
		t.Fatalf("FindTasksByOwner(carol): %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", none)
	}
}

func testListFilters(t *testing.T, h Harness) {
	ctx := context.Background()
	s := h.New(t)
	owner := createUser(t, s, "owner")

	march := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	april := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)

	work := testutil.NewTestTaskWithDeadline(t, owner.ID, "work", march)
	work.Category = model.CategoryWork
	work.Status = model.StatusInProgress
	insertTask(t, s, work)

	hobby := testutil.NewTestTaskWithDeadline(t, owner.ID, "hobby", april)
	hobby.Category = model.CategoryHobby
	hobby.Priority = model.PriorityHigh
	insertTask(t, s, hobby)

	insertTask(t, s, testutil.NewTestTask(t, owner.ID, "undated"))

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter model.TaskFilter
		want   []string
	}{
		{"status", model.TaskFilter{Status: model.StatusInProgress}, []string{"work"}},
		{"category", model.TaskFilter{Category: model.CategoryHobby}, []string{"hobby"}},
		{"priority", model.TaskFilter{Priority: model.PriorityHigh}, []string{"hobby"}},
		{"deadline range", model.TaskFilter{DeadlineFrom: &from, DeadlineTo: &to}, []string{"work"}},
		{"open range", model.TaskFilter{DeadlineFrom: &from}, []string{"hobby", "work"}},
	}

	for _, tt := range tests {
		tasks, err := s.FindTasksByOwner(ctx, owner.ID, tt.filter)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		got := make([]string, 0, len(tasks))
		for _, task := range tasks {
			got = append(got, task.Title)
		}
		if !equalStrings(got, tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func testUpdatePartial(t *testing.T, h Harness) {
	ctx := context.Background()
	s := h.New(t)
	owner := createUser(t, s, "owner")
	deadline := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	task := insertTask(t, s, testutil.NewTestTaskWithDeadline(t, owner.ID, "original", deadline))

	time.Sleep(5 * time.Millisecond)
	status := model.StatusCompleted
	updated, err := s.UpdateTask(ctx, task.ID, model.TaskPatch{Status: &status})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.Status != model.StatusCompleted {
		t.Errorf("Status = %s, want Completed", updated.Status)
	}
	if updated.Title != "original" || updated.Deadline == nil {
		t.Errorf("untouched fields changed: %+v", updated)
	}
	if updated.OwnerID != owner.ID {
		t.Errorf("OwnerID = %s, want %s", updated.OwnerID, owner.ID)
	}
	if !updated.UpdatedAt.After(task.UpdatedAt) {
		t.Errorf("UpdatedAt %v did not advance past %v", updated.UpdatedAt, task.UpdatedAt)
	}
	if updated.Version != 2 {
		t.Errorf("Version = %d, want 2", updated.Version)
	}
	reread, err := s.FindTaskByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("FindTaskByID: %v", err)
	}
	if !reread.UpdatedAt.Equal(updated.UpdatedAt) {
		t.Errorf("stored UpdatedAt %v differs from the returned %v", reread.UpdatedAt, updated.UpdatedAt)
	}

	cleared, err := s.UpdateTask(ctx, task.ID, model.TaskPatch{ClearDeadline: true})
	if err != nil {
		t.Fatalf("UpdateTask(clear deadline): %v", err)
	}
	if cleared.Deadline != nil {
		t.Errorf("Deadline = %v, want cleared", cleared.Deadline)
	}

	if _, err := s.UpdateTask(ctx, h.MissingID, model.TaskPatch{Status: &status}); !errors.Is(err, repository.ErrTaskNotFound) {
		t.Errorf("missing id: err = %v, want ErrTaskNotFound", err)
	}
}

func testUpdateRevalidates(t *testing.T, h Harness) {
	ctx := context.Background()
	s := h.New(t)
	owner := createUser(t, s, "owner")
	task := insertTask(t, s, testutil.NewTestTask(t, owner.ID, "valid"))

	bad := model.Priority("Urgent")
	if _, err := s.UpdateTask(ctx, task.ID, model.TaskPatch{Priority: &bad}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}

	got, err := s.FindTaskByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("FindTaskByID: %v", err)
	}
	if got.Priority != model.PriorityMedium || got.Version != 1 {
		t.Errorf("rejected patch modified the task: %+v", got)
	}
}

func testUpdateVersion(t *testing.T, h Harness) {
	ctx := context.Background()
	s := h.New(t)
	owner := createUser(t, s, "owner")
	task := insertTask(t, s, testutil.NewTestTask(t, owner.ID, "versioned"))

	title := "second"
	current := int64(1)
	if _, err := s.UpdateTask(ctx, task.ID, model.TaskPatch{Title: &title, ExpectedVersion: &current}); err != nil {
		t.Fatalf("UpdateTask with current version: %v", err)
	}

	stale := "stale write"
	if _, err := s.UpdateTask(ctx, task.ID, model.TaskPatch{Title: &stale, ExpectedVersion: &current}); !errors.Is(err, repository.ErrVersionConflict) {
		t.Errorf("stale version: err = %v, want ErrVersionConflict", err)
	}

	got, _ := s.FindTaskByID(ctx, task.ID)
	if got.Title != "second" {
		t.Errorf("Title = %q, want second", got.Title)
	}

	if _, err := s.UpdateTask(ctx, h.MissingID, model.TaskPatch{Title: &stale, ExpectedVersion: &current}); !errors.Is(err, repository.ErrTaskNotFound) {
		t.Errorf("missing id with version: err = %v, want ErrTaskNotFound", err)
	}
}

func testDelete(t *testing.T, h Harness) {
	ctx := context.Background()
	s := h.New(t)
	owner := createUser(t, s, "owner")
	task := insertTask(t, s, testutil.NewTestTask(t, owner.ID, "doomed"))

	removed, err := s.DeleteTask(ctx, task.ID)
	if err != nil || !removed {
		t.Fatalf("first DeleteTask = %v, %v; want true, nil", removed, err)
	}

	removed, err = s.DeleteTask(ctx, task.ID)
	if err != nil || removed {
		t.Errorf("second DeleteTask = %v, %v; want false, nil", removed, err)
	}

	if _, err := s.FindTaskByID(ctx, task.ID); !errors.Is(err, repository.ErrTaskNotFound) {
		t.Errorf("FindTaskByID after delete: err = %v, want ErrTaskNotFound", err)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

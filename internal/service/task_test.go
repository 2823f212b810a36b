package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/taskflow/taskflow/internal/metrics"
	"github.com/taskflow/taskflow/internal/model"
	"github.com/taskflow/taskflow/internal/realtime"
	"github.com/taskflow/taskflow/internal/repository/memstore"
)

func newTaskService(policy ForeignTaskPolicy) (*TaskService, *recordingPublisher, *metrics.InMemoryRecorder) {
	pub := &recordingPublisher{}
	rec := metrics.NewInMemory()
	return NewTaskService(memstore.New(), pub, policy, testLogger(), rec), pub, rec
}

func TestTaskService_CreateForcesOwnerAndDefaults(t *testing.T) {
	t.Parallel()

	svc, pub, rec := newTaskService(PolicyConceal)
	task, err := svc.Create(context.Background(), "alice", CreateTaskInput{Title: "  Write report  "})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if task.OwnerID != "alice" || task.Title != "Write report" {
		t.Errorf("task = %+v", task)
	}
	if task.Category != model.CategoryPersonal || task.Priority != model.PriorityMedium || task.Status != model.StatusNotStarted {
		t.Errorf("defaults not applied: %+v", task)
	}
	if task.Version != 1 {
		t.Errorf("Version = %d, want 1", task.Version)
	}

	events := pub.Events()
	if len(events) != 1 || events[0].Type != realtime.TaskCreated || events[0].OwnerID != "alice" {
		t.Errorf("events = %+v", events)
	}
	if rec.Snapshot().TasksCreated != 1 {
		t.Error("create not counted")
	}
}

func TestTaskService_CreateValidation(t *testing.T) {
	t.Parallel()

	svc, pub, _ := newTaskService(PolicyConceal)
	_, err := svc.Create(context.Background(), "alice", CreateTaskInput{Title: "   ", Priority: "Urgent"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("error = %v, want validation", err)
	}
	if err.Error() != "Please add a task title, Priority must be one of Low, Medium, High" {
		t.Errorf("message = %q", err.Error())
	}
	if len(pub.Events()) != 0 {
		t.Error("event published for rejected task")
	}
}

func TestTaskService_ListOnlyOwn(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTaskService(PolicyConceal)
	ctx := context.Background()

	first, _ := svc.Create(ctx, "alice", CreateTaskInput{Title: "one"})
	second, _ := svc.Create(ctx, "alice", CreateTaskInput{Title: "two", Status: model.StatusCompleted})
	_, _ = svc.Create(ctx, "bob", CreateTaskInput{Title: "bob's"})

	tasks, err := svc.List(ctx, "alice", ListTasksInput{})
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 || tasks[0].ID != second.ID || tasks[1].ID != first.ID {
		t.Fatalf("List() = %v, want [two, one]", ids(tasks))
	}

	done, err := svc.List(ctx, "alice", ListTasksInput{Status: "Completed"})
	if err != nil || len(done) != 1 || done[0].ID != second.ID {
		t.Errorf("status filter = %v, %v", ids(done), err)
	}

	none, err := svc.List(ctx, "carol", ListTasksInput{})
	if err != nil || none == nil || len(none) != 0 {
		t.Errorf("empty listing = %v, %v; want empty non-nil", none, err)
	}
}

func TestTaskService_ListRejectsBadFilters(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTaskService(PolicyConceal)
	from := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(-time.Hour)

	tests := []ListTasksInput{
		{Status: "Done"},
		{Category: "Chores"},
		{Priority: "Urgent"},
		{From: &from, To: &to},
	}
	for _, in := range tests {
		if _, err := svc.List(context.Background(), "alice", in); !errors.Is(err, ErrValidation) {
			t.Errorf("List(%+v) error = %v, want validation", in, err)
		}
	}
}

func TestTaskService_ForeignTaskPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		policy  ForeignTaskPolicy
		wantErr error
	}{
		{PolicyConceal, ErrTaskNotFound},
		{PolicyForbid, ErrForbidden},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.policy), func(t *testing.T) {
			t.Parallel()

			svc, pub, _ := newTaskService(tt.policy)
			ctx := context.Background()
			task, _ := svc.Create(ctx, "alice", CreateTaskInput{Title: "private"})

			if _, err := svc.Get(ctx, "bob", task.ID); !errors.Is(err, tt.wantErr) {
				t.Errorf("Get() error = %v, want %v", err, tt.wantErr)
			}
			if _, err := svc.Update(ctx, "bob", task.ID, UpdateTaskInput{Title: ptr("hijacked")}); !errors.Is(err, tt.wantErr) {
				t.Errorf("Update() error = %v, want %v", err, tt.wantErr)
			}
			if err := svc.Delete(ctx, "bob", task.ID); !errors.Is(err, tt.wantErr) {
				t.Errorf("Delete() error = %v, want %v", err, tt.wantErr)
			}

			got, err := svc.Get(ctx, "alice", task.ID)
			if err != nil || got.Title != "private" {
				t.Errorf("owner view = %+v, %v", got, err)
			}
			if len(pub.Events()) != 1 {
				t.Errorf("foreign mutations published events: %+v", pub.Events())
			}
		})
	}
}

func TestTaskService_MissingAndMalformedIDs(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTaskService(PolicyConceal)
	ctx := context.Background()

	if _, err := svc.Get(ctx, "alice", "01ARZ3NDEKTSV4RRFFQ69G5FAV"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("missing id error = %v", err)
	}
	if _, err := svc.Get(ctx, "alice", "not-an-id"); !errors.Is(err, ErrInvalidTaskID) {
		t.Errorf("malformed id error = %v", err)
	}
}

func TestTaskService_Update(t *testing.T) {
	t.Parallel()

	svc, pub, _ := newTaskService(PolicyConceal)
	ctx := context.Background()
	deadline := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	task, _ := svc.Create(ctx, "alice", CreateTaskInput{Title: "draft", Deadline: &deadline})

	status := model.StatusInProgress
	updated, err := svc.Update(ctx, "alice", task.ID, UpdateTaskInput{Status: &status, ClearDeadline: true})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Status != model.StatusInProgress || updated.Title != "draft" || updated.Deadline != nil {
		t.Errorf("updated = %+v", updated)
	}
	if updated.Version != 2 || updated.OwnerID != "alice" {
		t.Errorf("Version = %d owner = %s", updated.Version, updated.OwnerID)
	}

	events := pub.Events()
	if last := events[len(events)-1]; last.Type != realtime.TaskUpdated || last.Task.Version != 2 {
		t.Errorf("last event = %+v", last)
	}

	if _, err := svc.Update(ctx, "alice", task.ID, UpdateTaskInput{Title: ptr("")}); !errors.Is(err, ErrValidation) {
		t.Errorf("blank title error = %v", err)
	}
}

func TestTaskService_UpdateVersionConflict(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTaskService(PolicyConceal)
	ctx := context.Background()
	task, _ := svc.Create(ctx, "alice", CreateTaskInput{Title: "draft"})

	if _, err := svc.Update(ctx, "alice", task.ID, UpdateTaskInput{Title: ptr("v2"), Version: ptr(int64(1))}); err != nil {
		t.Fatalf("matching version error = %v", err)
	}
	if _, err := svc.Update(ctx, "alice", task.ID, UpdateTaskInput{Title: ptr("stale"), Version: ptr(int64(1))}); !errors.Is(err, ErrVersionConflict) {
		t.Errorf("stale version error = %v, want ErrVersionConflict", err)
	}
	if _, err := svc.Update(ctx, "alice", task.ID, UpdateTaskInput{Version: ptr(int64(1))}); !errors.Is(err, ErrVersionConflict) {
		t.Errorf("empty patch with stale version error = %v", err)
	}

	got, _ := svc.Get(ctx, "alice", task.ID)
	if got.Title != "v2" || got.Version != 2 {
		t.Errorf("task after conflict = %+v", got)
	}
}

func TestTaskService_DeleteTwice(t *testing.T) {
	t.Parallel()

	svc, pub, _ := newTaskService(PolicyConceal)
	ctx := context.Background()
	task, _ := svc.Create(ctx, "alice", CreateTaskInput{Title: "temp"})

	if err := svc.Delete(ctx, "alice", task.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := svc.Delete(ctx, "alice", task.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("second Delete() error = %v, want ErrTaskNotFound", err)
	}

	events := pub.Events()
	last := events[len(events)-1]
	if last.Type != realtime.TaskDeleted || last.TaskID != task.ID || last.OwnerID != "alice" || last.Task != nil {
		t.Errorf("delete event = %+v", last)
	}
}

func TestParseForeignTaskPolicy(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]ForeignTaskPolicy{"": PolicyConceal, "conceal": PolicyConceal, "forbid": PolicyForbid} {
		got, err := ParseForeignTaskPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseForeignTaskPolicy(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseForeignTaskPolicy("reveal"); err == nil {
		t.Error("unknown policy accepted")
	}
}

func ids(tasks []*model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

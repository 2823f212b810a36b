package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTask_Normalize_Defaults(t *testing.T) {
	t.Parallel()

	task := &Task{Title: "  Write report  "}
	task.Normalize()

	if task.Title != "Write report" {
		t.Errorf("Title = %q, want trimmed", task.Title)
	}
	if task.Category != CategoryPersonal {
		t.Errorf("Category = %s, want %s", task.Category, CategoryPersonal)
	}
	if task.Priority != PriorityMedium {
		t.Errorf("Priority = %s, want %s", task.Priority, PriorityMedium)
	}
	if task.Status != StatusNotStarted {
		t.Errorf("Status = %s, want %s", task.Status, StatusNotStarted)
	}
}

func TestTask_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		task    Task
		wantErr bool
		wantMsg string
	}{
		{
			name: "valid task",
			task: Task{Title: "ok", Category: CategoryWork, Priority: PriorityHigh, Status: StatusCompleted},
		},
		{
			name:    "empty title",
			task:    Task{Title: "", Category: CategoryWork, Priority: PriorityHigh, Status: StatusCompleted},
			wantErr: true,
			wantMsg: "Please add a task title",
		},
		{
			name:    "title too long",
			task:    Task{Title: strings.Repeat("a", MaxTitleLength+1), Category: CategoryWork, Priority: PriorityLow, Status: StatusNotStarted},
			wantErr: true,
			wantMsg: "Title cannot be more than 100 characters",
		},
		{
			name: "title at limit counts runes",
			task: Task{Title: strings.Repeat("é", MaxTitleLength), Category: CategoryWork, Priority: PriorityLow, Status: StatusNotStarted},
		},
		{
			name:    "bad category",
			task:    Task{Title: "ok", Category: "Chores", Priority: PriorityLow, Status: StatusNotStarted},
			wantErr: true,
			wantMsg: "Category must be one of Work, Personal, Hobby, Other",
		},
		{
			name:    "several errors are joined",
			task:    Task{Title: "", Description: strings.Repeat("d", MaxDescriptionLength+1), Category: CategoryWork, Priority: "Urgent", Status: StatusNotStarted},
			wantErr: true,
			wantMsg: "Please add a task title, Description cannot be more than 500 characters, Priority must be one of Low, Medium, High",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.task.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("error %v does not match ErrValidation", err)
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestTaskPatch_Validate(t *testing.T) {
	t.Parallel()

	empty := ""
	long := strings.Repeat("x", MaxTitleLength+1)
	bad := Status("Done")
	good := StatusInProgress

	tests := []struct {
		name    string
		patch   TaskPatch
		wantErr bool
	}{
		{name: "empty patch", patch: TaskPatch{}},
		{name: "valid status", patch: TaskPatch{Status: &good}},
		{name: "blank title", patch: TaskPatch{Title: &empty}, wantErr: true},
		{name: "long title", patch: TaskPatch{Title: &long}, wantErr: true},
		{name: "unknown status", patch: TaskPatch{Status: &bad}, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.patch.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTaskPatch_ApplyTo(t *testing.T) {
	t.Parallel()

	deadline := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	task := &Task{
		ID:       "t1",
		OwnerID:  "owner",
		Title:    "old",
		Status:   StatusNotStarted,
		Deadline: &deadline,
	}

	title := "new"
	status := StatusCompleted
	patch := TaskPatch{Title: &title, Status: &status, ClearDeadline: true}
	patch.ApplyTo(task)

	if task.Title != "new" || task.Status != StatusCompleted {
		t.Errorf("patch not applied: %+v", task)
	}
	if task.Deadline != nil {
		t.Errorf("Deadline = %v, want cleared", task.Deadline)
	}
	if task.OwnerID != "owner" {
		t.Errorf("OwnerID = %s, want unchanged", task.OwnerID)
	}
}

func TestParseStatus(t *testing.T) {
	t.Parallel()

	cases := map[string]Status{
		"NotStarted":  StatusNotStarted,
		"InProgress":  StatusInProgress,
		"Completed":   StatusCompleted,
		"In Progress": StatusInProgress,
		" Completed ": StatusCompleted,
		"Done":        Status("Done"),
	}
	for in, want := range cases {
		if got := ParseStatus(in); got != want {
			t.Errorf("ParseStatus(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTaskFilter_Matches(t *testing.T) {
	t.Parallel()

	march := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	task := &Task{Status: StatusInProgress, Category: CategoryWork, Priority: PriorityHigh, Deadline: &march}
	undated := &Task{Status: StatusInProgress}

	tests := []struct {
		name   string
		filter TaskFilter
		task   *Task
		want   bool
	}{
		{"zero filter", TaskFilter{}, task, true},
		{"status match", TaskFilter{Status: StatusInProgress}, task, true},
		{"status mismatch", TaskFilter{Status: StatusCompleted}, task, false},
		{"category mismatch", TaskFilter{Category: CategoryHobby}, task, false},
		{"deadline in range", TaskFilter{DeadlineFrom: &from, DeadlineTo: &to}, task, true},
		{"deadline at exclusive end", TaskFilter{DeadlineTo: &march}, task, false},
		{"range excludes undated", TaskFilter{DeadlineFrom: &from}, undated, false},
	}
	for _, tt := range tests {
		if got := tt.filter.Matches(tt.task); got != tt.want {
			t.Errorf("%s: Matches() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestUser_PasswordHashNotSerialized(t *testing.T) {
	t.Parallel()

	u := User{ID: "u1", Username: "alice", Email: "a@x.com", PasswordHash: "$2a$10$secret"}
	data, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "secret") {
		t.Errorf("password hash leaked: %s", data)
	}
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()
	if got := NormalizeEmail("  Alice@Example.COM "); got != "alice@example.com" {
		t.Errorf("NormalizeEmail() = %q", got)
	}
}

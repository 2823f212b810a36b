// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/taskflow/taskflow/internal/model"
	"github.com/taskflow/taskflow/internal/service"
)

// dateLayout is the calendar date form sent by date pickers.
const dateLayout = "2006-01-02"

// ErrInvalidDate is returned for deadlines that are neither a date nor RFC 3339.
var ErrInvalidDate = errors.New("deadline must be a date (YYYY-MM-DD) or RFC 3339 timestamp")

// ParseDate accepts YYYY-MM-DD (midnight UTC) or an RFC 3339 timestamp.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, ErrInvalidDate
}

// Deadline is an optional deadline field. Set records that the field was
// present; a present null or empty string clears the deadline.
type Deadline struct {
	Set   bool
	Value *time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Deadline) UnmarshalJSON(data []byte) error {
	d.Set = true
	d.Value = nil
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return ErrInvalidDate
	}
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	t, err := ParseDate(raw)
	if err != nil {
		return err
	}
	d.Value = &t
	return nil
}

// CreateTaskRequest represents the request body for creating a task.
// Any ownerId in the body is ignored.
type CreateTaskRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Priority    string   `json:"priority"`
	Status      string   `json:"status"`
	Deadline    Deadline `json:"deadline"`
}

// ToInput converts the request to service input.
func (r CreateTaskRequest) ToInput() service.CreateTaskInput {
	return service.CreateTaskInput{
		Title:       r.Title,
		Description: r.Description,
		Category:    model.Category(strings.TrimSpace(r.Category)),
		Priority:    model.Priority(strings.TrimSpace(r.Priority)),
		Status:      model.ParseStatus(r.Status),
		Deadline:    r.Deadline.Value,
	}
}

// UpdateTaskRequest represents the request body for PUT and PATCH.
// Absent fields are left unchanged.
type UpdateTaskRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Priority    *string  `json:"priority"`
	Status      *string  `json:"status"`
	Deadline    Deadline `json:"deadline"`
	Version     *int64   `json:"version"`
}

// ToInput converts the request to service input. ifMatch is the raw
// If-Match header, used when the body carries no version.
func (r UpdateTaskRequest) ToInput(ifMatch string) (service.UpdateTaskInput, error) {
	in := service.UpdateTaskInput{
		Title:       r.Title,
		Description: r.Description,
		Version:     r.Version,
	}
	if r.Category != nil {
		c := model.Category(strings.TrimSpace(*r.Category))
		in.Category = &c
	}
	if r.Priority != nil {
		p := model.Priority(strings.TrimSpace(*r.Priority))
		in.Priority = &p
	}
	if r.Status != nil {
		s := model.ParseStatus(*r.Status)
		in.Status = &s
	}
	if r.Deadline.Set {
		in.Deadline = r.Deadline.Value
		in.ClearDeadline = r.Deadline.Value == nil
	}
	if in.Version == nil && strings.TrimSpace(ifMatch) != "" {
		v, err := ParseVersionTag(ifMatch)
		if err != nil {
			return in, err
		}
		in.Version = &v
	}
	return in, nil
}

// ParseVersionTag reads a task version from an If-Match value such as
// `3`, `"3"` or `W/"3"`.
func ParseVersionTag(raw string) (int64, error) {
	tag := strings.TrimSpace(raw)
	tag = strings.TrimPrefix(tag, "W/")
	tag = strings.Trim(tag, `"`)
	v, err := strconv.ParseInt(tag, 10, 64)
	if err != nil || v < 1 {
		return 0, errors.New("If-Match must carry a task version")
	}
	return v, nil
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// ToAuthResponse converts a service result to its response body.
func ToAuthResponse(res *service.AuthResult) AuthResponse {
	return AuthResponse{User: res.User, Token: res.Token, ExpiresAt: res.ExpiresAt}
}

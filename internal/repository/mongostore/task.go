package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taskflow/taskflow/internal/model"
	"github.com/taskflow/taskflow/internal/repository"
)

type taskDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	User        primitive.ObjectID `bson:"user"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Category    string             `bson:"category"`
	Priority    string             `bson:"priority"`
	Status      string             `bson:"status"`
	Deadline    *time.Time         `bson:"deadline,omitempty"`
	Version     int64              `bson:"version"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d *taskDocument) toModel() *model.Task {
	task := &model.Task{
		ID:          d.ID.Hex(),
		OwnerID:     d.User.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Category:    model.Category(d.Category),
		Priority:    model.Priority(d.Priority),
		Status:      model.Status(d.Status),
		Version:     d.Version,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if d.Deadline != nil {
		deadline := d.Deadline.UTC()
		task.Deadline = &deadline
	}
	return task
}

// InsertTask persists a task, assigning its id, timestamps and initial version.
func (s *Store) InsertTask(ctx context.Context, task *model.Task) error {
	owner, err := primitive.ObjectIDFromHex(task.OwnerID)
	if err != nil {
		return fmt.Errorf("insert task: owner %w", repository.ErrInvalidID)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := taskDocument{
		ID:          primitive.NewObjectID(),
		User:        owner,
		Title:       task.Title,
		Description: task.Description,
		Category:    string(task.Category),
		Priority:    string(task.Priority),
		Status:      string(task.Status),
		Deadline:    task.Deadline,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := s.tasks.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}

	task.ID = doc.ID.Hex()
	task.Version = doc.Version
	task.CreatedAt = now
	task.UpdatedAt = now
	return nil
}

// FindTaskByID retrieves a task by its ID.
func (s *Store) FindTaskByID(ctx context.Context, id string) (*model.Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrInvalidID
	}

	var doc taskDocument
	if err := s.tasks.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task by ID: %w", err)
	}
	return doc.toModel(), nil
}

// FindTasksByOwner lists an owner's tasks, newest first.
func (s *Store) FindTasksByOwner(ctx context.Context, ownerID string, filter model.TaskFilter) ([]*model.Task, error) {
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return nil, repository.ErrInvalidID
	}

	query := bson.M{"user": owner}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	if filter.Category != "" {
		query["category"] = string(filter.Category)
	}
	if filter.Priority != "" {
		query["priority"] = string(filter.Priority)
	}
	if filter.DeadlineFrom != nil || filter.DeadlineTo != nil {
		deadline := bson.M{"$ne": nil}
		if filter.DeadlineFrom != nil {
			deadline["$gte"] = *filter.DeadlineFrom
		}
		if filter.DeadlineTo != nil {
			deadline["$lt"] = *filter.DeadlineTo
		}
		query["deadline"] = deadline
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.tasks.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer cursor.Close(ctx)

	tasks := make([]*model.Task, 0)
	for cursor.Next(ctx) {
		var doc taskDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode task: %w", err)
		}
		tasks = append(tasks, doc.toModel())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// UpdateTask applies the present patch fields and bumps the version.
// The user field is never part of the update document.
func (s *Store) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (*model.Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrInvalidID
	}
	patch.Normalize()
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	set := bson.M{"updatedAt": time.Now().UTC().Truncate(time.Millisecond)}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Category != nil {
		set["category"] = string(*patch.Category)
	}
	if patch.Priority != nil {
		set["priority"] = string(*patch.Priority)
	}
	if patch.Status != nil {
		set["status"] = string(*patch.Status)
	}
	if patch.Deadline != nil && !patch.ClearDeadline {
		set["deadline"] = *patch.Deadline
	}

	update := bson.M{
		"$set": set,
		"$inc": bson.M{"version": 1},
	}
	if patch.ClearDeadline {
		update["$unset"] = bson.M{"deadline": ""}
	}

	filter := bson.M{"_id": oid}
	if patch.ExpectedVersion != nil {
		filter["version"] = *patch.ExpectedVersion
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc taskDocument
	err = s.tasks.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return doc.toModel(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	if patch.ExpectedVersion != nil {
		count, countErr := s.tasks.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
		if countErr != nil {
			return nil, fmt.Errorf("failed to check task existence: %w", countErr)
		}
		if count > 0 {
			return nil, repository.ErrVersionConflict
		}
	}
	return nil, repository.ErrTaskNotFound
}

// DeleteTask removes a task and reports whether it existed.
func (s *Store) DeleteTask(ctx context.Context, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, repository.ErrInvalidID
	}

	result, err := s.tasks.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}
	return result.DeletedCount > 0, nil
}

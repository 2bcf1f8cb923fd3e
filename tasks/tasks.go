/*
Package tasks is the studio's internal to-do board.

PURPOSE:
  Every task is assigned to one of the two studio members and moves through
  pending -> in_progress -> completed (or cancelled). A task may point at the
  client it is about.

COMPLETION:
  CompletedAt is stamped by the service when a task enters the completed
  status, unless the caller supplies one. It is kept while the task stays
  completed and cleared when the task is reopened or cancelled.

SEE ALSO:
  - store/sqlite/sqlite.go: tasks table
  - api/handlers_studio.go: /api/tasks
*/
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrInvalidTask  = errors.New("invalid task")
)

// Assignee is the studio member owning a task.
type Assignee string

const (
	AssigneeClem  Assignee = "clem"
	AssigneeDiana Assignee = "diana"
)

func (a Assignee) Valid() bool { return a == AssigneeClem || a == AssigneeDiana }

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task is one to-do item. A zero DueDate means no deadline.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	AssignedTo  Assignee   `json:"assigned_to"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     time.Time  `json:"due_date"`
	ClientID    string     `json:"client_id,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	AssignedTo Assignee
	Status     Status
}

// Match reports whether t passes the filter.
func (f Filter) Match(t Task) bool {
	if f.AssignedTo != "" && t.AssignedTo != f.AssignedTo {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	return true
}

// =============================================================================
// SERVICE
// =============================================================================

// Repository persists tasks. GetTask returns (nil, nil) for an unknown ID.
type Repository interface {
	ListTasks(ctx context.Context) ([]Task, error)
	GetTask(ctx context.Context, id string) (*Task, error)
	SaveTask(ctx context.Context, t Task) error
	DeleteTask(ctx context.Context, id string) error
}

type Service struct {
	repo Repository
	Now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func validate(t *Task) error {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidTask)
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if !t.AssignedTo.Valid() {
		return fmt.Errorf("%w: assigned_to must be %s or %s", ErrInvalidTask, AssigneeClem, AssigneeDiana)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTask, t.Status)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, t.Priority)
	}
	return nil
}

// stampCompletion applies the completion rule to next given the stored
// previous version (nil on create).
func stampCompletion(next *Task, previous *Task, now time.Time) {
	if next.Status != StatusCompleted {
		next.CompletedAt = nil
		return
	}
	if next.CompletedAt != nil {
		return
	}
	if previous != nil && previous.Status == StatusCompleted && previous.CompletedAt != nil {
		next.CompletedAt = previous.CompletedAt
		return
	}
	stamp := now
	next.CompletedAt = &stamp
}

// Create stores a new task.
func (s *Service) Create(ctx context.Context, t Task) (Task, error) {
	if err := validate(&t); err != nil {
		return Task{}, err
	}
	now := s.now()
	t.ID = uuid.NewString()
	t.CreatedAt, t.UpdatedAt = now, now
	stampCompletion(&t, nil, now)
	if err := s.repo.SaveTask(ctx, t); err != nil {
		return Task{}, fmt.Errorf("failed to save task: %w", err)
	}
	return t, nil
}

// Update replaces task id.
func (s *Service) Update(ctx context.Context, id string, t Task) (Task, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if err := validate(&t); err != nil {
		return Task{}, err
	}
	now := s.now()
	t.ID = id
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = now
	stampCompletion(&t, &existing, now)
	if err := s.repo.SaveTask(ctx, t); err != nil {
		return Task{}, fmt.Errorf("failed to save task: %w", err)
	}
	return t, nil
}

func (s *Service) Get(ctx context.Context, id string) (Task, error) {
	t, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if t == nil {
		return Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return *t, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteTask(ctx, id)
}

// List returns the tasks matching f, earliest due first. Tasks without a
// due date come last.
func (s *Service) List(ctx context.Context, f Filter) ([]Task, error) {
	all, err := s.repo.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	list := make([]Task, 0, len(all))
	for _, t := range all {
		if f.Match(t) {
			list = append(list, t)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i].DueDate, list[j].DueDate
		switch {
		case a.IsZero() != b.IsZero():
			return b.IsZero()
		case !a.Equal(b):
			return a.Before(b)
		default:
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
	})
	return list, nil
}

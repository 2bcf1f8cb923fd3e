package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/warp/eventdesk/calls"
	"github.com/warp/eventdesk/services"
	"github.com/warp/eventdesk/tasks"
)

// =============================================================================
// CALL STORE (calls.Repository interface)
// =============================================================================

const callColumns = `id, client_name, email, phone, scheduled_at, duration_minutes, kind, status,
	notes, calendly_event_id, outlook_event_id, reminder_sent, created_at, updated_at`

// SaveCall inserts or replaces a call.
func (s *Store) SaveCall(ctx context.Context, c calls.Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt, updatedAt := stamps(c.CreatedAt, c.UpdatedAt)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calls (`+callColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			client_name = excluded.client_name,
			email = excluded.email,
			phone = excluded.phone,
			scheduled_at = excluded.scheduled_at,
			duration_minutes = excluded.duration_minutes,
			kind = excluded.kind,
			status = excluded.status,
			notes = excluded.notes,
			calendly_event_id = excluded.calendly_event_id,
			outlook_event_id = excluded.outlook_event_id,
			reminder_sent = excluded.reminder_sent,
			updated_at = excluded.updated_at`,
		c.ID, c.ClientName, c.Email, nullString(c.Phone), formatTime(c.ScheduledAt),
		c.DurationMinutes, string(c.Kind), string(c.Status), nullString(c.Notes),
		nullString(c.CalendlyEventID), nullString(c.OutlookEventID), c.ReminderSent,
		formatTime(createdAt), formatTime(updatedAt),
	)
	return err
}

// GetCall retrieves a call by ID. Returns (nil, nil) when not found.
func (s *Store) GetCall(ctx context.Context, id string) (*calls.Call, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, err := s.queryCalls(ctx, "SELECT "+callColumns+" FROM calls WHERE id = ?", id)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

// ListCalls returns every call, soonest first.
func (s *Store) ListCalls(ctx context.Context) ([]calls.Call, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryCalls(ctx, "SELECT "+callColumns+" FROM calls ORDER BY scheduled_at, id")
}

// DeleteCall removes a call.
func (s *Store) DeleteCall(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM calls WHERE id = ?", id)
	return err
}

func (s *Store) queryCalls(ctx context.Context, query string, args ...any) ([]calls.Call, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []calls.Call{}
	for rows.Next() {
		var c calls.Call
		var scheduledAt, kind, status, createdAt, updatedAt string
		var phone, notes, calendly, outlook sql.NullString
		var reminderSent sql.NullBool
		if err := rows.Scan(&c.ID, &c.ClientName, &c.Email, &phone, &scheduledAt,
			&c.DurationMinutes, &kind, &status, &notes, &calendly, &outlook, &reminderSent,
			&createdAt, &updatedAt); err != nil {
			return nil, err
		}
		c.Phone = phone.String
		c.ScheduledAt, _ = time.Parse(time.RFC3339, scheduledAt)
		c.Kind = calls.Kind(kind)
		c.Status = calls.Status(status)
		c.Notes = notes.String
		c.CalendlyEventID = calendly.String
		c.OutlookEventID = outlook.String
		c.ReminderSent = reminderSent.Bool
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		list = append(list, c)
	}
	return list, rows.Err()
}

// =============================================================================
// TASK STORE (tasks.Repository interface)
// =============================================================================

const taskColumns = `id, title, description, assigned_to, status, priority, due_date,
	client_id, notes, completed_at, created_at, updated_at`

// SaveTask inserts or replaces a task.
func (s *Store) SaveTask(ctx context.Context, t tasks.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var completedAt sql.NullString
	if t.CompletedAt != nil {
		completedAt = nullTime(*t.CompletedAt)
	}
	createdAt, updatedAt := stamps(t.CreatedAt, t.UpdatedAt)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			assigned_to = excluded.assigned_to,
			status = excluded.status,
			priority = excluded.priority,
			due_date = excluded.due_date,
			client_id = excluded.client_id,
			notes = excluded.notes,
			completed_at = excluded.completed_at,
			updated_at = excluded.updated_at`,
		t.ID, t.Title, nullString(t.Description), string(t.AssignedTo), string(t.Status),
		string(t.Priority), nullTime(t.DueDate), nullString(t.ClientID), nullString(t.Notes),
		completedAt, formatTime(createdAt), formatTime(updatedAt),
	)
	return err
}

// GetTask retrieves a task by ID. Returns (nil, nil) when not found.
func (s *Store) GetTask(ctx context.Context, id string) (*tasks.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, err := s.queryTasks(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

// ListTasks returns every task.
func (s *Store) ListTasks(ctx context.Context) ([]tasks.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryTasks(ctx, "SELECT "+taskColumns+" FROM tasks ORDER BY created_at, id")
}

// DeleteTask removes a task.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	return err
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]tasks.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []tasks.Task{}
	for rows.Next() {
		var t tasks.Task
		var assignedTo, status, priority, createdAt, updatedAt string
		var description, dueDate, clientID, notes, completedAt sql.NullString
		if err := rows.Scan(&t.ID, &t.Title, &description, &assignedTo, &status, &priority,
			&dueDate, &clientID, &notes, &completedAt, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		t.Description = description.String
		t.AssignedTo = tasks.Assignee(assignedTo)
		t.Status = tasks.Status(status)
		t.Priority = tasks.Priority(priority)
		t.DueDate = parseNullTime(dueDate)
		t.ClientID = clientID.String
		t.Notes = notes.String
		if done := parseNullTime(completedAt); !done.IsZero() {
			t.CompletedAt = &done
		}
		t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		list = append(list, t)
	}
	return list, rows.Err()
}

// =============================================================================
// SERVICE CATALOG STORE (services.Repository interface)
// =============================================================================

const serviceColumns = `id, name, description, category, price, duration, includes, active,
	images, created_at, updated_at`

// SaveService inserts or replaces a catalog item.
func (s *Store) SaveService(ctx context.Context, it services.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	includes, err := jsonList(it.Includes)
	if err != nil {
		return err
	}
	images, err := jsonList(it.Images)
	if err != nil {
		return err
	}
	createdAt, updatedAt := stamps(it.CreatedAt, it.UpdatedAt)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO services (`+serviceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			category = excluded.category,
			price = excluded.price,
			duration = excluded.duration,
			includes = excluded.includes,
			active = excluded.active,
			images = excluded.images,
			updated_at = excluded.updated_at`,
		it.ID, it.Name, nullString(it.Description), string(it.Category), it.Price.String(),
		nullString(it.Duration), includes, it.Active, images,
		formatTime(createdAt), formatTime(updatedAt),
	)
	return err
}

// GetService retrieves a catalog item by ID. Returns (nil, nil) when not found.
func (s *Store) GetService(ctx context.Context, id string) (*services.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, err := s.queryServices(ctx, "SELECT "+serviceColumns+" FROM services WHERE id = ?", id)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

// ListServices returns the whole catalog.
func (s *Store) ListServices(ctx context.Context) ([]services.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryServices(ctx, "SELECT "+serviceColumns+" FROM services ORDER BY category, name")
}

// DeleteService removes a catalog item.
func (s *Store) DeleteService(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM services WHERE id = ?", id)
	return err
}

func (s *Store) queryServices(ctx context.Context, query string, args ...any) ([]services.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []services.Item{}
	for rows.Next() {
		var it services.Item
		var category, price, createdAt, updatedAt string
		var description, duration, includes, images sql.NullString
		var active sql.NullBool
		if err := rows.Scan(&it.ID, &it.Name, &description, &category, &price, &duration,
			&includes, &active, &images, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		it.Description = description.String
		it.Category = services.Category(category)
		it.Price = parseDecimal(price)
		it.Duration = duration.String
		it.Active = active.Bool
		if it.Includes, err = parseList(includes); err != nil {
			return nil, err
		}
		if it.Images, err = parseList(images); err != nil {
			return nil, err
		}
		it.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		it.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		list = append(list, it)
	}
	return list, rows.Err()
}

// stamps fills missing audit timestamps with the current time.
func stamps(createdAt, updatedAt time.Time) (time.Time, time.Time) {
	now := time.Now().UTC()
	if createdAt.IsZero() {
		createdAt = now
	}
	if updatedAt.IsZero() {
		updatedAt = now
	}
	return createdAt, updatedAt
}

func jsonList(values []string) (sql.NullString, error) {
	if len(values) == 0 {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func parseList(s sql.NullString) ([]string, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(s.String), &values); err != nil {
		return nil, err
	}
	return values, nil
}

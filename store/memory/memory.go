// Package memory provides in-memory repositories for tests and dev runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/eventdesk/accounting"
	"github.com/warp/eventdesk/calls"
	"github.com/warp/eventdesk/model"
	"github.com/warp/eventdesk/services"
	"github.com/warp/eventdesk/tasks"
)

// =============================================================================
// CLIENTS
// =============================================================================

// Clients is an in-memory clients.Repository.
type Clients struct {
	mu      sync.RWMutex
	records map[string]model.ClientRecord

	// Err, when set, is returned by every call. Used to simulate a failing
	// upstream.
	Err error
}

func NewClients(records ...model.ClientRecord) *Clients {
	c := &Clients{records: make(map[string]model.ClientRecord)}
	for _, r := range records {
		c.records[r.ID] = cloneClient(r)
	}
	return c
}

func (c *Clients) List(_ context.Context) ([]model.ClientRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Err != nil {
		return nil, c.Err
	}

	result := make([]model.ClientRecord, 0, len(c.records))
	for _, r := range c.records {
		result = append(result, cloneClient(r))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (c *Clients) Get(_ context.Context, id string) (*model.ClientRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Err != nil {
		return nil, c.Err
	}

	r, ok := c.records[id]
	if !ok {
		return nil, nil
	}
	out := cloneClient(r)
	return &out, nil
}

func (c *Clients) Save(_ context.Context, rec model.ClientRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.records[rec.ID] = cloneClient(rec)
	return nil
}

func (c *Clients) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	delete(c.records, id)
	return nil
}

// cloneClient copies the nested slices so callers cannot alias stored state.
func cloneClient(r model.ClientRecord) model.ClientRecord {
	if r.AlertSettings != nil {
		s := *r.AlertSettings
		r.AlertSettings = &s
	}
	r.Installments = append([]model.Installment(nil), r.Installments...)
	r.Reminders = append([]model.Reminder(nil), r.Reminders...)
	return r
}

// =============================================================================
// MOVEMENTS
// =============================================================================

// Movements is an in-memory accounting.Repository.
type Movements struct {
	mu        sync.RWMutex
	movements map[string]accounting.Movement
}

func NewMovements(ms ...accounting.Movement) *Movements {
	m := &Movements{movements: make(map[string]accounting.Movement)}
	for _, mv := range ms {
		m.movements[mv.ID] = mv
	}
	return m
}

func (m *Movements) ListMovements(_ context.Context, month string) ([]accounting.Movement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]accounting.Movement, 0)
	for _, mv := range m.movements {
		if month == "" || mv.Month == month {
			result = append(result, mv)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *Movements) GetMovement(_ context.Context, id string) (*accounting.Movement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mv, ok := m.movements[id]
	if !ok {
		return nil, nil
	}
	return &mv, nil
}

func (m *Movements) SaveMovement(_ context.Context, mv accounting.Movement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.movements[mv.ID] = mv
	return nil
}

func (m *Movements) DeleteMovement(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.movements, id)
	return nil
}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings is an in-memory key/value settings store.
type Settings struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewSettings() *Settings {
	return &Settings{values: make(map[string]string)}
}

// GetSetting returns ("", false, nil) for unknown keys.
func (s *Settings) GetSetting(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *Settings) SetSetting(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// =============================================================================
// CALLS
// =============================================================================

// Calls is an in-memory calls.Repository.
type Calls struct {
	mu    sync.RWMutex
	calls map[string]calls.Call
}

func NewCalls(cs ...calls.Call) *Calls {
	m := &Calls{calls: make(map[string]calls.Call)}
	for _, c := range cs {
		m.calls[c.ID] = c
	}
	return m
}

func (m *Calls) ListCalls(_ context.Context) ([]calls.Call, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]calls.Call, 0, len(m.calls))
	for _, c := range m.calls {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Calls) GetCall(_ context.Context, id string) (*calls.Call, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.calls[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *Calls) SaveCall(_ context.Context, c calls.Call) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[c.ID] = c
	return nil
}

func (m *Calls) DeleteCall(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.calls, id)
	return nil
}

// =============================================================================
// TASKS
// =============================================================================

// Tasks is an in-memory tasks.Repository.
type Tasks struct {
	mu    sync.RWMutex
	tasks map[string]tasks.Task
}

func NewTasks(ts ...tasks.Task) *Tasks {
	m := &Tasks{tasks: make(map[string]tasks.Task)}
	for _, t := range ts {
		m.tasks[t.ID] = t
	}
	return m
}

func (m *Tasks) ListTasks(_ context.Context) ([]tasks.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]tasks.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Tasks) GetTask(_ context.Context, id string) (*tasks.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *Tasks) SaveTask(_ context.Context, t tasks.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.ID] = t
	return nil
}

func (m *Tasks) DeleteTask(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, id)
	return nil
}

// =============================================================================
// SERVICES
// =============================================================================

// Services is an in-memory services.Repository.
type Services struct {
	mu    sync.RWMutex
	items map[string]services.Item
}

func NewServices(items ...services.Item) *Services {
	m := &Services{items: make(map[string]services.Item)}
	for _, it := range items {
		m.items[it.ID] = cloneItem(it)
	}
	return m
}

func (m *Services) ListServices(_ context.Context) ([]services.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]services.Item, 0, len(m.items))
	for _, it := range m.items {
		result = append(result, cloneItem(it))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Services) GetService(_ context.Context, id string) (*services.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	out := cloneItem(it)
	return &out, nil
}

func (m *Services) SaveService(_ context.Context, it services.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[it.ID] = cloneItem(it)
	return nil
}

func (m *Services) DeleteService(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func cloneItem(it services.Item) services.Item {
	it.Includes = append([]string(nil), it.Includes...)
	it.Images = append([]string(nil), it.Images...)
	return it
}

// =============================================================================
// STORE
// =============================================================================

// Store bundles the in-memory repositories behind the same method set as
// sqlite.Store.
type Store struct {
	*Clients
	*Movements
	*Settings
	*Calls
	*Tasks
	*Services
}

func New() *Store {
	return &Store{
		Clients:   NewClients(),
		Movements: NewMovements(),
		Settings:  NewSettings(),
		Calls:     NewCalls(),
		Tasks:     NewTasks(),
		Services:  NewServices(),
	}
}

// Ping fails when the clients repository is set to fail.
func (s *Store) Ping(_ context.Context) error {
	s.Clients.mu.RLock()
	defer s.Clients.mu.RUnlock()
	return s.Clients.Err
}

// Reset clears all data.
func (s *Store) Reset(_ context.Context) error {
	s.Clients.mu.Lock()
	s.Clients.records = make(map[string]model.ClientRecord)
	s.Clients.mu.Unlock()

	s.Movements.mu.Lock()
	s.Movements.movements = make(map[string]accounting.Movement)
	s.Movements.mu.Unlock()

	s.Settings.mu.Lock()
	s.Settings.values = make(map[string]string)
	s.Settings.mu.Unlock()

	s.Calls.mu.Lock()
	s.Calls.calls = make(map[string]calls.Call)
	s.Calls.mu.Unlock()

	s.Tasks.mu.Lock()
	s.Tasks.tasks = make(map[string]tasks.Task)
	s.Tasks.mu.Unlock()

	s.Services.mu.Lock()
	s.Services.items = make(map[string]services.Item)
	s.Services.mu.Unlock()
	return nil
}

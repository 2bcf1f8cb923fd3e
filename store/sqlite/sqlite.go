/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Persists everything the dashboard owns in one database file:
  clients (with their installments and reminders), accounting movements,
  calls, tasks, the service catalog and the key/value settings (backup
  configuration).

INTERFACES IMPLEMENTED:
  clients.Repository:    List, Get, Save, Delete
  accounting.Repository: ListMovements, GetMovement, SaveMovement, DeleteMovement
  backup.SettingsStore:  GetSetting, SetSetting
  calls.Repository:      ListCalls, GetCall, SaveCall, DeleteCall
  tasks.Repository:      ListTasks, GetTask, SaveTask, DeleteTask
  services.Repository:   ListServices, GetService, SaveService, DeleteService

KEY TABLES:
  clients:              One row per client record
  client_installments:  Payment schedule, cascades on client delete
  client_reminders:     Dated notes, cascades on client delete
  movements:            Income/expense ledger lines, indexed by month
  settings:             Key -> JSON value
  calls:                Booked calls, indexed by start time
  tasks:                Studio to-do board
  services:             Product catalog; includes/images are JSON arrays

STORAGE FORMATS:
  - Timestamps are RFC3339 text in UTC; an absent date is NULL.
  - Money is decimal text (shopspring/decimal) so no float drift.
  - Absent alert settings are NULL in both switch columns.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. ":memory:" databases are pinned to
  one connection so every query sees the same database.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/eventdesk.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - clients/service.go: Repository interface
  - store/memory/memory.go: In-memory implementation for testing
  - store/sqlite/studio.go: calls, tasks and services tables
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/eventdesk/accounting"
	"github.com/warp/eventdesk/model"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Clients
	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		email TEXT,
		phone TEXT,
		event_date TEXT,
		venue TEXT,
		city TEXT,
		service TEXT,
		payment_method TEXT,
		status TEXT NOT NULL DEFAULT 'potential',
		total_amount TEXT NOT NULL DEFAULT '0',
		paid_amount TEXT NOT NULL DEFAULT '0',
		special_requests TEXT,
		notes TEXT,
		seven_day_alert BOOLEAN,
		payment_alert BOOLEAN,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_clients_event_date
		ON clients(event_date) WHERE event_date IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_clients_status
		ON clients(status);

	-- Payment schedule
	CREATE TABLE IF NOT EXISTS client_installments (
		client_id TEXT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
		number INTEGER NOT NULL,
		amount TEXT NOT NULL,
		due_date TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		method TEXT,
		concept TEXT,
		PRIMARY KEY (client_id, number)
	);

	-- Reminders
	CREATE TABLE IF NOT EXISTS client_reminders (
		client_id TEXT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		date TEXT,
		kind TEXT,
		message TEXT,
		PRIMARY KEY (client_id, position)
	);

	-- Accounting movements
	CREATE TABLE IF NOT EXISTS movements (
		id TEXT PRIMARY KEY,
		concept TEXT NOT NULL,
		amount TEXT NOT NULL,
		category TEXT,
		date TEXT NOT NULL,
		kind TEXT NOT NULL,
		recurring BOOLEAN DEFAULT FALSE,
		month TEXT NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_movements_month
		ON movements(month, date);

	-- Settings (key/value)
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Calls
	CREATE TABLE IF NOT EXISTS calls (
		id TEXT PRIMARY KEY,
		client_name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT,
		scheduled_at TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL DEFAULT 30,
		kind TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'scheduled',
		notes TEXT,
		calendly_event_id TEXT,
		outlook_event_id TEXT,
		reminder_sent BOOLEAN DEFAULT FALSE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_calls_scheduled_at
		ON calls(scheduled_at);

	-- Tasks
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		assigned_to TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		priority TEXT NOT NULL DEFAULT 'medium',
		due_date TEXT,
		client_id TEXT,
		notes TEXT,
		completed_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Service catalog
	CREATE TABLE IF NOT EXISTS services (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		category TEXT NOT NULL,
		price TEXT NOT NULL DEFAULT '0',
		duration TEXT,
		includes TEXT,
		active BOOLEAN DEFAULT TRUE,
		images TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// CLIENT STORE (clients.Repository interface)
// =============================================================================

const clientColumns = `id, display_name, email, phone, event_date, venue, city, service,
	payment_method, status, total_amount, paid_amount, special_requests, notes,
	seven_day_alert, payment_alert, created_at, updated_at`

// Save inserts or replaces a client with its installments and reminders.
func (s *Store) Save(ctx context.Context, rec model.ClientRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := saveClientTx(ctx, tx, rec); err != nil {
		return err
	}
	return tx.Commit()
}

func saveClientTx(ctx context.Context, db execer, rec model.ClientRecord) error {
	var sevenDay, payment sql.NullBool
	if rec.AlertSettings != nil {
		sevenDay = sql.NullBool{Bool: rec.AlertSettings.SevenDayAlert, Valid: true}
		payment = sql.NullBool{Bool: rec.AlertSettings.PaymentAlert, Valid: true}
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	query := `
		INSERT INTO clients (` + clientColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			email = excluded.email,
			phone = excluded.phone,
			event_date = excluded.event_date,
			venue = excluded.venue,
			city = excluded.city,
			service = excluded.service,
			payment_method = excluded.payment_method,
			status = excluded.status,
			total_amount = excluded.total_amount,
			paid_amount = excluded.paid_amount,
			special_requests = excluded.special_requests,
			notes = excluded.notes,
			seven_day_alert = excluded.seven_day_alert,
			payment_alert = excluded.payment_alert,
			updated_at = excluded.updated_at
	`
	_, err := db.ExecContext(ctx, query,
		rec.ID, rec.DisplayName, nullString(rec.Email), nullString(rec.Phone),
		nullTime(rec.EventDate), nullString(rec.Venue), nullString(rec.City),
		nullString(string(rec.Service)), nullString(rec.PaymentMethod), string(rec.Status),
		rec.TotalAmount.String(), rec.PaidAmount.String(),
		nullString(rec.SpecialRequests), nullString(rec.Notes),
		sevenDay, payment,
		formatTime(createdAt), formatTime(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save client %s: %w", rec.ID, err)
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM client_installments WHERE client_id = ?", rec.ID); err != nil {
		return err
	}
	for i, inst := range rec.Installments {
		number := inst.Number
		if number == 0 {
			number = i + 1
		}
		_, err := db.ExecContext(ctx, `
			INSERT INTO client_installments (client_id, number, amount, due_date, status, method, concept)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, number, inst.Amount.String(), nullTime(inst.DueDate), string(inst.Status),
			nullString(inst.Method), nullString(inst.Concept),
		)
		if err != nil {
			return fmt.Errorf("failed to save installment %d of %s: %w", number, rec.ID, err)
		}
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM client_reminders WHERE client_id = ?", rec.ID); err != nil {
		return err
	}
	for i, rem := range rec.Reminders {
		_, err := db.ExecContext(ctx, `
			INSERT INTO client_reminders (client_id, position, date, kind, message)
			VALUES (?, ?, ?, ?, ?)`,
			rec.ID, i, nullTime(rem.Date), nullString(rem.Kind), nullString(rem.Message),
		)
		if err != nil {
			return fmt.Errorf("failed to save reminder of %s: %w", rec.ID, err)
		}
	}
	return nil
}

// Get retrieves a client by ID. Returns (nil, nil) when not found.
func (s *Store) Get(ctx context.Context, id string) (*model.ClientRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, err := s.queryClients(ctx, "SELECT "+clientColumns+" FROM clients WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

// List returns all clients ordered by event date, undated last.
func (s *Store) List(ctx context.Context) ([]model.ClientRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryClients(ctx,
		"SELECT "+clientColumns+" FROM clients ORDER BY event_date IS NULL, event_date, display_name",
	)
}

// Delete removes a client; installments and reminders cascade.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM clients WHERE id = ?", id)
	return err
}

// queryClients loads client rows, then attaches their schedules. Rows are
// fully drained before the child queries run.
func (s *Store) queryClients(ctx context.Context, query string, args ...any) ([]model.ClientRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	var list []model.ClientRecord
	index := make(map[string]int)
	for rows.Next() {
		rec, err := scanClient(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[rec.ID] = len(list)
		list = append(list, rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(list) == 0 {
		return []model.ClientRecord{}, nil
	}

	if err := s.attachInstallments(ctx, list, index); err != nil {
		return nil, err
	}
	if err := s.attachReminders(ctx, list, index); err != nil {
		return nil, err
	}
	return list, nil
}

func scanClient(rows *sql.Rows) (model.ClientRecord, error) {
	var rec model.ClientRecord
	var email, phone, eventDate, venue, city, service, paymentMethod, special, notes sql.NullString
	var status, total, paid, createdAt, updatedAt string
	var sevenDay, payment sql.NullBool

	err := rows.Scan(
		&rec.ID, &rec.DisplayName, &email, &phone, &eventDate, &venue, &city, &service,
		&paymentMethod, &status, &total, &paid, &special, &notes,
		&sevenDay, &payment, &createdAt, &updatedAt,
	)
	if err != nil {
		return rec, err
	}

	rec.Email = email.String
	rec.Phone = phone.String
	rec.EventDate = parseNullTime(eventDate)
	rec.Venue = venue.String
	rec.City = city.String
	rec.Service = model.ServiceKind(service.String)
	rec.PaymentMethod = paymentMethod.String
	rec.Status = model.ClientStatus(status)
	rec.TotalAmount = parseDecimal(total)
	rec.PaidAmount = parseDecimal(paid)
	rec.SpecialRequests = special.String
	rec.Notes = notes.String
	if sevenDay.Valid || payment.Valid {
		rec.AlertSettings = &model.AlertSettings{SevenDayAlert: sevenDay.Bool, PaymentAlert: payment.Bool}
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return rec, nil
}

func (s *Store) attachInstallments(ctx context.Context, list []model.ClientRecord, index map[string]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT client_id, number, amount, due_date, status, method, concept
		FROM client_installments
		WHERE client_id IN (`+placeholders(len(list))+`)
		ORDER BY client_id, number`, clientIDArgs(list)...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var clientID, amount, status string
		var dueDate, method, concept sql.NullString
		var inst model.Installment
		if err := rows.Scan(&clientID, &inst.Number, &amount, &dueDate, &status, &method, &concept); err != nil {
			return err
		}
		inst.Amount = parseDecimal(amount)
		inst.DueDate = parseNullTime(dueDate)
		inst.Status = model.InstallmentStatus(status)
		inst.Method = method.String
		inst.Concept = concept.String

		i := index[clientID]
		list[i].Installments = append(list[i].Installments, inst)
	}
	return rows.Err()
}

func (s *Store) attachReminders(ctx context.Context, list []model.ClientRecord, index map[string]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT client_id, date, kind, message
		FROM client_reminders
		WHERE client_id IN (`+placeholders(len(list))+`)
		ORDER BY client_id, position`, clientIDArgs(list)...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var clientID string
		var date, kind, message sql.NullString
		if err := rows.Scan(&clientID, &date, &kind, &message); err != nil {
			return err
		}
		i := index[clientID]
		list[i].Reminders = append(list[i].Reminders, model.Reminder{
			Date:    parseNullTime(date),
			Kind:    kind.String,
			Message: message.String,
		})
	}
	return rows.Err()
}

// =============================================================================
// MOVEMENT STORE (accounting.Repository interface)
// =============================================================================

const movementColumns = `id, concept, amount, category, date, kind, recurring, month, notes, created_at, updated_at`

// SaveMovement inserts or replaces a movement.
func (s *Store) SaveMovement(ctx context.Context, m accounting.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	createdAt, updatedAt := m.CreatedAt, m.UpdatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	if updatedAt.IsZero() {
		updatedAt = now
	}

	query := `
		INSERT INTO movements (` + movementColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			concept = excluded.concept,
			amount = excluded.amount,
			category = excluded.category,
			date = excluded.date,
			kind = excluded.kind,
			recurring = excluded.recurring,
			month = excluded.month,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		m.ID, m.Concept, m.Amount.String(), nullString(m.Category), formatTime(m.Date),
		string(m.Kind), m.Recurring, m.Month, nullString(m.Notes),
		formatTime(createdAt), formatTime(updatedAt),
	)
	return err
}

// GetMovement retrieves a movement by ID. Returns (nil, nil) when not found.
func (s *Store) GetMovement(ctx context.Context, id string) (*accounting.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, err := s.queryMovements(ctx, "SELECT "+movementColumns+" FROM movements WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

// ListMovements returns the movements of month ("" = all), oldest first.
func (s *Store) ListMovements(ctx context.Context, month string) ([]accounting.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if month == "" {
		return s.queryMovements(ctx, "SELECT "+movementColumns+" FROM movements ORDER BY date, id")
	}
	return s.queryMovements(ctx,
		"SELECT "+movementColumns+" FROM movements WHERE month = ? ORDER BY date, id", month)
}

// DeleteMovement removes a movement.
func (s *Store) DeleteMovement(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM movements WHERE id = ?", id)
	return err
}

func (s *Store) queryMovements(ctx context.Context, query string, args ...any) ([]accounting.Movement, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []accounting.Movement{}
	for rows.Next() {
		var m accounting.Movement
		var amount, date, kind, createdAt, updatedAt string
		var category, notes sql.NullString
		if err := rows.Scan(&m.ID, &m.Concept, &amount, &category, &date, &kind,
			&m.Recurring, &m.Month, &notes, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		m.Amount = parseDecimal(amount)
		m.Category = category.String
		m.Date, _ = time.Parse(time.RFC3339, date)
		m.Kind = accounting.Kind(kind)
		m.Notes = notes.String
		m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		m.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		list = append(list, m)
	}
	return list, rows.Err()
}

// =============================================================================
// SETTINGS STORE
// =============================================================================

// GetSetting returns ("", false, nil) for an unknown key.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetSetting upserts a setting.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, formatTime(time.Now()),
	)
	return err
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"client_reminders", "client_installments", "clients", "movements", "settings", "calls", "tasks", "services"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func parseNullTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, s.String)
	return t
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func clientIDArgs(list []model.ClientRecord) []any {
	args := make([]any, len(list))
	for i, c := range list {
		args[i] = c.ID
	}
	return args
}

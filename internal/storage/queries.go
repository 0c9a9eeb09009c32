package storage

import (
	"context"
	"database/sql"
	"time"
)

// Queries wraps the raw SQL statements behind typed methods.
type Queries struct {
	db *sql.DB
}

// New creates a Queries bound to db.
func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

// Wallet is the row shape of the wallets table.
type Wallet struct {
	ClientID   string
	TotalValue string
	UpdatedAt  time.Time
}

// Event is the row shape of the events table. Amounts are stored as decimal
// strings so no precision is lost crossing the database boundary.
type Event struct {
	ID          int64
	ClientID    string
	Description string
	Amount      string
	Category    string
	Frequency   string
	CreatedAt   time.Time
}

// Goal is the row shape of the goals table.
type Goal struct {
	ID           int64
	ClientID     string
	Name         string
	TargetAmount string
	CreatedAt    time.Time
}

// ReportExport is the row shape of the report_exports table.
type ReportExport struct {
	ClientID   string
	Status     string
	Version    int64
	ExportedAt sql.NullTime
}

const getWallet = `
SELECT client_id, total_value, updated_at
FROM wallets
WHERE client_id = ?`

func (q *Queries) GetWallet(ctx context.Context, clientID string) (Wallet, error) {
	var w Wallet
	err := q.db.QueryRowContext(ctx, getWallet, clientID).
		Scan(&w.ClientID, &w.TotalValue, &w.UpdatedAt)
	return w, err
}

const upsertWallet = `
INSERT INTO wallets (client_id, total_value, updated_at)
VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (client_id) DO UPDATE SET
    total_value = excluded.total_value,
    updated_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertWallet(ctx context.Context, clientID, totalValue string) error {
	_, err := q.db.ExecContext(ctx, upsertWallet, clientID, totalValue)
	return err
}

const listEvents = `
SELECT id, client_id, description, amount, category, frequency, created_at
FROM events
WHERE client_id = ?
ORDER BY id`

func (q *Queries) ListEvents(ctx context.Context, clientID string) ([]Event, error) {
	rows, err := q.db.QueryContext(ctx, listEvents, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.ClientID, &e.Description, &e.Amount, &e.Category, &e.Frequency, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

const createEvent = `
INSERT INTO events (client_id, description, amount, category, frequency)
VALUES (?, ?, ?, ?, ?)
RETURNING id, client_id, description, amount, category, frequency, created_at`

type CreateEventParams struct {
	ClientID    string
	Description string
	Amount      string
	Category    string
	Frequency   string
}

func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (Event, error) {
	var e Event
	err := q.db.QueryRowContext(ctx, createEvent,
		arg.ClientID, arg.Description, arg.Amount, arg.Category, arg.Frequency).
		Scan(&e.ID, &e.ClientID, &e.Description, &e.Amount, &e.Category, &e.Frequency, &e.CreatedAt)
	return e, err
}

const deleteEvent = `
DELETE FROM events
WHERE id = ? AND client_id = ?`

func (q *Queries) DeleteEvent(ctx context.Context, id int64, clientID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteEvent, id, clientID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listGoals = `
SELECT id, client_id, name, target_amount, created_at
FROM goals
WHERE client_id = ?
ORDER BY id`

func (q *Queries) ListGoals(ctx context.Context, clientID string) ([]Goal, error) {
	rows, err := q.db.QueryContext(ctx, listGoals, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []Goal
	for rows.Next() {
		var g Goal
		if err := rows.Scan(&g.ID, &g.ClientID, &g.Name, &g.TargetAmount, &g.CreatedAt); err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

const createGoal = `
INSERT INTO goals (client_id, name, target_amount)
VALUES (?, ?, ?)
RETURNING id, client_id, name, target_amount, created_at`

type CreateGoalParams struct {
	ClientID     string
	Name         string
	TargetAmount string
}

func (q *Queries) CreateGoal(ctx context.Context, arg CreateGoalParams) (Goal, error) {
	var g Goal
	err := q.db.QueryRowContext(ctx, createGoal,
		arg.ClientID, arg.Name, arg.TargetAmount).
		Scan(&g.ID, &g.ClientID, &g.Name, &g.TargetAmount, &g.CreatedAt)
	return g, err
}

const deleteGoal = `
DELETE FROM goals
WHERE id = ? AND client_id = ?`

func (q *Queries) DeleteGoal(ctx context.Context, id int64, clientID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteGoal, id, clientID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const markExportPending = `
INSERT INTO report_exports (client_id, status, version, exported_at)
VALUES (?, 'pending', 1, NULL)
ON CONFLICT (client_id) DO UPDATE SET
    status = 'pending',
    version = report_exports.version + 1
RETURNING version`

func (q *Queries) MarkExportPending(ctx context.Context, clientID string) (int64, error) {
	var version int64
	err := q.db.QueryRowContext(ctx, markExportPending, clientID).Scan(&version)
	return version, err
}

const markExported = `
UPDATE report_exports
SET status = 'exported', exported_at = CURRENT_TIMESTAMP
WHERE client_id = ? AND version = ?`

func (q *Queries) MarkExported(ctx context.Context, clientID string, version int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, markExported, clientID, version)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const markExportError = `
UPDATE report_exports
SET status = 'error'
WHERE client_id = ?`

func (q *Queries) MarkExportError(ctx context.Context, clientID string) error {
	_, err := q.db.ExecContext(ctx, markExportError, clientID)
	return err
}

const listPendingExports = `
SELECT client_id, status, version, exported_at
FROM report_exports
WHERE status IN ('pending', 'error')
ORDER BY client_id
LIMIT ?`

func (q *Queries) ListPendingExports(ctx context.Context, limit int64) ([]ReportExport, error) {
	rows, err := q.db.QueryContext(ctx, listPendingExports, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exports []ReportExport
	for rows.Next() {
		var re ReportExport
		if err := rows.Scan(&re.ClientID, &re.Status, &re.Version, &re.ExportedAt); err != nil {
			return nil, err
		}
		exports = append(exports, re)
	}
	return exports, rows.Err()
}

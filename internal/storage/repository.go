// Package storage persists wallets, cashflow events, savings goals and the
// report export ledger in SQLite. Monetary values are stored as decimal
// strings; they are never converted through floating point.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"advisory/internal/core"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// ErrNotFound reports that a delete or update matched no row.
var ErrNotFound = errors.New("record not found")

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// GetWallet returns the current wallet snapshot for a client.
func (r *SQLiteRepository) GetWallet(ctx context.Context, clientID string) (core.WalletSnapshot, error) {
	row, err := r.queries.GetWallet(ctx, clientID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.WalletSnapshot{}, core.ErrWalletNotFound
	}
	if err != nil {
		return core.WalletSnapshot{}, fmt.Errorf("get wallet: %w", err)
	}

	total, err := decimal.NewFromString(row.TotalValue)
	if err != nil {
		return core.WalletSnapshot{}, fmt.Errorf("parse wallet value %q: %w", row.TotalValue, err)
	}

	return core.WalletSnapshot{
		TotalValue: total,
		UpdatedAt:  row.UpdatedAt,
	}, nil
}

// UpsertWallet creates or replaces the client's wallet snapshot.
func (r *SQLiteRepository) UpsertWallet(ctx context.Context, clientID string, totalValue decimal.Decimal) error {
	if err := r.queries.UpsertWallet(ctx, clientID, totalValue.String()); err != nil {
		return fmt.Errorf("upsert wallet: %w", err)
	}

	slog.InfoContext(ctx, "Wallet saved",
		"client_id", clientID,
		"total_value", totalValue.String())
	return nil
}

// ListEvents returns the client's cashflow events in insertion order.
func (r *SQLiteRepository) ListEvents(ctx context.Context, clientID string) ([]core.CashflowEvent, error) {
	rows, err := r.queries.ListEvents(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	events := make([]core.CashflowEvent, len(rows))
	for i, row := range rows {
		events[i], err = eventFromRow(row)
		if err != nil {
			return nil, err
		}
	}
	return events, nil
}

// CreateEvent stores a new cashflow event and returns it with its assigned ID.
func (r *SQLiteRepository) CreateEvent(ctx context.Context, clientID string, e core.CashflowEvent) (core.CashflowEvent, error) {
	row, err := r.queries.CreateEvent(ctx, CreateEventParams{
		ClientID:    clientID,
		Description: e.Description,
		Amount:      e.Amount.String(),
		Category:    string(e.Category),
		Frequency:   string(e.Frequency),
	})
	if err != nil {
		return core.CashflowEvent{}, fmt.Errorf("create event: %w", err)
	}

	slog.InfoContext(ctx, "Event saved",
		"id", row.ID,
		"client_id", clientID,
		"description", row.Description,
		"amount", row.Amount,
		"category", row.Category,
		"frequency", row.Frequency)

	return eventFromRow(row)
}

// DeleteEvent removes an event owned by the client. ErrNotFound when the ID
// does not exist or belongs to another client.
func (r *SQLiteRepository) DeleteEvent(ctx context.Context, clientID string, id int64) error {
	affected, err := r.queries.DeleteEvent(ctx, id, clientID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "Event deleted", "id", id, "client_id", clientID)
	return nil
}

// ListGoals returns the client's savings goals in insertion order.
func (r *SQLiteRepository) ListGoals(ctx context.Context, clientID string) ([]core.Goal, error) {
	rows, err := r.queries.ListGoals(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}

	goals := make([]core.Goal, len(rows))
	for i, row := range rows {
		goals[i], err = goalFromRow(row)
		if err != nil {
			return nil, err
		}
	}
	return goals, nil
}

// CreateGoal stores a new savings goal and returns it with its assigned ID.
func (r *SQLiteRepository) CreateGoal(ctx context.Context, clientID string, g core.Goal) (core.Goal, error) {
	row, err := r.queries.CreateGoal(ctx, CreateGoalParams{
		ClientID:     clientID,
		Name:         g.Name,
		TargetAmount: g.TargetAmount.String(),
	})
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}

	slog.InfoContext(ctx, "Goal saved",
		"id", row.ID,
		"client_id", clientID,
		"name", row.Name,
		"target_amount", row.TargetAmount)

	return goalFromRow(row)
}

// DeleteGoal removes a goal owned by the client. ErrNotFound when the ID does
// not exist or belongs to another client.
func (r *SQLiteRepository) DeleteGoal(ctx context.Context, clientID string, id int64) error {
	affected, err := r.queries.DeleteGoal(ctx, id, clientID)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "Goal deleted", "id", id, "client_id", clientID)
	return nil
}

// PendingExport is the minimal row needed to drive a report export.
type PendingExport struct {
	ClientID string
	Version  int64
}

// MarkExportPending records that the client's report needs re-export and
// returns the new version. Each call bumps the version so stale worker runs
// cannot mark a newer pending state as done.
func (r *SQLiteRepository) MarkExportPending(ctx context.Context, clientID string) (int64, error) {
	version, err := r.queries.MarkExportPending(ctx, clientID)
	if err != nil {
		return 0, fmt.Errorf("mark export pending: %w", err)
	}
	return version, nil
}

// MarkExported marks an export as completed, but only when the version still
// matches the pending one.
func (r *SQLiteRepository) MarkExported(ctx context.Context, clientID string, version int64) error {
	affected, err := r.queries.MarkExported(ctx, clientID, version)
	if err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	if affected == 0 {
		slog.InfoContext(ctx, "Export superseded by newer version, not marking",
			"client_id", clientID, "version", version)
		return nil
	}

	slog.InfoContext(ctx, "Report export marked as done", "client_id", clientID, "version", version)
	return nil
}

// MarkExportError flags an export as failed so the periodic pass retries it.
func (r *SQLiteRepository) MarkExportError(ctx context.Context, clientID string) error {
	if err := r.queries.MarkExportError(ctx, clientID); err != nil {
		return fmt.Errorf("mark export error: %w", err)
	}

	slog.WarnContext(ctx, "Report export marked with error", "client_id", clientID)
	return nil
}

// ListPendingExports returns exports still waiting to reach the report sheet,
// including earlier failures.
func (r *SQLiteRepository) ListPendingExports(ctx context.Context, limit int) ([]PendingExport, error) {
	rows, err := r.queries.ListPendingExports(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list pending exports: %w", err)
	}

	exports := make([]PendingExport, len(rows))
	for i, row := range rows {
		exports[i] = PendingExport{
			ClientID: row.ClientID,
			Version:  row.Version,
		}
	}
	return exports, nil
}

func eventFromRow(row Event) (core.CashflowEvent, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.CashflowEvent{}, fmt.Errorf("parse event amount %q: %w", row.Amount, err)
	}
	return core.CashflowEvent{
		ID:          row.ID,
		Description: row.Description,
		Amount:      amount,
		Category:    core.EventCategory(row.Category),
		Frequency:   core.EventFrequency(row.Frequency),
		CreatedAt:   row.CreatedAt,
	}, nil
}

func goalFromRow(row Goal) (core.Goal, error) {
	target, err := decimal.NewFromString(row.TargetAmount)
	if err != nil {
		return core.Goal{}, fmt.Errorf("parse goal target %q: %w", row.TargetAmount, err)
	}
	return core.Goal{
		ID:           row.ID,
		Name:         row.Name,
		TargetAmount: target,
		CreatedAt:    row.CreatedAt,
	}, nil
}

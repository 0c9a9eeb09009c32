// Package worker exports advisory reports. It consumes refresh messages from
// AMQP and periodically sweeps the export ledger as a backup in case messages
// are lost.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"advisory/internal/amqp"
	"advisory/internal/core"
	"advisory/internal/planning"
	"advisory/internal/reports"
	"advisory/internal/services"
	"advisory/internal/storage"
)

// PlanStore is what the worker needs from storage: the client plan plus the
// export ledger.
type PlanStore interface {
	GetWallet(ctx context.Context, clientID string) (core.WalletSnapshot, error)
	ListEvents(ctx context.Context, clientID string) ([]core.CashflowEvent, error)
	ListGoals(ctx context.Context, clientID string) ([]core.Goal, error)
	ListPendingExports(ctx context.Context, limit int) ([]storage.PendingExport, error)
	MarkExported(ctx context.Context, clientID string, version int64) error
	MarkExportError(ctx context.Context, clientID string) error
}

// ReportWorker rebuilds a client's advisory report and appends it to the
// report sink.
type ReportWorker struct {
	store     PlanStore
	appender  reports.Appender
	batchSize int
	now       func() time.Time
}

func NewReportWorker(store PlanStore, appender reports.Appender, batchSize int) *ReportWorker {
	return &ReportWorker{
		store:     store,
		appender:  appender,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// HandleRefreshMessage processes a single refresh message from AMQP.
func (w *ReportWorker) HandleRefreshMessage(ctx context.Context, msg *amqp.RefreshMessage) error {
	slog.InfoContext(ctx, "Processing refresh message",
		"client_id", msg.ClientID,
		"version", msg.Version)

	return w.export(ctx, msg.ClientID, msg.Version)
}

// ProcessPendingExports sweeps exports that never reached the report sheet.
// This is a backup mechanism in case AMQP messages are lost.
func (w *ReportWorker) ProcessPendingExports(ctx context.Context) error {
	pending, err := w.store.ListPendingExports(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending exports: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(pending))

	for _, p := range pending {
		if err := w.export(ctx, p.ClientID, p.Version); err != nil {
			slog.ErrorContext(ctx, "Failed to export report",
				"client_id", p.ClientID, "version", p.Version, "error", err)
			continue
		}
	}

	return nil
}

// StartupCheck drains the export backlog once at worker startup. This is
// useful to recover from missed AMQP messages or worker downtime.
func (w *ReportWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.store.ListPendingExports(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list pending exports for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending exports found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending exports on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, p := range pending {
		if err := w.export(ctx, p.ClientID, p.Version); err != nil {
			slog.ErrorContext(ctx, "Failed to export report during startup",
				"client_id", p.ClientID, "version", p.Version, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup export check completed",
		"total", len(pending),
		"exported", successCount,
		"errors", errorCount)

	return nil
}

// export rebuilds one client's report and appends it. A plan that is still
// incomplete (no wallet, no goals) produces nothing to export; the version is
// marked done so the entry does not requeue forever. A new mutation bumps the
// version and tries again.
func (w *ReportWorker) export(ctx context.Context, clientID string, version int64) error {
	row, err := w.buildRow(ctx, clientID)
	if errors.Is(err, core.ErrWalletNotFound) || errors.Is(err, core.ErrNoGoals) {
		slog.InfoContext(ctx, "Plan incomplete, skipping report export",
			"client_id", clientID, "version", version, "reason", err)
		return w.store.MarkExported(ctx, clientID, version)
	}
	if err != nil {
		if markErr := w.store.MarkExportError(ctx, clientID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error",
				"client_id", clientID, "error", markErr)
		}
		return fmt.Errorf("build report row: %w", err)
	}

	ref, err := w.appender.Append(ctx, row)
	if err != nil {
		if markErr := w.store.MarkExportError(ctx, clientID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error",
				"client_id", clientID, "error", markErr)
		}
		return fmt.Errorf("append report: %w", err)
	}

	if err := w.store.MarkExported(ctx, clientID, version); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as exported",
			"client_id", clientID, "version", version, "error", err)
		// The export itself worked; the sweep retries the marking.
	}

	slog.InfoContext(ctx, "Report exported",
		"client_id", clientID,
		"version", version,
		"row_ref", ref)

	return nil
}

func (w *ReportWorker) buildRow(ctx context.Context, clientID string) (reports.Row, error) {
	wallet, err := w.store.GetWallet(ctx, clientID)
	if err != nil {
		return reports.Row{}, err
	}

	goals, err := w.store.ListGoals(ctx, clientID)
	if err != nil {
		return reports.Row{}, fmt.Errorf("list goals: %w", err)
	}

	alignment, err := planning.Align(wallet.TotalValue, goals)
	if err != nil {
		return reports.Row{}, err
	}

	events, err := w.store.ListEvents(ctx, clientID)
	if err != nil {
		return reports.Row{}, fmt.Errorf("list events: %w", err)
	}

	points := planning.Simulate(w.now(), wallet.TotalValue, events, services.DefaultAnnualRate)

	row := reports.Row{
		ClientID:    clientID,
		GeneratedAt: w.now(),
		WalletValue: wallet.TotalValue.String(),
		Percentage:  alignment.Percentage.String(),
		Category:    alignment.Category,
		HorizonYear: planning.HorizonYear,
	}
	if len(points) > 0 {
		last := points[len(points)-1]
		row.ProjectedValue = last.ProjectedValue.String()
	}

	return row, nil
}

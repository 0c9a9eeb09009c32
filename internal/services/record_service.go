package services

import (
	"context"
	"fmt"
	"log/slog"

	"advisory/internal/cache"
	"advisory/internal/core"

	"github.com/shopspring/decimal"
)

// RecordStore is the record side of the client plan plus the export ledger.
type RecordStore interface {
	UpsertWallet(ctx context.Context, clientID string, totalValue decimal.Decimal) error
	ListEvents(ctx context.Context, clientID string) ([]core.CashflowEvent, error)
	CreateEvent(ctx context.Context, clientID string, e core.CashflowEvent) (core.CashflowEvent, error)
	DeleteEvent(ctx context.Context, clientID string, id int64) error
	ListGoals(ctx context.Context, clientID string) ([]core.Goal, error)
	CreateGoal(ctx context.Context, clientID string, g core.Goal) (core.Goal, error)
	DeleteGoal(ctx context.Context, clientID string, id int64) error
	MarkExportPending(ctx context.Context, clientID string) (int64, error)
}

// RefreshPublisher notifies the report worker that a client's plan changed.
type RefreshPublisher interface {
	PublishRefresh(ctx context.Context, clientID string, version int64) error
}

// RecordService orchestrates plan mutations across SQLite, the projection
// cache and AMQP. The database write is authoritative; cache invalidation and
// the refresh message never fail the request.
type RecordService struct {
	store     RecordStore
	cache     cache.Cache[string]
	publisher RefreshPublisher
}

func NewRecordService(store RecordStore, c cache.Cache[string], publisher RefreshPublisher) *RecordService {
	return &RecordService{
		store:     store,
		cache:     c,
		publisher: publisher,
	}
}

// UpsertWallet replaces the client's wallet snapshot.
func (s *RecordService) UpsertWallet(ctx context.Context, clientID string, totalValue decimal.Decimal) error {
	if err := s.store.UpsertWallet(ctx, clientID, totalValue); err != nil {
		return fmt.Errorf("save wallet: %w", err)
	}

	s.invalidateProjection(ctx, clientID)
	s.notifyRefresh(ctx, clientID)
	return nil
}

// ListEvents returns the client's cashflow events.
func (s *RecordService) ListEvents(ctx context.Context, clientID string) ([]core.CashflowEvent, error) {
	return s.store.ListEvents(ctx, clientID)
}

// ListGoals returns the client's savings goals.
func (s *RecordService) ListGoals(ctx context.Context, clientID string) ([]core.Goal, error) {
	return s.store.ListGoals(ctx, clientID)
}

// CreateEvent validates and stores a new cashflow event.
func (s *RecordService) CreateEvent(ctx context.Context, clientID string, e core.CashflowEvent) (core.CashflowEvent, error) {
	if err := e.Validate(); err != nil {
		return core.CashflowEvent{}, err
	}

	created, err := s.store.CreateEvent(ctx, clientID, e)
	if err != nil {
		return core.CashflowEvent{}, fmt.Errorf("save event: %w", err)
	}

	s.invalidateProjection(ctx, clientID)
	s.notifyRefresh(ctx, clientID)
	return created, nil
}

// DeleteEvent removes one of the client's events.
func (s *RecordService) DeleteEvent(ctx context.Context, clientID string, id int64) error {
	if err := s.store.DeleteEvent(ctx, clientID, id); err != nil {
		return err
	}

	s.invalidateProjection(ctx, clientID)
	s.notifyRefresh(ctx, clientID)
	return nil
}

// CreateGoal validates and stores a new savings goal. Goals do not feed the
// simulation, so the projection cache stays warm.
func (s *RecordService) CreateGoal(ctx context.Context, clientID string, g core.Goal) (core.Goal, error) {
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}

	created, err := s.store.CreateGoal(ctx, clientID, g)
	if err != nil {
		return core.Goal{}, fmt.Errorf("save goal: %w", err)
	}

	s.notifyRefresh(ctx, clientID)
	return created, nil
}

// DeleteGoal removes one of the client's goals.
func (s *RecordService) DeleteGoal(ctx context.Context, clientID string, id int64) error {
	if err := s.store.DeleteGoal(ctx, clientID, id); err != nil {
		return err
	}

	s.notifyRefresh(ctx, clientID)
	return nil
}

func (s *RecordService) invalidateProjection(ctx context.Context, clientID string) {
	if s.cache != nil {
		s.cache.Delete(ctx, projectionKey(clientID))
	}
}

// notifyRefresh bumps the export version and tells the worker. The record is
// already saved, so failures here are logged and swallowed; the periodic
// pending pass picks the export up later.
func (s *RecordService) notifyRefresh(ctx context.Context, clientID string) {
	version, err := s.store.MarkExportPending(ctx, clientID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to mark report export pending",
			"client_id", clientID, "error", err)
		return
	}

	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping refresh message",
			"client_id", clientID)
		return
	}

	if err := s.publisher.PublishRefresh(ctx, clientID, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish refresh message",
			"client_id", clientID, "version", version, "error", err)
	}
}

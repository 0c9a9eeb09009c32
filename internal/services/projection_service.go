package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"advisory/internal/cache"
	"advisory/internal/core"
	"advisory/internal/planning"

	"github.com/shopspring/decimal"
)

// DefaultAnnualRate is the interest assumption used when a request does not
// name one.
var DefaultAnnualRate = decimal.NewFromInt(4)

// PlanReader is the read side of the client plan: wallet, events and goals.
type PlanReader interface {
	GetWallet(ctx context.Context, clientID string) (core.WalletSnapshot, error)
	ListEvents(ctx context.Context, clientID string) ([]core.CashflowEvent, error)
	ListGoals(ctx context.Context, clientID string) ([]core.Goal, error)
}

// ProjectionService computes wealth projections and goal alignment for a
// client. Projections at the default rate are cached; ad-hoc rates are
// computed fresh so the cache stays invalidatable by client key alone.
type ProjectionService struct {
	store ProjectionStore
	cache cache.Cache[string]
	now   func() time.Time
}

// ProjectionStore is what the projection side needs from storage.
type ProjectionStore = PlanReader

func NewProjectionService(store ProjectionStore, c cache.Cache[string]) *ProjectionService {
	return &ProjectionService{
		store: store,
		cache: c,
		now:   time.Now,
	}
}

// Project simulates the client's wealth from the current month through the
// planning horizon at the given annual rate.
func (s *ProjectionService) Project(ctx context.Context, clientID string, annualRate decimal.Decimal) ([]core.ProjectionPoint, error) {
	if annualRate.IsNegative() {
		return nil, core.ErrInvalidRate
	}

	cacheable := annualRate.Equal(DefaultAnnualRate)
	key := projectionKey(clientID)

	if cacheable && s.cache != nil {
		if payload, ok := s.cache.Get(ctx, key); ok {
			var points []core.ProjectionPoint
			if err := json.Unmarshal([]byte(payload), &points); err == nil {
				slog.DebugContext(ctx, "Projection served from cache", "client_id", clientID)
				return points, nil
			}
			// A corrupt entry must not break the request.
			s.cache.Delete(ctx, key)
		}
	}

	wallet, err := s.store.GetWallet(ctx, clientID)
	if err != nil {
		return nil, err
	}

	events, err := s.store.ListEvents(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	points := planning.Simulate(s.now(), wallet.TotalValue, events, annualRate)

	if cacheable && s.cache != nil {
		if payload, err := json.Marshal(points); err == nil {
			s.cache.Set(ctx, key, string(payload))
		}
	}

	return points, nil
}

// Alignment scores the client's current wealth against the sum of their goal
// targets.
func (s *ProjectionService) Alignment(ctx context.Context, clientID string) (core.AlignmentResult, error) {
	wallet, err := s.store.GetWallet(ctx, clientID)
	if err != nil {
		return core.AlignmentResult{}, err
	}

	goals, err := s.store.ListGoals(ctx, clientID)
	if err != nil {
		return core.AlignmentResult{}, fmt.Errorf("list goals: %w", err)
	}

	return planning.Align(wallet.TotalValue, goals)
}

func projectionKey(clientID string) string {
	return "projection:" + clientID
}

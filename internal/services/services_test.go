package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"advisory/internal/cache"
	"advisory/internal/core"

	"github.com/shopspring/decimal"
)

type fakeStore struct {
	wallet    core.WalletSnapshot
	walletErr error
	events    []core.CashflowEvent
	goals     []core.Goal

	pendingCalls int
	pendingErr   error
	version      int64

	created []core.CashflowEvent
	deleted []int64
}

func (f *fakeStore) GetWallet(_ context.Context, _ string) (core.WalletSnapshot, error) {
	return f.wallet, f.walletErr
}

func (f *fakeStore) ListEvents(_ context.Context, _ string) ([]core.CashflowEvent, error) {
	return f.events, nil
}

func (f *fakeStore) ListGoals(_ context.Context, _ string) ([]core.Goal, error) {
	return f.goals, nil
}

func (f *fakeStore) UpsertWallet(_ context.Context, _ string, total decimal.Decimal) error {
	f.wallet = core.WalletSnapshot{TotalValue: total, UpdatedAt: time.Now()}
	return nil
}

func (f *fakeStore) CreateEvent(_ context.Context, _ string, e core.CashflowEvent) (core.CashflowEvent, error) {
	e.ID = int64(len(f.created) + 1)
	f.created = append(f.created, e)
	return e, nil
}

func (f *fakeStore) DeleteEvent(_ context.Context, _ string, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeStore) CreateGoal(_ context.Context, _ string, g core.Goal) (core.Goal, error) {
	g.ID = int64(len(f.goals) + 1)
	f.goals = append(f.goals, g)
	return g, nil
}

func (f *fakeStore) DeleteGoal(_ context.Context, _ string, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeStore) MarkExportPending(_ context.Context, _ string) (int64, error) {
	f.pendingCalls++
	if f.pendingErr != nil {
		return 0, f.pendingErr
	}
	f.version++
	return f.version, nil
}

type fakePublisher struct {
	published []int64
	err       error
}

func (f *fakePublisher) PublishRefresh(_ context.Context, _ string, version int64) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, version)
	return nil
}

func TestProject_NegativeRateRejected(t *testing.T) {
	svc := NewProjectionService(&fakeStore{}, nil)

	_, err := svc.Project(context.Background(), "c1", decimal.NewFromInt(-1))
	if !errors.Is(err, core.ErrInvalidRate) {
		t.Fatalf("Project = %v, want ErrInvalidRate", err)
	}
}

func TestProject_MissingWalletPassesThrough(t *testing.T) {
	svc := NewProjectionService(&fakeStore{walletErr: core.ErrWalletNotFound}, nil)

	_, err := svc.Project(context.Background(), "c1", DefaultAnnualRate)
	if !errors.Is(err, core.ErrWalletNotFound) {
		t.Fatalf("Project = %v, want ErrWalletNotFound", err)
	}
}

func TestProject_DefaultRateIsCached(t *testing.T) {
	store := &fakeStore{
		wallet: core.WalletSnapshot{TotalValue: decimal.NewFromInt(1000)},
	}
	c := cache.NewLRU[string](10, time.Minute)
	svc := NewProjectionService(store, c)
	ctx := context.Background()

	first, err := svc.Project(ctx, "c1", DefaultAnnualRate)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if c.Size() != 1 {
		t.Fatalf("cache size after default-rate projection = %d, want 1", c.Size())
	}

	// A wallet change that bypasses the record service must not be visible
	// until the cache entry is dropped.
	store.wallet = core.WalletSnapshot{TotalValue: decimal.NewFromInt(9999)}
	second, err := svc.Project(ctx, "c1", DefaultAnnualRate)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if !second[0].ProjectedValue.Equal(first[0].ProjectedValue) {
		t.Error("second projection should come from cache")
	}

	c.Delete(ctx, projectionKey("c1"))
	third, err := svc.Project(ctx, "c1", DefaultAnnualRate)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if third[0].ProjectedValue.Equal(first[0].ProjectedValue) {
		t.Error("projection after invalidation should be recomputed")
	}
}

func TestProject_CustomRateSkipsCache(t *testing.T) {
	store := &fakeStore{
		wallet: core.WalletSnapshot{TotalValue: decimal.NewFromInt(1000)},
	}
	c := cache.NewLRU[string](10, time.Minute)
	svc := NewProjectionService(store, c)

	if _, err := svc.Project(context.Background(), "c1", decimal.NewFromFloat(2.5)); err != nil {
		t.Fatalf("Project: %v", err)
	}
	if c.Size() != 0 {
		t.Errorf("custom-rate projection should not be cached, cache size = %d", c.Size())
	}
}

func TestAlignment_UsesWalletAndGoals(t *testing.T) {
	store := &fakeStore{
		wallet: core.WalletSnapshot{TotalValue: decimal.NewFromInt(1000)},
		goals: []core.Goal{
			{Name: "a", TargetAmount: decimal.NewFromInt(3000)},
			{Name: "b", TargetAmount: decimal.NewFromInt(3000)},
			{Name: "c", TargetAmount: decimal.NewFromInt(4000)},
		},
	}
	svc := NewProjectionService(store, nil)

	result, err := svc.Alignment(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Alignment: %v", err)
	}
	if result.Percentage.String() != "10" {
		t.Errorf("Percentage = %s, want 10", result.Percentage)
	}
	if result.Category != core.Red {
		t.Errorf("Category = %s, want red", result.Category)
	}
}

func TestRecordService_MutationsInvalidateAndPublish(t *testing.T) {
	store := &fakeStore{}
	ctx := context.Background()
	c := cache.NewLRU[string](10, time.Minute)
	c.Set(ctx, projectionKey("c1"), "stale")
	pub := &fakePublisher{}
	svc := NewRecordService(store, c, pub)

	_, err := svc.CreateEvent(ctx, "c1", core.CashflowEvent{
		Description: "salary",
		Amount:      decimal.NewFromInt(2500),
		Category:    core.Income,
		Frequency:   core.Monthly,
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	if _, ok := c.Get(ctx, projectionKey("c1")); ok {
		t.Error("projection cache should be invalidated by an event mutation")
	}
	if store.pendingCalls != 1 {
		t.Errorf("MarkExportPending called %d times, want 1", store.pendingCalls)
	}
	if len(pub.published) != 1 || pub.published[0] != 1 {
		t.Errorf("published = %v, want [1]", pub.published)
	}
}

func TestRecordService_InvalidEventNeverReachesStore(t *testing.T) {
	store := &fakeStore{}
	svc := NewRecordService(store, nil, nil)

	_, err := svc.CreateEvent(context.Background(), "c1", core.CashflowEvent{
		Description: "bad",
		Amount:      decimal.NewFromInt(-5),
		Category:    core.Income,
		Frequency:   core.Monthly,
	})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("CreateEvent = %v, want ErrInvalidAmount", err)
	}
	if len(store.created) != 0 {
		t.Error("invalid event should not be stored")
	}
	if store.pendingCalls != 0 {
		t.Error("invalid event should not trigger a refresh")
	}
}

func TestRecordService_PublishFailureIsNotFatal(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewRecordService(store, nil, pub)

	if err := svc.UpsertWallet(context.Background(), "c1", decimal.NewFromInt(500)); err != nil {
		t.Fatalf("UpsertWallet = %v, want nil despite publish failure", err)
	}
	if store.pendingCalls != 1 {
		t.Error("export should still be marked pending for the periodic pass")
	}
}

func TestRecordService_GoalsDoNotTouchProjectionCache(t *testing.T) {
	store := &fakeStore{}
	ctx := context.Background()
	c := cache.NewLRU[string](10, time.Minute)
	c.Set(ctx, projectionKey("c1"), "warm")
	svc := NewRecordService(store, c, nil)

	_, err := svc.CreateGoal(ctx, "c1", core.Goal{
		Name:         "house",
		TargetAmount: decimal.NewFromInt(100000),
	})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	if _, ok := c.Get(ctx, projectionKey("c1")); !ok {
		t.Error("goal mutations should leave the projection cache warm")
	}
}

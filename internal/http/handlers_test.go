package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"advisory/internal/core"
	"advisory/internal/storage"

	"github.com/shopspring/decimal"
)

type fakeProjections struct {
	points       []core.ProjectionPoint
	alignment    core.AlignmentResult
	err          error
	lastRate     decimal.Decimal
	lastClientID string
}

func (f *fakeProjections) Project(_ context.Context, clientID string, rate decimal.Decimal) ([]core.ProjectionPoint, error) {
	f.lastClientID = clientID
	f.lastRate = rate
	if f.err != nil {
		return nil, f.err
	}
	return f.points, nil
}

func (f *fakeProjections) Alignment(_ context.Context, clientID string) (core.AlignmentResult, error) {
	f.lastClientID = clientID
	if f.err != nil {
		return core.AlignmentResult{}, f.err
	}
	return f.alignment, nil
}

type fakeRecords struct {
	events    []core.CashflowEvent
	goals     []core.Goal
	deleteErr error
}

func (f *fakeRecords) UpsertWallet(_ context.Context, _ string, _ decimal.Decimal) error {
	return nil
}

func (f *fakeRecords) ListEvents(_ context.Context, _ string) ([]core.CashflowEvent, error) {
	return f.events, nil
}

func (f *fakeRecords) CreateEvent(_ context.Context, _ string, e core.CashflowEvent) (core.CashflowEvent, error) {
	if err := e.Validate(); err != nil {
		return core.CashflowEvent{}, err
	}
	e.ID = 1
	e.CreatedAt = time.Now()
	return e, nil
}

func (f *fakeRecords) DeleteEvent(_ context.Context, _ string, _ int64) error {
	return f.deleteErr
}

func (f *fakeRecords) ListGoals(_ context.Context, _ string) ([]core.Goal, error) {
	return f.goals, nil
}

func (f *fakeRecords) CreateGoal(_ context.Context, _ string, g core.Goal) (core.Goal, error) {
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	g.ID = 1
	g.CreatedAt = time.Now()
	return g, nil
}

func (f *fakeRecords) DeleteGoal(_ context.Context, _ string, _ int64) error {
	return f.deleteErr
}

func newTestServer(p *fakeProjections, rec *fakeRecords) *Server {
	if p == nil {
		p = &fakeProjections{}
	}
	if rec == nil {
		rec = &fakeRecords{}
	}
	return NewServer(":0", p, rec, nil)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rr, req)
	return rr
}

func TestProjection_DefaultRate(t *testing.T) {
	p := &fakeProjections{points: []core.ProjectionPoint{
		{Year: 2026, ProjectedValue: decimal.RequireFromString("1050.25")},
	}}
	s := newTestServer(p, nil)

	rr := do(t, s, http.MethodGet, "/clients/abc/projection", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rr.Code, rr.Body)
	}
	if p.lastClientID != "abc" {
		t.Errorf("clientID = %q, want abc", p.lastClientID)
	}
	if !p.lastRate.Equal(decimal.NewFromInt(4)) {
		t.Errorf("rate = %s, want default 4", p.lastRate)
	}

	var points []struct {
		Year           int    `json:"year"`
		ProjectedValue string `json:"projectedValue"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &points); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(points) != 1 || points[0].Year != 2026 || points[0].ProjectedValue != "1050.25" {
		t.Errorf("points = %+v", points)
	}
}

func TestProjection_RateOverrideAndErrors(t *testing.T) {
	p := &fakeProjections{}
	s := newTestServer(p, nil)

	rr := do(t, s, http.MethodGet, "/clients/abc/projection?rate=2.5", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !p.lastRate.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("rate = %s, want 2.5", p.lastRate)
	}

	rr = do(t, s, http.MethodGet, "/clients/abc/projection?rate=abc", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("malformed rate: status = %d, want 400", rr.Code)
	}

	p.err = core.ErrInvalidRate
	rr = do(t, s, http.MethodGet, "/clients/abc/projection?rate=-1", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("negative rate: status = %d, want 400", rr.Code)
	}

	p.err = core.ErrWalletNotFound
	rr = do(t, s, http.MethodGet, "/clients/abc/projection", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing wallet: status = %d, want 400", rr.Code)
	}
}

func TestAlignment_SuccessAndNoGoals(t *testing.T) {
	p := &fakeProjections{alignment: core.AlignmentResult{
		Percentage: decimal.NewFromInt(10),
		Category:   core.Red,
	}}
	s := newTestServer(p, nil)

	rr := do(t, s, http.MethodGet, "/clients/abc/alignment", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var result struct {
		Percentage string `json:"percentage"`
		Category   string `json:"category"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result.Percentage != "10" || result.Category != "red" {
		t.Errorf("result = %+v, want 10/red", result)
	}

	p.err = core.ErrNoGoals
	rr = do(t, s, http.MethodGet, "/clients/abc/alignment", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("no goals: status = %d, want 400", rr.Code)
	}
}

func TestUpsertWallet(t *testing.T) {
	s := newTestServer(nil, nil)

	rr := do(t, s, http.MethodPut, "/clients/abc/wallet", `{"totalValue": "-1500.75"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rr.Code, rr.Body)
	}

	var resp walletResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.ClientID != "abc" || resp.TotalValue != "-1500.75" {
		t.Errorf("resp = %+v", resp)
	}

	rr = do(t, s, http.MethodPut, "/clients/abc/wallet", `{bad json`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d, want 400", rr.Code)
	}

	rr = do(t, s, http.MethodPut, "/clients/abc/wallet", `{"totalValue": "abc"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("unparseable value: status = %d, want 422", rr.Code)
	}
}

func TestCreateEvent(t *testing.T) {
	s := newTestServer(nil, nil)

	rr := do(t, s, http.MethodPost, "/clients/abc/events",
		`{"description": "salary", "amount": "2500,50", "category": "income", "frequency": "monthly"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", rr.Code, rr.Body)
	}

	var resp eventResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Amount != "2500.5" {
		t.Errorf("Amount = %q, want 2500.5 (comma separator normalized)", resp.Amount)
	}
	if resp.ID != 1 || resp.Category != "income" || resp.Frequency != "monthly" {
		t.Errorf("resp = %+v", resp)
	}

	rr = do(t, s, http.MethodPost, "/clients/abc/events",
		`{"description": "x", "amount": "10", "category": "weird", "frequency": "monthly"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad category: status = %d, want 422", rr.Code)
	}

	rr = do(t, s, http.MethodPost, "/clients/abc/events",
		`{"description": "x", "amount": "-10", "category": "income", "frequency": "monthly"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("negative amount: status = %d, want 422", rr.Code)
	}
}

func TestDeleteEvent(t *testing.T) {
	rec := &fakeRecords{}
	s := newTestServer(nil, rec)

	rr := do(t, s, http.MethodDelete, "/clients/abc/events/3", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rr.Code)
	}

	rr = do(t, s, http.MethodDelete, "/clients/abc/events/xyz", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("malformed id: status = %d, want 400", rr.Code)
	}

	rec.deleteErr = storage.ErrNotFound
	rr = do(t, s, http.MethodDelete, "/clients/abc/events/99", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown id: status = %d, want 404", rr.Code)
	}
}

func TestGoalsEndpoints(t *testing.T) {
	rec := &fakeRecords{goals: []core.Goal{{
		ID:           7,
		Name:         "house",
		TargetAmount: decimal.NewFromInt(150000),
	}}}
	s := newTestServer(nil, rec)

	rr := do(t, s, http.MethodGet, "/clients/abc/goals", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var goals []goalResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &goals); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(goals) != 1 || goals[0].Name != "house" || goals[0].TargetAmount != "150000" {
		t.Errorf("goals = %+v", goals)
	}

	rr = do(t, s, http.MethodPost, "/clients/abc/goals", `{"name": "car", "targetAmount": "20000"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", rr.Code, rr.Body)
	}

	rr = do(t, s, http.MethodPost, "/clients/abc/goals", `{"name": "", "targetAmount": "20000"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty name: status = %d, want 422", rr.Code)
	}

	rr = do(t, s, http.MethodDelete, "/clients/abc/goals/7", "")
	if rr.Code != http.StatusNoContent {
		t.Errorf("delete: status = %d, want 204", rr.Code)
	}
}

func TestListEvents_EmptyIsJSONArray(t *testing.T) {
	s := newTestServer(nil, nil)

	rr := do(t, s, http.MethodGet, "/clients/abc/events", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(nil, nil)

	rr := do(t, s, http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rr.Code)
	}

	rr = do(t, s, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusOK {
		t.Errorf("readyz status = %d, want 200", rr.Code)
	}

	do(t, s, http.MethodGet, "/clients/abc/projection", "")
	rr = do(t, s, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "http_requests_total 1") {
		t.Errorf("metrics should count the projection request:\n%s", rr.Body)
	}
}

func TestReadyz_FailingDependency(t *testing.T) {
	s := NewServer(":0", &fakeProjections{}, &fakeRecords{}, func(context.Context) error {
		return context.DeadlineExceeded
	})

	rr := do(t, s, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
}

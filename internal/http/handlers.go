package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"advisory/internal/core"
	"advisory/internal/services"
)

type walletRequest struct {
	TotalValue string `json:"totalValue"`
}

type walletResponse struct {
	ClientID   string `json:"clientId"`
	TotalValue string `json:"totalValue"`
}

type eventRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Frequency   string `json:"frequency"`
}

type eventResponse struct {
	ID          int64     `json:"id"`
	Description string    `json:"description"`
	Amount      string    `json:"amount"`
	Category    string    `json:"category"`
	Frequency   string    `json:"frequency"`
	CreatedAt   time.Time `json:"createdAt"`
}

type goalRequest struct {
	Name         string `json:"name"`
	TargetAmount string `json:"targetAmount"`
}

type goalResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	TargetAmount string    `json:"targetAmount"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toEventResponse(e core.CashflowEvent) eventResponse {
	return eventResponse{
		ID:          e.ID,
		Description: e.Description,
		Amount:      e.Amount.String(),
		Category:    string(e.Category),
		Frequency:   string(e.Frequency),
		CreatedAt:   e.CreatedAt,
	}
}

func toGoalResponse(g core.Goal) goalResponse {
	return goalResponse{
		ID:           g.ID,
		Name:         g.Name,
		TargetAmount: g.TargetAmount.String(),
		CreatedAt:    g.CreatedAt,
	}
}

// handleProjection simulates the client's wealth through the planning
// horizon. The annual rate defaults to the service-wide assumption and can be
// overridden with ?rate=.
func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("clientID")

	rate := services.DefaultAnnualRate
	if v := strings.TrimSpace(r.URL.Query().Get("rate")); v != "" {
		parsed, err := core.ParseValue(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "malformed rate parameter")
			return
		}
		rate = parsed
	}

	points, err := s.projections.Project(r.Context(), clientID, rate)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	atomic.AddInt64(&s.metrics.projectionsServed, 1)
	writeJSON(w, http.StatusOK, points)
}

// handleAlignment scores the client's wallet against their goal targets.
func (s *Server) handleAlignment(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("clientID")

	result, err := s.projections.Alignment(r.Context(), clientID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	atomic.AddInt64(&s.metrics.projectionsServed, 1)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleUpsertWallet(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("clientID")

	var req walletRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	total, err := core.ParseValue(req.TotalValue)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if err := s.records.UpsertWallet(r.Context(), clientID, total); err != nil {
		writeDomainError(w, r, err)
		return
	}

	atomic.AddInt64(&s.metrics.recordsWritten, 1)
	writeJSON(w, http.StatusOK, walletResponse{
		ClientID:   clientID,
		TotalValue: total.String(),
	})
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("clientID")

	events, err := s.records.ListEvents(r.Context(), clientID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]eventResponse, len(events))
	for i, e := range events {
		out[i] = toEventResponse(e)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("clientID")

	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	event := core.CashflowEvent{
		Description: strings.TrimSpace(req.Description),
		Amount:      amount,
		Category:    core.EventCategory(req.Category),
		Frequency:   core.EventFrequency(req.Frequency),
	}

	created, err := s.records.CreateEvent(r.Context(), clientID, event)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	atomic.AddInt64(&s.metrics.recordsWritten, 1)
	writeJSON(w, http.StatusCreated, toEventResponse(created))
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("clientID")

	id, err := strconv.ParseInt(r.PathValue("eventID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed event id")
		return
	}

	if err := s.records.DeleteEvent(r.Context(), clientID, id); err != nil {
		writeDomainError(w, r, err)
		return
	}

	atomic.AddInt64(&s.metrics.recordsWritten, 1)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("clientID")

	goals, err := s.records.ListGoals(r.Context(), clientID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]goalResponse, len(goals))
	for i, g := range goals {
		out[i] = toGoalResponse(g)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("clientID")

	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	target, err := core.ParseAmount(req.TargetAmount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	goal := core.Goal{
		Name:         strings.TrimSpace(req.Name),
		TargetAmount: target,
	}

	created, err := s.records.CreateGoal(r.Context(), clientID, goal)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	atomic.AddInt64(&s.metrics.recordsWritten, 1)
	writeJSON(w, http.StatusCreated, toGoalResponse(created))
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("clientID")

	id, err := strconv.ParseInt(r.PathValue("goalID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed goal id")
		return
	}

	if err := s.records.DeleteGoal(r.Context(), clientID, id); err != nil {
		writeDomainError(w, r, err)
		return
	}

	atomic.AddInt64(&s.metrics.recordsWritten, 1)
	w.WriteHeader(http.StatusNoContent)
}

// handleHealth performs a basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.startedAt).String(),
	})
}

// handleReady performs a readiness check with dependency verification.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.readyCheck != nil {
		if err := s.readyCheck(r.Context()); err != nil {
			checks["storage"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}
	} else {
		checks["storage"] = "not_configured"
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics exposes application counters in a Prometheus-like text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	totalRequests := atomic.LoadInt64(&s.metrics.totalRequests)
	projections := atomic.LoadInt64(&s.metrics.projectionsServed)
	records := atomic.LoadInt64(&s.metrics.recordsWritten)
	uptime := time.Since(s.metrics.startedAt)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", totalRequests)

	fmt.Fprintf(w, "# HELP projections_served_total Projections and alignments computed\n")
	fmt.Fprintf(w, "# TYPE projections_served_total counter\n")
	fmt.Fprintf(w, "projections_served_total %d\n\n", projections)

	fmt.Fprintf(w, "# HELP records_written_total Plan mutations accepted\n")
	fmt.Fprintf(w, "# TYPE records_written_total counter\n")
	fmt.Fprintf(w, "records_written_total %d\n\n", records)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", uptime.Seconds())
}

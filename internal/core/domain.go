package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  EventCategory = "income"
	Expense EventCategory = "expense"
)

const (
	Unique  EventFrequency = "unique"
	Monthly EventFrequency = "monthly"
	Annual  EventFrequency = "annual"
)

const (
	Green       AlignmentCategory = "green"
	YellowLight AlignmentCategory = "yellow-light"
	YellowDark  AlignmentCategory = "yellow-dark"
	Red         AlignmentCategory = "red"
)

type (
	// EventCategory tells whether a cash-flow event adds to or drains wealth.
	EventCategory string

	// EventFrequency is the timing tag of a cash-flow event: once at
	// simulation start, every month, or every January.
	EventFrequency string

	// AlignmentCategory is the traffic-light band derived from the
	// alignment percentage.
	AlignmentCategory string

	// CashflowEvent is a scheduled income or expense attached to a client.
	// Amount is always positive; the sign is derived from Category.
	CashflowEvent struct {
		ID          int64
		Description string
		Amount      decimal.Decimal
		Category    EventCategory
		Frequency   EventFrequency
		CreatedAt   time.Time
	}

	// Goal is a savings goal. Only TargetAmount matters to the planning
	// engine; Name exists for the record API.
	Goal struct {
		ID           int64
		Name         string
		TargetAmount decimal.Decimal
		CreatedAt    time.Time
	}

	// WalletSnapshot is the client's current balance, the single stateful
	// quantity the simulation evolves.
	WalletSnapshot struct {
		TotalValue decimal.Decimal
		UpdatedAt  time.Time
	}

	// ProjectionPoint is the simulated balance at the end of one calendar
	// year. ProjectedValue marshals to a JSON string so no precision is
	// lost in transit.
	ProjectionPoint struct {
		Year           int             `json:"year"`
		ProjectedValue decimal.Decimal `json:"projectedValue"`
	}

	// AlignmentResult scores current wealth against the summed goal targets.
	AlignmentResult struct {
		Percentage decimal.Decimal   `json:"percentage"`
		Category   AlignmentCategory `json:"category"`
	}
)

var (
	ErrWalletNotFound   = errors.New("no wallet recorded for client")
	ErrNoGoals          = errors.New("no goals registered for client")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidCategory  = errors.New("invalid event category")
	ErrInvalidFrequency = errors.New("invalid event frequency")
	ErrInvalidRate      = errors.New("annual rate must not be negative")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyGoalName    = errors.New("empty goal name")
	ErrNameTooLong      = errors.New("name too long (max 200 characters)")
)

// Signed returns the amount with the sign derived from the category:
// income contributes positively, expense negatively.
func (e CashflowEvent) Signed() decimal.Decimal {
	if e.Category == Expense {
		return e.Amount.Neg()
	}
	return e.Amount
}

func (e CashflowEvent) Validate() error {
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return ErrNameTooLong
	}
	if e.Amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	switch e.Category {
	case Income, Expense:
	default:
		return ErrInvalidCategory
	}
	switch e.Frequency {
	case Unique, Monthly, Annual:
	default:
		return ErrInvalidFrequency
	}
	return nil
}

func (g Goal) Validate() error {
	if len(strings.TrimSpace(g.Name)) == 0 {
		return ErrEmptyGoalName
	}
	if len(g.Name) > 200 {
		return ErrNameTooLong
	}
	if g.TargetAmount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

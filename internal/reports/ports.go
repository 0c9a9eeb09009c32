// Package reports defines the outbound port for advisory report exports and
// the row shape written to the report sheet.
package reports

import (
	"context"
	"time"

	"advisory/internal/core"
)

// Row is one exported advisory report line: the client's current standing and
// the end-of-horizon projection.
type Row struct {
	ClientID       string
	GeneratedAt    time.Time
	WalletValue    string
	Percentage     string
	Category       core.AlignmentCategory
	HorizonYear    int
	ProjectedValue string
}

// Appender is the outbound port for report sinks.
type Appender interface {
	Append(ctx context.Context, row Row) (rowRef string, err error)
}

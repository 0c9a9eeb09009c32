// Package memory holds report rows in process. It backs tests and local runs
// where no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"advisory/internal/reports"
)

type Appender struct {
	mu   sync.Mutex
	rows []reports.Row
}

var _ reports.Appender = (*Appender)(nil)

func New() *Appender {
	return &Appender{}
}

func (a *Appender) Append(_ context.Context, row reports.Row) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.rows = append(a.rows, row)
	return fmt.Sprintf("memory:%d", len(a.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (a *Appender) Rows() []reports.Row {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]reports.Row, len(a.rows))
	copy(out, a.rows)
	return out
}

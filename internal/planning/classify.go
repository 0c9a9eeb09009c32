package planning

import "advisory/internal/core"

// Buckets holds cash-flow events partitioned by frequency. Each slice
// preserves the input order of its members.
type Buckets struct {
	Unique  []core.CashflowEvent
	Monthly []core.CashflowEvent
	Annual  []core.CashflowEvent
}

// Partition splits events into unique/monthly/annual buckets. It is a pure,
// stable partition: re-invoking on the same input yields the same buckets.
func Partition(events []core.CashflowEvent) Buckets {
	var b Buckets
	for _, e := range events {
		switch e.Frequency {
		case core.Unique:
			b.Unique = append(b.Unique, e)
		case core.Monthly:
			b.Monthly = append(b.Monthly, e)
		case core.Annual:
			b.Annual = append(b.Annual, e)
		}
	}
	return b
}

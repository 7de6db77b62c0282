package usage

import (
	"sync"
	"time"

	"github.com/smartirrigation/device-agent/internal/model/messages"
)

// Record is the water consumed in one calendar period.
type Record struct {
	Period    string  `json:"date"` // "YYYY/MM"
	WaterUsed float64 `json:"water_used"`
}

// PeriodOf formats t into the accumulator's period key.
func PeriodOf(t time.Time) string {
	return t.Format(messages.PeriodLayout)
}

// Accumulator keeps an append-mostly log of per-period water usage: at most
// one entry per period, merged by summation. Only the most recent entry is
// ever rewritten; a late record for an older period merges into that
// period's existing entry if one exists.
type Accumulator struct {
	mu      sync.Mutex
	records []Record
}

func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Record merges amount into the entry for period, appending a new entry
// when none exists yet, and returns the updated entry.
func (a *Accumulator) Record(period string, amount float64) Record {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := len(a.records) - 1; i >= 0; i-- {
		if a.records[i].Period == period {
			a.records[i].WaterUsed += amount
			return a.records[i]
		}
	}
	rec := Record{Period: period, WaterUsed: amount}
	a.records = append(a.records, rec)
	return rec
}

// Records returns a copy of the accumulated log, oldest first.
func (a *Accumulator) Records() []Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Record, len(a.records))
	copy(out, a.records)
	return out
}

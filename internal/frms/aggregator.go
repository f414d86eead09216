package frms

import "time"

// WindowTotals is the trailing-window sum for one window length.
type WindowTotals struct {
	FlightHours float64
	DutyHours   float64
	Included    int // records contributing to either sum
	Skipped     int // undated records
}

// Hours returns the sum for the given measure.
func (w WindowTotals) Hours(m Measure) float64 {
	if m == FlightTime {
		return w.FlightHours
	}
	return w.DutyHours
}

// CumulativeTotals maps each tracked window to the hours used in it.
// It is recomputed on every evaluation and never persisted.
type CumulativeTotals struct {
	Hours   map[WindowKind]float64 `json:"hours"`
	Skipped int                    `json:"skipped"`
}

// Used returns the hours used in a window, zero when untracked.
func (c CumulativeTotals) Used(kind WindowKind) float64 {
	return c.Hours[kind]
}

// Aggregator sums flight and duty hours over trailing calendar-day windows.
type Aggregator struct {
	// DutyOverhead is added to flight time for records without duty times.
	DutyOverhead float64
}

// Aggregate sums records with the default duty overhead.
func Aggregate(records []Record, asOf time.Time, windowDays int) WindowTotals {
	return Aggregator{DutyOverhead: DefaultDutyOverhead}.Aggregate(records, asOf, windowDays)
}

// Aggregate sums the records dated within the windowDays calendar days ending
// on asOf, inclusive at both ends. Positioning records count toward duty only.
// The input slice is not modified.
func (a Aggregator) Aggregate(records []Record, asOf time.Time, windowDays int) WindowTotals {
	var totals WindowTotals

	last := DayNumber(asOf)
	first := last - int64(windowDays) + 1

	for _, r := range sortedByDate(records) {
		if !r.Dated() {
			totals.Skipped++
			continue
		}
		if windowDays <= 0 {
			continue
		}

		day := DayNumber(r.Date)
		if day < first || day > last {
			continue
		}

		counted := false
		if flight, ok := r.FlightHours(); ok && !r.Positioning {
			totals.FlightHours += flight
			counted = true
		}
		if duty, ok := r.DutyHours(a.DutyOverhead); ok {
			totals.DutyHours += duty
			counted = true
		}
		if counted {
			totals.Included++
		}
	}

	return totals
}

// Totals computes every window in entries independently.
func (a Aggregator) Totals(records []Record, asOf time.Time, entries []LimitEntry) CumulativeTotals {
	totals := CumulativeTotals{
		Hours:   make(map[WindowKind]float64, len(entries)),
		Skipped: countUndated(records),
	}

	for _, e := range entries {
		w := a.Aggregate(records, asOf, e.WindowDays)
		totals.Hours[e.Kind] = w.Hours(e.Measure)
	}

	return totals
}

func countUndated(records []Record) int {
	n := 0
	for _, r := range records {
		if !r.Dated() {
			n++
		}
	}
	return n
}

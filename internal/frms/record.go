package frms

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// DefaultDutyOverhead is the report and debrief allowance, in hours, added to
// flight time when a record carries neither logged nor scheduled duty times.
const DefaultDutyOverhead = 1.5

// ErrInvalidRecord is wrapped by every error returned from Record.Validate.
var ErrInvalidRecord = errors.New("frms: invalid record")

// Record is one logged or planned duty period.
type Record struct {
	ID             string     `json:"id"`
	PilotID        string     `json:"pilot_id"`
	Date           time.Time  `json:"date"` // zero when missing or unparseable
	DutyStart      *time.Time `json:"duty_start,omitempty"`
	DutyEnd        *time.Time `json:"duty_end,omitempty"`
	ScheduledStart *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd   *time.Time `json:"scheduled_end,omitempty"`
	FlightTime     *float64   `json:"flight_time,omitempty"` // decimal hours, block + simulator
	Fleet          Fleet      `json:"fleet"`
	Positioning    bool       `json:"positioning"`
	Departure      string     `json:"departure,omitempty"`
	Arrival        string     `json:"arrival,omitempty"`
}

// Dated reports whether the record carries a usable calendar day.
func (r Record) Dated() bool {
	return !r.Date.IsZero()
}

// Interval returns the duty interval, preferring logged times over scheduled
// times. ok is false when neither pair is complete and ordered.
func (r Record) Interval() (start, end time.Time, ok bool) {
	if r.DutyStart != nil && r.DutyEnd != nil && !r.DutyEnd.Before(*r.DutyStart) {
		return *r.DutyStart, *r.DutyEnd, true
	}
	if r.ScheduledStart != nil && r.ScheduledEnd != nil && !r.ScheduledEnd.Before(*r.ScheduledStart) {
		return *r.ScheduledStart, *r.ScheduledEnd, true
	}
	return time.Time{}, time.Time{}, false
}

// FlightHours returns the flown hours. ok is false when flight time is absent
// or negative.
func (r Record) FlightHours() (float64, bool) {
	if r.FlightTime == nil || *r.FlightTime < 0 {
		return 0, false
	}
	return *r.FlightTime, true
}

// DutyHours returns the duty length in hours. The interval is used when one
// exists; otherwise duty is estimated as flight time plus overhead. Duty is
// never shorter than flight time. ok is false when neither source exists.
func (r Record) DutyHours(overhead float64) (float64, bool) {
	flight, hasFlight := r.FlightHours()

	if start, end, ok := r.Interval(); ok {
		duty := end.Sub(start).Hours()
		if hasFlight && duty < flight {
			duty = flight
		}
		return duty, true
	}

	if hasFlight {
		return flight + overhead, true
	}

	return 0, false
}

// Validate checks the record invariants and returns every breach joined.
func (r Record) Validate() error {
	var errs []error

	if r.DutyStart != nil && r.DutyEnd != nil && r.DutyEnd.Before(*r.DutyStart) {
		errs = append(errs, fmt.Errorf("%w: duty end %s before duty start %s",
			ErrInvalidRecord, r.DutyEnd.Format(time.RFC3339), r.DutyStart.Format(time.RFC3339)))
	}
	if r.ScheduledStart != nil && r.ScheduledEnd != nil && r.ScheduledEnd.Before(*r.ScheduledStart) {
		errs = append(errs, fmt.Errorf("%w: scheduled end %s before scheduled start %s",
			ErrInvalidRecord, r.ScheduledEnd.Format(time.RFC3339), r.ScheduledStart.Format(time.RFC3339)))
	}
	if r.FlightTime != nil && *r.FlightTime < 0 {
		errs = append(errs, fmt.Errorf("%w: negative flight time %.2f", ErrInvalidRecord, *r.FlightTime))
	}
	if flight, ok := r.FlightHours(); ok {
		if start, end, ok := r.Interval(); ok && end.Sub(start).Hours() < flight {
			errs = append(errs, fmt.Errorf("%w: duty of %.2fh shorter than flight time %.2fh",
				ErrInvalidRecord, end.Sub(start).Hours(), flight))
		}
	}

	return errors.Join(errs...)
}

// DayNumber returns the civil day of t, counted from the Unix epoch, using the
// year, month and day of t in its own location.
func DayNumber(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// sortedByDate returns a copy of records ordered by civil day, then instant.
// Dates carrying different offsets can order differently by instant.
func sortedByDate(records []Record) []Record {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := DayNumber(sorted[i].Date), DayNumber(sorted[j].Date)
		if di != dj {
			return di < dj
		}
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

// hoursToDuration converts decimal hours to a Duration.
func hoursToDuration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}

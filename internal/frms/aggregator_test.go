package frms

import (
	"math"
	"reflect"
	"testing"
	"time"
)

func TestAggregate_WindowBoundary(t *testing.T) {
	tests := []struct {
		name       string
		date       time.Time
		wantFlight float64
	}{
		{"on reference day", testAsOf, 5},
		{"first day of window", daysBefore(testAsOf, 27), 5},
		{"day before window", daysBefore(testAsOf, 28), 0},
		{"day after reference", testAsOf.AddDate(0, 0, 1), 0},
		{"late on first day", time.Date(2026, time.March, 1, 23, 59, 0, 0, time.UTC), 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate([]Record{flown(tt.date, 5)}, testAsOf, 28)
			if got.FlightHours != tt.wantFlight {
				t.Errorf("Aggregate() flight = %v, want %v", got.FlightHours, tt.wantFlight)
			}
		})
	}
}

func TestAggregate_CalendarDaysIgnoreTimeOfDay(t *testing.T) {
	// A reference instant early in the day still covers the whole window.
	asOf := time.Date(2026, time.March, 28, 0, 1, 0, 0, time.UTC)
	first := time.Date(2026, time.March, 1, 23, 30, 0, 0, time.UTC)

	got := Aggregate([]Record{flown(first, 4)}, asOf, 28)
	if got.FlightHours != 4 {
		t.Errorf("Aggregate() flight = %v, want 4", got.FlightHours)
	}
}

func TestAggregate_PositioningCountsTowardDutyOnly(t *testing.T) {
	start := testAsOf.Add(-6 * time.Hour)
	positioning := Record{
		Date:        start,
		DutyStart:   at(start),
		DutyEnd:     at(start.Add(3 * time.Hour)),
		FlightTime:  hours(2),
		Positioning: true,
	}

	got := Aggregate([]Record{positioning}, testAsOf, 7)
	if got.FlightHours != 0 {
		t.Errorf("Aggregate() flight = %v, want 0 for positioning", got.FlightHours)
	}
	if got.DutyHours != 3 {
		t.Errorf("Aggregate() duty = %v, want 3", got.DutyHours)
	}
	if got.Included != 1 {
		t.Errorf("Aggregate() included = %d, want 1", got.Included)
	}
}

func TestAggregate_DutyFallbacks(t *testing.T) {
	date := daysBefore(testAsOf, 1)
	sched := date.Add(8 * time.Hour)

	tests := []struct {
		name       string
		record     Record
		wantFlight float64
		wantDuty   float64
	}{
		{
			name:       "logged interval",
			record:     Record{Date: date, DutyStart: at(date.Add(6 * time.Hour)), DutyEnd: at(date.Add(15 * time.Hour)), FlightTime: hours(7)},
			wantFlight: 7,
			wantDuty:   9,
		},
		{
			name:       "scheduled interval fallback",
			record:     Record{Date: date, ScheduledStart: at(sched), ScheduledEnd: at(sched.Add(10 * time.Hour)), FlightTime: hours(8)},
			wantFlight: 8,
			wantDuty:   10,
		},
		{
			name:       "estimated from flight time",
			record:     flown(date, 6),
			wantFlight: 6,
			wantDuty:   6 + DefaultDutyOverhead,
		},
		{
			name:       "interval shorter than flight raised to flight",
			record:     Record{Date: date, DutyStart: at(date), DutyEnd: at(date.Add(2 * time.Hour)), FlightTime: hours(3)},
			wantFlight: 3,
			wantDuty:   3,
		},
		{
			name:       "no flight time and no interval",
			record:     Record{Date: date},
			wantFlight: 0,
			wantDuty:   0,
		},
		{
			name:       "interval without flight time",
			record:     Record{Date: date, DutyStart: at(date), DutyEnd: at(date.Add(5 * time.Hour))},
			wantFlight: 0,
			wantDuty:   5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate([]Record{tt.record}, testAsOf, 7)
			if math.Abs(got.FlightHours-tt.wantFlight) > 1e-9 {
				t.Errorf("Aggregate() flight = %v, want %v", got.FlightHours, tt.wantFlight)
			}
			if math.Abs(got.DutyHours-tt.wantDuty) > 1e-9 {
				t.Errorf("Aggregate() duty = %v, want %v", got.DutyHours, tt.wantDuty)
			}
		})
	}
}

func TestAggregate_CustomOverhead(t *testing.T) {
	got := Aggregator{DutyOverhead: 2}.Aggregate([]Record{flown(testAsOf, 5)}, testAsOf, 7)
	if got.DutyHours != 7 {
		t.Errorf("Aggregate() duty = %v, want 7", got.DutyHours)
	}
}

func TestAggregate_UnsortedInputNotMutated(t *testing.T) {
	records := []Record{
		flown(daysBefore(testAsOf, 3), 3),
		flown(daysBefore(testAsOf, 40), 9),
		flown(testAsOf, 1),
		flown(daysBefore(testAsOf, 10), 2),
	}
	original := make([]Record, len(records))
	copy(original, records)

	got := Aggregate(records, testAsOf, 28)
	if got.FlightHours != 6 {
		t.Errorf("Aggregate() flight = %v, want 6", got.FlightHours)
	}
	if got.Included != 3 {
		t.Errorf("Aggregate() included = %d, want 3", got.Included)
	}
	if !reflect.DeepEqual(records, original) {
		t.Error("Aggregate() reordered its input")
	}
}

func TestAggregate_MixedOffsets(t *testing.T) {
	honolulu := time.FixedZone("HST", -10*3600)
	tokyo := time.FixedZone("JST", 9*3600)

	// b is the earlier instant but falls on a later civil day than a.
	a := flown(time.Date(2026, time.March, 10, 23, 0, 0, 0, honolulu), 5)
	b := flown(time.Date(2026, time.March, 11, 1, 0, 0, 0, tokyo), 7)
	if !b.Date.Before(a.Date) {
		t.Fatal("fixture: b should be the earlier instant")
	}

	asOf := day(2026, time.March, 10)
	for _, records := range [][]Record{{a, b}, {b, a}} {
		got := Aggregate(records, asOf, 28)
		if got.FlightHours != 5 {
			t.Errorf("Aggregate() flight = %v, want 5 from the record on Mar 10", got.FlightHours)
		}
	}

	if got := Aggregate([]Record{b, a}, day(2026, time.March, 11), 28); got.FlightHours != 12 {
		t.Errorf("Aggregate() flight = %v, want 12 once both days are in the window", got.FlightHours)
	}
}

func TestAggregate_UndatedRecordsSkipped(t *testing.T) {
	records := []Record{
		flown(testAsOf, 4),
		{FlightTime: hours(50)},
		{FlightTime: hours(10)},
	}

	got := Aggregate(records, testAsOf, 28)
	if got.FlightHours != 4 {
		t.Errorf("Aggregate() flight = %v, want 4", got.FlightHours)
	}
	if got.Skipped != 2 {
		t.Errorf("Aggregate() skipped = %d, want 2", got.Skipped)
	}
}

func TestAggregate_NegativeFlightTimeIgnored(t *testing.T) {
	got := Aggregate([]Record{flown(testAsOf, -3)}, testAsOf, 7)
	if got.FlightHours != 0 || got.DutyHours != 0 {
		t.Errorf("Aggregate() = %+v, want zero totals for negative flight time", got)
	}
}

func TestTotals_WindowsComputedIndependently(t *testing.T) {
	start := daysBefore(testAsOf, 10).Add(8 * time.Hour)
	records := []Record{
		flown(testAsOf, 5),
		flown(daysBefore(testAsOf, 20), 7),
		flown(daysBefore(testAsOf, 200), 11),
		{Date: start, DutyStart: at(start), DutyEnd: at(start.Add(4 * time.Hour)), Positioning: true},
		{FlightTime: hours(3)},
	}

	limits := testLimits()[:4]
	totals := Aggregator{DutyOverhead: 1}.Totals(records, testAsOf, limits)

	want := map[WindowKind]float64{
		"flight_28d":  12,
		"flight_365d": 23,
		"duty_7d":     6,
		"duty_14d":    10,
	}
	for kind, w := range want {
		if got := totals.Used(kind); math.Abs(got-w) > 1e-9 {
			t.Errorf("Totals()[%s] = %v, want %v", kind, got, w)
		}
	}
	if totals.Skipped != 1 {
		t.Errorf("Totals() skipped = %d, want 1", totals.Skipped)
	}
}

func TestRecord_Validate(t *testing.T) {
	date := testAsOf

	tests := []struct {
		name    string
		record  Record
		wantErr bool
	}{
		{"valid", duty(date, 8, "SYD", "MEL"), false},
		{"end before start", Record{Date: date, DutyStart: at(date), DutyEnd: at(date.Add(-time.Hour))}, true},
		{"scheduled end before start", Record{Date: date, ScheduledStart: at(date), ScheduledEnd: at(date.Add(-time.Hour))}, true},
		{"negative flight time", flown(date, -1), true},
		{"duty shorter than flight", Record{Date: date, DutyStart: at(date), DutyEnd: at(date.Add(time.Hour)), FlightTime: hours(2)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

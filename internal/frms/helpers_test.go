package frms

import "time"

// Shared fixtures for the frms tests.

var testAsOf = time.Date(2026, time.March, 28, 12, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBefore(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, -n)
}

func hours(h float64) *float64 {
	return &h
}

func at(t time.Time) *time.Time {
	return &t
}

// flown is a dated record with flight time and no duty interval.
func flown(date time.Time, flight float64) Record {
	return Record{Date: date, FlightTime: hours(flight), Fleet: "A320"}
}

// duty is a record with a logged duty interval between two stations.
func duty(start time.Time, length float64, from, to string) Record {
	end := start.Add(hoursToDuration(length))
	return Record{
		Date:       start,
		DutyStart:  at(start),
		DutyEnd:    at(end),
		FlightTime: hours(length - 1),
		Departure:  from,
		Arrival:    to,
	}
}

func limit28(fleet Fleet) LimitEntry {
	return LimitEntry{
		Fleet:        fleet,
		Kind:         "flight_28d",
		Measure:      FlightTime,
		WindowDays:   28,
		MaxHours:     100,
		WarningRatio: 0.9,
	}
}

func testFleets() FleetTable {
	return FleetTable{
		"A320": {
			Fleet:             "A320",
			Group:             ShortHaul,
			MinRestHours:      12,
			MaxDutyHours:      13,
			LongDutyHours:     12,
			LongDutyRestHours: 16,
		},
		"B787": {
			Fleet:             "B787",
			Group:             LongHaul,
			MinRestHours:      14,
			MaxDutyHours:      18,
			LongDutyHours:     14,
			LongDutyRestHours: 24,
			Turnaround:        &TurnaroundRule{MinRestHours: 36, WarningMarginHours: 6},
		},
	}
}

func testLimits() []LimitEntry {
	var entries []LimitEntry
	for _, fleet := range []Fleet{"A320", "B787"} {
		entries = append(entries,
			limit28(fleet),
			LimitEntry{Fleet: fleet, Kind: "flight_365d", Measure: FlightTime, WindowDays: 365, MaxHours: 900, WarningRatio: 0.9},
			LimitEntry{Fleet: fleet, Kind: "duty_7d", Measure: DutyTime, WindowDays: 7, MaxHours: 60, WarningRatio: 0.85},
			LimitEntry{Fleet: fleet, Kind: "duty_14d", Measure: DutyTime, WindowDays: 14, MaxHours: 110, WarningRatio: 0.9},
		)
	}
	return entries
}

package frms

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	limits, err := NewLimitTable(testLimits()...)
	if err != nil {
		t.Fatalf("NewLimitTable() error = %v", err)
	}

	engine := NewEngine(limits, testFleets(), zerolog.Nop())
	engine.SetClock(&FixedClock{CurrentTime: testAsOf})
	return engine
}

func TestEngine_Evaluate(t *testing.T) {
	engine := newTestEngine(t)

	// 91 flight hours over the last 28 days puts flight_28d in warning.
	var records []Record
	for i := 0; i < 13; i++ {
		records = append(records, flown(daysBefore(testAsOf, i*2), 7))
	}
	records = append(records, Record{ID: "undated", FlightTime: hours(40)})

	report := engine.Evaluate(records, a320Config(), Options{})

	if !report.AsOf.Equal(testAsOf) {
		t.Errorf("Evaluate() as of = %v, want clock time %v", report.AsOf, testAsOf)
	}
	if !report.CandidateStart.Equal(testAsOf) {
		t.Errorf("Evaluate() candidate start = %v, want as of", report.CandidateStart)
	}
	if len(report.Windows) != 4 {
		t.Fatalf("Evaluate() windows = %d, want 4", len(report.Windows))
	}

	w := report.Windows[0]
	if w.Kind != "flight_28d" || w.HoursUsed != 91 || w.Status.Level != Warning {
		t.Errorf("Evaluate() flight_28d = %+v, want 91h WARNING", w)
	}
	if w.Remaining() != 9 {
		t.Errorf("Remaining() = %v, want 9", w.Remaining())
	}
	if report.NextDuty.MaxDutyHours != 9 || report.NextDuty.Governing != "flight_28d" {
		t.Errorf("Evaluate() next duty = %+v, want 9h governed by flight_28d", report.NextDuty)
	}
	if report.Worst.Level != Warning {
		t.Errorf("Evaluate() worst = %v, want WARNING", report.Worst)
	}
	if report.SkippedRecords != 1 {
		t.Errorf("Evaluate() skipped = %d, want 1", report.SkippedRecords)
	}
}

func TestEngine_EvaluateWorkedExample(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name  string
		total float64
		want  Level
	}{
		{"89 hours", 89, Compliant},
		{"91 hours", 91, Warning},
		{"100 hours", 100, Violation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := []Record{
				flown(daysBefore(testAsOf, 2), tt.total/2),
				flown(daysBefore(testAsOf, 20), tt.total/2),
			}
			report := engine.Evaluate(records, a320Config(), Options{})

			if got := report.Windows[0].Status.Level; got != tt.want {
				t.Errorf("flight_28d status = %v, want %v", got, tt.want)
			}
			if tt.want == Violation && report.NextDuty.MaxDutyHours != 0 {
				t.Errorf("max duty = %v, want 0", report.NextDuty.MaxDutyHours)
			}
		})
	}
}

func TestEngine_UnknownFleetFailsClosed(t *testing.T) {
	engine := newTestEngine(t)
	cfg := Configuration{PilotID: "P9", Fleet: "Q400"}

	report := engine.Evaluate([]Record{flown(testAsOf, 1)}, cfg, Options{})

	if !report.Worst.IsViolation() {
		t.Errorf("Evaluate() worst = %v, want VIOLATION", report.Worst)
	}
	if !report.NextDuty.Status.IsViolation() || report.NextDuty.MaxDutyHours != 0 {
		t.Errorf("Evaluate() next duty = %+v, want violation with no duty", report.NextDuty)
	}
	if len(report.Windows) != 1 || report.Windows[0].Kind != "configuration" {
		t.Errorf("Evaluate() windows = %+v, want a single configuration entry", report.Windows)
	}
}

func TestEngine_TurnaroundFeedsWorst(t *testing.T) {
	engine := newTestEngine(t)
	cfg := Configuration{PilotID: "P2", Fleet: "B787", HomeBase: "SYD"}

	records := rotation(30)
	_, outEnd, _ := records[1].Interval()

	// Evaluate after the outbound duty so rest before the candidate is legal.
	opts := Options{AsOf: outEnd.Add(48 * time.Hour)}
	report := engine.Evaluate(records, cfg, opts)

	if !report.Turnaround.Applicable {
		t.Fatal("Evaluate() turnaround not applicable for B787")
	}
	if !report.Turnaround.Status.IsViolation() {
		t.Errorf("Evaluate() turnaround = %v, want VIOLATION", report.Turnaround.Status)
	}
	if !report.Worst.IsViolation() {
		t.Errorf("Evaluate() worst = %v, want VIOLATION", report.Worst)
	}
}

func TestEngine_CandidateStartAfterAsOf(t *testing.T) {
	engine := newTestEngine(t)

	prev := duty(testAsOf.Add(2*time.Hour), 8, "SYD", "MEL")
	_, end, _ := prev.Interval()

	opts := Options{AsOf: testAsOf, CandidateStart: end.Add(4 * time.Hour)}
	report := engine.Evaluate([]Record{prev}, a320Config(), opts)

	if report.NextDuty.PrecedingDuty == nil {
		t.Fatal("Evaluate() ignored a duty on the reference day")
	}
	if !report.NextDuty.Status.IsViolation() {
		t.Errorf("Evaluate() next duty = %v, want rest VIOLATION", report.NextDuty.Status)
	}
}

func TestEngine_ZonedClockSetsCivilDay(t *testing.T) {
	engine := newTestEngine(t)

	// 23:30 UTC on the 28th is already the 29th in a UTC+10 zone.
	zone := time.FixedZone("UTC+10", 10*60*60)
	now := time.Date(2026, time.March, 28, 23, 30, 0, 0, time.UTC)
	engine.SetClock(ZonedClock{Clock: &FixedClock{CurrentTime: now}, Location: zone})

	records := []Record{flown(day(2026, time.March, 28), 4), flown(day(2026, time.March, 29), 5)}
	report := engine.Evaluate(records, a320Config(), Options{})

	if report.AsOf.Location() != zone || !report.AsOf.Equal(now) {
		t.Errorf("Evaluate() as of = %v, want %v in %s", report.AsOf, now, zone)
	}
	if got := DayNumber(report.AsOf); got != DayNumber(day(2026, time.March, 29)) {
		t.Errorf("DayNumber(as of) = %d, want the 29th", got)
	}
	if got := report.Totals.Used("flight_28d"); got != 9 {
		t.Errorf("Evaluate() flight_28d = %v, want 9", got)
	}

	engine.SetClock(&FixedClock{CurrentTime: now})
	report = engine.Evaluate(records, a320Config(), Options{})
	if got := report.Totals.Used("flight_28d"); got != 4 {
		t.Errorf("Evaluate() flight_28d in UTC = %v, want 4", got)
	}
}

func TestZonedClock_NilFallbacks(t *testing.T) {
	now := time.Date(2026, time.March, 28, 23, 30, 0, 0, time.UTC)

	if got := (ZonedClock{Clock: &FixedClock{CurrentTime: now}}).Now(); !got.Equal(now) {
		t.Errorf("Now() without location = %v, want %v", got, now)
	}
	if got := (ZonedClock{Location: time.UTC}).Now(); got.Location() != time.UTC || got.IsZero() {
		t.Errorf("Now() without clock = %v, want current UTC time", got)
	}
}

func TestEngine_InvalidRecordsCounted(t *testing.T) {
	engine := newTestEngine(t)

	bad := Record{Date: testAsOf, DutyStart: at(testAsOf), DutyEnd: at(testAsOf.Add(-time.Hour)), FlightTime: hours(2)}
	report := engine.Evaluate([]Record{bad, flown(testAsOf, 3)}, a320Config(), Options{})

	if report.InvalidRecords != 1 {
		t.Errorf("Evaluate() invalid = %d, want 1", report.InvalidRecords)
	}
	if got := report.Totals.Used("flight_28d"); got != 5 {
		t.Errorf("Evaluate() flight_28d = %v, want 5", got)
	}
}

func TestEngine_LookbackDays(t *testing.T) {
	engine := newTestEngine(t)

	if got := engine.LookbackDays("A320"); got != 365 {
		t.Errorf("LookbackDays(A320) = %d, want 365", got)
	}
	if got := engine.LookbackDays("Q400"); got != RecentDays {
		t.Errorf("LookbackDays(Q400) = %d, want %d", got, RecentDays)
	}
}

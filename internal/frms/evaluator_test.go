package frms

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestEvaluate(t *testing.T) {
	limit := limit28("A320")

	tests := []struct {
		name      string
		hoursUsed float64
		want      Level
	}{
		{"well under", 10, Compliant},
		{"just under warning", 89, Compliant},
		{"exactly at warning", 90, Warning},
		{"in warning band", 91, Warning},
		{"just under ceiling", 99.9, Warning},
		{"exactly at ceiling", 100, Violation},
		{"over ceiling", 130, Violation},
		{"summation error under ceiling", 100 - 1e-12, Violation},
		{"summation error under warning", 90 - 1e-12, Warning},
		{"zero", 0, Compliant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.hoursUsed, limit)
			if got.Level != tt.want {
				t.Errorf("Evaluate(%v) level = %v, want %v", tt.hoursUsed, got.Level, tt.want)
			}
			if got.Level != Compliant && !strings.Contains(got.Message, "flight_28d") {
				t.Errorf("Evaluate(%v) message = %q, want window kind", tt.hoursUsed, got.Message)
			}
		})
	}
}

func TestEvaluate_WarningRatioOfOne(t *testing.T) {
	limit := limit28("A320")
	limit.WarningRatio = 1

	if got := Evaluate(99.5, limit); got.Level != Compliant {
		t.Errorf("Evaluate() level = %v, want COMPLIANT", got.Level)
	}
	if got := Evaluate(100, limit); got.Level != Violation {
		t.Errorf("Evaluate() level = %v, want VIOLATION", got.Level)
	}
}

func TestMissingLimits(t *testing.T) {
	got := MissingLimits("Q400")
	if !got.IsViolation() {
		t.Fatalf("MissingLimits() level = %v, want VIOLATION", got.Level)
	}
	if !strings.Contains(got.Message, "Q400") {
		t.Errorf("MissingLimits() message = %q, want fleet name", got.Message)
	}
}

func TestWorst(t *testing.T) {
	warnA := Warn("a")
	warnB := Warn("b")
	violation := Violate("v")

	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"empty", nil, Ok()},
		{"all compliant", []Status{Ok(), Ok()}, Ok()},
		{"warning beats compliant", []Status{Ok(), warnA}, warnA},
		{"violation beats warning", []Status{warnA, violation, warnB}, violation},
		{"first warning wins", []Status{warnA, warnB}, warnA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Worst(tt.statuses...); got != tt.want {
				t.Errorf("Worst() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevel_JSON(t *testing.T) {
	data, err := json.Marshal(Status{Level: Warning, Message: "close"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"level":"WARNING"`) {
		t.Errorf("Marshal() = %s, want upper-case level", data)
	}

	var s Status
	if err := json.Unmarshal([]byte(`{"level":"violation"}`), &s); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if s.Level != Violation {
		t.Errorf("Unmarshal() level = %v, want VIOLATION", s.Level)
	}

	if err := json.Unmarshal([]byte(`{"level":"amber"}`), &s); err == nil {
		t.Error("Unmarshal() expected error for unknown level")
	}
}

func TestMeasure_JSON(t *testing.T) {
	data, err := json.Marshal(WindowResult{Kind: "duty_7d", Measure: DutyTime})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"measure":"duty"`) {
		t.Errorf("Marshal() = %s, want measure spelled out", data)
	}

	var w WindowResult
	if err := json.Unmarshal(data, &w); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if w.Measure != DutyTime {
		t.Errorf("Unmarshal() measure = %v, want duty", w.Measure)
	}
}

func TestNewLimitTable(t *testing.T) {
	tests := []struct {
		name    string
		entries []LimitEntry
		wantErr bool
	}{
		{"valid", testLimits(), false},
		{"empty", nil, false},
		{"duplicate kind", []LimitEntry{limit28("A320"), limit28("A320")}, true},
		{"same kind other fleet", []LimitEntry{limit28("A320"), limit28("B787")}, false},
		{"zero window", []LimitEntry{{Fleet: "A320", Kind: "x", WindowDays: 0, MaxHours: 1, WarningRatio: 0.5}}, true},
		{"zero max", []LimitEntry{{Fleet: "A320", Kind: "x", WindowDays: 7, MaxHours: 0, WarningRatio: 0.5}}, true},
		{"ratio above one", []LimitEntry{{Fleet: "A320", Kind: "x", WindowDays: 7, MaxHours: 10, WarningRatio: 1.1}}, true},
		{"missing fleet", []LimitEntry{{Kind: "x", WindowDays: 7, MaxHours: 10, WarningRatio: 0.9}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLimitTable(tt.entries...)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewLimitTable() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLimitTable_Lookups(t *testing.T) {
	table, err := NewLimitTable(testLimits()...)
	if err != nil {
		t.Fatalf("NewLimitTable() error = %v", err)
	}

	if e, ok := table.Lookup("B787", "duty_7d"); !ok || e.MaxHours != 60 {
		t.Errorf("Lookup(B787, duty_7d) = %+v, %v", e, ok)
	}
	if _, ok := table.Lookup("Q400", "duty_7d"); ok {
		t.Error("Lookup() found entry for unknown fleet")
	}
	if got := table.LookbackDays("A320"); got != 365 {
		t.Errorf("LookbackDays() = %d, want 365", got)
	}
	if got := table.ForFleet("Q400"); len(got) != 0 {
		t.Errorf("ForFleet(unknown) = %v, want empty", got)
	}

	entries := table.ForFleet("A320")
	entries[0].MaxHours = 1
	if e, _ := table.Lookup("A320", entries[0].Kind); e.MaxHours == 1 {
		t.Error("ForFleet() returned the table's backing slice")
	}

	fleets := table.Fleets()
	if len(fleets) != 2 || fleets[0] != "A320" || fleets[1] != "B787" {
		t.Errorf("Fleets() = %v, want [A320 B787]", fleets)
	}
}

func TestParseMeasure(t *testing.T) {
	tests := []struct {
		in      string
		want    Measure
		wantErr bool
	}{
		{"flight", FlightTime, false},
		{"DUTY", DutyTime, false},
		{" duty_time ", DutyTime, false},
		{"block", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseMeasure(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMeasure(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMeasure(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

package storage

import (
	"testing"
	"time"

	"github.com/goodtune/frms/internal/frms"
)

func TestParseChange(t *testing.T) {
	tests := []struct {
		payload string
		want    Change
		wantErr bool
	}{
		{"upsert:4:rec-1", Change{PilotID: "P1", RecordID: "rec-1", Op: OpUpsert, Revision: 4}, false},
		{"delete:9:a:b", Change{PilotID: "P1", RecordID: "a:b", Op: OpDelete, Revision: 9}, false},
		{"touch:1:x", Change{}, true},
		{"upsert:x:y", Change{}, true},
		{"upsert", Change{}, true},
	}

	for _, tt := range tests {
		got, err := ParseChange("P1", tt.payload)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseChange(%q) error = %v, wantErr %v", tt.payload, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseChange(%q) = %+v, want %+v", tt.payload, got, tt.want)
		}
	}

	if p := FormatChange(OpUpsert, 4, "rec-1"); p != "upsert:4:rec-1" {
		t.Errorf("FormatChange() = %q", p)
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in     string
		want   time.Time
		wantOK bool
	}{
		{"2026-03-01", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"2026-03-01T06:30:00Z", time.Date(2026, 3, 1, 6, 30, 0, 0, time.UTC), true},
		{" 2026-03-01 06:30 ", time.Date(2026, 3, 1, 6, 30, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"01/03/2026", time.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseTime(tt.in)
		if ok != tt.wantOK || !got.Equal(tt.want) {
			t.Errorf("ParseTime(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseHours(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"5.5", 5.5, true},
		{"5:30", 5.5, true},
		{"0:45", 0.75, true},
		{"5:75", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseHours(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseHours(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestSortRecords(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }
	records := []frms.Record{
		{ID: "u"},
		{ID: "b", Date: day(2)},
		{ID: "a", Date: day(2)},
		{ID: "z", Date: day(1)},
	}

	SortRecords(records)

	want := []string{"z", "a", "b", "u"}
	for i, id := range want {
		if records[i].ID != id {
			t.Errorf("records[%d] = %s, want %s", i, records[i].ID, id)
		}
	}
}

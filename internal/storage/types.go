package storage

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goodtune/frms/internal/frms"
)

// Op is the kind of change made to a record.
type Op string

const (
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

// Change describes one write to a pilot's records.
type Change struct {
	PilotID  string
	RecordID string
	Op       Op
	Revision int64
}

// FormatChange encodes the payload published for a change, excluding the
// pilot, which travels in the channel name.
func FormatChange(op Op, revision int64, recordID string) string {
	return fmt.Sprintf("%s:%d:%s", op, revision, recordID)
}

// ParseChange decodes a change payload published on a pilot's channel.
func ParseChange(pilotID, payload string) (Change, error) {
	parts := strings.SplitN(payload, ":", 3)
	if len(parts) != 3 {
		return Change{}, fmt.Errorf("malformed change payload: %q", payload)
	}

	op := Op(parts[0])
	if op != OpUpsert && op != OpDelete {
		return Change{}, fmt.Errorf("unknown change op: %q", parts[0])
	}

	revision, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Change{}, fmt.Errorf("failed to parse revision: %w", err)
	}

	return Change{PilotID: pilotID, RecordID: parts[2], Op: op, Revision: revision}, nil
}

// SortRecords orders records by calendar day, then ID, with undated records
// last.
func SortRecords(records []frms.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Dated() != b.Dated() {
			return a.Dated()
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.ID < b.ID
	})
}

// timeLayouts are the accepted spellings of record dates and times, most
// precise first.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime parses a record date or time. ok is false for empty or
// unparseable input.
func ParseTime(v string) (t time.Time, ok bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseHours parses decimal hours ("5.5") or hours and minutes ("5:30").
// ok is false for empty or malformed input.
func ParseHours(v string) (hours float64, ok bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}

	if h, m, found := strings.Cut(v, ":"); found {
		hh, err := strconv.Atoi(h)
		if err != nil {
			return 0, false
		}
		mm, err := strconv.Atoi(m)
		if err != nil || mm < 0 || mm >= 60 {
			return 0, false
		}
		return float64(hh) + float64(mm)/60, true
	}

	hours, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return hours, true
}

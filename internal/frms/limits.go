package frms

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidLimit is wrapped by limit table construction errors.
var ErrInvalidLimit = errors.New("frms: invalid limit")

// Measure selects which hours a window sums.
type Measure int

const (
	FlightTime Measure = iota
	DutyTime
)

// String returns the configuration spelling of the measure.
func (m Measure) String() string {
	switch m {
	case FlightTime:
		return "flight"
	case DutyTime:
		return "duty"
	default:
		return fmt.Sprintf("Measure(%d)", int(m))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Measure) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Measure) UnmarshalText(text []byte) error {
	parsed, err := ParseMeasure(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMeasure parses "flight" or "duty".
func ParseMeasure(s string) (Measure, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "flight", "flight_time":
		return FlightTime, nil
	case "duty", "duty_time":
		return DutyTime, nil
	default:
		return 0, fmt.Errorf("invalid measure: %s (must be flight or duty)", s)
	}
}

// WindowKind names a tracked rolling window, e.g. "flight_28d".
type WindowKind string

// LimitEntry is the regulatory threshold for one (fleet, window kind) pair.
type LimitEntry struct {
	Fleet        Fleet      `json:"fleet"`
	Kind         WindowKind `json:"kind"`
	Measure      Measure    `json:"measure"`
	WindowDays   int        `json:"window_days"`
	MaxHours     float64    `json:"max_hours"`
	WarningRatio float64    `json:"warning_ratio"`
}

// WarningHours is the threshold at which the window enters warning.
func (e LimitEntry) WarningHours() float64 {
	return e.MaxHours * e.WarningRatio
}

// Validate checks the entry invariants.
func (e LimitEntry) Validate() error {
	if e.Fleet == "" {
		return fmt.Errorf("%w: empty fleet", ErrInvalidLimit)
	}
	if e.Kind == "" {
		return fmt.Errorf("%w: fleet %s: empty window kind", ErrInvalidLimit, e.Fleet)
	}
	if e.WindowDays <= 0 {
		return fmt.Errorf("%w: %s/%s: window_days must be positive, got %d", ErrInvalidLimit, e.Fleet, e.Kind, e.WindowDays)
	}
	if e.MaxHours <= 0 {
		return fmt.Errorf("%w: %s/%s: max_hours must be positive, got %g", ErrInvalidLimit, e.Fleet, e.Kind, e.MaxHours)
	}
	if e.WarningRatio <= 0 || e.WarningRatio > 1 {
		return fmt.Errorf("%w: %s/%s: warning_ratio must be in (0, 1], got %g", ErrInvalidLimit, e.Fleet, e.Kind, e.WarningRatio)
	}
	return nil
}

type limitKey struct {
	fleet Fleet
	kind  WindowKind
}

// LimitTable is an immutable fleet-keyed table of window thresholds.
type LimitTable struct {
	byKey   map[limitKey]LimitEntry
	byFleet map[Fleet][]LimitEntry
}

// NewLimitTable validates entries and builds a table. Entry order within a
// fleet is preserved for reporting.
func NewLimitTable(entries ...LimitEntry) (*LimitTable, error) {
	t := &LimitTable{
		byKey:   make(map[limitKey]LimitEntry, len(entries)),
		byFleet: make(map[Fleet][]LimitEntry),
	}

	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		key := limitKey{fleet: e.Fleet, kind: e.Kind}
		if _, dup := t.byKey[key]; dup {
			return nil, fmt.Errorf("%w: duplicate entry for %s/%s", ErrInvalidLimit, e.Fleet, e.Kind)
		}
		t.byKey[key] = e
		t.byFleet[e.Fleet] = append(t.byFleet[e.Fleet], e)
	}

	return t, nil
}

// Lookup returns the entry for a (fleet, kind) pair.
func (t *LimitTable) Lookup(fleet Fleet, kind WindowKind) (LimitEntry, bool) {
	e, ok := t.byKey[limitKey{fleet: fleet, kind: kind}]
	return e, ok
}

// ForFleet returns a copy of the fleet's entries, empty for unknown fleets.
func (t *LimitTable) ForFleet(fleet Fleet) []LimitEntry {
	entries := t.byFleet[fleet]
	out := make([]LimitEntry, len(entries))
	copy(out, entries)
	return out
}

// Fleets returns the fleets that have at least one entry, sorted.
func (t *LimitTable) Fleets() []Fleet {
	fleets := make([]Fleet, 0, len(t.byFleet))
	for f := range t.byFleet {
		fleets = append(fleets, f)
	}
	sort.Slice(fleets, func(i, j int) bool { return fleets[i] < fleets[j] })
	return fleets
}

// LookbackDays returns the longest window configured for the fleet.
func (t *LimitTable) LookbackDays(fleet Fleet) int {
	longest := 0
	for _, e := range t.byFleet[fleet] {
		if e.WindowDays > longest {
			longest = e.WindowDays
		}
	}
	return longest
}

package frms

import (
	"fmt"
	"sort"
	"strings"
)

// Fleet tags an aircraft fleet. Rule sets are selected by fleet.
type Fleet string

// FleetGroup classifies fleets into rule families.
type FleetGroup int

const (
	ShortHaul FleetGroup = iota
	LongHaul
)

// String returns the configuration spelling of the group.
func (g FleetGroup) String() string {
	switch g {
	case ShortHaul:
		return "short_haul"
	case LongHaul:
		return "long_haul"
	default:
		return fmt.Sprintf("FleetGroup(%d)", int(g))
	}
}

// ParseFleetGroup parses "short_haul" or "long_haul".
func ParseFleetGroup(s string) (FleetGroup, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "short_haul", "short-haul", "shorthaul":
		return ShortHaul, nil
	case "long_haul", "long-haul", "longhaul":
		return LongHaul, nil
	default:
		return 0, fmt.Errorf("invalid fleet group: %s (must be short_haul or long_haul)", s)
	}
}

// TurnaroundRule is the minimum rest at home base between rotations.
type TurnaroundRule struct {
	MinRestHours       float64 `json:"min_rest_hours"`
	WarningMarginHours float64 `json:"warning_margin_hours"` // rest below min+margin warns
}

// FleetProfile holds the per-fleet rest and duty parameters.
type FleetProfile struct {
	Fleet             Fleet
	Group             FleetGroup
	MinRestHours      float64 // floor for rest before any duty
	MaxDutyHours      float64 // single-duty ceiling, 0 = none
	LongDutyHours     float64 // preceding duty longer than this is "long", 0 = never
	LongDutyRestHours float64 // rest required after a long duty
	Turnaround        *TurnaroundRule
}

// HasTurnaround reports whether the home-base turnaround rule applies.
func (p FleetProfile) HasTurnaround() bool {
	return p.Group == LongHaul && p.Turnaround != nil
}

// FleetTable maps fleet tags to their profiles. New fleets are new rows.
type FleetTable map[Fleet]FleetProfile

// Lookup returns the profile for a fleet.
func (t FleetTable) Lookup(fleet Fleet) (FleetProfile, bool) {
	p, ok := t[fleet]
	return p, ok
}

// Fleets returns the known fleet tags in sorted order.
func (t FleetTable) Fleets() []Fleet {
	fleets := make([]Fleet, 0, len(t))
	for f := range t {
		fleets = append(fleets, f)
	}
	sort.Slice(fleets, func(i, j int) bool { return fleets[i] < fleets[j] })
	return fleets
}

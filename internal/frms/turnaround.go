package frms

import (
	"sort"
	"strings"
	"time"
)

// TurnaroundResult is the outcome of a home-base turnaround check.
type TurnaroundResult struct {
	Status        Status  `json:"status"`
	Applicable    bool    `json:"applicable"`
	RestHours     float64 `json:"rest_hours"`
	RequiredHours float64 `json:"required_hours"`

	// InsufficientHistory is set when fewer than two duties touching home
	// base were found. Status stays compliant in that case.
	InsufficientHistory bool `json:"insufficient_history"`
}

// TurnaroundValidator checks rest at home base between rotations for fleets
// that carry a turnaround rule.
type TurnaroundValidator struct {
	Fleets FleetTable
}

// Validate returns the turnaround status for the fleet.
func (v TurnaroundValidator) Validate(recent []Record, homeBase string, fleet Fleet) Status {
	return v.Check(recent, homeBase, fleet, nil).Status
}

// Check evaluates the most recent return to homeBase followed by a departure
// from it. Fleets without a turnaround rule are compliant for any input.
func (v TurnaroundValidator) Check(recent []Record, homeBase string, fleet Fleet, override *TurnaroundRule) TurnaroundResult {
	profile, ok := v.Fleets.Lookup(fleet)
	if !ok || !profile.HasTurnaround() {
		return TurnaroundResult{Status: Ok()}
	}

	rule := *profile.Turnaround
	if override != nil {
		rule = *override
	}

	result := TurnaroundResult{
		Status:        Ok(),
		Applicable:    true,
		RequiredHours: rule.MinRestHours,
	}

	duties := timedDuties(recent)

	touching := 0
	for _, d := range duties {
		if atStation(d.record.Departure, homeBase) || atStation(d.record.Arrival, homeBase) {
			touching++
		}
	}
	if touching < 2 {
		result.InsufficientHistory = true
		return result
	}

	for i := len(duties) - 1; i > 0; i-- {
		inbound, outbound := duties[i-1], duties[i]
		if !atStation(inbound.record.Arrival, homeBase) || !atStation(outbound.record.Departure, homeBase) {
			continue
		}

		result.RestHours = outbound.start.Sub(inbound.end).Hours()

		switch {
		case result.RestHours < rule.MinRestHours:
			result.Status = Violate("turnaround at %s of %.1fh is below the %.1fh minimum",
				homeBase, result.RestHours, rule.MinRestHours)
		case result.RestHours < rule.MinRestHours+rule.WarningMarginHours:
			result.Status = Warn("turnaround at %s of %.1fh is within %.1fh of the %.1fh minimum",
				homeBase, result.RestHours, rule.WarningMarginHours, rule.MinRestHours)
		}
		return result
	}

	result.InsufficientHistory = true
	return result
}

type timedDuty struct {
	record     Record
	start, end time.Time
}

// timedDuties returns the records with a duty interval, ordered by start.
func timedDuties(records []Record) []timedDuty {
	duties := make([]timedDuty, 0, len(records))
	for _, r := range records {
		start, end, ok := r.Interval()
		if !ok {
			continue
		}
		duties = append(duties, timedDuty{record: r, start: start, end: end})
	}
	sort.SliceStable(duties, func(i, j int) bool {
		return duties[i].start.Before(duties[j].start)
	})
	return duties
}

func atStation(station, homeBase string) bool {
	return homeBase != "" && strings.EqualFold(strings.TrimSpace(station), strings.TrimSpace(homeBase))
}

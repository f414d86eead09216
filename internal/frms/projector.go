package frms

import (
	"math"
	"time"
)

// Configuration is the pilot-level input to every evaluation. It is read-only
// and passed explicitly; the engine keeps no global settings.
type Configuration struct {
	PilotID  string
	Fleet    Fleet
	HomeBase string

	// DutyOverhead overrides DefaultDutyOverhead when positive.
	DutyOverhead float64

	// MinRestHours raises the fleet rest floor when set.
	MinRestHours *float64

	// Turnaround replaces the fleet turnaround parameters when set. It never
	// enables the check for a fleet without a turnaround rule.
	Turnaround *TurnaroundRule
}

// Overhead returns the duty overhead in effect.
func (c Configuration) Overhead() float64 {
	if c.DutyOverhead > 0 {
		return c.DutyOverhead
	}
	return DefaultDutyOverhead
}

// Projection constrains the pilot's next duty.
type Projection struct {
	MaxDutyHours  float64    `json:"max_duty_hours"`
	MinRestHours  float64    `json:"min_rest_hours"`
	Governing     WindowKind `json:"governing,omitempty"` // window that set MaxDutyHours
	Status        Status     `json:"status"`
	EarliestStart time.Time  `json:"earliest_start,omitempty"` // zero without a preceding duty
	PrecedingDuty *Record    `json:"preceding_duty,omitempty"`
}

// Legal reports whether any further duty is permitted.
func (p Projection) Legal() bool {
	return p.MaxDutyHours > 0 && !p.Status.IsViolation()
}

// Projector derives next-duty constraints from totals and recent history.
type Projector struct {
	Fleets FleetTable
}

// Project computes the maximum duty length and minimum rest for a duty
// starting at candidateStart. The most restrictive window governs. A window
// already in violation, or a candidate start inside the required rest, forces
// MaxDutyHours to zero and is carried in Status.
func (p Projector) Project(totals CumulativeTotals, limits []LimitEntry, recent []Record, candidateStart time.Time, cfg Configuration) Projection {
	if len(limits) == 0 {
		return Projection{Status: MissingLimits(cfg.Fleet)}
	}

	profile, _ := p.Fleets.Lookup(cfg.Fleet)

	proj := Projection{Status: Ok()}
	maxDuty := math.Inf(1)
	if profile.MaxDutyHours > 0 {
		maxDuty = profile.MaxDutyHours
	}

	for _, limit := range limits {
		used := totals.Used(limit.Kind)
		proj.Status = Worst(proj.Status, Evaluate(used, limit))

		headroom := limit.MaxHours - used
		if headroom < maxDuty {
			maxDuty = headroom
			proj.Governing = limit.Kind
		}
	}

	if maxDuty < 0 || math.IsInf(maxDuty, 1) {
		maxDuty = 0
	}

	proj.MinRestHours = restFloor(profile, cfg)

	if prev, ok := precedingDuty(recent, candidateStart); ok {
		start, end, _ := prev.Interval()
		dutyHours, _ := prev.DutyHours(cfg.Overhead())

		proj.MinRestHours = math.Max(proj.MinRestHours, dutyHours)
		if profile.LongDutyHours > 0 && dutyHours > profile.LongDutyHours {
			proj.MinRestHours = math.Max(proj.MinRestHours, profile.LongDutyRestHours)
		}

		proj.EarliestStart = end.Add(hoursToDuration(proj.MinRestHours))
		proj.PrecedingDuty = &prev

		if end.After(candidateStart) {
			proj.Status = Worst(proj.Status, Violate("candidate at %s overlaps the duty from %s to %s",
				candidateStart.Format(time.RFC3339), start.Format(time.RFC3339), end.Format(time.RFC3339)))
		} else if candidateStart.Before(proj.EarliestStart) {
			rest := candidateStart.Sub(end).Hours()
			proj.Status = Worst(proj.Status, Violate("rest of %.1fh before %s is below the required %.1fh",
				rest, candidateStart.Format(time.RFC3339), proj.MinRestHours))
		}
	}

	if proj.Status.IsViolation() {
		maxDuty = 0
	}
	proj.MaxDutyHours = maxDuty

	return proj
}

func restFloor(profile FleetProfile, cfg Configuration) float64 {
	floor := profile.MinRestHours
	if cfg.MinRestHours != nil && *cfg.MinRestHours > floor {
		floor = *cfg.MinRestHours
	}
	return floor
}

// precedingDuty returns the latest duty starting before t. Its interval may
// still be running at t.
func precedingDuty(records []Record, t time.Time) (Record, bool) {
	var (
		best      Record
		bestStart time.Time
		found     bool
	)
	for _, r := range records {
		start, _, ok := r.Interval()
		if !ok || !start.Before(t) {
			continue
		}
		if !found || start.After(bestStart) {
			best, bestStart, found = r, start, true
		}
	}
	return best, found
}

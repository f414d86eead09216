package frms

import (
	"time"

	"github.com/rs/zerolog"
)

// RecentDays is how far before the reference date duties are considered
// for rest and turnaround.
const RecentDays = 14

// Options carries the per-call reference times.
type Options struct {
	// AsOf is the last calendar day of every window. Zero means Clock.Now().
	AsOf time.Time

	// CandidateStart is the start of the hypothetical next duty. Zero means AsOf.
	CandidateStart time.Time
}

// WindowResult is the evaluation of one tracked window.
type WindowResult struct {
	Kind         WindowKind `json:"kind"`
	Measure      Measure    `json:"measure"`
	WindowDays   int        `json:"window_days"`
	HoursUsed    float64    `json:"hours_used"`
	MaxHours     float64    `json:"max_hours"`
	WarningRatio float64    `json:"warning_ratio"`
	Status       Status     `json:"status"`
}

// Remaining returns the hours left before the ceiling, never negative.
func (w WindowResult) Remaining() float64 {
	if r := w.MaxHours - w.HoursUsed; r > 0 {
		return r
	}
	return 0
}

// Report is the FRMS compliance report handed to the presentation layer.
type Report struct {
	PilotID        string           `json:"pilot_id"`
	Fleet          Fleet            `json:"fleet"`
	AsOf           time.Time        `json:"as_of"`
	CandidateStart time.Time        `json:"candidate_start"`
	Windows        []WindowResult   `json:"windows"`
	Totals         CumulativeTotals `json:"totals"`
	NextDuty       Projection       `json:"next_duty"`
	Turnaround     TurnaroundResult `json:"turnaround"`
	Worst          Status           `json:"worst"`
	SkippedRecords int              `json:"skipped_records"`
	InvalidRecords int              `json:"invalid_records"`
}

// Engine assembles compliance reports from a limit table and fleet table.
// It holds no per-pilot state and is safe for concurrent use.
type Engine struct {
	limits *LimitTable
	fleets FleetTable
	clock  Clock
	logger zerolog.Logger
}

// NewEngine creates a report engine.
func NewEngine(limits *LimitTable, fleets FleetTable, logger zerolog.Logger) *Engine {
	return &Engine{
		limits: limits,
		fleets: fleets,
		clock:  RealClock{},
		logger: logger.With().Str("component", "frms").Logger(),
	}
}

// SetClock sets the clock used when Options.AsOf is zero.
func (e *Engine) SetClock(clock Clock) {
	e.clock = clock
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// Limits returns the engine's limit table.
func (e *Engine) Limits() *LimitTable {
	return e.limits
}

// Fleets returns the engine's fleet table.
func (e *Engine) Fleets() FleetTable {
	return e.fleets
}

// Resolve fills in defaulted reference times.
func (e *Engine) Resolve(opts Options) Options {
	if opts.AsOf.IsZero() {
		opts.AsOf = e.clock.Now()
	}
	if opts.CandidateStart.IsZero() {
		opts.CandidateStart = opts.AsOf
	}
	return opts
}

// LookbackDays returns how many calendar days before AsOf a caller must load
// to evaluate the fleet.
func (e *Engine) LookbackDays(fleet Fleet) int {
	days := e.limits.LookbackDays(fleet)
	if days < RecentDays {
		days = RecentDays
	}
	return days
}

// Evaluate builds the compliance report for one pilot's records. Malformed
// records reduce the report's completeness but never fail it.
func (e *Engine) Evaluate(records []Record, cfg Configuration, opts Options) *Report {
	opts = e.Resolve(opts)

	report := &Report{
		PilotID:        cfg.PilotID,
		Fleet:          cfg.Fleet,
		AsOf:           opts.AsOf,
		CandidateStart: opts.CandidateStart,
		SkippedRecords: countUndated(records),
	}

	for _, r := range records {
		if err := r.Validate(); err != nil {
			report.InvalidRecords++
			e.logger.Warn().
				Err(err).
				Str("record_id", r.ID).
				Str("pilot_id", cfg.PilotID).
				Msg("Record breaks duty invariants, aggregating with corrected duty")
		}
	}

	if report.SkippedRecords > 0 {
		e.logger.Warn().
			Int("skipped", report.SkippedRecords).
			Str("pilot_id", cfg.PilotID).
			Msg("Records without a usable date excluded from aggregation")
	}

	limits := e.limits.ForFleet(cfg.Fleet)
	if len(limits) == 0 {
		status := MissingLimits(cfg.Fleet)
		e.logger.Error().
			Str("fleet", string(cfg.Fleet)).
			Str("pilot_id", cfg.PilotID).
			Msg("No limit table entries for fleet, failing closed")

		report.Windows = []WindowResult{{Kind: "configuration", Status: status}}
		report.Totals = CumulativeTotals{Hours: map[WindowKind]float64{}, Skipped: report.SkippedRecords}
		report.NextDuty = Projection{Status: status}
		report.Turnaround = TurnaroundResult{Status: Ok()}
		report.Worst = status
		return report
	}

	aggregator := Aggregator{DutyOverhead: cfg.Overhead()}
	report.Totals = aggregator.Totals(records, opts.AsOf, limits)

	statuses := make([]Status, 0, len(limits)+2)
	for _, limit := range limits {
		used := report.Totals.Used(limit.Kind)
		status := Evaluate(used, limit)
		report.Windows = append(report.Windows, WindowResult{
			Kind:         limit.Kind,
			Measure:      limit.Measure,
			WindowDays:   limit.WindowDays,
			HoursUsed:    used,
			MaxHours:     limit.MaxHours,
			WarningRatio: limit.WarningRatio,
			Status:       status,
		})
		statuses = append(statuses, status)
	}

	recent := recentDuties(records, opts.AsOf, opts.CandidateStart)

	report.NextDuty = Projector{Fleets: e.fleets}.Project(report.Totals, limits, recent, opts.CandidateStart, cfg)
	report.Turnaround = TurnaroundValidator{Fleets: e.fleets}.Check(recent, cfg.HomeBase, cfg.Fleet, cfg.Turnaround)

	statuses = append(statuses, report.NextDuty.Status, report.Turnaround.Status)
	report.Worst = Worst(statuses...)

	e.logger.Debug().
		Str("pilot_id", cfg.PilotID).
		Str("fleet", string(cfg.Fleet)).
		Time("as_of", opts.AsOf).
		Str("worst", report.Worst.Level.String()).
		Float64("max_duty_hours", report.NextDuty.MaxDutyHours).
		Float64("min_rest_hours", report.NextDuty.MinRestHours).
		Msg("Compliance report evaluated")

	return report
}

// recentDuties returns dated records from RecentDays before asOf up to the
// day of the candidate start.
func recentDuties(records []Record, asOf, candidateStart time.Time) []Record {
	first := DayNumber(asOf) - RecentDays + 1
	last := DayNumber(asOf)
	if c := DayNumber(candidateStart); c > last {
		last = c
	}

	recent := make([]Record, 0, len(records))
	for _, r := range sortedByDate(records) {
		if !r.Dated() {
			continue
		}
		day := DayNumber(r.Date)
		if day >= first && day <= last {
			recent = append(recent, r)
		}
	}
	return recent
}

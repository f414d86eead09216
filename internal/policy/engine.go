package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/goodtune/frms/internal/frms"
	"github.com/goodtune/frms/internal/metrics"
	"github.com/goodtune/frms/internal/policy/opa"
	"github.com/rs/zerolog"
)

// Engine gates proposed duties by gathering facts from a compliance report
// and asking OPA for a decision.
type Engine struct {
	opaEngine *opa.Engine
	logger    zerolog.Logger
}

// NewEngine creates a new roster policy engine
func NewEngine(opaConfig opa.Config, logger zerolog.Logger) (*Engine, error) {
	opaEngine, err := opa.NewEngine(opaConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OPA engine: %w", err)
	}

	logger.Info().
		Str("policy_dir", opaConfig.PolicyDir).
		Strs("modules", opaEngine.Modules()).
		Msg("Roster policy engine initialized")

	return &Engine{
		opaEngine: opaEngine,
		logger:    logger.With().Str("component", "policy").Logger(),
	}, nil
}

// Reload reloads the roster policies from disk
func (e *Engine) Reload() error {
	return e.opaEngine.Reload()
}

// CheckDuty decides whether candidate may be rostered. The report should be
// evaluated with candidate.Start as its candidate start. Any evaluation
// failure blocks the duty.
func (e *Engine) CheckDuty(ctx context.Context, report *frms.Report, candidate DutyCandidate) Decision {
	decision := e.check(ctx, report, candidate)

	metrics.RosterDecisionsTotal.WithLabelValues(string(report.Fleet), string(decision.Action)).Inc()

	e.logger.Info().
		Str("pilot_id", report.PilotID).
		Time("start", candidate.Start).
		Float64("duty_hours", candidate.DutyHours).
		Str("action", string(decision.Action)).
		Str("reason", decision.Reason).
		Msg("Roster decision")

	return decision
}

func (e *Engine) check(ctx context.Context, report *frms.Report, candidate DutyCandidate) Decision {
	facts := buildRosterFacts(report, candidate)

	result, err := e.opaEngine.EvaluateRoster(ctx, facts)
	if err != nil {
		e.logger.Error().Err(err).Msg("OPA roster evaluation failed, blocking duty")
		return Decision{
			Action: ActionBlock,
			Reason: fmt.Sprintf("policy evaluation error: %v", err),
		}
	}

	action, err := ParseAction(result.Action)
	if err != nil {
		e.logger.Warn().Str("action", result.Action).Msg("Unknown roster action from OPA, blocking duty")
		return Decision{
			Action: ActionBlock,
			Reason: fmt.Sprintf("policy returned %v", err),
		}
	}

	return Decision{
		Action:     action,
		Reason:     result.Reason,
		Advisories: result.Advisories,
	}
}

// buildRosterFacts builds OPA input for a roster decision
func buildRosterFacts(report *frms.Report, candidate DutyCandidate) map[string]interface{} {
	windows := make([]interface{}, 0, len(report.Windows))
	for _, w := range report.Windows {
		windows = append(windows, map[string]interface{}{
			"kind":        string(w.Kind),
			"measure":     w.Measure.String(),
			"window_days": w.WindowDays,
			"hours_used":  w.HoursUsed,
			"max_hours":   w.MaxHours,
			"remaining":   w.Remaining(),
			"status":      w.Status.Level.String(),
		})
	}

	next := report.NextDuty
	earliest := ""
	startsBeforeRest := false
	if !next.EarliestStart.IsZero() {
		earliest = next.EarliestStart.Format(time.RFC3339)
		startsBeforeRest = candidate.Start.Before(next.EarliestStart)
	}

	return map[string]interface{}{
		"pilot_id":        report.PilotID,
		"fleet":           string(report.Fleet),
		"as_of":           report.AsOf.Format(time.RFC3339),
		"candidate_start": candidate.Start.Format(time.RFC3339),
		"duty_hours":      candidate.DutyHours,
		"worst": map[string]interface{}{
			"level":   report.Worst.Level.String(),
			"message": report.Worst.Message,
		},
		"windows": windows,
		"next_duty": map[string]interface{}{
			"max_duty_hours": next.MaxDutyHours,
			"min_rest_hours": next.MinRestHours,
			"governing":      string(next.Governing),
			"status":         next.Status.Level.String(),
			"legal":          next.Legal(),
			"earliest_start": earliest,
		},
		"starts_before_rest": startsBeforeRest,
		"turnaround": map[string]interface{}{
			"applicable":           report.Turnaround.Applicable,
			"status":               report.Turnaround.Status.Level.String(),
			"rest_hours":           report.Turnaround.RestHours,
			"required_hours":       report.Turnaround.RequiredHours,
			"insufficient_history": report.Turnaround.InsufficientHistory,
		},
		"skipped_records": report.SkippedRecords,
		"invalid_records": report.InvalidRecords,
	}
}

package compliance

import (
	"context"
	"fmt"
	"time"

	"github.com/goodtune/frms/internal/frms"
	"github.com/rs/zerolog"
)

// RolloverScheduler recomputes tracked reports when the calendar day changes.
// Rolling windows move with the date even when no record does.
type RolloverScheduler struct {
	service      *Service
	rolloverTime time.Time // only hour and minute are used
	location     *time.Location
	clock        frms.Clock
	logger       zerolog.Logger
	stopChan     chan struct{}
}

// NewRolloverScheduler creates a scheduler firing daily at rolloverTime
// (HH:MM) in loc.
func NewRolloverScheduler(service *Service, rolloverTime string, loc *time.Location, logger zerolog.Logger) (*RolloverScheduler, error) {
	parsed, err := time.Parse("15:04", rolloverTime)
	if err != nil {
		return nil, fmt.Errorf("invalid rollover time %q: %w", rolloverTime, err)
	}
	if loc == nil {
		loc = time.Local
	}

	return &RolloverScheduler{
		service:      service,
		rolloverTime: parsed,
		location:     loc,
		clock:        frms.RealClock{},
		logger:       logger.With().Str("component", "rollover-scheduler").Logger(),
		stopChan:     make(chan struct{}),
	}, nil
}

// SetClock sets the clock used to schedule rollovers (for testing)
func (rs *RolloverScheduler) SetClock(clock frms.Clock) {
	rs.clock = clock
}

// Start begins the scheduler
func (rs *RolloverScheduler) Start() {
	go rs.run()
	rs.logger.Info().
		Str("rollover_time", rs.rolloverTime.Format("15:04")).
		Str("location", rs.location.String()).
		Msg("Day rollover scheduler started")
}

// Stop stops the scheduler
func (rs *RolloverScheduler) Stop() {
	close(rs.stopChan)
	rs.logger.Info().Msg("Day rollover scheduler stopped")
}

func (rs *RolloverScheduler) run() {
	for {
		next := rs.nextRollover(rs.clock.Now())
		wait := next.Sub(rs.clock.Now())

		rs.logger.Debug().
			Time("next_rollover", next).
			Dur("wait_duration", wait).
			Msg("Scheduled next day rollover")

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
			rs.Rollover(context.Background())
		case <-rs.stopChan:
			timer.Stop()
			return
		}
	}
}

// nextRollover returns the first rollover instant strictly after now
func (rs *RolloverScheduler) nextRollover(now time.Time) time.Time {
	now = now.In(rs.location)

	today := time.Date(
		now.Year(), now.Month(), now.Day(),
		rs.rolloverTime.Hour(), rs.rolloverTime.Minute(), 0, 0,
		rs.location,
	)

	if !now.Before(today) {
		return today.AddDate(0, 0, 1)
	}
	return today
}

// Rollover drops cached reports and recomputes every tracked pilot
func (rs *RolloverScheduler) Rollover(ctx context.Context) {
	rs.logger.Info().Msg("Performing day rollover")

	rs.service.Purge()
	if err := rs.service.RefreshAll(ctx, "rollover"); err != nil {
		rs.logger.Error().Err(err).Msg("Failed to recompute reports on rollover")
		return
	}

	rs.logger.Info().
		Int("pilots", len(rs.service.Tracked())).
		Msg("Day rollover complete")
}

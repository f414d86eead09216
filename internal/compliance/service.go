package compliance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goodtune/frms/internal/frms"
	"github.com/goodtune/frms/internal/metrics"
	"github.com/goodtune/frms/internal/storage"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

// DefaultCacheSize is used when the configured cache size is zero.
const DefaultCacheSize = 256

// cacheKey identifies one evaluation. Any change to the pilot's records bumps
// the revision, so stale entries are simply never looked up again.
type cacheKey struct {
	config         configKey
	revision       int64
	asOf           int64
	candidateStart int64
}

// configKey is the comparable form of frms.Configuration.
type configKey struct {
	pilotID       string
	fleet         frms.Fleet
	homeBase      string
	overhead      float64
	minRest       float64
	hasMinRest    bool
	turnaround    frms.TurnaroundRule
	hasTurnaround bool
}

func keyOf(cfg frms.Configuration) configKey {
	k := configKey{
		pilotID:  cfg.PilotID,
		fleet:    cfg.Fleet,
		homeBase: cfg.HomeBase,
		overhead: cfg.Overhead(),
	}
	if cfg.MinRestHours != nil {
		k.minRest, k.hasMinRest = *cfg.MinRestHours, true
	}
	if cfg.Turnaround != nil {
		k.turnaround, k.hasTurnaround = *cfg.Turnaround, true
	}
	return k
}

// Service loads a pilot's records, evaluates them and caches the reports.
// It is safe for concurrent use.
type Service struct {
	store  storage.RecordStore
	engine *frms.Engine
	cache  *lru.Cache[cacheKey, *frms.Report]
	logger zerolog.Logger

	mu      sync.RWMutex
	tracked map[string]frms.Configuration // key: pilot ID
}

// NewService creates a compliance service
func NewService(store storage.RecordStore, engine *frms.Engine, cacheSize int, logger zerolog.Logger) (*Service, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	cache, err := lru.New[cacheKey, *frms.Report](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create report cache: %w", err)
	}

	return &Service{
		store:   store,
		engine:  engine,
		cache:   cache,
		logger:  logger.With().Str("component", "compliance").Logger(),
		tracked: make(map[string]frms.Configuration),
	}, nil
}

// Engine returns the underlying report engine
func (s *Service) Engine() *frms.Engine {
	return s.engine
}

// Report returns the compliance report for cfg. Reference times are resolved
// against the engine clock and truncated to the minute. The returned report
// may be shared with other callers and must not be modified.
func (s *Service) Report(ctx context.Context, cfg frms.Configuration, opts frms.Options) (*frms.Report, error) {
	if cfg.PilotID == "" {
		return nil, errors.New("pilot ID is required")
	}

	opts = s.engine.Resolve(opts)
	opts.AsOf = opts.AsOf.Truncate(time.Minute)
	opts.CandidateStart = opts.CandidateStart.Truncate(time.Minute)

	revision, err := s.store.Revision(ctx, cfg.PilotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get revision: %w", err)
	}

	key := cacheKey{
		config:         keyOf(cfg),
		revision:       revision,
		asOf:           opts.AsOf.UnixNano(),
		candidateStart: opts.CandidateStart.UnixNano(),
	}

	if report, ok := s.cache.Get(key); ok {
		metrics.ReportCacheTotal.WithLabelValues("hit").Inc()
		return report, nil
	}
	metrics.ReportCacheTotal.WithLabelValues("miss").Inc()

	start := time.Now()

	// Load the widest window, and anything up to the candidate start for rest
	lookback := s.engine.LookbackDays(cfg.Fleet)
	from := opts.AsOf.AddDate(0, 0, -(lookback - 1))
	to := opts.AsOf
	if opts.CandidateStart.After(to) {
		to = opts.CandidateStart
	}

	records, err := s.store.ListByPilot(ctx, cfg.PilotID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	report := s.engine.Evaluate(records, cfg, opts)
	metrics.ReportDuration.Observe(time.Since(start).Seconds())
	publish(report)

	s.cache.Add(key, report)

	s.logger.Debug().
		Str("pilot_id", cfg.PilotID).
		Int64("revision", revision).
		Int("records", len(records)).
		Dur("duration", time.Since(start)).
		Msg("Report computed")

	return report, nil
}

// Track registers a configuration for background recomputation
func (s *Service) Track(cfg frms.Configuration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracked[cfg.PilotID] = cfg
}

// Lookup returns the tracked configuration of a pilot
func (s *Service) Lookup(pilotID string) (frms.Configuration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.tracked[pilotID]
	return cfg, ok
}

// Tracked returns the tracked configurations
func (s *Service) Tracked() []frms.Configuration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]frms.Configuration, 0, len(s.tracked))
	for _, cfg := range s.tracked {
		out = append(out, cfg)
	}
	return out
}

// Refresh recomputes the report of a tracked pilot. Untracked pilots are
// ignored.
func (s *Service) Refresh(ctx context.Context, pilotID, trigger string) error {
	s.mu.RLock()
	cfg, ok := s.tracked[pilotID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	metrics.RecomputationsTotal.WithLabelValues(trigger).Inc()

	report, err := s.Report(ctx, cfg, frms.Options{})
	if err != nil {
		return fmt.Errorf("failed to refresh pilot %s: %w", pilotID, err)
	}

	s.logger.Info().
		Str("pilot_id", pilotID).
		Str("trigger", trigger).
		Str("worst", report.Worst.Level.String()).
		Float64("max_duty_hours", report.NextDuty.MaxDutyHours).
		Msg("Report refreshed")

	return nil
}

// RefreshAll recomputes every tracked pilot
func (s *Service) RefreshAll(ctx context.Context, trigger string) error {
	var errs []error
	for _, cfg := range s.Tracked() {
		if err := s.Refresh(ctx, cfg.PilotID, trigger); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Purge empties the report cache
func (s *Service) Purge() {
	s.cache.Purge()
}

// publish exports a freshly computed report
func publish(report *frms.Report) {
	pilot, fleet := report.PilotID, string(report.Fleet)

	for _, w := range report.Windows {
		window := string(w.Kind)
		metrics.WindowHoursUsed.WithLabelValues(pilot, fleet, window).Set(w.HoursUsed)
		metrics.WindowLimitHours.WithLabelValues(pilot, fleet, window).Set(w.MaxHours)
		metrics.WindowStatus.WithLabelValues(pilot, fleet, window).Set(float64(w.Status.Level))
	}

	metrics.WorstStatus.WithLabelValues(pilot, fleet).Set(float64(report.Worst.Level))
	metrics.NextDutyMaxHours.WithLabelValues(pilot, fleet).Set(report.NextDuty.MaxDutyHours)
	metrics.ReportsTotal.WithLabelValues(fleet, report.Worst.Level.String()).Inc()

	if report.SkippedRecords > 0 {
		metrics.SkippedRecordsTotal.WithLabelValues(fleet).Add(float64(report.SkippedRecords))
	}
}

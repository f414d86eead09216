package metrics

import (
	"errors"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Window metrics
	WindowHoursUsed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "frms_window_hours_used",
			Help: "Hours used in each rolling window at the last evaluation",
		},
		[]string{"pilot", "fleet", "window"},
	)

	WindowLimitHours = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "frms_window_limit_hours",
			Help: "Configured ceiling of each rolling window",
		},
		[]string{"pilot", "fleet", "window"},
	)

	WindowStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "frms_window_status",
			Help: "Window compliance level (0 compliant, 1 warning, 2 violation)",
		},
		[]string{"pilot", "fleet", "window"},
	)

	// Report metrics
	WorstStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "frms_worst_status",
			Help: "Worst compliance level across the report (0 compliant, 1 warning, 2 violation)",
		},
		[]string{"pilot", "fleet"},
	)

	NextDutyMaxHours = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "frms_next_duty_max_hours",
			Help: "Maximum length of the next duty",
		},
		[]string{"pilot", "fleet"},
	)

	ReportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frms_reports_total",
			Help: "Total compliance reports computed",
		},
		[]string{"fleet", "worst"},
	)

	ReportDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "frms_report_duration_seconds",
			Help:    "Time to load records and evaluate a report",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	ReportCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frms_report_cache_total",
			Help: "Report cache lookups",
		},
		[]string{"result"},
	)

	SkippedRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frms_skipped_records_total",
			Help: "Records excluded from aggregation for lack of a usable date",
		},
		[]string{"fleet"},
	)

	RecomputationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frms_recomputations_total",
			Help: "Background report recomputations",
		},
		[]string{"trigger"},
	)

	// Roster gate metrics
	RosterDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frms_roster_decisions_total",
			Help: "Roster gate decisions",
		},
		[]string{"fleet", "action"},
	)
)

func init() {
	prometheus.MustRegister(
		WindowHoursUsed,
		WindowLimitHours,
		WindowStatus,
		WorstStatus,
		NextDutyMaxHours,
		ReportsTotal,
		ReportDuration,
		ReportCacheTotal,
		SkippedRecordsTotal,
		RecomputationsTotal,
		RosterDecisionsTotal,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Handler returns the server's HTTP handler
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated metrics listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}

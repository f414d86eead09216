package api

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goodtune/frms/internal/compliance"
	"github.com/goodtune/frms/internal/frms"
	"github.com/goodtune/frms/internal/storage"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// reportHandler serves compliance reports.
type reportHandler struct {
	service *compliance.Service
	logger  zerolog.Logger
}

func newReportHandler(service *compliance.Service, logger zerolog.Logger) *reportHandler {
	return &reportHandler{
		service: service,
		logger:  logger.With().Str("handler", "report").Logger(),
	}
}

// pilotSummary is one tracked pilot.
type pilotSummary struct {
	PilotID  string     `json:"pilot_id"`
	Fleet    frms.Fleet `json:"fleet"`
	HomeBase string     `json:"home_base,omitempty"`
}

// ListTracked handles GET /api/pilots
func (h *reportHandler) ListTracked(w http.ResponseWriter, r *http.Request) {
	tracked := h.service.Tracked()
	sort.Slice(tracked, func(i, j int) bool { return tracked[i].PilotID < tracked[j].PilotID })

	out := make([]pilotSummary, 0, len(tracked))
	for _, cfg := range tracked {
		out = append(out, pilotSummary{PilotID: cfg.PilotID, Fleet: cfg.Fleet, HomeBase: cfg.HomeBase})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"pilots": out,
		"count":  len(out),
	})
}

// Get handles GET /api/pilots/{pilot}/report
func (h *reportHandler) Get(w http.ResponseWriter, r *http.Request) {
	pilotID := mux.Vars(r)["pilot"]
	q := r.URL.Query()

	cfg, err := pilotConfiguration(h.service, pilotID, q.Get("fleet"), q.Get("home_base"), q.Get("min_rest"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_pilot", err.Error())
		return
	}

	asOf, err := queryTime(q.Get("as_of"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_as_of", err.Error())
		return
	}
	candidate, err := queryTime(q.Get("candidate"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_candidate", err.Error())
		return
	}

	report, err := h.service.Report(r.Context(), cfg, frms.Options{AsOf: asOf, CandidateStart: candidate})
	if err != nil {
		h.logger.Error().Err(err).Str("pilot_id", pilotID).Msg("Failed to compute report")
		writeError(w, http.StatusInternalServerError, "report_failed", "Failed to compute report")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// pilotConfiguration starts from the tracked configuration of pilotID, when
// there is one, and applies the request's overrides. A fleet is required for
// untracked pilots.
func pilotConfiguration(service *compliance.Service, pilotID, fleet, homeBase, minRest string) (frms.Configuration, error) {
	pilotID = strings.TrimSpace(pilotID)
	if pilotID == "" {
		return frms.Configuration{}, fmt.Errorf("pilot ID is required")
	}

	cfg, ok := service.Lookup(pilotID)
	if !ok {
		cfg = frms.Configuration{PilotID: pilotID}
	}

	if fleet = strings.TrimSpace(fleet); fleet != "" {
		cfg.Fleet = frms.Fleet(fleet)
	}
	if homeBase = strings.TrimSpace(homeBase); homeBase != "" {
		cfg.HomeBase = homeBase
	}
	if minRest != "" {
		rest, err := strconv.ParseFloat(minRest, 64)
		if err != nil || rest <= 0 {
			return cfg, fmt.Errorf("invalid min_rest: %s", minRest)
		}
		cfg.MinRestHours = &rest
	}

	if cfg.Fleet == "" {
		return cfg, fmt.Errorf("fleet is required for untracked pilot %s", pilotID)
	}
	return cfg, nil
}

// queryTime parses an optional date or timestamp parameter.
func queryTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, ok := storage.ParseTime(v)
	if !ok {
		return time.Time{}, fmt.Errorf("unrecognized time: %s", v)
	}
	return t, nil
}

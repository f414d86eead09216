package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/goodtune/frms/internal/compliance"
	"github.com/goodtune/frms/internal/frms"
	"github.com/goodtune/frms/internal/policy"
	"github.com/rs/zerolog"
)

// rosterHandler asks the roster gate about proposed duties.
type rosterHandler struct {
	service *compliance.Service
	gate    *policy.Engine
	logger  zerolog.Logger
}

func newRosterHandler(service *compliance.Service, gate *policy.Engine, logger zerolog.Logger) *rosterHandler {
	return &rosterHandler{
		service: service,
		gate:    gate,
		logger:  logger.With().Str("handler", "roster").Logger(),
	}
}

// CheckRequest proposes one duty for a pilot.
type CheckRequest struct {
	PilotID      string   `json:"pilot_id"`
	Fleet        string   `json:"fleet"`
	HomeBase     string   `json:"home_base"`
	MinRestHours *float64 `json:"min_rest_hours"`
	Start        string   `json:"start"`
	DutyHours    float64  `json:"duty_hours"`
	AsOf         string   `json:"as_of"` // defaults to Start
}

// CheckResponse carries the decision and the report it was based on.
type CheckResponse struct {
	Decision policy.Decision `json:"decision"`
	Report   *frms.Report    `json:"report"`
}

// Check handles POST /api/roster/check
func (h *rosterHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h.gate == nil {
		writeError(w, http.StatusServiceUnavailable, "gate_disabled", "Roster gate is not enabled")
		return
	}

	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	var minRest string
	if req.MinRestHours != nil {
		minRest = strconv.FormatFloat(*req.MinRestHours, 'f', -1, 64)
	}
	cfg, err := pilotConfiguration(h.service, req.PilotID, req.Fleet, req.HomeBase, minRest)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_pilot", err.Error())
		return
	}

	start, err := queryTime(req.Start)
	if err != nil || start.IsZero() {
		writeError(w, http.StatusBadRequest, "invalid_start", "start is required")
		return
	}
	asOf, err := queryTime(req.AsOf)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_as_of", err.Error())
		return
	}
	if asOf.IsZero() {
		asOf = start
	}

	report, err := h.service.Report(r.Context(), cfg, frms.Options{AsOf: asOf, CandidateStart: start})
	if err != nil {
		h.logger.Error().Err(err).Str("pilot_id", cfg.PilotID).Msg("Failed to compute report")
		writeError(w, http.StatusInternalServerError, "report_failed", "Failed to compute report")
		return
	}

	decision := h.gate.CheckDuty(r.Context(), report, policy.DutyCandidate{Start: start, DutyHours: req.DutyHours})

	writeJSON(w, http.StatusOK, CheckResponse{Decision: decision, Report: report})
}

package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goodtune/frms/internal/frms"
	"github.com/goodtune/frms/internal/storage"
	"github.com/goodtune/frms/internal/storage/recordfile"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const (
	maxBodyBytes    = 1 << 20
	defaultListDays = 28
)

// recordHandler handles record CRUD operations.
type recordHandler struct {
	store  storage.RecordStore
	logger zerolog.Logger
}

func newRecordHandler(store storage.RecordStore, logger zerolog.Logger) *recordHandler {
	return &recordHandler{
		store:  store,
		logger: logger.With().Str("handler", "record").Logger(),
	}
}

// List handles GET /api/pilots/{pilot}/records
func (h *recordHandler) List(w http.ResponseWriter, r *http.Request) {
	pilotID := mux.Vars(r)["pilot"]
	q := r.URL.Query()

	to, err := queryTime(q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_to", err.Error())
		return
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}

	from, err := queryTime(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_from", err.Error())
		return
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -(defaultListDays - 1))
	}
	if from.After(to) {
		writeError(w, http.StatusBadRequest, "invalid_range", "from is after to")
		return
	}

	records, err := h.store.ListByPilot(r.Context(), pilotID, from, to)
	if err != nil {
		h.logger.Error().Err(err).Str("pilot_id", pilotID).Msg("Failed to list records")
		writeError(w, http.StatusInternalServerError, "list_failed", "Failed to list records")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"count":   len(records),
	})
}

// Create handles POST /api/pilots/{pilot}/records. The body is a JSON or
// YAML sequence in the records file format.
func (h *recordHandler) Create(w http.ResponseWriter, r *http.Request) {
	pilotID := mux.Vars(r)["pilot"]

	body, ok := readBody(w, r)
	if !ok {
		return
	}

	records, err := recordfile.Parse(body, pilotID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Body must be a sequence of records")
		return
	}

	for i, rec := range records {
		if rec.PilotID != pilotID {
			writeError(w, http.StatusBadRequest, "pilot_mismatch",
				"record "+strconv.Itoa(i)+" belongs to pilot "+rec.PilotID)
			return
		}
		if err := rec.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_record", err.Error())
			return
		}
	}

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		if err := h.store.Upsert(r.Context(), rec); err != nil {
			h.writeStoreError(w, err, "Failed to save record")
			return
		}
		ids = append(ids, rec.ID)
	}

	h.logger.Info().Str("pilot_id", pilotID).Int("count", len(ids)).Msg("Records created")

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"ids":   ids,
		"count": len(ids),
	})
}

// Get handles GET /api/records/{id}
func (h *recordHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "Failed to get record")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// Update handles PUT /api/records/{id}. A body without a pilot keeps the
// stored record's pilot.
func (h *recordHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	body, ok := readBody(w, r)
	if !ok {
		return
	}

	rec, err := recordfile.ParseRecord(body, "")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Body must be a single record")
		return
	}
	rec.ID = id

	if rec.PilotID == "" {
		existing, err := h.store.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusBadRequest, "missing_pilot", "pilot_id is required for a new record")
				return
			}
			h.writeStoreError(w, err, "Failed to get record")
			return
		}
		rec.PilotID = existing.PilotID
	}

	if err := rec.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_record", err.Error())
		return
	}

	if err := h.store.Upsert(r.Context(), rec); err != nil {
		h.writeStoreError(w, err, "Failed to save record")
		return
	}

	h.logger.Info().Str("record_id", id).Str("pilot_id", rec.PilotID).Msg("Record updated")

	writeJSON(w, http.StatusOK, rec)
}

// Delete handles DELETE /api/records/{id}
func (h *recordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.store.Delete(r.Context(), id); err != nil {
		h.writeStoreError(w, err, "Failed to delete record")
		return
	}

	h.logger.Info().Str("record_id", id).Msg("Record deleted")

	w.WriteHeader(http.StatusNoContent)
}

// writeStoreError maps storage errors onto HTTP statuses.
func (h *recordHandler) writeStoreError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Record not found")
	case errors.Is(err, storage.ErrReadOnly):
		writeError(w, http.StatusConflict, "read_only", "Record storage is read-only")
	case errors.Is(err, frms.ErrInvalidRecord):
		writeError(w, http.StatusBadRequest, "invalid_record", err.Error())
	default:
		h.logger.Error().Err(err).Msg(message)
		writeError(w, http.StatusInternalServerError, "storage_error", message)
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "Request body too large")
		return nil, false
	}
	return body, true
}

package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"attendance.service/internal/core"
	"attendance.service/internal/core/liveness"
	"attendance.service/internal/ports/repository"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// PushHandler serves the device-facing endpoints. Terminals speak a
// plain-text protocol and cannot interpret error bodies, so responses stay
// minimal and the heartbeat endpoint always reports success.
type PushHandler struct {
	Ingest  *core.IngestService
	Tracker *liveness.Tracker
}

// CData receives a pushed data batch: POST /iclock/cdata?SN=...&table=...
func (h *PushHandler) CData(w http.ResponseWriter, r *http.Request) {
	serial := r.URL.Query().Get("SN")
	table := r.URL.Query().Get("table")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "ERROR", http.StatusBadRequest)
		return
	}

	result, err := h.Ingest.Ingest(r.Context(), table, string(body))
	if errors.Is(err, core.ErrEmptyPayload) {
		// A rejected request mutates no state, not even liveness.
		http.Error(w, "ERROR: empty payload", http.StatusBadRequest)
		return
	}

	// A device that delivers data is evidently alive, whether or not its
	// batch persisted cleanly.
	if serial != "" {
		h.Tracker.OnHeartbeat(r.Context(), serial, time.Now().UTC())
	}
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("serial", serial).Str("table", table).Msg("Ingestion failed")
		http.Error(w, "ERROR", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK: " + strconv.Itoa(result.Inserted) + "\n"))
}

// GetRequest is the terminals' heartbeat poll: GET /iclock/getrequest?SN=...
// It always answers OK; the device cannot act on anything else.
func (h *PushHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	serial := r.URL.Query().Get("SN")
	if serial != "" {
		h.Tracker.OnHeartbeat(r.Context(), serial, time.Now().UTC())
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK\n"))
}

// AdminHandler serves the JSON admin API.
type AdminHandler struct {
	Attendance *core.AttendanceService
	Records    repository.AttendanceRepository
	Punches    repository.PunchRepository
	Tracker    *liveness.Tracker
}

// GetAttendance lists a day's aggregates: GET /api/v1/attendance/{day}
func (h *AdminHandler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	day, err := parseDay(mux.Vars(r)["day"])
	if err != nil {
		http.Error(w, "Invalid day, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	records, err := h.Records.ListByDay(r.Context(), day)
	if err != nil {
		http.Error(w, "Service error listing attendance", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// RecomputeAttendance forces re-aggregation: POST /api/v1/attendance/{day}/recompute
func (h *AdminHandler) RecomputeAttendance(w http.ResponseWriter, r *http.Request) {
	day, err := parseDay(mux.Vars(r)["day"])
	if err != nil {
		http.Error(w, "Invalid day, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	records, err := h.Attendance.ComputeAttendanceForDay(r.Context(), day)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Recompute failed")
		http.Error(w, "Service error recomputing attendance", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// GetDevices returns the live cache snapshot: GET /api/v1/devices
func (h *AdminHandler) GetDevices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Tracker.Snapshot())
}

// GetRecentPunches returns the newest punches: GET /api/v1/punches/recent?limit=N
func (h *AdminHandler) GetRecentPunches(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	records, err := h.Punches.ListRecent(r.Context(), limit)
	if err != nil {
		http.Error(w, "Service error listing punches", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

func parseDay(raw string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", raw, time.UTC)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

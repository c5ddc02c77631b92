package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"attendance.service/internal/api/handler"
	"attendance.service/internal/core"
	"attendance.service/internal/core/liveness"
	"attendance.service/internal/ports/repository"
)

// NewRouter sets up the gorilla/mux router and defines all API routes.
func NewRouter(
	ingest *core.IngestService,
	attendance *core.AttendanceService,
	records repository.AttendanceRepository,
	punches repository.PunchRepository,
	tracker *liveness.Tracker,
) *mux.Router {

	pushHandler := handler.PushHandler{
		Ingest:  ingest,
		Tracker: tracker,
	}
	adminHandler := handler.AdminHandler{
		Attendance: attendance,
		Records:    records,
		Punches:    punches,
		Tracker:    tracker,
	}

	r := mux.NewRouter()

	// Device push protocol
	r.HandleFunc("/iclock/cdata", pushHandler.CData).Methods(http.MethodPost)
	r.HandleFunc("/iclock/getrequest", pushHandler.GetRequest).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/attendance/{day}", adminHandler.GetAttendance).Methods(http.MethodGet)
	api.HandleFunc("/attendance/{day}/recompute", adminHandler.RecomputeAttendance).Methods(http.MethodPost)
	api.HandleFunc("/devices", adminHandler.GetDevices).Methods(http.MethodGet)
	api.HandleFunc("/punches/recent", adminHandler.GetRecentPunches).Methods(http.MethodGet)
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Service is operational."))
	}).Methods(http.MethodGet)

	return r
}

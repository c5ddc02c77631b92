package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"attendance.service/internal/core"
	"attendance.service/internal/core/liveness"
	"attendance.service/internal/core/model"
	"github.com/gorilla/mux"
)

// failingDeviceRepo errors on every call; the heartbeat contract says the
// device must never see that.
type failingDeviceRepo struct{}

func (failingDeviceRepo) FindBySerial(ctx context.Context, serial string) (*model.DeviceRecord, error) {
	return nil, errors.New("db down")
}

func (failingDeviceRepo) Insert(ctx context.Context, rec model.DeviceRecord) error {
	return errors.New("db down")
}

func (failingDeviceRepo) UpdateStatusAndLastSeen(ctx context.Context, serial string, status model.DeviceStatus, lastSeen time.Time) error {
	return errors.New("db down")
}

func (failingDeviceRepo) UpdateLastSeen(ctx context.Context, serial string, lastSeen time.Time) error {
	return errors.New("db down")
}

func (failingDeviceRepo) ListAll(ctx context.Context) ([]model.DeviceRecord, error) {
	return nil, errors.New("db down")
}

func TestCDataRejectsEmptyPayload(t *testing.T) {
	h := PushHandler{
		Ingest:  core.NewIngestService(nil, nil),
		Tracker: liveness.NewTracker(nil, 0, 0, 0),
	}

	req := httptest.NewRequest(http.MethodPost, "/iclock/cdata?SN=DEV001&table=ATTLOG", strings.NewReader("   \n"))
	w := httptest.NewRecorder()
	h.CData(w, req)
	h.Tracker.Flush()

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}

	// A rejected push must not touch device state either.
	if n := len(h.Tracker.Snapshot()); n != 0 {
		t.Errorf("liveness cache has %d entries after a rejected push, want 0", n)
	}
}

func TestGetRequestAlwaysAnswersOK(t *testing.T) {
	h := PushHandler{Tracker: liveness.NewTracker(failingDeviceRepo{}, 0, 0, 0)}

	// The device repo fails, but the heartbeat endpoint must still report success.
	req := httptest.NewRequest(http.MethodGet, "/iclock/getrequest?SN=DEV001", nil)
	w := httptest.NewRecorder()
	h.GetRequest(w, req)
	h.Tracker.Flush()

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if !strings.HasPrefix(w.Body.String(), "OK") {
		t.Errorf("body = %q, want OK", w.Body.String())
	}
}

func TestGetAttendanceRejectsMalformedDay(t *testing.T) {
	h := AdminHandler{}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance/03-05-2024", nil)
	req = mux.SetURLVars(req, map[string]string{"day": "03-05-2024"})
	w := httptest.NewRecorder()
	h.GetAttendance(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

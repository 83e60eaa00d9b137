package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hostel-allotment-backend/config"
	"hostel-allotment-backend/internal/allocation"
	"hostel-allotment-backend/internal/allotment"
	"hostel-allotment-backend/internal/db"
	"hostel-allotment-backend/internal/inventory"
	"hostel-allotment-backend/internal/model"
	"hostel-allotment-backend/internal/store"
)

type fakeService struct {
	mu sync.Mutex

	runErr      error
	withdrawErr error
	last        *allotment.RunResult
	students    []allotment.AllottedStudent

	availabilityCalls int
}

func (f *fakeService) Run(context.Context) (*allotment.RunResult, error) {
	if f.runErr != nil {
		return nil, f.runErr
	}
	return &allotment.RunResult{
		RunID:    "run-1",
		Assigned: []allotment.AssignedBed{{StudentID: "b1", BedID: "BH1-101-1"}},
		Unallotted: []allocation.Unallotted{
			{StudentID: "b2", Reason: allocation.ReasonNoCapacity},
		},
	}, nil
}

func (f *fakeService) LastRun() (*allotment.RunResult, bool) {
	return f.last, f.last != nil
}

func (f *fakeService) Availability(context.Context) (*allotment.Availability, error) {
	f.mu.Lock()
	f.availabilityCalls++
	f.mu.Unlock()

	var av allotment.Availability
	av.Boys.Add(model.RoomTypeSingle, 3, 1)
	return &av, nil
}

func (f *fakeService) HostelAvailability() ([]allotment.HostelAvailability, error) {
	return []allotment.HostelAvailability{{HostelID: 1, Code: "BH1", Gender: "boys", Counts: inventory.Counts{SingleTotalBeds: 3}}}, nil
}

func (f *fakeService) AllottedStudents(context.Context) ([]allotment.AllottedStudent, error) {
	return f.students, nil
}

func (f *fakeService) Withdraw(_ context.Context, studentID string) (*model.AllotmentRecord, error) {
	if f.withdrawErr != nil {
		return nil, f.withdrawErr
	}
	return &model.AllotmentRecord{StudentID: studentID, BedID: "BH1-101-1", RoomNumber: "101"}, nil
}

func (f *fakeService) Reconcile(context.Context) (*allotment.ReconcileReport, error) {
	return &allotment.ReconcileReport{BedsRepaired: 2}, nil
}

func (f *fakeService) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.availabilityCalls
}

func newTestStore(t *testing.T) store.Store {
	gormDB, err := db.Init(&config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		LogLevel: "silent",
	}, zap.NewNop())
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return store.NewGormStore(gormDB)
}

func newTestRouter(t *testing.T, svc AllotmentService, st store.Store, opts *webpush.Options) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(svc, st, opts, zap.NewNop())
	return NewRouter(&config.ServerConfig{
		RateLimitPerSec: 1000,
		RateLimitBurst:  1000,
		CacheTTLSeconds: 60,
	}, h, zap.NewNop())
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestAllotRooms(t *testing.T) {
	r := newTestRouter(t, &fakeService{}, nil, nil)

	w := do(r, http.MethodPost, "/allotment/allot-rooms", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Allotment completed: 1 students allotted, 1 unallotted", body["message"])
	assert.EqualValues(t, 1, body["assignedCount"])
	assert.EqualValues(t, 1, body["unallottedCount"])
	assert.EqualValues(t, 0, body["errorCount"])
	assert.Equal(t, "run-1", body["runId"])
}

func TestAllotRooms_Conflict(t *testing.T) {
	r := newTestRouter(t, &fakeService{runErr: allotment.ErrRunInProgress}, nil, nil)

	w := do(r, http.MethodPost, "/allotment/allot-rooms", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "allotment already in progress", body["message"])
}

func TestAllotRooms_InternalErrorHidesDetail(t *testing.T) {
	r := newTestRouter(t, &fakeService{runErr: errors.New("connection refused")}, nil, nil)

	w := do(r, http.MethodPost, "/allotment/allot-rooms", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestGetAvailability(t *testing.T) {
	r := newTestRouter(t, &fakeService{}, nil, nil)

	w := do(r, http.MethodGet, "/allotment/availability", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	av := body["availability"].(map[string]any)
	boys := av["boys"].(map[string]any)
	for _, key := range []string{
		"singleTotalBeds", "singleOccupiedBeds", "singleAvailableBeds",
		"tripleTotalBeds", "tripleOccupiedBeds", "tripleAvailableBeds",
	} {
		assert.Contains(t, boys, key)
	}
	assert.EqualValues(t, 3, boys["singleTotalBeds"])
	assert.EqualValues(t, 2, boys["singleAvailableBeds"])
}

func TestAvailabilityCacheFlushedByRun(t *testing.T) {
	svc := &fakeService{}
	r := newTestRouter(t, svc, nil, nil)

	do(r, http.MethodGet, "/allotment/availability", "")
	w := do(r, http.MethodGet, "/allotment/availability", "")
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Equal(t, 1, svc.calls())

	do(r, http.MethodPost, "/allotment/allot-rooms", "")

	w = do(r, http.MethodGet, "/allotment/availability", "")
	assert.Empty(t, w.Header().Get("X-Cache"))
	assert.Equal(t, 2, svc.calls())
}

func TestGetAllottedStudents(t *testing.T) {
	svc := &fakeService{students: []allotment.AllottedStudent{{
		Name:               "Boy 1",
		RollNumber:         "R1",
		StudentProfileID:   allotment.StudentProfile{ID: "b1"},
		RoomPreference:     model.PreferenceSingle,
		AllottedHostelType: "boys",
		AllottedRoomNumber: "101",
		AllottedBedID:      "BH1-101-1",
		Floor:              1,
	}}}
	r := newTestRouter(t, svc, nil, nil)

	w := do(r, http.MethodGet, "/allotment/allotted-students", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	data := body["data"].([]any)
	require.Len(t, data, 1)
	row := data[0].(map[string]any)
	assert.Equal(t, "BH1-101-1", row["allottedBedId"])
	assert.Equal(t, "b1", row["studentProfileId"].(map[string]any)["_id"])
}

func TestExportAllottedStudents(t *testing.T) {
	r := newTestRouter(t, &fakeService{}, nil, nil)

	w := do(r, http.MethodGet, "/allotment/allotted-students/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "allotted-students.xlsx")
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestGetHostels(t *testing.T) {
	r := newTestRouter(t, &fakeService{}, nil, nil)

	w := do(r, http.MethodGet, "/allotment/hostels", "")
	require.Equal(t, http.StatusOK, w.Code)
	hostels := decode(t, w)["hostels"].([]any)
	require.Len(t, hostels, 1)
	assert.Equal(t, "BH1", hostels[0].(map[string]any)["code"])
}

func TestGetLastRun(t *testing.T) {
	svc := &fakeService{}
	r := newTestRouter(t, svc, nil, nil)

	w := do(r, http.MethodGet, "/allotment/runs/last", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	svc.last = &allotment.RunResult{RunID: "run-9"}
	w = do(r, http.MethodGet, "/allotment/runs/last", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "run-9", decode(t, w)["run"].(map[string]any)["runId"])
}

func TestWithdraw(t *testing.T) {
	r := newTestRouter(t, &fakeService{}, nil, nil)

	w := do(r, http.MethodPost, "/allotment/withdraw/b1", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "b1", data["studentId"])
	assert.Equal(t, "BH1-101-1", data["bedId"])
}

func TestWithdraw_NotAllotted(t *testing.T) {
	r := newTestRouter(t, &fakeService{withdrawErr: allotment.ErrNotAllotted}, nil, nil)

	w := do(r, http.MethodPost, "/allotment/withdraw/b1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReconcile(t *testing.T) {
	r := newTestRouter(t, &fakeService{}, nil, nil)

	w := do(r, http.MethodPost, "/allotment/reconcile", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["report"].(map[string]any)["bedsRepaired"])
}

func TestSubscriptions(t *testing.T) {
	st := newTestStore(t)
	r := newTestRouter(t, &fakeService{}, st, nil)

	t.Run("bad request", func(t *testing.T) {
		w := do(r, http.MethodPut, "/allotment/subscriptions", "{}")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("put and delete", func(t *testing.T) {
		w := do(r, http.MethodPut, "/allotment/subscriptions",
			`{"endpoint":"https://push.example/1","p256dh":"key","auth":"secret","studentId":"b1"}`)
		require.Equal(t, http.StatusCreated, w.Code)

		subs, err := st.SubscriptionsForStudent(context.Background(), "b1")
		require.NoError(t, err)
		require.Len(t, subs, 1)

		w = do(r, http.MethodDelete, "/allotment/subscriptions", `{"endpoint":"https://push.example/1"}`)
		require.Equal(t, http.StatusNoContent, w.Code)

		subs, err = st.SubscriptionsForStudent(context.Background(), "b1")
		require.NoError(t, err)
		assert.Empty(t, subs)
	})
}

func TestGetVAPIDPublicKey(t *testing.T) {
	r := newTestRouter(t, &fakeService{}, nil, nil)
	w := do(r, http.MethodGet, "/allotment/vapid_public_key", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	r = newTestRouter(t, &fakeService{}, nil, &webpush.Options{VAPIDPublicKey: "pub"})
	w = do(r, http.MethodGet, "/allotment/vapid_public_key", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pub", decode(t, w)["publicKey"])
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t, &fakeService{}, nil, nil)
	w := do(r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

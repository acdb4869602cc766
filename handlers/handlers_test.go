package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	"attendance-backend/attendance"
	"attendance-backend/geo"
	"attendance-backend/identity"
	"attendance-backend/models"
	"attendance-backend/store"
)

const testPassword = "Valid#Pass1"

var site = geo.Fence{Center: geo.Position{Latitude: 40.0, Longitude: -74.0}, RadiusMeters: 100}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	store  *store.Memory
}

func newTestServer(t *testing.T, configured bool, users UserStore) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.NewMemory()
	if configured {
		if err := st.SaveGeofence(context.Background(), site); err != nil {
			t.Fatalf("save geofence: %v", err)
		}
	}
	if users == nil {
		users = st
	}

	idp, err := identity.NewService(st, identity.Options{
		Secret:     []byte("test-secret"),
		SessionTTL: time.Hour,
		BcryptCost: bcrypt.MinCost,
	})
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	trackers := attendance.NewRegistry(attendance.Config{Store: st, Settings: st, Location: time.UTC})
	idp.OnAuthChange(trackers.HandleAuthEvent)

	router, err := NewRouter(Deps{
		Identity:    idp,
		Users:       users,
		Settings:    st,
		Trackers:    trackers,
		Health:      st,
		Location:    time.UTC,
		AdminEmails: []string{"boss@example.com"},
	})
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	return &testServer{t: t, router: router, store: st}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) signUpAndIn(email string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/v1/auth/signup", "", gin.H{"email": email, "password": testPassword})
	if w.Code != http.StatusCreated {
		s.t.Fatalf("sign up: %d %s", w.Code, w.Body.String())
	}
	w = s.do(http.MethodPost, "/api/v1/auth/signin", "", gin.H{"email": email, "password": testPassword})
	if w.Code != http.StatusOK {
		s.t.Fatalf("sign in: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	decode(s.t, w, &resp)
	if resp.AccessToken == "" {
		s.t.Fatalf("sign in returned no token")
	}
	return resp.AccessToken
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Partial bool            `json:"partial"`
	Message string          `json:"message"`
	Status  string          `json:"status"`
	Count   int             `json:"count"`
	Data    json.RawMessage `json:"data"`
}

func expect(t *testing.T, w *httptest.ResponseRecorder, code int) envelope {
	t.Helper()
	if w.Code != code {
		t.Fatalf("status = %d, want %d: %s", w.Code, code, w.Body.String())
	}
	var env envelope
	decode(t, w, &env)
	return env
}

func position(lat, lon float64) gin.H {
	return gin.H{"latitude": lat, "longitude": lon}
}

func TestAttendanceFlow(t *testing.T) {
	s := newTestServer(t, true, nil)
	token := s.signUpAndIn("worker@example.com")

	env := expect(t, s.do(http.MethodGet, "/api/v1/attendance/status", token, nil), http.StatusOK)
	var status models.AttendanceStatusResponse
	if err := json.Unmarshal(env.Data, &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Status != string(attendance.StatusNoOpenRecord) {
		t.Fatalf("initial status = %s", status.Status)
	}

	env = expect(t, s.do(http.MethodPost, "/api/v1/attendance/checkin", token, position(40.01, -74.0)), http.StatusForbidden)
	if !strings.Contains(env.Message, "not within the authorized location") {
		t.Fatalf("unexpected message %q", env.Message)
	}

	env = expect(t, s.do(http.MethodPost, "/api/v1/attendance/checkin", token, position(40.0, -74.0)), http.StatusCreated)
	if env.Status != string(attendance.StatusCheckedIn) {
		t.Fatalf("status after check-in = %s", env.Status)
	}

	env = expect(t, s.do(http.MethodPost, "/api/v1/attendance/checkin", token, position(40.0, -74.0)), http.StatusConflict)
	if env.Message != "You are already checked in." {
		t.Fatalf("unexpected message %q", env.Message)
	}

	env = expect(t, s.do(http.MethodPost, "/api/v1/attendance/checkout", token, position(41.0, -74.0)), http.StatusOK)
	if env.Status != string(attendance.StatusCheckedOut) {
		t.Fatalf("status after check-out = %s", env.Status)
	}

	env = expect(t, s.do(http.MethodPost, "/api/v1/attendance/checkin", token, position(40.0, -74.0)), http.StatusConflict)
	if env.Message != "You have already checked out for today." {
		t.Fatalf("unexpected message %q", env.Message)
	}

	env = expect(t, s.do(http.MethodGet, "/api/v1/attendance/today", token, nil), http.StatusOK)
	var recs []models.AttendanceRecord
	if err := json.Unmarshal(env.Data, &recs); err != nil {
		t.Fatalf("decode records: %v", err)
	}
	if env.Count != 1 || len(recs) != 1 {
		t.Fatalf("expected 1 record today, got %d", len(recs))
	}
	if recs[0].CheckOutTime == nil || recs[0].CheckOutTime.Before(recs[0].CheckInTime) {
		t.Fatalf("bad check-out on record %+v", recs[0])
	}
}

func TestCheckOutWithoutCheckIn(t *testing.T) {
	s := newTestServer(t, true, nil)
	token := s.signUpAndIn("worker@example.com")

	env := expect(t, s.do(http.MethodPost, "/api/v1/attendance/checkout", token, position(40.0, -74.0)), http.StatusNotFound)
	if env.Message != "No active check-in found." {
		t.Fatalf("unexpected message %q", env.Message)
	}
}

func TestCheckInLocationErrors(t *testing.T) {
	s := newTestServer(t, true, nil)
	token := s.signUpAndIn("worker@example.com")

	env := expect(t, s.do(http.MethodPost, "/api/v1/attendance/checkin", token, gin.H{"location_error": "User denied Geolocation"}), http.StatusUnprocessableEntity)
	if env.Message != "Error getting location: User denied Geolocation" {
		t.Fatalf("unexpected message %q", env.Message)
	}

	expect(t, s.do(http.MethodPost, "/api/v1/attendance/checkin", token, nil), http.StatusUnprocessableEntity)
	expect(t, s.do(http.MethodPost, "/api/v1/attendance/checkin", token, position(123, 0)), http.StatusBadRequest)

	env = expect(t, s.do(http.MethodGet, "/api/v1/attendance/today", token, nil), http.StatusOK)
	if env.Count != 0 {
		t.Fatalf("expected no records, got %d", env.Count)
	}
}

func TestCheckInWithoutGeofence(t *testing.T) {
	s := newTestServer(t, false, nil)
	token := s.signUpAndIn("worker@example.com")

	env := expect(t, s.do(http.MethodPost, "/api/v1/attendance/checkin", token, position(40.0, -74.0)), http.StatusServiceUnavailable)
	if env.Message != "Application settings not loaded. Please try again later." {
		t.Fatalf("unexpected message %q", env.Message)
	}
	expect(t, s.do(http.MethodGet, "/api/v1/settings/geofence", token, nil), http.StatusNotFound)
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, true, nil)

	expect(t, s.do(http.MethodGet, "/api/v1/attendance/status", "", nil), http.StatusUnauthorized)
	expect(t, s.do(http.MethodGet, "/api/v1/attendance/status", "garbage", nil), http.StatusUnauthorized)

	token := s.signUpAndIn("worker@example.com")
	env := expect(t, s.do(http.MethodGet, "/api/v1/auth/session", token, nil), http.StatusOK)
	if !env.Success {
		t.Fatalf("session lookup failed: %+v", env)
	}

	expect(t, s.do(http.MethodPost, "/api/v1/auth/signout", token, nil), http.StatusOK)
	expect(t, s.do(http.MethodGet, "/api/v1/attendance/status", token, nil), http.StatusUnauthorized)
}

func TestSignUpValidation(t *testing.T) {
	s := newTestServer(t, true, nil)

	env := expect(t, s.do(http.MethodPost, "/api/v1/auth/signup", "", gin.H{"email": "a@example.com", "password": "password"}), http.StatusBadRequest)
	if !strings.Contains(env.Message, "password") {
		t.Fatalf("unexpected message %q", env.Message)
	}
	expect(t, s.do(http.MethodPost, "/api/v1/auth/signup", "", gin.H{"email": "not-an-email", "password": testPassword}), http.StatusBadRequest)

	s.signUpAndIn("a@example.com")
	expect(t, s.do(http.MethodPost, "/api/v1/auth/signup", "", gin.H{"email": "a@example.com", "password": testPassword}), http.StatusConflict)
	expect(t, s.do(http.MethodPost, "/api/v1/auth/signin", "", gin.H{"email": "a@example.com", "password": "Wrong#Pass1"}), http.StatusUnauthorized)
}

type failingUsers struct {
	UserStore
}

func (failingUsers) CreateUser(context.Context, models.User) error {
	return errors.New("users table unavailable")
}

func (failingUsers) GetUser(context.Context, uuid.UUID) (models.User, error) {
	return models.User{}, store.ErrUserNotFound
}

func TestSignUpPartialFailure(t *testing.T) {
	s := newTestServer(t, true, failingUsers{})

	env := expect(t, s.do(http.MethodPost, "/api/v1/auth/signup", "", gin.H{"email": "a@example.com", "password": testPassword}), http.StatusCreated)
	if !env.Success || !env.Partial {
		t.Fatalf("expected partial success, got %+v", env)
	}
	expect(t, s.do(http.MethodPost, "/api/v1/auth/signin", "", gin.H{"email": "a@example.com", "password": testPassword}), http.StatusOK)
}

func TestGeofenceSettings(t *testing.T) {
	s := newTestServer(t, true, nil)
	employee := s.signUpAndIn("worker@example.com")
	admin := s.signUpAndIn("boss@example.com")

	update := gin.H{"central_latitude": 0.0, "central_longitude": 0.0, "geofence_radius": 250.0}
	expect(t, s.do(http.MethodPut, "/api/v1/settings/geofence", employee, update), http.StatusForbidden)
	expect(t, s.do(http.MethodPut, "/api/v1/settings/geofence", admin, gin.H{"central_latitude": 0.0, "central_longitude": 0.0, "geofence_radius": -1.0}), http.StatusBadRequest)
	expect(t, s.do(http.MethodPut, "/api/v1/settings/geofence", admin, update), http.StatusOK)

	env := expect(t, s.do(http.MethodGet, "/api/v1/settings/geofence", employee, nil), http.StatusOK)
	var got models.GeofenceSettings
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if got.GeofenceRadius == nil || *got.GeofenceRadius != 250 || got.CentralLatitude == nil || *got.CentralLatitude != 0 {
		t.Fatalf("unexpected settings %+v", got)
	}

	fence, err := s.store.Geofence(context.Background())
	if err != nil || fence.RadiusMeters != 250 {
		t.Fatalf("stored fence = %+v, %v", fence, err)
	}
}

func TestExportToday(t *testing.T) {
	s := newTestServer(t, true, nil)
	token := s.signUpAndIn("worker@example.com")

	expect(t, s.do(http.MethodPost, "/api/v1/attendance/checkin", token, position(40.0, -74.0)), http.StatusCreated)

	w := s.do(http.MethodGet, "/api/v1/attendance/today/export", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export: %d %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxType {
		t.Fatalf("content type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, ".xlsx") {
		t.Fatalf("content disposition = %q", cd)
	}

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header and 1 row, got %d rows", len(rows))
	}
	if rows[0][0] != "Record ID" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if _, err := uuid.Parse(rows[1][0]); err != nil {
		t.Fatalf("first column is not a record id: %q", rows[1][0])
	}
}

func TestBuildWorkbookClosedRecord(t *testing.T) {
	in := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	out := in.Add(8*time.Hour + 30*time.Minute)
	lat, lon := 1.5, 2.5
	rec := models.AttendanceRecord{
		ID:                uuid.New(),
		CheckInTime:       in,
		CheckOutTime:      &out,
		CheckOutLatitude:  &lat,
		CheckOutLongitude: &lon,
	}

	body, err := buildWorkbook([]models.AttendanceRecord{rec}, time.UTC)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	hours, err := f.GetCellValue(exportSheet, "H2")
	if err != nil {
		t.Fatalf("read hours: %v", err)
	}
	if hours != "8.50" {
		t.Fatalf("hours = %q, want 8.50", hours)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, false, nil)
	w := s.do(http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health: %d %s", w.Code, w.Body.String())
	}
}

package http

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/geofence"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/validator"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handlerTestSecret = "test-secret-key-for-jwt"

type stubAttendanceService struct {
	mu       sync.Mutex
	err      error
	checkIn  attendance.CheckInRequest
	checkOut attendance.CheckOutRequest
	correct  attendance.CorrectSessionRequest
	filter   attendance.DepartmentFilter
	hadFile  bool
}

func (s *stubAttendanceService) CheckIn(ctx context.Context, req attendance.CheckInRequest) (attendance.SessionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkIn = req
	s.hadFile = req.File != nil
	if s.err != nil {
		return attendance.SessionResponse{}, s.err
	}
	return attendance.SessionResponse{ID: "s-1", UserID: req.UserID, State: attendance.StateCheckedIn}, nil
}

func (s *stubAttendanceService) CheckOut(ctx context.Context, req attendance.CheckOutRequest) (attendance.SessionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkOut = req
	if s.err != nil {
		return attendance.SessionResponse{}, s.err
	}
	return attendance.SessionResponse{ID: "s-1", UserID: req.UserID, State: attendance.StateCheckedOut}, nil
}

func (s *stubAttendanceService) EnableOvertime(ctx context.Context, req attendance.EnableOvertimeRequest) (attendance.SessionResponse, error) {
	return attendance.SessionResponse{ID: "s-1", OvertimeEnabled: true}, s.err
}

func (s *stubAttendanceService) GetToday(ctx context.Context, userID, department string) (*attendance.SessionResponse, error) {
	return nil, s.err
}

func (s *stubAttendanceService) GetMyAttendance(ctx context.Context, filter attendance.MyAttendanceFilter) ([]attendance.SessionResponse, error) {
	return []attendance.SessionResponse{}, s.err
}

func (s *stubAttendanceService) ListDepartment(ctx context.Context, filter attendance.DepartmentFilter) ([]attendance.SessionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = filter
	return []attendance.SessionResponse{}, s.err
}

func (s *stubAttendanceService) DepartmentStats(ctx context.Context, filter attendance.DepartmentFilter) (attendance.DepartmentStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = filter
	return attendance.DepartmentStats{Department: filter.Department}, s.err
}

func (s *stubAttendanceService) LiveRoster(ctx context.Context, department string) ([]attendance.RosterEntry, error) {
	return []attendance.RosterEntry{}, s.err
}

func (s *stubAttendanceService) CorrectSession(ctx context.Context, req attendance.CorrectSessionRequest) (attendance.SessionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.correct = req
	return attendance.SessionResponse{ID: req.ID}, s.err
}

func (s *stubAttendanceService) AutoCheckout(ctx context.Context) (attendance.AutoCheckoutSummary, error) {
	return attendance.AutoCheckoutSummary{Scanned: 2, Closed: 1, Skipped: 1}, s.err
}

type stubGeofenceService struct {
	err     error
	history []geofence.LocationSample
	got     []geofence.LocationSample
}

func (s *stubGeofenceService) ValidateLocation(ctx context.Context, sample geofence.LocationSample) (geofence.ValidationResult, error) {
	return geofence.ValidationResult{IsValid: true, Confidence: 0.9, Source: sample.Source}, s.err
}

func (s *stubGeofenceService) DetectOffice(ctx context.Context, sample geofence.LocationSample) (geofence.DetectionResult, error) {
	return geofence.DetectionResult{}, s.err
}

func (s *stubGeofenceService) DetectAnomalies(ctx context.Context, sample geofence.LocationSample, history []geofence.LocationSample) geofence.AnomalyReport {
	s.got = history
	return geofence.AnomalyReport{RiskLevel: geofence.RiskLow, Reasons: []string{}}
}

func (s *stubGeofenceService) Screen(ctx context.Context, userID string, sample geofence.LocationSample) geofence.AnomalyReport {
	return geofence.AnomalyReport{RiskLevel: geofence.RiskLow}
}

func (s *stubGeofenceService) History(ctx context.Context, userID string) []geofence.LocationSample {
	return s.history
}

func (s *stubGeofenceService) ListActiveOffices(ctx context.Context) ([]geofence.OfficeLocation, error) {
	return []geofence.OfficeLocation{{ID: "hq", Name: "Head Office", RadiusMeters: 100, IsActive: true}}, s.err
}

func (s *stubGeofenceService) PruneHistory(ctx context.Context) int { return 0 }

type testServer struct {
	handler    http.Handler
	jwt        jwt.Service
	attendance *stubAttendanceService
	geofence   *stubGeofenceService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	jwtService := jwt.NewJWTService(handlerTestSecret, "1h")
	att := &stubAttendanceService{}
	geo := &stubGeofenceService{}
	clk := clock.NewMock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	router := NewRouter(
		RouterOptions{AllowedOrigins: []string{"http://localhost:3000"}},
		jwtService,
		NewGeofenceHandler(geo, clk),
		NewAttendanceHandler(att, jwtService, sse.NewHub()),
	)
	return &testServer{handler: router, jwt: jwtService, attendance: att, geofence: geo}
}

func (s *testServer) token(t *testing.T, userID, department string, role auth.Role) string {
	t.Helper()
	token, _, err := s.jwt.GenerateAccessToken(auth.Principal{UserID: userID, Department: department, Role: role})
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

const checkInBody = `{"location":{"latitude":-6.2,"longitude":106.8,"accuracy_meters":8}}`

func TestCheckIn_RequiresToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/attendance/check-in", "", checkInBody)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckIn_RejectsUnknownRole(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "u1", "engineering", auth.Role("superuser"))

	rec := s.do(t, http.MethodPost, "/api/v1/attendance/check-in", token, checkInBody)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckIn_RejectsSSETokenAsBearer(t *testing.T) {
	s := newTestServer(t)
	token, _, err := s.jwt.GenerateSSEToken(auth.Principal{UserID: "u1", Department: "engineering", Role: auth.RoleEmployee})
	require.NoError(t, err)

	rec := s.do(t, http.MethodPost, "/api/v1/attendance/check-in", token, checkInBody)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckIn_UsesPrincipalFromToken(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "u1", "engineering", auth.RoleEmployee)

	rec := s.do(t, http.MethodPost, "/api/v1/attendance/check-in", token, checkInBody)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "u1", s.attendance.checkIn.UserID)
	assert.Equal(t, "engineering", s.attendance.checkIn.Department)
	assert.Equal(t, 8.0, s.attendance.checkIn.Location.AccuracyMeters)
}

func TestCheckIn_TokenWithoutDepartmentIsForbidden(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "u1", "", auth.RoleEmployee)

	rec := s.do(t, http.MethodPost, "/api/v1/attendance/check-in", token, checkInBody)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCheckIn_Multipart(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "u1", "engineering", auth.RoleEmployee)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("data", checkInBody))
	part, err := mw.CreateFormFile("photo", "proof.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("not really a jpeg"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/attendance/check-in", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, s.attendance.hadFile)
	require.NotNil(t, s.attendance.checkIn.FileHeader)
	assert.Equal(t, "proof.jpg", s.attendance.checkIn.FileHeader.Filename)
}

func TestHandleError_Mapping(t *testing.T) {
	officeName := "Head Office"
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{
			name: "location rejected",
			err: &geofence.LocationRejectedError{Result: geofence.ValidationResult{
				OfficeName:      &officeName,
				Recommendations: []string{"Move closer to Head Office"},
			}},
			wantCode: http.StatusBadRequest,
			wantErr:  "LOCATION_REJECTED",
		},
		{name: "no offices", err: geofence.ErrNoActiveOffices, wantCode: http.StatusPreconditionFailed, wantErr: "CONFIGURATION_ERROR"},
		{name: "duplicate", err: attendance.ErrAlreadyCheckedIn, wantCode: http.StatusConflict, wantErr: "CONFLICT"},
		{name: "photo required", err: attendance.ErrPhotoRequired, wantCode: http.StatusBadRequest, wantErr: "BAD_REQUEST"},
		{
			name:     "validation",
			err:      validator.ValidationErrors{{Field: "location.latitude", Message: "latitude must be between -90 and 90"}},
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.attendance.err = tt.err
			token := s.token(t, "u1", "engineering", auth.RoleEmployee)

			rec := s.do(t, http.MethodPost, "/api/v1/attendance/check-in", token, checkInBody)

			assert.Equal(t, tt.wantCode, rec.Code)
			env := decodeEnvelope(t, rec)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantErr, env.Error.Code)
		})
	}
}

func TestLocationRejected_CarriesRecommendations(t *testing.T) {
	s := newTestServer(t)
	s.attendance.err = &geofence.LocationRejectedError{Result: geofence.ValidationResult{
		Recommendations: []string{"Move closer to Head Office"},
	}}
	token := s.token(t, "u1", "engineering", auth.RoleEmployee)

	rec := s.do(t, http.MethodPost, "/api/v1/attendance/check-in", token, checkInBody)

	env := decodeEnvelope(t, rec)
	var result geofence.ValidationResult
	require.NoError(t, json.Unmarshal(env.Error.Details, &result))
	assert.Equal(t, []string{"Move closer to Head Office"}, result.Recommendations)
}

func TestDepartmentViews_Access(t *testing.T) {
	s := newTestServer(t)

	employee := s.token(t, "u1", "engineering", auth.RoleEmployee)
	rec := s.do(t, http.MethodGet, "/api/v1/attendance/departments/engineering/stats", employee, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	manager := s.token(t, "m1", "engineering", auth.RoleManager)
	rec = s.do(t, http.MethodGet, "/api/v1/attendance/departments/sales/stats", manager, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/attendance/departments/engineering/stats?date=2025-03-10", manager, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "engineering", s.attendance.filter.Department)
	require.NotNil(t, s.attendance.filter.Date)
	assert.Equal(t, "2025-03-10", *s.attendance.filter.Date)

	admin := s.token(t, "a1", "hr", auth.RoleAdmin)
	rec = s.do(t, http.MethodGet, "/api/v1/attendance/departments/sales", admin, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCorrect_AdminOnly(t *testing.T) {
	s := newTestServer(t)
	body := `{"status":"present","reason":"badge reader outage"}`

	manager := s.token(t, "m1", "engineering", auth.RoleManager)
	rec := s.do(t, http.MethodPut, "/api/v1/attendance/s-9", manager, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := s.token(t, "a1", "hr", auth.RoleAdmin)
	rec = s.do(t, http.MethodPut, "/api/v1/attendance/s-9", admin, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "s-9", s.attendance.correct.ID)
	assert.Equal(t, "a1", s.attendance.correct.CorrectedBy)
	require.NotNil(t, s.attendance.correct.Status)
	assert.Equal(t, "present", *s.attendance.correct.Status)
}

func TestGetToday_NoSession(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "u1", "engineering", auth.RoleEmployee)

	rec := s.do(t, http.MethodGet, "/api/v1/attendance/today", token, "")

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.JSONEq(t, `{"state":"no_session"}`, string(env.Data))
}

func TestGeofenceValidate(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "u1", "engineering", auth.RoleEmployee)

	rec := s.do(t, http.MethodPost, "/api/v1/geofence/validate", token, `{"latitude":-6.2,"longitude":106.8,"accuracy_meters":8,"source":"network"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result geofence.ValidationResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &result))
	assert.True(t, result.IsValid)
	assert.Equal(t, geofence.SourceNetwork, result.Source)

	rec = s.do(t, http.MethodPost, "/api/v1/geofence/validate", token, `{"latitude":91,"longitude":0,"accuracy_meters":8}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGeofenceAnomalies_FallsBackToRecordedHistory(t *testing.T) {
	s := newTestServer(t)
	s.geofence.history = []geofence.LocationSample{{Latitude: -6.2, Longitude: 106.8, AccuracyMeters: 5}}
	token := s.token(t, "u1", "engineering", auth.RoleEmployee)

	rec := s.do(t, http.MethodPost, "/api/v1/geofence/anomalies", token, `{"location":{"latitude":-6.2,"longitude":106.8,"accuracy_meters":8}}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, s.geofence.got, 1)
}

func TestRosterStream_RejectsMissingToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/attendance/departments/engineering/roster/stream", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAutoCheckout_AdminTrigger(t *testing.T) {
	s := newTestServer(t)
	admin := s.token(t, "a1", "hr", auth.RoleAdmin)

	rec := s.do(t, http.MethodPost, "/api/v1/attendance/auto-checkout", admin, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var summary attendance.AutoCheckoutSummary
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &summary))
	assert.Equal(t, 1, summary.Closed)
}

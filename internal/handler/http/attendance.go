package http

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/sse"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

const maxFormMemory = 10 << 20 // 10MB

type AttendanceHandler interface {
	CheckIn(w http.ResponseWriter, r *http.Request)
	CheckOut(w http.ResponseWriter, r *http.Request)
	EnableOvertime(w http.ResponseWriter, r *http.Request)
	GetToday(w http.ResponseWriter, r *http.Request)
	GetMyAttendance(w http.ResponseWriter, r *http.Request)
	Correct(w http.ResponseWriter, r *http.Request)
	ListDepartment(w http.ResponseWriter, r *http.Request)
	DepartmentStats(w http.ResponseWriter, r *http.Request)
	LiveRoster(w http.ResponseWriter, r *http.Request)
	GetSSEToken(w http.ResponseWriter, r *http.Request)
	RosterStream(w http.ResponseWriter, r *http.Request)
	AutoCheckout(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
	jwtService        jwt.Service
	hub               *sse.Hub
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService, jwtService jwt.Service, hub *sse.Hub) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
		jwtService:        jwtService,
		hub:               hub,
	}
}

// attendanceForm is the shared body of check-in and check-out requests.
type attendanceForm struct {
	File       multipart.File
	FileHeader *multipart.FileHeader
	PhotoURL   *string
}

// decodeAttendanceBody fills dst from either a multipart form (JSON in the
// 'data' field, optional 'photo' file or 'photo_url') or a plain JSON body.
// The caller must close the returned file.
func decodeAttendanceBody(w http.ResponseWriter, r *http.Request, dst interface{}) (attendanceForm, bool) {
	var form attendanceForm

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			response.BadRequest(w, "Invalid request body", nil)
			return form, false
		}
		return form, true
	}

	// Parse multipart form (max 10MB)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		slog.Error("Failed to parse multipart form", "error", err)
		response.BadRequest(w, "Failed to parse form data", nil)
		return form, false
	}

	// Get JSON data from 'data' field
	dataJSON := r.FormValue("data")
	if dataJSON == "" {
		response.BadRequest(w, "Field 'data' is required", nil)
		return form, false
	}

	if err := json.Unmarshal([]byte(dataJSON), dst); err != nil {
		slog.Error("Failed to unmarshal JSON data", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return form, false
	}

	if url := strings.TrimSpace(r.FormValue("photo_url")); url != "" {
		form.PhotoURL = &url
	}

	file, fileHeader, err := r.FormFile("photo")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return form, true
		}
		slog.Error("Failed to get file from form", "error", err)
		response.BadRequest(w, "Invalid file upload", nil)
		return form, false
	}
	form.File = file
	form.FileHeader = fileHeader

	return form, true
}

// principalWithDepartment returns the caller, who must belong to a department.
func principalWithDepartment(r *http.Request) (auth.Principal, error) {
	principal, err := jwt.PrincipalFromContext(r.Context())
	if err != nil {
		return auth.Principal{}, err
	}
	if principal.Department == "" {
		return auth.Principal{}, auth.ErrDepartmentRequired
	}
	return principal, nil
}

// CheckIn implements AttendanceHandler.
func (h *attendanceHandlerImpl) CheckIn(w http.ResponseWriter, r *http.Request) {
	principal, err := principalWithDepartment(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var req attendance.CheckInRequest
	form, ok := decodeAttendanceBody(w, r, &req)
	if !ok {
		return
	}
	if form.File != nil {
		defer form.File.Close()
	}

	req.UserID = principal.UserID
	req.Department = principal.Department
	req.PhotoURL = form.PhotoURL
	req.File = form.File
	req.FileHeader = form.FileHeader

	result, err := h.attendanceService.CheckIn(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Check in successful", result)
}

// CheckOut implements AttendanceHandler.
func (h *attendanceHandlerImpl) CheckOut(w http.ResponseWriter, r *http.Request) {
	principal, err := principalWithDepartment(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var req attendance.CheckOutRequest
	form, ok := decodeAttendanceBody(w, r, &req)
	if !ok {
		return
	}
	if form.File != nil {
		defer form.File.Close()
	}

	req.UserID = principal.UserID
	req.Department = principal.Department
	req.PhotoURL = form.PhotoURL
	req.File = form.File
	req.FileHeader = form.FileHeader

	result, err := h.attendanceService.CheckOut(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Check out successful", result)
}

// EnableOvertime implements AttendanceHandler.
func (h *attendanceHandlerImpl) EnableOvertime(w http.ResponseWriter, r *http.Request) {
	principal, err := principalWithDepartment(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.EnableOvertime(r.Context(), attendance.EnableOvertimeRequest{
		UserID:     principal.UserID,
		Department: principal.Department,
	})
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Overtime enabled", result)
}

// GetToday implements AttendanceHandler.
func (h *attendanceHandlerImpl) GetToday(w http.ResponseWriter, r *http.Request) {
	principal, err := principalWithDepartment(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.GetToday(r.Context(), principal.UserID, principal.Department)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if result == nil {
		response.Success(w, map[string]attendance.State{"state": attendance.StateNoSession})
		return
	}
	response.Success(w, result)
}

// GetMyAttendance implements AttendanceHandler.
func (h *attendanceHandlerImpl) GetMyAttendance(w http.ResponseWriter, r *http.Request) {
	principal, err := jwt.PrincipalFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	filter := attendance.MyAttendanceFilter{UserID: principal.UserID}

	// Date range filters
	if startDate := r.URL.Query().Get("start_date"); startDate != "" {
		filter.StartDate = &startDate
	}
	if endDate := r.URL.Query().Get("end_date"); endDate != "" {
		filter.EndDate = &endDate
	}

	if l := r.URL.Query().Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil {
			response.BadRequest(w, "limit must be a number", nil)
			return
		}
		filter.Limit = limit
	}

	result, err := h.attendanceService.GetMyAttendance(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result, &response.Meta{
		Limit:      filter.Limit,
		TotalItems: int64(len(result)),
	})
}

// Correct implements AttendanceHandler.
func (h *attendanceHandlerImpl) Correct(w http.ResponseWriter, r *http.Request) {
	principal, err := jwt.PrincipalFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var req attendance.CorrectSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.ID = chi.URLParam(r, "id")
	req.CorrectedBy = principal.UserID

	result, err := h.attendanceService.CorrectSession(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance session corrected", result)
}

// departmentFilter reads the department from the URL and checks that the
// caller may see it.
func departmentFilter(r *http.Request) (attendance.DepartmentFilter, error) {
	principal, err := jwt.PrincipalFromContext(r.Context())
	if err != nil {
		return attendance.DepartmentFilter{}, err
	}

	filter := attendance.DepartmentFilter{Department: chi.URLParam(r, "department")}
	if !principal.CanViewDepartment(filter.Department) {
		return attendance.DepartmentFilter{}, auth.ErrDepartmentForbidden
	}

	if date := r.URL.Query().Get("date"); date != "" {
		filter.Date = &date
	}
	return filter, nil
}

// ListDepartment implements AttendanceHandler.
func (h *attendanceHandlerImpl) ListDepartment(w http.ResponseWriter, r *http.Request) {
	filter, err := departmentFilter(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.ListDepartment(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// DepartmentStats implements AttendanceHandler.
func (h *attendanceHandlerImpl) DepartmentStats(w http.ResponseWriter, r *http.Request) {
	filter, err := departmentFilter(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.DepartmentStats(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// LiveRoster implements AttendanceHandler.
func (h *attendanceHandlerImpl) LiveRoster(w http.ResponseWriter, r *http.Request) {
	filter, err := departmentFilter(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.LiveRoster(r.Context(), filter.Department)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// GetSSEToken generates a short-lived token for the roster stream
func (h *attendanceHandlerImpl) GetSSEToken(w http.ResponseWriter, r *http.Request) {
	principal, err := jwt.PrincipalFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	token, expiresIn, err := h.jwtService.GenerateSSEToken(principal)
	if err != nil {
		response.InternalServerError(w, "Failed to generate SSE token")
		return
	}

	response.Success(w, attendance.SSETokenResponse{
		Token:     token,
		ExpiresIn: expiresIn,
	})
}

// RosterStream pushes roster changes of a department over SSE
func (h *attendanceHandlerImpl) RosterStream(w http.ResponseWriter, r *http.Request) {
	// Get token from query parameter (SSE doesn't support custom headers)
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}

	principal, err := h.jwtService.ValidateSSEToken(tokenStr)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	department := chi.URLParam(r, "department")
	if !principal.CanViewDepartment(department) {
		http.Error(w, auth.ErrDepartmentForbidden.Error(), http.StatusForbidden)
		return
	}

	// Check if streaming is supported
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.hub.Subscribe(sse.DepartmentTopic(department))
	defer cleanup()

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"department\":%q}\n\n", department)
	flusher.Flush()

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Name, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// AutoCheckout runs the auto-checkout sweep on demand.
func (h *attendanceHandlerImpl) AutoCheckout(w http.ResponseWriter, r *http.Request) {
	summary, err := h.attendanceService.AutoCheckout(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, summary)
}

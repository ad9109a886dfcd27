package attendance

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/department"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/geofence"
)

type memorySessionRepo struct {
	mu       sync.Mutex
	seq      int
	sessions map[string]attendance.Session
	closeErr map[string]error
}

func newMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{
		sessions: make(map[string]attendance.Session),
		closeErr: make(map[string]error),
	}
}

func sameDay(a, b time.Time) bool {
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}

func (r *memorySessionRepo) Create(ctx context.Context, s attendance.Session) (attendance.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.sessions {
		if existing.UserID == s.UserID && sameDay(existing.Date, s.Date) {
			return attendance.Session{}, attendance.ErrAlreadyCheckedIn
		}
	}
	r.seq++
	s.ID = fmt.Sprintf("s-%d", r.seq)
	r.sessions[s.ID] = s
	return s, nil
}

func (r *memorySessionRepo) GetByID(ctx context.Context, id string) (attendance.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return attendance.Session{}, attendance.ErrSessionNotFound
	}
	return s, nil
}

func (r *memorySessionRepo) GetByUserAndDate(ctx context.Context, userID string, date time.Time) (*attendance.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.UserID == userID && sameDay(s.Date, date) {
			found := s
			return &found, nil
		}
	}
	return nil, nil
}

func (r *memorySessionRepo) GetOpenSession(ctx context.Context, userID string) (attendance.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.UserID == userID && s.CheckOutTime == nil {
			return s, nil
		}
	}
	return attendance.Session{}, attendance.ErrNotCheckedIn
}

func (r *memorySessionRepo) Close(ctx context.Context, s attendance.Session) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.closeErr[s.ID]; err != nil {
		return false, err
	}
	existing, ok := r.sessions[s.ID]
	if !ok {
		return false, attendance.ErrSessionNotFound
	}
	if existing.CheckOutTime != nil {
		return false, nil
	}
	r.sessions[s.ID] = s
	return true, nil
}

func (r *memorySessionRepo) Update(ctx context.Context, s attendance.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.ID]; !ok {
		return attendance.ErrSessionNotFound
	}
	r.sessions[s.ID] = s
	return nil
}

func (r *memorySessionRepo) list(keep func(attendance.Session) bool) []attendance.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []attendance.Session
	for _, s := range r.sessions {
		if keep(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memorySessionRepo) ListByDepartmentAndDate(ctx context.Context, dept string, date time.Time) ([]attendance.Session, error) {
	return r.list(func(s attendance.Session) bool {
		return s.Department == dept && sameDay(s.Date, date)
	}), nil
}

func (r *memorySessionRepo) ListByUser(ctx context.Context, userID string, from, to time.Time, limit int) ([]attendance.Session, error) {
	out := r.list(func(s attendance.Session) bool {
		return s.UserID == userID && !s.Date.Before(from) && !s.Date.After(to)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memorySessionRepo) ListOpen(ctx context.Context) ([]attendance.Session, error) {
	return r.list(func(s attendance.Session) bool { return s.CheckOutTime == nil }), nil
}

type memoryPolicyRepo struct {
	policies map[string]department.Policy
}

func (r *memoryPolicyRepo) Get(ctx context.Context, name string) (department.Policy, error) {
	p, ok := r.policies[name]
	if !ok {
		return department.Policy{}, department.ErrPolicyNotFound
	}
	return p, nil
}

func (r *memoryPolicyRepo) List(ctx context.Context) ([]department.Policy, error) {
	out := make([]department.Policy, 0, len(r.policies))
	for _, p := range r.policies {
		out = append(out, p)
	}
	return out, nil
}

type memoryOfficeRepo struct {
	offices []geofence.OfficeLocation
}

func (r *memoryOfficeRepo) ListActive(ctx context.Context) ([]geofence.OfficeLocation, error) {
	return geofence.ActiveOffices(r.offices), nil
}

func (r *memoryOfficeRepo) GetByID(ctx context.Context, id string) (geofence.OfficeLocation, error) {
	for _, o := range r.offices {
		if o.ID == id {
			return o, nil
		}
	}
	return geofence.OfficeLocation{}, geofence.ErrOfficeNotFound
}

type fakeFileService struct {
	mu      sync.Mutex
	uploads []string
}

func (f *fakeFileService) UploadAttendanceProof(ctx context.Context, userID string, date time.Time, file io.Reader, filename string, kind string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := fmt.Sprintf("attendance/%s/%s-%s.jpg", date.Format("2006-01-02"), userID, kind)
	f.uploads = append(f.uploads, path)
	return path, nil
}

func (f *fakeFileService) DeleteFile(ctx context.Context, path string) error {
	return nil
}

func (f *fakeFileService) GetFileURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	return "http://files.local/" + path, nil
}

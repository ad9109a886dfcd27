package http

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

// RouterOptions carries the cross-cutting settings of the HTTP stack.
type RouterOptions struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	LogLevel       slog.Level
	// UploadsDir, when set, is served read-only under /uploads/.
	UploadsDir string
}

func NewRouter(opts RouterOptions, JWTService jwt.Service, geofenceHandler GeofenceHandler, attendanceHandler AttendanceHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	if opts.Logger != nil {
		r.Use(httplog.RequestLogger(opts.Logger, &httplog.Options{
			Level:  opts.LogLevel,
			Schema: httplog.SchemaECS,
		}))
	}

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	if opts.UploadsDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(opts.UploadsDir))))
	}

	r.Route("/api/v1", func(r chi.Router) {
		authenticated := func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)
		}

		r.Route("/geofence", func(r chi.Router) {
			authenticated(r)
			r.Get("/offices", geofenceHandler.ListOffices)
			r.Post("/validate", geofenceHandler.Validate)
			r.Post("/detect", geofenceHandler.Detect)
			r.Post("/anomalies", geofenceHandler.Anomalies)
		})

		r.Route("/attendance", func(r chi.Router) {
			// SSE authenticates with a query token
			r.Get("/departments/{department}/roster/stream", attendanceHandler.RosterStream)

			// Requires authentication
			r.Group(func(r chi.Router) {
				authenticated(r)
				r.Post("/check-in", attendanceHandler.CheckIn)
				r.Post("/check-out", attendanceHandler.CheckOut)
				r.Post("/overtime", attendanceHandler.EnableOvertime)
				r.Get("/today", attendanceHandler.GetToday)
				r.Get("/my", attendanceHandler.GetMyAttendance)

				// Manager or admin
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireManager)
					r.Get("/sse-token", attendanceHandler.GetSSEToken)
					r.Get("/departments/{department}", attendanceHandler.ListDepartment)
					r.Get("/departments/{department}/stats", attendanceHandler.DepartmentStats)
					r.Get("/departments/{department}/roster", attendanceHandler.LiveRoster)
				})

				// Admin only
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin)
					r.Put("/{id}", attendanceHandler.Correct)
					r.Post("/auto-checkout", attendanceHandler.AutoCheckout)
				})
			})
		})
	})
	return r
}

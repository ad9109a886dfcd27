package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/jwt"
)

// RequireManager requires manager or admin role
func RequireManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := jwt.PrincipalFromContext(r.Context())
		if err != nil {
			response.HandleError(w, auth.ErrManagerAccessRequired)
			return
		}

		if principal.Role != auth.RoleManager && principal.Role != auth.RoleAdmin {
			response.HandleError(w, auth.ErrManagerAccessRequired)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireAdmin requires admin role
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := jwt.PrincipalFromContext(r.Context())
		if err != nil {
			response.HandleError(w, auth.ErrAdminAccessRequired)
			return
		}

		if principal.Role != auth.RoleAdmin {
			response.HandleError(w, auth.ErrAdminAccessRequired)
			return
		}

		next.ServeHTTP(w, r)
	})
}

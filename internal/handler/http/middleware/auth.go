package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-geofence-go/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

// AuthRequired accepts only verified access tokens that carry a usable
// principal. It must run after jwtauth.Verifier.
func AuthRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.Unauthorized(w, err.Error())
			return
		}
		if token == nil {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}

		if tokenType, _ := claims["type"].(string); tokenType != "access" {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}

		principal, ok := jwt.PrincipalFromClaims(claims)
		if !ok || !principal.Role.Valid() {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}

		next.ServeHTTP(w, r)
	})
}

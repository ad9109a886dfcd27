package jwt

import (
	"context"
	"time"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/auth"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

type Service interface {
	GenerateAccessToken(principal auth.Principal) (token string, expiresAt int64, err error)
	GenerateSSEToken(principal auth.Principal) (token string, expiresIn int, err error)
	ValidateSSEToken(tokenString string) (auth.Principal, error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	secretKey                 string
	accessTokenExpirationTime string
	tokenAuth                 *jwtauth.JWTAuth
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpirationTime string) Service {
	return &JWTService{
		secretKey:                 secretKey,
		accessTokenExpirationTime: accessTokenExpirationTime,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (j *JWTService) GenerateAccessToken(principal auth.Principal) (token string, expiresAt int64, err error) {
	expDuration, err := time.ParseDuration(j.accessTokenExpirationTime)
	if err != nil {
		return "", 0, err
	}
	expiresAt = time.Now().Add(expDuration).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id":    principal.UserID,
		"department": principal.Department,
		"role":       string(principal.Role),
		"type":       "access",
		"exp":        expiresAt,
	})
	return tokenString, expiresAt, err
}

// GenerateSSEToken generates a short-lived token for SSE connections
func (j *JWTService) GenerateSSEToken(principal auth.Principal) (token string, expiresIn int, err error) {
	// SSE tokens are short-lived (5 minutes)
	expiresIn = 300
	expiresAt := time.Now().Add(5 * time.Minute).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id":    principal.UserID,
		"department": principal.Department,
		"role":       string(principal.Role),
		"type":       "sse",
		"exp":        expiresAt,
	})
	if err != nil {
		return "", 0, err
	}

	return tokenString, expiresIn, nil
}

// ValidateSSEToken validates an SSE token and returns its principal
func (j *JWTService) ValidateSSEToken(tokenString string) (auth.Principal, error) {
	token, err := j.tokenAuth.Decode(tokenString)
	if err != nil {
		return auth.Principal{}, err
	}

	claims, err := token.AsMap(context.Background())
	if err != nil {
		return auth.Principal{}, err
	}

	if tokenType, _ := claims["type"].(string); tokenType != "sse" {
		return auth.Principal{}, jwt.ErrInvalidJWT()
	}

	principal, ok := PrincipalFromClaims(claims)
	if !ok {
		return auth.Principal{}, jwt.ErrInvalidJWT()
	}
	return principal, nil
}

// PrincipalFromClaims reads the caller out of decoded token claims.
func PrincipalFromClaims(claims map[string]interface{}) (auth.Principal, bool) {
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return auth.Principal{}, false
	}
	department, _ := claims["department"].(string)
	role, _ := claims["role"].(string)
	if role == "" {
		role = string(auth.RoleEmployee)
	}

	return auth.Principal{
		UserID:     userID,
		Department: department,
		Role:       auth.Role(role),
	}, true
}

// PrincipalFromContext returns the caller of a request verified by jwtauth.Verifier.
func PrincipalFromContext(ctx context.Context) (auth.Principal, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return auth.Principal{}, auth.ErrInvalidToken
	}
	principal, ok := PrincipalFromClaims(claims)
	if !ok {
		return auth.Principal{}, auth.ErrInvalidToken
	}
	return principal, nil
}

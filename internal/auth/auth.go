package auth

import (
	"club-backend/internal/logger"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const UserContextKey contextKey = "user"

// ErrInvalidToken is returned for any bearer token that fails verification
var ErrInvalidToken = errors.New("invalid token")

// Claims are the token claims issued by the site's login service
type Claims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// Owner returns the identity conversations are attributed to
func (c *Claims) Owner() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.Username
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// sendError sends a standardized JSON error response
func sendError(w http.ResponseWriter, status int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	errResp := ErrorResponse{
		Code:    status,
		Message: message,
	}
	if err != nil {
		errResp.Error = err.Error()
	}
	json.NewEncoder(w).Encode(errResp)
}

// ValidateToken verifies an HS256 token against secret
func ValidateToken(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.Owner() != "" {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

// Middleware attaches the caller's identity when a valid bearer token is present.
// Chat stays open to anonymous visitors: requests without an Authorization header
// pass through, and an empty secret disables verification altogether.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if len(secret) == 0 || authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			bearerToken := strings.Split(authHeader, " ")
			if len(bearerToken) != 2 || bearerToken[0] != "Bearer" {
				sendError(w, http.StatusUnauthorized, "Invalid authorization header format", nil)
				return
			}

			claims, err := ValidateToken(bearerToken[1], secret)
			if err != nil {
				logger.Log.WithError(err).Debug("Rejected bearer token")
				sendError(w, http.StatusUnauthorized, "Invalid token", ErrInvalidToken)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims.Owner())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the authenticated owner, or nil for anonymous requests
func UserFromContext(ctx context.Context) *string {
	if user, ok := ctx.Value(UserContextKey).(string); ok && user != "" {
		return &user
	}
	return nil
}

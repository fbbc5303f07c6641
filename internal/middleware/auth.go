package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"techtrack-backend/pkg/utils"
)

type contextKey string

const UserContextKey contextKey = "user"

var ErrUnauthorized = errors.New("unauthorized")

type UserClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Authenticator verifies HMAC-signed bearer tokens. Tokens are issued by the
// account service; IssueToken exists for tooling and tests.
type Authenticator struct {
	secret []byte
	log    zerolog.Logger
}

func NewAuthenticator(secret string, log zerolog.Logger) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		log:    log.With().Str("component", "auth").Logger(),
	}
}

// ParseToken validates a token and extracts its claims
func (a *Authenticator) ParseToken(tokenString string) (UserClaims, error) {
	if len(a.secret) == 0 {
		return UserClaims{}, fmt.Errorf("%w: JWT secret not configured", ErrUnauthorized)
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return UserClaims{}, fmt.Errorf("%w: invalid token: %v", ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return UserClaims{}, fmt.Errorf("%w: failed to parse claims", ErrUnauthorized)
	}

	userClaims := UserClaims{
		UserID: claimString(claims, "user_id"),
		Email:  claimString(claims, "email"),
		Role:   claimString(claims, "role"),
	}
	// Tokens from the original account service carry "id" instead of "user_id"
	if userClaims.UserID == "" {
		userClaims.UserID = claimString(claims, "id")
	}
	if userClaims.UserID == "" || userClaims.Role == "" {
		return UserClaims{}, fmt.Errorf("%w: token is missing user id or role", ErrUnauthorized)
	}
	return userClaims, nil
}

// IssueToken signs claims with the configured secret
func (a *Authenticator) IssueToken(claims UserClaims, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": claims.UserID,
		"email":   claims.Email,
		"role":    claims.Role,
		"exp":     time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(a.secret)
}

// Auth middleware validates JWT token and adds user claims to context
func (a *Authenticator) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			a.log.Debug().Str("path", r.URL.Path).Msg("❌ No authorization header")
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			a.log.Debug().Int("parts", len(parts)).Msg("❌ Invalid authorization header format")
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		userClaims, err := a.ParseToken(parts[1])
		if err != nil {
			a.log.Warn().Err(err).Str("path", r.URL.Path).Msg("❌ Invalid token")
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, userClaims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole middleware checks if user has one of the roles (must be used after Auth)
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userClaims, ok := GetUserFromContext(r)
			if !ok {
				utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			for _, role := range roles {
				if userClaims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			utils.RespondError(w, http.StatusForbidden, "Forbidden")
		})
	}
}

// GetUserFromContext extracts user claims from request context
func GetUserFromContext(r *http.Request) (UserClaims, bool) {
	userClaims, ok := r.Context().Value(UserContextKey).(UserClaims)
	return userClaims, ok
}

func claimString(claims jwt.MapClaims, key string) string {
	switch v := claims[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	}
	return ""
}

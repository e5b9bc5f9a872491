package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"serviceinfo/internal/auth"
	"serviceinfo/internal/models"
	"serviceinfo/internal/repository"
	"serviceinfo/internal/services"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthMiddleware struct {
	jwt         *auth.JWTManager
	authService *services.AuthService
	providers   *services.ProviderService
	logr        *zap.Logger
}

type contextKey string

const (
	ContextUserIDKey   contextKey = "userID"
	ContextClaimsKey   contextKey = "claims"
	ContextProviderKey contextKey = "provider"
)

// NewAuthMiddleware creates a reusable JWT auth middleware instance
func NewAuthMiddleware(jwt *auth.JWTManager, authService *services.AuthService, providers *services.ProviderService, logr *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwt:         jwt,
		authService: authService,
		providers:   providers,
		logr:        logr,
	}
}

// JWTAuth validates the access token and attaches the caller to the request context
func (m *AuthMiddleware) JWTAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "missing authorization header", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			http.Error(w, "invalid token format", http.StatusUnauthorized)
			return
		}

		claims, err := m.jwt.VerifyToken(tokenString, auth.AccessToken)
		if err != nil {
			m.logr.Debug("token rejected", zap.Error(err))
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}
		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			http.Error(w, "invalid token claims", http.StatusUnauthorized)
			return
		}

		// Validate token version from the store
		valid, err := m.authService.CheckTokenVersion(r.Context(), claims.UserID, claims.TokenVersion)
		if err != nil {
			m.logr.Error("failed checking token version", zap.Error(err), zap.String("user_id", claims.UserID))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if !valid {
			m.logr.Warn("token version invalid", zap.String("user_id", claims.UserID))
			http.Error(w, "token revoked or invalid", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ContextUserIDKey, userID)
		ctx = context.WithValue(ctx, ContextClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole lets through callers whose token carries role. Must run after JWTAuth.
func (m *AuthMiddleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFrom(r.Context())
			if claims == nil || !slices.Contains(claims.Roles, role) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireProvider resolves the caller's provider. Must run after JWTAuth.
func (m *AuthMiddleware) RequireProvider(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserIDFrom(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		p, err := m.providers.GetByUser(r.Context(), userID)
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if err != nil {
			m.logr.Error("provider lookup failed", zap.Error(err), zap.String("user_id", userID.String()))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ContextProviderKey, p)))
	})
}

func UserIDFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ContextUserIDKey).(uuid.UUID)
	return id, ok
}

func ClaimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(ContextClaimsKey).(*auth.Claims)
	return c
}

// ProviderFrom returns the provider stored by RequireProvider, or nil.
func ProviderFrom(ctx context.Context) *models.Provider {
	p, _ := ctx.Value(ContextProviderKey).(*models.Provider)
	return p
}

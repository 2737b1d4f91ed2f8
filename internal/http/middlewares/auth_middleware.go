package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/contacthub/internal/actorctx"
	"github.com/geocoder89/contacthub/internal/domain/user"
	"github.com/geocoder89/contacthub/internal/observability"
	"github.com/gin-gonic/gin"
)

// TokenVerifier checks signature and expiry and returns the embedded user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

type UserLoader interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

// AuthMiddleware is the gate in front of every protected route. A request
// passes only with a valid bearer token that is still the user's stored
// session token.
type AuthMiddleware struct {
	jwt   TokenVerifier
	users UserLoader
	prom  *observability.Prom
	log   *slog.Logger
}

func NewAuthMiddleware(jwt TokenVerifier, users UserLoader, prom *observability.Prom, log *slog.Logger) *AuthMiddleware {
	if log == nil {
		log = slog.Default()
	}
	return &AuthMiddleware{jwt: jwt, users: users, prom: prom, log: log}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			m.reject(c, "missing", "unauthorized", "Not authorized")
			return
		}

		userID, err := m.jwt.Verify(raw)
		if err != nil {
			m.reject(c, "invalid", "invalid_token", "Invalid or expired token")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		u, err := m.users.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				m.reject(c, "unknown_user", "unauthorized", "Not authorized")
				return
			}
			m.log.ErrorContext(c.Request.Context(), "auth_user_lookup_failed", "user_id", userID, "err", err)
			abortJSON(c, http.StatusInternalServerError, "internal_error", "Internal server error")
			return
		}

		// logout or a newer login replaced this token
		if !u.HasSession(raw) {
			m.reject(c, "stale", "unauthorized", "Not authorized")
			return
		}

		c.Set(CtxUserID, u.ID)
		c.Set(CtxUser, u)
		c.Request = c.Request.WithContext(actorctx.WithUserID(c.Request.Context(), u.ID))

		c.Next()
	}
}

func (m *AuthMiddleware) reject(c *gin.Context, reason, code, message string) {
	m.prom.AuthRejected(reason)
	abortJSON(c, http.StatusUnauthorized, code, message)
}

// bearerToken extracts <token> from "Bearer <token>".
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// CurrentUser returns the user the gate attached to the request.
func CurrentUser(c *gin.Context) (user.User, bool) {
	v, ok := c.Get(CtxUser)
	if !ok {
		return user.User{}, false
	}
	u, ok := v.(user.User)
	return u, ok
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	id := c.GetString(CtxUserID)
	return id, id != ""
}

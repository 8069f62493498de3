package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/tkellner/homelab-manager/internal/auth"
	"github.com/tkellner/homelab-manager/internal/authz"
	"github.com/tkellner/homelab-manager/internal/db"
)

// ActorKey is the gin context key the authenticated actor is stored under.
const ActorKey = "actor"

// UserResolver loads the token subject so deleted users cannot keep using
// otherwise-valid tokens.
type UserResolver interface {
	GetUserByID(id int64) (*db.User, error)
}

// AuthRequired authenticates the bearer token and stores the actor in the
// request context. Every failure collapses to a single 401 response; expiry
// is distinguished in the log line only.
func AuthRequired(secret string, users UserResolver, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := resolveClaims(c, secret)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				logger.Info("expired token rejected", zap.String("path", c.Request.URL.Path))
			}
			abortUnauthorized(c)
			return
		}

		user, err := users.GetUserByID(claims.UserID)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		c.Set(ActorKey, authz.Actor{ID: user.ID, Username: user.Username, Role: user.Role})
		c.Next()
	}
}

// OptionalAuth resolves the actor when a valid token is present and stays
// silent otherwise; it never fails the request.
func OptionalAuth(secret string, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := resolveClaims(c, secret)
		if err == nil {
			if user, err := users.GetUserByID(claims.UserID); err == nil {
				c.Set(ActorKey, authz.Actor{ID: user.ID, Username: user.Username, Role: user.Role})
			}
		}
		c.Next()
	}
}

func resolveClaims(c *gin.Context, secret string) (*auth.Claims, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, errors.New("authorization header missing")
	}

	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		return nil, errors.New("bearer token missing")
	}

	return auth.ValidateToken(token, secret)
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": "Invalid or expired token",
	})
}

// Actor fetches the authenticated actor set by AuthRequired.
func Actor(c *gin.Context) (authz.Actor, bool) {
	v, ok := c.Get(ActorKey)
	if !ok {
		return authz.Actor{}, false
	}
	actor, ok := v.(authz.Actor)
	return actor, ok
}

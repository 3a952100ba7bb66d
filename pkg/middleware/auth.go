package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Mariodrm17/Practica1/pkg/jwt"
)

const (
	UserIDKey     = "user_id"
	UsernameKey   = "username"
	RoleKey       = "role"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "

	// Browsers cannot set headers on websocket upgrades.
	TokenQueryKey = "token"
)

// Identity is the authenticated identity claim resolved by the session gateway.
type Identity struct {
	UserID   string
	Username string
	Role     string
}

// IdentityResolver turns an opaque token into an identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*Identity, error)
}

// JWTResolver resolves identities from HS256 tokens.
type JWTResolver struct {
	manager *jwt.Manager
}

// NewJWTResolver creates a resolver backed by a JWT manager.
func NewJWTResolver(m *jwt.Manager) *JWTResolver {
	return &JWTResolver{manager: m}
}

func (r *JWTResolver) Resolve(_ context.Context, token string) (*Identity, error) {
	claims, err := r.manager.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	return &Identity{UserID: claims.UserID, Username: claims.Username, Role: claims.Role}, nil
}

// AuthMiddleware requires a resolved identity on every request it guards.
type AuthMiddleware struct {
	resolver IdentityResolver
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(resolver IdentityResolver) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver}
}

// RequireAuth returns a Gin middleware that rejects requests without an identity.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := tokenFromRequest(c)
		if !ok {
			abort(c, "missing authorization token")
			return
		}

		identity, err := m.resolver.Resolve(c.Request.Context(), token)
		if err != nil || identity == nil || identity.UserID == "" {
			abort(c, "invalid or expired token")
			return
		}

		c.Set(UserIDKey, identity.UserID)
		c.Set(UsernameKey, identity.Username)
		c.Set(RoleKey, identity.Role)

		c.Next()
	}
}

func tokenFromRequest(c *gin.Context) (string, bool) {
	if header := c.GetHeader(AuthHeaderKey); header != "" {
		if !strings.HasPrefix(header, BearerPrefix) {
			return "", false
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
		return token, token != ""
	}
	if token := c.Query(TokenQueryKey); token != "" {
		return token, true
	}
	return "", false
}

func abort(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
}

// GetIdentity extracts the identity set by RequireAuth.
func GetIdentity(c *gin.Context) (Identity, bool) {
	userID := c.GetString(UserIDKey)
	if userID == "" {
		return Identity{}, false
	}
	return Identity{
		UserID:   userID,
		Username: c.GetString(UsernameKey),
		Role:     c.GetString(RoleKey),
	}, true
}

// GetUserID extracts user ID from Gin context.
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

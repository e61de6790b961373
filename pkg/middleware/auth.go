package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/docdesk/docdesk/backend/go-services/internal/config"
	"github.com/docdesk/docdesk/backend/go-services/internal/models"
	"github.com/docdesk/docdesk/backend/go-services/internal/sessions"
	"github.com/docdesk/docdesk/backend/go-services/internal/tokens"
	"github.com/docdesk/docdesk/backend/go-services/pkg/logger"
	"github.com/docdesk/docdesk/backend/go-services/pkg/respond"
)

const (
	claimsKey = "claims"
	userKey   = "user"
	tokenKey  = "accessToken"
)

var errRevoked = errors.New("token has been revoked")

// Verifier turns a raw bearer token into verified claims.
type Verifier interface {
	Verify(ctx context.Context, raw string) (*tokens.Claims, error)
}

// UserLookup loads the principal behind verified claims.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// JWTVerifier checks signature/expiry and rejects blacklisted tokens.
type JWTVerifier struct {
	cfg       *config.Config
	blacklist *sessions.Blacklist
}

func NewJWTVerifier(cfg *config.Config, bl *sessions.Blacklist) *JWTVerifier {
	return &JWTVerifier{cfg: cfg, blacklist: bl}
}

func (v *JWTVerifier) Verify(ctx context.Context, raw string) (*tokens.Claims, error) {
	claims, err := tokens.ParseAccessToken(v.cfg, raw)
	if err != nil {
		return nil, err
	}
	revoked, err := v.blacklist.Contains(ctx, raw)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, errRevoked
	}
	return claims, nil
}

// AuthMiddleware resolves an optional Bearer token. Requests without an
// Authorization header continue anonymously; a header that does not verify
// is rejected with 401 rather than downgraded to anonymous.
func AuthMiddleware(ver Verifier, users UserLookup, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.Next()
			return
		}
		token, ok := strings.CutPrefix(auth, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			respond.Error(c, log, http.StatusUnauthorized, "invalid_token", "Invalid Authorization header", nil)
			return
		}

		claims, err := ver.Verify(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, tokens.ErrInvalidToken) && !errors.Is(err, errRevoked) {
				log.Errorf("token verification failed: %v", err)
				respond.Error(c, log, http.StatusInternalServerError, "internal", "Token verification failed", nil)
				return
			}
			respond.Error(c, log, http.StatusUnauthorized, "invalid_token", "Invalid token", nil)
			return
		}
		uid, _ := claims.UserID()
		u, err := users.GetByID(c.Request.Context(), uid)
		if err != nil || u == nil || !u.IsActive {
			respond.Error(c, log, http.StatusUnauthorized, "invalid_token", "User not found or inactive", nil)
			return
		}

		c.Set(claimsKey, claims)
		c.Set(userKey, u)
		c.Set(tokenKey, token)
		c.Set(respond.UserIDKey, u.ID)
		c.Next()
	}
}

// RequireAuth rejects requests that AuthMiddleware left anonymous.
func RequireAuth(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			respond.Error(c, log, http.StatusUnauthorized, "unauthenticated", "Authentication credentials were not provided.", nil)
			return
		}
		c.Next()
	}
}

// RequireAuthForWrites applies RequireAuth to every method except GET, HEAD and OPTIONS.
func RequireAuthForWrites(log *logger.Logger) gin.HandlerFunc {
	required := RequireAuth(log)
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
		default:
			required(c)
		}
	}
}

// CurrentUser returns the authenticated principal, if any.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*models.User)
	return u, ok && u != nil
}

// CurrentClaims returns the verified token claims and the raw token, if any.
func CurrentClaims(c *gin.Context) (*tokens.Claims, string, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, "", false
	}
	claims, ok := v.(*tokens.Claims)
	return claims, c.GetString(tokenKey), ok
}

package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docdesk/docdesk/backend/go-services/internal/config"
	"github.com/docdesk/docdesk/backend/go-services/internal/sessions"
	"github.com/docdesk/docdesk/backend/go-services/internal/tokens"
	"github.com/docdesk/docdesk/backend/go-services/internal/users"
	"github.com/docdesk/docdesk/backend/go-services/pkg/logger"
	"github.com/docdesk/docdesk/backend/go-services/pkg/middleware"
	"github.com/docdesk/docdesk/backend/go-services/pkg/respond"
)

// LoginRequest is the password login body.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg         *config.Config
	usersSvc    *users.Service
	sessionsSvc *sessions.Service
	blacklist   *sessions.Blacklist
	log         *logger.Logger
}

// NewAuthHandler wires the auth endpoints. sessionsSvc may be nil, in which
// case login issues no refresh token.
func NewAuthHandler(cfg *config.Config, u *users.Service, s *sessions.Service, bl *sessions.Blacklist, log *logger.Logger) *AuthHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthHandler{cfg: cfg, usersSvc: u, sessionsSvc: s, blacklist: bl, log: log}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/login/", h.Login)
	a.POST("/refresh/", h.Refresh)

	authed := a.Group("", middleware.RequireAuth(h.log))
	authed.POST("/logout/", h.Logout)
	authed.GET("/profile/", h.Profile)
	authed.PUT("/profile/", h.UpdateProfile(true))
	authed.PATCH("/profile/", h.UpdateProfile(false))
}

// bindOptional decodes a JSON body when one is present.
func bindOptional(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Login checks username/password and issues an access token plus a refresh session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := bindOptional(c, &req); err != nil {
		respond.Error(c, h.log, http.StatusBadRequest, "validation_error", "Malformed request body", err.Error())
		return
	}
	missing := map[string]string{}
	if strings.TrimSpace(req.Username) == "" {
		missing["username"] = "This field is required."
	}
	if req.Password == "" {
		missing["password"] = "This field is required."
	}
	if len(missing) > 0 {
		respond.Error(c, h.log, http.StatusBadRequest, "validation_error", "Invalid input.", missing)
		return
	}

	ctx := c.Request.Context()
	u, err := h.usersSvc.Authenticate(ctx, req.Username, req.Password)
	if errors.Is(err, users.ErrInvalidCredentials) {
		respond.Error(c, h.log, http.StatusBadRequest, "invalid_credentials", "Unable to log in with provided credentials.", nil)
		return
	}
	if err != nil {
		h.log.Errorf("login %q: %v", req.Username, err)
		respond.Error(c, h.log, http.StatusInternalServerError, "internal", "Login failed", nil)
		return
	}

	access, err := tokens.GenerateAccessToken(h.cfg, u, h.cfg.JWT.AccessTokenTTL)
	if err != nil {
		h.log.Errorf("sign access token: %v", err)
		respond.Error(c, h.log, http.StatusInternalServerError, "internal", "Failed to create access token", nil)
		return
	}
	resp := gin.H{
		"user":       u.Summary(),
		"token":      access,
		"expires_in": int(h.cfg.JWT.AccessTokenTTL.Seconds()),
	}
	if h.sessionsSvc != nil {
		rft, err := h.sessionsSvc.CreateSession(ctx, u.ID, h.cfg.JWT.RefreshTokenTTL)
		if err != nil {
			h.log.Errorf("create session for user %d: %v", u.ID, err)
			respond.Error(c, h.log, http.StatusInternalServerError, "internal", "Failed to create session", nil)
			return
		}
		resp["refresh_token"] = rft
	}
	h.log.Infof("user %s logged in", u.Username)
	c.JSON(http.StatusOK, resp)
}

// Refresh accepts a refresh token and returns a new access token
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := bindOptional(c, &req); err != nil || req.RefreshToken == "" {
		respond.Error(c, h.log, http.StatusBadRequest, "validation_error", "Invalid input.", map[string]string{"refresh_token": "This field is required."})
		return
	}
	if h.sessionsSvc == nil {
		respond.Error(c, h.log, http.StatusUnauthorized, "invalid_token", "Invalid refresh token", nil)
		return
	}
	ctx := c.Request.Context()
	sess, err := h.sessionsSvc.ValidateRefresh(ctx, req.RefreshToken)
	if err != nil {
		h.log.Errorf("validate refresh: %v", err)
		respond.Error(c, h.log, http.StatusInternalServerError, "internal", "Refresh failed", nil)
		return
	}
	if sess == nil {
		respond.Error(c, h.log, http.StatusUnauthorized, "invalid_token", "Invalid refresh token", nil)
		return
	}
	u, err := h.usersSvc.GetByID(ctx, sess.UserID)
	if err != nil || !u.IsActive {
		respond.Error(c, h.log, http.StatusUnauthorized, "invalid_token", "Invalid refresh token", nil)
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg, u, h.cfg.JWT.AccessTokenTTL)
	if err != nil {
		h.log.Errorf("sign access token: %v", err)
		respond.Error(c, h.log, http.StatusInternalServerError, "internal", "Failed to create access token", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": access, "expires_in": int(h.cfg.JWT.AccessTokenTTL.Seconds())})
}

// Logout blacklists the presented access token until it expires and drops
// the refresh session named in the body, if any. With "all": true every
// refresh session of the user is dropped.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
		All          bool   `json:"all"`
	}
	if err := bindOptional(c, &req); err != nil {
		respond.Error(c, h.log, http.StatusBadRequest, "validation_error", "Malformed request body", err.Error())
		return
	}
	ctx := c.Request.Context()
	if claims, raw, ok := middleware.CurrentClaims(c); ok && claims.ExpiresAt != nil {
		if err := h.blacklist.Add(ctx, raw, time.Until(claims.ExpiresAt.Time)); err != nil {
			h.log.Errorf("blacklist access token: %v", err)
			respond.Error(c, h.log, http.StatusInternalServerError, "internal", "Failed to revoke access token", nil)
			return
		}
	}
	if req.RefreshToken != "" && h.sessionsSvc != nil {
		if err := h.sessionsSvc.DeleteRefresh(ctx, req.RefreshToken); err != nil {
			h.log.Errorf("delete refresh session: %v", err)
			respond.Error(c, h.log, http.StatusInternalServerError, "internal", "Failed to remove session", nil)
			return
		}
	}
	u, _ := middleware.CurrentUser(c)
	if req.All && h.sessionsSvc != nil && u != nil {
		if err := h.sessionsSvc.RevokeAll(ctx, u.ID); err != nil {
			h.log.Errorf("revoke sessions of user %d: %v", u.ID, err)
			respond.Error(c, h.log, http.StatusInternalServerError, "internal", "Failed to remove session", nil)
			return
		}
	}
	if u != nil {
		h.log.Infof("user %s logged out", u.Username)
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Profile returns the current user.
func (h *AuthHandler) Profile(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, u.Summary())
}

type profileRequest struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// UpdateProfile edits the current user. A full update requires username.
func (h *AuthHandler) UpdateProfile(full bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, _ := middleware.CurrentUser(c)
		var req profileRequest
		if err := bindOptional(c, &req); err != nil {
			respond.Error(c, h.log, http.StatusBadRequest, "validation_error", "Malformed request body", err.Error())
			return
		}
		if full && req.Username == nil {
			respond.Error(c, h.log, http.StatusBadRequest, "validation_error", "Invalid input.", map[string]string{"username": "This field is required."})
			return
		}
		updated, err := h.usersSvc.UpdateProfile(c.Request.Context(), u.ID, users.ProfileUpdate{
			Username:  req.Username,
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		})
		switch {
		case errors.Is(err, users.ErrDuplicateUsername):
			respond.Error(c, h.log, http.StatusBadRequest, "validation_error", "Invalid input.", map[string]string{"username": "A user with that username already exists."})
			return
		case errors.Is(err, users.ErrValidation):
			respond.Error(c, h.log, http.StatusBadRequest, "validation_error", "Invalid input.", map[string]string{"username": err.Error()})
			return
		case err != nil:
			h.log.Errorf("update profile %d: %v", u.ID, err)
			respond.Error(c, h.log, http.StatusInternalServerError, "internal", "Failed to update profile", nil)
			return
		}
		c.JSON(http.StatusOK, updated.Summary())
	}
}

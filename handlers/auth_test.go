package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docdesk/docdesk/backend/go-services/internal/config"
	"github.com/docdesk/docdesk/backend/go-services/internal/sessions"
	"github.com/docdesk/docdesk/backend/go-services/internal/users"
	"github.com/docdesk/docdesk/backend/go-services/pkg/logger"
	"github.com/docdesk/docdesk/backend/go-services/pkg/middleware"
)

type authFixture struct {
	engine *gin.Engine
	redis  *mr.Miniredis
	users  *users.Service
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)

	cfg := &config.Config{JWT: config.JWTConfig{
		Secret:          "test-secret-test-secret-test-secret",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	}}
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	bl := sessions.NewBlacklist(client)
	sess := sessions.NewService(sessions.NewRedisRepository(client, ""))
	usvc := users.NewService(users.NewMemoryRepository())

	_, err = usvc.Create(context.Background(), users.NewUser{Username: "alice", Email: "alice@example.com", Password: "s3cret"})
	require.NoError(t, err)
	_, err = usvc.Create(context.Background(), users.NewUser{Username: "bob", Password: "hunter2"})
	require.NoError(t, err)

	g := gin.New()
	g.Use(middleware.AuthMiddleware(middleware.NewJWTVerifier(cfg, bl), usvc, logger.Nop()))
	NewAuthHandler(cfg, usvc, sess, bl, logger.Nop()).Register(g.Group("/api"))
	return &authFixture{engine: g, redis: m, users: usvc}
}

func (f *authFixture) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

type loginResponse struct {
	User struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
	} `json:"user"`
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

func (f *authFixture) login(t *testing.T, username, password string) loginResponse {
	t.Helper()
	w := f.do(http.MethodPost, "/api/auth/login/", "", `{"username":"`+username+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp loginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestLoginSuccess(t *testing.T) {
	f := newAuthFixture(t)
	resp := f.login(t, "alice", "s3cret")
	assert.Equal(t, "alice", resp.User.Username)
	assert.Equal(t, "alice@example.com", resp.User.Email)
	assert.NotEmpty(t, resp.Token)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, 3600, resp.ExpiresIn)
	assert.True(t, f.redis.Exists("session:"+resp.RefreshToken))
}

func TestLoginFailures(t *testing.T) {
	f := newAuthFixture(t)

	w := f.do(http.MethodPost, "/api/auth/login/", "", `{"username":"alice","password":"wrong"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"error":"Unable to log in with provided credentials.","code":"invalid_credentials"}`, w.Body.String())

	w = f.do(http.MethodPost, "/api/auth/login/", "", `{"username":"nobody","password":"x"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/auth/login/", "", `{"username":"alice"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), `"password"`)
	require.Contains(t, w.Body.String(), `"validation_error"`)
}

func TestProfileRequiresAuth(t *testing.T) {
	f := newAuthFixture(t)
	w := f.do(http.MethodGet, "/api/auth/profile/", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodGet, "/api/auth/profile/", "not-a-jwt", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "invalid_token")
}

func TestProfileGetAndUpdate(t *testing.T) {
	f := newAuthFixture(t)
	tok := f.login(t, "alice", "s3cret").Token

	w := f.do(http.MethodGet, "/api/auth/profile/", tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"username":"alice"`)
	require.NotContains(t, w.Body.String(), "password")

	w = f.do(http.MethodPatch, "/api/auth/profile/", tok, `{"first_name":"Alice","last_name":"Liddell"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"first_name":"Alice"`)
	require.Contains(t, w.Body.String(), `"username":"alice"`)

	w = f.do(http.MethodPut, "/api/auth/profile/", tok, `{"email":"x@example.com"}`)
	require.Equal(t, http.StatusBadRequest, w.Code, "PUT needs username")

	w = f.do(http.MethodPatch, "/api/auth/profile/", tok, `{"username":"bob"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "already exists")
}

func TestRefresh(t *testing.T) {
	f := newAuthFixture(t)
	resp := f.login(t, "alice", "s3cret")

	w := f.do(http.MethodPost, "/api/auth/refresh/", "", `{"refresh_token":"`+resp.RefreshToken+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.NotEmpty(t, out.Token)

	w = f.do(http.MethodPost, "/api/auth/refresh/", "", `{"refresh_token":"bogus"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodPost, "/api/auth/refresh/", "", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogoutRevokesTokens(t *testing.T) {
	f := newAuthFixture(t)
	resp := f.login(t, "alice", "s3cret")

	w := f.do(http.MethodPost, "/api/auth/logout/", resp.Token, `{"refresh_token":"`+resp.RefreshToken+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"message":"logged out"}`, w.Body.String())

	require.True(t, f.redis.Exists("blacklist:access:"+resp.Token))
	require.False(t, f.redis.Exists("session:"+resp.RefreshToken))

	w = f.do(http.MethodGet, "/api/auth/profile/", resp.Token, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "invalid_token")

	w = f.do(http.MethodPost, "/api/auth/refresh/", "", `{"refresh_token":"`+resp.RefreshToken+`"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutEverywhere(t *testing.T) {
	f := newAuthFixture(t)
	first := f.login(t, "alice", "s3cret")
	second := f.login(t, "alice", "s3cret")
	other := f.login(t, "bob", "hunter2")

	w := f.do(http.MethodPost, "/api/auth/logout/", first.Token, `{"all":true}`)
	require.Equal(t, http.StatusOK, w.Code)

	for _, rt := range []string{first.RefreshToken, second.RefreshToken} {
		w = f.do(http.MethodPost, "/api/auth/refresh/", "", `{"refresh_token":"`+rt+`"}`)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w = f.do(http.MethodPost, "/api/auth/refresh/", "", `{"refresh_token":"`+other.RefreshToken+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestLogoutWithoutBodyAndAnonymous(t *testing.T) {
	f := newAuthFixture(t)
	tok := f.login(t, "bob", "hunter2").Token

	w := f.do(http.MethodPost, "/api/auth/logout/", tok, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodPost, "/api/auth/logout/", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/service"
	"github.com/wfunc/bingo-game/internal/utils"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type jwtAuth struct {
	manager *utils.JWTManager
}

func (a *jwtAuth) IssueAnonymous(ctx context.Context) (*service.TokenResponse, error) {
	identity := utils.NewIdentity()
	token, expiresAt, err := a.manager.GenerateIdentityToken(identity)
	if err != nil {
		return nil, err
	}
	return &service.TokenResponse{Identity: identity, AccessToken: token, TokenType: "Bearer", ExpiresAt: expiresAt}, nil
}

func (a *jwtAuth) ValidateToken(ctx context.Context, token string) (*utils.IdentityClaims, error) {
	claims, err := a.manager.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTokenInvalid)
	}
	return claims, nil
}

func newTestEngine(t *testing.T) (*gin.Engine, *jwtAuth) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	auth := &jwtAuth{manager: utils.NewJWTManager("middleware-test", "bingo-test", time.Hour)}
	m := NewAuthMiddleware(auth)

	engine := gin.New()
	engine.Use(RequestID(), Logger(zap.NewNop()), Recovery(zap.NewNop()))
	engine.GET("/private", m.RequireIdentity(), func(c *gin.Context) {
		identity, _ := GetIdentity(c)
		c.String(http.StatusOK, identity)
	})
	engine.GET("/public", m.OptionalIdentity(), func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		c.JSON(http.StatusOK, gin.H{"identity": identity, "authenticated": ok})
	})
	engine.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	return engine, auth
}

func issue(t *testing.T, auth *jwtAuth) *service.TokenResponse {
	t.Helper()
	resp, err := auth.IssueAnonymous(context.Background())
	require.NoError(t, err)
	return resp
}

func TestRequireIdentityTokenSources(t *testing.T) {
	engine, auth := newTestEngine(t)
	token := issue(t, auth)

	tests := []struct {
		name  string
		apply func(*http.Request)
	}{
		{"Bearer头", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token.AccessToken) }},
		{"X-Access-Token头", func(r *http.Request) { r.Header.Set("X-Access-Token", token.AccessToken) }},
		{"Cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "access_token", Value: token.AccessToken}) }},
		{"Query参数", func(r *http.Request) { r.URL.RawQuery = "token=" + token.AccessToken }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			tt.apply(req)
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, token.Identity, w.Body.String())
		})
	}
}

func TestRequireIdentityRejects(t *testing.T) {
	engine, _ := newTestEngine(t)

	tests := []struct {
		name   string
		header string
		code   apperrors.ErrorCode
	}{
		{"缺少令牌", "", apperrors.ErrAuthentication},
		{"无效令牌", "Bearer not-a-token", apperrors.ErrTokenInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var resp apperrors.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.NotEmpty(t, resp.RequestID)
			assert.Empty(t, resp.Error.Stack)
		})
	}
}

func TestOptionalIdentity(t *testing.T) {
	engine, auth := newTestEngine(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/public", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"identity":"","authenticated":false}`, w.Body.String())

	// 无效令牌不拦截
	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	req.Header.Set("Authorization", "Bearer broken")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)

	token := issue(t, auth)
	req = httptest.NewRequest(http.MethodGet, "/public", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), token.Identity)
}

func TestRequestIDAndRecovery(t *testing.T) {
	engine, _ := newTestEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))

	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, apperrors.ErrUnknown, resp.Error.Code)
	assert.Equal(t, "req-42", resp.RequestID)
}

func TestRecoveryLogsStack(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.ErrorLevel)

	engine := gin.New()
	engine.Use(RequestID(), Recovery(zap.New(core)))
	engine.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set("X-Request-ID", "req-7")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	entries := logs.FilterMessage("panic recovered").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "boom", fields["panic"])
	assert.Equal(t, "/panic", fields["path"])
	assert.Equal(t, "req-7", fields["request_id"])
	assert.NotEmpty(t, fields["stack"])
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"panchayat-connect/internal/models"
	"panchayat-connect/internal/service"
)

type stubAuth struct {
	sessions map[string]*models.Session
	err      error
}

func (s stubAuth) Authenticate(_ context.Context, token string) (*models.Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	if session, ok := s.sessions[token]; ok {
		return session, nil
	}
	return nil, service.ErrInvalidToken
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(auth Authenticator, guard gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.GET("/protected", AuthMiddleware(auth, zap.NewNop()), guard, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"email": SessionFrom(c).Email})
	})
	return r
}

func do(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func teamID(v int64) *int64 { return &v }

func TestAuthMiddleware(t *testing.T) {
	auth := stubAuth{sessions: map[string]*models.Session{
		"admin-token": {Email: "admin@panchayat.local", Role: models.RoleAdmin},
		"team-token":  {Email: "roads@panchayat.local", Role: models.RoleTeam, TeamID: teamID(1)},
		"orphan-team": {Email: "lost@panchayat.local", Role: models.RoleTeam},
	}}

	tests := []struct {
		name   string
		guard  gin.HandlerFunc
		header string
		want   int
	}{
		{"missing header", AdminOnly(), "", http.StatusUnauthorized},
		{"wrong scheme", AdminOnly(), "Basic admin-token", http.StatusUnauthorized},
		{"unknown token", AdminOnly(), "Bearer forged", http.StatusUnauthorized},
		{"admin on admin route", AdminOnly(), "Bearer admin-token", http.StatusOK},
		{"lowercase scheme", AdminOnly(), "bearer admin-token", http.StatusOK},
		{"team on admin route", AdminOnly(), "Bearer team-token", http.StatusForbidden},
		{"team on team route", TeamOnly(), "Bearer team-token", http.StatusOK},
		{"admin on team route", TeamOnly(), "Bearer admin-token", http.StatusForbidden},
		{"team without team id", TeamOnly(), "Bearer orphan-team", http.StatusForbidden},
		{"either role", RequireRole(models.RoleAdmin, models.RoleTeam), "Bearer team-token", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(newRouter(auth, tt.guard), tt.header)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestAuthMiddleware_BackendFailure(t *testing.T) {
	w := do(newRouter(stubAuth{err: errors.New("db down")}, AdminOnly()), "Bearer admin-token")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestIPRateLimiter(t *testing.T) {
	now := time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(60, 2)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"))

	now = now.Add(time.Second)
	assert.True(t, l.Allow("10.0.0.1"))
}

func TestIPRateLimiter_Middleware(t *testing.T) {
	l := NewIPRateLimiter(1, 1)
	r := gin.New()
	r.POST("/api/issues", l.Middleware(), func(c *gin.Context) { c.Status(http.StatusCreated) })

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/issues", nil)
		req.RemoteAddr = "192.0.2.10:5555"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	require.Equal(t, http.StatusCreated, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}

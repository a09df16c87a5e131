package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/made-media/billdesk/internal/auth"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *auth.JWTManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	m := NewAuthMiddleware(jwtManager)

	router := gin.New()
	router.GET("/api/whoami", m.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"client_code": GetClaims(c).ClientCode})
	})
	router.GET("/api/admin", m.RequireAuth(), m.RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	router.GET("/report", m.RequireAuth(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router, jwtManager
}

func token(t *testing.T, m *auth.JWTManager, role, clientCode string) string {
	t.Helper()
	tok, err := m.GenerateToken(auth.User{Username: "u", ClientCode: clientCode, Role: role})
	require.NoError(t, err)
	return tok
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	router, _ := newAuthRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/whoami", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthRedirectsBrowserRoutes(t *testing.T) {
	router, _ := newAuthRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/report", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestRequireAuthAcceptsCookie(t *testing.T) {
	router, jwtManager := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token(t, jwtManager, "client", "AVI")})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "AVI")
}

func TestRequireAuthAcceptsBearer(t *testing.T) {
	router, jwtManager := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, jwtManager, "client", "AVI"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAdmin(t *testing.T) {
	router, jwtManager := newAuthRouter(t)

	t.Run("client role is forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, jwtManager, "client", "AVI"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin role passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, jwtManager, auth.RoleAdmin, "admin"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"campusdesk/internal/apperr"
	"campusdesk/internal/authz"
	"campusdesk/internal/models"
	"campusdesk/internal/utils"
	"campusdesk/internal/web"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubLoader struct {
	users map[uint]*models.User
	calls int
}

func (s *stubLoader) Get(_ context.Context, id uint) (*models.User, error) {
	s.calls++
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, apperr.NotFound("account not found")
}

func withUser(u *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		if u != nil {
			c.Set(CheckUserKey, u)
		}
		c.Next()
	}
}

func guardedEngine(t *testing.T, u *models.User, action authz.Action) *gin.Engine {
	t.Helper()
	enforcer, err := authz.NewEnforcer()
	require.NoError(t, err)
	r := gin.New()
	r.HTMLRender = web.Renderer()
	r.GET("/x", withUser(u), RequireAction(enforcer, action), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func get(r http.Handler, path, accept string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAction(t *testing.T) {
	student := &models.User{ID: 1, Role: authz.RoleStudent}
	admin := &models.User{ID: 2, Role: authz.RoleAdmin}

	w := get(guardedEngine(t, student, authz.ActionVote), "/x", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(guardedEngine(t, nil, authz.ActionBrowse), "/x", "")
	assert.Equal(t, http.StatusOK, w.Code, "browse is open to anonymous callers")

	w = get(guardedEngine(t, nil, authz.ActionVote), "/x", "application/json")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = get(guardedEngine(t, student, authz.ActionDecideLeave), "/x", "application/json")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"unauthorized"`)

	w = get(guardedEngine(t, student, authz.ActionDecideLeave), "/x", "text/html,application/xhtml+xml")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Access denied")
	assert.Contains(t, w.Body.String(), "decide leave applications")
	assert.Contains(t, w.Body.String(), `href="/"`)

	w = get(guardedEngine(t, admin, authz.ActionDecideLeave), "/x", "text/html")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRequired(t *testing.T) {
	r := gin.New()
	r.GET("/anon", AuthRequired(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/me", withUser(&models.User{ID: 7}), AuthRequired(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusUnauthorized, get(r, "/anon", "").Code)
	w := get(r, "/anon", "text/html")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.Equal(t, http.StatusNoContent, get(r, "/me", "").Code)
}

func TestLoadUserCachesLookups(t *testing.T) {
	loader := &stubLoader{users: map[uint]*models.User{5: {ID: 5, Name: "Aman", Role: authz.RoleStudent}}}
	cache := utils.NewCache(16)

	r := gin.New()
	r.Use(sessions.Sessions("campusdesk_session", cookie.NewStore([]byte("test-secret"))))
	r.Use(LoadUser(loader, cache))
	r.POST("/login", func(c *gin.Context) {
		require.NoError(t, Login(c, loader.users[5]))
		c.Status(http.StatusNoContent)
	})
	r.GET("/whoami", func(c *gin.Context) {
		role, ok := CurrentRole(c)
		if !ok {
			c.String(http.StatusOK, "unresolved")
			return
		}
		c.String(http.StatusOK, string(role))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	sessionCookie := w.Header().Get("Set-Cookie")
	require.NotEmpty(t, sessionCookie)

	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Cookie", strings.Split(sessionCookie, ";")[0])
		w = httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, "student", w.Body.String())
	}
	assert.Equal(t, 1, loader.calls)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, "unresolved", w.Body.String())
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	w := get(r, "/", "")
	id := w.Header().Get(RequestIDHeader)
	assert.Len(t, id, 36)
	assert.Equal(t, id, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestBindingValidators(t *testing.T) {
	require.NoError(t, RegisterValidators())
	require.NoError(t, RegisterValidators())

	type form struct {
		Phone string `json:"phone" binding:"required,phone"`
		Date  string `json:"date" binding:"required,date"`
	}
	bind := func(body string) error {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		var f form
		if err := c.ShouldBindJSON(&f); err != nil {
			return BindError(err)
		}
		return nil
	}

	assert.NoError(t, bind(`{"phone":"+91 98765 43210","date":"2025-01-10"}`))

	err := bind(`{"phone":"12345","date":"2025-01-10"}`)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, "phone must have at least 10 digits", apperr.Message(err))

	err = bind(`{"phone":"9876543210","date":"10-01-2025"}`)
	assert.Equal(t, "date must be YYYY-MM-DD", apperr.Message(err))

	err = bind(`{"phone":`)
	assert.Equal(t, "malformed request body", apperr.Message(err))
}

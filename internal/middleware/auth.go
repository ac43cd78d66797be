package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"campusdesk/internal/authz"
	"campusdesk/internal/models"
	"campusdesk/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	CheckUserKey   = "user"
	SessionUserKey = "user_id"
)

// userTTL bounds how long a role change made elsewhere (the promote
// command) takes to reach a running server.
const userTTL = time.Minute

// UserLoader looks a user up by id.
type UserLoader interface {
	Get(ctx context.Context, id uint) (*models.User, error)
}

func userCacheKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

// LoadUser resolves the session's user and stores it on the context.
// Lookups go through the LRU cache.
func LoadUser(users UserLoader, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		id, ok := session.Get(SessionUserKey).(uint)
		if !ok || id == 0 {
			c.Next()
			return
		}

		key := userCacheKey(id)
		if u, ok := cache.Get(key).(*models.User); ok {
			c.Set(CheckUserKey, u)
			c.Next()
			return
		}

		user, err := users.Get(c.Request.Context(), id)
		if err != nil {
			slog.Warn("dropping session for unknown user", "user_id", id, "error", err)
			session.Delete(SessionUserKey)
			_ = session.Save()
			c.Next()
			return
		}
		cache.Set(key, user, userTTL)
		c.Set(CheckUserKey, user)
		c.Next()
	}
}

// Login binds the session to user.
func Login(c *gin.Context, user *models.User) error {
	session := sessions.Default(c)
	session.Set(SessionUserKey, user.ID)
	return session.Save()
}

// Logout clears the session and forgets the cached user.
func Logout(c *gin.Context, cache *utils.Cache) error {
	session := sessions.Default(c)
	if id, ok := session.Get(SessionUserKey).(uint); ok {
		cache.Delete(userCacheKey(id))
	}
	session.Clear()
	return session.Save()
}

// CurrentUser returns the signed-in user, or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(CheckUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// CurrentRole returns the signed-in user's role. ok is false while no user
// is resolved for the request.
func CurrentRole(c *gin.Context) (role authz.Role, ok bool) {
	if u := CurrentUser(c); u != nil {
		return u.Role, true
	}
	return "", false
}

// AuthRequired rejects anonymous requests. Browsers are sent to the login
// page; API clients get a 401.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) != nil {
			c.Next()
			return
		}
		if wantsHTML(c) {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{"type": "unauthenticated", "message": "login required"},
		})
	}
}

func wantsHTML(c *gin.Context) bool {
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "text/html") && !strings.HasPrefix(c.GetHeader("Content-Type"), "application/json")
}

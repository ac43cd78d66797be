package handlers

import (
	"log/slog"
	"net/http"

	"campusdesk/internal/apperr"
	"campusdesk/internal/middleware"
	"campusdesk/internal/models"
	"campusdesk/internal/utils"

	"github.com/gin-gonic/gin"
)

// Render injects the common page variables before rendering name.
func Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}
	if user := middleware.CurrentUser(c); user != nil {
		obj["CurrentUser"] = user
	}
	obj["CurrentPath"] = c.Request.URL.Path
	c.HTML(code, name, obj)
}

// respondError writes err as {"error": {"type", "message"}} with the
// status its kind maps to. Unclassified errors are logged, not echoed.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			"path", c.Request.URL.Path,
			"request_id", c.GetString(middleware.RequestIDKey),
			"error", err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{"type": apperr.KindOf(err), "message": apperr.Message(err)},
	})
}

// bind decodes the JSON body into obj, mapping binding failures to
// validation errors.
func bind(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		respondError(c, middleware.BindError(err))
		return false
	}
	return true
}

// pathID parses the :id route parameter.
func pathID(c *gin.Context) (uint, bool) {
	id := utils.ParseID(c.Param("id"))
	if id == 0 {
		respondError(c, apperr.NotFound("not found"))
		return 0, false
	}
	return id, true
}

func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}

// Denied is the access-denied interstitial reachable by URL.
func Denied(c *gin.Context) {
	role, _ := middleware.CurrentRole(c)
	Render(c, http.StatusForbidden, "denied.html", gin.H{"Role": role})
}

// NotFound answers unmatched routes.
func NotFound(c *gin.Context) {
	if c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEHTML {
		Render(c, http.StatusNotFound, "error.html", gin.H{"Status": http.StatusNotFound, "Error": "page not found"})
		return
	}
	respondError(c, apperr.NotFound("route not found"))
}

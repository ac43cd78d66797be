package middleware

import (
	"log/slog"
	"net/http"

	"campusdesk/internal/authz"

	"github.com/gin-gonic/gin"
)

// RequireAction lets the request through only when the caller's role may
// perform action. Anonymous callers are treated as public, so an action
// open to everyone needs no login.
//
// A denied browser navigation gets the access-denied page with a link home;
// API clients get 401 or 403 JSON.
func RequireAction(enforcer *authz.Enforcer, action authz.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, resolved := CurrentRole(c)
		if !resolved {
			role = authz.RolePublic
		}
		if enforcer.Can(role, action) {
			c.Next()
			return
		}

		slog.Info("access denied", "role", role, "action", action, "path", c.Request.URL.Path)
		if wantsHTML(c) {
			c.HTML(http.StatusForbidden, "denied.html", gin.H{
				"Role":    role,
				"Message": "Your account cannot " + describe(action) + ".",
			})
			c.Abort()
			return
		}

		status, kind := http.StatusForbidden, "unauthorized"
		if !resolved {
			status, kind = http.StatusUnauthorized, "unauthenticated"
		}
		c.AbortWithStatusJSON(status, gin.H{
			"error": gin.H{"type": kind, "message": "your role cannot perform this action"},
		})
	}
}

var actionText = map[authz.Action]string{
	authz.ActionReportIssue:   "report issues",
	authz.ActionVote:          "vote on issues",
	authz.ActionUploadImage:   "upload images",
	authz.ActionResolveIssue:  "resolve issues",
	authz.ActionApplyLeave:    "use hostel leave",
	authz.ActionDecideLeave:   "decide leave applications",
	authz.ActionUseGatePass:   "use the market gate pass",
	authz.ActionViewGateLog:   "view the gate log",
	authz.ActionPublishEvent:  "publish events",
	authz.ActionViewDashboard: "open the admin dashboard",
}

func describe(a authz.Action) string {
	if s, ok := actionText[a]; ok {
		return s
	}
	return "do this"
}

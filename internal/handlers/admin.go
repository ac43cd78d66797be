package handlers

import (
	"net/http"
	"time"

	"campusdesk/internal/models"
	"campusdesk/internal/services"
	"campusdesk/internal/utils"

	"github.com/gin-gonic/gin"
)

// AdminHandler backs the warden/admin console. Route guards have already
// checked the caller's role; services check it again on every mutation.
type AdminHandler struct {
	issues *services.IssueService
	leaves *services.LeaveService
	gate   *services.GatePassService
}

func NewAdminHandler(issues *services.IssueService, leaves *services.LeaveService, gate *services.GatePassService) *AdminHandler {
	return &AdminHandler{issues: issues, leaves: leaves, gate: gate}
}

type rejectRequest struct {
	Reason string `json:"reason" binding:"max=255"`
}

// Dashboard returns the overview counters.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()

	stats, err := h.leaves.Stats(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	open, err := h.issues.OpenCount(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	resolved, err := h.issues.ResolvedSince(ctx, time.Now().AddDate(0, 0, -7))
	if err != nil {
		respondError(c, err)
		return
	}
	out, err := h.gate.ListOut(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leaves":             stats,
		"open_issues":        open,
		"resolved_this_week": resolved,
		"market_passes_out":  len(out),
	})
}

// Issues lists reports for triage; ?status=pending|resolved filters.
func (h *AdminHandler) Issues(c *gin.Context) {
	posts, err := h.issues.ListAll(c.Request.Context(), models.IssueStatus(c.Query("status")), utils.ClampLimit(c.Query("limit"), 100, 500))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issues": posts})
}

func (h *AdminHandler) ResolveIssue(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	post, err := h.issues.Resolve(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *AdminHandler) PendingLeaves(c *gin.Context) {
	h.leaveList(c, func() ([]models.LeaveApplication, error) {
		return h.leaves.ListPending(c.Request.Context())
	})
}

func (h *AdminHandler) ActiveLeaves(c *gin.Context) {
	h.leaveList(c, func() ([]models.LeaveApplication, error) {
		return h.leaves.ListActive(c.Request.Context())
	})
}

func (h *AdminHandler) LeaveHistory(c *gin.Context) {
	h.leaveList(c, func() ([]models.LeaveApplication, error) {
		return h.leaves.ListHistory(c.Request.Context(), utils.ClampLimit(c.Query("limit"), 50, 500))
	})
}

func (h *AdminHandler) leaveList(c *gin.Context, load func() ([]models.LeaveApplication, error)) {
	apps, err := load()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

// LeaveDetail returns one application with its transition log.
func (h *AdminHandler) LeaveDetail(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	app, err := h.leaves.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	logs, err := h.leaves.History(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"application": app, "history": logs})
}

func (h *AdminHandler) ApproveLeave(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	app, err := h.leaves.Approve(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *AdminHandler) RejectLeave(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req rejectRequest
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}
	app, err := h.leaves.Reject(c.Request.Context(), currentUser(c), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// GateLog shows who is out right now and the recent history.
func (h *AdminHandler) GateLog(c *gin.Context) {
	ctx := c.Request.Context()
	out, err := h.gate.ListOut(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	history, err := h.gate.History(ctx, utils.ClampLimit(c.Query("limit"), 100, 500))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"out": out, "history": history})
}
